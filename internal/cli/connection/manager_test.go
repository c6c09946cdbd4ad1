package connection

import (
	"context"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/yndnr/onelogin/internal/cli/config"
)

func TestManager_ConnectUseDisconnect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")
	mgr := NewManager(config.Default(), path)

	if mgr.IsConnected() {
		t.Fatal("new manager should not be connected")
	}

	if err := mgr.Connect(&Connection{Name: "prod", Server: "https://prod:7443", APIKey: "k1"}); err != nil {
		t.Fatalf("Connect(prod) error = %v", err)
	}
	if err := mgr.Connect(&Connection{Name: "dev", Server: "http://127.0.0.1:7080"}); err != nil {
		t.Fatalf("Connect(dev) error = %v", err)
	}
	if cur := mgr.Current(); cur == nil || cur.Name != "dev" {
		t.Fatalf("Current() = %+v, want dev", cur)
	}

	if err := mgr.Use("prod"); err != nil {
		t.Fatalf("Use(prod) error = %v", err)
	}

	reloaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cur := NewManager(reloaded, path).Current()
	if cur == nil || cur.Server != "https://prod:7443" || cur.APIKey != "k1" {
		t.Fatalf("persisted Current() = %+v", cur)
	}

	if err := mgr.Disconnect(); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if mgr.IsConnected() {
		t.Error("IsConnected() = true after Disconnect")
	}
	if len(mgr.Config().Connections) != 2 {
		t.Error("Disconnect() should keep saved profiles")
	}
}

func TestManager_ConnectValidation(t *testing.T) {
	mgr := NewManager(nil, filepath.Join(t.TempDir(), "cli.yaml"))

	if err := mgr.Connect(&Connection{Server: "http://x"}); err == nil {
		t.Error("Connect() without name should fail")
	}
	if err := mgr.Connect(&Connection{Name: "x"}); err == nil {
		t.Error("Connect() without server should fail")
	}
	if err := mgr.Use("missing"); err == nil {
		t.Error("Use() of unknown profile should fail")
	}
}

func TestConnection_Client(t *testing.T) {
	if _, err := (&Connection{}).Client(); err == nil {
		t.Error("Client() without server should fail")
	}

	client, err := (&Connection{Server: "127.0.0.1:7080"}).Client()
	if err != nil {
		t.Fatalf("Client() error = %v", err)
	}
	if client.BaseURL() != "http://127.0.0.1:7080" {
		t.Errorf("BaseURL() = %q", client.BaseURL())
	}

	if _, err := (&Connection{Server: "https://x", CAFile: "/nonexistent/ca.pem"}).Client(); err == nil {
		t.Error("Client() with missing CA file should fail")
	}
}

func TestConnection_ClientTrustsCAFile(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: server.Certificate().Raw})
	if err := os.WriteFile(caFile, certPEM, 0600); err != nil {
		t.Fatal(err)
	}

	untrusted, err := (&Connection{Server: server.URL}).Client()
	if err != nil {
		t.Fatalf("Client() error = %v", err)
	}
	if _, err := untrusted.Get(context.Background(), "/health"); err == nil {
		t.Error("request should fail without the CA file")
	}

	trusted, err := (&Connection{Server: server.URL, CAFile: caFile}).Client()
	if err != nil {
		t.Fatalf("Client() error = %v", err)
	}
	resp, err := trusted.Get(context.Background(), "/health")
	if err != nil {
		t.Fatalf("Get() with CA file error = %v", err)
	}
	resp.Body.Close()

	insecure, err := (&Connection{Server: server.URL, Insecure: true}).Client()
	if err != nil {
		t.Fatalf("Client() error = %v", err)
	}
	resp, err = insecure.Get(context.Background(), "/health")
	if err != nil {
		t.Fatalf("Get() insecure error = %v", err)
	}
	resp.Body.Close()
}
