package tlsroots

import (
	"crypto/tls"
	"encoding/pem"
	"errors"
	"testing"
)

func TestNewPool(t *testing.T) {
	if NewPool().Pool() == nil {
		t.Fatal("Pool() returned nil")
	}
	if NewEmptyPool().Pool() == nil {
		t.Fatal("Pool() returned nil for empty pool")
	}
}

func TestAddCertPEM(t *testing.T) {
	certPEM, _, _ := writeTestKeyPair(t, t.TempDir())
	other, _, _ := writeTestKeyPair(t, t.TempDir())

	pool := NewEmptyPool()
	if err := pool.AddCertPEM(append(certPEM, other...)); err != nil {
		t.Fatalf("AddCertPEM() error = %v", err)
	}
}

func TestAddCertPEM_NoCerts(t *testing.T) {
	pool := NewEmptyPool()
	for _, data := range [][]byte{nil, []byte("not a certificate")} {
		if err := pool.AddCertPEM(data); !errors.Is(err, ErrNoCertsFound) {
			t.Errorf("AddCertPEM(%q) error = %v, want ErrNoCertsFound", data, err)
		}
	}
}

func TestAddCertPEM_InvalidCert(t *testing.T) {
	bad := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte("garbage")})
	if err := NewEmptyPool().AddCertPEM(bad); err == nil {
		t.Error("AddCertPEM() should reject an unparsable certificate")
	}
}

func TestAddCertFile(t *testing.T) {
	_, certFile, keyFile := writeTestKeyPair(t, t.TempDir())

	pool := NewEmptyPool()
	if err := pool.AddCertFile(certFile); err != nil {
		t.Fatalf("AddCertFile() error = %v", err)
	}
	if err := pool.AddCertFile(keyFile); !errors.Is(err, ErrNoCertsFound) {
		t.Errorf("AddCertFile(key) error = %v, want ErrNoCertsFound", err)
	}
	if err := pool.AddCertFile("/nonexistent/ca.pem"); err == nil {
		t.Error("AddCertFile() should fail for a missing file")
	}
}

func TestClientTLSConfig(t *testing.T) {
	pool := NewEmptyPool()

	cfg := pool.ClientTLSConfig(false)
	if cfg.RootCAs != pool.Pool() {
		t.Error("RootCAs should be the pool")
	}
	if cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %x, want TLS 1.2", cfg.MinVersion)
	}
	if cfg.InsecureSkipVerify {
		t.Error("InsecureSkipVerify should be off")
	}
	if !pool.ClientTLSConfig(true).InsecureSkipVerify {
		t.Error("InsecureSkipVerify should be on")
	}
}
