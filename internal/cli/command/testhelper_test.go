package command

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yndnr/onelogin/internal/core/service"
	"github.com/yndnr/onelogin/internal/server/httpserver"
	"github.com/yndnr/onelogin/internal/storage"
	"github.com/yndnr/onelogin/internal/storage/memory"
	"github.com/yndnr/onelogin/pkg/token"
)

// testEnv runs the CLI against a real in-memory onelogin server.
type testEnv struct {
	server  *httptest.Server
	hasher  *token.Hasher
	cfgPath string
	stdin   string
}

func newTestEnv(t *testing.T, apiKey string) *testEnv {
	t.Helper()

	hasher, err := token.NewHasher(token.SHA256)
	if err != nil {
		t.Fatal(err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := service.NewRegistry(storage.NewKVSessionStore(memory.New(), ""), hasher, service.WithLogger(log))

	srv := httptest.NewServer(httpserver.NewRouter(&httpserver.RouterConfig{
		Sessions: reg,
		Logger:   log,
		APIKey:   apiKey,
	}))
	t.Cleanup(srv.Close)

	return &testEnv{
		server:  srv,
		hasher:  hasher,
		cfgPath: filepath.Join(t.TempDir(), "cli.yaml"),
	}
}

// run executes the CLI with --config and --server set.
func (e *testEnv) run(args ...string) (string, error) {
	return e.runRaw(append([]string{"--server", e.server.URL}, args...)...)
}

// runRaw executes the CLI with only --config set.
func (e *testEnv) runRaw(args ...string) (string, error) {
	app := App()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard
	app.Reader = strings.NewReader(e.stdin)

	full := append([]string{"onelogin-cli", "--config", e.cfgPath}, args...)
	err := app.Run(full)
	return out.String(), err
}

// runJSON executes the CLI with -o json and decodes the output.
func (e *testEnv) runJSON(t *testing.T, target any, args ...string) {
	t.Helper()
	out, err := e.run(append([]string{"-o", "json"}, args...)...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	if err := json.Unmarshal([]byte(out), target); err != nil {
		t.Fatalf("%v: decode %q: %v", args, out, err)
	}
}

type listOutput struct {
	UserID   string `json:"user_id"`
	Count    int    `json:"count"`
	Sessions []struct {
		Verifier   string                     `json:"verifier"`
		Expiration int64                      `json:"expiration"`
		Metadata   map[string]json.RawMessage `json:"metadata"`
	} `json:"sessions"`
}

func (e *testEnv) list(t *testing.T, userID string) listOutput {
	t.Helper()
	var out listOutput
	e.runJSON(t, &out, "session", "list", userID)
	return out
}

func (e *testEnv) establish(t *testing.T, userID, tok string) string {
	t.Helper()
	var out establishResult
	e.runJSON(t, &out, "session", "establish", "--token", tok, "--ttl", "1h", userID)
	return out.Verifier
}
