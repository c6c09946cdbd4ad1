package httpserver

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/onelogin/internal/server/httpserver/handler"
	"github.com/yndnr/onelogin/internal/telemetry/logger"
	"github.com/yndnr/onelogin/internal/telemetry/metric"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if _, err := ulid.ParseStrict(seen); err != nil {
		t.Errorf("generated request ID %q is not a ULID: %v", seen, err)
	}
	if rec.Header().Get("X-Request-ID") != seen {
		t.Error("response header should carry the request ID")
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "upstream-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "upstream-123" {
		t.Errorf("incoming request ID not reused, got %q", seen)
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "bad id\nwith newline")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "bad id\nwith newline" {
		t.Error("malformed incoming request ID should be replaced")
	}
}

func TestChain(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	Chain(okHandler(), mw("a"), mw("b"), mw("c")).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if strings.Join(order, ",") != "a,b,c" {
		t.Errorf("order = %v, want a,b,c", order)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	h := APIKeyAuth("s3cret", quietLogger())(okHandler())

	tests := []struct {
		name   string
		header string
		value  string
		want   int
		code   string
	}{
		{"bearer", "Authorization", "Bearer s3cret", http.StatusOK, ""},
		{"bearer lowercase scheme", "Authorization", "bearer s3cret", http.StatusOK, ""},
		{"x-api-key", "X-API-Key", "s3cret", http.StatusOK, ""},
		{"missing", "", "", http.StatusUnauthorized, "OL-AUTH-4010"},
		{"wrong", "Authorization", "Bearer nope", http.StatusUnauthorized, "OL-AUTH-4011"},
		{"basic scheme", "Authorization", "Basic s3cret", http.StatusUnauthorized, "OL-AUTH-4010"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/v1/users/1/sessions", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.code == "" {
				return
			}
			var resp handler.Response
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Code != tt.code {
				t.Errorf("code = %s, want %s", resp.Code, tt.code)
			}
		})
	}
}

func TestAPIKeyAuth_Disabled(t *testing.T) {
	rec := httptest.NewRecorder()
	APIKeyAuth("", quietLogger())(okHandler()).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with auth disabled", rec.Code)
	}
}

func TestRecover(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}), RequestID(), Recover(log))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if rec.Header().Get("X-Error-Code") != "OL-SYS-5000" {
		t.Errorf("X-Error-Code = %q", rec.Header().Get("X-Error-Code"))
	}
	if !strings.Contains(buf.String(), "kaboom") {
		t.Error("panic should be logged")
	}
}

func TestAudit(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}), RequestID(), Audit(log))

	req := httptest.NewRequest("GET", "/v1/users/1/sessions/x", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("audit log is not JSON: %v (%s)", err, buf.String())
	}
	if entry["level"] != "WARN" || entry["status"] != float64(404) {
		t.Errorf("entry = %v", entry)
	}
	if entry["client_ip"] != "198.51.100.9" {
		t.Errorf("client_ip = %v", entry["client_ip"])
	}
	if entry["request_id"] == "" {
		t.Error("request_id missing")
	}
}

func TestMetrics(t *testing.T) {
	m := metric.NewRegistry()
	h := Metrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.WriteHeader(http.StatusOK)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/", nil))

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "201")); got != 1 {
		t.Errorf("http_requests{POST,201} = %v, want 1", got)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"remote addr", nil, "192.0.2.1:1234", "192.0.2.1"},
		{"ipv6 remote", nil, "[::1]:8080", "::1"},
		{"x-real-ip", map[string]string{"X-Real-IP": "192.0.2.7"}, "10.0.0.1:1", "192.0.2.7"},
		{"x-forwarded-for", map[string]string{"X-Forwarded-For": "192.0.2.8, 10.0.0.2"}, "10.0.0.1:1", "192.0.2.8"},
		{"no port", nil, "192.0.2.9", "192.0.2.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
