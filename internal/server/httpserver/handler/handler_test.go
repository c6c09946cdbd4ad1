package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yndnr/onelogin/internal/core/domain"
	"github.com/yndnr/onelogin/internal/core/service"
	"github.com/yndnr/onelogin/internal/storage"
	"github.com/yndnr/onelogin/internal/storage/memory"
	"github.com/yndnr/onelogin/pkg/token"
)

const farFuture = int64(4_000_000_000)

func testHandler(t *testing.T) (*Handler, *service.Registry) {
	t.Helper()
	hasher, err := token.NewHasher(token.SHA256)
	if err != nil {
		t.Fatal(err)
	}
	reg := service.NewRegistry(storage.NewKVSessionStore(memory.New(), ""), hasher,
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return New(reg, nil, slog.New(slog.NewTextHandler(io.Discard, nil))), reg
}

func do(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp Response
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&resp); err != nil {
		t.Fatalf("%s %s: decode response: %v (%s)", method, path, err, rec.Body.String())
	}
	return rec, resp
}

func decodeData(t *testing.T, resp Response, v any) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestHandler_Health(t *testing.T) {
	h, _ := testHandler(t)

	rec, resp := do(t, h, "GET", "/health", nil)
	if rec.Code != http.StatusOK || resp.Code != "OK" {
		t.Fatalf("GET /health = %d %s", rec.Code, resp.Code)
	}
	data := resp.Data.(map[string]any)
	if data["status"] != "healthy" {
		t.Errorf("status = %v", data["status"])
	}

	if rec, _ := do(t, h, "GET", "/ready", nil); rec.Code != http.StatusOK {
		t.Errorf("GET /ready = %d", rec.Code)
	}
}

func TestHandler_ReadyFailure(t *testing.T) {
	_, reg := testHandler(t)
	h := New(reg, func(context.Context) error { return errors.New("connection refused") },
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec, resp := do(t, h, "GET", "/ready", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /ready = %d, want 503", rec.Code)
	}
	if resp.Code != "OL-STOR-5001" {
		t.Errorf("code = %s", resp.Code)
	}
}

func TestHandler_EstablishAndList(t *testing.T) {
	h, reg := testHandler(t)

	rec, resp := do(t, h, "POST", "/v1/users/42/sessions", EstablishRequest{
		Token:       "tok-desktop",
		SessionSpec: SessionSpec{Expiration: farFuture, Metadata: map[string]any{"ip": "203.0.113.7"}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("establish = %d: %s", rec.Code, rec.Body.String())
	}
	var est EstablishResponse
	decodeData(t, resp, &est)
	if est.Verifier != reg.Verifier("tok-desktop") || est.Expiration != farFuture || est.UserID != "42" {
		t.Errorf("establish response = %+v", est)
	}

	rec, resp = do(t, h, "POST", "/v1/users/42/sessions", EstablishRequest{
		Token:       "tok-phone",
		SessionSpec: SessionSpec{TTLSeconds: 3600},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("establish ttl = %d", rec.Code)
	}
	decodeData(t, resp, &est)
	if d := est.Expiration - time.Now().Unix(); d < 3590 || d > 3610 {
		t.Errorf("ttl expiration offset = %d, want about 3600", d)
	}

	rec, resp = do(t, h, "GET", "/v1/users/42/sessions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list = %d", rec.Code)
	}
	var list ListSessionsResponse
	decodeData(t, resp, &list)
	if list.Count != 2 || len(list.Sessions) != 2 {
		t.Fatalf("list = %+v", list)
	}
	for _, s := range list.Sessions {
		if s.Verifier == reg.Verifier("tok-desktop") && string(s.Metadata["ip"]) != `"203.0.113.7"` {
			t.Errorf("metadata = %s", s.Metadata["ip"])
		}
	}
}

func TestHandler_EstablishDefaultTTL(t *testing.T) {
	h, _ := testHandler(t)

	_, resp := do(t, h, "POST", "/v1/users/7/sessions", EstablishRequest{Token: "tok"})
	var est EstablishResponse
	decodeData(t, resp, &est)

	want := time.Now().Add(service.DefaultSessionTTL).Unix()
	if d := est.Expiration - want; d < -10 || d > 10 {
		t.Errorf("expiration = %d, want about %d", est.Expiration, want)
	}
}

// noLookupSessions fails every lookup, so replies built from it must rely
// on what Establish returned.
type noLookupSessions struct {
	*service.Registry
}

func (noLookupSessions) FindSession(context.Context, string, string) (domain.Record, bool, error) {
	return domain.Record{}, false, domain.ErrStoreFailure.WithDetails("lookup disabled")
}

func TestHandler_EstablishReplyUsesStoredRecord(t *testing.T) {
	_, reg := testHandler(t)
	h := New(noLookupSessions{reg}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec, resp := do(t, h, "POST", "/v1/users/7/sessions", EstablishRequest{Token: "tok"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("establish = %d: %s", rec.Code, rec.Body.String())
	}
	var est EstablishResponse
	decodeData(t, resp, &est)

	want := time.Now().Add(service.DefaultSessionTTL).Unix()
	if d := est.Expiration - want; d < -10 || d > 10 {
		t.Errorf("expiration = %d, want about %d", est.Expiration, want)
	}
}

func TestHandler_EstablishErrors(t *testing.T) {
	h, _ := testHandler(t)

	tests := []struct {
		name string
		body any
		want int
		code string
	}{
		{"missing token", EstablishRequest{}, http.StatusBadRequest, "OL-ARG-1002"},
		{"negative ttl", EstablishRequest{Token: "t", SessionSpec: SessionSpec{TTLSeconds: -1}}, http.StatusBadRequest, "OL-ARG-1001"},
		{"ttl overflows duration", EstablishRequest{Token: "t", SessionSpec: SessionSpec{TTLSeconds: math.MaxInt64}}, http.StatusBadRequest, "OL-ARG-1001"},
		{"ttl just past limit", EstablishRequest{Token: "t", SessionSpec: SessionSpec{TTLSeconds: maxTTLSeconds + 1}}, http.StatusBadRequest, "OL-ARG-1001"},
		{"past expiration", EstablishRequest{Token: "t", SessionSpec: SessionSpec{Expiration: 1}}, http.StatusBadRequest, "OL-SESS-4001"},
		{"unknown field", map[string]any{"token": "t", "bogus": 1}, http.StatusBadRequest, "OL-SYS-4000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := do(t, h, "POST", "/v1/users/1/sessions", tt.body)
			if rec.Code != tt.want || resp.Code != tt.code {
				t.Errorf("got %d %s, want %d %s", rec.Code, resp.Code, tt.want, tt.code)
			}
			if rec.Header().Get("X-Error-Code") != tt.code {
				t.Errorf("X-Error-Code = %q", rec.Header().Get("X-Error-Code"))
			}
		})
	}
}

func TestHandler_GetSession(t *testing.T) {
	h, reg := testHandler(t)
	ctx := context.Background()
	v, _, err := reg.Establish(ctx, "u1", "tok", domain.Record{Expiration: farFuture})
	if err != nil {
		t.Fatal(err)
	}

	rec, resp := do(t, h, "GET", "/v1/users/u1/sessions/"+v, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get = %d", rec.Code)
	}
	var view SessionView
	decodeData(t, resp, &view)
	if view.Verifier != v || view.Expiration != farFuture || !view.ExpiresAt.Equal(time.Unix(farFuture, 0)) {
		t.Errorf("view = %+v", view)
	}

	rec, resp = do(t, h, "GET", "/v1/users/u1/sessions/deadbeef", nil)
	if rec.Code != http.StatusNotFound || resp.Code != "OL-SESS-4040" {
		t.Errorf("get missing = %d %s", rec.Code, resp.Code)
	}
}

func TestHandler_RevokeKeepClear(t *testing.T) {
	h, reg := testHandler(t)
	ctx := context.Background()
	for _, tok := range []string{"a", "b", "c"} {
		if _, _, err := reg.Establish(ctx, "u1", tok, domain.Record{Expiration: farFuture}); err != nil {
			t.Fatal(err)
		}
	}

	rec, resp := do(t, h, "POST", "/v1/users/u1/sessions/revoke", RevokeRequest{Token: "a"})
	var rv RevokeResponse
	decodeData(t, resp, &rv)
	if rec.Code != http.StatusOK || !rv.Removed {
		t.Fatalf("revoke = %d %+v", rec.Code, rv)
	}
	_, resp = do(t, h, "POST", "/v1/users/u1/sessions/revoke", RevokeRequest{Token: "a"})
	decodeData(t, resp, &rv)
	if rv.Removed {
		t.Error("second revoke should report nothing removed")
	}
	if rec, _ := do(t, h, "POST", "/v1/users/u1/sessions/revoke", RevokeRequest{}); rec.Code != http.StatusBadRequest {
		t.Errorf("revoke without token = %d", rec.Code)
	}

	if rec, _ := do(t, h, "POST", "/v1/users/u1/sessions/"+reg.Verifier("b")+"/keep", nil); rec.Code != http.StatusOK {
		t.Fatalf("keep = %d", rec.Code)
	}
	set, _ := reg.LoadValidSessions(ctx, "u1")
	if len(set) != 1 {
		t.Fatalf("sessions after keep = %v", set.Verifiers())
	}
	if _, ok := set.Get(reg.Verifier("b")); !ok {
		t.Error("keep removed the kept session")
	}

	if rec, _ := do(t, h, "DELETE", "/v1/users/u1/sessions", nil); rec.Code != http.StatusOK {
		t.Fatalf("clear = %d", rec.Code)
	}
	set, _ = reg.LoadValidSessions(ctx, "u1")
	if len(set) != 0 {
		t.Errorf("sessions after clear = %v", set.Verifiers())
	}
}

func TestHandler_Login(t *testing.T) {
	h, reg := testHandler(t)
	ctx := context.Background()
	for _, tok := range []string{"old-1", "old-2"} {
		if _, _, err := reg.Establish(ctx, "u1", tok, domain.Record{Expiration: farFuture}); err != nil {
			t.Fatal(err)
		}
	}

	rec, resp := do(t, h, "POST", "/v1/users/u1/logins", LoginRequest{
		Token:     "fresh",
		Establish: &SessionSpec{Expiration: farFuture},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d: %s", rec.Code, rec.Body.String())
	}
	var lr LoginResponse
	decodeData(t, resp, &lr)
	if lr.Outcome != "kept" || lr.Verifier != reg.Verifier("fresh") {
		t.Errorf("login response = %+v", lr)
	}
	set, _ := reg.LoadValidSessions(ctx, "u1")
	if got := set.Verifiers(); len(got) != 1 || got[0] != reg.Verifier("fresh") {
		t.Errorf("sessions after login = %v", got)
	}
}

func TestHandler_LoginUnknownToken(t *testing.T) {
	h, reg := testHandler(t)
	ctx := context.Background()
	if _, _, err := reg.Establish(ctx, "u1", "other", domain.Record{Expiration: farFuture}); err != nil {
		t.Fatal(err)
	}

	_, resp := do(t, h, "POST", "/v1/users/u1/logins", LoginRequest{Token: "never-established"})
	var lr LoginResponse
	decodeData(t, resp, &lr)
	if lr.Outcome != "wiped" {
		t.Errorf("outcome = %s, want wiped", lr.Outcome)
	}
	set, _ := reg.LoadValidSessions(ctx, "u1")
	if len(set) != 0 {
		t.Errorf("sessions after wipe = %v", set.Verifiers())
	}

	if rec, resp := do(t, h, "POST", "/v1/users/u1/logins", LoginRequest{}); rec.Code != http.StatusBadRequest {
		t.Errorf("login without token = %d %s", rec.Code, resp.Code)
	}
}

type failingSessions struct {
	Sessions
	err error
}

func (f failingSessions) LoadValidSessions(context.Context, string) (domain.SessionSet, error) {
	return nil, f.err
}

func TestHandler_StoreErrors(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := New(failingSessions{err: domain.ErrStoreFailure.WithCause(errors.New("down"))}, nil, quiet)
	if rec, resp := do(t, h, "GET", "/v1/users/u1/sessions", nil); rec.Code != http.StatusServiceUnavailable || resp.Code != "OL-STOR-5001" {
		t.Errorf("store failure = %d %s", rec.Code, resp.Code)
	}

	h = New(failingSessions{err: errors.New("boom")}, nil, quiet)
	if rec, resp := do(t, h, "GET", "/v1/users/u1/sessions", nil); rec.Code != http.StatusInternalServerError || resp.Code != "OL-SYS-5000" {
		t.Errorf("plain error = %d %s", rec.Code, resp.Code)
	}
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"OL-SESS-4040", http.StatusNotFound},
		{"OL-SESS-4001", http.StatusBadRequest},
		{"OL-ARG-1001", http.StatusBadRequest},
		{"OL-ARG-1002", http.StatusBadRequest},
		{"OL-SYS-4000", http.StatusBadRequest},
		{"OL-AUTH-4010", http.StatusUnauthorized},
		{"OL-AUTH-4011", http.StatusUnauthorized},
		{"OL-STOR-5001", http.StatusServiceUnavailable},
		{"OL-SYS-5000", http.StatusInternalServerError},
		{"OL-CONF-4000", http.StatusBadRequest},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := ErrorCodeToHTTPStatus(tt.code); got != tt.want {
			t.Errorf("ErrorCodeToHTTPStatus(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestResponse_Envelope(t *testing.T) {
	r := NewResponse("req-1", map[string]int{"n": 1})
	if r.Code != "OK" || r.RequestID != "req-1" || r.Timestamp == 0 {
		t.Errorf("NewResponse() = %+v", r)
	}
	e := NewErrorResponse("req-2", "OL-SESS-4040", "session not found", nil)
	if e.Data != nil || e.Code != "OL-SESS-4040" {
		t.Errorf("NewErrorResponse() = %+v", e)
	}
}
