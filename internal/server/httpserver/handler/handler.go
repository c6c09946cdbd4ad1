package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yndnr/onelogin/internal/core/domain"
	"github.com/yndnr/onelogin/internal/core/service"
	"github.com/yndnr/onelogin/internal/telemetry/logger"
)

// Sessions is the registry surface the handlers use.
type Sessions interface {
	Verifier(rawToken string) string
	LoadValidSessions(ctx context.Context, userID string) (domain.SessionSet, error)
	FindSession(ctx context.Context, userID, verifier string) (domain.Record, bool, error)
	Establish(ctx context.Context, userID, rawToken string, rec domain.Record) (string, domain.Record, error)
	Revoke(ctx context.Context, userID, rawToken string) (bool, error)
	KeepOnly(ctx context.Context, userID, verifier string) error
	DestroyAll(ctx context.Context, userID string) error
	DestroyOthers(ctx context.Context, userID, rawToken string) (service.Outcome, error)
}

var _ Sessions = (*service.Registry)(nil)

// ReadyFunc reports whether the backing store is reachable.
type ReadyFunc func(ctx context.Context) error

// Handler is the main HTTP handler that routes requests to appropriate handlers.
type Handler struct {
	sessions Sessions
	ready    ReadyFunc
	logger   *slog.Logger
	mux      *http.ServeMux
}

// New creates a new Handler. ready may be nil.
func New(sessions Sessions, ready ReadyFunc, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		sessions: sessions,
		ready:    ready,
		logger:   logger,
		mux:      http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	h.mux.HandleFunc("GET /v1/users/{user_id}/sessions", h.handleListSessions)
	h.mux.HandleFunc("POST /v1/users/{user_id}/sessions", h.handleEstablish)
	h.mux.HandleFunc("DELETE /v1/users/{user_id}/sessions", h.handleDestroyAll)
	h.mux.HandleFunc("GET /v1/users/{user_id}/sessions/{verifier}", h.handleGetSession)
	h.mux.HandleFunc("POST /v1/users/{user_id}/sessions/revoke", h.handleRevoke)
	h.mux.HandleFunc("POST /v1/users/{user_id}/sessions/{verifier}/keep", h.handleKeepOnly)
	h.mux.HandleFunc("POST /v1/users/{user_id}/logins", h.handleLogin)
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := getRequestID(r)
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	WriteError(w, getRequestID(r), status, code, message)
}

// WriteError writes an error envelope. It is shared with the middleware.
func WriteError(w http.ResponseWriter, requestID string, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(NewErrorResponse(requestID, code, message, nil))
}

// decodeBody decodes a JSON request body, rejecting unknown fields.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.ErrBadRequest.WithDetails("invalid request body").WithCause(err)
	}
	return nil
}

// getRequestID returns the request ID set by the RequestID middleware.
func getRequestID(r *http.Request) string {
	if id := logger.RequestIDFromContext(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-Request-ID")
}

// handleServiceError converts registry errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DomainError
	if errors.As(err, &de) {
		status := ErrorCodeToHTTPStatus(de.Code)
		if status >= http.StatusInternalServerError {
			h.logger.Error("request failed", "request_id", getRequestID(r), "error", err)
		}
		h.writeError(w, r, status, de.Code, de.Error())
		return
	}

	h.logger.Error("internal error", "request_id", getRequestID(r), "error", err)
	h.writeError(w, r, http.StatusInternalServerError, domain.ErrInternalServer.Code, domain.ErrInternalServer.Message)
}

// ErrorCodeToHTTPStatus maps error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasPrefix(code, "OL-ARG-"), strings.HasSuffix(code, "-4000"), strings.HasSuffix(code, "-4001"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "-4010"), strings.HasSuffix(code, "-4011"):
		return http.StatusUnauthorized
	case strings.HasPrefix(code, "OL-STOR-5"):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
