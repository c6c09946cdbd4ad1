package handler

import (
	"encoding/json"
	"time"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// SessionSpec describes a session to establish.
//
// Expiration is a Unix timestamp in seconds. When it is zero, TTLSeconds
// is added to the current time; when both are zero the server's default
// TTL applies.
type SessionSpec struct {
	Expiration int64          `json:"expiration,omitempty"`
	TTLSeconds int64          `json:"ttl_seconds,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// EstablishRequest is the request body for POST /v1/users/{user_id}/sessions.
type EstablishRequest struct {
	Token string `json:"token"`
	SessionSpec
}

// EstablishResponse is the response body for POST /v1/users/{user_id}/sessions.
type EstablishResponse struct {
	UserID     string `json:"user_id"`
	Verifier   string `json:"verifier"`
	Expiration int64  `json:"expiration"`
}

// SessionView is one session of a user as returned by the API.
type SessionView struct {
	Verifier   string                     `json:"verifier"`
	Expiration int64                      `json:"expiration"`
	ExpiresAt  time.Time                  `json:"expires_at"`
	Metadata   map[string]json.RawMessage `json:"metadata,omitempty"`
}

// ListSessionsResponse is the response body for GET /v1/users/{user_id}/sessions.
type ListSessionsResponse struct {
	UserID   string        `json:"user_id"`
	Count    int           `json:"count"`
	Sessions []SessionView `json:"sessions"`
}

// RevokeRequest is the request body for POST /v1/users/{user_id}/sessions/revoke.
type RevokeRequest struct {
	Token string `json:"token"`
}

// RevokeResponse is the response body for POST /v1/users/{user_id}/sessions/revoke.
type RevokeResponse struct {
	Removed bool `json:"removed"`
}

// LoginRequest is the request body for POST /v1/users/{user_id}/logins.
//
// When Establish is set, the session for Token is recorded before the
// single-session policy runs, for callers whose session layer has not
// written it yet.
type LoginRequest struct {
	Token     string       `json:"token"`
	Establish *SessionSpec `json:"establish,omitempty"`
}

// LoginResponse is the response body for POST /v1/users/{user_id}/logins.
type LoginResponse struct {
	UserID   string `json:"user_id"`
	Outcome  string `json:"outcome"`
	Verifier string `json:"verifier"`
}
