package logger

import (
	"context"
	"log/slog"
)

type contextKey struct{}

var requestIDKey contextKey

// RequestIDKey is the attribute key used for request IDs.
const RequestIDKey = "request_id"

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ForRequest returns l tagged with the request ID carried by ctx, or l
// itself when there is none. A nil l uses the default logger.
func ForRequest(ctx context.Context, l *slog.Logger) *slog.Logger {
	if l == nil {
		l = Default().Slog()
	}
	if id := RequestIDFromContext(ctx); id != "" {
		return l.With(RequestIDKey, id)
	}
	return l
}
