// Package logger provides structured logging for onelogin.
//
// It wraps log/slog:
//
//   - logger.go: handler construction, levels, process-wide default
//   - context.go: request-scoped loggers and request IDs
//   - redact.go: masking of raw session tokens and secrets
//
// Raw session tokens must never reach a log sink. Attributes whose key
// names a secret (token, password, api_key, ...) are replaced with
// ***REDACTED***, and values carrying the olt_ token prefix are masked
// wherever they appear.
package logger
