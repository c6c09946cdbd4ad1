// Package logger provides structured logging for onelogin.
package logger

import (
	"log/slog"
	"strings"
)

// tokenPrefix marks raw session tokens minted by pkg/token.
const tokenPrefix = "olt_"

// Key fragments naming secret values.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"api_key",
	"apikey",
	"hmac",
	"encryption_key",
	"credential",
	"authorization",
	"dsn",
}

const redactedValue = "***REDACTED***"

func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		v := a.Value.String()
		if v == "" {
			return a
		}
		if IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
		if strings.Contains(v, tokenPrefix) {
			return slog.String(a.Key, RedactString(v))
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// maskValue keeps the prefix and a short hint of a token.
func maskValue(value string) string {
	body := value[len(tokenPrefix):]
	if len(body) <= 6 {
		return tokenPrefix + "***"
	}
	return tokenPrefix + body[:3] + "..." + body[len(body)-3:]
}

// RedactString masks every olt_ token found in value.
func RedactString(value string) string {
	if !strings.Contains(value, tokenPrefix) {
		return value
	}
	fields := strings.Fields(value)
	for i, f := range fields {
		if strings.HasPrefix(f, tokenPrefix) {
			fields[i] = maskValue(f)
		}
	}
	return strings.Join(fields, " ")
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// ShortVerifier trims a verifier for log lines.
func ShortVerifier(v string) string {
	if len(v) <= 12 {
		return v
	}
	return v[:12]
}
