package config

import (
	"net/url"
	"strings"
)

// Sanitize returns a copy of the config with sensitive fields masked.
//
// This is used for logging configuration without exposing secrets.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	sanitized.Server.HTTP.APIKey = maskSecret(sanitized.Server.HTTP.APIKey)
	sanitized.Storage.EncryptionKey = maskSecret(sanitized.Storage.EncryptionKey)
	sanitized.Registry.HMACKey = maskSecret(sanitized.Registry.HMACKey)
	sanitized.Storage.Redis.URL = maskURLPassword(sanitized.Storage.Redis.URL)
	sanitized.Storage.Postgres.DSN = maskDSN(sanitized.Storage.Postgres.DSN)

	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func maskURLPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "****")
	}
	return u.String()
}

// maskDSN handles both URL and key=value connection strings.
func maskDSN(dsn string) string {
	if strings.Contains(dsn, "://") {
		return maskURLPassword(dsn)
	}
	fields := strings.Fields(dsn)
	for i, f := range fields {
		if k, _, ok := strings.Cut(f, "="); ok && strings.EqualFold(k, "password") {
			fields[i] = k + "=****"
		}
	}
	return strings.Join(fields, " ")
}
