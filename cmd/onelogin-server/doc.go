// Package main provides the entry point for onelogin-server.
//
// The server hosts the single-active-session registry:
//
//   - HTTP/HTTPS API for establishing, listing and revoking sessions
//   - The login endpoint that keeps the current session and removes the rest
//   - Prometheus metrics and health probes
//
// Sessions are kept in memory, Badger, Redis or PostgreSQL, optionally
// sealed with authenticated encryption.
//
// Usage:
//
//	onelogin-server [flags]
//	onelogin-server --config /etc/onelogin/server.yaml
//
// Every setting can be overridden with ONELOGIN_* environment variables,
// e.g. ONELOGIN_STORAGE_DRIVER=redis.
package main
