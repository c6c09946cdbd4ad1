// Package httpserver provides the HTTP/HTTPS API of onelogin.
//
// Routes:
//
//   - Session endpoints: /v1/users/{user_id}/sessions[...]
//   - Login hook: /v1/users/{user_id}/logins
//   - Health endpoints: /health, /ready, /metrics
//
// Every route runs behind RequestID and Recover. The /v1 routes add
// metrics, audit logging and bearer API key authentication.
package httpserver
