// Package handler provides the HTTP request handlers of onelogin.
//
//   - session.go: per-user session listing, lookup, establish, revoke,
//     keep-only and clear
//   - login.go: the login hook endpoint enforcing a single active session
//   - health.go: liveness and readiness checks
//
// All handlers follow a consistent pattern:
//
//   - Parse and validate request
//   - Call the session registry
//   - Format and return response
//   - Map domain errors to HTTP status codes
package handler
