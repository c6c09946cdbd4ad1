// Package metric provides Prometheus metrics for onelogin.
//
// All collectors live in a private registry rather than the global one so
// tests can build as many as they need. The registry is exposed at /metrics
// by the HTTP server.
//
// Metrics:
//
//   - onelogin_logins_total{outcome}: login enforcements by outcome (kept, wiped)
//   - onelogin_sessions_expired_total: entries dropped as expired on load
//   - onelogin_sessions_malformed_total: entries dropped as unreadable on load
//   - onelogin_store_errors_total{op}: store I/O failures by operation
//   - onelogin_registry_duration_seconds{op}: registry operation latency
//   - onelogin_http_requests_total{method,code}: HTTP requests served
package metric
