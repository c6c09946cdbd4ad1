// Package connection provides connection management for onelogin-cli.
//
//   - manager.go: saved connection profiles and the active connection
//   - http.go: HTTP/HTTPS client for the session API
//
// HTTPS connections trust the system roots plus an optional CA file.
package connection
