// Package main provides the entry point for onelogin-cli.
//
// The CLI talks to onelogin-server over its HTTP API:
//
//   - Session inspection and management (list, get, establish, revoke, keep, clear)
//   - The single-session login policy
//   - Local token generation and verifier hashing
//   - Connection profiles and configuration validation
//
// Usage:
//
//	onelogin-cli [global flags] command [flags] [args]
//	onelogin-cli --server https://sessions:7443 --ca-file ca.pem session list 42
//	onelogin-cli -o json login --token "$TOKEN" 42
package main
