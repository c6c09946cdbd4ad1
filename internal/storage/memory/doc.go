// Package memory provides an in-memory KV engine for onelogin.
//
// Values live in a sharded concurrent map. Nothing survives a restart, so
// the engine suits development, tests and single-process deployments that
// accept losing sessions on restart.
package memory
