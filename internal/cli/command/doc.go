// Package command provides CLI command definitions for onelogin-cli.
//
// This package defines all CLI commands using urfave/cli/v2:
//
//   - root.go: root command, global flags, connection resolution
//   - session.go: session subcommand group
//   - login.go: the single-session login policy
//   - token.go: local token generation and verifier hashing
//   - config.go: CLI profile and server configuration commands
//   - system.go: health, readiness and version
//   - connect.go: saved connection profiles
//
// Commands parse flags, call the server API and hand the result to an
// output formatter.
package command
