// Package config provides CLI configuration for onelogin-cli.
//
// The CLI keeps named connection profiles in ~/.onelogin/cli.yaml:
//
//   - spec.go: CLIConfig and ConnectionConfig
//   - loader.go: loading and saving the profile file
//
// Flags and ONELOGIN_* environment variables always take precedence over
// the stored profile.
package config
