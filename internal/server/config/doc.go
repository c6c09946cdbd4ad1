// Package config defines the onelogin-server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Validation (drivers, algorithms, keys, TLS pairs)
//   - sanitize.go: Secret masking for logs
//
// Configuration is loaded via internal/infra/confloader from defaults, a
// YAML file and ONELOGIN_ environment variables.
package config
