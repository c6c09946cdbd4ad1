// Package output provides output formatting for onelogin-cli.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: aligned table rendering
//   - json.go: JSON output
//   - yaml.go: YAML output
//
// Table output is for people; json and yaml are stable for scripting.
package output
