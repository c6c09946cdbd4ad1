// Package config defines the CLI configuration structure.
package config

import "fmt"

// DefaultServer is the server address used when no profile or flag sets one.
const DefaultServer = "http://127.0.0.1:7080"

// CLIConfig is the configuration for onelogin-cli.
type CLIConfig struct {
	DefaultServer string `yaml:"default_server"`
	DefaultOutput string `yaml:"default_output"` // table, json, yaml

	// Saved connections
	Connections map[string]ConnectionConfig `yaml:"connections"`

	CurrentConnection string `yaml:"current_connection,omitempty"`
}

// ConnectionConfig stores saved connection details.
type ConnectionConfig struct {
	Server   string `yaml:"server"`
	APIKey   string `yaml:"api_key,omitempty"`
	CAFile   string `yaml:"ca_file,omitempty"`
	Insecure bool   `yaml:"insecure,omitempty"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		DefaultServer: DefaultServer,
		DefaultOutput: "table",
		Connections:   make(map[string]ConnectionConfig),
	}
}

// Current returns the active connection profile, if any.
func (c *CLIConfig) Current() (ConnectionConfig, bool) {
	if c.CurrentConnection == "" {
		return ConnectionConfig{}, false
	}
	conn, ok := c.Connections[c.CurrentConnection]
	return conn, ok
}

// Use switches the active profile.
func (c *CLIConfig) Use(name string) error {
	if _, ok := c.Connections[name]; !ok {
		return fmt.Errorf("unknown connection %q", name)
	}
	c.CurrentConnection = name
	return nil
}

// Validate checks the file contents for obvious mistakes.
func (c *CLIConfig) Validate() error {
	switch c.DefaultOutput {
	case "", "table", "json", "yaml":
	default:
		return fmt.Errorf("default_output: unsupported format %q", c.DefaultOutput)
	}
	for name, conn := range c.Connections {
		if conn.Server == "" {
			return fmt.Errorf("connections.%s: server is required", name)
		}
	}
	if c.CurrentConnection != "" {
		if _, ok := c.Connections[c.CurrentConnection]; !ok {
			return fmt.Errorf("current_connection: unknown connection %q", c.CurrentConnection)
		}
	}
	return nil
}
