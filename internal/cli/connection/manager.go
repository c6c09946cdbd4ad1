// Package connection provides connection management for onelogin-cli.
package connection

import (
	"fmt"
	"strings"
	"time"

	"github.com/yndnr/onelogin/internal/cli/config"
	"github.com/yndnr/onelogin/internal/infra/tlsroots"
)

// Connection describes how to reach a onelogin server.
type Connection struct {
	Name     string
	Server   string
	APIKey   string
	CAFile   string
	Insecure bool
	Timeout  time.Duration
}

// Client builds an HTTP client for the connection.
func (c *Connection) Client() (*HTTPClient, error) {
	if c.Server == "" {
		return nil, fmt.Errorf("server address required")
	}

	opts := []Option{WithTimeout(c.Timeout)}
	if c.CAFile != "" || c.Insecure || strings.HasPrefix(c.Server, "https://") {
		pool := tlsroots.NewPool()
		if c.CAFile != "" {
			if err := pool.AddCertFile(c.CAFile); err != nil {
				return nil, err
			}
		}
		opts = append(opts, WithTLSConfig(pool.ClientTLSConfig(c.Insecure)))
	}
	return NewHTTPClient(c.Server, c.APIKey, opts...), nil
}

// Manager manages saved connection profiles.
type Manager struct {
	cfg  *config.CLIConfig
	path string
}

// NewManager creates a manager over cfg, persisted at path.
func NewManager(cfg *config.CLIConfig, path string) *Manager {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Manager{cfg: cfg, path: path}
}

// Config returns the underlying CLI configuration.
func (m *Manager) Config() *config.CLIConfig {
	return m.cfg
}

// Connect saves conn as a named profile and makes it current.
func (m *Manager) Connect(conn *Connection) error {
	if conn.Name == "" {
		return fmt.Errorf("connection name required")
	}
	if conn.Server == "" {
		return fmt.Errorf("server address required")
	}

	m.cfg.Connections[conn.Name] = config.ConnectionConfig{
		Server:   conn.Server,
		APIKey:   conn.APIKey,
		CAFile:   conn.CAFile,
		Insecure: conn.Insecure,
	}
	m.cfg.CurrentConnection = conn.Name
	return config.Save(m.cfg, m.path)
}

// Use switches to a saved profile.
func (m *Manager) Use(name string) error {
	if err := m.cfg.Use(name); err != nil {
		return err
	}
	return config.Save(m.cfg, m.path)
}

// Disconnect clears the current profile. Saved profiles are kept.
func (m *Manager) Disconnect() error {
	m.cfg.CurrentConnection = ""
	return config.Save(m.cfg, m.path)
}

// Current returns the current connection, or nil.
func (m *Manager) Current() *Connection {
	cc, ok := m.cfg.Current()
	if !ok {
		return nil
	}
	return &Connection{
		Name:     m.cfg.CurrentConnection,
		Server:   cc.Server,
		APIKey:   cc.APIKey,
		CAFile:   cc.CAFile,
		Insecure: cc.Insecure,
	}
}

// IsConnected returns true if a profile is active.
func (m *Manager) IsConnected() bool {
	return m.Current() != nil
}
