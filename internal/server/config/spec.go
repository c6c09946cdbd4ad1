package config

import "time"

// ServerConfig is the root configuration for onelogin-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server" yaml:"server"`
	Storage  StorageSection  `koanf:"storage" yaml:"storage"`
	Registry RegistrySection `koanf:"registry" yaml:"registry"`
	Log      LogSection      `koanf:"log" yaml:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP            HTTPConfig    `koanf:"http" yaml:"http"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`

	// APIKey is the bearer key required on /v1 routes. Empty disables auth.
	APIKey string `koanf:"api_key" yaml:"api_key"`

	TLSCertFile string `koanf:"tls_cert_file" yaml:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file" yaml:"tls_key_file"`

	ReadTimeout  time.Duration `koanf:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout" yaml:"write_timeout"`
}

// TLSEnabled reports whether a certificate pair is configured.
func (c HTTPConfig) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverBadger   = "badger"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// StorageSection selects and configures the session store.
type StorageSection struct {
	Driver string `koanf:"driver" yaml:"driver"`

	// EncryptionKey is a hex-encoded 32-byte key. When set, stored values
	// are sealed with authenticated encryption.
	EncryptionKey string `koanf:"encryption_key" yaml:"encryption_key"`

	Badger   BadgerConfig   `koanf:"badger" yaml:"badger"`
	Redis    RedisConfig    `koanf:"redis" yaml:"redis"`
	Postgres PostgresConfig `koanf:"postgres" yaml:"postgres"`
}

// BadgerConfig configures the embedded Badger store.
type BadgerConfig struct {
	Dir        string        `koanf:"dir" yaml:"dir"`
	SyncWrites bool          `koanf:"sync_writes" yaml:"sync_writes"`
	GCInterval time.Duration `koanf:"gc_interval" yaml:"gc_interval"`
}

// RedisConfig configures the Redis store.
type RedisConfig struct {
	URL       string `koanf:"url" yaml:"url"`
	KeyPrefix string `koanf:"key_prefix" yaml:"key_prefix"`
}

// PostgresConfig configures the PostgreSQL store.
type PostgresConfig struct {
	DSN      string `koanf:"dsn" yaml:"dsn"`
	Table    string `koanf:"table" yaml:"table"`
	MaxConns int32  `koanf:"max_conns" yaml:"max_conns"`
}

// RegistrySection configures the session registry.
type RegistrySection struct {
	// HashAlgorithm derives verifiers from raw tokens. It must match the
	// algorithm used by every writer of the same store.
	HashAlgorithm string `koanf:"hash_algorithm" yaml:"hash_algorithm"`

	// HMACKey keys the verifier digest when set.
	HMACKey string `koanf:"hmac_key" yaml:"hmac_key"`

	// Atomic enables read-modify-write under the store's concurrency
	// control when the driver supports it.
	Atomic bool `koanf:"atomic" yaml:"atomic"`

	// DefaultTTL is the lifetime of sessions established without an
	// explicit expiration.
	DefaultTTL time.Duration `koanf:"default_ttl" yaml:"default_ttl"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}
