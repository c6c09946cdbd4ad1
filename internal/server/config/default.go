package config

import (
	"reflect"
	"time"
)

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:7080"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 15 * time.Second

	DefaultDriver           = DriverMemory
	DefaultBadgerDir        = "/var/lib/onelogin/data"
	DefaultBadgerGCInterval = 10 * time.Minute
	DefaultRedisURL         = "redis://127.0.0.1:6379/0"
	DefaultRedisKeyPrefix   = "onelogin:session_tokens:"
	DefaultPostgresTable    = "user_session_tokens"

	DefaultHashAlgorithm = "sha256"
	DefaultSessionTTL    = 14 * 24 * time.Hour

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:         DefaultHTTPAddr,
				ReadTimeout:  DefaultReadTimeout,
				WriteTimeout: DefaultWriteTimeout,
			},
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Storage: StorageSection{
			Driver: DefaultDriver,
			Badger: BadgerConfig{
				Dir:        DefaultBadgerDir,
				GCInterval: DefaultBadgerGCInterval,
			},
			Redis: RedisConfig{
				URL:       DefaultRedisURL,
				KeyPrefix: DefaultRedisKeyPrefix,
			},
			Postgres: PostgresConfig{
				Table: DefaultPostgresTable,
			},
		},
		Registry: RegistrySection{
			HashAlgorithm: DefaultHashAlgorithm,
			Atomic:        true,
			DefaultTTL:    DefaultSessionTTL,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// DefaultMap returns Default as a nested map keyed by koanf tags, the form
// confloader takes its defaults in.
func DefaultMap() map[string]any {
	return toMap(reflect.ValueOf(*Default()))
}

func toMap(v reflect.Value) map[string]any {
	out := make(map[string]any, v.NumField())
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("koanf")
		if tag == "" {
			continue
		}
		f := v.Field(i)
		if f.Kind() == reflect.Struct {
			out[tag] = toMap(f)
			continue
		}
		out[tag] = f.Interface()
	}
	return out
}
