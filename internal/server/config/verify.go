package config

import (
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/yndnr/onelogin/internal/core/domain"
	"github.com/yndnr/onelogin/internal/telemetry/logger"
	"github.com/yndnr/onelogin/pkg/crypto/adaptive"
	"github.com/yndnr/onelogin/pkg/token"
)

// Verify validates the configuration. Failures wrap domain.ErrConfig.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyRegistry(&cfg.Registry); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func invalid(format string, args ...any) error {
	return domain.ErrConfig.WithDetails(fmt.Sprintf(format, args...))
}

func verifyServer(cfg *ServerSection) error {
	if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
		return invalid("server.http.addr %q: %v", cfg.HTTP.Addr, err)
	}

	cert, key := cfg.HTTP.TLSCertFile, cfg.HTTP.TLSKeyFile
	if (cert == "") != (key == "") {
		return invalid("server.http.tls_cert_file and tls_key_file must be set together")
	}
	for _, path := range []string{cert, key} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return invalid("tls file %s: %v", path, err)
		}
	}

	if cfg.ShutdownTimeout <= 0 {
		return invalid("server.shutdown_timeout must be positive")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Driver {
	case DriverMemory:
	case DriverBadger:
		if cfg.Badger.Dir == "" {
			return invalid("storage.badger.dir is required")
		}
		if err := os.MkdirAll(cfg.Badger.Dir, 0o750); err != nil {
			return invalid("cannot create badger dir: %v", err)
		}
	case DriverRedis:
		if cfg.Redis.URL == "" {
			return invalid("storage.redis.url is required")
		}
	case DriverPostgres:
		if cfg.Postgres.DSN == "" {
			return invalid("storage.postgres.dsn is required")
		}
	default:
		return invalid("storage.driver %q is not one of memory, badger, redis, postgres", cfg.Driver)
	}

	if cfg.EncryptionKey != "" {
		if _, err := EncryptionKeyBytes(cfg.EncryptionKey); err != nil {
			return err
		}
	}
	return nil
}

// EncryptionKeyBytes decodes a hex storage encryption key.
func EncryptionKeyBytes(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, invalid("storage.encryption_key must be hex: %v", err)
	}
	if len(key) != adaptive.KeySize {
		return nil, invalid("storage.encryption_key must be %d bytes, got %d", adaptive.KeySize, len(key))
	}
	return key, nil
}

func verifyRegistry(cfg *RegistrySection) error {
	if _, err := token.NewHasher(token.Algorithm(cfg.HashAlgorithm)); err != nil {
		return invalid("registry.hash_algorithm: %v", err)
	}
	if cfg.DefaultTTL <= 0 {
		return invalid("registry.default_ttl must be positive")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		return invalid("log.level: %v", err)
	}
	if _, err := logger.ParseFormat(cfg.Format); err != nil {
		return invalid("log.format: %v", err)
	}
	return nil
}
