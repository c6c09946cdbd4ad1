// Package main provides the entry point for onelogin-server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/onelogin/internal/core/service"
	"github.com/yndnr/onelogin/internal/infra/buildinfo"
	"github.com/yndnr/onelogin/internal/infra/confloader"
	"github.com/yndnr/onelogin/internal/infra/shutdown"
	"github.com/yndnr/onelogin/internal/infra/tlsroots"
	"github.com/yndnr/onelogin/internal/server/config"
	"github.com/yndnr/onelogin/internal/server/httpserver"
	"github.com/yndnr/onelogin/internal/storage"
	"github.com/yndnr/onelogin/internal/storage/memory"
	"github.com/yndnr/onelogin/internal/storage/pgstore"
	"github.com/yndnr/onelogin/internal/storage/redisstore"
	"github.com/yndnr/onelogin/internal/telemetry/logger"
	"github.com/yndnr/onelogin/internal/telemetry/metric"
	"github.com/yndnr/onelogin/pkg/crypto/adaptive"
	"github.com/yndnr/onelogin/pkg/token"
)

func main() {
	app := &cli.App{
		Name:    "onelogin-server",
		Usage:   "single-active-session registry",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				EnvVars: []string{"ONELOGIN_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "watch-config",
				Usage: "Reload the log level when the configuration file changes",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  "check",
				Usage: "Validate the configuration and exit",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	configFile := c.String("config")

	loader, cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg, os.Stdout)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slogLogger := log.Slog()

	if c.Bool("check") {
		log.Info("configuration is valid", "config", configFile)
		return nil
	}

	info := buildinfo.Get()
	log.Info("starting onelogin-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", configFile)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	metrics := metric.NewRegistry()

	ctx := c.Context
	store, err := initStorage(ctx, cfg, slogLogger, metrics)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	registry, err := initRegistry(cfg, store, slogLogger, metrics)
	if err != nil {
		store.Close()
		return fmt.Errorf("init registry: %w", err)
	}

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Sessions:    registry,
		Ready:       readyFunc(store),
		Metrics:     metrics,
		Logger:      slogLogger,
		APIKey:      cfg.Server.HTTP.APIKey,
		EnableAudit: true,
	})
	if cfg.Server.HTTP.APIKey == "" {
		log.Warn("server.http.api_key is empty, the session API is unauthenticated")
	}

	srvOpts := []httpserver.Option{
		httpserver.WithLogger(slogLogger),
		httpserver.WithTimeouts(cfg.Server.HTTP.ReadTimeout, cfg.Server.HTTP.WriteTimeout),
	}

	// Shutdown hooks run in reverse order of registration.
	shutdownHandler := shutdown.NewHandler(cfg.Server.ShutdownTimeout, slogLogger)
	shutdownHandler.OnShutdown("storage", func(context.Context) error {
		log.Info("closing session store")
		return store.Close()
	})

	if cfg.Server.HTTP.TLSEnabled() {
		reloader, err := tlsroots.NewReloader(cfg.Server.HTTP.TLSCertFile, cfg.Server.HTTP.TLSKeyFile,
			tlsroots.WithLogger(slogLogger))
		if err != nil {
			store.Close()
			return fmt.Errorf("load tls certificate: %w", err)
		}
		reloader.StartAsync()
		shutdownHandler.OnShutdown("tls-reloader", func(context.Context) error {
			reloader.Stop()
			return nil
		})
		srvOpts = append(srvOpts, httpserver.WithTLSConfig(reloader.ServerTLSConfig()))
	}

	if configFile != "" && c.Bool("watch-config") {
		watcher, err := watchConfig(loader, configFile, slogLogger)
		if err != nil {
			log.Warn("configuration watcher disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config-watcher", func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	httpServer := httpserver.New(cfg.Server.HTTP.Addr, router, srvOpts...)
	if err := httpServer.Listen(); err != nil {
		store.Close()
		return fmt.Errorf("listen on %s: %w", cfg.Server.HTTP.Addr, err)
	}
	shutdownHandler.OnShutdown("http", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return httpServer.Shutdown(ctx)
	})

	serveErr := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(); err != nil {
			log.Error("HTTP server error", "error", err)
			serveErr <- err
			shutdownHandler.Trigger()
		}
	}()

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(context.Background()); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	select {
	case err := <-serveErr:
		return err
	default:
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig loads defaults, the optional file and the environment, then
// validates the result.
func loadConfig(configFile string) (*confloader.Loader, *config.ServerConfig, error) {
	opts := []confloader.Option{confloader.WithDefaults(config.DefaultMap())}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	loader := confloader.NewLoader(opts...)

	cfg := &config.ServerConfig{}
	if err := loader.Load(cfg); err != nil {
		return nil, nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return loader, cfg, nil
}

// initLogger initializes the structured logger and sets it as default.
func initLogger(cfg *config.ServerConfig, out io.Writer) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: out,
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return log, nil
}

// sessionBackend is a session store that holds resources.
type sessionBackend interface {
	service.AtomicSessionStore
	io.Closer
}

// initStorage opens the configured session store.
func initStorage(ctx context.Context, cfg *config.ServerConfig, log *slog.Logger, metrics *metric.Registry) (sessionBackend, error) {
	sc := cfg.Storage

	var store sessionBackend
	switch sc.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory session store, sessions are lost on restart")
		store = storage.NewKVSessionStore(memory.New(), storage.DefaultKeyPrefix)

	case config.DriverBadger:
		bc := storage.DefaultBadgerConfig(sc.Badger.Dir)
		bc.SyncWrites = sc.Badger.SyncWrites
		if sc.Badger.GCInterval > 0 {
			bc.GCInterval = sc.Badger.GCInterval
		}
		engine, err := storage.NewBadgerEngine(bc, log)
		if err != nil {
			return nil, err
		}
		if err := engine.RegisterMetrics(metrics.Prometheus()); err != nil {
			log.Warn("badger metrics not registered", "error", err)
		}
		store = storage.NewKVSessionStore(engine, storage.DefaultKeyPrefix)

	case config.DriverRedis:
		rs, err := redisstore.Connect(ctx, redisstore.Config{
			URL:       sc.Redis.URL,
			KeyPrefix: sc.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		store = rs

	case config.DriverPostgres:
		ps, err := pgstore.Connect(ctx, pgstore.Config{
			DSN:      sc.Postgres.DSN,
			Table:    sc.Postgres.Table,
			MaxConns: sc.Postgres.MaxConns,
		})
		if err != nil {
			return nil, err
		}
		store = ps

	default:
		return nil, fmt.Errorf("unknown storage driver %q", sc.Driver)
	}

	if sc.EncryptionKey != "" {
		key, err := config.EncryptionKeyBytes(sc.EncryptionKey)
		if err != nil {
			store.Close()
			return nil, err
		}
		c, err := adaptive.New(key)
		if err != nil {
			store.Close()
			return nil, err
		}
		log.Info("session values are sealed at rest", "cipher", string(c.Type()))
		store = storage.NewSealed(store, c)
	}

	log.Info("session store ready", "driver", sc.Driver)
	return store, nil
}

// initRegistry builds the session registry over store.
func initRegistry(cfg *config.ServerConfig, store service.SessionStore, log *slog.Logger, metrics *metric.Registry) (*service.Registry, error) {
	rc := cfg.Registry

	var hashOpts []token.HasherOption
	if rc.HMACKey != "" {
		hashOpts = append(hashOpts, token.WithKey([]byte(rc.HMACKey)))
	}
	hasher, err := token.NewHasher(token.Algorithm(rc.HashAlgorithm), hashOpts...)
	if err != nil {
		return nil, err
	}

	registry := service.NewRegistry(store, hasher,
		service.WithLogger(log),
		service.WithMetrics(metrics),
		service.WithAtomic(rc.Atomic),
		service.WithDefaultTTL(rc.DefaultTTL),
	)

	log.Info("session registry initialized",
		"hash_algorithm", hasher.Algorithm(),
		"keyed", hasher.Keyed(),
		"atomic", registry.Atomic(),
		"default_ttl", rc.DefaultTTL.String())
	return registry, nil
}

// readyFunc reports store reachability for /ready.
func readyFunc(store any) func(context.Context) error {
	p, ok := store.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	return p.Ping
}

// watchConfig reloads the configuration when the file changes. Only the
// log level is applied live; other changes need a restart.
func watchConfig(loader *confloader.Loader, path string, log *slog.Logger) (*confloader.Watcher, error) {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(path); err != nil {
		watcher.Stop()
		return nil, err
	}

	watcher.OnChange(func(string) {
		next := &config.ServerConfig{}
		if err := reloadConfig(loader, next); err != nil {
			log.Error("configuration reload rejected", "error", err)
			return
		}
		if err := logger.SetLevel(next.Log.Level); err != nil {
			log.Warn("log level not applied", "error", err)
		}
		log.Info("configuration reloaded",
			"log_level", next.Log.Level,
			"note", "settings other than log.level apply after restart")
	})
	watcher.StartAsync()
	return watcher, nil
}

func reloadConfig(loader *confloader.Loader, next *config.ServerConfig) error {
	if err := loader.Reload(next); err != nil {
		return err
	}
	if err := config.Verify(next); err != nil {
		return errors.Join(errors.New("invalid configuration"), err)
	}
	return nil
}
