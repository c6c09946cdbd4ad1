package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrTooManyConflicts is returned by Update when every retry conflicted.
var ErrTooManyConflicts = errors.New("badger: too many transaction conflicts")

// BadgerEngine implements KV using Badger v3.
type BadgerEngine struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger

	lastGCTime atomic.Int64 // Unix milliseconds
	gcRuns     atomic.Uint64
	conflicts  atomic.Uint64

	closeOnce sync.Once
	closed    atomic.Bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewBadgerEngine opens a Badger database.
func NewBadgerEngine(cfg BadgerConfig, logger *slog.Logger) (*BadgerEngine, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultBadgerConfig(cfg.Dir)
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = defaults.GCInterval
	}
	if cfg.GCDiscardRatio <= 0 || cfg.GCDiscardRatio >= 1 {
		cfg.GCDiscardRatio = defaults.GCDiscardRatio
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaults.CacheSize
	}
	if cfg.MaxUpdateRetries <= 0 {
		cfg.MaxUpdateRetries = defaults.MaxUpdateRetries
	}

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger: logger}
	opts.BlockCacheSize = cfg.CacheSize
	opts.SyncWrites = cfg.SyncWrites
	opts.DetectConflicts = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	e := &BadgerEngine{
		db:     db,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	if !cfg.InMemory {
		e.wg.Add(1)
		go e.gcLoop()
	}

	logger.Info("badger engine started",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"cache_size", cfg.CacheSize,
		"gc_interval", cfg.GCInterval)

	return e, nil
}

// Get retrieves a value by key.
func (e *BadgerEngine) Get(ctx context.Context, key []byte) ([]byte, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}

	var value []byte
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrKeyNotFound
			}
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores a key-value pair.
func (e *BadgerEngine) Set(ctx context.Context, key, value []byte) error {
	if e.closed.Load() {
		return ErrClosed
	}
	return e.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Delete removes a key.
func (e *BadgerEngine) Delete(ctx context.Context, key []byte) error {
	if e.closed.Load() {
		return ErrClosed
	}
	return e.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// Update runs fn inside a read-write transaction. A commit that conflicts
// with a concurrent write of the same key is retried with a fresh read.
func (e *BadgerEngine) Update(ctx context.Context, key []byte, fn UpdateFunc) error {
	if e.closed.Load() {
		return ErrClosed
	}

	for attempt := 0; attempt < e.cfg.MaxUpdateRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := e.db.Update(func(txn *badger.Txn) error {
			var old []byte
			found := true
			item, err := txn.Get(key)
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
				found = false
			case err != nil:
				return err
			default:
				if old, err = item.ValueCopy(nil); err != nil {
					return err
				}
			}

			next, err := fn(old, found)
			if err != nil {
				return err
			}
			if next == nil {
				if !found {
					return nil
				}
				return txn.Delete(key)
			}
			return txn.Set(key, next)
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}

		e.conflicts.Add(1)
		e.logger.Debug("badger update conflict, retrying",
			"attempt", attempt+1)
	}
	return ErrTooManyConflicts
}

// GC runs value log garbage collection until nothing is left to rewrite.
func (e *BadgerEngine) GC(ctx context.Context) (uint64, error) {
	if e.closed.Load() {
		return 0, ErrClosed
	}
	startTime := time.Now()

	var runs uint64
	for ctx.Err() == nil {
		err := e.db.RunValueLogGC(e.cfg.GCDiscardRatio)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
				break
			}
			return runs, fmt.Errorf("gc: %w", err)
		}
		runs++
	}

	e.lastGCTime.Store(time.Now().UnixMilli())
	e.gcRuns.Add(runs)

	e.logger.Debug("gc completed",
		"files_rewritten", runs,
		"elapsed", time.Since(startTime))

	return runs, nil
}

// Stats returns storage statistics.
func (e *BadgerEngine) Stats() KVStats {
	lsm, vlog := e.db.Size()
	return KVStats{
		TotalSize:    uint64(lsm + vlog),
		LSMSize:      uint64(lsm),
		ValueLogSize: uint64(vlog),
		LastGCTime:   e.lastGCTime.Load(),
		GCRuns:       e.gcRuns.Load(),
	}
}

// Close gracefully shuts down the Badger engine.
func (e *BadgerEngine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.logger.Info("shutting down badger engine")
		e.closed.Store(true)
		close(e.stopCh)
		e.wg.Wait()

		if cerr := e.db.Close(); cerr != nil {
			err = fmt.Errorf("close db: %w", cerr)
			return
		}
		e.logger.Info("badger engine shutdown complete")
	})
	return err
}

// RegisterMetrics registers Badger size and GC metrics with registry.
func (e *BadgerEngine) RegisterMetrics(registry *prometheus.Registry) error {
	gauge := func(name, help string, fn func(KVStats) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "onelogin",
			Subsystem: "badger",
			Name:      name,
			Help:      help,
		}, func() float64 {
			if e.closed.Load() {
				return 0
			}
			return fn(e.Stats())
		})
	}

	collectors := []prometheus.Collector{
		gauge("lsm_size_bytes", "Badger LSM tree size in bytes.",
			func(s KVStats) float64 { return float64(s.LSMSize) }),
		gauge("value_log_size_bytes", "Badger value log size in bytes.",
			func(s KVStats) float64 { return float64(s.ValueLogSize) }),
		gauge("last_gc_timestamp_seconds", "Unix timestamp of the last Badger GC run.",
			func(s KVStats) float64 { return float64(s.LastGCTime) / 1000.0 }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "onelogin",
			Subsystem: "badger",
			Name:      "gc_files_rewritten_total",
			Help:      "Value log files rewritten by Badger garbage collection.",
		}, func() float64 { return float64(e.gcRuns.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "onelogin",
			Subsystem: "badger",
			Name:      "update_conflicts_total",
			Help:      "Session updates retried after a transaction conflict.",
		}, func() float64 { return float64(e.conflicts.Load()) }),
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return fmt.Errorf("register badger metrics: %w", err)
		}
	}
	return nil
}

// gcLoop runs periodic garbage collection.
func (e *BadgerEngine) gcLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if _, err := e.GC(ctx); err != nil {
				e.logger.Error("auto gc failed", "error", err)
			}
			cancel()

		case <-e.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}
