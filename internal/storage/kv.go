package storage

import (
	"context"
	"errors"
	"time"
)

// Common errors
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrClosed      = errors.New("kv engine closed")
)

// UpdateFunc computes the next value of a key from its current one.
// Returning a nil slice deletes the key.
type UpdateFunc func(old []byte, found bool) ([]byte, error)

// KV is an embedded key-value engine.
//
// Implementations must be safe for concurrent use. Values passed in and
// returned are owned by the caller.
type KV interface {
	// Get retrieves a value by key.
	// Returns ErrKeyNotFound if the key doesn't exist.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Set stores a key-value pair.
	Set(ctx context.Context, key, value []byte) error

	// Delete removes a key. Deleting a missing key succeeds.
	Delete(ctx context.Context, key []byte) error

	// Update runs a read-modify-write of one key atomically with respect to
	// every other write of that key. fn may run more than once.
	Update(ctx context.Context, key []byte, fn UpdateFunc) error

	// Close releases the engine.
	Close() error
}

// KVStats contains storage engine statistics.
type KVStats struct {
	// TotalSize is the total disk usage in bytes.
	TotalSize uint64

	// LSMSize is the LSM tree size.
	LSMSize uint64

	// ValueLogSize is the value log size.
	ValueLogSize uint64

	// LastGCTime is the last GC run timestamp (Unix milliseconds).
	LastGCTime int64

	// GCRuns is the number of value log files rewritten by GC.
	GCRuns uint64
}

// BadgerConfig contains Badger tuning parameters.
type BadgerConfig struct {
	// Dir is the storage directory. Required unless InMemory is set.
	Dir string

	// InMemory keeps all data in memory. Used by tests.
	InMemory bool

	// SyncWrites fsyncs after every write.
	// Default: false
	SyncWrites bool

	// GCInterval is the interval between automatic value log GC runs.
	// Default: 10m
	GCInterval time.Duration

	// GCDiscardRatio is the fraction of stale data in a value log file that
	// makes GC rewrite it.
	// Default: 0.5
	GCDiscardRatio float64

	// CacheSize is the block cache size in bytes.
	// Default: 64MB
	CacheSize int64

	// MaxUpdateRetries bounds Update retries after a transaction conflict.
	// Default: 16
	MaxUpdateRetries int
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig(dir string) BadgerConfig {
	return BadgerConfig{
		Dir:              dir,
		GCInterval:       10 * time.Minute,
		GCDiscardRatio:   0.5,
		CacheSize:        64 << 20, // 64MB
		MaxUpdateRetries: 16,
	}
}
