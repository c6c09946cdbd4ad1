package memory

import (
	"context"
	"sync/atomic"

	"github.com/yndnr/onelogin/internal/storage"
	"github.com/yndnr/onelogin/pkg/cmap"
)

// Store is an in-memory storage.KV.
type Store struct {
	items  *cmap.Map[[]byte]
	closed atomic.Bool
}

var _ storage.KV = (*Store)(nil)

// Option configures the Store.
type Option func(*options)

type options struct {
	shards int
}

// WithShardCount sets the number of map shards. It must be a power of 2.
func WithShardCount(n int) Option {
	return func(o *options) {
		o.shards = n
	}
}

// New creates a new in-memory store.
func New(opts ...Option) *Store {
	o := options{shards: cmap.DefaultShardCount}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store{items: cmap.NewWithShards[[]byte](o.shards)}
}

// Get retrieves a copy of the value of key.
func (s *Store) Get(_ context.Context, key []byte) ([]byte, error) {
	if s.closed.Load() {
		return nil, storage.ErrClosed
	}
	v, ok := s.items.Get(string(key))
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	return clone(v), nil
}

// Set stores a copy of value.
func (s *Store) Set(_ context.Context, key, value []byte) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}
	s.items.Set(string(key), clone(value))
	return nil
}

// Delete removes key.
func (s *Store) Delete(_ context.Context, key []byte) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}
	s.items.Delete(string(key))
	return nil
}

// Update runs fn under the lock of the shard holding key.
func (s *Store) Update(ctx context.Context, key []byte, fn storage.UpdateFunc) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.items.Compute(string(key), func(old []byte, exists bool) ([]byte, bool, error) {
		next, err := fn(clone(old), exists)
		if err != nil {
			return nil, false, err
		}
		if next == nil {
			return nil, false, nil
		}
		return clone(next), true, nil
	})
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	return s.items.Count()
}

// Close drops all values. Later calls fail with storage.ErrClosed.
func (s *Store) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.items.Clear()
	}
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append(make([]byte, 0, len(b)), b...)
}
