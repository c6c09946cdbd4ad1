// Package redisstore keeps session values in Redis, one string key per user.
//
// Atomic updates use optimistic locking: the key is WATCHed, read, and
// rewritten in a MULTI/EXEC block that Redis aborts if another client wrote
// the key in between. Aborted transactions are retried.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yndnr/onelogin/internal/core/service"
)

// DefaultKeyPrefix prefixes the key of each user's session value.
const DefaultKeyPrefix = "onelogin:session_tokens:"

const maxTxRetries = 16

// ErrTooManyConflicts is returned by Update when every retry was aborted.
var ErrTooManyConflicts = errors.New("redisstore: too many transaction conflicts")

// Config configures the Redis connection.
type Config struct {
	// URL is a redis:// or rediss:// connection URL.
	URL string
	// KeyPrefix defaults to DefaultKeyPrefix.
	KeyPrefix string
	// ConnectTimeout bounds the initial ping. Default: 5s.
	ConnectTimeout time.Duration
}

// Store is a service.AtomicSessionStore backed by Redis.
type Store struct {
	client redis.UniversalClient
	prefix string
}

var _ service.AtomicSessionStore = (*Store)(nil)

// Connect parses cfg.URL, opens a client and verifies it with a ping.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, errors.New("redisstore: url is required")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redisstore: parse url: %w", err)
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}
	return New(client, cfg.KeyPrefix), nil
}

// New wraps an existing client.
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(userID string) string {
	return s.prefix + userID
}

// Get implements service.SessionStore.
func (s *Store) Get(ctx context.Context, userID string) ([]byte, bool, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

// Put implements service.SessionStore.
func (s *Store) Put(ctx context.Context, userID string, raw []byte) error {
	return s.client.Set(ctx, s.key(userID), raw, 0).Err()
}

// Delete implements service.SessionStore.
func (s *Store) Delete(ctx context.Context, userID string) error {
	return s.client.Del(ctx, s.key(userID)).Err()
}

// Update implements service.AtomicSessionStore.
func (s *Store) Update(ctx context.Context, userID string, fn service.UpdateFunc) error {
	key := s.key(userID)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		found := true
		if errors.Is(err, redis.Nil) {
			found, raw = false, nil
		} else if err != nil {
			return err
		}

		next, err := fn(raw, found)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, key)
			} else {
				pipe.Set(ctx, key, next, 0)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return ErrTooManyConflicts
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}
