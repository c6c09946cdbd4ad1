package storage

import (
	"context"
	"errors"

	"github.com/yndnr/onelogin/internal/core/service"
)

// DefaultKeyPrefix prefixes the key of each user's session value.
const DefaultKeyPrefix = "session_tokens/"

// KVSessionStore stores session values in a KV engine, one key per user.
type KVSessionStore struct {
	kv     KV
	prefix string
}

var _ service.AtomicSessionStore = (*KVSessionStore)(nil)

// NewKVSessionStore creates a session store over kv. An empty prefix uses
// DefaultKeyPrefix.
func NewKVSessionStore(kv KV, prefix string) *KVSessionStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &KVSessionStore{kv: kv, prefix: prefix}
}

// Key returns the KV key holding the sessions of userID.
func (s *KVSessionStore) Key(userID string) []byte {
	return []byte(s.prefix + userID)
}

// Get implements service.SessionStore.
func (s *KVSessionStore) Get(ctx context.Context, userID string) ([]byte, bool, error) {
	raw, err := s.kv.Get(ctx, s.Key(userID))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

// Put implements service.SessionStore.
func (s *KVSessionStore) Put(ctx context.Context, userID string, raw []byte) error {
	return s.kv.Set(ctx, s.Key(userID), raw)
}

// Delete implements service.SessionStore.
func (s *KVSessionStore) Delete(ctx context.Context, userID string) error {
	return s.kv.Delete(ctx, s.Key(userID))
}

// Update implements service.AtomicSessionStore.
func (s *KVSessionStore) Update(ctx context.Context, userID string, fn service.UpdateFunc) error {
	return s.kv.Update(ctx, s.Key(userID), UpdateFunc(fn))
}

// Close closes the underlying engine.
func (s *KVSessionStore) Close() error {
	return s.kv.Close()
}
