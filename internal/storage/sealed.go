package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/yndnr/onelogin/internal/core/service"
	"github.com/yndnr/onelogin/pkg/crypto/adaptive"
)

// Sealed encrypts every session value of the wrapped store, whatever its
// backend. The user ID is bound as additional data, so a sealed value
// copied to another user no longer opens.
//
// A stored value that does not open (written in plaintext before sealing
// was enabled, sealed under another key, or tampered with) is reported as
// found with no content. The registry reads that as a malformed value, so
// the next write replaces it.
type Sealed struct {
	inner  service.AtomicSessionStore
	cipher *adaptive.Cipher
}

var _ service.AtomicSessionStore = (*Sealed)(nil)

// NewSealed wraps inner with c.
func NewSealed(inner service.AtomicSessionStore, c *adaptive.Cipher) *Sealed {
	return &Sealed{inner: inner, cipher: c}
}

// Get returns the opened value of userID.
func (s *Sealed) Get(ctx context.Context, userID string) ([]byte, bool, error) {
	sealed, found, err := s.inner.Get(ctx, userID)
	if err != nil || !found {
		return nil, found, err
	}
	return s.open(sealed, userID), true, nil
}

// Put seals raw and stores it.
func (s *Sealed) Put(ctx context.Context, userID string, raw []byte) error {
	sealed, err := s.cipher.Seal(raw, []byte(userID))
	if err != nil {
		return fmt.Errorf("seal value: %w", err)
	}
	return s.inner.Put(ctx, userID, sealed)
}

// Delete removes the value of userID.
func (s *Sealed) Delete(ctx context.Context, userID string) error {
	return s.inner.Delete(ctx, userID)
}

// Update opens the current value for fn and seals its result.
func (s *Sealed) Update(ctx context.Context, userID string, fn service.UpdateFunc) error {
	return s.inner.Update(ctx, userID, func(old []byte, found bool) ([]byte, error) {
		var plain []byte
		if found {
			plain = s.open(old, userID)
		}

		next, err := fn(plain, found)
		if err != nil || next == nil {
			return nil, err
		}
		sealed, err := s.cipher.Seal(next, []byte(userID))
		if err != nil {
			return nil, fmt.Errorf("seal value: %w", err)
		}
		return sealed, nil
	})
}

// Ping checks the wrapped store when it supports health checks.
func (s *Sealed) Ping(ctx context.Context) error {
	if p, ok := s.inner.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close closes the wrapped store when it holds resources.
func (s *Sealed) Close() error {
	if c, ok := s.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// open returns the plaintext of sealed, or an empty value when it does not
// open.
func (s *Sealed) open(sealed []byte, userID string) []byte {
	plain, err := s.cipher.Open(sealed, []byte(userID))
	if err != nil {
		return []byte{}
	}
	return plain
}
