package service

import "context"

// SessionStore persists the raw session value of each user.
//
// Values are opaque bytes to the store. Implementations must be safe for
// concurrent use.
type SessionStore interface {
	// Get returns the stored value of userID. found is false when the user
	// has no stored value; that is not an error.
	Get(ctx context.Context, userID string) (raw []byte, found bool, err error)

	// Put replaces the stored value of userID.
	Put(ctx context.Context, userID string, raw []byte) error

	// Delete removes the stored value of userID. Deleting an absent value
	// succeeds.
	Delete(ctx context.Context, userID string) error
}

// UpdateFunc computes the next stored value from the current one.
// Returning a nil slice deletes the value.
type UpdateFunc func(raw []byte, found bool) ([]byte, error)

// AtomicSessionStore is a SessionStore that can read-modify-write the value
// of one user atomically. fn may be called more than once when the store
// retries after a conflicting write; it must not have side effects beyond
// its return value.
type AtomicSessionStore interface {
	SessionStore
	Update(ctx context.Context, userID string, fn UpdateFunc) error
}
