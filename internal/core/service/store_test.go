package service

import (
	"context"
	"errors"
	"sync"
)

// mockStore is an in-memory SessionStore for testing.
type mockStore struct {
	mu      sync.Mutex
	values  map[string][]byte
	puts    int
	deletes int
}

func newMockStore() *mockStore {
	return &mockStore{values: make(map[string][]byte)}
}

func (m *mockStore) Get(ctx context.Context, userID string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[userID]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *mockStore) Put(ctx context.Context, userID string, raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.values[userID] = append([]byte(nil), raw...)
	return nil
}

func (m *mockStore) Delete(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	delete(m.values, userID)
	return nil
}

func (m *mockStore) seed(userID, raw string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[userID] = []byte(raw)
}

func (m *mockStore) raw(userID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[userID]
	return string(v), ok
}

// atomicMockStore adds a locked read-modify-write to mockStore.
type atomicMockStore struct {
	*mockStore
	updates int
}

func newAtomicMockStore() *atomicMockStore {
	return &atomicMockStore{mockStore: newMockStore()}
}

func (m *atomicMockStore) Update(ctx context.Context, userID string, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++

	cur, found := m.values[userID]
	next, err := fn(append([]byte(nil), cur...), found)
	if err != nil {
		return err
	}
	if next == nil {
		m.deletes++
		delete(m.values, userID)
		return nil
	}
	m.puts++
	m.values[userID] = next
	return nil
}

var errBackend = errors.New("backend unavailable")

// failingStore fails the operations it is told to.
type failingStore struct {
	*mockStore
	failGet, failPut, failDelete bool
}

func (f *failingStore) Get(ctx context.Context, userID string) ([]byte, bool, error) {
	if f.failGet {
		return nil, false, errBackend
	}
	return f.mockStore.Get(ctx, userID)
}

func (f *failingStore) Put(ctx context.Context, userID string, raw []byte) error {
	if f.failPut {
		return errBackend
	}
	return f.mockStore.Put(ctx, userID, raw)
}

func (f *failingStore) Delete(ctx context.Context, userID string) error {
	if f.failDelete {
		return errBackend
	}
	return f.mockStore.Delete(ctx, userID)
}

// retryingStore runs fn attempts times per Update and commits only the
// last result, as a store does after write conflicts.
type retryingStore struct {
	*atomicMockStore
	attempts int
}

func (r *retryingStore) Update(ctx context.Context, userID string, fn UpdateFunc) error {
	for i := 1; i < r.attempts; i++ {
		r.mu.Lock()
		cur, found := r.values[userID]
		r.mu.Unlock()
		if _, err := fn(append([]byte(nil), cur...), found); err != nil {
			return err
		}
	}
	return r.atomicMockStore.Update(ctx, userID, fn)
}
