// Package cmap provides a concurrent map keyed by string.
//
// Keys are spread over a power-of-two number of shards by their murmur3
// hash. Each shard has its own RWMutex, so operations on keys in different
// shards never contend.
//
// Usage:
//
//	m := cmap.New[[]byte]()
//	m.Set("session_tokens/42", raw)
//	val, ok := m.Get("session_tokens/42")
//
// Compute runs a read-modify-write of one key under its shard lock, which
// the in-memory session store uses for atomic updates.
package cmap
