// Package storage provides the session stores of onelogin.
//
// A session store keeps one opaque value per user: the JSON session set the
// registry reads and replaces as a whole. Stores come in two layers:
//
//   - KV engines: Badger (embedded, durable) and memory (sharded map), both
//     implementing KV with an atomic Update.
//   - KVSessionStore: binds a KV to the registry's SessionStore and
//     AtomicSessionStore interfaces under the key session_tokens/<user_id>.
//
// Redis and PostgreSQL stores live in the redisstore and pgstore
// subpackages. Sealed wraps any of them with authenticated encryption so
// values are unreadable at rest.
package storage
