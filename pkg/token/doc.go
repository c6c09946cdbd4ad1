// Package token derives session verifiers from raw session tokens.
//
// A verifier is the lowercase hex digest of the raw token. Only verifiers
// are ever stored; the raw token cannot be recovered from storage.
//
// Algorithm selection:
//
//   - sha256 (default, compatible with verifiers written by other
//     session managers that use a plain SHA-256 hex digest)
//   - sha512/256
//   - sha3-256 (golang.org/x/crypto/sha3)
//   - blake2b-256 (golang.org/x/crypto/blake2b)
//
// The algorithm is fixed when a Hasher is built. An unknown or unlinked
// algorithm is rejected with ErrUnsupportedAlgorithm; there is no fallback
// to a weaker digest, since switching algorithms would orphan every verifier
// already in storage.
//
// An optional key turns the digest into an HMAC, so a leaked store cannot
// be matched against guessed tokens without the key.
package token
