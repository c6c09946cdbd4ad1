// Package token derives session verifiers from raw session tokens.
package token

import (
	"crypto"
	"crypto/hmac"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"

	_ "golang.org/x/crypto/blake2b"
	_ "golang.org/x/crypto/sha3"
)

// Algorithm names a verifier digest.
type Algorithm string

// Supported algorithms.
const (
	SHA256     Algorithm = "sha256"
	SHA512_256 Algorithm = "sha512/256"
	SHA3_256   Algorithm = "sha3-256"
	BLAKE2b256 Algorithm = "blake2b-256"
)

// DefaultAlgorithm is used when no algorithm is configured.
const DefaultAlgorithm = SHA256

// ErrUnsupportedAlgorithm is returned when the requested digest is unknown
// or not linked into the binary.
var ErrUnsupportedAlgorithm = errors.New("token: unsupported hash algorithm")

var algorithms = map[Algorithm]crypto.Hash{
	SHA256:     crypto.SHA256,
	SHA512_256: crypto.SHA512_256,
	SHA3_256:   crypto.SHA3_256,
	BLAKE2b256: crypto.BLAKE2b_256,
}

// Algorithms returns the names of all supported algorithms.
func Algorithms() []Algorithm {
	return []Algorithm{SHA256, SHA512_256, SHA3_256, BLAKE2b256}
}

// Hasher derives verifiers with one fixed algorithm.
//
// A Hasher is immutable and safe for concurrent use.
type Hasher struct {
	alg  Algorithm
	hash crypto.Hash
	key  []byte
}

// HasherOption configures a Hasher.
type HasherOption func(*Hasher)

// WithKey keys the digest as HMAC-<alg>. An empty key leaves the plain digest.
func WithKey(key []byte) HasherOption {
	return func(h *Hasher) {
		if len(key) > 0 {
			h.key = append([]byte(nil), key...)
		}
	}
}

// NewHasher returns a Hasher for alg. An empty alg selects DefaultAlgorithm.
func NewHasher(alg Algorithm, opts ...HasherOption) (*Hasher, error) {
	if alg == "" {
		alg = DefaultAlgorithm
	}
	alg = Algorithm(strings.ToLower(strings.TrimSpace(string(alg))))

	ch, ok := algorithms[alg]
	if !ok || !ch.Available() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}

	h := &Hasher{alg: alg, hash: ch}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Algorithm returns the configured algorithm.
func (h *Hasher) Algorithm() Algorithm {
	return h.alg
}

// Keyed reports whether verifiers are HMACs.
func (h *Hasher) Keyed() bool {
	return len(h.key) > 0
}

// Hash derives the verifier of token.
func (h *Hasher) Hash(token string) string {
	var d hash.Hash
	if len(h.key) > 0 {
		d = hmac.New(h.hash.New, h.key)
	} else {
		d = h.hash.New()
	}
	d.Write([]byte(token))
	return hex.EncodeToString(d.Sum(nil))
}

// Verify reports whether token derives verifier.
//
// Uses constant-time comparison to prevent timing attacks.
func (h *Hasher) Verify(token, verifier string) bool {
	return subtle.ConstantTimeCompare([]byte(h.Hash(token)), []byte(verifier)) == 1
}

var defaultHasher = &Hasher{alg: SHA256, hash: crypto.SHA256}

// Hash computes the SHA-256 verifier of a token.
func Hash(token string) string {
	return defaultHasher.Hash(token)
}

// Verify verifies a token against a SHA-256 verifier.
func Verify(token, verifier string) bool {
	return defaultHasher.Verify(token, verifier)
}
