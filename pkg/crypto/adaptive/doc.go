// Package adaptive seals values at rest with an AEAD chosen for the host.
//
// Sealing uses AES-256-GCM where the CPU accelerates AES and
// ChaCha20-Poly1305 elsewhere. Every sealed value starts with a one-byte
// cipher tag followed by the nonce, so a value sealed on one host opens on
// any other holding the same 32-byte key.
//
// Usage:
//
//	c, err := adaptive.New(key)
//	sealed, err := c.Seal(plaintext, aad)
//	plaintext, err := c.Open(sealed, aad)
package adaptive
