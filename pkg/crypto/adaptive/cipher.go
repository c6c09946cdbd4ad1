package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the required key length in bytes.
const KeySize = 32

// CipherType identifies the cipher algorithm.
type CipherType string

const (
	CipherAESGCM   CipherType = "aes-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

// Cipher tags written as the first byte of a sealed value.
const (
	tagAESGCM   byte = 1
	tagChaCha20 byte = 2
)

var (
	// ErrKeySize is returned for keys that are not KeySize bytes.
	ErrKeySize = fmt.Errorf("adaptive: key must be %d bytes", KeySize)

	// ErrMalformed is returned by Open for values too short to carry a
	// header or tagged with an unknown cipher.
	ErrMalformed = errors.New("adaptive: malformed sealed value")
)

// Cipher seals and opens values. It is safe for concurrent use.
type Cipher struct {
	typ   CipherType
	tag   byte
	aeads map[byte]cipher.AEAD
}

// New creates a cipher that seals with the fastest AEAD for this host.
func New(key []byte) (*Cipher, error) {
	if hasAESNI() {
		return NewWithType(key, CipherAESGCM)
	}
	return NewWithType(key, CipherChaCha20)
}

// NewWithType creates a cipher that seals with the given AEAD. Either AEAD
// can open.
func NewWithType(key []byte, cipherType CipherType) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	chacha, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	c := &Cipher{
		typ:   cipherType,
		aeads: map[byte]cipher.AEAD{tagAESGCM: gcm, tagChaCha20: chacha},
	}
	switch cipherType {
	case CipherAESGCM:
		c.tag = tagAESGCM
	case CipherChaCha20:
		c.tag = tagChaCha20
	default:
		return nil, errors.New("adaptive: unknown cipher type: " + string(cipherType))
	}
	return c, nil
}

// hasAESNI reports whether crypto/aes is hardware accelerated here.
// Go uses AES-NI on amd64 and the ARMv8 crypto extensions on arm64.
func hasAESNI() bool {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return true
	default:
		return false
	}
}

// Type returns the cipher used for sealing.
func (c *Cipher) Type() CipherType {
	return c.typ
}

// Overhead returns how many bytes Seal adds to a plaintext.
func (c *Cipher) Overhead() int {
	aead := c.aeads[c.tag]
	return 1 + aead.NonceSize() + aead.Overhead()
}

// Seal encrypts plaintext and authenticates it together with additionalData.
func (c *Cipher) Seal(plaintext, additionalData []byte) ([]byte, error) {
	aead := c.aeads[c.tag]

	out := make([]byte, 1+aead.NonceSize(), c.Overhead()+len(plaintext))
	out[0] = c.tag
	nonce := out[1:]
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(out, nonce, plaintext, additionalData), nil
}

// Open decrypts a value produced by Seal with the same additionalData.
func (c *Cipher) Open(sealed, additionalData []byte) ([]byte, error) {
	if len(sealed) < 1 {
		return nil, ErrMalformed
	}
	aead, ok := c.aeads[sealed[0]]
	if !ok || len(sealed) < 1+aead.NonceSize()+aead.Overhead() {
		return nil, ErrMalformed
	}

	nonce := sealed[1 : 1+aead.NonceSize()]
	return aead.Open(nil, nonce, sealed[1+aead.NonceSize():], additionalData)
}
