// Package crypto seals provider credentials at rest.
package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var (
	// ErrEmptyKey is returned when no key material is configured.
	ErrEmptyKey = errors.New("crypto: secret key is empty")
	// ErrCiphertextTooShort is returned for sealed values shorter than a nonce.
	ErrCiphertextTooShort = errors.New("crypto: ciphertext too short")
	// ErrDecrypt is returned when authentication of a sealed value fails.
	ErrDecrypt = errors.New("crypto: decryption failed")
)

const hkdfInfo = "storepulse credential sealing v1"

// Cipher seals and opens values with XChaCha20-Poly1305.
// The sealed layout is nonce || ciphertext+tag.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives a 256-bit key from secretKey with HKDF-SHA256.
func NewCipher(secretKey string) (*Cipher, error) {
	if secretKey == "" {
		return nil, ErrEmptyKey
	}

	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(secretKey), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("crypto: derive key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: init aead: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Seal encrypts plaintext. additionalData binds the ciphertext to its owner
// (e.g. the merchant id and column) and must be passed again to Open.
func (c *Cipher) Seal(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

// Open decrypts a value produced by Seal.
func (c *Cipher) Open(sealed, additionalData []byte) ([]byte, error) {
	ns := c.aead.NonceSize()
	if len(sealed) < ns+c.aead.Overhead() {
		return nil, ErrCiphertextTooShort
	}
	plaintext, err := c.aead.Open(nil, sealed[:ns], sealed[ns:], additionalData)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}
