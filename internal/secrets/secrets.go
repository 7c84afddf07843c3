// Package secrets encrypts job credentials at rest. Passwords are stored
// only in sealed form and decrypted at point of use inside a collection pass.
package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

var ErrInvalidCiphertext = errors.New("secrets: invalid ciphertext")

// Box seals and opens small secrets with XChaCha20-Poly1305. The key is
// derived from the configured secret key string, so any passphrase-length
// value works.
type Box struct {
	key [32]byte
}

// NewBox derives a sealing key from the configured secret key.
func NewBox(secretKey string) *Box {
	return &Box{key: sha256.Sum256([]byte(secretKey))}
}

// Seal encrypts a plaintext secret. The random nonce is prepended to the
// returned ciphertext.
func (b *Box) Seal(plaintext string) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(b.key[:])
	if err != nil {
		return nil, fmt.Errorf("secrets: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("secrets: %w", err)
	}
	return aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Open decrypts a ciphertext produced by Seal.
func (b *Box) Open(ciphertext []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(b.key[:])
	if err != nil {
		return "", fmt.Errorf("secrets: %w", err)
	}
	if len(ciphertext) < aead.NonceSize() {
		return "", ErrInvalidCiphertext
	}
	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return string(plain), nil
}
