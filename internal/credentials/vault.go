// Package credentials protects delegated calendar credentials at rest.
package credentials

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrInvalidCiphertext is returned when a stored token cannot be decrypted,
// typically after a vault key rotation without re-enrolling users.
var ErrInvalidCiphertext = errors.New("credentials: invalid ciphertext")

// Vault encrypts and decrypts refresh tokens with XChaCha20-Poly1305. The
// nonce is generated per seal and prefixed to the ciphertext.
type Vault struct {
	key []byte
}

// NewVault creates a vault from a 32-byte key.
func NewVault(key []byte) (*Vault, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("credentials: vault key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &Vault{key: append([]byte(nil), key...)}, nil
}

// Seal encrypts a plaintext token for storage.
func (v *Vault) Seal(plaintext string) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return nil, fmt.Errorf("credentials: failed to initialize cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("credentials: failed to generate nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Open decrypts a stored token.
func (v *Vault) Open(ciphertext []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return "", fmt.Errorf("credentials: failed to initialize cipher: %w", err)
	}

	if len(ciphertext) < aead.NonceSize() {
		return "", ErrInvalidCiphertext
	}

	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return string(plaintext), nil
}
