package calendarsync

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrInvalidKey  = errors.New("token encryption key must be 32 bytes, base64 encoded")
	ErrSealedToken = errors.New("sealed token is corrupt or was sealed with another key")
)

// TokenCipher seals OAuth tokens with XChaCha20-Poly1305. The random nonce is
// prepended to the ciphertext.
type TokenCipher struct {
	aead cipher.AEAD
}

func NewTokenCipher(encodedKey string) (*TokenCipher, error) {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil || len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &TokenCipher{aead: aead}, nil
}

func (c *TokenCipher) Seal(plaintext string) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

func (c *TokenCipher) Open(sealed []byte) (string, error) {
	if len(sealed) < c.aead.NonceSize() {
		return "", ErrSealedToken
	}
	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrSealedToken
	}
	return string(plaintext), nil
}
