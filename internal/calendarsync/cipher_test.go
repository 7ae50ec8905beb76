package calendarsync

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCipher_RoundTrip(t *testing.T) {
	c := newTestCipher(t)

	sealed, err := c.Seal("ya29.secret")
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "ya29.secret")

	again, err := c.Seal("ya29.secret")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per seal")

	plain, err := c.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "ya29.secret", plain)
}

func TestTokenCipher_Tampered(t *testing.T) {
	c := newTestCipher(t)
	sealed, err := c.Seal("token")
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xff
	_, err = c.Open(sealed)
	assert.ErrorIs(t, err, ErrSealedToken)

	_, err = c.Open([]byte("short"))
	assert.ErrorIs(t, err, ErrSealedToken)
}

func TestTokenCipher_WrongKey(t *testing.T) {
	sealed, err := newTestCipher(t).Seal("token")
	require.NoError(t, err)

	other, err := NewTokenCipher(base64.StdEncoding.EncodeToString([]byte("ffffffffffffffffffffffffffffffff")))
	require.NoError(t, err)
	_, err = other.Open(sealed)
	assert.ErrorIs(t, err, ErrSealedToken)
}

func TestNewTokenCipher_InvalidKey(t *testing.T) {
	for _, key := range []string{"", "not base64!", base64.StdEncoding.EncodeToString([]byte("too short"))} {
		_, err := NewTokenCipher(key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}
