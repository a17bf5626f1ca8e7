package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCipher(t *testing.T) {
	t.Run("rejects empty key", func(t *testing.T) {
		_, err := NewCipher("")
		assert.ErrorIs(t, err, ErrEmptyKey)
	})

	t.Run("accepts any non-empty key", func(t *testing.T) {
		c, err := NewCipher("k")
		require.NoError(t, err)
		assert.NotNil(t, c)
	})
}

func TestCipher_SealOpen(t *testing.T) {
	c, err := NewCipher("test-secret-key")
	require.NoError(t, err)
	aad := []byte("merchant-1:access_token")

	t.Run("round trips", func(t *testing.T) {
		sealed, err := c.Seal([]byte("shpat_123"), aad)
		require.NoError(t, err)
		assert.NotContains(t, string(sealed), "shpat_123")

		plain, err := c.Open(sealed, aad)
		require.NoError(t, err)
		assert.Equal(t, "shpat_123", string(plain))
	})

	t.Run("uses a fresh nonce per seal", func(t *testing.T) {
		a, err := c.Seal([]byte("same"), aad)
		require.NoError(t, err)
		b, err := c.Seal([]byte("same"), aad)
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("rejects wrong additional data", func(t *testing.T) {
		sealed, err := c.Seal([]byte("token"), aad)
		require.NoError(t, err)

		_, err = c.Open(sealed, []byte("merchant-2:access_token"))
		assert.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("rejects tampered ciphertext", func(t *testing.T) {
		sealed, err := c.Seal([]byte("token"), aad)
		require.NoError(t, err)
		sealed[len(sealed)-1] ^= 0xff

		_, err = c.Open(sealed, aad)
		assert.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("rejects short input", func(t *testing.T) {
		_, err := c.Open([]byte{1, 2, 3}, aad)
		assert.ErrorIs(t, err, ErrCiphertextTooShort)
	})

	t.Run("rejects values sealed with another key", func(t *testing.T) {
		other, err := NewCipher("another-key")
		require.NoError(t, err)
		sealed, err := other.Seal([]byte("token"), aad)
		require.NoError(t, err)

		_, err = c.Open(sealed, aad)
		assert.ErrorIs(t, err, ErrDecrypt)
	})
}
