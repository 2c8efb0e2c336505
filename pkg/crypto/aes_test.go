package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestEncryptDecrypt(t *testing.T) {
	key, err := KeyFromHex(testKey)
	require.NoError(t, err)

	enc, err := Encrypt(key, "H1234567")
	require.NoError(t, err)
	assert.NotContains(t, enc, "H1234567")

	enc2, err := Encrypt(key, "H1234567")
	require.NoError(t, err)
	assert.NotEqual(t, enc, enc2, "nonce must differ between calls")

	dec, err := Decrypt(key, enc)
	require.NoError(t, err)
	assert.Equal(t, "H1234567", dec)
}

func TestDecryptRejectsTampering(t *testing.T) {
	key, _ := KeyFromHex(testKey)
	other, _ := KeyFromHex("ff0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")

	enc, err := Encrypt(key, "secret")
	require.NoError(t, err)

	_, err = Decrypt(other, enc)
	assert.Error(t, err)

	_, err = Decrypt(key, "AAAA")
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestKeyFromHex(t *testing.T) {
	_, err := KeyFromHex("abcd")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = KeyFromHex("zz")
	assert.Error(t, err)
}

func TestFieldCipherLookupHash(t *testing.T) {
	c, err := NewFieldCipher(testKey)
	require.NoError(t, err)

	a := c.LookupHash("org-1", " h123 ")
	assert.Equal(t, a, c.LookupHash("org-1", "H123"), "normalised before hashing")
	assert.NotEqual(t, a, c.LookupHash("org-2", "H123"), "scoped per organisation")
	assert.NotEqual(t, Hash("H123"), a)
	assert.Len(t, a, 64)
}
