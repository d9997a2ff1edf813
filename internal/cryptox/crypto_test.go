package cryptox

import (
	"errors"
	"testing"

	"github.com/showmeapp/showme/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptField_RoundTrip(t *testing.T) {
	key := GenerateKey()

	tests := []struct {
		name      string
		plaintext string
	}{
		{name: "simple", plaintext: "water point behind the school"},
		{name: "empty string", plaintext: ""},
		{name: "json payload", plaintext: `["medical","triage"]`},
		{name: "unicode", plaintext: "пункт — населення"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, err := EncryptField(tt.plaintext, key)
			require.NoError(t, err)
			require.True(t, IsEncrypted(ct))

			pt, err := DecryptField(ct, key)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, pt)
		})
	}
}

func TestEncryptField_NonceUniqueness(t *testing.T) {
	key := GenerateKey()

	a, err := EncryptField("same input", key)
	require.NoError(t, err)
	b, err := EncryptField("same input", key)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDecryptField_WrongKey(t *testing.T) {
	ct, err := EncryptField("secret", GenerateKey())
	require.NoError(t, err)

	_, err = DecryptField(ct, GenerateKey())
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrDecryptionFailed))
}

func TestDecryptField_NoKey(t *testing.T) {
	ct, err := EncryptField("secret", GenerateKey())
	require.NoError(t, err)

	_, err = DecryptField(ct, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNoEncryptionKey))
}

func TestDecryptField_Truncated(t *testing.T) {
	key := GenerateKey()
	ct, err := EncryptField("secret", key)
	require.NoError(t, err)

	_, err = DecryptField(ct[:len(ct)-8], key)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrDecryptionFailed))

	_, err = DecryptField(EncryptedPrefix+"AAAA", key)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrDecryptionFailed))
}

func TestIsEncrypted(t *testing.T) {
	key := GenerateKey()
	ct, err := EncryptField("x", key)
	require.NoError(t, err)

	assert.True(t, IsEncrypted(ct))
	assert.False(t, IsEncrypted(""))
	assert.False(t, IsEncrypted("plain text"))
	assert.False(t, IsEncrypted("ZW5jb2RlZA=="))
}

func TestDeriveKey_Deterministic(t *testing.T) {
	pass := []byte("secret-passphrase")
	salt := []byte("fixed-salt-16byt")

	key1 := DeriveKey(pass, salt)
	key2 := DeriveKey(pass, salt)
	assert.Equal(t, key1, key2)
	assert.Len(t, key1, 32)

	key3 := DeriveKey(pass, []byte("another-salt-16b"))
	assert.NotEqual(t, key1, key3)
}
