// Package cryptox implements the field cipher used for the local cache:
// AES-GCM over individual text fields, with a detectable prefix marker so
// ciphertext and plaintext can be told apart without a schema flag, plus
// Argon2id key derivation for passphrase-based keys.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/showmeapp/showme/internal/common"
	"golang.org/x/crypto/argon2"
)

// EncryptedPrefix marks an encrypted field value. It is intentionally a
// character that never starts user-entered text, so IsEncrypted stays a
// cheap prefix check.
const EncryptedPrefix = "\U0001F512" // 🔒

const (
	keySize   = 32
	saltSize  = 16
	nonceSize = 12
)

// DeriveKey derives a 256-bit key from a passphrase and salt using Argon2id.
// Same passphrase and salt always yield the same key.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, keySize)
}

// GenerateKey returns a fresh random 256-bit key.
func GenerateKey() []byte {
	return common.GenerateRandByteArray(keySize)
}

// GenerateSalt returns a fresh random KDF salt.
func GenerateSalt() []byte {
	return common.GenerateRandByteArray(saltSize)
}

// EncryptField encrypts a single text field with AES-GCM. A new random
// 12-byte nonce is generated per call, so encrypting the same plaintext twice
// produces different outputs. The result is EncryptedPrefix followed by
// base64(nonce || ciphertext || tag).
func EncryptField(plaintext string, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aesgcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return EncryptedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptField reverses EncryptField. It reports common.ErrNoEncryptionKey
// when no key is configured, and an error wrapping common.ErrDecryptionFailed
// when the key is wrong or the blob was truncated or corrupted; it never
// returns garbage plaintext.
func DecryptField(value string, key []byte) (string, error) {
	if len(key) == 0 {
		return "", common.ErrNoEncryptionKey
	}
	data := strings.TrimPrefix(value, EncryptedPrefix)

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}
	if len(raw) < nonceSize {
		return "", fmt.Errorf("%w: blob too short", common.ErrDecryptionFailed)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	plaintext, err := aesgcm.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}

// IsEncrypted reports whether value carries the encryption marker. Empty and
// plaintext values return false.
func IsEncrypted(value string) bool {
	return value != "" && strings.HasPrefix(value, EncryptedPrefix)
}
