package services

import (
	"context"

	"github.com/showmeapp/showme/internal/cryptox"
	"github.com/showmeapp/showme/internal/logging"
)

// encryptIfKey encrypts a field for local storage when a key is configured.
// Empty values and the no-key state pass through untouched.
func encryptIfKey(v string, key []byte) (string, error) {
	if key == nil || v == "" {
		return v, nil
	}
	return cryptox.EncryptField(v, key)
}

// decryptTolerant returns the plaintext when the value is ciphertext and the
// key opens it, and otherwise the stored value unchanged. A row written
// before encryption was enabled, or under a since-replaced key, must not
// break reads of its neighbors.
func decryptTolerant(ctx context.Context, log logging.Logger, v string, key []byte) string {
	if !cryptox.IsEncrypted(v) {
		return v
	}
	out, err := cryptox.DecryptField(v, key)
	if err != nil {
		log.Warn(ctx, "field left as ciphertext", "error", err)
		return v
	}
	return out
}
