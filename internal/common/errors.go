// Package common defines shared constants and sentinel errors used across
// client and server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Remote endpoint error signatures. The REST client maps transport and
	// response-body failures onto these so upper layers can branch without
	// parsing bodies themselves.
	ErrUnavailable   = errors.New("remote unavailable")
	ErrForeignKey    = errors.New("foreign key violation")
	ErrUnknownColumn = errors.New("unknown column")
	ErrDuplicateKey  = errors.New("duplicate key")

	// Local write failures: the only class surfaced to callers of the
	// write path.
	ErrorLocalWrite = errors.New("local write failed")

	// Cipher / key errors.
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrNoEncryptionKey  = errors.New("no encryption key configured")

	// Panic-wipe cooldown.
	ErrWipeCooldown = errors.New("panic wipe on cooldown")
)
