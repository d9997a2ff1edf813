// Package kvstore provides the durable client key-value storage used for the
// retry queue, encryption key material, the panic-wipe flag and notification
// history. It survives restarts but is not expected to survive reinstall.
package kvstore

// Store is a small string-keyed durable store.
type Store interface {
	// Get returns the value and whether the key exists.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	// Clear removes every key.
	Clear() error
	Close() error
}
