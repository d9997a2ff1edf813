// Package keymanager owns the lifecycle of the local field-encryption key:
// generation or passphrase derivation, durable persistence, in-memory
// caching, and destructive reset.
package keymanager

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/showmeapp/showme/internal/client/kvstore"
	"github.com/showmeapp/showme/internal/common"
	"github.com/showmeapp/showme/internal/cryptox"
	"github.com/showmeapp/showme/internal/logging"
)

// KeyType records how the current key was created.
type KeyType string

const (
	KeyTypeGenerated  KeyType = "generated"
	KeyTypePassphrase KeyType = "passphrase"
)

const (
	storageKey     = "encryption_key"
	storageSalt    = "encryption_salt"
	storageKeyType = "encryption_key_type"
)

// Manager caches the key in memory after first use and persists it (plus the
// KDF salt for passphrase keys) in the durable client store.
type Manager struct {
	mu         sync.Mutex
	kv         kvstore.Store
	log        logging.Logger
	cachedKey  []byte
	cachedType KeyType
}

func NewManager(kv kvstore.Store, log logging.Logger) *Manager {
	return &Manager{kv: kv, log: log}
}

// Initialize returns the existing key when one is cached or stored —
// re-initializing never silently replaces an established key. Otherwise it
// derives a key from the passphrase (with a fresh salt) when one is given, or
// generates a random key, and persists the result.
func (m *Manager) Initialize(ctx context.Context, passphrase string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cachedKey != nil {
		return m.cachedKey, nil
	}

	if key, typ, ok, err := m.loadStored(); err != nil {
		return nil, err
	} else if ok {
		m.cachedKey, m.cachedType = key, typ
		return key, nil
	}

	var key []byte
	typ := KeyTypeGenerated

	if passphrase != "" {
		salt := cryptox.GenerateSalt()
		key = cryptox.DeriveKey([]byte(passphrase), salt)
		typ = KeyTypePassphrase
		if err := m.kv.Set(storageSalt, base64.StdEncoding.EncodeToString(salt)); err != nil {
			return nil, fmt.Errorf("failed to persist salt: %w", err)
		}
	} else {
		key = cryptox.GenerateKey()
	}

	if err := m.kv.Set(storageKey, base64.StdEncoding.EncodeToString(key)); err != nil {
		return nil, fmt.Errorf("failed to persist key: %w", err)
	}
	if err := m.kv.Set(storageKeyType, string(typ)); err != nil {
		return nil, fmt.Errorf("failed to persist key type: %w", err)
	}

	m.cachedKey, m.cachedType = key, typ
	m.log.Info(ctx, "encryption key initialized", "type", typ)
	return key, nil
}

// Get returns the current key, loading it from durable storage if needed.
// A nil key with nil error means no key is configured — a valid state in
// which field encryption is simply disabled.
func (m *Manager) Get() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cachedKey != nil {
		return m.cachedKey, nil
	}

	key, typ, ok, err := m.loadStored()
	if err != nil || !ok {
		return nil, err
	}
	m.cachedKey, m.cachedType = key, typ
	return key, nil
}

// ReinitializeFromPassphrase discards any prior key material and derives a
// fresh key from the passphrase with a new salt.
func (m *Manager) ReinitializeFromPassphrase(ctx context.Context, passphrase string) ([]byte, error) {
	if err := m.Clear(); err != nil {
		return nil, err
	}
	return m.Initialize(ctx, passphrase)
}

// IsEnabled reports whether any key material is configured.
func (m *Manager) IsEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cachedKey != nil {
		return true
	}
	if _, ok, err := m.kv.Get(storageKey); err == nil && ok {
		return true
	}
	_, ok, err := m.kv.Get(storageSalt)
	return err == nil && ok
}

// Type returns how the current key was created, or "" when none exists.
func (m *Manager) Type() KeyType {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cachedType != "" {
		return m.cachedType
	}
	v, ok, err := m.kv.Get(storageKeyType)
	if err != nil || !ok {
		return ""
	}
	return KeyType(v)
}

// Clear removes the key from cache and durable storage, zeroing the cached
// key material. Rows encrypted with the old key stay ciphertext and become
// unreadable; there is no undo.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	common.WipeByteArray(m.cachedKey)
	m.cachedKey = nil
	m.cachedType = ""
	for _, k := range []string{storageKey, storageSalt, storageKeyType} {
		if err := m.kv.Delete(k); err != nil {
			return fmt.Errorf("failed to clear key material: %w", err)
		}
	}
	return nil
}

// loadStored reads persisted key material. Malformed stored values are
// treated as absent rather than fatal.
func (m *Manager) loadStored() ([]byte, KeyType, bool, error) {
	encoded, ok, err := m.kv.Get(storageKey)
	if err != nil {
		return nil, "", false, err
	}
	if !ok {
		return nil, "", false, nil
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		m.log.Warn(context.Background(), "stored encryption key is malformed, ignoring", "error", err)
		return nil, "", false, nil
	}

	typ := KeyTypeGenerated
	if v, ok, err := m.kv.Get(storageKeyType); err == nil && ok {
		typ = KeyType(v)
	}
	return key, typ, true, nil
}
