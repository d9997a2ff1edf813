package session

import (
	"testing"
	"time"

	"github.com/showmeapp/showme/internal/client/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSession(t *testing.T) (*Session, kvstore.Store) {
	t.Helper()
	kv, err := kvstore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return New(kv), kv
}

func TestOnlineFlag(t *testing.T) {
	s, _ := setupSession(t)

	assert.False(t, s.Online())
	s.SetOnline(true)
	assert.True(t, s.Online())
}

func TestWipeFlag_PersistsAcrossRestart(t *testing.T) {
	s, kv := setupSession(t)

	require.NoError(t, s.SetWipeActive(true))
	assert.True(t, s.WipeActive())

	// a fresh session over the same storage simulates a restart
	s2 := New(kv)
	assert.True(t, s2.WipeActive())

	require.NoError(t, s2.SetWipeActive(false))
	s3 := New(kv)
	assert.False(t, s3.WipeActive())
}

func TestWipeAllowed_EnforcesCooldown(t *testing.T) {
	s, _ := setupSession(t)

	now := time.Now()
	assert.True(t, s.WipeAllowed(now))
	assert.False(t, s.WipeAllowed(now.Add(time.Second)))
	assert.True(t, s.WipeAllowed(now.Add(WipeCooldown+time.Second)))
}
