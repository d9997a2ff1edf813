// Package session holds cross-cutting client runtime state: connectivity and
// the panic-wipe flag. Both are read on hot paths, so access is lock-free.
package session

import (
	"sync/atomic"
	"time"

	"github.com/showmeapp/showme/internal/client/kvstore"
)

// WipeFlagKey marks an in-progress or completed panic wipe in durable
// storage, so a crash mid-wipe still suppresses sync on the next start.
const WipeFlagKey = "__panicWipeActive"

// WipeCooldown is the minimum interval between panic wipes.
const WipeCooldown = 5 * time.Second

// Session tracks whether the remote is reachable and whether a panic wipe is
// active. The wipe flag lives both in memory and in the durable store.
type Session struct {
	kv         kvstore.Store
	online     atomic.Bool
	wipeActive atomic.Bool
	lastWipe   atomic.Int64 // unix nanos, 0 = never
}

// New restores the wipe flag from durable storage if present.
func New(kv kvstore.Store) *Session {
	s := &Session{kv: kv}
	if _, ok, err := kv.Get(WipeFlagKey); err == nil && ok {
		s.wipeActive.Store(true)
	}
	return s
}

func (s *Session) Online() bool     { return s.online.Load() }
func (s *Session) SetOnline(v bool) { s.online.Store(v) }
func (s *Session) WipeActive() bool { return s.wipeActive.Load() }

// SetWipeActive flips the wipe flag in memory and mirrors it durably.
func (s *Session) SetWipeActive(v bool) error {
	s.wipeActive.Store(v)
	if v {
		return s.kv.Set(WipeFlagKey, "1")
	}
	return s.kv.Delete(WipeFlagKey)
}

// WipeAllowed reports whether enough time has passed since the last wipe and,
// if so, records now as the new last-wipe time.
func (s *Session) WipeAllowed(now time.Time) bool {
	last := s.lastWipe.Load()
	if last != 0 && now.Sub(time.Unix(0, last)) < WipeCooldown {
		return false
	}
	return s.lastWipe.CompareAndSwap(last, now.UnixNano())
}
