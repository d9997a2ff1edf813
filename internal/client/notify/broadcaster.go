// Package notify fans out local change events to in-process subscribers and
// keeps a short durable history of them.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/showmeapp/showme/internal/client/kvstore"
	"github.com/showmeapp/showme/internal/logging"
)

// ChangeEvent announces that a table's content changed. Data optionally
// carries the row that triggered it.
type ChangeEvent struct {
	Table string         `json:"table"`
	Data  map[string]any `json:"data,omitempty"`
	At    time.Time      `json:"at"`
}

const (
	historyKey   = "notificationHistory"
	historyLimit = 50
)

// Broadcaster delivers change events synchronously to subscribers, in
// subscription order. Slow subscribers delay publication.
type Broadcaster struct {
	mu   sync.Mutex
	kv   kvstore.Store
	log  logging.Logger
	subs []func(ChangeEvent)
}

func NewBroadcaster(kv kvstore.Store, log logging.Logger) *Broadcaster {
	return &Broadcaster{kv: kv, log: log}
}

// Subscribe registers a callback for every future event. There is no
// unsubscribe; subscribers live as long as the process.
func (b *Broadcaster) Subscribe(fn func(ChangeEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Publish appends the event to the durable history (dropping the oldest
// entries beyond the cap) and notifies subscribers. History persistence is
// best effort; a storage failure is logged, not returned.
func (b *Broadcaster) Publish(ctx context.Context, ev ChangeEvent) {
	b.mu.Lock()
	history := append(b.loadHistory(), ev)
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	if data, err := json.Marshal(history); err == nil {
		if err := b.kv.Set(historyKey, string(data)); err != nil {
			b.log.Warn(ctx, "failed to persist notification history", "error", err)
		}
	}
	subs := make([]func(ChangeEvent), len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// History returns the persisted events, oldest first. Malformed stored data
// is treated as empty.
func (b *Broadcaster) History() []ChangeEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loadHistory()
}

// Clear drops the persisted history.
func (b *Broadcaster) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.kv.Delete(historyKey); err != nil {
		return fmt.Errorf("failed to clear notification history: %w", err)
	}
	return nil
}

func (b *Broadcaster) loadHistory() []ChangeEvent {
	raw, ok, err := b.kv.Get(historyKey)
	if err != nil || !ok {
		return nil
	}
	var history []ChangeEvent
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil
	}
	return history
}
