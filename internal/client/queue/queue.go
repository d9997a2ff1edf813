// Package queue implements the durable retry queue for remote writes. Local
// writes never wait on it; operations drain in FIFO order whenever the
// endpoint is reachable and no panic wipe is active.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/showmeapp/showme/internal/client/kvstore"
	"github.com/showmeapp/showme/internal/client/models"
	"github.com/showmeapp/showme/internal/client/remote"
	"github.com/showmeapp/showme/internal/client/session"
	"github.com/showmeapp/showme/internal/common"
	"github.com/showmeapp/showme/internal/logging"
)

const (
	storageKey = "operationQueue"

	// maxRetries drops an operation after its third failed delivery.
	maxRetries = 3

	defaultOpDelay    = 500 * time.Millisecond
	defaultRetryDelay = 5 * time.Second
)

// optionalFieldGenerations lists payload fields added by schema generations,
// newest first. When the endpoint rejects a payload with an unknown-column
// signature, the fields of a generation are stripped and the write retried,
// so a newer client still syncs with an older endpoint.
var optionalFieldGenerations = [][]string{
	{"type", "expires_at"},
}

// Queue is the durable FIFO of pending remote writes.
type Queue struct {
	mu   sync.Mutex
	kv   kvstore.Store
	rc   remote.Client
	sess *session.Session
	log  logging.Logger

	ops        []models.QueuedOperation
	processing atomic.Bool
	subs       []func(int)

	// seams for tests
	opDelay    time.Duration
	retryDelay time.Duration
	afterFunc  func(d time.Duration, fn func())
	now        func() time.Time
}

// New restores any persisted operations. Malformed stored data is discarded.
func New(kv kvstore.Store, rc remote.Client, sess *session.Session, log logging.Logger) *Queue {
	q := &Queue{
		kv:         kv,
		rc:         rc,
		sess:       sess,
		log:        log,
		opDelay:    defaultOpDelay,
		retryDelay: defaultRetryDelay,
		afterFunc:  func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
		now:        time.Now,
	}
	q.ops = q.load()
	return q
}

// Enqueue persists a new operation and, when the endpoint is reachable and no
// wipe is active, kicks off an asynchronous drain. The returned id identifies
// the operation in the queue.
func (q *Queue) Enqueue(ctx context.Context, kind models.OperationKind, payload map[string]any) (string, error) {
	op := models.QueuedOperation{
		ID:         uuid.NewString(),
		Kind:       kind,
		Payload:    payload,
		EnqueuedAt: q.now().UTC(),
	}

	q.mu.Lock()
	q.ops = append(q.ops, op)
	err := q.persistLocked(ctx)
	n := len(q.ops)
	q.mu.Unlock()
	if err != nil {
		return "", err
	}
	q.notify(n)

	q.log.Debug(ctx, "operation enqueued", "id", op.ID, "kind", kind, "pending", n)

	if q.sess.Online() && !q.sess.WipeActive() {
		go q.ProcessQueue(context.WithoutCancel(ctx))
	}
	return op.ID, nil
}

// Len returns the number of pending operations.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Subscribe registers a callback invoked with the queue length after every
// mutation.
func (q *Queue) Subscribe(fn func(int)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.subs = append(q.subs, fn)
}

// Clear drops every pending operation.
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	q.ops = nil
	err := q.persistLocked(ctx)
	q.mu.Unlock()
	if err != nil {
		return err
	}
	q.notify(0)
	return nil
}

// ProcessQueue drains pending operations in FIFO order. Only one drain runs
// at a time; concurrent calls return immediately. Operations enqueued during
// a drain wait for the next one.
func (q *Queue) ProcessQueue(ctx context.Context) {
	if !q.sess.Online() || q.sess.WipeActive() {
		return
	}
	if !q.processing.CompareAndSwap(false, true) {
		return
	}
	defer q.processing.Store(false)

	snapshot := q.snapshot()
	retryNeeded := false

	for i, op := range snapshot {
		if i > 0 {
			q.sleep(ctx, q.opDelay)
		}
		if ctx.Err() != nil || q.sess.WipeActive() {
			return
		}

		if q.deliver(ctx, op) {
			q.remove(ctx, op.ID)
			continue
		}
		if kept := q.bumpRetries(ctx, op.ID); kept {
			retryNeeded = true
		}
	}

	if retryNeeded {
		q.afterFunc(q.retryDelay, func() { q.ProcessQueue(context.Background()) })
	}
}

// deliver attempts one operation and reports whether it can leave the queue.
// Duplicate-key rejections count as delivered: the write already exists on
// the endpoint.
func (q *Queue) deliver(ctx context.Context, op models.QueuedOperation) bool {
	err := q.send(ctx, op)
	if err == nil || errors.Is(err, common.ErrDuplicateKey) {
		return true
	}

	if errors.Is(err, common.ErrUnknownColumn) && q.downgrade(ctx, op) {
		err = q.send(ctx, op)
		if err == nil || errors.Is(err, common.ErrDuplicateKey) {
			return true
		}
	}

	q.log.Warn(ctx, "operation delivery failed", "kind", op.Kind, "retries", op.Retries, "error", err)
	return false
}

func (q *Queue) send(ctx context.Context, op models.QueuedOperation) error {
	switch op.Kind {
	case models.OpCreateMap:
		return q.rc.CreateMap(ctx, op.Payload)
	case models.OpAddPin:
		mapID, _ := op.Payload["map_id"].(string)
		exists, err := q.rc.MapExists(ctx, mapID)
		if err != nil {
			return err
		}
		if !exists {
			// the map's own createMap may still be in flight
			return fmt.Errorf("map %s not on endpoint yet: %w", mapID, common.ErrForeignKey)
		}
		return q.rc.CreatePin(ctx, op.Payload)
	default:
		q.log.Warn(ctx, "dropping operation of unknown kind", "kind", op.Kind)
		return nil
	}
}

// downgrade strips the optional fields of newer schema generations from the
// payload and persists the change. Returns false when nothing was stripped.
func (q *Queue) downgrade(ctx context.Context, op models.QueuedOperation) bool {
	stripped := false
	for _, generation := range optionalFieldGenerations {
		for _, field := range generation {
			if _, ok := op.Payload[field]; ok {
				delete(op.Payload, field)
				stripped = true
			}
		}
	}
	if !stripped {
		return false
	}

	q.log.Info(ctx, "retrying operation without newer schema fields", "kind", op.Kind)
	q.mu.Lock()
	for i := range q.ops {
		if q.ops[i].ID == op.ID {
			q.ops[i].Payload = op.Payload
			break
		}
	}
	if err := q.persistLocked(ctx); err != nil {
		q.log.Warn(ctx, "failed to persist downgraded payload", "error", err)
	}
	q.mu.Unlock()
	return true
}

func (q *Queue) remove(ctx context.Context, id string) {
	q.mu.Lock()
	for i := range q.ops {
		if q.ops[i].ID == id {
			q.ops = append(q.ops[:i], q.ops[i+1:]...)
			break
		}
	}
	if err := q.persistLocked(ctx); err != nil {
		q.log.Warn(ctx, "failed to persist queue", "error", err)
	}
	n := len(q.ops)
	q.mu.Unlock()
	q.notify(n)
}

// bumpRetries increments an operation's retry count, dropping it once the
// ceiling is reached. Reports whether the operation stays queued.
func (q *Queue) bumpRetries(ctx context.Context, id string) bool {
	q.mu.Lock()
	kept := false
	for i := range q.ops {
		if q.ops[i].ID != id {
			continue
		}
		q.ops[i].Retries++
		if q.ops[i].Retries >= maxRetries {
			q.log.Error(ctx, "dropping operation after retry ceiling",
				"kind", q.ops[i].Kind, "retries", q.ops[i].Retries)
			q.ops = append(q.ops[:i], q.ops[i+1:]...)
		} else {
			kept = true
		}
		break
	}
	if err := q.persistLocked(ctx); err != nil {
		q.log.Warn(ctx, "failed to persist queue", "error", err)
	}
	n := len(q.ops)
	q.mu.Unlock()
	q.notify(n)
	return kept
}

func (q *Queue) snapshot() []models.QueuedOperation {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.QueuedOperation, len(q.ops))
	copy(out, q.ops)
	return out
}

func (q *Queue) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(q.ops)
	if err != nil {
		return fmt.Errorf("failed to encode queue: %w", err)
	}
	if err := q.kv.Set(storageKey, string(data)); err != nil {
		return fmt.Errorf("failed to persist queue: %w", err)
	}
	return nil
}

func (q *Queue) load() []models.QueuedOperation {
	raw, ok, err := q.kv.Get(storageKey)
	if err != nil || !ok {
		return nil
	}
	var ops []models.QueuedOperation
	if err := json.Unmarshal([]byte(raw), &ops); err != nil {
		q.log.Warn(context.Background(), "persisted queue is malformed, starting empty", "error", err)
		return nil
	}
	return ops
}

func (q *Queue) notify(n int) {
	q.mu.Lock()
	subs := make([]func(int), len(q.subs))
	copy(subs, q.subs)
	q.mu.Unlock()
	for _, fn := range subs {
		fn(n)
	}
}

func (q *Queue) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
