package sync

import (
	"context"
	"time"

	"github.com/showmeapp/showme/internal/client/queue"
	"github.com/showmeapp/showme/internal/client/remote"
	"github.com/showmeapp/showme/internal/client/session"
	"github.com/showmeapp/showme/internal/logging"
)

// Watcher probes endpoint reachability and flips the session's online flag.
// An offline-to-online transition kicks the retry queue.
type Watcher struct {
	rc       remote.Client
	sess     *session.Session
	q        *queue.Queue
	log      logging.Logger
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

func NewWatcher(rc remote.Client, sess *session.Session, q *queue.Queue,
	log logging.Logger, interval time.Duration) *Watcher {
	return &Watcher{rc: rc, sess: sess, q: q, log: log, interval: interval}
}

func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})

	w.checkOnce(ctx)

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.checkOnce(ctx)
			}
		}
	}()
}

func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
}

func (w *Watcher) checkOnce(ctx context.Context) {
	online := w.rc.Ping(ctx) == nil
	was := w.sess.Online()
	w.sess.SetOnline(online)

	if online && !was {
		w.log.Info(ctx, "endpoint reachable, draining queue", "pending", w.q.Len())
		go w.q.ProcessQueue(context.WithoutCancel(ctx))
	}
	if !online && was {
		w.log.Info(ctx, "endpoint unreachable, queueing writes")
	}
}
