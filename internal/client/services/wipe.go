package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/showmeapp/showme/internal/client/kvstore"
	"github.com/showmeapp/showme/internal/client/notify"
	"github.com/showmeapp/showme/internal/client/queue"
	"github.com/showmeapp/showme/internal/client/remote"
	"github.com/showmeapp/showme/internal/client/repositories/maps"
	"github.com/showmeapp/showme/internal/client/repositories/pins"
	"github.com/showmeapp/showme/internal/client/session"
	"github.com/showmeapp/showme/internal/common"
	"github.com/showmeapp/showme/internal/dbx"
	"github.com/showmeapp/showme/internal/logging"
)

// Stopper is anything with background work to halt before a wipe; in practice
// the pull replicator.
type Stopper interface {
	Stop()
}

type WipeService interface {
	// PanicWipe destroys local maps and pins, drains nothing further, and
	// best-effort deletes this client's published rows from the endpoint.
	// Local destruction must succeed; remote deletion may silently fail.
	PanicWipe(ctx context.Context) error
}

type wipeService struct {
	db          *sql.DB
	rc          remote.Client
	q           *queue.Queue
	kv          kvstore.Store
	sess        *session.Session
	broadcaster *notify.Broadcaster
	replicator  Stopper // may be nil
	log         logging.Logger
	now         func() time.Time
}

func NewWipeService(db *sql.DB, rc remote.Client,
	q *queue.Queue, kv kvstore.Store, sess *session.Session, broadcaster *notify.Broadcaster,
	replicator Stopper, log logging.Logger) WipeService {
	return &wipeService{
		db: db, rc: rc, q: q, kv: kv,
		sess: sess, broadcaster: broadcaster, replicator: replicator,
		log: log, now: time.Now,
	}
}

func (s *wipeService) PanicWipe(ctx context.Context) error {
	now := s.now()
	if !s.sess.WipeAllowed(now) {
		return common.ErrWipeCooldown
	}

	// raise the flag first: from here on the queue, poller and replicator
	// all stand down, even across a crash
	if err := s.sess.SetWipeActive(true); err != nil {
		return fmt.Errorf("failed to set wipe flag: %w", err)
	}
	s.broadcaster.Publish(ctx, notify.ChangeEvent{Table: "wipe", At: now})

	if s.replicator != nil {
		s.replicator.Stop()
	}

	// one transaction, pins before maps honoring the foreign key: either
	// everything local goes or nothing does
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := pins.NewSQLiteRepository(tx).DeleteAll(ctx); err != nil {
			return fmt.Errorf("failed to wipe local pins: %w", err)
		}
		if err := maps.NewSQLiteRepository(tx).DeleteAll(ctx); err != nil {
			return fmt.Errorf("failed to wipe local maps: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.wipeRemote(ctx)

	if err := s.q.Clear(ctx); err != nil {
		s.log.Warn(ctx, "failed to clear queue during wipe", "error", err)
	}
	if err := s.kv.Clear(); err != nil {
		s.log.Warn(ctx, "failed to clear durable storage during wipe", "error", err)
	}
	// Clear dropped the durable flag with everything else; re-persist it so
	// a restart still knows a wipe happened
	if err := s.sess.SetWipeActive(true); err != nil {
		s.log.Warn(ctx, "failed to re-persist wipe flag", "error", err)
	}

	s.log.Info(ctx, "panic wipe completed")
	return nil
}

// wipeRemote deletes published rows best effort. The endpoint may be gone,
// hostile, or slow; none of that may block local destruction.
func (s *wipeService) wipeRemote(ctx context.Context) {
	if !s.sess.Online() {
		s.log.Info(ctx, "endpoint offline, skipping remote wipe")
		return
	}

	if ids, err := s.rc.ListPinIDs(ctx); err != nil {
		s.log.Warn(ctx, "remote pin listing failed during wipe", "error", err)
	} else if len(ids) > 0 {
		if err := s.rc.DeletePins(ctx, ids); err != nil {
			s.log.Warn(ctx, "remote pin deletion failed during wipe", "error", err)
		}
	}

	if ids, err := s.rc.ListMapIDs(ctx); err != nil {
		s.log.Warn(ctx, "remote map listing failed during wipe", "error", err)
	} else if len(ids) > 0 {
		if err := s.rc.DeleteMaps(ctx, ids); err != nil {
			s.log.Warn(ctx, "remote map deletion failed during wipe", "error", err)
		}
	}
}
