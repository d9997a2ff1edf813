package sync

import (
	"context"
	"time"

	"github.com/showmeapp/showme/internal/client/notify"
	"github.com/showmeapp/showme/internal/client/repositories/maps"
	"github.com/showmeapp/showme/internal/client/repositories/pins"
	"github.com/showmeapp/showme/internal/client/session"
	"github.com/showmeapp/showme/internal/logging"
)

// Poller watches the local tables for changes by comparing cheap fingerprints
// and publishes a change notification per table that moved. It is the only
// change-detection mechanism; there is no row-level diffing.
type Poller struct {
	mapsRepo    maps.Repository
	pinsRepo    pins.Repository
	sess        *session.Session
	broadcaster *notify.Broadcaster
	log         logging.Logger
	interval    time.Duration

	lastMaps string
	lastPins string

	cancel context.CancelFunc
	done   chan struct{}
}

func NewPoller(mapsRepo maps.Repository, pinsRepo pins.Repository, sess *session.Session,
	broadcaster *notify.Broadcaster, log logging.Logger, interval time.Duration) *Poller {
	return &Poller{
		mapsRepo:    mapsRepo,
		pinsRepo:    pinsRepo,
		sess:        sess,
		broadcaster: broadcaster,
		log:         log,
		interval:    interval,
	}
}

// Start primes the fingerprints so pre-existing rows do not fire a spurious
// notification, then polls until Stop.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	if err := p.prime(ctx); err != nil {
		p.log.Warn(ctx, "failed to prime change poller", "error", err)
	}

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.pollOnce(ctx)
			}
		}
	}()
}

func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
}

func (p *Poller) prime(ctx context.Context) error {
	var err error
	if p.lastMaps, err = p.mapsRepo.Fingerprint(ctx); err != nil {
		return err
	}
	p.lastPins, err = p.pinsRepo.Fingerprint(ctx)
	return err
}

func (p *Poller) pollOnce(ctx context.Context) {
	if p.sess.WipeActive() {
		return
	}

	if fp, err := p.mapsRepo.Fingerprint(ctx); err != nil {
		p.log.Debug(ctx, "maps fingerprint failed", "error", err)
	} else if fp != p.lastMaps {
		p.lastMaps = fp
		p.broadcaster.Publish(ctx, notify.ChangeEvent{Table: "maps", At: time.Now()})
	}

	if fp, err := p.pinsRepo.Fingerprint(ctx); err != nil {
		p.log.Debug(ctx, "pins fingerprint failed", "error", err)
	} else if fp != p.lastPins {
		p.lastPins = fp
		p.broadcaster.Publish(ctx, notify.ChangeEvent{Table: "pins", At: time.Now()})
	}
}
