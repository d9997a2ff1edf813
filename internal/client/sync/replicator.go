// Package sync keeps the local store and the shared endpoint loosely in step:
// a pull replicator applies upstream rows, a poller turns local table changes
// into notifications, and a watcher tracks endpoint reachability.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/showmeapp/showme/internal/client/models"
	"github.com/showmeapp/showme/internal/client/remote"
	"github.com/showmeapp/showme/internal/client/repositories/maps"
	"github.com/showmeapp/showme/internal/client/repositories/pins"
	"github.com/showmeapp/showme/internal/client/session"
	"github.com/showmeapp/showme/internal/logging"
)

// Replicator applies upstream state to the local store.
type Replicator interface {
	// Start takes an initial snapshot and keeps applying upstream changes
	// until Stop is called. A failed initial snapshot is not fatal; the
	// client stays usable offline.
	Start(ctx context.Context)
	Stop()
}

// PullReplicator periodically pulls full upstream state and upserts it
// locally. Upstream rows arrive plaintext and are stored as-is; they were
// published by their author and carry no local secrets.
type PullReplicator struct {
	rc       remote.Client
	mapsRepo maps.Repository
	pinsRepo pins.Repository
	sess     *session.Session
	log      logging.Logger
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

func NewPullReplicator(rc remote.Client, mapsRepo maps.Repository, pinsRepo pins.Repository,
	sess *session.Session, log logging.Logger, interval time.Duration) *PullReplicator {
	return &PullReplicator{
		rc:       rc,
		mapsRepo: mapsRepo,
		pinsRepo: pinsRepo,
		sess:     sess,
		log:      log,
		interval: interval,
	}
}

func (r *PullReplicator) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	if err := r.pullOnce(ctx); err != nil {
		r.log.Warn(ctx, "initial replication snapshot failed", "error", err)
	}

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.pullOnce(ctx); err != nil {
					r.log.Debug(ctx, "replication pull failed", "error", err)
				}
			}
		}
	}()
}

func (r *PullReplicator) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}

func (r *PullReplicator) pullOnce(ctx context.Context) error {
	if r.sess.WipeActive() {
		return nil
	}

	mapRows, err := r.rc.ListMaps(ctx)
	if err != nil {
		return err
	}
	for _, row := range mapRows {
		if err := r.mapsRepo.Upsert(ctx, mapFromRecord(row)); err != nil {
			return err
		}
	}

	pinRows, err := r.rc.ListPins(ctx)
	if err != nil {
		return err
	}
	for _, row := range pinRows {
		pin, err := pinFromRecord(row)
		if err != nil {
			return err
		}
		if err := r.pinsRepo.Upsert(ctx, pin); err != nil {
			return err
		}
	}
	return nil
}

func mapFromRecord(row remote.MapRecord) *models.Map {
	return &models.Map{
		ID:             row.ID,
		Name:           row.Name,
		IsPrivate:      row.IsPrivate,
		AccessToken:    row.AccessToken,
		FuzzingEnabled: row.FuzzingEnabled,
		FuzzingRadius:  row.FuzzingRadius,
		CreatedAt:      row.CreatedAt,
	}
}

func pinFromRecord(row remote.PinRecord) (*models.Pin, error) {
	if row.Tags == nil {
		row.Tags = []string{}
	}
	if row.PhotoURLs == nil {
		row.PhotoURLs = []string{}
	}
	tags, err := json.Marshal(row.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode pin tags: %w", err)
	}
	photos, err := json.Marshal(row.PhotoURLs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode pin photo urls: %w", err)
	}
	return &models.Pin{
		ID:          row.ID,
		MapID:       row.MapID,
		Lat:         row.Lat,
		Lng:         row.Lng,
		Type:        models.PinType(row.Type),
		Tags:        string(tags),
		Description: row.Description,
		PhotoURLs:   string(photos),
		ExpiresAt:   row.ExpiresAt,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}
