package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/showmeapp/showme/internal/client/keymanager"
	"github.com/showmeapp/showme/internal/client/models"
	"github.com/showmeapp/showme/internal/client/queue"
	"github.com/showmeapp/showme/internal/client/remote"
	"github.com/showmeapp/showme/internal/client/repositories/maps"
	"github.com/showmeapp/showme/internal/client/repositories/pins"
	"github.com/showmeapp/showme/internal/client/session"
	"github.com/showmeapp/showme/internal/common"
	"github.com/showmeapp/showme/internal/geo"
	"github.com/showmeapp/showme/internal/logging"
)

type PinService interface {
	// Add stores a new pin locally and publishes it directly or via the
	// queue. Only a local failure is returned. The returned id identifies
	// the pin everywhere.
	Add(ctx context.Context, data models.PinData) (string, error)

	// Update applies a sparse update to the local cache. Updates are not
	// published; the shared endpoint only ever receives creates.
	Update(ctx context.Context, id string, upd models.PinUpdate) error

	// GetByMap returns a map's pins with fields decrypted, newest first,
	// filtering expired pins unless includeExpired is set.
	GetByMap(ctx context.Context, mapID string, includeExpired bool) ([]models.Pin, error)

	// CleanupExpired deletes expired pins and returns how many went.
	CleanupExpired(ctx context.Context) (int64, error)

	// StartExpiredCleanup sweeps on an interval until the returned stop
	// function is called.
	StartExpiredCleanup(ctx context.Context, interval time.Duration) (stop func())
}

type pinService struct {
	repo     pins.Repository
	mapsRepo maps.Repository
	rc       remote.Client
	q        *queue.Queue
	keys     *keymanager.Manager
	sess     *session.Session
	log      logging.Logger
	now      func() time.Time
}

func NewPinService(repo pins.Repository, mapsRepo maps.Repository, rc remote.Client, q *queue.Queue,
	keys *keymanager.Manager, sess *session.Session, log logging.Logger) PinService {
	return &pinService{
		repo: repo, mapsRepo: mapsRepo, rc: rc, q: q,
		keys: keys, sess: sess, log: log, now: time.Now,
	}
}

func (s *pinService) Add(ctx context.Context, data models.PinData) (string, error) {
	if data.MapID == "" {
		return "", fmt.Errorf("map id is required")
	}

	now := s.now().UTC()
	tags := models.EffectiveTags(data.Type, data.Tags)
	expiresAt := models.ExpiryFor(data.Type, data.ExpiresAt, now)

	// fuzz once, so the local cache and the endpoint hold identical
	// coordinates and the true position exists nowhere
	lat, lng := s.fuzz(ctx, data.MapID, data.Lat, data.Lng)

	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorLocalWrite, err)
	}
	photos := data.PhotoURLs
	if photos == nil {
		photos = []string{}
	}
	photosJSON, err := json.Marshal(photos)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorLocalWrite, err)
	}

	key, err := s.keys.Get()
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorLocalWrite, err)
	}
	storedTags, err := encryptIfKey(string(tagsJSON), key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorLocalWrite, err)
	}
	storedDesc, err := encryptIfKey(data.Description, key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorLocalWrite, err)
	}
	storedPhotos, err := encryptIfKey(string(photosJSON), key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorLocalWrite, err)
	}

	id := uuid.NewString()
	pin := &models.Pin{
		ID:          id,
		MapID:       data.MapID,
		Lat:         lat,
		Lng:         lng,
		Type:        data.Type,
		Tags:        storedTags,
		Description: storedDesc,
		PhotoURLs:   storedPhotos,
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, pin); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorLocalWrite, err)
	}

	payload := map[string]any{
		"id":          id,
		"map_id":      data.MapID,
		"lat":         lat,
		"lng":         lng,
		"tags":        tags,
		"description": data.Description,
		"photo_urls":  photos,
		"created_at":  now.Format(time.RFC3339),
		"updated_at":  now.Format(time.RFC3339),
	}
	if data.Type != "" {
		payload["type"] = string(data.Type)
	}
	if expiresAt != nil {
		payload["expires_at"] = expiresAt.UTC().Format(time.RFC3339)
	}
	s.publish(ctx, data.MapID, payload)

	return id, nil
}

// fuzz applies the owning map's location-fuzzing policy. An unknown map gets
// the default policy; never fuzzing at all would be the one wrong answer.
func (s *pinService) fuzz(ctx context.Context, mapID string, lat, lng float64) (float64, float64) {
	enabled, radius := true, models.DefaultFuzzingRadiusMeters
	m, err := s.mapsRepo.GetByID(ctx, mapID)
	if err == nil {
		enabled, radius = m.FuzzingEnabled, m.FuzzingRadius
		if radius <= 0 {
			radius = models.DefaultFuzzingRadiusMeters
		}
	} else if !errors.Is(err, common.ErrorNotFound) {
		s.log.Warn(ctx, "failed to load map fuzzing policy, using defaults", "error", err)
	}
	if !enabled {
		return lat, lng
	}
	return geo.FuzzCoordinates(lat, lng, radius)
}

// publish sends the pin directly when the endpoint is reachable and already
// knows the owning map, falling back to the queue.
func (s *pinService) publish(ctx context.Context, mapID string, payload map[string]any) {
	if s.sess.Online() && !s.sess.WipeActive() {
		exists, err := s.rc.MapExists(ctx, mapID)
		if err == nil && exists {
			err = s.rc.CreatePin(ctx, payload)
			if err == nil || errors.Is(err, common.ErrDuplicateKey) {
				return
			}
		}
		s.log.Debug(ctx, "direct pin publish failed, queueing", "error", err)
	}
	if _, err := s.q.Enqueue(ctx, models.OpAddPin, payload); err != nil {
		s.log.Error(ctx, "failed to enqueue pin", "error", err)
	}
}

func (s *pinService) Update(ctx context.Context, id string, upd models.PinUpdate) error {
	key, err := s.keys.Get()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorLocalWrite, err)
	}

	var cu pins.ColumnUpdate
	typ := models.PinType("")
	if upd.Type != nil {
		typ = *upd.Type
		v := string(typ)
		cu.Type = &v
	}
	// a type-only update still has to reach the tag set, so fold the new
	// type into the stored tags
	tags, haveTags := upd.Tags, upd.Tags != nil
	if !haveTags && upd.Type != nil {
		tags, haveTags = s.existingTags(ctx, id, key)
	}
	if haveTags {
		folded := models.EffectiveTags(typ, tags)
		if folded == nil {
			folded = []string{}
		}
		tagsJSON, err := json.Marshal(folded)
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrorLocalWrite, err)
		}
		stored, err := encryptIfKey(string(tagsJSON), key)
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrorLocalWrite, err)
		}
		cu.Tags = &stored
	}
	if upd.Description != nil {
		stored, err := encryptIfKey(*upd.Description, key)
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrorLocalWrite, err)
		}
		cu.Description = &stored
	}
	if upd.PhotoURLs != nil {
		photosJSON, err := json.Marshal(upd.PhotoURLs)
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrorLocalWrite, err)
		}
		stored, err := encryptIfKey(string(photosJSON), key)
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrorLocalWrite, err)
		}
		cu.PhotoURLs = &stored
	}

	if err := s.repo.Update(ctx, id, cu, s.now().UTC()); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", common.ErrorLocalWrite, err)
	}
	return nil
}

// existingTags loads and decodes a pin's current tag list so a type-only
// update can fold the type in. Reports false when the pin is unknown or the
// stored tags cannot be decoded; the tags column then stays untouched.
func (s *pinService) existingTags(ctx context.Context, id string, key []byte) ([]string, bool) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.log.Warn(ctx, "failed to load pin tags", "pin", id, "error", err)
		}
		return nil, false
	}
	raw := decryptTolerant(ctx, s.log, p.Tags, key)
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		s.log.Warn(ctx, "stored pin tags are not decodable, leaving them unchanged", "pin", id)
		return nil, false
	}
	return tags, true
}

func (s *pinService) GetByMap(ctx context.Context, mapID string, includeExpired bool) ([]models.Pin, error) {
	rows, err := s.repo.GetByMap(ctx, mapID, includeExpired, s.now().UTC())
	if err != nil {
		return nil, err
	}

	key, err := s.keys.Get()
	if err != nil {
		s.log.Warn(ctx, "failed to load encryption key", "error", err)
		return rows, nil
	}
	for i := range rows {
		rows[i].Tags = decryptTolerant(ctx, s.log, rows[i].Tags, key)
		rows[i].Description = decryptTolerant(ctx, s.log, rows[i].Description, key)
		rows[i].PhotoURLs = decryptTolerant(ctx, s.log, rows[i].PhotoURLs, key)
	}
	return rows, nil
}

func (s *pinService) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info(ctx, "expired pins removed", "count", n)
	}
	return n, nil
}

func (s *pinService) StartExpiredCleanup(ctx context.Context, interval time.Duration) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if _, err := s.CleanupExpired(ctx); err != nil {
				s.log.Warn(ctx, "expired pin sweep failed", "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
