// Package services implements the write and read paths of the client: maps,
// pins, expiry cleanup and the panic wipe. Writes are local-first: the local
// store is authoritative for success, remote publication happens directly or
// through the retry queue and never fails the caller.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/showmeapp/showme/internal/client/keymanager"
	"github.com/showmeapp/showme/internal/client/models"
	"github.com/showmeapp/showme/internal/client/queue"
	"github.com/showmeapp/showme/internal/client/remote"
	"github.com/showmeapp/showme/internal/client/repositories/maps"
	"github.com/showmeapp/showme/internal/client/session"
	"github.com/showmeapp/showme/internal/common"
	"github.com/showmeapp/showme/internal/logging"
)

// accessTokenBytes sizes the random token for private maps; the hex string is
// twice as long.
const accessTokenBytes = 16

// CreatedMap is what Create hands back to the caller: the new id and, for
// private maps, the share token.
type CreatedMap struct {
	ID          string
	AccessToken string
}

type MapService interface {
	// Create stores a new map locally and publishes it directly or via the
	// queue. Only a local failure is returned.
	Create(ctx context.Context, name string, isPrivate, fuzzingEnabled bool, fuzzingRadius float64) (*CreatedMap, error)

	// Get returns a map with fields decrypted, or nil when unknown.
	Get(ctx context.Context, id string) (*models.Map, error)

	// GetAll returns every map with fields decrypted, newest first.
	GetAll(ctx context.Context) ([]models.Map, error)
}

type mapService struct {
	repo maps.Repository
	rc   remote.Client
	q    *queue.Queue
	keys *keymanager.Manager
	sess *session.Session
	log  logging.Logger
	now  func() time.Time
}

func NewMapService(repo maps.Repository, rc remote.Client, q *queue.Queue,
	keys *keymanager.Manager, sess *session.Session, log logging.Logger) MapService {
	return &mapService{repo: repo, rc: rc, q: q, keys: keys, sess: sess, log: log, now: time.Now}
}

func (s *mapService) Create(ctx context.Context, name string, isPrivate, fuzzingEnabled bool, fuzzingRadius float64) (*CreatedMap, error) {
	if name == "" {
		return nil, fmt.Errorf("map name is required")
	}
	if fuzzingEnabled && fuzzingRadius <= 0 {
		fuzzingRadius = models.DefaultFuzzingRadiusMeters
	}

	id := uuid.NewString()
	var token string
	if isPrivate {
		var err error
		if token, err = common.MakeRandHexString(accessTokenBytes); err != nil {
			return nil, fmt.Errorf("failed to generate access token: %w", err)
		}
	}
	createdAt := s.now().UTC()

	key, err := s.keys.Get()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorLocalWrite, err)
	}
	storedName, err := encryptIfKey(name, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorLocalWrite, err)
	}
	storedToken, err := encryptIfKey(token, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorLocalWrite, err)
	}

	m := &models.Map{
		ID:             id,
		Name:           storedName,
		IsPrivate:      isPrivate,
		AccessToken:    storedToken,
		FuzzingEnabled: fuzzingEnabled,
		FuzzingRadius:  fuzzingRadius,
		CreatedAt:      createdAt,
	}
	if err := s.repo.Insert(ctx, m); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorLocalWrite, err)
	}

	// a successful create ends any lingering wipe suppression
	if s.sess.WipeActive() {
		if err := s.sess.SetWipeActive(false); err != nil {
			s.log.Warn(ctx, "failed to clear wipe flag", "error", err)
		}
	}

	// remote payload is always plaintext
	payload := map[string]any{
		"id":              id,
		"name":            name,
		"is_private":      isPrivate,
		"fuzzing_enabled": fuzzingEnabled,
		"fuzzing_radius":  fuzzingRadius,
		"created_at":      createdAt.Format(time.RFC3339),
	}
	if isPrivate {
		payload["access_token"] = token
	}
	s.publish(ctx, payload)

	return &CreatedMap{ID: id, AccessToken: token}, nil
}

// publish sends the map directly when the endpoint is reachable, falling back
// to the queue. A duplicate-key rejection means the map already arrived.
func (s *mapService) publish(ctx context.Context, payload map[string]any) {
	if s.sess.Online() && !s.sess.WipeActive() {
		err := s.rc.CreateMap(ctx, payload)
		if err == nil || errors.Is(err, common.ErrDuplicateKey) {
			return
		}
		s.log.Debug(ctx, "direct map publish failed, queueing", "error", err)
	}
	if _, err := s.q.Enqueue(ctx, models.OpCreateMap, payload); err != nil {
		s.log.Error(ctx, "failed to enqueue map", "error", err)
	}
}

func (s *mapService) Get(ctx context.Context, id string) (*models.Map, error) {
	m, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.decrypt(ctx, m)
	return m, nil
}

func (s *mapService) GetAll(ctx context.Context) ([]models.Map, error) {
	rows, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		s.decrypt(ctx, &rows[i])
	}
	return rows, nil
}

func (s *mapService) decrypt(ctx context.Context, m *models.Map) {
	key, err := s.keys.Get()
	if err != nil {
		s.log.Warn(ctx, "failed to load encryption key", "error", err)
		return
	}
	m.Name = decryptTolerant(ctx, s.log, m.Name, key)
	m.AccessToken = decryptTolerant(ctx, s.log, m.AccessToken, key)
}
