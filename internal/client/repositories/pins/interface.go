package pins

import (
	"context"
	"time"

	"github.com/showmeapp/showme/internal/client/models"
)

// ColumnUpdate is a sparse pin update at the storage layer. Values arrive
// already serialized (and possibly encrypted); nil fields are left untouched.
type ColumnUpdate struct {
	Type        *string
	Tags        *string
	Description *string
	PhotoURLs   *string
}

// Repository describes operations on locally stored pins.
type Repository interface {
	// Insert stores a new pin.
	Insert(ctx context.Context, p *models.Pin) error

	// Upsert inserts or overwrites a pin, used when applying upstream rows.
	Upsert(ctx context.Context, p *models.Pin) error

	// Update applies a sparse update and bumps updated_at. Returns
	// common.ErrorNotFound when no such pin exists.
	Update(ctx context.Context, id string, upd ColumnUpdate, updatedAt time.Time) error

	// GetByID returns a single pin, or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.Pin, error)

	// GetByMap returns the pins of a map, newest first. Unless includeExpired
	// is set, pins whose expiry is at or before now are filtered out.
	GetByMap(ctx context.Context, mapID string, includeExpired bool, now time.Time) ([]models.Pin, error)

	// DeleteExpired removes pins whose expiry is at or before now and returns
	// how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// DeleteAll removes every pin.
	DeleteAll(ctx context.Context) error

	// Fingerprint returns a cheap digest of table state used for change
	// detection.
	Fingerprint(ctx context.Context) (string, error)
}
