package maps

import (
	"context"

	"github.com/showmeapp/showme/internal/client/models"
)

// Repository describes operations on locally stored maps. Maps are immutable
// once created; the only removal path is the panic wipe, which clears the
// whole table.
type Repository interface {
	// Insert stores a new map.
	Insert(ctx context.Context, m *models.Map) error

	// Upsert inserts or overwrites a map, used when applying upstream rows.
	Upsert(ctx context.Context, m *models.Map) error

	// GetByID returns a map by its identifier, or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.Map, error)

	// GetAll returns every stored map, newest first.
	GetAll(ctx context.Context) ([]models.Map, error)

	// DeleteAll removes every map.
	DeleteAll(ctx context.Context) error

	// Fingerprint returns a cheap digest of table state used for change
	// detection. Two equal fingerprints mean no observable change.
	Fingerprint(ctx context.Context) (string, error)
}
