package storage

import (
	"context"
	"time"
)

// MapRow is a map as stored and served by the endpoint. The endpoint only
// ever sees plaintext; clients encrypt locally, not here.
type MapRow struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	IsPrivate      bool      `json:"is_private"`
	AccessToken    *string   `json:"access_token,omitempty"`
	FuzzingEnabled bool      `json:"fuzzing_enabled"`
	FuzzingRadius  float64   `json:"fuzzing_radius"`
	CreatedAt      time.Time `json:"created_at"`
}

// PinRow is a pin as stored and served by the endpoint. Coordinates arrive
// already fuzzed by the publishing client.
type PinRow struct {
	ID          string     `json:"id"`
	MapID       string     `json:"map_id"`
	Lat         float64    `json:"lat"`
	Lng         float64    `json:"lng"`
	Type        string     `json:"type"`
	Tags        []string   `json:"tags"`
	Description string     `json:"description"`
	PhotoURLs   []string   `json:"photo_urls"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Store is the persistence surface behind the REST handlers. Insert errors
// are mapped onto common.ErrDuplicateKey and common.ErrForeignKey so the
// handlers can shape the response without knowing the database.
type Store interface {
	Ping(ctx context.Context) error

	InsertMap(ctx context.Context, row MapRow) error
	InsertPin(ctx context.Context, row PinRow) error

	// Maps lists maps, optionally narrowed to a single id ("" means all).
	Maps(ctx context.Context, filterID string) ([]MapRow, error)
	Pins(ctx context.Context) ([]PinRow, error)

	DeleteMaps(ctx context.Context, ids []string) (int64, error)
	DeletePins(ctx context.Context, ids []string) (int64, error)
}
