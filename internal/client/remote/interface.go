package remote

import (
	"context"
	"time"
)

// MapRecord is a map row as the remote endpoint returns it.
type MapRecord struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	IsPrivate      bool      `json:"is_private"`
	AccessToken    string    `json:"access_token"`
	FuzzingEnabled bool      `json:"fuzzing_enabled"`
	FuzzingRadius  float64   `json:"fuzzing_radius"`
	CreatedAt      time.Time `json:"created_at"`
}

// PinRecord is a pin row as the remote endpoint returns it.
type PinRecord struct {
	ID          string     `json:"id"`
	MapID       string     `json:"map_id"`
	Lat         float64    `json:"lat"`
	Lng         float64    `json:"lng"`
	Type        string     `json:"type"`
	Tags        []string   `json:"tags"`
	Description string     `json:"description"`
	PhotoURLs   []string   `json:"photo_urls"`
	ExpiresAt   *time.Time `json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Client is the shared-endpoint API consumed by the sync and queue layers.
// Write payloads are generic maps so the queue can strip optional fields when
// the endpoint runs an older schema. Errors are mapped onto the common
// sentinels (ErrUnavailable, ErrForeignKey, ErrUnknownColumn, ErrDuplicateKey).
type Client interface {
	// Ping reports endpoint reachability.
	Ping(ctx context.Context) error

	// CreateMap publishes a map.
	CreateMap(ctx context.Context, payload map[string]any) error

	// CreatePin publishes a pin.
	CreatePin(ctx context.Context, payload map[string]any) error

	// MapExists checks whether the endpoint knows the map id.
	MapExists(ctx context.Context, id string) (bool, error)

	// ListMaps and ListPins return full rows, used by the initial
	// replication snapshot.
	ListMaps(ctx context.Context) ([]MapRecord, error)
	ListPins(ctx context.Context) ([]PinRecord, error)

	// ListMapIDs and ListPinIDs return only ids, used by the panic wipe.
	ListMapIDs(ctx context.Context) ([]string, error)
	ListPinIDs(ctx context.Context) ([]string, error)

	// DeleteMaps and DeletePins remove rows by id, batching large sets.
	DeleteMaps(ctx context.Context, ids []string) error
	DeletePins(ctx context.Context, ids []string) error
}
