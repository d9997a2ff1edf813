package models

import (
	"slices"
	"time"
)

// PinType classifies a pin into one of a closed set of categories.
type PinType string

const (
	PinTypeMedical    PinType = "medical"
	PinTypeWater      PinType = "water"
	PinTypeCheckpoint PinType = "checkpoint"
	PinTypeShelter    PinType = "shelter"
	PinTypeFood       PinType = "food"
	PinTypeDanger     PinType = "danger"
	PinTypeOther      PinType = "other"
)

// PinTTLHours maps each pin type to its time-to-live in hours. A pin created
// with one of these types expires automatically.
var PinTTLHours = map[PinType]int{
	PinTypeMedical:    24,
	PinTypeWater:      12,
	PinTypeCheckpoint: 2,
	PinTypeShelter:    24,
	PinTypeFood:       12,
	PinTypeDanger:     6,
	PinTypeOther:      24,
}

// Pin is a point annotation belonging to exactly one map, as stored in the
// local store. Tags and PhotoURLs are JSON-encoded; at rest they (and
// Description) may be ciphertext.
type Pin struct {
	ID          string
	MapID       string
	Lat         float64
	Lng         float64
	Type        PinType // empty when uncategorized
	Tags        string  // JSON array of strings
	Description string
	PhotoURLs   string // JSON array of strings
	ExpiresAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PinData is the caller-supplied input for creating a pin.
type PinData struct {
	MapID       string
	Lat         float64
	Lng         float64
	Type        PinType
	Tags        []string
	Description string
	PhotoURLs   []string
	// ExpiresAt overrides the type-derived TTL when the type has none.
	ExpiresAt *time.Time
}

// PinUpdate carries a sparse update; nil fields are left untouched.
type PinUpdate struct {
	Type        *PinType
	Tags        []string
	Description *string
	PhotoURLs   []string
}

// EffectiveTags folds the pin type into the tag list: when typ is set and not
// already present it becomes the first tag. The input slice is not modified.
func EffectiveTags(typ PinType, tags []string) []string {
	out := slices.Clone(tags)
	if typ != "" && !slices.Contains(out, string(typ)) {
		out = append([]string{string(typ)}, out...)
	}
	return out
}

// ExpiryFor computes a pin's expiry: the type's TTL when configured,
// otherwise the caller-supplied value, otherwise nil (never expires).
func ExpiryFor(typ PinType, explicit *time.Time, now time.Time) *time.Time {
	if hours, ok := PinTTLHours[typ]; ok {
		t := now.Add(time.Duration(hours) * time.Hour)
		return &t
	}
	return explicit
}
