// Package models defines the map and pin types held in the local store and
// the shapes used by the retry queue.
package models

import "time"

// Map is a named collaborative canvas. Maps are created once and never
// updated in place; only a panic wipe removes them.
type Map struct {
	ID        string
	Name      string
	IsPrivate bool
	// AccessToken is present iff IsPrivate. At rest in the local store the
	// value may be ciphertext (see cryptox.IsEncrypted).
	AccessToken    string
	FuzzingEnabled bool
	FuzzingRadius  float64
	CreatedAt      time.Time
}

// DefaultFuzzingRadiusMeters applies when a map enables fuzzing without an
// explicit radius.
const DefaultFuzzingRadiusMeters = 100.0
