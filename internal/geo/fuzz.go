// Package geo implements coordinate fuzzing for location privacy.
package geo

import (
	"math"
	"math/rand"
)

// metersPerDegree is the approximate length of one degree of latitude.
// Longitude shrinks by cos(latitude).
const metersPerDegree = 111000.0

// FuzzCoordinates displaces (lat, lng) to a uniformly random point within a
// disk of radiusMeters around the input. Non-deterministic: successive calls
// with the same input differ with overwhelming probability.
func FuzzCoordinates(lat, lng, radiusMeters float64) (float64, float64) {
	angle := rand.Float64() * 2 * math.Pi
	// sqrt keeps the distribution uniform over the disk area rather than
	// clustering near the center.
	distance := math.Sqrt(rand.Float64()) * radiusMeters

	latFuzz := (distance / metersPerDegree) * math.Cos(angle)
	lngFuzz := (distance / (metersPerDegree * math.Cos(lat*math.Pi/180))) * math.Sin(angle)

	return lat + latFuzz, lng + lngFuzz
}

// FuzzToGrid deterministically snaps (lat, lng) to the nearest point of a
// geographic grid with cells of gridSizeMeters. Same input, same output.
func FuzzToGrid(lat, lng, gridSizeMeters float64) (float64, float64) {
	latGrid := gridSizeMeters / metersPerDegree
	lngGrid := gridSizeMeters / (metersPerDegree * math.Cos(lat*math.Pi/180))

	return math.Round(lat/latGrid) * latGrid, math.Round(lng/lngGrid) * lngGrid
}

// DistanceMeters approximates the distance between two coordinates using the
// same flat-earth degree scaling as the fuzzers. Good enough for the short
// distances fuzzing operates on.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * metersPerDegree
	dLng := (lng2 - lng1) * metersPerDegree * math.Cos(lat1*math.Pi/180)
	return math.Hypot(dLat, dLng)
}
