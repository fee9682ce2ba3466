package punch

import (
	"math"
	"strings"
)

// =============================================================================
// GEOFENCE
// =============================================================================

const (
	EarthRadiusMeters = 6371000.0

	// DefaultTolerance is added to every location radius to absorb GPS jitter.
	DefaultTolerance = 10.0

	// FlexibleLocationName marks the sentinel location that disables
	// geofencing for whoever holds it.
	FlexibleLocationName = "flexible"
)

// Location is an authorised punching area. Radius is in metres.
type Location struct {
	ID        string
	Name      string
	Latitude  float64
	Longitude float64
	Radius    float64
}

func (l Location) Center() Coordinate {
	return Coordinate{Latitude: l.Latitude, Longitude: l.Longitude}
}

// IsFlexible reports whether l is the unrestricted sentinel location.
func (l Location) IsFlexible() bool {
	return strings.EqualFold(strings.TrimSpace(l.Name), FlexibleLocationName)
}

// HaversineMeters returns the great-circle distance between a and b.
func HaversineMeters(a, b Coordinate) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// MatchLocation returns the first location whose distance from c is within
// radius + tolerance. Order matters: the first match wins, not the nearest.
// Flexible locations and locations with no effective radius never match.
func MatchLocation(c Coordinate, locations []Location, tolerance float64) (Location, bool) {
	for _, loc := range locations {
		if loc.IsFlexible() {
			continue
		}
		limit := loc.Radius + tolerance
		if limit <= 0 {
			continue
		}
		if HaversineMeters(c, loc.Center()) <= limit {
			return loc, true
		}
	}
	return Location{}, false
}

// HasFlexible reports whether any of the locations is the flexible sentinel.
func HasFlexible(locations []Location) bool {
	for _, loc := range locations {
		if loc.IsFlexible() {
			return true
		}
	}
	return false
}
