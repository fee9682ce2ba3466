package punch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var office = Location{ID: "loc-1", Name: "Office", Latitude: 40.4168, Longitude: -3.7038, Radius: 50}

func TestHaversine_ZeroAndKnownDistance(t *testing.T) {
	c := office.Center()
	assert.InDelta(t, 0, HaversineMeters(c, c), 1e-9)
	assert.InDelta(t, 55, HaversineMeters(c, northOf(c, 55)), 1e-6)

	// Madrid to Barcelona is roughly 505 km.
	bcn := Coordinate{Latitude: 41.3874, Longitude: 2.1686}
	assert.InDelta(t, 505_000, HaversineMeters(c, bcn), 5_000)
}

func TestMatchLocation_RadiusPlusTolerance(t *testing.T) {
	// GIVEN: Location radius 50 m, tolerance 10 m
	// WHEN: Punching 55 m and 65 m away
	// THEN: 55 m is inside, 65 m is outside

	_, ok := MatchLocation(northOf(office.Center(), 55), []Location{office}, DefaultTolerance)
	assert.True(t, ok, "55 m should be authorised")

	_, ok = MatchLocation(northOf(office.Center(), 65), []Location{office}, DefaultTolerance)
	assert.False(t, ok, "65 m should be rejected")
}

func TestMatchLocation_FirstMatchWins(t *testing.T) {
	// GIVEN: Two overlapping locations, the second one closer
	far := Location{ID: "a", Name: "Wide", Latitude: office.Latitude, Longitude: office.Longitude, Radius: 500}
	near := Location{ID: "b", Name: "Near", Latitude: office.Latitude, Longitude: office.Longitude, Radius: 100}
	c := northOf(office.Center(), 30)

	got, ok := MatchLocation(c, []Location{far, near}, 0)

	assert.True(t, ok)
	assert.Equal(t, "a", got.ID, "first in list wins, not the nearest")
}

func TestMatchLocation_SkipsFlexibleAndZeroRadius(t *testing.T) {
	flex := Location{ID: "f", Name: "FLEXIBLE", Latitude: office.Latitude, Longitude: office.Longitude, Radius: 1000}
	zero := Location{ID: "z", Name: "Gate", Latitude: office.Latitude, Longitude: office.Longitude, Radius: 0}

	_, ok := MatchLocation(office.Center(), []Location{flex, zero}, 0)
	assert.False(t, ok)

	// With tolerance the zero-radius location becomes effective.
	got, ok := MatchLocation(office.Center(), []Location{flex, zero}, DefaultTolerance)
	assert.True(t, ok)
	assert.Equal(t, "z", got.ID)
}

func TestHasFlexible(t *testing.T) {
	assert.False(t, HasFlexible([]Location{office}))
	assert.True(t, HasFlexible([]Location{office, {Name: " flexible "}}))
}
