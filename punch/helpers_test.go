package punch

import (
	"math"
	"time"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const testUser UserID = "emp-1"

// at builds a UTC instant on 2025-03-10 (a Monday) unless another day is given.
func at(hour, minute int, day ...int) time.Time {
	d := 10
	if len(day) > 0 {
		d = day[0]
	}
	return time.Date(2025, time.March, d, hour, minute, 0, 0, time.UTC)
}

func ev(id string, action Action, t time.Time) PunchEvent {
	return PunchEvent{ID: EventID(id), UserID: testUser, Action: action, At: t}
}

// northOf returns a coordinate d metres due north of c.
func northOf(c Coordinate, d float64) Coordinate {
	return Coordinate{
		Latitude:  c.Latitude + (d/EarthRadiusMeters)*180/math.Pi,
		Longitude: c.Longitude,
	}
}

func nineToFive(b BreakPolicy) Schedule {
	return NewUniformSchedule("sch-1", "office", DaySpec{Start: Clock(9, 0), End: Clock(17, 0), Break: b})
}
