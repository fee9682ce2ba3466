package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timeclock/punch"
)

var (
	office = punch.Location{ID: "loc-1", Name: "Office", Latitude: 40.4168, Longitude: -3.7038, Radius: 50}
	depot  = punch.Location{ID: "loc-2", Name: "Depot", Latitude: 41.3874, Longitude: 2.1686, Radius: 100}
)

func at(h, m int) time.Time {
	return time.Date(2025, time.March, 10, h, m, 0, 0, time.UTC)
}

func punchAt(id string, action punch.Action, t time.Time, c *punch.Coordinate) *punch.PunchEvent {
	return &punch.PunchEvent{ID: punch.EventID(id), UserID: "emp-1", Action: action, At: t, Coord: c}
}

func coord(lat, lon float64) *punch.Coordinate {
	return &punch.Coordinate{Latitude: lat, Longitude: lon}
}

func dur(d time.Duration) *time.Duration { return &d }

// =============================================================================
// FORMATTING
// =============================================================================

func TestFormatHHMM(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00"},
		{7*time.Hour + 40*time.Minute, "07:40"},
		{27*time.Hour + 5*time.Minute + 59*time.Second, "27:05"},
		{-30 * time.Minute, "-00:30"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatHHMM(tt.in))
	}
}

func TestDecimalHours(t *testing.T) {
	assert.Equal(t, "7.67", DecimalHours(7*time.Hour+40*time.Minute).StringFixed(2))
	assert.Equal(t, "0.17", DecimalHours(10*time.Minute).StringFixed(2))
	assert.Equal(t, "8.00", DecimalHours(8*time.Hour).StringFixed(2))
}

func TestFormatInstant_UsesZone(t *testing.T) {
	cet := time.FixedZone("CET", 3600)
	assert.Equal(t, "10:05 10/03/2025", FormatInstant(at(9, 5), cet))
	assert.Equal(t, "", FormatInstant(time.Time{}, cet))
}

// =============================================================================
// LABELS
// =============================================================================

func TestBreakLabel(t *testing.T) {
	assert.Equal(t, "no break", BreakLabel(punch.Interval{}))
	assert.Equal(t, "00:45", BreakLabel(punch.Interval{RealBreak: 45 * time.Minute}))
	assert.Equal(t, "on break (00:25)", BreakLabel(punch.Interval{RealBreak: 25 * time.Minute, BreakInProgress: true}))
}

func TestIntervalLabel(t *testing.T) {
	b := NewBuilder([]punch.Location{office, depot}, time.UTC)

	tests := []struct {
		name string
		iv   punch.Interval
		want string
	}{
		{
			name: "same place both ends",
			iv: punch.Interval{
				ClockIn:  punchAt("i", punch.ActionClockIn, at(9, 0), coord(40.4168, -3.7038)),
				ClockOut: punchAt("o", punch.ActionClockOut, at(17, 0), coord(40.4168, -3.7038)),
			},
			want: "Office",
		},
		{
			name: "different places",
			iv: punch.Interval{
				ClockIn:  punchAt("i", punch.ActionClockIn, at(9, 0), coord(40.4168, -3.7038)),
				ClockOut: punchAt("o", punch.ActionClockOut, at(17, 0), coord(41.3874, 2.1686)),
			},
			want: "Office - Depot",
		},
		{
			name: "unknown place shows coordinates",
			iv: punch.Interval{
				ClockIn: punchAt("i", punch.ActionClockIn, at(9, 0), coord(1.5, 2.25)),
			},
			want: "1.500000, 2.250000",
		},
		{
			name: "no coordinates",
			iv: punch.Interval{
				ClockOut: punchAt("o", punch.ActionClockOut, at(17, 0), nil),
			},
			want: NoData,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.IntervalLabel(tt.iv))
		})
	}
}

// =============================================================================
// ROWS
// =============================================================================

func TestBuildRows(t *testing.T) {
	// GIVEN: a complete interval with 10m overtime and an open one
	// WHEN: rendered
	// THEN: overtime shown, deficit blank, open interval has no exit or worked

	b := NewBuilder([]punch.Location{office}, time.UTC)
	rep := punch.Report{
		UserID: "emp-1",
		Intervals: []punch.Interval{
			{
				ClockIn: punchAt("i2", punch.ActionClockIn, at(18, 0), coord(40.4168, -3.7038)),
			},
			{
				ClockIn:        punchAt("i1", punch.ActionClockIn, at(9, 0), coord(40.4168, -3.7038)),
				ClockOut:       punchAt("o1", punch.ActionClockOut, at(17, 10), coord(40.4168, -3.7038)),
				RealBreak:      20 * time.Minute,
				EffectiveBreak: 30 * time.Minute,
				Worked:         7*time.Hour + 40*time.Minute,
				Overtime:       dur(10 * time.Minute),
				Deficit:        dur(0),
			},
		},
	}

	rows := b.BuildRows("Ana", rep)

	require.Len(t, rows, 2)
	open, done := rows[0], rows[1]

	assert.Equal(t, "18:00 10/03/2025", open.Entry)
	assert.Empty(t, open.Exit)
	assert.Empty(t, open.Worked)
	assert.Equal(t, "no break", open.Break)

	assert.Equal(t, "Ana", done.UserName)
	assert.Equal(t, "09:00 10/03/2025", done.Entry)
	assert.Equal(t, "17:10 10/03/2025", done.Exit)
	assert.Equal(t, "00:20", done.Break)
	assert.Equal(t, "Office", done.Location)
	assert.Equal(t, "07:40", done.Worked)
	assert.Equal(t, "00:10", done.Overtime)
	assert.Empty(t, done.Deficit)
}

// =============================================================================
// LOCATION FILTER
// =============================================================================

func TestFilterByLocation(t *testing.T) {
	locations := []punch.Location{office, depot}
	// ~55 m north of the office: inside radius+tolerance, outside the bare radius.
	nearOffice := coord(40.4168+55.0/111195.0, -3.7038)

	inOffice := *punchAt("a", punch.ActionClockIn, at(9, 0), coord(40.4168, -3.7038))
	edge := *punchAt("b", punch.ActionClockIn, at(9, 0), nearOffice)
	elsewhere := *punchAt("c", punch.ActionClockIn, at(9, 0), coord(10, 10))
	blind := *punchAt("d", punch.ActionClockIn, at(9, 0), nil)

	t.Run("all keeps everything", func(t *testing.T) {
		keep, err := FilterByLocation("all", locations)
		require.NoError(t, err)
		assert.Nil(t, keep)
	})

	t.Run("location uses zero tolerance", func(t *testing.T) {
		keep, err := FilterByLocation("loc-1", locations)
		require.NoError(t, err)
		assert.True(t, keep(inOffice))
		assert.False(t, keep(edge))
		assert.False(t, keep(elsewhere))
		assert.False(t, keep(blind))
	})

	t.Run("flexible keeps events outside every location", func(t *testing.T) {
		keep, err := FilterByLocation("Flexible", locations)
		require.NoError(t, err)
		assert.False(t, keep(inOffice))
		assert.False(t, keep(edge), "default tolerance still applies")
		assert.True(t, keep(elsewhere))
		assert.True(t, keep(blind))
	})

	t.Run("unknown location", func(t *testing.T) {
		_, err := FilterByLocation("loc-404", locations)
		assert.Error(t, err)
	})
}
