package punch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// THEORETICAL DURATION
// =============================================================================

func TestTheoreticalDuration_BreakPolicies(t *testing.T) {
	monday := NewDate(2025, time.March, 10)

	tests := []struct {
		name string
		brk  BreakPolicy
		want time.Duration
	}{
		{"no break", NoBreak(), 8 * time.Hour},
		{"fixed 13:00-13:30", FixedBreak(Clock(13, 0), Clock(13, 30)), 7*time.Hour + 30*time.Minute},
		{"flexible 45m", FlexibleBreak(45), 7*time.Hour + 15*time.Minute},
		{"paid fixed", BreakPolicy{Kind: BreakFixed, Start: Clock(13, 0), End: Clock(14, 0), Paid: true}, 8 * time.Hour},
		{"optional fixed still expected", BreakPolicy{Kind: BreakFixed, Start: Clock(13, 0), End: Clock(14, 0), Optional: true}, 7 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := nineToFive(tt.brk)
			assert.Equal(t, tt.want, TheoreticalDuration(&s, monday))
		})
	}
}

func TestTheoreticalDuration_Overnight(t *testing.T) {
	// GIVEN: 22:00-06:00 with a fixed break 23:30-00:15 crossing midnight
	s := NewUniformSchedule("night", "night", DaySpec{
		Start: Clock(22, 0),
		End:   Clock(6, 0),
		Break: FixedBreak(Clock(23, 30), Clock(0, 15)),
	})

	// THEN: 8h span minus 45m break
	assert.Equal(t, 7*time.Hour+15*time.Minute, TheoreticalDuration(&s, NewDate(2025, time.March, 10)))
}

func TestTheoreticalDuration_PerWeekday(t *testing.T) {
	s := NewWeeklySchedule("w", "weekly", map[time.Weekday]DaySpec{
		time.Monday: {Start: Clock(8, 0), End: Clock(15, 0)},
		time.Friday: {Start: Clock(8, 0), End: Clock(14, 0), Break: FlexibleBreak(30)},
	})

	assert.Equal(t, 7*time.Hour, TheoreticalDuration(&s, NewDate(2025, time.March, 10)))
	assert.Equal(t, time.Duration(0), TheoreticalDuration(&s, NewDate(2025, time.March, 11)), "absent weekday is non-working")
	assert.Equal(t, 5*time.Hour+30*time.Minute, TheoreticalDuration(&s, NewDate(2025, time.March, 14)))
}

func TestTheoreticalDuration_ClampedAndNil(t *testing.T) {
	s := NewUniformSchedule("x", "short", DaySpec{Start: Clock(9, 0), End: Clock(9, 30), Break: FlexibleBreak(60)})
	assert.Equal(t, time.Duration(0), TheoreticalDuration(&s, NewDate(2025, time.March, 10)))
	assert.Equal(t, time.Duration(0), TheoreticalDuration(nil, NewDate(2025, time.March, 10)))

	empty := Schedule{ID: "empty"}
	assert.Equal(t, time.Duration(0), TheoreticalDuration(&empty, NewDate(2025, time.March, 10)))
}

// =============================================================================
// BREAK POLICY
// =============================================================================

func TestBreakPolicy_Effective(t *testing.T) {
	fixed := FixedBreak(Clock(13, 0), Clock(13, 30))

	assert.Equal(t, 30*time.Minute, fixed.Effective(20*time.Minute), "theoretical wins when under-used")
	assert.Equal(t, 45*time.Minute, fixed.Effective(45*time.Minute), "real wins when over-used")

	fixed.Optional = true
	assert.Equal(t, 20*time.Minute, fixed.Effective(20*time.Minute), "optional deducts only what was taken")

	fixed.Paid = true
	assert.Equal(t, time.Duration(0), fixed.Effective(20*time.Minute), "paid never deducts")
}

func TestBreakPolicy_BlocksManualBreaks(t *testing.T) {
	assert.True(t, FixedBreak(Clock(13, 0), Clock(13, 30)).BlocksManualBreaks())
	assert.False(t, BreakPolicy{Kind: BreakFixed, Optional: true}.BlocksManualBreaks())
	assert.False(t, FlexibleBreak(30).BlocksManualBreaks())
}

func TestResolveSchedule_FirstAssigned(t *testing.T) {
	assert.Nil(t, ResolveSchedule(nil))

	a := nineToFive(NoBreak())
	b := NewUniformSchedule("sch-2", "late", DaySpec{Start: Clock(12, 0), End: Clock(20, 0)})
	got := ResolveSchedule([]Schedule{a, b})
	require.NotNil(t, got)
	assert.Equal(t, "sch-1", got.ID)
}

// =============================================================================
// TIME OF DAY
// =============================================================================

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:05")
	require.NoError(t, err)
	assert.Equal(t, Clock(9, 5), tod)
	assert.Equal(t, "09:05", tod.String())

	tod, err = ParseTimeOfDay("23:59:30")
	require.NoError(t, err)
	assert.Equal(t, "23:59:30", tod.String())

	for _, bad := range []string{"", "24:00", "12:60", "noon", "1:2:3:4"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseLocalTime(t *testing.T) {
	madrid := time.FixedZone("CET", 3600)

	got, err := ParseLocalTime("2025-03-10T09:00", madrid)
	require.NoError(t, err)
	assert.Equal(t, at(8, 0), got)

	got, err = ParseLocalTime("2025-03-10 09:00:00", madrid)
	require.NoError(t, err)
	assert.Equal(t, at(8, 0), got)

	got, err = ParseLocalTime("2025-03-10T09:00:00Z", madrid)
	require.NoError(t, err)
	assert.Equal(t, at(9, 0), got, "explicit offset wins over loc")

	_, err = ParseLocalTime("10/03/2025", madrid)
	assert.ErrorIs(t, err, ErrInvalidManualTime)
}
