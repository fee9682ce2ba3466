package punch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func reconcile(events []PunchEvent, schedules []Schedule, now time.Time) Reconciliation {
	in := ReconcileInput{
		Intervals: BuildIntervals(events, time.UTC),
		Events:    events,
		Now:       now,
	}
	if schedules != nil {
		in.Schedules = map[UserID][]Schedule{testUser: schedules}
	}
	return Reconciler{Location: time.UTC}.Reconcile(in)
}

// =============================================================================
// PER-INTERVAL WORKED TIME
// =============================================================================

func TestReconcile_FixedBreakScheduleExample(t *testing.T) {
	// GIVEN: Schedule 09:00-17:00, fixed unpaid break 13:00-13:30
	// WHEN: clock_in 09:00, break 13:00-13:20, clock_out 17:10
	// THEN: raw 8h10, effective 30m, worked 7h40, expected 7h30, overtime 10m

	s := nineToFive(FixedBreak(Clock(13, 0), Clock(13, 30)))
	events := []PunchEvent{
		ev("e1", ActionClockIn, at(9, 0)),
		ev("e2", ActionBreakStart, at(13, 0)),
		ev("e3", ActionBreakEnd, at(13, 20)),
		ev("e4", ActionClockOut, at(17, 10)),
	}

	rec := reconcile(events, []Schedule{s}, at(20, 0))

	require.Len(t, rec.Intervals, 1)
	iv := rec.Intervals[0]
	raw, _ := iv.RawDuration()
	assert.Equal(t, 8*time.Hour+10*time.Minute, raw)
	assert.Equal(t, 20*time.Minute, iv.RealBreak)
	assert.Equal(t, 30*time.Minute, iv.EffectiveBreak)
	assert.Equal(t, 7*time.Hour+40*time.Minute, iv.Worked)

	require.Len(t, rec.Days, 1)
	day := rec.Days[0]
	assert.Equal(t, 7*time.Hour+30*time.Minute, day.Expected)
	assert.Equal(t, 10*time.Minute, day.Overtime)
	assert.Equal(t, time.Duration(0), day.Deficit)

	require.NotNil(t, iv.Overtime)
	assert.Equal(t, 10*time.Minute, *iv.Overtime)
	require.NotNil(t, iv.Deficit)
	assert.Equal(t, time.Duration(0), *iv.Deficit)
}

func TestReconcile_OptionalBreakUsesReal(t *testing.T) {
	brk := FixedBreak(Clock(13, 0), Clock(13, 30))
	brk.Optional = true
	s := nineToFive(brk)
	events := []PunchEvent{
		ev("e1", ActionClockIn, at(9, 0)),
		ev("e2", ActionBreakStart, at(13, 0)),
		ev("e3", ActionBreakEnd, at(13, 20)),
		ev("e4", ActionClockOut, at(17, 0)),
	}

	rec := reconcile(events, []Schedule{s}, at(20, 0))

	assert.Equal(t, 20*time.Minute, rec.Intervals[0].EffectiveBreak)
	assert.Equal(t, 7*time.Hour+40*time.Minute, rec.Intervals[0].Worked)
}

func TestReconcile_PaidBreakDeductsNothing(t *testing.T) {
	brk := FlexibleBreak(30)
	brk.Paid = true
	s := nineToFive(brk)
	events := []PunchEvent{
		ev("e1", ActionClockIn, at(9, 0)),
		ev("e2", ActionBreakStart, at(12, 0)),
		ev("e3", ActionBreakEnd, at(12, 30)),
		ev("e4", ActionClockOut, at(17, 0)),
	}

	rec := reconcile(events, []Schedule{s}, at(20, 0))

	assert.Equal(t, time.Duration(0), rec.Intervals[0].EffectiveBreak)
	assert.Equal(t, 8*time.Hour, rec.Intervals[0].Worked)
	assert.Equal(t, time.Duration(0), rec.Days[0].Overtime)
	assert.Equal(t, time.Duration(0), rec.Days[0].Deficit)
}

func TestReconcile_NoScheduleAllOvertime(t *testing.T) {
	// GIVEN: No schedule assigned
	// WHEN: clock_in 08:00, clock_out 16:30, no breaks
	// THEN: worked 8h30, all of it overtime, deficit 0

	events := []PunchEvent{
		ev("e1", ActionClockIn, at(8, 0)),
		ev("e2", ActionClockOut, at(16, 30)),
	}

	rec := reconcile(events, nil, at(20, 0))

	assert.Equal(t, 8*time.Hour+30*time.Minute, rec.Intervals[0].Worked)
	require.Len(t, rec.Days, 1)
	assert.Equal(t, time.Duration(0), rec.Days[0].Expected)
	assert.Equal(t, 8*time.Hour+30*time.Minute, rec.Days[0].Overtime)
	assert.Equal(t, time.Duration(0), rec.Days[0].Deficit)
}

func TestReconcile_NoScheduleDeductsRealBreak(t *testing.T) {
	events := []PunchEvent{
		ev("e1", ActionClockIn, at(8, 0)),
		ev("e2", ActionBreakStart, at(12, 0)),
		ev("e3", ActionBreakEnd, at(12, 45)),
		ev("e4", ActionClockOut, at(16, 0)),
	}

	rec := reconcile(events, nil, at(20, 0))

	assert.Equal(t, 45*time.Minute, rec.Intervals[0].EffectiveBreak)
	assert.Equal(t, 7*time.Hour+15*time.Minute, rec.Intervals[0].Worked)
}

func TestReconcile_NonWorkingDayAllOvertime(t *testing.T) {
	// Per-weekday schedule without Monday; 2025-03-10 is a Monday.
	s := NewWeeklySchedule("w", "weekly", map[time.Weekday]DaySpec{
		time.Tuesday: {Start: Clock(9, 0), End: Clock(17, 0), Break: FlexibleBreak(60)},
	})
	events := []PunchEvent{
		ev("e1", ActionClockIn, at(10, 0)),
		ev("e2", ActionClockOut, at(14, 0)),
	}

	rec := reconcile(events, []Schedule{s}, at(20, 0))

	assert.Equal(t, 4*time.Hour, rec.Intervals[0].Worked, "flexible break not imposed on a non-working day")
	assert.Equal(t, 4*time.Hour, rec.Days[0].Overtime)
}

// =============================================================================
// PER-DAY AGGREGATION
// =============================================================================

func TestReconcile_OneBudgetPerDay(t *testing.T) {
	// GIVEN: 8h schedule, two intervals 09:00-13:00 and 14:00-17:30
	// THEN: one aggregate; variance on the first interval only

	s := nineToFive(NoBreak())
	events := []PunchEvent{
		ev("e1", ActionClockIn, at(9, 0)),
		ev("e2", ActionClockOut, at(13, 0)),
		ev("e3", ActionClockIn, at(14, 0)),
		ev("e4", ActionClockOut, at(17, 30)),
	}

	rec := reconcile(events, []Schedule{s}, at(20, 0))

	require.Len(t, rec.Days, 1)
	assert.Equal(t, 7*time.Hour+30*time.Minute, rec.Days[0].Worked)
	assert.Equal(t, 30*time.Minute, rec.Days[0].Deficit)
	assert.Equal(t, time.Duration(0), rec.Days[0].Overtime)

	require.Len(t, rec.Intervals, 2)
	later, first := rec.Intervals[0], rec.Intervals[1]
	assert.Equal(t, EventID("e1"), first.ClockIn.ID)
	require.NotNil(t, first.Deficit)
	assert.Equal(t, 30*time.Minute, *first.Deficit)
	assert.Nil(t, later.Overtime)
	assert.Nil(t, later.Deficit)
}

func TestReconcile_OpenAndOrphanIntervalsCarryNothing(t *testing.T) {
	events := []PunchEvent{
		ev("o1", ActionClockOut, at(8, 0, 9)),
		ev("e1", ActionClockIn, at(9, 0)),
	}

	rec := reconcile(events, nil, at(12, 0))

	require.Len(t, rec.Intervals, 2)
	for _, iv := range rec.Intervals {
		assert.Equal(t, time.Duration(0), iv.Worked)
		assert.Nil(t, iv.Overtime)
	}
	assert.Empty(t, rec.Days, "no complete interval, no aggregate")
}

func TestReconcile_ExactlyOneOfOvertimeDeficit(t *testing.T) {
	s := nineToFive(NoBreak())
	for _, out := range []time.Time{at(16, 0), at(17, 0), at(18, 0)} {
		events := []PunchEvent{ev("e1", ActionClockIn, at(9, 0)), ev("e2", ActionClockOut, out)}
		d := reconcile(events, []Schedule{s}, at(20, 0)).Days[0]

		assert.Equal(t, max(d.Worked-d.Expected, 0), d.Overtime)
		assert.Equal(t, max(d.Expected-d.Worked, 0), d.Deficit)
		assert.False(t, d.Overtime > 0 && d.Deficit > 0)
	}
}

func TestReconcile_DayFollowsLocation(t *testing.T) {
	// 23:30 UTC on the 10th is 00:30 on the 11th in UTC+1.
	madrid := time.FixedZone("CET", 3600)
	events := []PunchEvent{
		ev("e1", ActionClockIn, at(23, 30)),
		ev("e2", ActionClockOut, at(3, 30, 11)),
	}

	rec := Reconciler{Location: madrid}.Reconcile(ReconcileInput{
		Intervals: BuildIntervals(events, madrid),
		Events:    events,
		Now:       at(12, 0, 11),
	})

	require.Len(t, rec.Days, 1)
	assert.Equal(t, NewDate(2025, time.March, 11), rec.Days[0].Date)
	assert.Equal(t, 4*time.Hour, rec.Days[0].Worked)
}
