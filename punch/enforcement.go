package punch

import (
	"time"
)

// =============================================================================
// SETTINGS - Per-user enforcement toggle
// =============================================================================

// Settings controls the schedule-window gate for one user.
type Settings struct {
	Enforce bool
	Margin  time.Duration

	// DetectSchedule is persisted for a future "pick the best matching
	// schedule" mode. It currently has no effect on resolution.
	DetectSchedule bool
}

// =============================================================================
// SCHEDULE WINDOW GATE
// =============================================================================

// CheckWindow admits now if it falls within [start-margin, end+margin] of any
// schedule's spec for today. Overnight specs started yesterday are honoured
// too, so 01:00 is inside a 22:00-06:00 shift that began the day before.
func CheckWindow(now time.Time, loc *time.Location, schedules []Schedule, margin time.Duration) error {
	if len(schedules) == 0 {
		return &Rejection{Kind: KindScheduleWindow, Reason: ErrNoScheduleAssigned.Error(), Err: ErrNoScheduleAssigned}
	}
	if margin < 0 {
		margin = 0
	}
	today := DateOf(now, loc)
	for _, s := range schedules {
		for _, d := range []Date{today, today.AddDays(-1)} {
			spec, ok := s.DayFor(d.Weekday())
			if !ok {
				continue
			}
			start, end := spec.Window(d, loc)
			if !now.Before(start.Add(-margin)) && !now.After(end.Add(margin)) {
				return nil
			}
		}
	}
	return rejectWindow(margin)
}
