/*
schedule.go - Expected working windows and break policy

PURPOSE:
  A Schedule says when a user is expected to work on a given weekday and how
  breaks are accounted for. It is read-only: the engine only asks two
  questions of it, "how long should this day be?" and "what is the window
  for enforcement?".

SHAPES:
  Uniform:    one DaySpec applied to every day
  Per-weekday: a map weekday -> DaySpec; missing weekdays are non-working

BREAK POLICY (closed set):
  none                 no break is deducted
  fixed(start, end)    theoretical break is end-start (wraps midnight)
  flexible(minutes)    theoretical break is the configured minutes
  Optional=true        only the break actually taken is deducted
  Paid=true            nothing is deducted, whatever was taken

SEE ALSO:
  - breaks.go: Effective break selection in context
  - enforcement.go: Schedule-window admission
*/
package punch

import (
	"time"
)

// =============================================================================
// BREAK POLICY
// =============================================================================

type BreakKind string

const (
	BreakNone     BreakKind = "none"
	BreakFixed    BreakKind = "fixed"
	BreakFlexible BreakKind = "flexible"
)

type BreakPolicy struct {
	Kind BreakKind

	// Fixed breaks
	Start TimeOfDay
	End   TimeOfDay

	// Flexible breaks
	Minutes int

	Optional bool
	Paid     bool
}

func NoBreak() BreakPolicy { return BreakPolicy{Kind: BreakNone} }

func FixedBreak(start, end TimeOfDay) BreakPolicy {
	return BreakPolicy{Kind: BreakFixed, Start: start, End: end}
}

func FlexibleBreak(minutes int) BreakPolicy {
	return BreakPolicy{Kind: BreakFlexible, Minutes: minutes}
}

// Theoretical is the break the schedule expects. Paid breaks cost nothing.
func (b BreakPolicy) Theoretical() time.Duration {
	if b.Paid {
		return 0
	}
	switch b.Kind {
	case BreakFixed:
		if b.Start == b.End {
			return 0
		}
		return b.Start.Until(b.End)
	case BreakFlexible:
		if b.Minutes <= 0 {
			return 0
		}
		return time.Duration(b.Minutes) * time.Minute
	default:
		return 0
	}
}

// Effective returns the break to subtract given the break actually taken.
func (b BreakPolicy) Effective(taken time.Duration) time.Duration {
	switch {
	case b.Paid:
		return 0
	case b.Optional:
		return taken
	default:
		return max(taken, b.Theoretical())
	}
}

// BlocksManualBreaks is true when breaks are taken at a fixed time that the
// user cannot punch themselves.
func (b BreakPolicy) BlocksManualBreaks() bool {
	return b.Kind == BreakFixed && !b.Optional
}

// =============================================================================
// DAY SPEC
// =============================================================================

type DaySpec struct {
	Start TimeOfDay
	End   TimeOfDay
	Break BreakPolicy
}

// Span is end-start, wrapping overnight when End <= Start.
func (d DaySpec) Span() time.Duration { return d.Start.Until(d.End) }

// Theoretical is Span minus the theoretical break, never negative.
func (d DaySpec) Theoretical() time.Duration {
	return max(d.Span()-d.Break.Theoretical(), 0)
}

// Window returns the local [start, end] instants of the day spec on date.
// Overnight specs end on the following day.
func (d DaySpec) Window(date Date, loc *time.Location) (time.Time, time.Time) {
	start := d.Start.On(date, loc)
	return start, start.Add(d.Span())
}

// =============================================================================
// SCHEDULE
// =============================================================================

type Schedule struct {
	ID      string
	Name    string
	PerDay  bool
	Uniform *DaySpec
	Days    map[time.Weekday]DaySpec
}

func NewUniformSchedule(id, name string, spec DaySpec) Schedule {
	return Schedule{ID: id, Name: name, Uniform: &spec}
}

func NewWeeklySchedule(id, name string, days map[time.Weekday]DaySpec) Schedule {
	return Schedule{ID: id, Name: name, PerDay: true, Days: days}
}

// DayFor returns the day spec that applies on weekday wd, or false if the
// schedule does not expect work that day.
func (s Schedule) DayFor(wd time.Weekday) (DaySpec, bool) {
	if s.PerDay {
		spec, ok := s.Days[wd]
		return spec, ok
	}
	if s.Uniform == nil {
		return DaySpec{}, false
	}
	return *s.Uniform, true
}

// TheoreticalDuration is the expected work for date d. A nil schedule or a
// non-working day yields zero.
func TheoreticalDuration(s *Schedule, d Date) time.Duration {
	if s == nil {
		return 0
	}
	spec, ok := s.DayFor(d.Weekday())
	if !ok {
		return 0
	}
	return spec.Theoretical()
}

// ResolveSchedule picks the schedule that governs a user. With several
// assigned, the first in assignment order wins.
func ResolveSchedule(schedules []Schedule) *Schedule {
	if len(schedules) == 0 {
		return nil
	}
	s := schedules[0]
	return &s
}
