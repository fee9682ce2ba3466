/*
variance.go - Worked time, expected time and daily variance

PURPOSE:
  Given built intervals and the raw break events, computes worked time per
  interval and the overtime / deficit per (user, local date).

PER INTERVAL:
  worked = max(raw - effective_break, 0)

  With no schedule, or no expected work on that date, the baseline is
  missing and only the real break is deducted: worked = max(raw - real, 0).
  Open and orphan intervals carry no worked time.

PER DAY:
  worked_total   = sum of worked over intervals anchored that day
  expected_total = TheoreticalDuration(schedule, date), looked up once
  overtime       = max(worked_total - expected_total, 0)
  deficit        = max(expected_total - worked_total, 0)

  The figures belong to the day, not to an interval. For display they are
  attached to the first complete interval of the day; the others keep nil.

SEE ALSO:
  - period.go: Rolling days up into weeks and months
*/
package punch

import (
	"sort"
	"time"
)

// =============================================================================
// DAILY AGGREGATE
// =============================================================================

type DailyAggregate struct {
	UserID   UserID
	Date     Date
	Worked   time.Duration
	Expected time.Duration
	Overtime time.Duration
	Deficit  time.Duration
}

func NewDailyAggregate(user UserID, date Date, worked, expected time.Duration) DailyAggregate {
	return DailyAggregate{
		UserID:   user,
		Date:     date,
		Worked:   worked,
		Expected: expected,
		Overtime: max(worked-expected, 0),
		Deficit:  max(expected-worked, 0),
	}
}

// =============================================================================
// RECONCILER
// =============================================================================

// Reconciler turns intervals into worked figures for one time zone.
type Reconciler struct {
	Location *time.Location
}

type ReconcileInput struct {
	Intervals []Interval
	Events    []PunchEvent // break events are read from here
	Schedules map[UserID][]Schedule
	Now       time.Time
}

type Reconciliation struct {
	Intervals []Interval // same order as the input
	Days      []DailyAggregate
}

func (r Reconciler) loc() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

// Reconcile fills in the break and worked figures of every interval and
// returns one aggregate per (user, date) that has a complete interval.
func (r Reconciler) Reconcile(in ReconcileInput) Reconciliation {
	loc := r.loc()
	out := make([]Interval, len(in.Intervals))

	type dayTotals struct {
		worked time.Duration
		first  int
	}
	days := make(map[dayKey]*dayTotals)
	var keys []dayKey

	for i, iv := range in.Intervals {
		usage := ReconcileBreaks(iv, in.Events, in.Now)
		iv.RealBreak = usage.Real
		iv.BreakInProgress = usage.InProgress
		iv.EffectiveBreak = 0
		iv.Worked = 0
		iv.Overtime, iv.Deficit = nil, nil

		if raw, ok := iv.RawDuration(); ok {
			date := iv.AnchorDate(loc)
			iv.EffectiveBreak = effectiveBreak(ResolveSchedule(in.Schedules[iv.UserID]), date, usage.Real)
			iv.Worked = max(raw-iv.EffectiveBreak, 0)

			k := dayKey{user: iv.UserID, date: date}
			t, ok := days[k]
			if !ok {
				t = &dayTotals{first: i}
				days[k] = t
				keys = append(keys, k)
			}
			t.worked += iv.Worked
			if precedes(iv, in.Intervals[t.first]) {
				t.first = i
			}
		}
		out[i] = iv
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].user != keys[j].user {
			return keys[i].user < keys[j].user
		}
		return keys[i].date.Before(keys[j].date)
	})

	aggregates := make([]DailyAggregate, 0, len(keys))
	for _, k := range keys {
		t := days[k]
		expected := TheoreticalDuration(ResolveSchedule(in.Schedules[k.user]), k.date)
		agg := NewDailyAggregate(k.user, k.date, t.worked, expected)
		aggregates = append(aggregates, agg)

		overtime, deficit := agg.Overtime, agg.Deficit
		out[t.first].Overtime = &overtime
		out[t.first].Deficit = &deficit
	}

	return Reconciliation{Intervals: out, Days: aggregates}
}

// precedes orders intervals chronologically by anchor, then by event ID.
func precedes(a, b Interval) bool {
	aa, ba := a.Anchor(), b.Anchor()
	if !aa.Equal(ba) {
		return aa.Before(ba)
	}
	return a.anchorID() < b.anchorID()
}

// effectiveBreak applies the break policy of the day. Without a baseline
// (no schedule, non-working day) the real break is deducted as is.
func effectiveBreak(s *Schedule, date Date, taken time.Duration) time.Duration {
	if s == nil {
		return taken
	}
	spec, ok := s.DayFor(date.Weekday())
	if !ok || spec.Theoretical() == 0 {
		return taken
	}
	return spec.Break.Effective(taken)
}
