/*
interval.go - Pairing clock events into work intervals

PURPOSE:
  Rebuilds a user's work intervals from raw clock_in / clock_out events.
  Histories are not trusted to be clean: a missing clock_out leaves an
  orphan clock_in, a clock_out with nothing open becomes an orphan
  clock_out, and editing one side of a pair can leave duplicate rows.

ALGORITHM:
  1. Group by user, sort by timestamp (ties by event ID)
  2. Single pass with a pending clock_in:
       clock_in  + pending      -> flush pending as orphan, new pending
       clock_out + pending      -> complete interval
       clock_out + no pending   -> orphan clock_out
     trailing pending           -> orphan clock_in
  3. Group by (user, local date of anchor). When a group holds a complete
     interval, drop orphans whose only timestamp repeats the same side of
     a complete interval in that group.
  4. Sort by anchor descending.

  The builder is a pure function of its input, so running it twice on the
  same events yields the same list.

SEE ALSO:
  - breaks.go: Real break time inside an interval
  - variance.go: Worked time and daily variance
*/
package punch

import (
	"sort"
	"time"
)

// =============================================================================
// INTERVAL
// =============================================================================

// Interval is a derived [clock_in, clock_out] pair. At most one side is nil.
type Interval struct {
	UserID   UserID
	ClockIn  *PunchEvent
	ClockOut *PunchEvent

	RealBreak       time.Duration
	BreakInProgress bool
	EffectiveBreak  time.Duration
	Worked          time.Duration

	// Overtime and Deficit are set only on the representative interval of a
	// day. Every other interval of that day leaves them nil.
	Overtime *time.Duration
	Deficit  *time.Duration
}

func (iv Interval) IsComplete() bool { return iv.ClockIn != nil && iv.ClockOut != nil }

// IsOpen is true for a clock_in still waiting for its clock_out.
func (iv Interval) IsOpen() bool { return iv.ClockIn != nil && iv.ClockOut == nil }

// Anchor is the timestamp that dates the interval: clock_in if present,
// otherwise clock_out.
func (iv Interval) Anchor() time.Time {
	if iv.ClockIn != nil {
		return iv.ClockIn.At
	}
	if iv.ClockOut != nil {
		return iv.ClockOut.At
	}
	return time.Time{}
}

// AnchorDate is the local calendar day of the anchor.
func (iv Interval) AnchorDate(loc *time.Location) Date {
	return DateOf(iv.Anchor(), loc)
}

// RawDuration is clock_out - clock_in. A negative span (clock_out stored
// before clock_in across midnight) is corrected by adding 24h once.
// Orphans have no raw duration.
func (iv Interval) RawDuration() (time.Duration, bool) {
	if !iv.IsComplete() {
		return 0, false
	}
	d := iv.ClockOut.At.Sub(iv.ClockIn.At)
	if d < 0 {
		d += fullDay
	}
	return d, true
}

func (iv Interval) anchorID() EventID {
	if iv.ClockIn != nil {
		return iv.ClockIn.ID
	}
	return iv.ClockOut.ID
}

// =============================================================================
// BUILDER
// =============================================================================

// BuildIntervals pairs clock_in / clock_out events into intervals. Break
// events in the input are ignored. loc decides the calendar date used to
// group duplicates.
func BuildIntervals(events []PunchEvent, loc *time.Location) []Interval {
	byUser := make(map[UserID][]PunchEvent)
	var users []UserID
	for _, e := range events {
		if !e.Action.IsWork() {
			continue
		}
		if _, seen := byUser[e.UserID]; !seen {
			users = append(users, e.UserID)
		}
		byUser[e.UserID] = append(byUser[e.UserID], e)
	}

	var raw []Interval
	for _, uid := range users {
		raw = append(raw, pairEvents(uid, byUser[uid])...)
	}

	out := dedupe(raw, loc)
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := out[i].Anchor(), out[j].Anchor()
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].anchorID() < out[j].anchorID()
	})
	return out
}

func pairEvents(uid UserID, events []PunchEvent) []Interval {
	sorted := make([]PunchEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].before(sorted[j]) })

	var out []Interval
	var pending *PunchEvent
	for i := range sorted {
		e := sorted[i]
		switch e.Action {
		case ActionClockIn:
			if pending != nil {
				out = append(out, Interval{UserID: uid, ClockIn: pending})
			}
			pending = &e
		case ActionClockOut:
			if pending != nil {
				out = append(out, Interval{UserID: uid, ClockIn: pending, ClockOut: &e})
				pending = nil
			} else {
				out = append(out, Interval{UserID: uid, ClockOut: &e})
			}
		}
	}
	if pending != nil {
		out = append(out, Interval{UserID: uid, ClockIn: pending})
	}
	return out
}

type dayKey struct {
	user UserID
	date Date
}

func dedupe(intervals []Interval, loc *time.Location) []Interval {
	groups := make(map[dayKey][]int)
	for i, iv := range intervals {
		k := dayKey{user: iv.UserID, date: iv.AnchorDate(loc)}
		groups[k] = append(groups[k], i)
	}

	drop := make(map[int]bool)
	for _, idxs := range groups {
		ins := make(map[time.Time]bool)
		outs := make(map[time.Time]bool)
		for _, i := range idxs {
			if iv := intervals[i]; iv.IsComplete() {
				ins[iv.ClockIn.At.UTC()] = true
				outs[iv.ClockOut.At.UTC()] = true
			}
		}
		if len(ins) == 0 {
			continue
		}
		for _, i := range idxs {
			iv := intervals[i]
			switch {
			case iv.IsComplete():
			case iv.ClockIn != nil && ins[iv.ClockIn.At.UTC()]:
				drop[i] = true
			case iv.ClockOut != nil && outs[iv.ClockOut.At.UTC()]:
				drop[i] = true
			}
		}
	}

	out := make([]Interval, 0, len(intervals)-len(drop))
	for i, iv := range intervals {
		if !drop[i] {
			out = append(out, iv)
		}
	}
	return out
}
