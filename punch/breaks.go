package punch

import (
	"sort"
	"time"
)

// OrphanBreakLookback is how far before an orphan clock_out break events are
// still attributed to it. Only used for display.
const OrphanBreakLookback = 12 * time.Hour

// BreakUsage is the break actually taken inside one interval.
type BreakUsage struct {
	Real       time.Duration
	InProgress bool
	OpenSince  *time.Time
}

// breakWindow returns the inclusive window searched for break events.
// Open intervals run until now.
func breakWindow(iv Interval, now time.Time) (time.Time, time.Time, bool) {
	var from, to time.Time
	switch {
	case iv.ClockIn != nil:
		from = iv.ClockIn.At
	case iv.ClockOut != nil:
		from = iv.ClockOut.At.Add(-OrphanBreakLookback)
	default:
		return from, to, false
	}
	if iv.ClockOut != nil {
		to = iv.ClockOut.At
	} else {
		to = now
	}
	if to.Before(from) {
		to = to.Add(fullDay)
	}
	return from, to, true
}

// ReconcileBreaks measures the real break inside iv from the user's break
// events. Closed pairs accumulate. A second break_start while one is open is
// ignored. A break still open at the window end counts up to that end: it is
// "in progress" for an open interval, and silently closed by the clock_out
// otherwise.
func ReconcileBreaks(iv Interval, events []PunchEvent, now time.Time) BreakUsage {
	from, to, ok := breakWindow(iv, now)
	if !ok {
		return BreakUsage{}
	}

	var breaks []PunchEvent
	for _, e := range events {
		if e.UserID != iv.UserID || !e.Action.IsBreak() {
			continue
		}
		if e.At.Before(from) || e.At.After(to) {
			continue
		}
		breaks = append(breaks, e)
	}
	sort.SliceStable(breaks, func(i, j int) bool { return breaks[i].before(breaks[j]) })

	var usage BreakUsage
	var open *time.Time
	for _, e := range breaks {
		switch e.Action {
		case ActionBreakStart:
			if open == nil {
				at := e.At
				open = &at
			}
		case ActionBreakEnd:
			if open == nil {
				continue
			}
			usage.Real += max(e.At.Sub(*open), 0)
			open = nil
		}
	}

	if open != nil {
		usage.Real += max(to.Sub(*open), 0)
		if iv.ClockOut == nil {
			usage.InProgress = true
			usage.OpenSince = open
		}
	}
	return usage
}
