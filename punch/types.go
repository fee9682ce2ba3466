/*
Package punch provides the time-clock reconciliation engine.

PURPOSE:
  Turns an append-only stream of punch events (clock-in, clock-out, break
  start/end) into validated work intervals, measures real vs. theoretical
  work per day and derives overtime and deficit figures. It also gates each
  new punch against sequence, schedule-window and geofence rules.

KEY CONCEPTS IN THIS FILE (types.go):
  - PunchEvent: An immutable, timestamped action recorded for a user
  - Action: clock_in | clock_out | break_start | break_end
  - Coordinate: Optional device position attached to a punch
  - EditRecord: Audit entry written when an event is amended or retracted

DESIGN PRINCIPLES:
  1. Append-only: events are never updated; edits append a replacement
  2. Derived state: intervals and aggregates are recomputed on demand
  3. UTC instants in, local calendar dates out (one named zone per engine)

SEE ALSO:
  - sequence.go: Punch admission state machine
  - interval.go: Pairing events into intervals
  - variance.go: Worked vs. expected per day
  - engine.go: Store-backed orchestration
*/
package punch

import (
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type EventID string

// =============================================================================
// ACTION
// =============================================================================

type Action string

const (
	ActionClockIn    Action = "clock_in"
	ActionClockOut   Action = "clock_out"
	ActionBreakStart Action = "break_start"
	ActionBreakEnd   Action = "break_end"
)

// Valid reports whether a is one of the four known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionClockIn, ActionClockOut, ActionBreakStart, ActionBreakEnd:
		return true
	}
	return false
}

// IsWork is true for clock_in and clock_out.
func (a Action) IsWork() bool { return a == ActionClockIn || a == ActionClockOut }

// IsBreak is true for break_start and break_end.
func (a Action) IsBreak() bool { return a == ActionBreakStart || a == ActionBreakEnd }

// =============================================================================
// PUNCH EVENT
// =============================================================================

type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// Valid reports whether the coordinate lies on the globe.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// PunchEvent is a single recorded action. Immutable once appended.
type PunchEvent struct {
	ID     EventID
	UserID UserID
	Action Action
	At     time.Time // UTC instant of the punch
	Coord  *Coordinate

	CreatedAt time.Time
}

func (e PunchEvent) HasCoordinate() bool { return e.Coord != nil }

// before orders events by timestamp, then by ID so sorting is deterministic.
func (e PunchEvent) before(o PunchEvent) bool {
	if !e.At.Equal(o.At) {
		return e.At.Before(o.At)
	}
	return e.ID < o.ID
}

// =============================================================================
// EDITS AND JUSTIFICATIONS
// =============================================================================

type EditKind string

const (
	EditAmend   EditKind = "amend"   // replaced by ReplacementID
	EditRetract EditKind = "retract" // removed without replacement
)

// EditRecord is the audit trail of a manual correction. The edited event stays
// in the store; readers skip it once an EditRecord references it.
type EditRecord struct {
	ID            string
	EventID       EventID
	Kind          EditKind
	ReplacementID EventID
	EditorID      string
	EditorIP      string
	EditedAt      time.Time
	Previous      PunchEvent
}

// Justification explains overtime at clock-out.
type Justification struct {
	ID        string
	EventID   EventID
	Reason    string
	Detail    string
	CreatedAt time.Time
}
