/*
store.go - Persistence interfaces consumed by the engine

PURPOSE:
  Defines what the engine needs from a database. Punches are append-only:
  there is no Update and no Delete. A correction appends a replacement event
  plus an EditRecord, and readers skip every event that has been edited.

KEY INTERFACES:
  EventReader:   latest event, events in a range, event by ID
  EventWriter:   append, record edit, attach justification
  TxStore:       per-user transaction around read -> validate -> append
  Directory:     a user's locations, schedules and enforcement settings
  SnapshotStore: frozen daily aggregates for fast payroll reads

SERIALISATION:
  WithUserTx runs fn against a transactional view. Concurrent punches for
  the same user must not both read the same "latest event": an
  implementation either serialises writers (SQLite, memory) or fails the
  losing transaction with ErrConcurrentPunch.

IMPLEMENTATIONS:
  - punch/store/memory.go: In-memory for tests
  - store/sqlite/sqlite.go: SQLite

SEE ALSO:
  - engine.go: The only writer
*/
package punch

import (
	"context"
	"time"
)

// =============================================================================
// EVENT STORE
// =============================================================================

type EventReader interface {
	// Latest returns the most recent live event whose action is one of
	// actions (any action when none are given). Returns nil when there is none.
	Latest(ctx context.Context, user UserID, actions ...Action) (*PunchEvent, error)

	// EventsInRange returns live events with from <= At < to, oldest first.
	EventsInRange(ctx context.Context, user UserID, from, to time.Time) ([]PunchEvent, error)

	// Event returns an event by ID, edited or not.
	Event(ctx context.Context, id EventID) (PunchEvent, error)
}

type EventWriter interface {
	// Append persists an event and returns its ID. This is the only way
	// a punch enters the store.
	Append(ctx context.Context, e PunchEvent) (EventID, error)

	// RecordEdit marks an event as superseded and keeps its prior values.
	RecordEdit(ctx context.Context, rec EditRecord) error

	AttachJustification(ctx context.Context, j Justification) error
}

type EventStore interface {
	EventReader
	EventWriter
}

// TxStore wraps EventStore with a per-user transaction.
type TxStore interface {
	EventStore

	// WithUserTx executes fn within a transaction scoped to user.
	// If fn returns an error the transaction is rolled back.
	WithUserTx(ctx context.Context, user UserID, fn func(EventStore) error) error
}

// =============================================================================
// DIRECTORY - Who may punch where and when
// =============================================================================

type Directory interface {
	LocationsOf(ctx context.Context, user UserID) ([]Location, error)

	// SchedulesOf returns schedules in assignment order.
	SchedulesOf(ctx context.Context, user UserID) ([]Schedule, error)

	SettingsOf(ctx context.Context, user UserID) (Settings, error)
}

// =============================================================================
// SNAPSHOTS - Frozen daily aggregates
// =============================================================================

// Snapshot is a DailyAggregate captured after the day has ended.
type Snapshot struct {
	ID      string
	TakenAt time.Time
	DailyAggregate
}

type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, s Snapshot) error
	Snapshots(ctx context.Context, user UserID, period Period) ([]Snapshot, error)
}
