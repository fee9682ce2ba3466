// Package store provides in-memory implementations of the punch store
// interfaces.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/timeclock/punch"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu             sync.RWMutex
	events         map[punch.UserID][]punch.PunchEvent // sorted by At, then ID
	byID           map[punch.EventID]punch.PunchEvent
	edits          map[punch.EventID]punch.EditRecord
	justifications map[punch.EventID]punch.Justification

	locations map[punch.UserID][]punch.Location
	schedules map[punch.UserID][]punch.Schedule
	settings  map[punch.UserID]punch.Settings
	snapshots map[snapshotKey]punch.Snapshot
}

type snapshotKey struct {
	user punch.UserID
	date punch.Date
}

func NewMemory() *Memory {
	return &Memory{
		events:         make(map[punch.UserID][]punch.PunchEvent),
		byID:           make(map[punch.EventID]punch.PunchEvent),
		edits:          make(map[punch.EventID]punch.EditRecord),
		justifications: make(map[punch.EventID]punch.Justification),
		locations:      make(map[punch.UserID][]punch.Location),
		schedules:      make(map[punch.UserID][]punch.Schedule),
		settings:       make(map[punch.UserID]punch.Settings),
		snapshots:      make(map[snapshotKey]punch.Snapshot),
	}
}

// Append adds a single event. Append-only.
func (m *Memory) Append(_ context.Context, e punch.PunchEvent) (punch.EventID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(e)
}

func (m *Memory) appendLocked(e punch.PunchEvent) (punch.EventID, error) {
	if e.ID == "" {
		return "", fmt.Errorf("event without ID")
	}
	if _, exists := m.byID[e.ID]; exists {
		return "", fmt.Errorf("duplicate event %s", e.ID)
	}
	e.At = e.At.UTC()
	evs := m.events[e.UserID]

	// Binary search for insertion point keeps the slice ordered.
	i := sort.Search(len(evs), func(i int) bool {
		if evs[i].At.Equal(e.At) {
			return evs[i].ID > e.ID
		}
		return evs[i].At.After(e.At)
	})
	evs = append(evs, punch.PunchEvent{})
	copy(evs[i+1:], evs[i:])
	evs[i] = e
	m.events[e.UserID] = evs
	m.byID[e.ID] = e
	return e.ID, nil
}

func (m *Memory) RecordEdit(_ context.Context, rec punch.EditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recordEditLocked(rec)
}

func (m *Memory) recordEditLocked(rec punch.EditRecord) error {
	if _, ok := m.byID[rec.EventID]; !ok {
		return punch.ErrEventNotFound
	}
	if _, edited := m.edits[rec.EventID]; edited {
		return fmt.Errorf("event %s: %w", rec.EventID, punch.ErrEventAlreadyEdited)
	}
	m.edits[rec.EventID] = rec
	return nil
}

func (m *Memory) AttachJustification(_ context.Context, j punch.Justification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attachLocked(j)
}

func (m *Memory) attachLocked(j punch.Justification) error {
	if _, ok := m.byID[j.EventID]; !ok {
		return punch.ErrEventNotFound
	}
	m.justifications[j.EventID] = j
	return nil
}

func (m *Memory) Latest(_ context.Context, user punch.UserID, actions ...punch.Action) (*punch.PunchEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latestLocked(user, actions), nil
}

func (m *Memory) latestLocked(user punch.UserID, actions []punch.Action) *punch.PunchEvent {
	evs := m.events[user]
	for i := len(evs) - 1; i >= 0; i-- {
		e := evs[i]
		if _, edited := m.edits[e.ID]; edited {
			continue
		}
		if len(actions) == 0 || containsAction(actions, e.Action) {
			return &e
		}
	}
	return nil
}

func containsAction(actions []punch.Action, a punch.Action) bool {
	for _, x := range actions {
		if x == a {
			return true
		}
	}
	return false
}

func (m *Memory) EventsInRange(_ context.Context, user punch.UserID, from, to time.Time) ([]punch.PunchEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rangeLocked(user, from, to), nil
}

func (m *Memory) rangeLocked(user punch.UserID, from, to time.Time) []punch.PunchEvent {
	var result []punch.PunchEvent
	for _, e := range m.events[user] {
		if e.At.Before(from) || !e.At.Before(to) {
			continue
		}
		if _, edited := m.edits[e.ID]; edited {
			continue
		}
		result = append(result, e)
	}
	return result
}

func (m *Memory) Event(_ context.Context, id punch.EventID) (punch.PunchEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.byID[id]
	if !ok {
		return punch.PunchEvent{}, punch.ErrEventNotFound
	}
	return e, nil
}

// Edit returns the edit record of an event, if any.
func (m *Memory) Edit(id punch.EventID) (punch.EditRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.edits[id]
	return rec, ok
}

// JustificationFor returns the justification attached to a clock_out.
func (m *Memory) JustificationFor(id punch.EventID) (punch.Justification, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.justifications[id]
	return j, ok
}

// =============================================================================
// DIRECTORY
// =============================================================================

func (m *Memory) SetLocations(user punch.UserID, locs ...punch.Location) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[user] = append([]punch.Location(nil), locs...)
}

func (m *Memory) SetSchedules(user punch.UserID, schedules ...punch.Schedule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[user] = append([]punch.Schedule(nil), schedules...)
}

func (m *Memory) SetSettings(user punch.UserID, s punch.Settings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[user] = s
}

func (m *Memory) LocationsOf(_ context.Context, user punch.UserID) ([]punch.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]punch.Location(nil), m.locations[user]...), nil
}

func (m *Memory) SchedulesOf(_ context.Context, user punch.UserID) ([]punch.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]punch.Schedule(nil), m.schedules[user]...), nil
}

func (m *Memory) SettingsOf(_ context.Context, user punch.UserID) (punch.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings[user], nil
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// SaveSnapshot stores or replaces the snapshot of (user, date).
func (m *Memory) SaveSnapshot(_ context.Context, s punch.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snapshotKey{user: s.UserID, date: s.Date}] = s
	return nil
}

func (m *Memory) Snapshots(_ context.Context, user punch.UserID, period punch.Period) ([]punch.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []punch.Snapshot
	for k, s := range m.snapshots {
		if k.user == user && period.Contains(k.date) {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithUserTx executes fn within a transaction. Writers are serialised by
// the store mutex; on error the event state is restored from a snapshot.
func (tm *TxMemory) WithUserTx(_ context.Context, _ punch.UserID, fn func(punch.EventStore) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	if err := fn(&txMemoryView{parent: tm.Memory}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	events         map[punch.UserID][]punch.PunchEvent
	byID           map[punch.EventID]punch.PunchEvent
	edits          map[punch.EventID]punch.EditRecord
	justifications map[punch.EventID]punch.Justification
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		events:         make(map[punch.UserID][]punch.PunchEvent, len(tm.events)),
		byID:           make(map[punch.EventID]punch.PunchEvent, len(tm.byID)),
		edits:          make(map[punch.EventID]punch.EditRecord, len(tm.edits)),
		justifications: make(map[punch.EventID]punch.Justification, len(tm.justifications)),
	}
	for k, v := range tm.events {
		s.events[k] = append([]punch.PunchEvent{}, v...)
	}
	for k, v := range tm.byID {
		s.byID[k] = v
	}
	for k, v := range tm.edits {
		s.edits[k] = v
	}
	for k, v := range tm.justifications {
		s.justifications[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.events = s.events
	tm.byID = s.byID
	tm.edits = s.edits
	tm.justifications = s.justifications
}

// txMemoryView runs against the parent while its write lock is held.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) Append(_ context.Context, e punch.PunchEvent) (punch.EventID, error) {
	return tv.parent.appendLocked(e)
}

func (tv *txMemoryView) RecordEdit(_ context.Context, rec punch.EditRecord) error {
	return tv.parent.recordEditLocked(rec)
}

func (tv *txMemoryView) AttachJustification(_ context.Context, j punch.Justification) error {
	return tv.parent.attachLocked(j)
}

func (tv *txMemoryView) Latest(_ context.Context, user punch.UserID, actions ...punch.Action) (*punch.PunchEvent, error) {
	return tv.parent.latestLocked(user, actions), nil
}

func (tv *txMemoryView) EventsInRange(_ context.Context, user punch.UserID, from, to time.Time) ([]punch.PunchEvent, error) {
	return tv.parent.rangeLocked(user, from, to), nil
}

func (tv *txMemoryView) Event(_ context.Context, id punch.EventID) (punch.PunchEvent, error) {
	e, ok := tv.parent.byID[id]
	if !ok {
		return punch.PunchEvent{}, punch.ErrEventNotFound
	}
	return e, nil
}
