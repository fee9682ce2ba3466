/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements all persistence interfaces (punch.TxStore, punch.Directory,
  punch.SnapshotStore) using SQLite. In production, the same patterns apply
  to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  punch.TxStore:       Punch event persistence with per-user transactions
  punch.Directory:     Locations, schedules and settings per user
  punch.SnapshotStore: Frozen daily aggregates

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on the events table
  - No DELETE statements on the events table
  - Corrections via event_edits rows (amend or retract) only

KEY TABLES:
  events:          Immutable log of every punch
  event_edits:     Audit of manual corrections; one row per superseded event
  justifications:  Overtime reasons attached to clock_out events
  users, locations, user_locations, schedules, user_schedules, user_settings
  daily_snapshots: Cached DailyAggregate per (user, date)

TIMESTAMPS:
  Stored as fixed-width UTC text (tsLayout) so that string comparison in SQL
  orders the same way as time comparison.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single connection, so a
  transaction holds the database exclusively. Inside WithUserTx every read
  goes through the transaction.

USAGE:
  store, err := sqlite.New("./data/timeclock.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := punch.NewEngine(store, store, loc)

SEE ALSO:
  - punch/store.go: Interface definitions
  - punch/store/memory.go: In-memory implementation for testing
  - factory/schedule.go: Schedule documents stored in config_json
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/timeclock/factory"
	"github.com/warp/timeclock/punch"
)

// tsLayout is fixed-width so lexical order equals chronological order.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

func formatTS(t time.Time) string { return t.UTC().Format(tsLayout) }

// parseTS reads a stored timestamp. Rows written by older builds used
// RFC 3339 and are still accepted.
func parseTS(s string) (time.Time, error) {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		var fallbackErr error
		if t, fallbackErr = time.Parse(time.RFC3339Nano, s); fallbackErr != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
	}
	return t.UTC(), nil
}

// Store implements all storage interfaces using SQLite.
type Store struct {
	db        *sql.DB
	mu        sync.RWMutex
	schedules *factory.ScheduleFactory
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: ":memory:" databases are per connection, and a
	// transaction must see every write made before it.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, schedules: factory.NewScheduleFactory()}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Punch events (append-only)
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		action TEXT NOT NULL,
		at TEXT NOT NULL,
		latitude REAL,
		longitude REAL,
		created_at TEXT NOT NULL
	);

	-- Hot path: latest event and range reads per user
	CREATE INDEX IF NOT EXISTS idx_events_user_at
		ON events(user_id, at, id);

	-- Manual corrections. An event appears here at most once.
	CREATE TABLE IF NOT EXISTS event_edits (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE REFERENCES events(id),
		kind TEXT NOT NULL,
		replacement_id TEXT,
		editor_id TEXT,
		editor_ip TEXT,
		edited_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS justifications (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE REFERENCES events(id),
		reason TEXT NOT NULL,
		detail TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS locations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		radius REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS user_locations (
		user_id TEXT NOT NULL,
		location_id TEXT NOT NULL REFERENCES locations(id),
		position INTEGER NOT NULL,
		PRIMARY KEY (user_id, location_id)
	);

	-- Schedules stored as factory JSON documents
	CREATE TABLE IF NOT EXISTS schedules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		config_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS user_schedules (
		user_id TEXT NOT NULL,
		schedule_id TEXT NOT NULL REFERENCES schedules(id),
		position INTEGER NOT NULL,
		PRIMARY KEY (user_id, schedule_id)
	);

	CREATE TABLE IF NOT EXISTS user_settings (
		user_id TEXT PRIMARY KEY,
		enforce BOOLEAN NOT NULL DEFAULT FALSE,
		margin_minutes INTEGER NOT NULL DEFAULT 0,
		detect_schedule BOOLEAN NOT NULL DEFAULT FALSE
	);

	-- Daily snapshots (for payroll reads)
	CREATE TABLE IF NOT EXISTS daily_snapshots (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		worked_ns INTEGER NOT NULL,
		expected_ns INTEGER NOT NULL,
		overtime_ns INTEGER NOT NULL,
		deficit_ns INTEGER NOT NULL,
		taken_at TEXT NOT NULL,
		UNIQUE(user_id, date)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// EVENT STORE (punch.EventStore interface)
// =============================================================================

const eventColumns = `e.id, e.user_id, e.action, e.at, e.latitude, e.longitude, e.created_at`

// live filters out events that carry an edit record.
const live = `NOT EXISTS (SELECT 1 FROM event_edits x WHERE x.event_id = e.id)`

// Append adds a punch event to the log.
func (s *Store) Append(ctx context.Context, e punch.PunchEvent) (punch.EventID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendEvent(ctx, s.db, e)
}

func appendEvent(ctx context.Context, q querier, e punch.PunchEvent) (punch.EventID, error) {
	if e.ID == "" {
		return "", fmt.Errorf("event without ID")
	}
	var lat, lon sql.NullFloat64
	if e.Coord != nil {
		lat = sql.NullFloat64{Float64: e.Coord.Latitude, Valid: true}
		lon = sql.NullFloat64{Float64: e.Coord.Longitude, Valid: true}
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO events (id, user_id, action, at, latitude, longitude, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Action, formatTS(e.At), lat, lon, formatTS(createdAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return "", fmt.Errorf("duplicate event %s", e.ID)
		}
		return "", fmt.Errorf("failed to append event: %w", err)
	}
	return e.ID, nil
}

// RecordEdit marks an event as superseded.
func (s *Store) RecordEdit(ctx context.Context, rec punch.EditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return recordEdit(ctx, s.db, rec)
}

func recordEdit(ctx context.Context, q querier, rec punch.EditRecord) error {
	if _, err := loadEvent(ctx, q, rec.EventID); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO event_edits (id, event_id, kind, replacement_id, editor_id, editor_ip, edited_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.EventID, rec.Kind, nullString(string(rec.ReplacementID)),
		nullString(rec.EditorID), nullString(rec.EditorIP), formatTS(rec.EditedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("event %s: %w", rec.EventID, punch.ErrEventAlreadyEdited)
		}
		return fmt.Errorf("failed to record edit: %w", err)
	}
	return nil
}

// AttachJustification stores the overtime reason of a clock_out.
func (s *Store) AttachJustification(ctx context.Context, j punch.Justification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return attachJustification(ctx, s.db, j)
}

func attachJustification(ctx context.Context, q querier, j punch.Justification) error {
	if _, err := loadEvent(ctx, q, j.EventID); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO justifications (id, event_id, reason, detail, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(event_id) DO UPDATE SET
			reason = excluded.reason,
			detail = excluded.detail,
			created_at = excluded.created_at`,
		j.ID, j.EventID, j.Reason, nullString(j.Detail), formatTS(j.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to attach justification: %w", err)
	}
	return nil
}

// Latest returns the newest live event with one of actions.
func (s *Store) Latest(ctx context.Context, user punch.UserID, actions ...punch.Action) (*punch.PunchEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return latest(ctx, s.db, user, actions)
}

func latest(ctx context.Context, q querier, user punch.UserID, actions []punch.Action) (*punch.PunchEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events e WHERE e.user_id = ? AND ` + live
	args := []any{user}
	if len(actions) > 0 {
		query += ` AND e.action IN (?` + strings.Repeat(", ?", len(actions)-1) + `)`
		for _, a := range actions {
			args = append(args, a)
		}
	}
	query += ` ORDER BY e.at DESC, e.id DESC LIMIT 1`

	events, err := queryEvents(ctx, q, query, args...)
	if err != nil || len(events) == 0 {
		return nil, err
	}
	return &events[0], nil
}

// EventsInRange returns live events with from <= at < to, oldest first.
func (s *Store) EventsInRange(ctx context.Context, user punch.UserID, from, to time.Time) ([]punch.PunchEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return eventsInRange(ctx, s.db, user, from, to)
}

func eventsInRange(ctx context.Context, q querier, user punch.UserID, from, to time.Time) ([]punch.PunchEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events e
		WHERE e.user_id = ? AND e.at >= ? AND e.at < ? AND ` + live + `
		ORDER BY e.at ASC, e.id ASC`
	return queryEvents(ctx, q, query, user, formatTS(from), formatTS(to))
}

// Event returns an event by ID, edited or not.
func (s *Store) Event(ctx context.Context, id punch.EventID) (punch.PunchEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadEvent(ctx, s.db, id)
}

func loadEvent(ctx context.Context, q querier, id punch.EventID) (punch.PunchEvent, error) {
	events, err := queryEvents(ctx, q, `SELECT `+eventColumns+` FROM events e WHERE e.id = ?`, id)
	if err != nil {
		return punch.PunchEvent{}, err
	}
	if len(events) == 0 {
		return punch.PunchEvent{}, punch.ErrEventNotFound
	}
	return events[0], nil
}

func queryEvents(ctx context.Context, q querier, query string, args ...any) ([]punch.PunchEvent, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []punch.PunchEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanEvent(rows *sql.Rows) (punch.PunchEvent, error) {
	var (
		e         punch.PunchEvent
		at        string
		lat, lon  sql.NullFloat64
		createdAt string
	)
	if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &at, &lat, &lon, &createdAt); err != nil {
		return e, fmt.Errorf("failed to scan event: %w", err)
	}
	var err error
	if e.At, err = parseTS(at); err != nil {
		return e, fmt.Errorf("event %s: %w", e.ID, err)
	}
	if e.CreatedAt, err = parseTS(createdAt); err != nil {
		return e, fmt.Errorf("event %s: %w", e.ID, err)
	}
	if lat.Valid && lon.Valid {
		e.Coord = &punch.Coordinate{Latitude: lat.Float64, Longitude: lon.Float64}
	}
	return e, nil
}

// Edit returns the edit record of an event, or nil when it is live.
func (s *Store) Edit(ctx context.Context, id punch.EventID) (*punch.EditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		rec                             punch.EditRecord
		replacement, editorID, editorIP sql.NullString
		editedAt                        string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, event_id, kind, replacement_id, editor_id, editor_ip, edited_at
		FROM event_edits WHERE event_id = ?`, id,
	).Scan(&rec.ID, &rec.EventID, &rec.Kind, &replacement, &editorID, &editorIP, &editedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load edit: %w", err)
	}
	rec.ReplacementID = punch.EventID(replacement.String)
	rec.EditorID = editorID.String
	rec.EditorIP = editorIP.String
	if rec.EditedAt, err = parseTS(editedAt); err != nil {
		return nil, err
	}

	prev, err := loadEvent(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	rec.Previous = prev
	return &rec, nil
}

// JustificationFor returns the justification attached to a clock_out, or nil.
func (s *Store) JustificationFor(ctx context.Context, id punch.EventID) (*punch.Justification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		j         punch.Justification
		detail    sql.NullString
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, event_id, reason, detail, created_at FROM justifications WHERE event_id = ?`, id,
	).Scan(&j.ID, &j.EventID, &j.Reason, &detail, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load justification: %w", err)
	}
	j.Detail = detail.String
	if j.CreatedAt, err = parseTS(createdAt); err != nil {
		return nil, err
	}
	return &j, nil
}

// =============================================================================
// TRANSACTIONAL STORE (punch.TxStore interface)
// =============================================================================

// WithUserTx executes fn within a database transaction. The user is not
// used to narrow the lock: SQLite has a single writer anyway.
func (s *Store) WithUserTx(ctx context.Context, _ punch.UserID, fn func(punch.EventStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) Append(ctx context.Context, e punch.PunchEvent) (punch.EventID, error) {
	return appendEvent(ctx, ts.tx, e)
}

func (ts *txStore) RecordEdit(ctx context.Context, rec punch.EditRecord) error {
	return recordEdit(ctx, ts.tx, rec)
}

func (ts *txStore) AttachJustification(ctx context.Context, j punch.Justification) error {
	return attachJustification(ctx, ts.tx, j)
}

func (ts *txStore) Latest(ctx context.Context, user punch.UserID, actions ...punch.Action) (*punch.PunchEvent, error) {
	return latest(ctx, ts.tx, user, actions)
}

func (ts *txStore) EventsInRange(ctx context.Context, user punch.UserID, from, to time.Time) ([]punch.PunchEvent, error) {
	return eventsInRange(ctx, ts.tx, user, from, to)
}

func (ts *txStore) Event(ctx context.Context, id punch.EventID) (punch.PunchEvent, error) {
	return loadEvent(ctx, ts.tx, id)
}

// =============================================================================
// USER STORE
// =============================================================================

// User represents a person who punches.
type User struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}

// SaveUser creates or renames a user.
func (s *Store) SaveUser(ctx context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email`,
		u.ID, u.Name, nullString(u.Email), formatTS(u.CreatedAt),
	)
	return err
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var u User
	var email sql.NullString
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, created_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Name, &email, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, punch.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Email = email.String
	if u.CreatedAt, err = parseTS(createdAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns all users ordered by ID.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		var email sql.NullString
		var createdAt string
		if err := rows.Scan(&u.ID, &u.Name, &email, &createdAt); err != nil {
			return nil, err
		}
		u.Email = email.String
		var err error
		if u.CreatedAt, err = parseTS(createdAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// =============================================================================
// DIRECTORY (punch.Directory interface)
// =============================================================================

// SaveLocation creates or replaces a location.
func (s *Store) SaveLocation(ctx context.Context, l punch.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO locations (id, name, latitude, longitude, radius)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			radius = excluded.radius`,
		l.ID, l.Name, l.Latitude, l.Longitude, l.Radius,
	)
	return err
}

// ListLocations returns all locations ordered by ID.
func (s *Store) ListLocations(ctx context.Context) ([]punch.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryLocations(ctx, s.db, `SELECT l.id, l.name, l.latitude, l.longitude, l.radius FROM locations l ORDER BY l.id`)
}

// AssignLocations replaces the user's locations, keeping the given order.
func (s *Store) AssignLocations(ctx context.Context, user punch.UserID, locationIDs []string) error {
	return s.assign(ctx, "user_locations", "location_id", user, locationIDs)
}

func (s *Store) LocationsOf(ctx context.Context, user punch.UserID) ([]punch.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryLocations(ctx, s.db, `
		SELECT l.id, l.name, l.latitude, l.longitude, l.radius
		FROM locations l JOIN user_locations ul ON ul.location_id = l.id
		WHERE ul.user_id = ?
		ORDER BY ul.position`, user)
}

func queryLocations(ctx context.Context, q querier, query string, args ...any) ([]punch.Location, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	var locs []punch.Location
	for rows.Next() {
		var l punch.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Latitude, &l.Longitude, &l.Radius); err != nil {
			return nil, err
		}
		locs = append(locs, l)
	}
	return locs, rows.Err()
}

// SaveSchedule stores a schedule as its JSON document.
func (s *Store) SaveSchedule(ctx context.Context, sch punch.Schedule) error {
	doc, err := s.schedules.MarshalSchedule(sch)
	if err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := formatTS(time.Now())
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO schedules (id, name, config_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			config_json = excluded.config_json,
			updated_at = excluded.updated_at`,
		sch.ID, sch.Name, doc, now, now,
	)
	return err
}

// ListSchedules returns all schedules ordered by ID.
func (s *Store) ListSchedules(ctx context.Context) ([]punch.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.querySchedules(ctx, `SELECT s.config_json FROM schedules s ORDER BY s.id`)
}

// AssignSchedules replaces the user's schedules; the first one governs.
func (s *Store) AssignSchedules(ctx context.Context, user punch.UserID, scheduleIDs []string) error {
	return s.assign(ctx, "user_schedules", "schedule_id", user, scheduleIDs)
}

func (s *Store) SchedulesOf(ctx context.Context, user punch.UserID) ([]punch.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.querySchedules(ctx, `
		SELECT s.config_json
		FROM schedules s JOIN user_schedules us ON us.schedule_id = s.id
		WHERE us.user_id = ?
		ORDER BY us.position`, user)
}

func (s *Store) querySchedules(ctx context.Context, query string, args ...any) ([]punch.Schedule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	var result []punch.Schedule
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		sch, err := s.schedules.ParseSchedule(doc)
		if err != nil {
			return nil, err
		}
		result = append(result, sch)
	}
	return result, rows.Err()
}

// assign replaces a user's rows in an ordered join table.
func (s *Store) assign(ctx context.Context, table, column string, user punch.UserID, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = ?`, user); err != nil {
		return err
	}
	for i, id := range ids {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO `+table+` (user_id, `+column+`, position) VALUES (?, ?, ?)`, user, id, i)
		if err != nil {
			return fmt.Errorf("failed to assign %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// SaveSettings stores the enforcement settings of a user.
func (s *Store) SaveSettings(ctx context.Context, user punch.UserID, st punch.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, enforce, margin_minutes, detect_schedule)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			enforce = excluded.enforce,
			margin_minutes = excluded.margin_minutes,
			detect_schedule = excluded.detect_schedule`,
		user, st.Enforce, int(st.Margin/time.Minute), st.DetectSchedule,
	)
	return err
}

// SettingsOf returns the user's settings; unknown users get the zero value.
func (s *Store) SettingsOf(ctx context.Context, user punch.UserID) (punch.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st punch.Settings
	var margin int
	err := s.db.QueryRowContext(ctx,
		`SELECT enforce, margin_minutes, detect_schedule FROM user_settings WHERE user_id = ?`, user,
	).Scan(&st.Enforce, &margin, &st.DetectSchedule)
	if errors.Is(err, sql.ErrNoRows) {
		return punch.Settings{}, nil
	}
	if err != nil {
		return st, fmt.Errorf("failed to load settings: %w", err)
	}
	st.Margin = time.Duration(margin) * time.Minute
	return st, nil
}

// =============================================================================
// SNAPSHOT STORE (punch.SnapshotStore interface)
// =============================================================================

// SaveSnapshot stores or replaces the snapshot of (user, date).
func (s *Store) SaveSnapshot(ctx context.Context, snap punch.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_snapshots (id, user_id, date, worked_ns, expected_ns, overtime_ns, deficit_ns, taken_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			worked_ns = excluded.worked_ns,
			expected_ns = excluded.expected_ns,
			overtime_ns = excluded.overtime_ns,
			deficit_ns = excluded.deficit_ns,
			taken_at = excluded.taken_at`,
		snap.ID, snap.UserID, snap.Date.String(),
		int64(snap.Worked), int64(snap.Expected), int64(snap.Overtime), int64(snap.Deficit),
		formatTS(snap.TakenAt),
	)
	return err
}

// Snapshots returns the user's snapshots inside period, oldest first.
func (s *Store) Snapshots(ctx context.Context, user punch.UserID, period punch.Period) ([]punch.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, date, worked_ns, expected_ns, overtime_ns, deficit_ns, taken_at
		FROM daily_snapshots
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`,
		user, period.Start.String(), period.End.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var result []punch.Snapshot
	for rows.Next() {
		var (
			snap                                punch.Snapshot
			date, takenAt                       string
			worked, expected, overtime, deficit int64
		)
		if err := rows.Scan(&snap.ID, &snap.UserID, &date, &worked, &expected, &overtime, &deficit, &takenAt); err != nil {
			return nil, err
		}
		if snap.Date, err = punch.ParseDate(date); err != nil {
			return nil, err
		}
		snap.Worked = time.Duration(worked)
		snap.Expected = time.Duration(expected)
		snap.Overtime = time.Duration(overtime)
		snap.Deficit = time.Duration(deficit)
		if snap.TakenAt, err = parseTS(takenAt); err != nil {
			return nil, err
		}
		result = append(result, snap)
	}
	return result, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY"))
}
