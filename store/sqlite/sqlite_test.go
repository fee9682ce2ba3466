package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timeclock/punch"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const emp punch.UserID = "emp-1"

var office = punch.Location{ID: "loc-1", Name: "Office", Latitude: 40.4168, Longitude: -3.7038, Radius: 50}

func newStore(t *testing.T) *Store {
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func on(day, hour, minute int) time.Time {
	return time.Date(2025, time.March, day, hour, minute, 0, 0, time.UTC)
}

func event(id string, action punch.Action, at time.Time) punch.PunchEvent {
	return punch.PunchEvent{ID: punch.EventID(id), UserID: emp, Action: action, At: at, CreatedAt: at}
}

// =============================================================================
// EVENT STORE
// =============================================================================

func TestStore_AppendAndRead(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	c := office.Center()

	in := event("a", punch.ActionClockIn, on(10, 9, 0))
	in.Coord = &c
	_, err := s.Append(ctx, in)
	require.NoError(t, err)
	_, err = s.Append(ctx, event("b", punch.ActionClockOut, on(10, 17, 0)))
	require.NoError(t, err)

	got, err := s.Event(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, on(10, 9, 0), got.At)
	require.NotNil(t, got.Coord)
	assert.InDelta(t, 40.4168, got.Coord.Latitude, 1e-9)

	events, err := s.EventsInRange(ctx, emp, on(10, 9, 0), on(10, 17, 0))
	require.NoError(t, err)
	require.Len(t, events, 1, "range is half-open")
	assert.NotNil(t, events[0].Coord)

	latest, err := s.Latest(ctx, emp, punch.ActionClockIn, punch.ActionClockOut)
	require.NoError(t, err)
	assert.Equal(t, punch.EventID("b"), latest.ID)

	none, err := s.Latest(ctx, "emp-2")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = s.Append(ctx, event("a", punch.ActionClockIn, on(11, 9, 0)))
	assert.Error(t, err)

	_, err = s.Event(ctx, "missing")
	assert.ErrorIs(t, err, punch.ErrEventNotFound)
}

func TestStore_OrderingSurvivesSubSecondTimestamps(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, _ = s.Append(ctx, event("late", punch.ActionClockOut, on(10, 9, 0).Add(900*time.Millisecond)))
	_, _ = s.Append(ctx, event("early", punch.ActionClockIn, on(10, 9, 0).Add(100*time.Millisecond)))

	events, err := s.EventsInRange(ctx, emp, on(10, 0, 0), on(11, 0, 0))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, punch.EventID("early"), events[0].ID)
	assert.Equal(t, on(10, 9, 0).Add(100*time.Millisecond), events[0].At)
}

func TestStore_MalformedTimestampIsAnError(t *testing.T) {
	// GIVEN: a row whose timestamp is neither layout
	s := newStore(t)
	ctx := context.Background()
	_, err := s.Append(ctx, event("a", punch.ActionClockIn, on(10, 9, 0)))
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, `UPDATE events SET at = ? WHERE id = ?`, "10/03/2025 09:00", "a")
	require.NoError(t, err)

	// WHEN/THEN: the read fails instead of returning the zero time
	_, err = s.Event(ctx, "a")
	assert.ErrorContains(t, err, "invalid timestamp")
}

func TestParseTS_AcceptsRFC3339(t *testing.T) {
	got, err := parseTS("2025-03-10T09:00:00+01:00")
	require.NoError(t, err)
	assert.Equal(t, on(10, 8, 0), got)
}

func TestStore_EditsHideEvents(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	_, _ = s.Append(ctx, event("a", punch.ActionClockIn, on(10, 9, 0)))
	_, _ = s.Append(ctx, event("b", punch.ActionClockIn, on(10, 8, 30)))

	rec := punch.EditRecord{ID: "r1", EventID: "a", Kind: punch.EditAmend, ReplacementID: "b", EditorID: "admin-1", EditorIP: "10.0.0.1", EditedAt: on(11, 10, 0)}
	require.NoError(t, s.RecordEdit(ctx, rec))

	events, _ := s.EventsInRange(ctx, emp, on(10, 0, 0), on(11, 0, 0))
	require.Len(t, events, 1)
	assert.Equal(t, punch.EventID("b"), events[0].ID)

	got, err := s.Edit(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, punch.EditAmend, got.Kind)
	assert.Equal(t, punch.EventID("b"), got.ReplacementID)
	assert.Equal(t, "10.0.0.1", got.EditorIP)
	assert.Equal(t, on(10, 9, 0), got.Previous.At)

	live, err := s.Edit(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, live)

	assert.ErrorIs(t, s.RecordEdit(ctx, punch.EditRecord{ID: "r2", EventID: "a", Kind: punch.EditRetract, EditedAt: on(11, 10, 0)}), punch.ErrEventAlreadyEdited)
	assert.ErrorIs(t, s.RecordEdit(ctx, punch.EditRecord{ID: "r3", EventID: "zz", EditedAt: on(11, 10, 0)}), punch.ErrEventNotFound)
}

func TestStore_WithUserTxRollsBack(t *testing.T) {
	// GIVEN: one stored event
	ctx := context.Background()
	s := newStore(t)
	_, _ = s.Append(ctx, event("a", punch.ActionClockIn, on(10, 9, 0)))

	// WHEN: a transaction writes, reads its own write, then fails
	boom := errors.New("boom")
	err := s.WithUserTx(ctx, emp, func(tx punch.EventStore) error {
		if _, err := tx.Append(ctx, event("b", punch.ActionClockOut, on(10, 17, 0))); err != nil {
			return err
		}
		latest, err := tx.Latest(ctx, emp)
		require.NoError(t, err)
		assert.Equal(t, punch.EventID("b"), latest.ID)
		return boom
	})

	// THEN: the write is gone
	assert.ErrorIs(t, err, boom)
	_, err = s.Event(ctx, "b")
	assert.ErrorIs(t, err, punch.ErrEventNotFound)
}

// =============================================================================
// DIRECTORY
// =============================================================================

func TestStore_Directory(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.SaveUser(ctx, User{ID: "emp-1", Name: "Ana"}))
	require.NoError(t, s.SaveLocation(ctx, office))
	require.NoError(t, s.SaveLocation(ctx, punch.Location{ID: "loc-2", Name: "Flexible"}))

	night := punch.NewUniformSchedule("night", "Night", punch.DaySpec{
		Start: punch.Clock(22, 0), End: punch.Clock(6, 0), Break: punch.FlexibleBreak(30),
	})
	day := punch.NewWeeklySchedule("day", "Day", map[time.Weekday]punch.DaySpec{
		time.Monday: {Start: punch.Clock(9, 0), End: punch.Clock(17, 0), Break: punch.FixedBreak(punch.Clock(13, 0), punch.Clock(13, 30))},
	})
	require.NoError(t, s.SaveSchedule(ctx, night))
	require.NoError(t, s.SaveSchedule(ctx, day))

	require.NoError(t, s.AssignLocations(ctx, emp, []string{"loc-2", "loc-1"}))
	require.NoError(t, s.AssignSchedules(ctx, emp, []string{"day", "night"}))
	require.NoError(t, s.SaveSettings(ctx, emp, punch.Settings{Enforce: true, Margin: 15 * time.Minute}))

	locs, err := s.LocationsOf(ctx, emp)
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, "loc-2", locs[0].ID, "assignment order kept")

	schedules, err := s.SchedulesOf(ctx, emp)
	require.NoError(t, err)
	require.Len(t, schedules, 2)
	assert.Equal(t, day, schedules[0])
	assert.Equal(t, night, schedules[1])

	settings, err := s.SettingsOf(ctx, emp)
	require.NoError(t, err)
	assert.True(t, settings.Enforce)
	assert.Equal(t, 15*time.Minute, settings.Margin)

	unknown, err := s.SettingsOf(ctx, "emp-9")
	require.NoError(t, err)
	assert.False(t, unknown.Enforce)

	assert.Error(t, s.AssignLocations(ctx, emp, []string{"missing"}), "foreign key")
	locs, _ = s.LocationsOf(ctx, emp)
	assert.Len(t, locs, 2, "failed assignment rolled back")

	u, err := s.GetUser(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Name)
	_, err = s.GetUser(ctx, "nobody")
	assert.ErrorIs(t, err, punch.ErrUserNotFound)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestStore_Snapshots(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	for _, d := range []int{11, 10, 12} {
		date := punch.NewDate(2025, time.March, d)
		agg := punch.NewDailyAggregate(emp, date, 8*time.Hour, 7*time.Hour+30*time.Minute)
		require.NoError(t, s.SaveSnapshot(ctx, punch.Snapshot{ID: "s-" + date.String(), TakenAt: on(13, 1, 0), DailyAggregate: agg}))
	}
	// Re-snapshotting a day replaces it.
	redo := punch.NewDailyAggregate(emp, punch.NewDate(2025, time.March, 10), 7*time.Hour, 7*time.Hour+30*time.Minute)
	require.NoError(t, s.SaveSnapshot(ctx, punch.Snapshot{ID: "s-redo", TakenAt: on(13, 2, 0), DailyAggregate: redo}))

	snaps, err := s.Snapshots(ctx, emp, punch.Period{Start: punch.NewDate(2025, time.March, 10), End: punch.NewDate(2025, time.March, 11)})
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, punch.NewDate(2025, time.March, 10), snaps[0].Date)
	assert.Equal(t, 30*time.Minute, snaps[0].Deficit)
	assert.Equal(t, 30*time.Minute, snaps[1].Overtime)
}

// =============================================================================
// ENGINE ON SQLITE
// =============================================================================

func TestEngineOnSQLite_FullDay(t *testing.T) {
	// GIVEN: a user with an office and a fixed-break schedule
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SaveLocation(ctx, office))
	require.NoError(t, s.AssignLocations(ctx, emp, []string{"loc-1"}))
	require.NoError(t, s.SaveSchedule(ctx, punch.NewUniformSchedule("sch-1", "Office", punch.DaySpec{
		Start: punch.Clock(9, 0), End: punch.Clock(17, 0), Break: punch.FixedBreak(punch.Clock(13, 0), punch.Clock(13, 30)),
	})))
	require.NoError(t, s.AssignSchedules(ctx, emp, []string{"sch-1"}))

	var now time.Time
	eng := punch.NewEngine(s, s, time.UTC)
	eng.Now = func() time.Time { return now }
	coord := office.Center()
	punchAt := func(at time.Time, action punch.Action, reason string) (punch.PunchEvent, error) {
		now = at
		req := punch.PunchRequest{UserID: emp, Action: action, Coord: &coord}
		if reason != "" {
			req.Justification = &punch.JustificationInput{Reason: reason}
		}
		return eng.Punch(ctx, req)
	}

	// WHEN: first punch is a clock_out
	_, err := punchAt(on(10, 8, 55), punch.ActionClockOut, "")
	assert.ErrorIs(t, err, punch.ErrFirstPunchMustBeClockIn)

	// WHEN: a normal day with ten minutes overtime
	_, err = punchAt(on(10, 9, 0), punch.ActionClockIn, "")
	require.NoError(t, err)
	_, err = punchAt(on(10, 17, 10), punch.ActionClockOut, "")
	assert.ErrorIs(t, err, punch.ErrJustificationRequired)
	out, err := punchAt(on(10, 17, 10), punch.ActionClockOut, "inventory")
	require.NoError(t, err)

	// THEN: justification stored, report matches
	j, err := s.JustificationFor(ctx, out.ID)
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.Equal(t, "inventory", j.Reason)

	r, err := eng.Report(ctx, emp, punch.Period{Start: punch.NewDate(2025, time.March, 10), End: punch.NewDate(2025, time.March, 10)}, punch.GranularityDay)
	require.NoError(t, err)
	require.Len(t, r.Days, 1)
	assert.Equal(t, 7*time.Hour+40*time.Minute, r.Days[0].Worked)
	assert.Equal(t, 10*time.Minute, r.Days[0].Overtime)
}

func TestEngineOnSQLite_EditRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	_, _ = s.Append(ctx, event("in", punch.ActionClockIn, on(10, 9, 0)))
	_, _ = s.Append(ctx, event("out", punch.ActionClockOut, on(10, 17, 0)))

	eng := punch.NewEngine(s, s, time.UTC)
	eng.Now = func() time.Time { return on(11, 10, 0) }

	_, err := eng.EditInterval(ctx, punch.IntervalEdit{
		UserID:     emp,
		ClockInID:  "in",
		ClockOutID: "out",
		ClockIn:    &punch.ManualPunch{At: on(10, 18, 0)},
	})
	assert.ErrorIs(t, err, punch.ErrEntryAfterExit)

	rec, err := s.Edit(ctx, "in")
	require.NoError(t, err)
	assert.Nil(t, rec)
	events, _ := s.EventsInRange(ctx, emp, on(10, 0, 0), on(11, 0, 0))
	assert.Len(t, events, 2)
}
