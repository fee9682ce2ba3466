/*
engine.go - Store-backed punch admission and reporting

PURPOSE:
  The Engine is the single entry point that writes punches. It runs the
  gates in a fixed order and appends the event only when all of them pass,
  inside a per-user transaction so two concurrent punches cannot both read
  the same "latest event".

ADMISSION ORDER:
  1. action is one of the four known actions           (input)
  2. user has at least one location                     (input)
  3. manual break refused on a fixed-break day          (sequence)
  4. sequence gate                                      (sequence)
  5. schedule window, when enforcement is on            (schedule_window)
  6. coordinate present and valid                       (input)
  7. geofence, unless the user holds Flexible           (geofence)
  8. append; on clock_out, overtime justification       (input)

REPORTING:
  Report pulls a user's events for a period (plus a day either side so
  overnight pairs are not cut), builds intervals, reconciles them and rolls
  the daily figures up by granularity.

SEE ALSO:
  - sequence.go, enforcement.go, geo.go: The gates
  - edit.go: Manual corrections
*/
package punch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warp/timeclock/logging"
)

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	Store     TxStore
	Directory Directory
	Location  *time.Location

	// Tolerance in metres added to each location radius.
	Tolerance float64

	// JustifyOvertime requires a Justification on a clock_out that takes
	// the day past its expected time.
	JustifyOvertime bool

	Now    func() time.Time
	NewID  func() string
	Logger *slog.Logger

	locks keyedMutex
}

func NewEngine(store TxStore, dir Directory, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		Store:           store,
		Directory:       dir,
		Location:        loc,
		Tolerance:       DefaultTolerance,
		JustifyOvertime: true,
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

func (e *Engine) loc() *time.Location {
	if e.Location == nil {
		return time.UTC
	}
	return e.Location
}

func (e *Engine) logger(ctx context.Context, op string, attrs ...any) *slog.Logger {
	return logging.Component(ctx, e.Logger, "punch.engine", op, attrs...)
}

// =============================================================================
// PUNCH ADMISSION
// =============================================================================

type PunchRequest struct {
	UserID        UserID
	Action        Action
	Coord         *Coordinate
	Justification *JustificationInput
}

// JustificationInput is the reason given for overtime at clock_out.
type JustificationInput struct {
	Reason string
	Detail string
}

// ValidatePunch runs every gate without writing. A nil error means the
// punch would be admitted at now; a *Rejection carries the reason otherwise.
func (e *Engine) ValidatePunch(ctx context.Context, req PunchRequest, now time.Time) error {
	p, err := e.profile(ctx, req.UserID)
	if err != nil {
		return err
	}
	return e.admit(ctx, e.Store, req, now, p)
}

// Punch validates and appends a punch at the current time. The clock is
// read while the user's lock is held, so events are stored in admission order.
func (e *Engine) Punch(ctx context.Context, req PunchRequest) (PunchEvent, error) {
	log := e.logger(ctx, "punch", "user_id", req.UserID, "action", req.Action)
	unlock := e.locks.Lock(req.UserID)
	defer unlock()
	now := e.now()

	// The directory is read before the transaction opens; stores that
	// serialise writers would otherwise block on their own lock.
	p, err := e.profile(ctx, req.UserID)
	if err != nil {
		log.Error("punch failed", "error", err)
		return PunchEvent{}, err
	}

	var appended PunchEvent
	err = e.Store.WithUserTx(ctx, req.UserID, func(tx EventStore) error {
		if err := e.admit(ctx, tx, req, now, p); err != nil {
			return err
		}

		ev := PunchEvent{
			ID:        EventID(e.newID()),
			UserID:    req.UserID,
			Action:    req.Action,
			At:        now.UTC(),
			Coord:     req.Coord,
			CreatedAt: now.UTC(),
		}
		id, err := tx.Append(ctx, ev)
		if err != nil {
			return fmt.Errorf("append punch: %w", err)
		}
		ev.ID = id

		if ev.Action == ActionClockOut && e.JustifyOvertime {
			if err := e.justify(ctx, tx, ev, p.schedules, req.Justification); err != nil {
				return err
			}
		}
		appended = ev
		return nil
	})
	if err != nil {
		if IsRejection(err) {
			log.Info("punch rejected", "kind", RejectionKindOf(err), "reason", err.Error())
		} else {
			log.Error("punch failed", "error", err)
		}
		return PunchEvent{}, err
	}

	log.Debug("punch recorded", "event_id", appended.ID, "at", appended.At)
	return appended, nil
}

// userProfile is what the directory knows about a user.
type userProfile struct {
	locations []Location
	schedules []Schedule
	settings  Settings
}

func (e *Engine) profile(ctx context.Context, user UserID) (userProfile, error) {
	var p userProfile
	var err error
	if p.locations, err = e.Directory.LocationsOf(ctx, user); err != nil {
		return p, fmt.Errorf("load locations: %w", err)
	}
	if p.schedules, err = e.Directory.SchedulesOf(ctx, user); err != nil {
		return p, fmt.Errorf("load schedules: %w", err)
	}
	if p.settings, err = e.Directory.SettingsOf(ctx, user); err != nil {
		return p, fmt.Errorf("load settings: %w", err)
	}
	return p, nil
}

// admit runs the gates in order. Only the session is read from r.
func (e *Engine) admit(ctx context.Context, r EventReader, req PunchRequest, now time.Time, p userProfile) error {
	if !req.Action.Valid() {
		return reject(KindInput, ErrInvalidAction)
	}
	if len(p.locations) == 0 {
		return reject(KindInput, ErrNoLocationAssigned)
	}

	if req.Action.IsBreak() {
		if s := ResolveSchedule(p.schedules); s != nil {
			if spec, ok := s.DayFor(DateOf(now, e.loc()).Weekday()); ok && spec.Break.BlocksManualBreaks() {
				return reject(KindSequence, ErrFixedBreakSchedule)
			}
		}
	}

	session, err := e.session(ctx, r, req.UserID)
	if err != nil {
		return err
	}
	if _, err := session.Admit(req.Action); err != nil {
		return err
	}

	if p.settings.Enforce {
		if err := CheckWindow(now, e.loc(), p.schedules, p.settings.Margin); err != nil {
			return err
		}
	}

	if req.Coord == nil {
		return reject(KindInput, ErrMissingCoordinate)
	}
	if !req.Coord.Valid() {
		return reject(KindInput, ErrInvalidCoordinate)
	}
	if !HasFlexible(p.locations) {
		if _, ok := MatchLocation(*req.Coord, p.locations, e.Tolerance); !ok {
			return reject(KindGeofence, ErrOutsideGeofence)
		}
	}
	return nil
}

// session derives the user's position in the state machine from the store.
func (e *Engine) session(ctx context.Context, r EventReader, user UserID) (Session, error) {
	lastWork, err := r.Latest(ctx, user, ActionClockIn, ActionClockOut)
	if err != nil {
		return Session{}, fmt.Errorf("read latest work event: %w", err)
	}
	var lastBreak *PunchEvent
	if lastWork != nil && lastWork.Action == ActionClockIn {
		lastBreak, err = r.Latest(ctx, user, ActionBreakStart, ActionBreakEnd)
		if err != nil {
			return Session{}, fmt.Errorf("read latest break event: %w", err)
		}
	}
	return DeriveSession(lastWork, lastBreak), nil
}

// Status returns the user's current session.
func (e *Engine) Status(ctx context.Context, user UserID) (Session, error) {
	return e.session(ctx, e.Store, user)
}

// =============================================================================
// OVERTIME JUSTIFICATION
// =============================================================================

func (e *Engine) justify(ctx context.Context, tx EventStore, clockOut PunchEvent, schedules []Schedule, in *JustificationInput) error {
	date := DateOf(clockOut.At, e.loc())
	worked, expected, err := e.dayTotals(ctx, tx, clockOut.UserID, date, schedules, clockOut.At)
	if err != nil {
		return err
	}
	if worked <= expected {
		return nil
	}
	if in == nil || strings.TrimSpace(in.Reason) == "" {
		return reject(KindInput, ErrJustificationRequired)
	}
	j := Justification{
		ID:        e.newID(),
		EventID:   clockOut.ID,
		Reason:    strings.TrimSpace(in.Reason),
		Detail:    strings.TrimSpace(in.Detail),
		CreatedAt: clockOut.CreatedAt,
	}
	if err := tx.AttachJustification(ctx, j); err != nil {
		return fmt.Errorf("attach justification: %w", err)
	}
	return nil
}

// RequiresJustification reports whether clocking out at now would take the
// day past its expected time. It is false when no session is open.
func (e *Engine) RequiresJustification(ctx context.Context, user UserID, now time.Time) (bool, error) {
	if !e.JustifyOvertime {
		return false, nil
	}
	session, err := e.session(ctx, e.Store, user)
	if err != nil {
		return false, err
	}
	if session.State == NoSession {
		return false, nil
	}
	schedules, err := e.Directory.SchedulesOf(ctx, user)
	if err != nil {
		return false, fmt.Errorf("load schedules: %w", err)
	}
	provisional := PunchEvent{ID: "provisional", UserID: user, Action: ActionClockOut, At: now.UTC()}
	worked, expected, err := e.dayTotals(ctx, e.Store, user, DateOf(now, e.loc()), schedules, now, provisional)
	if err != nil {
		return false, err
	}
	return worked > expected, nil
}

// dayTotals computes worked and expected time for one local date from the
// events of that date, plus any extra (not yet stored) events.
func (e *Engine) dayTotals(ctx context.Context, r EventReader, user UserID, date Date, schedules []Schedule, now time.Time, extra ...PunchEvent) (time.Duration, time.Duration, error) {
	from, to := Period{Start: date, End: date}.Bounds(e.loc())
	events, err := r.EventsInRange(ctx, user, from, to)
	if err != nil {
		return 0, 0, fmt.Errorf("load events: %w", err)
	}
	events = append(events, extra...)

	rec := Reconciler{Location: e.loc()}.Reconcile(ReconcileInput{
		Intervals: BuildIntervals(events, e.loc()),
		Events:    events,
		Schedules: map[UserID][]Schedule{user: schedules},
		Now:       now,
	})
	for _, d := range rec.Days {
		if d.Date == date {
			return d.Worked, d.Expected, nil
		}
	}
	return 0, TheoreticalDuration(ResolveSchedule(schedules), date), nil
}

// =============================================================================
// REPORTING
// =============================================================================

type Report struct {
	UserID    UserID
	Period    Period
	Intervals []Interval // anchored inside Period, newest first
	Days      []DailyAggregate
	Summary   PeriodSummary
	Events    []PunchEvent // every live event read, for labelling
}

// reportMargin widens the read window so pairs crossing the period edge
// are built whole.
const reportMargin = 24 * time.Hour

// Report reconciles a user's punches over period and aggregates them.
func (e *Engine) Report(ctx context.Context, user UserID, period Period, g Granularity) (Report, error) {
	return e.ReportWhere(ctx, user, period, g, nil)
}

// ReportWhere is Report over the events keep accepts. Filtering happens
// before pairing, so a dropped clock_out leaves its clock_in open.
// A nil keep accepts everything.
func (e *Engine) ReportWhere(ctx context.Context, user UserID, period Period, g Granularity, keep func(PunchEvent) bool) (Report, error) {
	loc := e.loc()
	from, to := period.Bounds(loc)
	events, err := e.Store.EventsInRange(ctx, user, from.Add(-reportMargin), to.Add(reportMargin))
	if err != nil {
		return Report{}, fmt.Errorf("load events: %w", err)
	}
	if keep != nil {
		kept := events[:0:0]
		for _, ev := range events {
			if keep(ev) {
				kept = append(kept, ev)
			}
		}
		events = kept
	}
	schedules, err := e.Directory.SchedulesOf(ctx, user)
	if err != nil {
		return Report{}, fmt.Errorf("load schedules: %w", err)
	}

	var inPeriod []Interval
	for _, iv := range BuildIntervals(events, loc) {
		if period.Contains(iv.AnchorDate(loc)) {
			inPeriod = append(inPeriod, iv)
		}
	}

	rec := Reconciler{Location: loc}.Reconcile(ReconcileInput{
		Intervals: inPeriod,
		Events:    events,
		Schedules: map[UserID][]Schedule{user: schedules},
		Now:       e.now(),
	})

	e.logger(ctx, "report", "user_id", user).Debug("report built",
		"period", period.String(), "intervals", len(rec.Intervals), "days", len(rec.Days))

	return Report{
		UserID:    user,
		Period:    period,
		Intervals: rec.Intervals,
		Days:      rec.Days,
		Summary:   AggregatePeriod(rec.Days, g),
		Events:    events,
	}, nil
}
