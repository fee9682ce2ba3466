/*
handlers.go - HTTP API handlers for the time clock

PURPOSE:
  Exposes the punch engine via REST API. Handles HTTP request/response,
  JSON serialization and validation, and delegates to the engine, the
  SQLite directory and the report package.

ENDPOINTS:
  Users:
    GET    /api/users                         List users
    POST   /api/users                         Create or rename a user
    PUT    /api/users/{id}/locations          Assign locations (ordered)
    PUT    /api/users/{id}/schedules          Assign schedules (first applies)
    GET    /api/users/{id}/settings           Enforcement settings
    PUT    /api/users/{id}/settings           Update enforcement settings

  Punches:
    POST   /api/users/{id}/punches            Punch (clock_in, clock_out, break_start, break_end)
    POST   /api/users/{id}/punches/validate   Dry run, nothing is written
    GET    /api/users/{id}/status             Session state

  Reports:
    GET    /api/users/{id}/report             ?from&to&granularity&location
    GET    /api/users/{id}/snapshots          ?from&to

  Manual edits:
    PUT    /api/users/{id}/intervals          Amend or create an interval
    DELETE /api/users/{id}/intervals          Retract an interval

  Admin:
    GET/POST /api/locations, GET/POST /api/schedules
    POST   /api/admin/snapshots               ?date, take daily snapshots now

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed JSON, validation errors
  - 404: Unknown user or event
  - 409: Concurrent punch for the same user
  - 422: Punch or edit rejected by a business rule (kind + reason)
  - 500: Internal errors

SECURITY NOTE:
  No authentication. Editor identity for manual edits is taken from the
  request body and the client IP.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Nightly snapshots
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/warp/timeclock/factory"
	"github.com/warp/timeclock/logging"
	"github.com/warp/timeclock/punch"
	"github.com/warp/timeclock/report"
	"github.com/warp/timeclock/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Engine    *punch.Engine
	Schedules *factory.ScheduleFactory
	Logger    *slog.Logger

	// Scheduler backs POST /api/admin/snapshots. Nil disables the endpoint.
	Scheduler *SnapshotScheduler

	validate *validator.Validate
}

// NewHandler creates a handler over store and engine.
func NewHandler(store *sqlite.Store, engine *punch.Engine, logger *slog.Logger) *Handler {
	return &Handler{
		Store:     store,
		Engine:    engine,
		Schedules: factory.NewScheduleFactory(),
		Logger:    logger,
		validate:  factory.NewValidator(),
	}
}

func (h *Handler) zone() *time.Location {
	if h.Engine != nil && h.Engine.Location != nil {
		return h.Engine.Location
	}
	return time.UTC
}

func (h *Handler) now() time.Time {
	if h.Engine != nil && h.Engine.Now != nil {
		return h.Engine.Now()
	}
	return time.Now()
}

func (h *Handler) log(ctx context.Context, op string) *slog.Logger {
	return logging.Component(ctx, h.Logger, "api", op)
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns all users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list users", err)
		return
	}
	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateUser creates a user, or renames an existing one.
// POST /api/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	u := sqlite.User{ID: req.ID, Name: strings.TrimSpace(req.Name), Email: req.Email, CreatedAt: h.now().UTC()}
	if err := h.Store.SaveUser(r.Context(), u); err != nil {
		h.fail(w, r, "Failed to save user", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(u))
}

// AssignLocations replaces the user's locations.
// PUT /api/users/{id}/locations
func (h *Handler) AssignLocations(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	var req AssignRequest
	if !h.decode(w, r, &req) {
		return
	}

	known, err := h.Store.ListLocations(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list locations", err)
		return
	}
	ids := make(map[string]bool, len(known))
	for _, l := range known {
		ids[l.ID] = true
	}
	if missing := unknownIDs(req.IDs, ids); len(missing) > 0 {
		writeError(w, http.StatusBadRequest, "Unknown locations", errors.New(strings.Join(missing, ", ")))
		return
	}

	if err := h.Store.AssignLocations(r.Context(), user, req.IDs); err != nil {
		h.fail(w, r, "Failed to assign locations", err)
		return
	}
	locations, err := h.Store.LocationsOf(r.Context(), user)
	if err != nil {
		h.fail(w, r, "Failed to load locations", err)
		return
	}
	writeJSON(w, http.StatusOK, toLocationJSONs(locations))
}

// AssignSchedules replaces the user's schedules.
// PUT /api/users/{id}/schedules
func (h *Handler) AssignSchedules(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	var req AssignRequest
	if !h.decode(w, r, &req) {
		return
	}

	known, err := h.Store.ListSchedules(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list schedules", err)
		return
	}
	ids := make(map[string]bool, len(known))
	for _, s := range known {
		ids[s.ID] = true
	}
	if missing := unknownIDs(req.IDs, ids); len(missing) > 0 {
		writeError(w, http.StatusBadRequest, "Unknown schedules", errors.New(strings.Join(missing, ", ")))
		return
	}

	if err := h.Store.AssignSchedules(r.Context(), user, req.IDs); err != nil {
		h.fail(w, r, "Failed to assign schedules", err)
		return
	}
	schedules, err := h.Store.SchedulesOf(r.Context(), user)
	if err != nil {
		h.fail(w, r, "Failed to load schedules", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toScheduleJSONs(schedules))
}

// GetSettings returns the user's enforcement settings.
// GET /api/users/{id}/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	st, err := h.Store.SettingsOf(r.Context(), user)
	if err != nil {
		h.fail(w, r, "Failed to load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(st))
}

// UpdateSettings stores the user's enforcement settings.
// PUT /api/users/{id}/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	var req SettingsRequest
	if !h.decode(w, r, &req) {
		return
	}
	st := punch.Settings{
		Enforce:        req.Enforce,
		Margin:         time.Duration(req.MarginMinutes) * time.Minute,
		DetectSchedule: req.DetectSchedule,
	}
	if err := h.Store.SaveSettings(r.Context(), user, st); err != nil {
		h.fail(w, r, "Failed to save settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(st))
}

// =============================================================================
// LOCATION & SCHEDULE HANDLERS
// =============================================================================

// ListLocations returns every defined location.
func (h *Handler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.Store.ListLocations(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list locations", err)
		return
	}
	writeJSON(w, http.StatusOK, toLocationJSONs(locations))
}

// CreateLocation creates or updates a location.
// POST /api/locations
func (h *Handler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var req factory.LocationJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	loc, err := h.Schedules.ParseLocation(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid location", err)
		return
	}
	if err := h.Store.SaveLocation(r.Context(), loc); err != nil {
		h.fail(w, r, "Failed to save location", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLocationJSONs([]punch.Location{loc})[0])
}

// ListSchedules returns every schedule as its JSON document.
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.Store.ListSchedules(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list schedules", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toScheduleJSONs(schedules))
}

// CreateSchedule creates or replaces a schedule from its JSON document.
// POST /api/schedules
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req factory.ScheduleJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	sch, err := h.Schedules.FromJSON(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid schedule", err)
		return
	}
	if err := h.Store.SaveSchedule(r.Context(), sch); err != nil {
		h.fail(w, r, "Failed to save schedule", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.Schedules.ToJSON(sch))
}

// =============================================================================
// PUNCH HANDLERS
// =============================================================================

// Punch records a punch after every gate admits it.
// POST /api/users/{id}/punches
func (h *Handler) Punch(w http.ResponseWriter, r *http.Request) {
	req, ok := h.punchRequest(w, r)
	if !ok {
		return
	}
	ev, err := h.Engine.Punch(r.Context(), req)
	if err != nil {
		h.fail(w, r, "Punch rejected", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventDTO(ev, h.zone()))
}

// ValidatePunch runs the gates without writing.
// POST /api/users/{id}/punches/validate
func (h *Handler) ValidatePunch(w http.ResponseWriter, r *http.Request) {
	req, ok := h.punchRequest(w, r)
	if !ok {
		return
	}
	err := h.Engine.ValidatePunch(r.Context(), req, h.now())
	var rej *punch.Rejection
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ValidationDTO{Admitted: true})
	case errors.As(err, &rej):
		writeJSON(w, http.StatusOK, ValidationDTO{Kind: string(rej.Kind), Reason: rej.Reason})
	default:
		h.fail(w, r, "Validation failed", err)
	}
}

func (h *Handler) punchRequest(w http.ResponseWriter, r *http.Request) (punch.PunchRequest, bool) {
	user, ok := h.user(w, r)
	if !ok {
		return punch.PunchRequest{}, false
	}
	var body PunchRequest
	if !h.decode(w, r, &body) {
		return punch.PunchRequest{}, false
	}
	coord, err := coordinate(body.Latitude, body.Longitude)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid coordinates", err)
		return punch.PunchRequest{}, false
	}
	req := punch.PunchRequest{
		UserID: user,
		Action: punch.Action(strings.TrimSpace(body.Action)),
		Coord:  coord,
	}
	if body.Justification != nil {
		req.Justification = &punch.JustificationInput{
			Reason: body.Justification.Reason,
			Detail: body.Justification.Detail,
		}
	}
	return req, true
}

// Status returns the user's session state.
// GET /api/users/{id}/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	sess, err := h.Engine.Status(ctx, user)
	if err != nil {
		h.fail(w, r, "Failed to load status", err)
		return
	}
	dto := StatusDTO{UserID: string(user), State: sess.State.String()}
	if sess.ClockIn != nil {
		dto.ClockedInAt = report.FormatInstant(sess.ClockIn.At, h.zone())
	}
	if sess.BreakStart != nil {
		dto.BreakStartedAt = report.FormatInstant(sess.BreakStart.At, h.zone())
	}
	if sess.State != punch.NoSession {
		if dto.RequiresJustification, err = h.Engine.RequiresJustification(ctx, user, h.now()); err != nil {
			h.fail(w, r, "Failed to check overtime", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// Report returns reconciled rows, daily aggregates and a period summary.
// GET /api/users/{id}/report?from=2025-03-01&to=2025-03-31&granularity=week&location=loc-1
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	q := r.URL.Query()

	period, err := h.period(q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}
	g, err := punch.ParseGranularity(q.Get("granularity"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid granularity", err)
		return
	}

	locations, err := h.Store.ListLocations(ctx)
	if err != nil {
		h.fail(w, r, "Failed to list locations", err)
		return
	}
	keep, err := report.FilterByLocation(q.Get("location"), locations)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid location filter", err)
		return
	}

	rep, err := h.Engine.ReportWhere(ctx, user, period, g, keep)
	if err != nil {
		h.fail(w, r, "Failed to build report", err)
		return
	}

	u, err := h.Store.GetUser(ctx, string(user))
	if err != nil {
		h.fail(w, r, "Failed to load user", err)
		return
	}

	rows := report.NewBuilder(locations, h.zone()).BuildRows(u.Name, rep)
	dto := ReportDTO{
		UserID:   string(user),
		From:     period.Start.String(),
		To:       period.End.String(),
		Location: q.Get("location"),
		Rows:     make([]RowDTO, 0, len(rows)),
		Days:     make([]DayDTO, 0, len(rep.Days)),
		Summary:  toSummaryDTO(rep.Summary),
	}
	for _, row := range rows {
		dto.Rows = append(dto.Rows, toRowDTO(row))
	}
	for _, d := range rep.Days {
		dto.Days = append(dto.Days, toDayDTO(d))
	}
	writeJSON(w, http.StatusOK, dto)
}

// Snapshots returns stored daily snapshots.
// GET /api/users/{id}/snapshots?from=&to=
func (h *Handler) Snapshots(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	period, err := h.period(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}
	snaps, err := h.Store.Snapshots(r.Context(), user, period)
	if err != nil {
		h.fail(w, r, "Failed to load snapshots", err)
		return
	}
	dtos := make([]SnapshotDTO, 0, len(snaps))
	for _, s := range snaps {
		dtos = append(dtos, SnapshotDTO{
			Date:     s.Date.String(),
			Worked:   toDuration(s.Worked),
			Expected: toDuration(s.Expected),
			Overtime: toDuration(s.Overtime),
			Deficit:  toDuration(s.Deficit),
			TakenAt:  s.TakenAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// TriggerSnapshots snapshots one day for every user (yesterday by default).
// POST /api/admin/snapshots?date=2025-03-10
func (h *Handler) TriggerSnapshots(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "Snapshots are disabled", nil)
		return
	}
	date := h.Scheduler.Yesterday()
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := punch.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date", err)
			return
		}
		date = d
	}
	n, err := h.Scheduler.SnapshotDay(r.Context(), date)
	if err != nil {
		h.fail(w, r, "Failed to take snapshots", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date.String(), "snapshots": n})
}

// period parses from/to as local dates. Missing values default to today.
func (h *Handler) period(from, to string) (punch.Period, error) {
	today := punch.DateOf(h.now(), h.zone())
	p := punch.Period{Start: today, End: today}
	var err error
	if from != "" {
		if p.Start, err = punch.ParseDate(from); err != nil {
			return p, err
		}
	}
	if to != "" {
		if p.End, err = punch.ParseDate(to); err != nil {
			return p, err
		}
	} else if from != "" {
		p.End = p.Start
	}
	if p.End.Before(p.Start) {
		return p, fmt.Errorf("to %s is before from %s", p.End, p.Start)
	}
	return p, nil
}

// =============================================================================
// MANUAL EDIT HANDLERS
// =============================================================================

// EditInterval amends or creates an interval on behalf of an administrator.
// PUT /api/users/{id}/intervals
func (h *Handler) EditInterval(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	var req IntervalEditRequest
	if !h.decode(w, r, &req) {
		return
	}

	edit := punch.IntervalEdit{
		UserID:     user,
		ClockInID:  punch.EventID(req.ClockInID),
		ClockOutID: punch.EventID(req.ClockOutID),
		EditorID:   req.EditorID,
		EditorIP:   clientIP(r),
	}
	var err error
	if edit.ClockIn, err = h.manualPunch(req.ClockIn); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entry", err)
		return
	}
	if edit.ClockOut, err = h.manualPunch(req.ClockOut); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid exit", err)
		return
	}
	if req.Break != nil {
		d, err := punch.ParseBreakHHMM(*req.Break)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid break", err)
			return
		}
		edit.Break = &d
	}

	res, err := h.Engine.EditInterval(r.Context(), edit)
	if err != nil {
		h.fail(w, r, "Edit rejected", err)
		return
	}

	dto := EditResultDTO{
		ClockIn:  toEventDTOPtr(res.ClockIn, h.zone()),
		ClockOut: toEventDTOPtr(res.ClockOut, h.zone()),
		Breaks:   make([]EventDTO, 0, len(res.Breaks)),
	}
	for _, b := range res.Breaks {
		dto.Breaks = append(dto.Breaks, toEventDTO(b, h.zone()))
	}
	writeJSON(w, http.StatusOK, dto)
}

// RetractInterval retracts an interval and the breaks inside it.
// DELETE /api/users/{id}/intervals
func (h *Handler) RetractInterval(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	var req IntervalRetractRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.Engine.RetractInterval(r.Context(), user,
		punch.EventID(req.ClockInID), punch.EventID(req.ClockOutID), req.EditorID, clientIP(r))
	if err != nil {
		h.fail(w, r, "Retract rejected", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) manualPunch(dto *ManualPunchDTO) (*punch.ManualPunch, error) {
	if dto == nil {
		return nil, nil
	}
	at, err := punch.ParseLocalTime(dto.At, h.zone())
	if err != nil {
		return nil, err
	}
	coord, err := coordinate(dto.Latitude, dto.Longitude)
	if err != nil {
		return nil, err
	}
	return &punch.ManualPunch{At: at, Coord: coord}, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// user resolves {id} to a known user, writing 404 otherwise.
func (h *Handler) user(w http.ResponseWriter, r *http.Request) (punch.UserID, bool) {
	id := chi.URLParam(r, "id")
	if _, err := h.Store.GetUser(r.Context(), id); err != nil {
		h.fail(w, r, "Unknown user", err)
		return "", false
	}
	return punch.UserID(id), true
}

// decode reads and validates a JSON body, writing 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// fail maps err to a status code and logs what the client cannot fix.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	var rej *punch.Rejection
	switch {
	case errors.As(err, &rej):
		h.log(r.Context(), "respond").Info("rejected", "kind", rej.Kind, "reason", rej.Reason)
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: rej.Reason, Kind: string(rej.Kind)})
	case punch.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case punch.IsRetryable(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		h.log(r.Context(), "respond").Error(message, "error", err)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func unknownIDs(ids []string, known map[string]bool) []string {
	var missing []string
	for _, id := range ids {
		if !known[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

func toUserDTO(u sqlite.User) UserDTO {
	dto := UserDTO{ID: u.ID, Name: u.Name, Email: u.Email}
	if !u.CreatedAt.IsZero() {
		dto.CreatedAt = u.CreatedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toSettingsDTO(st punch.Settings) SettingsDTO {
	return SettingsDTO{
		Enforce:        st.Enforce,
		MarginMinutes:  int(st.Margin / time.Minute),
		DetectSchedule: st.DetectSchedule,
	}
}

func toLocationJSONs(locations []punch.Location) []factory.LocationJSON {
	out := make([]factory.LocationJSON, 0, len(locations))
	for _, l := range locations {
		out = append(out, factory.LocationJSON{
			ID:        l.ID,
			Name:      l.Name,
			Latitude:  l.Latitude,
			Longitude: l.Longitude,
			Radius:    l.Radius,
		})
	}
	return out
}

func (h *Handler) toScheduleJSONs(schedules []punch.Schedule) []factory.ScheduleJSON {
	out := make([]factory.ScheduleJSON, 0, len(schedules))
	for _, s := range schedules {
		out = append(out, h.Schedules.ToJSON(s))
	}
	return out
}
