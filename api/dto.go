/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the punch domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator tags and are checked by
  decodeAndValidate before reaching the engine. Schedule and location
  documents reuse the factory JSON types and their tags.

DURATIONS:
  Every duration is sent twice: "HH:MM" for display and decimal hours
  (2 places, encoded as a JSON string) for payroll.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/schedule.go: ScheduleJSON, LocationJSON
  - report/: HH:MM and decimal formatting
*/
package api

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/timeclock/punch"
	"github.com/warp/timeclock/report"
)

// =============================================================================
// USERS & SETTINGS
// =============================================================================

type UserDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type CreateUserRequest struct {
	ID    string `json:"id" validate:"required,max=64"`
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
}

// AssignRequest replaces a user's locations or schedules. Order matters:
// the first schedule is the one that applies.
type AssignRequest struct {
	IDs []string `json:"ids" validate:"dive,required"`
}

type SettingsRequest struct {
	Enforce        bool `json:"enforce"`
	MarginMinutes  int  `json:"margin_minutes" validate:"gte=0,lte=720"`
	DetectSchedule bool `json:"detect_schedule"`
}

type SettingsDTO struct {
	Enforce        bool `json:"enforce"`
	MarginMinutes  int  `json:"margin_minutes"`
	DetectSchedule bool `json:"detect_schedule"`
}

// =============================================================================
// PUNCHES
// =============================================================================

type PunchRequest struct {
	Action        string            `json:"action" validate:"required"`
	Latitude      *float64          `json:"latitude"`
	Longitude     *float64          `json:"longitude"`
	Justification *JustificationDTO `json:"justification,omitempty"`
}

type JustificationDTO struct {
	Reason string `json:"reason" validate:"required"`
	Detail string `json:"detail,omitempty"`
}

type EventDTO struct {
	ID        string   `json:"id"`
	Action    string   `json:"action"`
	At        string   `json:"at"`
	Local     string   `json:"local"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type StatusDTO struct {
	UserID                string `json:"user_id"`
	State                 string `json:"state"`
	ClockedInAt           string `json:"clocked_in_at,omitempty"`
	BreakStartedAt        string `json:"break_started_at,omitempty"`
	RequiresJustification bool   `json:"requires_justification"`
}

// ValidationDTO is the answer of the dry-run endpoint.
type ValidationDTO struct {
	Admitted bool   `json:"admitted"`
	Kind     string `json:"kind,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// =============================================================================
// REPORTS
// =============================================================================

type DurationDTO struct {
	HHMM  string          `json:"hhmm"`
	Hours decimal.Decimal `json:"hours"`
}

type RowDTO struct {
	UserName string `json:"user_name"`
	Entry    string `json:"entry"`
	Exit     string `json:"exit"`
	Break    string `json:"break"`
	Location string `json:"location"`
	Worked   string `json:"worked"`
	Overtime string `json:"overtime"`
	Deficit  string `json:"deficit"`
}

type DayDTO struct {
	Date     string      `json:"date"`
	Worked   DurationDTO `json:"worked"`
	Expected DurationDTO `json:"expected"`
	Overtime DurationDTO `json:"overtime"`
	Deficit  DurationDTO `json:"deficit"`
}

type BucketDTO struct {
	Key      string      `json:"key"`
	From     string      `json:"from"`
	To       string      `json:"to"`
	Days     int         `json:"days"`
	Worked   DurationDTO `json:"worked"`
	Expected DurationDTO `json:"expected"`
	Overtime DurationDTO `json:"overtime"`
	Deficit  DurationDTO `json:"deficit"`
}

type SummaryDTO struct {
	Granularity string      `json:"granularity"`
	Worked      DurationDTO `json:"worked"`
	Expected    DurationDTO `json:"expected"`
	Overtime    DurationDTO `json:"overtime"`
	Deficit     DurationDTO `json:"deficit"`
	Buckets     []BucketDTO `json:"buckets"`
}

type ReportDTO struct {
	UserID   string     `json:"user_id"`
	From     string     `json:"from"`
	To       string     `json:"to"`
	Location string     `json:"location,omitempty"`
	Rows     []RowDTO   `json:"rows"`
	Days     []DayDTO   `json:"days"`
	Summary  SummaryDTO `json:"summary"`
}

type SnapshotDTO struct {
	Date     string      `json:"date"`
	Worked   DurationDTO `json:"worked"`
	Expected DurationDTO `json:"expected"`
	Overtime DurationDTO `json:"overtime"`
	Deficit  DurationDTO `json:"deficit"`
	TakenAt  string      `json:"taken_at"`
}

// =============================================================================
// MANUAL EDITS
// =============================================================================

// ManualPunchDTO is an entry or exit typed by an administrator. At is
// local time (RFC3339 or "2006-01-02 15:04").
type ManualPunchDTO struct {
	At        string   `json:"at" validate:"required"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type IntervalEditRequest struct {
	ClockInID  string          `json:"clock_in_id"`
	ClockOutID string          `json:"clock_out_id"`
	ClockIn    *ManualPunchDTO `json:"clock_in"`
	ClockOut   *ManualPunchDTO `json:"clock_out"`
	Break      *string         `json:"break"`
	EditorID   string          `json:"editor_id" validate:"required"`
}

type IntervalRetractRequest struct {
	ClockInID  string `json:"clock_in_id"`
	ClockOutID string `json:"clock_out_id"`
	EditorID   string `json:"editor_id" validate:"required"`
}

type EditResultDTO struct {
	ClockIn  *EventDTO  `json:"clock_in,omitempty"`
	ClockOut *EventDTO  `json:"clock_out,omitempty"`
	Breaks   []EventDTO `json:"breaks"`
}

// =============================================================================
// COMMON
// =============================================================================

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toDuration(d time.Duration) DurationDTO {
	return DurationDTO{HHMM: report.FormatHHMM(d), Hours: report.DecimalHours(d)}
}

func toEventDTO(e punch.PunchEvent, zone *time.Location) EventDTO {
	dto := EventDTO{
		ID:     string(e.ID),
		Action: string(e.Action),
		At:     e.At.UTC().Format(time.RFC3339),
		Local:  report.FormatInstant(e.At, zone),
	}
	if e.Coord != nil {
		lat, lon := e.Coord.Latitude, e.Coord.Longitude
		dto.Latitude, dto.Longitude = &lat, &lon
	}
	return dto
}

func toEventDTOPtr(e *punch.PunchEvent, zone *time.Location) *EventDTO {
	if e == nil {
		return nil
	}
	dto := toEventDTO(*e, zone)
	return &dto
}

func toDayDTO(d punch.DailyAggregate) DayDTO {
	return DayDTO{
		Date:     d.Date.String(),
		Worked:   toDuration(d.Worked),
		Expected: toDuration(d.Expected),
		Overtime: toDuration(d.Overtime),
		Deficit:  toDuration(d.Deficit),
	}
}

func toSummaryDTO(s punch.PeriodSummary) SummaryDTO {
	dto := SummaryDTO{
		Granularity: string(s.Granularity),
		Worked:      toDuration(s.Worked),
		Expected:    toDuration(s.Expected),
		Overtime:    toDuration(s.Overtime),
		Deficit:     toDuration(s.Deficit),
		Buckets:     make([]BucketDTO, 0, len(s.Buckets)),
	}
	for _, b := range s.Buckets {
		dto.Buckets = append(dto.Buckets, BucketDTO{
			Key:      b.Key,
			From:     b.Period.Start.String(),
			To:       b.Period.End.String(),
			Days:     b.Days,
			Worked:   toDuration(b.Worked),
			Expected: toDuration(b.Expected),
			Overtime: toDuration(b.Overtime),
			Deficit:  toDuration(b.Deficit),
		})
	}
	return dto
}

func toRowDTO(r report.Row) RowDTO {
	return RowDTO{
		UserName: r.UserName,
		Entry:    r.Entry,
		Exit:     r.Exit,
		Break:    r.Break,
		Location: r.Location,
		Worked:   r.Worked,
		Overtime: r.Overtime,
		Deficit:  r.Deficit,
	}
}

var errHalfCoordinate = errors.New("latitude and longitude must be sent together")

// coordinate builds a coordinate when both halves are present.
func coordinate(lat, lon *float64) (*punch.Coordinate, error) {
	switch {
	case lat == nil && lon == nil:
		return nil, nil
	case lat == nil || lon == nil:
		return nil, errHalfCoordinate
	}
	return &punch.Coordinate{Latitude: *lat, Longitude: *lon}, nil
}
