/*
Package factory provides JSON to Go schedule and location conversion.

PURPOSE:
  Converts JSON schedule and location documents into punch.Schedule and
  punch.Location values. Administrators define working hours in JSON (API or
  database column), the factory validates them and builds the Go structs.

JSON SCHEMA (uniform):
  {
    "id": "office",
    "name": "Office hours",
    "start": "09:00",
    "end": "17:00",
    "break": {"type": "fixed", "start": "13:00", "end": "13:30"}
  }

JSON SCHEMA (per weekday):
  {
    "id": "retail",
    "name": "Retail",
    "per_day": true,
    "days": {
      "monday": {"start": "10:00", "end": "18:00", "break": {"type": "flexible", "minutes": 45}},
      "saturday": {"start": "10:00", "end": "14:00"}
    }
  }

  Weekdays missing from "days" are non-working. A missing "break" is
  {"type": "none"}.

VALIDATION:
  Struct tags are checked with go-playground/validator. Times use the custom
  "hhmm" rule (HH:MM or HH:MM:SS).

SEE ALSO:
  - punch/schedule.go: Schedule type definition
  - store/sqlite: Stores schedules as config_json
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/warp/timeclock/punch"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ScheduleJSON is the JSON representation of a schedule.
type ScheduleJSON struct {
	ID     string                 `json:"id" validate:"required"`
	Name   string                 `json:"name" validate:"required"`
	PerDay bool                   `json:"per_day,omitempty"`
	Start  string                 `json:"start,omitempty" validate:"omitempty,hhmm"`
	End    string                 `json:"end,omitempty" validate:"omitempty,hhmm"`
	Break  *BreakJSON             `json:"break,omitempty"`
	Days   map[string]DaySpecJSON `json:"days,omitempty" validate:"omitempty,dive"`
}

// DaySpecJSON is one working day.
type DaySpecJSON struct {
	Start string     `json:"start" validate:"required,hhmm"`
	End   string     `json:"end" validate:"required,hhmm"`
	Break *BreakJSON `json:"break,omitempty"`
}

// BreakJSON represents a break policy.
type BreakJSON struct {
	Type     string `json:"type" validate:"required,oneof=none fixed flexible"`
	Start    string `json:"start,omitempty" validate:"required_if=Type fixed"`
	End      string `json:"end,omitempty" validate:"required_if=Type fixed"`
	Minutes  int    `json:"minutes,omitempty" validate:"gte=0,lte=1440"`
	Optional bool   `json:"optional,omitempty"`
	Paid     bool   `json:"paid,omitempty"`
}

// LocationJSON is the JSON representation of a location.
type LocationJSON struct {
	ID        string  `json:"id" validate:"required"`
	Name      string  `json:"name" validate:"required"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Radius    float64 `json:"radius" validate:"gte=0"`
}

// =============================================================================
// VALIDATOR
// =============================================================================

// NewValidator returns a validator with the "hhmm" rule registered.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := punch.ParseTimeOfDay(fl.Field().String())
		return err == nil
	})
	return v
}

// ErrInvalidSchedule wraps every schedule or location document error.
var ErrInvalidSchedule = errors.New("invalid schedule")

// =============================================================================
// SCHEDULE FACTORY
// =============================================================================

// ScheduleFactory converts JSON schedules and locations to Go structs.
type ScheduleFactory struct {
	validate *validator.Validate
}

func NewScheduleFactory() *ScheduleFactory {
	return &ScheduleFactory{validate: NewValidator()}
}

// ParseSchedule parses a JSON document into a Schedule.
func (f *ScheduleFactory) ParseSchedule(jsonStr string) (punch.Schedule, error) {
	var sj ScheduleJSON
	if err := json.Unmarshal([]byte(jsonStr), &sj); err != nil {
		return punch.Schedule{}, fmt.Errorf("%w: failed to parse JSON: %v", ErrInvalidSchedule, err)
	}
	return f.FromJSON(sj)
}

// FromJSON validates sj and converts it to a Schedule.
func (f *ScheduleFactory) FromJSON(sj ScheduleJSON) (punch.Schedule, error) {
	if err := f.validate.Struct(sj); err != nil {
		return punch.Schedule{}, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}

	if !sj.PerDay {
		if sj.Start == "" || sj.End == "" {
			return punch.Schedule{}, fmt.Errorf("%w: uniform schedule requires start and end", ErrInvalidSchedule)
		}
		spec, err := parseDay(DaySpecJSON{Start: sj.Start, End: sj.End, Break: sj.Break})
		if err != nil {
			return punch.Schedule{}, err
		}
		return punch.NewUniformSchedule(sj.ID, sj.Name, spec), nil
	}

	days := make(map[time.Weekday]punch.DaySpec, len(sj.Days))
	for name, dj := range sj.Days {
		wd, err := parseWeekday(name)
		if err != nil {
			return punch.Schedule{}, err
		}
		spec, err := parseDay(dj)
		if err != nil {
			return punch.Schedule{}, fmt.Errorf("%s: %w", name, err)
		}
		days[wd] = spec
	}
	return punch.NewWeeklySchedule(sj.ID, sj.Name, days), nil
}

// ToJSON converts a Schedule back to its JSON document.
func (f *ScheduleFactory) ToJSON(s punch.Schedule) ScheduleJSON {
	sj := ScheduleJSON{ID: s.ID, Name: s.Name, PerDay: s.PerDay}
	if !s.PerDay {
		if s.Uniform != nil {
			sj.Start = s.Uniform.Start.String()
			sj.End = s.Uniform.End.String()
			sj.Break = breakToJSON(s.Uniform.Break)
		}
		return sj
	}
	sj.Days = make(map[string]DaySpecJSON, len(s.Days))
	for wd, spec := range s.Days {
		sj.Days[strings.ToLower(wd.String())] = DaySpecJSON{
			Start: spec.Start.String(),
			End:   spec.End.String(),
			Break: breakToJSON(spec.Break),
		}
	}
	return sj
}

// MarshalSchedule renders s as a JSON document.
func (f *ScheduleFactory) MarshalSchedule(s punch.Schedule) (string, error) {
	b, err := json.Marshal(f.ToJSON(s))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseLocation validates a location document.
func (f *ScheduleFactory) ParseLocation(lj LocationJSON) (punch.Location, error) {
	if err := f.validate.Struct(lj); err != nil {
		return punch.Location{}, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	return punch.Location{
		ID:        lj.ID,
		Name:      strings.TrimSpace(lj.Name),
		Latitude:  lj.Latitude,
		Longitude: lj.Longitude,
		Radius:    lj.Radius,
	}, nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekday(s string) (time.Weekday, error) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidSchedule, s)
	}
	return wd, nil
}

// parseDay converts a validated day. Times have already passed "hhmm".
func parseDay(dj DaySpecJSON) (punch.DaySpec, error) {
	start, err := punch.ParseTimeOfDay(dj.Start)
	if err != nil {
		return punch.DaySpec{}, fmt.Errorf("%w: start: %v", ErrInvalidSchedule, err)
	}
	end, err := punch.ParseTimeOfDay(dj.End)
	if err != nil {
		return punch.DaySpec{}, fmt.Errorf("%w: end: %v", ErrInvalidSchedule, err)
	}
	brk, err := parseBreak(dj.Break)
	if err != nil {
		return punch.DaySpec{}, err
	}
	return punch.DaySpec{Start: start, End: end, Break: brk}, nil
}

func parseBreak(bj *BreakJSON) (punch.BreakPolicy, error) {
	if bj == nil {
		return punch.NoBreak(), nil
	}
	var b punch.BreakPolicy
	switch punch.BreakKind(bj.Type) {
	case punch.BreakFixed:
		start, err := punch.ParseTimeOfDay(bj.Start)
		if err != nil {
			return b, fmt.Errorf("%w: break start: %v", ErrInvalidSchedule, err)
		}
		end, err := punch.ParseTimeOfDay(bj.End)
		if err != nil {
			return b, fmt.Errorf("%w: break end: %v", ErrInvalidSchedule, err)
		}
		b = punch.FixedBreak(start, end)
	case punch.BreakFlexible:
		b = punch.FlexibleBreak(bj.Minutes)
	default:
		b = punch.NoBreak()
	}
	b.Optional = bj.Optional
	b.Paid = bj.Paid
	return b, nil
}

func breakToJSON(b punch.BreakPolicy) *BreakJSON {
	if b.Kind == "" || (b.Kind == punch.BreakNone && !b.Optional && !b.Paid) {
		return nil
	}
	bj := &BreakJSON{Type: string(b.Kind), Optional: b.Optional, Paid: b.Paid}
	switch b.Kind {
	case punch.BreakFixed:
		bj.Start = b.Start.String()
		bj.End = b.End.String()
	case punch.BreakFlexible:
		bj.Minutes = b.Minutes
	}
	return bj
}
