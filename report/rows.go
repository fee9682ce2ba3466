package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/warp/timeclock/punch"
)

// NoData is the location label for punches without coordinates.
const NoData = "no data"

// FilterFlexible selects events outside every defined location.
const FilterFlexible = "flexible"

// =============================================================================
// ROWS
// =============================================================================

// Row is one interval as shown to payroll.
type Row struct {
	UserID   punch.UserID
	UserName string
	Entry    string
	Exit     string
	Break    string
	Location string
	Worked   string
	Overtime string
	Deficit  string
}

// Builder renders intervals. Locations are the ones defined in the system;
// the flexible sentinel is ignored for labelling.
type Builder struct {
	Locations []punch.Location
	Zone      *time.Location
	Tolerance float64
}

// NewBuilder uses punch.DefaultTolerance for location labels.
func NewBuilder(locations []punch.Location, zone *time.Location) Builder {
	return Builder{Locations: locations, Zone: zone, Tolerance: punch.DefaultTolerance}
}

// BuildRows renders every interval of rep in its existing order.
func (b Builder) BuildRows(userName string, rep punch.Report) []Row {
	rows := make([]Row, 0, len(rep.Intervals))
	for _, iv := range rep.Intervals {
		row := Row{
			UserID:   rep.UserID,
			UserName: userName,
			Break:    BreakLabel(iv),
			Location: b.IntervalLabel(iv),
			Overtime: positive(iv.Overtime),
			Deficit:  positive(iv.Deficit),
		}
		if iv.ClockIn != nil {
			row.Entry = FormatInstant(iv.ClockIn.At, b.Zone)
		}
		if iv.ClockOut != nil {
			row.Exit = FormatInstant(iv.ClockOut.At, b.Zone)
		}
		if iv.IsComplete() {
			row.Worked = FormatHHMM(iv.Worked)
		}
		rows = append(rows, row)
	}
	return rows
}

// BreakLabel is "no break", "on break (HH:MM)" while a break is still open,
// or the real break taken as HH:MM.
func BreakLabel(iv punch.Interval) string {
	switch {
	case iv.BreakInProgress:
		return fmt.Sprintf("on break (%s)", FormatHHMM(iv.RealBreak))
	case iv.RealBreak <= 0:
		return "no break"
	default:
		return FormatHHMM(iv.RealBreak)
	}
}

// =============================================================================
// LOCATION LABELS
// =============================================================================

// EventLabel names the location e was punched at: the matched location name,
// the raw "lat, lon" when nothing matches, or NoData without coordinates.
func (b Builder) EventLabel(e *punch.PunchEvent) string {
	if e == nil {
		return ""
	}
	if e.Coord == nil {
		return NoData
	}
	if loc, ok := punch.MatchLocation(*e.Coord, b.Locations, b.Tolerance); ok {
		return loc.Name
	}
	return fmt.Sprintf("%.6f, %.6f", e.Coord.Latitude, e.Coord.Longitude)
}

// IntervalLabel joins entry and exit labels with " - " when they differ.
func (b Builder) IntervalLabel(iv punch.Interval) string {
	in, out := b.EventLabel(iv.ClockIn), b.EventLabel(iv.ClockOut)
	switch {
	case in != "" && out != "":
		if in == out {
			return in
		}
		return in + " - " + out
	case in != "":
		return in
	case out != "":
		return out
	default:
		return NoData
	}
}

// =============================================================================
// LOCATION FILTER
// =============================================================================

// FilterByLocation returns a predicate for punch.Engine.ReportWhere.
//
// An empty filter or "all" keeps everything. FilterFlexible keeps events
// that match no defined location (events without coordinates included).
// Any other value is a location ID: only events inside that location's
// radius, with no tolerance, are kept. An unknown ID returns an error.
func FilterByLocation(filter string, locations []punch.Location) (func(punch.PunchEvent) bool, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" || strings.EqualFold(filter, "all") {
		return nil, nil
	}

	if strings.EqualFold(filter, FilterFlexible) {
		return func(e punch.PunchEvent) bool {
			if e.Coord == nil {
				return true
			}
			_, ok := punch.MatchLocation(*e.Coord, locations, punch.DefaultTolerance)
			return !ok
		}, nil
	}

	for _, loc := range locations {
		if loc.ID != filter {
			continue
		}
		only := []punch.Location{loc}
		return func(e punch.PunchEvent) bool {
			if e.Coord == nil {
				return false
			}
			_, ok := punch.MatchLocation(*e.Coord, only, 0)
			return ok
		}, nil
	}
	return nil, fmt.Errorf("unknown location %q", filter)
}
