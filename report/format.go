/*
Package report turns reconciled punches into payroll-facing rows.

PURPOSE:
  The punch engine works in time.Duration and UTC instants. Payroll and
  admin screens want HH:MM strings, local dates, decimal hours and
  human location labels. This package does that conversion and nothing
  else: it never touches a store.

DISPLAY RULES:
  - Durations are HH:MM, minutes truncated, hours unbounded ("27:05").
  - Instants are shown as "15:04 02/01/2006" in the configured zone.
  - Decimal hours are rounded to 2 places (shopspring/decimal).
  - Overtime and deficit columns are blank unless strictly positive.

SEE ALSO:
  - punch/engine.go: Engine.Report / ReportWhere produce the input
  - api/handlers.go: GET /api/users/{id}/report
*/
package report

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout is how entry and exit instants are rendered.
const TimestampLayout = "15:04 02/01/2006"

var hour = decimal.NewFromInt(int64(time.Hour))

// FormatHHMM renders d as HH:MM. Seconds are dropped, not rounded.
func FormatHHMM(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	total := int64(d / time.Minute)
	return fmt.Sprintf("%s%02d:%02d", sign, total/60, total%60)
}

// DecimalHours converts d to hours with two decimal places.
func DecimalHours(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d)).Div(hour).Round(2)
}

// FormatInstant renders t in loc, or "" for the zero time.
func FormatInstant(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(TimestampLayout)
}

// positive renders d as HH:MM when it is > 0, else "".
func positive(d *time.Duration) string {
	if d == nil || *d <= 0 {
		return ""
	}
	return FormatHHMM(*d)
}
