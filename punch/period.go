package punch

import (
	"fmt"
	"sort"
	"time"
)

// =============================================================================
// GRANULARITY
// =============================================================================

type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case "", GranularityDay:
		return GranularityDay, nil
	case GranularityWeek, GranularityMonth:
		return Granularity(s), nil
	}
	return "", fmt.Errorf("invalid granularity %q", s)
}

// BucketKey names the bucket d falls into: "2006-01-02", "2006-W02" (ISO
// week) or "2006-01".
func (g Granularity) BucketKey(d Date) string {
	switch g {
	case GranularityWeek:
		y, w := d.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	case GranularityMonth:
		return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
	default:
		return d.String()
	}
}

// PeriodFor returns the bucket containing d as a date range.
func (g Granularity) PeriodFor(d Date) Period {
	switch g {
	case GranularityWeek:
		offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
		start := d.AddDays(-offset)
		return Period{Start: start, End: start.AddDays(6)}
	case GranularityMonth:
		start := NewDate(d.Year, d.Month, 1)
		end := NewDate(d.Year, d.Month+1, 1).AddDays(-1)
		return Period{Start: start, End: end}
	default:
		return Period{Start: d, End: d}
	}
}

// =============================================================================
// PERIOD AGGREGATION
// =============================================================================

type PeriodTotals struct {
	Key      string
	Period   Period
	Days     int
	Worked   time.Duration
	Expected time.Duration
	Overtime time.Duration
	Deficit  time.Duration
}

type PeriodSummary struct {
	Granularity Granularity
	Worked      time.Duration
	Expected    time.Duration
	Overtime    time.Duration
	Deficit     time.Duration
	Buckets     []PeriodTotals
}

// AggregatePeriod rolls daily aggregates up by granularity. Worked and
// expected are summed. Overtime and deficit are also summed from the daily
// figures: a short day never cancels a long one, in a bucket or overall.
func AggregatePeriod(days []DailyAggregate, g Granularity) PeriodSummary {
	if g == "" {
		g = GranularityDay
	}
	summary := PeriodSummary{Granularity: g}
	buckets := make(map[string]*PeriodTotals)

	for _, d := range days {
		key := g.BucketKey(d.Date)
		b, ok := buckets[key]
		if !ok {
			b = &PeriodTotals{Key: key, Period: g.PeriodFor(d.Date)}
			buckets[key] = b
		}
		b.Days++
		b.Worked += d.Worked
		b.Expected += d.Expected
		b.Overtime += d.Overtime
		b.Deficit += d.Deficit

		summary.Worked += d.Worked
		summary.Expected += d.Expected
		summary.Overtime += d.Overtime
		summary.Deficit += d.Deficit
	}

	summary.Buckets = make([]PeriodTotals, 0, len(buckets))
	for _, b := range buckets {
		summary.Buckets = append(summary.Buckets, *b)
	}
	sort.Slice(summary.Buckets, func(i, j int) bool {
		return summary.Buckets[i].Period.Start.Before(summary.Buckets[j].Period.Start)
	})
	return summary
}
