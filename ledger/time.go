package ledger

import (
	"math"
	"time"
)

// =============================================================================
// DATE FORMATS
// =============================================================================

// DateLayout is the ISO-8601 calendar date used on the wire.
const DateLayout = "2006-01-02"

// MonthLayout keys trend buckets.
const MonthLayout = "2006-01"

// ParseDate accepts a calendar date or a full RFC3339 timestamp and returns UTC.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Date builds a UTC midnight.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// DAY ARITHMETIC
// =============================================================================

// CeilDays returns ceil((to - from) / 24h).
//
// A target at 00:00 viewed from 00:01 the same day yields 0, not -1: a day
// only counts as passed once a full 24h has elapsed past the target.
func CeilDays(from, to time.Time) int {
	d := to.Sub(from)
	return int(math.Ceil(d.Hours() / 24))
}

// =============================================================================
// MONTH ARITHMETIC
// =============================================================================

func StartOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func StartOfYear(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths shifts a first-of-month time; day overflow cannot occur.
func AddMonths(monthStart time.Time, n int) time.Time {
	return monthStart.AddDate(0, n, 0)
}

// MonthOf returns the half-open period covering t's calendar month.
func MonthOf(t time.Time) Period {
	start := StartOfMonth(t)
	return Period{Start: start, End: AddMonths(start, 1)}
}
