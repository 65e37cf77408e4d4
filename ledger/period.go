package ledger

import "time"

// =============================================================================
// PERIOD - Half-open query window
// =============================================================================

// Period is the half-open range [Start, End).
// A zero Start means unbounded in the past, a zero End unbounded in the future.
//
// Examples:
//   - January 2025: [2025-01-01, 2025-02-01)
//   - Everything from 2024 onward: [2024-01-01, zero)
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains returns true if t is within [Start, End).
func (p Period) Contains(t time.Time) bool {
	if !p.Start.IsZero() && t.Before(p.Start) {
		return false
	}
	if !p.End.IsZero() && !t.Before(p.End) {
		return false
	}
	return true
}

// Unbounded reports whether the period has no lower bound.
func (p Period) Unbounded() bool {
	return p.Start.IsZero()
}

func (p Period) String() string {
	start, end := "-inf", "+inf"
	if !p.Start.IsZero() {
		start = p.Start.Format(DateLayout)
	}
	if !p.End.IsZero() {
		end = p.End.Format(DateLayout)
	}
	return "[" + start + ", " + end + ")"
}

// Previous returns the calendar month before a month-aligned period.
func (p Period) Previous() Period {
	return Period{Start: AddMonths(p.Start, -1), End: p.Start}
}

// =============================================================================
// TIME RANGE - Caller-facing query window selector
// =============================================================================

type TimeRange string

const (
	RangeMonth   TimeRange = "month"
	RangeQuarter TimeRange = "quarter"
	RangeYear    TimeRange = "year"
	RangeAll     TimeRange = "all"
)

func (r TimeRange) Valid() bool {
	switch r {
	case RangeMonth, RangeQuarter, RangeYear, RangeAll:
		return true
	}
	return false
}

// TrendMonths is the number of months before the current one shown in trends.
func (r TimeRange) TrendMonths() int {
	switch r {
	case RangeMonth:
		return 0
	case RangeQuarter:
		return 2
	case RangeAll:
		return 23
	default:
		return 11
	}
}

// Span is the reporting period: from the first trend month through the end
// of the month containing now. RangeAll has no lower bound. Charges due after
// the current month are never part of the span.
func (r TimeRange) Span(now time.Time) Period {
	end := AddMonths(StartOfMonth(now), 1)
	if r == RangeAll {
		return Period{End: end}
	}
	return Period{Start: AddMonths(StartOfMonth(now), -r.TrendMonths()), End: end}
}

// QueryWindow selects what the Reader loads for a dashboard evaluated at now.
// The window is open-ended so upcoming charges are always included, and
// always reaches back far enough for the prior month and year-to-date figures.
func (r TimeRange) QueryWindow(now time.Time) Period {
	if r == RangeAll {
		return Period{}
	}
	current := StartOfMonth(now)
	from := AddMonths(current, -r.TrendMonths())
	if prior := AddMonths(current, -1); prior.Before(from) {
		from = prior
	}
	if ytd := StartOfYear(now); ytd.Before(from) {
		from = ytd
	}
	return Period{Start: from}
}
