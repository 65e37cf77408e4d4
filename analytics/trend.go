package analytics

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rental-analytics/ledger"
)

// =============================================================================
// MONTHLY TREND
// =============================================================================

// TrendInput is everything the trend needs. WindowMonths is the number of
// months before the one containing Now; a negative window counts as 0.
type TrendInput struct {
	Payments     []ledger.Payment
	Expenses     []ledger.Expense
	Units        []ledger.Unit
	Tenancies    []ledger.Tenancy
	WindowMonths int
	Now          time.Time
}

type MonthlyTrend struct {
	Month          string          `json:"month"` // YYYY-MM
	Start          time.Time       `json:"start" report:"-"`
	Revenue        decimal.Decimal `json:"revenue" report:"currency"`
	Expenses       decimal.Decimal `json:"expenses" report:"currency"`
	NetIncome      decimal.Decimal `json:"net_income" report:"currency"`
	OccupancyRate  decimal.Decimal `json:"occupancy_rate" report:"percent"`
	CollectionRate decimal.Decimal `json:"collection_rate" report:"percent"`
}

// ComputeMonthlyTrend returns exactly WindowMonths+1 entries, oldest first,
// one per calendar month up to and including the month of Now. Months with
// no activity are explicit zero entries.
//
// Bucketing:
//   - payments by the month of DueDate
//   - expenses by the month of IncurredOn
//   - occupancy from tenancies overlapping the month (see unitsForMonth)
//
// Revenue and CollectionRate come from AggregateRentCollection over the
// month's payments; OccupancyRate from AggregatePortfolio. Payments are
// validated up front, so one bad record fails the trend instead of showing
// as a zero.
func ComputeMonthlyTrend(in TrendInput) ([]MonthlyTrend, error) {
	if err := checkPayments(in.Payments); err != nil {
		return nil, err
	}

	window := in.WindowMonths
	if window < 0 {
		window = 0
	}

	first := ledger.AddMonths(ledger.StartOfMonth(in.Now), -window)
	months := make([]time.Time, window+1)
	index := make(map[string]int, window+1)
	for i := range months {
		months[i] = ledger.AddMonths(first, i)
		index[months[i].Format(ledger.MonthLayout)] = i
	}

	paymentBuckets := make([][]ledger.Payment, len(months))
	for _, p := range in.Payments {
		if i, ok := index[p.DueDate.UTC().Format(ledger.MonthLayout)]; ok {
			paymentBuckets[i] = append(paymentBuckets[i], p)
		}
	}

	expenseBuckets := make([]decimal.Decimal, len(months))
	for i := range expenseBuckets {
		expenseBuckets[i] = decimal.Zero
	}
	for _, e := range in.Expenses {
		if i, ok := index[e.IncurredOn.UTC().Format(ledger.MonthLayout)]; ok {
			expenseBuckets[i] = expenseBuckets[i].Add(e.Amount)
		}
	}

	trend := make([]MonthlyTrend, len(months))
	for i, start := range months {
		rent := rentCollection(paymentBuckets[i], in.Now)
		occupancy := AggregatePortfolio(unitsForMonth(in.Units, in.Tenancies, start, ledger.AddMonths(start, 1)))

		trend[i] = MonthlyTrend{
			Month:          start.Format(ledger.MonthLayout),
			Start:          start,
			Revenue:        rent.TotalCollected,
			Expenses:       expenseBuckets[i],
			NetIncome:      rent.TotalCollected.Sub(expenseBuckets[i]),
			OccupancyRate:  occupancy.OccupancyRate,
			CollectionRate: rent.CollectionRate,
		}
	}
	return trend, nil
}

// unitsForMonth derives each unit's status for [from, to): occupied when a
// signed (non-pending) tenancy overlaps the month, maintenance when the unit
// is in maintenance now and has no such tenancy, otherwise available.
func unitsForMonth(units []ledger.Unit, tenancies []ledger.Tenancy, from, to time.Time) []ledger.Unit {
	leased := make(map[ledger.UnitID]bool)
	for _, t := range tenancies {
		if t.Status == ledger.TenancyPending {
			continue
		}
		if t.Overlaps(from, to) {
			leased[t.UnitID] = true
		}
	}

	out := make([]ledger.Unit, len(units))
	for i, u := range units {
		out[i] = u
		switch {
		case leased[u.ID]:
			out[i].Status = ledger.UnitOccupied
		case u.Status == ledger.UnitMaintenance:
			out[i].Status = ledger.UnitMaintenance
		default:
			out[i].Status = ledger.UnitAvailable
		}
	}
	return out
}
