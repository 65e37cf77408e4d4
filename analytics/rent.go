package analytics

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rental-analytics/ledger"
)

// =============================================================================
// DIVISION GUARD
// =============================================================================

var hundred = decimal.NewFromInt(100)

// percentOf returns part/whole*100, or 0 when whole is zero. Every rate in
// this package goes through here so an empty portfolio never yields an error.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

// =============================================================================
// RENT COLLECTION
// =============================================================================

// RentCollectionSummary rolls up a set of payments.
//
//	TotalExpected:  sum of rent-type payments, any status
//	TotalCollected: sum of completed payments, any type
//	TotalPending:   sum of pending payments classified due_soon or upcoming
//	TotalOverdue:   sum of pending payments classified overdue
type RentCollectionSummary struct {
	TotalExpected  decimal.Decimal `json:"total_expected" report:"currency"`
	TotalCollected decimal.Decimal `json:"total_collected" report:"currency"`
	TotalPending   decimal.Decimal `json:"total_pending" report:"currency"`
	TotalOverdue   decimal.Decimal `json:"total_overdue" report:"currency"`
	CollectionRate decimal.Decimal `json:"collection_rate" report:"percent"`
	PendingCount   int             `json:"pending_count"`
	OverdueCount   int             `json:"overdue_count"`
}

// AggregateRentCollection classifies each payment at now and sums the buckets.
// An empty input reports zero everywhere, including the rate. A payment
// missing its amount, due date, status or type fails the whole call.
func AggregateRentCollection(payments []ledger.Payment, now time.Time) (RentCollectionSummary, error) {
	if err := checkPayments(payments); err != nil {
		return RentCollectionSummary{}, err
	}
	return rentCollection(payments, now), nil
}

func rentCollection(payments []ledger.Payment, now time.Time) RentCollectionSummary {
	s := RentCollectionSummary{
		TotalExpected:  decimal.Zero,
		TotalCollected: decimal.Zero,
		TotalPending:   decimal.Zero,
		TotalOverdue:   decimal.Zero,
	}

	for _, p := range payments {
		amount := p.Value()
		if p.Type == ledger.PaymentRent {
			s.TotalExpected = s.TotalExpected.Add(amount)
		}

		switch u := ClassifyPayment(p, now).Urgency; {
		case u == UrgencyPaid:
			s.TotalCollected = s.TotalCollected.Add(amount)
		case u == UrgencyOverdue:
			s.TotalOverdue = s.TotalOverdue.Add(amount)
			s.OverdueCount++
		case u.Outstanding():
			s.TotalPending = s.TotalPending.Add(amount)
			s.PendingCount++
		}
	}

	s.CollectionRate = percentOf(s.TotalCollected, s.TotalExpected)
	return s
}

// checkPayments runs ValidatePayment over every payment so no aggregate
// ever reads an absent amount as zero.
func checkPayments(payments ...[]ledger.Payment) error {
	for _, set := range payments {
		for _, p := range set {
			if err := ledger.ValidatePayment(p); err != nil {
				return err
			}
		}
	}
	return nil
}

// collectedSum is the completed-payment total used as income. Callers
// validate first.
func collectedSum(payments []ledger.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.Status == ledger.PaymentCompleted {
			total = total.Add(p.Value())
		}
	}
	return total
}
