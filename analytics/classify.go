/*
Package analytics turns a ledger snapshot into dashboard figures.

PURPOSE:
  Every surface that shows a payment state, a lease warning or a portfolio
  rollup calls into this package. Thresholds live here once and nowhere else.

PIPELINE:
  Snapshot -> classify (classify.go) -> aggregate (rent.go, portfolio.go,
  financial.go) -> alerts (alerts.go) -> trend (trend.go)

  Each stage is a pure function of its input. Nothing here reads the wall
  clock: "now" is always a parameter.

KEY CONCEPTS IN THIS FILE (classify.go):
  - PaymentUrgency: paid, failed, refunded, overdue, due_soon, upcoming
  - LeaseUrgency: urgent, warning, normal
  - Day deltas use ledger.CeilDays so a payment due at 00:00 is not overdue
    until a full day has passed

SEE ALSO:
  - service.go: Loads a snapshot and runs the pipeline
  - ../report: Serializes the outputs
*/
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rental-analytics/ledger"
)

// =============================================================================
// THRESHOLDS
// =============================================================================

const (
	// DueSoonDays is the last day delta that still counts as due soon.
	DueSoonDays = 7

	// LeaseUrgentDays and LeaseWarningDays bound lease expiry urgency (inclusive).
	LeaseUrgentDays  = 30
	LeaseWarningDays = 90
)

// =============================================================================
// PAYMENT URGENCY
// =============================================================================

type PaymentUrgency string

const (
	UrgencyPaid     PaymentUrgency = "paid"
	UrgencyFailed   PaymentUrgency = "failed"
	UrgencyRefunded PaymentUrgency = "refunded"
	UrgencyOverdue  PaymentUrgency = "overdue"
	UrgencyDueSoon  PaymentUrgency = "due_soon"
	UrgencyUpcoming PaymentUrgency = "upcoming"
)

func (u PaymentUrgency) Valid() bool {
	switch u {
	case UrgencyPaid, UrgencyFailed, UrgencyRefunded, UrgencyOverdue, UrgencyDueSoon, UrgencyUpcoming:
		return true
	}
	return false
}

// Outstanding reports whether money is still expected for the payment.
func (u PaymentUrgency) Outstanding() bool {
	return u == UrgencyOverdue || u == UrgencyDueSoon || u == UrgencyUpcoming
}

// Classification is the derived state of one payment at a point in time.
// DeltaDays and DaysOverdue are only meaningful for pending payments.
type Classification struct {
	Urgency     PaymentUrgency
	DeltaDays   int
	DaysOverdue int
}

// ClassifyPayment derives a payment's urgency. Priority:
//  1. completed -> paid
//  2. failed / refunded -> passed through
//  3. pending -> by day delta to DueDate: <0 overdue, 0..7 due soon, >7 upcoming
func ClassifyPayment(p ledger.Payment, now time.Time) Classification {
	switch p.Status {
	case ledger.PaymentCompleted:
		return Classification{Urgency: UrgencyPaid}
	case ledger.PaymentFailed:
		return Classification{Urgency: UrgencyFailed}
	case ledger.PaymentRefunded:
		return Classification{Urgency: UrgencyRefunded}
	}

	delta := ledger.CeilDays(now, p.DueDate)
	switch {
	case delta < 0:
		return Classification{Urgency: UrgencyOverdue, DeltaDays: delta, DaysOverdue: -delta}
	case delta <= DueSoonDays:
		return Classification{Urgency: UrgencyDueSoon, DeltaDays: delta}
	default:
		return Classification{Urgency: UrgencyUpcoming, DeltaDays: delta}
	}
}

// ClassifiedPayment pairs a payment with its classification for listings.
type ClassifiedPayment struct {
	PaymentID   ledger.PaymentID     `json:"payment_id"`
	TenancyID   ledger.TenancyID     `json:"tenancy_id"`
	Type        ledger.PaymentType   `json:"type"`
	Status      ledger.PaymentStatus `json:"status"`
	DueDate     time.Time            `json:"due_date"`
	PaidDate    *time.Time           `json:"paid_date,omitempty"`
	Amount      decimal.Decimal      `json:"amount" report:"currency"`
	Urgency     PaymentUrgency       `json:"urgency"`
	DeltaDays   int                  `json:"delta_days"`
	DaysOverdue int                  `json:"days_overdue"`
}

// ClassifyPayments classifies every payment, ordered by due date then ID.
func ClassifyPayments(payments []ledger.Payment, now time.Time) ([]ClassifiedPayment, error) {
	if err := checkPayments(payments); err != nil {
		return nil, err
	}

	out := make([]ClassifiedPayment, 0, len(payments))
	for _, p := range payments {
		c := ClassifyPayment(p, now)
		out = append(out, ClassifiedPayment{
			PaymentID:   p.ID,
			TenancyID:   p.TenancyID,
			Type:        p.Type,
			Status:      p.Status,
			DueDate:     p.DueDate,
			PaidDate:    p.PaidDate,
			Amount:      p.Value(),
			Urgency:     c.Urgency,
			DeltaDays:   c.DeltaDays,
			DaysOverdue: c.DaysOverdue,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].PaymentID < out[j].PaymentID
	})
	return out, nil
}

// =============================================================================
// LEASE URGENCY
// =============================================================================

type LeaseUrgency string

const (
	LeaseUrgent  LeaseUrgency = "urgent"
	LeaseWarning LeaseUrgency = "warning"
	LeaseNormal  LeaseUrgency = "normal"
)

func (u LeaseUrgency) Valid() bool {
	switch u {
	case LeaseUrgent, LeaseWarning, LeaseNormal:
		return true
	}
	return false
}

// ClassifyTenancy derives lease expiry urgency from the day delta to EndDate.
// A lease already past its end date is urgent.
func ClassifyTenancy(t ledger.Tenancy, now time.Time) LeaseUrgency {
	return leaseUrgency(ledger.CeilDays(now, t.EndDate))
}

func leaseUrgency(days int) LeaseUrgency {
	switch {
	case days <= LeaseUrgentDays:
		return LeaseUrgent
	case days <= LeaseWarningDays:
		return LeaseWarning
	default:
		return LeaseNormal
	}
}

// LeaseStatus is one row of the lease expiry list.
type LeaseStatus struct {
	TenancyID     ledger.TenancyID `json:"tenancy_id"`
	UnitID        ledger.UnitID    `json:"unit_id"`
	TenantID      string           `json:"tenant_id"`
	EndDate       time.Time        `json:"end_date"`
	DaysRemaining int              `json:"days_remaining"`
	Urgency       LeaseUrgency     `json:"urgency"`
}

// LeaseStatuses lists active tenancies, soonest expiry first.
func LeaseStatuses(tenancies []ledger.Tenancy, now time.Time) []LeaseStatus {
	out := []LeaseStatus{}
	for _, t := range tenancies {
		if t.Status != ledger.TenancyActive {
			continue
		}
		days := ledger.CeilDays(now, t.EndDate)
		out = append(out, LeaseStatus{
			TenancyID:     t.ID,
			UnitID:        t.UnitID,
			TenantID:      t.TenantID,
			EndDate:       t.EndDate,
			DaysRemaining: days,
			Urgency:       leaseUrgency(days),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DaysRemaining != out[j].DaysRemaining {
			return out[i].DaysRemaining < out[j].DaysRemaining
		}
		return out[i].TenancyID < out[j].TenancyID
	})
	return out
}
