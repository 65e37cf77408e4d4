package analytics

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ALERT THRESHOLDS
// =============================================================================

var (
	// LowMarginThreshold: a profit margin strictly below this fires low_margin.
	LowMarginThreshold = decimal.NewFromInt(10)

	// DeclineThreshold: income growth strictly below this fires income_decline.
	DeclineThreshold = decimal.NewFromInt(-10)
)

// =============================================================================
// ALERTS
// =============================================================================

type AlertType string

const (
	AlertLowMargin       AlertType = "low_margin"
	AlertIncomeDecline   AlertType = "income_decline"
	AlertOverduePayments AlertType = "overdue_payments"
	AlertLeaseExpiring   AlertType = "lease_expiring"
)

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type Alert struct {
	Type     AlertType       `json:"type"`
	Severity Severity        `json:"severity"`
	Message  string          `json:"message"`
	Value    decimal.Decimal `json:"value"`
	Subject  string          `json:"subject,omitempty"` // tenancy ID for lease alerts
}

// AlertInput gathers what alerts are derived from. Financial is nil for
// tenant dashboards.
type AlertInput struct {
	Financial *FinancialSummary
	Rent      RentCollectionSummary
	Leases    []LeaseStatus
}

// DeriveAlerts returns alerts in a fixed order: low_margin, income_decline,
// overdue_payments, then one lease_expiring per urgent lease in lease order.
func DeriveAlerts(in AlertInput) []Alert {
	alerts := []Alert{}

	if in.Financial != nil {
		margin := ProfitMargin(*in.Financial)
		if margin.LessThan(LowMarginThreshold) {
			alerts = append(alerts, Alert{
				Type:     AlertLowMargin,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("Profit margin %s%% is below %s%%", margin.StringFixed(2), LowMarginThreshold),
				Value:    margin,
			})
		}
		if in.Financial.IncomeGrowth.LessThan(DeclineThreshold) {
			alerts = append(alerts, Alert{
				Type:     AlertIncomeDecline,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("Income fell %s%% from the prior month", in.Financial.IncomeGrowth.Neg().StringFixed(2)),
				Value:    in.Financial.IncomeGrowth,
			})
		}
	}

	if in.Rent.OverdueCount > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertOverduePayments,
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("%d overdue payment(s) totaling %s", in.Rent.OverdueCount, in.Rent.TotalOverdue.StringFixed(2)),
			Value:    in.Rent.TotalOverdue,
		})
	}

	for _, l := range in.Leases {
		if l.Urgency != LeaseUrgent {
			continue
		}
		alerts = append(alerts, Alert{
			Type:     AlertLeaseExpiring,
			Severity: SeverityWarning,
			Message:  leaseMessage(l),
			Value:    decimal.NewFromInt(int64(l.DaysRemaining)),
			Subject:  string(l.TenancyID),
		})
	}
	return alerts
}

// leaseMessage words an urgent lease. A lease still active past its end
// date reads as ended, never as a negative countdown.
func leaseMessage(l LeaseStatus) string {
	switch {
	case l.DaysRemaining > 0:
		return fmt.Sprintf("Lease %s ends in %d day(s)", l.TenancyID, l.DaysRemaining)
	case l.DaysRemaining == 0:
		return fmt.Sprintf("Lease %s ended today", l.TenancyID)
	default:
		return fmt.Sprintf("Lease %s ended %d day(s) ago", l.TenancyID, -l.DaysRemaining)
	}
}
