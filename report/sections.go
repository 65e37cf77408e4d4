package report

import (
	"errors"
	"fmt"

	"github.com/warp/rental-analytics/analytics"
)

// Section names one table of a dashboard.
type Section string

const (
	SectionRentCollection    Section = "rent_collection"
	SectionPortfolio         Section = "portfolio"
	SectionFinancial         Section = "financial"
	SectionExpenseCategories Section = "expense_categories"
	SectionTrend             Section = "trend"
	SectionProperties        Section = "properties"
	SectionLeases            Section = "leases"
	SectionAlerts            Section = "alerts"
)

var (
	ErrUnknownSection = errors.New("unknown report section")

	// ErrSectionUnavailable is returned for landlord-only sections on a
	// tenant dashboard.
	ErrSectionUnavailable = errors.New("section not available for this scope")
)

// Select picks one section out of a dashboard without copying or altering it.
func Select(d *analytics.Dashboard, s Section) (any, error) {
	switch s {
	case SectionRentCollection:
		return d.RentCollection, nil
	case SectionTrend:
		return d.Trend, nil
	case SectionLeases:
		return d.Leases, nil
	case SectionAlerts:
		return d.Alerts, nil
	case SectionPortfolio:
		if d.Portfolio == nil {
			return nil, fmt.Errorf("%w: %s", ErrSectionUnavailable, s)
		}
		return d.Portfolio, nil
	case SectionFinancial, SectionExpenseCategories:
		if d.Financial == nil {
			return nil, fmt.Errorf("%w: %s", ErrSectionUnavailable, s)
		}
		if s == SectionExpenseCategories {
			return d.Financial.ExpenseCategories, nil
		}
		return d.Financial, nil
	case SectionProperties:
		if d.Portfolio == nil {
			return nil, fmt.Errorf("%w: %s", ErrSectionUnavailable, s)
		}
		return d.Properties, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSection, s)
}
