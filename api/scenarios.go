/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built portfolios that populate the database with realistic
	rental data. Dates are laid out relative to the current month so the
	dashboards always show overdue rent, upcoming rent and expiring leases.

AVAILABLE SCENARIOS:

	small-landlord:   One building, four units, one late tenant, one lease ending soon
	mixed-portfolio:  Two landlords in one organization, maintenance unit,
	                  failed and refunded payments, expenses that squeeze the margin
	empty-portfolio:  Property with vacant units and no payments (all rates 0)

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Build the records as factory.BatchJSON, the same schema /api/import takes
 3. Convert through the RecordFactory (validation included)
 4. Save the batch in one transaction

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "small-landlord"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create builder function: buildXxxScenario(b *scenarioBuilder)
 3. Add case to BuildScenario

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Route wiring
  - factory/records.go: Record JSON definitions
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rental-analytics/factory"
	"github.com/warp/rental-analytics/ledger"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "small-landlord",
		Name:        "Small Landlord",
		Description: "One building with four units, a late tenant and a lease ending next month",
	},
	{
		ID:          "mixed-portfolio",
		Name:        "Mixed Portfolio",
		Description: "Two landlords, maintenance, failed and refunded payments, thin margins",
	},
	{
		ID:          "empty-portfolio",
		Name:        "Empty Portfolio",
		Description: "Vacant units and no payments: every rate reports 0",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	current := h.CurrentScenario()
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads a predefined scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.LoadScenarioByID(r.Context(), req.ScenarioID); err != nil {
		h.fail(w, r, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		h.fail(w, r, "Failed to reset database", err)
		return
	}
	h.setScenario("")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// LoadScenarioByID replaces the database contents with scenario id.
func (h *Handler) LoadScenarioByID(ctx context.Context, id string) error {
	bj, err := BuildScenario(id, h.now())
	if err != nil {
		return err
	}
	batch, err := h.Records.FromJSON(bj)
	if err != nil {
		return fmt.Errorf("scenario %s: %w", id, err)
	}

	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	h.setScenario("")
	if err := h.Store.SaveBatch(ctx, batch); err != nil {
		return err
	}
	h.setScenario(id)
	return nil
}

// BuildScenario returns the records of scenario id laid out around now.
func BuildScenario(id string, now time.Time) (factory.BatchJSON, error) {
	b := &scenarioBuilder{month: ledger.StartOfMonth(now.UTC())}
	switch id {
	case "small-landlord":
		buildSmallLandlordScenario(b)
	case "mixed-portfolio":
		buildMixedPortfolioScenario(b)
	case "empty-portfolio":
		buildEmptyPortfolioScenario(b)
	default:
		return factory.BatchJSON{}, fmt.Errorf("%w: unknown scenario %q", errBadRequest, id)
	}
	return b.batch, nil
}

// =============================================================================
// SCENARIO BUILDERS
// =============================================================================

func buildSmallLandlordScenario(b *scenarioBuilder) {
	b.property("maple", "org-demo", "ll-demo", "Maple Court", 4)
	b.unit("maple-1a", "maple", "1500", ledger.UnitOccupied)
	b.unit("maple-1b", "maple", "1500", ledger.UnitOccupied)
	b.unit("maple-2a", "maple", "1800", ledger.UnitOccupied)
	b.unit("maple-2b", "maple", "1800", ledger.UnitAvailable)

	b.lease("lease-1a", "maple-1a", "tenant-ana", "1500", -10, 14)
	b.lease("lease-1b", "maple-1b", "tenant-ben", "1500", -6, 12)
	// Ends on the 20th of next month, inside the 90-day warning window.
	b.leaseEnding("lease-2a", "maple-2a", "tenant-cho", "1800", -11, b.month.AddDate(0, 1, 19))

	b.rent("lease-1a", "1500", -3, paidAll)
	b.rent("lease-1b", "1500", -3, paidAll)
	b.rent("lease-2a", "1800", -3, paidBeforeCurrent)
	b.dueNextMonth("lease-1a", "1500")

	b.expense("maple", "maintenance", "420.00", -2, 12)
	b.expense("maple", "insurance", "300.00", -1, 5)
	b.expense("maple", "maintenance", "650.00", 0, 3)
	b.expense("maple", "utilities", "180.00", 0, 4)
}

func buildMixedPortfolioScenario(b *scenarioBuilder) {
	b.property("harbor", "org-metro", "ll-ivy", "Harbor Lofts", 3)
	b.unit("harbor-101", "harbor", "2100", ledger.UnitOccupied)
	b.unit("harbor-102", "harbor", "2000", ledger.UnitOccupied)
	b.unit("harbor-103", "harbor", "1950", ledger.UnitMaintenance)

	b.property("elm", "org-metro", "ll-jon", "Elm Row", 2)
	b.unit("elm-a", "elm", "1250", ledger.UnitOccupied)
	b.unit("elm-b", "elm", "1250", ledger.UnitAvailable)

	b.lease("lease-101", "harbor-101", "tenant-dee", "2100", -8, 16)
	b.lease("lease-102", "harbor-102", "tenant-eli", "2000", -4, 8)
	b.lease("lease-elm-a", "elm-a", "tenant-fay", "1250", -14, 20)

	b.rent("lease-101", "2100", -2, paidAll)
	b.rent("lease-102", "2000", -2, paidBeforeCurrent)
	b.rent("lease-elm-a", "1250", -2, paidAll)

	// Last month's 102 rent bounced; a refunded deposit top-up on 101.
	b.payment("lease-102", "2000", ledger.PaymentRent, -1, ledger.PaymentFailed, false)
	b.payment("lease-101", "500", ledger.PaymentSecurityDeposit, -2, ledger.PaymentRefunded, true)
	b.payment("lease-elm-a", "85.40", ledger.PaymentUtility, 0, ledger.PaymentPending, false)

	b.expense("harbor", "repairs", "2600.00", 0, 2)
	b.expense("harbor", "property_tax", "1400.00", 0, 5)
	b.expense("elm", "repairs", "310.00", 0, 6)
	b.expense("harbor", "repairs", "900.00", -1, 9)
}

func buildEmptyPortfolioScenario(b *scenarioBuilder) {
	b.property("birch", "org-new", "ll-new", "Birch House", 2)
	b.unit("birch-1", "birch", "1100", ledger.UnitAvailable)
	b.unit("birch-2", "birch", "1150", ledger.UnitAvailable)
}

// =============================================================================
// BUILDER
// =============================================================================

type rentPlan int

const (
	paidAll           rentPlan = iota // every month completed, current included
	paidBeforeCurrent                 // current month still pending
)

// scenarioBuilder lays records out in months relative to the current one.
type scenarioBuilder struct {
	month time.Time // first day of the current month
	batch factory.BatchJSON
	seq   int
}

func (b *scenarioBuilder) date(monthOffset, day int) string {
	return ledger.AddMonths(b.month, monthOffset).AddDate(0, 0, day-1).Format(ledger.DateLayout)
}

func (b *scenarioBuilder) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s-%03d", prefix, b.seq)
}

func (b *scenarioBuilder) property(id, org, landlord, name string, units int) {
	b.batch.Properties = append(b.batch.Properties, factory.PropertyJSON{
		ID: id, OrganizationID: org, LandlordID: landlord, Name: name, UnitCount: units,
	})
}

func (b *scenarioBuilder) unit(id, property, rent string, status ledger.UnitStatus) {
	b.batch.Units = append(b.batch.Units, factory.UnitJSON{
		ID: id, PropertyID: property, Label: id, RentAmount: decimal.RequireFromString(rent),
		Bedrooms: 2, Bathrooms: decimal.NewFromInt(1), Status: string(status),
	})
}

// lease starts startOffset months ago and runs for months months.
func (b *scenarioBuilder) lease(id, unit, tenant, rent string, startOffset, months int) {
	end := ledger.AddMonths(b.month, startOffset+months)
	b.leaseEnding(id, unit, tenant, rent, startOffset, end)
}

func (b *scenarioBuilder) leaseEnding(id, unit, tenant, rent string, startOffset int, end time.Time) {
	b.batch.Tenancies = append(b.batch.Tenancies, factory.TenancyJSON{
		ID: id, UnitID: unit, TenantID: tenant,
		StartDate:       b.date(startOffset, 1),
		EndDate:         end.Format(ledger.DateLayout),
		RentAmount:      decimal.RequireFromString(rent),
		SecurityDeposit: decimal.RequireFromString(rent),
		Status:          string(ledger.TenancyActive),
	})
}

// rent schedules rent due on the 1st from fromOffset through the current month.
func (b *scenarioBuilder) rent(tenancy, amount string, fromOffset int, plan rentPlan) {
	for m := fromOffset; m <= 0; m++ {
		status := ledger.PaymentCompleted
		if m == 0 && plan == paidBeforeCurrent {
			status = ledger.PaymentPending
		}
		b.payment(tenancy, amount, ledger.PaymentRent, m, status, status == ledger.PaymentCompleted)
	}
}

func (b *scenarioBuilder) dueNextMonth(tenancy, amount string) {
	b.payment(tenancy, amount, ledger.PaymentRent, 1, ledger.PaymentPending, false)
}

func (b *scenarioBuilder) payment(tenancy, amount string, kind ledger.PaymentType, monthOffset int, status ledger.PaymentStatus, paid bool) {
	pj := factory.PaymentJSON{
		ID:        b.nextID("pay"),
		TenancyID: tenancy,
		Amount:    ledger.NewMoney(decimal.RequireFromString(amount)),
		Type:      string(kind),
		DueDate:   b.date(monthOffset, 1),
		Status:    string(status),
	}
	if paid {
		pj.PaidDate = b.date(monthOffset, 3)
	}
	b.batch.Payments = append(b.batch.Payments, pj)
}

func (b *scenarioBuilder) expense(property, category, amount string, monthOffset, day int) {
	b.batch.Expenses = append(b.batch.Expenses, factory.ExpenseJSON{
		ID:          b.nextID("exp"),
		PropertyID:  property,
		Category:    category,
		Amount:      ledger.NewMoney(decimal.RequireFromString(amount)),
		IncurredOn:  b.date(monthOffset, day),
		Description: category,
	})
}
