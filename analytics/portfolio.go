package analytics

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/rental-analytics/ledger"
)

// =============================================================================
// PORTFOLIO OCCUPANCY
// =============================================================================

// LandlordPortfolioData summarizes unit occupancy and rent roll.
// VacantUnits counts available units; maintenance units are neither vacant
// nor occupied but still count toward TotalUnits.
type LandlordPortfolioData struct {
	TotalProperties    int             `json:"total_properties"`
	TotalUnits         int             `json:"total_units"`
	OccupiedUnits      int             `json:"occupied_units"`
	VacantUnits        int             `json:"vacant_units"`
	MaintenanceUnits   int             `json:"maintenance_units"`
	OccupancyRate      decimal.Decimal `json:"occupancy_rate" report:"percent"`
	TotalMonthlyRent   decimal.Decimal `json:"total_monthly_rent" report:"currency"`
	AverageRentPerUnit decimal.Decimal `json:"average_rent_per_unit" report:"currency"`
}

// AggregatePortfolio rolls up units by cached status. TotalProperties is the
// number of distinct properties the units belong to.
func AggregatePortfolio(units []ledger.Unit) LandlordPortfolioData {
	d := LandlordPortfolioData{TotalMonthlyRent: decimal.Zero}
	properties := make(map[ledger.PropertyID]struct{})

	for _, u := range units {
		properties[u.PropertyID] = struct{}{}
		d.TotalUnits++
		switch u.Status {
		case ledger.UnitOccupied:
			d.OccupiedUnits++
			d.TotalMonthlyRent = d.TotalMonthlyRent.Add(u.RentAmount)
		case ledger.UnitAvailable:
			d.VacantUnits++
		case ledger.UnitMaintenance:
			d.MaintenanceUnits++
		}
	}

	d.TotalProperties = len(properties)
	d.OccupancyRate = percentOf(decimal.NewFromInt(int64(d.OccupiedUnits)), decimal.NewFromInt(int64(d.TotalUnits)))
	d.AverageRentPerUnit = decimal.Zero
	if d.OccupiedUnits > 0 {
		d.AverageRentPerUnit = d.TotalMonthlyRent.Div(decimal.NewFromInt(int64(d.OccupiedUnits)))
	}
	return d
}

// =============================================================================
// PROPERTY PERFORMANCE
// =============================================================================

// PropertyPerformance is the per-property breakdown on landlord and admin
// dashboards. Every figure is derived from the snapshot.
type PropertyPerformance struct {
	PropertyID     ledger.PropertyID `json:"property_id"`
	Name           string            `json:"name"`
	TotalUnits     int               `json:"total_units"`
	OccupiedUnits  int               `json:"occupied_units"`
	OccupancyRate  decimal.Decimal   `json:"occupancy_rate" report:"percent"`
	MonthlyRent    decimal.Decimal   `json:"monthly_rent" report:"currency"`
	Collected      decimal.Decimal   `json:"collected" report:"currency"`
	Expenses       decimal.Decimal   `json:"expenses" report:"currency"`
	NetIncome      decimal.Decimal   `json:"net_income" report:"currency"`
	CollectionRate decimal.Decimal   `json:"collection_rate" report:"percent"`
}

// AggregateProperties breaks the portfolio down per property, ordered by ID.
// Payments are attributed through tenancy -> unit -> property.
func AggregateProperties(snap *ledger.Snapshot, payments []ledger.Payment, expenses []ledger.Expense) ([]PropertyPerformance, error) {
	if err := checkPayments(payments); err != nil {
		return nil, err
	}

	unitProperty := make(map[ledger.UnitID]ledger.PropertyID, len(snap.Units))
	unitsByProperty := make(map[ledger.PropertyID][]ledger.Unit)
	for _, u := range snap.Units {
		unitProperty[u.ID] = u.PropertyID
		unitsByProperty[u.PropertyID] = append(unitsByProperty[u.PropertyID], u)
	}

	tenancyProperty := make(map[ledger.TenancyID]ledger.PropertyID, len(snap.Tenancies))
	for _, t := range snap.Tenancies {
		tenancyProperty[t.ID] = unitProperty[t.UnitID]
	}

	paymentsByProperty := make(map[ledger.PropertyID][]ledger.Payment)
	for _, p := range payments {
		pid := tenancyProperty[p.TenancyID]
		paymentsByProperty[pid] = append(paymentsByProperty[pid], p)
	}

	expenseByProperty := make(map[ledger.PropertyID]decimal.Decimal)
	for _, e := range expenses {
		expenseByProperty[e.PropertyID] = expenseByProperty[e.PropertyID].Add(e.Amount)
	}

	out := make([]PropertyPerformance, 0, len(snap.Properties))
	for _, prop := range snap.Properties {
		occupancy := AggregatePortfolio(unitsByProperty[prop.ID])
		ps := paymentsByProperty[prop.ID]
		collected := collectedSum(ps)
		spent := expenseByProperty[prop.ID]
		expected := decimal.Zero
		for _, p := range ps {
			if p.Type == ledger.PaymentRent {
				expected = expected.Add(p.Value())
			}
		}

		out = append(out, PropertyPerformance{
			PropertyID:     prop.ID,
			Name:           prop.Name,
			TotalUnits:     occupancy.TotalUnits,
			OccupiedUnits:  occupancy.OccupiedUnits,
			OccupancyRate:  occupancy.OccupancyRate,
			MonthlyRent:    occupancy.TotalMonthlyRent,
			Collected:      collected,
			Expenses:       spent,
			NetIncome:      collected.Sub(spent),
			CollectionRate: percentOf(collected, expected),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PropertyID < out[j].PropertyID })
	return out, nil
}
