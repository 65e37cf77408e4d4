package analytics_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rental-analytics/analytics"
	"github.com/warp/rental-analytics/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func payment(id string, amount string, typ ledger.PaymentType, status ledger.PaymentStatus, due time.Time) ledger.Payment {
	return ledger.Payment{
		ID:        ledger.PaymentID(id),
		TenancyID: "ten-1",
		Amount:    ledger.NewMoney(dec(amount)),
		Type:      typ,
		DueDate:   due,
		Status:    status,
	}
}

func rent(id string, amount string, status ledger.PaymentStatus, due time.Time) ledger.Payment {
	return payment(id, amount, ledger.PaymentRent, status, due)
}

func unit(id string, property string, rentAmount string, status ledger.UnitStatus) ledger.Unit {
	return ledger.Unit{
		ID:         ledger.UnitID(id),
		PropertyID: ledger.PropertyID(property),
		RentAmount: dec(rentAmount),
		Status:     status,
	}
}

func lease(id string, unitID string, end time.Time) ledger.Tenancy {
	return ledger.Tenancy{
		ID:         ledger.TenancyID(id),
		UnitID:     ledger.UnitID(unitID),
		TenantID:   "tenant-" + id,
		StartDate:  ledger.Date(2024, time.January, 1),
		EndDate:    end,
		RentAmount: dec("1500"),
		Status:     ledger.TenancyActive,
	}
}

// =============================================================================
// PAYMENT CLASSIFICATION
// =============================================================================

func TestClassifyPayment_StatusPriority(t *testing.T) {
	now := ledger.Date(2025, time.January, 10)
	overdueDate := ledger.Date(2024, time.December, 1)

	tests := []struct {
		status ledger.PaymentStatus
		want   analytics.PaymentUrgency
	}{
		{ledger.PaymentCompleted, analytics.UrgencyPaid},
		{ledger.PaymentFailed, analytics.UrgencyFailed},
		{ledger.PaymentRefunded, analytics.UrgencyRefunded},
		{ledger.PaymentPending, analytics.UrgencyOverdue},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			p := rent("p", "100", tt.status, overdueDate)
			assert.Equal(t, tt.want, analytics.ClassifyPayment(p, now).Urgency)
		})
	}
}

func TestClassifyPayment_DeltaBoundaries(t *testing.T) {
	// GIVEN: Pending payments at the due-soon boundaries
	// WHEN: Classifying at midnight
	// THEN: 0 and 7 are due soon, 8 is upcoming, -1 is overdue

	now := ledger.Date(2025, time.March, 1)

	tests := []struct {
		name      string
		deltaDays int
		want      analytics.PaymentUrgency
	}{
		{"delta -1", -1, analytics.UrgencyOverdue},
		{"delta 0", 0, analytics.UrgencyDueSoon},
		{"delta 1", 1, analytics.UrgencyDueSoon},
		{"delta 7", 7, analytics.UrgencyDueSoon},
		{"delta 8", 8, analytics.UrgencyUpcoming},
		{"delta 60", 60, analytics.UrgencyUpcoming},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := rent("p", "100", ledger.PaymentPending, now.AddDate(0, 0, tt.deltaDays))
			c := analytics.ClassifyPayment(p, now)
			assert.Equal(t, tt.want, c.Urgency)
			assert.Equal(t, tt.deltaDays, c.DeltaDays)
		})
	}
}

func TestClassifyPayment_OneMinutePastMidnightIsNotOverdue(t *testing.T) {
	due := ledger.Date(2025, time.January, 1)
	p := rent("p", "100", ledger.PaymentPending, due)

	c := analytics.ClassifyPayment(p, due.Add(time.Minute))

	assert.Equal(t, analytics.UrgencyDueSoon, c.Urgency)
	assert.Equal(t, 0, c.DaysOverdue)
}

func TestClassifyPayment_DaysOverdueIsPositive(t *testing.T) {
	due := ledger.Date(2025, time.January, 1)
	p := rent("p", "100", ledger.PaymentPending, due)

	c := analytics.ClassifyPayment(p, ledger.Date(2025, time.January, 10))

	assert.Equal(t, analytics.UrgencyOverdue, c.Urgency)
	assert.Equal(t, 9, c.DaysOverdue)
	assert.Equal(t, -9, c.DeltaDays)
}

func TestClassifyPayments_OrderedByDueDate(t *testing.T) {
	now := ledger.Date(2025, time.January, 10)
	list, err := analytics.ClassifyPayments([]ledger.Payment{
		rent("b", "100", ledger.PaymentPending, ledger.Date(2025, time.February, 1)),
		rent("c", "100", ledger.PaymentCompleted, ledger.Date(2025, time.January, 1)),
		rent("a", "100", ledger.PaymentPending, ledger.Date(2025, time.January, 1)),
	}, now)

	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ledger.PaymentID("a"), list[0].PaymentID)
	assert.Equal(t, ledger.PaymentID("c"), list[1].PaymentID)
	assert.Equal(t, analytics.UrgencyUpcoming, list[2].Urgency)
}

// =============================================================================
// LEASE URGENCY
// =============================================================================

func TestClassifyTenancy(t *testing.T) {
	now := ledger.Date(2025, time.January, 1)

	tests := []struct {
		days int
		want analytics.LeaseUrgency
	}{
		{-3, analytics.LeaseUrgent},
		{25, analytics.LeaseUrgent},
		{30, analytics.LeaseUrgent},
		{31, analytics.LeaseWarning},
		{45, analytics.LeaseWarning},
		{90, analytics.LeaseWarning},
		{91, analytics.LeaseNormal},
		{120, analytics.LeaseNormal},
	}
	for _, tt := range tests {
		l := lease("t", "u", now.AddDate(0, 0, tt.days))
		assert.Equal(t, tt.want, analytics.ClassifyTenancy(l, now), "%d days", tt.days)
	}
}

func TestLeaseStatuses_ActiveOnlySoonestFirst(t *testing.T) {
	now := ledger.Date(2025, time.January, 1)
	pending := lease("t-pending", "u-3", now.AddDate(0, 0, 5))
	pending.Status = ledger.TenancyPending

	list := analytics.LeaseStatuses([]ledger.Tenancy{
		lease("t-far", "u-1", now.AddDate(0, 0, 120)),
		lease("t-near", "u-2", now.AddDate(0, 0, 25)),
		pending,
	}, now)

	require.Len(t, list, 2)
	assert.Equal(t, ledger.TenancyID("t-near"), list[0].TenancyID)
	assert.Equal(t, 25, list[0].DaysRemaining)
	assert.Equal(t, analytics.LeaseUrgent, list[0].Urgency)
	assert.Equal(t, analytics.LeaseNormal, list[1].Urgency)
}

// =============================================================================
// RENT COLLECTION
// =============================================================================

func TestAggregateRentCollection_Empty(t *testing.T) {
	s, err := analytics.AggregateRentCollection(nil, ledger.Date(2025, time.January, 1))
	require.NoError(t, err)

	assert.True(t, s.CollectionRate.IsZero())
	assert.True(t, s.TotalExpected.IsZero())
	assert.True(t, s.TotalCollected.IsZero())
	assert.True(t, s.TotalPending.IsZero())
	assert.True(t, s.TotalOverdue.IsZero())
	assert.Zero(t, s.PendingCount)
	assert.Zero(t, s.OverdueCount)
}

func TestAggregateRentCollection_SampleScenario(t *testing.T) {
	// GIVEN: Three $2500 rent payments due 2025-01-01, two completed
	// WHEN: Aggregating on 2025-01-10
	// THEN: 7500 expected, 5000 collected, 2500 overdue, rate 66.67

	due := ledger.Date(2025, time.January, 1)
	payments := []ledger.Payment{
		rent("p1", "2500", ledger.PaymentCompleted, due),
		rent("p2", "2500", ledger.PaymentCompleted, due),
		rent("p3", "2500", ledger.PaymentPending, due),
	}

	s, err := analytics.AggregateRentCollection(payments, ledger.Date(2025, time.January, 10))
	require.NoError(t, err)

	assertDecimal(t, "7500", s.TotalExpected)
	assertDecimal(t, "5000", s.TotalCollected)
	assertDecimal(t, "2500", s.TotalOverdue)
	assertDecimal(t, "0", s.TotalPending)
	assertDecimal(t, "66.67", s.CollectionRate.Round(2))
	assert.Equal(t, 1, s.OverdueCount)
	assert.Equal(t, 0, s.PendingCount)
}

func TestAggregateRentCollection_BucketsByType(t *testing.T) {
	now := ledger.Date(2025, time.January, 10)
	payments := []ledger.Payment{
		rent("rent-soon", "1000", ledger.PaymentPending, ledger.Date(2025, time.January, 15)),
		rent("rent-later", "1000", ledger.PaymentPending, ledger.Date(2025, time.February, 1)),
		payment("deposit", "500", ledger.PaymentSecurityDeposit, ledger.PaymentCompleted, ledger.Date(2025, time.January, 1)),
		payment("fee", "50", ledger.PaymentLateFee, ledger.PaymentFailed, ledger.Date(2025, time.January, 1)),
	}

	s, err := analytics.AggregateRentCollection(payments, now)
	require.NoError(t, err)

	assertDecimal(t, "2000", s.TotalExpected, "only rent counts toward expected")
	assertDecimal(t, "500", s.TotalCollected, "completed payments of any type are collected")
	assertDecimal(t, "2000", s.TotalPending)
	assert.Equal(t, 2, s.PendingCount)
	assertDecimal(t, "25", s.CollectionRate)
}

func TestAggregateRentCollection_Idempotent(t *testing.T) {
	due := ledger.Date(2025, time.January, 1)
	now := ledger.Date(2025, time.January, 3)
	payments := []ledger.Payment{
		rent("p1", "1200.50", ledger.PaymentCompleted, due),
		rent("p2", "800.25", ledger.PaymentPending, due),
	}

	first, err := analytics.AggregateRentCollection(payments, now)
	require.NoError(t, err)
	second, err := analytics.AggregateRentCollection(payments, now)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAggregates_RejectMissingAmount(t *testing.T) {
	// GIVEN: Two completed rent payments, one without an amount
	// WHEN: Aggregating rent, financials, properties, trend or listing
	// THEN: Every entry point reports the missing field instead of a zero

	due := ledger.Date(2025, time.January, 1)
	now := ledger.Date(2025, time.January, 10)
	blank := rent("p-blank", "0", ledger.PaymentCompleted, due)
	blank.Amount = decimal.NullDecimal{}
	payments := []ledger.Payment{rent("p-ok", "1500", ledger.PaymentCompleted, due), blank}

	assertMissingAmount := func(t *testing.T, err error) {
		t.Helper()
		var mf *ledger.MissingFieldError
		require.ErrorAs(t, err, &mf)
		assert.Equal(t, "amount", mf.Field)
		assert.Equal(t, "p-blank", mf.RecordID)
		assert.ErrorIs(t, err, ledger.ErrMissingField)
	}

	_, err := analytics.AggregateRentCollection(payments, now)
	assertMissingAmount(t, err)

	_, err = analytics.AggregateFinancialSummary(analytics.FinancialInput{Payments: payments})
	assertMissingAmount(t, err)

	_, err = analytics.AggregateFinancialSummary(analytics.FinancialInput{YearToDatePayments: payments})
	assertMissingAmount(t, err)

	_, err = analytics.ComputeMonthlyTrend(analytics.TrendInput{Payments: payments, WindowMonths: 1, Now: now})
	assertMissingAmount(t, err)

	_, err = analytics.AggregateProperties(&ledger.Snapshot{}, payments, nil)
	assertMissingAmount(t, err)

	_, err = analytics.ClassifyPayments(payments, now)
	assertMissingAmount(t, err)
}

// =============================================================================
// PORTFOLIO
// =============================================================================

func TestAggregatePortfolio_SevenOfEight(t *testing.T) {
	var units []ledger.Unit
	for i := 0; i < 7; i++ {
		units = append(units, unit(string(rune('a'+i)), "prop-1", "1000", ledger.UnitOccupied))
	}
	units = append(units, unit("h", "prop-2", "900", ledger.UnitAvailable))

	d := analytics.AggregatePortfolio(units)

	assert.Equal(t, 2, d.TotalProperties)
	assert.Equal(t, 8, d.TotalUnits)
	assert.Equal(t, 7, d.OccupiedUnits)
	assert.Equal(t, 1, d.VacantUnits)
	assertDecimal(t, "87.5", d.OccupancyRate)
	assertDecimal(t, "7000", d.TotalMonthlyRent)
	assertDecimal(t, "1000", d.AverageRentPerUnit)
}

func TestAggregatePortfolio_NothingOccupied(t *testing.T) {
	d := analytics.AggregatePortfolio([]ledger.Unit{
		unit("a", "prop-1", "1000", ledger.UnitAvailable),
		unit("b", "prop-1", "1000", ledger.UnitMaintenance),
	})

	assertDecimal(t, "0", d.OccupancyRate)
	assertDecimal(t, "0", d.AverageRentPerUnit)
	assert.Equal(t, 1, d.MaintenanceUnits)
}

func TestAggregatePortfolio_Empty(t *testing.T) {
	d := analytics.AggregatePortfolio(nil)

	assert.Zero(t, d.TotalUnits)
	assert.True(t, d.OccupancyRate.IsZero())
}

func TestAggregateProperties(t *testing.T) {
	snap := &ledger.Snapshot{
		Properties: []ledger.Property{{ID: "prop-2", Name: "Oak"}, {ID: "prop-1", Name: "Maple"}},
		Units: []ledger.Unit{
			unit("u-1", "prop-1", "1000", ledger.UnitOccupied),
			unit("u-2", "prop-2", "800", ledger.UnitAvailable),
		},
		Tenancies: []ledger.Tenancy{lease("ten-1", "u-1", ledger.Date(2026, time.January, 1))},
	}
	due := ledger.Date(2025, time.January, 1)
	payments := []ledger.Payment{
		rent("p1", "1000", ledger.PaymentCompleted, due),
		rent("p2", "1000", ledger.PaymentPending, due.AddDate(0, 1, 0)),
	}
	expenses := []ledger.Expense{{ID: "e1", PropertyID: "prop-1", Category: "repairs", Amount: dec("200")}}

	out, err := analytics.AggregateProperties(snap, payments, expenses)
	require.NoError(t, err)

	require.Len(t, out, 2)
	assert.Equal(t, ledger.PropertyID("prop-1"), out[0].PropertyID)
	assertDecimal(t, "1000", out[0].Collected)
	assertDecimal(t, "800", out[0].NetIncome)
	assertDecimal(t, "50", out[0].CollectionRate)
	assertDecimal(t, "100", out[0].OccupancyRate)
	assertDecimal(t, "0", out[1].OccupancyRate)
	assertDecimal(t, "0", out[1].Collected)
}

// =============================================================================
// FINANCIAL SUMMARY
// =============================================================================

func TestAggregateFinancialSummary_LowMargin(t *testing.T) {
	// GIVEN: 10000 income and 9200 expenses
	// WHEN: Summarizing and deriving alerts
	// THEN: Net 800, margin 8, low_margin fires

	due := ledger.Date(2025, time.March, 1)
	s, err := analytics.AggregateFinancialSummary(analytics.FinancialInput{
		Payments: []ledger.Payment{rent("p1", "10000", ledger.PaymentCompleted, due)},
		Expenses: []ledger.Expense{
			{ID: "e1", Category: "maintenance", Amount: dec("5000")},
			{ID: "e2", Category: "tax", Amount: dec("4200")},
		},
		PriorPeriodPayments: []ledger.Payment{rent("p0", "10000", ledger.PaymentCompleted, due.AddDate(0, -1, 0))},
	})
	require.NoError(t, err)

	assertDecimal(t, "10000", s.MonthlyIncome)
	assertDecimal(t, "9200", s.MonthlyExpenses)
	assertDecimal(t, "800", s.NetIncome)
	assertDecimal(t, "8", analytics.ProfitMargin(s))
	assertDecimal(t, "0", s.IncomeGrowth)

	alerts := analytics.DeriveAlerts(analytics.AlertInput{Financial: &s})
	require.Len(t, alerts, 1)
	assert.Equal(t, analytics.AlertLowMargin, alerts[0].Type)
	assertDecimal(t, "8", alerts[0].Value)
}

func TestAggregateFinancialSummary_MarginAtThresholdDoesNotAlert(t *testing.T) {
	s := analytics.FinancialSummary{MonthlyIncome: dec("1000"), NetIncome: dec("100"), IncomeGrowth: dec("-10")}

	alerts := analytics.DeriveAlerts(analytics.AlertInput{Financial: &s})

	assert.Empty(t, alerts, "margin 10 and growth -10 sit on the thresholds")
}

func TestAggregateFinancialSummary_IncomeDecline(t *testing.T) {
	due := ledger.Date(2025, time.March, 1)
	s, err := analytics.AggregateFinancialSummary(analytics.FinancialInput{
		Payments:            []ledger.Payment{rent("p1", "800", ledger.PaymentCompleted, due)},
		PriorPeriodPayments: []ledger.Payment{rent("p0", "1000", ledger.PaymentCompleted, due.AddDate(0, -1, 0))},
	})
	require.NoError(t, err)

	assertDecimal(t, "-20", s.IncomeGrowth)

	alerts := analytics.DeriveAlerts(analytics.AlertInput{Financial: &s})
	require.Len(t, alerts, 1)
	assert.Equal(t, analytics.AlertIncomeDecline, alerts[0].Type)
}

func TestAggregateFinancialSummary_ZeroPriorPeriod(t *testing.T) {
	s, err := analytics.AggregateFinancialSummary(analytics.FinancialInput{
		Payments: []ledger.Payment{rent("p1", "800", ledger.PaymentCompleted, ledger.Date(2025, time.March, 1))},
	})
	require.NoError(t, err)

	assertDecimal(t, "0", s.IncomeGrowth)
	assertDecimal(t, "0", s.MonthlyExpenses)
	assert.Empty(t, s.ExpenseCategories)
}

func TestAggregateFinancialSummary_ExpenseCategoryOrder(t *testing.T) {
	s, err := analytics.AggregateFinancialSummary(analytics.FinancialInput{
		Expenses: []ledger.Expense{
			{ID: "e1", Category: "utilities", Amount: dec("100")},
			{ID: "e2", Category: "insurance", Amount: dec("300")},
			{ID: "e3", Category: "cleaning", Amount: dec("100")},
			{ID: "e4", Category: "insurance", Amount: dec("100")},
			{ID: "e5", Category: "taxes", Amount: dec("400")},
		},
	})
	require.NoError(t, err)

	require.Len(t, s.ExpenseCategories, 4)
	var names []string
	for _, c := range s.ExpenseCategories {
		names = append(names, c.Category)
	}
	assert.Equal(t, []string{"insurance", "taxes", "cleaning", "utilities"}, names)
	assertDecimal(t, "400", s.ExpenseCategories[0].Amount)
	assertDecimal(t, "40", s.ExpenseCategories[0].Percentage)
	assertDecimal(t, "10", s.ExpenseCategories[2].Percentage)
}

func TestAggregateFinancialSummary_YearToDate(t *testing.T) {
	s, err := analytics.AggregateFinancialSummary(analytics.FinancialInput{
		YearToDatePayments: []ledger.Payment{
			rent("jan", "1000", ledger.PaymentCompleted, ledger.Date(2025, time.January, 1)),
			rent("feb", "1000", ledger.PaymentCompleted, ledger.Date(2025, time.February, 1)),
			rent("mar", "1000", ledger.PaymentPending, ledger.Date(2025, time.March, 1)),
		},
	})
	require.NoError(t, err)

	assertDecimal(t, "2000", s.YTDIncome)
}

// =============================================================================
// ALERTS
// =============================================================================

func TestDeriveAlerts_PaymentAndLeaseAlerts(t *testing.T) {
	now := ledger.Date(2025, time.January, 1)
	leases := analytics.LeaseStatuses([]ledger.Tenancy{
		lease("t-1", "u-1", now.AddDate(0, 0, 10)),
		lease("t-2", "u-2", now.AddDate(0, 0, 200)),
	}, now)
	rentSummary := analytics.RentCollectionSummary{OverdueCount: 2, TotalOverdue: dec("3000")}

	alerts := analytics.DeriveAlerts(analytics.AlertInput{Rent: rentSummary, Leases: leases})

	require.Len(t, alerts, 2)
	assert.Equal(t, analytics.AlertOverduePayments, alerts[0].Type)
	assert.Equal(t, analytics.SeverityCritical, alerts[0].Severity)
	assert.Equal(t, analytics.AlertLeaseExpiring, alerts[1].Type)
	assert.Equal(t, "t-1", alerts[1].Subject)
}

func TestDeriveAlerts_EndedLeaseWording(t *testing.T) {
	// GIVEN: One lease nine days past its end date, one ending today
	// WHEN: Deriving alerts
	// THEN: Both read as ended, never as a negative countdown

	now := ledger.Date(2025, time.March, 10)
	leases := analytics.LeaseStatuses([]ledger.Tenancy{
		lease("t-lapsed", "u-1", ledger.Date(2025, time.March, 1)),
		lease("t-today", "u-2", now),
	}, now)

	alerts := analytics.DeriveAlerts(analytics.AlertInput{Leases: leases})

	require.Len(t, alerts, 2)
	assert.Equal(t, "Lease t-lapsed ended 9 day(s) ago", alerts[0].Message)
	assertDecimal(t, "-9", alerts[0].Value)
	assert.Equal(t, "Lease t-today ended today", alerts[1].Message)
}

// =============================================================================
// TREND
// =============================================================================

func TestComputeMonthlyTrend_FixedLength(t *testing.T) {
	now := ledger.Date(2025, time.June, 15)

	for _, window := range []int{0, 1, 2, 11, 23} {
		trend, err := analytics.ComputeMonthlyTrend(analytics.TrendInput{WindowMonths: window, Now: now})
		require.NoError(t, err)
		require.Len(t, trend, window+1)
		assert.Equal(t, "2025-06", trend[len(trend)-1].Month)
	}

	negative, err := analytics.ComputeMonthlyTrend(analytics.TrendInput{WindowMonths: -4, Now: now})
	require.NoError(t, err)
	assert.Len(t, negative, 1)
}

func TestComputeMonthlyTrend_BucketsAndZeroFill(t *testing.T) {
	// GIVEN: Activity in January and March, none in February
	// WHEN: Computing a three month trend in March
	// THEN: February is an explicit zero entry

	now := ledger.Date(2025, time.March, 15)
	occupied := lease("ten-1", "u-1", ledger.Date(2026, time.January, 1))
	occupied.StartDate = ledger.Date(2025, time.February, 10)

	trend, err := analytics.ComputeMonthlyTrend(analytics.TrendInput{
		Payments: []ledger.Payment{
			rent("jan", "1000", ledger.PaymentCompleted, ledger.Date(2025, time.January, 1)),
			rent("mar-paid", "1000", ledger.PaymentCompleted, ledger.Date(2025, time.March, 1)),
			rent("mar-open", "1000", ledger.PaymentPending, ledger.Date(2025, time.March, 1)),
			rent("old", "1000", ledger.PaymentCompleted, ledger.Date(2024, time.March, 1)),
		},
		Expenses: []ledger.Expense{
			{ID: "e1", Category: "repairs", Amount: dec("300"), IncurredOn: ledger.Date(2025, time.March, 20)},
		},
		Units: []ledger.Unit{
			unit("u-1", "prop-1", "1000", ledger.UnitOccupied),
			unit("u-2", "prop-1", "1000", ledger.UnitAvailable),
		},
		Tenancies:    []ledger.Tenancy{occupied},
		WindowMonths: 2,
		Now:          now,
	})
	require.NoError(t, err)

	require.Len(t, trend, 3)
	assert.Equal(t, []string{"2025-01", "2025-02", "2025-03"}, []string{trend[0].Month, trend[1].Month, trend[2].Month})

	assertDecimal(t, "1000", trend[0].Revenue)
	assertDecimal(t, "100", trend[0].CollectionRate)
	assertDecimal(t, "0", trend[0].OccupancyRate)

	assertDecimal(t, "0", trend[1].Revenue)
	assertDecimal(t, "0", trend[1].Expenses)
	assertDecimal(t, "0", trend[1].CollectionRate)
	assertDecimal(t, "50", trend[1].OccupancyRate)

	assertDecimal(t, "1000", trend[2].Revenue)
	assertDecimal(t, "300", trend[2].Expenses)
	assertDecimal(t, "700", trend[2].NetIncome)
	assertDecimal(t, "50", trend[2].CollectionRate)
}

func TestComputeMonthlyTrend_Idempotent(t *testing.T) {
	in := analytics.TrendInput{
		Payments:     []ledger.Payment{rent("p", "999.99", ledger.PaymentCompleted, ledger.Date(2025, time.May, 1))},
		WindowMonths: 5,
		Now:          ledger.Date(2025, time.June, 1),
	}

	first, err := analytics.ComputeMonthlyTrend(in)
	require.NoError(t, err)
	second, err := analytics.ComputeMonthlyTrend(in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
