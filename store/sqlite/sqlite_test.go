package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rental-analytics/analytics"
	"github.com/warp/rental-analytics/ledger"
	"github.com/warp/rental-analytics/store/sqlite"
)

var fixedNow = time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	s.Now = func() time.Time { return fixedNow }
	t.Cleanup(func() { s.Close() })
	return s
}

func seedBatch() *ledger.Batch {
	paid := ledger.Date(2025, time.February, 2)
	return &ledger.Batch{
		Properties: []ledger.Property{
			{ID: "prop-1", OrganizationID: "org-1", LandlordID: "ll-1", Name: "Maple Court", UnitCount: 2},
			{ID: "prop-2", OrganizationID: "org-1", LandlordID: "ll-2", Name: "Oak House", UnitCount: 1},
		},
		Units: []ledger.Unit{
			{ID: "u-1", PropertyID: "prop-1", Label: "1A", RentAmount: decimal.NewFromInt(1500), Bathrooms: decimal.RequireFromString("1.5"), Status: ledger.UnitOccupied},
			{ID: "u-2", PropertyID: "prop-1", Label: "1B", RentAmount: decimal.NewFromInt(1200), Status: ledger.UnitAvailable},
			{ID: "u-3", PropertyID: "prop-2", RentAmount: decimal.NewFromInt(900), Status: ledger.UnitOccupied},
		},
		Tenancies: []ledger.Tenancy{
			{ID: "t-1", UnitID: "u-1", TenantID: "tenant-a", StartDate: ledger.Date(2025, 1, 1), EndDate: ledger.Date(2026, 1, 1),
				RentAmount: decimal.NewFromInt(1500), Status: ledger.TenancyActive},
			{ID: "t-3", UnitID: "u-3", TenantID: "tenant-b", StartDate: ledger.Date(2025, 1, 1), EndDate: ledger.Date(2026, 1, 1),
				RentAmount: decimal.NewFromInt(900), Status: ledger.TenancyActive},
		},
		Payments: []ledger.Payment{
			{ID: "p-jan", TenancyID: "t-1", Amount: ledger.NewMoney(decimal.NewFromInt(1500)), Type: ledger.PaymentRent,
				DueDate: ledger.Date(2025, 1, 1), Status: ledger.PaymentCompleted, PaidDate: &paid},
			{ID: "p-mar", TenancyID: "t-1", Amount: ledger.NewMoney(decimal.NewFromInt(1500)), Type: ledger.PaymentRent,
				DueDate: ledger.Date(2025, 3, 1), Status: ledger.PaymentPending},
			{ID: "p-oak", TenancyID: "t-3", Amount: ledger.NewMoney(decimal.NewFromInt(900)), Type: ledger.PaymentRent,
				DueDate: ledger.Date(2025, 3, 1), Status: ledger.PaymentPending},
		},
		Expenses: []ledger.Expense{
			{ID: "e-1", PropertyID: "prop-1", Category: "repairs", Amount: decimal.RequireFromString("120.50"), IncurredOn: ledger.Date(2025, 3, 3)},
			{ID: "e-2", PropertyID: "prop-1", Category: "tax", Amount: decimal.NewFromInt(300), IncurredOn: ledger.Date(2024, 12, 15)},
		},
	}
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

func TestStore_LandlordSnapshotRoundTrip(t *testing.T) {
	// GIVEN: A batch spanning two landlords
	// WHEN: Reading landlord ll-1 from 2025 onward
	// THEN: Only ll-1 records come back, with money and dates intact

	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveBatch(ctx, seedBatch()))

	snap, err := s.Snapshot(ctx, ledger.Scope{Kind: ledger.ScopeLandlord, ID: "ll-1"},
		ledger.Period{Start: ledger.Date(2025, 1, 1)})
	require.NoError(t, err)

	require.Len(t, snap.Properties, 1)
	require.Len(t, snap.Units, 2)
	assert.Equal(t, "1.5", snap.Units[0].Bathrooms.String())
	require.Len(t, snap.Tenancies, 1)
	assert.Equal(t, ledger.Date(2026, 1, 1), snap.Tenancies[0].EndDate)

	require.Len(t, snap.Payments, 2)
	assert.Equal(t, ledger.PaymentID("p-jan"), snap.Payments[0].ID)
	require.NotNil(t, snap.Payments[0].PaidDate)
	assert.Equal(t, ledger.Date(2025, 2, 2), *snap.Payments[0].PaidDate)
	assert.Nil(t, snap.Payments[1].PaidDate)

	require.Len(t, snap.Expenses, 1, "expense outside the window is excluded")
	assert.Equal(t, "120.5", snap.Expenses[0].Amount.String())
	assert.Equal(t, fixedNow, snap.TakenAt)
}

func TestStore_OrganizationAndTenantScopes(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveBatch(ctx, seedBatch()))

	org, err := s.Snapshot(ctx, ledger.Scope{Kind: ledger.ScopeOrganization, ID: "org-1", PropertyID: "prop-2"}, ledger.Period{})
	require.NoError(t, err)
	require.Len(t, org.Units, 1)
	assert.Equal(t, ledger.UnitID("u-3"), org.Units[0].ID)

	tenant, err := s.Snapshot(ctx, ledger.Scope{Kind: ledger.ScopeTenant, ID: "tenant-a"}, ledger.Period{})
	require.NoError(t, err)
	assert.Len(t, tenant.Properties, 1)
	assert.Len(t, tenant.Units, 1)
	assert.Len(t, tenant.Payments, 2)
	assert.Empty(t, tenant.Expenses, "tenants never see expenses")
}

func TestStore_ArchivedPropertyLeavesRollups(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveBatch(ctx, seedBatch()))

	require.NoError(t, s.ArchiveProperty(ctx, "prop-2"))

	snap, err := s.Snapshot(ctx, ledger.Scope{Kind: ledger.ScopeOrganization, ID: "org-1"}, ledger.Period{})
	require.NoError(t, err)
	assert.Len(t, snap.Properties, 1)

	landlords, err := s.Landlords(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ll-1"}, landlords)

	tenant, err := s.Snapshot(ctx, ledger.Scope{Kind: ledger.ScopeTenant, ID: "tenant-b"}, ledger.Period{})
	require.NoError(t, err)
	assert.Empty(t, tenant.Properties, "archived properties are hidden from tenants too")
	assert.Empty(t, tenant.Units)
	assert.Empty(t, tenant.Tenancies)
	assert.Empty(t, tenant.Payments)

	assert.ErrorIs(t, s.ArchiveProperty(ctx, "missing"), ledger.ErrNotFound)
}

func TestStore_CorruptDateFailsSnapshot(t *testing.T) {
	// GIVEN: A payment row whose due_date was rewritten outside the store
	// WHEN: Taking a snapshot
	// THEN: The scan fails naming the column instead of yielding a zero date

	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()
	require.NoError(t, s.SaveBatch(ctx, seedBatch()))

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer raw.Close()
	_, err = raw.ExecContext(ctx, "UPDATE payments SET due_date = 'not-a-date' WHERE id = 'p-oak'")
	require.NoError(t, err)

	_, err = s.Snapshot(ctx, ledger.Scope{Kind: ledger.ScopeLandlord, ID: "ll-2"}, ledger.Period{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "p-oak")
	assert.Contains(t, err.Error(), "due_date")
}

func TestStore_InvalidScope(t *testing.T) {
	_, err := newStore(t).Snapshot(context.Background(), ledger.Scope{Kind: "agent", ID: "x"}, ledger.Period{})
	assert.ErrorIs(t, err, ledger.ErrInvalidScope)
}

// =============================================================================
// WRITES & VERSION
// =============================================================================

func TestStore_VersionBumpsOncePerWrite(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	v0, err := s.Version(ctx)
	require.NoError(t, err)

	require.NoError(t, s.SaveBatch(ctx, seedBatch()))
	v1, err := s.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, v0+1, v1, "a batch is one write")

	require.NoError(t, s.SaveExpense(ctx, ledger.Expense{ID: "e-3", PropertyID: "prop-1", Category: "insurance",
		Amount: decimal.NewFromInt(80), IncurredOn: ledger.Date(2025, 3, 5)}))
	v2, err := s.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, v1+1, v2)
}

func TestStore_RejectsSecondActiveTenancy(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveBatch(ctx, seedBatch()))
	before, _ := s.Version(ctx)

	err := s.SaveTenancy(ctx, ledger.Tenancy{ID: "t-2", UnitID: "u-1", TenantID: "tenant-c",
		StartDate: ledger.Date(2025, 2, 1), EndDate: ledger.Date(2026, 2, 1), Status: ledger.TenancyActive})

	assert.ErrorIs(t, err, ledger.ErrInvariantViolation)
	after, _ := s.Version(ctx)
	assert.Equal(t, before, after, "failed writes roll back")
}

func TestStore_UpdatePaymentStatus(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveBatch(ctx, seedBatch()))

	require.NoError(t, s.UpdatePaymentStatus(ctx, "p-mar", ledger.PaymentCompleted, fixedNow))

	snap, err := s.Snapshot(ctx, ledger.Scope{Kind: ledger.ScopeTenant, ID: "tenant-a"}, ledger.Period{})
	require.NoError(t, err)
	mar := snap.Payments[1]
	assert.Equal(t, ledger.PaymentCompleted, mar.Status)
	require.NotNil(t, mar.PaidDate)
	assert.Equal(t, fixedNow.Truncate(time.Second), *mar.PaidDate)

	err = s.UpdatePaymentStatus(ctx, "p-mar", ledger.PaymentPending, fixedNow)
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)

	err = s.UpdatePaymentStatus(ctx, "nope", ledger.PaymentCompleted, fixedNow)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestStore_UpdateTenancyStatusResyncsUnit(t *testing.T) {
	// GIVEN: u-1 occupied by the active lease t-1
	// WHEN: The lease is terminated
	// THEN: The unit's cached status flips to available

	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveBatch(ctx, seedBatch()))

	require.NoError(t, s.UpdateTenancyStatus(ctx, "t-1", ledger.TenancyTerminated, fixedNow))

	snap, err := s.Snapshot(ctx, ledger.Scope{Kind: ledger.ScopeLandlord, ID: "ll-1"}, ledger.Period{})
	require.NoError(t, err)
	assert.Equal(t, ledger.UnitAvailable, snap.Units[0].Status)
	assert.Empty(t, ledger.StaleUnits(snap.Units, snap.Tenancies, fixedNow))

	err = s.UpdateTenancyStatus(ctx, "t-1", ledger.TenancyActive, fixedNow)
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition, "terminated is final")
}

func TestStore_SyncUnitStatuses(t *testing.T) {
	// GIVEN: Two occupied units whose active leases end 2026-01-01
	// WHEN: Syncing on 2026-02-01
	// THEN: Both flip to available in one write; a second sync is a no-op

	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveBatch(ctx, seedBatch()))

	n, err := s.SyncUnitStatuses(ctx, fixedNow)
	require.NoError(t, err)
	assert.Zero(t, n, "leases still run at the seed date")

	before, err := s.Version(ctx)
	require.NoError(t, err)

	lapsed := ledger.Date(2026, 2, 1)
	n, err = s.SyncUnitStatuses(ctx, lapsed)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	after, err := s.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)

	snap, err := s.Snapshot(ctx, ledger.Scope{Kind: ledger.ScopeOrganization, ID: "org-1"}, ledger.Period{})
	require.NoError(t, err)
	for _, u := range snap.Units {
		assert.Equal(t, ledger.UnitAvailable, u.Status, string(u.ID))
	}

	n, err = s.SyncUnitStatuses(ctx, lapsed)
	require.NoError(t, err)
	assert.Zero(t, n)
	again, err := s.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, after, again, "nothing changed, nothing written")
}

func TestStore_Reset(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveBatch(ctx, seedBatch()))

	require.NoError(t, s.Reset(ctx))

	landlords, err := s.Landlords(ctx)
	require.NoError(t, err)
	assert.Empty(t, landlords)
}

// =============================================================================
// THROUGH THE SERVICE
// =============================================================================

func TestStore_MissingAmountFailsDashboard(t *testing.T) {
	// GIVEN: A stored payment with a NULL amount
	// WHEN: Computing a dashboard
	// THEN: The call fails with MissingField instead of treating it as zero

	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveBatch(ctx, seedBatch()))
	require.NoError(t, s.SavePayment(ctx, ledger.Payment{ID: "p-null", TenancyID: "t-1", Type: ledger.PaymentUtility,
		DueDate: ledger.Date(2025, 3, 5), Status: ledger.PaymentPending}))

	svc := analytics.NewService(s)
	svc.Clock = func() time.Time { return fixedNow }

	_, err := svc.Dashboard(ctx, analytics.Request{
		Scope:     ledger.Scope{Kind: ledger.ScopeLandlord, ID: "ll-1"},
		TimeRange: ledger.RangeMonth,
	})

	var mf *ledger.MissingFieldError
	require.ErrorAs(t, err, &mf)
	assert.Equal(t, "amount", mf.Field)
}

func TestStore_DashboardMatchesSeed(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveBatch(ctx, seedBatch()))

	svc := analytics.NewService(s)
	svc.Clock = func() time.Time { return fixedNow }

	dash, err := svc.Dashboard(ctx, analytics.Request{
		Scope:     ledger.Scope{Kind: ledger.ScopeLandlord, ID: "ll-1"},
		TimeRange: ledger.RangeMonth,
	})
	require.NoError(t, err)

	assert.Equal(t, "1500", dash.RentCollection.TotalExpected.String())
	assert.Equal(t, 1, dash.RentCollection.OverdueCount)
	require.NotNil(t, dash.Portfolio)
	assert.Equal(t, 2, dash.Portfolio.TotalUnits)
	assert.Equal(t, "120.5", dash.Financial.MonthlyExpenses.String())
}
