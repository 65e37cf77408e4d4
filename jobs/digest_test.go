package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rental-analytics/analytics"
	"github.com/warp/rental-analytics/jobs"
	"github.com/warp/rental-analytics/ledger"
	"github.com/warp/rental-analytics/ledger/store"
	"github.com/warp/rental-analytics/logging"
)

var digestNow = time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)

func seededStore() *store.Memory {
	m := store.NewMemory()
	m.PutProperty(ledger.Property{ID: "prop-a", OrganizationID: "org", LandlordID: "ll-a", Name: "A"})
	m.PutProperty(ledger.Property{ID: "prop-b", OrganizationID: "org", LandlordID: "ll-b", Name: "B"})
	m.PutUnit(ledger.Unit{ID: "u-a", PropertyID: "prop-a", RentAmount: decimal.NewFromInt(1000), Status: ledger.UnitOccupied})
	m.PutUnit(ledger.Unit{ID: "u-b", PropertyID: "prop-b", RentAmount: decimal.NewFromInt(900), Status: ledger.UnitAvailable})

	// ll-a: one overdue rent and a lease ending in under 30 days.
	m.PutTenancy(ledger.Tenancy{ID: "t-a", UnitID: "u-a", TenantID: "x", Status: ledger.TenancyActive,
		StartDate: ledger.Date(2024, 4, 1), EndDate: ledger.Date(2025, 4, 1), RentAmount: decimal.NewFromInt(1000)})
	m.PutPayment(ledger.Payment{ID: "p-a", TenancyID: "t-a", Amount: ledger.NewMoney(decimal.NewFromInt(1000)),
		Type: ledger.PaymentRent, DueDate: ledger.Date(2025, 3, 1), Status: ledger.PaymentPending})
	return m
}

type countingObserver struct {
	alerts map[string]int
	runs   []error
}

func (c *countingObserver) DigestAlert(t string) { c.alerts[t]++ }
func (c *countingObserver) DigestRun(err error)  { c.runs = append(c.runs, err) }

type flakyDashboards struct {
	inner  jobs.Dashboarder
	failID string
}

func (f flakyDashboards) Dashboard(ctx context.Context, req analytics.Request) (*analytics.Dashboard, error) {
	if req.Scope.ID == f.failID {
		return nil, &ledger.UpstreamError{Op: "snapshot", Err: errors.New("timeout")}
	}
	return f.inner.Dashboard(ctx, req)
}

func newDigest(t *testing.T, dashboards func(*analytics.Service) jobs.Dashboarder) (*jobs.Digest, *countingObserver) {
	t.Helper()
	logging.Discard()

	mem := seededStore()
	svc := analytics.NewService(mem)
	svc.Clock = func() time.Time { return digestNow }

	d := jobs.NewDigest(mem, dashboards(svc))
	d.Clock = func() time.Time { return digestNow }
	obs := &countingObserver{alerts: map[string]int{}}
	d.Observer = obs
	return d, obs
}

func TestDigest_RunCollectsAlertsPerLandlord(t *testing.T) {
	// GIVEN: ll-a with overdue rent and an expiring lease, ll-b with nothing
	// WHEN: Running the digest
	// THEN: Entries are sorted by landlord; ll-a carries its alerts

	d, obs := newDigest(t, func(s *analytics.Service) jobs.Dashboarder { return s })

	report, err := d.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Entries, 2)
	assert.Equal(t, "ll-a", report.Entries[0].LandlordID)
	assert.Equal(t, "ll-b", report.Entries[1].LandlordID)
	assert.Empty(t, report.Failed())

	var types []analytics.AlertType
	for _, a := range report.Entries[0].Alerts {
		types = append(types, a.Type)
	}
	assert.Contains(t, types, analytics.AlertOverduePayments)
	assert.Contains(t, types, analytics.AlertLeaseExpiring)
	assert.Equal(t, report.AlertCount(), len(report.Entries[0].Alerts)+len(report.Entries[1].Alerts))

	assert.Equal(t, 1, obs.alerts[string(analytics.AlertOverduePayments)])
	require.Len(t, obs.runs, 1)
	assert.NoError(t, obs.runs[0])
	assert.Equal(t, digestNow, report.RanAt)
}

func TestDigest_OneLandlordFailingDoesNotStopOthers(t *testing.T) {
	d, _ := newDigest(t, func(s *analytics.Service) jobs.Dashboarder {
		return flakyDashboards{inner: s, failID: "ll-a"}
	})
	d.Concurrency = 1

	report, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"ll-a"}, report.Failed())
	assert.True(t, ledger.IsUpstream(report.Entries[0].Err))
	assert.NoError(t, report.Entries[1].Err)
}

func TestDigest_CancelledContext(t *testing.T) {
	d, obs := newDigest(t, func(s *analytics.Service) jobs.Dashboarder { return s })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, obs.runs, 1)
	assert.Error(t, obs.runs[0])
}

func TestDigest_SyncsUnitsBeforeDashboards(t *testing.T) {
	// GIVEN: ll-a's only lease ended before the run, its unit still occupied
	// WHEN: Running the digest with unit sync enabled
	// THEN: The unit is re-derived first, so the dashboard sees it vacant

	logging.Discard()
	mem := seededStore()
	lapsed := time.Date(2025, time.April, 15, 7, 0, 0, 0, time.UTC)
	svc := analytics.NewService(mem)
	svc.Clock = func() time.Time { return lapsed }

	d := jobs.NewDigest(mem, svc)
	d.Units = mem
	d.Clock = func() time.Time { return lapsed }

	report, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.UnitsSynced)

	dash, err := svc.Dashboard(context.Background(), analytics.Request{
		Scope:     ledger.Scope{Kind: ledger.ScopeLandlord, ID: "ll-a"},
		TimeRange: ledger.RangeMonth,
	})
	require.NoError(t, err)
	require.NotNil(t, dash.Portfolio)
	assert.Zero(t, dash.Portfolio.OccupiedUnits)

	again, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, again.UnitsSynced)
}

func TestDigest_StartStop(t *testing.T) {
	d, _ := newDigest(t, func(s *analytics.Service) jobs.Dashboarder { return s })

	assert.Error(t, d.Start("not a schedule"))

	require.NoError(t, d.Start("0 7 * * *"))
	assert.Error(t, d.Start("0 7 * * *"), "already started")
	d.Stop()
	d.Stop()
}
