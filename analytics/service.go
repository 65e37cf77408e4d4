/*
service.go - Dashboard orchestration over a single snapshot

PURPOSE:
  The Service is the one place that touches the Reader. It loads a snapshot,
  validates it and hands it to Compute, which is pure.

FLOW:
  1. Validate the request (scope, time range)
  2. Reader.Snapshot(scope, timeRange.QueryWindow(now)) - exactly once, no retry
  3. ledger.ValidateSnapshot - first malformed record fails the call
  4. Compute(snapshot, timeRange, now)

PARTITIONS (relative to now, payments by DueDate):
  - rent collection and property breakdown: TimeRange.Span(now), which
    ends with the current month
  - financial summary: current month, prior month, January..current month
  - trend: TimeRange.TrendMonths() months before the current one

TENANT SCOPE:
  Tenants see rent collection, their lease list, the trend and payment alerts.
  Portfolio, property breakdown and the financial summary are landlord and
  organization figures and stay nil.

SEE ALSO:
  - ../api/cache.go: Caller-owned cache keyed by snapshot version
*/
package analytics

import (
	"context"
	"time"

	"github.com/warp/rental-analytics/ledger"
)

// Observer receives one callback per Dashboard call. Optional.
type Observer interface {
	ObserveDashboard(scope ledger.ScopeKind, err error, elapsed time.Duration)
}

// Service computes dashboards from a Reader.
type Service struct {
	Reader   ledger.Reader
	Clock    func() time.Time // defaults to time.Now
	Observer Observer
}

func NewService(reader ledger.Reader) *Service {
	return &Service{Reader: reader, Clock: time.Now}
}

// Request names a dashboard.
type Request struct {
	Scope     ledger.Scope
	TimeRange ledger.TimeRange
}

// Dashboard is the full response for one request.
type Dashboard struct {
	Scope           ledger.Scope           `json:"-"`
	TimeRange       ledger.TimeRange       `json:"time_range"`
	GeneratedAt     time.Time              `json:"generated_at"`
	SnapshotVersion int64                  `json:"snapshot_version"`
	RentCollection  RentCollectionSummary  `json:"rent_collection"`
	Portfolio       *LandlordPortfolioData `json:"portfolio,omitempty"`
	Properties      []PropertyPerformance  `json:"properties,omitempty"`
	Financial       *FinancialSummary      `json:"financial,omitempty"`
	Trend           []MonthlyTrend         `json:"trend"`
	Leases          []LeaseStatus          `json:"leases"`
	Alerts          []Alert                `json:"alerts"`
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock().UTC()
}

// Dashboard loads one snapshot and computes every figure from it.
func (s *Service) Dashboard(ctx context.Context, req Request) (dash *Dashboard, err error) {
	start := time.Now()
	if s.Observer != nil {
		defer func() { s.Observer.ObserveDashboard(req.Scope.Kind, err, time.Since(start)) }()
	}

	if err := req.Scope.Validate(); err != nil {
		return nil, err
	}
	if !req.TimeRange.Valid() {
		return nil, ledger.ErrInvalidTimeRange
	}

	now := s.now()
	snap, err := s.snapshot(ctx, req.Scope, req.TimeRange.QueryWindow(now))
	if err != nil {
		return nil, err
	}
	return Compute(snap, req.TimeRange, now)
}

// ClassifiedPayments lists every payment in scope with its urgency at now.
func (s *Service) ClassifiedPayments(ctx context.Context, scope ledger.Scope) ([]ClassifiedPayment, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	snap, err := s.snapshot(ctx, scope, ledger.Period{})
	if err != nil {
		return nil, err
	}
	if err := ledger.ValidateSnapshot(snap); err != nil {
		return nil, err
	}
	return ClassifyPayments(snap.Payments, now)
}

func (s *Service) snapshot(ctx context.Context, scope ledger.Scope, window ledger.Period) (*ledger.Snapshot, error) {
	snap, err := s.Reader.Snapshot(ctx, scope, window)
	if err != nil {
		if ledger.IsClientError(err) {
			return nil, err
		}
		return nil, &ledger.UpstreamError{Op: "snapshot " + scope.String(), Err: err}
	}
	return snap, nil
}

// =============================================================================
// PURE COMPUTATION
// =============================================================================

// Compute validates snap and derives a dashboard for timeRange at now.
// Calling it twice with the same arguments yields identical output.
func Compute(snap *ledger.Snapshot, timeRange ledger.TimeRange, now time.Time) (*Dashboard, error) {
	if err := ledger.ValidateSnapshot(snap); err != nil {
		return nil, err
	}

	span := timeRange.Span(now)
	current := ledger.MonthOf(now)
	prior := current.Previous()
	ytd := ledger.Period{Start: ledger.StartOfYear(now), End: current.End}

	inSpan := filterPayments(snap.Payments, span)
	rent, err := AggregateRentCollection(inSpan, now)
	if err != nil {
		return nil, err
	}
	trend, err := ComputeMonthlyTrend(TrendInput{
		Payments:     snap.Payments,
		Expenses:     snap.Expenses,
		Units:        snap.Units,
		Tenancies:    snap.Tenancies,
		WindowMonths: timeRange.TrendMonths(),
		Now:          now,
	})
	if err != nil {
		return nil, err
	}

	dash := &Dashboard{
		Scope:           snap.Scope,
		TimeRange:       timeRange,
		GeneratedAt:     now,
		SnapshotVersion: snap.Version,
		RentCollection:  rent,
		Leases:          LeaseStatuses(snap.Tenancies, now),
		Trend:           trend,
	}

	if snap.Scope.Kind != ledger.ScopeTenant {
		portfolio := AggregatePortfolio(snap.Units)
		financial, err := AggregateFinancialSummary(FinancialInput{
			Payments:            filterPayments(snap.Payments, current),
			Expenses:            filterExpenses(snap.Expenses, current),
			PriorPeriodPayments: filterPayments(snap.Payments, prior),
			YearToDatePayments:  filterPayments(snap.Payments, ytd),
		})
		if err != nil {
			return nil, err
		}
		properties, err := AggregateProperties(snap, inSpan, filterExpenses(snap.Expenses, span))
		if err != nil {
			return nil, err
		}
		dash.Portfolio = &portfolio
		dash.Financial = &financial
		dash.Properties = properties
	}

	dash.Alerts = DeriveAlerts(AlertInput{
		Financial: dash.Financial,
		Rent:      rent,
		Leases:    dash.Leases,
	})
	return dash, nil
}

func filterPayments(payments []ledger.Payment, p ledger.Period) []ledger.Payment {
	var out []ledger.Payment
	for _, pay := range payments {
		if p.Contains(pay.DueDate) {
			out = append(out, pay)
		}
	}
	return out
}

func filterExpenses(expenses []ledger.Expense, p ledger.Period) []ledger.Expense {
	var out []ledger.Expense
	for _, e := range expenses {
		if p.Contains(e.IncurredOn) {
			out = append(out, e)
		}
	}
	return out
}
