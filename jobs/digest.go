/*
Package jobs runs scheduled background work.

digest.go - Scheduled alert digest

PURPOSE:
  Periodically computes every landlord's dashboard and logs the alerts it
  raises (low margin, income decline, overdue payments, expiring leases),
  so problems surface without anyone opening the dashboard.

DESIGN:
  - robfig/cron schedule in UTC (default "0 7 * * *")
  - Unit statuses are re-derived first (when Units is set), so a lease
    that ran out by date no longer counts as occupancy
  - Landlords are fanned out with errgroup, bounded by Concurrency
  - One landlord failing does not stop the others; failures are reported
    per landlord and logged
  - Reads go through the same Dashboarder the API uses, so a cached
    dashboard is reused when the ledger has not changed

USAGE:
  digest := jobs.NewDigest(store, svc)
  if err := digest.Start("0 7 * * *"); err != nil {
      log.Fatal(err)
  }
  defer digest.Stop()

SEE ALSO:
  - analytics/alerts.go: Alert rules and order
  - metrics/metrics.go: Digest counters
*/
package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/warp/rental-analytics/analytics"
	"github.com/warp/rental-analytics/ledger"
	"github.com/warp/rental-analytics/logging"
	"golang.org/x/sync/errgroup"
)

// LandlordLister lists landlords with at least one active property.
type LandlordLister interface {
	Landlords(ctx context.Context) ([]string, error)
}

// Dashboarder computes a dashboard. Satisfied by analytics.Service and
// api.DashboardCache.
type Dashboarder interface {
	Dashboard(ctx context.Context, req analytics.Request) (*analytics.Dashboard, error)
}

// UnitSyncer re-derives cached unit statuses at a point in time.
type UnitSyncer interface {
	SyncUnitStatuses(ctx context.Context, at time.Time) (int, error)
}

// DigestObserver is notified per alert and per run. Optional.
type DigestObserver interface {
	DigestAlert(alertType string)
	DigestRun(err error)
}

// DigestEntry is one landlord's outcome.
type DigestEntry struct {
	LandlordID string
	Alerts     []analytics.Alert
	Err        error
}

// DigestReport summarizes one run. Entries are sorted by landlord ID.
type DigestReport struct {
	RanAt       time.Time
	UnitsSynced int
	Entries     []DigestEntry
}

// AlertCount returns the number of alerts across all landlords.
func (r DigestReport) AlertCount() int {
	n := 0
	for _, e := range r.Entries {
		n += len(e.Alerts)
	}
	return n
}

// Failed returns the landlords whose dashboard could not be computed.
func (r DigestReport) Failed() []string {
	var out []string
	for _, e := range r.Entries {
		if e.Err != nil {
			out = append(out, e.LandlordID)
		}
	}
	return out
}

// Digest computes alerts for every landlord on a schedule.
type Digest struct {
	Landlords   LandlordLister
	Dashboards  Dashboarder
	Units       UnitSyncer // optional
	TimeRange   ledger.TimeRange
	Concurrency int
	Observer    DigestObserver
	Logger      *logrus.Logger
	Clock       func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// NewDigest creates a digest with month range and concurrency 4.
func NewDigest(landlords LandlordLister, dashboards Dashboarder) *Digest {
	return &Digest{
		Landlords:   landlords,
		Dashboards:  dashboards,
		TimeRange:   ledger.RangeMonth,
		Concurrency: 4,
		Logger:      logging.Logger,
		Clock:       time.Now,
	}
}

// Start schedules Run on spec. Calling Start twice replaces nothing and
// returns an error.
func (d *Digest) Start(spec string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cron != nil {
		return fmt.Errorf("digest already started")
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(spec, func() {
		if _, err := d.Run(context.Background()); err != nil {
			d.Logger.WithError(err).Error("[Digest] Run failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid digest schedule %q: %w", spec, err)
	}
	c.Start()
	d.cron = c

	d.Logger.WithField("schedule", spec).Info("[Digest] Started")
	return nil
}

// Stop stops the schedule and waits for a running digest to finish.
func (d *Digest) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cron == nil {
		return
	}
	<-d.cron.Stop().Done()
	d.cron = nil
	d.Logger.Info("[Digest] Stopped")
}

// Run computes every landlord's alerts once.
func (d *Digest) Run(ctx context.Context) (report DigestReport, err error) {
	report.RanAt = d.Clock().UTC()
	if d.Observer != nil {
		defer func() { d.Observer.DigestRun(err) }()
	}

	if d.Units != nil {
		if report.UnitsSynced, err = d.Units.SyncUnitStatuses(ctx, report.RanAt); err != nil {
			return report, fmt.Errorf("failed to sync unit statuses: %w", err)
		}
		if report.UnitsSynced > 0 {
			d.Logger.WithField("units", report.UnitsSynced).Info("[Digest] Unit statuses re-derived")
		}
	}

	landlords, err := d.Landlords.Landlords(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list landlords: %w", err)
	}
	sort.Strings(landlords)

	report.Entries = make([]DigestEntry, len(landlords))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(d.Concurrency, 1))

	for i, id := range landlords {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report.Entries[i] = d.landlord(gctx, id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	d.Logger.WithFields(logrus.Fields{
		"landlords": len(landlords),
		"alerts":    report.AlertCount(),
		"failed":    len(report.Failed()),
	}).Info("[Digest] Completed")
	return report, nil
}

func (d *Digest) landlord(ctx context.Context, id string) DigestEntry {
	entry := DigestEntry{LandlordID: id}
	dash, err := d.Dashboards.Dashboard(ctx, analytics.Request{
		Scope:     ledger.Scope{Kind: ledger.ScopeLandlord, ID: id},
		TimeRange: d.TimeRange,
	})
	if err != nil {
		entry.Err = err
		d.Logger.WithError(err).WithField("landlord", id).Warn("[Digest] Dashboard failed")
		return entry
	}

	entry.Alerts = dash.Alerts
	for _, a := range dash.Alerts {
		if d.Observer != nil {
			d.Observer.DigestAlert(string(a.Type))
		}
		d.Logger.WithFields(logrus.Fields{
			"landlord": id,
			"type":     a.Type,
			"severity": a.Severity,
			"subject":  a.Subject,
		}).Warn(a.Message)
	}
	return entry
}
