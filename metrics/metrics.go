/*
Package metrics exposes Prometheus instrumentation for the analytics server.

METRICS:
  analytics_dashboard_requests_total{scope,outcome}  outcome: ok|client_error|upstream_error|error
  analytics_dashboard_duration_seconds{scope}
  analytics_cache_hits_total / analytics_cache_misses_total
  analytics_digest_alerts_total{type}
  analytics_digest_runs_total{outcome}

Metrics register on the Registerer passed to New so tests can use a fresh
prometheus.NewRegistry() instead of the global default.

SEE ALSO:
  - analytics/service.go: Observer interface implemented here
  - api/cache.go: Cache hit/miss reporting
  - jobs/digest.go: Digest counters
*/
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/warp/rental-analytics/ledger"
)

// Metrics holds all Prometheus metrics for the analytics server
type Metrics struct {
	DashboardRequestsTotal *prometheus.CounterVec
	DashboardDuration      *prometheus.HistogramVec

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	DigestAlertsTotal *prometheus.CounterVec
	DigestRunsTotal   *prometheus.CounterVec
}

// New creates and registers all metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		DashboardRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "analytics",
			Name:      "dashboard_requests_total",
			Help:      "Total number of dashboard computations by scope and outcome",
		}, []string{"scope", "outcome"}),
		DashboardDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "analytics",
			Name:      "dashboard_duration_seconds",
			Help:      "Histogram of dashboard computation durations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"scope"}),
		CacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "analytics",
			Name:      "cache_hits_total",
			Help:      "Total number of dashboard cache hits",
		}),
		CacheMissesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "analytics",
			Name:      "cache_misses_total",
			Help:      "Total number of dashboard cache misses",
		}),
		DigestAlertsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "analytics",
			Name:      "digest_alerts_total",
			Help:      "Total number of alerts raised by the scheduled digest",
		}, []string{"type"}),
		DigestRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "analytics",
			Name:      "digest_runs_total",
			Help:      "Total number of digest runs by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveDashboard implements analytics.Observer.
func (m *Metrics) ObserveDashboard(scope ledger.ScopeKind, err error, elapsed time.Duration) {
	m.DashboardRequestsTotal.WithLabelValues(string(scope), Outcome(err)).Inc()
	m.DashboardDuration.WithLabelValues(string(scope)).Observe(elapsed.Seconds())
}

// CacheHit and CacheMiss implement the api cache observer.
func (m *Metrics) CacheHit()  { m.CacheHitsTotal.Inc() }
func (m *Metrics) CacheMiss() { m.CacheMissesTotal.Inc() }

// DigestAlert counts one alert of the given type.
func (m *Metrics) DigestAlert(alertType string) {
	m.DigestAlertsTotal.WithLabelValues(alertType).Inc()
}

// DigestRun counts one completed digest run.
func (m *Metrics) DigestRun(err error) {
	m.DigestRunsTotal.WithLabelValues(Outcome(err)).Inc()
}

// Outcome buckets an error into a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case ledger.IsUpstream(err):
		return "upstream_error"
	case ledger.IsClientError(err):
		return "client_error"
	default:
		return "error"
	}
}
