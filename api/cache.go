/*
cache.go - Caller-owned dashboard cache

PURPOSE:
  The engine itself never caches. This LRU sits in front of
  analytics.Service and keys finished dashboards by
  (scope, time_range, snapshot_version).

FRESHNESS:
  1. Ask the store for its current version (cheap, no records loaded)
  2. Hit: return the cached dashboard if it is younger than MaxAge
  3. Miss: compute, then store under the version the snapshot was read at

  Any write bumps the version, so a stale dashboard is never served after
  the data changes. MaxAge bounds drift in the time-relative figures
  (overdue, due soon, days remaining) while the data stays unchanged.

  Errors are never cached.

SEE ALSO:
  - store/sqlite/sqlite.go: Version counter
  - metrics/metrics.go: CacheHit / CacheMiss
*/
package api

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/warp/rental-analytics/analytics"
	"github.com/warp/rental-analytics/ledger"
)

// CacheObserver is notified of hits and misses. Optional.
type CacheObserver interface {
	CacheHit()
	CacheMiss()
}

// DashboardCache memoizes dashboards per snapshot version.
type DashboardCache struct {
	Service  *analytics.Service
	Versions ledger.VersionReader
	MaxAge   time.Duration
	Observer CacheObserver

	entries *lru.Cache
}

// NewDashboardCache builds a cache holding up to size dashboards.
func NewDashboardCache(svc *analytics.Service, versions ledger.VersionReader, size int) (*DashboardCache, error) {
	entries, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create dashboard cache: %w", err)
	}
	return &DashboardCache{
		Service:  svc,
		Versions: versions,
		MaxAge:   time.Minute,
		entries:  entries,
	}, nil
}

type cacheKey struct {
	scope     string
	timeRange ledger.TimeRange
	version   int64
}

// Dashboard returns a cached dashboard or computes a fresh one.
func (c *DashboardCache) Dashboard(ctx context.Context, req analytics.Request) (*analytics.Dashboard, error) {
	version, err := c.Versions.Version(ctx)
	if err != nil {
		return nil, &ledger.UpstreamError{Op: "version", Err: err}
	}

	key := cacheKey{scope: req.Scope.String(), timeRange: req.TimeRange, version: version}
	if v, ok := c.entries.Get(key); ok {
		dash := v.(*analytics.Dashboard)
		if c.fresh(dash) {
			c.hit()
			return dash, nil
		}
		c.entries.Remove(key)
	}
	c.miss()

	dash, err := c.Service.Dashboard(ctx, req)
	if err != nil {
		return nil, err
	}
	key.version = dash.SnapshotVersion
	c.entries.Add(key, dash)
	return dash, nil
}

// Len returns the number of cached dashboards.
func (c *DashboardCache) Len() int {
	return c.entries.Len()
}

// Purge drops every entry.
func (c *DashboardCache) Purge() {
	c.entries.Purge()
}

func (c *DashboardCache) fresh(d *analytics.Dashboard) bool {
	if c.MaxAge <= 0 {
		return true
	}
	now := time.Now()
	if c.Service.Clock != nil {
		now = c.Service.Clock()
	}
	return now.Sub(d.GeneratedAt) < c.MaxAge
}

func (c *DashboardCache) hit() {
	if c.Observer != nil {
		c.Observer.CacheHit()
	}
}

func (c *DashboardCache) miss() {
	if c.Observer != nil {
		c.Observer.CacheMiss()
	}
}
