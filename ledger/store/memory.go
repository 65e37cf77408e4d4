// Package store provides Reader implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/rental-analytics/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	properties map[ledger.PropertyID]ledger.Property
	units      map[ledger.UnitID]ledger.Unit
	tenancies  map[ledger.TenancyID]ledger.Tenancy
	payments   map[ledger.PaymentID]ledger.Payment
	expenses   map[ledger.ExpenseID]ledger.Expense
	version    int64

	// Now stamps Snapshot.TakenAt; defaults to time.Now.
	Now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		properties: make(map[ledger.PropertyID]ledger.Property),
		units:      make(map[ledger.UnitID]ledger.Unit),
		tenancies:  make(map[ledger.TenancyID]ledger.Tenancy),
		payments:   make(map[ledger.PaymentID]ledger.Payment),
		expenses:   make(map[ledger.ExpenseID]ledger.Expense),
		Now:        time.Now,
	}
}

// =============================================================================
// WRITES - Upserts, each bumps the version
// =============================================================================

func (m *Memory) PutProperty(p ledger.Property) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.properties[p.ID] = p
	m.version++
}

func (m *Memory) PutUnit(u ledger.Unit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units[u.ID] = u
	m.version++
}

func (m *Memory) PutTenancy(t ledger.Tenancy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenancies[t.ID] = t
	m.version++
}

func (m *Memory) PutPayment(p ledger.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.ID] = p
	m.version++
}

func (m *Memory) PutExpense(e ledger.Expense) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expenses[e.ID] = e
	m.version++
}

// PutBatch upserts every record in b.
func (m *Memory) PutBatch(b *ledger.Batch) {
	for _, p := range b.Properties {
		m.PutProperty(p)
	}
	for _, u := range b.Units {
		m.PutUnit(u)
	}
	for _, t := range b.Tenancies {
		m.PutTenancy(t)
	}
	for _, p := range b.Payments {
		m.PutPayment(p)
	}
	for _, e := range b.Expenses {
		m.PutExpense(e)
	}
}

// SyncUnitStatuses re-derives each unit's cached status at the given time.
// Returns how many units changed; the version only moves when one did.
func (m *Memory) SyncUnitStatuses(_ context.Context, at time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	units := make([]ledger.Unit, 0, len(m.units))
	for _, u := range m.units {
		units = append(units, u)
	}
	tenancies := make([]ledger.Tenancy, 0, len(m.tenancies))
	for _, t := range m.tenancies {
		tenancies = append(tenancies, t)
	}

	stale := ledger.StaleUnits(units, tenancies, at)
	for _, id := range stale {
		u := m.units[id]
		u.Status = ledger.DeriveUnitStatus(u, tenancies, at)
		m.units[id] = u
	}
	if len(stale) > 0 {
		m.version++
	}
	return len(stale), nil
}

// Version returns the write counter.
func (m *Memory) Version(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version, nil
}

// =============================================================================
// READS - ledger.Reader
// =============================================================================

// Snapshot returns copies of every record visible to scope inside window,
// each slice sorted by ID so repeated reads are identical.
func (m *Memory) Snapshot(ctx context.Context, scope ledger.Scope, window ledger.Period) (*ledger.Snapshot, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := &ledger.Snapshot{
		Scope:   scope,
		Window:  window,
		Version: m.version,
		TakenAt: m.Now().UTC(),
	}

	if scope.Kind == ledger.ScopeTenant {
		m.collectTenant(snap, scope, window)
	} else {
		m.collectPortfolio(snap, scope, window)
	}

	sortSnapshot(snap)
	return snap, nil
}

func (m *Memory) collectTenant(snap *ledger.Snapshot, scope ledger.Scope, window ledger.Period) {
	tenancyIDs := make(map[ledger.TenancyID]bool)
	unitIDs := make(map[ledger.UnitID]bool)
	propertyIDs := make(map[ledger.PropertyID]bool)
	for _, t := range m.tenancies {
		if t.TenantID != scope.ID {
			continue
		}
		u, ok := m.units[t.UnitID]
		if !ok || (scope.PropertyID != "" && u.PropertyID != scope.PropertyID) {
			continue
		}
		if m.properties[u.PropertyID].Archived {
			continue
		}
		snap.Tenancies = append(snap.Tenancies, t)
		tenancyIDs[t.ID] = true
		if !unitIDs[u.ID] {
			unitIDs[u.ID] = true
			snap.Units = append(snap.Units, u)
		}
		propertyIDs[u.PropertyID] = true
	}
	for id := range propertyIDs {
		if p, ok := m.properties[id]; ok {
			snap.Properties = append(snap.Properties, p)
		}
	}
	for _, p := range m.payments {
		if tenancyIDs[p.TenancyID] && window.Contains(p.DueDate) {
			snap.Payments = append(snap.Payments, p)
		}
	}
}

func (m *Memory) collectPortfolio(snap *ledger.Snapshot, scope ledger.Scope, window ledger.Period) {
	propertyIDs := make(map[ledger.PropertyID]bool)
	for _, p := range m.properties {
		if p.Archived {
			continue
		}
		if scope.PropertyID != "" && p.ID != scope.PropertyID {
			continue
		}
		owned := (scope.Kind == ledger.ScopeLandlord && p.LandlordID == scope.ID) ||
			(scope.Kind == ledger.ScopeOrganization && p.OrganizationID == scope.ID)
		if !owned {
			continue
		}
		snap.Properties = append(snap.Properties, p)
		propertyIDs[p.ID] = true
	}

	unitIDs := make(map[ledger.UnitID]bool)
	for _, u := range m.units {
		if propertyIDs[u.PropertyID] {
			snap.Units = append(snap.Units, u)
			unitIDs[u.ID] = true
		}
	}

	tenancyIDs := make(map[ledger.TenancyID]bool)
	for _, t := range m.tenancies {
		if unitIDs[t.UnitID] {
			snap.Tenancies = append(snap.Tenancies, t)
			tenancyIDs[t.ID] = true
		}
	}
	for _, p := range m.payments {
		if tenancyIDs[p.TenancyID] && window.Contains(p.DueDate) {
			snap.Payments = append(snap.Payments, p)
		}
	}
	for _, e := range m.expenses {
		if propertyIDs[e.PropertyID] && window.Contains(e.IncurredOn) {
			snap.Expenses = append(snap.Expenses, e)
		}
	}
}

// Landlords lists distinct landlord IDs of non-archived properties.
func (m *Memory) Landlords(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, p := range m.properties {
		if p.Archived || p.LandlordID == "" || seen[p.LandlordID] {
			continue
		}
		seen[p.LandlordID] = true
		out = append(out, p.LandlordID)
	}
	sort.Strings(out)
	return out, nil
}

func sortSnapshot(s *ledger.Snapshot) {
	sort.Slice(s.Properties, func(i, j int) bool { return s.Properties[i].ID < s.Properties[j].ID })
	sort.Slice(s.Units, func(i, j int) bool { return s.Units[i].ID < s.Units[j].ID })
	sort.Slice(s.Tenancies, func(i, j int) bool { return s.Tenancies[i].ID < s.Tenancies[j].ID })
	sort.Slice(s.Payments, func(i, j int) bool { return s.Payments[i].ID < s.Payments[j].ID })
	sort.Slice(s.Expenses, func(i, j int) bool { return s.Expenses[i].ID < s.Expenses[j].ID })
}
