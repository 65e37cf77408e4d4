/*
reader.go - Snapshot read contract between storage and the analytics engine

PURPOSE:
  The Reader is the engine's only upstream. It returns an immutable snapshot of
  every record visible to a scope inside a query window. The engine performs a
  single Reader call per computation and never retries; retry and timeout
  policy belongs to the Reader implementation.

SCOPES:
  tenant:       tenancies held by one tenant, their units and payments
  landlord:     properties managed by one landlord and everything under them
  organization: every property owned by an organization

  Scope.PropertyID optionally narrows landlord/organization scopes to one property.

WINDOW FILTERING:
  Properties, units and tenancies are always returned in full (occupancy needs
  the whole portfolio). Payments are filtered by DueDate and expenses by
  IncurredOn against the window.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - ledger/store/memory.go: In-memory for testing

SEE ALSO:
  - period.go: TimeRange.QueryWindow builds the window
  - validate.go: Snapshot validation before any computation
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// SCOPE
// =============================================================================

type ScopeKind string

const (
	ScopeTenant       ScopeKind = "tenant"
	ScopeLandlord     ScopeKind = "landlord"
	ScopeOrganization ScopeKind = "organization"
)

func (k ScopeKind) Valid() bool {
	switch k {
	case ScopeTenant, ScopeLandlord, ScopeOrganization:
		return true
	}
	return false
}

// Scope identifies whose records a snapshot covers.
type Scope struct {
	Kind       ScopeKind
	ID         string
	PropertyID PropertyID // optional narrowing
}

func (s Scope) Validate() error {
	if !s.Kind.Valid() || s.ID == "" {
		return ErrInvalidScope
	}
	return nil
}

func (s Scope) String() string {
	out := string(s.Kind) + ":" + s.ID
	if s.PropertyID != "" {
		out += "/" + string(s.PropertyID)
	}
	return out
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is an immutable read of ledger state. Consumers must treat every
// slice as read-only.
type Snapshot struct {
	Scope   Scope
	Window  Period
	Version int64 // monotonically increasing store write counter
	TakenAt time.Time

	Properties []Property
	Units      []Unit
	Tenancies  []Tenancy
	Payments   []Payment
	Expenses   []Expense
}

// Reader produces snapshots. Implementations must be safe for concurrent use.
type Reader interface {
	Snapshot(ctx context.Context, scope Scope, window Period) (*Snapshot, error)
}

// VersionReader is implemented by stores that can report their write counter
// without loading records.
type VersionReader interface {
	Version(ctx context.Context) (int64, error)
}
