/*
Package ledger provides the normalized rental records the analytics engine reads.

PURPOSE:
  This package owns the shapes of the ledger snapshot: properties, units,
  tenancies (leases), payments and expenses. Every derived number shown on a
  dashboard is recomputed from these records - nothing derived is stored here.

KEY CONCEPTS IN THIS FILE (types.go):
  - Property / Unit: the physical portfolio
  - Tenancy: one tenant bound to one unit for [StartDate, EndDate)
  - Payment: a scheduled charge against a tenancy
  - Expense: an operating cost booked against a property
  - Closed enums for every status family (UnitStatus, TenancyStatus,
    PaymentStatus, PaymentType)

DESIGN PRINCIPLES:
  1. Read-only: the engine borrows snapshots and never mutates them
  2. Precision: all money is decimal.Decimal, never float64
  3. Explicit absence: Payment.Amount is nullable so a missing amount is
     never confused with a zero amount
  4. Closed enums: status strings are typed and validated, never compared ad hoc

SEE ALSO:
  - reader.go: Snapshot and the Reader contract
  - validate.go: Batch validation (MissingField, invariants)
  - errors.go: Error taxonomy
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PropertyID string
type UnitID string
type TenancyID string
type PaymentID string
type ExpenseID string

// =============================================================================
// PROPERTY & UNIT
// =============================================================================

// Property is a building or lot owned by an organization and managed by a landlord.
// Properties are never deleted; Archived hides them from rollups.
type Property struct {
	ID             PropertyID
	OrganizationID string
	LandlordID     string
	Name           string
	Address        string
	UnitCount      int
	Archived       bool
	CreatedAt      time.Time
}

type UnitStatus string

const (
	UnitAvailable   UnitStatus = "available"
	UnitOccupied    UnitStatus = "occupied"
	UnitMaintenance UnitStatus = "maintenance"
)

func (s UnitStatus) Valid() bool {
	switch s {
	case UnitAvailable, UnitOccupied, UnitMaintenance:
		return true
	}
	return false
}

// Unit belongs to exactly one Property. Status is a cached value that must
// agree with the unit's active tenancy (see DeriveUnitStatus).
type Unit struct {
	ID         UnitID
	PropertyID PropertyID
	Label      string
	RentAmount decimal.Decimal
	Bedrooms   int
	Bathrooms  decimal.Decimal
	Status     UnitStatus
}

// =============================================================================
// TENANCY - A lease over [StartDate, EndDate)
// =============================================================================

type TenancyStatus string

const (
	TenancyActive     TenancyStatus = "active"
	TenancyPending    TenancyStatus = "pending"
	TenancyExpired    TenancyStatus = "expired"
	TenancyTerminated TenancyStatus = "terminated"
)

func (s TenancyStatus) Valid() bool {
	switch s {
	case TenancyActive, TenancyPending, TenancyExpired, TenancyTerminated:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s TenancyStatus) Terminal() bool {
	return s == TenancyExpired || s == TenancyTerminated
}

// CanTransitionTo reports whether a lease may move from s to next.
func (s TenancyStatus) CanTransitionTo(next TenancyStatus) bool {
	switch s {
	case TenancyPending:
		return next == TenancyActive || next == TenancyTerminated
	case TenancyActive:
		return next == TenancyExpired || next == TenancyTerminated
	default:
		return false
	}
}

type Tenancy struct {
	ID              TenancyID
	UnitID          UnitID
	TenantID        string
	StartDate       time.Time
	EndDate         time.Time
	RentAmount      decimal.Decimal
	SecurityDeposit decimal.Decimal
	Status          TenancyStatus
}

// Covers reports whether at falls inside [StartDate, EndDate).
func (t Tenancy) Covers(at time.Time) bool {
	return !at.Before(t.StartDate) && at.Before(t.EndDate)
}

// Overlaps reports whether the lease intersects the half-open range [from, to).
func (t Tenancy) Overlaps(from, to time.Time) bool {
	return t.StartDate.Before(to) && t.EndDate.After(from)
}

// =============================================================================
// PAYMENT - A scheduled charge against a tenancy
// =============================================================================

type PaymentType string

const (
	PaymentRent            PaymentType = "rent"
	PaymentSecurityDeposit PaymentType = "security_deposit"
	PaymentLateFee         PaymentType = "late_fee"
	PaymentUtility         PaymentType = "utility"
)

func (t PaymentType) Valid() bool {
	switch t {
	case PaymentRent, PaymentSecurityDeposit, PaymentLateFee, PaymentUtility:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// CanTransitionTo enforces pending->completed|failed and completed->refunded.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch s {
	case PaymentPending:
		return next == PaymentCompleted || next == PaymentFailed
	case PaymentCompleted:
		return next == PaymentRefunded
	default:
		return false
	}
}

type Payment struct {
	ID        PaymentID
	TenancyID TenancyID
	Amount    decimal.NullDecimal
	Type      PaymentType
	DueDate   time.Time
	PaidDate  *time.Time
	Status    PaymentStatus
}

// Value returns the payment amount. Callers must validate the batch first;
// an absent amount reads as zero here.
func (p Payment) Value() decimal.Decimal {
	return p.Amount.Decimal
}

// =============================================================================
// EXPENSE - Operating cost booked against a property
// =============================================================================

type Expense struct {
	ID          ExpenseID
	PropertyID  PropertyID
	Category    string
	Amount      decimal.Decimal
	IncurredOn  time.Time
	Description string
}

// =============================================================================
// BATCH - Records written together
// =============================================================================

// Batch is a set of records imported or seeded in one write.
type Batch struct {
	Properties []Property
	Units      []Unit
	Tenancies  []Tenancy
	Payments   []Payment
	Expenses   []Expense
}

// Len returns the total number of records.
func (b *Batch) Len() int {
	return len(b.Properties) + len(b.Units) + len(b.Tenancies) + len(b.Payments) + len(b.Expenses)
}

// =============================================================================
// MONEY HELPERS
// =============================================================================

// NewMoney builds a non-null amount for a Payment.
func NewMoney(value decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: value, Valid: true}
}
