package ledger

import (
	"sort"
	"time"
)

// =============================================================================
// SNAPSHOT VALIDATION - Fail fast, never zero-fill
// =============================================================================

// ValidateSnapshot checks every record the engine depends on. The first
// problem found fails the whole batch: a silently defaulted field would
// corrupt collection and occupancy math.
//
// Checks, in order:
//  1. Payments carry due_date, amount, a known status and type
//  2. Tenancies carry start/end dates and a known status
//  3. Units carry a known status
//  4. No unit has more than one active tenancy
func ValidateSnapshot(s *Snapshot) error {
	for _, p := range s.Payments {
		if err := ValidatePayment(p); err != nil {
			return err
		}
	}
	for _, t := range s.Tenancies {
		if err := ValidateTenancy(t); err != nil {
			return err
		}
	}
	for _, u := range s.Units {
		if u.Status == "" {
			return &MissingFieldError{Record: "unit", RecordID: string(u.ID), Field: "status"}
		}
		if !u.Status.Valid() {
			return &InvariantError{Rule: "unit_status_known", RecordID: string(u.ID), Detail: string(u.Status)}
		}
	}
	return CheckSingleActiveTenancy(s.Tenancies)
}

// ValidatePayment rejects a payment missing due_date, amount or status.
func ValidatePayment(p Payment) error {
	id := string(p.ID)
	switch {
	case p.DueDate.IsZero():
		return &MissingFieldError{Record: "payment", RecordID: id, Field: "due_date"}
	case !p.Amount.Valid:
		return &MissingFieldError{Record: "payment", RecordID: id, Field: "amount"}
	case p.Status == "":
		return &MissingFieldError{Record: "payment", RecordID: id, Field: "status"}
	case p.Type == "":
		return &MissingFieldError{Record: "payment", RecordID: id, Field: "type"}
	}
	if !p.Status.Valid() {
		return &InvariantError{Rule: "payment_status_known", RecordID: id, Detail: string(p.Status)}
	}
	if !p.Type.Valid() {
		return &InvariantError{Rule: "payment_type_known", RecordID: id, Detail: string(p.Type)}
	}
	return nil
}

// ValidateTenancy rejects a lease missing its dates or status.
func ValidateTenancy(t Tenancy) error {
	id := string(t.ID)
	switch {
	case t.StartDate.IsZero():
		return &MissingFieldError{Record: "tenancy", RecordID: id, Field: "start_date"}
	case t.EndDate.IsZero():
		return &MissingFieldError{Record: "tenancy", RecordID: id, Field: "end_date"}
	case t.Status == "":
		return &MissingFieldError{Record: "tenancy", RecordID: id, Field: "status"}
	}
	if !t.Status.Valid() {
		return &InvariantError{Rule: "tenancy_status_known", RecordID: id, Detail: string(t.Status)}
	}
	if !t.EndDate.After(t.StartDate) {
		return &InvariantError{Rule: "tenancy_range_ordered", RecordID: id, Detail: "end_date must be after start_date"}
	}
	return nil
}

// CheckSingleActiveTenancy enforces at most one active tenancy per unit.
func CheckSingleActiveTenancy(tenancies []Tenancy) error {
	seen := make(map[UnitID]TenancyID)
	for _, t := range tenancies {
		if t.Status != TenancyActive {
			continue
		}
		if other, ok := seen[t.UnitID]; ok {
			return &InvariantError{
				Rule:     "single_active_tenancy",
				RecordID: string(t.UnitID),
				Detail:   string(other) + " and " + string(t.ID) + " are both active",
			}
		}
		seen[t.UnitID] = t.ID
	}
	return nil
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// CheckPaymentTransition validates a payment status change.
func CheckPaymentTransition(p Payment, next PaymentStatus) error {
	if !p.Status.CanTransitionTo(next) {
		return &TransitionError{RecordID: string(p.ID), From: string(p.Status), To: string(next)}
	}
	return nil
}

// CheckTenancyTransition validates a lease status change.
func CheckTenancyTransition(t Tenancy, next TenancyStatus) error {
	if !t.Status.CanTransitionTo(next) {
		return &TransitionError{RecordID: string(t.ID), From: string(t.Status), To: string(next)}
	}
	return nil
}

// =============================================================================
// UNIT STATUS DERIVATION
// =============================================================================

// DeriveUnitStatus recomputes a unit's cached status at a point in time.
// Maintenance is sticky; otherwise an active lease covering at means occupied.
func DeriveUnitStatus(u Unit, tenancies []Tenancy, at time.Time) UnitStatus {
	if u.Status == UnitMaintenance {
		return UnitMaintenance
	}
	for _, t := range tenancies {
		if t.UnitID == u.ID && t.Status == TenancyActive && t.Covers(at) {
			return UnitOccupied
		}
	}
	return UnitAvailable
}

// StaleUnits lists units whose cached status disagrees with their tenancies,
// sorted by ID.
func StaleUnits(units []Unit, tenancies []Tenancy, at time.Time) []UnitID {
	var stale []UnitID
	for _, u := range units {
		if DeriveUnitStatus(u, tenancies, at) != u.Status {
			stale = append(stale, u.ID)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i] < stale[j] })
	return stale
}
