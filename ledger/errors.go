/*
errors.go - Centralized error types for the ledger snapshot and the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The analytics engine and the API classify failures through these.

ERROR CATEGORIES:
  1. MissingField - a required field is absent on an input record; the whole
     batch is rejected rather than zero-filled
  2. Invariant violations - the snapshot contradicts a data-model rule
     (e.g. two active tenancies on one unit)
  3. UpstreamUnavailable - the Reader failed; propagated unchanged, never retried

  Zero-denominator rates are NOT errors: they report 0.

USAGE:
  if errors.Is(err, ledger.ErrMissingField) {
      // 400: the caller sent or stored a malformed record
  }
  var mf *ledger.MissingFieldError
  if errors.As(err, &mf) {
      log.Printf("payment %s is missing %s", mf.RecordID, mf.Field)
  }

SEE ALSO:
  - validate.go: Produces MissingFieldError and InvariantError
  - analytics/service.go: Wraps Reader failures in UpstreamError
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingField is returned when a record lacks due_date, amount or status.
	ErrMissingField = errors.New("missing required field")

	// ErrUpstreamUnavailable is returned when the Reader could not produce a snapshot.
	ErrUpstreamUnavailable = errors.New("ledger reader unavailable")

	// ErrInvariantViolation is returned when a snapshot breaks a data-model rule.
	ErrInvariantViolation = errors.New("ledger invariant violated")

	// ErrInvalidScope is returned for an unknown scope kind or empty scope ID.
	ErrInvalidScope = errors.New("invalid scope")

	// ErrInvalidTimeRange is returned for a time range outside month|quarter|year|all.
	ErrInvalidTimeRange = errors.New("invalid time range")

	// ErrInvalidTransition is returned when a status change is not permitted.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotFound is returned by stores for unknown record IDs.
	ErrNotFound = errors.New("record not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MissingFieldError names the record and field that were absent.
type MissingFieldError struct {
	Record   string // "payment", "tenancy", ...
	RecordID string
	Field    string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s %s: missing %s", e.Record, e.RecordID, e.Field)
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingField
}

// InvariantError describes which data-model rule a snapshot broke.
type InvariantError struct {
	Rule     string
	RecordID string
	Detail   string
}

func (e *InvariantError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (%s): %s", e.Rule, e.RecordID, e.Detail)
	}
	return fmt.Sprintf("%s (%s)", e.Rule, e.RecordID)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariantViolation
}

// UpstreamError wraps a Reader failure. The original error stays reachable
// through Unwrap so callers can inspect it.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrUpstreamUnavailable, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

// TransitionError reports a rejected status change.
type TransitionError struct {
	RecordID string
	From     string
	To       string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s not permitted", e.RecordID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to malformed input records or request.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidScope) ||
		errors.Is(err, ErrInvalidTimeRange) ||
		errors.Is(err, ErrInvalidTransition)
}

// IsUpstream returns true if the Reader failed.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}
