/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication that are not already
  the analytics types themselves. Dashboards, summaries and trend points
  are served as-is from the analytics package; their json tags are the
  wire contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Small response wrappers

VALIDATION:
  Request types carry go-playground/validator tags checked in decode().

SEE ALSO:
  - handlers.go: Uses these types
  - factory/records.go: BatchJSON import schema
*/
package api

import (
	"time"

	"github.com/warp/rental-analytics/analytics"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// DashboardQuery is parsed from the query string.
type DashboardQuery struct {
	TimeRange  string `validate:"omitempty,oneof=month quarter year all"`
	PropertyID string `validate:"omitempty,max=128"`
	Format     string `validate:"omitempty,oneof=json csv"`
}

// PaymentStatusRequest moves a payment to a new status.
type PaymentStatusRequest struct {
	Status string     `json:"status" validate:"required,oneof=completed failed refunded"`
	PaidAt *time.Time `json:"paid_at,omitempty"`
}

// TenancyStatusRequest moves a lease to a new status.
type TenancyStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active expired terminated"`
}

// LoadScenarioRequest selects a demo scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ClassifiedPaymentsDTO lists payments with their urgency.
type ClassifiedPaymentsDTO struct {
	Scope    string                        `json:"scope"`
	AsOf     time.Time                     `json:"as_of"`
	Payments []analytics.ClassifiedPayment `json:"payments"`
}

// ImportResponse reports a successful import.
type ImportResponse struct {
	Imported int   `json:"imported"`
	Version  int64 `json:"version"`
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version int64  `json:"version"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}
