/*
handlers.go - HTTP API handlers for the rental analytics engine

PURPOSE:
  Exposes dashboards, report sections and payment classification over
  REST, plus the write paths (import, status changes, scenarios) that
  feed the ledger. Handles HTTP request/response and JSON serialization
  and delegates every figure to the analytics package.

ENDPOINTS:
  Dashboards:
    GET  /api/dashboard/{scope}/{id}                   Full dashboard
    GET  /api/dashboard/{scope}/{id}/report/{section}  One section, json or csv
    GET  /api/payments/{scope}/{id}/classified         Payments with urgency

  Ledger writes:
    POST /api/import                       Records JSON (factory schema)
    POST /api/payments/{id}/status         Payment status transition
    POST /api/tenancies/{id}/status        Lease status transition
    POST /api/properties/{id}/archive      Hide a property from rollups

  Scenarios:
    GET  /api/scenarios                    List demo scenarios
    POST /api/scenarios/load               Load a demo scenario

QUERY PARAMETERS (dashboards):
  time_range   month|quarter|year|all (default month)
  property_id  narrow landlord/organization scopes to one property
  format       json|csv (report and classified endpoints)

ERROR HANDLING:
  Errors are returned as JSON {error, code, details}:
  - 400: Validation errors, missing fields, unknown scope/range/section
  - 404: Record not found, section not available for the scope
  - 409: Status transition not permitted
  - 422: Ledger invariant violated
  - 502: Ledger reader unavailable
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - cache.go: Dashboard cache
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/warp/rental-analytics/analytics"
	"github.com/warp/rental-analytics/factory"
	"github.com/warp/rental-analytics/ledger"
	"github.com/warp/rental-analytics/logging"
	"github.com/warp/rental-analytics/report"
	"github.com/warp/rental-analytics/store/sqlite"
)

// maxImportBytes caps a single import body.
const maxImportBytes = 10 << 20

var errBadRequest = errors.New("bad request")

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Service *analytics.Service
	Cache   *DashboardCache // optional
	Records *factory.RecordFactory

	validate *validator.Validate

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler over store and svc.
func NewHandler(store *sqlite.Store, svc *analytics.Service) *Handler {
	return &Handler{
		Store:    store,
		Service:  svc,
		Records:  factory.NewRecordFactory(),
		validate: validator.New(),
	}
}

// CurrentScenario returns the loaded scenario ID, or "".
func (h *Handler) CurrentScenario() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentScenario
}

func (h *Handler) setScenario(id string) {
	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()
}

func (h *Handler) now() time.Time {
	if h.Service != nil && h.Service.Clock != nil {
		return h.Service.Clock().UTC()
	}
	return time.Now().UTC()
}

// =============================================================================
// DASHBOARD HANDLERS
// =============================================================================

// GetDashboard returns every figure for one scope.
// GET /api/dashboard/{scope}/{id}?time_range=quarter
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	req, _, ok := h.dashboardRequest(w, r)
	if !ok {
		return
	}

	dash, err := h.dashboard(r.Context(), req)
	if err != nil {
		h.fail(w, r, "Failed to compute dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

// GetReport returns one dashboard section in the requested format.
// GET /api/dashboard/{scope}/{id}/report/{section}?format=csv
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	req, q, ok := h.dashboardRequest(w, r)
	if !ok {
		return
	}
	section := report.Section(chi.URLParam(r, "section"))

	dash, err := h.dashboard(r.Context(), req)
	if err != nil {
		h.fail(w, r, "Failed to compute dashboard", err)
		return
	}
	value, err := report.Select(dash, section)
	if err != nil {
		h.fail(w, r, "Failed to select report section", err)
		return
	}
	h.writeReport(w, r, string(section), value, q.Format)
}

// GetClassifiedPayments lists every payment in scope with its urgency.
// GET /api/payments/{scope}/{id}/classified
func (h *Handler) GetClassifiedPayments(w http.ResponseWriter, r *http.Request) {
	req, q, ok := h.dashboardRequest(w, r)
	if !ok {
		return
	}

	payments, err := h.Service.ClassifiedPayments(r.Context(), req.Scope)
	if err != nil {
		h.fail(w, r, "Failed to classify payments", err)
		return
	}

	if q.Format == "csv" {
		h.writeReport(w, r, "payments", payments, q.Format)
		return
	}
	writeJSON(w, http.StatusOK, ClassifiedPaymentsDTO{
		Scope:    req.Scope.String(),
		AsOf:     h.now(),
		Payments: payments,
	})
}

// dashboardRequest parses path and query into an analytics.Request.
func (h *Handler) dashboardRequest(w http.ResponseWriter, r *http.Request) (analytics.Request, DashboardQuery, bool) {
	query := r.URL.Query()
	q := DashboardQuery{
		TimeRange:  query.Get("time_range"),
		PropertyID: query.Get("property_id"),
		Format:     query.Get("format"),
	}
	if err := h.validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid query parameters", err)
		return analytics.Request{}, q, false
	}
	if q.TimeRange == "" {
		q.TimeRange = string(ledger.RangeMonth)
	}

	req := analytics.Request{
		Scope: ledger.Scope{
			Kind:       ledger.ScopeKind(chi.URLParam(r, "scope")),
			ID:         chi.URLParam(r, "id"),
			PropertyID: ledger.PropertyID(q.PropertyID),
		},
		TimeRange: ledger.TimeRange(q.TimeRange),
	}
	if err := req.Scope.Validate(); err != nil {
		h.fail(w, r, "Invalid scope", err)
		return req, q, false
	}
	return req, q, true
}

func (h *Handler) dashboard(ctx context.Context, req analytics.Request) (*analytics.Dashboard, error) {
	if h.Cache != nil {
		return h.Cache.Dashboard(ctx, req)
	}
	return h.Service.Dashboard(ctx, req)
}

func (h *Handler) writeReport(w http.ResponseWriter, r *http.Request, name string, value any, format string) {
	if format != "csv" {
		out, err := report.Format(value, report.ShapeDashboard)
		if err != nil {
			h.fail(w, r, "Failed to format report", err)
			return
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	out, err := report.Format(value, report.ShapeCSVRows)
	if err != nil {
		h.fail(w, r, "Failed to format report", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".csv"))
	w.WriteHeader(http.StatusOK)
	if err := report.WriteCSV(w, out.([][]string)); err != nil {
		logging.Logger.WithError(err).WithField("report", name).Error("Failed to write CSV")
	}
}

// =============================================================================
// LEDGER WRITE HANDLERS
// =============================================================================

// ImportRecords stores a batch of records atomically.
// POST /api/import
func (h *Handler) ImportRecords(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body", err)
		return
	}

	batch, err := h.Records.ParseBatch(body)
	if err != nil {
		h.fail(w, r, "Invalid records", err)
		return
	}

	ctx := r.Context()
	if err := h.Store.SaveBatch(ctx, batch); err != nil {
		h.fail(w, r, "Failed to save records", err)
		return
	}
	version, err := h.Store.Version(ctx)
	if err != nil {
		h.fail(w, r, "Failed to read version", err)
		return
	}

	logging.Logger.WithField("records", batch.Len()).WithField("version", version).Info("Imported ledger records")
	writeJSON(w, http.StatusCreated, ImportResponse{Imported: batch.Len(), Version: version})
}

// UpdatePaymentStatus applies a payment status transition.
// POST /api/payments/{id}/status
func (h *Handler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req PaymentStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	paidAt := h.now()
	if req.PaidAt != nil {
		paidAt = req.PaidAt.UTC()
	}

	id := ledger.PaymentID(chi.URLParam(r, "id"))
	if err := h.Store.UpdatePaymentStatus(r.Context(), id, ledger.PaymentStatus(req.Status), paidAt); err != nil {
		h.fail(w, r, "Failed to update payment", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": string(id), "status": req.Status})
}

// UpdateTenancyStatus applies a lease status transition.
// POST /api/tenancies/{id}/status
func (h *Handler) UpdateTenancyStatus(w http.ResponseWriter, r *http.Request) {
	var req TenancyStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	id := ledger.TenancyID(chi.URLParam(r, "id"))
	if err := h.Store.UpdateTenancyStatus(r.Context(), id, ledger.TenancyStatus(req.Status), h.now()); err != nil {
		h.fail(w, r, "Failed to update tenancy", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": string(id), "status": req.Status})
}

// ArchiveProperty hides a property from every rollup.
// POST /api/properties/{id}/archive
func (h *Handler) ArchiveProperty(w http.ResponseWriter, r *http.Request) {
	id := ledger.PropertyID(chi.URLParam(r, "id"))
	if err := h.Store.ArchiveProperty(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to archive property", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": string(id), "status": "archived"})
}

// Health reports store reachability and the current ledger version.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "Database unreachable", err)
		return
	}
	version, err := h.Store.Version(ctx)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "Database unreachable", err)
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: version})
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads a JSON body into v and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", err)
		return false
	}
	return true
}

// fail maps err to a status, logs server-side failures and writes the body.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logging.Logger.WithError(err).
			WithField("path", r.URL.Path).
			WithField("code", code).
			Error(message)
	}
	writeError(w, status, code, message, err)
}

// errorStatus maps engine errors to HTTP status and a stable code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, report.ErrSectionUnavailable):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ledger.ErrMissingField):
		return http.StatusBadRequest, "missing_field"
	case errors.Is(err, ledger.ErrInvalidScope),
		errors.Is(err, ledger.ErrInvalidTimeRange),
		errors.Is(err, factory.ErrInvalidRecord),
		errors.Is(err, report.ErrUnknownSection),
		errors.Is(err, report.ErrUnknownShape),
		errors.Is(err, report.ErrUnsupportedValue),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, ledger.ErrInvariantViolation):
		return http.StatusUnprocessableEntity, "invariant_violation"
	case ledger.IsUpstream(err):
		return http.StatusBadGateway, "upstream_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
