/*
Package factory provides JSON to Go ledger record conversion.

PURPOSE:
  Converts wire-format ledger records into ledger types. Dates arrive as
  ISO-8601 strings, money as decimal values (quoted or bare). Nothing is
  rounded on the way in.

JSON SCHEMA:
  {
    "properties": [{"id": "prop-1", "organization_id": "org-1", "landlord_id": "ll-1",
                    "name": "Maple Court", "address": "1 Maple St", "unit_count": 4}],
    "units":      [{"id": "u-1", "property_id": "prop-1", "label": "1A",
                    "rent_amount": "1500.00", "bedrooms": 2, "bathrooms": "1.5",
                    "status": "occupied"}],
    "tenancies":  [{"id": "t-1", "unit_id": "u-1", "tenant_id": "tenant-1",
                    "start_date": "2025-01-01", "end_date": "2026-01-01",
                    "rent_amount": "1500.00", "security_deposit": "1500.00",
                    "status": "active"}],
    "payments":   [{"id": "p-1", "tenancy_id": "t-1", "amount": "1500.00",
                    "type": "rent", "due_date": "2025-01-01",
                    "paid_date": "2025-01-02", "status": "completed"}],
    "expenses":   [{"id": "e-1", "property_id": "prop-1", "category": "repairs",
                    "amount": "120.50", "incurred_on": "2025-01-15"}]
  }

KEY FEATURES:
  - A record without an id gets a fresh UUID
  - Missing due_date / amount / status (and tenancy dates) fail with
    ledger.MissingFieldError, the same error the engine raises
  - Remaining field rules are validator tags; failures wrap ErrInvalidRecord
  - The first bad record fails the whole batch

USAGE:
  f := factory.NewRecordFactory()
  batch, err := f.ParseBatch(body)
  if errors.Is(err, ledger.ErrMissingField) { ... }

SEE ALSO:
  - ledger/validate.go: The same rules applied to stored snapshots
  - store/sqlite/sqlite.go: SaveBatch persists a parsed batch
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/rental-analytics/ledger"
)

// ErrInvalidRecord is returned when a record fails a field rule other than
// a missing required field.
var ErrInvalidRecord = errors.New("invalid record")

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

type BatchJSON struct {
	Properties []PropertyJSON `json:"properties,omitempty"`
	Units      []UnitJSON     `json:"units,omitempty"`
	Tenancies  []TenancyJSON  `json:"tenancies,omitempty"`
	Payments   []PaymentJSON  `json:"payments,omitempty"`
	Expenses   []ExpenseJSON  `json:"expenses,omitempty"`
}

type PropertyJSON struct {
	ID             string `json:"id,omitempty"`
	OrganizationID string `json:"organization_id" validate:"required"`
	LandlordID     string `json:"landlord_id" validate:"required"`
	Name           string `json:"name" validate:"required,max=200"`
	Address        string `json:"address,omitempty"`
	UnitCount      int    `json:"unit_count" validate:"gte=0"`
	Archived       bool   `json:"archived,omitempty"`
}

type UnitJSON struct {
	ID         string          `json:"id,omitempty"`
	PropertyID string          `json:"property_id" validate:"required"`
	Label      string          `json:"label,omitempty"`
	RentAmount decimal.Decimal `json:"rent_amount"`
	Bedrooms   int             `json:"bedrooms" validate:"gte=0"`
	Bathrooms  decimal.Decimal `json:"bathrooms"`
	Status     string          `json:"status"`
}

type TenancyJSON struct {
	ID              string          `json:"id,omitempty"`
	UnitID          string          `json:"unit_id" validate:"required"`
	TenantID        string          `json:"tenant_id" validate:"required"`
	StartDate       string          `json:"start_date"`
	EndDate         string          `json:"end_date"`
	RentAmount      decimal.Decimal `json:"rent_amount"`
	SecurityDeposit decimal.Decimal `json:"security_deposit"`
	Status          string          `json:"status"`
}

type PaymentJSON struct {
	ID        string              `json:"id,omitempty"`
	TenancyID string              `json:"tenancy_id" validate:"required"`
	Amount    decimal.NullDecimal `json:"amount"`
	Type      string              `json:"type" validate:"required,oneof=rent security_deposit late_fee utility"`
	DueDate   string              `json:"due_date"`
	PaidDate  string              `json:"paid_date,omitempty"`
	Status    string              `json:"status"`
}

type ExpenseJSON struct {
	ID          string              `json:"id,omitempty"`
	PropertyID  string              `json:"property_id" validate:"required"`
	Category    string              `json:"category" validate:"required,max=64"`
	Amount      decimal.NullDecimal `json:"amount"`
	IncurredOn  string              `json:"incurred_on" validate:"required"`
	Description string              `json:"description,omitempty"`
}

// =============================================================================
// RECORD FACTORY
// =============================================================================

// RecordFactory converts JSON records to ledger types.
type RecordFactory struct {
	validate *validator.Validate
	newID    func() string
	now      func() time.Time
}

func NewRecordFactory() *RecordFactory {
	return &RecordFactory{
		validate: validator.New(),
		newID:    func() string { return uuid.NewString() },
		now:      time.Now,
	}
}

// ParseBatch parses a JSON document into a ledger.Batch.
func (f *RecordFactory) ParseBatch(data []byte) (*ledger.Batch, error) {
	var bj BatchJSON
	if err := json.Unmarshal(data, &bj); err != nil {
		return nil, fmt.Errorf("%w: failed to parse records JSON: %w", ErrInvalidRecord, err)
	}
	return f.FromJSON(bj)
}

// FromJSON converts every record, stopping at the first failure.
func (f *RecordFactory) FromJSON(bj BatchJSON) (*ledger.Batch, error) {
	b := &ledger.Batch{}

	for _, pj := range bj.Properties {
		p, err := f.property(pj)
		if err != nil {
			return nil, err
		}
		b.Properties = append(b.Properties, p)
	}
	for _, uj := range bj.Units {
		u, err := f.unit(uj)
		if err != nil {
			return nil, err
		}
		b.Units = append(b.Units, u)
	}
	for _, tj := range bj.Tenancies {
		t, err := f.tenancy(tj)
		if err != nil {
			return nil, err
		}
		b.Tenancies = append(b.Tenancies, t)
	}
	for _, pj := range bj.Payments {
		p, err := f.payment(pj)
		if err != nil {
			return nil, err
		}
		b.Payments = append(b.Payments, p)
	}
	for _, ej := range bj.Expenses {
		e, err := f.expense(ej)
		if err != nil {
			return nil, err
		}
		b.Expenses = append(b.Expenses, e)
	}

	if err := ledger.CheckSingleActiveTenancy(b.Tenancies); err != nil {
		return nil, err
	}
	return b, nil
}

// ToJSON converts a batch back to its wire form.
func (f *RecordFactory) ToJSON(b *ledger.Batch) BatchJSON {
	var bj BatchJSON
	for _, p := range b.Properties {
		bj.Properties = append(bj.Properties, PropertyJSON{
			ID: string(p.ID), OrganizationID: p.OrganizationID, LandlordID: p.LandlordID,
			Name: p.Name, Address: p.Address, UnitCount: p.UnitCount, Archived: p.Archived,
		})
	}
	for _, u := range b.Units {
		bj.Units = append(bj.Units, UnitJSON{
			ID: string(u.ID), PropertyID: string(u.PropertyID), Label: u.Label,
			RentAmount: u.RentAmount, Bedrooms: u.Bedrooms, Bathrooms: u.Bathrooms, Status: string(u.Status),
		})
	}
	for _, t := range b.Tenancies {
		bj.Tenancies = append(bj.Tenancies, TenancyJSON{
			ID: string(t.ID), UnitID: string(t.UnitID), TenantID: t.TenantID,
			StartDate: t.StartDate.Format(ledger.DateLayout), EndDate: t.EndDate.Format(ledger.DateLayout),
			RentAmount: t.RentAmount, SecurityDeposit: t.SecurityDeposit, Status: string(t.Status),
		})
	}
	for _, p := range b.Payments {
		pj := PaymentJSON{
			ID: string(p.ID), TenancyID: string(p.TenancyID), Amount: p.Amount, Type: string(p.Type),
			DueDate: p.DueDate.Format(ledger.DateLayout), Status: string(p.Status),
		}
		if p.PaidDate != nil {
			pj.PaidDate = p.PaidDate.Format(ledger.DateLayout)
		}
		bj.Payments = append(bj.Payments, pj)
	}
	for _, e := range b.Expenses {
		bj.Expenses = append(bj.Expenses, ExpenseJSON{
			ID: string(e.ID), PropertyID: string(e.PropertyID), Category: e.Category, Amount: ledger.NewMoney(e.Amount),
			IncurredOn: e.IncurredOn.Format(ledger.DateLayout), Description: e.Description,
		})
	}
	return bj
}

// =============================================================================
// PER-RECORD CONVERSION
// =============================================================================

func (f *RecordFactory) id(given string) string {
	if given != "" {
		return given
	}
	return f.newID()
}

func (f *RecordFactory) check(record string, id string, v any) error {
	if err := f.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s %s: field %s failed %q", ErrInvalidRecord, record, id, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %s %s: %v", ErrInvalidRecord, record, id, err)
	}
	return nil
}

func (f *RecordFactory) property(pj PropertyJSON) (ledger.Property, error) {
	pj.ID = f.id(pj.ID)
	if err := f.check("property", pj.ID, pj); err != nil {
		return ledger.Property{}, err
	}
	return ledger.Property{
		ID:             ledger.PropertyID(pj.ID),
		OrganizationID: pj.OrganizationID,
		LandlordID:     pj.LandlordID,
		Name:           pj.Name,
		Address:        pj.Address,
		UnitCount:      pj.UnitCount,
		Archived:       pj.Archived,
		CreatedAt:      f.now().UTC(),
	}, nil
}

func (f *RecordFactory) unit(uj UnitJSON) (ledger.Unit, error) {
	uj.ID = f.id(uj.ID)
	if uj.Status == "" {
		return ledger.Unit{}, &ledger.MissingFieldError{Record: "unit", RecordID: uj.ID, Field: "status"}
	}
	if err := f.check("unit", uj.ID, uj); err != nil {
		return ledger.Unit{}, err
	}
	u := ledger.Unit{
		ID:         ledger.UnitID(uj.ID),
		PropertyID: ledger.PropertyID(uj.PropertyID),
		Label:      uj.Label,
		RentAmount: uj.RentAmount,
		Bedrooms:   uj.Bedrooms,
		Bathrooms:  uj.Bathrooms,
		Status:     ledger.UnitStatus(uj.Status),
	}
	if !u.Status.Valid() {
		return ledger.Unit{}, &ledger.InvariantError{Rule: "unit_status_known", RecordID: uj.ID, Detail: uj.Status}
	}
	if u.RentAmount.IsNegative() {
		return ledger.Unit{}, fmt.Errorf("%w: unit %s: negative rent_amount", ErrInvalidRecord, uj.ID)
	}
	return u, nil
}

func (f *RecordFactory) tenancy(tj TenancyJSON) (ledger.Tenancy, error) {
	tj.ID = f.id(tj.ID)
	if err := f.check("tenancy", tj.ID, tj); err != nil {
		return ledger.Tenancy{}, err
	}
	start, err := f.date("tenancy", tj.ID, "start_date", tj.StartDate)
	if err != nil {
		return ledger.Tenancy{}, err
	}
	end, err := f.date("tenancy", tj.ID, "end_date", tj.EndDate)
	if err != nil {
		return ledger.Tenancy{}, err
	}
	t := ledger.Tenancy{
		ID:              ledger.TenancyID(tj.ID),
		UnitID:          ledger.UnitID(tj.UnitID),
		TenantID:        tj.TenantID,
		StartDate:       start,
		EndDate:         end,
		RentAmount:      tj.RentAmount,
		SecurityDeposit: tj.SecurityDeposit,
		Status:          ledger.TenancyStatus(tj.Status),
	}
	if err := ledger.ValidateTenancy(t); err != nil {
		return ledger.Tenancy{}, err
	}
	return t, nil
}

func (f *RecordFactory) payment(pj PaymentJSON) (ledger.Payment, error) {
	pj.ID = f.id(pj.ID)
	due, err := f.date("payment", pj.ID, "due_date", pj.DueDate)
	if err != nil {
		return ledger.Payment{}, err
	}
	p := ledger.Payment{
		ID:        ledger.PaymentID(pj.ID),
		TenancyID: ledger.TenancyID(pj.TenancyID),
		Amount:    pj.Amount,
		Type:      ledger.PaymentType(pj.Type),
		DueDate:   due,
		Status:    ledger.PaymentStatus(pj.Status),
	}
	// Missing amount/status outrank validator rules so callers see MissingField.
	if err := ledger.ValidatePayment(p); err != nil {
		return ledger.Payment{}, err
	}
	if err := f.check("payment", pj.ID, pj); err != nil {
		return ledger.Payment{}, err
	}
	if pj.PaidDate != "" {
		paid, err := ledger.ParseDate(pj.PaidDate)
		if err != nil {
			return ledger.Payment{}, fmt.Errorf("%w: payment %s: paid_date: %v", ErrInvalidRecord, pj.ID, err)
		}
		p.PaidDate = &paid
	}
	return p, nil
}

func (f *RecordFactory) expense(ej ExpenseJSON) (ledger.Expense, error) {
	ej.ID = f.id(ej.ID)
	if !ej.Amount.Valid {
		return ledger.Expense{}, &ledger.MissingFieldError{Record: "expense", RecordID: ej.ID, Field: "amount"}
	}
	if err := f.check("expense", ej.ID, ej); err != nil {
		return ledger.Expense{}, err
	}
	incurred, err := f.date("expense", ej.ID, "incurred_on", ej.IncurredOn)
	if err != nil {
		return ledger.Expense{}, err
	}
	return ledger.Expense{
		ID:          ledger.ExpenseID(ej.ID),
		PropertyID:  ledger.PropertyID(ej.PropertyID),
		Category:    ej.Category,
		Amount:      ej.Amount.Decimal,
		IncurredOn:  incurred,
		Description: ej.Description,
	}, nil
}

// date parses a required date field; empty means missing.
func (f *RecordFactory) date(record, id, field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, &ledger.MissingFieldError{Record: record, RecordID: id, Field: field}
	}
	t, err := ledger.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %s: %s: %v", ErrInvalidRecord, record, id, field, err)
	}
	return t, nil
}
