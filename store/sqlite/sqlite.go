/*
Package sqlite provides a SQLite-backed ledger store.

PURPOSE:
  Persists properties, units, tenancies, payments and expenses and serves
  them to the analytics engine through ledger.Reader. In production the
  same patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  ledger.Reader:        Snapshot(scope, window)
  ledger.VersionReader: Version() for cache keys

VERSION COUNTER:
  Every write runs in a transaction that also bumps ledger_version.version.
  A snapshot carries the version it was read at, so callers can key cached
  dashboards by it and never serve figures older than the data.

KEY TABLES:
  properties:     soft-archived, never deleted
  units:          cached status kept in step with tenancies
  tenancies:      [start_date, end_date) leases
  payments:       amount is nullable so a missing amount stays detectable
  expenses:       operating costs per property
  ledger_version: single-row write counter

STORAGE FORMATS:
  Dates are RFC3339 UTC strings (lexicographic order == time order).
  Money is the decimal string, never REAL.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.

USAGE:
  store, err := sqlite.New("./data/rental.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := analytics.NewService(store)

SEE ALSO:
  - ledger/reader.go: Reader contract and scope semantics
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/rental-analytics/ledger"
)

// Store implements ledger.Reader on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex

	// Now stamps CreatedAt and Snapshot.TakenAt; defaults to time.Now.
	Now func() time.Time
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if strings.HasPrefix(dbPath, ":memory:") {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, Now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL,
		landlord_id TEXT NOT NULL,
		name TEXT NOT NULL,
		address TEXT,
		unit_count INTEGER NOT NULL DEFAULT 0,
		archived BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_properties_landlord
		ON properties(landlord_id) WHERE archived = 0;
	CREATE INDEX IF NOT EXISTS idx_properties_organization
		ON properties(organization_id) WHERE archived = 0;

	CREATE TABLE IF NOT EXISTS units (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id),
		label TEXT,
		rent_amount TEXT NOT NULL,
		bedrooms INTEGER NOT NULL DEFAULT 0,
		bathrooms TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_units_property
		ON units(property_id);

	CREATE TABLE IF NOT EXISTS tenancies (
		id TEXT PRIMARY KEY,
		unit_id TEXT NOT NULL REFERENCES units(id),
		tenant_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		rent_amount TEXT NOT NULL,
		security_deposit TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tenancies_unit
		ON tenancies(unit_id);
	CREATE INDEX IF NOT EXISTS idx_tenancies_tenant
		ON tenancies(tenant_id);

	-- CRITICAL: at most one active tenancy per unit
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_active_tenancy
		ON tenancies(unit_id) WHERE status = 'active';

	-- amount is nullable: absent is not zero
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		tenancy_id TEXT NOT NULL REFERENCES tenancies(id),
		amount TEXT,
		payment_type TEXT NOT NULL,
		due_date TEXT NOT NULL,
		paid_date TEXT,
		status TEXT NOT NULL
	);

	-- Hot path: snapshot window filter
	CREATE INDEX IF NOT EXISTS idx_payments_tenancy_due
		ON payments(tenancy_id, due_date);

	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id),
		category TEXT NOT NULL,
		amount TEXT NOT NULL,
		incurred_on TEXT NOT NULL,
		description TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_expenses_property_date
		ON expenses(property_id, incurred_on);

	CREATE TABLE IF NOT EXISTS ledger_version (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		version INTEGER NOT NULL
	);
	INSERT OR IGNORE INTO ledger_version (id, version) VALUES (1, 0);
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// WRITES - Each runs in one transaction and bumps the version
// =============================================================================

// SaveBatch upserts every record in b atomically, parents before children.
func (s *Store) SaveBatch(ctx context.Context, b *ledger.Batch) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		for _, p := range b.Properties {
			if err := s.saveProperty(ctx, tx, p); err != nil {
				return err
			}
		}
		for _, u := range b.Units {
			if err := saveUnit(ctx, tx, u); err != nil {
				return err
			}
		}
		for _, t := range b.Tenancies {
			if err := saveTenancy(ctx, tx, t); err != nil {
				return err
			}
		}
		for _, p := range b.Payments {
			if err := savePayment(ctx, tx, p); err != nil {
				return err
			}
		}
		for _, e := range b.Expenses {
			if err := saveExpense(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) SaveProperty(ctx context.Context, p ledger.Property) error {
	return s.write(ctx, func(tx *sql.Tx) error { return s.saveProperty(ctx, tx, p) })
}

func (s *Store) SaveUnit(ctx context.Context, u ledger.Unit) error {
	return s.write(ctx, func(tx *sql.Tx) error { return saveUnit(ctx, tx, u) })
}

func (s *Store) SaveTenancy(ctx context.Context, t ledger.Tenancy) error {
	return s.write(ctx, func(tx *sql.Tx) error { return saveTenancy(ctx, tx, t) })
}

func (s *Store) SavePayment(ctx context.Context, p ledger.Payment) error {
	return s.write(ctx, func(tx *sql.Tx) error { return savePayment(ctx, tx, p) })
}

func (s *Store) SaveExpense(ctx context.Context, e ledger.Expense) error {
	return s.write(ctx, func(tx *sql.Tx) error { return saveExpense(ctx, tx, e) })
}

// ArchiveProperty hides a property from rollups. Properties are never deleted.
func (s *Store) ArchiveProperty(ctx context.Context, id ledger.PropertyID) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE properties SET archived = 1 WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to archive property: %w", err)
		}
		return requireOneRow(res)
	})
}

// UpdatePaymentStatus applies a permitted status transition. paidAt is
// recorded when the payment completes.
func (s *Store) UpdatePaymentStatus(ctx context.Context, id ledger.PaymentID, next ledger.PaymentStatus, paidAt time.Time) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, "SELECT status FROM payments WHERE id = ?", id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load payment: %w", err)
		}

		p := ledger.Payment{ID: id, Status: ledger.PaymentStatus(current)}
		if err := ledger.CheckPaymentTransition(p, next); err != nil {
			return err
		}

		var paid sql.NullString
		if next == ledger.PaymentCompleted {
			paid = nullString(formatTime(paidAt))
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE payments SET status = ?, paid_date = COALESCE(?, paid_date) WHERE id = ?",
			next, paid, id)
		if err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}
		return nil
	})
}

// UpdateTenancyStatus applies a permitted lease transition and re-derives the
// unit's cached status at the given time.
func (s *Store) UpdateTenancyStatus(ctx context.Context, id ledger.TenancyID, next ledger.TenancyStatus, at time.Time) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		t, err := scanTenancy(tx.QueryRowContext(ctx, "SELECT "+tenancyCols+" FROM tenancies t WHERE t.id = ?", id))
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := ledger.CheckTenancyTransition(t, next); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "UPDATE tenancies SET status = ? WHERE id = ?", next, id); err != nil {
			if isUniqueConstraintError(err) {
				return &ledger.InvariantError{Rule: "single_active_tenancy", RecordID: string(t.UnitID)}
			}
			return fmt.Errorf("failed to update tenancy: %w", err)
		}
		return syncUnitStatus(ctx, tx, t.UnitID, at)
	})
}

// write serializes writers and bumps the version inside the same transaction.
func (s *Store) write(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := bumpVersion(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

func bumpVersion(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, "UPDATE ledger_version SET version = version + 1 WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to bump version: %w", err)
	}
	return nil
}

// SyncUnitStatuses re-derives every unit's cached status at the given time,
// so a unit whose lease ran out by date stops reading as occupied. Returns
// how many units changed; the version only moves when one did.
func (s *Store) SyncUnitStatuses(ctx context.Context, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, "SELECT "+unitCols+" FROM units u ORDER BY u.id")
	if err != nil {
		return 0, fmt.Errorf("failed to load units: %w", err)
	}
	units, err := collect(rows, scanUnit)
	if err != nil {
		return 0, err
	}
	if rows, err = tx.QueryContext(ctx, "SELECT "+tenancyCols+" FROM tenancies t ORDER BY t.id"); err != nil {
		return 0, fmt.Errorf("failed to load tenancies: %w", err)
	}
	tenancies, err := collect(rows, scanTenancy)
	if err != nil {
		return 0, err
	}

	stale := ledger.StaleUnits(units, tenancies, at)
	if len(stale) == 0 {
		return 0, nil
	}
	byID := make(map[ledger.UnitID]ledger.Unit, len(units))
	for _, u := range units {
		byID[u.ID] = u
	}
	for _, id := range stale {
		derived := ledger.DeriveUnitStatus(byID[id], tenancies, at)
		if _, err := tx.ExecContext(ctx, "UPDATE units SET status = ? WHERE id = ?", derived, id); err != nil {
			return 0, fmt.Errorf("failed to update unit %s: %w", id, err)
		}
	}
	if err := bumpVersion(ctx, tx); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(stale), nil
}

func (s *Store) saveProperty(ctx context.Context, db execer, p ledger.Property) error {
	created := p.CreatedAt
	if created.IsZero() {
		created = s.Now()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO properties (id, organization_id, landlord_id, name, address, unit_count, archived, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			organization_id = excluded.organization_id,
			landlord_id = excluded.landlord_id,
			name = excluded.name,
			address = excluded.address,
			unit_count = excluded.unit_count,
			archived = excluded.archived
	`, p.ID, p.OrganizationID, p.LandlordID, p.Name, nullString(p.Address), p.UnitCount, p.Archived, formatTime(created))
	if err != nil {
		return fmt.Errorf("failed to save property %s: %w", p.ID, err)
	}
	return nil
}

func saveUnit(ctx context.Context, db execer, u ledger.Unit) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO units (id, property_id, label, rent_amount, bedrooms, bathrooms, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			property_id = excluded.property_id,
			label = excluded.label,
			rent_amount = excluded.rent_amount,
			bedrooms = excluded.bedrooms,
			bathrooms = excluded.bathrooms,
			status = excluded.status
	`, u.ID, u.PropertyID, nullString(u.Label), u.RentAmount.String(), u.Bedrooms, u.Bathrooms.String(), u.Status)
	if err != nil {
		return fmt.Errorf("failed to save unit %s: %w", u.ID, err)
	}
	return nil
}

func saveTenancy(ctx context.Context, db execer, t ledger.Tenancy) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO tenancies (id, unit_id, tenant_id, start_date, end_date, rent_amount, security_deposit, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			unit_id = excluded.unit_id,
			tenant_id = excluded.tenant_id,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			rent_amount = excluded.rent_amount,
			security_deposit = excluded.security_deposit,
			status = excluded.status
	`, t.ID, t.UnitID, t.TenantID, formatTime(t.StartDate), formatTime(t.EndDate),
		t.RentAmount.String(), t.SecurityDeposit.String(), t.Status)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &ledger.InvariantError{Rule: "single_active_tenancy", RecordID: string(t.UnitID),
				Detail: string(t.ID) + " would be a second active tenancy"}
		}
		return fmt.Errorf("failed to save tenancy %s: %w", t.ID, err)
	}
	return nil
}

func savePayment(ctx context.Context, db execer, p ledger.Payment) error {
	var amount sql.NullString
	if p.Amount.Valid {
		amount = sql.NullString{String: p.Amount.Decimal.String(), Valid: true}
	}
	var paid sql.NullString
	if p.PaidDate != nil {
		paid = nullString(formatTime(*p.PaidDate))
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO payments (id, tenancy_id, amount, payment_type, due_date, paid_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tenancy_id = excluded.tenancy_id,
			amount = excluded.amount,
			payment_type = excluded.payment_type,
			due_date = excluded.due_date,
			paid_date = excluded.paid_date,
			status = excluded.status
	`, p.ID, p.TenancyID, amount, p.Type, formatTime(p.DueDate), paid, p.Status)
	if err != nil {
		return fmt.Errorf("failed to save payment %s: %w", p.ID, err)
	}
	return nil
}

func saveExpense(ctx context.Context, db execer, e ledger.Expense) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO expenses (id, property_id, category, amount, incurred_on, description)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			property_id = excluded.property_id,
			category = excluded.category,
			amount = excluded.amount,
			incurred_on = excluded.incurred_on,
			description = excluded.description
	`, e.ID, e.PropertyID, e.Category, e.Amount.String(), formatTime(e.IncurredOn), nullString(e.Description))
	if err != nil {
		return fmt.Errorf("failed to save expense %s: %w", e.ID, err)
	}
	return nil
}

// syncUnitStatus rewrites a unit's cached status from its tenancies.
func syncUnitStatus(ctx context.Context, tx *sql.Tx, unitID ledger.UnitID, at time.Time) error {
	u, err := scanUnit(tx.QueryRowContext(ctx, "SELECT "+unitCols+" FROM units u WHERE u.id = ?", unitID))
	if err != nil {
		return fmt.Errorf("failed to load unit %s: %w", unitID, err)
	}
	rows, err := tx.QueryContext(ctx, "SELECT "+tenancyCols+" FROM tenancies t WHERE t.unit_id = ?", unitID)
	if err != nil {
		return fmt.Errorf("failed to load tenancies: %w", err)
	}
	tenancies, err := collect(rows, scanTenancy)
	if err != nil {
		return err
	}

	derived := ledger.DeriveUnitStatus(u, tenancies, at)
	if derived == u.Status {
		return nil
	}
	_, err = tx.ExecContext(ctx, "UPDATE units SET status = ? WHERE id = ?", derived, unitID)
	return err
}

// =============================================================================
// READS - ledger.Reader / ledger.VersionReader
// =============================================================================

// Version returns the current write counter.
func (s *Store) Version(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version(ctx)
}

func (s *Store) version(ctx context.Context) (int64, error) {
	var v int64
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM ledger_version WHERE id = 1").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read version: %w", err)
	}
	return v, nil
}

// Snapshot implements ledger.Reader. Rows come back ordered by ID.
func (s *Store) Snapshot(ctx context.Context, scope ledger.Scope, window ledger.Period) (*ledger.Snapshot, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	version, err := s.version(ctx)
	if err != nil {
		return nil, err
	}
	snap := &ledger.Snapshot{
		Scope:   scope,
		Window:  window,
		Version: version,
		TakenAt: s.Now().UTC(),
	}

	q := scopeQueries(scope)
	winArgs := windowArgs(window)

	if snap.Properties, err = query(ctx, s.db, q.properties, q.args, scanProperty); err != nil {
		return nil, err
	}
	if snap.Units, err = query(ctx, s.db, q.units, q.args, scanUnit); err != nil {
		return nil, err
	}
	if snap.Tenancies, err = query(ctx, s.db, q.tenancies, q.args, scanTenancy); err != nil {
		return nil, err
	}
	if snap.Payments, err = query(ctx, s.db, q.payments, append(q.args, winArgs...), scanPayment); err != nil {
		return nil, err
	}
	if q.expenses != "" {
		if snap.Expenses, err = query(ctx, s.db, q.expenses, append(q.args, winArgs...), scanExpense); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// Landlords lists landlords with at least one non-archived property.
func (s *Store) Landlords(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT landlord_id FROM properties WHERE archived = 0 ORDER BY landlord_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query landlords: %w", err)
	}
	return collect(rows, func(r scanner) (string, error) {
		var id string
		err := r.Scan(&id)
		return id, err
	})
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		tables := []string{"payments", "expenses", "tenancies", "units", "properties"}
		for _, table := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return err
			}
		}
		return nil
	})
}

// =============================================================================
// SCOPE QUERIES
// =============================================================================

const (
	propertyCols = "p.id, p.organization_id, p.landlord_id, p.name, p.address, p.unit_count, p.archived, p.created_at"
	unitCols     = "u.id, u.property_id, u.label, u.rent_amount, u.bedrooms, u.bathrooms, u.status"
	tenancyCols  = "t.id, t.unit_id, t.tenant_id, t.start_date, t.end_date, t.rent_amount, t.security_deposit, t.status"
	paymentCols  = "pay.id, pay.tenancy_id, pay.amount, pay.payment_type, pay.due_date, pay.paid_date, pay.status"
	expenseCols  = "e.id, e.property_id, e.category, e.amount, e.incurred_on, e.description"

	paymentWindow = " AND (? = '' OR pay.due_date >= ?) AND (? = '' OR pay.due_date < ?)"
	expenseWindow = " AND (? = '' OR e.incurred_on >= ?) AND (? = '' OR e.incurred_on < ?)"
)

type scopedQueries struct {
	properties, units, tenancies, payments, expenses string
	args                                             []any
}

// scopeQueries builds one query per table sharing the same filter arguments.
// Archived properties are hidden from every scope. Tenants never see expenses.
func scopeQueries(scope ledger.Scope) scopedQueries {
	pid := string(scope.PropertyID)

	if scope.Kind == ledger.ScopeTenant {
		where := " WHERE p.archived = 0 AND t.tenant_id = ? AND (? = '' OR u.property_id = ?)"
		return scopedQueries{
			properties: "SELECT DISTINCT " + propertyCols + " FROM properties p" +
				" JOIN units u ON u.property_id = p.id JOIN tenancies t ON t.unit_id = u.id" + where + " ORDER BY p.id",
			units: "SELECT DISTINCT " + unitCols + " FROM units u" +
				" JOIN tenancies t ON t.unit_id = u.id JOIN properties p ON p.id = u.property_id" + where + " ORDER BY u.id",
			tenancies: "SELECT " + tenancyCols + " FROM tenancies t" +
				" JOIN units u ON u.id = t.unit_id JOIN properties p ON p.id = u.property_id" + where + " ORDER BY t.id",
			payments: "SELECT " + paymentCols + " FROM payments pay" +
				" JOIN tenancies t ON t.id = pay.tenancy_id JOIN units u ON u.id = t.unit_id" +
				" JOIN properties p ON p.id = u.property_id" + where + paymentWindow + " ORDER BY pay.id",
			args: []any{scope.ID, pid, pid},
		}
	}

	owner := "p.landlord_id"
	if scope.Kind == ledger.ScopeOrganization {
		owner = "p.organization_id"
	}
	where := " WHERE p.archived = 0 AND " + owner + " = ? AND (? = '' OR p.id = ?)"
	return scopedQueries{
		properties: "SELECT " + propertyCols + " FROM properties p" + where + " ORDER BY p.id",
		units: "SELECT " + unitCols + " FROM units u" +
			" JOIN properties p ON p.id = u.property_id" + where + " ORDER BY u.id",
		tenancies: "SELECT " + tenancyCols + " FROM tenancies t" +
			" JOIN units u ON u.id = t.unit_id JOIN properties p ON p.id = u.property_id" + where + " ORDER BY t.id",
		payments: "SELECT " + paymentCols + " FROM payments pay" +
			" JOIN tenancies t ON t.id = pay.tenancy_id JOIN units u ON u.id = t.unit_id" +
			" JOIN properties p ON p.id = u.property_id" + where + paymentWindow + " ORDER BY pay.id",
		expenses: "SELECT " + expenseCols + " FROM expenses e" +
			" JOIN properties p ON p.id = e.property_id" + where + expenseWindow + " ORDER BY e.id",
		args: []any{scope.ID, pid, pid},
	}
}

func windowArgs(w ledger.Period) []any {
	var start, end string
	if !w.Start.IsZero() {
		start = formatTime(w.Start)
	}
	if !w.End.IsZero() {
		end = formatTime(w.End)
	}
	return []any{start, start, end, end}
}

// =============================================================================
// SCANNING
// =============================================================================

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func query[T any](ctx context.Context, db *sql.DB, q string, args []any, scan func(scanner) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	return collect(rows, scan)
}

func collect[T any](rows *sql.Rows, scan func(scanner) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanProperty(r scanner) (ledger.Property, error) {
	var (
		p       ledger.Property
		address sql.NullString
		created string
	)
	if err := r.Scan(&p.ID, &p.OrganizationID, &p.LandlordID, &p.Name, &address, &p.UnitCount, &p.Archived, &created); err != nil {
		return p, fmt.Errorf("failed to scan property: %w", err)
	}
	p.Address = address.String
	var err error
	if p.CreatedAt, err = parseTime(created); err != nil {
		return p, fmt.Errorf("property %s: created_at: %w", p.ID, err)
	}
	return p, nil
}

func scanUnit(r scanner) (ledger.Unit, error) {
	var (
		u               ledger.Unit
		label           sql.NullString
		rent, bathrooms string
	)
	if err := r.Scan(&u.ID, &u.PropertyID, &label, &rent, &u.Bedrooms, &bathrooms, &u.Status); err != nil {
		return u, fmt.Errorf("failed to scan unit: %w", err)
	}
	u.Label = label.String
	var err error
	if u.RentAmount, err = decimal.NewFromString(rent); err != nil {
		return u, fmt.Errorf("unit %s: rent_amount: %w", u.ID, err)
	}
	if u.Bathrooms, err = decimal.NewFromString(bathrooms); err != nil {
		return u, fmt.Errorf("unit %s: bathrooms: %w", u.ID, err)
	}
	return u, nil
}

func scanTenancy(r scanner) (ledger.Tenancy, error) {
	var (
		t             ledger.Tenancy
		start, end    string
		rent, deposit string
	)
	if err := r.Scan(&t.ID, &t.UnitID, &t.TenantID, &start, &end, &rent, &deposit, &t.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, err
		}
		return t, fmt.Errorf("failed to scan tenancy: %w", err)
	}
	var err error
	if t.StartDate, err = parseTime(start); err != nil {
		return t, fmt.Errorf("tenancy %s: start_date: %w", t.ID, err)
	}
	if t.EndDate, err = parseTime(end); err != nil {
		return t, fmt.Errorf("tenancy %s: end_date: %w", t.ID, err)
	}
	if t.RentAmount, err = decimal.NewFromString(rent); err != nil {
		return t, fmt.Errorf("tenancy %s: rent_amount: %w", t.ID, err)
	}
	if t.SecurityDeposit, err = decimal.NewFromString(deposit); err != nil {
		return t, fmt.Errorf("tenancy %s: security_deposit: %w", t.ID, err)
	}
	return t, nil
}

func scanPayment(r scanner) (ledger.Payment, error) {
	var (
		p            ledger.Payment
		amount, paid sql.NullString
		due          string
	)
	if err := r.Scan(&p.ID, &p.TenancyID, &amount, &p.Type, &due, &paid, &p.Status); err != nil {
		return p, fmt.Errorf("failed to scan payment: %w", err)
	}
	var err error
	if p.DueDate, err = parseTime(due); err != nil {
		return p, fmt.Errorf("payment %s: due_date: %w", p.ID, err)
	}
	if amount.Valid {
		d, err := decimal.NewFromString(amount.String)
		if err != nil {
			return p, fmt.Errorf("payment %s: amount: %w", p.ID, err)
		}
		p.Amount = ledger.NewMoney(d)
	}
	if paid.Valid {
		t, err := parseTime(paid.String)
		if err != nil {
			return p, fmt.Errorf("payment %s: paid_date: %w", p.ID, err)
		}
		p.PaidDate = &t
	}
	return p, nil
}

func scanExpense(r scanner) (ledger.Expense, error) {
	var (
		e           ledger.Expense
		amount      string
		incurred    string
		description sql.NullString
	)
	if err := r.Scan(&e.ID, &e.PropertyID, &e.Category, &amount, &incurred, &description); err != nil {
		return e, fmt.Errorf("failed to scan expense: %w", err)
	}
	var err error
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return e, fmt.Errorf("expense %s: amount: %w", e.ID, err)
	}
	if e.IncurredOn, err = parseTime(incurred); err != nil {
		return e, fmt.Errorf("expense %s: incurred_on: %w", e.ID, err)
	}
	e.Description = description.String
	return e, nil
}

// Helper functions

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
