/*
Package sqlite provides a SQLite-backed implementation of service.Store.

PURPOSE:
  Persists contract data only: quotas, correction index observations,
  payment overrides, credit usages, administrators and companies.
  Schedules are derived data and are never stored.

KEY TABLES:
  quotas:             contract terms, UNIQUE(group_code, quota_number)
  correction_indices: monthly rates, UNIQUE(type, month)
  payments:           overrides, PRIMARY KEY(quota_id, installment_number)
  credit_usages:      draws against a quota's credit
  administrators:     group managers
  companies:          quota holders

REFERENTIAL RULES:
  - payments and credit_usages cascade when their quota is deleted
  - quotas.administrator_id / company_id are set to NULL when the
    referenced row is deleted

ENCODING:
  Decimals are TEXT (exact, via shopspring/decimal's Scanner/Valuer).
  Dates are TEXT "YYYY-MM-DD"; NULL means "not set".

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. ":memory:" databases are limited to
  a single connection so every query sees the same database.

USAGE:
  store, err := sqlite.New("./data/consorcio.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - service/store.go: Interface definitions
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/consorcio/calendar"
	"github.com/warp/consorcio/consortium"
)

// Store implements service.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
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

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Administrators and companies
	CREATE TABLE IF NOT EXISTS administrators (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT,
		email TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS companies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT,
		email TEXT,
		created_at TEXT NOT NULL
	);

	-- Quotas (contract terms)
	CREATE TABLE IF NOT EXISTS quotas (
		id TEXT PRIMARY KEY,
		group_code TEXT NOT NULL,
		quota_number TEXT NOT NULL,
		contract_number TEXT,
		credit_value TEXT NOT NULL,
		adhesion_date TEXT,
		first_assembly_date TEXT,
		term_months INTEGER NOT NULL,
		admin_fee_rate TEXT NOT NULL,
		reserve_fund_rate TEXT NOT NULL,
		product_type TEXT,
		first_due_date TEXT,
		due_day INTEGER NOT NULL DEFAULT 25,
		correction_index TEXT NOT NULL,
		payment_plan TEXT NOT NULL DEFAULT 'NORMAL',
		administrator_id TEXT REFERENCES administrators(id) ON DELETE SET NULL,
		company_id TEXT REFERENCES companies(id) ON DELETE SET NULL,
		is_contemplated BOOLEAN NOT NULL DEFAULT FALSE,
		contemplation_date TEXT,
		bid_free TEXT NOT NULL DEFAULT '0',
		bid_embedded TEXT NOT NULL DEFAULT '0',
		bid_total TEXT NOT NULL DEFAULT '0',
		bid_base TEXT NOT NULL DEFAULT 'CREDITO',
		credit_manual_adjustment TEXT NOT NULL DEFAULT '0',
		bid_free_correction TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(group_code, quota_number)
	);

	CREATE INDEX IF NOT EXISTS idx_quotas_company ON quotas(company_id);

	-- Correction indices (one rate per type and month)
	CREATE TABLE IF NOT EXISTS correction_indices (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		month TEXT NOT NULL,
		rate TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(type, month)
	);

	-- Payment overrides
	CREATE TABLE IF NOT EXISTS payments (
		quota_id TEXT NOT NULL REFERENCES quotas(id) ON DELETE CASCADE,
		installment_number INTEGER NOT NULL,
		amount_paid TEXT,
		manual_fc TEXT,
		manual_fr TEXT,
		manual_ta TEXT,
		manual_fine TEXT,
		manual_interest TEXT,
		paid_at TEXT,
		PRIMARY KEY (quota_id, installment_number)
	);

	-- Credit usages
	CREATE TABLE IF NOT EXISTS credit_usages (
		id TEXT PRIMARY KEY,
		quota_id TEXT NOT NULL REFERENCES quotas(id) ON DELETE CASCADE,
		description TEXT,
		date TEXT NOT NULL,
		amount TEXT NOT NULL,
		seller TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_credit_usages_quota ON credit_usages(quota_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// QUOTA STORE
// =============================================================================

const quotaColumns = `id, group_code, quota_number, contract_number, credit_value, adhesion_date,
	first_assembly_date, term_months, admin_fee_rate, reserve_fund_rate, product_type, first_due_date,
	due_day, correction_index, payment_plan, administrator_id, company_id, is_contemplated,
	contemplation_date, bid_free, bid_embedded, bid_total, bid_base, credit_manual_adjustment,
	bid_free_correction`

// SaveQuota inserts or replaces a quota.
func (s *Store) SaveQuota(ctx context.Context, q consortium.Quota) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO quotas (` + quotaColumns + `, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			group_code = excluded.group_code,
			quota_number = excluded.quota_number,
			contract_number = excluded.contract_number,
			credit_value = excluded.credit_value,
			adhesion_date = excluded.adhesion_date,
			first_assembly_date = excluded.first_assembly_date,
			term_months = excluded.term_months,
			admin_fee_rate = excluded.admin_fee_rate,
			reserve_fund_rate = excluded.reserve_fund_rate,
			product_type = excluded.product_type,
			first_due_date = excluded.first_due_date,
			due_day = excluded.due_day,
			correction_index = excluded.correction_index,
			payment_plan = excluded.payment_plan,
			administrator_id = excluded.administrator_id,
			company_id = excluded.company_id,
			is_contemplated = excluded.is_contemplated,
			contemplation_date = excluded.contemplation_date,
			bid_free = excluded.bid_free,
			bid_embedded = excluded.bid_embedded,
			bid_total = excluded.bid_total,
			bid_base = excluded.bid_base,
			credit_manual_adjustment = excluded.credit_manual_adjustment,
			bid_free_correction = excluded.bid_free_correction,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		q.ID, q.Group, q.QuotaNumber, nullString(q.ContractNumber), q.CreditValue,
		nullDate(q.AdhesionDate), nullDate(q.FirstAssemblyDate), q.TermMonths,
		q.AdminFeeRate, q.ReserveFundRate, nullString(string(q.ProductType)), nullDate(q.FirstDueDate),
		q.DueDay, string(q.CorrectionIndex), string(q.PaymentPlan),
		nullString(q.AdministratorID), nullString(q.CompanyID), q.IsContemplated,
		nullDate(q.ContemplationDate), q.BidFree, q.BidEmbedded, q.BidTotal, string(q.BidBase),
		q.CreditManualAdjustment, q.BidFreeCorrection,
		now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			dup := &consortium.DuplicateQuotaError{Group: q.Group, QuotaNumber: q.QuotaNumber}
			_ = s.db.QueryRowContext(ctx,
				"SELECT id FROM quotas WHERE group_code = ? AND quota_number = ?",
				q.Group, q.QuotaNumber,
			).Scan(&dup.ExistingID)
			return dup
		}
		if isForeignKeyError(err) {
			return &consortium.ValidationError{Field: "administrator_id/company_id", Message: "references an unknown record"}
		}
		return fmt.Errorf("failed to save quota: %w", err)
	}
	return nil
}

// GetQuota retrieves a quota by ID.
func (s *Store) GetQuota(ctx context.Context, id string) (*consortium.Quota, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+quotaColumns+" FROM quotas WHERE id = ?", id)
	q, err := scanQuota(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// FindQuota retrieves a quota by its group and quota number.
func (s *Store) FindQuota(ctx context.Context, group, quotaNumber string) (*consortium.Quota, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+quotaColumns+" FROM quotas WHERE group_code = ? AND quota_number = ?",
		group, quotaNumber,
	)
	q, err := scanQuota(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// ListQuotas returns all quotas ordered by group and quota number.
func (s *Store) ListQuotas(ctx context.Context) ([]consortium.Quota, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+quotaColumns+" FROM quotas ORDER BY group_code, quota_number")
	if err != nil {
		return nil, fmt.Errorf("failed to query quotas: %w", err)
	}
	defer rows.Close()

	var quotas []consortium.Quota
	for rows.Next() {
		q, err := scanQuota(rows)
		if err != nil {
			return nil, err
		}
		quotas = append(quotas, q)
	}
	return quotas, rows.Err()
}

// DeleteQuota removes a quota. Payments and credit usages cascade.
func (s *Store) DeleteQuota(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM quotas WHERE id = ?", id)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuota(row scanner) (consortium.Quota, error) {
	var (
		q                                          consortium.Quota
		contractNumber, productType                sql.NullString
		adminID, companyID                         sql.NullString
		adhesion, firstAssembly, firstDue, contDay sql.NullString
		correctionIndex, paymentPlan, bidBase      string
	)

	err := row.Scan(
		&q.ID, &q.Group, &q.QuotaNumber, &contractNumber, &q.CreditValue, &adhesion,
		&firstAssembly, &q.TermMonths, &q.AdminFeeRate, &q.ReserveFundRate, &productType, &firstDue,
		&q.DueDay, &correctionIndex, &paymentPlan, &adminID, &companyID, &q.IsContemplated,
		&contDay, &q.BidFree, &q.BidEmbedded, &q.BidTotal, &bidBase, &q.CreditManualAdjustment,
		&q.BidFreeCorrection,
	)
	if err != nil {
		return q, err
	}

	q.ContractNumber = contractNumber.String
	q.ProductType = consortium.ProductType(productType.String)
	q.AdministratorID = adminID.String
	q.CompanyID = companyID.String
	q.CorrectionIndex = consortium.IndexType(correctionIndex)
	q.PaymentPlan = consortium.PaymentPlan(paymentPlan)
	q.BidBase = consortium.BidBase(bidBase)
	q.AdhesionDate = parseDate(adhesion)
	q.FirstAssemblyDate = parseDate(firstAssembly)
	q.FirstDueDate = parseDate(firstDue)
	q.ContemplationDate = parseDate(contDay)
	return q, nil
}

// =============================================================================
// INDEX STORE
// =============================================================================

// SaveIndex inserts or replaces an index observation.
func (s *Store) SaveIndex(ctx context.Context, m consortium.MonthlyIndex) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.Month = calendar.StartOfMonth(m.Month)
	query := `
		INSERT INTO correction_indices (id, type, month, rate, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			month = excluded.month,
			rate = excluded.rate
	`
	_, err := s.db.ExecContext(ctx, query,
		m.ID, string(m.Type), calendar.Format(m.Month), m.Rate,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &consortium.DuplicateIndexError{Type: m.Type, Month: m.Month}
		}
		return fmt.Errorf("failed to save index: %w", err)
	}
	return nil
}

// GetIndex retrieves an index observation by ID.
func (s *Store) GetIndex(ctx context.Context, id string) (*consortium.MonthlyIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		m     consortium.MonthlyIndex
		typ   string
		month sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, type, month, rate FROM correction_indices WHERE id = ?", id,
	).Scan(&m.ID, &typ, &month, &m.Rate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.Type = consortium.IndexType(typ)
	m.Month = parseDate(month)
	return &m, nil
}

// ListIndices returns all observations, newest month first.
func (s *Store) ListIndices(ctx context.Context) ([]consortium.MonthlyIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, type, month, rate FROM correction_indices ORDER BY month DESC, type",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query indices: %w", err)
	}
	defer rows.Close()

	var out []consortium.MonthlyIndex
	for rows.Next() {
		var (
			m     consortium.MonthlyIndex
			typ   string
			month sql.NullString
		)
		if err := rows.Scan(&m.ID, &typ, &month, &m.Rate); err != nil {
			return nil, err
		}
		m.Type = consortium.IndexType(typ)
		m.Month = parseDate(month)
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteIndex removes an index observation.
func (s *Store) DeleteIndex(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM correction_indices WHERE id = ?", id)
	return err
}

// =============================================================================
// PAYMENT STORE
// =============================================================================

// SavePayment inserts or replaces the override of one installment.
func (s *Store) SavePayment(ctx context.Context, p consortium.PaymentOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO payments (quota_id, installment_number, amount_paid, manual_fc, manual_fr,
			manual_ta, manual_fine, manual_interest, paid_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(quota_id, installment_number) DO UPDATE SET
			amount_paid = excluded.amount_paid,
			manual_fc = excluded.manual_fc,
			manual_fr = excluded.manual_fr,
			manual_ta = excluded.manual_ta,
			manual_fine = excluded.manual_fine,
			manual_interest = excluded.manual_interest,
			paid_at = excluded.paid_at
	`
	paidAt := sql.NullString{}
	if !p.PaidAt.IsZero() {
		paidAt = sql.NullString{String: p.PaidAt.UTC().Format(time.RFC3339), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, query,
		p.QuotaID, p.InstallmentNumber, p.AmountPaid, p.FC, p.FR, p.TA, p.Fine, p.Interest, paidAt,
	)
	if err != nil {
		if isForeignKeyError(err) {
			return consortium.ErrQuotaNotFound
		}
		return fmt.Errorf("failed to save payment: %w", err)
	}
	return nil
}

const paymentColumns = `quota_id, installment_number, amount_paid, manual_fc, manual_fr,
	manual_ta, manual_fine, manual_interest, paid_at`

// GetPayments returns the overrides of one quota.
func (s *Store) GetPayments(ctx context.Context, quotaID string) (consortium.Overrides, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := s.queryPayments(ctx, "SELECT "+paymentColumns+" FROM payments WHERE quota_id = ?", quotaID)
	if err != nil {
		return nil, err
	}
	if overrides, ok := all[quotaID]; ok {
		return overrides, nil
	}
	return consortium.Overrides{}, nil
}

// ListAllPayments returns every override keyed by quota ID.
func (s *Store) ListAllPayments(ctx context.Context) (map[string]consortium.Overrides, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPayments(ctx, "SELECT "+paymentColumns+" FROM payments")
}

func (s *Store) queryPayments(ctx context.Context, query string, args ...any) (map[string]consortium.Overrides, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	out := map[string]consortium.Overrides{}
	for rows.Next() {
		var (
			p      consortium.PaymentOverride
			paidAt sql.NullString
		)
		if err := rows.Scan(&p.QuotaID, &p.InstallmentNumber, &p.AmountPaid, &p.FC, &p.FR,
			&p.TA, &p.Fine, &p.Interest, &paidAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		if paidAt.Valid {
			p.PaidAt, _ = time.Parse(time.RFC3339, paidAt.String)
		}
		if out[p.QuotaID] == nil {
			out[p.QuotaID] = consortium.Overrides{}
		}
		out[p.QuotaID][p.InstallmentNumber] = p
	}
	return out, rows.Err()
}

// DeletePayment removes the override of one installment.
func (s *Store) DeletePayment(ctx context.Context, quotaID string, installment int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM payments WHERE quota_id = ? AND installment_number = ?",
		quotaID, installment,
	)
	return err
}

// =============================================================================
// CREDIT USAGE STORE
// =============================================================================

// SaveCreditUsage inserts or replaces a credit usage.
func (s *Store) SaveCreditUsage(ctx context.Context, u consortium.CreditUsage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO credit_usages (id, quota_id, description, date, amount, seller, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			date = excluded.date,
			amount = excluded.amount,
			seller = excluded.seller
	`
	_, err := s.db.ExecContext(ctx, query,
		u.ID, u.QuotaID, nullString(u.Description), calendar.Format(u.Date), u.Amount,
		nullString(u.Seller), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return consortium.ErrQuotaNotFound
		}
		return fmt.Errorf("failed to save credit usage: %w", err)
	}
	return nil
}

const usageColumns = "id, quota_id, description, date, amount, seller"

// GetCreditUsage retrieves a credit usage by ID.
func (s *Store) GetCreditUsage(ctx context.Context, id string) (*consortium.CreditUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, err := scanUsage(s.db.QueryRowContext(ctx, "SELECT "+usageColumns+" FROM credit_usages WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListCreditUsages returns the usages of a quota (all when quotaID is
// empty), newest first.
func (s *Store) ListCreditUsages(ctx context.Context, quotaID string) ([]consortium.CreditUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + usageColumns + " FROM credit_usages"
	var args []any
	if quotaID != "" {
		query += " WHERE quota_id = ?"
		args = append(args, quotaID)
	}
	query += " ORDER BY date DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query credit usages: %w", err)
	}
	defer rows.Close()

	var out []consortium.CreditUsage
	for rows.Next() {
		u, err := scanUsage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// DeleteCreditUsage removes a credit usage.
func (s *Store) DeleteCreditUsage(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM credit_usages WHERE id = ?", id)
	return err
}

func scanUsage(row scanner) (consortium.CreditUsage, error) {
	var (
		u                   consortium.CreditUsage
		description, seller sql.NullString
		date                sql.NullString
	)
	if err := row.Scan(&u.ID, &u.QuotaID, &description, &date, &u.Amount, &seller); err != nil {
		return u, err
	}
	u.Description = description.String
	u.Seller = seller.String
	u.Date = parseDate(date)
	return u, nil
}

// =============================================================================
// DIRECTORY STORE (administrators, companies)
// =============================================================================

// SaveAdministrator inserts or replaces an administrator.
func (s *Store) SaveAdministrator(ctx context.Context, a consortium.Administrator) error {
	return s.saveContact(ctx, "administrators", a.ID, a.Name, a.Phone, a.Email)
}

// ListAdministrators returns all administrators ordered by name.
func (s *Store) ListAdministrators(ctx context.Context) ([]consortium.Administrator, error) {
	var out []consortium.Administrator
	err := s.listContacts(ctx, "administrators", func(id, name, phone, email string) {
		out = append(out, consortium.Administrator{ID: id, Name: name, Phone: phone, Email: email})
	})
	return out, err
}

// DeleteAdministrator removes an administrator; quotas referencing it keep
// existing with no administrator.
func (s *Store) DeleteAdministrator(ctx context.Context, id string) error {
	return s.deleteContact(ctx, "administrators", id)
}

// SaveCompany inserts or replaces a company.
func (s *Store) SaveCompany(ctx context.Context, c consortium.Company) error {
	return s.saveContact(ctx, "companies", c.ID, c.Name, c.Phone, c.Email)
}

// ListCompanies returns all companies ordered by name.
func (s *Store) ListCompanies(ctx context.Context) ([]consortium.Company, error) {
	var out []consortium.Company
	err := s.listContacts(ctx, "companies", func(id, name, phone, email string) {
		out = append(out, consortium.Company{ID: id, Name: name, Phone: phone, Email: email})
	})
	return out, err
}

// DeleteCompany removes a company; quotas referencing it keep existing with
// no company.
func (s *Store) DeleteCompany(ctx context.Context, id string) error {
	return s.deleteContact(ctx, "companies", id)
}

// table is always one of the two constant names above.
func (s *Store) saveContact(ctx context.Context, table, id, name, phone, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO ` + table + ` (id, name, phone, email, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			email = excluded.email
	`
	_, err := s.db.ExecContext(ctx, query,
		id, name, nullString(phone), nullString(email), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", table, err)
	}
	return nil
}

func (s *Store) listContacts(ctx context.Context, table string, fn func(id, name, phone, email string)) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, phone, email FROM "+table+" ORDER BY name COLLATE NOCASE")
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, name     string
			phone, email sql.NullString
		)
		if err := rows.Scan(&id, &name, &phone, &email); err != nil {
			return err
		}
		fn(id, name, phone.String, email.String)
	}
	return rows.Err()
}

func (s *Store) deleteContact(ctx context.Context, table, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	return err
}

// Reset deletes all data (for testing/demo purposes).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM payments;
		DELETE FROM credit_usages;
		DELETE FROM quotas;
		DELETE FROM correction_indices;
		DELETE FROM administrators;
		DELETE FROM companies;
	`)
	return err
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(t time.Time) sql.NullString {
	return nullString(calendar.Format(t))
}

func parseDate(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := calendar.ParseDate(s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
