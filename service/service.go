/*
Package service orchestrates the consortium engine over a Store.

PURPOSE:
  Every read of a schedule follows the same path: load the quota, the full
  index table and the quota's payment overrides, generate the theoretical
  schedule, then merge. Every write is followed by that same path when the
  caller needs the result. There is no incremental update model.

CONCURRENCY:
  The engine is pure; the service holds no mutable state besides the
  store. Concurrent writes to the same override are last-write-wins.

KEY OPERATIONS:
  Quotas:   CreateQuota, UpdateQuota, GetQuota, ListQuotas, DeleteQuota
  Schedule: Schedule, RecordPayment, ClearPayment, CurrentCreditValue
  Indices:  CreateIndex, UpdateIndex, ListIndices, DeleteIndex
  Credit:   AddCreditUsage, ListCreditUsages, DeleteCreditUsage
  Reports:  Dashboard, CreditAvailability, MonthlyPaid, CreditUsageReport
  Cache:    RefreshBidCorrections

SEE ALSO:
  - store.go: persistence interface
  - schedule/generator.go, schedule/merge.go: the engine
  - api/handlers.go: HTTP surface
*/
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/consorcio/calendar"
	"github.com/warp/consorcio/consortium"
	"github.com/warp/consorcio/correction"
	"github.com/warp/consorcio/schedule"
)

// Service is the application layer over a Store.
type Service struct {
	store     Store
	generator *schedule.Generator
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the system clock, for the generator too.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces uuid-based IDs.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// New creates a service. A nil logger discards logs.
func New(store Store, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.generator = &schedule.Generator{Now: s.now, Logger: logger.Named("schedule")}
	return s
}

// Today returns the service's current calendar day.
func (s *Service) Today() time.Time {
	return calendar.Truncate(s.now())
}

// =============================================================================
// QUOTAS
// =============================================================================

// CreateQuota validates and stores a new quota.
func (s *Service) CreateQuota(ctx context.Context, q consortium.Quota) (consortium.Quota, error) {
	q.ID = s.newID()
	return s.saveQuota(ctx, q)
}

// UpdateQuota replaces the terms of an existing quota.
func (s *Service) UpdateQuota(ctx context.Context, id string, q consortium.Quota) (consortium.Quota, error) {
	if _, err := s.GetQuota(ctx, id); err != nil {
		return consortium.Quota{}, err
	}
	q.ID = id
	return s.saveQuota(ctx, q)
}

func (s *Service) saveQuota(ctx context.Context, q consortium.Quota) (consortium.Quota, error) {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return consortium.Quota{}, err
	}

	existing, err := s.store.FindQuota(ctx, q.Group, q.QuotaNumber)
	if err != nil {
		return consortium.Quota{}, fmt.Errorf("find quota: %w", err)
	}
	if existing != nil && existing.ID != q.ID {
		return consortium.Quota{}, &consortium.DuplicateQuotaError{
			Group:       q.Group,
			QuotaNumber: q.QuotaNumber,
			ExistingID:  existing.ID,
		}
	}

	if err := s.checkReferences(ctx, q); err != nil {
		return consortium.Quota{}, err
	}

	table, err := s.indexTable(ctx)
	if err != nil {
		return consortium.Quota{}, err
	}
	q.BidFreeCorrection = s.bidFreeCorrection(q, table)

	if err := s.store.SaveQuota(ctx, q); err != nil {
		return consortium.Quota{}, err
	}
	s.logger.Info("quota saved",
		zap.String("op", "service.saveQuota"),
		zap.String("quota_id", q.ID),
		zap.String("quota", q.Key()))
	return q, nil
}

// checkReferences rejects administrator or company IDs that don't exist.
func (s *Service) checkReferences(ctx context.Context, q consortium.Quota) error {
	if q.AdministratorID != "" {
		admins, err := s.store.ListAdministrators(ctx)
		if err != nil {
			return fmt.Errorf("list administrators: %w", err)
		}
		found := false
		for _, a := range admins {
			found = found || a.ID == q.AdministratorID
		}
		if !found {
			return &consortium.ValidationError{Field: "administrator_id", Message: "unknown administrator"}
		}
	}
	if q.CompanyID != "" {
		companies, err := s.store.ListCompanies(ctx)
		if err != nil {
			return fmt.Errorf("list companies: %w", err)
		}
		found := false
		for _, c := range companies {
			found = found || c.ID == q.CompanyID
		}
		if !found {
			return &consortium.ValidationError{Field: "company_id", Message: "unknown company"}
		}
	}
	return nil
}

// GetQuota returns a quota or ErrQuotaNotFound.
func (s *Service) GetQuota(ctx context.Context, id string) (consortium.Quota, error) {
	q, err := s.store.GetQuota(ctx, id)
	if err != nil {
		return consortium.Quota{}, fmt.Errorf("get quota: %w", err)
	}
	if q == nil {
		return consortium.Quota{}, consortium.ErrQuotaNotFound
	}
	return *q, nil
}

// ListQuotas returns every quota.
func (s *Service) ListQuotas(ctx context.Context) ([]consortium.Quota, error) {
	return s.store.ListQuotas(ctx)
}

// DeleteQuota removes a quota with its payments and credit usages.
func (s *Service) DeleteQuota(ctx context.Context, id string) error {
	if _, err := s.GetQuota(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteQuota(ctx, id); err != nil {
		return fmt.Errorf("delete quota: %w", err)
	}
	s.logger.Info("quota deleted", zap.String("op", "service.DeleteQuota"), zap.String("quota_id", id))
	return nil
}

// =============================================================================
// SCHEDULE
// =============================================================================

// Schedule returns the quota's schedule with its recorded payments merged.
func (s *Service) Schedule(ctx context.Context, id string) ([]consortium.Installment, error) {
	q, err := s.GetQuota(ctx, id)
	if err != nil {
		return nil, err
	}
	table, err := s.indexTable(ctx)
	if err != nil {
		return nil, err
	}
	overrides, err := s.store.GetPayments(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get payments: %w", err)
	}
	return s.mergedSchedule(q, table, overrides)
}

func (s *Service) mergedSchedule(q consortium.Quota, table *correction.Table, overrides consortium.Overrides) ([]consortium.Installment, error) {
	rows, err := s.generator.Generate(q, table)
	if err != nil {
		return nil, err
	}
	return schedule.Merge(rows, overrides), nil
}

// RecordPayment writes the set fields of patch over installment n's
// override (creating it if needed) and returns the regenerated schedule.
func (s *Service) RecordPayment(ctx context.Context, id string, n int, patch consortium.PaymentPatch) ([]consortium.Installment, error) {
	q, err := s.GetQuota(ctx, id)
	if err != nil {
		return nil, err
	}
	if n < 1 || n > q.TermMonths {
		return nil, consortium.ErrInstallmentNotFound
	}

	overrides, err := s.store.GetPayments(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get payments: %w", err)
	}
	current, ok := overrides[n]
	if !ok {
		current = consortium.PaymentOverride{QuotaID: id, InstallmentNumber: n}
	}
	current = current.Apply(patch)
	current.PaidAt = s.now().UTC()

	if err := s.store.SavePayment(ctx, current); err != nil {
		return nil, fmt.Errorf("save payment: %w", err)
	}
	s.logger.Info("payment recorded",
		zap.String("op", "service.RecordPayment"),
		zap.String("quota_id", id),
		zap.Int("installment", n))

	return s.Schedule(ctx, id)
}

// ClearPayment removes installment n's override, marking it unpaid again,
// and returns the regenerated schedule.
func (s *Service) ClearPayment(ctx context.Context, id string, n int) ([]consortium.Installment, error) {
	q, err := s.GetQuota(ctx, id)
	if err != nil {
		return nil, err
	}
	if n < 1 || n > q.TermMonths {
		return nil, consortium.ErrInstallmentNotFound
	}
	if err := s.store.DeletePayment(ctx, id, n); err != nil {
		return nil, fmt.Errorf("delete payment: %w", err)
	}
	s.logger.Info("payment cleared",
		zap.String("op", "service.ClearPayment"),
		zap.String("quota_id", id),
		zap.Int("installment", n))
	return s.Schedule(ctx, id)
}

// CurrentCreditValue returns the quota's corrected credit value at the
// given date (zero means today).
func (s *Service) CurrentCreditValue(ctx context.Context, id string, at time.Time) (decimal.Decimal, error) {
	q, err := s.GetQuota(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	table, err := s.indexTable(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if at.IsZero() {
		at = s.Today()
	}
	return correction.CurrentCreditValue(q, table, at), nil
}

// =============================================================================
// INDICES
// =============================================================================

// CreateIndex stores a new index observation.
func (s *Service) CreateIndex(ctx context.Context, m consortium.MonthlyIndex) (consortium.MonthlyIndex, error) {
	m.ID = s.newID()
	return s.saveIndex(ctx, m)
}

// UpdateIndex replaces an existing index observation.
func (s *Service) UpdateIndex(ctx context.Context, id string, m consortium.MonthlyIndex) (consortium.MonthlyIndex, error) {
	existing, err := s.store.GetIndex(ctx, id)
	if err != nil {
		return consortium.MonthlyIndex{}, fmt.Errorf("get index: %w", err)
	}
	if existing == nil {
		return consortium.MonthlyIndex{}, consortium.ErrIndexNotFound
	}
	m.ID = id
	return s.saveIndex(ctx, m)
}

func (s *Service) saveIndex(ctx context.Context, m consortium.MonthlyIndex) (consortium.MonthlyIndex, error) {
	if err := m.Validate(); err != nil {
		return consortium.MonthlyIndex{}, err
	}
	m.Month = calendar.StartOfMonth(m.Month)
	if err := s.store.SaveIndex(ctx, m); err != nil {
		return consortium.MonthlyIndex{}, err
	}
	s.logger.Info("index saved",
		zap.String("op", "service.saveIndex"),
		zap.String("index", string(m.Type)),
		zap.String("month", calendar.MonthKey(m.Month)),
		zap.String("rate", m.Rate.String()))
	return m, nil
}

// ListIndices returns every observation, newest month first.
func (s *Service) ListIndices(ctx context.Context) ([]consortium.MonthlyIndex, error) {
	return s.store.ListIndices(ctx)
}

// DeleteIndex removes an observation.
func (s *Service) DeleteIndex(ctx context.Context, id string) error {
	existing, err := s.store.GetIndex(ctx, id)
	if err != nil {
		return fmt.Errorf("get index: %w", err)
	}
	if existing == nil {
		return consortium.ErrIndexNotFound
	}
	return s.store.DeleteIndex(ctx, id)
}

func (s *Service) indexTable(ctx context.Context) (*correction.Table, error) {
	rows, err := s.store.ListIndices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indices: %w", err)
	}
	return correction.NewTable(rows), nil
}

// =============================================================================
// CREDIT USAGES
// =============================================================================

// AddCreditUsage records a draw against a quota's credit.
func (s *Service) AddCreditUsage(ctx context.Context, quotaID string, u consortium.CreditUsage) (consortium.CreditUsage, error) {
	if _, err := s.GetQuota(ctx, quotaID); err != nil {
		return consortium.CreditUsage{}, err
	}
	u.ID = s.newID()
	u.QuotaID = quotaID
	if err := u.Validate(); err != nil {
		return consortium.CreditUsage{}, err
	}
	if err := s.store.SaveCreditUsage(ctx, u); err != nil {
		return consortium.CreditUsage{}, fmt.Errorf("save credit usage: %w", err)
	}
	return u, nil
}

// ListCreditUsages returns a quota's credit usages.
func (s *Service) ListCreditUsages(ctx context.Context, quotaID string) ([]consortium.CreditUsage, error) {
	if _, err := s.GetQuota(ctx, quotaID); err != nil {
		return nil, err
	}
	return s.store.ListCreditUsages(ctx, quotaID)
}

// DeleteCreditUsage removes a credit usage.
func (s *Service) DeleteCreditUsage(ctx context.Context, id string) error {
	u, err := s.store.GetCreditUsage(ctx, id)
	if err != nil {
		return fmt.Errorf("get credit usage: %w", err)
	}
	if u == nil {
		return consortium.ErrCreditUsageNotFound
	}
	return s.store.DeleteCreditUsage(ctx, id)
}

// =============================================================================
// ADMINISTRATORS & COMPANIES
// =============================================================================

// CreateAdministrator stores a new administrator.
func (s *Service) CreateAdministrator(ctx context.Context, a consortium.Administrator) (consortium.Administrator, error) {
	if a.Name == "" {
		return consortium.Administrator{}, &consortium.ValidationError{Field: "name", Message: "is required"}
	}
	a.ID = s.newID()
	if err := s.store.SaveAdministrator(ctx, a); err != nil {
		return consortium.Administrator{}, fmt.Errorf("save administrator: %w", err)
	}
	return a, nil
}

// ListAdministrators returns every administrator.
func (s *Service) ListAdministrators(ctx context.Context) ([]consortium.Administrator, error) {
	return s.store.ListAdministrators(ctx)
}

// DeleteAdministrator removes an administrator; its quotas keep existing.
func (s *Service) DeleteAdministrator(ctx context.Context, id string) error {
	return s.store.DeleteAdministrator(ctx, id)
}

// CreateCompany stores a new company.
func (s *Service) CreateCompany(ctx context.Context, c consortium.Company) (consortium.Company, error) {
	if c.Name == "" {
		return consortium.Company{}, &consortium.ValidationError{Field: "name", Message: "is required"}
	}
	c.ID = s.newID()
	if err := s.store.SaveCompany(ctx, c); err != nil {
		return consortium.Company{}, fmt.Errorf("save company: %w", err)
	}
	return c, nil
}

// ListCompanies returns every company.
func (s *Service) ListCompanies(ctx context.Context) ([]consortium.Company, error) {
	return s.store.ListCompanies(ctx)
}

// DeleteCompany removes a company; its quotas keep existing.
func (s *Service) DeleteCompany(ctx context.Context, id string) error {
	return s.store.DeleteCompany(ctx, id)
}

// =============================================================================
// BID-FREE CORRECTION CACHE
// =============================================================================

func (s *Service) bidFreeCorrection(q consortium.Quota, table *correction.Table) decimal.Decimal {
	if !q.HasContemplationDate() {
		return decimal.Zero
	}
	return correction.SavingsCorrection(q.BidFree, q.ContemplationDate, table, s.Today()).Round(2)
}

// RefreshBidCorrections recomputes the cached CDI correction of every
// contemplated quota's free bid and stores the ones that changed. It
// returns how many quotas were updated.
func (s *Service) RefreshBidCorrections(ctx context.Context) (int, error) {
	quotas, err := s.store.ListQuotas(ctx)
	if err != nil {
		return 0, fmt.Errorf("list quotas: %w", err)
	}
	table, err := s.indexTable(ctx)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, q := range quotas {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		fresh := s.bidFreeCorrection(q, table)
		if fresh.Equal(q.BidFreeCorrection) {
			continue
		}
		q.BidFreeCorrection = fresh
		if err := s.store.SaveQuota(ctx, q); err != nil {
			return updated, fmt.Errorf("save quota %s: %w", q.ID, err)
		}
		updated++
	}

	s.logger.Info("bid corrections refreshed",
		zap.String("op", "service.RefreshBidCorrections"),
		zap.Int("quotas", len(quotas)),
		zap.Int("updated", updated))
	return updated, nil
}
