package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/warp/consorcio/consortium"
	"github.com/warp/consorcio/report"
)

// Dashboard builds the portfolio dashboard at the reference date (zero
// means today).
func (s *Service) Dashboard(ctx context.Context, f report.Filter, at time.Time) (report.Dashboard, error) {
	entries, err := s.entries(ctx)
	if err != nil {
		return report.Dashboard{}, err
	}
	return report.BuildDashboard(entries, f, s.refDate(at)), nil
}

// CreditAvailability reports available credit per company.
func (s *Service) CreditAvailability(ctx context.Context, f report.Filter, at time.Time) ([]report.CreditGroup, error) {
	entries, err := s.entries(ctx)
	if err != nil {
		return nil, err
	}
	return report.CreditAvailability(entries, f, s.refDate(at)), nil
}

// MonthlyPaid groups installments by due month within [from, to].
func (s *Service) MonthlyPaid(ctx context.Context, f report.Filter, from, to time.Time) ([]report.MonthlySummary, error) {
	entries, err := s.entries(ctx)
	if err != nil {
		return nil, err
	}
	return report.MonthlyPaid(entries, f, from, to), nil
}

// CreditUsageReport lists credit usages with seller and description totals.
func (s *Service) CreditUsageReport(ctx context.Context, f report.Filter) (report.UsageReport, error) {
	entries, err := s.entries(ctx)
	if err != nil {
		return report.UsageReport{}, err
	}
	return report.CreditUsage(entries, f), nil
}

func (s *Service) refDate(at time.Time) time.Time {
	if at.IsZero() {
		return s.Today()
	}
	return at
}

// entries loads every quota with its merged schedule, usages, company and
// administrator. Quotas whose schedule cannot be generated are reported
// with an empty schedule rather than failing the whole report.
func (s *Service) entries(ctx context.Context) ([]report.Entry, error) {
	quotas, err := s.store.ListQuotas(ctx)
	if err != nil {
		return nil, fmt.Errorf("list quotas: %w", err)
	}
	table, err := s.indexTable(ctx)
	if err != nil {
		return nil, err
	}
	payments, err := s.store.ListAllPayments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	usages, err := s.store.ListCreditUsages(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list credit usages: %w", err)
	}
	companies, err := s.store.ListCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	admins, err := s.store.ListAdministrators(ctx)
	if err != nil {
		return nil, fmt.Errorf("list administrators: %w", err)
	}

	usagesByQuota := map[string][]consortium.CreditUsage{}
	for _, u := range usages {
		usagesByQuota[u.QuotaID] = append(usagesByQuota[u.QuotaID], u)
	}
	companyByID := map[string]consortium.Company{}
	for _, c := range companies {
		companyByID[c.ID] = c
	}
	adminByID := map[string]consortium.Administrator{}
	for _, a := range admins {
		adminByID[a.ID] = a
	}

	entries := make([]report.Entry, 0, len(quotas))
	for _, q := range quotas {
		rows, err := s.mergedSchedule(q, table, payments[q.ID])
		if err != nil {
			s.logger.Warn("schedule skipped",
				zap.String("op", "service.entries"),
				zap.String("quota_id", q.ID),
				zap.Error(err))
			rows = nil
		}
		entries = append(entries, report.Entry{
			Quota:         q,
			Schedule:      rows,
			Usages:        usagesByQuota[q.ID],
			Company:       companyByID[q.CompanyID],
			Administrator: adminByID[q.AdministratorID],
		})
	}
	return entries, nil
}
