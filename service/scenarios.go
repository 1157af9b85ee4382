/*
scenarios.go - Demo portfolios for testing and demonstrations

PURPOSE:
  Populates the store with realistic data: companies, administrators, index
  history, quotas on every payment plan, payments and credit usages. Each
  scenario exercises a specific part of the engine.

AVAILABLE SCENARIOS:
  normal-plan:      One NORMAL vehicle quota with INCC history and payments
  contemplated-bid: REDUZIDA real-estate quota contemplated with both bids,
                    CDI history and credit usages
  semiannual:       SEMESTRAL quota with a balloon every 6th month
  portfolio:        All of the above in one store

HOW SCENARIOS WORK:
  1. Reset the store when it supports it (sqlite, memory)
  2. Create directory records and the index history
  3. Create quotas through the regular service path (validation included)
  4. Record payments and credit usages

NOTE:
  Scenarios reset the database. Only use in development/demo environments.
*/
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/consorcio/calendar"
	"github.com/warp/consorcio/consortium"
)

// ErrUnknownScenario is returned by LoadScenario for an unknown ID.
var ErrUnknownScenario = errors.New("unknown scenario")

// Resetter is implemented by stores that can wipe all data.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Scenario describes a demo portfolio.
type Scenario struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var scenarios = []Scenario{
	{ID: "normal-plan", Name: "Normal Plan", Description: "NORMAL vehicle quota with INCC corrections and recorded payments"},
	{ID: "contemplated-bid", Name: "Contemplated With Bid", Description: "REDUZIDA real-estate quota contemplated with embedded and free bids"},
	{ID: "semiannual", Name: "Semi-Annual Plan", Description: "SEMESTRAL quota paying a balloon every 6th month"},
	{ID: "portfolio", Name: "Portfolio", Description: "Every plan in one portfolio"},
}

// Scenarios lists the available demo portfolios.
func (s *Service) Scenarios() []Scenario {
	out := make([]Scenario, len(scenarios))
	copy(out, scenarios)
	return out
}

// LoadScenario resets the store (when supported) and loads a scenario.
func (s *Service) LoadScenario(ctx context.Context, id string) error {
	loaders := map[string]func(context.Context, *seed) error{
		"normal-plan":      loadNormalPlan,
		"contemplated-bid": loadContemplatedBid,
		"semiannual":       loadSemiAnnual,
		"portfolio":        loadPortfolio,
	}
	load, ok := loaders[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownScenario, id)
	}

	if r, ok := s.store.(Resetter); ok {
		if err := r.Reset(ctx); err != nil {
			return fmt.Errorf("reset store: %w", err)
		}
	}

	sd := &seed{svc: s}
	if err := load(ctx, sd); err != nil {
		return fmt.Errorf("load scenario %s: %w", id, err)
	}
	// Caches depend on the index history, which is loaded after the quotas.
	if _, err := s.RefreshBidCorrections(ctx); err != nil {
		return err
	}
	s.logger.Info("scenario loaded", zap.String("op", "service.LoadScenario"), zap.String("scenario", id))
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadNormalPlan(ctx context.Context, sd *seed) error {
	company := sd.company(ctx, "Transportes Andrade Ltda")
	admin := sd.administrator(ctx, "Consórcio Nacional Autos")
	sd.indexHistory(ctx, consortium.IndexINCC, calendar.Date(2023, time.January, 1), 48, "0.35")

	q := sd.quota(ctx, consortium.Quota{
		Group:           "0410",
		QuotaNumber:     "118",
		CreditValue:     decimal.NewFromInt(85000),
		AdhesionDate:    calendar.Date(2024, time.February, 20),
		TermMonths:      60,
		AdminFeeRate:    decimal.RequireFromString("14"),
		ReserveFundRate: decimal.RequireFromString("2"),
		ProductType:     consortium.ProductVehicle,
		FirstDueDate:    calendar.Date(2024, time.March, 10),
		DueDay:          10,
		CorrectionIndex: consortium.IndexINCC,
		PaymentPlan:     consortium.PlanNormal,
		CompanyID:       company,
		AdministratorID: admin,
	})
	sd.payment(ctx, q, 1, consortium.PaymentPatch{})
	sd.payment(ctx, q, 2, consortium.PaymentPatch{})
	sd.payment(ctx, q, 3, consortium.PaymentPatch{
		Fine:     decimal.NewNullDecimal(decimal.RequireFromString("31.87")),
		Interest: decimal.NewNullDecimal(decimal.RequireFromString("5.12")),
	})
	return sd.err
}

func loadContemplatedBid(ctx context.Context, sd *seed) error {
	company := sd.company(ctx, "Construtora Horizonte S.A.")
	admin := sd.administrator(ctx, "Porto Consórcio Imóveis")
	sd.indexHistory(ctx, consortium.IndexINCC, calendar.Date(2022, time.January, 1), 60, "0.42")
	sd.indexHistory(ctx, consortium.IndexCDI, calendar.Date(2024, time.January, 1), 30, "0.88")

	q := sd.quota(ctx, consortium.Quota{
		Group:             "2207",
		QuotaNumber:       "045",
		ContractNumber:    "IMB-2207-045",
		CreditValue:       decimal.NewFromInt(400000),
		AdhesionDate:      calendar.Date(2023, time.May, 5),
		FirstAssemblyDate: calendar.Date(2023, time.May, 25),
		TermMonths:        180,
		AdminFeeRate:      decimal.RequireFromString("18"),
		ReserveFundRate:   decimal.RequireFromString("1"),
		ProductType:       consortium.ProductRealEstate,
		FirstDueDate:      calendar.Date(2023, time.June, 25),
		CorrectionIndex:   consortium.IndexINCC,
		PaymentPlan:       consortium.PlanReduced,
		CompanyID:         company,
		AdministratorID:   admin,
		IsContemplated:    true,
		ContemplationDate: calendar.Date(2024, time.August, 22),
		BidEmbedded:       decimal.NewFromInt(80000),
		BidFree:           decimal.NewFromInt(60000),
		BidBase:           consortium.BidBaseTotalProject,
	})
	for n := 1; n <= 14; n++ {
		sd.payment(ctx, q, n, consortium.PaymentPatch{})
	}
	sd.usage(ctx, q, consortium.CreditUsage{
		Description: "Entrada terreno",
		Date:        calendar.Date(2024, time.October, 1),
		Amount:      decimal.NewFromInt(150000),
		Seller:      "Imobiliária Central",
	})
	sd.usage(ctx, q, consortium.CreditUsage{
		Date:   calendar.Date(2025, time.March, 12),
		Amount: decimal.NewFromInt(45000),
	})
	return sd.err
}

func loadSemiAnnual(ctx context.Context, sd *seed) error {
	company := sd.company(ctx, "Agro Vale do Sul")
	sd.indexHistory(ctx, consortium.IndexIPCA, calendar.Date(2024, time.January, 1), 36, "0.38")

	q := sd.quota(ctx, consortium.Quota{
		Group:           "3301",
		QuotaNumber:     "007",
		CreditValue:     decimal.NewFromInt(250000),
		AdhesionDate:    calendar.Date(2024, time.July, 1),
		TermMonths:      100,
		AdminFeeRate:    decimal.RequireFromString("15"),
		ReserveFundRate: decimal.RequireFromString("2.5"),
		ProductType:     consortium.ProductVehicle,
		FirstDueDate:    calendar.Date(2024, time.July, 15),
		DueDay:          15,
		CorrectionIndex: consortium.IndexIPCA,
		PaymentPlan:     consortium.PlanSemiAnnual,
		CompanyID:       company,
	})
	for n := 1; n <= 6; n++ {
		sd.payment(ctx, q, n, consortium.PaymentPatch{})
	}
	return sd.err
}

func loadPortfolio(ctx context.Context, sd *seed) error {
	if err := loadNormalPlan(ctx, sd); err != nil {
		return err
	}
	if err := loadContemplatedBid(ctx, sd); err != nil {
		return err
	}
	return loadSemiAnnual(ctx, sd)
}

// =============================================================================
// SEED HELPERS
// =============================================================================

// seed records the first error and turns every later call into a no-op,
// so loaders read as straight-line data.
type seed struct {
	svc     *Service
	err     error
	indexed map[consortium.IndexType]bool
}

func (sd *seed) company(ctx context.Context, name string) string {
	if sd.err != nil {
		return ""
	}
	c, err := sd.svc.CreateCompany(ctx, consortium.Company{Name: name})
	sd.err = err
	return c.ID
}

func (sd *seed) administrator(ctx context.Context, name string) string {
	if sd.err != nil {
		return ""
	}
	a, err := sd.svc.CreateAdministrator(ctx, consortium.Administrator{Name: name})
	sd.err = err
	return a.ID
}

// indexHistory stores n monthly rates from start, alternating around base
// so the table is not flat. A type already loaded by this seed is skipped.
func (sd *seed) indexHistory(ctx context.Context, typ consortium.IndexType, start time.Time, n int, base string) {
	if sd.err != nil || sd.indexed[typ] {
		return
	}
	if sd.indexed == nil {
		sd.indexed = map[consortium.IndexType]bool{}
	}
	sd.indexed[typ] = true

	rate := decimal.RequireFromString(base)
	step := decimal.RequireFromString("0.07")
	for i := 0; i < n; i++ {
		r := rate
		switch i % 3 {
		case 1:
			r = rate.Add(step)
		case 2:
			r = rate.Sub(step)
		}
		if _, err := sd.svc.CreateIndex(ctx, consortium.MonthlyIndex{
			Type:  typ,
			Month: calendar.AddMonths(start, i),
			Rate:  r,
		}); err != nil {
			sd.err = err
			return
		}
	}
}

func (sd *seed) quota(ctx context.Context, q consortium.Quota) string {
	if sd.err != nil {
		return ""
	}
	created, err := sd.svc.CreateQuota(ctx, q)
	sd.err = err
	return created.ID
}

func (sd *seed) payment(ctx context.Context, quotaID string, n int, patch consortium.PaymentPatch) {
	if sd.err != nil {
		return
	}
	_, sd.err = sd.svc.RecordPayment(ctx, quotaID, n, patch)
}

func (sd *seed) usage(ctx context.Context, quotaID string, u consortium.CreditUsage) {
	if sd.err != nil {
		return
	}
	_, sd.err = sd.svc.AddCreditUsage(ctx, quotaID, u)
}
