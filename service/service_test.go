package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/consorcio/calendar"
	"github.com/warp/consorcio/consortium"
	"github.com/warp/consorcio/report"
	"github.com/warp/consorcio/service"
	"github.com/warp/consorcio/store/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newService(t *testing.T) (*service.Service, *memory.Memory) {
	t.Helper()
	store := memory.New()
	seq := 0
	svc := service.New(store, nil,
		service.WithClock(func() time.Time { return time.Date(2026, time.June, 15, 10, 0, 0, 0, time.UTC) }),
		service.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
	)
	return svc, store
}

func sampleQuota() consortium.Quota {
	return consortium.Quota{
		Group:           "1234",
		QuotaNumber:     "056",
		CreditValue:     dec("100000"),
		TermMonths:      12,
		AdminFeeRate:    dec("10"),
		ReserveFundRate: dec("2"),
		FirstDueDate:    calendar.Date(2025, time.January, 1),
		DueDay:          1,
		CorrectionIndex: consortium.IndexINCC,
		PaymentPlan:     consortium.PlanNormal,
	}
}

func TestCreateQuota_NormalizesAndStores(t *testing.T) {
	// GIVEN: A quota with a bid but no total and no bid base
	svc, _ := newService(t)
	ctx := context.Background()
	q := sampleQuota()
	q.BidFree = dec("1000")
	q.BidEmbedded = dec("500")
	q.BidTotal = dec("99")

	// WHEN: Creating it
	created, err := svc.CreateQuota(ctx, q)

	// THEN: The ID is assigned and derived fields recomputed
	require.NoError(t, err)
	assert.Equal(t, "id-1", created.ID)
	assert.True(t, created.BidTotal.Equal(dec("1500")))
	assert.Equal(t, consortium.BidBaseCredit, created.BidBase)

	got, err := svc.GetQuota(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Key(), got.Key())
}

func TestCreateQuota_DuplicateKey(t *testing.T) {
	// GIVEN: An existing quota
	svc, _ := newService(t)
	ctx := context.Background()
	first, err := svc.CreateQuota(ctx, sampleQuota())
	require.NoError(t, err)

	// WHEN: Creating another with the same group and quota number
	_, err = svc.CreateQuota(ctx, sampleQuota())

	// THEN: A conflict naming the existing quota is returned
	var dup *consortium.DuplicateQuotaError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, first.ID, dup.ExistingID)
	assert.True(t, consortium.IsConflict(err))
}

func TestUpdateQuota_KeepsOwnKey(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	created, err := svc.CreateQuota(ctx, sampleQuota())
	require.NoError(t, err)

	q := sampleQuota()
	q.CreditValue = dec("120000")
	updated, err := svc.UpdateQuota(ctx, created.ID, q)
	require.NoError(t, err)
	assert.True(t, updated.CreditValue.Equal(dec("120000")))

	_, err = svc.UpdateQuota(ctx, "missing", q)
	assert.ErrorIs(t, err, consortium.ErrQuotaNotFound)
}

func TestCreateQuota_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	q := sampleQuota()
	q.TermMonths = -1
	_, err := svc.CreateQuota(ctx, q)
	assert.ErrorIs(t, err, consortium.ErrInvalidTerm)
	assert.True(t, consortium.IsClientError(err))

	q = sampleQuota()
	q.CorrectionIndex = "SELIC"
	_, err = svc.CreateQuota(ctx, q)
	assert.ErrorIs(t, err, consortium.ErrInvalidQuota)

	q = sampleQuota()
	q.CompanyID = "nope"
	_, err = svc.CreateQuota(ctx, q)
	var verr *consortium.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "company_id", verr.Field)
}

func TestSchedule_UnknownQuota(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Schedule(context.Background(), "missing")
	assert.ErrorIs(t, err, consortium.ErrQuotaNotFound)
	assert.True(t, consortium.IsNotFound(err))
}

func TestRecordPayment_PatchesAndRemerges(t *testing.T) {
	// GIVEN: A quota with a fresh schedule
	svc, store := newService(t)
	ctx := context.Background()
	q, err := svc.CreateQuota(ctx, sampleQuota())
	require.NoError(t, err)

	// WHEN: Recording an FC underpayment on installment 3
	rows, err := svc.RecordPayment(ctx, q.ID, 3, consortium.PaymentPatch{
		FC: decimal.NewNullDecimal(dec("7833.30")),
	})
	require.NoError(t, err)

	// THEN: The row is paid and the shortfall is carried in the balance
	require.Len(t, rows, 12)
	assert.True(t, rows[2].IsPaid)
	assert.True(t, rows[2].CommonFund.Equal(dec("7833.30")))
	assert.False(t, rows[3].IsPaid)
	assert.True(t, rows[11].BalanceFC.Equal(dec("500")), "final FC balance %s", rows[11].BalanceFC)

	// WHEN: A second patch sets only the fine
	rows, err = svc.RecordPayment(ctx, q.ID, 3, consortium.PaymentPatch{
		Fine: decimal.NewNullDecimal(dec("12.50")),
	})
	require.NoError(t, err)

	// THEN: The earlier FC value survives
	assert.True(t, rows[2].CommonFund.Equal(dec("7833.30")))
	assert.True(t, rows[2].ManualFine.Decimal.Equal(dec("12.50")))

	overrides, err := store.GetPayments(ctx, q.ID)
	require.NoError(t, err)
	require.Contains(t, overrides, 3)
	assert.Equal(t, time.Date(2026, time.June, 15, 10, 0, 0, 0, time.UTC), overrides[3].PaidAt)
}

func TestRecordPayment_OutOfRange(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	q, err := svc.CreateQuota(ctx, sampleQuota())
	require.NoError(t, err)

	_, err = svc.RecordPayment(ctx, q.ID, 0, consortium.PaymentPatch{})
	assert.ErrorIs(t, err, consortium.ErrInstallmentNotFound)
	_, err = svc.RecordPayment(ctx, q.ID, 13, consortium.PaymentPatch{})
	assert.ErrorIs(t, err, consortium.ErrInstallmentNotFound)
}

func TestClearPayment_OutOfRange(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	q, err := svc.CreateQuota(ctx, sampleQuota())
	require.NoError(t, err)

	_, err = svc.ClearPayment(ctx, q.ID, 0)
	assert.ErrorIs(t, err, consortium.ErrInstallmentNotFound)
	_, err = svc.ClearPayment(ctx, q.ID, 13)
	assert.ErrorIs(t, err, consortium.ErrInstallmentNotFound)

	// An installment in range without a payment is simply unpaid
	rows, err := svc.ClearPayment(ctx, q.ID, 12)
	require.NoError(t, err)
	assert.False(t, rows[11].IsPaid)
}

func TestClearPayment_MarksUnpaid(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	q, err := svc.CreateQuota(ctx, sampleQuota())
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, q.ID, 1, consortium.PaymentPatch{})
	require.NoError(t, err)

	rows, err := svc.ClearPayment(ctx, q.ID, 1)
	require.NoError(t, err)
	assert.False(t, rows[0].IsPaid)
	assert.True(t, rows[11].BalanceFC.IsZero())
}

func TestDeleteQuota_Cascades(t *testing.T) {
	// GIVEN: A quota with a payment and a credit usage
	svc, store := newService(t)
	ctx := context.Background()
	q, err := svc.CreateQuota(ctx, sampleQuota())
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, q.ID, 1, consortium.PaymentPatch{})
	require.NoError(t, err)
	u, err := svc.AddCreditUsage(ctx, q.ID, consortium.CreditUsage{
		Amount: dec("5000"),
		Date:   calendar.Date(2026, time.March, 1),
	})
	require.NoError(t, err)

	// WHEN: Deleting the quota
	require.NoError(t, svc.DeleteQuota(ctx, q.ID))

	// THEN: Dependent records are gone
	overrides, err := store.GetPayments(ctx, q.ID)
	require.NoError(t, err)
	assert.Empty(t, overrides)
	got, err := store.GetCreditUsage(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, svc.DeleteQuota(ctx, q.ID), consortium.ErrQuotaNotFound)
}

func TestIndices_DuplicateMonth(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	m, err := svc.CreateIndex(ctx, consortium.MonthlyIndex{
		Type:  consortium.IndexINCC,
		Month: calendar.Date(2025, time.December, 17),
		Rate:  dec("0.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, calendar.Date(2025, time.December, 1), m.Month)

	_, err = svc.CreateIndex(ctx, consortium.MonthlyIndex{
		Type:  consortium.IndexINCC,
		Month: calendar.Date(2025, time.December, 1),
		Rate:  dec("0.7"),
	})
	assert.ErrorIs(t, err, consortium.ErrDuplicateIndex)

	_, err = svc.UpdateIndex(ctx, m.ID, consortium.MonthlyIndex{
		Type:  consortium.IndexINCC,
		Month: calendar.Date(2025, time.December, 1),
		Rate:  dec("0.7"),
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteIndex(ctx, "missing"), consortium.ErrIndexNotFound)
	require.NoError(t, svc.DeleteIndex(ctx, m.ID))
}

func TestCurrentCreditValue_UsesIndexTable(t *testing.T) {
	// GIVEN: A quota adhered 2025-01-01 and 5% INCC in December 2025
	svc, _ := newService(t)
	ctx := context.Background()
	q := sampleQuota()
	q.AdhesionDate = calendar.Date(2025, time.January, 1)
	created, err := svc.CreateQuota(ctx, q)
	require.NoError(t, err)
	_, err = svc.CreateIndex(ctx, consortium.MonthlyIndex{
		Type: consortium.IndexINCC, Month: calendar.Date(2025, time.December, 1), Rate: dec("5"),
	})
	require.NoError(t, err)

	// WHEN/THEN: Before and after the first anniversary
	before, err := svc.CurrentCreditValue(ctx, created.ID, calendar.Date(2025, time.December, 31))
	require.NoError(t, err)
	assert.True(t, before.Equal(dec("100000")))

	after, err := svc.CurrentCreditValue(ctx, created.ID, time.Time{})
	require.NoError(t, err)
	assert.True(t, after.Equal(dec("105000")), "got %s", after)
}

func TestRefreshBidCorrections(t *testing.T) {
	// GIVEN: A contemplated quota whose free bid predates the CDI rows
	svc, store := newService(t)
	ctx := context.Background()
	q := sampleQuota()
	q.IsContemplated = true
	q.ContemplationDate = calendar.Date(2026, time.January, 10)
	q.BidFree = dec("10000")
	created, err := svc.CreateQuota(ctx, q)
	require.NoError(t, err)
	assert.True(t, created.BidFreeCorrection.IsZero())

	for _, month := range []time.Month{time.January, time.February} {
		_, err := svc.CreateIndex(ctx, consortium.MonthlyIndex{
			Type: consortium.IndexCDI, Month: calendar.Date(2026, month, 1), Rate: dec("1"),
		})
		require.NoError(t, err)
	}

	// WHEN: Refreshing
	n, err := svc.RefreshBidCorrections(ctx)

	// THEN: The cached correction is updated once
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	stored, err := store.GetQuota(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, stored.BidFreeCorrection.IsPositive())

	n, err = svc.RefreshBidCorrections(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCreditUsages(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	q, err := svc.CreateQuota(ctx, sampleQuota())
	require.NoError(t, err)

	_, err = svc.AddCreditUsage(ctx, q.ID, consortium.CreditUsage{Amount: dec("0"), Date: calendar.Date(2026, 1, 1)})
	assert.ErrorIs(t, err, consortium.ErrInvalidQuota)

	_, err = svc.AddCreditUsage(ctx, "missing", consortium.CreditUsage{Amount: dec("1"), Date: calendar.Date(2026, 1, 1)})
	assert.ErrorIs(t, err, consortium.ErrQuotaNotFound)

	u, err := svc.AddCreditUsage(ctx, q.ID, consortium.CreditUsage{Amount: dec("100"), Date: calendar.Date(2026, 1, 1), Seller: "Loja"})
	require.NoError(t, err)
	list, err := svc.ListCreditUsages(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, u.ID, list[0].ID)

	require.NoError(t, svc.DeleteCreditUsage(ctx, u.ID))
	assert.ErrorIs(t, svc.DeleteCreditUsage(ctx, u.ID), consortium.ErrCreditUsageNotFound)
}

func TestDirectory_DeleteClearsReference(t *testing.T) {
	// GIVEN: A quota held by a company
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateCompany(ctx, consortium.Company{})
	assert.ErrorIs(t, err, consortium.ErrInvalidQuota)

	c, err := svc.CreateCompany(ctx, consortium.Company{Name: "Acme"})
	require.NoError(t, err)
	a, err := svc.CreateAdministrator(ctx, consortium.Administrator{Name: "Porto"})
	require.NoError(t, err)
	q := sampleQuota()
	q.CompanyID = c.ID
	q.AdministratorID = a.ID
	created, err := svc.CreateQuota(ctx, q)
	require.NoError(t, err)

	// WHEN: Deleting the company
	require.NoError(t, svc.DeleteCompany(ctx, c.ID))

	// THEN: The quota survives without a company
	got, err := svc.GetQuota(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, got.CompanyID)
	assert.Equal(t, a.ID, got.AdministratorID)
}

func TestReports_ThroughService(t *testing.T) {
	// GIVEN: Two quotas, one contemplated
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.CreateQuota(ctx, sampleQuota())
	require.NoError(t, err)
	q := sampleQuota()
	q.QuotaNumber = "057"
	q.IsContemplated = true
	q.ContemplationDate = calendar.Date(2025, time.June, 10)
	q.BidEmbedded = dec("20000")
	_, err = svc.CreateQuota(ctx, q)
	require.NoError(t, err)

	// WHEN: Building the dashboard at the service clock
	d, err := svc.Dashboard(ctx, report.Filter{}, time.Time{})

	// THEN: One quota is active, the other contemplated
	require.NoError(t, err)
	assert.Equal(t, 1, d.ActiveCount)
	assert.Equal(t, 1, d.ContemplatedCount)

	groups, err := svc.CreditAvailability(ctx, report.Filter{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, groups, 1)

	months, err := svc.MonthlyPaid(ctx, report.Filter{}, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.NotEmpty(t, months)

	usage, err := svc.CreditUsageReport(ctx, report.Filter{})
	require.NoError(t, err)
	assert.Empty(t, usage.Lines)
}

func TestLoadScenario(t *testing.T) {
	// GIVEN: A store holding unrelated data
	svc, store := newService(t)
	ctx := context.Background()
	_, err := svc.CreateQuota(ctx, sampleQuota())
	require.NoError(t, err)

	// WHEN: Loading the full portfolio
	require.NoError(t, svc.LoadScenario(ctx, "portfolio"))

	// THEN: The store was reset and every plan is present
	quotas, err := store.ListQuotas(ctx)
	require.NoError(t, err)
	require.Len(t, quotas, 3)
	plans := map[consortium.PaymentPlan]bool{}
	for _, q := range quotas {
		plans[q.PaymentPlan] = true
		rows, err := svc.Schedule(ctx, q.ID)
		require.NoError(t, err)
		assert.Len(t, rows, q.TermMonths)
	}
	assert.Len(t, plans, 3)

	companies, err := svc.ListCompanies(ctx)
	require.NoError(t, err)
	assert.Len(t, companies, 3)

	err = svc.LoadScenario(ctx, "nope")
	assert.ErrorIs(t, err, service.ErrUnknownScenario)
	assert.Len(t, svc.Scenarios(), 4)
}
