package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/consorcio/calendar"
	"github.com/warp/consorcio/consortium"
	"github.com/warp/consorcio/service"
	"github.com/warp/consorcio/store/memory"
)

var _ service.Store = (*memory.Memory)(nil)

func TestMemory_QuotaKeyIsUnique(t *testing.T) {
	m := memory.New()
	ctx := context.Background()

	require.NoError(t, m.SaveQuota(ctx, consortium.Quota{ID: "q1", Group: "G", QuotaNumber: "1"}))
	require.NoError(t, m.SaveQuota(ctx, consortium.Quota{ID: "q1", Group: "G", QuotaNumber: "1"}), "same ID is an update")

	err := m.SaveQuota(ctx, consortium.Quota{ID: "q2", Group: "G", QuotaNumber: "1"})
	var dup *consortium.DuplicateQuotaError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "q1", dup.ExistingID)

	got, err := m.GetQuota(ctx, "q2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemory_ListQuotasOrdered(t *testing.T) {
	m := memory.New()
	ctx := context.Background()
	require.NoError(t, m.SaveQuota(ctx, consortium.Quota{ID: "a", Group: "B", QuotaNumber: "1"}))
	require.NoError(t, m.SaveQuota(ctx, consortium.Quota{ID: "b", Group: "A", QuotaNumber: "2"}))
	require.NoError(t, m.SaveQuota(ctx, consortium.Quota{ID: "c", Group: "A", QuotaNumber: "1"}))

	all, err := m.ListQuotas(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})
}

func TestMemory_IndexMonthNormalized(t *testing.T) {
	m := memory.New()
	ctx := context.Background()

	require.NoError(t, m.SaveIndex(ctx, consortium.MonthlyIndex{
		ID: "i1", Type: consortium.IndexCDI, Month: calendar.Date(2025, time.July, 31), Rate: decimal.NewFromInt(1),
	}))
	err := m.SaveIndex(ctx, consortium.MonthlyIndex{
		ID: "i2", Type: consortium.IndexCDI, Month: calendar.Date(2025, time.July, 1), Rate: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, consortium.ErrDuplicateIndex)

	got, err := m.GetIndex(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, calendar.Date(2025, time.July, 1), got.Month)
}

func TestMemory_PaymentsAreCopies(t *testing.T) {
	// GIVEN: A stored override
	m := memory.New()
	ctx := context.Background()
	require.NoError(t, m.SaveQuota(ctx, consortium.Quota{ID: "q1", Group: "G", QuotaNumber: "1"}))
	require.NoError(t, m.SavePayment(ctx, consortium.PaymentOverride{QuotaID: "q1", InstallmentNumber: 2}))

	// WHEN: The caller mutates the returned map
	got, err := m.GetPayments(ctx, "q1")
	require.NoError(t, err)
	delete(got, 2)

	// THEN: The store is unaffected
	again, err := m.GetPayments(ctx, "q1")
	require.NoError(t, err)
	assert.Contains(t, again, 2)

	err = m.SavePayment(ctx, consortium.PaymentOverride{QuotaID: "ghost", InstallmentNumber: 1})
	assert.ErrorIs(t, err, consortium.ErrQuotaNotFound)
}

func TestMemory_DeleteCascadesAndClears(t *testing.T) {
	m := memory.New()
	ctx := context.Background()
	require.NoError(t, m.SaveCompany(ctx, consortium.Company{ID: "c1", Name: "Acme"}))
	require.NoError(t, m.SaveAdministrator(ctx, consortium.Administrator{ID: "a1", Name: "Porto"}))
	require.NoError(t, m.SaveQuota(ctx, consortium.Quota{ID: "q1", Group: "G", QuotaNumber: "1", CompanyID: "c1", AdministratorID: "a1"}))
	require.NoError(t, m.SaveCreditUsage(ctx, consortium.CreditUsage{ID: "u1", QuotaID: "q1", Amount: decimal.NewFromInt(1)}))

	require.NoError(t, m.DeleteCompany(ctx, "c1"))
	require.NoError(t, m.DeleteAdministrator(ctx, "a1"))
	q, err := m.GetQuota(ctx, "q1")
	require.NoError(t, err)
	assert.Empty(t, q.CompanyID)
	assert.Empty(t, q.AdministratorID)

	require.NoError(t, m.DeleteQuota(ctx, "q1"))
	usages, err := m.ListCreditUsages(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, usages)
}
