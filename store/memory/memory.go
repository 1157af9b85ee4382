// Package memory provides an in-memory Store (for tests and dev).
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/warp/consorcio/calendar"
	"github.com/warp/consorcio/consortium"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	quotas   map[string]consortium.Quota
	indices  map[string]consortium.MonthlyIndex
	payments map[string]consortium.Overrides
	usages   map[string]consortium.CreditUsage
	admins   map[string]consortium.Administrator
	comps    map[string]consortium.Company
}

type indexKey struct {
	Type  consortium.IndexType
	Month time.Time
}

func New() *Memory {
	return &Memory{
		quotas:   make(map[string]consortium.Quota),
		indices:  make(map[string]consortium.MonthlyIndex),
		payments: make(map[string]consortium.Overrides),
		usages:   make(map[string]consortium.CreditUsage),
		admins:   make(map[string]consortium.Administrator),
		comps:    make(map[string]consortium.Company),
	}
}

// =============================================================================
// QUOTAS
// =============================================================================

// SaveQuota upserts a quota. Group + quota number is unique.
func (m *Memory) SaveQuota(_ context.Context, q consortium.Quota) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, other := range m.quotas {
		if other.ID != q.ID && other.Group == q.Group && other.QuotaNumber == q.QuotaNumber {
			return &consortium.DuplicateQuotaError{Group: q.Group, QuotaNumber: q.QuotaNumber, ExistingID: other.ID}
		}
	}
	m.quotas[q.ID] = q
	return nil
}

func (m *Memory) GetQuota(_ context.Context, id string) (*consortium.Quota, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q, ok := m.quotas[id]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (m *Memory) FindQuota(_ context.Context, group, quotaNumber string) (*consortium.Quota, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, q := range m.quotas {
		if q.Group == group && q.QuotaNumber == quotaNumber {
			q := q
			return &q, nil
		}
	}
	return nil, nil
}

// ListQuotas returns quotas ordered by group, then quota number.
func (m *Memory) ListQuotas(_ context.Context) ([]consortium.Quota, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]consortium.Quota, 0, len(m.quotas))
	for _, q := range m.quotas {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].QuotaNumber < out[j].QuotaNumber
	})
	return out, nil
}

// DeleteQuota removes a quota with its payments and credit usages.
func (m *Memory) DeleteQuota(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.quotas, id)
	delete(m.payments, id)
	for uid, u := range m.usages {
		if u.QuotaID == id {
			delete(m.usages, uid)
		}
	}
	return nil
}

// =============================================================================
// INDICES
// =============================================================================

// SaveIndex upserts an observation. Type + month is unique.
func (m *Memory) SaveIndex(_ context.Context, idx consortium.MonthlyIndex) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx.Month = calendar.StartOfMonth(idx.Month)
	k := indexKey{Type: idx.Type, Month: idx.Month}
	for _, other := range m.indices {
		if other.ID != idx.ID && (indexKey{Type: other.Type, Month: other.Month}) == k {
			return &consortium.DuplicateIndexError{Type: idx.Type, Month: idx.Month}
		}
	}
	m.indices[idx.ID] = idx
	return nil
}

func (m *Memory) GetIndex(_ context.Context, id string) (*consortium.MonthlyIndex, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.indices[id]
	if !ok {
		return nil, nil
	}
	return &idx, nil
}

// ListIndices returns observations newest month first.
func (m *Memory) ListIndices(_ context.Context) ([]consortium.MonthlyIndex, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]consortium.MonthlyIndex, 0, len(m.indices))
	for _, idx := range m.indices {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Month.Equal(out[j].Month) {
			return out[i].Month.After(out[j].Month)
		}
		return out[i].Type < out[j].Type
	})
	return out, nil
}

func (m *Memory) DeleteIndex(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.indices, id)
	return nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (m *Memory) SavePayment(_ context.Context, p consortium.PaymentOverride) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.quotas[p.QuotaID]; !ok {
		return consortium.ErrQuotaNotFound
	}
	if m.payments[p.QuotaID] == nil {
		m.payments[p.QuotaID] = consortium.Overrides{}
	}
	m.payments[p.QuotaID][p.InstallmentNumber] = p
	return nil
}

func (m *Memory) GetPayments(_ context.Context, quotaID string) (consortium.Overrides, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := consortium.Overrides{}
	for n, p := range m.payments[quotaID] {
		out[n] = p
	}
	return out, nil
}

func (m *Memory) ListAllPayments(_ context.Context) (map[string]consortium.Overrides, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]consortium.Overrides, len(m.payments))
	for quotaID, overrides := range m.payments {
		cp := make(consortium.Overrides, len(overrides))
		for n, p := range overrides {
			cp[n] = p
		}
		out[quotaID] = cp
	}
	return out, nil
}

func (m *Memory) DeletePayment(_ context.Context, quotaID string, installment int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.payments[quotaID], installment)
	return nil
}

// =============================================================================
// CREDIT USAGES
// =============================================================================

func (m *Memory) SaveCreditUsage(_ context.Context, u consortium.CreditUsage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.quotas[u.QuotaID]; !ok {
		return consortium.ErrQuotaNotFound
	}
	m.usages[u.ID] = u
	return nil
}

func (m *Memory) GetCreditUsage(_ context.Context, id string) (*consortium.CreditUsage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.usages[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// ListCreditUsages returns usages newest first.
func (m *Memory) ListCreditUsages(_ context.Context, quotaID string) ([]consortium.CreditUsage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []consortium.CreditUsage
	for _, u := range m.usages {
		if quotaID == "" || u.QuotaID == quotaID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) DeleteCreditUsage(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.usages, id)
	return nil
}

// =============================================================================
// ADMINISTRATORS & COMPANIES
// =============================================================================

func (m *Memory) SaveAdministrator(_ context.Context, a consortium.Administrator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admins[a.ID] = a
	return nil
}

func (m *Memory) ListAdministrators(_ context.Context) ([]consortium.Administrator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]consortium.Administrator, 0, len(m.admins))
	for _, a := range m.admins {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

// DeleteAdministrator removes an administrator and clears it from quotas.
func (m *Memory) DeleteAdministrator(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.admins, id)
	for qid, q := range m.quotas {
		if q.AdministratorID == id {
			q.AdministratorID = ""
			m.quotas[qid] = q
		}
	}
	return nil
}

func (m *Memory) SaveCompany(_ context.Context, c consortium.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comps[c.ID] = c
	return nil
}

func (m *Memory) ListCompanies(_ context.Context) ([]consortium.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]consortium.Company, 0, len(m.comps))
	for _, c := range m.comps {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

// DeleteCompany removes a company and clears it from quotas.
func (m *Memory) DeleteCompany(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.comps, id)
	for qid, q := range m.quotas {
		if q.CompanyID == id {
			q.CompanyID = ""
			m.quotas[qid] = q
		}
	}
	return nil
}

// Reset deletes all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.quotas = make(map[string]consortium.Quota)
	m.indices = make(map[string]consortium.MonthlyIndex)
	m.payments = make(map[string]consortium.Overrides)
	m.usages = make(map[string]consortium.CreditUsage)
	m.admins = make(map[string]consortium.Administrator)
	m.comps = make(map[string]consortium.Company)
	return nil
}
