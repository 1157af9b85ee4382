/*
store.go - Persistence interface for quotas and related records

PURPOSE:
  Defines the boundary between the consortium service and the database.
  Only contract data is persisted: quotas, index observations, payment
  overrides, credit usages, administrators and companies. Schedules are
  never stored; they are regenerated on every read.

CONTRACT:
  - Get* returns (nil, nil) when the record does not exist.
  - Save* is an upsert keyed by ID.
  - SaveQuota rejects a second quota with the same group + quota number
    with *consortium.DuplicateQuotaError.
  - SaveIndex rejects a second row with the same type + month with
    *consortium.DuplicateIndexError.
  - Deleting a quota deletes its payments and credit usages. Deleting an
    administrator or company clears the reference on its quotas.

IMPLEMENTATIONS:
  - store/sqlite: production
  - store/memory: tests and the in-process CLI

SEE ALSO:
  - service.go: the only caller
*/
package service

import (
	"context"

	"github.com/warp/consorcio/consortium"
)

// =============================================================================
// STORE - Interface for contract persistence
// =============================================================================

// Store persists consortium records.
type Store interface {
	QuotaStore
	IndexStore
	PaymentStore
	CreditUsageStore
	DirectoryStore
}

// QuotaStore persists quotas.
type QuotaStore interface {
	SaveQuota(ctx context.Context, q consortium.Quota) error
	GetQuota(ctx context.Context, id string) (*consortium.Quota, error)
	FindQuota(ctx context.Context, group, quotaNumber string) (*consortium.Quota, error)
	ListQuotas(ctx context.Context) ([]consortium.Quota, error)
	DeleteQuota(ctx context.Context, id string) error
}

// IndexStore persists monthly correction index observations.
type IndexStore interface {
	SaveIndex(ctx context.Context, m consortium.MonthlyIndex) error
	GetIndex(ctx context.Context, id string) (*consortium.MonthlyIndex, error)
	ListIndices(ctx context.Context) ([]consortium.MonthlyIndex, error)
	DeleteIndex(ctx context.Context, id string) error
}

// PaymentStore persists payment overrides.
type PaymentStore interface {
	SavePayment(ctx context.Context, p consortium.PaymentOverride) error
	GetPayments(ctx context.Context, quotaID string) (consortium.Overrides, error)
	ListAllPayments(ctx context.Context) (map[string]consortium.Overrides, error)
	DeletePayment(ctx context.Context, quotaID string, installment int) error
}

// CreditUsageStore persists credit draws.
type CreditUsageStore interface {
	SaveCreditUsage(ctx context.Context, u consortium.CreditUsage) error
	GetCreditUsage(ctx context.Context, id string) (*consortium.CreditUsage, error)
	// ListCreditUsages returns the usages of one quota, or of all quotas
	// when quotaID is empty.
	ListCreditUsages(ctx context.Context, quotaID string) ([]consortium.CreditUsage, error)
	DeleteCreditUsage(ctx context.Context, id string) error
}

// DirectoryStore persists administrators and companies.
type DirectoryStore interface {
	SaveAdministrator(ctx context.Context, a consortium.Administrator) error
	ListAdministrators(ctx context.Context) ([]consortium.Administrator, error)
	DeleteAdministrator(ctx context.Context, id string) error

	SaveCompany(ctx context.Context, c consortium.Company) error
	ListCompanies(ctx context.Context) ([]consortium.Company, error)
	DeleteCompany(ctx context.Context, id string) error
}
