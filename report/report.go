/*
Package report aggregates schedules across a portfolio of quotas.

PURPOSE:
  Reports sum installment fields across many quotas for a reference date.
  They never fail on partial data: quotas that are not yet schedulable
  contribute their contract values, missing index rows were already
  absorbed by the generator.

INPUT:
  Every report takes []Entry: a quota with its merged schedule (payments
  layered over the theoretical one), its credit usages and the company and
  administrator it belongs to. Building entries is the service's job.

REPORTS:
  - BuildDashboard:     portfolio totals, paid/to-pay, next maturities, CET
  - CreditAvailability: credit left per quota, grouped by company
  - MonthlyPaid:        installment components grouped by due month
  - CreditUsage:        credit draws with seller/description breakdowns

SEE ALSO:
  - service/reports.go: entry assembly
  - schedule/merge.go: the rows these reports read
*/
package report

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/consorcio/calendar"
	"github.com/warp/consorcio/consortium"
)

// Entry is one quota with everything the reports need about it.
type Entry struct {
	Quota         consortium.Quota
	Schedule      []consortium.Installment
	Usages        []consortium.CreditUsage
	Company       consortium.Company
	Administrator consortium.Administrator
}

// UsedCredit returns the sum of the entry's credit usages.
func (e Entry) UsedCredit() decimal.Decimal {
	total := decimal.Zero
	for _, u := range e.Usages {
		total = total.Add(u.Amount)
	}
	return total
}

// CurrentCredit returns the corrected credit value in force at the given
// date: that of the last installment due on or before it, else that of the
// first installment, else the contract value.
func CurrentCredit(q consortium.Quota, rows []consortium.Installment, at time.Time) decimal.Decimal {
	if len(rows) == 0 {
		return q.CreditValue
	}
	current := rows[0].CorrectedCreditValue
	for _, row := range rows {
		if !calendar.OnOrBefore(row.DueDate, at) {
			break
		}
		current = row.CorrectedCreditValue
	}
	if current.IsZero() {
		return q.CreditValue
	}
	return current
}

func refDate(at time.Time) time.Time {
	if at.IsZero() {
		return calendar.Today()
	}
	return calendar.Truncate(at)
}
