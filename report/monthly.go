package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/consorcio/calendar"
)

// MonthlySummary totals every installment due in one month.
type MonthlySummary struct {
	Month      string // YYYY-MM
	CommonFund decimal.Decimal
	Fees       decimal.Decimal // admin fee + reserve fund
	Bids       decimal.Decimal
	Others     decimal.Decimal // fine + interest on paid installments
	Total      decimal.Decimal
	QuotaCount int
}

// MonthlyPaid groups the installments of the entries matching f by due
// month. Installments due outside [from, to] are skipped; a zero bound is
// open. Months come newest first.
func MonthlyPaid(entries []Entry, f Filter, from, to time.Time) []MonthlySummary {
	months := map[string]*MonthlySummary{}
	quotas := map[string]map[string]struct{}{}

	for _, e := range entries {
		if !f.Match(e.Quota) {
			continue
		}
		for _, row := range e.Schedule {
			if !from.IsZero() && row.DueDate.Before(calendar.Truncate(from)) {
				continue
			}
			if !to.IsZero() && !calendar.OnOrBefore(row.DueDate, to) {
				continue
			}

			key := calendar.MonthKey(row.DueDate)
			m, ok := months[key]
			if !ok {
				m = &MonthlySummary{Month: key}
				months[key] = m
				quotas[key] = map[string]struct{}{}
			}
			quotas[key][e.Quota.ID] = struct{}{}

			m.CommonFund = m.CommonFund.Add(row.CommonFund)
			m.Fees = m.Fees.Add(row.AdminFee).Add(row.ReserveFund)
			if row.IsPaid {
				m.Others = m.Others.Add(orZero(row.ManualFine)).Add(orZero(row.ManualInterest))
			}
			if row.Bid != nil && row.Bid.Amount.IsPositive() {
				m.Bids = m.Bids.Add(row.Bid.Amount)
			}
		}
	}

	out := make([]MonthlySummary, 0, len(months))
	for key, m := range months {
		m.Total = m.CommonFund.Add(m.Fees).Add(m.Bids).Add(m.Others)
		m.QuotaCount = len(quotas[key])
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out
}
