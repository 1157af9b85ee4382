package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/consorcio/calendar"
	"github.com/warp/consorcio/consortium"
)

// Status filters quotas by contemplation.
type Status string

const (
	StatusAll          Status = ""
	StatusActive       Status = "ACTIVE"
	StatusContemplated Status = "CONTEMPLATED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusAll, StatusActive, StatusContemplated:
		return true
	}
	return false
}

// Filter selects the quotas a portfolio report covers. Empty fields match
// everything.
type Filter struct {
	CompanyID       string
	AdministratorID string
	QuotaID         string
	Status          Status
}

// Match reports whether q passes the filter.
func (f Filter) Match(q consortium.Quota) bool {
	if f.CompanyID != "" && q.CompanyID != f.CompanyID {
		return false
	}
	if f.AdministratorID != "" && q.AdministratorID != f.AdministratorID {
		return false
	}
	if f.QuotaID != "" && q.ID != f.QuotaID {
		return false
	}
	switch f.Status {
	case StatusActive:
		return !q.IsContemplated
	case StatusContemplated:
		return q.IsContemplated
	}
	return true
}

// Maturity is the next installment falling due on one quota.
type Maturity struct {
	QuotaID     string
	Group       string
	QuotaNumber string
	CompanyID   string
	Number      int
	DueDate     time.Time
	Amount      decimal.Decimal
}

// Dashboard is the portfolio summary at a reference date.
type Dashboard struct {
	ReferenceDate time.Time

	ActiveCount       int
	ContemplatedCount int

	// Credit net of embedded bids, at the reference date
	NetCredit             decimal.Decimal
	NetContemplatedCredit decimal.Decimal

	BidFree     decimal.Decimal
	BidEmbedded decimal.Decimal

	// Averages over contemplated quotas with a bid, in %
	AvgTotalBidPercent decimal.Decimal
	AvgFreeBidPercent  decimal.Decimal

	ManualAdjustments decimal.Decimal
	ReserveFund       decimal.Decimal
	CreditUsed        decimal.Decimal

	AvailableCredit             decimal.Decimal
	AvailableContemplatedCredit decimal.Decimal

	TotalPaid         decimal.Decimal
	TotalToPay        decimal.Decimal
	PercentPaid       decimal.Decimal
	PercentToPay      decimal.Decimal
	NextMaturities    []Maturity
	NextMaturityTotal decimal.Decimal

	// Credit-weighted effective cost, in %
	MonthlyCET decimal.Decimal
	AnnualCET  decimal.Decimal
}

// BuildDashboard summarizes the entries matching f at the reference date
// (zero means today). Installments due on or before it count as paid,
// together with any bid abatement; later ones are still to pay.
func BuildDashboard(entries []Entry, f Filter, at time.Time) Dashboard {
	at = refDate(at)
	dash := Dashboard{ReferenceDate: at}

	var (
		bidCount                    int
		sumTotalBidPct, sumFreeBid  decimal.Decimal
		weightedMonthly, weightedYr float64
		weight                      float64
	)

	for _, e := range entries {
		q := e.Quota
		if !f.Match(q) {
			continue
		}

		credit := CurrentCredit(q, e.Schedule, at)
		netCredit := credit.Sub(q.BidEmbedded)
		used := e.UsedCredit()

		if q.IsContemplated {
			dash.ContemplatedCount++
			dash.NetContemplatedCredit = dash.NetContemplatedCredit.Add(netCredit)
			avail := netCredit.Add(q.CreditManualAdjustment).Sub(used)
			dash.AvailableContemplatedCredit = dash.AvailableContemplatedCredit.Add(decimal.Max(decimal.Zero, avail))
		} else {
			dash.ActiveCount++
		}

		dash.NetCredit = dash.NetCredit.Add(netCredit)
		dash.BidFree = dash.BidFree.Add(q.BidFree)
		dash.BidEmbedded = dash.BidEmbedded.Add(q.BidEmbedded)
		dash.ManualAdjustments = dash.ManualAdjustments.Add(q.CreditManualAdjustment)
		dash.CreditUsed = dash.CreditUsed.Add(used)

		bidTotal := q.BidFree.Add(q.BidEmbedded)
		if q.IsContemplated && credit.IsPositive() && bidTotal.IsPositive() {
			sumTotalBidPct = sumTotalBidPct.Add(consortium.Percent(bidTotal, credit))
			sumFreeBid = sumFreeBid.Add(consortium.Percent(q.BidFree, credit))
			bidCount++
		}

		next, hasNext := accumulatePayments(&dash, e.Schedule, at)
		if hasNext {
			dash.NextMaturities = append(dash.NextMaturities, Maturity{
				QuotaID:     q.ID,
				Group:       q.Group,
				QuotaNumber: q.QuotaNumber,
				CompanyID:   q.CompanyID,
				Number:      next.Number,
				DueDate:     next.DueDate,
				Amount:      next.Total,
			})
			dash.NextMaturityTotal = dash.NextMaturityTotal.Add(next.Total)
		}

		if netCredit.IsPositive() {
			monthly, annual := cet(q, netCredit, e.Schedule)
			w := netCredit.InexactFloat64()
			weightedMonthly += monthly * w
			weightedYr += annual * w
			weight += w
		}
	}

	if bidCount > 0 {
		n := decimal.NewFromInt(int64(bidCount))
		dash.AvgTotalBidPercent = sumTotalBidPct.Div(n)
		dash.AvgFreeBidPercent = sumFreeBid.Div(n)
	}
	if weight > 0 {
		dash.MonthlyCET = decimal.NewFromFloat(weightedMonthly / weight * 100).Round(4)
		dash.AnnualCET = decimal.NewFromFloat(weightedYr / weight * 100).Round(4)
	}

	contract := dash.TotalPaid.Add(dash.TotalToPay)
	dash.PercentPaid = consortium.Percent(dash.TotalPaid, contract)
	dash.PercentToPay = consortium.Percent(dash.TotalToPay, contract)
	dash.AvailableCredit = dash.NetCredit.Add(dash.ManualAdjustments).Sub(dash.CreditUsed)

	sort.SliceStable(dash.NextMaturities, func(i, j int) bool {
		return dash.NextMaturities[i].DueDate.Before(dash.NextMaturities[j].DueDate)
	})
	return dash
}

// accumulatePayments adds one quota's paid, to-pay and reserve fund figures
// to dash and returns its first installment due after at.
func accumulatePayments(dash *Dashboard, rows []consortium.Installment, at time.Time) (consortium.Installment, bool) {
	var (
		next  consortium.Installment
		found bool
	)
	for _, row := range rows {
		components := row.CommonFund.Add(row.AdminFee).Add(row.ReserveFund)
		dash.ReserveFund = dash.ReserveFund.Add(row.ReserveFund)

		if calendar.OnOrBefore(row.DueDate, at) {
			paid := components.Add(orZero(row.ManualFine)).Add(orZero(row.ManualInterest))
			dash.TotalPaid = dash.TotalPaid.Add(paid)
		} else {
			dash.TotalToPay = dash.TotalToPay.Add(components)
			if !found {
				next, found = row, true
			}
		}

		if row.Bid != nil && row.Bid.Amount.IsPositive() {
			dash.TotalPaid = dash.TotalPaid.Add(row.Bid.AbatementTotal())
			dash.ReserveFund = dash.ReserveFund.Add(row.Bid.AbatementFR())
		}
	}
	return next, found
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
