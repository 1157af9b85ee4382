package correction

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/consorcio/calendar"
	"github.com/warp/consorcio/consortium"
)

// MaxAnniversaries bounds the anniversary walk. 100 anniversaries cover
// 1200 months, far beyond any real contract term.
const MaxAnniversaries = 100

// CDIEffectiveShare is the part of the nominal CDI rate credited to bid-free
// amounts (gross-to-net yield haircut).
var CDIEffectiveShare = decimal.RequireFromString("0.92")

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Grow returns value * (1 + rate/100).
func Grow(value, rate decimal.Decimal) decimal.Decimal {
	return value.Mul(one.Add(rate.Div(hundred)))
}

// CurrentCreditValue returns the quota's credit value corrected up to the
// cutoff date. A zero cutoff means today. For contemplated quotas the cutoff
// is clamped to the contemplation date: the credit stops being corrected
// once it is granted.
//
// Starting from the anchor date (adhesion, else first due date), each
// 12-month anniversary on or before the cutoff applies the positive rate
// published for the month before the anniversary.
func CurrentCreditValue(q consortium.Quota, t *Table, cutoff time.Time) decimal.Decimal {
	value := q.CreditValue
	start := q.AnchorDate()
	if start.IsZero() {
		return value
	}
	start = calendar.Truncate(start)

	if cutoff.IsZero() {
		cutoff = calendar.Today()
	}
	cutoff = calendar.Truncate(cutoff)
	if q.HasContemplationDate() && q.ContemplationDate.Before(cutoff) {
		cutoff = calendar.Truncate(q.ContemplationDate)
	}

	for n := 1; n <= MaxAnniversaries; n++ {
		anniversary := calendar.AddMonths(start, n*12)
		if anniversary.After(cutoff) {
			break
		}
		indexMonth := calendar.AddMonths(start, n*12-1)
		if rate, ok := t.PositiveRate(q.CorrectionIndex, indexMonth); ok {
			value = Grow(value, rate)
		}
	}
	return value
}

// SavingsCorrection returns how much a bid-free amount grew under CDI from
// the contemplation month to asOf (zero means today): every CDI observation
// in [start month, asOf month] compounds at 92% of its nominal rate. Only
// the delta is returned. Non-positive amounts and a missing start date
// yield zero.
func SavingsCorrection(amount decimal.Decimal, start time.Time, t *Table, asOf time.Time) decimal.Decimal {
	if !amount.IsPositive() || start.IsZero() {
		return decimal.Zero
	}
	if asOf.IsZero() {
		asOf = calendar.Today()
	}
	if calendar.StartOfMonth(start).After(asOf) {
		return decimal.Zero
	}

	multiplier := one
	for _, r := range t.Between(consortium.IndexCDI, start, asOf) {
		multiplier = Grow(multiplier, r.Rate.Mul(CDIEffectiveShare))
	}
	return amount.Mul(multiplier).Sub(amount)
}
