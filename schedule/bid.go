package schedule

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/consorcio/consortium"
)

// bidCalcBase is the value the displayed "% of lance" is measured against:
// the credit value, or the total project value (credit plus both fees).
func bidCalcBase(q consortium.Quota, credit decimal.Decimal) decimal.Decimal {
	switch q.BidBase {
	case consortium.BidBaseTotalProject:
		fees := q.AdminFeeRate.Add(q.ReserveFundRate)
		return credit.Mul(decimal.NewFromInt(1).Add(fees.Div(hundred)))
	case consortium.BidBaseCredit, "":
		return credit
	}
	// Generate rejects unknown bases before the loop.
	panic(fmt.Sprintf("schedule: unknown bid base %q", q.BidBase))
}

// settleBid abates the embedded bid, then the free bid, from the running
// balances. Each amount is split by the weight of what is still owed per
// component, so a late bid leans toward whatever debt is left.
func settleBid(q consortium.Quota, st *state) *consortium.BidEvent {
	base := bidCalcBase(q, st.credit)
	ev := &consortium.BidEvent{
		Date:     q.ContemplationDate,
		Amount:   q.BidFree.Add(q.BidEmbedded),
		CalcBase: base,
	}
	if q.BidEmbedded.IsPositive() {
		ev.Embedded = distribute(q.BidEmbedded, base, st)
	}
	if q.BidFree.IsPositive() {
		ev.Free = distribute(q.BidFree, base, st)
	}
	return ev
}

// distribute splits amount across FC/TA/FR and subtracts the resulting
// percentages from st.remaining. FR takes the rounding remainder so the
// three shares always add up to amount. With nothing left to weigh against
// the whole amount lands on FR.
func distribute(amount, base decimal.Decimal, st *state) consortium.BidShare {
	total := st.remaining.sum()

	var mFC, mTA decimal.Decimal
	if !total.IsZero() {
		mFC = amount.Mul(st.remaining.FC).Div(total).Round(2)
		mTA = amount.Mul(st.remaining.TA).Div(total).Round(2)
	}
	mFR := amount.Sub(mFC).Sub(mTA).Round(2)

	// Abatements are measured against the credit value, the overall share
	// against the calculation base.
	share := consortium.BidShare{
		Applied:     amount,
		Percent:     consortium.Percent(amount, base),
		AbatementFC: mFC,
		AbatementTA: mTA,
		AbatementFR: mFR,
		PercentFC:   consortium.Percent(mFC, st.credit),
		PercentTA:   consortium.Percent(mTA, st.credit),
		PercentFR:   consortium.Percent(mFR, st.credit),
	}

	st.remaining = st.remaining.sub(components{FC: share.PercentFC, TA: share.PercentTA, FR: share.PercentFR})
	return share
}
