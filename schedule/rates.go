package schedule

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/consorcio/consortium"
)

// ratePlaces is the precision of every non-final monthly rate.
const ratePlaces = 4

// monthlyRates returns the % of the credit value paid per component on
// installment i. The last installment always settles exactly what is left.
func monthlyRates(q consortium.Quota, st *state, i, term int, termDec, monthsLeft decimal.Decimal, due time.Time) components {
	if i == term {
		return st.remaining
	}

	switch q.PaymentPlan {
	case consortium.PlanSemiAnnual:
		return semiAnnualRates(st, i, monthsLeft)
	case consortium.PlanReduced:
		return reducedRates(q, st, i, term, termDec, monthsLeft, due)
	case consortium.PlanNormal, "":
		return st.remaining.div(monthsLeft).round(ratePlaces)
	}
	// Generate rejects unknown plans before the loop.
	panic(fmt.Sprintf("schedule: unknown payment plan %q", q.PaymentPlan))
}

// semiAnnualRates pays half the proportional target on months 1-5 of each
// six-month cycle and the target plus everything deferred on month 6.
func semiAnnualRates(st *state, i int, monthsLeft decimal.Decimal) components {
	target := st.remaining.div(monthsLeft)

	if i%6 == 0 {
		rate := components{
			FC: target.FC.Add(st.deferred.FC),
			TA: target.TA.Add(st.deferred.TA),
			FR: target.FR.Add(st.deferred.FR),
		}.round(ratePlaces)
		st.deferred = components{}
		return rate
	}

	rate := components{
		FC: target.FC.Mul(half),
		TA: target.TA.Mul(half),
		FR: target.FR.Mul(half),
	}.round(ratePlaces)
	carry := target.sub(rate)
	st.deferred = components{
		FC: st.deferred.FC.Add(carry.FC),
		TA: st.deferred.TA.Add(carry.TA),
		FR: st.deferred.FR.Add(carry.FR),
	}
	return rate
}

// reducedRates halves the flat FC share during the first half of the term
// while the quota is not contemplated. TA and FR are never reduced.
func reducedRates(q consortium.Quota, st *state, i, term int, termDec, monthsLeft decimal.Decimal, due time.Time) components {
	rate := st.remaining.div(monthsLeft).round(ratePlaces)

	halfTerm := (term + 1) / 2
	notYetContemplated := !q.IsContemplated || (!q.ContemplationDate.IsZero() && q.ContemplationDate.After(due))
	if i <= halfTerm && notYetContemplated {
		rate.FC = hundred.Div(termDec).Mul(half).Round(ratePlaces)
	}
	return rate
}
