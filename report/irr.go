package report

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/warp/consorcio/consortium"
)

const (
	irrMaxIterations = 1000
	irrPrecision     = 1e-7
	irrGuess         = 0.01
)

// IRR returns the periodic internal rate of return of cashFlows, where
// cashFlows[t] happens at period t, using Newton-Raphson from guess. The
// second result is false when the iteration does not converge.
func IRR(cashFlows []float64, guess float64) (float64, bool) {
	rate := guess
	for i := 0; i < irrMaxIterations; i++ {
		var npv, dNpv float64
		for t, cf := range cashFlows {
			div := math.Pow(1+rate, float64(t))
			npv += cf / div
			dNpv -= float64(t) * cf / (div * (1 + rate))
		}

		if math.Abs(npv) < irrPrecision {
			return rate, true
		}
		// A flat NPV curve away from zero has no root to walk to.
		if math.Abs(dNpv) < irrPrecision {
			return 0, false
		}

		next := rate - npv/dNpv
		if !isFinite(next) {
			return 0, false
		}
		if math.Abs(next-rate) < irrPrecision {
			return next, true
		}
		rate = next
	}
	return 0, false
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// CashFlows returns the holder's flows for a quota: the net credit received
// at t=0, then every installment paid.
func CashFlows(netCredit decimal.Decimal, rows []consortium.Installment) []float64 {
	flows := make([]float64, 0, len(rows)+1)
	flows = append(flows, netCredit.InexactFloat64())
	for _, row := range rows {
		flows = append(flows, -row.Total.InexactFloat64())
	}
	return flows
}

// cet returns the monthly and annual effective cost of a quota as
// fractions. When the IRR does not converge the simple rate
// (admin fee + reserve fund) / term is used instead.
func cet(q consortium.Quota, netCredit decimal.Decimal, rows []consortium.Installment) (monthly, annual float64) {
	if irr, ok := IRR(CashFlows(netCredit, rows), irrGuess); ok {
		return irr, math.Pow(1+irr, 12) - 1
	}

	term := q.TermMonths
	if term <= 0 {
		term = 1
	}
	cost := q.AdminFeeRate.Add(q.ReserveFundRate).InexactFloat64()
	monthly = cost / float64(term) / 100
	return monthly, monthly * 12
}
