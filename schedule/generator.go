/*
Package schedule builds the amortization schedule of a consortium quota and
layers recorded payments over it.

PURPOSE:
  The schedule is never stored. It is regenerated from the quota terms and
  the index table on every read, then merged with the persisted payment
  overrides (see merge.go). Generation is pure: the only outside input is
  the clock, injected through Generator.Now.

STATE MACHINE:
  Each installment i = 1..term goes through the same steps:

    1. due date       first due date, then first due + (i-1) months pinned
                      to the due day, rolled to the next business day
    2. correction     on every 12th-month boundary, by the rate of the
                      month before the anniversary (if published, positive
                      and not in the future)
    3. bid            once, on the first row due on/after contemplation
    4. rates          per payment plan (rates.go)
    5. amounts        rate% of the current credit value, to the cent

  The running percentages, the deferred semi-annual carry and the
  bid-processed flag live in a local state value threaded through the loop.

SEE ALSO:
  - bid.go: bid decomposition across FC/TA/FR
  - rates.go: monthly rate per payment plan
  - merge.go: payment overrides
  - correction/credit.go: same anniversary rule, without the schedule
*/
package schedule

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/consorcio/calendar"
	"github.com/warp/consorcio/consortium"
	"github.com/warp/consorcio/correction"
)

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.RequireFromString("0.5")
)

// components holds one value per installment component.
type components struct {
	FC decimal.Decimal
	TA decimal.Decimal
	FR decimal.Decimal
}

func (c components) sum() decimal.Decimal {
	return c.FC.Add(c.TA).Add(c.FR)
}

func (c components) sub(o components) components {
	return components{FC: c.FC.Sub(o.FC), TA: c.TA.Sub(o.TA), FR: c.FR.Sub(o.FR)}
}

func (c components) div(n decimal.Decimal) components {
	return components{FC: c.FC.Div(n), TA: c.TA.Div(n), FR: c.FR.Div(n)}
}

func (c components) round(places int32) components {
	return components{FC: c.FC.Round(places), TA: c.TA.Round(places), FR: c.FR.Round(places)}
}

// state is carried from one installment to the next.
type state struct {
	credit       decimal.Decimal // current corrected credit value
	remaining    components      // % still owed per component, signed
	deferred     components      // semi-annual carry, in %
	bidProcessed bool
}

// Generator produces schedules. The zero value is usable and reads the
// system clock.
type Generator struct {
	// Now returns the current time. Correction rates for months after Now
	// are never applied.
	Now func() time.Time

	Logger *zap.Logger
}

// NewGenerator creates a generator with the system clock.
func NewGenerator(logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{Now: time.Now, Logger: logger}
}

// Generate is shorthand for a zero Generator's Generate.
func Generate(q consortium.Quota, table *correction.Table) ([]consortium.Installment, error) {
	return (&Generator{}).Generate(q, table)
}

// Generate returns the theoretical schedule of q, one row per month of the
// term. A quota without a first due date or with a zero term is not yet
// schedulable and yields an empty schedule. A negative term or credit value
// is an error.
func (g *Generator) Generate(q consortium.Quota, table *correction.Table) ([]consortium.Installment, error) {
	if q.TermMonths < 0 {
		return nil, &consortium.ValidationError{Field: "term_months", Message: "must not be negative"}
	}
	if q.CreditValue.IsNegative() {
		return nil, &consortium.ValidationError{Field: "credit_value", Message: "must not be negative"}
	}
	if q.PaymentPlan != "" && !q.PaymentPlan.Valid() {
		return nil, &consortium.ValidationError{Field: "payment_plan", Message: "unknown plan " + string(q.PaymentPlan)}
	}
	if q.BidBase != "" && !q.BidBase.Valid() {
		return nil, &consortium.ValidationError{Field: "bid_base", Message: "unknown bid base " + string(q.BidBase)}
	}
	if q.TermMonths == 0 || q.FirstDueDate.IsZero() {
		return []consortium.Installment{}, nil
	}

	today := calendar.Truncate(g.now())
	term := q.TermMonths
	termDec := decimal.NewFromInt(int64(term))
	firstDue := calendar.Truncate(q.FirstDueDate)
	anchorMonth := calendar.StartOfMonth(q.AnchorDate())

	st := &state{
		credit: q.CreditValue,
		remaining: components{
			FC: hundred,
			TA: q.AdminFeeRate,
			FR: q.ReserveFundRate,
		},
	}

	out := make([]consortium.Installment, 0, term)
	for i := 1; i <= term; i++ {
		due := dueDate(firstDue, i, q.EffectiveDueDay())
		row := consortium.Installment{Number: i, DueDate: due}

		// Annual correction
		if i > 1 && (i-1)%12 == 0 {
			row.Correction = g.correct(q, table, st, calendar.AddMonths(anchorMonth, i-2), today)
		}

		// Bid
		if !st.bidProcessed && q.HasContemplationDate() && calendar.OnOrBefore(q.ContemplationDate, due) {
			st.bidProcessed = true
			row.Bid = settleBid(q, st)
			g.logger().Debug("bid settled",
				zap.String("op", "schedule.Generate"),
				zap.String("quota", q.Key()),
				zap.Int("installment", i),
				zap.String("amount", row.Bid.Amount.String()),
				zap.String("calc_base", row.Bid.CalcBase.String()))
		}

		// Rates and amounts
		monthsLeft := decimal.NewFromInt(int64(term - i + 1))
		rate := monthlyRates(q, st, i, term, termDec, monthsLeft, due)
		amount := components{
			FC: rate.FC.Div(hundred).Mul(st.credit).Round(2),
			TA: rate.TA.Div(hundred).Mul(st.credit).Round(2),
			FR: rate.FR.Div(hundred).Mul(st.credit).Round(2),
		}
		st.remaining = st.remaining.sub(rate)

		row.CommonFund = amount.FC
		row.AdminFee = amount.TA
		row.ReserveFund = amount.FR
		row.Total = amount.sum()
		row.MonthlyRateFC = rate.FC
		row.MonthlyRateTA = rate.TA
		row.MonthlyRateFR = rate.FR
		fillBalances(&row, st)

		out = append(out, row)
	}
	return out, nil
}

func (g *Generator) now() time.Time {
	if g.Now == nil {
		return time.Now()
	}
	return g.Now()
}

func (g *Generator) logger() *zap.Logger {
	if g.Logger == nil {
		return zap.NewNop()
	}
	return g.Logger
}

// dueDate computes the due date of installment i.
func dueDate(firstDue time.Time, i, dueDay int) time.Time {
	if i == 1 {
		return calendar.NextBusinessDay(firstDue)
	}
	d := calendar.WithDay(calendar.AddMonths(firstDue, i-1), dueDay)
	return calendar.NextBusinessDay(d)
}

// correct applies the annual correction for the lookup month, if any.
func (g *Generator) correct(q consortium.Quota, table *correction.Table, st *state, month, today time.Time) consortium.CorrectionEvent {
	if month.After(today) {
		return consortium.CorrectionEvent{}
	}
	rate, ok := table.PositiveRate(q.CorrectionIndex, month)
	if !ok {
		g.logger().Debug("no correction rate",
			zap.String("op", "schedule.correct"),
			zap.String("quota", q.Key()),
			zap.String("index", string(q.CorrectionIndex)),
			zap.String("month", calendar.MonthKey(month)))
		return consortium.CorrectionEvent{}
	}

	st.credit = correction.Grow(st.credit, rate)
	g.logger().Debug("correction applied",
		zap.String("op", "schedule.correct"),
		zap.String("quota", q.Key()),
		zap.String("index", string(q.CorrectionIndex)),
		zap.String("month", calendar.MonthKey(month)),
		zap.String("rate", rate.String()),
		zap.String("credit", st.credit.String()))
	return consortium.CorrectionEvent{
		Applied:   true,
		Factor:    rate.Div(hundred),
		IndexName: q.CorrectionIndex,
	}
}

// fillBalances writes the post-payment balances of st onto row.
func fillBalances(row *consortium.Installment, st *state) {
	rem := st.remaining
	money := func(pct decimal.Decimal) decimal.Decimal {
		return pct.Div(hundred).Mul(st.credit).Round(2)
	}

	row.CorrectedCreditValue = st.credit
	row.BalanceFC = money(rem.FC)
	row.BalanceTA = money(rem.TA)
	row.BalanceFR = money(rem.FR)
	row.BalanceTotal = money(rem.sum())
	row.PercentBalanceFC = decimal.Max(decimal.Zero, rem.FC)
	row.PercentBalanceTA = decimal.Max(decimal.Zero, rem.TA)
	row.PercentBalanceFR = decimal.Max(decimal.Zero, rem.FR)
	row.PercentBalanceTotal = decimal.Max(decimal.Zero, rem.sum())
}
