package schedule_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/warp/consorcio/calendar"
	"github.com/warp/consorcio/consortium"
	"github.com/warp/consorcio/correction"
	"github.com/warp/consorcio/schedule"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func fixedGenerator(now time.Time) *schedule.Generator {
	return &schedule.Generator{Now: func() time.Time { return now }}
}

func baseQuota() consortium.Quota {
	return consortium.Quota{
		ID:              "q-1",
		Group:           "1000",
		QuotaNumber:     "1",
		CreditValue:     d("100000"),
		TermMonths:      12,
		AdminFeeRate:    d("10"),
		ReserveFundRate: d("2"),
		FirstDueDate:    calendar.Date(2025, time.January, 1),
		CorrectionIndex: consortium.IndexINCC,
		PaymentPlan:     consortium.PlanNormal,
	}.Normalize()
}

func generate(t *testing.T, q consortium.Quota, rows ...consortium.MonthlyIndex) []consortium.Installment {
	t.Helper()
	g := fixedGenerator(calendar.Date(2030, time.January, 1))
	out, err := g.Generate(q, correction.NewTable(rows))
	require.NoError(t, err)
	require.Len(t, out, q.TermMonths)
	return out
}

func assertNear(t *testing.T, want, got decimal.Decimal, tol string, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, want.Sub(got).Abs().LessThanOrEqual(d(tol)), append([]interface{}{"want %s got %s", want, got}, msgAndArgs...)...)
}

// =============================================================================
// INPUT EDGE CASES
// =============================================================================

func TestGenerate_NotSchedulableYieldsEmpty(t *testing.T) {
	q := baseQuota()
	q.FirstDueDate = time.Time{}
	out, err := schedule.Generate(q, nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	q = baseQuota()
	q.TermMonths = 0
	out, err = schedule.Generate(q, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestGenerate_RejectsNegativeInput(t *testing.T) {
	q := baseQuota()
	q.TermMonths = -3
	_, err := schedule.Generate(q, nil)
	assert.ErrorIs(t, err, consortium.ErrInvalidTerm)

	q = baseQuota()
	q.CreditValue = d("-1")
	_, err = schedule.Generate(q, nil)
	assert.ErrorIs(t, err, consortium.ErrInvalidQuota)
}

// =============================================================================
// DUE DATES
// =============================================================================

func TestGenerate_RejectsUnknownEnums(t *testing.T) {
	// GIVEN: A quota with a plan the generator does not know
	q := baseQuota()
	q.PaymentPlan = consortium.PaymentPlan("QUINZENAL")

	// WHEN: Generating
	_, err := schedule.Generate(q, nil)

	// THEN: It is rejected rather than treated as a normal plan
	require.Error(t, err)
	assert.ErrorIs(t, err, consortium.ErrInvalidQuota)
	assert.Contains(t, err.Error(), "payment_plan")

	// AND: The same holds for the bid base
	q = baseQuota()
	q.BidBase = consortium.BidBase("PARCELA")
	_, err = schedule.Generate(q, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bid_base")
}

func TestGenerate_LogsCorrectionsAndBids(t *testing.T) {
	// GIVEN: A generator logging at Debug into an observer
	core, logs := observer.New(zapcore.DebugLevel)
	g := &schedule.Generator{
		Now:    func() time.Time { return calendar.Date(2030, time.January, 1) },
		Logger: zap.New(core),
	}
	q := baseQuota()
	q.TermMonths = 24
	q.IsContemplated = true
	q.ContemplationDate = calendar.Date(2025, time.March, 1)
	q.BidEmbedded = d("5000")
	q = q.Normalize()
	table := correction.NewTable([]consortium.MonthlyIndex{
		{Type: consortium.IndexINCC, Month: calendar.Date(2025, time.December, 1), Rate: d("5")},
	})

	// WHEN: Generating a schedule with one correction (installment 13) and
	// one bid (installment 3, due 2025-03-25)
	_, err := g.Generate(q, table)
	require.NoError(t, err)

	// THEN: Both events are logged once
	applied := logs.FilterMessage("correction applied").All()
	require.Len(t, applied, 1)
	assert.Equal(t, "2025-12", applied[0].ContextMap()["month"])
	assert.Equal(t, "schedule.correct", applied[0].ContextMap()["op"])

	settled := logs.FilterMessage("bid settled").All()
	require.Len(t, settled, 1)
	assert.Equal(t, int64(3), settled[0].ContextMap()["installment"])
}

func TestGenerate_DueDates(t *testing.T) {
	// GIVEN: First due on a Saturday, due day 31
	q := baseQuota()
	q.FirstDueDate = calendar.Date(2025, time.March, 8)
	q.DueDay = 31
	q.TermMonths = 4

	out := generate(t, q)

	// THEN: Installment 1 rolls to Monday, later ones pin to the clamped due day
	assert.Equal(t, calendar.Date(2025, time.March, 10), out[0].DueDate)
	assert.Equal(t, calendar.Date(2025, time.April, 30), out[1].DueDate) // Wednesday
	assert.Equal(t, calendar.Date(2025, time.June, 2), out[2].DueDate)   // May 31 is a Saturday
	assert.Equal(t, calendar.Date(2025, time.June, 30), out[3].DueDate)
}

// =============================================================================
// NORMAL PLAN
// =============================================================================

func TestGenerate_NormalPlanTwelveMonths(t *testing.T) {
	out := generate(t, baseQuota())

	first := out[0]
	assert.True(t, first.MonthlyRateFC.Equal(d("8.3333")), first.MonthlyRateFC.String())
	assert.True(t, first.MonthlyRateTA.Equal(d("0.8333")), first.MonthlyRateTA.String())
	assert.True(t, first.MonthlyRateFR.Equal(d("0.1667")), first.MonthlyRateFR.String())
	assert.True(t, first.CommonFund.Equal(d("8333.30")), first.CommonFund.String())
	assert.True(t, first.AdminFee.Equal(d("833.30")), first.AdminFee.String())
	assert.True(t, first.ReserveFund.Equal(d("166.70")), first.ReserveFund.String())
	assert.True(t, first.Total.Equal(d("9333.30")), first.Total.String())

	// Every rate stays on the proportional share, re-spread over the months left
	for _, row := range out {
		assertNear(t, d("8.3333"), row.MonthlyRateFC, "0.001", "installment %d", row.Number)
		assertNear(t, d("0.8333"), row.MonthlyRateTA, "0.001", "installment %d", row.Number)
		assertNear(t, d("0.1667"), row.MonthlyRateFR, "0.001", "installment %d", row.Number)
	}

	last := out[11]
	assert.True(t, last.BalanceFC.IsZero())
	assert.True(t, last.BalanceTA.IsZero())
	assert.True(t, last.BalanceFR.IsZero())
	assert.True(t, last.PercentBalanceTotal.IsZero())
}

func TestGenerate_BalancesConvergeForEveryPlan(t *testing.T) {
	for _, plan := range []consortium.PaymentPlan{consortium.PlanNormal, consortium.PlanReduced, consortium.PlanSemiAnnual} {
		t.Run(string(plan), func(t *testing.T) {
			q := baseQuota()
			q.PaymentPlan = plan
			q.TermMonths = 75
			q.AdminFeeRate = d("17.5")
			q.ReserveFundRate = d("3")

			out := generate(t, q)

			sumFC := decimal.Zero
			for _, row := range out {
				sumFC = sumFC.Add(row.MonthlyRateFC)
			}
			assert.True(t, sumFC.Equal(d("100")), sumFC.String())

			last := out[len(out)-1]
			assert.True(t, last.PercentBalanceFC.IsZero())
			assert.True(t, last.PercentBalanceTA.IsZero())
			assert.True(t, last.PercentBalanceFR.IsZero())
		})
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	q := baseQuota()
	q.TermMonths = 48
	q.IsContemplated = true
	q.ContemplationDate = calendar.Date(2026, time.February, 3)
	q.BidEmbedded = d("15000")
	q.BidFree = d("7000")
	q = q.Normalize()
	rows := []consortium.MonthlyIndex{{Type: consortium.IndexINCC, Month: calendar.Date(2025, time.December, 1), Rate: d("4.2")}}

	assert.Equal(t, generate(t, q, rows...), generate(t, q, rows...))
}

// =============================================================================
// ANNUAL CORRECTION
// =============================================================================

func TestGenerate_AnnualCorrection(t *testing.T) {
	// GIVEN: Adhesion in January 2024, INCC published for December 2024 only
	q := baseQuota()
	q.AdhesionDate = calendar.Date(2024, time.January, 15)
	q.FirstDueDate = calendar.Date(2024, time.February, 10)
	q.TermMonths = 36
	rows := []consortium.MonthlyIndex{
		{Type: consortium.IndexINCC, Month: calendar.Date(2025, time.December, 1), Rate: d("5")},
		{Type: consortium.IndexIPCA, Month: calendar.Date(2025, time.December, 1), Rate: d("9")},
	}

	out := generate(t, q, rows...)

	// THEN: Row 13 is corrected by 5%, row 25 finds no INCC rate
	assert.False(t, out[11].Correction.Applied)
	assert.True(t, out[11].CorrectedCreditValue.Equal(d("100000")))

	assert.True(t, out[12].Correction.Applied)
	assert.True(t, out[12].Correction.Factor.Equal(d("0.05")))
	assert.Equal(t, consortium.IndexINCC, out[12].Correction.IndexName)
	assert.True(t, out[12].CorrectedCreditValue.Equal(d("105000")))

	assert.False(t, out[24].Correction.Applied)
	assert.True(t, out[24].CorrectedCreditValue.Equal(d("105000")))

	// Amounts follow the corrected value
	assert.True(t, out[12].CommonFund.Equal(out[12].MonthlyRateFC.Div(d("100")).Mul(d("105000")).Round(2)))
}

func TestGenerate_FutureRatesAreIgnored(t *testing.T) {
	q := baseQuota()
	q.AdhesionDate = calendar.Date(2024, time.January, 15)
	q.TermMonths = 24
	rows := []consortium.MonthlyIndex{{Type: consortium.IndexINCC, Month: calendar.Date(2024, time.December, 1), Rate: d("5")}}

	g := fixedGenerator(calendar.Date(2024, time.June, 1))
	out, err := g.Generate(q, correction.NewTable(rows))
	require.NoError(t, err)

	assert.False(t, out[12].Correction.Applied)
	assert.True(t, out[12].CorrectedCreditValue.Equal(d("100000")))
}

// =============================================================================
// BIDS
// =============================================================================

func bidRow(t *testing.T, out []consortium.Installment) consortium.Installment {
	t.Helper()
	var found []consortium.Installment
	for _, row := range out {
		if row.Bid != nil {
			found = append(found, row)
		}
	}
	require.Len(t, found, 1, "the bid is settled exactly once")
	return found[0]
}

func TestGenerate_BidConservation(t *testing.T) {
	q := baseQuota()
	q.TermMonths = 100
	q.AdminFeeRate = d("16")
	q.ReserveFundRate = d("2.5")
	q.IsContemplated = true
	q.ContemplationDate = calendar.Date(2026, time.March, 15)
	q.BidEmbedded = d("12345.67")
	q.BidFree = d("5000.01")
	q = q.Normalize()

	row := bidRow(t, generate(t, q))

	// First installment due on/after contemplation
	assert.Equal(t, calendar.Date(2026, time.March, 25), row.DueDate)

	emb := row.Bid.Embedded
	assert.True(t, emb.AbatementFC.Add(emb.AbatementTA).Add(emb.AbatementFR).Equal(d("12345.67")))
	free := row.Bid.Free
	assert.True(t, free.AbatementFC.Add(free.AbatementTA).Add(free.AbatementFR).Equal(d("5000.01")))
	assert.True(t, row.Bid.Amount.Equal(d("17345.68")))
	assert.True(t, row.Bid.AbatementTotal().Equal(d("17345.68")))

	// Weighted by what is left: FC carries most of it
	assert.True(t, emb.AbatementFC.GreaterThan(emb.AbatementTA))
	assert.True(t, emb.AbatementTA.GreaterThan(emb.AbatementFR))
}

func TestGenerate_BidBeforeFirstDueLandsOnInstallmentOne(t *testing.T) {
	q := baseQuota()
	q.IsContemplated = true
	q.ContemplationDate = calendar.Date(2024, time.November, 20)
	q.BidEmbedded = d("10000")
	q = q.Normalize()

	out := generate(t, q)
	row := bidRow(t, out)
	assert.Equal(t, 1, row.Number)

	// 10000 over 112% remaining: FC 8928.57, TA 892.86, FR the rest
	assert.True(t, row.Bid.Embedded.AbatementFC.Equal(d("8928.57")), row.Bid.Embedded.AbatementFC.String())
	assert.True(t, row.Bid.Embedded.AbatementTA.Equal(d("892.86")), row.Bid.Embedded.AbatementTA.String())
	assert.True(t, row.Bid.Embedded.AbatementFR.Equal(d("178.57")), row.Bid.Embedded.AbatementFR.String())
	assert.True(t, row.Bid.Embedded.Percent.Equal(d("10")))

	// Balances still converge after the abatement
	last := out[len(out)-1]
	assert.True(t, last.PercentBalanceFC.IsZero())
}

func TestGenerate_BidPercentUsesCalculationBase(t *testing.T) {
	q := baseQuota()
	q.IsContemplated = true
	q.ContemplationDate = calendar.Date(2024, time.November, 20)
	q.BidEmbedded = d("11200")
	q.BidBase = consortium.BidBaseTotalProject
	q = q.Normalize()

	row := bidRow(t, generate(t, q))

	// Total project is 112000: the bid is 10% of it, but abatements are
	// still measured against the 100000 credit
	assert.True(t, row.Bid.CalcBase.Equal(d("112000")))
	assert.True(t, row.Bid.Embedded.Percent.Equal(d("10")))
	assert.True(t, row.Bid.Embedded.PercentFC.Equal(d("10")), row.Bid.Embedded.PercentFC.String())
}

func TestGenerate_BidWithNothingLeftGoesToFR(t *testing.T) {
	// GIVEN: An embedded bid of the whole 112% debt, plus a free bid, both
	// settled on installment 1
	q := baseQuota()
	q.IsContemplated = true
	q.ContemplationDate = calendar.Date(2024, time.November, 20)
	q.BidEmbedded = d("112000")
	q.BidFree = d("100")
	q = q.Normalize()

	// WHEN: Generating
	var out []consortium.Installment
	require.NotPanics(t, func() { out = generate(t, q) })

	// THEN: The embedded bid clears every component
	row := bidRow(t, out)
	assert.Equal(t, 1, row.Number)
	emb := row.Bid.Embedded
	assert.True(t, emb.AbatementFC.Equal(d("100000")), emb.AbatementFC.String())
	assert.True(t, emb.AbatementTA.Equal(d("10000")), emb.AbatementTA.String())
	assert.True(t, emb.AbatementFR.Equal(d("2000")), emb.AbatementFR.String())

	// AND: With no remaining weight the free bid lands entirely on FR
	free := row.Bid.Free
	assert.True(t, free.AbatementFC.IsZero(), free.AbatementFC.String())
	assert.True(t, free.AbatementTA.IsZero(), free.AbatementTA.String())
	assert.True(t, free.AbatementFR.Equal(d("100")), free.AbatementFR.String())
	assert.True(t, free.PercentFR.Equal(d("0.1")), free.PercentFR.String())
}

func TestGenerate_BidOnZeroCreditHasZeroPercentages(t *testing.T) {
	// GIVEN: A quota with no credit value and an embedded bid
	q := baseQuota()
	q.CreditValue = decimal.Zero
	q.IsContemplated = true
	q.ContemplationDate = calendar.Date(2024, time.November, 20)
	q.BidEmbedded = d("1000")
	q = q.Normalize()

	// WHEN: Generating
	var out []consortium.Installment
	require.NotPanics(t, func() { out = generate(t, q) })

	// THEN: The amount is still split, but every percentage is 0
	emb := bidRow(t, out).Bid.Embedded
	assert.True(t, emb.AbatementFC.Add(emb.AbatementTA).Add(emb.AbatementFR).Equal(d("1000")))
	assert.True(t, emb.Percent.IsZero(), emb.Percent.String())
	assert.True(t, emb.PercentFC.IsZero(), emb.PercentFC.String())
	assert.True(t, emb.PercentTA.IsZero(), emb.PercentTA.String())
	assert.True(t, emb.PercentFR.IsZero(), emb.PercentFR.String())
	for _, row := range out {
		assert.True(t, row.Total.IsZero(), "installment %d: %s", row.Number, row.Total)
	}
}

func TestGenerate_ContemplatedWithoutDateNeverSettlesBid(t *testing.T) {
	q := baseQuota()
	q.IsContemplated = true
	q.BidFree = d("5000")
	q = q.Normalize()

	for _, row := range generate(t, q) {
		assert.Nil(t, row.Bid)
	}
}

// =============================================================================
// REDUCED PLAN
// =============================================================================

func TestGenerate_ReducedPlanHalvesFCForHalfTheTerm(t *testing.T) {
	q := baseQuota()
	q.PaymentPlan = consortium.PlanReduced
	q.TermMonths = 80

	out := generate(t, q)

	for _, row := range out[:40] {
		assert.True(t, row.MonthlyRateFC.Equal(d("0.625")), "installment %d: %s", row.Number, row.MonthlyRateFC)
		assert.True(t, row.MonthlyRateTA.Equal(d("0.125")), "installment %d: %s", row.Number, row.MonthlyRateTA)
	}
	// 75% left over 40 months
	assert.True(t, out[40].MonthlyRateFC.Equal(d("1.875")), out[40].MonthlyRateFC.String())
	assert.True(t, out[40].MonthlyRateTA.Equal(d("0.125")))
}

func TestGenerate_ReducedPlanEndsAtContemplation(t *testing.T) {
	q := baseQuota()
	q.PaymentPlan = consortium.PlanReduced
	q.TermMonths = 80
	q.IsContemplated = true

	out := generate(t, q)
	q.ContemplationDate = out[29].DueDate
	out = generate(t, q)

	for _, row := range out[:29] {
		assert.True(t, row.MonthlyRateFC.Equal(d("0.625")), "installment %d", row.Number)
	}
	// 81.875% left over 51 months
	assert.True(t, out[29].MonthlyRateFC.Equal(d("1.6054")), out[29].MonthlyRateFC.String())
}

// =============================================================================
// SEMI-ANNUAL PLAN
// =============================================================================

func TestGenerate_SemiAnnualDefersHalfAndCatchesUp(t *testing.T) {
	q := baseQuota()
	q.PaymentPlan = consortium.PlanSemiAnnual
	q.TermMonths = 60
	q.AdminFeeRate = d("12")

	out := generate(t, q)

	prev := d("100")
	deferred := decimal.Zero
	targets := decimal.Zero
	paid := decimal.Zero
	for i := 1; i <= 6; i++ {
		row := out[i-1]
		target := prev.Div(decimal.NewFromInt(int64(60 - i + 1)))
		targets = targets.Add(target)
		paid = paid.Add(row.MonthlyRateFC)

		if i < 6 {
			assert.True(t, row.MonthlyRateFC.Equal(target.Mul(d("0.5")).Round(4)), "installment %d", i)
			deferred = deferred.Add(target.Sub(row.MonthlyRateFC))
		} else {
			assert.True(t, row.MonthlyRateFC.Equal(target.Add(deferred).Round(4)), "installment 6")
		}
		prev = row.PercentBalanceFC
	}

	// The cycle as a whole pays the proportional share
	assertNear(t, targets, paid, "0.0001")
	assert.True(t, out[5].MonthlyRateFC.GreaterThan(out[4].MonthlyRateFC.Mul(d("4"))))
}
