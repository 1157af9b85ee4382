package correction_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/warp/consorcio/calendar"
	"github.com/warp/consorcio/consortium"
	"github.com/warp/consorcio/correction"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func incc(year int, month time.Month, rate string) consortium.MonthlyIndex {
	return consortium.MonthlyIndex{Type: consortium.IndexINCC, Month: calendar.Date(year, month, 1), Rate: d(rate)}
}

func cdi(year int, month time.Month, rate string) consortium.MonthlyIndex {
	return consortium.MonthlyIndex{Type: consortium.IndexCDI, Month: calendar.Date(year, month, 1), Rate: d(rate)}
}

func quota() consortium.Quota {
	return consortium.Quota{
		CreditValue:     d("100000"),
		AdhesionDate:    calendar.Date(2024, time.January, 15),
		FirstDueDate:    calendar.Date(2024, time.February, 10),
		TermMonths:      60,
		CorrectionIndex: consortium.IndexINCC,
	}
}

// =============================================================================
// TABLE
// =============================================================================

func TestTable_LookupNormalizesMonth(t *testing.T) {
	table := correction.NewTable([]consortium.MonthlyIndex{
		{Type: consortium.IndexIPCA, Month: calendar.Date(2025, time.May, 17), Rate: d("0.4")},
		{Type: consortium.IndexIPCA, Month: calendar.Date(2025, time.May, 1), Rate: d("9")},
	})

	r, ok := table.Lookup(consortium.IndexIPCA, calendar.Date(2025, time.May, 30))
	assert.True(t, ok)
	assert.True(t, r.Rate.Equal(d("0.4")), "first row wins")
	assert.Equal(t, 1, table.Len())

	_, ok = table.Lookup(consortium.IndexINCC, calendar.Date(2025, time.May, 1))
	assert.False(t, ok)
}

func TestTable_PositiveRateSkipsNonPositive(t *testing.T) {
	table := correction.NewTable([]consortium.MonthlyIndex{incc(2025, time.March, "-0.3"), incc(2025, time.April, "0")})

	_, ok := table.PositiveRate(consortium.IndexINCC, calendar.Date(2025, time.March, 1))
	assert.False(t, ok)
	_, ok = table.PositiveRate(consortium.IndexINCC, calendar.Date(2025, time.April, 1))
	assert.False(t, ok)
}

func TestTable_BetweenIsOrderedAndInclusive(t *testing.T) {
	table := correction.NewTable([]consortium.MonthlyIndex{
		cdi(2025, time.April, "1"), cdi(2025, time.January, "1"), cdi(2025, time.March, "1"),
		cdi(2025, time.May, "1"), incc(2025, time.March, "1"),
	})

	got := table.Between(consortium.IndexCDI, calendar.Date(2025, time.March, 20), calendar.Date(2025, time.April, 2))
	if assert.Len(t, got, 2) {
		assert.Equal(t, time.March, got[0].Month.Month())
		assert.Equal(t, time.April, got[1].Month.Month())
	}
}

func TestTable_NilIsEmpty(t *testing.T) {
	var table *correction.Table
	_, ok := table.Lookup(consortium.IndexINCC, time.Now())
	assert.False(t, ok)
	assert.Empty(t, table.Between(consortium.IndexCDI, time.Time{}, time.Now()))
}

// =============================================================================
// CURRENT CREDIT VALUE
// =============================================================================

func TestCurrentCreditValue_AppliesOnAnniversary(t *testing.T) {
	// GIVEN: Adhesion 2024-01-15, INCC for December 2024
	table := correction.NewTable([]consortium.MonthlyIndex{incc(2024, time.December, "5")})
	q := quota()

	// THEN: The day before the anniversary keeps the original value
	assert.True(t, correction.CurrentCreditValue(q, table, calendar.Date(2025, time.January, 14)).Equal(d("100000")))
	assert.True(t, correction.CurrentCreditValue(q, table, calendar.Date(2025, time.January, 15)).Equal(d("105000")))
	assert.True(t, correction.CurrentCreditValue(q, table, calendar.Date(2027, time.June, 1)).Equal(d("105000")))
}

func TestCurrentCreditValue_FallsBackToFirstDueDate(t *testing.T) {
	table := correction.NewTable([]consortium.MonthlyIndex{incc(2025, time.January, "3")})
	q := quota()
	q.AdhesionDate = time.Time{}

	assert.True(t, correction.CurrentCreditValue(q, table, calendar.Date(2025, time.February, 10)).Equal(d("103000")))
}

func TestCurrentCreditValue_StopsAtContemplation(t *testing.T) {
	table := correction.NewTable([]consortium.MonthlyIndex{incc(2024, time.December, "5"), incc(2025, time.December, "4")})
	q := quota()
	q.IsContemplated = true
	q.ContemplationDate = calendar.Date(2025, time.June, 1)

	assert.True(t, correction.CurrentCreditValue(q, table, calendar.Date(2030, time.January, 1)).Equal(d("105000")))
}

func TestCurrentCreditValue_Monotonic(t *testing.T) {
	table := correction.NewTable([]consortium.MonthlyIndex{
		incc(2024, time.December, "5"), incc(2025, time.December, "0"), incc(2026, time.December, "2.5"),
	})
	q := quota()

	prev := decimal.Zero
	for day := calendar.Date(2024, time.January, 1); day.Before(calendar.Date(2029, time.January, 1)); day = day.AddDate(0, 0, 11) {
		v := correction.CurrentCreditValue(q, table, day)
		assert.True(t, v.GreaterThanOrEqual(prev), "value dropped on %s", calendar.Format(day))
		prev = v
	}
}

func TestCurrentCreditValue_CapsAnniversaries(t *testing.T) {
	// GIVEN: 200 years of 1% December rates
	var rows []consortium.MonthlyIndex
	for y := 1900; y < 2100; y++ {
		rows = append(rows, incc(y, time.December, "1"))
	}
	q := quota()
	q.AdhesionDate = calendar.Date(1900, time.January, 1)

	// WHEN: Asking for the value two centuries later
	got := correction.CurrentCreditValue(q, correction.NewTable(rows), calendar.Date(2100, time.June, 1))

	// THEN: Only the first 100 anniversaries count
	want := d("100000")
	for i := 0; i < correction.MaxAnniversaries; i++ {
		want = correction.Grow(want, d("1"))
	}
	assert.True(t, got.Equal(want))
}

func TestCurrentCreditValue_NoAnchor(t *testing.T) {
	q := quota()
	q.AdhesionDate = time.Time{}
	q.FirstDueDate = time.Time{}
	assert.True(t, correction.CurrentCreditValue(q, nil, time.Time{}).Equal(d("100000")))
}

// =============================================================================
// SAVINGS CORRECTION
// =============================================================================

func TestSavingsCorrection_CompoundsCDIAtNinetyTwoPercent(t *testing.T) {
	table := correction.NewTable([]consortium.MonthlyIndex{
		cdi(2025, time.January, "1"), cdi(2025, time.February, "1"), cdi(2025, time.March, "1"),
		cdi(2025, time.April, "1"), cdi(2025, time.May, "1"), cdi(2025, time.June, "1"),
		incc(2025, time.April, "7"),
	})

	got := correction.SavingsCorrection(d("10000"), calendar.Date(2025, time.March, 10), table, calendar.Date(2025, time.May, 20))

	m := d("1")
	for i := 0; i < 3; i++ {
		m = correction.Grow(m, d("0.92"))
	}
	want := d("10000").Mul(m).Sub(d("10000"))
	assert.True(t, got.Equal(want), "want %s got %s", want, got)
	assert.True(t, got.GreaterThan(d("278")) && got.LessThan(d("279")), got.String())
}

func TestSavingsCorrection_Degenerate(t *testing.T) {
	table := correction.NewTable([]consortium.MonthlyIndex{cdi(2025, time.January, "1")})
	asOf := calendar.Date(2025, time.December, 1)

	assert.True(t, correction.SavingsCorrection(d("0"), calendar.Date(2025, time.January, 1), table, asOf).IsZero())
	assert.True(t, correction.SavingsCorrection(d("-5"), calendar.Date(2025, time.January, 1), table, asOf).IsZero())
	assert.True(t, correction.SavingsCorrection(d("100"), time.Time{}, table, asOf).IsZero())
	assert.True(t, correction.SavingsCorrection(d("100"), calendar.Date(2026, time.January, 1), table, asOf).IsZero())
}
