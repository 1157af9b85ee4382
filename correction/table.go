/*
Package correction looks up monthly correction indices and applies them.

PURPOSE:
  Consortium credit values are corrected once a year, on each 12-month
  anniversary of the contract, by the rate published for the month before
  the anniversary. Free bids paid by a contemplated quota are separately
  uprated by the CDI savings rate.

KEY TYPES:
  Table:              indexed view of the monthly observations
  CurrentCreditValue: corrected credit value as of a cutoff date
  SavingsCorrection:  CDI uprating of a bid-free amount

MISSING DATA:
  A missing observation is "no correction this cycle", never an error.
  Report aggregations must keep working on partial index tables.

SEE ALSO:
  - schedule/generator.go: applies the same anniversary rule row by row
  - consortium/types.go: MonthlyIndex
*/
package correction

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/consorcio/calendar"
	"github.com/warp/consorcio/consortium"
)

type key struct {
	Type  consortium.IndexType
	Month time.Time
}

// Table is an immutable lookup over monthly index observations.
type Table struct {
	rows  map[key]consortium.MonthlyIndex
	byTyp map[consortium.IndexType][]consortium.MonthlyIndex
}

// NewTable indexes rows by (type, month). Rows may come in any order. When
// two rows collide the first one wins; the stores reject collisions anyway.
func NewTable(rows []consortium.MonthlyIndex) *Table {
	t := &Table{
		rows:  make(map[key]consortium.MonthlyIndex, len(rows)),
		byTyp: make(map[consortium.IndexType][]consortium.MonthlyIndex),
	}
	for _, r := range rows {
		r.Month = calendar.StartOfMonth(r.Month)
		k := key{Type: r.Type, Month: r.Month}
		if _, exists := t.rows[k]; exists {
			continue
		}
		t.rows[k] = r
		t.byTyp[r.Type] = append(t.byTyp[r.Type], r)
	}
	for typ := range t.byTyp {
		list := t.byTyp[typ]
		sort.Slice(list, func(i, j int) bool { return list[i].Month.Before(list[j].Month) })
	}
	return t
}

// Len returns the number of distinct observations.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Lookup returns the observation for the month containing the given date.
func (t *Table) Lookup(typ consortium.IndexType, month time.Time) (consortium.MonthlyIndex, bool) {
	if t == nil {
		return consortium.MonthlyIndex{}, false
	}
	r, ok := t.rows[key{Type: typ, Month: calendar.StartOfMonth(month)}]
	return r, ok
}

// PositiveRate returns the rate for typ/month when one is published and is
// greater than zero. Negative and zero rates never reduce the credit value.
func (t *Table) PositiveRate(typ consortium.IndexType, month time.Time) (decimal.Decimal, bool) {
	r, ok := t.Lookup(typ, month)
	if !ok || !r.Rate.IsPositive() {
		return decimal.Zero, false
	}
	return r.Rate, true
}

// Between returns the observations of typ whose month lies in [from, to],
// both bounds taken at month granularity, oldest first.
func (t *Table) Between(typ consortium.IndexType, from, to time.Time) []consortium.MonthlyIndex {
	if t == nil {
		return nil
	}
	lo := calendar.StartOfMonth(from)
	hi := calendar.StartOfMonth(to)

	var out []consortium.MonthlyIndex
	for _, r := range t.byTyp[typ] {
		if r.Month.Before(lo) || r.Month.After(hi) {
			continue
		}
		out = append(out, r)
	}
	return out
}
