package schedule

import (
	"github.com/shopspring/decimal"

	"github.com/warp/consorcio/consortium"
)

// Merge layers recorded payments over a theoretical schedule. The input is
// not modified.
//
// Every override that departs from the theoretical amount carries the
// difference forward: paying X less than due on installment k raises the
// balance of that component by X on k and every later row. Rows with an
// override are marked paid regardless of their due date.
func Merge(schedule []consortium.Installment, overrides consortium.Overrides) []consortium.Installment {
	out := make([]consortium.Installment, len(schedule))

	var diff components
	for idx, row := range schedule {
		ov, paid := overrides[row.Number]

		fc := pick(row.CommonFund, ov.FC, &diff.FC)
		ta := pick(row.AdminFee, ov.TA, &diff.TA)
		fr := pick(row.ReserveFund, ov.FR, &diff.FR)

		row.ManualFC = ov.FC
		row.ManualTA = ov.TA
		row.ManualFR = ov.FR
		row.ManualFine = ov.Fine
		row.ManualInterest = ov.Interest
		row.RealAmountPaid = ov.AmountPaid
		row.IsPaid = paid

		row.CommonFund = fc
		row.AdminFee = ta
		row.ReserveFund = fr
		row.Total = fc.Add(ta).Add(fr).Add(orZero(ov.Fine)).Add(orZero(ov.Interest))

		row.BalanceFC = decimal.Max(decimal.Zero, row.BalanceFC.Add(diff.FC))
		row.BalanceTA = decimal.Max(decimal.Zero, row.BalanceTA.Add(diff.TA))
		row.BalanceFR = decimal.Max(decimal.Zero, row.BalanceFR.Add(diff.FR))
		row.BalanceTotal = row.BalanceFC.Add(row.BalanceTA).Add(row.BalanceFR)

		credit := row.CorrectedCreditValue
		row.PercentBalanceFC = consortium.Percent(row.BalanceFC, credit)
		row.PercentBalanceTA = consortium.Percent(row.BalanceTA, credit)
		row.PercentBalanceFR = consortium.Percent(row.BalanceFR, credit)
		row.PercentBalanceTotal = consortium.Percent(row.BalanceTotal, credit)

		out[idx] = row
	}
	return out
}

// pick returns the override when set and accumulates its shortfall.
func pick(theoretical decimal.Decimal, override decimal.NullDecimal, diff *decimal.Decimal) decimal.Decimal {
	if !override.Valid {
		return theoretical
	}
	*diff = diff.Add(theoretical.Sub(override.Decimal))
	return override.Decimal
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
