package consortium

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Normalize fills defaults and recomputes derived fields. BidTotal is never
// taken from input: it is always BidFree + BidEmbedded.
func (q Quota) Normalize() Quota {
	q.Group = strings.TrimSpace(q.Group)
	q.QuotaNumber = strings.TrimSpace(q.QuotaNumber)
	if q.DueDay <= 0 {
		q.DueDay = DefaultDueDay
	}
	if q.PaymentPlan == "" {
		q.PaymentPlan = PlanNormal
	}
	if q.BidBase == "" {
		q.BidBase = BidBaseCredit
	}
	q.BidTotal = q.BidFree.Add(q.BidEmbedded)
	return q
}

// Validate checks the fields a quota must carry before it is stored. All
// violations are reported together.
func (q Quota) Validate() error {
	var errs []error
	invalid := func(field, msg string) {
		errs = append(errs, &ValidationError{Field: field, Message: msg})
	}

	if q.Group == "" {
		invalid("group", "is required")
	}
	if q.QuotaNumber == "" {
		invalid("quota_number", "is required")
	}
	if !q.CreditValue.IsPositive() {
		invalid("credit_value", "must be positive")
	}
	if q.TermMonths <= 0 {
		invalid("term_months", "must be positive")
	}
	if q.AdminFeeRate.IsNegative() {
		invalid("admin_fee_rate", "must not be negative")
	}
	if q.ReserveFundRate.IsNegative() {
		invalid("reserve_fund_rate", "must not be negative")
	}
	if q.FirstDueDate.IsZero() {
		invalid("first_due_date", "is required")
	}
	if q.DueDay < 0 || q.DueDay > 31 {
		invalid("due_day", "must be between 1 and 31")
	}
	if !q.CorrectionIndex.Valid() {
		invalid("correction_index", fmt.Sprintf("unknown index %q", q.CorrectionIndex))
	}
	if q.PaymentPlan != "" && !q.PaymentPlan.Valid() {
		invalid("payment_plan", fmt.Sprintf("unknown plan %q", q.PaymentPlan))
	}
	if q.BidBase != "" && !q.BidBase.Valid() {
		invalid("bid_base", fmt.Sprintf("unknown bid base %q", q.BidBase))
	}
	if q.ProductType != "" && !q.ProductType.Valid() {
		invalid("product_type", fmt.Sprintf("unknown product type %q", q.ProductType))
	}
	if q.BidFree.IsNegative() {
		invalid("bid_free", "must not be negative")
	}
	if q.BidEmbedded.IsNegative() {
		invalid("bid_embedded", "must not be negative")
	}
	if q.IsContemplated && q.ContemplationDate.IsZero() && q.BidTotal.IsPositive() {
		invalid("contemplation_date", "is required when a bid is recorded")
	}
	if !q.BidTotal.Equal(q.BidFree.Add(q.BidEmbedded)) {
		invalid("bid_total", "must equal bid_free + bid_embedded")
	} else if q.BidTotal.GreaterThan(q.ContractTotal()) {
		invalid("bid_total", "must not exceed the contract total")
	}

	return errors.Join(errs...)
}

// Validate checks an index observation.
func (m MonthlyIndex) Validate() error {
	if !m.Type.Valid() {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("unknown index %q", m.Type)}
	}
	if m.Month.IsZero() {
		return &ValidationError{Field: "date", Message: "is required"}
	}
	return nil
}

// Validate checks a credit usage entry.
func (u CreditUsage) Validate() error {
	if u.QuotaID == "" {
		return &ValidationError{Field: "quota_id", Message: "is required"}
	}
	if !u.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Message: "must be positive"}
	}
	if u.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "is required"}
	}
	return nil
}

// Percent returns part as a percentage of whole, or zero when whole is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100))
}
