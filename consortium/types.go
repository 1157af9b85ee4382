/*
Package consortium holds the data model shared by the schedule engine, the
stores and the HTTP layer.

PURPOSE:
  A consortium ("consórcio") quota is a position in a pooled-purchase group.
  The holder pays monthly installments made of three components, each a
  percentage of the (annually corrected) credit value:

    FC - Fundo Comum (common fund), 100% over the term
    TA - Taxa Administrativa (admin fee), AdminFeeRate% over the term
    FR - Fundo de Reserva (reserve fund), ReserveFundRate% over the term

  Contemplation grants access to the credit before payoff, usually through a
  bid (lance). Embedded bids are funded from the credit itself, free bids are
  paid with outside money. Both abate the outstanding balances.

KEY TYPES IN THIS FILE:
  - Quota: the contract terms
  - MonthlyIndex: one (index type, month) correction rate observation
  - Installment: one computed schedule row
  - PaymentOverride: manual values recorded against one installment
  - CreditUsage, Administrator, Company: supporting records

PRECISION:
  Money and percentages are decimal.Decimal. Percentages are expressed in
  percent units (0.5 means 0.5%), as the index tables publish them.

SEE ALSO:
  - enums.go: IndexType, PaymentPlan, BidBase, ProductType
  - errors.go: sentinel and structured errors
  - schedule/generator.go: produces Installments from a Quota
*/
package consortium

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultDueDay is used when a quota has no fixed due day.
const DefaultDueDay = 25

// =============================================================================
// QUOTA - Contract terms
// =============================================================================

// Quota is a consortium contract position. Zero dates mean "not set".
type Quota struct {
	ID             string
	Group          string
	QuotaNumber    string
	ContractNumber string

	CreditValue       decimal.Decimal
	AdhesionDate      time.Time
	FirstAssemblyDate time.Time
	TermMonths        int
	AdminFeeRate      decimal.Decimal // % over the whole term
	ReserveFundRate   decimal.Decimal // % over the whole term
	ProductType       ProductType
	FirstDueDate      time.Time
	DueDay            int
	CorrectionIndex   IndexType
	PaymentPlan       PaymentPlan

	AdministratorID string
	CompanyID       string

	// Contemplation & bids
	IsContemplated    bool
	ContemplationDate time.Time
	BidFree           decimal.Decimal
	BidEmbedded       decimal.Decimal
	BidTotal          decimal.Decimal // always BidFree + BidEmbedded, see Normalize
	BidBase           BidBase

	// Report adjustments
	CreditManualAdjustment decimal.Decimal
	BidFreeCorrection      decimal.Decimal // derived from CDI, cached
}

// ContractTotal is the credit value plus admin fee and reserve fund, the
// most a member can owe before any correction.
func (q Quota) ContractTotal() decimal.Decimal {
	fees := q.AdminFeeRate.Add(q.ReserveFundRate)
	return q.CreditValue.Mul(decimal.NewFromInt(100).Add(fees)).Div(decimal.NewFromInt(100))
}

// EffectiveDueDay returns the fixed due day, defaulting to DefaultDueDay.
func (q Quota) EffectiveDueDay() int {
	if q.DueDay <= 0 {
		return DefaultDueDay
	}
	return q.DueDay
}

// AnchorDate is the date anniversaries are counted from: the adhesion date,
// or the first due date when adhesion is unknown.
func (q Quota) AnchorDate() time.Time {
	if !q.AdhesionDate.IsZero() {
		return q.AdhesionDate
	}
	return q.FirstDueDate
}

// HasContemplationDate reports whether the quota is contemplated and the
// contemplation date is known.
func (q Quota) HasContemplationDate() bool {
	return q.IsContemplated && !q.ContemplationDate.IsZero()
}

// Key returns the human contract key (group/quota number).
func (q Quota) Key() string {
	return q.Group + "/" + q.QuotaNumber
}

// =============================================================================
// MONTHLY INDEX - Correction rate observation
// =============================================================================

// MonthlyIndex is one published monthly rate for an index. Month is always
// the first day of the month. Rate is in percent and may be negative.
type MonthlyIndex struct {
	ID    string
	Type  IndexType
	Month time.Time
	Rate  decimal.Decimal
}

// =============================================================================
// INSTALLMENT - One schedule row
// =============================================================================

// Installment is a computed schedule row. Only overrides are persisted; the
// rest is regenerated on every read.
type Installment struct {
	Number  int
	DueDate time.Time

	// Monthly composition (money)
	CommonFund  decimal.Decimal
	AdminFee    decimal.Decimal
	ReserveFund decimal.Decimal
	Total       decimal.Decimal

	// Rates applied this month (% of the current credit value)
	MonthlyRateFC decimal.Decimal
	MonthlyRateTA decimal.Decimal
	MonthlyRateFR decimal.Decimal

	// Outstanding balances after this installment (money)
	BalanceFC    decimal.Decimal
	BalanceTA    decimal.Decimal
	BalanceFR    decimal.Decimal
	BalanceTotal decimal.Decimal

	// Outstanding balances after this installment (%, floored at 0)
	PercentBalanceFC    decimal.Decimal
	PercentBalanceTA    decimal.Decimal
	PercentBalanceFR    decimal.Decimal
	PercentBalanceTotal decimal.Decimal

	CorrectedCreditValue decimal.Decimal
	Correction           CorrectionEvent
	Bid                  *BidEvent // nil unless the bid was settled on this row

	// Manual overrides layered by the reconciler
	ManualFC       decimal.NullDecimal
	ManualTA       decimal.NullDecimal
	ManualFR       decimal.NullDecimal
	ManualFine     decimal.NullDecimal
	ManualInterest decimal.NullDecimal
	RealAmountPaid decimal.NullDecimal
	IsPaid         bool
}

// CorrectionEvent records an annual monetary correction.
type CorrectionEvent struct {
	Applied   bool
	Factor    decimal.Decimal // rate/100
	IndexName IndexType
}

// BidEvent records the bid settled on an installment.
type BidEvent struct {
	Date     time.Time
	Amount   decimal.Decimal // bid total
	CalcBase decimal.Decimal // credit or total-project value used for the % of lance
	Embedded BidShare
	Free     BidShare
}

// BidShare is the decomposition of one bid amount across FC/TA/FR.
type BidShare struct {
	Applied decimal.Decimal
	Percent decimal.Decimal // of the bid calculation base

	AbatementFC decimal.Decimal
	AbatementTA decimal.Decimal
	AbatementFR decimal.Decimal

	PercentFC decimal.Decimal // of the current credit value
	PercentTA decimal.Decimal
	PercentFR decimal.Decimal
}

// AbatementFC returns the FC abated by both bids.
func (b *BidEvent) AbatementFC() decimal.Decimal {
	if b == nil {
		return decimal.Zero
	}
	return b.Embedded.AbatementFC.Add(b.Free.AbatementFC)
}

// AbatementTA returns the TA abated by both bids.
func (b *BidEvent) AbatementTA() decimal.Decimal {
	if b == nil {
		return decimal.Zero
	}
	return b.Embedded.AbatementTA.Add(b.Free.AbatementTA)
}

// AbatementFR returns the FR abated by both bids.
func (b *BidEvent) AbatementFR() decimal.Decimal {
	if b == nil {
		return decimal.Zero
	}
	return b.Embedded.AbatementFR.Add(b.Free.AbatementFR)
}

// AbatementTotal returns everything abated by both bids.
func (b *BidEvent) AbatementTotal() decimal.Decimal {
	return b.AbatementFC().Add(b.AbatementTA()).Add(b.AbatementFR())
}

// =============================================================================
// PAYMENT OVERRIDE - Manual values for one installment
// =============================================================================

// PaymentOverride is keyed by (QuotaID, InstallmentNumber). Its presence
// marks the installment paid regardless of the due date.
type PaymentOverride struct {
	QuotaID           string
	InstallmentNumber int
	AmountPaid        decimal.NullDecimal
	FC                decimal.NullDecimal
	FR                decimal.NullDecimal
	TA                decimal.NullDecimal
	Fine              decimal.NullDecimal
	Interest          decimal.NullDecimal
	PaidAt            time.Time
}

// PaymentPatch carries the fields of an override write. Unset fields keep
// the value already stored.
type PaymentPatch struct {
	AmountPaid decimal.NullDecimal
	FC         decimal.NullDecimal
	FR         decimal.NullDecimal
	TA         decimal.NullDecimal
	Fine       decimal.NullDecimal
	Interest   decimal.NullDecimal
}

// Apply returns o with every set field of p written over it.
func (o PaymentOverride) Apply(p PaymentPatch) PaymentOverride {
	if p.AmountPaid.Valid {
		o.AmountPaid = p.AmountPaid
	}
	if p.FC.Valid {
		o.FC = p.FC
	}
	if p.FR.Valid {
		o.FR = p.FR
	}
	if p.TA.Valid {
		o.TA = p.TA
	}
	if p.Fine.Valid {
		o.Fine = p.Fine
	}
	if p.Interest.Valid {
		o.Interest = p.Interest
	}
	return o
}

// Overrides maps installment number to its override for one quota.
type Overrides map[int]PaymentOverride

// =============================================================================
// SUPPORTING RECORDS
// =============================================================================

// CreditUsage is a draw against a contemplated quota's available credit.
type CreditUsage struct {
	ID          string
	QuotaID     string
	Description string
	Date        time.Time
	Amount      decimal.Decimal
	Seller      string
}

// Administrator is the company managing a consortium group.
type Administrator struct {
	ID    string
	Name  string
	Phone string
	Email string
}

// Company is the buyer holding quotas.
type Company struct {
	ID    string
	Name  string
	Phone string
	Email string
}
