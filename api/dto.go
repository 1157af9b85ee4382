/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

ENCODING:
  - Dates are "YYYY-MM-DD" strings; an empty string means "not set".
  - Responses carry money and percentages as JSON numbers (float64).
  - Requests decode them into decimal.Decimal, which accepts both JSON
    numbers and quoted strings without going through float64.

VALIDATION:
  Validation is done in the service, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - consortium/types.go: Domain types
*/
package api

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/consorcio/calendar"
	"github.com/warp/consorcio/consortium"
	"github.com/warp/consorcio/report"
)

// =============================================================================
// QUOTAS
// =============================================================================

// QuotaDTO represents a quota in API responses.
type QuotaDTO struct {
	ID                     string  `json:"id"`
	Group                  string  `json:"group"`
	QuotaNumber            string  `json:"quota_number"`
	ContractNumber         string  `json:"contract_number,omitempty"`
	CreditValue            float64 `json:"credit_value"`
	AdhesionDate           string  `json:"adhesion_date,omitempty"`
	FirstAssemblyDate      string  `json:"first_assembly_date,omitempty"`
	TermMonths             int     `json:"term_months"`
	AdminFeeRate           float64 `json:"admin_fee_rate"`
	ReserveFundRate        float64 `json:"reserve_fund_rate"`
	ProductType            string  `json:"product_type,omitempty"`
	FirstDueDate           string  `json:"first_due_date"`
	DueDay                 int     `json:"due_day"`
	CorrectionIndex        string  `json:"correction_index"`
	PaymentPlan            string  `json:"payment_plan"`
	AdministratorID        string  `json:"administrator_id,omitempty"`
	CompanyID              string  `json:"company_id,omitempty"`
	IsContemplated         bool    `json:"is_contemplated"`
	ContemplationDate      string  `json:"contemplation_date,omitempty"`
	BidFree                float64 `json:"bid_free"`
	BidEmbedded            float64 `json:"bid_embedded"`
	BidTotal               float64 `json:"bid_total"`
	BidBase                string  `json:"bid_base"`
	CreditManualAdjustment float64 `json:"credit_manual_adjustment"`
	BidFreeCorrection      float64 `json:"bid_free_correction"`
}

// QuotaRequest is the body of quota create and update. bid_total is
// always derived and therefore not accepted.
type QuotaRequest struct {
	Group                  string          `json:"group"`
	QuotaNumber            string          `json:"quota_number"`
	ContractNumber         string          `json:"contract_number"`
	CreditValue            decimal.Decimal `json:"credit_value"`
	AdhesionDate           string          `json:"adhesion_date"`
	FirstAssemblyDate      string          `json:"first_assembly_date"`
	TermMonths             int             `json:"term_months"`
	AdminFeeRate           decimal.Decimal `json:"admin_fee_rate"`
	ReserveFundRate        decimal.Decimal `json:"reserve_fund_rate"`
	ProductType            string          `json:"product_type"`
	FirstDueDate           string          `json:"first_due_date"`
	DueDay                 int             `json:"due_day"`
	CorrectionIndex        string          `json:"correction_index"`
	PaymentPlan            string          `json:"payment_plan"`
	AdministratorID        string          `json:"administrator_id"`
	CompanyID              string          `json:"company_id"`
	IsContemplated         bool            `json:"is_contemplated"`
	ContemplationDate      string          `json:"contemplation_date"`
	BidFree                decimal.Decimal `json:"bid_free"`
	BidEmbedded            decimal.Decimal `json:"bid_embedded"`
	BidBase                string          `json:"bid_base"`
	CreditManualAdjustment decimal.Decimal `json:"credit_manual_adjustment"`
}

// toQuota converts the request, failing only on malformed dates.
func (req QuotaRequest) toQuota() (consortium.Quota, error) {
	q := consortium.Quota{
		Group:                  req.Group,
		QuotaNumber:            req.QuotaNumber,
		ContractNumber:         req.ContractNumber,
		CreditValue:            req.CreditValue,
		TermMonths:             req.TermMonths,
		AdminFeeRate:           req.AdminFeeRate,
		ReserveFundRate:        req.ReserveFundRate,
		ProductType:            consortium.ProductType(req.ProductType),
		DueDay:                 req.DueDay,
		CorrectionIndex:        consortium.IndexType(req.CorrectionIndex),
		PaymentPlan:            consortium.PaymentPlan(req.PaymentPlan),
		AdministratorID:        req.AdministratorID,
		CompanyID:              req.CompanyID,
		IsContemplated:         req.IsContemplated,
		BidFree:                req.BidFree,
		BidEmbedded:            req.BidEmbedded,
		BidBase:                consortium.BidBase(req.BidBase),
		CreditManualAdjustment: req.CreditManualAdjustment,
	}
	var err error
	if q.AdhesionDate, err = optionalDate("adhesion_date", req.AdhesionDate); err != nil {
		return q, err
	}
	if q.FirstAssemblyDate, err = optionalDate("first_assembly_date", req.FirstAssemblyDate); err != nil {
		return q, err
	}
	if q.FirstDueDate, err = optionalDate("first_due_date", req.FirstDueDate); err != nil {
		return q, err
	}
	if q.ContemplationDate, err = optionalDate("contemplation_date", req.ContemplationDate); err != nil {
		return q, err
	}
	return q, nil
}

func toQuotaDTO(q consortium.Quota) QuotaDTO {
	return QuotaDTO{
		ID:                     q.ID,
		Group:                  q.Group,
		QuotaNumber:            q.QuotaNumber,
		ContractNumber:         q.ContractNumber,
		CreditValue:            num(q.CreditValue),
		AdhesionDate:           calendar.Format(q.AdhesionDate),
		FirstAssemblyDate:      calendar.Format(q.FirstAssemblyDate),
		TermMonths:             q.TermMonths,
		AdminFeeRate:           num(q.AdminFeeRate),
		ReserveFundRate:        num(q.ReserveFundRate),
		ProductType:            string(q.ProductType),
		FirstDueDate:           calendar.Format(q.FirstDueDate),
		DueDay:                 q.DueDay,
		CorrectionIndex:        string(q.CorrectionIndex),
		PaymentPlan:            string(q.PaymentPlan),
		AdministratorID:        q.AdministratorID,
		CompanyID:              q.CompanyID,
		IsContemplated:         q.IsContemplated,
		ContemplationDate:      calendar.Format(q.ContemplationDate),
		BidFree:                num(q.BidFree),
		BidEmbedded:            num(q.BidEmbedded),
		BidTotal:               num(q.BidTotal),
		BidBase:                string(q.BidBase),
		CreditManualAdjustment: num(q.CreditManualAdjustment),
		BidFreeCorrection:      num(q.BidFreeCorrection),
	}
}

// =============================================================================
// SCHEDULE
// =============================================================================

// InstallmentDTO is one schedule row.
type InstallmentDTO struct {
	Number  int    `json:"number"`
	DueDate string `json:"due_date"`

	CommonFund  float64 `json:"common_fund"`
	AdminFee    float64 `json:"admin_fee"`
	ReserveFund float64 `json:"reserve_fund"`
	Total       float64 `json:"total"`

	MonthlyRateFC float64 `json:"monthly_rate_fc"`
	MonthlyRateTA float64 `json:"monthly_rate_ta"`
	MonthlyRateFR float64 `json:"monthly_rate_fr"`

	BalanceFC    float64 `json:"balance_fc"`
	BalanceTA    float64 `json:"balance_ta"`
	BalanceFR    float64 `json:"balance_fr"`
	BalanceTotal float64 `json:"balance_total"`

	PercentBalanceFC    float64 `json:"percent_balance_fc"`
	PercentBalanceTA    float64 `json:"percent_balance_ta"`
	PercentBalanceFR    float64 `json:"percent_balance_fr"`
	PercentBalanceTotal float64 `json:"percent_balance_total"`

	CorrectedCreditValue float64 `json:"corrected_credit_value"`
	CorrectionApplied    bool    `json:"correction_applied"`
	CorrectionFactor     float64 `json:"correction_factor,omitempty"`
	CorrectionIndex      string  `json:"correction_index,omitempty"`

	Bid *BidDTO `json:"bid,omitempty"`

	ManualFC       *float64 `json:"manual_fc"`
	ManualTA       *float64 `json:"manual_ta"`
	ManualFR       *float64 `json:"manual_fr"`
	ManualFine     *float64 `json:"manual_fine"`
	ManualInterest *float64 `json:"manual_interest"`
	RealAmountPaid *float64 `json:"real_amount_paid"`
	IsPaid         bool     `json:"is_paid"`
}

// BidDTO is the bid settled on one installment.
type BidDTO struct {
	Date     string      `json:"date"`
	Amount   float64     `json:"amount"`
	CalcBase float64     `json:"calc_base"`
	Embedded BidShareDTO `json:"embedded"`
	Free     BidShareDTO `json:"free"`
}

// BidShareDTO decomposes one bid amount across FC/TA/FR.
type BidShareDTO struct {
	Applied     float64 `json:"applied"`
	Percent     float64 `json:"percent"`
	AbatementFC float64 `json:"abatement_fc"`
	AbatementTA float64 `json:"abatement_ta"`
	AbatementFR float64 `json:"abatement_fr"`
	PercentFC   float64 `json:"percent_fc"`
	PercentTA   float64 `json:"percent_ta"`
	PercentFR   float64 `json:"percent_fr"`
}

// ScheduleResponse wraps a quota's merged schedule.
type ScheduleResponse struct {
	QuotaID      string           `json:"quota_id"`
	Installments []InstallmentDTO `json:"installments"`
}

// NewScheduleResponse converts merged installments to their JSON form.
func NewScheduleResponse(quotaID string, rows []consortium.Installment) ScheduleResponse {
	resp := ScheduleResponse{QuotaID: quotaID, Installments: make([]InstallmentDTO, 0, len(rows))}
	for _, row := range rows {
		resp.Installments = append(resp.Installments, toInstallmentDTO(row))
	}
	return resp
}

func toInstallmentDTO(row consortium.Installment) InstallmentDTO {
	dto := InstallmentDTO{
		Number:               row.Number,
		DueDate:              calendar.Format(row.DueDate),
		CommonFund:           num(row.CommonFund),
		AdminFee:             num(row.AdminFee),
		ReserveFund:          num(row.ReserveFund),
		Total:                num(row.Total),
		MonthlyRateFC:        num(row.MonthlyRateFC),
		MonthlyRateTA:        num(row.MonthlyRateTA),
		MonthlyRateFR:        num(row.MonthlyRateFR),
		BalanceFC:            num(row.BalanceFC),
		BalanceTA:            num(row.BalanceTA),
		BalanceFR:            num(row.BalanceFR),
		BalanceTotal:         num(row.BalanceTotal),
		PercentBalanceFC:     num(row.PercentBalanceFC),
		PercentBalanceTA:     num(row.PercentBalanceTA),
		PercentBalanceFR:     num(row.PercentBalanceFR),
		PercentBalanceTotal:  num(row.PercentBalanceTotal),
		CorrectedCreditValue: num(row.CorrectedCreditValue),
		CorrectionApplied:    row.Correction.Applied,
		ManualFC:             nullNum(row.ManualFC),
		ManualTA:             nullNum(row.ManualTA),
		ManualFR:             nullNum(row.ManualFR),
		ManualFine:           nullNum(row.ManualFine),
		ManualInterest:       nullNum(row.ManualInterest),
		RealAmountPaid:       nullNum(row.RealAmountPaid),
		IsPaid:               row.IsPaid,
	}
	if row.Correction.Applied {
		dto.CorrectionFactor = num(row.Correction.Factor)
		dto.CorrectionIndex = string(row.Correction.IndexName)
	}
	if row.Bid != nil {
		dto.Bid = &BidDTO{
			Date:     calendar.Format(row.Bid.Date),
			Amount:   num(row.Bid.Amount),
			CalcBase: num(row.Bid.CalcBase),
			Embedded: toBidShareDTO(row.Bid.Embedded),
			Free:     toBidShareDTO(row.Bid.Free),
		}
	}
	return dto
}

func toBidShareDTO(s consortium.BidShare) BidShareDTO {
	return BidShareDTO{
		Applied:     num(s.Applied),
		Percent:     num(s.Percent),
		AbatementFC: num(s.AbatementFC),
		AbatementTA: num(s.AbatementTA),
		AbatementFR: num(s.AbatementFR),
		PercentFC:   num(s.PercentFC),
		PercentTA:   num(s.PercentTA),
		PercentFR:   num(s.PercentFR),
	}
}

// PaymentRequest is the body of an override write. Omitted (or null)
// fields keep the value already stored.
type PaymentRequest struct {
	AmountPaid *decimal.Decimal `json:"amount_paid"`
	FC         *decimal.Decimal `json:"manual_fc"`
	FR         *decimal.Decimal `json:"manual_fr"`
	TA         *decimal.Decimal `json:"manual_ta"`
	Fine       *decimal.Decimal `json:"manual_fine"`
	Interest   *decimal.Decimal `json:"manual_interest"`
}

func (req PaymentRequest) toPatch() consortium.PaymentPatch {
	return consortium.PaymentPatch{
		AmountPaid: nullDecimal(req.AmountPaid),
		FC:         nullDecimal(req.FC),
		FR:         nullDecimal(req.FR),
		TA:         nullDecimal(req.TA),
		Fine:       nullDecimal(req.Fine),
		Interest:   nullDecimal(req.Interest),
	}
}

// CreditValueResponse is the corrected credit value at a date.
type CreditValueResponse struct {
	QuotaID     string  `json:"quota_id"`
	At          string  `json:"at"`
	CreditValue float64 `json:"credit_value"`
}

// =============================================================================
// INDICES, CREDIT USAGES, DIRECTORY
// =============================================================================

// IndexDTO is one monthly index observation.
type IndexDTO struct {
	ID   string  `json:"id"`
	Type string  `json:"type"`
	Date string  `json:"date"`
	Rate float64 `json:"rate"`
}

// IndexRequest creates or updates an observation. Any day of the month is
// accepted; it is stored as the first day.
type IndexRequest struct {
	Type string          `json:"type"`
	Date string          `json:"date"`
	Rate decimal.Decimal `json:"rate"`
}

func toIndexDTO(m consortium.MonthlyIndex) IndexDTO {
	return IndexDTO{ID: m.ID, Type: string(m.Type), Date: calendar.Format(m.Month), Rate: num(m.Rate)}
}

// CreditUsageDTO is one draw against a quota's credit.
type CreditUsageDTO struct {
	ID          string  `json:"id"`
	QuotaID     string  `json:"quota_id"`
	Description string  `json:"description,omitempty"`
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	Seller      string  `json:"seller,omitempty"`
}

// CreditUsageRequest adds a credit usage.
type CreditUsageRequest struct {
	Description string          `json:"description"`
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Seller      string          `json:"seller"`
}

func toCreditUsageDTO(u consortium.CreditUsage) CreditUsageDTO {
	return CreditUsageDTO{
		ID:          u.ID,
		QuotaID:     u.QuotaID,
		Description: u.Description,
		Date:        calendar.Format(u.Date),
		Amount:      num(u.Amount),
		Seller:      u.Seller,
	}
}

// ContactDTO is an administrator or a company; both carry the same fields.
type ContactDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// =============================================================================
// REPORTS
// =============================================================================

// DashboardDTO is the portfolio summary.
type DashboardDTO struct {
	ReferenceDate               string        `json:"reference_date"`
	ActiveCount                 int           `json:"active_count"`
	ContemplatedCount           int           `json:"contemplated_count"`
	NetCredit                   float64       `json:"net_credit"`
	NetContemplatedCredit       float64       `json:"net_contemplated_credit"`
	BidFree                     float64       `json:"bid_free"`
	BidEmbedded                 float64       `json:"bid_embedded"`
	AvgTotalBidPercent          float64       `json:"avg_total_bid_percent"`
	AvgFreeBidPercent           float64       `json:"avg_free_bid_percent"`
	ManualAdjustments           float64       `json:"manual_adjustments"`
	ReserveFund                 float64       `json:"reserve_fund"`
	CreditUsed                  float64       `json:"credit_used"`
	AvailableCredit             float64       `json:"available_credit"`
	AvailableContemplatedCredit float64       `json:"available_contemplated_credit"`
	TotalPaid                   float64       `json:"total_paid"`
	TotalToPay                  float64       `json:"total_to_pay"`
	PercentPaid                 float64       `json:"percent_paid"`
	PercentToPay                float64       `json:"percent_to_pay"`
	NextMaturities              []MaturityDTO `json:"next_maturities"`
	NextMaturityTotal           float64       `json:"next_maturity_total"`
	MonthlyCET                  float64       `json:"monthly_cet"`
	AnnualCET                   float64       `json:"annual_cet"`
}

// MaturityDTO is the next installment due on one quota.
type MaturityDTO struct {
	QuotaID     string  `json:"quota_id"`
	Group       string  `json:"group"`
	QuotaNumber string  `json:"quota_number"`
	Number      int     `json:"number"`
	DueDate     string  `json:"due_date"`
	Amount      float64 `json:"amount"`
}

func toDashboardDTO(d report.Dashboard) DashboardDTO {
	dto := DashboardDTO{
		ReferenceDate:               calendar.Format(d.ReferenceDate),
		ActiveCount:                 d.ActiveCount,
		ContemplatedCount:           d.ContemplatedCount,
		NetCredit:                   num(d.NetCredit),
		NetContemplatedCredit:       num(d.NetContemplatedCredit),
		BidFree:                     num(d.BidFree),
		BidEmbedded:                 num(d.BidEmbedded),
		AvgTotalBidPercent:          num(d.AvgTotalBidPercent),
		AvgFreeBidPercent:           num(d.AvgFreeBidPercent),
		ManualAdjustments:           num(d.ManualAdjustments),
		ReserveFund:                 num(d.ReserveFund),
		CreditUsed:                  num(d.CreditUsed),
		AvailableCredit:             num(d.AvailableCredit),
		AvailableContemplatedCredit: num(d.AvailableContemplatedCredit),
		TotalPaid:                   num(d.TotalPaid),
		TotalToPay:                  num(d.TotalToPay),
		PercentPaid:                 num(d.PercentPaid),
		PercentToPay:                num(d.PercentToPay),
		NextMaturities:              make([]MaturityDTO, 0, len(d.NextMaturities)),
		NextMaturityTotal:           num(d.NextMaturityTotal),
		MonthlyCET:                  num(d.MonthlyCET),
		AnnualCET:                   num(d.AnnualCET),
	}
	for _, m := range d.NextMaturities {
		dto.NextMaturities = append(dto.NextMaturities, MaturityDTO{
			QuotaID:     m.QuotaID,
			Group:       m.Group,
			QuotaNumber: m.QuotaNumber,
			Number:      m.Number,
			DueDate:     calendar.Format(m.DueDate),
			Amount:      num(m.Amount),
		})
	}
	return dto
}

// MonthlySummaryDTO is one month of the paid-installments report.
type MonthlySummaryDTO struct {
	Month      string  `json:"month"`
	CommonFund float64 `json:"common_fund"`
	Fees       float64 `json:"fees"`
	Bids       float64 `json:"bids"`
	Others     float64 `json:"others"`
	Total      float64 `json:"total"`
	QuotaCount int     `json:"quota_count"`
}

func toMonthlyDTOs(months []report.MonthlySummary) []MonthlySummaryDTO {
	out := make([]MonthlySummaryDTO, 0, len(months))
	for _, m := range months {
		out = append(out, MonthlySummaryDTO{
			Month:      m.Month,
			CommonFund: num(m.CommonFund),
			Fees:       num(m.Fees),
			Bids:       num(m.Bids),
			Others:     num(m.Others),
			Total:      num(m.Total),
			QuotaCount: m.QuotaCount,
		})
	}
	return out
}

// CreditGroupDTO is the available credit of one company.
type CreditGroupDTO struct {
	CompanyID        string          `json:"company_id,omitempty"`
	CompanyName      string          `json:"company_name"`
	Lines            []CreditLineDTO `json:"lines"`
	TotalCredit      float64         `json:"total_credit"`
	TotalAdjustments float64         `json:"total_adjustments"`
	TotalEmbedded    float64         `json:"total_embedded"`
	TotalUsed        float64         `json:"total_used"`
	TotalAvailable   float64         `json:"total_available"`
	PercentUsed      float64         `json:"percent_used"`
}

// CreditLineDTO is one quota's credit position.
type CreditLineDTO struct {
	QuotaID          string  `json:"quota_id"`
	Group            string  `json:"group"`
	QuotaNumber      string  `json:"quota_number"`
	IsContemplated   bool    `json:"is_contemplated"`
	CurrentCredit    float64 `json:"current_credit"`
	ManualAdjustment float64 `json:"manual_adjustment"`
	EmbeddedBid      float64 `json:"embedded_bid"`
	Used             float64 `json:"used"`
	Available        float64 `json:"available"`
}

func toCreditGroupDTOs(groups []report.CreditGroup) []CreditGroupDTO {
	out := make([]CreditGroupDTO, 0, len(groups))
	for _, g := range groups {
		dto := CreditGroupDTO{
			CompanyID:        g.Company.ID,
			CompanyName:      g.Company.Name,
			Lines:            make([]CreditLineDTO, 0, len(g.Lines)),
			TotalCredit:      num(g.TotalCredit),
			TotalAdjustments: num(g.TotalAdjustments),
			TotalEmbedded:    num(g.TotalEmbedded),
			TotalUsed:        num(g.TotalUsed),
			TotalAvailable:   num(g.TotalAvailable),
			PercentUsed:      num(g.PercentUsed),
		}
		for _, l := range g.Lines {
			dto.Lines = append(dto.Lines, CreditLineDTO{
				QuotaID:          l.QuotaID,
				Group:            l.Group,
				QuotaNumber:      l.QuotaNumber,
				IsContemplated:   l.IsContemplated,
				CurrentCredit:    num(l.CurrentCredit),
				ManualAdjustment: num(l.ManualAdjustment),
				EmbeddedBid:      num(l.EmbeddedBid),
				Used:             num(l.Used),
				Available:        num(l.Available),
			})
		}
		out = append(out, dto)
	}
	return out
}

// UsageReportDTO lists credit usages with per-seller and per-description
// totals.
type UsageReportDTO struct {
	Lines         []UsageLineDTO `json:"lines"`
	Total         float64        `json:"total"`
	BySeller      []BucketDTO    `json:"by_seller"`
	ByDescription []BucketDTO    `json:"by_description"`
}

// UsageLineDTO is one credit usage with its quota context.
type UsageLineDTO struct {
	CreditUsageDTO
	Group       string `json:"group"`
	QuotaNumber string `json:"quota_number"`
	CompanyName string `json:"company_name,omitempty"`
}

// BucketDTO is a labelled total.
type BucketDTO struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

func toUsageReportDTO(r report.UsageReport) UsageReportDTO {
	dto := UsageReportDTO{
		Lines:         make([]UsageLineDTO, 0, len(r.Lines)),
		Total:         num(r.Total),
		BySeller:      toBucketDTOs(r.BySeller),
		ByDescription: toBucketDTOs(r.ByDescription),
	}
	for _, l := range r.Lines {
		dto.Lines = append(dto.Lines, UsageLineDTO{
			CreditUsageDTO: toCreditUsageDTO(l.Usage),
			Group:          l.Group,
			QuotaNumber:    l.QuotaNumber,
			CompanyName:    l.CompanyName,
		})
	}
	return dto
}

func toBucketDTOs(buckets []report.Bucket) []BucketDTO {
	out := make([]BucketDTO, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, BucketDTO{Label: b.Label, Amount: num(b.Amount)})
	}
	return out
}

// LoadScenarioRequest selects a demo portfolio.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func num(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func nullNum(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f := num(d.Decimal)
	return &f
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

func optionalDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := calendar.ParseDate(s)
	if err != nil {
		return time.Time{}, &consortium.ValidationError{
			Field:   field,
			Message: fmt.Sprintf("invalid date %q (use YYYY-MM-DD)", s),
		}
	}
	return t, nil
}
