package report

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/consorcio/consortium"
)

// CreditLine is the credit position of one quota.
type CreditLine struct {
	QuotaID          string
	Group            string
	QuotaNumber      string
	IsContemplated   bool
	CurrentCredit    decimal.Decimal
	ManualAdjustment decimal.Decimal
	EmbeddedBid      decimal.Decimal
	Used             decimal.Decimal
	Available        decimal.Decimal
}

// CreditGroup totals the credit lines of one company. Quotas without a
// company are grouped under an empty Company.
type CreditGroup struct {
	Company consortium.Company
	Lines   []CreditLine

	TotalCredit      decimal.Decimal
	TotalAdjustments decimal.Decimal
	TotalEmbedded    decimal.Decimal
	TotalUsed        decimal.Decimal
	TotalAvailable   decimal.Decimal
	PercentUsed      decimal.Decimal
}

// CreditAvailability computes, for every entry matching f, the credit still
// available at the reference date (zero means today):
//
//	available = current credit + manual adjustment - embedded bid - usages
//
// Groups are ordered by company name, the no-company group last.
func CreditAvailability(entries []Entry, f Filter, at time.Time) []CreditGroup {
	at = refDate(at)

	byCompany := map[string]*CreditGroup{}
	var order []string
	for _, e := range entries {
		q := e.Quota
		if !f.Match(q) {
			continue
		}

		line := CreditLine{
			QuotaID:          q.ID,
			Group:            q.Group,
			QuotaNumber:      q.QuotaNumber,
			IsContemplated:   q.IsContemplated,
			CurrentCredit:    CurrentCredit(q, e.Schedule, at),
			ManualAdjustment: q.CreditManualAdjustment,
			EmbeddedBid:      q.BidEmbedded,
			Used:             e.UsedCredit(),
		}
		line.Available = line.CurrentCredit.Add(line.ManualAdjustment).Sub(line.EmbeddedBid).Sub(line.Used)

		g, ok := byCompany[q.CompanyID]
		if !ok {
			company := e.Company
			company.ID = q.CompanyID
			g = &CreditGroup{Company: company}
			byCompany[q.CompanyID] = g
			order = append(order, q.CompanyID)
		}
		g.Lines = append(g.Lines, line)
		g.TotalCredit = g.TotalCredit.Add(line.CurrentCredit)
		g.TotalAdjustments = g.TotalAdjustments.Add(line.ManualAdjustment)
		g.TotalEmbedded = g.TotalEmbedded.Add(line.EmbeddedBid)
		g.TotalUsed = g.TotalUsed.Add(line.Used)
		g.TotalAvailable = g.TotalAvailable.Add(line.Available)
	}

	out := make([]CreditGroup, 0, len(order))
	for _, id := range order {
		g := byCompany[id]
		net := g.TotalCredit.Add(g.TotalAdjustments).Sub(g.TotalEmbedded)
		g.PercentUsed = consortium.Percent(g.TotalUsed, net)
		out = append(out, *g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Company, out[j].Company
		if (a.ID == "") != (b.ID == "") {
			return b.ID == ""
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
	return out
}
