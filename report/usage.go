package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/consorcio/consortium"
)

// Bucket labels used when a usage has no seller or description.
const (
	UnknownSeller      = "Não Informado"
	UnknownDescription = "Sem Descrição"
)

// UsageLine is one credit usage with the quota it was drawn from.
type UsageLine struct {
	Usage       consortium.CreditUsage
	Group       string
	QuotaNumber string
	CompanyName string
}

// Bucket is an amount total under one label.
type Bucket struct {
	Label  string
	Amount decimal.Decimal
}

// UsageReport lists credit usages with their breakdowns.
type UsageReport struct {
	Lines         []UsageLine
	Total         decimal.Decimal
	BySeller      []Bucket
	ByDescription []Bucket
}

// CreditUsage reports the credit drawn from the entries matching f. Lines
// come newest first, buckets largest first.
func CreditUsage(entries []Entry, f Filter) UsageReport {
	var rep UsageReport
	sellers := map[string]decimal.Decimal{}
	descriptions := map[string]decimal.Decimal{}

	for _, e := range entries {
		if !f.Match(e.Quota) {
			continue
		}
		for _, u := range e.Usages {
			rep.Lines = append(rep.Lines, UsageLine{
				Usage:       u,
				Group:       e.Quota.Group,
				QuotaNumber: e.Quota.QuotaNumber,
				CompanyName: e.Company.Name,
			})
			rep.Total = rep.Total.Add(u.Amount)

			seller := u.Seller
			if seller == "" {
				seller = UnknownSeller
			}
			sellers[seller] = sellers[seller].Add(u.Amount)

			desc := u.Description
			if desc == "" {
				desc = UnknownDescription
			}
			descriptions[desc] = descriptions[desc].Add(u.Amount)
		}
	}

	sort.SliceStable(rep.Lines, func(i, j int) bool {
		return rep.Lines[i].Usage.Date.After(rep.Lines[j].Usage.Date)
	})
	rep.BySeller = buckets(sellers)
	rep.ByDescription = buckets(descriptions)
	return rep
}

func buckets(m map[string]decimal.Decimal) []Bucket {
	out := make([]Bucket, 0, len(m))
	for label, amount := range m {
		out = append(out, Bucket{Label: label, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Label < out[j].Label
	})
	return out
}
