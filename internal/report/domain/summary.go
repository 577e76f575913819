package report

import (
	"sort"

	"github.com/shopspring/decimal"

	allocation "water-usage/internal/allocation/domain"
	usage "water-usage/internal/usage/domain"
)

// Columns is the export header.
var Columns = []string{"ConsentNo", "WAP", "FY", "AnnualVolume", "DaysOfData"}

// SummaryRow is one exported line: a WAP's financial-year totals under a consent.
type SummaryRow struct {
	ConsentNo    string
	WAP          string
	FY           int
	AnnualVolume decimal.Decimal
	DaysOfData   int
}

// AttachConsents left-joins annual usage to consent pairs on WAP.
// A WAP held by several consents yields one row per consent; a WAP without a
// pair keeps an empty consent number. Rows are ordered by WAP, FY, consent.
func AttachConsents(annual []usage.AnnualUsage, pairs []allocation.Pair) []SummaryRow {
	index := allocation.ByWAP(pairs)
	rows := make([]SummaryRow, 0, len(annual))
	for _, a := range annual {
		matches := index[a.WAP]
		if len(matches) == 0 {
			rows = append(rows, SummaryRow{
				WAP:          a.WAP,
				FY:           a.FY,
				AnnualVolume: a.AnnualVolume,
				DaysOfData:   a.DaysOfData,
			})
			continue
		}
		for _, p := range matches {
			rows = append(rows, SummaryRow{
				ConsentNo:    p.ConsentNo,
				WAP:          a.WAP,
				FY:           a.FY,
				AnnualVolume: a.AnnualVolume,
				DaysOfData:   a.DaysOfData,
			})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].WAP != rows[j].WAP {
			return rows[i].WAP < rows[j].WAP
		}
		if rows[i].FY != rows[j].FY {
			return rows[i].FY < rows[j].FY
		}
		return rows[i].ConsentNo < rows[j].ConsentNo
	})
	return rows
}

// Totals summarizes the exported table.
type Totals struct {
	Consents   int
	WAPs       int
	Rows       int
	Volume     decimal.Decimal
	DaysOfData int
}

// Summarize counts distinct consents and WAPs and totals volume per distinct
// (WAP, FY) so shared WAPs are not double counted.
func Summarize(rows []SummaryRow) Totals {
	consentSet := make(map[string]struct{})
	wapSet := make(map[string]struct{})
	type key struct {
		wap string
		fy  int
	}
	counted := make(map[key]struct{})
	totals := Totals{Rows: len(rows), Volume: decimal.Zero}
	for _, r := range rows {
		if r.ConsentNo != "" {
			consentSet[r.ConsentNo] = struct{}{}
		}
		wapSet[r.WAP] = struct{}{}
		k := key{wap: r.WAP, fy: r.FY}
		if _, ok := counted[k]; ok {
			continue
		}
		counted[k] = struct{}{}
		totals.Volume = totals.Volume.Add(r.AnnualVolume)
		totals.DaysOfData += r.DaysOfData
	}
	totals.Consents = len(consentSet)
	totals.WAPs = len(wapSet)
	return totals
}
