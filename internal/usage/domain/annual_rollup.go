package usage

import (
	"sort"

	"github.com/shopspring/decimal"
)

// AnnualUsage is the financial-year total for one WAP.
type AnnualUsage struct {
	WAP          string
	FY           int
	AnnualVolume decimal.Decimal
	DaysOfData   int
}

type annualKey struct {
	wap string
	fy  int
}

// AnnualRollup groups daily usage by WAP and financial year.
// Every record counts as a day of data, including records without a value.
type AnnualRollup struct {
	totals map[annualKey]*AnnualUsage
	rows   int
}

// NewAnnualRollup constructs an empty rollup.
func NewAnnualRollup() *AnnualRollup {
	return &AnnualRollup{totals: make(map[annualKey]*AnnualUsage)}
}

// Add folds one daily record into its (WAP, FY) group.
func (r *AnnualRollup) Add(u DailyUsage) error {
	if u.WAP == "" {
		return ErrEmptyWAP
	}
	if u.Date.IsZero() {
		return ErrInvalidDate
	}
	key := annualKey{wap: u.WAP, fy: FinancialYear(u.Date)}
	agg, ok := r.totals[key]
	if !ok {
		agg = &AnnualUsage{WAP: key.wap, FY: key.fy, AnnualVolume: decimal.Zero}
		r.totals[key] = agg
	}
	if u.Volume != nil {
		agg.AnnualVolume = agg.AnnualVolume.Add(decimal.NewFromFloat(*u.Volume))
	}
	agg.DaysOfData++
	r.rows++
	return nil
}

// Rows returns the number of records folded in.
func (r *AnnualRollup) Rows() int { return r.rows }

// Results returns the groups ordered by WAP then FY.
func (r *AnnualRollup) Results() []AnnualUsage {
	out := make([]AnnualUsage, 0, len(r.totals))
	for _, agg := range r.totals {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WAP != out[j].WAP {
			return out[i].WAP < out[j].WAP
		}
		return out[i].FY < out[j].FY
	})
	return out
}
