package report

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	allocation "water-usage/internal/allocation/domain"
	usage "water-usage/internal/usage/domain"
)

func TestAttachConsentsLeftJoin(t *testing.T) {
	annual := []usage.AnnualUsage{
		{WAP: "W2", FY: 2016, AnnualVolume: decimal.NewFromInt(30), DaysOfData: 3},
		{WAP: "W1", FY: 2015, AnnualVolume: decimal.NewFromInt(10), DaysOfData: 1},
		{WAP: "W9", FY: 2015, AnnualVolume: decimal.NewFromInt(5), DaysOfData: 2},
	}
	pairs := []allocation.Pair{
		{ConsentNo: "CRC2", WAP: "W1", ActivityCount: 1},
		{ConsentNo: "CRC1", WAP: "W1", ActivityCount: 2},
		{ConsentNo: "CRC3", WAP: "W2", ActivityCount: 1},
	}

	got := AttachConsents(annual, pairs)
	want := []SummaryRow{
		{ConsentNo: "CRC1", WAP: "W1", FY: 2015, AnnualVolume: decimal.NewFromInt(10), DaysOfData: 1},
		{ConsentNo: "CRC2", WAP: "W1", FY: 2015, AnnualVolume: decimal.NewFromInt(10), DaysOfData: 1},
		{ConsentNo: "CRC3", WAP: "W2", FY: 2016, AnnualVolume: decimal.NewFromInt(30), DaysOfData: 3},
		{ConsentNo: "", WAP: "W9", FY: 2015, AnnualVolume: decimal.NewFromInt(5), DaysOfData: 2},
	}
	opt := cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })
	if diff := cmp.Diff(want, got, opt); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}

	totals := Summarize(got)
	if totals.Rows != 4 || totals.Consents != 3 || totals.WAPs != 3 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
	if !totals.Volume.Equal(decimal.NewFromInt(45)) {
		t.Fatalf("shared WAP volume must be counted once, got %s", totals.Volume)
	}
	if totals.DaysOfData != 6 {
		t.Fatalf("expected 6 days, got %d", totals.DaysOfData)
	}
}

func TestAttachConsentsEmpty(t *testing.T) {
	if rows := AttachConsents(nil, nil); len(rows) != 0 {
		t.Fatalf("expected no rows, got %v", rows)
	}
}
