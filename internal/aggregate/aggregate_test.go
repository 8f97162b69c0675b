package aggregate

import (
	"strings"
	"testing"

	"github.com/iwvelando/data-dashboard/internal/dataset"
	"github.com/iwvelando/data-dashboard/pkg/testutil"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSummarizeExampleRows(t *testing.T) {
	summary := Summarize(testutil.ExampleRows())

	if !summary.KPI.Total.Equal(dec("45")) {
		t.Errorf("Total = %s, expected 45", summary.KPI.Total)
	}
	if !summary.KPI.MonthlyAvg.Equal(dec("22.5")) {
		t.Errorf("MonthlyAvg = %s, expected 22.5", summary.KPI.MonthlyAvg)
	}
	if summary.KPI.TopCategory != "Food" {
		t.Errorf("TopCategory = %q, expected Food", summary.KPI.TopCategory)
	}

	assertView(t, "ByDate", summary.ByDate, []string{"2025-01-01=10", "2025-01-15=5", "2025-02-01=30"})
	assertView(t, "ByCategory", summary.ByCategory, []string{"Food=40", "Travel=5"})
	assertView(t, "ByRegion", summary.ByRegion, []string{"East=15", "West=30"})
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)

	if !summary.KPI.Total.IsZero() || !summary.KPI.MonthlyAvg.IsZero() {
		t.Errorf("expected zero KPIs, got %+v", summary.KPI)
	}
	if summary.KPI.TopCategory != "" {
		t.Errorf("TopCategory = %q, expected none", summary.KPI.TopCategory)
	}
	if summary.KPI.TopCategoryLabel() != "N/A" {
		t.Errorf("TopCategoryLabel() = %q, expected N/A", summary.KPI.TopCategoryLabel())
	}
	if len(summary.ByDate) != 0 || len(summary.ByCategory) != 0 || len(summary.ByRegion) != 0 {
		t.Errorf("expected empty views, got %+v", summary)
	}
	if _, ok := TopCategory(nil); ok {
		t.Errorf("TopCategory(nil) should report no category")
	}
}

func TestViewsSumToTotal(t *testing.T) {
	rowSets := map[string][]dataset.Row{
		"example": testutil.ExampleRows(),
		"fractional": {
			testutil.Row("2025-01-01", "A", "0.1", "North"),
			testutil.Row("2025-01-01", "B", "0.2", ""),
			testutil.Row("2025-03-09", "A", "-0.3", "South"),
			testutil.Row("2025-03-10", "C", "1234567.891", ""),
		},
		"unparseable dates": {
			testutil.Row("2025-01-01", "A", "1", "North"),
			testutil.Row("soon", "A", "2", "North"),
			testutil.Row("later", "B", "3", ""),
		},
		"empty": nil,
	}

	for name, rows := range rowSets {
		t.Run(name, func(t *testing.T) {
			summary := Summarize(rows)
			total := summary.KPI.Total
			for label, view := range map[string]View{
				"ByDate":     summary.ByDate,
				"ByCategory": summary.ByCategory,
				"ByRegion":   summary.ByRegion,
			} {
				if !view.Total().Equal(total) {
					t.Errorf("%s sums to %s, total is %s", label, view.Total(), total)
				}
			}
		})
	}
}

func TestSumsAreExact(t *testing.T) {
	rows := []dataset.Row{
		testutil.Row("2025-01-01", "A", "0.1", ""),
		testutil.Row("2025-01-02", "A", "0.2", ""),
	}
	if total := Total(rows); !total.Equal(dec("0.3")) {
		t.Errorf("Total = %s, expected exactly 0.3", total)
	}
}

func TestMonthlyAverage(t *testing.T) {
	tests := []struct {
		name     string
		rows     []dataset.Row
		expected string
	}{
		{
			name: "Single month equals total",
			rows: []dataset.Row{
				testutil.Row("2025-04-01", "A", "10", ""),
				testutil.Row("2025-04-30", "B", "32.5", ""),
			},
			expected: "42.5",
		},
		{
			name: "Gaps between months do not count",
			rows: []dataset.Row{
				testutil.Row("2025-01-10", "A", "100", ""),
				testutil.Row("2025-06-10", "A", "50", ""),
			},
			expected: "75",
		},
		{
			name: "Same month in different years are distinct",
			rows: []dataset.Row{
				testutil.Row("2024-01-10", "A", "10", ""),
				testutil.Row("2025-01-10", "A", "20", ""),
				testutil.Row("2025-01-20", "A", "30", ""),
			},
			expected: "30",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MonthlyAverage(tt.rows); !got.Equal(dec(tt.expected)) {
				t.Errorf("MonthlyAverage() = %s, expected %s", got, tt.expected)
			}
		})
	}
}

func TestTopCategoryTieGoesToFirstSeen(t *testing.T) {
	rows := []dataset.Row{
		testutil.Row("2025-01-01", "Travel", "20", ""),
		testutil.Row("2025-01-02", "Food", "15", ""),
		testutil.Row("2025-01-03", "Food", "5", ""),
	}
	top, ok := TopCategory(rows)
	if !ok || top != "Travel" {
		t.Errorf("TopCategory() = %q, expected Travel (first to reach 20)", top)
	}
}

func TestTopCategoryAllNegative(t *testing.T) {
	rows := []dataset.Row{
		testutil.Row("2025-01-01", "Refunds", "-20", ""),
		testutil.Row("2025-01-02", "Fees", "-5", ""),
	}
	if top, _ := TopCategory(rows); top != "Fees" {
		t.Errorf("TopCategory() = %q, expected Fees", top)
	}
}

func TestByRegionUnknown(t *testing.T) {
	rows := []dataset.Row{
		testutil.Row("2025-01-05", "Food", "12.5", ""),
		testutil.Row("2025-01-06", "Food", "2", "West"),
		testutil.Row("2025-01-07", "Food", "1", ""),
	}
	assertView(t, "ByRegion", ByRegion(rows), []string{"Unknown=13.5", "West=2"})
}

func TestByDateNormalizesAndSorts(t *testing.T) {
	rows := []dataset.Row{
		testutil.Row("2025/02/01", "A", "1", ""),
		testutil.Row("2025-01-31T10:00:00", "A", "2", ""),
		testutil.Row("2025-1-31", "A", "3", ""),
	}
	assertView(t, "ByDate", ByDate(rows), []string{"2025-01-31=5", "2025-02-01=1"})
}

func assertView(t *testing.T, label string, view View, expected []string) {
	t.Helper()
	got := make([]string, len(view))
	for i, p := range view {
		got[i] = p.Key + "=" + p.Value.String()
	}
	if strings.Join(got, ",") != strings.Join(expected, ",") {
		t.Errorf("%s = %v, expected %v", label, got, expected)
	}
}
