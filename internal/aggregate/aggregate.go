// Package aggregate computes the KPI summary and grouped amount views of a
// row set. All sums are exact; rounding is left to presentation.
package aggregate

import (
	"sort"

	"github.com/iwvelando/data-dashboard/internal/dataset"
	"github.com/iwvelando/data-dashboard/pkg/constants"
	"github.com/iwvelando/data-dashboard/pkg/datetime"
	"github.com/iwvelando/data-dashboard/pkg/mathutil"
	"github.com/shopspring/decimal"
)

// Point is one grouped sum.
type Point struct {
	Key   string          `json:"key" yaml:"key"`
	Value decimal.Decimal `json:"value" yaml:"value"`
}

// View is an ordered list of grouped sums ready for charting.
type View []Point

// Total sums the values of v.
func (v View) Total() decimal.Decimal {
	values := make([]decimal.Decimal, len(v))
	for i, p := range v {
		values[i] = p.Value
	}
	return mathutil.Sum(values...)
}

// Keys returns the keys of v in order.
func (v View) Keys() []string {
	keys := make([]string, len(v))
	for i, p := range v {
		keys[i] = p.Key
	}
	return keys
}

// KPI is the headline rollup of a row set. TopCategory is empty when there
// are no rows.
type KPI struct {
	Total       decimal.Decimal `json:"total" yaml:"total"`
	MonthlyAvg  decimal.Decimal `json:"monthlyAvg" yaml:"monthlyAvg"`
	TopCategory string          `json:"topCategory,omitempty" yaml:"topCategory,omitempty"`
}

// TopCategoryLabel returns the top category or "N/A" when there is none.
func (k KPI) TopCategoryLabel() string {
	if k.TopCategory == "" {
		return "N/A"
	}
	return k.TopCategory
}

// Summary bundles the KPI with the three aggregate views.
type Summary struct {
	KPI        KPI  `json:"kpi" yaml:"kpi"`
	ByDate     View `json:"byDate" yaml:"byDate"`
	ByCategory View `json:"byCategory" yaml:"byCategory"`
	ByRegion   View `json:"byRegion" yaml:"byRegion"`
}

// Summarize computes the KPI and every view of rows.
func Summarize(rows []dataset.Row) Summary {
	byCategory := ByCategory(rows)
	return Summary{
		KPI: KPI{
			Total:       Total(rows),
			MonthlyAvg:  MonthlyAverage(rows),
			TopCategory: topOf(byCategory),
		},
		ByDate:     ByDate(rows),
		ByCategory: byCategory,
		ByRegion:   ByRegion(rows),
	}
}

// Total sums every amount; zero for no rows.
func Total(rows []dataset.Row) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Amount)
	}
	return total
}

// MonthlyAverage sums amounts per calendar month and averages those sums over
// the months that have at least one row. Zero for no rows.
func MonthlyAverage(rows []dataset.Row) decimal.Decimal {
	months := group(rows, func(row dataset.Row) string {
		return datetime.MonthKey(row.Date)
	})
	if len(months) == 0 {
		return decimal.Zero
	}
	return months.Total().Div(decimal.NewFromInt(int64(len(months))))
}

// TopCategory returns the category with the largest amount sum. Ties go to
// the category seen first. ok is false for no rows.
func TopCategory(rows []dataset.Row) (category string, ok bool) {
	top := topOf(ByCategory(rows))
	return top, top != ""
}

// ByDate sums amounts per calendar day, sorted ascending by YYYY-MM-DD key.
func ByDate(rows []dataset.Row) View {
	view := group(rows, func(row dataset.Row) string {
		return datetime.DayKey(row.Date)
	})
	sort.SliceStable(view, func(i, j int) bool {
		return view[i].Key < view[j].Key
	})
	return view
}

// ByCategory sums amounts per category in first-seen order.
func ByCategory(rows []dataset.Row) View {
	return group(rows, func(row dataset.Row) string {
		return row.Category
	})
}

// ByRegion sums amounts per region in first-seen order. Empty regions are
// grouped under "Unknown".
func ByRegion(rows []dataset.Row) View {
	return group(rows, func(row dataset.Row) string {
		if row.Region == "" {
			return constants.UnknownRegion
		}
		return row.Region
	})
}

// group accumulates amounts under keyOf(row), keeping keys in first-seen order.
func group(rows []dataset.Row, keyOf func(dataset.Row) string) View {
	index := make(map[string]int)
	view := make(View, 0)
	for _, row := range rows {
		key := keyOf(row)
		i, ok := index[key]
		if !ok {
			i = len(view)
			index[key] = i
			view = append(view, Point{Key: key, Value: decimal.Zero})
		}
		view[i].Value = view[i].Value.Add(row.Amount)
	}
	return view
}

func topOf(byCategory View) string {
	top := ""
	var topValue decimal.Decimal
	for i, p := range byCategory {
		if i == 0 || p.Value.GreaterThan(topValue) {
			top = p.Key
			topValue = p.Value
		}
	}
	return top
}
