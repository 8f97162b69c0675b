// Package dataset turns raw delimited text into validated rows and selects
// the rows matching the user's filter criteria.
package dataset

import (
	"github.com/shopspring/decimal"
)

// Row is one validated data record. Date is kept as written; it is only
// guaranteed to be non-empty; whether it parses is decided by the filter.
type Row struct {
	Date     string          `json:"date" yaml:"date"`
	Category string          `json:"category" yaml:"category"`
	Amount   decimal.Decimal `json:"amount" yaml:"amount"`
	Region   string          `json:"region" yaml:"region"`
}

// Categories returns the distinct categories of rows in first-seen order.
func Categories(rows []Row) []string {
	seen := make(map[string]struct{}, len(rows))
	categories := make([]string, 0)
	for _, row := range rows {
		if _, ok := seen[row.Category]; ok {
			continue
		}
		seen[row.Category] = struct{}{}
		categories = append(categories, row.Category)
	}
	return categories
}
