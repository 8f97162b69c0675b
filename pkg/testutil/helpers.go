// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/data-dashboard/internal/dataset"
	"github.com/shopspring/decimal"
)

// Row builds a dataset.Row from a decimal string amount and panics on a bad
// amount, which is only ever a typo in a test table.
func Row(date, category, amount, region string) dataset.Row {
	return dataset.Row{
		Date:     date,
		Category: category,
		Amount:   decimal.RequireFromString(amount),
		Region:   region,
	}
}

// ExampleRows is the three-row reference set: Food/East, Food/West and
// Travel/East across January and February 2025, totalling 45.
func ExampleRows() []dataset.Row {
	return []dataset.Row{
		Row("2025-01-01", "Food", "10", "East"),
		Row("2025-02-01", "Food", "30", "West"),
		Row("2025-01-15", "Travel", "5", "East"),
	}
}

// FindRow finds the first row with the given category.
// Returns a pointer to the row if found, nil otherwise.
func FindRow(rows []dataset.Row, category string) *dataset.Row {
	for i := range rows {
		if rows[i].Category == category {
			return &rows[i]
		}
	}
	return nil
}
