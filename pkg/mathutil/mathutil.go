// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/shopspring/decimal"
)

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// Sum adds values exactly.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Float converts an exact amount to float64 for presentation layers that
// only take floats (charts, spreadsheets).
func Float(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
