// Package primitives - Centralized pricing math
// Calculators declare intent, not do math.
// All tier, adjustment and discount arithmetic flows through these primitives,
// which are pure functions over immutable inputs and safe for concurrent use.
package primitives

import "github.com/shopspring/decimal"

var (
	hundred  = decimal.NewFromInt(100)
	thousand = decimal.NewFromInt(1000)
)

// Thousand is the per-mille denominator used for stitch and area math
func Thousand() decimal.Decimal {
	return thousand
}
