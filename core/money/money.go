// Package money provides the fixed-point monetary value used by every calculation.
// NEVER use float64 for money calculations.
package money

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places a settled amount carries
const Scale int32 = 2

var hundred = decimal.NewFromInt(100)

// Money is an exact decimal amount. The zero value is a valid zero.
//
// Arithmetic never rounds; Round settles the amount half-up (ties away from
// zero) at Scale places and is a no-op on an already settled amount.
type Money struct {
	amount decimal.Decimal
}

// Zero returns zero money
func Zero() Money {
	return Money{amount: decimal.Zero}
}

// New creates Money from a decimal
func New(amount decimal.Decimal) Money {
	return Money{amount: amount}
}

// FromInt creates Money from a whole number of units
func FromInt(units int64) Money {
	return Money{amount: decimal.NewFromInt(units)}
}

// FromCents creates Money from minor units
func FromCents(cents int64) Money {
	return Money{amount: decimal.New(cents, -Scale)}
}

// Parse creates Money from a decimal string. An empty string is zero.
func Parse(s string) (Money, error) {
	if s == "" {
		return Zero(), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Money{amount: d}, nil
}

// MustParse is Parse that panics, for constants and tests
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Decimal returns the underlying decimal amount
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// Add adds two amounts
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Sub subtracts other from m
func (m Money) Sub(other Money) Money {
	return Money{amount: m.amount.Sub(other.amount)}
}

// Mul multiplies by a decimal factor
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor)}
}

// MulInt multiplies by an integer quantity
func (m Money) MulInt(n int64) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(n))}
}

// MulRatio multiplies by num/den. The division is exact for the constant
// denominators used in pricing (100, 1000); den must not be zero.
func (m Money) MulRatio(num, den decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(num).Div(den)}
}

// Percent returns pct percent of m, unrounded
func (m Money) Percent(pct Money) Money {
	return m.MulRatio(pct.amount, hundred)
}

// Round settles the amount to two decimal places, half-up
func (m Money) Round() Money {
	return Money{amount: m.amount.Round(Scale)}
}

// IsZero reports whether the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsNegative reports whether the amount is below zero
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// IsPositive reports whether the amount is above zero
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// Cmp compares two amounts
func (m Money) Cmp(other Money) int {
	return m.amount.Cmp(other.amount)
}

// Equal reports numeric equality (2.0 equals 2.00)
func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount)
}

// String formats with two places when that loses nothing, otherwise the
// full-precision value is returned so unsettled amounts stay visible.
func (m Money) String() string {
	if m.amount.Equal(m.amount.Round(Scale)) {
		return m.amount.StringFixed(Scale)
	}
	return m.amount.String()
}

// Float64 returns float64 (only for display and metrics, never for calculation)
func (m Money) Float64() float64 {
	return m.amount.InexactFloat64()
}

// MarshalJSON encodes the amount as a quoted decimal string
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts a quoted decimal string or a bare JSON number
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if string(data) == "null" {
		*m = Zero()
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Sum adds a list of amounts without rounding
func Sum(values ...Money) Money {
	total := Zero()
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
