// Package digitizing computes embroidery digitizing quotes: stitch-count
// estimation from design size, complexity and rush fees, and turnaround.
package digitizing

import (
	"github.com/shopspring/decimal"

	"embroidery-pricing/core/money"
	"embroidery-pricing/core/pricing/primitives"
	"embroidery-pricing/core/types"
)

var colorFactor = decimal.RequireFromString("0.1")

// EstimateStitchCount derives a stitch count from design size and colors.
//
//	base = floor(width * height * 1000)
//	estimate = floor(base * (1 + 0.1 * colors))
//
// Absent inputs take the profile defaults (3.0 x 3.0 inches and 1 color in
// types.DefaultDigitizing).
// Arithmetic is exact decimal, so 3.0 x 3.0 with 1 color is exactly 9900.
func EstimateStitchCount(profile types.DigitizingProfile, width, height *decimal.Decimal, colorCount *int) int64 {
	w := profile.DefaultWidth
	if width != nil {
		w = *width
	}
	h := profile.DefaultHeight
	if height != nil {
		h = *height
	}
	colors := profile.DefaultColorCount
	if colorCount != nil {
		colors = *colorCount
	}

	base := w.Mul(h).Mul(primitives.Thousand()).Floor()
	multiplier := decimal.NewFromInt(1).Add(colorFactor.Mul(decimal.NewFromInt(int64(colors))))
	return base.Mul(multiplier).Floor().IntPart()
}

// ComplexityFee charges the profile rate per 1000 stitches above the
// threshold, rounded to 2dp. At or below the threshold it is zero.
func ComplexityFee(profile types.DigitizingProfile, stitches int64) money.Money {
	if stitches <= profile.ComplexityThreshold {
		return money.Zero()
	}
	over := decimal.NewFromInt(stitches - profile.ComplexityThreshold)
	return profile.ComplexityRate.MulRatio(over, primitives.Thousand()).Round()
}

// RushFee is base * (multiplier - 1) rounded to 2dp, or zero without rush
func RushFee(profile types.DigitizingProfile, basePrice money.Money, rush bool) money.Money {
	if !rush {
		return money.Zero()
	}
	return basePrice.Mul(profile.RushMultiplier.Sub(decimal.NewFromInt(1))).Round()
}

// Turnaround returns the literal turnaround promise
func Turnaround(rush bool) string {
	if rush {
		return types.TurnaroundRush
	}
	return types.TurnaroundStandard
}

// Quote computes a full digitizing quote. A supplied stitch count is used as
// is; otherwise it is estimated, so the result always carries one. The
// profile is taken as configured: a zero base price quotes a zero base.
func Quote(profile types.DigitizingProfile, req types.QuoteRequest) types.QuoteResult {
	var stitches int64
	if req.EstimatedStitchCount != nil {
		stitches = *req.EstimatedStitchCount
	} else {
		stitches = EstimateStitchCount(profile, req.Width, req.Height, req.ColorCount)
	}

	base := profile.BasePrice
	complexity := ComplexityFee(profile, stitches)
	rush := RushFee(profile, base, req.IsRush)

	result := types.QuoteResult{
		BasePrice:            base.Round(),
		RushFee:              rush,
		ComplexityFee:        complexity,
		TotalPrice:           money.Sum(base, complexity, rush).Round(),
		EstimatedStitchCount: stitches,
		EstimatedTurnaround:  Turnaround(req.IsRush),
	}
	if stitches > profile.ComplexityThreshold {
		note := types.HighStitchCountNote
		result.Notes = &note
	}
	return result
}
