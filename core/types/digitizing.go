// Package types - Digitizing quotes
package types

import (
	"github.com/shopspring/decimal"

	"embroidery-pricing/core/money"
)

// QuoteRequest describes a design to digitize. Absent dimensions, colors or
// stitch count fall back to the profile defaults.
type QuoteRequest struct {
	Width                *decimal.Decimal `json:"width,omitempty"`
	Height               *decimal.Decimal `json:"height,omitempty"`
	ColorCount           *int             `json:"color_count,omitempty"`
	EstimatedStitchCount *int64           `json:"estimated_stitch_count,omitempty"`
	IsRush               bool             `json:"is_rush"`
}

// QuoteResult is a digitizing quote. Notes is nil unless an advisory applies.
type QuoteResult struct {
	BasePrice            money.Money `json:"base_price"`
	RushFee              money.Money `json:"rush_fee"`
	ComplexityFee        money.Money `json:"complexity_fee"`
	TotalPrice           money.Money `json:"total_price"`
	EstimatedStitchCount int64       `json:"estimated_stitch_count"`
	EstimatedTurnaround  string      `json:"estimated_turnaround"`
	Notes                *string     `json:"notes"`
}
