// Package types - Order pricing inputs and results
package types

import "embroidery-pricing/core/money"

// LineItem is one order line to be priced
type LineItem struct {
	VariantID         string      `json:"variant_id"`
	Quantity          int         `json:"quantity"`
	BasePrice         money.Money `json:"base_price"`
	ModificationPrice money.Money `json:"modification_price"`

	// StitchCount is nil for items without embroidery
	StitchCount *int `json:"stitch_count,omitempty"`

	HasGiftNote bool `json:"has_gift_note"`
}

// LineBreakdown records the per-unit components of one priced line
type LineBreakdown struct {
	VariantID         string      `json:"variant_id"`
	Quantity          int         `json:"quantity"`
	BasePrice         money.Money `json:"base_price"`
	ModificationPrice money.Money `json:"modification_price"`
	StitchPrice       money.Money `json:"stitch_price"`
	GiftNotePrice     money.Money `json:"gift_note_price"`
	Discount          money.Money `json:"discount"`
	LineTotal         money.Money `json:"line_total"`
}

// PriceBreakdown holds the order aggregates, each rounded once
type PriceBreakdown struct {
	Subtotal           money.Money     `json:"subtotal"`
	TotalDiscount      money.Money     `json:"total_discount"`
	TotalModifications money.Money     `json:"total_modifications"`
	TotalStitchCharges money.Money     `json:"total_stitch_charges"`
	TotalGiftNotes     money.Money     `json:"total_gift_notes"`
	Total              money.Money     `json:"total"`
	Lines              []LineBreakdown `json:"lines"`
}

// PriceResult is the output of an order pricing calculation
type PriceResult struct {
	ProfileID string          `json:"profile_id,omitempty"`
	Total     money.Money     `json:"total"`
	Breakdown *PriceBreakdown `json:"breakdown"`
}
