// Package types - Tenant pricing profiles
package types

import (
	"github.com/shopspring/decimal"

	"embroidery-pricing/core/money"
)

// RateTier is the per-unit price table of one weight class.
// Missing values are zero.
type RateTier struct {
	// First is the price of the first unit
	First money.Money `json:"first"`

	// Second is the price of the second unit
	Second money.Money `json:"second"`

	// Additional is the price of each unit after the second
	Additional money.Money `json:"additional"`
}

// AdjustmentStep is one percentage or flat change to a running amount
type AdjustmentStep struct {
	Kind   AdjustmentKind `json:"kind"`
	Amount money.Money    `json:"amount"`
}

// ShippingMethod is a configured carrier service with an extra fee
type ShippingMethod struct {
	// Name matches "<carrier> <service>" of a carrier rate
	Name string `json:"name"`

	// ExtraFee is added after the profile adjustment
	ExtraFee money.Money `json:"extra_fee"`
}

// ShippingProfile is a tenant's shipping-rate configuration
type ShippingProfile struct {
	ID        string      `json:"id"`
	TenantID  string      `json:"tenant_id"`
	Name      string      `json:"name"`
	Type      ProfileType `json:"type"`
	IsDefault bool        `json:"is_default"`

	// Heavy and Light are the quantity tiers for QuantityBased profiles
	Heavy RateTier `json:"heavy"`
	Light RateTier `json:"light"`

	// Adjustment is applied to carrier rates (APIBased) before method fees
	Adjustment *AdjustmentStep `json:"adjustment,omitempty"`

	Methods []ShippingMethod `json:"methods,omitempty"`
}

// DiscountRule is a percentage or flat per-unit discount
type DiscountRule struct {
	Type   AdjustmentKind `json:"type"`
	Amount money.Money    `json:"amount"`
}

// DiscountOverride replaces the profile default discount for one variant
type DiscountOverride struct {
	VariantID string       `json:"variant_id"`
	Rule      DiscountRule `json:"rule"`
}

// PriceProfile is a tenant's order pricing configuration
type PriceProfile struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`

	// Discount is the default rule for variants without an override
	Discount DiscountRule `json:"discount"`

	Overrides []DiscountOverride `json:"overrides,omitempty"`

	// StitchPrice is charged per stitch on items with a stitch count
	StitchPrice money.Money `json:"stitch_price"`

	// GiftNotePrice is charged per unit on items with a gift note
	GiftNotePrice money.Money `json:"gift_note_price"`
}

// DigitizingProfile holds the quote constants for digitizing orders. Every
// field is used as stored; zero values are real configuration.
type DigitizingProfile struct {
	TenantID string `json:"tenant_id,omitempty"`

	BasePrice money.Money `json:"base_price"`

	// RushMultiplier scales the base price; the rush fee is base*(multiplier-1)
	RushMultiplier decimal.Decimal `json:"rush_multiplier"`

	// ComplexityThreshold is the stitch count above which a fee applies
	ComplexityThreshold int64 `json:"complexity_threshold"`

	// ComplexityRate is charged per 1000 stitches above the threshold
	ComplexityRate money.Money `json:"complexity_rate"`

	// Defaults used when the request omits a dimension or color count
	DefaultWidth      decimal.Decimal `json:"default_width"`
	DefaultHeight     decimal.Decimal `json:"default_height"`
	DefaultColorCount int             `json:"default_color_count"`
}

// Literal turnaround strings are part of the quote contract
const (
	TurnaroundRush     = "24-48 hours"
	TurnaroundStandard = "3-5 business days"

	HighStitchCountNote = "High stitch count design: a complexity fee has been added for stitches above the standard threshold."
)

// DefaultDigitizing is the single table of digitizing fallbacks. Profile
// loaders take from it the fields a profile leaves out.
var DefaultDigitizing = DigitizingProfile{
	BasePrice:           money.MustParse("25.00"),
	RushMultiplier:      decimal.RequireFromString("1.5"),
	ComplexityThreshold: 10000,
	ComplexityRate:      money.MustParse("2.00"),
	DefaultWidth:        decimal.RequireFromString("3.0"),
	DefaultHeight:       decimal.RequireFromString("3.0"),
	DefaultColorCount:   1,
}

// Variant is the catalog record the pricing path reads a base price from
type Variant struct {
	ID        string      `json:"id"`
	TenantID  string      `json:"tenant_id"`
	SKU       string      `json:"sku,omitempty"`
	BasePrice money.Money `json:"base_price"`
	IsHeavy   bool        `json:"is_heavy"`
}
