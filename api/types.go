// Package api - API types for the pricing endpoints
// These types define the wire contract; the engine never sees them.
package api

import (
	"github.com/shopspring/decimal"

	"embroidery-pricing/core/engine"
	"embroidery-pricing/core/money"
	"embroidery-pricing/core/types"
)

// TenantHeader carries the tenant id on every /v1 request
const TenantHeader = "X-Tenant-ID"

// CalculationHeader carries the id of the stored calculation record
const CalculationHeader = "X-Calculation-ID"

// ShippingItem is one order line in a shipping request
type ShippingItem struct {
	VariantID string `json:"variant_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
	IsHeavy   bool   `json:"is_heavy"`
}

// ShippingRequest is the input to POST /v1/shipping/calculate
type ShippingRequest struct {
	ProfileID string         `json:"profile_id,omitempty"`
	Items     []ShippingItem `json:"items" validate:"dive"`
}

func (r ShippingRequest) toEngine(tenantID string) engine.ShippingRequest {
	items := make([]types.ShippingItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = types.ShippingItem{VariantID: it.VariantID, Quantity: it.Quantity, IsHeavy: it.IsHeavy}
	}
	return engine.ShippingRequest{TenantID: tenantID, ProfileID: r.ProfileID, Items: items}
}

// Address is a postal address in a rates request
type Address struct {
	Name       string `json:"name,omitempty"`
	Street1    string `json:"street1" validate:"required"`
	Street2    string `json:"street2,omitempty"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required,len=2"`
}

func (a Address) toTypes() types.Address {
	return types.Address(a)
}

// Parcel is the package being shipped
type Parcel struct {
	Length   string `json:"length" validate:"required,numeric"`
	Width    string `json:"width" validate:"required,numeric"`
	Height   string `json:"height" validate:"required,numeric"`
	WeightOz string `json:"weight_oz" validate:"required,numeric"`
}

// RatesRequest is the input to POST /v1/shipping/rates
type RatesRequest struct {
	ProfileID string             `json:"profile_id,omitempty"`
	From      Address            `json:"from"`
	To        Address            `json:"to"`
	Parcel    Parcel             `json:"parcel"`
	Customs   *types.CustomsInfo `json:"customs,omitempty"`
}

func (r RatesRequest) toEngine(tenantID string) engine.RatesRequest {
	return engine.RatesRequest{
		TenantID:  tenantID,
		ProfileID: r.ProfileID,
		Shipment: types.Shipment{
			From:    r.From.toTypes(),
			To:      r.To.toTypes(),
			Parcel:  types.Parcel(r.Parcel),
			Customs: r.Customs,
		},
	}
}

// RatesResponse wraps the adjusted carrier rates, cheapest first, and the
// shipping profile applied to them
type RatesResponse struct {
	ProfileID string               `json:"profile_id,omitempty"`
	Rates     []types.AdjustedRate `json:"rates"`
}

// PriceItem is one order line in a pricing request. BasePrice overrides the
// catalog price of the variant.
type PriceItem struct {
	VariantID         string       `json:"variant_id" validate:"required"`
	Quantity          int          `json:"quantity" validate:"gte=1"`
	BasePrice         *money.Money `json:"base_price,omitempty"`
	ModificationPrice money.Money  `json:"modification_price"`
	StitchCount       *int         `json:"stitch_count,omitempty" validate:"omitempty,gte=0"`
	HasGiftNote       bool         `json:"has_gift_note"`
}

// PriceRequest is the input to POST /v1/pricing/calculate
type PriceRequest struct {
	ProfileID string      `json:"profile_id,omitempty"`
	Items     []PriceItem `json:"items" validate:"dive"`
}

func (r PriceRequest) toEngine(tenantID string) engine.PriceRequest {
	items := make([]engine.PriceItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = engine.PriceItem{
			VariantID:         it.VariantID,
			Quantity:          it.Quantity,
			BasePrice:         it.BasePrice,
			ModificationPrice: it.ModificationPrice,
			StitchCount:       it.StitchCount,
			HasGiftNote:       it.HasGiftNote,
		}
	}
	return engine.PriceRequest{TenantID: tenantID, ProfileID: r.ProfileID, Items: items}
}

// QuoteRequest is the input to POST /v1/digitizing/quote
type QuoteRequest struct {
	Width                *decimal.Decimal `json:"width,omitempty"`
	Height               *decimal.Decimal `json:"height,omitempty"`
	ColorCount           *int             `json:"color_count,omitempty" validate:"omitempty,gte=0"`
	EstimatedStitchCount *int64           `json:"estimated_stitch_count,omitempty" validate:"omitempty,gte=0"`
	IsRush               bool             `json:"is_rush"`
}

func (r QuoteRequest) toEngine(tenantID string) engine.QuoteRequest {
	return engine.QuoteRequest{
		TenantID:     tenantID,
		QuoteRequest: types.QuoteRequest(r),
	}
}

// QuoteBatchRequest is the input to POST /v1/digitizing/quotes.
// A batch holds at most 100 quotes.
type QuoteBatchRequest struct {
	Quotes []QuoteRequest `json:"quotes" validate:"required,min=1,max=100,dive"`
}

// QuoteBatchResponse holds quotes in request order
type QuoteBatchResponse struct {
	Quotes []types.QuoteResult `json:"quotes"`
}

// ErrorBody is the error envelope
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failed request
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
