// Package types - Shipping inputs and results
package types

import "embroidery-pricing/core/money"

// ShippingItem is one order line as seen by the shipping calculator
type ShippingItem struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	IsHeavy   bool   `json:"is_heavy"`
}

// Address is a postal address passed through to the rate provider
type Address struct {
	Name       string `json:"name,omitempty"`
	Street1    string `json:"street1"`
	Street2    string `json:"street2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Parcel describes the package dimensions (inches) and weight (ounces)
type Parcel struct {
	Length   string `json:"length"`
	Width    string `json:"width"`
	Height   string `json:"height"`
	WeightOz string `json:"weight_oz"`
}

// CustomsInfo is required by carriers for international shipments
type CustomsInfo struct {
	ContentsType string       `json:"contents_type"`
	Items        []CustomsItem `json:"items"`
}

// CustomsItem is one declared customs line
type CustomsItem struct {
	Description string      `json:"description"`
	Quantity    int         `json:"quantity"`
	Value       money.Money `json:"value"`
	WeightOz    string      `json:"weight_oz"`
	HSTariff    string      `json:"hs_tariff,omitempty"`
	Origin      string      `json:"origin_country"`
}

// Shipment is the request sent to the external rate provider
type Shipment struct {
	From    Address      `json:"from"`
	To      Address      `json:"to"`
	Parcel  Parcel       `json:"parcel"`
	Customs *CustomsInfo `json:"customs,omitempty"`
}

// RawRate is an unadjusted carrier quote
type RawRate struct {
	ID           string      `json:"id,omitempty"`
	Carrier      string      `json:"carrier"`
	Service      string      `json:"service"`
	Rate         money.Money `json:"rate"`
	Currency     string      `json:"currency,omitempty"`
	DeliveryDays *int        `json:"delivery_days,omitempty"`
}

// MethodName is the "<carrier> <service>" key used to match shipping methods
func (r RawRate) MethodName() string {
	return r.Carrier + " " + r.Service
}

// AdjustedRate is a carrier quote after profile and method adjustments
type AdjustedRate struct {
	ID           string      `json:"id,omitempty"`
	Carrier      string      `json:"carrier"`
	Service      string      `json:"service"`
	Currency     string      `json:"currency,omitempty"`
	DeliveryDays *int        `json:"delivery_days,omitempty"`
	OriginalRate money.Money `json:"original_rate"`
	ExtraFee     money.Money `json:"extra_fee"`
	Rate         money.Money `json:"rate"`
}

// ShippingBreakdown is produced alongside the total for traceability.
// HeavyTotal and LightTotal are each rounded for display, while Subtotal
// rounds the unrounded sum once, so with sub-cent tier prices the parts may
// differ from Subtotal by a cent. Subtotal is authoritative.
type ShippingBreakdown struct {
	ProfileType ProfileType `json:"profile_type"`
	HeavyCount  int         `json:"heavy_count"`
	LightCount  int         `json:"light_count"`
	HeavyTotal  money.Money `json:"heavy_total"`
	LightTotal  money.Money `json:"light_total"`
	Subtotal    money.Money `json:"subtotal"`

	// Markup is recorded for APIBased profiles and applied once real rates arrive
	Markup *AdjustmentStep `json:"markup,omitempty"`
}

// ShippingResult is the output of a shipping calculation.
// A nil Breakdown means nothing applicable was found; ProfileType says why.
type ShippingResult struct {
	ProfileID   string             `json:"profile_id,omitempty"`
	ProfileType ProfileType        `json:"profile_type"`
	Total       money.Money        `json:"total"`
	Breakdown   *ShippingBreakdown `json:"breakdown"`
}
