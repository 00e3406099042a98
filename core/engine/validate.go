package engine

import (
	"embroidery-pricing/core/types"
	"embroidery-pricing/internal/errors"
)

func validateShippingItems(items []types.ShippingItem) error {
	for i, item := range items {
		if item.Quantity < 1 {
			return errors.DomainInput("quantity must be at least 1").
				WithContext("item", i).
				WithContext("variant_id", item.VariantID)
		}
	}
	return nil
}

func validatePriceItems(items []PriceItem) error {
	for i, item := range items {
		if item.Quantity < 1 {
			return errors.DomainInput("quantity must be at least 1").
				WithContext("item", i).
				WithContext("variant_id", item.VariantID)
		}
		if item.StitchCount != nil && *item.StitchCount < 0 {
			return errors.DomainInput("stitch count must not be negative").WithContext("item", i)
		}
		if item.BasePrice != nil && item.BasePrice.IsNegative() {
			return errors.DomainInput("base price must not be negative").WithContext("item", i)
		}
		if item.ModificationPrice.IsNegative() {
			return errors.DomainInput("modification price must not be negative").WithContext("item", i)
		}
	}
	return nil
}

func validateQuote(req types.QuoteRequest) error {
	if req.Width != nil && req.Width.IsNegative() {
		return errors.DomainInput("width must not be negative")
	}
	if req.Height != nil && req.Height.IsNegative() {
		return errors.DomainInput("height must not be negative")
	}
	if req.ColorCount != nil && *req.ColorCount < 0 {
		return errors.DomainInput("color count must not be negative")
	}
	if req.EstimatedStitchCount != nil && *req.EstimatedStitchCount < 0 {
		return errors.DomainInput("estimated stitch count must not be negative")
	}
	return nil
}
