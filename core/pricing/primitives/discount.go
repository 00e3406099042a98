// Package primitives - Discount resolution
package primitives

import (
	"embroidery-pricing/core/money"
	"embroidery-pricing/core/types"
)

// EffectiveRule returns the override for variantID if one exists, else the
// profile default. An override replaces the default whole, never per field.
func EffectiveRule(profile *types.PriceProfile, variantID string) (types.DiscountRule, bool) {
	if profile == nil {
		return types.DiscountRule{}, false
	}
	for _, o := range profile.Overrides {
		if o.VariantID == variantID {
			return o.Rule, true
		}
	}
	return profile.Discount, true
}

// ResolveDiscount computes the per-unit discount for a variant at price.
// Percent discounts are rounded to 2dp; flat discounts are returned as is.
// A nil profile yields zero.
func ResolveDiscount(profile *types.PriceProfile, variantID string, price money.Money) money.Money {
	rule, ok := EffectiveRule(profile, variantID)
	if !ok {
		return money.Zero()
	}
	switch rule.Type {
	case types.AdjustmentPercent:
		return price.MulRatio(rule.Amount.Decimal(), hundred).Round()
	default:
		return rule.Amount
	}
}
