// Package primitives - Tiered quantity pricing
// First unit, second unit, and every additional unit each have their own price.
package primitives

import (
	"embroidery-pricing/core/money"
	"embroidery-pricing/core/types"
)

// TierTotal computes the unrounded cost of n units against one tier table
func TierTotal(n int, tier types.RateTier) money.Money {
	switch {
	case n <= 0:
		return money.Zero()
	case n == 1:
		return tier.First
	case n == 2:
		return tier.First.Add(tier.Second)
	default:
		additional := tier.Additional.MulInt(int64(n - 2))
		return tier.First.Add(tier.Second).Add(additional)
	}
}

// ClassCounts sums quantities per weight class. Order of items is irrelevant.
func ClassCounts(items []types.ShippingItem) (heavy, light int) {
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if item.IsHeavy {
			heavy += item.Quantity
		} else {
			light += item.Quantity
		}
	}
	return heavy, light
}
