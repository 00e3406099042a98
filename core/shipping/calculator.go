// Package shipping computes order shipping cost from a shipping profile and
// adjusts carrier rates for display and selection.
package shipping

import (
	"embroidery-pricing/core/determinism"
	"embroidery-pricing/core/money"
	"embroidery-pricing/core/pricing/primitives"
	"embroidery-pricing/core/types"
)

// Calculate computes the shipping total for items under profile.
//
// QuantityBased profiles price heavy and light units through their own tier
// tables. APIBased profiles return a zero placeholder whose breakdown carries
// the markup to apply once carrier rates are known. A nil profile or an
// unsupported type yields a zero total with no breakdown.
func Calculate(profile *types.ShippingProfile, items []types.ShippingItem) types.ShippingResult {
	if profile == nil {
		return types.ShippingResult{ProfileType: types.ProfileTypeNone, Total: money.Zero()}
	}

	result := types.ShippingResult{
		ProfileID:   profile.ID,
		ProfileType: profile.Type,
		Total:       money.Zero(),
	}

	switch profile.Type {
	case types.ProfileTypeQuantityBased:
		heavy, light := primitives.ClassCounts(items)
		heavyTotal := primitives.TierTotal(heavy, profile.Heavy)
		lightTotal := primitives.TierTotal(light, profile.Light)
		subtotal := heavyTotal.Add(lightTotal).Round()

		result.Total = subtotal
		result.Breakdown = &types.ShippingBreakdown{
			ProfileType: profile.Type,
			HeavyCount:  heavy,
			LightCount:  light,
			HeavyTotal:  heavyTotal.Round(),
			LightTotal:  lightTotal.Round(),
			Subtotal:    subtotal,
		}

	case types.ProfileTypeAPIBased:
		heavy, light := primitives.ClassCounts(items)
		var markup *types.AdjustmentStep
		if profile.Adjustment != nil {
			adj := *profile.Adjustment
			markup = &adj
		}
		result.Breakdown = &types.ShippingBreakdown{
			ProfileType: profile.Type,
			HeavyCount:  heavy,
			LightCount:  light,
			HeavyTotal:  money.Zero(),
			LightTotal:  money.Zero(),
			Subtotal:    money.Zero(),
			Markup:      markup,
		}

	default:
		result.ProfileType = types.ProfileTypeUnsupported
	}

	return result
}

// MethodFee returns the extra fee configured for "<carrier> <service>",
// or zero when no method matches
func MethodFee(methods []types.ShippingMethod, name string) money.Money {
	for _, m := range methods {
		if m.Name == name {
			return m.ExtraFee
		}
	}
	return money.Zero()
}

// AdjustRates applies the profile adjustment and per-method fee to every
// carrier rate, rounds each once, and returns them sorted ascending by the
// adjusted rate. Equal rates keep their input order. The input is not modified.
func AdjustRates(rates []types.RawRate, adjustment *types.AdjustmentStep, methods []types.ShippingMethod) []types.AdjustedRate {
	out := make([]types.AdjustedRate, 0, len(rates))
	for _, r := range rates {
		fee := MethodFee(methods, r.MethodName())
		adjusted := primitives.NewPipeline(adjustment, fee).Settle(r.Rate)
		out = append(out, types.AdjustedRate{
			ID:           r.ID,
			Carrier:      r.Carrier,
			Service:      r.Service,
			Currency:     r.Currency,
			DeliveryDays: r.DeliveryDays,
			OriginalRate: r.Rate,
			ExtraFee:     fee,
			Rate:         adjusted,
		})
	}

	determinism.SortSlice(out, func(a, b types.AdjustedRate) bool {
		return a.Rate.Cmp(b.Rate) < 0
	})
	return out
}

// AdjustRatesForProfile is AdjustRates with the adjustment and methods taken
// from profile. A nil profile leaves rates unadjusted apart from sorting.
func AdjustRatesForProfile(profile *types.ShippingProfile, rates []types.RawRate) []types.AdjustedRate {
	if profile == nil {
		return AdjustRates(rates, nil, nil)
	}
	return AdjustRates(rates, profile.Adjustment, profile.Methods)
}
