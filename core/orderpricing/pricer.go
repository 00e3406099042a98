// Package orderpricing composes line-item prices and order totals from a
// price profile: base price, modifications, stitch and gift-note add-ons,
// and the resolved discount.
package orderpricing

import (
	"embroidery-pricing/core/money"
	"embroidery-pricing/core/pricing/primitives"
	"embroidery-pricing/core/types"
)

// unitComponents are the unrounded per-unit parts of one line
type unitComponents struct {
	base         money.Money
	modification money.Money
	stitch       money.Money
	giftNote     money.Money
	discount     money.Money
}

func (u unitComponents) net() money.Money {
	return money.Sum(u.base, u.modification, u.stitch, u.giftNote).Sub(u.discount)
}

// totals is the fold accumulator; every field is quantity-scaled and unrounded
type totals struct {
	subtotal      money.Money
	discount      money.Money
	modifications money.Money
	stitch        money.Money
	giftNotes     money.Money
}

func (t totals) plus(u unitComponents, qty int64) totals {
	return totals{
		subtotal:      t.subtotal.Add(u.base.MulInt(qty)),
		discount:      t.discount.Add(u.discount.MulInt(qty)),
		modifications: t.modifications.Add(u.modification.MulInt(qty)),
		stitch:        t.stitch.Add(u.stitch.MulInt(qty)),
		giftNotes:     t.giftNotes.Add(u.giftNote.MulInt(qty)),
	}
}

func components(profile *types.PriceProfile, item types.LineItem) unitComponents {
	c := unitComponents{
		base:         item.BasePrice,
		modification: item.ModificationPrice,
		stitch:       money.Zero(),
		giftNote:     money.Zero(),
	}
	if profile != nil {
		if item.StitchCount != nil && *item.StitchCount > 0 {
			c.stitch = profile.StitchPrice.MulInt(int64(*item.StitchCount))
		}
		if item.HasGiftNote {
			c.giftNote = profile.GiftNotePrice
		}
	}
	c.discount = primitives.ResolveDiscount(profile, item.VariantID, item.BasePrice.Add(item.ModificationPrice))
	return c
}

// PriceOrder prices every item and folds the order aggregates.
//
// Line totals are rounded per line. Aggregates are sums of unrounded
// per-unit contributions times quantity, each rounded once here, so they
// never accumulate line-level rounding. Items with a quantity below one are
// skipped; the caller validates quantities.
func PriceOrder(profile *types.PriceProfile, items []types.LineItem) types.PriceResult {
	lines := make([]types.LineBreakdown, 0, len(items))
	acc := totals{}

	for _, item := range items {
		if item.Quantity < 1 {
			continue
		}
		qty := int64(item.Quantity)
		c := components(profile, item)

		lines = append(lines, types.LineBreakdown{
			VariantID:         item.VariantID,
			Quantity:          item.Quantity,
			BasePrice:         c.base,
			ModificationPrice: c.modification,
			StitchPrice:       c.stitch,
			GiftNotePrice:     c.giftNote,
			Discount:          c.discount,
			LineTotal:         c.net().MulInt(qty).Round(),
		})
		acc = acc.plus(c, qty)
	}

	breakdown := &types.PriceBreakdown{
		Subtotal:           acc.subtotal.Round(),
		TotalDiscount:      acc.discount.Round(),
		TotalModifications: acc.modifications.Round(),
		TotalStitchCharges: acc.stitch.Round(),
		TotalGiftNotes:     acc.giftNotes.Round(),
		Lines:              lines,
	}
	breakdown.Total = money.Sum(
		breakdown.Subtotal,
		breakdown.TotalModifications,
		breakdown.TotalStitchCharges,
		breakdown.TotalGiftNotes,
	).Sub(breakdown.TotalDiscount)

	result := types.PriceResult{Total: breakdown.Total, Breakdown: breakdown}
	if profile != nil {
		result.ProfileID = profile.ID
	}
	return result
}
