// Package primitives - Ordered adjustment chains
package primitives

import (
	"embroidery-pricing/core/money"
	"embroidery-pricing/core/types"
)

// Pipeline is an ordered list of adjustments applied left to right
type Pipeline []types.AdjustmentStep

// NewPipeline builds the carrier-rate chain: profile adjustment first (when
// present), then the method's flat extra fee.
func NewPipeline(profile *types.AdjustmentStep, methodFee money.Money) Pipeline {
	steps := make(Pipeline, 0, 2)
	if profile != nil {
		steps = append(steps, *profile)
	}
	steps = append(steps, types.AdjustmentStep{Kind: types.AdjustmentFlat, Amount: methodFee})
	return steps
}

// Apply runs the chain against base without rounding.
// Percent steps compound on the current running amount.
func (p Pipeline) Apply(base money.Money) money.Money {
	running := base
	for _, step := range p {
		running = ApplyStep(running, step)
	}
	return running
}

// ApplyStep applies a single adjustment
func ApplyStep(amount money.Money, step types.AdjustmentStep) money.Money {
	switch step.Kind {
	case types.AdjustmentPercent:
		return amount.Add(amount.MulRatio(step.Amount.Decimal(), hundred))
	default:
		return amount.Add(step.Amount)
	}
}

// Settle applies the chain and rounds once
func (p Pipeline) Settle(base money.Money) money.Money {
	return p.Apply(base).Round()
}
