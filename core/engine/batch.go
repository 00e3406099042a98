package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"embroidery-pricing/core/types"
)

// QuoteBatch evaluates independent digitizing quotes in parallel.
// Results are in input order; the first error cancels the rest.
func (e *Engine) QuoteBatch(ctx context.Context, reqs []QuoteRequest) ([]types.QuoteResult, error) {
	results := make([]types.QuoteResult, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.BatchConcurrency)

	for i, req := range reqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := e.DigitizingQuote(ctx, req)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// PriceOrders prices independent orders in parallel.
// Results are in input order; the first error cancels the rest.
func (e *Engine) PriceOrders(ctx context.Context, reqs []PriceRequest) ([]types.PriceResult, error) {
	results := make([]types.PriceResult, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.BatchConcurrency)

	for i, req := range reqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := e.PriceOrder(ctx, req)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
