// Package engine provides the API-primary calculation engine.
// CLI and HTTP are thin wrappers around this engine.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"embroidery-pricing/core/digitizing"
	"embroidery-pricing/core/money"
	"embroidery-pricing/core/orderpricing"
	"embroidery-pricing/core/shipping"
	"embroidery-pricing/core/types"
	"embroidery-pricing/internal/errors"
	"embroidery-pricing/internal/logging"
	"embroidery-pricing/internal/metrics"
)

// ProfileSource resolves tenant profiles. An empty profileID selects the
// tenant default. A profile that does not exist is (nil, nil).
type ProfileSource interface {
	ShippingProfile(ctx context.Context, tenantID, profileID string) (*types.ShippingProfile, error)
	PriceProfile(ctx context.Context, tenantID, profileID string) (*types.PriceProfile, error)
	DigitizingProfile(ctx context.Context, tenantID string) (*types.DigitizingProfile, error)
}

// VariantSource resolves catalog variants. Absent variants are (nil, nil).
type VariantSource interface {
	Variant(ctx context.Context, variantID, tenantID string) (*types.Variant, error)
}

// RateProvider fetches raw carrier rates for a shipment
type RateProvider interface {
	Quote(ctx context.Context, shipment types.Shipment) ([]types.RawRate, error)
}

// Engine is the primary API for pricing calculations.
// The calculators it calls are pure; the engine only does the lookups.
type Engine struct {
	profiles ProfileSource
	variants VariantSource
	rates    RateProvider

	config  Config
	logger  *zap.Logger
	metrics *metrics.Collector
}

// Config configures the engine
type Config struct {
	// BatchConcurrency bounds parallel evaluation in batch calls
	BatchConcurrency int

	// Logger receives warnings about degraded results; nil disables logging
	Logger *zap.Logger

	// Metrics records calculation counts and latency; nil disables metrics
	Metrics *metrics.Collector
}

// DefaultBatchConcurrency is used when Config.BatchConcurrency is not positive
const DefaultBatchConcurrency = 8

// New creates an engine. variants and rates may be nil when the caller
// never prices by variant or fetches carrier rates.
func New(profiles ProfileSource, variants VariantSource, rates RateProvider, config Config) *Engine {
	if config.BatchConcurrency < 1 {
		config.BatchConcurrency = DefaultBatchConcurrency
	}
	return &Engine{
		profiles: profiles,
		variants: variants,
		rates:    rates,
		config:   config,
		logger:   logging.OrNop(config.Logger),
		metrics:  config.Metrics,
	}
}

// ShippingRequest is the input to CalculateShipping
type ShippingRequest struct {
	TenantID  string               `json:"tenant_id"`
	ProfileID string               `json:"profile_id,omitempty"`
	Items     []types.ShippingItem `json:"items"`
}

// RatesRequest is the input to ShippingRates
type RatesRequest struct {
	TenantID  string         `json:"tenant_id"`
	ProfileID string         `json:"profile_id,omitempty"`
	Shipment  types.Shipment `json:"shipment"`
}

// PriceItem is a line item whose base price may come from the catalog
type PriceItem struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`

	// BasePrice overrides the catalog price when set
	BasePrice *money.Money `json:"base_price,omitempty"`

	ModificationPrice money.Money `json:"modification_price"`
	StitchCount       *int        `json:"stitch_count,omitempty"`
	HasGiftNote       bool        `json:"has_gift_note"`
}

// PriceRequest is the input to PriceOrder
type PriceRequest struct {
	TenantID  string      `json:"tenant_id"`
	ProfileID string      `json:"profile_id,omitempty"`
	Items     []PriceItem `json:"items"`
}

// QuoteRequest is the input to DigitizingQuote
type QuoteRequest struct {
	TenantID string `json:"tenant_id"`
	types.QuoteRequest
}

// CalculateShipping resolves the shipping profile and computes the cost.
// A tenant without a default profile gets a zero result tagged "none".
func (e *Engine) CalculateShipping(ctx context.Context, req ShippingRequest) (types.ShippingResult, error) {
	start := time.Now()

	if err := validateShippingItems(req.Items); err != nil {
		e.observe(metrics.KindShipping, metrics.OutcomeError, start)
		return types.ShippingResult{}, err
	}

	profile, err := e.shippingProfile(ctx, req.TenantID, req.ProfileID)
	if err != nil {
		e.observe(metrics.KindShipping, metrics.OutcomeError, start)
		return types.ShippingResult{}, err
	}

	result := shipping.Calculate(profile, req.Items)
	if result.ProfileType == types.ProfileTypeUnsupported {
		e.logger.Warn("unsupported shipping profile type",
			logging.Tenant(req.TenantID),
			zap.String("profile_id", profile.ID),
			zap.String("type", string(profile.Type)))
	}

	outcome := metrics.OutcomeOK
	if result.Breakdown == nil {
		outcome = metrics.OutcomeNoMatch
	}
	e.observe(metrics.KindShipping, outcome, start)
	return result, nil
}

// RatesResult is a set of adjusted carrier rates, cheapest first, and the id
// of the shipping profile applied to them. ProfileID is empty when the tenant
// has no profile to apply.
type RatesResult struct {
	ProfileID string               `json:"profile_id,omitempty"`
	Rates     []types.AdjustedRate `json:"rates"`
}

// Cheapest is the lowest adjusted rate, zero without rates. It is the total
// recorded for a rates calculation.
func (r RatesResult) Cheapest() money.Money {
	if len(r.Rates) == 0 {
		return money.Zero()
	}
	return r.Rates[0].Rate
}

// ShippingRates fetches carrier rates and applies the profile adjustment and
// method fees. Without a profile the raw rates are returned sorted.
func (e *Engine) ShippingRates(ctx context.Context, req RatesRequest) ([]types.AdjustedRate, error) {
	result, err := e.ResolveShippingRates(ctx, req)
	if err != nil {
		return nil, err
	}
	return result.Rates, nil
}

// ResolveShippingRates is ShippingRates reporting the resolved profile id,
// which is the tenant default when the request names none.
func (e *Engine) ResolveShippingRates(ctx context.Context, req RatesRequest) (RatesResult, error) {
	start := time.Now()

	if e.rates == nil {
		e.observe(metrics.KindRates, metrics.OutcomeError, start)
		return RatesResult{}, errors.New(errors.TypeProvider, "no rate provider configured")
	}

	profile, err := e.shippingProfile(ctx, req.TenantID, req.ProfileID)
	if err != nil {
		e.observe(metrics.KindRates, metrics.OutcomeError, start)
		return RatesResult{}, err
	}

	raw, err := e.rates.Quote(ctx, req.Shipment)
	if err != nil {
		e.observe(metrics.KindRates, metrics.OutcomeError, start)
		return RatesResult{}, wrapAs(errors.TypeProvider, "fetch carrier rates", err)
	}

	result := RatesResult{Rates: shipping.AdjustRatesForProfile(profile, raw)}
	if profile != nil {
		result.ProfileID = profile.ID
	}
	e.observe(metrics.KindRates, metrics.OutcomeOK, start)
	return result, nil
}

// PriceOrder resolves the price profile and any catalog base prices, then
// prices the order.
func (e *Engine) PriceOrder(ctx context.Context, req PriceRequest) (types.PriceResult, error) {
	start := time.Now()

	if err := validatePriceItems(req.Items); err != nil {
		e.observe(metrics.KindPricing, metrics.OutcomeError, start)
		return types.PriceResult{}, err
	}

	profile, err := e.priceProfile(ctx, req.TenantID, req.ProfileID)
	if err != nil {
		e.observe(metrics.KindPricing, metrics.OutcomeError, start)
		return types.PriceResult{}, err
	}

	items, err := e.lineItems(ctx, req.TenantID, req.Items)
	if err != nil {
		e.observe(metrics.KindPricing, metrics.OutcomeError, start)
		return types.PriceResult{}, err
	}

	result := orderpricing.PriceOrder(profile, items)

	outcome := metrics.OutcomeOK
	if profile == nil {
		outcome = metrics.OutcomeNoMatch
	}
	e.observe(metrics.KindPricing, outcome, start)
	return result, nil
}

// DigitizingQuote computes a digitizing quote from the tenant profile, or
// the built-in defaults when the tenant has none.
func (e *Engine) DigitizingQuote(ctx context.Context, req QuoteRequest) (types.QuoteResult, error) {
	start := time.Now()

	if err := validateQuote(req.QuoteRequest); err != nil {
		e.observe(metrics.KindDigitizing, metrics.OutcomeError, start)
		return types.QuoteResult{}, err
	}

	profile := types.DefaultDigitizing
	if e.profiles != nil {
		p, err := e.profiles.DigitizingProfile(ctx, req.TenantID)
		if err != nil {
			e.observe(metrics.KindDigitizing, metrics.OutcomeError, start)
			return types.QuoteResult{}, wrapAs(errors.TypeStorage, "load digitizing profile", err)
		}
		if p != nil {
			profile = *p
		}
	}

	result := digitizing.Quote(profile, req.QuoteRequest)
	e.observe(metrics.KindDigitizing, metrics.OutcomeOK, start)
	return result, nil
}

func (e *Engine) shippingProfile(ctx context.Context, tenantID, profileID string) (*types.ShippingProfile, error) {
	if e.profiles == nil {
		return nil, nil
	}
	profile, err := e.profiles.ShippingProfile(ctx, tenantID, profileID)
	if err != nil {
		return nil, wrapAs(errors.TypeStorage, "load shipping profile", err)
	}
	if profile == nil && profileID != "" {
		return nil, errors.MissingReference("shipping profile", profileID)
	}
	return profile, nil
}

func (e *Engine) priceProfile(ctx context.Context, tenantID, profileID string) (*types.PriceProfile, error) {
	if e.profiles == nil {
		return nil, nil
	}
	profile, err := e.profiles.PriceProfile(ctx, tenantID, profileID)
	if err != nil {
		return nil, wrapAs(errors.TypeStorage, "load price profile", err)
	}
	if profile == nil && profileID != "" {
		return nil, errors.MissingReference("price profile", profileID)
	}
	return profile, nil
}

// lineItems fills catalog base prices. An absent variant prices at zero.
func (e *Engine) lineItems(ctx context.Context, tenantID string, items []PriceItem) ([]types.LineItem, error) {
	out := make([]types.LineItem, 0, len(items))
	for _, item := range items {
		line := types.LineItem{
			VariantID:         item.VariantID,
			Quantity:          item.Quantity,
			BasePrice:         money.Zero(),
			ModificationPrice: item.ModificationPrice,
			StitchCount:       item.StitchCount,
			HasGiftNote:       item.HasGiftNote,
		}

		switch {
		case item.BasePrice != nil:
			line.BasePrice = *item.BasePrice
		case e.variants != nil:
			variant, err := e.variants.Variant(ctx, item.VariantID, tenantID)
			if err != nil {
				return nil, wrapAs(errors.TypeStorage, "load variant", err)
			}
			if variant != nil {
				line.BasePrice = variant.BasePrice
			} else {
				e.logger.Debug("variant not found, pricing at zero",
					logging.Tenant(tenantID), zap.String("variant_id", item.VariantID))
			}
		}
		out = append(out, line)
	}
	return out, nil
}

func (e *Engine) observe(kind, outcome string, start time.Time) {
	e.metrics.Observe(kind, outcome, time.Since(start))
}

// wrapAs keeps typed errors from collaborators and wraps anything else
func wrapAs(t errors.Type, message string, err error) error {
	if _, ok := errors.As(err); ok {
		return err
	}
	return errors.Wrap(t, message, err)
}
