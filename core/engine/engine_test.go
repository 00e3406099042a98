package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"embroidery-pricing/core/money"
	"embroidery-pricing/core/types"
	"embroidery-pricing/internal/errors"
	"embroidery-pricing/internal/metrics"
)

func m(s string) money.Money {
	return money.MustParse(s)
}

func mp(s string) *money.Money {
	v := money.MustParse(s)
	return &v
}

// fakeProfiles keys profiles by tenant; the default is the entry with IsDefault
type fakeProfiles struct {
	shipping   []types.ShippingProfile
	price      []types.PriceProfile
	digitizing map[string]types.DigitizingProfile
	err        error
}

func (f *fakeProfiles) ShippingProfile(_ context.Context, tenantID, profileID string) (*types.ShippingProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.shipping {
		p := f.shipping[i]
		if p.TenantID != tenantID {
			continue
		}
		if (profileID != "" && p.ID == profileID) || (profileID == "" && p.IsDefault) {
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakeProfiles) PriceProfile(_ context.Context, tenantID, profileID string) (*types.PriceProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.price {
		p := f.price[i]
		if p.TenantID != tenantID {
			continue
		}
		if (profileID != "" && p.ID == profileID) || (profileID == "" && p.IsDefault) {
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakeProfiles) DigitizingProfile(_ context.Context, tenantID string) (*types.DigitizingProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.digitizing[tenantID]; ok {
		return &p, nil
	}
	return nil, nil
}

type fakeVariants map[string]types.Variant

func (f fakeVariants) Variant(_ context.Context, variantID, tenantID string) (*types.Variant, error) {
	v, ok := f[tenantID+"/"+variantID]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

type fakeRates struct {
	rates []types.RawRate
	err   error
	calls atomic.Int32
}

func (f *fakeRates) Quote(_ context.Context, _ types.Shipment) ([]types.RawRate, error) {
	f.calls.Add(1)
	return f.rates, f.err
}

func testProfiles() *fakeProfiles {
	return &fakeProfiles{
		shipping: []types.ShippingProfile{
			{
				ID: "tiers", TenantID: "t1", IsDefault: true, Type: types.ProfileTypeQuantityBased,
				Heavy: types.RateTier{First: m("10"), Second: m("5"), Additional: m("2")},
				Light: types.RateTier{First: m("4"), Second: m("2"), Additional: m("1")},
			},
			{
				ID: "carrier", TenantID: "t1", Type: types.ProfileTypeAPIBased,
				Adjustment: &types.AdjustmentStep{Kind: types.AdjustmentPercent, Amount: m("10")},
				Methods:    []types.ShippingMethod{{Name: "UPS Ground", ExtraFee: m("1.00")}},
			},
			{ID: "legacy", TenantID: "t1", Type: types.ProfileTypeFromCode(5)},
		},
		price: []types.PriceProfile{
			{
				ID: "retail", TenantID: "t1", IsDefault: true,
				Discount: types.DiscountRule{Type: types.AdjustmentPercent, Amount: m("10")},
			},
		},
		digitizing: map[string]types.DigitizingProfile{
			"t1": func() types.DigitizingProfile {
				p := types.DefaultDigitizing
				p.BasePrice = m("30.00")
				return p
			}(),
		},
	}
}

func TestCalculateShippingDefaultProfile(t *testing.T) {
	e := New(testProfiles(), nil, nil, Config{})
	res, err := e.CalculateShipping(context.Background(), ShippingRequest{
		TenantID: "t1",
		Items:    []types.ShippingItem{{Quantity: 3, IsHeavy: true}, {Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("CalculateShipping: %v", err)
	}
	// heavy 10+5+2 = 17, light 4
	if res.Total.String() != "21.00" || res.ProfileID != "tiers" {
		t.Fatalf("result = %s from %q", res.Total, res.ProfileID)
	}
}

func TestCalculateShippingMissingReferences(t *testing.T) {
	e := New(testProfiles(), nil, nil, Config{})
	ctx := context.Background()

	_, err := e.CalculateShipping(ctx, ShippingRequest{TenantID: "t1", ProfileID: "nope", Items: []types.ShippingItem{{Quantity: 1}}})
	if !errors.IsType(err, errors.TypeMissingReference) {
		t.Fatalf("explicit unknown profile: err = %v", err)
	}

	// no default for this tenant degrades to a zero result
	res, err := e.CalculateShipping(ctx, ShippingRequest{TenantID: "t2", Items: []types.ShippingItem{{Quantity: 1}}})
	if err != nil {
		t.Fatalf("no default: %v", err)
	}
	if !res.Total.IsZero() || res.Breakdown != nil || res.ProfileType != types.ProfileTypeNone {
		t.Fatalf("no default result = %+v", res)
	}

	res, err = e.CalculateShipping(ctx, ShippingRequest{TenantID: "t1", ProfileID: "legacy", Items: []types.ShippingItem{{Quantity: 1}}})
	if err != nil {
		t.Fatalf("unsupported: %v", err)
	}
	if res.ProfileType != types.ProfileTypeUnsupported || res.Breakdown != nil {
		t.Fatalf("unsupported result = %+v", res)
	}
}

func TestCalculateShippingRejectsBadQuantity(t *testing.T) {
	e := New(testProfiles(), nil, nil, Config{})
	_, err := e.CalculateShipping(context.Background(), ShippingRequest{TenantID: "t1", Items: []types.ShippingItem{{Quantity: 0}}})
	if !errors.IsType(err, errors.TypeDomainInput) {
		t.Fatalf("err = %v", err)
	}
}

func TestShippingRates(t *testing.T) {
	provider := &fakeRates{rates: []types.RawRate{
		{ID: "a", Carrier: "UPS", Service: "Ground", Rate: m("9.00")},
		{ID: "b", Carrier: "USPS", Service: "First", Rate: m("5.00")},
	}}
	e := New(testProfiles(), nil, provider, Config{})

	got, err := e.ShippingRates(context.Background(), RatesRequest{TenantID: "t1", ProfileID: "carrier"})
	if err != nil {
		t.Fatalf("ShippingRates: %v", err)
	}
	// USPS 5.00*1.1 = 5.50; UPS 9.00*1.1 + 1.00 = 10.90
	if got[0].ID != "b" || got[0].Rate.String() != "5.50" || got[1].Rate.String() != "10.90" {
		t.Fatalf("rates = %+v", got)
	}
	if !got[1].OriginalRate.Equal(m("9.00")) {
		t.Fatalf("original rate = %s", got[1].OriginalRate)
	}
}

func TestResolveShippingRatesReportsDefaultProfile(t *testing.T) {
	provider := &fakeRates{rates: []types.RawRate{
		{ID: "a", Carrier: "UPS", Service: "Ground", Rate: m("9.00")},
		{ID: "b", Carrier: "USPS", Service: "First", Rate: m("5.00")},
	}}
	e := New(testProfiles(), nil, provider, Config{})

	res, err := e.ResolveShippingRates(context.Background(), RatesRequest{TenantID: "t1"})
	if err != nil {
		t.Fatalf("ResolveShippingRates: %v", err)
	}
	if res.ProfileID != "tiers" {
		t.Errorf("profile = %q, want the tenant default", res.ProfileID)
	}
	if len(res.Rates) != 2 || !res.Cheapest().Equal(res.Rates[0].Rate) {
		t.Errorf("cheapest = %s, rates = %+v", res.Cheapest(), res.Rates)
	}

	res, err = e.ResolveShippingRates(context.Background(), RatesRequest{TenantID: "nobody"})
	if err != nil {
		t.Fatalf("ResolveShippingRates: %v", err)
	}
	if res.ProfileID != "" || res.Cheapest().String() != "5.00" {
		t.Errorf("no-profile result = %+v", res)
	}
}

func TestShippingRatesProviderFailure(t *testing.T) {
	e := New(testProfiles(), nil, &fakeRates{err: fmt.Errorf("carrier timeout")}, Config{})
	_, err := e.ShippingRates(context.Background(), RatesRequest{TenantID: "t1"})
	if !errors.IsType(err, errors.TypeProvider) {
		t.Fatalf("err = %v", err)
	}

	e = New(testProfiles(), nil, nil, Config{})
	if _, err := e.ShippingRates(context.Background(), RatesRequest{TenantID: "t1"}); !errors.IsType(err, errors.TypeProvider) {
		t.Fatalf("missing provider err = %v", err)
	}
}

func TestPriceOrderUsesCatalogPrices(t *testing.T) {
	variants := fakeVariants{"t1/shirt": {ID: "shirt", TenantID: "t1", BasePrice: m("20.00")}}
	e := New(testProfiles(), variants, nil, Config{})

	res, err := e.PriceOrder(context.Background(), PriceRequest{
		TenantID: "t1",
		Items: []PriceItem{
			{VariantID: "shirt", Quantity: 2},
			{VariantID: "ghost", Quantity: 1},
			{VariantID: "custom", Quantity: 1, BasePrice: mp("5.00")},
		},
	})
	if err != nil {
		t.Fatalf("PriceOrder: %v", err)
	}
	lines := res.Breakdown.Lines
	if lines[0].LineTotal.String() != "36.00" {
		t.Errorf("catalog line = %s, want 36.00", lines[0].LineTotal)
	}
	if !lines[1].BasePrice.IsZero() || !lines[1].LineTotal.IsZero() {
		t.Errorf("absent variant should price at zero: %+v", lines[1])
	}
	if lines[2].LineTotal.String() != "4.50" {
		t.Errorf("explicit price line = %s, want 4.50", lines[2].LineTotal)
	}
	if res.Total.String() != "40.50" || res.ProfileID != "retail" {
		t.Errorf("total = %s profile %q", res.Total, res.ProfileID)
	}
}

func TestPriceOrderErrors(t *testing.T) {
	e := New(testProfiles(), nil, nil, Config{})
	ctx := context.Background()

	_, err := e.PriceOrder(ctx, PriceRequest{TenantID: "t1", ProfileID: "vip", Items: []PriceItem{{VariantID: "x", Quantity: 1}}})
	if !errors.IsType(err, errors.TypeMissingReference) {
		t.Fatalf("unknown profile err = %v", err)
	}

	_, err = e.PriceOrder(ctx, PriceRequest{TenantID: "t1", Items: []PriceItem{{VariantID: "x", Quantity: -1}}})
	if !errors.IsType(err, errors.TypeDomainInput) {
		t.Fatalf("bad quantity err = %v", err)
	}

	failing := New(&fakeProfiles{err: fmt.Errorf("connection refused")}, nil, nil, Config{})
	_, err = failing.PriceOrder(ctx, PriceRequest{TenantID: "t1"})
	if !errors.IsType(err, errors.TypeStorage) {
		t.Fatalf("source failure err = %v", err)
	}
}

func TestDigitizingQuoteProfileAndDefaults(t *testing.T) {
	e := New(testProfiles(), nil, nil, Config{})
	ctx := context.Background()

	res, err := e.DigitizingQuote(ctx, QuoteRequest{TenantID: "t1", QuoteRequest: types.QuoteRequest{IsRush: true}})
	if err != nil {
		t.Fatalf("DigitizingQuote: %v", err)
	}
	if res.BasePrice.String() != "30.00" || res.RushFee.String() != "15.00" || res.TotalPrice.String() != "45.00" {
		t.Fatalf("tenant quote = %+v", res)
	}

	res, err = e.DigitizingQuote(ctx, QuoteRequest{TenantID: "other"})
	if err != nil {
		t.Fatalf("DigitizingQuote: %v", err)
	}
	if res.TotalPrice.String() != "25.00" || res.EstimatedStitchCount != 9900 {
		t.Fatalf("default quote = %+v", res)
	}

	negative := decimal.RequireFromString("-1")
	_, err = e.DigitizingQuote(ctx, QuoteRequest{QuoteRequest: types.QuoteRequest{Width: &negative}})
	if !errors.IsType(err, errors.TypeDomainInput) {
		t.Fatalf("negative width err = %v", err)
	}
}

func TestQuoteBatchPreservesOrder(t *testing.T) {
	e := New(testProfiles(), nil, nil, Config{BatchConcurrency: 3})

	reqs := make([]QuoteRequest, 20)
	for i := range reqs {
		stitches := int64(10000 + i*1000)
		reqs[i] = QuoteRequest{TenantID: "other", QuoteRequest: types.QuoteRequest{EstimatedStitchCount: &stitches}}
	}

	got, err := e.QuoteBatch(context.Background(), reqs)
	if err != nil {
		t.Fatalf("QuoteBatch: %v", err)
	}
	for i, res := range got {
		if res.EstimatedStitchCount != int64(10000+i*1000) {
			t.Fatalf("result %d out of order: %d", i, res.EstimatedStitchCount)
		}
		want := m("2.00").MulInt(int64(i)).Round()
		if !res.ComplexityFee.Equal(want) {
			t.Fatalf("result %d complexity = %s, want %s", i, res.ComplexityFee, want)
		}
	}
}

func TestPriceOrdersStopsOnError(t *testing.T) {
	e := New(testProfiles(), nil, nil, Config{BatchConcurrency: 2})
	reqs := []PriceRequest{
		{TenantID: "t1", Items: []PriceItem{{VariantID: "a", Quantity: 1, BasePrice: mp("10")}}},
		{TenantID: "t1", ProfileID: "missing"},
	}
	if _, err := e.PriceOrders(context.Background(), reqs); !errors.IsType(err, errors.TypeMissingReference) {
		t.Fatalf("err = %v", err)
	}

	got, err := e.PriceOrders(context.Background(), reqs[:1])
	if err != nil || len(got) != 1 || got[0].Total.String() != "9.00" {
		t.Fatalf("single batch = %+v, %v", got, err)
	}
}

func TestEngineRecordsMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := metrics.New("test", registry)
	e := New(testProfiles(), nil, nil, Config{Metrics: collector})
	ctx := context.Background()

	_, _ = e.CalculateShipping(ctx, ShippingRequest{TenantID: "t1", Items: []types.ShippingItem{{Quantity: 1}}})
	_, _ = e.CalculateShipping(ctx, ShippingRequest{TenantID: "t2"})
	_, _ = e.CalculateShipping(ctx, ShippingRequest{TenantID: "t1", ProfileID: "nope"})

	checks := []struct {
		outcome string
		want    float64
	}{
		{metrics.OutcomeOK, 1},
		{metrics.OutcomeNoMatch, 1},
		{metrics.OutcomeError, 1},
	}
	for _, c := range checks {
		if got := testutil.ToFloat64(collector.Total.WithLabelValues(metrics.KindShipping, c.outcome)); got != c.want {
			t.Errorf("%s = %v, want %v", c.outcome, got, c.want)
		}
	}
}

func TestQuoteBatchHonoursCancellation(t *testing.T) {
	e := New(testProfiles(), nil, nil, Config{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	if _, err := e.QuoteBatch(ctx, []QuoteRequest{{}}); err == nil {
		t.Fatal("expected context error")
	}
}
