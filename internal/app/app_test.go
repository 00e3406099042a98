package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"embroidery-pricing/adapters/storage"
	"embroidery-pricing/core/engine"
	"embroidery-pricing/core/types"
	"embroidery-pricing/db/ingestion"
	"embroidery-pricing/internal/config"
	"embroidery-pricing/internal/errors"
)

var fixture = filepath.Join("..", "..", "adapters", "profiles", "testdata", "profiles.hcl")

var shipment = types.Shipment{
	From:   types.Address{Street1: "1 Mill St", City: "Austin", PostalCode: "78701", Country: "US"},
	To:     types.Address{Street1: "9 Elm Rd", City: "Denver", PostalCode: "80202", Country: "US"},
	Parcel: types.Parcel{Length: "10", Width: "8", Height: "4", WeightOz: "16"},
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Profiles.Path = fixture
	cfg.Database.DSN = filepath.Join(t.TempDir(), "pricing.db")
	cfg.Storage.Backend = "memory"
	return cfg
}

func writeRates(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rates.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"carrier": "USPS", "service": "Priority", "rate": "9.00"},
		{"carrier": "UPS", "service": "Ground", "rate": "5.00"}
	]`), 0o644))
	return path
}

func TestNewFromHCLWithCachedRates(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig(t)
	cfg.Rates.Provider = "static"
	cfg.Rates.Path = writeRates(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Catalog)
	assert.Nil(t, a.Profiles)
	assert.IsType(t, &storage.MemoryStore{}, a.Store)

	adjusted, err := a.Engine.ShippingRates(context.Background(), engine.RatesRequest{
		TenantID:  "acme",
		ProfileID: "carrier",
		Shipment:  shipment,
	})
	require.NoError(t, err)
	require.Len(t, adjusted, 2)
	assert.Equal(t, "6.25", adjusted[0].Rate.String())
	assert.Equal(t, "11.40", adjusted[1].Rate.String())
	assert.Len(t, mr.Keys(), 1, "raw rates cached")
}

func TestNewWithoutRateProvider(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), nil)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Engine.ShippingRates(context.Background(), engine.RatesRequest{TenantID: "acme", Shipment: shipment})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeProvider))
}

func TestNewFromDatabase(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Profiles.Source = "sql"

	store, err := OpenDatabase(ctx, cfg.Database, nil)
	require.NoError(t, err)
	_, err = ingestion.NewPipeline(store, nil).ImportPath(ctx, fixture)
	require.NoError(t, err)
	require.NoError(t, store.DB().Close())

	a, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Profiles)
	result, err := a.Engine.CalculateShipping(ctx, engine.ShippingRequest{
		TenantID: "acme",
		Items: []types.ShippingItem{
			{VariantID: "shirt", Quantity: 2},
			{VariantID: "hoodie", Quantity: 1, IsHeavy: true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "standard", result.ProfileID)
	assert.Equal(t, "16.00", result.Total.String())
}

func TestNewFailsOnMissingProfiles(t *testing.T) {
	cfg := testConfig(t)
	cfg.Profiles.Path = filepath.Join(t.TempDir(), "missing.hcl")

	a, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Nil(t, a)
}

func TestNewFailsOnUnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.Rates.Provider = "static"
	cfg.Rates.Path = writeRates(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = addr

	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping redis")
}
