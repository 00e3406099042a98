// Package app wires configuration into a ready engine for the CLI and the
// HTTP server.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"embroidery-pricing/adapters/profiles"
	"embroidery-pricing/adapters/ratecache"
	"embroidery-pricing/adapters/rates"
	"embroidery-pricing/adapters/storage"
	"embroidery-pricing/core/engine"
	"embroidery-pricing/db"
	"embroidery-pricing/internal/config"
	"embroidery-pricing/internal/logging"
	"embroidery-pricing/internal/metrics"
)

// MetricsNamespace prefixes every exported metric
const MetricsNamespace = "embroidery_pricing"

// App holds the wired runtime
type App struct {
	Config   *config.Config
	Engine   *engine.Engine
	Registry *prometheus.Registry

	// Store is nil when the storage backend is "none"
	Store storage.Store

	// Catalog is set when profiles come from HCL files
	Catalog *profiles.Catalog

	// Profiles is set when profiles come from the database
	Profiles *db.Store

	logger  *zap.Logger
	closers []func() error
}

// New builds the runtime described by cfg. Close releases everything New
// opened, including on partial failure.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *App, err error) {
	logger = logging.OrNop(logger)
	a := &App{
		Config:   cfg,
		Registry: prometheus.NewRegistry(),
		logger:   logger,
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.Registry.MustRegister(collectors.NewGoCollector())
	a.Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var (
		source   engine.ProfileSource
		variants engine.VariantSource
	)
	switch cfg.Profiles.Source {
	case "sql":
		store, err := OpenDatabase(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.DB().Close)
		a.Profiles = store
		source, variants = store, store
	default:
		catalog, err := profiles.NewLoader().LoadPath(cfg.Profiles.Path)
		if err != nil {
			return nil, fmt.Errorf("load profiles: %w", err)
		}
		summary := catalog.Summary()
		logger.Info("profiles loaded",
			zap.String("path", cfg.Profiles.Path),
			zap.Int("tenants", len(summary.Tenants)),
			zap.Int("shipping_profiles", summary.ShippingProfiles),
			zap.Int("price_profiles", summary.PriceProfiles))
		a.Catalog = catalog
		source, variants = catalog, catalog
	}

	provider, err := a.rateProvider(ctx)
	if err != nil {
		return nil, err
	}

	a.Store, err = storage.StoreFactory(storage.Backend(cfg.Storage.Backend), cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	if a.Store != nil {
		a.closers = append(a.closers, a.Store.Close)
	}

	a.Engine = engine.New(source, variants, provider, engine.Config{
		BatchConcurrency: cfg.Engine.BatchConcurrency,
		Logger:           logger.Named("engine"),
		Metrics:          metrics.New(MetricsNamespace, a.Registry),
	})
	return a, nil
}

// rateProvider builds the configured carrier rate source, cached in redis
// when enabled. "none" yields a nil provider.
func (a *App) rateProvider(ctx context.Context) (engine.RateProvider, error) {
	cfg := a.Config

	var upstream ratecache.Upstream
	switch cfg.Rates.Provider {
	case "static":
		static, err := rates.LoadStatic(cfg.Rates.Path)
		if err != nil {
			return nil, err
		}
		upstream = static
	case "http":
		hc := rates.DefaultConfig(cfg.Rates.Endpoint)
		hc.Secret = cfg.Rates.Secret
		hc.Timeout = cfg.Rates.Timeout()
		hc.RetryCount = cfg.Rates.RetryCount
		upstream = rates.NewHTTP(hc, a.logger.Named("rates"))
	default:
		return nil, nil
	}

	if !cfg.Redis.Enabled {
		return upstream, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	a.closers = append(a.closers, client.Close)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Redis.Addr, err)
	}
	return ratecache.New(upstream, client, cfg.Redis.TTL(), ratecache.WithLogger(a.logger.Named("ratecache"))), nil
}

// Close releases resources in reverse order of acquisition
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// OpenDatabase opens the profile database and applies pending migrations
// when configured to.
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*db.Store, error) {
	if cfg.Driver == db.DriverSQLite && !strings.HasPrefix(cfg.DSN, "file:") && cfg.DSN != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	conn, err := db.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if cfg.MigrateOnStart {
		if err := db.Migrate(conn, cfg.Driver); err != nil {
			conn.Close()
			return nil, err
		}
		version, err := db.SchemaVersion(conn, cfg.Driver)
		if err != nil {
			conn.Close()
			return nil, err
		}
		logging.OrNop(logger).Info("database ready",
			zap.String("driver", cfg.Driver),
			zap.Int64("schema_version", version))
	}
	return db.NewStore(conn, cfg.Driver), nil
}
