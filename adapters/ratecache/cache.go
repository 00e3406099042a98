// Package ratecache caches carrier rate responses in Redis.
package ratecache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"embroidery-pricing/core/determinism"
	"embroidery-pricing/core/types"
	"embroidery-pricing/internal/logging"
)

// DefaultPrefix namespaces cache keys
const DefaultPrefix = "embroidery-pricing:rates:"

// Upstream is the rate provider being cached
type Upstream interface {
	Quote(ctx context.Context, shipment types.Shipment) ([]types.RawRate, error)
}

// Provider serves carrier rates from Redis and falls through to Upstream on
// a miss. Redis failures are logged and bypassed; upstream errors are never
// cached.
type Provider struct {
	next   Upstream
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// Option configures a Provider
type Option func(*Provider)

// WithPrefix overrides the key prefix
func WithPrefix(prefix string) Option {
	return func(p *Provider) { p.prefix = prefix }
}

// WithLogger sets the logger for bypassed cache errors
func WithLogger(logger *zap.Logger) Option {
	return func(p *Provider) { p.logger = logging.OrNop(logger).Named("ratecache") }
}

// New wraps next with a Redis cache. A nil client or non-positive ttl
// disables caching.
func New(next Upstream, client *redis.Client, ttl time.Duration, opts ...Option) *Provider {
	p := &Provider{
		next:   next,
		client: client,
		ttl:    ttl,
		prefix: DefaultPrefix,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Key returns the cache key for a shipment
func (p *Provider) Key(shipment types.Shipment) (string, error) {
	id, err := determinism.Fingerprint("shipment", shipment)
	if err != nil {
		return "", err
	}
	return p.prefix + string(id), nil
}

// Quote returns cached rates for shipment or fetches and stores them
func (p *Provider) Quote(ctx context.Context, shipment types.Shipment) ([]types.RawRate, error) {
	if !p.enabled() {
		return p.next.Quote(ctx, shipment)
	}

	key, err := p.Key(shipment)
	if err != nil {
		p.logger.Warn("shipment key failed, bypassing cache", zap.Error(err))
		return p.next.Quote(ctx, shipment)
	}

	var cached []types.RawRate
	hit, err := p.get(ctx, key, &cached)
	if err != nil {
		p.logger.Warn("rate cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		return cached, nil
	}

	rates, err := p.next.Quote(ctx, shipment)
	if err != nil {
		return nil, err
	}
	if err := p.set(ctx, key, rates); err != nil {
		p.logger.Warn("rate cache write failed", zap.String("key", key), zap.Error(err))
	}
	return rates, nil
}

// Invalidate drops the cached rates for shipment
func (p *Provider) Invalidate(ctx context.Context, shipment types.Shipment) error {
	if !p.enabled() {
		return nil
	}
	key, err := p.Key(shipment)
	if err != nil {
		return err
	}
	return p.client.Del(ctx, key).Err()
}

func (p *Provider) enabled() bool {
	return p.client != nil && p.ttl > 0
}

func (p *Provider) get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := p.client.Get(ctx, key).Bytes()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.client.Set(ctx, key, data, p.ttl).Err()
}
