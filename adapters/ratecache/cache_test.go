package ratecache

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"embroidery-pricing/core/money"
	"embroidery-pricing/core/types"
)

type countingUpstream struct {
	calls int
	rates []types.RawRate
	err   error
}

func (u *countingUpstream) Quote(_ context.Context, _ types.Shipment) ([]types.RawRate, error) {
	u.calls++
	if u.err != nil {
		return nil, u.err
	}
	return u.rates, nil
}

var shipment = types.Shipment{
	To:     types.Address{PostalCode: "80202", Country: "US"},
	Parcel: types.Parcel{WeightOz: "16"},
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestQuoteCachesUpstream(t *testing.T) {
	mr, client := newRedis(t)
	up := &countingUpstream{rates: []types.RawRate{{Carrier: "UPS", Service: "Ground", Rate: money.MustParse("5.00")}}}
	p := New(up, client, time.Minute)
	ctx := context.Background()

	first, err := p.Quote(ctx, shipment)
	require.NoError(t, err)
	second, err := p.Quote(ctx, shipment)
	require.NoError(t, err)

	assert.Equal(t, 1, up.calls)
	require.Len(t, second, 1)
	assert.True(t, first[0].Rate.Equal(second[0].Rate))

	key, err := p.Key(shipment)
	require.NoError(t, err)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	mr.FastForward(time.Minute)
	_, err = p.Quote(ctx, shipment)
	require.NoError(t, err)
	assert.Equal(t, 2, up.calls)
}

func TestDifferentShipmentsDoNotCollide(t *testing.T) {
	_, client := newRedis(t)
	p := New(&countingUpstream{}, client, time.Minute)

	other := shipment
	other.Parcel.WeightOz = "32"
	a, err := p.Key(shipment)
	require.NoError(t, err)
	b, err := p.Key(other)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, DefaultPrefix)
}

func TestUpstreamErrorsAreNotCached(t *testing.T) {
	mr, client := newRedis(t)
	up := &countingUpstream{err: stderrors.New("carrier down")}
	p := New(up, client, time.Minute, WithPrefix("t:"))

	_, err := p.Quote(context.Background(), shipment)
	require.Error(t, err)
	assert.Empty(t, mr.Keys())
}

func TestRedisFailureIsBypassed(t *testing.T) {
	mr, client := newRedis(t)
	up := &countingUpstream{rates: []types.RawRate{{Carrier: "USPS", Service: "Priority"}}}
	p := New(up, client, time.Minute, WithLogger(nil))
	mr.Close()

	got, err := p.Quote(context.Background(), shipment)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, up.calls)
}

func TestDisabledCachePassesThrough(t *testing.T) {
	up := &countingUpstream{}
	p := New(up, nil, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := p.Quote(context.Background(), shipment)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, up.calls)
	require.NoError(t, p.Invalidate(context.Background(), shipment))
}

func TestInvalidate(t *testing.T) {
	mr, client := newRedis(t)
	up := &countingUpstream{}
	p := New(up, client, time.Minute)
	ctx := context.Background()

	_, err := p.Quote(ctx, shipment)
	require.NoError(t, err)
	require.NoError(t, p.Invalidate(ctx, shipment))
	assert.Empty(t, mr.Keys())

	_, err = p.Quote(ctx, shipment)
	require.NoError(t, err)
	assert.Equal(t, 2, up.calls)
}
