package rates

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Provider fetches the current USD spot price for an exchange ticker
// symbol (e.g. "BTCUSDT").
type Provider interface {
	Name() string
	USDPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// CachedProvider fronts a Provider with a short-TTL ristretto cache so a
// burst of refreshes for the same symbol hits the upstream API once.
type CachedProvider struct {
	inner Provider
	cache *ristretto.Cache
	ttl   time.Duration
}

func NewCachedProvider(inner Provider, ttl time.Duration) (*CachedProvider, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1 << 12,
		MaxCost:     1 << 10,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init rate cache")
	}
	return &CachedProvider{inner: inner, cache: cache, ttl: ttl}, nil
}

func (p *CachedProvider) Name() string {
	return p.inner.Name()
}

func (p *CachedProvider) USDPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if v, ok := p.cache.Get(symbol); ok {
		if price, ok := v.(decimal.Decimal); ok {
			return price, nil
		}
	}

	price, err := p.inner.USDPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}

	p.cache.SetWithTTL(symbol, price, 1, p.ttl)
	return price, nil
}
