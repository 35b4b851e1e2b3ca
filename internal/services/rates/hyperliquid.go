package rates

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	hyperliquid "github.com/sonirico/go-hyperliquid"
)

// HyperliquidProvider fetches mid prices from the Hyperliquid public Info
// API. Mids are keyed by base coin, so symbols like "BTCUSDT" map to "BTC".
type HyperliquidProvider struct {
	info *hyperliquid.Info
}

func NewHyperliquidProvider(info *hyperliquid.Info) *HyperliquidProvider {
	return &HyperliquidProvider{info: info}
}

func (p *HyperliquidProvider) Name() string {
	return "hyperliquid"
}

func (p *HyperliquidProvider) USDPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if p.info == nil {
		return decimal.Zero, fmt.Errorf("hyperliquid info client is nil")
	}

	mids, err := p.info.AllMids(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	coin := strings.TrimSuffix(strings.TrimSuffix(symbol, "USDT"), "USD")
	mid, ok := mids[coin]
	if !ok || mid == "" {
		return decimal.Zero, fmt.Errorf("hyperliquid API returned empty mid price for %s", coin)
	}
	return decimal.NewFromString(mid)
}
