package rates

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/synthex/internal/domain"
)

// Table holds the last known USD reference rate per asset and answers
// cross-rate lookups. It is maintained by a Refresher and read-only to the
// order engine.
type Table struct {
	mu  sync.RWMutex
	usd map[string]decimal.Decimal
}

func NewTable() *Table {
	return &Table{usd: make(map[string]decimal.Decimal)}
}

// SetUSDRate replaces the USD rate for the asset.
func (t *Table) SetUSDRate(asset string, rate decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usd[asset] = rate
}

// USDRate returns the USD rate for the asset, or zero when unknown.
func (t *Table) USDRate(asset string) decimal.Decimal {
	return t.Rate(asset, domain.USDReference)
}

// Rate returns how many units of to one unit of from buys. Unknown assets
// yield a zero rate.
func (t *Table) Rate(from, to string) decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()

	fromUSD, ok := t.usd[from]
	if !ok {
		return decimal.Zero
	}
	if to == domain.USDReference {
		return fromUSD
	}
	toUSD, ok := t.usd[to]
	if !ok || toUSD.IsZero() {
		return decimal.Zero
	}
	return fromUSD.Div(toUSD)
}
