package wallet

import (
	"sync"

	"github.com/vadiminshakov/synthex/internal/domain"
)

// Balances is the per-asset wallet balance table. It is maintained
// externally (balance refreshers, deposit watchers) and read-only to the
// order engine.
type Balances struct {
	mu      sync.RWMutex
	byAsset map[string]domain.Balance
}

func NewBalances() *Balances {
	return &Balances{byAsset: make(map[string]domain.Balance)}
}

// Set replaces the balance for b.Asset.
func (t *Balances) Set(b domain.Balance) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byAsset[b.Asset] = b
}

// BalanceOf returns the balance for the asset, reporting whether one is
// known.
func (t *Balances) BalanceOf(asset string) (domain.Balance, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.byAsset[asset]
	return b, ok
}
