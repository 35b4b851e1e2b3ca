// Package validation runs the pre-trade checks: exchange fee rate, market
// suspension, fee-reclamation waiting period, and balance sufficiency.
package validation

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/synthex/internal/clients"
	"github.com/vadiminshakov/synthex/internal/domain"
)

// Blocking names the condition that currently blocks submission. Higher
// values win when several conditions hold at once.
type Blocking int

const (
	BlockingNone Blocking = iota
	BlockingInputError
	BlockingFrozenAsset
	BlockingWaitingPeriod
	BlockingSuspended
)

func (b Blocking) String() string {
	switch b {
	case BlockingSuspended:
		return "market suspended"
	case BlockingWaitingPeriod:
		return "fee reclamation waiting period"
	case BlockingFrozenAsset:
		return "frozen asset"
	case BlockingInputError:
		return "input error"
	default:
		return "none"
	}
}

// Status is the prioritized blocking state exposed to the submitter.
type Status struct {
	Blocking Blocking
	Message  string
}

// Checker is the subset of the exchange client the pipeline queries.
type Checker interface {
	FeeRate(ctx context.Context, source, dest string) (decimal.Decimal, error)
	IsSuspended(ctx context.Context, asset string) (bool, error)
	WaitingPeriodSeconds(ctx context.Context, wallet common.Address, asset string) (int64, error)
}

var _ Checker = (clients.ExchangeClient)(nil)

// Pipeline re-runs each check when its dependency set changes. Checks are
// asynchronous and uncancelled; every dispatch bumps an epoch per check and
// a completion is applied only when its epoch is still the latest, so a
// slow response keyed to a stale pair can never overwrite newer state.
type Pipeline struct {
	client Checker
	assets domain.AssetIndex
	l      *zap.Logger

	mu             sync.Mutex
	pair           domain.Pair
	feeRatePercent decimal.Decimal
	suspended      bool
	waitingMsg     string
	inputErr       string

	feeEpoch     uint64
	suspEpoch    uint64
	waitingEpoch uint64
}

func NewPipeline(l *zap.Logger, client Checker, assets domain.AssetIndex) *Pipeline {
	return &Pipeline{client: client, assets: assets, l: l}
}

// PairChanged re-dispatches the fee-rate fetch and the suspension check for
// the new pair. Assets outside the restricted-hours category force
// suspension false without a call.
func (p *Pipeline) PairChanged(ctx context.Context, pair domain.Pair) {
	p.mu.Lock()
	p.pair = pair
	p.feeEpoch++
	p.suspEpoch++
	feeEpoch, suspEpoch := p.feeEpoch, p.suspEpoch

	base, _ := p.assets.Get(pair.Base)
	quote, _ := p.assets.Get(pair.Quote)
	restricted := base.RestrictedHours() || quote.RestrictedHours()
	if !restricted {
		p.suspended = false
	}
	p.mu.Unlock()

	go p.fetchFeeRate(ctx, pair, feeEpoch)
	if restricted {
		go p.checkSuspension(ctx, pair, suspEpoch)
	}
}

// QuoteChanged re-dispatches the waiting-period check. It depends on the
// quote asset, the wallet, and the quote amount, so any of those changing
// lands here. No-op without a connected wallet.
func (p *Pipeline) QuoteChanged(ctx context.Context, wallet common.Address, connected bool) {
	if !connected {
		return
	}

	p.mu.Lock()
	p.waitingEpoch++
	epoch := p.waitingEpoch
	quote := p.pair.Quote
	p.mu.Unlock()

	go p.checkWaitingPeriod(ctx, wallet, quote, epoch)
}

func (p *Pipeline) fetchFeeRate(ctx context.Context, pair domain.Pair, epoch uint64) {
	rate, err := p.client.FeeRate(ctx, pair.Quote, pair.Base)
	if err != nil {
		// never blocks trading; the previous value stays on screen
		p.l.Warn("fee rate fetch failed", zap.String("pair", pair.String()), zap.Error(err))
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if epoch != p.feeEpoch {
		return
	}
	p.feeRatePercent = rate.Mul(decimal.NewFromInt(100))
}

func (p *Pipeline) checkSuspension(ctx context.Context, pair domain.Pair, epoch uint64) {
	type result struct {
		suspended bool
		err       error
	}

	results := make(chan result, 2)
	for _, asset := range []string{pair.Base, pair.Quote} {
		go func(asset string) {
			suspended, err := p.client.IsSuspended(ctx, asset)
			results <- result{suspended: suspended, err: err}
		}(asset)
	}

	var suspended bool
	for i := 0; i < 2; i++ {
		res := <-results
		if res.err != nil {
			// keep the previous snapshot rather than failing open
			p.l.Warn("suspension check failed", zap.String("pair", pair.String()), zap.Error(res.err))
			return
		}
		suspended = suspended || res.suspended
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if epoch != p.suspEpoch {
		return
	}
	p.suspended = suspended
}

func (p *Pipeline) checkWaitingPeriod(ctx context.Context, wallet common.Address, quote string, epoch uint64) {
	secs, err := p.client.WaitingPeriodSeconds(ctx, wallet, quote)
	if err != nil {
		p.l.Warn("waiting period check failed", zap.String("asset", quote), zap.Error(err))
		secs = 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if epoch != p.waitingEpoch {
		return
	}

	if secs > 0 {
		p.waitingMsg = fmt.Sprintf("fee reclamation period active: wait %s before trading %s",
			formatWaitingPeriod(secs), quote)
	} else {
		p.waitingMsg = ""
	}
}

// CheckBalance runs the synchronous sufficiency check: with both amounts
// quoted and a wallet connected, the sell amount must not exceed the quote
// balance.
func (p *Pipeline) CheckBalance(quoteAmount decimal.Decimal, amountsSet, connected bool, quoteBalance domain.Balance) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.inputErr = ""
	if !amountsSet {
		return
	}
	if connected && quoteAmount.GreaterThan(quoteBalance.Display) {
		p.inputErr = "amount exceeds balance"
	}
}

// Status resolves the primary blocking condition by precedence:
// suspended > waiting period > frozen destination > input error.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.suspended:
		return Status{Blocking: BlockingSuspended, Message: "market closed"}
	case p.waitingMsg != "":
		return Status{Blocking: BlockingWaitingPeriod, Message: p.waitingMsg}
	case p.assets.IsFrozen(p.pair.Base):
		return Status{Blocking: BlockingFrozenAsset, Message: fmt.Sprintf("%s is frozen", p.pair.Base)}
	case p.inputErr != "":
		return Status{Blocking: BlockingInputError, Message: p.inputErr}
	default:
		return Status{}
	}
}

// FeeRatePercent returns the last successfully fetched exchange fee rate
// as a percentage.
func (p *Pipeline) FeeRatePercent() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.feeRatePercent
}

func formatWaitingPeriod(secs int64) string {
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
