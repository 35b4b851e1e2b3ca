// Package gas estimates the gas limit for exchange transactions.
package gas

import (
	"context"
	"math/big"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/synthex/internal/domain"
)

// EstimateClient is the gas-estimation capability of the exchange client.
type EstimateClient interface {
	EstimateGas(ctx context.Context, source string, amount *big.Int, dest string) (uint64, error)
}

// Normalize pads an estimate with a 20% safety buffer so a trade does not
// run out of gas on a slightly more expensive code path.
func Normalize(estimate uint64) uint64 {
	return estimate + estimate/5
}

// Estimator keeps the gas limit shown on the form. It re-estimates when
// the quoted amount changes until a value is locked in, either by the
// first successful estimate or by a user override.
type Estimator struct {
	client EstimateClient
	l      *zap.Logger

	mu     sync.Mutex
	limit  uint64
	locked bool
	epoch  uint64
}

// NewEstimator seeds the estimator with the network's default gas limit.
func NewEstimator(l *zap.Logger, client EstimateClient, defaultLimit uint64) *Estimator {
	return &Estimator{client: client, l: l, limit: defaultLimit}
}

// QuoteChanged dispatches a background estimate for the new amount.
// Suppressed entirely once a limit is locked. The completion is dropped if
// a newer dispatch happened meanwhile.
func (e *Estimator) QuoteChanged(ctx context.Context, pair domain.Pair, amount *big.Int) {
	e.mu.Lock()
	if e.locked || amount == nil || amount.Sign() == 0 {
		e.mu.Unlock()
		return
	}
	e.epoch++
	epoch := e.epoch
	e.mu.Unlock()

	go func() {
		estimate, err := e.client.EstimateGas(ctx, pair.Quote, amount, pair.Base)
		if err != nil {
			e.l.Warn("gas estimate failed", zap.String("pair", pair.String()), zap.Error(err))
			return
		}

		e.mu.Lock()
		defer e.mu.Unlock()
		if epoch != e.epoch || e.locked {
			return
		}
		e.limit = Normalize(estimate)
		e.locked = true
	}()
}

// SetManual pins a user-entered gas limit; background estimates stop.
func (e *Estimator) SetManual(limit uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.limit = limit
	e.locked = true
}

// Limit returns the current gas limit.
func (e *Estimator) Limit() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.limit
}

// Locked reports whether background estimation is suppressed.
func (e *Estimator) Locked() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.locked
}

// Fresh estimates synchronously for the exact amount about to be sent,
// bypassing any cached value, and records the result. Market submissions
// always use a fresh estimate so amount and estimate cannot diverge at the
// moment of send.
func (e *Estimator) Fresh(ctx context.Context, pair domain.Pair, amount *big.Int) (uint64, error) {
	estimate, err := e.client.EstimateGas(ctx, pair.Quote, amount, pair.Base)
	if err != nil {
		return 0, errors.Wrap(err, "estimate gas for exchange")
	}

	limit := Normalize(estimate)

	e.mu.Lock()
	e.limit = limit
	e.locked = true
	e.mu.Unlock()

	return limit, nil
}
