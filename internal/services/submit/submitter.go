// Package submit turns a validated order form into a submitted on-chain
// transaction and keeps the transaction ledger consistent through every
// outcome.
package submit

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/synthex/internal/clients"
	"github.com/vadiminshakov/synthex/internal/domain"
	"github.com/vadiminshakov/synthex/internal/services/gas"
	"github.com/vadiminshakov/synthex/internal/services/wallet"
	"github.com/vadiminshakov/synthex/internal/storage/ledger"
)

// ErrSubmissionInFlight is returned when a submission is attempted while
// another one has not reached a terminal state yet.
var ErrSubmissionInFlight = errors.New("a submission is already in flight")

// limitOrderGasLimit is the fixed budget for newOrder calls; the order-book
// contract's cost does not depend on the traded amount.
const limitOrderGasLimit = 500000

// genericErrorMessage is the only failure text shown to users; raw error
// detail stays in the logs.
const genericErrorMessage = "something went wrong, please try again"

// RateSource answers cross-rate lookups for the record's display fields.
type RateSource interface {
	Rate(from, to string) decimal.Decimal
}

// Request is an immutable snapshot of the form at the moment the user
// confirmed the trade.
type Request struct {
	Kind        domain.OrderKind
	Pair        domain.Pair
	QuoteAmount decimal.Decimal
	BaseAmount  decimal.Decimal
	LimitPrice  decimal.Decimal
	// Amount is the resolved raw amount to exchange: the full raw balance
	// when trade-all was latched, the parsed quote amount otherwise.
	Amount *big.Int
}

// handler submits one order-type variant. Adding an order type means
// adding a handler, not touching the shared submission plumbing.
type handler interface {
	submit(ctx context.Context, req Request) error
}

// Submitter is the order state machine: Idle -> Submitting -> terminal ->
// Idle. At most one submission is in flight at a time, and the in-flight
// latch is released on every terminal outcome.
type Submitter struct {
	exchange clients.ExchangeClient
	rates    RateSource
	ledger   ledger.Ledger
	gas      *gas.Estimator
	wallet   *wallet.Context
	gasPrice func() decimal.Decimal
	l        *zap.Logger

	handlers map[domain.OrderKind]handler

	submitting atomic.Bool

	mu     sync.Mutex
	errMsg string
}

func NewSubmitter(
	l *zap.Logger,
	exchange clients.ExchangeClient,
	limits clients.LimitOrderClient,
	rates RateSource,
	book ledger.Ledger,
	estimator *gas.Estimator,
	walletCtx *wallet.Context,
	gasPrice func() decimal.Decimal,
) *Submitter {
	s := &Submitter{
		exchange: exchange,
		rates:    rates,
		ledger:   book,
		gas:      estimator,
		wallet:   walletCtx,
		gasPrice: gasPrice,
		l:        l,
	}
	s.handlers = map[domain.OrderKind]handler{
		domain.OrderMarket: &marketHandler{s: s},
		domain.OrderLimit:  &limitHandler{s: s, limits: limits},
	}
	return s
}

// CanSubmit is the entry guard: an amount must be quoted, a wallet
// connected, no blocking condition active, and no submission in flight.
func (s *Submitter) CanSubmit(amountEmpty, walletConnected, blocked bool) bool {
	return !amountEmpty && walletConnected && !blocked && !s.submitting.Load()
}

// Submit runs the handler for the request's order type. The in-flight
// latch is cleared on every exit path, panics included, so a new attempt
// is always possible after a terminal outcome.
func (s *Submitter) Submit(ctx context.Context, req Request) error {
	if !s.submitting.CompareAndSwap(false, true) {
		return ErrSubmissionInFlight
	}
	defer s.submitting.Store(false)

	s.DismissError()

	h, ok := s.handlers[req.Kind]
	if !ok {
		return errors.Errorf("no handler for order kind %s", req.Kind)
	}
	return h.submit(ctx, req)
}

// IsSubmitting reports whether a submission is currently in flight.
func (s *Submitter) IsSubmitting() bool {
	return s.submitting.Load()
}

// Err returns the dismissible submission error text, empty when none.
func (s *Submitter) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// DismissError clears the submission error. Dismissing twice is the same
// as dismissing once.
func (s *Submitter) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = ""
}

func (s *Submitter) setError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = msg
}

// marketHandler submits immediate exchanges and tracks them in the ledger.
type marketHandler struct {
	s *Submitter
}

func (h *marketHandler) submit(ctx context.Context, req Request) error {
	s := h.s

	// a fresh estimate for this exact amount, never the cached value
	gasLimit, err := s.gas.Fresh(ctx, req.Pair, req.Amount)
	if err != nil {
		s.setError(genericErrorMessage)
		return errors.Wrap(err, "estimate gas before market submission")
	}

	id := s.ledger.Append(domain.TransactionRecord{
		CreatedAt:  time.Now(),
		Base:       req.Pair.Base,
		Quote:      req.Pair.Quote,
		FromAmount: req.QuoteAmount,
		ToAmount:   req.BaseAmount,
		Price:      h.price(req.Pair),
		PriceUSD:   h.priceUSD(req.Pair),
		TotalUSD:   req.BaseAmount.Mul(s.rates.Rate(req.Pair.Base, domain.USDReference)),
		Status:     domain.TxWaiting,
	})

	handle, err := s.exchange.SubmitMarketOrder(ctx, req.Pair.Quote, req.Amount, req.Pair.Base, domain.GasParams{
		PriceGwei: s.gasPrice(),
		Limit:     gasLimit,
	})
	if err != nil {
		status := domain.TxFailed
		if IsUserCancelled(err, s.wallet.CurrentKind()) {
			status = domain.TxCancelled
		} else {
			s.setError(genericErrorMessage)
		}

		if updateErr := s.ledger.Update(id, domain.TransactionPatch{Status: status, Error: err.Error()}); updateErr != nil {
			s.l.Error("failed to record submission failure", zap.Uint64("id", id), zap.Error(updateErr))
		}
		return errors.Wrapf(err, "market submission for %s", req.Pair.String())
	}

	if err := s.ledger.Update(id, domain.TransactionPatch{Status: domain.TxPending, Hash: handle.Hash}); err != nil {
		s.l.Error("failed to mark transaction pending", zap.Uint64("id", id), zap.Error(err))
	}

	s.l.Info("market order submitted",
		zap.String("pair", req.Pair.String()),
		zap.String("hash", handle.Hash),
		zap.Uint64("id", id))
	return nil
}

// price is chosen directionally: quoting into the USD reference uses the
// quote->base rate, everything else base->quote.
func (h *marketHandler) price(pair domain.Pair) decimal.Decimal {
	if pair.Base == domain.USDReference {
		return h.s.rates.Rate(pair.Quote, pair.Base)
	}
	return h.s.rates.Rate(pair.Base, pair.Quote)
}

func (h *marketHandler) priceUSD(pair domain.Pair) decimal.Decimal {
	if pair.Base == domain.USDReference {
		return h.s.rates.Rate(pair.Quote, domain.USDReference)
	}
	return h.s.rates.Rate(pair.Base, domain.USDReference)
}
