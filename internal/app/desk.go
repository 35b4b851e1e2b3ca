// Package app wires the order form, validation pipeline, gas estimator,
// and submitter into a single order desk with one logical thread of
// control.
package app

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/synthex/internal/clients"
	"github.com/vadiminshakov/synthex/internal/domain"
	"github.com/vadiminshakov/synthex/internal/services/gas"
	"github.com/vadiminshakov/synthex/internal/services/quote"
	"github.com/vadiminshakov/synthex/internal/services/submit"
	"github.com/vadiminshakov/synthex/internal/services/validation"
	"github.com/vadiminshakov/synthex/internal/services/wallet"
	"github.com/vadiminshakov/synthex/internal/storage/ledger"
)

// ErrSubmissionRejected is returned when the entry guard refuses a
// submission: empty amount, no wallet, an active blocking condition, or a
// submission already in flight.
var ErrSubmissionRejected = errors.New("submission rejected by entry guard")

// NetworkInfo is the cost summary a surrounding UI renders next to the
// form.
type NetworkInfo struct {
	GasPriceGwei   decimal.Decimal
	GasLimit       uint64
	EthRateUSD     decimal.Decimal
	FeeRatePercent decimal.Decimal
	AmountUSD      decimal.Decimal
}

// Status is the composite form state for rendering: what blocks
// submission, whether one is in flight, and the dismissible error.
type Status struct {
	Blocking     validation.Blocking
	Message      string
	IsSubmitting bool
	Error        string
}

// Desk is an order-entry session for one user. Form edits are serialized;
// background checks complete on their own goroutines and are epoch-gated
// by the pipeline and estimator.
type Desk struct {
	mu sync.Mutex

	form      *quote.Form
	pipeline  *validation.Pipeline
	estimator *gas.Estimator
	submitter *submit.Submitter

	rates    submit.RateSource
	balances quote.BalanceSource
	wallet   *wallet.Context
	assets   domain.AssetIndex

	gasPriceGwei decimal.Decimal
	uiSignal     func()

	l *zap.Logger
}

// Config carries the desk's collaborators.
type Config struct {
	Exchange        clients.ExchangeClient
	LimitOrders     clients.LimitOrderClient
	Rates           quote.RateSource
	Balances        quote.BalanceSource
	Wallet          *wallet.Context
	Assets          domain.AssetIndex
	Ledger          ledger.Ledger
	Pair            domain.Pair
	GasPriceGwei    decimal.Decimal
	DefaultGasLimit uint64
	// GasPriceEditor is notified when the user asks to edit the gas
	// price; fire-and-forget.
	GasPriceEditor func()
}

func NewDesk(l *zap.Logger, cfg Config) *Desk {
	d := &Desk{
		rates:        cfg.Rates,
		balances:     cfg.Balances,
		wallet:       cfg.Wallet,
		assets:       cfg.Assets,
		gasPriceGwei: cfg.GasPriceGwei,
		uiSignal:     cfg.GasPriceEditor,
		l:            l,
	}

	d.form = quote.NewForm(cfg.Rates, cfg.Balances, cfg.Pair)
	d.pipeline = validation.NewPipeline(l, cfg.Exchange, cfg.Assets)
	d.estimator = gas.NewEstimator(l, cfg.Exchange, cfg.DefaultGasLimit)
	d.submitter = submit.NewSubmitter(l, cfg.Exchange, cfg.LimitOrders, cfg.Rates, cfg.Ledger,
		d.estimator, cfg.Wallet, d.currentGasPrice)

	return d
}

// Open dispatches the initial round of checks for the starting pair.
func (d *Desk) Open(ctx context.Context) {
	d.mu.Lock()
	pair := d.form.Pair()
	d.mu.Unlock()

	d.pipeline.PairChanged(ctx, pair)
	d.dispatchAmountChecks(ctx)
}

// SetPair replaces the active pair from an external selection and resets
// the amounts.
func (d *Desk) SetPair(ctx context.Context, pair domain.Pair, reversed bool) {
	d.mu.Lock()
	d.form.SetPair(pair, reversed)
	current := d.form.Pair()
	d.mu.Unlock()

	d.pipeline.PairChanged(ctx, current)
	d.dispatchAmountChecks(ctx)
}

// Swap exchanges base and quote.
func (d *Desk) Swap(ctx context.Context) {
	d.mu.Lock()
	d.form.Swap()
	current := d.form.Pair()
	d.mu.Unlock()

	d.pipeline.PairChanged(ctx, current)
	d.dispatchAmountChecks(ctx)
}

// EditQuote sets the sell amount from user input.
func (d *Desk) EditQuote(ctx context.Context, value string) error {
	d.mu.Lock()
	err := d.form.EditQuote(value)
	d.mu.Unlock()
	if err != nil {
		return err
	}

	d.dispatchAmountChecks(ctx)
	return nil
}

// EditBase sets the buy amount from user input.
func (d *Desk) EditBase(ctx context.Context, value string) error {
	d.mu.Lock()
	err := d.form.EditBase(value)
	d.mu.Unlock()
	if err != nil {
		return err
	}

	d.dispatchAmountChecks(ctx)
	return nil
}

// SetLimitPrice records the limit price for limit orders.
func (d *Desk) SetLimitPrice(value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.form.SetLimitPrice(value)
}

// UseMaxBalance quotes the whole quote-asset balance.
func (d *Desk) UseMaxBalance(ctx context.Context) {
	d.mu.Lock()
	d.form.UseMaxBalance()
	d.mu.Unlock()

	d.dispatchAmountChecks(ctx)
}

// UseFraction quotes a fraction of the quote-asset balance.
func (d *Desk) UseFraction(ctx context.Context, pct int) {
	d.mu.Lock()
	d.form.UseFraction(pct)
	d.mu.Unlock()

	d.dispatchAmountChecks(ctx)
}

// dispatchAmountChecks re-runs everything keyed off the quote amount: the
// synchronous balance check, the waiting-period check, and the background
// gas estimate.
func (d *Desk) dispatchAmountChecks(ctx context.Context) {
	d.mu.Lock()
	pair := d.form.Pair()
	quoteAmount, quoteSet := d.form.QuoteAmountDecimal()
	_, baseSet := d.form.BaseAmountDecimal()
	raw, rawErr := d.form.AmountToExchange()
	d.mu.Unlock()

	addr, connected := d.wallet.CurrentAddress()
	balance, _ := d.balances.BalanceOf(pair.Quote)

	d.pipeline.CheckBalance(quoteAmount, quoteSet && baseSet, connected, balance)
	d.pipeline.QuoteChanged(ctx, addr, connected)
	if rawErr == nil {
		d.estimator.QuoteChanged(ctx, pair, raw)
	}
}

// RetryWaitingPeriod re-runs the waiting-period check on user request.
func (d *Desk) RetryWaitingPeriod(ctx context.Context) {
	addr, connected := d.wallet.CurrentAddress()
	d.pipeline.QuoteChanged(ctx, addr, connected)
}

// ConnectWallet sets the active wallet and re-runs wallet-dependent
// checks.
func (d *Desk) ConnectWallet(ctx context.Context, addr common.Address, kind wallet.Kind) {
	d.wallet.Connect(addr, kind)
	d.dispatchAmountChecks(ctx)
}

// Submit builds the order snapshot and runs the state machine. The kind
// selects the market or limit path.
func (d *Desk) Submit(ctx context.Context, kind domain.OrderKind) error {
	d.mu.Lock()
	_, connected := d.wallet.CurrentAddress()
	blocked := d.pipeline.Status().Blocking != validation.BlockingNone
	if !d.submitter.CanSubmit(d.form.Empty(), connected, blocked) {
		d.mu.Unlock()
		return ErrSubmissionRejected
	}

	amount, err := d.form.AmountToExchange()
	if err != nil {
		d.mu.Unlock()
		return err
	}

	quoteAmount, _ := d.form.QuoteAmountDecimal()
	baseAmount, _ := d.form.BaseAmountDecimal()
	limitPrice, _ := d.form.LimitPriceDecimal()
	req := submit.Request{
		Kind:        kind,
		Pair:        d.form.Pair(),
		QuoteAmount: quoteAmount,
		BaseAmount:  baseAmount,
		LimitPrice:  limitPrice,
		Amount:      amount,
	}
	d.mu.Unlock()

	// the form stays editable while the submission is in flight; the
	// submitter's latch rejects a second submit
	return d.submitter.Submit(ctx, req)
}

// Status reports the current blocking condition and submission state.
func (d *Desk) Status() Status {
	st := d.pipeline.Status()
	return Status{
		Blocking:     st.Blocking,
		Message:      st.Message,
		IsSubmitting: d.submitter.IsSubmitting(),
		Error:        d.submitter.Err(),
	}
}

// DismissError clears the dismissible submission error.
func (d *Desk) DismissError() {
	d.submitter.DismissError()
}

// NetworkInfo summarizes the transaction cost inputs for display.
func (d *Desk) NetworkInfo() NetworkInfo {
	d.mu.Lock()
	pair := d.form.Pair()
	baseAmount, _ := d.form.BaseAmountDecimal()
	gasPrice := d.gasPriceGwei
	d.mu.Unlock()

	usdRate := d.rates.Rate(pair.Base, domain.USDReference)
	return NetworkInfo{
		GasPriceGwei:   gasPrice,
		GasLimit:       d.estimator.Limit(),
		EthRateUSD:     d.rates.Rate("ETH", domain.USDReference),
		FeeRatePercent: d.pipeline.FeeRatePercent(),
		AmountUSD:      baseAmount.Mul(usdRate),
	}
}

// SetGasPriceGwei updates the gas price used for subsequent submissions.
func (d *Desk) SetGasPriceGwei(price decimal.Decimal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gasPriceGwei = price
}

// SetManualGasLimit pins a user-entered gas limit.
func (d *Desk) SetManualGasLimit(limit uint64) {
	d.estimator.SetManual(limit)
}

// RequestGasPriceEditor notifies the surrounding UI to open its gas price
// editor; fire-and-forget.
func (d *Desk) RequestGasPriceEditor() {
	if d.uiSignal != nil {
		d.uiSignal()
	}
}

// Form exposes the underlying form for rendering. Callers must not mutate
// it directly.
func (d *Desk) Form() *quote.Form {
	return d.form
}

func (d *Desk) currentGasPrice() decimal.Decimal {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gasPriceGwei
}
