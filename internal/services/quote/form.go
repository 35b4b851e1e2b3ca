// Package quote derives base/quote amounts for the order form from user
// edits, balance fractions, and the current exchange rates.
package quote

import (
	"math/big"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/synthex/internal/domain"
)

// RateSource answers cross-rate lookups. A zero rate means the pair is
// unknown.
type RateSource interface {
	Rate(from, to string) decimal.Decimal
}

// BalanceSource answers wallet balance lookups.
type BalanceSource interface {
	BalanceOf(asset string) (domain.Balance, bool)
}

// ErrInvalidAmount is returned for inputs that do not parse as a decimal.
var ErrInvalidAmount = errors.New("invalid amount")

// Fractions are the balance shortcuts offered next to the sell input.
var Fractions = []int{25, 50, 75, 100}

// Form holds the active pair and the amounts being quoted. Amounts stay
// consistent with the rate applied at edit time; they are not recomputed
// when the rate table moves afterwards.
//
// A Form is owned by a single order session and is not safe for concurrent
// use; the session serializes access.
type Form struct {
	rates    RateSource
	balances BalanceSource

	pair        domain.Pair
	baseAmount  string
	quoteAmount string
	limitPrice  string
	tradeAll    bool
}

func NewForm(rates RateSource, balances BalanceSource, pair domain.Pair) *Form {
	return &Form{rates: rates, balances: balances, pair: pair}
}

// SetPair replaces the active pair. The reversed flag mirrors the source
// selection order (the externally selected pair may arrive quote-first).
// All amounts reset.
func (f *Form) SetPair(pair domain.Pair, reversed bool) {
	if reversed {
		pair = pair.Swapped()
	}
	f.pair = pair
	f.resetAmounts()
}

// Swap exchanges base and quote and resets all amounts.
func (f *Form) Swap() {
	f.pair = f.pair.Swapped()
	f.resetAmounts()
}

func (f *Form) resetAmounts() {
	f.baseAmount = ""
	f.quoteAmount = ""
	f.limitPrice = ""
	f.tradeAll = false
}

// EditQuote sets the sell amount and derives the buy amount with the
// current quote->base rate. Manual edits clear the trade-all latch.
func (f *Form) EditQuote(value string) error {
	f.tradeAll = false
	if value == "" {
		f.quoteAmount = ""
		f.baseAmount = ""
		return nil
	}

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return errors.Wrapf(ErrInvalidAmount, "%q", value)
	}

	f.quoteAmount = value
	f.baseAmount = amount.Mul(f.rates.Rate(f.pair.Quote, f.pair.Base)).String()
	return nil
}

// EditBase sets the buy amount and derives the sell amount with the
// current base->quote rate.
func (f *Form) EditBase(value string) error {
	f.tradeAll = false
	if value == "" {
		f.quoteAmount = ""
		f.baseAmount = ""
		return nil
	}

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return errors.Wrapf(ErrInvalidAmount, "%q", value)
	}

	f.baseAmount = value
	f.quoteAmount = amount.Mul(f.rates.Rate(f.pair.Base, f.pair.Quote)).String()
	return nil
}

// SetLimitPrice records the limit price for limit orders.
func (f *Form) SetLimitPrice(value string) error {
	if value == "" {
		f.limitPrice = ""
		return nil
	}
	if _, err := decimal.NewFromString(value); err != nil {
		return errors.Wrapf(ErrInvalidAmount, "%q", value)
	}
	f.limitPrice = value
	return nil
}

// UseMaxBalance quotes the whole quote-asset balance. No-op when the
// balance is zero or unknown.
func (f *Form) UseMaxBalance() {
	f.UseFraction(100)
}

// UseFraction quotes pct percent of the quote-asset balance, pct one of
// Fractions. 100 sets the trade-all latch so submission uses the raw
// balance, dust included.
func (f *Form) UseFraction(pct int) {
	balance, ok := f.balances.BalanceOf(f.pair.Quote)
	if !ok || balance.IsZero() {
		return
	}

	amount := balance.Display
	if pct != 100 {
		amount = balance.Display.Mul(decimal.NewFromInt(int64(pct))).Div(decimal.NewFromInt(100))
	}

	f.tradeAll = pct == 100
	f.quoteAmount = amount.String()
	f.baseAmount = amount.Mul(f.rates.Rate(f.pair.Quote, f.pair.Base)).String()
}

func (f *Form) Pair() domain.Pair     { return f.pair }
func (f *Form) BaseAmount() string    { return f.baseAmount }
func (f *Form) QuoteAmount() string   { return f.quoteAmount }
func (f *Form) LimitPrice() string    { return f.limitPrice }
func (f *Form) TradeAllBalance() bool { return f.tradeAll }

// Empty reports whether no amount has been quoted yet.
func (f *Form) Empty() bool {
	return f.baseAmount == "" || f.quoteAmount == ""
}

// QuoteAmountDecimal parses the current sell amount.
func (f *Form) QuoteAmountDecimal() (decimal.Decimal, bool) {
	if f.quoteAmount == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(f.quoteAmount)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// BaseAmountDecimal parses the current buy amount.
func (f *Form) BaseAmountDecimal() (decimal.Decimal, bool) {
	if f.baseAmount == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(f.baseAmount)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// LimitPriceDecimal parses the current limit price.
func (f *Form) LimitPriceDecimal() (decimal.Decimal, bool) {
	if f.limitPrice == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(f.limitPrice)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// AmountToExchange resolves the raw on-chain amount to sell: the full raw
// balance when trade-all is latched, otherwise the parsed sell amount.
func (f *Form) AmountToExchange() (*big.Int, error) {
	if f.tradeAll {
		balance, ok := f.balances.BalanceOf(f.pair.Quote)
		if !ok || balance.Raw == nil {
			return nil, errors.New("trade-all set but quote balance is unknown")
		}
		return new(big.Int).Set(balance.Raw), nil
	}

	amount, ok := f.QuoteAmountDecimal()
	if !ok {
		return nil, errors.New("no quote amount set")
	}
	return domain.ParseUnits(amount), nil
}
