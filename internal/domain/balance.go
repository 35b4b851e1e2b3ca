package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Balance is a wallet holding of a single asset: the display amount used
// for quoting, and the raw 18-decimals integer used on chain.
type Balance struct {
	Asset   string
	Display decimal.Decimal
	Raw     *big.Int
}

// IsZero reports whether the balance is absent or empty.
func (b Balance) IsZero() bool {
	return b.Display.IsZero()
}

var weiPerToken = decimal.New(1, 18)

// ParseUnits converts a display amount into its raw 18-decimals form,
// truncating anything below one wei.
func ParseUnits(amount decimal.Decimal) *big.Int {
	return amount.Mul(weiPerToken).BigInt()
}

// FormatUnits converts a raw 18-decimals amount back to its display form.
func FormatUnits(raw *big.Int) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, 0).Div(weiPerToken)
}
