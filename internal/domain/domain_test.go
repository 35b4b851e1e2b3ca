package domain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseUnits(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   string
	}{
		{name: "whole", amount: "1", want: "1000000000000000000"},
		{name: "fractional", amount: "1.5", want: "1500000000000000000"},
		{name: "zero", amount: "0", want: "0"},
		{name: "sub-wei truncated", amount: "0.0000000000000000001", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := ParseUnits(decimal.RequireFromString(tt.amount))
			assert.Equal(t, tt.want, raw.String())
		})
	}
}

func TestFormatUnitsRoundTrip(t *testing.T) {
	amount := decimal.RequireFromString("123.456789")
	assert.True(t, FormatUnits(ParseUnits(amount)).Equal(amount))
	assert.True(t, FormatUnits(nil).IsZero())
	assert.True(t, FormatUnits(big.NewInt(0)).IsZero())
}

func TestPairSwapped(t *testing.T) {
	p := Pair{Base: "sBTC", Quote: "sUSD"}
	assert.Equal(t, Pair{Base: "sUSD", Quote: "sBTC"}, p.Swapped())
	assert.Equal(t, p, p.Swapped().Swapped())
	assert.Equal(t, "sBTC_sUSD", p.String())
}

func TestCurrencyKey(t *testing.T) {
	key := CurrencyKey("sUSD")
	assert.Equal(t, byte('s'), key[0])
	assert.Equal(t, byte('D'), key[3])
	assert.Equal(t, byte(0), key[4], "the key is right-padded with zeros")
}

func TestTransactionPatchApply(t *testing.T) {
	rec := TransactionRecord{Status: TxWaiting, Base: "sBTC"}

	TransactionPatch{Status: TxPending, Hash: "0xabc"}.Apply(&rec)
	assert.Equal(t, TxPending, rec.Status)
	assert.Equal(t, "0xabc", rec.Hash)
	assert.Equal(t, "sBTC", rec.Base)

	// empty fields leave the record untouched
	TransactionPatch{Error: "boom"}.Apply(&rec)
	assert.Equal(t, TxPending, rec.Status)
	assert.Equal(t, "0xabc", rec.Hash)
	assert.Equal(t, "boom", rec.Error)
}

func TestTxStatusTerminal(t *testing.T) {
	assert.False(t, TxWaiting.Terminal())
	assert.True(t, TxPending.Terminal())
	assert.True(t, TxCancelled.Terminal())
	assert.True(t, TxFailed.Terminal())
}

func TestAssetIndex(t *testing.T) {
	idx := AssetIndex{
		"sBTC": {Name: "sBTC", Category: CategoryCrypto},
		"sICE": {Name: "sICE", Category: CategoryCrypto, Frozen: true},
		"sAPL": {Name: "sAPL", Category: CategoryEquities},
	}

	assert.True(t, idx.IsFrozen("sICE"))
	assert.False(t, idx.IsFrozen("sBTC"))
	assert.False(t, idx.IsFrozen("sMISSING"))

	a, ok := idx.Get("sAPL")
	assert.True(t, ok)
	assert.True(t, a.RestrictedHours())

	b, _ := idx.Get("sBTC")
	assert.False(t, b.RestrictedHours())
}
