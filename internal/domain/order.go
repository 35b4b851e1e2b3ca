package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// OrderKind is the order-type variant: immediate market exchange or a
// limit order routed to the order-book contract.
type OrderKind int

const (
	OrderMarket OrderKind = iota
	OrderLimit
)

func (k OrderKind) String() string {
	if k == OrderLimit {
		return "limit"
	}
	return "market"
}

// GasParams are the cost-budget parameters attached to an on-chain call.
type GasParams struct {
	PriceGwei decimal.Decimal
	Limit     uint64
}

// OrderRequest is a fully resolved order ready for submission.
type OrderRequest struct {
	Kind          OrderKind
	Source        string
	SourceAmount  *big.Int
	Destination   string
	LimitPrice    decimal.Decimal
	ExecutionFee  *big.Int
	ClientOrderID string
	Gas           GasParams
}

// TxHandle identifies a transaction accepted by the chain client.
type TxHandle struct {
	Hash  string
	Nonce uint64
}
