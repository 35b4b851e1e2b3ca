package clients

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/synthex/internal/domain"
)

// ErrUserCancelled marks a submission the wallet owner rejected at signing
// time. Implementations wrap it so callers can classify with errors.Is.
var ErrUserCancelled = errors.New("user cancelled transaction")

// ExchangeClient is the capability set the order engine needs from the
// exchange contracts. It is injected at construction so tests substitute
// fakes.
type ExchangeClient interface {
	// FeeRate returns the exchange fee for source->dest as a fraction
	// (0.003 means 0.3%).
	FeeRate(ctx context.Context, source, dest string) (decimal.Decimal, error)
	// IsSuspended reports whether trading of the asset is paused.
	IsSuspended(ctx context.Context, asset string) (bool, error)
	// WaitingPeriodSeconds returns the remaining fee-reclamation cooldown
	// for the wallet on the asset; zero means no block.
	WaitingPeriodSeconds(ctx context.Context, wallet common.Address, asset string) (int64, error)
	// EstimateGas estimates the gas needed to exchange amount of source
	// into dest.
	EstimateGas(ctx context.Context, source string, amount *big.Int, dest string) (uint64, error)
	// SubmitMarketOrder signs and sends the exchange call.
	SubmitMarketOrder(ctx context.Context, source string, amount *big.Int, dest string, gas domain.GasParams) (domain.TxHandle, error)
}

// LimitOrderClient submits limit orders to the order-book contract.
type LimitOrderClient interface {
	SubmitLimitOrder(ctx context.Context, req domain.OrderRequest) (domain.TxHandle, error)
}
