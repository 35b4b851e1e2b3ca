package submit

import (
	"context"
	"math/big"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/synthex/internal/clients"
	"github.com/vadiminshakov/synthex/internal/domain"
)

// limitHandler routes limit orders to the order-book contract. The
// execution fee is a fixed placeholder until fee quoting ships on chain.
//
// Limit orders deliberately create no ledger record: their lifecycle is
// owned by the order-book contract, which fills or cancels them long after
// submission.
type limitHandler struct {
	s      *Submitter
	limits clients.LimitOrderClient
}

func (h *limitHandler) submit(ctx context.Context, req Request) error {
	s := h.s

	handle, err := h.limits.SubmitLimitOrder(ctx, domain.OrderRequest{
		Kind:          domain.OrderLimit,
		Source:        req.Pair.Quote,
		SourceAmount:  req.Amount,
		Destination:   req.Pair.Base,
		LimitPrice:    req.LimitPrice,
		ExecutionFee:  big.NewInt(1),
		ClientOrderID: uuid.NewString(),
		Gas: domain.GasParams{
			PriceGwei: s.gasPrice(),
			Limit:     limitOrderGasLimit,
		},
	})
	if err != nil {
		if !IsUserCancelled(err, s.wallet.CurrentKind()) {
			s.setError(genericErrorMessage)
		}
		return errors.Wrapf(err, "limit submission for %s", req.Pair.String())
	}

	s.l.Info("limit order submitted, lifecycle tracked by the order-book contract",
		zap.String("pair", req.Pair.String()),
		zap.String("limit_price", req.LimitPrice.String()),
		zap.String("hash", handle.Hash))
	return nil
}
