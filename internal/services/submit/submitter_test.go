package submit

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/synthex/internal/clients"
	"github.com/vadiminshakov/synthex/internal/domain"
	"github.com/vadiminshakov/synthex/internal/services/gas"
	"github.com/vadiminshakov/synthex/internal/services/wallet"
	"github.com/vadiminshakov/synthex/internal/storage/ledger"
)

type fakeExchange struct {
	mu          sync.Mutex
	estimate    uint64
	estimateErr error
	submitErr   error
	submitGate  chan struct{}
	lastGas     domain.GasParams
	lastAmount  *big.Int
	hash        string
}

func (f *fakeExchange) FeeRate(ctx context.Context, source, dest string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (f *fakeExchange) IsSuspended(ctx context.Context, asset string) (bool, error) {
	return false, nil
}

func (f *fakeExchange) WaitingPeriodSeconds(ctx context.Context, w common.Address, asset string) (int64, error) {
	return 0, nil
}

func (f *fakeExchange) EstimateGas(ctx context.Context, source string, amount *big.Int, dest string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.estimate, f.estimateErr
}

func (f *fakeExchange) SubmitMarketOrder(ctx context.Context, source string, amount *big.Int, dest string, g domain.GasParams) (domain.TxHandle, error) {
	f.mu.Lock()
	f.lastGas = g
	f.lastAmount = amount
	gate := f.submitGate
	err := f.submitErr
	hash := f.hash
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return domain.TxHandle{}, err
	}
	return domain.TxHandle{Hash: hash}, nil
}

type fakeLimitClient struct {
	mu   sync.Mutex
	err  error
	last domain.OrderRequest
	hash string
}

func (f *fakeLimitClient) SubmitLimitOrder(ctx context.Context, req domain.OrderRequest) (domain.TxHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = req
	if f.err != nil {
		return domain.TxHandle{}, f.err
	}
	return domain.TxHandle{Hash: f.hash}, nil
}

type staticRates struct {
	rates map[string]decimal.Decimal
}

func (s *staticRates) Rate(from, to string) decimal.Decimal {
	return s.rates[from+":"+to]
}

type fixture struct {
	submitter *Submitter
	exchange  *fakeExchange
	limits    *fakeLimitClient
	book      *ledger.Memory
	wallet    *wallet.Context
}

func newFixture() *fixture {
	exchange := &fakeExchange{estimate: 100000, hash: "0xabc"}
	limits := &fakeLimitClient{hash: "0xdef"}
	book := ledger.NewMemory()
	walletCtx := wallet.NewContext()
	walletCtx.Connect(common.Address{}, wallet.KindLocal)

	rates := &staticRates{rates: map[string]decimal.Decimal{
		"sBTC:sUSD": decimal.NewFromInt(20000),
		"sUSD:sBTC": decimal.RequireFromString("0.00005"),
	}}

	estimator := gas.NewEstimator(zap.NewNop(), exchange, 500000)
	s := NewSubmitter(zap.NewNop(), exchange, limits, rates, book, estimator, walletCtx,
		func() decimal.Decimal { return decimal.NewFromInt(50) })

	return &fixture{submitter: s, exchange: exchange, limits: limits, book: book, wallet: walletCtx}
}

func marketRequest() Request {
	return Request{
		Kind:        domain.OrderMarket,
		Pair:        domain.Pair{Base: "sBTC", Quote: "sUSD"},
		QuoteAmount: decimal.NewFromInt(20000),
		BaseAmount:  decimal.NewFromInt(1),
		Amount:      domain.ParseUnits(decimal.NewFromInt(20000)),
	}
}

func TestMarketSubmitRecordsWaitingThenPending(t *testing.T) {
	f := newFixture()

	err := f.submitter.Submit(context.Background(), marketRequest())
	require.NoError(t, err)

	records := f.book.Records()
	require.Len(t, records, 1)
	rec := records[0]

	assert.Equal(t, uint64(1), rec.ID)
	assert.Equal(t, domain.TxPending, rec.Status)
	assert.Equal(t, "0xabc", rec.Hash)
	assert.Equal(t, "sBTC", rec.Base)
	assert.Equal(t, "sUSD", rec.Quote)
	assert.True(t, rec.Price.Equal(decimal.NewFromInt(20000)))
	assert.True(t, rec.TotalUSD.Equal(decimal.NewFromInt(20000)))
	assert.Empty(t, f.submitter.Err())
	assert.False(t, f.submitter.IsSubmitting())
}

func TestMarketSubmitUsesFreshGasEstimate(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.submitter.Submit(context.Background(), marketRequest()))

	// 100000 padded by 20%
	assert.Equal(t, uint64(120000), f.exchange.lastGas.Limit)
	assert.True(t, f.exchange.lastGas.PriceGwei.Equal(decimal.NewFromInt(50)))
}

func TestMarketSubmitGasFailureLeavesNoRecord(t *testing.T) {
	f := newFixture()
	f.exchange.estimateErr = assert.AnError

	err := f.submitter.Submit(context.Background(), marketRequest())

	require.Error(t, err)
	assert.Empty(t, f.book.Records(), "a trade that never reached the chain must not appear in the ledger")
	assert.Equal(t, genericErrorMessage, f.submitter.Err())
	assert.False(t, f.submitter.IsSubmitting())
}

func TestMarketSubmitFailureMarksRecordFailed(t *testing.T) {
	f := newFixture()
	f.exchange.submitErr = errors.New("execution reverted")

	err := f.submitter.Submit(context.Background(), marketRequest())
	require.Error(t, err)

	records := f.book.Records()
	require.Len(t, records, 1)
	assert.Equal(t, domain.TxFailed, records[0].Status)
	assert.Contains(t, records[0].Error, "execution reverted")
	assert.Equal(t, genericErrorMessage, f.submitter.Err())
}

func TestMarketSubmitCancellationMarksRecordCancelledWithoutBanner(t *testing.T) {
	f := newFixture()
	f.exchange.submitErr = clients.ErrUserCancelled

	err := f.submitter.Submit(context.Background(), marketRequest())
	require.Error(t, err)

	records := f.book.Records()
	require.Len(t, records, 1)
	assert.Equal(t, domain.TxCancelled, records[0].Status)
	assert.Empty(t, f.submitter.Err(), "a user cancellation is not an application error")
	assert.False(t, f.submitter.IsSubmitting(), "the latch must release after cancellation")
}

func TestSecondSubmissionRejectedWhileInFlight(t *testing.T) {
	f := newFixture()
	gate := make(chan struct{})
	f.exchange.submitGate = gate

	done := make(chan error, 1)
	go func() { done <- f.submitter.Submit(context.Background(), marketRequest()) }()

	require.Eventually(t, f.submitter.IsSubmitting, time.Second, 5*time.Millisecond)
	err := f.submitter.Submit(context.Background(), marketRequest())
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(gate)
	require.NoError(t, <-done)
	assert.False(t, f.submitter.IsSubmitting())

	// the latch is free again, a new attempt goes through
	f.exchange.submitGate = nil
	require.NoError(t, f.submitter.Submit(context.Background(), marketRequest()))
}

func TestSubmitClearsPreviousError(t *testing.T) {
	f := newFixture()
	f.exchange.submitErr = errors.New("boom")
	require.Error(t, f.submitter.Submit(context.Background(), marketRequest()))
	require.Equal(t, genericErrorMessage, f.submitter.Err())

	f.exchange.submitErr = nil
	require.NoError(t, f.submitter.Submit(context.Background(), marketRequest()))
	assert.Empty(t, f.submitter.Err())
}

func TestDismissErrorIsIdempotent(t *testing.T) {
	f := newFixture()
	f.exchange.submitErr = errors.New("boom")
	require.Error(t, f.submitter.Submit(context.Background(), marketRequest()))

	f.submitter.DismissError()
	assert.Empty(t, f.submitter.Err())
	f.submitter.DismissError()
	assert.Empty(t, f.submitter.Err())
}

func TestLimitSubmitCreatesNoLedgerRecord(t *testing.T) {
	f := newFixture()
	req := marketRequest()
	req.Kind = domain.OrderLimit
	req.LimitPrice = decimal.NewFromInt(19000)

	require.NoError(t, f.submitter.Submit(context.Background(), req))

	assert.Empty(t, f.book.Records(), "limit order lifecycle is owned by the order-book contract")

	sent := f.limits.last
	assert.Equal(t, "sUSD", sent.Source)
	assert.Equal(t, "sBTC", sent.Destination)
	assert.True(t, sent.LimitPrice.Equal(decimal.NewFromInt(19000)))
	assert.Equal(t, big.NewInt(1), sent.ExecutionFee)
	assert.Equal(t, uint64(limitOrderGasLimit), sent.Gas.Limit)
	assert.NotEmpty(t, sent.ClientOrderID)
}

func TestLimitSubmitFailureSetsBanner(t *testing.T) {
	f := newFixture()
	f.limits.err = errors.New("boom")

	req := marketRequest()
	req.Kind = domain.OrderLimit
	req.LimitPrice = decimal.NewFromInt(19000)

	require.Error(t, f.submitter.Submit(context.Background(), req))
	assert.Equal(t, genericErrorMessage, f.submitter.Err())
	assert.Empty(t, f.book.Records())
}

func TestLimitSubmitCancellationSkipsBanner(t *testing.T) {
	f := newFixture()
	f.limits.err = clients.ErrUserCancelled

	req := marketRequest()
	req.Kind = domain.OrderLimit

	require.Error(t, f.submitter.Submit(context.Background(), req))
	assert.Empty(t, f.submitter.Err())
}

func TestCanSubmit(t *testing.T) {
	tests := []struct {
		name        string
		amountEmpty bool
		connected   bool
		blocked     bool
		want        bool
	}{
		{name: "ready", amountEmpty: false, connected: true, blocked: false, want: true},
		{name: "no amount", amountEmpty: true, connected: true, blocked: false, want: false},
		{name: "no wallet", amountEmpty: false, connected: false, blocked: false, want: false},
		{name: "blocked", amountEmpty: false, connected: true, blocked: true, want: false},
	}

	f := newFixture()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.submitter.CanSubmit(tt.amountEmpty, tt.connected, tt.blocked))
		})
	}
}

func TestPriceDirectionDependsOnPair(t *testing.T) {
	f := newFixture()

	// buying sUSD with sBTC: price is quote->base
	req := Request{
		Kind:        domain.OrderMarket,
		Pair:        domain.Pair{Base: "sUSD", Quote: "sBTC"},
		QuoteAmount: decimal.NewFromInt(1),
		BaseAmount:  decimal.NewFromInt(20000),
		Amount:      domain.ParseUnits(decimal.NewFromInt(1)),
	}
	require.NoError(t, f.submitter.Submit(context.Background(), req))

	records := f.book.Records()
	require.Len(t, records, 1)
	assert.True(t, records[0].Price.Equal(decimal.NewFromInt(20000)))
	assert.True(t, records[0].PriceUSD.Equal(decimal.NewFromInt(20000)))
}

func TestIsUserCancelled(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind wallet.Kind
		want bool
	}{
		{name: "nil error", err: nil, kind: wallet.KindLocal, want: false},
		{name: "sentinel", err: clients.ErrUserCancelled, kind: wallet.KindLocal, want: true},
		{name: "wrapped sentinel", err: errors.Wrap(clients.ErrUserCancelled, "send tx"), kind: wallet.KindLocal, want: true},
		{name: "metamask denial", err: errors.New("MetaMask Tx Signature: User denied transaction signature."), kind: wallet.KindMetamask, want: true},
		{name: "metamask denial on other wallet", err: errors.New("User denied transaction signature"), kind: wallet.KindLocal, want: false},
		{name: "ledger rejection code", err: errors.New("ledger device: condition of use not satisfied (0x6985)"), kind: wallet.KindLedger, want: true},
		{name: "generic cancelled", err: errors.New("transaction was cancelled"), kind: wallet.KindLocal, want: true},
		{name: "generic rejected", err: errors.New("request rejected"), kind: wallet.KindLocal, want: true},
		{name: "unrelated failure", err: errors.New("nonce too low"), kind: wallet.KindMetamask, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUserCancelled(tt.err, tt.kind))
		})
	}
}
