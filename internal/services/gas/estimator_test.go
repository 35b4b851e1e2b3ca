package gas

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/synthex/internal/domain"
)

type fakeEstimateClient struct {
	mu       sync.Mutex
	estimate uint64
	err      error
	calls    int
}

func (f *fakeEstimateClient) EstimateGas(ctx context.Context, source string, amount *big.Int, dest string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.estimate, f.err
}

func (f *fakeEstimateClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var testPair = domain.Pair{Base: "sBTC", Quote: "sUSD"}

func TestNormalize(t *testing.T) {
	tests := []struct {
		estimate uint64
		want     uint64
	}{
		{estimate: 100000, want: 120000},
		{estimate: 500000, want: 600000},
		{estimate: 0, want: 0},
		{estimate: 1, want: 1},
		{estimate: 5, want: 6},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.estimate))
	}
}

func TestQuoteChangedEstimatesAndLocks(t *testing.T) {
	client := &fakeEstimateClient{estimate: 100000}
	e := NewEstimator(zap.NewNop(), client, 500000)
	require.Equal(t, uint64(500000), e.Limit())

	e.QuoteChanged(context.Background(), testPair, big.NewInt(1))

	require.Eventually(t, func() bool { return e.Limit() == 120000 }, time.Second, 5*time.Millisecond)
	assert.True(t, e.Locked())
}

func TestQuoteChangedSuppressedOnceLocked(t *testing.T) {
	client := &fakeEstimateClient{estimate: 100000}
	e := NewEstimator(zap.NewNop(), client, 500000)

	e.QuoteChanged(context.Background(), testPair, big.NewInt(1))
	require.Eventually(t, func() bool { return e.Locked() }, time.Second, 5*time.Millisecond)
	before := client.callCount()

	e.QuoteChanged(context.Background(), testPair, big.NewInt(2))
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, before, client.callCount())
	assert.Equal(t, uint64(120000), e.Limit())
}

func TestQuoteChangedIgnoresEmptyAmount(t *testing.T) {
	client := &fakeEstimateClient{estimate: 100000}
	e := NewEstimator(zap.NewNop(), client, 500000)

	e.QuoteChanged(context.Background(), testPair, nil)
	e.QuoteChanged(context.Background(), testPair, big.NewInt(0))
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 0, client.callCount())
	assert.Equal(t, uint64(500000), e.Limit())
}

func TestEstimateFailureKeepsDefault(t *testing.T) {
	client := &fakeEstimateClient{err: assert.AnError}
	e := NewEstimator(zap.NewNop(), client, 500000)

	e.QuoteChanged(context.Background(), testPair, big.NewInt(1))
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, uint64(500000), e.Limit())
	assert.False(t, e.Locked())
}

func TestSetManualPinsTheLimit(t *testing.T) {
	client := &fakeEstimateClient{estimate: 100000}
	e := NewEstimator(zap.NewNop(), client, 500000)

	e.SetManual(777777)

	assert.Equal(t, uint64(777777), e.Limit())
	assert.True(t, e.Locked())

	e.QuoteChanged(context.Background(), testPair, big.NewInt(1))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, uint64(777777), e.Limit())
}

func TestFreshEstimatesSynchronously(t *testing.T) {
	client := &fakeEstimateClient{estimate: 200000}
	e := NewEstimator(zap.NewNop(), client, 500000)

	limit, err := e.Fresh(context.Background(), testPair, big.NewInt(42))

	require.NoError(t, err)
	assert.Equal(t, uint64(240000), limit)
	assert.Equal(t, uint64(240000), e.Limit())
}

func TestFreshOverridesManualValue(t *testing.T) {
	client := &fakeEstimateClient{estimate: 200000}
	e := NewEstimator(zap.NewNop(), client, 500000)
	e.SetManual(777777)

	limit, err := e.Fresh(context.Background(), testPair, big.NewInt(42))

	require.NoError(t, err)
	assert.Equal(t, uint64(240000), limit)
}

func TestFreshPropagatesFailure(t *testing.T) {
	client := &fakeEstimateClient{err: assert.AnError}
	e := NewEstimator(zap.NewNop(), client, 500000)

	_, err := e.Fresh(context.Background(), testPair, big.NewInt(42))

	require.Error(t, err)
	assert.Equal(t, uint64(500000), e.Limit())
}
