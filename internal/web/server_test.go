package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/synthex/internal/domain"
	"github.com/vadiminshakov/synthex/internal/storage/ledger"
)

func TestHandleTransactions(t *testing.T) {
	book := ledger.NewMemory()
	book.Append(domain.TransactionRecord{
		CreatedAt:  time.Now().UTC(),
		Base:       "sBTC",
		Quote:      "sUSD",
		FromAmount: decimal.NewFromInt(20000),
		ToAmount:   decimal.NewFromInt(1),
		Status:     domain.TxPending,
		Hash:       "0xabc",
	})

	s := NewServer(zap.NewNop(), ":0", book)
	rec := httptest.NewRecorder()
	s.handleTransactions(rec, httptest.NewRequest(http.MethodGet, "/transactions", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var out []domain.TransactionRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, uint64(1), out[0].ID)
	assert.Equal(t, "sBTC", out[0].Base)
	assert.Equal(t, domain.TxPending, out[0].Status)
	assert.Equal(t, "0xabc", out[0].Hash)
}

func TestHandleTransactionsEmptyLedger(t *testing.T) {
	s := NewServer(zap.NewNop(), ":0", ledger.NewMemory())
	rec := httptest.NewRecorder()
	s.handleTransactions(rec, httptest.NewRequest(http.MethodGet, "/transactions", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}
