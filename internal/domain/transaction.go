package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxStatus is the lifecycle state of a submitted exchange.
type TxStatus string

const (
	TxWaiting   TxStatus = "waiting"
	TxPending   TxStatus = "pending"
	TxCancelled TxStatus = "cancelled"
	TxFailed    TxStatus = "failed"
)

// Terminal reports whether no further status transition is expected.
// Pending is terminal here: confirmation tracking happens elsewhere.
func (s TxStatus) Terminal() bool {
	return s == TxPending || s == TxCancelled || s == TxFailed
}

// TransactionRecord is a single ledger entry for a submitted exchange.
// IDs are assigned by the ledger on append.
type TransactionRecord struct {
	ID         uint64          `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	Base       string          `json:"base"`
	Quote      string          `json:"quote"`
	FromAmount decimal.Decimal `json:"from_amount"`
	ToAmount   decimal.Decimal `json:"to_amount"`
	Price      decimal.Decimal `json:"price"`
	PriceUSD   decimal.Decimal `json:"price_usd"`
	TotalUSD   decimal.Decimal `json:"total_usd"`
	Status     TxStatus        `json:"status"`
	Hash       string          `json:"hash,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// TransactionPatch carries the fields a status update may change.
// Nil fields are left untouched.
type TransactionPatch struct {
	Status TxStatus
	Hash   string
	Error  string
}

// Apply merges the patch into the record.
func (p TransactionPatch) Apply(rec *TransactionRecord) {
	if p.Status != "" {
		rec.Status = p.Status
	}
	if p.Hash != "" {
		rec.Hash = p.Hash
	}
	if p.Error != "" {
		rec.Error = p.Error
	}
}
