package ledger

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/synthex/internal/domain"
)

// ErrNotFound is returned when an update targets an unknown record id.
var ErrNotFound = errors.New("transaction record not found")

// Ledger is the transaction bookkeeping surface the order submitter writes
// to. Ids are assigned by the ledger itself on append, so concurrent
// submissions can never collide.
type Ledger interface {
	Append(rec domain.TransactionRecord) uint64
	Update(id uint64, patch domain.TransactionPatch) error
	Get(id uint64) (domain.TransactionRecord, bool)
	Records() []domain.TransactionRecord
	// RecordsAfter returns records with id greater than the given id, in
	// ascending id order.
	RecordsAfter(id uint64) []domain.TransactionRecord
}

// Memory is an in-memory append-only ledger.
type Memory struct {
	mu      sync.RWMutex
	records map[uint64]domain.TransactionRecord
	nextID  uint64
}

func NewMemory() *Memory {
	return &Memory{records: make(map[uint64]domain.TransactionRecord), nextID: 1}
}

func (m *Memory) Append(rec domain.TransactionRecord) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.ID = m.nextID
	m.nextID++
	m.records[rec.ID] = rec
	return rec.ID
}

func (m *Memory) Update(id uint64, patch domain.TransactionPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	patch.Apply(&rec)
	m.records[id] = rec
	return nil
}

func (m *Memory) Get(id uint64) (domain.TransactionRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	return rec, ok
}

func (m *Memory) Records() []domain.TransactionRecord {
	return m.RecordsAfter(0)
}

func (m *Memory) RecordsAfter(id uint64) []domain.TransactionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.TransactionRecord, 0, len(m.records))
	for recID, rec := range m.records {
		if recID > id {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
