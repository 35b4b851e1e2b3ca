package ledger

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/synthex/internal/domain"
)

const (
	DefaultDir   = "./wal/transactions"
	segmentLimit = 1000
	maxSegments  = 100

	recordKeyPrefix = "tx_"
)

// WALStore is a Ledger persisted in an append-only WAL. Every append and
// update writes the full record, so recovery is last-write-wins per id.
type WALStore struct {
	wal     *gowal.Wal
	mu      sync.RWMutex
	records map[uint64]domain.TransactionRecord
	nextID  uint64
	l       *zap.Logger
}

// NewWALStore opens the WAL in dir and recovers all records from it.
func NewWALStore(l *zap.Logger, dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "tx_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init transaction WAL")
	}

	s := &WALStore{
		wal:     wal,
		records: make(map[uint64]domain.TransactionRecord),
		nextID:  1,
		l:       l,
	}

	for msg := range wal.Iterator() {
		if !strings.HasPrefix(msg.Key, recordKeyPrefix) {
			continue
		}
		var rec domain.TransactionRecord
		if err := json.Unmarshal(msg.Value, &rec); err != nil {
			l.Error("failed to unmarshal transaction record", zap.String("key", msg.Key), zap.Error(err))
			continue
		}
		s.records[rec.ID] = rec
		if rec.ID >= s.nextID {
			s.nextID = rec.ID + 1
		}
	}

	return s, nil
}

func (s *WALStore) persist(rec domain.TransactionRecord) {
	payload, err := json.Marshal(rec)
	if err != nil {
		s.l.Error("failed to marshal transaction record", zap.Uint64("id", rec.ID), zap.Error(err))
		return
	}

	key := fmt.Sprintf("%s%d", recordKeyPrefix, rec.ID)
	if err := s.wal.Write(s.wal.CurrentIndex()+1, key, payload); err != nil {
		s.l.Error("failed to persist transaction record", zap.Uint64("id", rec.ID), zap.Error(err))
	}
}

func (s *WALStore) Append(rec domain.TransactionRecord) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.nextID
	s.nextID++
	s.records[rec.ID] = rec
	s.persist(rec)
	return rec.ID
}

func (s *WALStore) Update(id uint64, patch domain.TransactionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	patch.Apply(&rec)
	s.records[id] = rec
	s.persist(rec)
	return nil
}

func (s *WALStore) Get(id uint64) (domain.TransactionRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

func (s *WALStore) Records() []domain.TransactionRecord {
	return s.RecordsAfter(0)
}

func (s *WALStore) RecordsAfter(id uint64) []domain.TransactionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.TransactionRecord, 0, len(s.records))
	for recID, rec := range s.records {
		if recID > id {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wal.Close()
}
