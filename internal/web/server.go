// Package web exposes a read-only HTTP surface over the transaction
// ledger: a JSON listing and an SSE stream of new records.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/vadiminshakov/synthex/internal/domain"
)

const streamPollInterval = 2 * time.Second

type transactionReader interface {
	Records() []domain.TransactionRecord
	RecordsAfter(id uint64) []domain.TransactionRecord
}

// Server serves the ledger over HTTP.
type Server struct {
	addr   string
	ledger transactionReader
	l      *zap.Logger
}

func NewServer(l *zap.Logger, addr string, ledger transactionReader) *Server {
	return &Server{addr: addr, ledger: ledger, l: l}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/transactions", s.handleTransactions)
	r.Get("/transactions/stream", s.handleTransactionStream)

	server := &http.Server{
		Addr:              s.addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.ledger.Records()); err != nil {
		s.l.Error("failed to encode transactions", zap.Error(err))
	}
}

func (s *Server) handleTransactionStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var lastID uint64
	ticker := time.NewTicker(streamPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			for _, rec := range s.ledger.RecordsAfter(lastID) {
				payload, err := json.Marshal(rec)
				if err != nil {
					s.l.Error("failed to marshal transaction record", zap.Uint64("id", rec.ID), zap.Error(err))
					continue
				}
				fmt.Fprintf(w, "data: %s\n\n", payload)
				lastID = rec.ID
			}
			flusher.Flush()
		}
	}
}
