// Package memory provides the in-memory results store used for ephemeral
// runs and tests. It is the reference implementation of the store contract:
// durable backends mirror its validation behavior.
package memory

import (
	"context"
	"sync"

	"chdsim/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.ResultsStore = (*Store)(nil)

// Store wraps a domain.ResultsTable behind the ResultsStore interface.
// Appends are serialized with a mutex so misuse outside the single-writer
// discipline still cannot corrupt the table.
type Store struct {
	mu    sync.RWMutex
	table *domain.ResultsTable
}

// NewStore returns an empty in-memory store. capacityHint pre-sizes the
// table; pass 0 when the run shape is unknown.
func NewStore(capacityHint int) *Store {
	return &Store{table: domain.NewResultsTable(capacityHint)}
}

// AppendYear implements domain.ResultsStore.
func (s *Store) AppendYear(_ context.Context, year int, rows []domain.OutcomeRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.AppendYear(year, rows)
}

// Rows implements domain.ResultsStore.
func (s *Store) Rows(context.Context) ([]domain.OutcomeRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.Rows(), nil
}

// SummarizeByYear implements domain.ResultsStore.
func (s *Store) SummarizeByYear(context.Context) ([]domain.YearSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.SummarizeByYear(), nil
}

// Len returns the number of rows held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.Len()
}

// Close implements domain.ResultsStore; the memory store holds no resources.
func (s *Store) Close() error { return nil }
