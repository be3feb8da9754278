// Package inmem provides an in-memory implementation of run.Store for tests
// and local development. Records live in a map keyed by RunID with no
// persistence across restarts; production deployments use the MongoDB-backed
// store under features/run/mongo.
package inmem

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/tripsmith/tripsmith/runtime/run"
)

// Store implements run.Store in memory. All operations are thread-safe and
// records are defensively copied on read and write so callers can never
// mutate stored state through aliases.
type Store struct {
	mu      sync.RWMutex
	records map[string]run.Record
}

// New constructs an empty Store.
func New() *Store {
	return &Store{records: make(map[string]run.Record)}
}

// Create implements run.Store.
func (s *Store) Create(_ context.Context, r run.Record) error {
	if r.RunID == "" {
		return fmt.Errorf("create run: run id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[r.RunID]; ok {
		return fmt.Errorf("create run %q: %w", r.RunID, run.ErrExists)
	}
	now := time.Now()
	if r.StartedAt.IsZero() {
		r.StartedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.StartedAt
	}
	s.records[r.RunID] = cloneRecord(r)
	return nil
}

// Get implements run.Store.
func (s *Store) Get(_ context.Context, runID string) (run.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[runID]
	if !ok {
		return run.Record{}, fmt.Errorf("get run %q: %w", runID, run.ErrNotFound)
	}
	return cloneRecord(r), nil
}

// Update implements run.Store.
func (s *Store) Update(_ context.Context, runID string, u run.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[runID]
	if !ok {
		return fmt.Errorf("update run %q: %w", runID, run.ErrNotFound)
	}
	if u.Status != "" {
		r.Status = u.Status
	}
	if u.CompletedAt != nil {
		t := *u.CompletedAt
		r.CompletedAt = &t
	}
	if len(u.PlanSnapshot) > 0 {
		r.PlanSnapshot = append(json.RawMessage(nil), u.PlanSnapshot...)
	}
	if u.Error != "" {
		r.Error = u.Error
	}
	r.UpdatedAt = time.Now()
	s.records[runID] = r
	return nil
}

// Reset clears all stored records. Useful for test isolation; not part of
// the run.Store interface.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]run.Record)
}

func cloneRecord(r run.Record) run.Record {
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		r.CompletedAt = &t
	}
	if len(r.PlanSnapshot) > 0 {
		r.PlanSnapshot = append(json.RawMessage(nil), r.PlanSnapshot...)
	}
	return r
}
