// Package inmem provides an in-memory implementation of artifact.Store.
//
// The in-memory store is intended for tests and local development. It is not
// durable and should not be used in production.
package inmem

import (
	"context"
	"fmt"
	"sync"

	"github.com/tripsmith/tripsmith/runtime/artifact"
	"github.com/tripsmith/tripsmith/travel"
)

// Store implements artifact.Store in memory.
type Store struct {
	mu    sync.RWMutex
	items map[string]travel.Itinerary
}

// New returns a new in-memory artifact store.
func New() *Store {
	return &Store{items: make(map[string]travel.Itinerary)}
}

// Put implements artifact.Store.
func (s *Store) Put(_ context.Context, it travel.Itinerary) error {
	if it.ID == "" {
		return fmt.Errorf("itinerary id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[it.ID]; ok {
		return fmt.Errorf("put %q: %w", it.ID, artifact.ErrExists)
	}
	s.items[it.ID] = cloneItinerary(it)
	return nil
}

// Get implements artifact.Store.
func (s *Store) Get(_ context.Context, traceID string) (travel.Itinerary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[traceID]
	if !ok {
		return travel.Itinerary{}, fmt.Errorf("get %q: %w", traceID, artifact.ErrNotFound)
	}
	return cloneItinerary(it), nil
}

// Len reports the number of archived itineraries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Reset removes all archived itineraries.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]travel.Itinerary)
}

// cloneItinerary deep-copies the slices an itinerary carries so callers
// cannot mutate archived state through a returned value.
func cloneItinerary(it travel.Itinerary) travel.Itinerary {
	out := it
	if it.Days != nil {
		out.Days = make([]travel.DayItinerary, len(it.Days))
		for i, d := range it.Days {
			out.Days[i] = d
			out.Days[i].Activities = append([]travel.Activity(nil), d.Activities...)
		}
	}
	if it.Decisions != nil {
		out.Decisions = make([]travel.Decision, len(it.Decisions))
		for i, d := range it.Decisions {
			out.Decisions[i] = d
			out.Decisions[i].Alternatives = append([]string(nil), d.Alternatives...)
		}
	}
	if it.Citations != nil {
		out.Citations = append([]travel.Citation(nil), it.Citations...)
	}
	return out
}
