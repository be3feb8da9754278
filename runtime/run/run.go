// Package run defines the durable record of a planning run.
//
// A record is created when the pipeline accepts a run and updated as stages
// progress: running until the responder finishes, then completed with the
// final plan snapshot attached, or error with the failure message. Records
// are keyed by RunID and owned by exactly one pipeline execution at a time.
package run

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound reports a lookup or update for a run that was never created.
var ErrNotFound = errors.New("run not found")

// ErrExists reports a create for a run id that is already stored.
var ErrExists = errors.New("run already exists")

type (
	// Record captures the persistent metadata of one planning run.
	Record struct {
		// OrgID and UserID identify the tenant and the requester.
		OrgID  string
		UserID string
		// RunID uniquely identifies the run.
		RunID string
		// Status is the lifecycle state.
		Status Status
		// StartedAt records when the run began; UpdatedAt when the record
		// last changed.
		StartedAt time.Time
		UpdatedAt time.Time
		// CompletedAt is set once the run reaches a terminal status.
		CompletedAt *time.Time
		// PlanSnapshot is the JSON encoding of the selected plan at
		// completion.
		PlanSnapshot json.RawMessage
		// Error holds the failure message for runs that ended in error.
		Error string
	}

	// Update describes a partial record change. Zero-valued fields are left
	// untouched.
	Update struct {
		Status       Status
		CompletedAt  *time.Time
		PlanSnapshot json.RawMessage
		Error        string
	}

	// Store persists run records for lifecycle tracking and lookup.
	Store interface {
		// Create inserts a new record. Creating an existing RunID returns
		// ErrExists.
		Create(ctx context.Context, record Record) error
		// Get returns the record for runID, or ErrNotFound.
		Get(ctx context.Context, runID string) (Record, error)
		// Update applies a partial change to an existing record, or returns
		// ErrNotFound.
		Update(ctx context.Context, runID string, update Update) error
	}

	// Status is the lifecycle state of a run.
	Status string
)

const (
	// StatusRunning indicates the pipeline is executing the run.
	StatusRunning Status = "running"
	// StatusCompleted indicates the run produced an itinerary.
	StatusCompleted Status = "completed"
	// StatusError indicates a stage failed and the run stopped.
	StatusError Status = "error"
)

// Terminal reports whether the status is a final lifecycle state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}
