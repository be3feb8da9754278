// Package stream delivers pipeline progress updates to clients. The planning
// core emits one event kind, node_event, marking each stage transition of a
// run. Sinks carry events to a transport (SSE, WebSocket, Pulse streams) and
// are responsible for marshaling payloads into their wire format.
//
// Events are immutable after construction and safe to append concurrently.
package stream

import (
	"context"
	"time"
)

type (
	// Sink delivers events to an underlying transport. Implementations must
	// be safe for concurrent Append calls: the driver streams stage
	// transitions for many runs in parallel.
	Sink interface {
		// Append publishes an event. It returns an error when delivery fails
		// (transport closed, serialization error) so streaming failures
		// surface instead of silently dropping progress updates.
		Append(ctx context.Context, event Event) error

		// Close releases resources owned by the sink. Close is idempotent;
		// after the first call subsequent Appends must return errors. The
		// context bounds graceful shutdown.
		Close(ctx context.Context) error
	}

	// Event is a streamed update scoped to one run. Concrete event types
	// embed Base for the standard metadata accessors; sinks marshal events
	// generically via Payload.
	Event interface {
		// Kind returns the event kind constant. Consumers route on it
		// without type assertions.
		Kind() Kind

		// OrgID returns the tenant that owns the run.
		OrgID() string

		// RunID returns the run that produced this event. All events of one
		// run share it, so clients can group or filter multiplexed streams.
		RunID() string

		// Payload returns the kind-specific data in JSON-serializable form.
		Payload() any
	}

	// NodeEvent marks a pipeline stage transition. The driver appends one
	// with status running when a stage starts and one with status completed
	// (or error) when it finishes.
	NodeEvent struct {
		Base
		Data NodeEventPayload
	}

	// NodeEventPayload is the wire payload for node events.
	NodeEventPayload struct {
		// Node is the stage name, for example "planner" or "verifier".
		Node string `json:"node"`
		// Status is one of StatusRunning, StatusCompleted, StatusError.
		Status NodeStatus `json:"status"`
		// TS is when the transition happened.
		TS time.Time `json:"ts"`
		// Message carries optional human-readable detail, such as a repair
		// move summary or the error text of a failed stage.
		Message string `json:"message,omitempty"`
	}

	// Base provides the Event metadata accessors. Embed it in concrete event
	// types; fields stay unexported so events are immutable once built.
	Base struct {
		k Kind
		o string
		r string
		p any
	}
)

// Kind enumerates stream payload flavors.
type Kind string

// KindNodeEvent is the only kind the planning core emits: a stage transition
// for a run.
const KindNodeEvent Kind = "node_event"

// NodeStatus enumerates stage transition states.
type NodeStatus string

const (
	// StatusRunning marks a stage that just started.
	StatusRunning NodeStatus = "running"
	// StatusCompleted marks a stage that finished successfully.
	StatusCompleted NodeStatus = "completed"
	// StatusError marks a stage that failed; the run stops after it.
	StatusError NodeStatus = "error"
)

// NewBase constructs event metadata with the given kind, org, run and payload.
func NewBase(k Kind, orgID, runID string, payload any) Base {
	return Base{k: k, o: orgID, r: runID, p: payload}
}

// NewNodeEvent builds a stage transition event for the given run.
func NewNodeEvent(orgID, runID, node string, status NodeStatus, ts time.Time, message string) *NodeEvent {
	payload := NodeEventPayload{Node: node, Status: status, TS: ts, Message: message}
	return &NodeEvent{
		Base: NewBase(KindNodeEvent, orgID, runID, payload),
		Data: payload,
	}
}

// Kind implements Event.Kind.
func (e Base) Kind() Kind { return e.k }

// OrgID implements Event.OrgID.
func (e Base) OrgID() string { return e.o }

// RunID implements Event.RunID.
func (e Base) RunID() string { return e.r }

// Payload implements Event.Payload.
func (e Base) Payload() any { return e.p }
