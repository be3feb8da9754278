package hooks

import "time"

type (
	// Event is the interface all hook events implement. Subscribers use type
	// switches to access event-specific fields:
	//
	//	func (s *recorder) HandleEvent(ctx context.Context, evt hooks.Event) error {
	//	    switch e := evt.(type) {
	//	    case *hooks.ToolResultReceivedEvent:
	//	        log.Printf("tool %s took %v", e.ToolName, e.Duration)
	//	    }
	//	    return nil
	//	}
	Event interface {
		// Type returns the event type constant, so subscribers can filter
		// without type assertions.
		Type() EventType
		// RunID returns the run that produced this event.
		RunID() string
		// Timestamp returns the Unix timestamp in milliseconds when the
		// event was created, not when it was delivered.
		Timestamp() int64
	}

	// ToolCallStartedEvent fires when the executor begins a tool call,
	// before the cache and breaker are consulted.
	ToolCallStartedEvent struct {
		baseEvent
		// ToolName identifies the tool being invoked.
		ToolName string
		// Args carries the call arguments. Subscribers must not mutate them.
		Args map[string]any
	}

	// ToolResultReceivedEvent fires when the executor finishes a tool call,
	// whatever the outcome.
	ToolResultReceivedEvent struct {
		baseEvent
		// ToolName identifies the tool that was invoked.
		ToolName string
		// Status is the terminal result status (success, error, timeout,
		// cancelled, breaker_open).
		Status string
		// Duration is the wall-clock time of the whole call, including
		// retries and backoff.
		Duration time.Duration
		// Retries counts attempts beyond the first.
		Retries int
		// FromCache reports whether the result came from the result cache.
		FromCache bool
		// ErrorReason carries the final error reason, empty on success.
		ErrorReason string
	}

	// baseEvent holds the fields shared by all event types.
	baseEvent struct {
		runID     string
		timestamp int64
	}
)

// EventType enumerates the hook events broadcast on the bus.
type EventType string

const (
	// ToolCallStarted fires before a tool call executes.
	ToolCallStarted EventType = "tool_call_started"
	// ToolResultReceived fires after a tool call completes.
	ToolResultReceived EventType = "tool_result_received"
)

// NewToolCallStartedEvent constructs the event published before a tool call.
func NewToolCallStartedEvent(runID, toolName string, args map[string]any) *ToolCallStartedEvent {
	return &ToolCallStartedEvent{
		baseEvent: newBaseEvent(runID),
		ToolName:  toolName,
		Args:      args,
	}
}

// NewToolResultReceivedEvent constructs the event published after a tool call.
func NewToolResultReceivedEvent(runID, toolName, status string, duration time.Duration, retries int, fromCache bool, errorReason string) *ToolResultReceivedEvent {
	return &ToolResultReceivedEvent{
		baseEvent:   newBaseEvent(runID),
		ToolName:    toolName,
		Status:      status,
		Duration:    duration,
		Retries:     retries,
		FromCache:   fromCache,
		ErrorReason: errorReason,
	}
}

func newBaseEvent(runID string) baseEvent {
	return baseEvent{runID: runID, timestamp: time.Now().UnixMilli()}
}

// RunID returns the run identifier.
func (e baseEvent) RunID() string { return e.runID }

// Timestamp returns the Unix timestamp in milliseconds of event creation.
func (e baseEvent) Timestamp() int64 { return e.timestamp }

func (e *ToolCallStartedEvent) Type() EventType     { return ToolCallStarted }
func (e *ToolResultReceivedEvent) Type() EventType  { return ToolResultReceived }
