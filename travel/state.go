package travel

type (
	// RunState is the shared mutable state a single run's stages operate on.
	// It is exclusively owned by the driver for the duration of the run and
	// never shared across runs, so stages access it without locking.
	RunState struct {
		// TraceID identifies the run end to end.
		TraceID string `json:"trace_id"`
		// OrgID and UserID identify the requesting tenant and user.
		OrgID  string `json:"org_id"`
		UserID string `json:"user_id"`
		// Seed is the deterministic seed derived by the planner.
		Seed uint64 `json:"seed"`
		// Intent is the normalized request.
		Intent Intent `json:"intent"`

		// Plan is the currently selected plan; Candidates holds the planner's
		// full fan-out for decision records.
		Plan       *Plan  `json:"plan,omitempty"`
		Candidates []Plan `json:"candidates,omitempty"`

		// Tool-result dictionaries, keyed by option_ref (Weather by ISO date,
		// FX by currency pair). Records are write-once and read-only after
		// insertion.
		Flights     map[string]Flight     `json:"flights,omitempty"`
		Lodgings    map[string]Lodging    `json:"lodgings,omitempty"`
		Attractions map[string]Attraction `json:"attractions,omitempty"`
		Transits    map[string]TransitLeg `json:"transits,omitempty"`
		Weather     map[string]WeatherDay `json:"weather,omitempty"`
		FX          map[string]FXRate     `json:"fx,omitempty"`

		// Violations accumulates verifier findings in verifier order.
		Violations []Violation `json:"violations,omitempty"`

		// ToolCalls counts executor invocations per tool name.
		ToolCalls map[string]int `json:"tool_calls,omitempty"`

		// Repair carries the repair engine's bookkeeping.
		Repair RepairStats `json:"repair"`

		// Itinerary is the final synthesized output.
		Itinerary *Itinerary `json:"itinerary,omitempty"`

		// Done flips to true exactly once, when the responder finishes.
		Done bool `json:"done"`

		// Messages is the append-only progress log; one entry per stage plus
		// repair diffs.
		Messages []string `json:"messages,omitempty"`
	}

	// RepairStats summarizes what the repair engine did to the plan.
	RepairStats struct {
		CyclesRun    int     `json:"cycles_run"`
		MovesApplied int     `json:"moves_applied"`
		ReuseRatio   float64 `json:"reuse_ratio"`
		// Snapshot is the pre-repair plan retained for diff computation.
		Snapshot *Plan `json:"-"`
	}
)

// NewRunState builds a run state with initialized dictionaries.
func NewRunState(traceID, orgID, userID string, intent Intent) *RunState {
	return &RunState{
		TraceID:     traceID,
		OrgID:       orgID,
		UserID:      userID,
		Intent:      intent,
		Flights:     make(map[string]Flight),
		Lodgings:    make(map[string]Lodging),
		Attractions: make(map[string]Attraction),
		Transits:    make(map[string]TransitLeg),
		Weather:     make(map[string]WeatherDay),
		FX:          make(map[string]FXRate),
		ToolCalls:   make(map[string]int),
		Repair:      RepairStats{ReuseRatio: 1},
	}
}

// AppendMessage adds a progress message to the streaming event log.
func (s *RunState) AppendMessage(msg string) {
	s.Messages = append(s.Messages, msg)
}

// CountToolCall increments the per-name tool call counter.
func (s *RunState) CountToolCall(name string) {
	if s.ToolCalls == nil {
		s.ToolCalls = make(map[string]int)
	}
	s.ToolCalls[name]++
}
