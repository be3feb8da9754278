package travel

// ViolationKind classifies a constraint failure.
type ViolationKind string

const (
	// ViolationBudget fires when total cost exceeds budget beyond slippage.
	ViolationBudget ViolationKind = "budget_exceeded"
	// ViolationTiming fires when slot gaps or cutoffs are infeasible.
	ViolationTiming ViolationKind = "timing_infeasible"
	// ViolationVenueClosed fires when a slot falls outside venue hours.
	ViolationVenueClosed ViolationKind = "venue_closed"
	// ViolationWeather fires when weather makes an activity unsuitable.
	ViolationWeather ViolationKind = "weather_unsuitable"
	// ViolationPreference fires when a user preference is not honored.
	ViolationPreference ViolationKind = "pref_violated"
)

// Violation is a constraint failure. Violations are first-class data, not
// errors: blocking ones must be fixed before the plan is acceptable while
// advisory ones surface as warnings.
type Violation struct {
	Kind ViolationKind `json:"kind"`
	// NodeRef points at the offending option_ref or a sentinel like "plan".
	NodeRef string `json:"node_ref"`
	// Details carries structured diagnostics keyed per kind.
	Details map[string]any `json:"details,omitempty"`
	// Blocking distinguishes must-fix from advisory.
	Blocking bool `json:"blocking"`
}

// CountBlocking returns how many of the violations are blocking.
func CountBlocking(vs []Violation) int {
	n := 0
	for _, v := range vs {
		if v.Blocking {
			n++
		}
	}
	return n
}

// HasBlocking reports whether any violation is blocking.
func HasBlocking(vs []Violation) bool { return CountBlocking(vs) > 0 }
