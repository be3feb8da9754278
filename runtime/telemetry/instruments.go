package telemetry

import "time"

// Instruments names every metric the planning runtime emits so call sites
// record domain events instead of assembling metric names and tags inline.
//
// Metrics recorded:
//   - tool.latency: histogram of tool call latency, by tool and status
//   - tool.retries: counter of retried attempts, by tool
//   - tool.errors: counter of failed attempts, by tool and reason
//   - tool.cache.hit: counter of result-cache hits, by tool
//   - breaker.open: counter of breaker open transitions, by tool
//   - breaker.state: gauge of breaker state (0 closed, 1 half-open, 2 open)
//   - verify.budget.delta: gauge of plan total minus budget, in USD cents
//   - verify.violation: counter of violations, by kind and severity
//   - verify.weather.blocking / verify.weather.advisory: weather verdicts
//   - verify.feasibility: counter of feasibility failures, by reason
//   - verify.preference: counter of preference failures, by preference
//   - repair.attempt / repair.success: counters of repair engine outcomes
//   - repair.cycles / repair.moves / repair.reuse_ratio: per-run gauges
//   - synth.duration: histogram of synthesis latency
//   - synth.citation_coverage: gauge of citations per claim
type Instruments struct {
	m Metrics
}

// NewInstruments wraps m. A nil m records nothing.
func NewInstruments(m Metrics) *Instruments {
	if m == nil {
		m = NewNoopMetrics()
	}
	return &Instruments{m: m}
}

// ObserveToolLatency records one latency observation for a finished tool call.
func (i *Instruments) ObserveToolLatency(tool, status string, d time.Duration) {
	i.m.RecordTimer("tool.latency", d, "tool", tool, "status", status)
}

// IncToolRetries counts retried attempts for a tool call.
func (i *Instruments) IncToolRetries(tool string, n int) {
	i.m.IncCounter("tool.retries", float64(n), "tool", tool)
}

// IncToolError counts one failed attempt with its error reason.
func (i *Instruments) IncToolError(tool, reason string) {
	i.m.IncCounter("tool.errors", 1, "tool", tool, "reason", reason)
}

// IncToolCacheHit counts one result-cache hit.
func (i *Instruments) IncToolCacheHit(tool string) {
	i.m.IncCounter("tool.cache.hit", 1, "tool", tool)
}

// IncBreakerOpen counts one closed-to-open (or half-open-to-open) transition.
func (i *Instruments) IncBreakerOpen(tool string) {
	i.m.IncCounter("breaker.open", 1, "tool", tool)
}

// SetBreakerState records the breaker state for a tool: 0 closed, 1 half-open,
// 2 open.
func (i *Instruments) SetBreakerState(tool string, state float64) {
	i.m.RecordGauge("breaker.state", state, "tool", tool)
}

// ObserveBudgetDelta records plan total minus intent budget in USD cents.
// Negative values mean the plan is under budget.
func (i *Instruments) ObserveBudgetDelta(deltaCents int64) {
	i.m.RecordGauge("verify.budget.delta", float64(deltaCents))
}

// IncViolation counts one verifier violation by kind and severity.
func (i *Instruments) IncViolation(kind string, blocking bool) {
	severity := "advisory"
	if blocking {
		severity = "blocking"
	}
	i.m.IncCounter("verify.violation", 1, "kind", kind, "severity", severity)
}

// IncWeatherBlocking counts one blocking weather violation.
func (i *Instruments) IncWeatherBlocking() {
	i.m.IncCounter("verify.weather.blocking", 1)
}

// IncWeatherAdvisory counts one advisory weather violation.
func (i *Instruments) IncWeatherAdvisory() {
	i.m.IncCounter("verify.weather.advisory", 1)
}

// IncFeasibilityViolation counts one feasibility failure by reason
// (insufficient_gap, venue_closed, last_train_missed).
func (i *Instruments) IncFeasibilityViolation(reason string) {
	i.m.IncCounter("verify.feasibility", 1, "reason", reason)
}

// IncPrefViolation counts one preference failure by the preference violated.
func (i *Instruments) IncPrefViolation(pref string) {
	i.m.IncCounter("verify.preference", 1, "pref", pref)
}

// IncRepairAttempt counts one repair engine invocation.
func (i *Instruments) IncRepairAttempt() {
	i.m.IncCounter("repair.attempt", 1)
}

// IncRepairSuccess counts one repair run that cleared every blocking violation.
func (i *Instruments) IncRepairSuccess() {
	i.m.IncCounter("repair.success", 1)
}

// ObserveRepairCycles records how many repair cycles a run used.
func (i *Instruments) ObserveRepairCycles(n int) {
	i.m.RecordGauge("repair.cycles", float64(n))
}

// ObserveRepairMoves records how many repair moves a run applied.
func (i *Instruments) ObserveRepairMoves(n int) {
	i.m.RecordGauge("repair.moves", float64(n))
}

// ObserveReuseRatio records the fraction of selected options a repair run
// left untouched.
func (i *Instruments) ObserveReuseRatio(ratio float64) {
	i.m.RecordGauge("repair.reuse_ratio", ratio)
}

// ObserveSynthesisLatency records how long itinerary synthesis took.
func (i *Instruments) ObserveSynthesisLatency(d time.Duration) {
	i.m.RecordTimer("synth.duration", d)
}

// ObserveCitationCoverage records the citations-per-claim ratio of a
// synthesized itinerary.
func (i *Instruments) ObserveCitationCoverage(ratio float64) {
	i.m.RecordGauge("synth.citation_coverage", ratio)
}
