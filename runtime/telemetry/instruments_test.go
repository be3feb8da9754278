package telemetry_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tripsmith/tripsmith/runtime/telemetry"
)

// captureMetrics records every emission so tests can assert on names and tags.
type captureMetrics struct {
	mu       sync.Mutex
	counters map[string]float64
	timers   map[string]time.Duration
	gauges   map[string]float64
	tags     map[string][]string
}

func newCaptureMetrics() *captureMetrics {
	return &captureMetrics{
		counters: make(map[string]float64),
		timers:   make(map[string]time.Duration),
		gauges:   make(map[string]float64),
		tags:     make(map[string][]string),
	}
}

func (c *captureMetrics) IncCounter(name string, value float64, tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name] += value
	c.tags[name] = tags
}

func (c *captureMetrics) RecordTimer(name string, duration time.Duration, tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timers[name] = duration
	c.tags[name] = tags
}

func (c *captureMetrics) RecordGauge(name string, value float64, tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[name] = value
	c.tags[name] = tags
}

func TestInstrumentsToolMetrics(t *testing.T) {
	rec := newCaptureMetrics()
	ins := telemetry.NewInstruments(rec)

	ins.ObserveToolLatency("flight_search", "success", 120*time.Millisecond)
	ins.IncToolRetries("flight_search", 1)
	ins.IncToolError("flight_search", "TimeoutError")
	ins.IncToolCacheHit("fx_rates")

	require.Equal(t, 120*time.Millisecond, rec.timers["tool.latency"])
	require.Equal(t, []string{"tool", "flight_search", "status", "success"}, rec.tags["tool.latency"])
	require.Equal(t, 1.0, rec.counters["tool.retries"])
	require.Equal(t, 1.0, rec.counters["tool.errors"])
	require.Equal(t, []string{"tool", "flight_search", "reason", "TimeoutError"}, rec.tags["tool.errors"])
	require.Equal(t, 1.0, rec.counters["tool.cache.hit"])
}

func TestInstrumentsBreakerMetrics(t *testing.T) {
	rec := newCaptureMetrics()
	ins := telemetry.NewInstruments(rec)

	ins.IncBreakerOpen("weather")
	ins.SetBreakerState("weather", 2)

	require.Equal(t, 1.0, rec.counters["breaker.open"])
	require.Equal(t, 2.0, rec.gauges["breaker.state"])
	require.Equal(t, []string{"tool", "weather"}, rec.tags["breaker.state"])
}

func TestInstrumentsViolationSeverity(t *testing.T) {
	rec := newCaptureMetrics()
	ins := telemetry.NewInstruments(rec)

	ins.IncViolation("budget_exceeded", true)
	require.Equal(t, []string{"kind", "budget_exceeded", "severity", "blocking"}, rec.tags["verify.violation"])

	ins.IncViolation("uncertain_weather", false)
	require.Equal(t, []string{"kind", "uncertain_weather", "severity", "advisory"}, rec.tags["verify.violation"])
	require.Equal(t, 2.0, rec.counters["verify.violation"])
}

func TestInstrumentsVerifierCounters(t *testing.T) {
	rec := newCaptureMetrics()
	ins := telemetry.NewInstruments(rec)

	ins.IncWeatherBlocking()
	ins.IncWeatherAdvisory()
	ins.IncFeasibilityViolation("venue_closed")
	ins.IncPrefViolation("kid_friendly")

	require.Equal(t, 1.0, rec.counters["verify.weather.blocking"])
	require.Equal(t, 1.0, rec.counters["verify.weather.advisory"])
	require.Equal(t, 1.0, rec.counters["verify.feasibility"])
	require.Equal(t, []string{"reason", "venue_closed"}, rec.tags["verify.feasibility"])
	require.Equal(t, 1.0, rec.counters["verify.preference"])
	require.Equal(t, []string{"pref", "kid_friendly"}, rec.tags["verify.preference"])
}

func TestInstrumentsRepairAndSynth(t *testing.T) {
	rec := newCaptureMetrics()
	ins := telemetry.NewInstruments(rec)

	ins.IncRepairAttempt()
	ins.IncRepairSuccess()
	ins.ObserveRepairCycles(2)
	ins.ObserveRepairMoves(3)
	ins.ObserveReuseRatio(0.8)
	ins.ObserveBudgetDelta(-1500)
	ins.ObserveSynthesisLatency(40 * time.Millisecond)
	ins.ObserveCitationCoverage(0.97)

	require.Equal(t, 1.0, rec.counters["repair.attempt"])
	require.Equal(t, 1.0, rec.counters["repair.success"])
	require.Equal(t, 2.0, rec.gauges["repair.cycles"])
	require.Equal(t, 3.0, rec.gauges["repair.moves"])
	require.Equal(t, 0.8, rec.gauges["repair.reuse_ratio"])
	require.Equal(t, -1500.0, rec.gauges["verify.budget.delta"])
	require.Equal(t, 40*time.Millisecond, rec.timers["synth.duration"])
	require.Equal(t, 0.97, rec.gauges["synth.citation_coverage"])
}

func TestInstrumentsNilMetrics(_ *testing.T) {
	ins := telemetry.NewInstruments(nil)
	ins.ObserveToolLatency("flight_search", "success", time.Millisecond)
	ins.IncRepairAttempt()
}
