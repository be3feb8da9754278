// Command tripsmith-eval replays the golden planning scenarios against the
// in-process pipeline with fixture tools and reports per-scenario outcomes:
// terminal status, violations, citation coverage and latency against the
// configured budgets. The process exits non-zero when any golden expectation
// no longer holds.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"goa.design/clue/log"

	"github.com/tripsmith/tripsmith/features/knowledge/static"
	artifactmem "github.com/tripsmith/tripsmith/runtime/artifact/inmem"
	"github.com/tripsmith/tripsmith/runtime/pipeline"
	"github.com/tripsmith/tripsmith/runtime/planner"
	"github.com/tripsmith/tripsmith/runtime/run"
	runmem "github.com/tripsmith/tripsmith/runtime/run/inmem"
	"github.com/tripsmith/tripsmith/runtime/stream"
	"github.com/tripsmith/tripsmith/runtime/telemetry"
	"github.com/tripsmith/tripsmith/runtime/toolexec"
	"github.com/tripsmith/tripsmith/runtime/tools"
	"github.com/tripsmith/tripsmith/runtime/verify"
	"github.com/tripsmith/tripsmith/settings"
	"github.com/tripsmith/tripsmith/travel"
)

func main() {
	var (
		settingsF = flag.String("settings", "", "Path to a YAML settings file (defaults apply when empty)")
		dbgF      = flag.Bool("debug", false, "Enable debug logs")
	)
	flag.Parse()

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if *dbgF {
		ctx = log.Context(ctx, log.WithDebug())
		log.Debugf(ctx, "debug logs enabled")
	}

	cfg, err := settings.Load(*settingsF)
	if err != nil {
		log.Fatalf(ctx, err, "load settings")
	}
	log.Print(ctx, log.KV{K: "msg", V: "eval started"},
		log.KV{K: "seed", V: cfg.EvalRNGSeed},
		log.KV{K: "ttfe_budget_ms", V: cfg.TTFEBudgetMS},
		log.KV{K: "e2e_p50_budget_s", V: cfg.E2EP50BudgetS})

	reports := []report{
		happyPathCitedItinerary(ctx, cfg),
		budgetViolationSurvivesRepair(ctx, cfg),
		rainyDayOutdoorSlotReplaced(ctx, cfg),
		breakerShortCircuits(ctx, cfg),
		warmCacheServesSecondRun(ctx, cfg),
		overBudgetLodgingDowngraded(ctx, cfg),
	}

	regressions := 0
	for _, r := range reports {
		verdict := "PASS"
		if len(r.failures) > 0 {
			verdict = "FAIL"
			regressions++
		}
		fmt.Printf("%-4s %-38s status=%-9s violations=%d coverage=%.2f ttfe=%s e2e=%s\n",
			verdict, r.name, r.status, r.violations, r.coverage,
			r.ttfe.Round(time.Microsecond), r.elapsed.Round(time.Millisecond))
		for _, f := range r.failures {
			fmt.Printf("     - %s\n", f)
		}
	}
	fmt.Printf("%d/%d scenarios passed\n", len(reports)-regressions, len(reports))

	if regressions > 0 {
		log.Errorf(ctx, errors.New("golden regression"), "%d scenario(s) failed", regressions)
		os.Exit(1)
	}
	log.Print(ctx, log.KV{K: "msg", V: "eval finished"}, log.KV{K: "scenarios", V: len(reports)})
}

// report is one scenario's summary line plus its golden check failures.
type report struct {
	name       string
	status     string
	violations int
	coverage   float64
	ttfe       time.Duration
	elapsed    time.Duration
	failures   []string
}

// checker accumulates golden check failures.
type checker struct {
	failures []string
}

func (c *checker) checkf(ok bool, format string, args ...any) {
	if !ok {
		c.failures = append(c.failures, fmt.Sprintf(format, args...))
	}
}

// harness wires a pipeline against fixture tools, in-memory stores, a timing
// sink and a recording metrics backend.
type harness struct {
	fixtures  *evalTools
	sink      *timingSink
	metrics   *metricsRecorder
	runs      *runmem.Store
	artifacts *artifactmem.Store
	pipe      *pipeline.Pipeline
}

func newHarness(cfg settings.Settings, fixtures *evalTools, know pipeline.Knowledge) (*harness, error) {
	reg := tools.NewRegistry()
	if err := fixtures.register(reg); err != nil {
		return nil, err
	}
	h := &harness{
		fixtures:  fixtures,
		sink:      newTimingSink(),
		metrics:   newMetricsRecorder(),
		runs:      runmem.New(),
		artifacts: artifactmem.New(),
	}
	opts := []pipeline.Option{
		pipeline.WithSettings(cfg),
		pipeline.WithTools(reg),
		pipeline.WithRunStore(h.runs),
		pipeline.WithArtifacts(h.artifacts),
		pipeline.WithSink(h.sink),
		pipeline.WithInstruments(telemetry.NewInstruments(h.metrics)),
	}
	if know != nil {
		opts = append(opts, pipeline.WithKnowledge(know))
	}
	h.pipe = pipeline.New(opts...)
	return h, nil
}

// run executes one planning run and returns the state with the time to first
// streamed event.
func (h *harness) run(ctx context.Context, req pipeline.Request) (*travel.RunState, time.Duration, error) {
	started := time.Now()
	state, err := h.pipe.Run(ctx, req)
	ttfe := time.Duration(0)
	if state != nil {
		if first, ok := h.sink.firstEvent(state.TraceID); ok {
			ttfe = first.Sub(started)
		}
	}
	return state, ttfe, err
}

// checkLatency applies the configured latency budgets to one run.
func checkLatency(c *checker, cfg settings.Settings, ttfe, elapsed time.Duration) {
	ttfeBudget := time.Duration(cfg.TTFEBudgetMS) * time.Millisecond
	e2eBudget := time.Duration(cfg.E2EP50BudgetS) * time.Second
	c.checkf(ttfe <= ttfeBudget, "ttfe %s exceeds budget %s", ttfe, ttfeBudget)
	c.checkf(elapsed <= e2eBudget, "e2e %s exceeds p50 budget %s", elapsed, e2eBudget)
}

func parisIntent(budgetCents int64) travel.Intent {
	return travel.Intent{
		City: "Paris",
		Window: travel.DateWindow{
			Start: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC),
			Zone:  "Europe/Paris",
		},
		BudgetCents: budgetCents,
		Airports:    []string{"CDG"},
		Prefs:       travel.Preferences{Themes: []string{"art"}},
	}
}

func reportFor(name string, state *travel.RunState, h *harness, ttfe, elapsed time.Duration, c *checker) report {
	r := report{
		name:     name,
		status:   "error",
		ttfe:     ttfe,
		elapsed:  elapsed,
		failures: c.failures,
	}
	if state != nil {
		r.violations = len(state.Violations)
		if state.Done {
			r.status = "completed"
		}
	}
	if h != nil {
		r.coverage = h.metrics.value("synth.citation_coverage")
	}
	return r
}

// happyPathCitedItinerary: a comfortable budget yields a violation-free,
// fully cited five-day itinerary with one tool call per flight and booking,
// one forecast per day and a cached-for-later FX rate.
func happyPathCitedItinerary(ctx context.Context, cfg settings.Settings) report {
	c := &checker{}
	fixtures := newEvalTools(cfg.EvalRNGSeed, 52_000, 24_000)
	h, err := newHarness(cfg, fixtures, static.New())
	if err != nil {
		c.checkf(false, "harness: %v", err)
		return reportFor("happy_path_cited_itinerary", nil, nil, 0, 0, c)
	}

	started := time.Now()
	state, ttfe, err := h.run(ctx, pipeline.Request{OrgID: "org-eval", UserID: "user-1", Intent: parisIntent(250_000)})
	elapsed := time.Since(started)

	c.checkf(err == nil, "run failed: %v", err)
	if err != nil {
		return reportFor("happy_path_cited_itinerary", state, h, ttfe, elapsed, c)
	}
	c.checkf(state.Done, "run not done")
	c.checkf(len(state.Violations) == 0, "want no violations, got %d", len(state.Violations))
	c.checkf(state.Plan.Variant == planner.VariantCostConscious, "want variant %s, got %s", planner.VariantCostConscious, state.Plan.Variant)

	it := state.Itinerary
	c.checkf(it != nil, "no itinerary")
	if it != nil {
		c.checkf(it.ID == state.TraceID, "itinerary id %q != trace id %q", it.ID, state.TraceID)
		c.checkf(len(it.Days) == 5, "want 5 days, got %d", len(it.Days))
		c.checkf(it.Costs.FlightsCents == 52_000, "want flights 52000, got %d", it.Costs.FlightsCents)
		c.checkf(it.Costs.LodgingCents == 96_000, "want lodging 96000, got %d", it.Costs.LodgingCents)
		c.checkf(it.Costs.TotalCents <= 275_000, "total %d exceeds slippage ceiling", it.Costs.TotalCents)
		c.checkf(strings.Contains(it.Costs.Disclaimer, "1.08"), "fx rate missing from disclaimer %q", it.Costs.Disclaimer)
		c.checkf(len(it.Citations) == 16, "want one citation per flight, booking, visit and forecast day, got %d", len(it.Citations))
		c.checkf(len(it.Decisions) >= 1, "no decisions recorded")
		if len(it.Decisions) >= 1 {
			d := it.Decisions[0]
			c.checkf(d.Stage == "selector", "decision stage %q", d.Stage)
			c.checkf(d.Selected == planner.VariantCostConscious, "decision selected %q", d.Selected)
			c.checkf(sameElements(d.Alternatives, []string{planner.VariantConvenience, planner.VariantExperience}),
				"decision alternatives %v", d.Alternatives)
		}
	}
	c.checkf(h.metrics.value("synth.citation_coverage") == 1.0, "citation coverage %.3f below 1.0",
		h.metrics.value("synth.citation_coverage"))
	c.checkf(state.Plan.Assumptions.FXRate == 1.08, "fetched fx rate %v did not reach the plan", state.Plan.Assumptions.FXRate)

	c.checkf(state.ToolCalls[pipeline.ToolFlights] == 1, "flight calls %d", state.ToolCalls[pipeline.ToolFlights])
	c.checkf(state.ToolCalls[pipeline.ToolLodging] == 1, "lodging calls %d", state.ToolCalls[pipeline.ToolLodging])
	c.checkf(state.ToolCalls[pipeline.ToolWeather] == 5, "weather calls %d", state.ToolCalls[pipeline.ToolWeather])
	c.checkf(state.ToolCalls[pipeline.ToolFX] == 1, "fx calls %d", state.ToolCalls[pipeline.ToolFX])

	record, rerr := h.runs.Get(ctx, state.TraceID)
	c.checkf(rerr == nil, "run record: %v", rerr)
	c.checkf(record.Status == run.StatusCompleted, "run record status %q", record.Status)
	_, aerr := h.artifacts.Get(ctx, state.TraceID)
	c.checkf(aerr == nil, "archived itinerary: %v", aerr)

	c.checkf(h.sink.countByRun(state.TraceID) == 16, "want 16 node events, got %d", h.sink.countByRun(state.TraceID))
	if last := h.sink.lastByRun(state.TraceID); last != nil {
		c.checkf(last.Data.Node == pipeline.NodeResponder, "last event node %q", last.Data.Node)
		c.checkf(strings.Contains(last.Data.Message, "itinerary ready"), "last event message %q", last.Data.Message)
	}
	checkLatency(c, cfg, ttfe, elapsed)
	return reportFor("happy_path_cited_itinerary", state, h, ttfe, elapsed, c)
}

// budgetViolationSurvivesRepair: a budget far below the floor exhausts the
// bounded repair loop and the blocking budget violation stands.
func budgetViolationSurvivesRepair(ctx context.Context, cfg settings.Settings) report {
	c := &checker{}
	cfg.RepairRecheck = true
	fixtures := newEvalTools(cfg.EvalRNGSeed, 18_000, 9_000)
	h, err := newHarness(cfg, fixtures, static.New())
	if err != nil {
		c.checkf(false, "harness: %v", err)
		return reportFor("budget_violation_survives_repair", nil, nil, 0, 0, c)
	}

	started := time.Now()
	state, ttfe, err := h.run(ctx, pipeline.Request{OrgID: "org-eval", UserID: "user-1", Intent: parisIntent(50_000)})
	elapsed := time.Since(started)

	c.checkf(err == nil, "run failed: %v", err)
	if err != nil {
		return reportFor("budget_violation_survives_repair", state, h, ttfe, elapsed, c)
	}
	c.checkf(state.Done, "a run with unresolved violations still completes")
	c.checkf(state.Repair.CyclesRun == 3, "want 3 repair cycles, got %d", state.Repair.CyclesRun)
	c.checkf(state.Repair.MovesApplied == 3, "want 3 repair moves, got %d", state.Repair.MovesApplied)
	c.checkf(len(state.Violations) == 1, "want 1 violation, got %d", len(state.Violations))
	if len(state.Violations) == 1 {
		v := state.Violations[0]
		c.checkf(v.Kind == travel.ViolationBudget, "violation kind %q", v.Kind)
		c.checkf(v.Blocking, "budget violation must block")
		over, ok := v.Details["over_by_usd_cents"].(int64)
		c.checkf(ok && over > 0, "over_by_usd_cents detail %v", v.Details["over_by_usd_cents"])
	}
	lodgingRef := ""
	if len(state.Plan.Days) > 0 {
		for _, slot := range state.Plan.Days[0].Slots {
			if slot.Kind() == travel.KindLodging {
				lodgingRef = slot.Selected().OptionRef
			}
		}
	}
	c.checkf(lodgingRef == "lodging:cost-conscious:tier-down:tier-down:tier-down", "lodging ref %q", lodgingRef)
	c.checkf(containsMessage(state.Messages, "change_hotel_tier"), "no tier-change move in messages")
	c.checkf(containsMessage(state.Messages, "unresolved blocking"), "no unresolved-blocking note in messages")
	c.checkf(h.metrics.value("repair.attempt") == 1.0, "repair attempts %.0f", h.metrics.value("repair.attempt"))
	c.checkf(h.metrics.value("repair.success") == 0.0, "repair successes %.0f", h.metrics.value("repair.success"))
	c.checkf(h.metrics.value("repair.cycles") == 3.0, "repair cycles gauge %.0f", h.metrics.value("repair.cycles"))

	record, rerr := h.runs.Get(ctx, state.TraceID)
	c.checkf(rerr == nil && record.Status == run.StatusCompleted, "run record %q: %v", record.Status, rerr)
	checkLatency(c, cfg, ttfe, elapsed)
	return reportFor("budget_violation_survives_repair", state, h, ttfe, elapsed, c)
}

// rainyDayOutdoorSlotReplaced: a washout forecast swaps the outdoor park for
// an indoor stand-in while the indoor-unknown market keeps its advisory.
func rainyDayOutdoorSlotReplaced(ctx context.Context, cfg settings.Settings) report {
	c := &checker{}
	cfg.RepairRecheck = true
	fixtures := newEvalTools(cfg.EvalRNGSeed, 60_000, 40_000)
	fixtures.weatherByDate = func(date string) (float64, float64) {
		if date == "2025-06-07" {
			return 0.80, 12.0
		}
		return 0.10, 8.0
	}
	parisGeo := travel.GeoPoint{Lat: 48.8606, Lng: 2.3376}
	overrides := map[string]travel.Attraction{
		"attr:experience:d1:morning": {
			Name:         "Jardin du Luxembourg",
			Category:     "park",
			Geo:          parisGeo,
			OpeningHours: dailyHours(travel.Clock(8, 0), travel.Clock(21, 30)),
			Indoor:       travel.No,
			KidFriendly:  travel.Yes,
		},
		"attr:experience:d1:afternoon": {
			Name:         "Marche des Enfants Rouges",
			Category:     "market",
			Geo:          parisGeo,
			OpeningHours: dailyHours(travel.Clock(9, 0), travel.Clock(22, 0)),
			PriceCents:   1_500,
		},
	}
	h, err := newHarness(cfg, fixtures, overlayCatalog{overrides: overrides, base: static.New()})
	if err != nil {
		c.checkf(false, "harness: %v", err)
		return reportFor("rainy_day_outdoor_slot_replaced", nil, nil, 0, 0, c)
	}

	intent := parisIntent(350_000)
	intent.Window.Start = time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC)
	intent.Window.End = time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	started := time.Now()
	state, ttfe, err := h.run(ctx, pipeline.Request{OrgID: "org-eval", UserID: "user-1", Intent: intent})
	elapsed := time.Since(started)

	c.checkf(err == nil, "run failed: %v", err)
	if err != nil {
		return reportFor("rainy_day_outdoor_slot_replaced", state, h, ttfe, elapsed, c)
	}
	c.checkf(state.Done, "run not done")
	c.checkf(state.Plan.Variant == planner.VariantExperience, "want variant %s, got %s", planner.VariantExperience, state.Plan.Variant)
	c.checkf(state.Repair.MovesApplied == 1, "want 1 repair move, got %d", state.Repair.MovesApplied)
	c.checkf(state.Repair.CyclesRun == 2, "want 2 repair cycles, got %d", state.Repair.CyclesRun)
	c.checkf(len(state.Violations) == 1, "want 1 advisory, got %d violations", len(state.Violations))
	if len(state.Violations) == 1 {
		v := state.Violations[0]
		c.checkf(v.Kind == travel.ViolationWeather, "violation kind %q", v.Kind)
		c.checkf(!v.Blocking, "advisory must not block")
		c.checkf(v.Details["condition"] == verify.ConditionUncertainWeather, "condition detail %v", v.Details["condition"])
	}

	var repaired travel.Choice
	if len(state.Plan.Days) > 1 {
		for _, slot := range state.Plan.Days[1].Slots {
			if strings.HasSuffix(slot.Selected().OptionRef, ":indoor") {
				repaired = slot.Selected()
			}
		}
	}
	c.checkf(repaired.OptionRef == "attr:experience:d1:morning:indoor", "repaired ref %q", repaired.OptionRef)
	c.checkf(repaired.Features.Indoor == travel.Yes, "repaired slot indoor %v", repaired.Features.Indoor)
	c.checkf(repaired.Provenance.Source == travel.SourceRepair, "repaired provenance %q", repaired.Provenance.Source)
	c.checkf(containsMessage(state.Messages, "replace_slot"), "no replace_slot move in messages")
	c.checkf(h.metrics.value("verify.weather.blocking") == 1.0, "weather blocking verdicts %.0f", h.metrics.value("verify.weather.blocking"))
	c.checkf(h.metrics.value("verify.weather.advisory") == 2.0, "want the initial verdict plus the recheck, got %.0f", h.metrics.value("verify.weather.advisory"))
	checkLatency(c, cfg, ttfe, elapsed)
	return reportFor("rainy_day_outdoor_slot_replaced", state, h, ttfe, elapsed, c)
}

// breakerShortCircuits: repeated connection failures trip the breaker and the
// next call short-circuits with a retry-after hint, never reaching the tool.
func breakerShortCircuits(ctx context.Context, cfg settings.Settings) report {
	c := &checker{}
	cfg.BreakerFailureThreshold = 3
	cfg.RetryJitterMinMS = 1
	cfg.RetryJitterMaxMS = 2
	exec := toolexec.New(toolexec.WithSettings(cfg))

	var invocations atomic.Int64
	flaky := func(context.Context, map[string]any) (map[string]any, error) {
		invocations.Add(1)
		return nil, toolexec.NewToolError(toolexec.ErrTypeConnection, "upstream connection reset")
	}
	req := toolexec.Request{
		Tool:  flaky,
		Name:  "flights",
		Args:  map[string]any{"city": "Paris"},
		RunID: "run-breaker",
	}

	started := time.Now()
	for i := 0; i < 3; i++ {
		res := exec.Execute(ctx, req)
		c.checkf(res.Status == toolexec.StatusError, "call %d status %q", i, res.Status)
		c.checkf(res.Retries == 1, "call %d retries %d, connection errors earn exactly one retry", i, res.Retries)
	}
	c.checkf(invocations.Load() == 6, "want 6 invocations before the breaker opens, got %d", invocations.Load())

	res := exec.Execute(ctx, req)
	elapsed := time.Since(started)
	c.checkf(res.Status == toolexec.StatusBreakerOpen, "short-circuit status %q", res.Status)
	c.checkf(res.Error != nil && res.Error.Reason == toolexec.ReasonBreakerOpen, "short-circuit reason %v", res.Error)
	c.checkf(res.Error != nil && res.Error.RetryAfterSeconds > 0, "missing retry-after hint")
	c.checkf(invocations.Load() == 6, "an open breaker must not reach the tool, got %d invocations", invocations.Load())

	status := "completed"
	if len(c.failures) > 0 {
		status = "error"
	}
	return report{name: "breaker_short_circuits", status: status, elapsed: elapsed, failures: c.failures}
}

// warmCacheServesSecondRun: a second identical run reads forecasts and the FX
// rate from the result cache while flight and lodging searches hit upstream
// again.
func warmCacheServesSecondRun(ctx context.Context, cfg settings.Settings) report {
	c := &checker{}
	fixtures := newEvalTools(cfg.EvalRNGSeed, 52_000, 24_000)
	h, err := newHarness(cfg, fixtures, static.New())
	if err != nil {
		c.checkf(false, "harness: %v", err)
		return reportFor("warm_cache_serves_second_run", nil, nil, 0, 0, c)
	}

	started := time.Now()
	first, ttfe, err := h.run(ctx, pipeline.Request{OrgID: "org-eval", UserID: "user-1", Intent: parisIntent(250_000)})
	c.checkf(err == nil, "first run failed: %v", err)
	if err != nil {
		return reportFor("warm_cache_serves_second_run", first, h, ttfe, time.Since(started), c)
	}
	c.checkf(fixtures.weatherCalls.Load() == 5, "first run weather invocations %d", fixtures.weatherCalls.Load())

	second, _, err := h.run(ctx, pipeline.Request{OrgID: "org-eval", UserID: "user-1", Intent: parisIntent(250_000)})
	elapsed := time.Since(started)
	c.checkf(err == nil, "second run failed: %v", err)
	if err != nil {
		return reportFor("warm_cache_serves_second_run", second, h, ttfe, elapsed, c)
	}
	c.checkf(first.TraceID != second.TraceID, "runs share a trace id")

	c.checkf(fixtures.weatherCalls.Load() == 5, "forecasts must come from cache, got %d invocations", fixtures.weatherCalls.Load())
	c.checkf(fixtures.fxCalls.Load() == 1, "fx must come from cache, got %d invocations", fixtures.fxCalls.Load())
	c.checkf(fixtures.flightCalls.Load() == 2, "flight searches always hit upstream, got %d", fixtures.flightCalls.Load())
	c.checkf(fixtures.lodgingCalls.Load() == 2, "stay searches always hit upstream, got %d", fixtures.lodgingCalls.Load())
	c.checkf(second.ToolCalls[pipeline.ToolWeather] == 5, "cache hits still count as calls, got %d", second.ToolCalls[pipeline.ToolWeather])

	for _, day := range second.Plan.Days {
		key := travel.DateKey(day.Date)
		forecast, ok := second.Weather[key]
		c.checkf(ok, "no forecast for %s", key)
		if ok {
			c.checkf(forecast.Provenance.CacheHit == travel.Yes, "forecast %s not marked cached", key)
			c.checkf(forecast.PrecipProb == first.Weather[key].PrecipProb, "forecast %s drifted between runs", key)
		}
	}
	checkLatency(c, cfg, ttfe, elapsed)
	return reportFor("warm_cache_serves_second_run", second, h, ttfe, elapsed, c)
}

// overBudgetLodgingDowngraded: premium lodging blows the budget, one tier
// downgrade clears it, and the downgraded booking presents generically
// because no fetched record backs it.
func overBudgetLodgingDowngraded(ctx context.Context, cfg settings.Settings) report {
	c := &checker{}
	fixtures := newEvalTools(cfg.EvalRNGSeed, 52_000, 80_000)
	h, err := newHarness(cfg, fixtures, nil)
	if err != nil {
		c.checkf(false, "harness: %v", err)
		return reportFor("over_budget_lodging_downgraded", nil, nil, 0, 0, c)
	}

	started := time.Now()
	state, ttfe, err := h.run(ctx, pipeline.Request{OrgID: "org-eval", UserID: "user-1", Intent: parisIntent(345_000)})
	elapsed := time.Since(started)

	c.checkf(err == nil, "run failed: %v", err)
	if err != nil {
		return reportFor("over_budget_lodging_downgraded", state, h, ttfe, elapsed, c)
	}
	c.checkf(state.Done, "run not done")
	c.checkf(state.Plan.Variant == planner.VariantExperience, "want variant %s, got %s", planner.VariantExperience, state.Plan.Variant)
	c.checkf(state.Repair.CyclesRun == 1, "want 1 repair cycle, got %d", state.Repair.CyclesRun)
	c.checkf(state.Repair.MovesApplied == 1, "want 1 repair move, got %d", state.Repair.MovesApplied)
	c.checkf(math.Abs(state.Repair.ReuseRatio-15.0/19.0) < 1e-9, "reuse ratio %.4f, only the four nightly lodging slots change", state.Repair.ReuseRatio)
	c.checkf(len(state.Violations) == 0, "want no violations, got %d", len(state.Violations))
	c.checkf(containsMessage(state.Messages, "change_hotel_tier"), "no tier-change move in messages")

	for day, dp := range state.Plan.Days {
		for _, slot := range dp.Slots {
			if slot.Kind() != travel.KindLodging {
				continue
			}
			choice := slot.Selected()
			c.checkf(choice.OptionRef == "lodging:experience:tier-down", "day %d lodging ref %q", day, choice.OptionRef)
			c.checkf(choice.Features.CostCents == 64_000, "day %d lodging cost %d, downgrade pays 80%% of the fetched rate", day, choice.Features.CostCents)
		}
	}
	c.checkf(state.Repair.Snapshot != nil, "no pre-repair snapshot")

	it := state.Itinerary
	c.checkf(it != nil, "no itinerary")
	if it != nil {
		c.checkf(it.Costs.LodgingCents == 256_000, "want lodging 256000, got %d", it.Costs.LodgingCents)
		c.checkf(len(it.Decisions) == 2, "want selector and repair decisions, got %d", len(it.Decisions))
		if len(it.Decisions) == 2 {
			c.checkf(it.Decisions[1].Stage == "repair", "second decision stage %q", it.Decisions[1].Stage)
		}
		found := false
		for _, act := range it.Days[0].Activities {
			if act.Kind == travel.KindLodging {
				found = true
				c.checkf(act.Name == "Accommodation", "unbacked booking presents as %q", act.Name)
			}
		}
		c.checkf(found, "no lodging activity on day 0")
	}
	checkLatency(c, cfg, ttfe, elapsed)
	return reportFor("over_budget_lodging_downgraded", state, h, ttfe, elapsed, c)
}

// evalTools implements the travel tools with canned data. The seed draws only
// inert presentation details (carrier, flight number, hotel name) so golden
// outcomes never depend on it.
type evalTools struct {
	flightPrice   int64
	lodgingNight  int64
	weatherByDate func(date string) (precip, wind float64)

	airline      string
	flightNumber string
	hotel        string

	flightCalls  atomic.Int64
	lodgingCalls atomic.Int64
	weatherCalls atomic.Int64
	fxCalls      atomic.Int64
}

func newEvalTools(seed, flightPrice, lodgingNight int64) *evalTools {
	rng := rand.New(rand.NewSource(seed))
	airlines := []string{"Air France", "KLM", "Lufthansa", "Iberia"}
	hotels := []string{"Hotel du Marais", "Hotel Lutece", "Maison Saint-Germain"}
	return &evalTools{
		flightPrice:  flightPrice,
		lodgingNight: lodgingNight,
		airline:      airlines[rng.Intn(len(airlines))],
		flightNumber: fmt.Sprintf("TS %d", 1000+rng.Intn(9000)),
		hotel:        hotels[rng.Intn(len(hotels))],
	}
}

func (f *evalTools) register(reg *tools.Registry) error {
	specs := []tools.Tool{
		{Name: pipeline.ToolFlights, Description: "arrival flight search", Call: f.flights},
		{Name: pipeline.ToolLodging, Description: "stay search", Call: f.lodging},
		{Name: pipeline.ToolWeather, Description: "daily forecast", Call: f.weather},
		{Name: pipeline.ToolFX, Description: "currency rate", Call: f.fx},
	}
	for _, spec := range specs {
		if err := reg.Register(spec); err != nil {
			return fmt.Errorf("register %s: %w", spec.Name, err)
		}
	}
	return nil
}

func (f *evalTools) flights(_ context.Context, args map[string]any) (map[string]any, error) {
	f.flightCalls.Add(1)
	day, err := time.Parse("2006-01-02", stringArg(args, "start"))
	if err != nil {
		return nil, toolexec.NewToolError(toolexec.ErrTypeValidation, "bad start date: %v", err)
	}
	depart := day.Add(8*time.Hour + 30*time.Minute)
	return map[string]any{
		"airline":     f.airline,
		"number":      f.flightNumber,
		"origin":      "LHR",
		"destination": stringArg(args, "airport"),
		"depart":      depart,
		"arrive":      depart.Add(90 * time.Minute),
		"overnight":   false,
		"price_cents": f.flightPrice,
	}, nil
}

func (f *evalTools) lodging(_ context.Context, args map[string]any) (map[string]any, error) {
	f.lodgingCalls.Add(1)
	return map[string]any{
		"name":                  f.hotel,
		"tier":                  stringArg(args, "tier"),
		"price_per_night_cents": f.lodgingNight,
		"lat":                   48.8590,
		"lng":                   2.3620,
	}, nil
}

func (f *evalTools) weather(_ context.Context, args map[string]any) (map[string]any, error) {
	f.weatherCalls.Add(1)
	precip, wind := 0.10, 8.0
	if f.weatherByDate != nil {
		precip, wind = f.weatherByDate(stringArg(args, "date"))
	}
	return map[string]any{"precip_prob": precip, "wind_kmh": wind, "temp_c": 21.5}, nil
}

func (f *evalTools) fx(context.Context, map[string]any) (map[string]any, error) {
	f.fxCalls.Add(1)
	return map[string]any{"base": "EUR", "quote": "USD", "rate": 1.08}, nil
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// overlayCatalog consults scenario overrides before the curated catalog.
type overlayCatalog struct {
	overrides map[string]travel.Attraction
	base      pipeline.Knowledge
}

func (c overlayCatalog) Venue(ctx context.Context, city, ref string, themes []string) (travel.Attraction, bool) {
	if venue, ok := c.overrides[ref]; ok {
		return venue, true
	}
	if c.base == nil {
		return travel.Attraction{}, false
	}
	return c.base.Venue(ctx, city, ref, themes)
}

func dailyHours(from, to int) map[int][]travel.TimeWindow {
	hours := make(map[int][]travel.TimeWindow, 7)
	for weekday := 0; weekday < 7; weekday++ {
		hours[weekday] = []travel.TimeWindow{{StartMinute: from, EndMinute: to}}
	}
	return hours
}

// timingSink records per-run event counts, first-event times and the last
// node event, so scenarios can assert on stage transitions and measure time
// to first event.
type timingSink struct {
	mu     sync.Mutex
	firsts map[string]time.Time
	counts map[string]int
	lasts  map[string]*stream.NodeEvent
}

func newTimingSink() *timingSink {
	return &timingSink{
		firsts: make(map[string]time.Time),
		counts: make(map[string]int),
		lasts:  make(map[string]*stream.NodeEvent),
	}
}

func (s *timingSink) Append(_ context.Context, event stream.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	runID := event.RunID()
	if _, ok := s.firsts[runID]; !ok {
		s.firsts[runID] = time.Now()
	}
	s.counts[runID]++
	if ne, ok := event.(*stream.NodeEvent); ok {
		s.lasts[runID] = ne
	}
	return nil
}

func (s *timingSink) Close(context.Context) error { return nil }

func (s *timingSink) firstEvent(runID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	first, ok := s.firsts[runID]
	return first, ok
}

func (s *timingSink) countByRun(runID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[runID]
}

func (s *timingSink) lastByRun(runID string) *stream.NodeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lasts[runID]
}

// metricsRecorder remembers emissions so scenario checks can read counters
// and gauges back. The fetch stage drives the executor from several
// goroutines, so access is guarded.
type metricsRecorder struct {
	mu     sync.Mutex
	values map[string]float64
}

func newMetricsRecorder() *metricsRecorder {
	return &metricsRecorder{values: make(map[string]float64)}
}

func (m *metricsRecorder) IncCounter(name string, value float64, tags ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[name] += value
}

func (m *metricsRecorder) RecordTimer(name string, duration time.Duration, tags ...string) {}

func (m *metricsRecorder) RecordGauge(name string, value float64, tags ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[name] = value
}

func (m *metricsRecorder) value(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[name]
}

func containsMessage(msgs []string, substr string) bool {
	for _, m := range msgs {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func sameElements(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	seen := make(map[string]int, len(want))
	for _, w := range want {
		seen[w]++
	}
	for _, g := range got {
		if seen[g] == 0 {
			return false
		}
		seen[g]--
	}
	return true
}
