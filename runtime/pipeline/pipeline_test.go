package pipeline_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

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

// captureSink records node events so tests can assert on stage transitions.
type captureSink struct {
	mu     sync.Mutex
	events []*stream.NodeEvent
}

func (s *captureSink) Append(_ context.Context, event stream.Event) error {
	ne, ok := event.(*stream.NodeEvent)
	if !ok {
		return fmt.Errorf("unexpected event kind %q", event.Kind())
	}
	s.mu.Lock()
	s.events = append(s.events, ne)
	s.mu.Unlock()
	return nil
}

func (s *captureSink) Close(context.Context) error { return nil }

func (s *captureSink) byRun(runID string) []*stream.NodeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*stream.NodeEvent
	for _, e := range s.events {
		if e.RunID() == runID {
			out = append(out, e)
		}
	}
	return out
}

// captureMetrics records emissions under a lock: the fetch stage drives the
// executor from several goroutines.
type captureMetrics struct {
	mu       sync.Mutex
	counters map[string]float64
}

func newCaptureMetrics() *captureMetrics {
	return &captureMetrics{counters: make(map[string]float64)}
}

func (c *captureMetrics) IncCounter(name string, value float64, tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name] += value
}

func (c *captureMetrics) RecordTimer(name string, duration time.Duration, tags ...string) {}

func (c *captureMetrics) RecordGauge(name string, value float64, tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name] = value
}

func (c *captureMetrics) counter(name string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[name]
}

// catalogStub serves curated venues by exact option ref.
type catalogStub struct {
	venues map[string]travel.Attraction
}

func (c catalogStub) Venue(_ context.Context, _ string, ref string, _ []string) (travel.Attraction, bool) {
	venue, ok := c.venues[ref]
	return venue, ok
}

// fixtureTools implements the five travel tools with canned data and atomic
// invocation counters, so tests can tell cache hits from real calls.
type fixtureTools struct {
	flightPrice   int64
	lodgingNight  int64
	weatherByDate func(date string) (precip, wind float64)
	flightErr     error

	flightCalls  atomic.Int64
	lodgingCalls atomic.Int64
	weatherCalls atomic.Int64
	fxCalls      atomic.Int64
}

func (f *fixtureTools) register(t *testing.T, reg *tools.Registry) {
	t.Helper()
	require.NoError(t, reg.Register(tools.Tool{Name: pipeline.ToolFlights, Description: "arrival flight search", Call: f.flights}))
	require.NoError(t, reg.Register(tools.Tool{Name: pipeline.ToolLodging, Description: "stay search", Call: f.lodging}))
	require.NoError(t, reg.Register(tools.Tool{Name: pipeline.ToolWeather, Description: "daily forecast", Call: f.weather}))
	require.NoError(t, reg.Register(tools.Tool{Name: pipeline.ToolFX, Description: "currency rate", Call: f.fx}))
}

func (f *fixtureTools) flights(_ context.Context, args map[string]any) (map[string]any, error) {
	f.flightCalls.Add(1)
	if f.flightErr != nil {
		return nil, f.flightErr
	}
	day, err := time.Parse("2006-01-02", stringArg(args, "start"))
	if err != nil {
		return nil, toolexec.NewToolError(toolexec.ErrTypeValidation, "bad start date: %v", err)
	}
	depart := day.Add(8*time.Hour + 30*time.Minute)
	return map[string]any{
		"airline":     "Air France",
		"number":      "AF 1381",
		"origin":      "LHR",
		"destination": stringArg(args, "airport"),
		"depart":      depart,
		"arrive":      depart.Add(90 * time.Minute),
		"overnight":   false,
		"price_cents": f.flightPrice,
	}, nil
}

func (f *fixtureTools) lodging(_ context.Context, args map[string]any) (map[string]any, error) {
	f.lodgingCalls.Add(1)
	return map[string]any{
		"name":                  "Hotel du Marais",
		"tier":                  stringArg(args, "tier"),
		"price_per_night_cents": f.lodgingNight,
		"lat":                   48.8590,
		"lng":                   2.3620,
	}, nil
}

func (f *fixtureTools) weather(_ context.Context, args map[string]any) (map[string]any, error) {
	f.weatherCalls.Add(1)
	precip, wind := 0.10, 8.0
	if f.weatherByDate != nil {
		precip, wind = f.weatherByDate(stringArg(args, "date"))
	}
	return map[string]any{"precip_prob": precip, "wind_kmh": wind, "temp_c": 21.5}, nil
}

func (f *fixtureTools) fx(context.Context, map[string]any) (map[string]any, error) {
	f.fxCalls.Add(1)
	return map[string]any{"base": "EUR", "quote": "USD", "rate": 1.08}, nil
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// pipelineFixture wires a pipeline against fixture tools, capture sinks and
// in-memory stores.
type pipelineFixture struct {
	fixtures  *fixtureTools
	sink      *captureSink
	metrics   *captureMetrics
	runs      *runmem.Store
	artifacts *artifactmem.Store
	pipeline  *pipeline.Pipeline
}

func newPipelineFixture(t *testing.T, cfg settings.Settings, fixtures *fixtureTools, venues map[string]travel.Attraction) *pipelineFixture {
	t.Helper()
	reg := tools.NewRegistry()
	fixtures.register(t, reg)

	f := &pipelineFixture{
		fixtures:  fixtures,
		sink:      &captureSink{},
		metrics:   newCaptureMetrics(),
		runs:      runmem.New(),
		artifacts: artifactmem.New(),
	}
	opts := []pipeline.Option{
		pipeline.WithSettings(cfg),
		pipeline.WithTools(reg),
		pipeline.WithRunStore(f.runs),
		pipeline.WithArtifacts(f.artifacts),
		pipeline.WithSink(f.sink),
		pipeline.WithInstruments(telemetry.NewInstruments(f.metrics)),
	}
	if venues != nil {
		opts = append(opts, pipeline.WithKnowledge(catalogStub{venues: venues}))
	}
	f.pipeline = pipeline.New(opts...)
	return f
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

var parisGeo = travel.GeoPoint{Lat: 48.8606, Lng: 2.3376}

func openDaily(from, to int) map[int][]travel.TimeWindow {
	hours := make(map[int][]travel.TimeWindow, 7)
	for weekday := 0; weekday < 7; weekday++ {
		hours[weekday] = []travel.TimeWindow{{StartMinute: from, EndMinute: to}}
	}
	return hours
}

func museum(name string, priceCents int64) travel.Attraction {
	return travel.Attraction{
		Name:         name,
		Category:     "museum",
		Geo:          parisGeo,
		OpeningHours: openDaily(travel.Clock(9, 0), travel.Clock(22, 0)),
		Indoor:       travel.Yes,
		KidFriendly:  travel.Yes,
		PriceCents:   priceCents,
	}
}

// artCatalog covers every attraction ref a variant can mint over the trip, so
// scenario runs resolve venues deterministically.
func artCatalog(variant string, days int) map[string]travel.Attraction {
	names := []string{
		"Louvre Museum",
		"Musee d'Orsay",
		"Musee Rodin",
		"Musee de l'Orangerie",
		"Centre Pompidou",
		"Musee Marmottan Monet",
	}
	venues := make(map[string]travel.Attraction)
	i := 0
	for day := 0; day < days; day++ {
		for _, bucket := range []string{"morning", "afternoon", "evening"} {
			ref := fmt.Sprintf("attr:%s:d%d:%s", variant, day, bucket)
			venues[ref] = museum(names[i%len(names)], 1_600+int64(i%6)*200)
			i++
		}
	}
	return venues
}

func containsMessage(msgs []string, substr string) bool {
	for _, m := range msgs {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func TestRunProducesCitedItinerary(t *testing.T) {
	fixtures := &fixtureTools{flightPrice: 52_000, lodgingNight: 24_000}
	f := newPipelineFixture(t, settings.Default(), fixtures, artCatalog(planner.VariantCostConscious, 5))

	state, err := f.pipeline.Run(context.Background(), pipeline.Request{
		OrgID:  "org-acme",
		UserID: "user-1",
		Intent: parisIntent(250_000),
	})
	require.NoError(t, err)
	require.True(t, state.Done)
	require.Len(t, state.TraceID, 36, "run id defaults to a fresh UUID")
	require.Equal(t, planner.VariantCostConscious, state.Plan.Variant)
	require.Empty(t, state.Violations)

	it := state.Itinerary
	require.NotNil(t, it)
	require.Equal(t, state.TraceID, it.ID)
	require.Len(t, it.Days, 5)
	require.Equal(t, int64(52_000), it.Costs.FlightsCents)
	require.Equal(t, int64(96_000), it.Costs.LodgingCents)
	require.LessOrEqual(t, it.Costs.TotalCents, int64(275_000))
	require.Contains(t, it.Costs.Disclaimer, "1.08", "fetched FX rate reaches the disclaimer")
	require.Equal(t, 1.08, state.Plan.Assumptions.FXRate)

	// One citation per flight, booking, venue visit and forecast day.
	require.Len(t, it.Citations, 16)
	require.Equal(t, 1.0, f.metrics.counter("synth.citation_coverage"))

	require.Len(t, it.Decisions, 1)
	require.Equal(t, "selector", it.Decisions[0].Stage)
	require.Equal(t, planner.VariantCostConscious, it.Decisions[0].Selected)
	require.ElementsMatch(t, []string{planner.VariantConvenience, planner.VariantExperience}, it.Decisions[0].Alternatives)

	require.Equal(t, 1, state.ToolCalls[pipeline.ToolFlights])
	require.Equal(t, 1, state.ToolCalls[pipeline.ToolLodging])
	require.Equal(t, 5, state.ToolCalls[pipeline.ToolWeather])
	require.Equal(t, 1, state.ToolCalls[pipeline.ToolFX])
	require.Len(t, state.Weather, 5)
	for key, day := range state.Weather {
		require.Equal(t, travel.SourceTool, day.Provenance.Source, key)
		require.Equal(t, travel.No, day.Provenance.CacheHit, key)
	}

	record, err := f.runs.Get(context.Background(), state.TraceID)
	require.NoError(t, err)
	require.Equal(t, run.StatusCompleted, record.Status)
	require.NotNil(t, record.CompletedAt)
	require.NotEmpty(t, record.PlanSnapshot)

	archived, err := f.artifacts.Get(context.Background(), state.TraceID)
	require.NoError(t, err)
	require.Equal(t, state.TraceID, archived.ID)

	events := f.sink.byRun(state.TraceID)
	require.Len(t, events, 16, "eight stages, one running and one completed event each")
	wantNodes := []string{
		pipeline.NodeIntent, pipeline.NodePlanner, pipeline.NodeSelector, pipeline.NodeToolExec,
		pipeline.NodeVerifier, pipeline.NodeRepair, pipeline.NodeSynthesizer, pipeline.NodeResponder,
	}
	for i, node := range wantNodes {
		running, completed := events[2*i], events[2*i+1]
		require.Equal(t, node, running.Data.Node)
		require.Equal(t, stream.StatusRunning, running.Data.Status)
		require.Equal(t, node, completed.Data.Node)
		require.Equal(t, stream.StatusCompleted, completed.Data.Status)
	}
	require.Contains(t, events[len(events)-1].Data.Message, "itinerary ready")
}

func TestRunKeepsBudgetViolationWhenRepairFallsShort(t *testing.T) {
	cfg := settings.Default()
	cfg.RepairRecheck = true
	fixtures := &fixtureTools{flightPrice: 18_000, lodgingNight: 9_000}
	f := newPipelineFixture(t, cfg, fixtures, artCatalog(planner.VariantCostConscious, 5))

	state, err := f.pipeline.Run(context.Background(), pipeline.Request{
		OrgID:  "org-acme",
		UserID: "user-1",
		Intent: parisIntent(50_000),
	})
	require.NoError(t, err, "a run with unresolved violations still completes")
	require.True(t, state.Done)

	// Three tier downgrades cannot close a gap this wide, so the bounded
	// loop exhausts its cycles and the verdict stands.
	require.Equal(t, 3, state.Repair.CyclesRun)
	require.Equal(t, 3, state.Repair.MovesApplied)
	require.Len(t, state.Violations, 1)
	v := state.Violations[0]
	require.Equal(t, travel.ViolationBudget, v.Kind)
	require.True(t, v.Blocking)
	over, ok := v.Details["over_by_usd_cents"].(int64)
	require.True(t, ok, "over_by_usd_cents is an int64 amount")
	require.Positive(t, over)

	lodgingRef := ""
	for _, slot := range state.Plan.Days[0].Slots {
		if slot.Kind() == travel.KindLodging {
			lodgingRef = slot.Selected().OptionRef
		}
	}
	require.Equal(t, "lodging:cost-conscious:tier-down:tier-down:tier-down", lodgingRef)

	require.True(t, containsMessage(state.Messages, "change_hotel_tier"))
	require.True(t, containsMessage(state.Messages, "unresolved blocking"))
	require.Equal(t, 1.0, f.metrics.counter("repair.attempt"))
	require.Equal(t, 0.0, f.metrics.counter("repair.success"))
	require.Equal(t, 3.0, f.metrics.counter("repair.cycles"))

	record, err := f.runs.Get(context.Background(), state.TraceID)
	require.NoError(t, err)
	require.Equal(t, run.StatusCompleted, record.Status)
}

func TestRunReplacesOutdoorSlotOnRainyDay(t *testing.T) {
	cfg := settings.Default()
	cfg.RepairRecheck = true

	// Saturday June 7 is a washout; every other day stays fair.
	fixtures := &fixtureTools{
		flightPrice:  60_000,
		lodgingNight: 40_000,
		weatherByDate: func(date string) (float64, float64) {
			if date == "2025-06-07" {
				return 0.80, 12.0
			}
			return 0.10, 8.0
		},
	}
	venues := artCatalog(planner.VariantExperience, 5)
	venues["attr:experience:d1:morning"] = travel.Attraction{
		Name:         "Jardin du Luxembourg",
		Category:     "park",
		Geo:          parisGeo,
		OpeningHours: openDaily(travel.Clock(8, 0), travel.Clock(21, 30)),
		Indoor:       travel.No,
		KidFriendly:  travel.Yes,
	}
	venues["attr:experience:d1:afternoon"] = travel.Attraction{
		Name:         "Marche des Enfants Rouges",
		Category:     "market",
		Geo:          parisGeo,
		OpeningHours: openDaily(travel.Clock(9, 0), travel.Clock(22, 0)),
		PriceCents:   1_500,
	}
	f := newPipelineFixture(t, cfg, fixtures, venues)

	intent := parisIntent(350_000)
	intent.Window.Start = time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC)
	intent.Window.End = time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	state, err := f.pipeline.Run(context.Background(), pipeline.Request{
		OrgID:  "org-acme",
		UserID: "user-1",
		Intent: intent,
	})
	require.NoError(t, err)
	require.True(t, state.Done)
	require.Equal(t, planner.VariantExperience, state.Plan.Variant)

	// The outdoor slot was swapped for an indoor stand-in; the
	// indoor-unknown market keeps its advisory.
	require.Equal(t, 1, state.Repair.MovesApplied)
	require.Equal(t, 2, state.Repair.CyclesRun)
	require.Len(t, state.Violations, 1)
	v := state.Violations[0]
	require.Equal(t, travel.ViolationWeather, v.Kind)
	require.False(t, v.Blocking)
	require.Equal(t, verify.ConditionUncertainWeather, v.Details["condition"])

	var repaired travel.Choice
	for _, slot := range state.Plan.Days[1].Slots {
		if strings.HasSuffix(slot.Selected().OptionRef, ":indoor") {
			repaired = slot.Selected()
		}
	}
	require.Equal(t, "attr:experience:d1:morning:indoor", repaired.OptionRef)
	require.Equal(t, travel.Yes, repaired.Features.Indoor)
	require.Equal(t, travel.SourceRepair, repaired.Provenance.Source)

	require.True(t, containsMessage(state.Messages, "replace_slot"))
	require.Equal(t, 1.0, f.metrics.counter("verify.weather.blocking"))
	require.Equal(t, 2.0, f.metrics.counter("verify.weather.advisory"), "initial verdict plus the repair recheck")
}

func TestExecutorBreakerShortCircuitsAfterRepeatedFailures(t *testing.T) {
	cfg := settings.Default()
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

	for i := 0; i < 3; i++ {
		res := exec.Execute(context.Background(), req)
		require.Equal(t, toolexec.StatusError, res.Status)
		require.Equal(t, 1, res.Retries, "connection errors earn exactly one retry")
	}
	require.Equal(t, int64(6), invocations.Load())

	res := exec.Execute(context.Background(), req)
	require.Equal(t, toolexec.StatusBreakerOpen, res.Status)
	require.NotNil(t, res.Error)
	require.Equal(t, toolexec.ReasonBreakerOpen, res.Error.Reason)
	require.Positive(t, res.Error.RetryAfterSeconds)
	require.Equal(t, int64(6), invocations.Load(), "an open breaker never reaches the tool")
}

func TestWeatherCacheServesSecondRun(t *testing.T) {
	fixtures := &fixtureTools{flightPrice: 52_000, lodgingNight: 24_000}
	f := newPipelineFixture(t, settings.Default(), fixtures, artCatalog(planner.VariantCostConscious, 5))

	first, err := f.pipeline.Run(context.Background(), pipeline.Request{
		OrgID:  "org-acme",
		UserID: "user-1",
		Intent: parisIntent(250_000),
	})
	require.NoError(t, err)
	require.Equal(t, int64(5), fixtures.weatherCalls.Load())

	second, err := f.pipeline.Run(context.Background(), pipeline.Request{
		OrgID:  "org-acme",
		UserID: "user-1",
		Intent: parisIntent(250_000),
	})
	require.NoError(t, err)
	require.NotEqual(t, first.TraceID, second.TraceID)

	// Forecasts and the FX rate came from the result cache; flight and
	// lodging searches always hit upstream.
	require.Equal(t, int64(5), fixtures.weatherCalls.Load())
	require.Equal(t, int64(1), fixtures.fxCalls.Load())
	require.Equal(t, int64(2), fixtures.flightCalls.Load())
	require.Equal(t, int64(2), fixtures.lodgingCalls.Load())

	require.Equal(t, 5, second.ToolCalls[pipeline.ToolWeather], "cache hits still count as calls")
	require.Len(t, second.Weather, 5)
	for _, day := range second.Plan.Days {
		key := travel.DateKey(day.Date)
		forecast, ok := second.Weather[key]
		require.True(t, ok, key)
		require.Equal(t, travel.Yes, forecast.Provenance.CacheHit, key)
		require.Equal(t, first.Weather[key].PrecipProb, forecast.PrecipProb, key)
	}
}

func TestRunDowngradesLodgingTierOverBudget(t *testing.T) {
	fixtures := &fixtureTools{flightPrice: 52_000, lodgingNight: 80_000}
	f := newPipelineFixture(t, settings.Default(), fixtures, nil)

	state, err := f.pipeline.Run(context.Background(), pipeline.Request{
		OrgID:  "org-acme",
		UserID: "user-1",
		Intent: parisIntent(345_000),
	})
	require.NoError(t, err)
	require.True(t, state.Done)
	require.Equal(t, planner.VariantExperience, state.Plan.Variant)

	require.Equal(t, 1, state.Repair.CyclesRun)
	require.Equal(t, 1, state.Repair.MovesApplied)
	require.InDelta(t, float64(15)/float64(19), state.Repair.ReuseRatio, 1e-9,
		"only the four nightly lodging slots changed")
	require.Empty(t, state.Violations)
	require.True(t, containsMessage(state.Messages, "change_hotel_tier"))

	// All four nights switched to the downgraded booking at 80% of the
	// fetched rate; the snapshot keeps the pre-repair selection.
	for day, dp := range state.Plan.Days {
		for _, slot := range dp.Slots {
			if slot.Kind() != travel.KindLodging {
				continue
			}
			choice := slot.Selected()
			require.Equal(t, "lodging:experience:tier-down", choice.OptionRef, "day %d", day)
			require.Equal(t, int64(64_000), choice.Features.CostCents)
		}
	}
	require.NotNil(t, state.Repair.Snapshot)
	for _, slot := range state.Repair.Snapshot.Days[0].Slots {
		if slot.Kind() == travel.KindLodging {
			require.Equal(t, "lodging:experience", slot.Selected().OptionRef)
		}
	}

	it := state.Itinerary
	require.NotNil(t, it)
	require.Equal(t, int64(256_000), it.Costs.LodgingCents)
	require.Len(t, it.Decisions, 2)
	require.Equal(t, "repair", it.Decisions[1].Stage)

	// The downgraded booking has no fetched record, so it presents
	// generically instead of inventing a hotel name.
	found := false
	for _, act := range it.Days[0].Activities {
		if act.Kind == travel.KindLodging {
			found = true
			require.Equal(t, "Accommodation", act.Name)
		}
	}
	require.True(t, found)
}

func TestRunStopsWhenFlightDataUnavailable(t *testing.T) {
	fixtures := &fixtureTools{
		flightPrice:  52_000,
		lodgingNight: 24_000,
		flightErr:    toolexec.NewToolError(toolexec.ErrTypeValidation, "airport not served"),
	}
	f := newPipelineFixture(t, settings.Default(), fixtures, nil)

	state, err := f.pipeline.Run(context.Background(), pipeline.Request{
		OrgID:  "org-acme",
		UserID: "user-1",
		Intent: parisIntent(250_000),
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "stage tool_exec")
	require.Contains(t, err.Error(), "flights")
	require.False(t, state.Done)
	require.Nil(t, state.Itinerary)
	require.Equal(t, 1, state.ToolCalls[pipeline.ToolFlights])

	record, rerr := f.runs.Get(context.Background(), state.TraceID)
	require.NoError(t, rerr)
	require.Equal(t, run.StatusError, record.Status)
	require.NotEmpty(t, record.Error)
	require.NotNil(t, record.CompletedAt)

	events := f.sink.byRun(state.TraceID)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, pipeline.NodeError, last.Data.Node)
	require.Equal(t, stream.StatusError, last.Data.Status)
	require.Contains(t, last.Data.Message, "flights")

	_, aerr := f.artifacts.Get(context.Background(), state.TraceID)
	require.Error(t, aerr)
}
