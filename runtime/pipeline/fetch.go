package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tripsmith/tripsmith/runtime/hooks"
	"github.com/tripsmith/tripsmith/runtime/toolexec"
	"github.com/tripsmith/tripsmith/travel"
)

// Registered names of the network-backed travel tools the fetch stage
// drives. Adapters behind these names own the upstream APIs; the stage only
// shapes arguments and parses payloads.
const (
	ToolFlights = "flights"
	ToolLodging = "lodging"
	ToolWeather = "weather"
	ToolFX      = "fx"
	ToolTransit = "transit"
)

// Search tiers handed to the flight and lodging tools, derived from the
// per-day budget.
const (
	tierEconomy  = "economy"
	tierStandard = "standard"
	tierPremium  = "premium"
	tierLuxury   = "luxury"
)

// Per-day budget floors between search tiers, in USD cents.
const (
	tierStandardFloorCents = 15_000
	tierPremiumFloorCents  = 35_000
	tierLuxuryFloorCents   = 60_000
)

// stageFetch resolves the selected plan's option refs into concrete records
// through the tool executor. Flights, lodging, FX and the per-day weather
// loop fan out concurrently; attraction slots resolve locally from the
// knowledge catalog or the choice's own features. Weather, FX and transit
// failures degrade with a log line; flight and lodging data is required and
// fails the stage. The fan-out only fills dictionaries; the plan itself is
// touched after the group finishes.
func (p *Pipeline) stageFetch(ctx context.Context, state *travel.RunState) (string, error) {
	if state.Plan == nil {
		return "", errors.New("no plan selected")
	}

	counter := newCallCounter(state.TraceID)
	sub, err := p.bus.Register(counter)
	if err != nil {
		return "", fmt.Errorf("register call counter: %w", err)
	}
	defer sub.Close()

	tier := tierBand(state.Intent.BudgetCents, state.Intent.Window.Days())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.fetchFlights(gctx, state, tier) })
	g.Go(func() error { return p.fetchLodging(gctx, state, tier) })
	g.Go(func() error { return p.fetchFX(gctx, state) })
	g.Go(func() error { return p.fetchWeather(gctx, state) })
	if err := g.Wait(); err != nil {
		counter.drain(state)
		return "", err
	}

	p.fetchTransit(ctx, state)
	p.resolveAttractions(ctx, state)
	p.refineFeatures(state)
	counter.drain(state)

	return fmt.Sprintf("resolved %d flights, %d lodgings, %d attractions, %d weather days",
		len(state.Flights), len(state.Lodgings), len(state.Attractions), len(state.Weather)), nil
}

// fetchFlights resolves each selected flight choice through the flights
// tool. Flight data is required: any non-success result fails the stage.
func (p *Pipeline) fetchFlights(ctx context.Context, state *travel.RunState, tier string) error {
	refs := selectedRefs(state.Plan, travel.KindFlight)
	if len(refs) == 0 {
		return nil
	}
	tool, ok := p.tools.Lookup(ToolFlights)
	if !ok {
		return fmt.Errorf("tool %s not registered", ToolFlights)
	}

	for _, ref := range refs {
		if _, done := state.Flights[ref]; done {
			continue
		}
		args := map[string]any{
			"city":            state.Intent.City,
			"airport":         airportFromRef(ref, state.Intent.Airports),
			"start":           travel.DateKey(state.Intent.Window.Start),
			"end":             travel.DateKey(state.Intent.Window.End),
			"tier":            tier,
			"avoid_overnight": state.Intent.Prefs.AvoidOvernight,
		}
		if err := p.tools.ValidateArgs(tool.Name, args); err != nil {
			return fmt.Errorf("%s args: %w", tool.Name, err)
		}
		res := p.exec.Execute(ctx, toolexec.Request{
			Tool:  tool.Call,
			Name:  tool.Name,
			Args:  args,
			RunID: state.TraceID,
		})
		if res.Status != toolexec.StatusSuccess {
			return toolFailure(tool.Name, res)
		}
		flight, err := flightFromPayload(res.Data)
		if err != nil {
			return fmt.Errorf("%s payload: %w", tool.Name, err)
		}
		flight.Provenance = p.toolProvenance(ref, res)
		state.Flights[ref] = flight
	}
	return nil
}

// fetchLodging resolves each selected lodging booking. One option ref spans
// every night of the stay, so a plan normally costs a single call. Lodging
// data is required.
func (p *Pipeline) fetchLodging(ctx context.Context, state *travel.RunState, tier string) error {
	refs := selectedRefs(state.Plan, travel.KindLodging)
	if len(refs) == 0 {
		return nil
	}
	tool, ok := p.tools.Lookup(ToolLodging)
	if !ok {
		return fmt.Errorf("tool %s not registered", ToolLodging)
	}

	for _, ref := range refs {
		if _, done := state.Lodgings[ref]; done {
			continue
		}
		args := map[string]any{
			"city":     state.Intent.City,
			"checkin":  travel.DateKey(state.Intent.Window.Start),
			"checkout": travel.DateKey(state.Intent.Window.End),
			"nights":   occurrences(state.Plan, ref),
			"tier":     tier,
		}
		if err := p.tools.ValidateArgs(tool.Name, args); err != nil {
			return fmt.Errorf("%s args: %w", tool.Name, err)
		}
		res := p.exec.Execute(ctx, toolexec.Request{
			Tool:  tool.Call,
			Name:  tool.Name,
			Args:  args,
			RunID: state.TraceID,
		})
		if res.Status != toolexec.StatusSuccess {
			return toolFailure(tool.Name, res)
		}
		lodging, err := lodgingFromPayload(res.Data)
		if err != nil {
			return fmt.Errorf("%s payload: %w", tool.Name, err)
		}
		lodging.Provenance = p.toolProvenance(ref, res)
		state.Lodgings[ref] = lodging
	}
	return nil
}

// fetchFX resolves the destination currency rate, cached under the FX TTL.
// Missing FX degrades to the planner's assumed rate.
func (p *Pipeline) fetchFX(ctx context.Context, state *travel.RunState) error {
	tool, ok := p.tools.Lookup(ToolFX)
	if !ok {
		p.logger.Warn(ctx, "fx tool not registered, keeping assumed rate", "run_id", state.TraceID)
		return nil
	}
	args := map[string]any{"city": state.Intent.City, "quote": "USD"}
	if err := p.tools.ValidateArgs(tool.Name, args); err != nil {
		p.logger.Warn(ctx, "fx args rejected", "run_id", state.TraceID, "error", err)
		return nil
	}
	res := p.exec.Execute(ctx, toolexec.Request{
		Tool:  tool.Call,
		Name:  tool.Name,
		Args:  args,
		RunID: state.TraceID,
		Cache: toolexec.CachePolicy{Enabled: true, TTL: p.cfg.FXTTL()},
	})
	if res.Status != toolexec.StatusSuccess {
		p.logger.Warn(ctx, "fx fetch degraded", "run_id", state.TraceID, "status", string(res.Status))
		return nil
	}
	fx, err := fxFromPayload(res.Data)
	if err != nil {
		p.logger.Warn(ctx, "fx payload rejected", "run_id", state.TraceID, "error", err)
		return nil
	}
	if fx.AsOf.IsZero() {
		fx.AsOf = p.now().UTC()
	}
	pair := fx.Base + "/" + fx.Quote
	fx.Provenance = p.toolProvenance(pair, res)
	state.FX[pair] = fx
	return nil
}

// fetchWeather pulls one forecast per planned day, cached under the weather
// TTL. Failures degrade: a day with no forecast yields no weather verdicts.
func (p *Pipeline) fetchWeather(ctx context.Context, state *travel.RunState) error {
	tool, ok := p.tools.Lookup(ToolWeather)
	if !ok {
		p.logger.Warn(ctx, "weather tool not registered, days stay unknown", "run_id", state.TraceID)
		return nil
	}

	for _, day := range state.Plan.Days {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := travel.DateKey(day.Date)
		if _, done := state.Weather[key]; done {
			continue
		}
		args := map[string]any{"city": state.Intent.City, "date": key}
		if err := p.tools.ValidateArgs(tool.Name, args); err != nil {
			p.logger.Warn(ctx, "weather args rejected", "run_id", state.TraceID, "date", key, "error", err)
			continue
		}
		res := p.exec.Execute(ctx, toolexec.Request{
			Tool:  tool.Call,
			Name:  tool.Name,
			Args:  args,
			RunID: state.TraceID,
			Cache: toolexec.CachePolicy{Enabled: true, TTL: p.cfg.WeatherTTL()},
		})
		if res.Status != toolexec.StatusSuccess {
			p.logger.Warn(ctx, "weather fetch degraded", "run_id", state.TraceID, "date", key, "status", string(res.Status))
			continue
		}
		forecast, err := weatherFromPayload(res.Data)
		if err != nil {
			p.logger.Warn(ctx, "weather payload rejected", "run_id", state.TraceID, "date", key, "error", err)
			continue
		}
		forecast.Date = day.Date
		forecast.Provenance = p.toolProvenance(key, res)
		state.Weather[key] = forecast
	}
	return nil
}

// fetchTransit resolves selected transit slots. Plans rarely carry them
// today, but locked slots and repair moves can mint them. Transit is
// optional: failures degrade.
func (p *Pipeline) fetchTransit(ctx context.Context, state *travel.RunState) {
	refs := selectedRefs(state.Plan, travel.KindTransit)
	if len(refs) == 0 {
		return
	}
	tool, ok := p.tools.Lookup(ToolTransit)
	if !ok {
		p.logger.Warn(ctx, "transit tool not registered, legs stay estimated", "run_id", state.TraceID)
		return
	}

	for _, ref := range refs {
		if _, done := state.Transits[ref]; done {
			continue
		}
		args := map[string]any{"city": state.Intent.City, "ref": ref}
		if err := p.tools.ValidateArgs(tool.Name, args); err != nil {
			p.logger.Warn(ctx, "transit args rejected", "run_id", state.TraceID, "ref", ref, "error", err)
			continue
		}
		res := p.exec.Execute(ctx, toolexec.Request{
			Tool:  tool.Call,
			Name:  tool.Name,
			Args:  args,
			RunID: state.TraceID,
		})
		if res.Status != toolexec.StatusSuccess {
			p.logger.Warn(ctx, "transit fetch degraded", "run_id", state.TraceID, "ref", ref, "status", string(res.Status))
			continue
		}
		leg, err := transitFromPayload(res.Data)
		if err != nil {
			p.logger.Warn(ctx, "transit payload rejected", "run_id", state.TraceID, "ref", ref, "error", err)
			continue
		}
		leg.Provenance = p.toolProvenance(ref, res)
		state.Transits[ref] = leg
	}
}

// resolveAttractions fills the attraction dictionary for every selected
// attraction slot without a network tool. The knowledge catalog wins; the
// choice's own features are the fallback.
func (p *Pipeline) resolveAttractions(ctx context.Context, state *travel.RunState) {
	for _, day := range state.Plan.Days {
		for _, slot := range day.Slots {
			if len(slot.Choices) == 0 {
				continue
			}
			choice := slot.Selected()
			if choice.Kind != travel.KindAttraction || choice.OptionRef == "" {
				continue
			}
			if _, done := state.Attractions[choice.OptionRef]; done {
				continue
			}
			state.Attractions[choice.OptionRef] = p.attractionRecord(ctx, state, choice)
		}
	}
}

// attractionRecord builds the dictionary record for an unresolved attraction
// choice: a curated venue when the catalog has one, otherwise a fixture
// assembled from the choice's own features.
func (p *Pipeline) attractionRecord(ctx context.Context, state *travel.RunState, c travel.Choice) travel.Attraction {
	if p.know != nil {
		if venue, ok := p.know.Venue(ctx, state.Intent.City, c.OptionRef, c.Features.Themes); ok {
			venue.Provenance = p.fixtureProvenance(c.OptionRef)
			return venue
		}
	}
	return p.fixtureAttraction(state.Intent.City, c)
}

// fixtureAttraction reverses the feature mapper: the choice's features
// become the record. Opening hours stay generous on purpose, an estimate
// must not trip the venue-hours check a real record would pass.
func (p *Pipeline) fixtureAttraction(city string, c travel.Choice) travel.Attraction {
	name := fmt.Sprintf("%s activity", city)
	if len(c.Features.Themes) > 0 {
		name = fmt.Sprintf("%s %s stop", city, c.Features.Themes[0])
	}
	return travel.Attraction{
		Name:         name,
		OpeningHours: fixtureHours(),
		Indoor:       c.Features.Indoor,
		Themes:       append([]string(nil), c.Features.Themes...),
		PriceCents:   c.Features.CostCents,
		Provenance:   p.fixtureProvenance(c.OptionRef),
	}
}

// fixtureHours opens a synthetic venue every day from 08:00 to 23:45.
func fixtureHours() map[int][]travel.TimeWindow {
	open := travel.TimeWindow{StartMinute: travel.Clock(8, 0), EndMinute: travel.Clock(23, 45)}
	hours := make(map[int][]travel.TimeWindow, 7)
	for weekday := 0; weekday < 7; weekday++ {
		hours[weekday] = []travel.TimeWindow{open}
	}
	return hours
}

// refineFeatures folds resolved records back into the selected choices'
// features via the feature mappers. Verifiers read features only, so an
// indoor venue must be marked indoor here or bad-weather checks would
// misjudge it; prices refine the planner's estimates the same way. Applies
// the observed FX rate to the plan assumptions as a side effect.
func (p *Pipeline) refineFeatures(state *travel.RunState) {
	for d := range state.Plan.Days {
		for s := range state.Plan.Days[d].Slots {
			slot := &state.Plan.Days[d].Slots[s]
			if len(slot.Choices) == 0 {
				continue
			}
			choice := &slot.Choices[0]
			switch choice.Kind {
			case travel.KindFlight:
				if flight, ok := state.Flights[choice.OptionRef]; ok {
					choice.Features = travel.FlightFeatures(flight)
				}
			case travel.KindLodging:
				if lodging, ok := state.Lodgings[choice.OptionRef]; ok {
					choice.Features = travel.LodgingFeatures(lodging)
				}
			case travel.KindAttraction:
				if attr, ok := state.Attractions[choice.OptionRef]; ok {
					refineAttraction(choice, attr)
				}
			case travel.KindTransit:
				if leg, ok := state.Transits[choice.OptionRef]; ok {
					choice.Features = travel.TransitFeatures(leg)
				}
			}
		}
	}

	for _, fx := range state.FX {
		if fx.Quote == "USD" && fx.Rate > 0 {
			state.Plan.Assumptions.FXRate = fx.Rate
			break
		}
	}
}

// refineAttraction merges a venue record into the choice, keeping planner
// values wherever the record has nothing better to say.
func refineAttraction(c *travel.Choice, rec travel.Attraction) {
	mapped := travel.AttractionFeatures(rec)
	c.Features.CostCents = rec.PriceCents
	if mapped.Indoor.Known() {
		c.Features.Indoor = mapped.Indoor
	}
	if len(mapped.Themes) > 0 {
		c.Features.Themes = mapped.Themes
	}
}

// toolProvenance stamps a fetched record with the executor's observation of
// the call that produced it.
func (p *Pipeline) toolProvenance(refID string, res toolexec.Result) travel.Provenance {
	return travel.Provenance{
		Source:    travel.SourceTool,
		RefID:     refID,
		FetchedAt: p.now().UTC(),
		CacheHit:  travel.TriFromBool(res.FromCache),
	}
}

// fixtureProvenance stamps a locally filled record. No call happened, so the
// cache verdict stays unknown.
func (p *Pipeline) fixtureProvenance(refID string) travel.Provenance {
	return travel.Provenance{
		Source:    travel.SourceFixture,
		RefID:     refID,
		FetchedAt: p.now().UTC(),
		CacheHit:  travel.Unknown,
	}
}

// toolFailure turns an in-band executor failure into the stage-fatal error
// for tools whose data the run cannot proceed without.
func toolFailure(name string, res toolexec.Result) error {
	if res.Error != nil {
		return fmt.Errorf("%s: %s: %s", name, res.Status, res.Error.Message)
	}
	return fmt.Errorf("%s: %s", name, res.Status)
}

// selectedRefs returns the distinct option refs of the selected choices of
// one kind, in day order.
func selectedRefs(plan *travel.Plan, kind travel.ChoiceKind) []string {
	var out []string
	seen := make(map[string]bool)
	for _, day := range plan.Days {
		for _, slot := range day.Slots {
			if len(slot.Choices) == 0 {
				continue
			}
			c := slot.Selected()
			if c.Kind != kind || c.OptionRef == "" || seen[c.OptionRef] {
				continue
			}
			seen[c.OptionRef] = true
			out = append(out, c.OptionRef)
		}
	}
	return out
}

// occurrences counts the slots whose selected choice carries ref. For
// lodging this is the number of nights the booking covers.
func occurrences(plan *travel.Plan, ref string) int {
	n := 0
	for _, day := range plan.Days {
		for _, slot := range day.Slots {
			if len(slot.Choices) > 0 && slot.Selected().OptionRef == ref {
				n++
			}
		}
	}
	return n
}

// airportFromRef recovers the airport code a planner flight ref encodes
// ("flight:CDG:convenience"), falling back to the first intent airport for
// refs minted elsewhere.
func airportFromRef(ref string, airports []string) string {
	parts := strings.Split(ref, ":")
	if len(parts) >= 2 && parts[1] != "" {
		return parts[1]
	}
	if len(airports) > 0 {
		return airports[0]
	}
	return ""
}

// tierBand buckets a per-day budget into the search tier handed to the
// flight and lodging tools.
func tierBand(budgetCents int64, days int) string {
	if days < 1 {
		days = 1
	}
	perDay := budgetCents / int64(days)
	switch {
	case perDay < tierStandardFloorCents:
		return tierEconomy
	case perDay < tierPremiumFloorCents:
		return tierStandard
	case perDay < tierLuxuryFloorCents:
		return tierPremium
	default:
		return tierLuxury
	}
}

// callCounter folds executor lifecycle events into per-run tool call counts.
// The hooks bus delivers on the publishing goroutine and the fetch fan-out
// publishes from several, so counts are guarded.
type callCounter struct {
	mu    sync.Mutex
	runID string
	calls map[string]int
}

func newCallCounter(runID string) *callCounter {
	return &callCounter{runID: runID, calls: make(map[string]int)}
}

// HandleEvent implements hooks.Subscriber. Only call-started events for this
// run are counted: started fires before the cache and breaker are consulted,
// so cache hits and short-circuits still count as invocations.
func (c *callCounter) HandleEvent(_ context.Context, evt hooks.Event) error {
	started, ok := evt.(*hooks.ToolCallStartedEvent)
	if !ok || evt.RunID() != c.runID {
		return nil
	}
	c.mu.Lock()
	c.calls[started.ToolName]++
	c.mu.Unlock()
	return nil
}

// drain moves the counts into the run state once the fan-out is done.
func (c *callCounter) drain(state *travel.RunState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, n := range c.calls {
		state.ToolCalls[name] += n
	}
}

// Payload parsing below tolerates both native Go numbers and JSON-decoded
// ones: the memory cache hands back the original map while the Redis cache
// round-trips through JSON.

func flightFromPayload(data map[string]any) (travel.Flight, error) {
	var f travel.Flight
	f.Airline, _ = stringField(data, "airline")
	f.Number, _ = stringField(data, "number")
	f.Origin, _ = stringField(data, "origin")
	f.Destination, _ = stringField(data, "destination")

	depart, err := timeField(data, "depart")
	if err != nil {
		return f, err
	}
	arrive, err := timeField(data, "arrive")
	if err != nil {
		return f, err
	}
	f.Depart, f.Arrive = depart, arrive
	f.Overnight, _ = boolField(data, "overnight")

	price, ok := numberField(data, "price_cents")
	if !ok {
		return f, errors.New("missing price_cents")
	}
	f.PriceCents = int64(price)
	return f, nil
}

func lodgingFromPayload(data map[string]any) (travel.Lodging, error) {
	var l travel.Lodging
	name, ok := stringField(data, "name")
	if !ok {
		return l, errors.New("missing name")
	}
	l.Name = name
	l.Tier, _ = stringField(data, "tier")

	price, ok := numberField(data, "price_per_night_cents")
	if !ok {
		return l, errors.New("missing price_per_night_cents")
	}
	l.PricePerNightCents = int64(price)

	if lat, ok := numberField(data, "lat"); ok {
		l.Geo.Lat = lat
	}
	if lng, ok := numberField(data, "lng"); ok {
		l.Geo.Lng = lng
	}
	return l, nil
}

func weatherFromPayload(data map[string]any) (travel.WeatherDay, error) {
	var w travel.WeatherDay
	precip, ok := numberField(data, "precip_prob")
	if !ok {
		return w, errors.New("missing precip_prob")
	}
	w.PrecipProb = precip
	if wind, ok := numberField(data, "wind_kmh"); ok {
		w.WindKMH = wind
	}
	if temp, ok := numberField(data, "temp_c"); ok {
		w.TempC = temp
	}
	return w, nil
}

func fxFromPayload(data map[string]any) (travel.FXRate, error) {
	var fx travel.FXRate
	base, ok := stringField(data, "base")
	if !ok {
		return fx, errors.New("missing base")
	}
	quote, ok := stringField(data, "quote")
	if !ok {
		return fx, errors.New("missing quote")
	}
	rate, ok := numberField(data, "rate")
	if !ok || rate <= 0 {
		return fx, errors.New("missing or non-positive rate")
	}
	fx.Base, fx.Quote, fx.Rate = base, quote, rate
	if asOf, err := timeField(data, "as_of"); err == nil {
		fx.AsOf = asOf
	}
	return fx, nil
}

func transitFromPayload(data map[string]any) (travel.TransitLeg, error) {
	var t travel.TransitLeg
	mode, ok := stringField(data, "mode")
	if !ok {
		return t, errors.New("missing mode")
	}
	t.Mode = mode
	if secs, ok := numberField(data, "duration_seconds"); ok {
		t.DurationSeconds = int64(secs)
	}
	if price, ok := numberField(data, "price_cents"); ok {
		t.PriceCents = int64(price)
	}
	return t, nil
}

func stringField(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok && s != ""
}

func boolField(m map[string]any, key string) (bool, bool) {
	b, ok := m[key].(bool)
	return b, ok
}

func numberField(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func timeField(m map[string]any, key string) (time.Time, error) {
	switch v := m[key].(type) {
	case time.Time:
		return v, nil
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("field %s: %w", key, err)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("field %s: want RFC3339 time, got %T", key, v)
	}
}
