// Package synth assembles the final itinerary from the repaired plan and
// the fetched record dictionaries.
//
// The discipline is "no evidence, no claim": an activity only carries a
// concrete name, location, and citation when its option_ref resolves to a
// fetched record. Unresolved activities keep a generic, kind-derived name
// and a feature-level cost note. Citation coverage is observed so drops in
// evidence quality surface in metrics before they surface in output.
package synth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tripsmith/tripsmith/runtime/telemetry"
	"github.com/tripsmith/tripsmith/travel"
)

type (
	// Synthesizer builds itineraries.
	Synthesizer struct {
		ins    *telemetry.Instruments
		logger telemetry.Logger
		now    func() time.Time
	}

	// Option customizes a Synthesizer.
	Option func(*Synthesizer)

	// claimLedger tracks asserted facts and their evidence while the
	// itinerary is assembled.
	claimLedger struct {
		claims    int
		citations []travel.Citation
	}
)

// WithInstruments sets the metrics façade.
func WithInstruments(ins *telemetry.Instruments) Option {
	return func(s *Synthesizer) { s.ins = ins }
}

// WithLogger sets the logger.
func WithLogger(logger telemetry.Logger) Option {
	return func(s *Synthesizer) { s.logger = logger }
}

// WithClock overrides the time source stamped on itineraries.
func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) { s.now = now }
}

// New returns a Synthesizer with the given options applied.
func New(opts ...Option) *Synthesizer {
	s := &Synthesizer{
		ins:    telemetry.NewInstruments(nil),
		logger: telemetry.NewNoopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.ins == nil {
		s.ins = telemetry.NewInstruments(nil)
	}
	if s.logger == nil {
		s.logger = telemetry.NewNoopLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Build assembles the itinerary for the state's selected plan.
func (s *Synthesizer) Build(ctx context.Context, state *travel.RunState) (*travel.Itinerary, error) {
	start := time.Now()
	plan := state.Plan
	if plan == nil {
		return nil, errors.New("synth: no plan selected")
	}
	loc, err := state.Intent.Window.Location()
	if err != nil {
		loc = time.UTC
	}

	ledger := &claimLedger{}
	nights := lodgingNights(plan)
	cited := make(map[string]bool)

	days := make([]travel.DayItinerary, 0, len(plan.Days))
	for _, day := range plan.Days {
		out := travel.DayItinerary{Date: day.Date}
		for _, slot := range day.Slots {
			out.Activities = append(out.Activities, s.activity(state, ledger, cited, day.Date, slot, loc))
		}
		days = append(days, out)
	}

	it := &travel.Itinerary{
		ID:        state.TraceID,
		Intent:    state.Intent,
		Days:      days,
		Costs:     costBreakdown(state, plan, nights),
		Decisions: decisions(state, plan),
		CreatedAt: s.now().UTC(),
	}
	s.citeWeather(state, plan, ledger)
	it.Citations = ledger.citations

	coverage := ledger.coverage()
	s.ins.ObserveSynthesisLatency(time.Since(start))
	s.ins.ObserveCitationCoverage(coverage)
	s.logger.Info(ctx, "itinerary synthesized",
		"days", len(it.Days),
		"citations", len(it.Citations),
		"coverage", coverage,
	)
	return it, nil
}

// activity renders one slot. Resolved records supply concrete details and a
// citation; lodging claims and citations dedupe per option_ref since nightly
// slots repeat one booking.
func (s *Synthesizer) activity(state *travel.RunState, ledger *claimLedger, cited map[string]bool, date time.Time, slot travel.Slot, loc *time.Location) travel.Activity {
	choice := slot.Selected()
	act := travel.Activity{
		Kind:      choice.Kind,
		Start:     slot.Window.StartAt(date, loc),
		End:       slot.Window.EndAt(date, loc),
		OptionRef: choice.OptionRef,
	}

	switch choice.Kind {
	case travel.KindFlight:
		if flight, ok := state.Flights[choice.OptionRef]; ok {
			act.Name = fmt.Sprintf("%s %s from %s to %s", flight.Airline, flight.Number, flight.Origin, flight.Destination)
			act.Notes = fmt.Sprintf("departs %s, arrives %s", flight.Depart.In(loc).Format("15:04"), flight.Arrive.In(loc).Format("15:04"))
			ledger.cite(act.Name, flight.Provenance)
			return act
		}
	case travel.KindLodging:
		if lodging, ok := state.Lodgings[choice.OptionRef]; ok {
			act.Name = lodging.Name
			act.Geo = &lodging.Geo
			act.Notes = fmt.Sprintf("%s tier, %s per night", lodging.Tier, fmtUSD(lodging.PricePerNightCents))
			if cited[choice.OptionRef] {
				return act
			}
			cited[choice.OptionRef] = true
			ledger.cite(fmt.Sprintf("Stay at %s", lodging.Name), lodging.Provenance)
			return act
		}
		// Generic lodging still dedupes its claim per booking.
		act.Name = genericName(choice.Kind)
		act.Notes = estimateNote(choice)
		if !cited[choice.OptionRef] {
			cited[choice.OptionRef] = true
			ledger.claims++
		}
		return act
	case travel.KindAttraction:
		if attr, ok := state.Attractions[choice.OptionRef]; ok {
			act.Name = attr.Name
			act.Geo = &attr.Geo
			act.Notes = attractionNotes(attr)
			ledger.cite(fmt.Sprintf("Visit %s", attr.Name), attr.Provenance)
			return act
		}
	case travel.KindTransit:
		if leg, ok := state.Transits[choice.OptionRef]; ok {
			act.Name = fmt.Sprintf("Transit by %s", leg.Mode)
			act.Notes = fmt.Sprintf("about %d min", leg.DurationSeconds/60)
			ledger.cite(act.Name, leg.Provenance)
			return act
		}
	}

	act.Name = genericName(choice.Kind)
	act.Notes = estimateNote(choice)
	ledger.claims++
	return act
}

// citeWeather adds one citation per planned day with a known forecast.
func (s *Synthesizer) citeWeather(state *travel.RunState, plan *travel.Plan, ledger *claimLedger) {
	for _, day := range plan.Days {
		forecast, ok := state.Weather[travel.DateKey(day.Date)]
		if !ok {
			continue
		}
		claim := fmt.Sprintf("Forecast for %s: %.0f%% precipitation, wind %.0f km/h",
			travel.DateKey(day.Date), forecast.PrecipProb*100, forecast.WindKMH)
		ledger.cite(claim, forecast.Provenance)
	}
}

// costBreakdown sums the trip by category, preferring resolved record prices
// over feature estimates. Lodging prices multiply per-night rates by the
// nights each booking ref covers.
func costBreakdown(state *travel.RunState, plan *travel.Plan, nights map[string]int64) travel.CostBreakdown {
	costs := travel.CostBreakdown{Currency: "USD"}
	countedLodging := make(map[string]bool)
	for _, day := range plan.Days {
		for _, slot := range day.Slots {
			choice := slot.Selected()
			switch choice.Kind {
			case travel.KindFlight:
				if flight, ok := state.Flights[choice.OptionRef]; ok {
					costs.FlightsCents += flight.PriceCents
				} else {
					costs.FlightsCents += choice.Features.CostCents
				}
			case travel.KindLodging:
				if countedLodging[choice.OptionRef] {
					continue
				}
				countedLodging[choice.OptionRef] = true
				perNight := choice.Features.CostCents
				if lodging, ok := state.Lodgings[choice.OptionRef]; ok {
					perNight = lodging.PricePerNightCents
				}
				costs.LodgingCents += perNight * nights[choice.OptionRef]
			case travel.KindAttraction, travel.KindMeal:
				if attr, ok := state.Attractions[choice.OptionRef]; ok {
					costs.AttractionsCents += attr.PriceCents
				} else {
					costs.AttractionsCents += choice.Features.CostCents
				}
			case travel.KindTransit:
				if leg, ok := state.Transits[choice.OptionRef]; ok {
					costs.TransitCents += leg.PriceCents
				} else {
					costs.TransitCents += choice.Features.CostCents
				}
			}
		}
	}
	costs.DailySpendCents = plan.Assumptions.DailySpendCents * int64(len(plan.Days))
	costs.TotalCents = costs.FlightsCents + costs.LodgingCents + costs.AttractionsCents + costs.TransitCents + costs.DailySpendCents
	costs.Disclaimer = fmt.Sprintf("Estimates in USD at an assumed FX rate of %.2f; on-the-ground prices vary.", plan.Assumptions.FXRate)
	return costs
}

// decisions records the audit trail: who picked the plan and whether repair
// touched it.
func decisions(state *travel.RunState, plan *travel.Plan) []travel.Decision {
	var out []travel.Decision
	if len(state.Candidates) > 1 {
		alternatives := make([]string, 0, len(state.Candidates)-1)
		for _, c := range state.Candidates {
			if c.Variant != plan.Variant {
				alternatives = append(alternatives, c.Variant)
			}
		}
		out = append(out, travel.Decision{
			Stage:        "selector",
			Rationale:    fmt.Sprintf("scored %d candidate plans and picked the %q variant", len(state.Candidates), plan.Variant),
			Alternatives: alternatives,
			Selected:     plan.Variant,
		})
	} else {
		out = append(out, travel.Decision{
			Stage:     "planner",
			Rationale: fmt.Sprintf("single %q candidate, no selection needed", plan.Variant),
			Selected:  plan.Variant,
		})
	}
	if state.Repair.MovesApplied > 0 {
		out = append(out, travel.Decision{
			Stage: "repair",
			Rationale: fmt.Sprintf("applied %d repair moves over %d cycles, reusing %.0f%% of selections",
				state.Repair.MovesApplied, state.Repair.CyclesRun, state.Repair.ReuseRatio*100),
			Selected: plan.Variant,
		})
	}
	return out
}

// lodgingNights counts, per lodging option_ref, how many nightly slots the
// booking covers.
func lodgingNights(plan *travel.Plan) map[string]int64 {
	nights := make(map[string]int64)
	for _, day := range plan.Days {
		for _, slot := range day.Slots {
			if slot.Kind() == travel.KindLodging {
				nights[slot.Selected().OptionRef]++
			}
		}
	}
	return nights
}

func (l *claimLedger) cite(claim string, provenance travel.Provenance) {
	l.claims++
	l.citations = append(l.citations, travel.Citation{Claim: claim, Provenance: provenance})
}

func (l *claimLedger) coverage() float64 {
	if l.claims == 0 {
		return 1
	}
	return float64(len(l.citations)) / float64(l.claims)
}

func attractionNotes(attr travel.Attraction) string {
	switch {
	case attr.Category != "" && len(attr.Themes) > 0:
		return fmt.Sprintf("%s, themes: %s", attr.Category, strings.Join(attr.Themes, ", "))
	case attr.Category != "":
		return attr.Category
	case len(attr.Themes) > 0:
		return "themes: " + strings.Join(attr.Themes, ", ")
	}
	return ""
}

func genericName(kind travel.ChoiceKind) string {
	switch kind {
	case travel.KindFlight:
		return "Flight"
	case travel.KindLodging:
		return "Accommodation"
	case travel.KindAttraction:
		return "Planned activity"
	case travel.KindTransit:
		return "Local transit"
	case travel.KindMeal:
		return "Meal"
	}
	return "Activity"
}

func estimateNote(choice travel.Choice) string {
	return fmt.Sprintf("estimated cost %s", fmtUSD(choice.Features.CostCents))
}

func fmtUSD(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
