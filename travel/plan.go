package travel

import "time"

// ChoiceKind tags the domain a Choice belongs to.
type ChoiceKind string

const (
	// KindFlight is an air travel leg.
	KindFlight ChoiceKind = "flight"
	// KindLodging is an overnight stay.
	KindLodging ChoiceKind = "lodging"
	// KindAttraction is a visitable venue or activity.
	KindAttraction ChoiceKind = "attraction"
	// KindTransit is a ground transit leg.
	KindTransit ChoiceKind = "transit"
	// KindMeal is a restaurant or food activity.
	KindMeal ChoiceKind = "meal"
)

type (
	// Plan is a pre-itinerary structure of days and slots with ranked choices.
	// Plans are deterministic given the intent: Seed is derived from a stable
	// hash of the intent and two runs over equal inputs produce byte-equal
	// JSON.
	Plan struct {
		// Variant names the fan-out strategy that produced the plan.
		Variant string `json:"variant"`
		// Seed is the deterministic RNG seed the planner derived.
		Seed uint64 `json:"seed"`
		// Days holds the ordered day plans.
		Days []DayPlan `json:"days"`
		// Assumptions carries plan-level estimates shared by all days.
		Assumptions Assumptions `json:"assumptions"`
	}

	// DayPlan is one date with its ordered slots. Slots within a day never
	// overlap in their time windows.
	DayPlan struct {
		Date  time.Time `json:"date"`
		Slots []Slot    `json:"slots"`
	}

	// Slot assigns a time window to a ranked list of choices. The first choice
	// is the selected option; the remainder are alternatives in rank order.
	Slot struct {
		Window TimeWindow `json:"window"`
		// Locked marks a user-pinned slot the planner must not move.
		Locked bool `json:"locked,omitempty"`
		// ActivityRef carries the user-supplied reference for locked slots.
		ActivityRef string `json:"activity_ref,omitempty"`
		// Choices is non-empty; index 0 is the selected option.
		Choices []Choice `json:"choices"`
	}

	// Choice is a ranked option for a slot.
	Choice struct {
		Kind ChoiceKind `json:"kind"`
		// OptionRef is an opaque identifier into the tool-result stores.
		OptionRef string `json:"option_ref"`
		// Features is the only surface the selector and verifiers read.
		Features ChoiceFeatures `json:"features"`
		// Score is set by the selector on scored candidates.
		Score *float64 `json:"score,omitempty"`
		// Provenance records where the choice came from.
		Provenance Provenance `json:"provenance"`
	}

	// ChoiceFeatures is the numeric and categorical summary used for scoring
	// and verification. Raw tool-result fields are off-limits outside the
	// feature mapper.
	ChoiceFeatures struct {
		// CostCents is the option's cost in USD cents. Required.
		CostCents int64 `json:"cost_cents"`
		// TravelSeconds is the travel duration, when applicable.
		TravelSeconds *int64 `json:"travel_seconds,omitempty"`
		// Indoor reports whether the activity happens indoors.
		Indoor TriState `json:"indoor"`
		// Themes lists the option's activity themes.
		Themes []string `json:"themes,omitempty"`
	}

	// Assumptions carries the plan-level estimates a variant committed to.
	Assumptions struct {
		// FXRate is the assumed USD conversion rate for local prices.
		FXRate float64 `json:"fx_rate"`
		// DailySpendCents estimates daily discretionary spend.
		DailySpendCents int64 `json:"daily_spend_cents"`
		// TransitBufferMin is the default gap required between slots.
		TransitBufferMin int `json:"transit_buffer_min"`
		// AirportBufferMin is the gap required after a flight slot.
		AirportBufferMin int `json:"airport_buffer_min"`
	}
)

// Selected returns the slot's selected (first) choice. The slot must hold at
// least one choice, which planning guarantees.
func (s Slot) Selected() Choice { return s.Choices[0] }

// Kind returns the selected choice's kind.
func (s Slot) Kind() ChoiceKind { return s.Choices[0].Kind }

// Clone deep-copies the plan so repair can mutate a successor while the
// pre-repair snapshot stays intact.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	out := *p
	out.Days = make([]DayPlan, len(p.Days))
	for i, d := range p.Days {
		nd := d
		nd.Slots = make([]Slot, len(d.Slots))
		for j, s := range d.Slots {
			ns := s
			ns.Choices = make([]Choice, len(s.Choices))
			copy(ns.Choices, s.Choices)
			for k := range ns.Choices {
				ns.Choices[k].Features = cloneFeatures(s.Choices[k].Features)
				if s.Choices[k].Score != nil {
					score := *s.Choices[k].Score
					ns.Choices[k].Score = &score
				}
			}
			nd.Slots[j] = ns
		}
		out.Days[i] = nd
	}
	return &out
}

// SlotCount returns the total number of slots across all days.
func (p *Plan) SlotCount() int {
	n := 0
	for _, d := range p.Days {
		n += len(d.Slots)
	}
	return n
}

func cloneFeatures(f ChoiceFeatures) ChoiceFeatures {
	out := f
	if f.TravelSeconds != nil {
		secs := *f.TravelSeconds
		out.TravelSeconds = &secs
	}
	if f.Themes != nil {
		out.Themes = append([]string(nil), f.Themes...)
	}
	return out
}
