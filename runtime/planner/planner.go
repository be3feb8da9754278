// Package planner fans a validated intent out into candidate trip plans.
//
// Planning is deterministic and offline. The seed derives from a stable hash
// of the intent, estimates come from a fixed price book scaled per variant,
// and equal intents yield byte-equal candidate lists. Real option data
// arrives later when the fetch stage resolves the option refs minted here.
package planner

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/tripsmith/tripsmith/settings"
	"github.com/tripsmith/tripsmith/travel"
)

// Baseline price book in USD cents. Variants scale these by their cost
// multiplier.
const (
	baseFlightCents       int64 = 45_000
	baseLodgingNightCents int64 = 18_000
	baseAttractionCents   int64 = 2_500
	baseDailySpendCents   int64 = 6_000
)

// flightTravelSecondsBase is the baseline flight duration estimate. Cheaper
// fares assume longer routings, so the estimate divides by the cost
// multiplier.
const flightTravelSecondsBase = 5400

// Planning day range. A window shorter than the floor is planned in full.
const (
	minPlanDays = 4
	maxPlanDays = 7
)

// Fixed day-part windows generated slots may occupy. The arrival flight
// lands in the morning of day zero and lodging occupies each night; the
// buckets fill in order as the variant's density allows.
var (
	flightWindow  = travel.TimeWindow{StartMinute: travel.Clock(8, 0), EndMinute: travel.Clock(11, 0)}
	lodgingWindow = travel.TimeWindow{StartMinute: travel.Clock(22, 0), EndMinute: travel.Clock(23, 0)}

	dayBuckets = []dayBucket{
		{name: "morning", window: travel.TimeWindow{StartMinute: travel.Clock(9, 0), EndMinute: travel.Clock(12, 0)}},
		{name: "afternoon", window: travel.TimeWindow{StartMinute: travel.Clock(13, 30), EndMinute: travel.Clock(17, 30)}},
		{name: "evening", window: travel.TimeWindow{StartMinute: travel.Clock(19, 0), EndMinute: travel.Clock(21, 30)}},
	}
)

type (
	// Planner builds candidate plans from an intent. Construct with New.
	Planner struct {
		cfg settings.Settings
	}

	// Option customizes a Planner.
	Option func(*Planner)

	// dayBucket is a named fillable day part.
	dayBucket struct {
		name   string
		window travel.TimeWindow
	}
)

// WithSettings overrides the default settings.
func WithSettings(cfg settings.Settings) Option {
	return func(p *Planner) { p.cfg = cfg }
}

// New returns a Planner with the given options applied.
func New(opts ...Option) *Planner {
	p := &Planner{cfg: settings.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// BuildCandidatePlans fans the intent out into 1..fanout_cap candidate
// plans. Guarantees for every returned plan:
//
//   - slots within a day never overlap,
//   - every locked slot from the intent appears verbatim with locked=true,
//   - every slot carries at least one choice with the first selected,
//   - equal intents produce byte-equal candidate lists.
func (p *Planner) BuildCandidatePlans(intent travel.Intent) ([]travel.Plan, error) {
	if err := intent.Validate(); err != nil {
		return nil, fmt.Errorf("plan candidates: %w", err)
	}
	loc, err := intent.Window.Location()
	if err != nil {
		return nil, fmt.Errorf("plan candidates: %w", err)
	}

	seed := Seed(intent)
	days := dayCount(intent)
	variants := variantsFor(intent)
	if n := p.cfg.FanoutCap; len(variants) > n {
		variants = variants[:n]
	}

	plans := make([]travel.Plan, 0, len(variants))
	for _, v := range variants {
		plans = append(plans, p.buildPlan(intent, v, seed, days, loc))
	}
	return plans, nil
}

// dayCount clamps the window length into [minPlanDays, maxPlanDays] without
// exceeding the window, then extends past the ceiling when a locked slot
// pins a later day. Intent validation guarantees locked offsets stay inside
// the window.
func dayCount(intent travel.Intent) int {
	window := intent.Window.Days()
	days := window
	if days < minPlanDays {
		days = minPlanDays
	}
	if days > maxPlanDays {
		days = maxPlanDays
	}
	if days > window {
		days = window
	}
	for _, ls := range intent.Prefs.Locked {
		if ls.DayOffset+1 > days {
			days = ls.DayOffset + 1
		}
	}
	return days
}

func (p *Planner) buildPlan(intent travel.Intent, v variant, seed uint64, days int, loc *time.Location) travel.Plan {
	start := intent.Window.Start.In(loc)
	anchor := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)

	airports := append([]string(nil), intent.Airports...)
	sort.Strings(airports)
	themes := append([]string(nil), intent.Prefs.Themes...)
	sort.Strings(themes)

	bucketCount := int(math.Floor(v.density * float64(len(dayBuckets))))
	if bucketCount > len(dayBuckets) {
		bucketCount = len(dayBuckets)
	}

	plan := travel.Plan{
		Variant: v.name,
		Seed:    seed,
		Assumptions: travel.Assumptions{
			FXRate:           1.0,
			DailySpendCents:  scaleCents(baseDailySpendCents, v.costMult),
			TransitBufferMin: p.cfg.TransitBufferMin,
			AirportBufferMin: p.cfg.AirportBufferMin,
		},
	}

	for day := 0; day < days; day++ {
		dp := travel.DayPlan{Date: anchor.AddDate(0, 0, day)}
		for _, ls := range intent.Prefs.Locked {
			if ls.DayOffset == day {
				dp.Slots = append(dp.Slots, lockedSlot(ls))
			}
		}
		if day == 0 {
			dp.Slots = placeSlot(dp.Slots, flightWindow, flightChoices(airports, v))
		}
		if day < days-1 {
			dp.Slots = placeSlot(dp.Slots, lodgingWindow, []travel.Choice{lodgingChoice(v)})
		}
		for b := 0; b < bucketCount; b++ {
			dp.Slots = placeSlot(dp.Slots, dayBuckets[b].window, []travel.Choice{attractionChoice(v, seed, day, b, themes)})
		}
		sort.SliceStable(dp.Slots, func(i, j int) bool {
			return dp.Slots[i].Window.StartMinute < dp.Slots[j].Window.StartMinute
		})
		plan.Days = append(plan.Days, dp)
	}
	return plan
}

// placeSlot appends a slot for the window unless an existing slot overlaps
// it. Skipping on conflict keeps day-level non-overlap by construction:
// locked slots land first and win every contest.
func placeSlot(slots []travel.Slot, w travel.TimeWindow, choices []travel.Choice) []travel.Slot {
	for _, s := range slots {
		if s.Window.Overlaps(w) {
			return slots
		}
	}
	return append(slots, travel.Slot{Window: w, Choices: choices})
}

// lockedSlot reproduces a user pin verbatim. The single choice keeps the
// slot invariant satisfied and routes the user's reference through the
// option-ref machinery.
func lockedSlot(ls travel.LockedSlot) travel.Slot {
	return travel.Slot{
		Window:      ls.Window,
		Locked:      true,
		ActivityRef: ls.ActivityRef,
		Choices: []travel.Choice{{
			Kind:       travel.KindAttraction,
			OptionRef:  ls.ActivityRef,
			Provenance: travel.Provenance{Source: travel.SourceUser, RefID: ls.ActivityRef},
		}},
	}
}

// flightChoices ranks one arrival option per candidate airport, sorted so
// the first airport is the selected choice.
func flightChoices(airports []string, v variant) []travel.Choice {
	out := make([]travel.Choice, 0, len(airports))
	for _, ap := range airports {
		secs := int64(float64(flightTravelSecondsBase) / v.costMult)
		out = append(out, travel.Choice{
			Kind:      travel.KindFlight,
			OptionRef: fmt.Sprintf("flight:%s:%s", ap, v.name),
			Features: travel.ChoiceFeatures{
				CostCents:     scaleCents(baseFlightCents, v.costMult),
				TravelSeconds: &secs,
			},
			Provenance: travel.Provenance{Source: travel.SourcePlanner},
		})
	}
	return out
}

// lodgingChoice references the variant's hotel. The same option ref across
// nights means one booking; its occurrence count is the number of nights.
func lodgingChoice(v variant) travel.Choice {
	return travel.Choice{
		Kind:      travel.KindLodging,
		OptionRef: "lodging:" + v.name,
		Features: travel.ChoiceFeatures{
			CostCents: scaleCents(baseLodgingNightCents, v.costMult),
			Indoor:    travel.Yes,
		},
		Provenance: travel.Provenance{Source: travel.SourcePlanner},
	}
}

// attractionChoice fills a day bucket with a themed placeholder. The theme
// rotates through the sorted intent themes using the seed so candidates stay
// deterministic yet varied.
func attractionChoice(v variant, seed uint64, day, b int, themes []string) travel.Choice {
	c := travel.Choice{
		Kind:      travel.KindAttraction,
		OptionRef: fmt.Sprintf("attr:%s:d%d:%s", v.name, day, dayBuckets[b].name),
		Features: travel.ChoiceFeatures{
			CostCents: scaleCents(baseAttractionCents, v.costMult),
		},
		Provenance: travel.Provenance{Source: travel.SourcePlanner},
	}
	if len(themes) > 0 {
		idx := (seed + uint64(day*len(dayBuckets)+b)) % uint64(len(themes))
		c.Features.Themes = []string{themes[idx]}
	}
	return c
}

func scaleCents(base int64, mult float64) int64 {
	return int64(math.Round(float64(base) * mult))
}
