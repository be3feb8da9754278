package verify_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tripsmith/tripsmith/runtime/telemetry"
	"github.com/tripsmith/tripsmith/runtime/verify"
	"github.com/tripsmith/tripsmith/travel"
)

// captureMetrics records counter emissions so tests can assert on names and
// tags.
type captureMetrics struct {
	mu       sync.Mutex
	counters map[string]float64
	tags     map[string][]string
}

func newCaptureMetrics() *captureMetrics {
	return &captureMetrics{
		counters: make(map[string]float64),
		tags:     make(map[string][]string),
	}
}

func (c *captureMetrics) IncCounter(name string, value float64, tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name] += value
	c.tags[name] = tags
}

func (c *captureMetrics) RecordTimer(name string, duration time.Duration, tags ...string) {}

func (c *captureMetrics) RecordGauge(name string, value float64, tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name] = value
	c.tags[name] = tags
}

func (c *captureMetrics) counter(name string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[name]
}

func parisIntent() travel.Intent {
	return travel.Intent{
		City: "Paris",
		Window: travel.DateWindow{
			Start: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC),
			Zone:  "Europe/Paris",
		},
		BudgetCents: 250_000,
		Airports:    []string{"CDG"},
		Prefs:       travel.Preferences{Themes: []string{"art"}},
	}
}

func parisDate(offset int) time.Time {
	loc, _ := time.LoadLocation("Europe/Paris")
	return time.Date(2025, 6, 1+offset, 0, 0, 0, 0, loc)
}

func window(startHour, startMin, endHour, endMin int) travel.TimeWindow {
	return travel.TimeWindow{
		StartMinute: travel.Clock(startHour, startMin),
		EndMinute:   travel.Clock(endHour, endMin),
	}
}

func slotOf(kind travel.ChoiceKind, ref string, w travel.TimeWindow, features travel.ChoiceFeatures) travel.Slot {
	return travel.Slot{
		Window:  w,
		Choices: []travel.Choice{{Kind: kind, OptionRef: ref, Features: features}},
	}
}

func defaultAssumptions() travel.Assumptions {
	return travel.Assumptions{
		FXRate:           1.0,
		DailySpendCents:  6_000,
		TransitBufferMin: 15,
		AirportBufferMin: 120,
	}
}

func stateWithPlan(intent travel.Intent, days ...travel.DayPlan) *travel.RunState {
	state := travel.NewRunState("trace-verify", "org-acme", "user-1", intent)
	state.Plan = &travel.Plan{
		Variant:     "convenience",
		Days:        days,
		Assumptions: defaultAssumptions(),
	}
	return state
}

func TestSuiteRunsVerifiersInOrder(t *testing.T) {
	intent := parisIntent()
	intent.BudgetCents = 10_000
	state := stateWithPlan(intent, travel.DayPlan{
		Date: parisDate(0),
		Slots: []travel.Slot{
			slotOf(travel.KindAttraction, "attr:outdoor", window(9, 0, 12, 0), travel.ChoiceFeatures{
				CostCents: 40_000,
				Indoor:    travel.No,
				Themes:    []string{"art"},
			}),
		},
	})
	state.Weather[travel.DateKey(parisDate(0))] = travel.WeatherDay{
		Date:       parisDate(0),
		PrecipProb: 0.85,
	}

	suite := verify.NewSuite()
	violations := suite.Run(context.Background(), state)

	require.Len(t, violations, 2)
	require.Equal(t, travel.ViolationBudget, violations[0].Kind, "budget verdict comes first")
	require.Equal(t, travel.ViolationWeather, violations[1].Kind)
	require.True(t, violations[0].Blocking)
	require.Empty(t, state.Violations, "Run must not mutate the state")
}

func TestSuiteCountsViolationsByKind(t *testing.T) {
	rec := newCaptureMetrics()
	intent := parisIntent()
	intent.BudgetCents = 10_000
	state := stateWithPlan(intent, travel.DayPlan{
		Date: parisDate(0),
		Slots: []travel.Slot{
			slotOf(travel.KindAttraction, "attr:pricey", window(9, 0, 12, 0), travel.ChoiceFeatures{
				CostCents: 90_000,
				Indoor:    travel.Yes,
				Themes:    []string{"art"},
			}),
		},
	})

	suite := verify.NewSuite(verify.WithInstruments(telemetry.NewInstruments(rec)))
	violations := suite.Run(context.Background(), state)

	require.Len(t, violations, 1)
	require.Equal(t, 1.0, rec.counter("verify.violation"))
	require.Equal(t, []string{"kind", "budget_exceeded", "severity", "blocking"}, rec.tags["verify.violation"])
}

func TestSuiteCleanPlanHasNoViolations(t *testing.T) {
	state := stateWithPlan(parisIntent(), travel.DayPlan{
		Date: parisDate(0),
		Slots: []travel.Slot{
			slotOf(travel.KindAttraction, "attr:orsay", window(9, 0, 12, 0), travel.ChoiceFeatures{
				CostCents: 2_500,
				Indoor:    travel.Yes,
				Themes:    []string{"art"},
			}),
			slotOf(travel.KindAttraction, "attr:rodin", window(14, 0, 17, 0), travel.ChoiceFeatures{
				CostCents: 2_500,
				Indoor:    travel.Yes,
				Themes:    []string{"art"},
			}),
		},
	})

	violations := verify.NewSuite().Run(context.Background(), state)
	require.Empty(t, violations)
}

func TestSuiteCustomVerifiers(t *testing.T) {
	state := stateWithPlan(parisIntent())
	suite := verify.NewSuite(verify.WithVerifiers(stubVerifier{}))

	violations := suite.Run(context.Background(), state)
	require.Len(t, violations, 1)
	require.Equal(t, travel.ViolationKind("stubbed"), violations[0].Kind)
}

type stubVerifier struct{}

func (stubVerifier) Name() string { return "stub" }

func (stubVerifier) Verify(*travel.RunState) []travel.Violation {
	return []travel.Violation{{Kind: "stubbed", NodeRef: "plan"}}
}
