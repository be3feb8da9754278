package verify_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tripsmith/tripsmith/runtime/telemetry"
	"github.com/tripsmith/tripsmith/runtime/verify"
	"github.com/tripsmith/tripsmith/travel"
)

func rainyDay(state *travel.RunState, offset int, precip, wind float64) {
	date := parisDate(offset)
	state.Weather[travel.DateKey(date)] = travel.WeatherDay{
		Date:       date,
		PrecipProb: precip,
		WindKMH:    wind,
	}
}

func TestWeatherClassifiesSlotsByIndoorStatus(t *testing.T) {
	state := stateWithPlan(parisIntent(), travel.DayPlan{
		Date: parisDate(0),
		Slots: []travel.Slot{
			slotOf(travel.KindAttraction, "attr:gardens", window(9, 0, 12, 0), travel.ChoiceFeatures{Indoor: travel.No}),
			slotOf(travel.KindAttraction, "attr:mystery", window(13, 30, 17, 30), travel.ChoiceFeatures{Indoor: travel.Unknown}),
			slotOf(travel.KindAttraction, "attr:orsay", window(19, 0, 21, 30), travel.ChoiceFeatures{Indoor: travel.Yes}),
		},
	})
	rainyDay(state, 0, 0.80, 10)

	violations := verify.NewWeather(nil).Verify(state)
	require.Len(t, violations, 2)

	blocking := violations[0]
	require.Equal(t, travel.ViolationWeather, blocking.Kind)
	require.True(t, blocking.Blocking)
	require.Equal(t, "attr:gardens", blocking.NodeRef)
	require.Equal(t, verify.ConditionOutdoorBadWeather, blocking.Details["condition"])

	advisory := violations[1]
	require.False(t, advisory.Blocking)
	require.Equal(t, "attr:mystery", advisory.NodeRef)
	require.Equal(t, verify.ConditionUncertainWeather, advisory.Details["condition"])
}

func TestWeatherFairDayIsSilent(t *testing.T) {
	state := stateWithPlan(parisIntent(), travel.DayPlan{
		Date: parisDate(0),
		Slots: []travel.Slot{
			slotOf(travel.KindAttraction, "attr:gardens", window(9, 0, 12, 0), travel.ChoiceFeatures{Indoor: travel.No}),
		},
	})
	rainyDay(state, 0, 0.40, 12)

	require.Empty(t, verify.NewWeather(nil).Verify(state))
}

func TestWeatherUnknownForecastIsSilent(t *testing.T) {
	state := stateWithPlan(parisIntent(), travel.DayPlan{
		Date: parisDate(0),
		Slots: []travel.Slot{
			slotOf(travel.KindAttraction, "attr:gardens", window(9, 0, 12, 0), travel.ChoiceFeatures{Indoor: travel.No}),
		},
	})

	require.Empty(t, verify.NewWeather(nil).Verify(state), "days without a forecast draw no violations")
}

func TestWeatherWindAloneIsBad(t *testing.T) {
	state := stateWithPlan(parisIntent(), travel.DayPlan{
		Date: parisDate(0),
		Slots: []travel.Slot{
			slotOf(travel.KindAttraction, "attr:gardens", window(9, 0, 12, 0), travel.ChoiceFeatures{Indoor: travel.No}),
		},
	})
	rainyDay(state, 0, 0.10, 45)

	violations := verify.NewWeather(nil).Verify(state)
	require.Len(t, violations, 1)
	require.True(t, violations[0].Blocking)
	require.Equal(t, 45.0, violations[0].Details["wind_kmh"])
}

func TestWeatherThresholdsAreInclusive(t *testing.T) {
	state := stateWithPlan(parisIntent(), travel.DayPlan{
		Date: parisDate(0),
		Slots: []travel.Slot{
			slotOf(travel.KindAttraction, "attr:gardens", window(9, 0, 12, 0), travel.ChoiceFeatures{Indoor: travel.No}),
		},
	})
	rainyDay(state, 0, 0.60, 0)

	require.Len(t, verify.NewWeather(nil).Verify(state), 1, "precip at exactly 0.60 counts as bad")
}

func TestWeatherOnlyBadDaysChecked(t *testing.T) {
	state := stateWithPlan(parisIntent(),
		travel.DayPlan{
			Date: parisDate(0),
			Slots: []travel.Slot{
				slotOf(travel.KindAttraction, "attr:gardens", window(9, 0, 12, 0), travel.ChoiceFeatures{Indoor: travel.No}),
			},
		},
		travel.DayPlan{
			Date: parisDate(1),
			Slots: []travel.Slot{
				slotOf(travel.KindAttraction, "attr:terrace", window(9, 0, 12, 0), travel.ChoiceFeatures{Indoor: travel.No}),
			},
		},
	)
	rainyDay(state, 1, 0.90, 20)

	violations := verify.NewWeather(nil).Verify(state)
	require.Len(t, violations, 1)
	require.Equal(t, "attr:terrace", violations[0].NodeRef)
	require.Equal(t, travel.DateKey(parisDate(1)), violations[0].Details["date"])
}

func TestWeatherMetrics(t *testing.T) {
	rec := newCaptureMetrics()
	state := stateWithPlan(parisIntent(), travel.DayPlan{
		Date: parisDate(0),
		Slots: []travel.Slot{
			slotOf(travel.KindAttraction, "attr:gardens", window(9, 0, 12, 0), travel.ChoiceFeatures{Indoor: travel.No}),
			slotOf(travel.KindAttraction, "attr:mystery", window(13, 30, 17, 30), travel.ChoiceFeatures{Indoor: travel.Unknown}),
		},
	})
	rainyDay(state, 0, 0.80, 10)

	verify.NewWeather(telemetry.NewInstruments(rec)).Verify(state)
	require.Equal(t, 1.0, rec.counter("verify.weather.blocking"))
	require.Equal(t, 1.0, rec.counter("verify.weather.advisory"))
}
