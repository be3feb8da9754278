package verify

import (
	"github.com/tripsmith/tripsmith/runtime/telemetry"
	"github.com/tripsmith/tripsmith/travel"
)

// Bad-weather thresholds. A day is bad when either is met.
const (
	precipThreshold  = 0.60
	windThresholdKMH = 30.0
)

// Weather conditions carried in violation details.
const (
	ConditionOutdoorBadWeather = "outdoor_activity_bad_weather"
	ConditionUncertainWeather  = "uncertain_weather"
)

// Weather flags slots scheduled on days with bad forecasts. Outdoor slots
// block; slots whose indoor status is unknown draw an advisory; indoor
// slots pass. Days with no forecast in the weather dictionary are silent.
type Weather struct {
	ins *telemetry.Instruments
}

// NewWeather returns a weather verifier reporting through ins.
func NewWeather(ins *telemetry.Instruments) *Weather {
	if ins == nil {
		ins = telemetry.NewInstruments(nil)
	}
	return &Weather{ins: ins}
}

// Name implements Verifier.
func (w *Weather) Name() string { return "weather" }

// Verify implements Verifier.
func (w *Weather) Verify(state *travel.RunState) []travel.Violation {
	plan := state.Plan
	if plan == nil {
		return nil
	}
	var out []travel.Violation
	for _, day := range plan.Days {
		forecast, ok := state.Weather[travel.DateKey(day.Date)]
		if !ok || !badWeather(forecast) {
			continue
		}
		for _, slot := range day.Slots {
			choice := slot.Selected()
			switch choice.Features.Indoor {
			case travel.No:
				w.ins.IncWeatherBlocking()
				out = append(out, w.violation(choice, forecast, ConditionOutdoorBadWeather, true))
			case travel.Unknown:
				w.ins.IncWeatherAdvisory()
				out = append(out, w.violation(choice, forecast, ConditionUncertainWeather, false))
			}
		}
	}
	return out
}

func badWeather(d travel.WeatherDay) bool {
	return d.PrecipProb >= precipThreshold || d.WindKMH >= windThresholdKMH
}

func (w *Weather) violation(choice travel.Choice, forecast travel.WeatherDay, condition string, blocking bool) travel.Violation {
	return travel.Violation{
		Kind:     travel.ViolationWeather,
		NodeRef:  choice.OptionRef,
		Blocking: blocking,
		Details: map[string]any{
			"condition":   condition,
			"date":        travel.DateKey(forecast.Date),
			"precip_prob": forecast.PrecipProb,
			"wind_kmh":    forecast.WindKMH,
		},
	}
}
