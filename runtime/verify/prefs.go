package verify

import (
	"time"

	"github.com/tripsmith/tripsmith/runtime/telemetry"
	"github.com/tripsmith/tripsmith/travel"
)

// lateNightCutoffMinute is the latest acceptable end for a kid-friendly
// activity.
const lateNightCutoffMinute = 20 * 60

// Preference names carried in violation details and metric tags.
const (
	PrefAvoidOvernight = "avoid_overnight"
	PrefKidFriendly    = "kid_friendly"
	PrefThemes         = "themes"
)

// Preferences enforces the intent's hard preferences and surfaces theme
// drift. Overnight flights and late or unsuitable activities on a
// kid-friendly trip block; unknown kid-friendliness and weak theme coverage
// draw advisories.
type Preferences struct {
	ins *telemetry.Instruments
}

// NewPreferences returns a preference verifier reporting through ins.
func NewPreferences(ins *telemetry.Instruments) *Preferences {
	if ins == nil {
		ins = telemetry.NewInstruments(nil)
	}
	return &Preferences{ins: ins}
}

// Name implements Verifier.
func (p *Preferences) Name() string { return "preferences" }

// Verify implements Verifier.
func (p *Preferences) Verify(state *travel.RunState) []travel.Violation {
	plan := state.Plan
	if plan == nil {
		return nil
	}
	prefs := state.Intent.Prefs
	var out []travel.Violation
	attractionSlots, themeMatched := 0, 0
	for _, day := range plan.Days {
		for _, slot := range day.Slots {
			choice := slot.Selected()
			switch choice.Kind {
			case travel.KindFlight:
				if v, ok := p.checkOvernight(state, choice); ok {
					out = append(out, v)
				}
			case travel.KindAttraction, travel.KindMeal:
				if v, ok := p.checkLateNight(prefs, day.Date, slot); ok {
					out = append(out, v)
				}
				if choice.Kind != travel.KindAttraction {
					continue
				}
				attractionSlots++
				if sharesTheme(choice.Features.Themes, prefs.Themes) {
					themeMatched++
				}
				if v, ok := p.checkKidSuitability(state, prefs, choice); ok {
					out = append(out, v)
				}
			}
		}
	}
	if v, ok := p.checkThemeCoverage(prefs, attractionSlots, themeMatched); ok {
		out = append(out, v)
	}
	return out
}

func (p *Preferences) checkOvernight(state *travel.RunState, choice travel.Choice) (travel.Violation, bool) {
	if !state.Intent.Prefs.AvoidOvernight {
		return travel.Violation{}, false
	}
	flight, ok := state.Flights[choice.OptionRef]
	if !ok || !flight.Overnight {
		return travel.Violation{}, false
	}
	p.ins.IncPrefViolation(PrefAvoidOvernight)
	return travel.Violation{
		Kind:     travel.ViolationPreference,
		NodeRef:  choice.OptionRef,
		Blocking: true,
		Details: map[string]any{
			"pref":   PrefAvoidOvernight,
			"reason": "overnight_flight",
			"flight": flight.Airline + " " + flight.Number,
		},
	}, true
}

func (p *Preferences) checkLateNight(prefs travel.Preferences, date time.Time, slot travel.Slot) (travel.Violation, bool) {
	if !prefs.KidFriendly || slot.Window.EndMinute <= lateNightCutoffMinute {
		return travel.Violation{}, false
	}
	p.ins.IncPrefViolation(PrefKidFriendly)
	return travel.Violation{
		Kind:     travel.ViolationPreference,
		NodeRef:  slot.Selected().OptionRef,
		Blocking: true,
		Details: map[string]any{
			"pref":        PrefKidFriendly,
			"reason":      "late_night_activity",
			"date":        travel.DateKey(date),
			"slot_window": slot.Window.String(),
		},
	}, true
}

func (p *Preferences) checkKidSuitability(state *travel.RunState, prefs travel.Preferences, choice travel.Choice) (travel.Violation, bool) {
	if !prefs.KidFriendly {
		return travel.Violation{}, false
	}
	attr, ok := state.Attractions[choice.OptionRef]
	if !ok || attr.KidFriendly == travel.Yes {
		return travel.Violation{}, false
	}
	blocking := attr.KidFriendly == travel.No
	reason := "kid_friendliness_unknown"
	if blocking {
		reason = "not_kid_friendly"
	}
	p.ins.IncPrefViolation(PrefKidFriendly)
	return travel.Violation{
		Kind:     travel.ViolationPreference,
		NodeRef:  choice.OptionRef,
		Blocking: blocking,
		Details: map[string]any{
			"pref":   PrefKidFriendly,
			"reason": reason,
			"venue":  attr.Name,
		},
	}, true
}

// checkThemeCoverage draws an advisory when fewer than half of the
// attraction slots share a theme with the intent.
func (p *Preferences) checkThemeCoverage(prefs travel.Preferences, attractionSlots, themeMatched int) (travel.Violation, bool) {
	if len(prefs.Themes) == 0 || attractionSlots == 0 || themeMatched*2 >= attractionSlots {
		return travel.Violation{}, false
	}
	p.ins.IncPrefViolation(PrefThemes)
	return travel.Violation{
		Kind:     travel.ViolationPreference,
		NodeRef:  "plan",
		Blocking: false,
		Details: map[string]any{
			"pref":             PrefThemes,
			"reason":           "weak_theme_coverage",
			"matched_slots":    themeMatched,
			"attraction_slots": attractionSlots,
			"themes":           prefs.Themes,
		},
	}, true
}

func sharesTheme(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}
