package planner

import "github.com/tripsmith/tripsmith/travel"

// Variant names. Every run emits cost-conscious; the rest join as the
// intent's budget and themes unlock them.
const (
	VariantCostConscious = "cost-conscious"
	VariantConvenience   = "convenience"
	VariantExperience    = "experience"
	VariantRelaxed       = "relaxed"
)

// Budget gates for the optional variants, in USD cents.
const (
	convenienceBudgetCents = 100_000
	experienceBudgetCents  = 200_000
)

// variant bundles the knobs a fan-out strategy commits to: how much of the
// baseline price book it expects to spend and how densely it schedules days.
type variant struct {
	name     string
	costMult float64
	density  float64
}

// variantsFor returns the fan-out for an intent in emission order. The caller
// truncates to the configured cap.
func variantsFor(intent travel.Intent) []variant {
	out := []variant{{name: VariantCostConscious, costMult: 0.7, density: 0.8}}
	if intent.BudgetCents > convenienceBudgetCents {
		out = append(out, variant{name: VariantConvenience, costMult: 1.0, density: 1.0})
	}
	if intent.BudgetCents > experienceBudgetCents {
		out = append(out, variant{name: VariantExperience, costMult: 1.3, density: 1.1})
	}
	if len(intent.Prefs.Themes) > 1 {
		out = append(out, variant{name: VariantRelaxed, costMult: 0.9, density: 0.6})
	}
	return out
}
