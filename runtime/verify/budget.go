package verify

import (
	"github.com/tripsmith/tripsmith/runtime/telemetry"
	"github.com/tripsmith/tripsmith/travel"
)

// budgetSlippageNum and budgetSlippageDen encode the 10% slippage allowance
// as a ratio so the threshold comparison stays in integer cents.
const (
	budgetSlippageNum = 11
	budgetSlippageDen = 10
)

// Budget sums the selected choices plus the plan's daily spend estimate and
// compares the total against the intent's budget with 10% slippage. The
// delta against the budget is observed on every run, violation or not.
type Budget struct {
	ins *telemetry.Instruments
}

// NewBudget returns a budget verifier reporting through ins.
func NewBudget(ins *telemetry.Instruments) *Budget {
	if ins == nil {
		ins = telemetry.NewInstruments(nil)
	}
	return &Budget{ins: ins}
}

// Name implements Verifier.
func (b *Budget) Name() string { return "budget" }

// Verify implements Verifier. Meal slots count toward the attractions
// bucket.
func (b *Budget) Verify(state *travel.RunState) []travel.Violation {
	plan := state.Plan
	if plan == nil {
		return nil
	}
	var flights, lodging, attractions, transit int64
	for _, day := range plan.Days {
		for _, slot := range day.Slots {
			cost := slot.Selected().Features.CostCents
			switch slot.Kind() {
			case travel.KindFlight:
				flights += cost
			case travel.KindLodging:
				lodging += cost
			case travel.KindAttraction, travel.KindMeal:
				attractions += cost
			case travel.KindTransit:
				transit += cost
			}
		}
	}
	dailySpend := plan.Assumptions.DailySpendCents * int64(len(plan.Days))
	total := flights + lodging + attractions + transit + dailySpend

	budget := state.Intent.BudgetCents
	b.ins.ObserveBudgetDelta(total - budget)

	if total*budgetSlippageDen <= budget*budgetSlippageNum {
		return nil
	}
	return []travel.Violation{{
		Kind:     travel.ViolationBudget,
		NodeRef:  "plan",
		Blocking: true,
		Details: map[string]any{
			"flights_cents":     flights,
			"lodging_cents":     lodging,
			"attractions_cents": attractions,
			"transit_cents":     transit,
			"daily_spend_cents": dailySpend,
			"total_cents":       total,
			"budget_cents":      budget,
			"over_by_usd_cents": total - budget,
		},
	}}
}
