package repair_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/tripsmith/tripsmith/runtime/repair"
	"github.com/tripsmith/tripsmith/travel"
)

type repairCase struct {
	plan       *travel.Plan
	violations []travel.Violation
}

// genRepairCase generates plans of varying shape alongside violation mixes
// drawn from every category, including refs that do not resolve to a slot.
func genRepairCase() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(1, 6),  // days
		gen.Bool(),          // nightly lodging present
		gen.IntRange(0, 6),  // outdoor attraction count
		gen.IntRange(0, 31), // violation kind bitmask
		gen.Bool(),          // point the weather violation at a real slot
	).Map(func(vals []interface{}) repairCase {
		days := vals[0].(int)
		lodging := vals[1].(bool)
		outdoor := vals[2].(int)
		mask := vals[3].(int)
		realRef := vals[4].(bool)

		plan := &travel.Plan{Variant: "convenience", Days: make([]travel.DayPlan, days)}
		for d := 0; d < days; d++ {
			plan.Days[d].Date = date(d)
			indoor := travel.Yes
			if d < outdoor {
				indoor = travel.No
			}
			plan.Days[d].Slots = append(plan.Days[d].Slots, travel.Slot{
				Window:  window(9, 12),
				Choices: []travel.Choice{choice(travel.KindAttraction, refForDay(d), 2_500, indoor)},
			})
			if lodging && d < days-1 {
				plan.Days[d].Slots = append(plan.Days[d].Slots, travel.Slot{
					Window:  window(22, 23),
					Choices: []travel.Choice{choice(travel.KindLodging, "lodging:convenience", 18_000, travel.Yes)},
				})
			}
		}

		weatherRef := "attr:unresolved"
		if realRef {
			weatherRef = refForDay(0)
		}
		var violations []travel.Violation
		if mask&1 != 0 {
			violations = append(violations, budgetViolation())
		}
		if mask&2 != 0 {
			violations = append(violations, weatherViolation(weatherRef))
		}
		if mask&4 != 0 {
			violations = append(violations, travel.Violation{Kind: travel.ViolationTiming, NodeRef: refForDay(0), Blocking: true})
		}
		if mask&8 != 0 {
			violations = append(violations, travel.Violation{Kind: travel.ViolationVenueClosed, NodeRef: refForDay(0), Blocking: true})
		}
		if mask&16 != 0 {
			violations = append(violations, travel.Violation{Kind: travel.ViolationPreference, NodeRef: "plan", Blocking: false})
		}
		return repairCase{plan: plan, violations: violations}
	})
}

func TestRepairProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	engine := repair.New()

	properties.Property("cycles and moves stay within budget", prop.ForAll(
		func(c repairCase) bool {
			out := engine.Repair(context.Background(), c.plan, c.violations)
			if out.CyclesRun < 0 || out.CyclesRun > 3 {
				return false
			}
			if out.MovesApplied != len(out.Diffs) {
				return false
			}
			return out.MovesApplied <= out.CyclesRun*2
		},
		genRepairCase(),
	))

	properties.Property("reuse ratio is a valid fraction", prop.ForAll(
		func(c repairCase) bool {
			out := engine.Repair(context.Background(), c.plan, c.violations)
			return out.ReuseRatio >= 0 && out.ReuseRatio <= 1
		},
		genRepairCase(),
	))

	properties.Property("the input plan never mutates", prop.ForAll(
		func(c repairCase) bool {
			before, err := json.Marshal(c.plan)
			if err != nil {
				return false
			}
			engine.Repair(context.Background(), c.plan, c.violations)
			after, err := json.Marshal(c.plan)
			if err != nil {
				return false
			}
			return string(before) == string(after)
		},
		genRepairCase(),
	))

	properties.Property("plan shape survives repair", prop.ForAll(
		func(c repairCase) bool {
			out := engine.Repair(context.Background(), c.plan, c.violations)
			if len(out.PlanAfter.Days) != len(c.plan.Days) {
				return false
			}
			for i := range c.plan.Days {
				if len(out.PlanAfter.Days[i].Slots) != len(c.plan.Days[i].Slots) {
					return false
				}
			}
			return true
		},
		genRepairCase(),
	))

	properties.Property("success means no blocking violation remains", prop.ForAll(
		func(c repairCase) bool {
			out := engine.Repair(context.Background(), c.plan, c.violations)
			return out.Success == (travel.CountBlocking(out.Remaining) == 0)
		},
		genRepairCase(),
	))

	properties.TestingRun(t)
}
