package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tripsmith/tripsmith/runtime/repair"
	"github.com/tripsmith/tripsmith/runtime/stream"
	"github.com/tripsmith/tripsmith/travel"
)

// stageIntent gates the run on a structurally valid intent. Everything
// downstream assumes validation already happened.
func (p *Pipeline) stageIntent(_ context.Context, state *travel.RunState) (string, error) {
	if err := state.Intent.Validate(); err != nil {
		return "", err
	}
	return fmt.Sprintf("intent accepted: %s, %d days, budget %s",
		state.Intent.City, state.Intent.Window.Days(), usd(state.Intent.BudgetCents)), nil
}

func (p *Pipeline) stagePlanner(_ context.Context, state *travel.RunState) (string, error) {
	candidates, err := p.planner.BuildCandidatePlans(state.Intent)
	if err != nil {
		return "", err
	}
	state.Candidates = candidates
	state.Seed = candidates[0].Seed

	variants := make([]string, 0, len(candidates))
	for _, c := range candidates {
		variants = append(variants, c.Variant)
	}
	return fmt.Sprintf("planned %d candidates: %s", len(candidates), strings.Join(variants, ", ")), nil
}

// stageSelector ranks the candidates and adopts a clone of the winner, so
// later stages can mutate the selected plan without touching the fan-out.
func (p *Pipeline) stageSelector(ctx context.Context, state *travel.RunState) (string, error) {
	ranked := p.selector.Score(ctx, state.Candidates, state.Intent)
	if len(ranked) == 0 {
		return "", errors.New("no candidate plans to select from")
	}
	winner := ranked[0]
	state.Plan = winner.Plan.Clone()
	return fmt.Sprintf("selected %q from %d candidates (score %.2f)",
		winner.Plan.Variant, len(ranked), winner.Score), nil
}

func (p *Pipeline) stageVerify(ctx context.Context, state *travel.RunState) (string, error) {
	if state.Plan == nil {
		return "", errors.New("no plan selected")
	}
	violations := p.verifier.Run(ctx, state)
	state.Violations = violations
	return fmt.Sprintf("%d violations, %d blocking",
		len(violations), travel.CountBlocking(violations)), nil
}

// stageRepair hands the plan and the verifier findings to the repair engine,
// then records the outcome: the repaired plan replaces the selected one, the
// pre-repair plan is retained as the diff snapshot, and every diff is
// appended to the progress log and streamed.
func (p *Pipeline) stageRepair(ctx context.Context, state *travel.RunState) (string, error) {
	if state.Plan == nil {
		return "", errors.New("no plan selected")
	}
	blocking := travel.CountBlocking(state.Violations)

	eng := p.repairer
	if p.cfg.RepairRecheck {
		eng = repair.New(
			repair.WithInstruments(p.ins),
			repair.WithLogger(p.logger),
			repair.WithRecheck(p.recheck(ctx, state)),
		)
	}

	out := eng.Repair(ctx, state.Plan, state.Violations)
	state.Repair.Snapshot = state.Plan
	state.Plan = out.PlanAfter
	state.Violations = out.Remaining
	state.Repair.CyclesRun = out.CyclesRun
	state.Repair.MovesApplied = out.MovesApplied
	state.Repair.ReuseRatio = out.ReuseRatio

	for _, d := range out.Diffs {
		msg := diffSummary(d)
		state.AppendMessage(msg)
		p.emit(ctx, state, NodeRepair, stream.StatusRunning, msg)
	}

	switch {
	case blocking == 0 && out.MovesApplied == 0:
		return "no blocking violations, plan kept as selected", nil
	case out.MovesApplied == 0:
		return fmt.Sprintf("no applicable moves for %d blocking violations", blocking), nil
	default:
		return fmt.Sprintf("applied %d moves over %d cycles, %.0f%% selections reused, %d violations remain",
			out.MovesApplied, out.CyclesRun, out.ReuseRatio*100, len(out.Remaining)), nil
	}
}

// recheck builds the between-cycle verification hook. The probe shares the
// run's read-only dictionaries; Suite.Run never mutates its argument.
func (p *Pipeline) recheck(ctx context.Context, state *travel.RunState) repair.Recheck {
	return func(plan *travel.Plan) []travel.Violation {
		probe := *state
		probe.Plan = plan
		return p.verifier.Run(ctx, &probe)
	}
}

func (p *Pipeline) stageSynthesize(ctx context.Context, state *travel.RunState) (string, error) {
	itinerary, err := p.synth.Build(ctx, state)
	if err != nil {
		return "", err
	}
	state.Itinerary = itinerary
	return fmt.Sprintf("itinerary drafted: %d days, %d citations, total %s",
		len(itinerary.Days), len(itinerary.Citations), usd(itinerary.Costs.TotalCents)), nil
}

// stageRespond archives the itinerary, seals the run state and authors the
// message a client shows the traveler.
func (p *Pipeline) stageRespond(ctx context.Context, state *travel.RunState) (string, error) {
	if state.Itinerary == nil {
		return "", errors.New("no itinerary synthesized")
	}
	if err := p.artifacts.Put(ctx, *state.Itinerary); err != nil {
		return "", fmt.Errorf("archive itinerary: %w", err)
	}
	state.Done = true

	msg := fmt.Sprintf("itinerary ready: %d days in %s for %s",
		len(state.Itinerary.Days), state.Intent.City, usd(state.Itinerary.Costs.TotalCents))
	if blocking := travel.CountBlocking(state.Violations); blocking > 0 {
		msg += fmt.Sprintf(" (%d unresolved blocking violations)", blocking)
	}
	return msg, nil
}

// diffSummary renders one repair diff as a single progress-log line.
func diffSummary(d repair.Diff) string {
	var b strings.Builder
	fmt.Fprintf(&b, "repair %s day %d", d.Move, d.Day)
	if d.Slot != nil {
		fmt.Fprintf(&b, " slot %d", *d.Slot)
	}
	fmt.Fprintf(&b, ": %s -> %s", d.Before, d.After)
	if d.CostDeltaCents != 0 {
		fmt.Fprintf(&b, " (%s)", usd(d.CostDeltaCents))
	}
	if d.Reason != "" {
		fmt.Fprintf(&b, " [%s]", d.Reason)
	}
	return b.String()
}

// usd renders cents as a signed dollar amount.
func usd(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
