// Package repair mutates a plan to clear verifier violations, within hard
// bounds: at most two moves per cycle and three cycles per run. The engine
// never touches the input plan; it works on a clone and reports what it did
// as diffs so the decision trail stays auditable.
package repair

import (
	"context"

	"github.com/tripsmith/tripsmith/runtime/telemetry"
	"github.com/tripsmith/tripsmith/travel"
)

const (
	maxMovesPerCycle = 2
	maxCycles        = 3
)

// cycleOrder is the violation priority within a cycle. Each category
// contributes at most one move per cycle.
var cycleOrder = []travel.ViolationKind{
	travel.ViolationBudget,
	travel.ViolationWeather,
	travel.ViolationTiming,
	travel.ViolationVenueClosed,
	travel.ViolationPreference,
}

type (
	// Diff records one applied move with human-readable before and after
	// values.
	Diff struct {
		Move           string            `json:"move"`
		Day            int               `json:"day"`
		Slot           *int              `json:"slot,omitempty"`
		Before         string            `json:"before"`
		After          string            `json:"after"`
		CostDeltaCents int64             `json:"cost_delta_cents"`
		MinutesDelta   int               `json:"minutes_delta"`
		Reason         string            `json:"reason"`
		Provenance     travel.Provenance `json:"provenance"`
	}

	// Outcome is the result of one repair pass.
	Outcome struct {
		// PlanAfter is the repaired clone. The input plan is untouched.
		PlanAfter *travel.Plan
		// Diffs lists the applied moves in order.
		Diffs []Diff
		// Remaining holds the violations still standing after the loop.
		Remaining []travel.Violation
		// CyclesRun counts executed cycles, including a final zero-move one.
		CyclesRun int
		// MovesApplied counts applied moves across all cycles.
		MovesApplied int
		// ReuseRatio is the fraction of slot positions whose selected
		// option_ref survived, 1.0 when the plan has no days.
		ReuseRatio float64
		// Success reports whether no blocking violation remains.
		Success bool
	}

	// Recheck re-runs verification against an interim plan. When set, it
	// replaces the optimistic diff-based clearing between cycles.
	Recheck func(plan *travel.Plan) []travel.Violation

	// Engine applies bounded repair moves.
	Engine struct {
		ins     *telemetry.Instruments
		logger  telemetry.Logger
		recheck Recheck
	}

	// Option customizes an Engine.
	Option func(*Engine)
)

// WithInstruments sets the metrics façade.
func WithInstruments(ins *telemetry.Instruments) Option {
	return func(e *Engine) { e.ins = ins }
}

// WithLogger sets the logger.
func WithLogger(logger telemetry.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithRecheck enables verifier-backed violation clearing between cycles.
func WithRecheck(fn Recheck) Option {
	return func(e *Engine) { e.recheck = fn }
}

// New returns an Engine with the given options applied.
func New(opts ...Option) *Engine {
	e := &Engine{
		ins:    telemetry.NewInstruments(nil),
		logger: telemetry.NewNoopLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.ins == nil {
		e.ins = telemetry.NewInstruments(nil)
	}
	if e.logger == nil {
		e.logger = telemetry.NewNoopLogger()
	}
	return e
}

// Repair runs the bounded move loop against a clone of plan. With no
// violations it returns immediately: zero cycles, full reuse, success.
func (e *Engine) Repair(ctx context.Context, plan *travel.Plan, violations []travel.Violation) Outcome {
	out := Outcome{
		PlanAfter:  plan.Clone(),
		ReuseRatio: 1,
		Success:    true,
	}
	if len(violations) == 0 {
		return out
	}

	e.ins.IncRepairAttempt()
	remaining := append([]travel.Violation(nil), violations...)
	for out.CyclesRun < maxCycles && len(remaining) > 0 {
		diffs := e.runCycle(ctx, out.PlanAfter, remaining)
		out.CyclesRun++
		if len(diffs) == 0 {
			break
		}
		out.Diffs = append(out.Diffs, diffs...)
		out.MovesApplied += len(diffs)
		if e.recheck != nil {
			remaining = e.recheck(out.PlanAfter)
		} else {
			remaining = clearAddressed(remaining, diffs)
		}
	}

	out.Remaining = remaining
	out.ReuseRatio = reuseRatio(plan, out.PlanAfter)
	out.Success = travel.CountBlocking(remaining) == 0

	e.ins.ObserveRepairCycles(out.CyclesRun)
	e.ins.ObserveRepairMoves(out.MovesApplied)
	e.ins.ObserveReuseRatio(out.ReuseRatio)
	if out.Success {
		e.ins.IncRepairSuccess()
	}
	e.logger.Info(ctx, "repair finished",
		"cycles", out.CyclesRun,
		"moves", out.MovesApplied,
		"reuse_ratio", out.ReuseRatio,
		"remaining", len(out.Remaining),
		"success", out.Success,
	)
	return out
}

// runCycle visits the violation categories in priority order and applies at
// most one move per category until the per-cycle cap is reached.
func (e *Engine) runCycle(ctx context.Context, plan *travel.Plan, violations []travel.Violation) []Diff {
	var diffs []Diff
	for _, kind := range cycleOrder {
		if len(diffs) >= maxMovesPerCycle {
			break
		}
		v, ok := firstOfKind(violations, kind)
		if !ok {
			continue
		}
		diff, ok := e.applyMove(plan, v)
		if !ok {
			continue
		}
		e.logger.Debug(ctx, "repair applied move",
			"move", diff.Move,
			"day", diff.Day,
			"before", diff.Before,
			"after", diff.After,
			"cost_delta_cents", diff.CostDeltaCents,
		)
		diffs = append(diffs, diff)
	}
	return diffs
}

func (e *Engine) applyMove(plan *travel.Plan, v travel.Violation) (Diff, bool) {
	switch v.Kind {
	case travel.ViolationBudget:
		return changeHotelTier(plan)
	case travel.ViolationWeather:
		return replaceSlot(plan, v)
	case travel.ViolationTiming:
		return reorderSlots(plan, v)
	case travel.ViolationVenueClosed, travel.ViolationPreference:
		return swapAirport(plan, v)
	}
	return Diff{}, false
}

func firstOfKind(violations []travel.Violation, kind travel.ViolationKind) (travel.Violation, bool) {
	for _, v := range violations {
		if v.Kind == kind {
			return v, true
		}
	}
	return travel.Violation{}, false
}

// clearAddressed drops the violations a cycle's diffs are assumed to fix:
// budget when any hotel tier changed, weather when any slot was replaced.
// This is optimistic; enable Recheck for verifier-backed clearing.
func clearAddressed(violations []travel.Violation, diffs []Diff) []travel.Violation {
	changedTier, replacedSlot := false, false
	for _, d := range diffs {
		switch d.Move {
		case MoveChangeHotelTier:
			changedTier = true
		case MoveReplaceSlot:
			replacedSlot = true
		}
	}
	out := violations[:0:0]
	for _, v := range violations {
		if changedTier && v.Kind == travel.ViolationBudget {
			continue
		}
		if replacedSlot && v.Kind == travel.ViolationWeather {
			continue
		}
		out = append(out, v)
	}
	return out
}

// reuseRatio is the fraction of aligned slot positions whose selected
// option_ref is unchanged.
func reuseRatio(before, after *travel.Plan) float64 {
	total, kept := 0, 0
	for i, day := range before.Days {
		for j, slot := range day.Slots {
			total++
			if i >= len(after.Days) || j >= len(after.Days[i].Slots) {
				continue
			}
			if after.Days[i].Slots[j].Selected().OptionRef == slot.Selected().OptionRef {
				kept++
			}
		}
	}
	if total == 0 {
		return 1
	}
	return float64(kept) / float64(total)
}
