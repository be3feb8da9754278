// Package selector ranks candidate plans against the intent's budget.
//
// Normalization uses frozen statistics: the means and deviations are part of
// the design, not learned from the candidates being scored. The selector
// never recomputes them from input data, so scoring is deterministic and a
// lone candidate scores the same whether or not rivals are present.
package selector

import (
	"context"
	"sort"

	"github.com/tripsmith/tripsmith/runtime/telemetry"
	"github.com/tripsmith/tripsmith/travel"
)

// Frozen normalization statistics per aggregate feature.
const (
	costMean = 3500.0
	costStd  = 1800.0

	travelMean = 1800.0
	travelStd  = 600.0

	themeMean = 0.6
	themeStd  = 0.3

	indoorMean = 0.0
	indoorStd  = 1.0
)

// Fixed weights for the non-cost features. The cost weight is budget-aware,
// see costWeight.
const (
	travelWeight = -0.5
	themeWeight  = 1.5
	indoorWeight = 0.3
)

// perDayReferenceCents anchors the budget-generosity ratio: a per-day budget
// equal to it scores a ratio of 1.0.
const perDayReferenceCents = 23000.0

type (
	// ScoredPlan pairs a candidate with its score and the aggregate feature
	// vector the score was computed from.
	ScoredPlan struct {
		Plan     travel.Plan
		Score    float64
		Features FeatureVector
	}

	// FeatureVector aggregates a candidate's choice features into the four
	// normalized scoring dimensions.
	FeatureVector struct {
		// CostCents is the sum of all choice costs.
		CostCents float64
		// TravelSecs is the mean of the known travel durations.
		TravelSecs float64
		// ThemeMatch is the count of distinct themes over five.
		ThemeMatch float64
		// IndoorPref is the mean indoor lean in [-1, 1].
		IndoorPref float64
	}

	// Selector scores and ranks candidate plans. Construct with New.
	Selector struct {
		logger telemetry.Logger
	}

	// Option customizes a Selector.
	Option func(*Selector)
)

// WithLogger sets the logger used for ranking decisions.
func WithLogger(logger telemetry.Logger) Option {
	return func(s *Selector) { s.logger = logger }
}

// New returns a Selector with the given options applied.
func New(opts ...Option) *Selector {
	s := &Selector{logger: telemetry.NewNoopLogger()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.logger == nil {
		s.logger = telemetry.NewNoopLogger()
	}
	return s
}

// Score ranks the candidates descending by score and logs the feature
// vectors behind the decision: the winner plus up to two of the discarded.
// The input slice is not mutated.
func (s *Selector) Score(ctx context.Context, candidates []travel.Plan, intent travel.Intent) []ScoredPlan {
	w := costWeight(intent.BudgetCents, intent.Window.Days())

	ranked := make([]ScoredPlan, 0, len(candidates))
	for _, c := range candidates {
		fv := aggregate(c)
		score := w*zScore(fv.CostCents, costMean, costStd) +
			travelWeight*zScore(fv.TravelSecs, travelMean, travelStd) +
			themeWeight*zScore(fv.ThemeMatch, themeMean, themeStd) +
			indoorWeight*zScore(fv.IndoorPref, indoorMean, indoorStd)
		ranked = append(ranked, ScoredPlan{Plan: c, Score: score, Features: fv})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	if len(ranked) > 0 {
		s.logCandidate(ctx, "selector chose candidate", ranked[0], w)
		discarded := ranked[1:]
		if len(discarded) > 2 {
			discarded = discarded[:2]
		}
		for _, sp := range discarded {
			s.logCandidate(ctx, "selector discarded candidate", sp, w)
		}
	}
	return ranked
}

func (s *Selector) logCandidate(ctx context.Context, msg string, sp ScoredPlan, w float64) {
	s.logger.Info(ctx, msg,
		"variant", sp.Plan.Variant,
		"score", sp.Score,
		"cost_cents", sp.Features.CostCents,
		"travel_secs", sp.Features.TravelSecs,
		"theme_match", sp.Features.ThemeMatch,
		"indoor_pref", sp.Features.IndoorPref,
		"cost_weight", w,
	)
}

// costWeight returns the budget-aware weight for the cost dimension. Tight
// budgets punish expensive candidates hard; a generous budget flips the sign
// and rewards higher spend.
func costWeight(budgetCents int64, tripDays int) float64 {
	if tripDays < 1 {
		tripDays = 1
	}
	ratio := float64(budgetCents) / float64(tripDays) / perDayReferenceCents
	switch {
	case ratio < 1.0:
		return -1.5
	case ratio < 1.5:
		return -1.0
	case ratio < 3.0:
		return -0.3
	default:
		return 0.5
	}
}

// aggregate folds every choice feature in the plan, alternatives included,
// into one vector.
func aggregate(p travel.Plan) FeatureVector {
	var (
		cost      int64
		travelSum int64
		travelN   int
		indoorSum int
		choices   int
	)
	themes := make(map[string]struct{})
	for _, d := range p.Days {
		for _, sl := range d.Slots {
			for _, c := range sl.Choices {
				choices++
				cost += c.Features.CostCents
				if c.Features.TravelSeconds != nil {
					travelSum += *c.Features.TravelSeconds
					travelN++
				}
				switch c.Features.Indoor {
				case travel.Yes:
					indoorSum++
				case travel.No:
					indoorSum--
				}
				for _, th := range c.Features.Themes {
					themes[th] = struct{}{}
				}
			}
		}
	}

	fv := FeatureVector{
		CostCents:  float64(cost),
		ThemeMatch: float64(len(themes)) / 5.0,
	}
	if travelN > 0 {
		fv.TravelSecs = float64(travelSum) / float64(travelN)
	}
	if choices > 0 {
		fv.IndoorPref = float64(indoorSum) / float64(choices)
	}
	return fv
}

// zScore normalizes v against a frozen mean and deviation. A zero deviation
// yields zero instead of dividing by it.
func zScore(v, mean, std float64) float64 {
	if std == 0 {
		return 0
	}
	return (v - mean) / std
}
