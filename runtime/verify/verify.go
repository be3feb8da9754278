// Package verify checks a selected plan against the constraints the intent
// and the fetched records impose.
//
// Verifiers are pure: they read the run state and return violations as
// first-class data, never errors. Blocking violations must be repaired
// before the plan is acceptable; advisories surface as warnings. Only the
// selected (first) choice of each slot is considered.
package verify

import (
	"context"

	"github.com/tripsmith/tripsmith/runtime/telemetry"
	"github.com/tripsmith/tripsmith/travel"
)

type (
	// Verifier checks one family of constraints.
	Verifier interface {
		// Name identifies the verifier in logs.
		Name() string
		// Verify returns the violations found in the state's selected plan.
		Verify(state *travel.RunState) []travel.Violation
	}

	// Suite runs the verifiers in a fixed order and concatenates their
	// findings. The default order is budget, feasibility, weather,
	// preferences.
	Suite struct {
		verifiers []Verifier
		ins       *telemetry.Instruments
		logger    telemetry.Logger
	}

	// SuiteOption customizes a Suite.
	SuiteOption func(*Suite)
)

// WithInstruments sets the metrics façade shared by the suite and its
// default verifiers.
func WithInstruments(ins *telemetry.Instruments) SuiteOption {
	return func(s *Suite) { s.ins = ins }
}

// WithLogger sets the logger used to report findings.
func WithLogger(logger telemetry.Logger) SuiteOption {
	return func(s *Suite) { s.logger = logger }
}

// WithVerifiers replaces the default verifier set.
func WithVerifiers(verifiers ...Verifier) SuiteOption {
	return func(s *Suite) { s.verifiers = verifiers }
}

// NewSuite returns a Suite with the given options applied. Unless
// overridden, the suite carries the four standard verifiers sharing its
// instruments.
func NewSuite(opts ...SuiteOption) *Suite {
	s := &Suite{
		ins:    telemetry.NewInstruments(nil),
		logger: telemetry.NewNoopLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.ins == nil {
		s.ins = telemetry.NewInstruments(nil)
	}
	if s.logger == nil {
		s.logger = telemetry.NewNoopLogger()
	}
	if len(s.verifiers) == 0 {
		s.verifiers = []Verifier{
			NewBudget(s.ins),
			NewFeasibility(s.ins),
			NewWeather(s.ins),
			NewPreferences(s.ins),
		}
	}
	return s
}

// Run executes every verifier in order and returns the concatenated
// violations. The caller appends them to the run state; Run itself never
// mutates it. Each violation is counted by kind and severity.
func (s *Suite) Run(ctx context.Context, state *travel.RunState) []travel.Violation {
	var out []travel.Violation
	for _, v := range s.verifiers {
		found := v.Verify(state)
		for _, violation := range found {
			s.ins.IncViolation(string(violation.Kind), violation.Blocking)
		}
		if len(found) > 0 {
			s.logger.Info(ctx, "verifier found violations",
				"verifier", v.Name(),
				"count", len(found),
				"blocking", travel.CountBlocking(found),
			)
		}
		out = append(out, found...)
	}
	return out
}
