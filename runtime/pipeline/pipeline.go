// Package pipeline drives a planning run through the fixed stage sequence:
// intent, planner, selector, tool_exec, verifier, repair, synthesizer,
// responder. The driver owns the run's lifecycle record, emits one node
// event per stage transition, and stops at the first stage error. Stages
// mutate a single *travel.RunState that is never shared across runs.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tripsmith/tripsmith/runtime/artifact"
	artifactmem "github.com/tripsmith/tripsmith/runtime/artifact/inmem"
	"github.com/tripsmith/tripsmith/runtime/hooks"
	"github.com/tripsmith/tripsmith/runtime/planner"
	"github.com/tripsmith/tripsmith/runtime/repair"
	"github.com/tripsmith/tripsmith/runtime/run"
	runmem "github.com/tripsmith/tripsmith/runtime/run/inmem"
	"github.com/tripsmith/tripsmith/runtime/selector"
	"github.com/tripsmith/tripsmith/runtime/stream"
	"github.com/tripsmith/tripsmith/runtime/synth"
	"github.com/tripsmith/tripsmith/runtime/telemetry"
	"github.com/tripsmith/tripsmith/runtime/toolexec"
	"github.com/tripsmith/tripsmith/runtime/tools"
	"github.com/tripsmith/tripsmith/runtime/verify"
	"github.com/tripsmith/tripsmith/settings"
	"github.com/tripsmith/tripsmith/travel"
)

// Node names carried in node events, one per stage. NodeError is the
// sentinel node of the abort event emitted when a stage fails.
const (
	NodeIntent      = "intent"
	NodePlanner     = "planner"
	NodeSelector    = "selector"
	NodeToolExec    = "tool_exec"
	NodeVerifier    = "verifier"
	NodeRepair      = "repair"
	NodeSynthesizer = "synthesizer"
	NodeResponder   = "responder"

	NodeError = "error"
)

type (
	// Request identifies one planning run.
	Request struct {
		// RunID becomes the run's trace id. Empty means a fresh UUID.
		RunID string
		// OrgID and UserID identify the requesting tenant and user.
		OrgID  string
		UserID string
		// Intent is the structured trip request.
		Intent travel.Intent
	}

	// Pipeline executes planning runs. Construct with New; safe for
	// concurrent use, one goroutine per run.
	Pipeline struct {
		cfg       settings.Settings
		exec      *toolexec.Executor
		tools     *tools.Registry
		bus       hooks.Bus
		know      Knowledge
		runs      run.Store
		artifacts artifact.Store
		sink      stream.Sink

		planner  *planner.Planner
		selector *selector.Selector
		verifier *verify.Suite
		repairer *repair.Engine
		synth    *synth.Synthesizer

		logger telemetry.Logger
		tracer telemetry.Tracer
		ins    *telemetry.Instruments

		now      func() time.Time
		newRunID func() string
	}

	// Option configures a Pipeline.
	Option func(*Pipeline)

	// stage pairs a node name with its stage function. Stage functions
	// mutate the run state and return the progress message for the
	// completion event.
	stage struct {
		name string
		fn   func(ctx context.Context, state *travel.RunState) (string, error)
	}
)

// WithSettings overrides the default settings.
func WithSettings(cfg settings.Settings) Option {
	return func(p *Pipeline) { p.cfg = cfg }
}

// WithExecutor installs the tool executor. Callers that supply one should
// also pass WithHooks with the bus the executor publishes on, or per-tool
// call counters stay empty.
func WithExecutor(exec *toolexec.Executor) Option {
	return func(p *Pipeline) { p.exec = exec }
}

// WithTools installs the tool registry the fetch stage resolves against.
func WithTools(reg *tools.Registry) Option {
	return func(p *Pipeline) { p.tools = reg }
}

// WithHooks installs the hooks bus the fetch stage subscribes to for
// per-tool call counting. It must be the bus the executor publishes on.
func WithHooks(bus hooks.Bus) Option {
	return func(p *Pipeline) { p.bus = bus }
}

// WithKnowledge installs the venue catalog used for attraction enrichment.
// Without one, attraction slots fall back to feature-derived fixtures.
func WithKnowledge(k Knowledge) Option {
	return func(p *Pipeline) { p.know = k }
}

// WithRunStore overrides the in-memory run store.
func WithRunStore(s run.Store) Option {
	return func(p *Pipeline) { p.runs = s }
}

// WithArtifacts overrides the in-memory itinerary archive.
func WithArtifacts(s artifact.Store) Option {
	return func(p *Pipeline) { p.artifacts = s }
}

// WithSink installs the node event sink. Without one, events are dropped.
func WithSink(s stream.Sink) Option {
	return func(p *Pipeline) { p.sink = s }
}

// WithLogger configures the pipeline logger.
func WithLogger(logger telemetry.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithTracer configures the pipeline tracer.
func WithTracer(tracer telemetry.Tracer) Option {
	return func(p *Pipeline) { p.tracer = tracer }
}

// WithInstruments configures the metrics facade shared with the stage
// components the pipeline constructs itself.
func WithInstruments(ins *telemetry.Instruments) Option {
	return func(p *Pipeline) { p.ins = ins }
}

// withClock injects a fake clock for tests.
func withClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// withRunIDs injects a deterministic run id source for tests.
func withRunIDs(next func() string) Option {
	return func(p *Pipeline) { p.newRunID = next }
}

// New constructs a Pipeline. Collaborators not supplied through options get
// working defaults: in-memory stores, a fresh executor sharing the
// pipeline's settings and hooks bus, and noop telemetry.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:      settings.Default(),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.logger == nil {
		p.logger = telemetry.NewNoopLogger()
	}
	if p.tracer == nil {
		p.tracer = telemetry.NewNoopTracer()
	}
	if p.ins == nil {
		p.ins = telemetry.NewInstruments(nil)
	}
	if p.bus == nil {
		p.bus = hooks.NewBus()
	}
	if p.exec == nil {
		p.exec = toolexec.New(
			toolexec.WithSettings(p.cfg),
			toolexec.WithCache(toolexec.NewMemoryCache()),
			toolexec.WithHooks(p.bus),
			toolexec.WithLogger(p.logger),
			toolexec.WithTracer(p.tracer),
			toolexec.WithInstruments(p.ins),
		)
	}
	if p.tools == nil {
		p.tools = tools.NewRegistry()
	}
	if p.runs == nil {
		p.runs = runmem.New()
	}
	if p.artifacts == nil {
		p.artifacts = artifactmem.New()
	}
	if p.sink == nil {
		p.sink = nopSink{}
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.newRunID == nil {
		p.newRunID = uuid.NewString
	}

	p.planner = planner.New(planner.WithSettings(p.cfg))
	p.selector = selector.New(selector.WithLogger(p.logger))
	p.verifier = verify.NewSuite(verify.WithInstruments(p.ins), verify.WithLogger(p.logger))
	p.repairer = repair.New(repair.WithInstruments(p.ins), repair.WithLogger(p.logger))
	p.synth = synth.New(synth.WithInstruments(p.ins), synth.WithLogger(p.logger))
	return p
}

func (p *Pipeline) stages() []stage {
	return []stage{
		{NodeIntent, p.stageIntent},
		{NodePlanner, p.stagePlanner},
		{NodeSelector, p.stageSelector},
		{NodeToolExec, p.stageFetch},
		{NodeVerifier, p.stageVerify},
		{NodeRepair, p.stageRepair},
		{NodeSynthesizer, p.stageSynthesize},
		{NodeResponder, p.stageRespond},
	}
}

// Run executes one planning run to completion. The returned state carries
// whatever the stages produced, also when a stage failed; the error reports
// the failing stage. The run record moves running → completed or error.
func (p *Pipeline) Run(ctx context.Context, req Request) (*travel.RunState, error) {
	runID := req.RunID
	if runID == "" {
		runID = p.newRunID()
	}
	state := travel.NewRunState(runID, req.OrgID, req.UserID, req.Intent)

	now := p.now().UTC()
	err := p.runs.Create(ctx, run.Record{
		OrgID:     req.OrgID,
		UserID:    req.UserID,
		RunID:     runID,
		Status:    run.StatusRunning,
		StartedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: create run %s: %w", runID, err)
	}

	ctx, span := p.tracer.Start(
		ctx,
		"pipeline.run",
		trace.WithAttributes(
			attribute.String("pipeline.run_id", runID),
			attribute.String("pipeline.org_id", req.OrgID),
		),
	)
	defer span.End()

	p.logger.Info(ctx, "run started", "run_id", runID, "city", req.Intent.City)

	all := p.stages()
	for i, st := range all {
		if err := p.runStage(ctx, st, state); err != nil {
			err = fmt.Errorf("stage %s: %w", st.name, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, st.name)
			p.failRun(ctx, state, err)
			return state, fmt.Errorf("pipeline: %w", err)
		}
		if i < len(all)-1 {
			p.touchRun(ctx, state)
		}
	}

	if err := p.completeRun(ctx, state); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion")
		return state, fmt.Errorf("pipeline: %w", err)
	}
	span.SetStatus(codes.Ok, "ok")
	p.logger.Info(ctx, "run completed", "run_id", runID, "violations", len(state.Violations))
	return state, nil
}

// runStage brackets one stage function with its running and completed
// events. A panic inside the stage becomes a stage-fatal error.
func (p *Pipeline) runStage(ctx context.Context, st stage, state *travel.RunState) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	p.emit(ctx, state, st.name, stream.StatusRunning, "")
	msg, err := st.fn(ctx, state)
	if err != nil {
		return err
	}
	state.AppendMessage(msg)
	p.emit(ctx, state, st.name, stream.StatusCompleted, msg)
	return nil
}

// emit appends one node event to the sink. Streaming is best-effort: append
// failures are logged and never fail a run.
func (p *Pipeline) emit(ctx context.Context, state *travel.RunState, node string, status stream.NodeStatus, msg string) {
	evt := stream.NewNodeEvent(state.OrgID, state.TraceID, node, status, p.now().UTC(), msg)
	if err := p.sink.Append(ctx, evt); err != nil {
		p.logger.Error(ctx, "node event append failed", "run_id", state.TraceID, "node", node, "error", err)
	}
}

// touchRun refreshes the run record between stages so pollers observe
// liveness before the terminal update.
func (p *Pipeline) touchRun(ctx context.Context, state *travel.RunState) {
	if err := p.runs.Update(ctx, state.TraceID, run.Update{Status: run.StatusRunning}); err != nil {
		p.logger.Warn(ctx, "run record refresh failed", "run_id", state.TraceID, "error", err)
	}
}

// failRun records the terminal error outcome: the abort event and the error
// status on the run record.
func (p *Pipeline) failRun(ctx context.Context, state *travel.RunState, stageErr error) {
	p.emit(ctx, state, NodeError, stream.StatusError, stageErr.Error())
	done := p.now().UTC()
	update := run.Update{Status: run.StatusError, CompletedAt: &done, Error: stageErr.Error()}
	if err := p.runs.Update(ctx, state.TraceID, update); err != nil {
		p.logger.Error(ctx, "run record error update failed", "run_id", state.TraceID, "error", err)
	}
}

// completeRun seals the run record with the final plan snapshot.
func (p *Pipeline) completeRun(ctx context.Context, state *travel.RunState) error {
	snapshot, err := json.Marshal(state.Plan)
	if err != nil {
		return fmt.Errorf("encode plan snapshot: %w", err)
	}
	done := p.now().UTC()
	update := run.Update{Status: run.StatusCompleted, CompletedAt: &done, PlanSnapshot: snapshot}
	if err := p.runs.Update(ctx, state.TraceID, update); err != nil {
		return fmt.Errorf("complete run %s: %w", state.TraceID, err)
	}
	return nil
}

// nopSink drops events when no sink is configured.
type nopSink struct{}

func (nopSink) Append(context.Context, stream.Event) error { return nil }
func (nopSink) Close(context.Context) error                { return nil }
