// Package toolexec runs travel data tools under a composed execution policy:
// cancellation preflight, result caching, a per-tool circuit breaker, bounded
// retries with per-attempt soft timeouts and a hard bound on the whole call.
// Every call yields exactly one terminal Result; failures are reported
// in-band rather than as Go errors.
package toolexec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tripsmith/tripsmith/runtime/hooks"
	"github.com/tripsmith/tripsmith/runtime/telemetry"
	"github.com/tripsmith/tripsmith/settings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type (
	// Tool is the callable contract for travel data tools. Implementations
	// receive JSON-shaped arguments and return a JSON-shaped payload. They
	// must honor context cancellation: the executor cancels the context when
	// the attempt times out.
	Tool func(ctx context.Context, args map[string]any) (map[string]any, error)

	// Request describes one tool invocation.
	Request struct {
		// Tool is the callable to run.
		Tool Tool
		// Name identifies the tool. It keys cache entries, breaker state
		// and metrics.
		Name string
		// Args is the argument map, hashed into the cache key.
		Args map[string]any
		// RunID tags lifecycle events published on the hooks bus.
		RunID string
		// Cache controls result caching for this call. The zero value
		// disables caching.
		Cache CachePolicy
		// Breaker tunes the per-tool breaker. The zero value uses the
		// executor settings.
		Breaker BreakerPolicy
	}

	// Executor coordinates tool calls. It is safe for concurrent use; breaker
	// state is shared across calls by tool name.
	Executor struct {
		cfg      settings.Settings
		cache    Cache
		breakers *breakerSet
		clk      clock
		bus      hooks.Bus

		logger telemetry.Logger
		tracer telemetry.Tracer
		ins    *telemetry.Instruments
	}

	// Option configures an Executor.
	Option func(*Executor)
)

// WithSettings overrides the default execution settings.
func WithSettings(cfg settings.Settings) Option {
	return func(e *Executor) {
		e.cfg = cfg
	}
}

// WithCache installs a result cache. Without one, cache policies are ignored.
func WithCache(c Cache) Option {
	return func(e *Executor) {
		e.cache = c
	}
}

// WithHooks publishes tool lifecycle events on bus. Publish failures are
// logged and never propagated: the tool result stays authoritative.
func WithHooks(bus hooks.Bus) Option {
	return func(e *Executor) {
		e.bus = bus
	}
}

// WithLogger configures the executor logger. When nil, the executor uses a
// noop logger.
func WithLogger(logger telemetry.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithTracer configures the executor tracer. When nil, the executor uses a
// noop tracer.
func WithTracer(tracer telemetry.Tracer) Option {
	return func(e *Executor) {
		e.tracer = tracer
	}
}

// WithInstruments configures the metrics facade. When nil, metrics are
// dropped.
func WithInstruments(ins *telemetry.Instruments) Option {
	return func(e *Executor) {
		e.ins = ins
	}
}

// withClock injects a fake clock for tests.
func withClock(clk clock) Option {
	return func(e *Executor) {
		e.clk = clk
	}
}

// New constructs an Executor with the documented default settings, a real
// clock and noop telemetry.
func New(opts ...Option) *Executor {
	e := &Executor{
		cfg:    settings.Default(),
		clk:    realClock{},
		logger: telemetry.NewNoopLogger(),
		tracer: telemetry.NewNoopTracer(),
		ins:    telemetry.NewInstruments(nil),
	}
	for _, o := range opts {
		if o != nil {
			o(e)
		}
	}
	if e.logger == nil {
		e.logger = telemetry.NewNoopLogger()
	}
	if e.tracer == nil {
		e.tracer = telemetry.NewNoopTracer()
	}
	if e.ins == nil {
		e.ins = telemetry.NewInstruments(nil)
	}
	if e.clk == nil {
		e.clk = realClock{}
	}
	e.breakers = newBreakerSet(breakerConfig{
		threshold: e.cfg.BreakerFailureThreshold,
		window:    e.cfg.BreakerWindow(),
		cooldown:  e.cfg.BreakerCooldown(),
	}, e.clk, e.ins)
	return e
}

// Execute runs one tool call. It always returns a terminal Result and never
// a Go error; callers branch on Result.Status.
func (e *Executor) Execute(ctx context.Context, req Request) Result {
	if req.Name == "" {
		return Result{Status: StatusError, Error: &ErrorInfo{Reason: ReasonToolError, Message: "tool name is empty"}}
	}
	if req.Tool == nil {
		return Result{Status: StatusError, Error: &ErrorInfo{Reason: ReasonToolError, Message: fmt.Sprintf("tool %q has no callable", req.Name)}}
	}

	ctx, span := e.tracer.Start(
		ctx,
		"toolexec.execute",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("toolexec.tool", req.Name),
			attribute.String("toolexec.run_id", req.RunID),
		),
	)
	defer span.End()

	// Hard bound on the whole call, retries and backoff included.
	ctx, cancel := context.WithTimeout(ctx, e.cfg.HardTimeout())
	defer cancel()

	e.publish(ctx, hooks.NewToolCallStartedEvent(req.RunID, req.Name, req.Args))

	res, errorRecorded := e.run(ctx, span, req)

	// One latency observation per call, keyed by the final status. Retry and
	// error counters follow; intermediate attempt errors were already counted
	// inside the loop.
	latency := time.Duration(res.LatencyMS) * time.Millisecond
	e.ins.ObserveToolLatency(req.Name, string(res.Status), latency)
	if res.Retries > 0 {
		e.ins.IncToolRetries(req.Name, res.Retries)
	}
	if res.Status != StatusSuccess && res.Error != nil && !errorRecorded {
		e.ins.IncToolError(req.Name, res.Error.Reason)
	}

	if res.Status == StatusSuccess {
		span.SetStatus(codes.Ok, "ok")
	} else {
		span.SetStatus(codes.Error, string(res.Status))
	}

	e.publish(ctx, hooks.NewToolResultReceivedEvent(req.RunID, req.Name, string(res.Status), latency, res.Retries, res.FromCache, errorReason(res)))
	e.logger.Debug(ctx, "tool call finished",
		"tool", req.Name,
		"status", res.Status,
		"latency_ms", res.LatencyMS,
		"retries", res.Retries,
		"from_cache", res.FromCache,
	)
	return res
}

// run walks the execution steps in order and reports whether an error metric
// was already recorded for the call.
func (e *Executor) run(ctx context.Context, span telemetry.Span, req Request) (Result, bool) {
	// Preflight: a caller that already gave up never reaches the cache,
	// breaker or tool. Latency stays zero.
	if err := ctx.Err(); err != nil {
		res := ctxResult(req.Name, err)
		e.ins.IncToolError(req.Name, res.Error.Reason)
		return res, true
	}

	start := e.clk.Now()

	var key string
	if e.cache != nil && req.Cache.Enabled {
		key = CacheKey(req.Name, req.Args)
		data, ok, err := e.cache.Get(ctx, key)
		if err != nil {
			e.logger.Warn(ctx, "tool cache get failed", "tool", req.Name, "err", err)
		} else if ok {
			e.ins.IncToolCacheHit(req.Name)
			span.AddEvent("toolexec.cache_hit", "toolexec.tool", req.Name)
			return Result{Status: StatusSuccess, Data: data, FromCache: true, LatencyMS: e.sinceMS(start)}, false
		}
	}

	var brk *breaker
	if !req.Breaker.Disabled {
		brk = e.breakers.get(req.Name, req.Breaker)
		if ok, retryAfter := brk.allow(); !ok {
			e.ins.IncToolError(req.Name, ReasonBreakerOpen)
			span.AddEvent("toolexec.breaker_open",
				"toolexec.tool", req.Name,
				"toolexec.retry_after_s", retryAfter,
			)
			return Result{
				Status: StatusBreakerOpen,
				Error: &ErrorInfo{
					Reason:            ReasonBreakerOpen,
					Message:           fmt.Sprintf("breaker for %q is open", req.Name),
					RetryAfterSeconds: retryAfter,
				},
				LatencyMS: e.sinceMS(start),
			}, true
		}
	}

	// Attempt loop: at most one retry, and only for transient faults.
	const maxAttempts = 2
	var (
		res           Result
		retries       int
		invoked       bool
		errorRecorded bool
	)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			res = ctxResult(req.Name, err)
			break
		}
		res = e.attempt(ctx, req)
		invoked = true
		if res.Status == StatusSuccess || res.Status == StatusCancelled {
			break
		}
		if attempt == maxAttempts-1 || !recoverable(res) {
			break
		}
		// Count the failure now so intermediate attempts show up in the
		// error metrics even when the retry succeeds.
		e.ins.IncToolError(req.Name, res.Error.Reason)
		errorRecorded = true
		span.AddEvent("toolexec.retry",
			"toolexec.tool", req.Name,
			"toolexec.attempt", attempt+1,
			"toolexec.reason", res.Error.Reason,
		)
		delay := backoffDelay(req.Name, attempt, int64(e.cfg.RetryJitterMinMS), int64(e.cfg.RetryJitterMaxMS))
		if err := sleepInterruptible(ctx, delay); err != nil {
			res = ctxResult(req.Name, err)
			break
		}
		// Retries count attempts that actually started, not ones the
		// cancellation pre-empted.
		retries++
	}

	// Only outcomes that reached the tool feed the breaker. A call that was
	// admitted but never invoked must still release its probe slot so the
	// breaker cannot wedge in half-open.
	if brk != nil {
		if !invoked || res.Status == StatusCancelled {
			brk.releaseProbe()
		} else {
			brk.record(res.Status == StatusSuccess)
		}
	}

	if key != "" && res.Status == StatusSuccess {
		if err := e.cache.Set(ctx, key, res.Data, req.Cache.TTL); err != nil {
			e.logger.Warn(ctx, "tool cache set failed", "tool", req.Name, "err", err)
		}
	}

	res.Retries = retries
	res.LatencyMS = e.sinceMS(start)
	return res, errorRecorded
}

// attempt invokes the tool once under the soft timeout. The tool runs on its
// own goroutine so a hung implementation cannot pin the executor past the
// deadline; the attempt context is cancelled on timeout so well-behaved
// tools stop early.
func (e *Executor) attempt(ctx context.Context, req Request) Result {
	attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.SoftTimeout())
	defer cancel()

	type outcome struct {
		data map[string]any
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("tool %q panicked: %v", req.Name, r)}
			}
		}()
		data, err := req.Tool(attemptCtx, req.Args)
		done <- outcome{data: data, err: err}
	}()

	select {
	case out := <-done:
		if out.err == nil {
			return Result{Status: StatusSuccess, Data: out.data}
		}
		if errors.Is(out.err, context.Canceled) && ctx.Err() != nil {
			return ctxResult(req.Name, ctx.Err())
		}
		if errors.Is(out.err, context.DeadlineExceeded) && attemptCtx.Err() != nil {
			return timeoutResult(req.Name, e.cfg.SoftTimeout())
		}
		return Result{Status: StatusError, Error: classify(out.err)}
	case <-attemptCtx.Done():
		if err := ctx.Err(); errors.Is(err, context.Canceled) {
			return cancelledResult(err)
		}
		return timeoutResult(req.Name, e.cfg.SoftTimeout())
	}
}

// ctxResult maps a context error to its terminal result: deadline expiry is
// a timeout, everything else a cancellation.
func ctxResult(name string, err error) Result {
	if errors.Is(err, context.DeadlineExceeded) {
		return Result{
			Status: StatusTimeout,
			Error: &ErrorInfo{
				Reason:  ReasonTimeout,
				Type:    ErrTypeTimeout,
				Message: fmt.Sprintf("tool %q call exceeded its budget", name),
			},
		}
	}
	return cancelledResult(err)
}

// publish sends a lifecycle event on the hooks bus.
func (e *Executor) publish(ctx context.Context, ev hooks.Event) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Publish(ctx, ev); err != nil {
		e.logger.Warn(ctx, "tool lifecycle publish failed", "event", ev.Type(), "err", err)
	}
}

func (e *Executor) sinceMS(start time.Time) int64 {
	return e.clk.Now().Sub(start).Milliseconds()
}

func cancelledResult(err error) Result {
	return Result{Status: StatusCancelled, Error: &ErrorInfo{Reason: ReasonCancelled, Message: err.Error()}}
}

func timeoutResult(name string, d time.Duration) Result {
	return Result{
		Status: StatusTimeout,
		Error: &ErrorInfo{
			Reason:  ReasonTimeout,
			Type:    ErrTypeTimeout,
			Message: fmt.Sprintf("tool %q exceeded the %s attempt timeout", name, d),
		},
	}
}

func errorReason(res Result) string {
	if res.Error == nil {
		return ""
	}
	return res.Error.Reason
}
