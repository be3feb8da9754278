package toolexec

import (
	"math"
	"sync"
	"time"

	"github.com/tripsmith/tripsmith/runtime/telemetry"
)

// BreakerState enumerates the per-tool circuit breaker states. The numeric
// values are published as the breaker state gauge.
type BreakerState int

const (
	// BreakerClosed allows calls through and counts failures.
	BreakerClosed BreakerState = iota
	// BreakerHalfOpen allows a single probe call after the cooldown.
	BreakerHalfOpen
	// BreakerOpen short-circuits calls until the cooldown elapses.
	BreakerOpen
)

// String implements fmt.Stringer.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerHalfOpen:
		return "half_open"
	case BreakerOpen:
		return "open"
	default:
		return "unknown"
	}
}

type (
	// BreakerPolicy overrides breaker tuning for one tool. Zero fields fall
	// back to the executor settings. The policy is applied when the tool's
	// breaker is first created; later calls reuse the existing breaker.
	BreakerPolicy struct {
		// Disabled bypasses the breaker entirely for this call.
		Disabled bool
		// Threshold is the windowed failure count that opens the breaker.
		Threshold int
		// Window bounds how long failures accumulate before the count
		// resets.
		Window time.Duration
		// Cooldown is how long an open breaker rejects calls before
		// allowing a probe.
		Cooldown time.Duration
	}

	breakerConfig struct {
		threshold int
		window    time.Duration
		cooldown  time.Duration
	}

	// breakerSet owns one breaker per tool name.
	breakerSet struct {
		mu       sync.Mutex
		byTool   map[string]*breaker
		defaults breakerConfig
		clk      clock
		ins      *telemetry.Instruments
	}

	// breaker is the per-tool failure gate. All state transitions happen
	// under mu and publish to the breaker state gauge.
	breaker struct {
		mu   sync.Mutex
		name string
		cfg  breakerConfig
		clk  clock
		ins  *telemetry.Instruments

		state       BreakerState
		failures    int
		windowStart time.Time
		openedAt    time.Time
		probing     bool
	}
)

func newBreakerSet(defaults breakerConfig, clk clock, ins *telemetry.Instruments) *breakerSet {
	return &breakerSet{byTool: make(map[string]*breaker), defaults: defaults, clk: clk, ins: ins}
}

func (s *breakerSet) get(name string, p BreakerPolicy) *breaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byTool[name]
	if !ok {
		cfg := s.defaults
		if p.Threshold > 0 {
			cfg.threshold = p.Threshold
		}
		if p.Window > 0 {
			cfg.window = p.Window
		}
		if p.Cooldown > 0 {
			cfg.cooldown = p.Cooldown
		}
		b = &breaker{name: name, cfg: cfg, clk: s.clk, ins: s.ins}
		s.byTool[name] = b
	}
	return b
}

// allow reports whether a call may proceed. When it returns false the second
// value is the whole seconds to wait before the breaker will admit a probe.
func (b *breaker) allow() (bool, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case BreakerOpen:
		remaining := b.cfg.cooldown - b.clk.Now().Sub(b.openedAt)
		if remaining > 0 {
			return false, ceilSeconds(remaining)
		}
		b.setState(BreakerHalfOpen)
		b.probing = true
		return true, 0
	case BreakerHalfOpen:
		if b.probing {
			// A probe is already in flight.
			return false, 1
		}
		b.probing = true
		return true, 0
	default:
		return true, 0
	}
}

// record folds the outcome of a call that was admitted by allow. Only
// outcomes that actually reached the tool should be recorded: cache hits,
// cancellations before invocation and short-circuits never touch the breaker.
func (b *breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.clk.Now()
	if success {
		switch b.state {
		case BreakerHalfOpen, BreakerOpen:
			b.setState(BreakerClosed)
			b.failures = 0
		default:
			if b.failures > 0 {
				b.failures--
			}
		}
		b.probing = false
		return
	}
	if b.state == BreakerHalfOpen {
		// Failed probe: re-open with a fresh cooldown.
		b.probing = false
		b.open(now)
		return
	}
	if now.Sub(b.windowStart) > b.cfg.window {
		b.failures = 0
		b.windowStart = now
	}
	b.failures++
	if b.state == BreakerClosed && b.failures >= b.cfg.threshold {
		b.open(now)
	}
}

// releaseProbe clears the in-flight probe flag when an admitted call was
// cancelled before it reached the tool. Without this a half-open breaker
// would reject every later call waiting on a probe that will never finish.
func (b *breaker) releaseProbe() {
	b.mu.Lock()
	b.probing = false
	b.mu.Unlock()
}

func (b *breaker) open(now time.Time) {
	b.openedAt = now
	b.setState(BreakerOpen)
	b.ins.IncBreakerOpen(b.name)
}

// setState transitions the breaker and publishes the state gauge. Callers
// must hold mu.
func (b *breaker) setState(s BreakerState) {
	if b.state == s {
		return
	}
	b.state = s
	b.ins.SetBreakerState(b.name, float64(s))
}

func ceilSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
