// Package settings enumerates every tunable knob of the planning core. A
// Settings value is immutable once handed to the pipeline; components read it
// at construction time. Values load from defaults, then an optional YAML file,
// then TRIPSMITH_* environment overrides.
package settings

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings holds the recognized configuration options. Field names mirror the
// wire names used in config files.
type Settings struct {
	// SoftTimeoutS bounds each tool attempt, in seconds.
	SoftTimeoutS float64 `yaml:"soft_timeout_s"`
	// HardTimeoutS bounds a whole executor call, in seconds.
	HardTimeoutS float64 `yaml:"hard_timeout_s"`

	// RetryJitterMinMS and RetryJitterMaxMS bound the deterministic backoff
	// jitter drawn between attempts, in milliseconds. The draw is in
	// [min, max).
	RetryJitterMinMS int `yaml:"retry_jitter_min_ms"`
	RetryJitterMaxMS int `yaml:"retry_jitter_max_ms"`

	// BreakerFailureThreshold opens a tool's breaker after this many failures
	// inside BreakerWindowSeconds. BreakerCooldownSeconds is how long an open
	// breaker short-circuits before allowing a probe.
	BreakerFailureThreshold int `yaml:"breaker_failure_threshold"`
	BreakerWindowSeconds    int `yaml:"breaker_window_seconds"`
	BreakerCooldownSeconds  int `yaml:"breaker_cooldown_seconds"`

	// FXTTLHours and WeatherTTLHours control result-cache lifetimes for the
	// respective tools.
	FXTTLHours      int `yaml:"fx_ttl_hours"`
	WeatherTTLHours int `yaml:"weather_ttl_hours"`

	// AirportBufferMin is the required gap after a flight slot;
	// TransitBufferMin the default gap between ordinary slots.
	AirportBufferMin int `yaml:"airport_buffer_min"`
	TransitBufferMin int `yaml:"transit_buffer_min"`

	// FanoutCap bounds the planner's candidate count.
	FanoutCap int `yaml:"fanout_cap"`

	// TTFEBudgetMS, E2EP50BudgetS and E2EP95BudgetS are latency budgets the
	// eval harness reports against.
	TTFEBudgetMS  int `yaml:"ttfe_budget_ms"`
	E2EP50BudgetS int `yaml:"e2e_p50_budget_s"`
	E2EP95BudgetS int `yaml:"e2e_p95_budget_s"`

	// EvalRNGSeed seeds fixture generation in the eval harness.
	EvalRNGSeed int64 `yaml:"eval_rng_seed"`

	// RepairRecheck re-runs the verifier suite between repair cycles instead
	// of trusting diff-based violation clearing.
	RepairRecheck bool `yaml:"repair_recheck"`
}

// Default returns the documented default for every knob.
func Default() Settings {
	return Settings{
		SoftTimeoutS:            2.0,
		HardTimeoutS:            4.0,
		RetryJitterMinMS:        200,
		RetryJitterMaxMS:        500,
		BreakerFailureThreshold: 5,
		BreakerWindowSeconds:    60,
		BreakerCooldownSeconds:  30,
		FXTTLHours:              24,
		WeatherTTLHours:         24,
		AirportBufferMin:        120,
		TransitBufferMin:        15,
		FanoutCap:               4,
		TTFEBudgetMS:            800,
		E2EP50BudgetS:           6,
		E2EP95BudgetS:           10,
		EvalRNGSeed:             42,
	}
}

// Load reads a YAML settings file over the defaults and applies environment
// overrides. A missing path loads defaults plus environment only.
func Load(path string) (Settings, error) {
	s := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("read settings file: %w", err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("parse settings file: %w", err)
		}
	}
	s.applyEnv()
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate rejects values that would make a component misbehave.
func (s Settings) Validate() error {
	if s.SoftTimeoutS <= 0 {
		return fmt.Errorf("settings: soft_timeout_s must be positive, got %v", s.SoftTimeoutS)
	}
	if s.HardTimeoutS < s.SoftTimeoutS {
		return fmt.Errorf("settings: hard_timeout_s %v below soft_timeout_s %v", s.HardTimeoutS, s.SoftTimeoutS)
	}
	if s.RetryJitterMinMS < 0 || s.RetryJitterMaxMS <= s.RetryJitterMinMS {
		return fmt.Errorf("settings: retry jitter range [%d,%d) is empty", s.RetryJitterMinMS, s.RetryJitterMaxMS)
	}
	if s.BreakerFailureThreshold <= 0 {
		return fmt.Errorf("settings: breaker_failure_threshold must be positive, got %d", s.BreakerFailureThreshold)
	}
	if s.BreakerWindowSeconds <= 0 || s.BreakerCooldownSeconds <= 0 {
		return fmt.Errorf("settings: breaker window and cooldown must be positive")
	}
	if s.FanoutCap <= 0 {
		return fmt.Errorf("settings: fanout_cap must be positive, got %d", s.FanoutCap)
	}
	return nil
}

// SoftTimeout returns the per-attempt timeout as a duration.
func (s Settings) SoftTimeout() time.Duration {
	return time.Duration(s.SoftTimeoutS * float64(time.Second))
}

// HardTimeout returns the whole-call timeout as a duration.
func (s Settings) HardTimeout() time.Duration {
	return time.Duration(s.HardTimeoutS * float64(time.Second))
}

// BreakerWindow returns the failure-counting window as a duration.
func (s Settings) BreakerWindow() time.Duration {
	return time.Duration(s.BreakerWindowSeconds) * time.Second
}

// BreakerCooldown returns the open-state cooldown as a duration.
func (s Settings) BreakerCooldown() time.Duration {
	return time.Duration(s.BreakerCooldownSeconds) * time.Second
}

// FXTTL returns the FX cache lifetime as a duration.
func (s Settings) FXTTL() time.Duration {
	return time.Duration(s.FXTTLHours) * time.Hour
}

// WeatherTTL returns the weather cache lifetime as a duration.
func (s Settings) WeatherTTL() time.Duration {
	return time.Duration(s.WeatherTTLHours) * time.Hour
}

func (s *Settings) applyEnv() {
	envFloat("TRIPSMITH_SOFT_TIMEOUT_S", &s.SoftTimeoutS)
	envFloat("TRIPSMITH_HARD_TIMEOUT_S", &s.HardTimeoutS)
	envInt("TRIPSMITH_RETRY_JITTER_MIN_MS", &s.RetryJitterMinMS)
	envInt("TRIPSMITH_RETRY_JITTER_MAX_MS", &s.RetryJitterMaxMS)
	envInt("TRIPSMITH_BREAKER_FAILURE_THRESHOLD", &s.BreakerFailureThreshold)
	envInt("TRIPSMITH_BREAKER_WINDOW_SECONDS", &s.BreakerWindowSeconds)
	envInt("TRIPSMITH_BREAKER_COOLDOWN_SECONDS", &s.BreakerCooldownSeconds)
	envInt("TRIPSMITH_FX_TTL_HOURS", &s.FXTTLHours)
	envInt("TRIPSMITH_WEATHER_TTL_HOURS", &s.WeatherTTLHours)
	envInt("TRIPSMITH_AIRPORT_BUFFER_MIN", &s.AirportBufferMin)
	envInt("TRIPSMITH_TRANSIT_BUFFER_MIN", &s.TransitBufferMin)
	envInt("TRIPSMITH_FANOUT_CAP", &s.FanoutCap)
	envInt("TRIPSMITH_TTFE_BUDGET_MS", &s.TTFEBudgetMS)
	envInt("TRIPSMITH_E2E_P50_BUDGET_S", &s.E2EP50BudgetS)
	envInt("TRIPSMITH_E2E_P95_BUDGET_S", &s.E2EP95BudgetS)
	envInt64("TRIPSMITH_EVAL_RNG_SEED", &s.EvalRNGSeed)
	envBool("TRIPSMITH_REPAIR_RECHECK", &s.RepairRecheck)
}

func envFloat(key string, dst *float64) {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			*dst = v
		}
	}
}

func envInt(key string, dst *int) {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			*dst = v
		}
	}
}

func envInt64(key string, dst *int64) {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			*dst = v
		}
	}
}

func envBool(key string, dst *bool) {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			*dst = v
		}
	}
}
