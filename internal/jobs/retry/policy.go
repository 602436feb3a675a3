package retry

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy selects how the delay between attempts grows.
type Strategy string

const (
	StrategyImmediate   Strategy = "immediate"
	StrategyFixedDelay  Strategy = "fixed_delay"
	StrategyLinear      Strategy = "linear_backoff"
	StrategyExponential Strategy = "exponential_backoff"
)

// Policy decides whether to retry and how long to wait between attempts.
type Policy struct {
	MaxAttempts int
	Strategy    Strategy
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
}

// DefaultPolicy returns the policy the orchestrator uses:
// exponential backoff 1s..60s with jitter, three attempts.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Strategy:    StrategyExponential,
		BaseDelay:   1 * time.Second,
		MaxDelay:    60 * time.Second,
		Jitter:      true,
	}
}

// ShouldRetry reports whether another attempt is worthwhile. Permanent
// failures never retry; any severity stops once attempts are exhausted.
func (p Policy) ShouldRetry(sev Severity, attempt int) bool {
	if attempt >= p.MaxAttempts {
		return false
	}
	return sev == SeverityRecoverable || sev == SeverityTemporary
}

// Delay computes the wait before the next attempt. Attempt numbers are
// 1-based. The result is clamped to [0, MaxDelay]; when jitter is enabled
// a uniform ±10% is added to spread out concurrent retries.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	var raw float64
	switch p.Strategy {
	case StrategyImmediate:
		raw = 0
	case StrategyFixedDelay:
		raw = float64(p.BaseDelay)
	case StrategyLinear:
		raw = float64(p.BaseDelay) * float64(attempt)
	case StrategyExponential:
		raw = float64(p.BaseDelay) * math.Pow(2, float64(attempt-1))
	default:
		raw = float64(p.BaseDelay)
	}

	if raw > float64(p.MaxDelay) {
		raw = float64(p.MaxDelay)
	}
	delay := time.Duration(raw)

	if p.Jitter && delay > 0 {
		jitter := time.Duration((rand.Float64()*0.2 - 0.1) * float64(delay))
		delay += jitter
	}

	if delay < 0 {
		delay = 0
	}
	return delay
}
