package engine

import (
	"math"
	"math/rand/v2"
	"time"
)

// RetryPolicy controls how many times a step's model invocation is attempted
// and how long to wait between attempts.
type RetryPolicy struct {
	MaxAttempts  int           // minimum 1 (1 = no retries)
	InitialDelay time.Duration // base delay before the first retry
	Factor       float64       // exponential growth factor
	MaxDelay     time.Duration // upper bound on any single delay
	Jitter       bool          // randomize each delay in [0, computed]
}

// DefaultRetryPolicy returns the global default: 3 attempts, 500ms initial
// delay, 2x growth capped at 30s, full jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		Factor:       2.0,
		MaxDelay:     30 * time.Second,
		Jitter:       true,
	}
}

// DelayForAttempt computes the backoff delay after a given attempt
// (0-indexed): InitialDelay * Factor^attempt, capped at MaxDelay. With
// jitter enabled the delay is randomized in [0, computed].
func (p RetryPolicy) DelayForAttempt(attempt int) time.Duration {
	base := float64(p.InitialDelay.Nanoseconds()) * math.Pow(p.Factor, float64(attempt))
	capped := math.Min(base, float64(p.MaxDelay.Nanoseconds()))

	if p.Jitter && capped > 0 {
		capped = float64(rand.Int64N(int64(capped) + 1))
	}

	return time.Duration(int64(capped))
}

// ForStep applies a step's per-step override to the policy. Steps without an
// override inherit the policy unchanged.
func (p RetryPolicy) ForStep(s Step) RetryPolicy {
	if s.MaxAttempts > 0 {
		p.MaxAttempts = s.MaxAttempts
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	return p
}
