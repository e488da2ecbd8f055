package orchestrator

import "time"

// RetryPolicy decides, per failed step attempt, whether to resend or
// give up, and how long to wait before the resend. The zero delay
// configuration retries immediately with identical input, which is the
// default; setting InitialDelay enables bounded exponential backoff.
type RetryPolicy struct {
	// MaxRetries seeds each step's retry budget.
	MaxRetries int
	// InitialDelay is the wait before the first resend. Zero disables
	// backoff entirely.
	InitialDelay time.Duration
	// MaxDelay caps the backoff growth.
	MaxDelay time.Duration
	// Multiplier grows the delay per attempt. Values below 1 are
	// treated as 2.
	Multiplier float64
}

// DefaultRetryPolicy returns the fixed-count, no-backoff policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		Multiplier: 2,
	}
}

// ShouldRetry reports whether a step with the given counters may be
// resent. Pure decision: no clocks, no side effects.
func (p RetryPolicy) ShouldRetry(retryCount, maxRetries int) bool {
	return retryCount < maxRetries
}

// Delay returns the wait before resend attempt number retryCount
// (1-based). Zero when backoff is disabled.
func (p RetryPolicy) Delay(retryCount int) time.Duration {
	if p.InitialDelay <= 0 {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 2
	}
	d := p.InitialDelay
	for i := 1; i < retryCount; i++ {
		d = time.Duration(float64(d) * mult)
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}
