package syncq

import (
	"math"
	"time"
)

// RetryPolicy spaces out re-attempts of a failed queue item across drain
// passes. The zero value means "due again immediately", which reproduces
// the plain retry-on-next-pass behavior.
type RetryPolicy struct {
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay returns the delay before attempt n+1 given n failures so far
// (n is 1-based), growing exponentially and clamped at MaxDelay.
func (r RetryPolicy) NextDelay(failures int) time.Duration {
	if r.InitialDelay <= 0 {
		return 0
	}
	if failures < 1 {
		failures = 1
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	d := time.Duration(float64(r.InitialDelay) * math.Pow(factor, float64(failures-1)))
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	return d
}
