package pricing

import (
	"math/rand/v2"
	"time"
)

// RetryDelay spaces out quote fetch retries. The wait doubles from Base on
// every attempt and is clamped to Cap. With Jitter set the wait is drawn
// uniformly from its upper half.
type RetryDelay struct {
	Base   time.Duration
	Cap    time.Duration
	Jitter bool
}

// NewRetryDelay returns jittered delays starting at base and capped at the
// per-attempt fetch timeout.
func NewRetryDelay(base, fetchTimeout time.Duration) RetryDelay {
	return RetryDelay{Base: base, Cap: fetchTimeout, Jitter: true}
}

// For returns the wait before retry n (1-based). A non-positive Base
// disables waiting.
func (d RetryDelay) For(n int) time.Duration {
	if d.Base <= 0 {
		return 0
	}
	if n < 1 {
		n = 1
	}
	ceiling := max(d.Cap, d.Base)

	wait := ceiling
	if shift := n - 1; shift < 62 && d.Base <= ceiling>>shift {
		wait = d.Base << shift
	}

	if d.Jitter {
		half := wait / 2
		wait = half + rand.N(wait-half+1)
	}
	return wait
}
