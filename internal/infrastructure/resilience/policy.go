package resilience

import "time"

// RetryPolicy bounds reattempts of one failed call.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// BreakerPolicy tunes the circuit breaker guarding one operation. The zero
// value keeps the breaker on; set Disabled for call sites that must never
// fail fast.
type BreakerPolicy struct {
	Disabled       bool
	MinRequests    uint32
	FailureRatio   float64
	OpenFor        time.Duration
	HalfOpenProbes uint32
}

// Policy is the resilience envelope for one remote capability. Capabilities
// get their own executor so a flapping enhancer cannot trip the breaker in
// front of extraction.
type Policy struct {
	Retry   RetryPolicy
	Breaker BreakerPolicy
}

func DefaultPolicy() Policy {
	return Policy{
		Retry: RetryPolicy{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2.0,
		},
		Breaker: BreakerPolicy{
			MinRequests:    10,
			FailureRatio:   0.5,
			OpenFor:        30 * time.Second,
			HalfOpenProbes: 2,
		},
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	out := p

	if out.Retry.MaxAttempts <= 0 {
		out.Retry.MaxAttempts = def.Retry.MaxAttempts
	}
	if out.Retry.InitialDelay <= 0 {
		out.Retry.InitialDelay = def.Retry.InitialDelay
	}
	if out.Retry.MaxDelay < out.Retry.InitialDelay {
		out.Retry.MaxDelay = out.Retry.InitialDelay
	}
	if out.Retry.Multiplier < 1.0 {
		out.Retry.Multiplier = def.Retry.Multiplier
	}

	if out.Breaker.MinRequests == 0 {
		out.Breaker.MinRequests = def.Breaker.MinRequests
	}
	if out.Breaker.FailureRatio <= 0 || out.Breaker.FailureRatio > 1 {
		out.Breaker.FailureRatio = def.Breaker.FailureRatio
	}
	if out.Breaker.OpenFor <= 0 {
		out.Breaker.OpenFor = def.Breaker.OpenFor
	}
	if out.Breaker.HalfOpenProbes == 0 {
		out.Breaker.HalfOpenProbes = def.Breaker.HalfOpenProbes
	}
	return out
}
