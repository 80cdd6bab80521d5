// Package backoff computes reconnect delays for the broker link and
// retry delays for history fetches.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Policy defines the parameters for delay calculation. A Factor of 1
// with zero Jitter yields a fixed delay on every attempt.
type Policy struct {
	// InitialMs is the delay for the first attempt in milliseconds.
	InitialMs float64
	// MaxMs caps the delay in milliseconds.
	MaxMs float64
	// Factor is the exponential factor applied per attempt.
	Factor float64
	// Jitter is the randomization factor (0.0 to 1.0).
	Jitter float64
}

// Compute calculates the delay for a given attempt number.
// Attempt numbers start at 1.
func Compute(policy Policy, attempt int) time.Duration {
	return ComputeWithRand(policy, attempt, rand.Float64()) // #nosec G404 -- jitter does not require cryptographic randomness
}

// ComputeWithRand calculates the delay using a provided random value
// in [0.0, 1.0). Useful for deterministic tests.
func ComputeWithRand(policy Policy, attempt int, randomValue float64) time.Duration {
	exp := math.Max(float64(attempt-1), 0)
	base := policy.InitialMs * math.Pow(policy.Factor, exp)
	jitterAmount := base * policy.Jitter * randomValue
	total := math.Min(policy.MaxMs, base+jitterAmount)
	return time.Duration(math.Round(total)) * time.Millisecond
}

// FixedReconnectPolicy returns the broker reconnect default: a flat
// 5 second delay on every attempt, no jitter.
func FixedReconnectPolicy() Policy {
	return Policy{
		InitialMs: 5000,
		MaxMs:     5000,
		Factor:    1,
		Jitter:    0,
	}
}

// DefaultPolicy returns the exponential alternative for consumers
// that opt out of the fixed reconnect delay.
// Initial: 1s, Max: 30s, Factor: 2, Jitter: 10%
func DefaultPolicy() Policy {
	return Policy{
		InitialMs: 1000,
		MaxMs:     30000,
		Factor:    2,
		Jitter:    0.1,
	}
}

// FetchRetryPolicy returns the policy used between history fetch
// retries. Initial: 250ms, Max: 2s, Factor: 2, Jitter: 20%
func FetchRetryPolicy() Policy {
	return Policy{
		InitialMs: 250,
		MaxMs:     2000,
		Factor:    2,
		Jitter:    0.2,
	}
}
