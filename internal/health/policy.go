package health

import (
	"math"
	"time"
)

// Policy is a bounded exponential backoff retry policy
type Policy struct {
	Tries      int
	Delay      time.Duration
	Multiplier float64
	MaxDelay   time.Duration
}

// Backoff returns the delay to sleep after the given zero-based attempt:
// min(Delay * Multiplier^attempt, MaxDelay)
func (p Policy) Backoff(attempt int) time.Duration {
	d := time.Duration(float64(p.Delay) * math.Pow(p.Multiplier, float64(attempt)))
	if d > p.MaxDelay || d < 0 {
		return p.MaxDelay
	}
	return d
}

// TotalWait returns the worst-case cumulative sleep time before the policy
// gives up. The final attempt is not followed by a sleep.
func (p Policy) TotalWait() time.Duration {
	var total time.Duration
	for k := 0; k < p.Tries-1; k++ {
		total += p.Backoff(k)
	}
	return total
}

// Outcome classifies a single readiness probe
type Outcome int

const (
	// OutcomeReady means the node reported the ready sentinel
	OutcomeReady Outcome = iota
	// OutcomeRetry means the probe failed in a way the policy retries
	OutcomeRetry
	// OutcomeFatal means the probe failed in a way no retry can fix
	OutcomeFatal
)

// probeResult is the tagged result of one probe: Ready, Retry with a
// human-readable reason, or Fatal with the underlying error
type probeResult struct {
	outcome Outcome
	reason  string
	err     error
}

func ready() probeResult {
	return probeResult{outcome: OutcomeReady}
}

func retry(reason string) probeResult {
	return probeResult{outcome: OutcomeRetry, reason: reason}
}

func fatal(err error) probeResult {
	return probeResult{outcome: OutcomeFatal, err: err}
}
