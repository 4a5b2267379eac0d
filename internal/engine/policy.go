package engine

import "time"

// Policy decides what a store failure means for a validation call.
type Policy int

const (
	// PolicyFailOpen treats an unverifiable candidate as unique so a
	// storage outage never halts publishing. The product accepts the risk
	// of an occasional duplicate over a silent stall.
	PolicyFailOpen Policy = iota
	// PolicyFailClosed rejects candidates while the store is unreachable.
	PolicyFailClosed
	// PolicyRetry retries the store a few times, then degrades to fail-open.
	PolicyRetry
)

const (
	storeRetryAttempts = 3
	storeRetryDelay    = 200 * time.Millisecond
)

// ParsePolicy maps a config string to a Policy. Unknown values fail open.
func ParsePolicy(s string) Policy {
	switch s {
	case "fail_closed":
		return PolicyFailClosed
	case "retry":
		return PolicyRetry
	default:
		return PolicyFailOpen
	}
}

func (p Policy) String() string {
	switch p {
	case PolicyFailClosed:
		return "fail_closed"
	case PolicyRetry:
		return "retry"
	default:
		return "fail_open"
	}
}

// withRetry runs fn up to attempts times with a linearly growing delay.
func withRetry(attempts int, delay time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt < attempts {
			time.Sleep(time.Duration(attempt) * delay)
		}
	}
	return lastErr
}
