// Package retry provides a bounded exponential-backoff policy attached to
// external call sites (model backend, mail transport).
package retry

import (
	"context"
	"time"
)

// Policy bounds how often and how long an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// BaseDelay is the wait after the first failure; it doubles after
	// each subsequent failure.
	BaseDelay time.Duration

	// MaxDelay caps the backoff wait.
	MaxDelay time.Duration
}

// DefaultPolicy matches the classifier's contract: 3 attempts with short
// exponential backoff.
var DefaultPolicy = Policy{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
	MaxDelay:    5 * time.Second,
}

// Do runs fn until it succeeds, the attempts are exhausted, or the context
// is cancelled. It returns the last error observed.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := p.BaseDelay
	var err error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return err
}
