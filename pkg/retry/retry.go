package retry

import (
	"context"
	"time"
)

// Policy retries an operation a fixed number of times with linear backoff:
// the wait before attempt n+1 is n*Backoff.
type Policy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultPolicy matches the transport retry used for external engine calls.
func DefaultPolicy() Policy {
	return Policy{
		Attempts: 3,
		Backoff:  time.Second,
	}
}

func (p Policy) withDefaults() Policy {
	defaults := DefaultPolicy()
	if p.Attempts <= 0 {
		p.Attempts = defaults.Attempts
	}
	if p.Backoff <= 0 {
		p.Backoff = defaults.Backoff
	}
	return p
}

// Do runs fn until it succeeds, the attempt budget is spent, or the error is
// not retryable. The last error is returned on exhaustion.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error, retryable func(error) bool) error {
	cfg := p.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.Attempts {
			break
		}

		wait := time.Duration(attempt) * cfg.Backoff
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return lastErr
}
