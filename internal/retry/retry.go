package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy describes a bounded retry loop with a fixed delay and optional
// random jitter between attempts. The same policy is shared by the batch
// fetcher and the fallback enricher so retry behavior stays uniform.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// Delay is the fixed wait between attempts.
	Delay time.Duration

	// Jitter adds a random duration in [0, Jitter) on top of Delay.
	Jitter time.Duration
}

// Do runs fn until it succeeds or MaxAttempts is exhausted. It returns nil on
// the first success, the last error after exhausting attempts, or the context
// error if the context is canceled while waiting between attempts.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == attempts {
			break
		}

		wait := p.Delay
		if p.Jitter > 0 {
			wait += time.Duration(rand.Int63n(int64(p.Jitter)))
		}
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return lastErr
}
