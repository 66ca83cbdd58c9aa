package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

var ErrAttemptsExhausted = errors.New("session: attempts exhausted")

// Retry runs fn up to cfg.MaxAttempts times, sleeping NextBackoffDelay
// between attempts. It stops early when ctx ends or fn returns an error
// wrapping ErrPermanent.
func Retry(ctx context.Context, cfg Config, rng *rand.Rand, fn func(attempt int) error) error {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		last = fn(attempt)
		if last == nil {
			return nil
		}
		if errors.Is(last, ErrPermanent) || attempt == attempts {
			break
		}
		timer := time.NewTimer(NextBackoffDelay(cfg.Backoff, attempt, rng))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	if errors.Is(last, ErrPermanent) {
		return last
	}
	return fmt.Errorf("%w after %d: %w", ErrAttemptsExhausted, attempts, last)
}

// ErrPermanent marks an attempt failure that retrying cannot fix.
var ErrPermanent = errors.New("session: permanent failure")
