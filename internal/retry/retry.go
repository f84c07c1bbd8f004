// Package retry runs bounded, fixed-backoff discovery loops.
package retry

import (
	"context"
	"errors"
	"time"
)

// ErrExhausted is returned when every attempt failed.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Policy bounds a retry loop.
type Policy struct {
	Attempts int
	Backoff  time.Duration
}

// Do calls fn until it reports done, the attempts run out, or ctx ends.
// fn receives the zero-based attempt number.
func Do(ctx context.Context, p Policy, fn func(attempt int) bool) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if fn(attempt) {
			return nil
		}
		if attempt == attempts-1 {
			break
		}

		timer := time.NewTimer(p.Backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return ErrExhausted
}
