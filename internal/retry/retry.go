// Package retry provides a small, clock-driven retry policy.
//
// A Policy pairs a maximum attempt count with a fixed backoff. The device
// session uses an unbounded policy for opening the transport; the scheduler
// uses one to repeat whole flush cycles.
package retry

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-notecard/internal/clock"
)

// Policy describes how often and how many times to retry.
type Policy struct {
	// MaxAttempts bounds the number of calls to the operation.
	// Zero means unbounded.
	MaxAttempts int

	// Backoff is the fixed delay between attempts.
	Backoff time.Duration

	// Clock drives the backoff sleeps. Nil means the system clock.
	Clock clock.Clock
}

// Fixed returns an unbounded policy with a fixed backoff.
func Fixed(backoff time.Duration, clk clock.Clock) Policy {
	return Policy{Backoff: backoff, Clock: clk}
}

// Stop wraps an error to end Do without further attempts.
type Stop struct {
	Err error
}

func (s *Stop) Error() string { return s.Err.Error() }
func (s *Stop) Unwrap() error { return s.Err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &Stop{Err: err}
}

// Do calls fn until it succeeds, returns a Permanent error, the attempt budget
// is spent, or ctx is cancelled.
//
// onFail, when non-nil, is called after each failed attempt with the 1-based
// attempt number and its error, before sleeping.
//
// Returns:
//   - nil when fn succeeded
//   - the unwrapped error for Permanent failures
//   - the last error when MaxAttempts is exhausted
//   - ctx.Err() when the context ended while waiting
func (p Policy) Do(ctx context.Context, fn func(attempt int) error, onFail func(attempt int, err error)) error {
	clk := p.Clock
	if clk == nil {
		clk = clock.System{}
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(attempt)
		if err == nil {
			return nil
		}
		if stop, ok := err.(*Stop); ok {
			return stop.Err
		}
		if onFail != nil {
			onFail(attempt, err)
		}
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return err
		}
		if err := clk.Sleep(ctx, p.Backoff); err != nil {
			return err
		}
	}
}
