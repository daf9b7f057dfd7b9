// Package retry runs an attempt function under a bounded retry policy.
// Attempts are strictly sequential and the wait between them goes through
// a Sleeper so tests never touch real timers.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy bounds how many times an operation runs and how long to wait
// between consecutive attempts.
type Policy struct {
	MaxAttempts int
	// Backoff returns the wait after the given 1-based failed attempt.
	Backoff func(attempt int) time.Duration
}

// Linear waits unit*attempt: 1s, 2s, 3s... for a one second unit.
func Linear(unit time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return unit * time.Duration(attempt)
	}
}

// Sleeper blocks for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// TimerSleeper sleeps on a real timer.
var TimerSleeper Sleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
})

type stopError struct {
	err error
}

func (e *stopError) Error() string { return e.err.Error() }
func (e *stopError) Unwrap() error { return e.err }

// Stop marks err as terminal: Do returns it without further attempts.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return &stopError{err: err}
}

// Do calls fn with attempt numbers starting at 1 until it succeeds, returns
// a Stop error, ctx is done, or the policy runs out of attempts. The last
// attempt error is returned unwrapped from any Stop marker.
func Do(ctx context.Context, p Policy, s Sleeper, fn func(ctx context.Context, attempt int) error) error {
	if s == nil {
		s = TimerSleeper
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}

		var stop *stopError
		if errors.As(lastErr, &stop) {
			return stop.err
		}
		if ctx.Err() != nil || attempt == maxAttempts {
			break
		}

		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		if err := s.Sleep(ctx, wait); err != nil {
			break
		}
	}
	return lastErr
}
