package checker

import (
	"context"
	"time"
)

// RetryPolicy configures how often and how patiently a URL is probed.
type RetryPolicy struct {
	MaxAttempts int             // total attempts, including the first (3)
	Delays      []time.Duration // wait before attempt i; the last entry repeats ([0, 1s, 2s])
	TimeoutBase time.Duration   // timeout of attempt 0 (15s)
	TimeoutStep time.Duration   // added to the timeout for each later attempt (5s)
}

// DefaultRetryPolicy returns a RetryPolicy with sensible defaults:
// 3 attempts, waits of 0s/1s/2s, timeouts of 15s/20s/25s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Delays:      []time.Duration{0, 1 * time.Second, 2 * time.Second},
		TimeoutBase: 15 * time.Second,
		TimeoutStep: 5 * time.Second,
	}
}

// Delay returns how long to wait before the given attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if len(p.Delays) == 0 || attempt < 0 {
		return 0
	}
	if attempt >= len(p.Delays) {
		return p.Delays[len(p.Delays)-1]
	}
	return p.Delays[attempt]
}

// Timeout returns the deadline budget of the given attempt. Zero means the
// attempt has no deadline of its own.
func (p RetryPolicy) Timeout(attempt int) time.Duration {
	return p.TimeoutBase + time.Duration(attempt)*p.TimeoutStep
}

// MaxDuration is the worst-case time a Retry loop under p can take:
// every delay plus every timeout.
func (p RetryPolicy) MaxDuration() time.Duration {
	var total time.Duration
	for attempt := range p.MaxAttempts {
		total += p.Delay(attempt) + p.Timeout(attempt)
	}
	return total
}

// Retry runs fn up to policy.MaxAttempts times, sleeping policy.Delay before
// each attempt, until fn reports done. Each attempt gets its own context
// bounded by policy.Timeout; that context is detached from ctx, so
// cancelling ctx never interrupts a running attempt. Cancellation is checked
// before every retry wait and aborts the wait. Retry returns the value of
// the last attempt and the number of attempts made.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context, attempt int) (T, bool)) (T, int) {
	var last T
	attempts := 0

	for attempt := range policy.MaxAttempts {
		if attempt > 0 && ctx.Err() != nil {
			return last, attempts
		}

		if delay := policy.Delay(attempt); delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return last, attempts
			case <-timer.C:
			}
		}

		attemptCtx, cancel := attemptContext(ctx, policy.Timeout(attempt))
		value, done := fn(attemptCtx, attempt)
		cancel()

		attempts++
		last = value
		if done {
			return last, attempts
		}
	}

	return last, attempts
}

func attemptContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(parent)
	if timeout <= 0 {
		return context.WithCancel(detached)
	}
	return context.WithTimeout(detached, timeout)
}
