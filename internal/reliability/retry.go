package reliability

import (
	"context"
	"fmt"
	"time"
)

// Strategy selects how the wait between attempts grows.
type Strategy string

const (
	FixedDelay       Strategy = "fixed"
	ExponentialDelay Strategy = "exponential"
)

func (s Strategy) IsValid() bool {
	switch s {
	case FixedDelay, ExponentialDelay:
		return true
	default:
		return false
	}
}

// Policy bounds how often and how patiently a rate-limited call is retried.
type Policy struct {
	MaxAttempts  int
	BackoffDelay time.Duration
	Strategy     Strategy
	MaxDelay     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		BackoffDelay: 2 * time.Second,
		Strategy:     FixedDelay,
		MaxDelay:     30 * time.Second,
	}
}

func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.BackoffDelay < 0 {
		return fmt.Errorf("backoff delay must not be negative, got %v", p.BackoffDelay)
	}
	if p.Strategy != "" && !p.Strategy.IsValid() {
		return fmt.Errorf("unknown retry strategy %q", p.Strategy)
	}
	return nil
}

// Delay returns the wait before the retry that follows the given failed attempt
// (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if p.Strategy != ExponentialDelay {
		return p.BackoffDelay
	}
	capDur := p.MaxDelay
	if capDur < p.BackoffDelay {
		capDur = p.BackoffDelay
	}
	return ExponentialBackoff(attempt-1, p.BackoffDelay, capDur)
}

// Option customizes a single Do invocation.
type Option func(*runOptions)

type runOptions struct {
	onRetry func(attempt int, err error, delay time.Duration)
	sleep   func(ctx context.Context, d time.Duration) error
}

// WithOnRetry registers a hook called before each backoff wait.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(o *runOptions) { o.onRetry = fn }
}

// WithSleep replaces the context-aware timer used between attempts.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *runOptions) { o.sleep = fn }
}

// Do runs op until it succeeds, fails with a non-retryable classification, or
// the policy's attempts are used up. Only RateLimited failures are retried; the
// last failure is returned once attempts run out.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error), opts ...Option) (T, error) {
	o := runOptions{sleep: sleepContext}
	for _, opt := range opts {
		opt(&o)
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var zero T
	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if !Classify(err).Retryable() || attempt >= attempts {
			return zero, err
		}

		delay := p.Delay(attempt)
		if o.onRetry != nil {
			o.onRetry(attempt, err, delay)
		}
		if serr := o.sleep(ctx, delay); serr != nil {
			return zero, fmt.Errorf("retry wait after attempt %d: %w (last failure: %v)", attempt, serr, err)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
