package shopify

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy defines the retry behavior for Admin API calls.
type RetryPolicy struct {
	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
	jitterFactor float64
}

// DefaultRetryPolicy returns a production-ready retry policy.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		maxAttempts:  3,
		initialDelay: 500 * time.Millisecond,
		maxDelay:     10 * time.Second,
		multiplier:   2.0,
		jitterFactor: 0.1,
	}
}

// NoRetryPolicy returns a policy that never retries.
func NoRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		maxAttempts: 1,
		multiplier:  1,
	}
}

// WithMaxAttempts sets the maximum number of attempts, the first one included.
func (p *RetryPolicy) WithMaxAttempts(n int) *RetryPolicy {
	if n < 1 {
		n = 1
	}
	p.maxAttempts = n
	return p
}

// WithInitialDelay sets the initial delay between retries.
func (p *RetryPolicy) WithInitialDelay(d time.Duration) *RetryPolicy {
	p.initialDelay = d
	return p
}

// WithMaxDelay sets the maximum delay between retries.
func (p *RetryPolicy) WithMaxDelay(d time.Duration) *RetryPolicy {
	p.maxDelay = d
	return p
}

// WithMultiplier sets the delay multiplier for exponential backoff.
func (p *RetryPolicy) WithMultiplier(m float64) *RetryPolicy {
	p.multiplier = m
	return p
}

// WithJitter sets the jitter factor (0.0 to 1.0).
func (p *RetryPolicy) WithJitter(j float64) *RetryPolicy {
	p.jitterFactor = j
	return p
}

// MaxAttempts returns the maximum number of attempts.
func (p *RetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// ShouldRetry determines if an error should be retried.
func (p *RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if attempt >= p.maxAttempts || err == nil {
		return false
	}
	return isRetryable(err)
}

func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (p *RetryPolicy) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.initialDelay
	b.MaxInterval = p.maxDelay
	b.RandomizationFactor = p.jitterFactor
	b.Multiplier = p.multiplier
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// RetryResult holds the result of a retry operation.
type RetryResult struct {
	Attempts  int
	LastError error
	Duration  time.Duration
}

// Executor executes an operation with the retry policy.
type Executor struct {
	policy *RetryPolicy
}

// NewExecutor creates a new retry executor with the given policy.
func NewExecutor(policy *RetryPolicy) *Executor {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	return &Executor{policy: policy}
}

// Execute runs the operation with retries according to the policy. A
// Retry-After hint carried by a rate limit error stretches the next delay,
// capped at the policy's max delay.
func (e *Executor) Execute(ctx context.Context, operation func() error) *RetryResult {
	start := time.Now()
	result := &RetryResult{}
	hint := &retryAfterBackOff{maxDelay: e.policy.maxDelay}

	op := func() error {
		result.Attempts++
		err := operation()
		if err == nil {
			return nil
		}
		if !e.policy.ShouldRetry(err, result.Attempts) {
			return backoff.Permanent(err)
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			hint.retryAfter = apiErr.RetryAfter
		}
		return err
	}

	retries := uint64(0)
	if e.policy.maxAttempts > 1 {
		retries = uint64(e.policy.maxAttempts - 1)
	}
	hint.BackOff = backoff.WithMaxRetries(e.policy.newBackOff(), retries)

	result.LastError = backoff.Retry(op, backoff.WithContext(hint, ctx))
	result.Duration = time.Since(start)
	return result
}

// retryAfterBackOff honours a server supplied Retry-After delay.
type retryAfterBackOff struct {
	backoff.BackOff
	retryAfter time.Duration
	maxDelay   time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	wait := b.retryAfter
	b.retryAfter = 0
	if b.maxDelay > 0 && wait > b.maxDelay {
		wait = b.maxDelay
	}
	if wait > next {
		return wait
	}
	return next
}
