package fetch

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// MaxAttempts is the total invocation budget per fetch; the result of
	// the final attempt is returned unconditionally.
	MaxAttempts = 10

	// backoffUnit scales the quadratic wait schedule.
	backoffUnit = 100 * time.Millisecond
)

// quadraticBackOff waits (1 + n²) × unit before retry n (n starting at 0).
// BackOff implementations are stateful; always construct a fresh instance
// per Claim.
type quadraticBackOff struct {
	unit    time.Duration
	attempt int
}

func (b *quadraticBackOff) NextBackOff() time.Duration {
	d := time.Duration(1+b.attempt*b.attempt) * b.unit
	b.attempt++
	return d
}

func (b *quadraticBackOff) Reset() { b.attempt = 0 }

// Retryable wraps one abstract remote operation with the bounded-retry
// contract. The zero value is not usable; construct with NewRetryable.
type Retryable[T any] struct {
	op   func(context.Context) (T, error)
	unit time.Duration
}

// NewRetryable wraps op. op is invoked once per attempt and must be safe to
// re-invoke after failure.
func NewRetryable[T any](op func(context.Context) (T, error)) *Retryable[T] {
	return &Retryable[T]{op: op, unit: backoffUnit}
}

// Claim blocks the calling goroutine until op yields a value or the attempt
// budget is exhausted. Terminal errors are returned immediately without
// retrying; transient errors trigger the quadratic backoff schedule.
// Cancelling ctx aborts the wait between attempts.
func (r *Retryable[T]) Claim(ctx context.Context) (T, error) {
	var result T
	bo := backoff.WithContext(
		backoff.WithMaxRetries(&quadraticBackOff{unit: r.unit}, MaxAttempts-1),
		ctx,
	)
	err := backoff.Retry(func() error {
		v, err := r.op(ctx)
		if err != nil {
			if IsTerminal(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = v
		return nil
	}, bo)
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
