package oto

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retryPolicy retries retryable failures with a constant backoff. The zero
// value performs exactly one attempt.
type retryPolicy struct {
	maxRetries uint64
	interval   time.Duration
}

func (p retryPolicy) enabled() bool {
	return p.maxRetries > 0
}

// run executes op, retrying while IsRetryable reports true for its error.
// When the context ends between attempts the result is still an *APIError,
// carrying the status and body of the last failed attempt.
func run[T any](ctx context.Context, p retryPolicy, op func() (T, error), onError func(err error, wait time.Duration)) (T, error) {
	if !p.enabled() {
		return op()
	}

	var b backoff.BackOff
	b = backoff.NewConstantBackOff(p.interval)
	b = backoff.WithContext(b, ctx)
	b = backoff.WithMaxRetries(b, p.maxRetries)

	var result T
	var lastErr error
	opWrapper := func() error {
		var err error
		result, err = op()
		lastErr = err
		if err != nil && !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.RetryNotify(opWrapper, b, onError)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return result, retryAbortedError(ctx.Err(), lastErr)
	}
	return result, err
}
