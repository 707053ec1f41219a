package util

import (
	"context"
	"errors"
	"time"

	"github.com/OFFIS-RIT/chronograph/pkg/logger"
	"github.com/OFFIS-RIT/chronograph/pkg/store"
)

// RetryWithContext calls fn up to maxTries times until it returns a nil error,
// or until ctx is done. If maxTries <= 0, it defaults to 1.
// Returns ctx.Err() if the context is canceled, otherwise returns the last error.
func RetryWithContext[T any](ctx context.Context, maxTries int, fn func(context.Context) (T, error)) (T, error) {
	return retry(ctx, maxTries, func(error) bool { return true }, fn)
}

// RetryOnConflict retries fn while it fails with a lost-update race. Any
// other error is returned immediately.
func RetryOnConflict[T any](ctx context.Context, maxTries int, fn func(context.Context) (T, error)) (T, error) {
	return retry(ctx, maxTries, store.IsRetryable, fn)
}

func retry[T any](ctx context.Context, maxTries int, retryable func(error) bool, fn func(context.Context) (T, error)) (T, error) {
	if maxTries <= 0 {
		maxTries = 1
	}
	var zero T
	var lastErr error
	for attempt := range maxTries {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || !retryable(err) {
			return zero, err
		}
		lastErr = err
		if attempt < maxTries-1 {
			logger.Debug("[Retry] Retrying after error", "attempt", attempt+1, "max_tries", maxTries, "err", err)
			if err := backoff(ctx, attempt); err != nil {
				return zero, err
			}
		}
	}
	return zero, lastErr
}

// backoff doubles from 10ms and waits one second from the seventh attempt on.
func backoff(ctx context.Context, attempt int) error {
	d := time.Second
	if attempt < 6 {
		d = 10 * time.Millisecond << attempt
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
