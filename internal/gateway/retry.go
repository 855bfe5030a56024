package gateway

import (
	"context"
	"errors"
	"time"
)

// attemptFunc performs one bounded upstream call.
type attemptFunc func(ctx context.Context) (string, error)

// withRetry runs fn under a per-attempt deadline and retries at most once,
// after backoff, when the failure is retryable. Cancellation of ctx ends the
// wait immediately.
func withRetry(ctx context.Context, timeout, backoff time.Duration, fn attemptFunc) (string, error) {
	out, err := attempt(ctx, timeout, fn)
	if err == nil || !shouldRetry(ctx, err) {
		return out, err
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(backoff):
	}

	return attempt(ctx, timeout, fn)
}

func attempt(ctx context.Context, timeout time.Duration, fn attemptFunc) (string, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx)
}

func shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		return false
	}
	return gwErr.Retryable()
}
