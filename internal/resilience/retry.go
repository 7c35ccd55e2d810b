package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Retry runs op with exponential backoff until it succeeds, the attempt
// budget is spent, or ctx is done. maxTries counts the first attempt; a
// maxTries of 1 means no retry. Wrap an error with Permanent to stop early.
func Retry[T any](ctx context.Context, maxTries int, op func() (T, error)) (T, error) {
	if maxTries < 1 {
		maxTries = 1
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(maxTries)),
	)
}

// Permanent marks err as non-retryable for Retry.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
