package retry

import (
	"context"
	"time"
)

type fn func() error
type shouldRetry func(err error, attempt int) bool

// WrapWithRetry wraps f, retrying it while shouldRetry returns true. Each
// retry waits delay; the wrapped function returns the last error once
// shouldRetry declines or ctx is cancelled.
func WrapWithRetry(ctx context.Context, f fn, shouldRetry shouldRetry, delay time.Duration) func() error {
	return func() error {
		attempt := 0

		for {
			err := f()
			if err == nil {
				return nil
			}

			attempt++
			if !shouldRetry(err, attempt) {
				return err
			}

			select {
			case <-ctx.Done():
				return err
			case <-time.After(delay):
			}
		}
	}
}
