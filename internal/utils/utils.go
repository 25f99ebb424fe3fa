package utils

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sqs-event-poller/internal/logger"
)

// Generic retry function for transient errors.
// T is the return type (e.g. string, error-only via struct{}, etc).
func Retry[T any](ctx context.Context, attempts int, delay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for i := 0; i < attempts; i++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		logger.WarnCtx(ctx, "retry attempt failed",
			zap.Int("attempt", i+1), zap.Int("attempts", attempts), zap.Error(err))

		if i < attempts-1 {
			if err := Sleep(ctx, delay); err != nil {
				return zero, err
			}
		}
	}
	return zero, lastErr
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
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
}
