package db

import (
	"context"
	"fmt"
	"time"

	"govportal/internal/store"

	"go.uber.org/zap"
)

// RetryPolicy controls connect-with-retry. Delays double per attempt:
// BaseDelay, 2*BaseDelay, 4*BaseDelay...
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	// Sleep waits between attempts; nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy is three attempts starting at one second.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, BaseDelay: time.Second}

// Delay returns the wait after the given zero-based failed attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return p.BaseDelay << attempt
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
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

// ConnectWithRetry calls connect until it succeeds or the policy is
// exhausted. The returned error wraps store.ErrUnavailable and the last
// underlying failure.
func ConnectWithRetry[T any](ctx context.Context, p RetryPolicy, log *zap.Logger, connect func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		v, err := connect(ctx)
		if err == nil {
			log.Info("store connected", zap.Int("attempt", i+1))
			return v, nil
		}
		lastErr = err
		log.Warn("store connection attempt failed", zap.Int("attempt", i+1), zap.Error(err))

		if i == attempts-1 {
			break
		}
		delay := p.Delay(i)
		log.Info("retrying store connection", zap.Duration("delay", delay))
		if err := p.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}
	return zero, fmt.Errorf("%w: connect failed after %d attempts: %w", store.ErrUnavailable, attempts, lastErr)
}
