package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"homeclean/internal/domain"
	"homeclean/internal/repository"
)

// permanentErrors are outcomes a retry cannot change.
var permanentErrors = []error{
	context.Canceled,
	context.DeadlineExceeded,
	repository.ErrNotFound,
	repository.ErrSlotTaken,
	repository.ErrStaleVersion,
	domain.ErrInvalidDuration,
	domain.ErrCrossesMidnight,
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	for _, p := range permanentErrors {
		if errors.Is(err, p) {
			return false
		}
	}
	return true
}

// RetryPolicy bounds how storage failures are retried.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy makes three attempts starting 50ms apart.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:     3,
	InitialInterval: 50 * time.Millisecond,
	MaxInterval:     time.Second,
}

// withRetry runs op until it succeeds, fails permanently, or attempts run out.
func withRetry(ctx context.Context, policy RetryPolicy, op func() error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.MaxInterval = policy.MaxInterval
	b.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		err := op()
		if err != nil && !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx))
}
