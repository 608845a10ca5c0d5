// Package retry wraps transient-failure retries with capped exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy configures the backoff applied to transient failures.
type Policy struct {
	// InitialInterval is the first wait between attempts.
	InitialInterval time.Duration
	// MaxInterval caps the wait between attempts.
	MaxInterval time.Duration
	// MaxElapsedTime bounds the total retry budget.
	MaxElapsedTime time.Duration
}

// DefaultPolicy returns the standard retry budget: exponential backoff capped
// at 30 seconds per attempt with a two-minute overall budget.
func DefaultPolicy() Policy {
	return Policy{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
		MaxElapsedTime:  2 * time.Minute,
	}
}

// Do executes op, retrying while retryable reports the returned error as
// transient. Non-transient errors stop the retry loop immediately and are
// returned as-is. A nil retryable treats every error as permanent.
func (p Policy) Do(ctx context.Context, retryable func(error) bool, op func() error) error {
	expo := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		expo.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		expo.MaxInterval = p.MaxInterval
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if opErr := op(); opErr != nil {
			if retryable != nil && retryable(opErr) {
				return struct{}{}, opErr
			}
			return struct{}{}, backoff.Permanent(opErr)
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(expo),
		backoff.WithMaxElapsedTime(p.MaxElapsedTime),
	)
	return err
}
