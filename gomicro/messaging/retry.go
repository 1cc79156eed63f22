package messaging

import (
	"context"
	"time"
)

// RetryPolicy is an exponential backoff schedule
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxAttempts bounds the initial dial; 0 means retry until ctx is done
	MaxAttempts int
}

// DefaultRetryPolicy backs off from 500ms up to 30s
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
		MaxAttempts:     5,
	}
}

// Next returns the delay after attempt n (starting at 0)
func (p RetryPolicy) Next(n int) time.Duration {
	d := p.InitialInterval
	for i := 0; i < n; i++ {
		d *= 2
		if d >= p.MaxInterval {
			return p.MaxInterval
		}
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
