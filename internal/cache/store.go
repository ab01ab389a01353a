package cache

import (
	"context"
	"time"
)

// Window is the state of a fixed-window counter after a hit.
type Window struct {
	Count   int64
	ResetIn time.Duration
}

// Counter keeps fixed-window hit counts that every server instance shares.
type Counter interface {
	// Hit records one hit on key. The window starts with the first hit and lasts window.
	Hit(ctx context.Context, key string, window time.Duration) (Window, error)
}

// Purger is implemented by counters whose finished windows must be deleted explicitly.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Option customises a Counter implementation.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the clock used to open and close windows.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func normaliseWindow(window time.Duration) time.Duration {
	if window <= 0 {
		return time.Minute
	}
	return window
}
