// Package throttle enforces a minimum gap between consecutive calls.
package throttle

import (
	"context"
	"time"
)

// Throttle blocks the caller until at least Min has elapsed since the previous
// call returned from Wait. The zero value never blocks.
type Throttle struct {
	Min time.Duration

	last  time.Time
	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// New returns a throttle with the given minimum interval.
func New(min time.Duration) *Throttle {
	return &Throttle{Min: min}
}

// Wait sleeps until the interval has passed or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	now := time.Now
	if t.now != nil {
		now = t.now
	}
	after := time.After
	if t.after != nil {
		after = t.after
	}

	if t.Min > 0 && !t.last.IsZero() {
		// time.Time from time.Now carries a monotonic reading, so Sub is
		// immune to wall-clock jumps.
		if remaining := t.Min - now().Sub(t.last); remaining > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-after(remaining):
			}
		}
	}
	t.last = now()
	return nil
}
