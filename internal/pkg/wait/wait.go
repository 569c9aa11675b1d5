// Package wait provides context-aware sleeps for pacing remote calls.
package wait

import (
	"context"
	"math/rand/v2"
	"time"
)

// For blocks for d or until the context is done, whichever comes first.
func For(ctx context.Context, d time.Duration) error {
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

// Between blocks for a uniformly random duration in [min, max]. It is used
// to pace calls on a human-looking schedule.
func Between(ctx context.Context, min, max time.Duration) error {
	d := min
	if span := max - min; span > 0 {
		d += rand.N(span)
	}
	return For(ctx, d)
}
