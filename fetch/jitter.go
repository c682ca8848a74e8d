package fetch

import (
	"context"
	"math/rand/v2"
	"time"
)

// Jitter is a randomized pause between requests. The zero value never
// sleeps.
type Jitter struct {
	Min time.Duration
	Max time.Duration
}

func (j Jitter) Duration() time.Duration {
	if j.Max <= j.Min {
		return max(j.Min, 0)
	}
	return j.Min + time.Duration(rand.Int64N(int64(j.Max-j.Min)+1))
}

// Sleep waits for a random duration in [Min, Max] or until ctx is done.
func (j Jitter) Sleep(ctx context.Context) error {
	d := j.Duration()
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
