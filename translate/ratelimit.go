package translate

import (
	"context"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Request rate gate (N requests per window, shared across workers)
// ---------------------------------------------------------------------------

// rateGate admits at most count requests per window. A nil gate admits
// everything; use newRateGate with count<=0 to get one.
type rateGate struct {
	mu     sync.Mutex
	count  int
	window time.Duration
	stamps []time.Time
}

func newRateGate(count int, window time.Duration) *rateGate {
	if count <= 0 || window <= 0 {
		return nil
	}
	return &rateGate{count: count, window: window}
}

// wait blocks until a request slot is available or ctx is done.
func (g *rateGate) wait(ctx context.Context) error {
	if g == nil {
		return nil
	}
	for {
		g.mu.Lock()
		now := time.Now()
		cutoff := now.Add(-g.window)
		live := g.stamps[:0]
		for _, t := range g.stamps {
			if t.After(cutoff) {
				live = append(live, t)
			}
		}
		g.stamps = live

		if len(g.stamps) < g.count {
			g.stamps = append(g.stamps, now)
			g.mu.Unlock()
			return nil
		}
		sleep := g.stamps[0].Add(g.window).Sub(now)
		g.mu.Unlock()

		if sleep < 10*time.Millisecond {
			sleep = 10 * time.Millisecond
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
}
