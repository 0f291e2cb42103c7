package gcal

import (
	"context"
	"sync"
	"time"
)

// rateLimiter enforces a minimum interval between calls per named
// operation. The Google Calendar API throttles per-user queries, so
// a small gap between consecutive free/busy requests keeps a batch of
// sequential calls under the quota.
type rateLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	lastCall    map[string]time.Time
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

func newRateLimiter(minInterval time.Duration) *rateLimiter {
	return &rateLimiter{
		minInterval: minInterval,
		lastCall:    make(map[string]time.Time),
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

// wait blocks until at least minInterval has passed since the previous
// call for the same operation. Returns early if the context is done.
func (r *rateLimiter) wait(ctx context.Context, operation string) error {
	if r == nil || r.minInterval <= 0 {
		return nil
	}
	r.mu.Lock()
	last, ok := r.lastCall[operation]
	nowTS := r.now()
	var pause time.Duration
	if ok {
		if elapsed := nowTS.Sub(last); elapsed < r.minInterval {
			pause = r.minInterval - elapsed
		}
	}
	r.lastCall[operation] = nowTS.Add(pause)
	r.mu.Unlock()

	if pause <= 0 {
		return nil
	}
	return r.sleep(ctx, pause)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
