package scraper

import (
	"context"
	"math/rand"
	"time"
)

// Timing holds the waits an adapter uses when it drives the page itself (detail fetches, login probes)
type Timing struct {
	NavigationTimeout time.Duration
	Settle            time.Duration
	SlowSettle        time.Duration // script-heavy pages
	WaitTimeout       time.Duration
}

// DefaultTiming matches the live-site waits
func DefaultTiming() Timing {
	return Timing{
		NavigationTimeout: 60 * time.Second,
		Settle:            2 * time.Second,
		SlowSettle:        3 * time.Second,
		WaitTimeout:       15 * time.Second,
	}
}

// Sleep waits for d or until ctx is done, whichever comes first
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Jitter returns a duration uniformly distributed in [min, max]
func Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)+1))
}

// Present reports whether selector currently matches anything on the page
func Present(ctx context.Context, page Surface, selector string) bool {
	found, err := page.ExtractAll(ctx, selector)
	return err == nil && len(found) > 0
}

// AnyPresent reports whether any of the selectors match
func AnyPresent(ctx context.Context, page Surface, selectors ...string) bool {
	for _, selector := range selectors {
		if Present(ctx, page, selector) {
			return true
		}
	}
	return false
}
