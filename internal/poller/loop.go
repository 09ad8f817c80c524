// v0
// internal/poller/loop.go
package poller

import (
	"context"
	"time"
)

// every calls fn once per interval until ctx is done. Calls never overlap:
// ticks that fire while fn is still running are dropped by the ticker. The
// ticker is stopped before every returns.
func every(ctx context.Context, interval time.Duration, immediate bool, fn func(context.Context)) {
	if immediate {
		fn(ctx)
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if ctx.Err() != nil {
				return
			}
			fn(ctx)
		}
	}
}
