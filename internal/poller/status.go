// v0
// internal/poller/status.go
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	StatusInterval = time.Second
	StatusLoading  = "Chargement..."
	StatusError    = "Erreur de communication avec le robot"
)

type StatusFetcher interface {
	Status(ctx context.Context) (string, error)
}

// StatusWatcher follows the autopilot status line.
type StatusWatcher struct {
	log      *slog.Logger
	fetch    StatusFetcher
	interval time.Duration

	mu   sync.RWMutex
	line string

	OnUpdate func(line string)
}

// NewStatusWatcher starts with StatusLoading until the first poll.
func NewStatusWatcher(log *slog.Logger, fetch StatusFetcher, interval time.Duration) *StatusWatcher {
	if interval <= 0 {
		interval = StatusInterval
	}
	return &StatusWatcher{log: log, fetch: fetch, interval: interval, line: StatusLoading}
}

// Line is the last status line shown.
func (w *StatusWatcher) Line() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.line
}

// PollOnce fetches the status line once. After ctx is done the previous
// line is kept and OnUpdate is not called.
func (w *StatusWatcher) PollOnce(ctx context.Context) string {
	line, err := w.fetch.Status(ctx)
	if ctx.Err() != nil {
		return w.Line()
	}
	if err != nil {
		w.log.Debug("status poll failed", "err", err)
		line = StatusError
	}
	w.mu.Lock()
	w.line = line
	w.mu.Unlock()
	if w.OnUpdate != nil {
		w.OnUpdate(line)
	}
	return line
}

// Run polls every interval until ctx is done.
func (w *StatusWatcher) Run(ctx context.Context) {
	every(ctx, w.interval, false, func(ctx context.Context) { w.PollOnce(ctx) })
}
