// v0
// internal/poller/connection.go
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	Connected    = "Connecté"
	Disconnected = "Déconnecté"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnectionMonitor pings the rover right away and then every interval,
// keeping a Connecté/Déconnecté flag.
type ConnectionMonitor struct {
	log      *slog.Logger
	pinger   Pinger
	interval time.Duration

	mu     sync.RWMutex
	status string

	// OnChange, when set, is called with the new status on every transition.
	OnChange func(status string)
}

// NewConnectionMonitor starts Disconnected until the first successful ping.
func NewConnectionMonitor(log *slog.Logger, pinger Pinger, interval time.Duration) *ConnectionMonitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &ConnectionMonitor{log: log, pinger: pinger, interval: interval, status: Disconnected}
}

// Status is Connected or Disconnected.
func (m *ConnectionMonitor) Status() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *ConnectionMonitor) Connected() bool { return m.Status() == Connected }

// Check pings once and returns the new status.
func (m *ConnectionMonitor) Check(ctx context.Context) string {
	next := Connected
	err := m.pinger.Ping(ctx)
	if ctx.Err() != nil {
		return m.Status()
	}
	if err != nil {
		next = Disconnected
		m.log.Debug("ping failed", "err", err)
	}
	m.mu.Lock()
	changed := next != m.status
	m.status = next
	m.mu.Unlock()
	if changed {
		m.log.Info("connection status changed", "status", next)
		if m.OnChange != nil {
			m.OnChange(next)
		}
	}
	return next
}

// Run checks right away, then every interval until ctx is done.
func (m *ConnectionMonitor) Run(ctx context.Context) {
	every(ctx, m.interval, true, func(ctx context.Context) { m.Check(ctx) })
}
