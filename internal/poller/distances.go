// v1
// internal/poller/distances.go
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"amlio/rover/internal/distance"
)

// DefaultInterval is the refresh period of the distance display.
const DefaultInterval = 3 * time.Second

// DistanceFetcher is the part of client.Client the poller needs.
type DistanceFetcher interface {
	Distances(ctx context.Context) (distance.Reading, error)
}

// Display holds the pair currently shown to the user.
type Display struct {
	mu      sync.RWMutex
	reading distance.Reading
}

func (d *Display) Set(r distance.Reading) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reading = r
}

func (d *Display) Get() distance.Reading {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.reading
}

// Poller refreshes a Display from the rover. Any fetch or decode failure
// shows {0, 0}; the next tick simply tries again.
type Poller struct {
	log      *slog.Logger
	fetch    DistanceFetcher
	interval time.Duration
	display  *Display

	// FetchOnStart polls once before waiting for the first tick.
	FetchOnStart bool
	// OnUpdate, when set, is called after every poll with the value now
	// displayed and the fetch error, if any.
	OnUpdate func(distance.Reading, error)
}

// NewPoller returns a poller that fetches every interval (DefaultInterval
// when interval is not positive). A nil display gets a fresh one.
func NewPoller(log *slog.Logger, fetch DistanceFetcher, interval time.Duration, display *Display) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if display == nil {
		display = &Display{}
	}
	return &Poller{log: log, fetch: fetch, interval: interval, display: display}
}

func (p *Poller) Display() *Display { return p.display }

// PollOnce performs a single fetch and updates the display. A fetch cut
// short by ctx leaves the display and OnUpdate untouched.
func (p *Poller) PollOnce(ctx context.Context) distance.Reading {
	r, err := p.fetch.Distances(ctx)
	if ctx.Err() != nil {
		return p.display.Get()
	}
	if err != nil {
		r = distance.Zero()
		p.log.Debug("distance poll failed", "err", err)
	}
	p.display.Set(r)
	if p.OnUpdate != nil {
		p.OnUpdate(r, err)
	}
	return r
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.log.Debug("distance poller started", "interval", p.interval.String())
	every(ctx, p.interval, p.FetchOnStart, func(ctx context.Context) { p.PollOnce(ctx) })
	p.log.Debug("distance poller stopped")
}
