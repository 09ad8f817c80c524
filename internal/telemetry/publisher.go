// v1
// internal/telemetry/publisher.go
package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"amlio/rover/internal/distance"
)

// Publisher exports the latest stored reading to every sink at a fixed
// rate. A failing sink does not block the others.
type Publisher struct {
	log     *slog.Logger
	roverID string
	store   *distance.Store
	sinks   []Sink
	rate    time.Duration
	observe func(sink string, err error)
	now     func() time.Time
}

// NewPublisher reports every publish outcome to observe, which may be nil.
func NewPublisher(log *slog.Logger, roverID string, store *distance.Store, rate time.Duration, observe func(string, error), sinks ...Sink) *Publisher {
	if observe == nil {
		observe = func(string, error) {}
	}
	return &Publisher{log: log, roverID: roverID, store: store, sinks: sinks, rate: rate, observe: observe, now: time.Now}
}

// PublishOnce sends the current reading. Nothing is sent before the store
// has received its first sample.
func (p *Publisher) PublishOnce(ctx context.Context) error {
	if p.store.UpdatedAt().IsZero() {
		return nil
	}
	msg := NewMessage(p.roverID, p.now(), p.store.Latest())
	var errs []error
	for _, s := range p.sinks {
		err := s.Publish(ctx, msg)
		p.observe(s.Name(), err)
		if err != nil {
			p.log.Warn("telemetry publish failed", "sink", s.Name(), "err", err)
			errs = append(errs, err)
			continue
		}
		p.log.Debug("telemetry published", "sink", s.Name(), "id", msg.ID)
	}
	return errors.Join(errs...)
}

// Run publishes until ctx is done, then closes the sinks.
func (p *Publisher) Run(ctx context.Context) {
	if len(p.sinks) == 0 {
		p.log.Info("telemetry disabled, no sinks configured")
		return
	}
	t := time.NewTicker(p.rate)
	defer t.Stop()
	p.log.Info("telemetry publisher started", "rate", p.rate.String(), "sinks", len(p.sinks))
	for {
		select {
		case <-ctx.Done():
			for _, s := range p.sinks {
				if err := s.Close(); err != nil {
					p.log.Error("failed to close sink", "sink", s.Name(), "err", err)
				}
			}
			p.log.Info("telemetry publisher stopped")
			return
		case <-t.C:
			_ = p.PublishOnce(ctx)
		}
	}
}
