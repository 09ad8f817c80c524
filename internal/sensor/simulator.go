// v1
// internal/sensor/simulator.go
package sensor

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"amlio/rover/internal/config"
	"amlio/rover/internal/distance"
)

// Simulator stands in for the two ultrasonic sensors. Each side follows a
// bounded random walk and every sample is written to the store, then
// handed to the observers.
type Simulator struct {
	log       *slog.Logger
	store     *distance.Store
	observers []func(distance.Reading)

	mu      sync.Mutex
	cfg     config.SensorConfig
	rng     *rand.Rand
	current distance.Reading
	rateCh  chan struct{}
}

// NewSimulator starts both sides halfway between MinCM and MaxCM.
func NewSimulator(log *slog.Logger, store *distance.Store, cfg config.SensorConfig, observers ...func(distance.Reading)) *Simulator {
	mid := cfg.MinCM + (cfg.MaxCM-cfg.MinCM)/2
	return &Simulator{
		log:       log,
		store:     store,
		observers: observers,
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		current:   distance.Reading{Left: mid, Right: mid},
		rateCh:    make(chan struct{}, 1),
	}
}

// Step produces one sample, stores it and notifies the observers.
func (s *Simulator) Step() distance.Reading {
	s.mu.Lock()
	s.current.Left = s.walk(s.current.Left)
	s.current.Right = s.walk(s.current.Right)
	r := s.current
	s.mu.Unlock()

	if err := s.store.Set(r); err != nil {
		s.log.Error("sample rejected", "err", err)
		return r
	}
	for _, fn := range s.observers {
		fn(r)
	}
	return r
}

// must hold s.mu
func (s *Simulator) walk(v float64) float64 {
	v += (s.rng.Float64()*2 - 1) * s.cfg.StepCM
	v = math.Max(s.cfg.MinCM, math.Min(s.cfg.MaxCM, v))
	return math.Round(v*10) / 10
}

// Reconfigure swaps bounds and rate while running.
func (s *Simulator) Reconfigure(cfg config.SensorConfig) {
	s.mu.Lock()
	prev := s.cfg.Rate
	s.cfg = cfg
	s.mu.Unlock()
	if cfg.Rate != prev {
		// Run reads the rate under s.mu, so a pending signal already covers
		// this change.
		select {
		case s.rateCh <- struct{}{}:
		default:
		}
	}
	s.log.Info("sensor reconfigured", "rate", cfg.Rate.String(), "min", cfg.MinCM, "max", cfg.MaxCM)
}

// Run samples at the configured rate until ctx is done.
func (s *Simulator) Run(ctx context.Context) {
	s.mu.Lock()
	rate := s.cfg.Rate
	s.mu.Unlock()
	t := time.NewTicker(rate)
	defer t.Stop()
	s.log.Info("sensor simulator started", "rate", rate.String())
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sensor simulator stopped")
			return
		case <-s.rateCh:
			s.mu.Lock()
			rate = s.cfg.Rate
			s.mu.Unlock()
			t.Reset(rate)
		case <-t.C:
			s.Step()
		}
	}
}
