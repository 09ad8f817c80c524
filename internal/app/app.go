// v0
// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"amlio/rover/internal/circuitbreaker"
	"amlio/rover/internal/config"
	"amlio/rover/internal/distance"
	"amlio/rover/internal/drive"
	"amlio/rover/internal/httpapi"
	"amlio/rover/internal/metrics"
	"amlio/rover/internal/sensor"
	"amlio/rover/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

// Application wires the rover service: the simulated sensors feed the
// distance store, the drive controller watches every sample, the HTTP API
// serves both, and the optional telemetry sinks export the readings.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *distance.Store
	drive     *drive.Controller
	sensor    *sensor.Simulator
	publisher *telemetry.Publisher
	health    *httpapi.HealthState
	handler   http.Handler
	server    *http.Server

	mu   sync.Mutex
	addr net.Addr
}

// New builds the service from cfg. accessLog receives the HTTP access log.
// Telemetry sinks that cannot be reached are logged and left out.
func New(cfg config.Config, logger *slog.Logger, accessLog io.Writer) (*Application, error) {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return nil, errors.New("listen address cannot be empty")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := metrics.New()
	store := distance.NewStore()
	ctrl := drive.NewController(logger.With("component", "drive"), cfg.Drive.DefaultSpeed, cfg.Drive.ObstacleCM)
	sim := sensor.NewSimulator(logger.With("component", "sensor"), store, cfg.Sensor, ctrl.Observe, m.ObserveReading)

	sinks := buildSinks(cfg, logger)
	pub := telemetry.NewPublisher(logger.With("component", "telemetry"), cfg.RoverID, store, cfg.TelemetryRate, m.ObservePublish, sinks...)

	health := httpapi.NewHealthState()
	api := httpapi.NewAPI(logger.With("component", "http"), store, ctrl, health, m)
	handler := httpapi.Wrap(httpapi.NewRouter(api), accessLog)

	return &Application{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		drive:     ctrl,
		sensor:    sim,
		publisher: pub,
		health:    health,
		handler:   handler,
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

func buildSinks(cfg config.Config, logger *slog.Logger) []telemetry.Sink {
	var sinks []telemetry.Sink
	bcfg := circuitbreaker.Config{MaxFailures: cfg.Breaker.MaxFailures, ResetTimeout: cfg.Breaker.ResetTimeout}

	if cfg.MQTTBroker != "" {
		client, err := telemetry.DialMQTT(cfg.MQTTBroker, "rover-"+cfg.RoverID)
		if err != nil {
			logger.Warn("mqtt_sink_disabled", "broker", cfg.MQTTBroker, "err", err)
		} else {
			brk := circuitbreaker.New("mqtt", bcfg, logger)
			sink := telemetry.NewMQTTSink(client, cfg.MQTTTopicPrefix, cfg.RoverID, brk)
			logger.Info("mqtt_sink_enabled", "broker", cfg.MQTTBroker, "topic", sink.Topic())
			sinks = append(sinks, sink)
		}
	}
	if len(cfg.KafkaBrokers) > 0 {
		w := telemetry.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		brk := circuitbreaker.New("kafka", bcfg, logger)
		sinks = append(sinks, telemetry.NewKafkaSink(w, w, brk))
		logger.Info("kafka_sink_enabled", "brokers", strings.Join(cfg.KafkaBrokers, ","), "topic", cfg.KafkaTopic)
	}
	return sinks
}

// Handler is the fully wrapped HTTP handler.
func (a *Application) Handler() http.Handler { return a.handler }

// Addr is the bound listener address, nil until Run has started listening.
func (a *Application) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addr
}

// Run starts the background loops and serves HTTP until ctx is cancelled
// or the server fails. Shutdown stops the motors, flips readiness off and
// drains in-flight requests.
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.ListenAddr, err)
	}
	a.mu.Lock()
	a.addr = ln.Addr()
	a.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		a.sensor.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		a.publisher.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		err := config.Watch(ctx, a.logger.With("component", "config"), a.cfg, a.reconfigure)
		if err != nil {
			a.logger.Warn("config_watch_failed", "err", err)
		}
	}()

	httpCh := make(chan error, 1)
	go func() {
		a.health.SetReady(true)
		a.logger.Info("http_server_listen", "address", ln.Addr().String())
		httpCh <- a.server.Serve(ln)
	}()

	var runErr error
	select {
	case err := <-httpCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http_server_error", "err", err)
			runErr = err
		}
		httpCh = nil
	case <-ctx.Done():
		a.logger.Info("shutdown_signal")
	}

	a.health.SetReady(false)
	a.drive.DisableAuto()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server_shutdown_failed", "err", err)
		if runErr == nil {
			runErr = fmt.Errorf("shutdown: %w", err)
		}
	}
	if httpCh != nil {
		if err := <-httpCh; err != nil && !errors.Is(err, http.ErrServerClosed) && runErr == nil {
			runErr = err
		}
	}
	cancel()
	wg.Wait()
	if runErr == nil {
		a.logger.Info("shutdown_complete")
	}
	return runErr
}

func (a *Application) reconfigure(next config.Config) {
	a.sensor.Reconfigure(next.Sensor)
	a.drive.SetObstacleThreshold(next.Drive.ObstacleCM)
}
