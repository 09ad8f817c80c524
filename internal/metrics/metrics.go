// v0
// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"amlio/rover/internal/distance"
)

// Metrics groups the collectors of the rover service on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	distanceCM       *prometheus.GaugeVec
	requests         *prometheus.CounterVec
	driveCommands    *prometheus.CounterVec
	telemetryPublish *prometheus.CounterVec
}

// New registers the rover collectors plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		distanceCM: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rover_distance_cm",
			Help: "Latest ultrasonic distance per side in centimeters",
		}, []string{"side"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rover_http_requests_total",
			Help: "HTTP requests served by route and status code",
		}, []string{"route", "code"}),
		driveCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rover_drive_commands_total",
			Help: "Drive commands received by direction and outcome",
		}, []string{"direction", "result"}),
		telemetryPublish: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rover_telemetry_publish_total",
			Help: "Telemetry publish attempts by sink and outcome",
		}, []string{"sink", "result"}),
	}
	m.reg.MustRegister(
		m.distanceCM, m.requests, m.driveCommands, m.telemetryPublish,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveReading sets the per-side distance gauges.
func (m *Metrics) ObserveReading(r distance.Reading) {
	m.distanceCM.WithLabelValues("gauche").Set(r.Left)
	m.distanceCM.WithLabelValues("droite").Set(r.Right)
}

func (m *Metrics) ObserveRequest(route string, code int) {
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

func (m *Metrics) ObserveDrive(direction string, err error) {
	m.driveCommands.WithLabelValues(direction, result(err)).Inc()
}

func (m *Metrics) ObservePublish(sink string, err error) {
	m.telemetryPublish.WithLabelValues(sink, result(err)).Inc()
}

// Handler serves the private registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
