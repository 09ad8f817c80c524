// v2
// internal/config/config.go
package config

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config is the runtime configuration of the rover service. Values come
// from a key=value properties file, then environment variables override
// the transport settings.
type Config struct {
	PropertiesPath string
	ListenAddr     string
	RoverID        string
	LogPath        string
	LogLevel       string

	Sensor  SensorConfig
	Drive   DriveConfig
	Breaker BreakerConfig

	// Telemetry sinks stay disabled while their broker settings are empty.
	MQTTBroker      string
	MQTTTopicPrefix string
	KafkaBrokers    []string
	KafkaTopic      string
	TelemetryRate   time.Duration
}

// SensorConfig drives the simulated ultrasonic pair.
type SensorConfig struct {
	Rate   time.Duration
	MinCM  float64
	MaxCM  float64
	StepCM float64
}

type DriveConfig struct {
	DefaultSpeed int
	ObstacleCM   float64
}

type BreakerConfig struct {
	MaxFailures  int
	ResetTimeout time.Duration
}

// Defaults returns the configuration used when no properties are given.
func Defaults() Config {
	return Config{
		ListenAddr: ":8080",
		LogPath:    "rover.log",
		LogLevel:   "INFO",
		Sensor: SensorConfig{
			Rate:   500 * time.Millisecond,
			MinCM:  2,
			MaxCM:  400,
			StepCM: 15,
		},
		Drive:           DriveConfig{DefaultSpeed: 50, ObstacleCM: 20},
		Breaker:         BreakerConfig{MaxFailures: 5, ResetTimeout: 30 * time.Second},
		MQTTTopicPrefix: "rover",
		KafkaTopic:      "rover.distances",
		TelemetryRate:   2 * time.Second,
	}
}

// Load reads ROVER_PROPERTIES (when set or when the default file exists)
// and applies environment overrides. A missing RoverID is filled with a
// random UUID.
func Load(log *slog.Logger) (Config, error) {
	cfg := Defaults()
	path := os.Getenv("ROVER_PROPERTIES")
	explicit := path != ""
	if !explicit {
		path = "./configs/rover.properties"
	}
	cfg.PropertiesPath = path

	props, err := LoadProps(path)
	switch {
	case err == nil:
		cfg.Apply(props, log)
	case explicit || !errors.Is(err, os.ErrNotExist):
		return Config{}, err
	default:
		log.Warn("properties file not found, using defaults", "path", path)
		cfg.PropertiesPath = ""
	}

	applyEnv(&cfg)

	if cfg.RoverID == "" {
		cfg.RoverID = uuid.NewString()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadProps parses a properties file. Blank lines and lines starting with
// '#' or '//' are skipped, as are lines without '='.
func LoadProps(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot load properties file: %w", err)
	}
	defer f.Close()

	m := map[string]string{}
	s := bufio.NewScanner(f)
	for s.Scan() {
		ln := strings.TrimSpace(s.Text())
		if ln == "" || strings.HasPrefix(ln, "#") || strings.HasPrefix(ln, "//") {
			continue
		}
		k, v, ok := strings.Cut(ln, "=")
		if !ok {
			continue
		}
		m[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("read properties %s: %w", path, err)
	}
	return m, nil
}

// Apply overlays the known keys of props on c. Malformed values are logged
// and the current value is kept.
func (c *Config) Apply(props map[string]string, log *slog.Logger) {
	c.ListenAddr = gets(props, "listen_addr", c.ListenAddr)
	c.RoverID = gets(props, "rover.id", c.RoverID)
	c.LogPath = gets(props, "log.path", c.LogPath)
	c.LogLevel = gets(props, "log.level", c.LogLevel)
	c.ApplyTunables(props, log)

	c.MQTTBroker = gets(props, "mqtt.broker", c.MQTTBroker)
	c.MQTTTopicPrefix = gets(props, "mqtt.topic_prefix", c.MQTTTopicPrefix)
	if v, ok := props["kafka.brokers"]; ok {
		c.KafkaBrokers = splitCSV(v)
	}
	c.KafkaTopic = gets(props, "kafka.topic", c.KafkaTopic)
	c.TelemetryRate = getd(props, "telemetry.rate", c.TelemetryRate, log)
	c.Breaker.MaxFailures = geti(props, "circuit.maxfailures", c.Breaker.MaxFailures, log)
	c.Breaker.ResetTimeout = getd(props, "circuit.reset", c.Breaker.ResetTimeout, log)
}

// ApplyTunables only touches the values that can change while running.
func (c *Config) ApplyTunables(props map[string]string, log *slog.Logger) {
	c.Sensor.Rate = getd(props, "sensor.rate", c.Sensor.Rate, log)
	c.Sensor.MinCM = getf(props, "sensor.min_cm", c.Sensor.MinCM, log)
	c.Sensor.MaxCM = getf(props, "sensor.max_cm", c.Sensor.MaxCM, log)
	c.Sensor.StepCM = getf(props, "sensor.step_cm", c.Sensor.StepCM, log)
	c.Drive.DefaultSpeed = geti(props, "drive.default_speed", c.Drive.DefaultSpeed, log)
	c.Drive.ObstacleCM = getf(props, "drive.obstacle_cm", c.Drive.ObstacleCM, log)
}

// Validate rejects values the service cannot run with.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen_addr must not be empty")
	}
	if c.Sensor.Rate <= 0 {
		return errors.New("sensor.rate must be > 0")
	}
	if c.Sensor.MinCM < 0 || c.Sensor.MaxCM <= c.Sensor.MinCM {
		return fmt.Errorf("sensor range invalid: min=%g max=%g", c.Sensor.MinCM, c.Sensor.MaxCM)
	}
	if c.Drive.DefaultSpeed < 0 || c.Drive.DefaultSpeed > 100 {
		return fmt.Errorf("drive.default_speed must be within 0..100, got %d", c.Drive.DefaultSpeed)
	}
	if c.Drive.ObstacleCM < 0 {
		return errors.New("drive.obstacle_cm must be >= 0")
	}
	if c.Breaker.MaxFailures < 1 {
		return errors.New("circuit.maxfailures must be >= 1")
	}
	if c.Breaker.ResetTimeout <= 0 {
		return errors.New("circuit.reset must be > 0")
	}
	if c.TelemetryRate <= 0 {
		return errors.New("telemetry.rate must be > 0")
	}
	return nil
}

func applyEnv(c *Config) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("ROVER_ID"); v != "" {
		c.RoverID = v
	}
	if v := os.Getenv("LOG_PATH"); v != "" {
		c.LogPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		c.MQTTBroker = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.KafkaBrokers = splitCSV(v)
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.KafkaTopic = v
	}
}

func gets(m map[string]string, key, def string) string {
	if v, ok := m[key]; ok && v != "" {
		return v
	}
	return def
}

func getf(m map[string]string, key string, def float64, log *slog.Logger) float64 {
	if v, ok := m[key]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Warn("invalid float in properties, using default", "key", key, "val", v, "default", def)
	}
	return def
}

func geti(m map[string]string, key string, def int, log *slog.Logger) int {
	if v, ok := m[key]; ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Warn("invalid int in properties, using default", "key", key, "val", v, "default", def)
	}
	return def
}

func getd(m map[string]string, key string, def time.Duration, log *slog.Logger) time.Duration {
	if v, ok := m[key]; ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Warn("invalid duration in properties, using default", "key", key, "val", v, "default", def)
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
