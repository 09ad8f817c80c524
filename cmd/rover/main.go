// v0
// cmd/rover/main.go
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"amlio/rover/internal/app"
	"amlio/rover/internal/config"
	"amlio/rover/internal/logging"
)

func main() {
	bootstrap := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(bootstrap)
	if err != nil {
		bootstrap.Error("config_load_failed", "err", err)
		os.Exit(1)
	}

	logger, accessLog, closeLog := logging.New(cfg.LogPath, cfg.LogLevel)
	defer closeLog()

	application, err := app.New(cfg, logger, accessLog)
	if err != nil {
		logger.Error("app_init_failed", "err", err)
		closeLog()
		os.Exit(1)
	}

	logger.Info("service_boot",
		"rover_id", cfg.RoverID,
		"listen_address", cfg.ListenAddr,
		"properties_path", cfg.PropertiesPath,
		"mqtt_broker", cfg.MQTTBroker,
		"kafka_brokers", strings.Join(cfg.KafkaBrokers, ","),
		"sensor_rate", cfg.Sensor.Rate.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		logger.Error("service_terminated", "err", err)
		stop()
		closeLog()
		os.Exit(1)
	}
	logger.Info("service_stopped")
}
