// v0
// internal/config/watch.go
package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 100 * time.Millisecond

// Watch reloads the sensor and drive tunables whenever the properties file
// is written. The directory is watched rather than the file so editors that
// replace the file on save are still noticed. onChange receives a copy of
// base with the new tunables applied; invalid results are logged and
// dropped. Watch blocks until ctx is done.
func Watch(ctx context.Context, log *slog.Logger, base Config, onChange func(Config)) error {
	if base.PropertiesPath == "" {
		return nil
	}
	abs, err := filepath.Abs(base.PropertiesPath)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	log.Info("properties watch started", "path", abs)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			log.Info("properties watch stopped")
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			pending = time.After(reloadDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("properties watch error", "err", err)
		case <-pending:
			pending = nil
			props, err := LoadProps(abs)
			if err != nil {
				log.Warn("properties reload failed", "err", err)
				continue
			}
			next := base
			next.ApplyTunables(props, log)
			if err := next.Validate(); err != nil {
				log.Warn("reloaded properties rejected", "err", err)
				continue
			}
			base = next
			log.Info("properties reloaded", "sensorRate", next.Sensor.Rate.String(), "obstacleCM", next.Drive.ObstacleCM)
			onChange(next)
		}
	}
}
