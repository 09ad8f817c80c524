// v1
// internal/logging/logger.go
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds a slog text logger writing to stdout and, when path is not
// empty, to the file at path as well. The returned writer is the same
// destination so access logs end up next to the service logs. The cleanup
// func closes the file.
func New(path, level string) (*slog.Logger, io.Writer, func()) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if path == "" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts)), os.Stdout, func() {}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		l := slog.New(slog.NewTextHandler(os.Stdout, opts))
		l.Error("failed to open log file", "path", path, "err", err)
		return l, os.Stdout, func() {}
	}
	mw := io.MultiWriter(os.Stdout, f)
	l := slog.New(slog.NewTextHandler(mw, opts))
	l.Info("logger initialized", "file", path)
	cleanup := func() {
		_ = f.Sync()
		_ = f.Close()
	}
	return l, mw, cleanup
}

// Discard is handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
