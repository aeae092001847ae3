// Package logger builds slog loggers from configuration.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/soundprediction/graphmodel/pkg/config"
	"github.com/soundprediction/graphmodel/pkg/telemetry"
)

// NewDefaultLogger returns a text logger writing to stderr at the given level.
func NewDefaultLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// New builds a logger from configuration. Format is "text" or "json".
func New(cfg config.LogConfig) *slog.Logger {
	level := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	if cfg.TelemetryDir != "" {
		if ph, err := telemetry.NewParquetHandler(handler, cfg.TelemetryDir); err == nil {
			handler = ph
		} else {
			slog.New(handler).Warn("telemetry disabled", "error", err)
		}
	}
	return slog.New(handler)
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
