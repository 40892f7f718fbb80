// Package logging provides structured logging utilities.
//
// Console logs are formatted for terminals, with colors when attached to one:
// [LEVEL] [SYSTEM] [HH:MM:SS] message key=value
//
// Set the format to "json" for machine-readable output.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/eshaffer321/openvera/internal/infrastructure/config"
)

// NewLoggerTo creates a structured logger writing to w. Commands pass
// stderr so their output on stdout stays clean.
func NewLoggerTo(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = NewConsoleHandler(w, opts)
	}

	return slog.New(handler)
}

// ParseLevel maps a config level name to a slog level. Unknown names mean info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
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
