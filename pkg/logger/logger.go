// Package logger provides slog-based structured logging for the service.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"go.uber.org/fx"
)

// Module provides the application logger
var Module = fx.Module("logger",
	fx.Provide(NewLogger),
)

// NewLogger creates a logger configured from the environment.
// LOG_LEVEL controls verbosity (debug, info, warn/warning, error; default info).
// GO_ENV=production switches to the JSON handler for log aggregation.
func NewLogger() *slog.Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if os.Getenv("GO_ENV") == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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

// Scope returns an attribute tagging log lines with a subsystem name.
func Scope(name string) slog.Attr {
	return slog.String("scope", name)
}

// Error returns an attribute carrying an error value.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}
