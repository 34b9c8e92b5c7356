package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init builds the process logger from a level name and installs it as slog's default.
// DEBUG=true always wins over the configured level.
func Init(level string) *slog.Logger {
	if os.Getenv("DEBUG") == "true" {
		level = "debug"
	}

	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	l := slog.New(slog.NewTextHandler(os.Stdout, opts))
	slog.SetDefault(l)
	return l
}

// Component returns a child logger tagged with the component name.
func Component(base *slog.Logger, name string) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	return base.With("component", name)
}

// Discard is a logger for tests and disabled components.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ParseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
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
