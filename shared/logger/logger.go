package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Log is the process-wide structured logger. Tests get the defaults from
// init; main overrides them from config.
var Log *slog.Logger

func init() {
	Initialize("info", false)
}

// Initialize configures the global logger. useJSON switches to the JSON
// handler for log collectors; the text handler stays the development
// default.
func Initialize(level string, useJSON bool) {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: true,
	}

	var handler slog.Handler
	if useJSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	Log = slog.New(handler)
	slog.SetDefault(Log)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
