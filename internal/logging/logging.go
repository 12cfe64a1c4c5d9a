// Package logging configures structured logging for codescout binaries.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Default returns a slog.Logger writing to stderr, tagged with the
// component name. The level comes from CODESCOUT_LOG_LEVEL (debug, info,
// warn, error) and the format from CODESCOUT_LOG_FORMAT (text, json).
func Default(name string) *slog.Logger {
	if strings.EqualFold(os.Getenv("CODESCOUT_LOG_FORMAT"), "json") {
		return JSON(name)
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: levelFromEnv(),
	})
	return slog.New(handler).With("component", name)
}

// JSON returns a logger emitting JSON records, for machine consumption.
func JSON(name string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: levelFromEnv(),
	})
	return slog.New(handler).With("component", name)
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("CODESCOUT_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
