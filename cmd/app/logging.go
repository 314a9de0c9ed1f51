package main

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// newConsoleLogger returns a human-readable slog logger for client commands.
func newConsoleLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(log.NewWithOptions(w, log.Options{
		Level:           parseLogLevel(level),
		ReportTimestamp: true,
		Prefix:          "tasklist",
	}))
}

func parseLogLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.WarnLevel
	}
}
