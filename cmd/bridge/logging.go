// cmd/bridge/logging.go
package main

import (
	"log/slog"
	"os"

	"github.com/tamzrod/modbus-mqtt-bridge/internal/logstream"
)

func setupLogger(level, format string, q *logstream.Queue) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: level == "debug",
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(logstream.NewTee(handler, q, logLevel)).With(
		"service", projectName,
		"version", version,
		"pid", os.Getpid(),
	)
}
