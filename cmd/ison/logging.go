package main

import (
	"io"
	"log/slog"

	"github.com/lmittmann/tint"
)

// setupLogging installs a tint-colored slog handler writing to w at the
// requested level, as the process-wide default logger.
func setupLogging(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
