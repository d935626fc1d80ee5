package app

import (
	"log/slog"
	"os"
)

const logFormatJSON = "json"

// NewLogger builds the process logger. LOG_FORMAT=json switches to JSON
// output for log shipping; anything else stays human readable.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && cfg.LogFormat == logFormatJSON {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
