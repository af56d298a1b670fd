// Package logging provides structured logging with zerolog.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
	}
}

// New builds a logger writing to w; nothing global is touched.
// ZEROLOG_LOG_LEVEL overrides the configured level and ENV=dev forces
// console output.
func New(cfg Config, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}

	levelName := cfg.Level
	if v := os.Getenv("ZEROLOG_LOG_LEVEL"); v != "" {
		levelName = v
	}
	level, err := zerolog.ParseLevel(levelName)
	if err != nil || levelName == "" {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" || os.Getenv("ENV") == "dev" {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.Kitchen,
		}
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// WithComponent returns a logger with a component tag.
func WithComponent(log zerolog.Logger, component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// WithRecording returns a logger with recording context.
func WithRecording(log zerolog.Logger, recordingID string) zerolog.Logger {
	return log.With().Str("recording_id", recordingID).Logger()
}

// WithRun returns a logger with run context.
func WithRun(log zerolog.Logger, runID string) zerolog.Logger {
	return log.With().Str("run_id", runID).Logger()
}
