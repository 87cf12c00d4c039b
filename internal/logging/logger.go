// Package logging configures zerolog for the daemon and offers a few
// structured helpers for the events it logs most.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// contextKey is the type for context keys
type contextKey string

const (
	// RequestIDKey is the context key for request IDs
	RequestIDKey contextKey = "request_id"
	// RunIDKey is the context key for sync run IDs
	RunIDKey contextKey = "sync_run_id"
)

// Logger wraps zerolog for application logging
type Logger struct {
	logger zerolog.Logger
}

// Config holds logging configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	Output io.Writer
}

// New creates a logger. Unknown levels fall back to info, unknown formats
// to json.
func New(cfg Config) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(writer(cfg)).
		Level(level).
		With().
		Timestamp().
		Str("service", "musicfree-sync").
		Logger()
	return &Logger{logger: logger}
}

func writer(cfg Config) io.Writer {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.Format == "text" {
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return out
}

// SetGlobalLogger installs logger as the package-level zerolog logger used
// throughout the daemon.
func SetGlobalLogger(logger *Logger) {
	log.Logger = logger.logger
	zerolog.SetGlobalLevel(logger.logger.GetLevel())
}

// Zerolog exposes the underlying logger.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.logger
}

// SyncPass logs the outcome of one sync pass. Offline passes log at warn
// level, failures at error level.
func (l *Logger) SyncPass(runID, status string, changed bool, duration time.Duration, err error) {
	syncPass(&l.logger, runID, status, changed, duration, err)
}

func syncPass(logger *zerolog.Logger, runID, status string, changed bool, duration time.Duration, err error) {
	event := logger.Info()
	switch {
	case status == "offline":
		event = logger.Warn()
	case err != nil:
		event = logger.Error()
	}

	event.
		Str("sync_run_id", runID).
		Str("status", status).
		Bool("changed", changed).
		Dur("duration_ms", duration).
		Err(err).
		Msg("Sync pass")
}

// Info logs an info message using the global logger
func Info(msg string) {
	log.Info().Msg(msg)
}

// Fatal logs a fatal message and exits using the global logger
func Fatal(err error, msg string) {
	log.Fatal().Err(err).Msg(msg)
}

// SyncPass logs a sync pass outcome using the global logger
func SyncPass(runID, status string, changed bool, duration time.Duration, err error) {
	syncPass(&log.Logger, runID, status, changed, duration, err)
}

// AssetFailure logs a download that failed during a pass. The pass goes on
// without the asset.
func AssetFailure(ctx context.Context, kind, id string, err error) {
	WithContext(ctx).Warn().
		Err(err).
		Str("asset", kind).
		Str("id", id).
		Msg("Asset download failed")
}

// WithContext returns the global logger enriched with the request and sync
// run ids found in ctx.
func WithContext(ctx context.Context) *zerolog.Logger {
	logger := log.With()

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		logger = logger.Str("request_id", requestID)
	}
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		logger = logger.Str("sync_run_id", runID)
	}

	contextLogger := logger.Logger()
	return &contextLogger
}

// WithRunID returns a context carrying the sync run id.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}
