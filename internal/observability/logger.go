// Package observability provides structured logging and metrics for scrapes.
package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog for structured logging. A nil *Logger discards
// everything.
type Logger struct {
	logger zerolog.Logger
}

// LogOptions configures NewLogger.
type LogOptions struct {
	Verbose bool // log per-directory and per-file progress
	JSON    bool // emit JSON lines instead of console output
}

// NewLogger creates a logger writing to output. Without Verbose the logger
// is silent.
func NewLogger(output io.Writer, opts LogOptions) *Logger {
	if output == nil {
		output = os.Stderr
	}
	if !opts.Verbose {
		return &Logger{logger: zerolog.Nop()}
	}

	if !opts.JSON {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.TimeOnly}
	}
	logger := zerolog.New(output).Level(zerolog.DebugLevel).With().
		Timestamp().
		Logger()
	return &Logger{logger: logger}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// WithRun adds run_id context to the logger.
func (l *Logger) WithRun(runID string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{logger: l.logger.With().Str("run_id", runID).Logger()}
}

// DirectoryVisited logs a directory entered by the walker.
func (l *Logger) DirectoryVisited(path string) {
	if l == nil {
		return
	}
	l.logger.Info().Str("dir", path).Msg("visiting directory")
}

// DirectoryUnreadable logs a subdirectory the walker had to skip.
func (l *Logger) DirectoryUnreadable(path string, err error) {
	if l == nil {
		return
	}
	l.logger.Warn().Str("path", path).Err(err).Msg("skipping unreadable entry")
}

// FileSkipped logs a file rejected by the signature check.
func (l *Logger) FileSkipped(path, reason string) {
	if l == nil {
		return
	}
	l.logger.Debug().Str("file", path).Str("reason", reason).Msg("skipping")
}

// FileProcessing logs the start of a file decode.
func (l *Logger) FileProcessing(path string) {
	if l == nil {
		return
	}
	l.logger.Info().Str("file", path).Msg("processing")
}

// FileDecoded logs a successful decode.
func (l *Logger) FileDecoded(path string, attributes int) {
	if l == nil {
		return
	}
	l.logger.Info().Str("file", path).Int("attributes", attributes).Msg("success")
}

// FileFailed logs a decode failure.
func (l *Logger) FileFailed(path string, err error) {
	if l == nil {
		return
	}
	l.logger.Error().Str("file", path).Err(err).Msg("failure")
}

// ScrapeCompleted logs the end of a scrape.
func (l *Logger) ScrapeCompleted(rows, columns, failed int, elapsed time.Duration) {
	if l == nil {
		return
	}
	l.logger.Info().
		Int("rows", rows).
		Int("columns", columns).
		Int("failed", failed).
		Float64("elapsed_seconds", elapsed.Seconds()).
		Msg("scrape completed")
}

// DatabaseSaved logs a persisted database.
func (l *Logger) DatabaseSaved(path string, rows int) {
	if l == nil {
		return
	}
	l.logger.Info().Str("path", path).Int("rows", rows).Msg("database saved")
}
