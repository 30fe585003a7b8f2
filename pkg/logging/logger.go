// Package logging configures zerolog for vacancy-stats components.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"

	// LevelDisabled turns logging off (used by tests and -quiet).
	LevelDisabled LogLevel = "disabled"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output instead of JSON lines.
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// ForProvider derives a logger carrying the provider field.
func ForProvider(logger zerolog.Logger, provider string) zerolog.Logger {
	return logger.With().Str("provider", provider).Logger()
}

// Log Level Guidelines:
//
// Debug: per-request detail
//   - Page requests and their item/estimate counts
//   - Cache hit/miss, pauses between pages
//
// Info: progress of a run
//   - Category collected (found, processed, average)
//   - Provider run started/finished
//
// Warn: degraded but continuing
//   - Retry attempts
//   - Rate-limit cooldown waits (429 / Retry-After)
//   - Category skipped under the skip policy
//   - Cache errors (request falls through to the provider)
//
// Error: the run or a category failed
//   - Transport or schema failure aborting a category
//   - Run aborted under the abort policy
//
// Context Fields:
//   - component: vacancy-stats, http-client, collector, engine, pacer, rate-limit, cache
//   - provider: job board name (headhunter, superjob)
//   - category: search category (programming language)
//   - page: zero-based page number sent to the provider
//   - status: HTTP status code
//   - error_class: client, server, rate_limit, network
//   - duration: request or run duration
