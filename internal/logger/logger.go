// Package logger provides leveled logging with support for debug, info, warn, and error levels.
// It wraps zerolog to provide level-based filtering with either JSON or console output,
// behind printf-style helpers.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	// Global logger instance; disabled until Init is called
	defaultLogger = zerolog.Nop()
	initialized   bool
)

// ParseLevel maps a config level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Init initializes the default logger with the specified level and format, writing to stderr
func Init(level string, format string) {
	InitWithWriter(os.Stderr, level, format)
}

// InitWithWriter initializes the default logger writing to w.
// Format "text" uses a human-readable console writer; anything else emits JSON lines.
func InitWithWriter(w io.Writer, level string, format string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := w
	if strings.ToLower(format) == "text" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000", NoColor: true}
	}

	defaultLogger = zerolog.New(out).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
	initialized = true
}

// Get returns the default logger for structured, field-based logging
func Get() *zerolog.Logger {
	return &defaultLogger
}

// Debug logs a message at DebugLevel
func Debug(format string, args ...interface{}) {
	defaultLogger.Debug().Msgf(format, args...)
}

// Info logs a message at InfoLevel
func Info(format string, args ...interface{}) {
	defaultLogger.Info().Msgf(format, args...)
}

// Warn logs a message at WarnLevel
func Warn(format string, args ...interface{}) {
	defaultLogger.Warn().Msgf(format, args...)
}

// Error logs a message at ErrorLevel
func Error(format string, args ...interface{}) {
	defaultLogger.Error().Msgf(format, args...)
}

// Fatal logs a message and exits
func Fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if initialized {
		defaultLogger.WithLevel(zerolog.FatalLevel).Msg(msg)
	} else {
		fmt.Fprintln(os.Stderr, "[FATAL] "+msg)
	}
	os.Exit(1)
}
