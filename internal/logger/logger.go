// Package logger provides a small package-level wrapper around zerolog for
// structured logging.
package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)
)

// Init configures the global logger.
// If debug is true, sets log level to Debug.
// If human is true, uses a human-friendly console writer.
func Init(debug, human bool) {
	InitWriter(os.Stderr, debug, human)
}

// InitWriter is Init with an explicit destination. The watch TUI uses it to
// move log output off the terminal.
func InitWriter(w io.Writer, debug, human bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	out := w
	if human {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	SetLogger(zerolog.New(out).Level(level).With().Timestamp().Logger())
}

// SetLogger replaces the global logger (useful for testing).
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

// L returns the current global logger.
func L() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// WithPhase returns a logger with the phase field set.
func WithPhase(phase string) zerolog.Logger {
	return L().With().Str("phase", phase).Logger()
}

// Error logs an error message with alternating key/value pairs.
func Error(msg string, args ...any) {
	l := L()
	l.Error().Fields(args).Msg(msg)
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	l := L()
	l.Info().Fields(args).Msg(msg)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	l := L()
	l.Warn().Fields(args).Msg(msg)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	l := L()
	l.Debug().Fields(args).Msg(msg)
}
