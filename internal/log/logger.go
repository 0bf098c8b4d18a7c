// Package log provides leveled, structured logging for the whole tool.
// It is a thin front over zerolog so callers never import zerolog
// directly and tests can swap the output writer.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Verbosity levels, mapped onto zerolog levels.
const (
	LevelQuiet = iota // warnings and errors only
	LevelInfo         // -v: progress, per-recipient decisions, counts
	LevelDebug        // -vv: per-item decisions, API call outcomes
)

var logger zerolog.Logger

// Initialize sets up the global logger with the given verbosity.
func Initialize(verbosity int, w io.Writer) {
	var level zerolog.Level
	switch {
	case verbosity >= LevelDebug:
		level = zerolog.DebugLevel
	case verbosity >= LevelInfo:
		level = zerolog.InfoLevel
	default:
		level = zerolog.WarnLevel
	}

	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Debug starts a debug-level event.
func Debug() *zerolog.Event { return logger.Debug() }

// Info starts an info-level event.
func Info() *zerolog.Event { return logger.Info() }

// Warn starts a warn-level event.
func Warn() *zerolog.Event { return logger.Warn() }

// Error starts an error-level event.
func Error() *zerolog.Event { return logger.Error() }

func init() {
	Initialize(LevelQuiet, os.Stderr)
}
