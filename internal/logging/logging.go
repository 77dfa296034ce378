package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogFileName is the append-only diagnostic log written in the working
// directory of the process.
const LogFileName = "output.log"

// Init initializes the global logger. Console output follows the verbose
// flag; the log file always captures debug-level detail so a failed run can
// be diagnosed after the fact.
func Init(verbose bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	consoleLevel := zerolog.InfoLevel
	if verbose {
		consoleLevel = zerolog.DebugLevel
	}

	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}

	writers := []io.Writer{leveledWriter{w: console, min: consoleLevel}}

	file, err := os.OpenFile(LogFileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		writers = append(writers, file)
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()

	if err != nil {
		log.Warn().Err(err).Str("file", LogFileName).Msg("could not open log file, logging to console only")
	}
}

// NewLogger creates a new logger with optional writers
func NewLogger(writers ...io.Writer) zerolog.Logger {
	if len(writers) == 0 {
		return log.Logger
	}

	if len(writers) == 1 {
		return zerolog.New(writers[0]).With().Timestamp().Logger()
	}

	multi := zerolog.MultiLevelWriter(writers...)
	return zerolog.New(multi).With().Timestamp().Logger()
}

// WithComponent creates a logger with a component field
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// leveledWriter drops events below min before handing them to w, so the
// console can stay at info while the file writer receives debug.
type leveledWriter struct {
	w   io.Writer
	min zerolog.Level
}

func (lw leveledWriter) Write(p []byte) (int, error) {
	return lw.w.Write(p)
}

func (lw leveledWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < lw.min {
		return len(p), nil
	}
	return lw.w.Write(p)
}
