// Package logging provides zerolog-based structured logging helpers shared
// by the CLI, HTTP server, and storage layers. The quantification engine
// itself never logs; callers attach loggers to the context at the edges.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config describes how the process-wide logger should be constructed.
type Config struct {
	// Level is a zerolog level string ("debug", "info", "warn", "error").
	Level string
	// Format selects "console" (human readable) or "json".
	Format string
	// Output selects "stderr", "stdout", or "file".
	Output string
	// File is the log file path when Output is "file".
	File string
	// Caller enables caller annotation on log lines.
	Caller bool
}

// Result carries the constructed logger plus file-handle bookkeeping so the
// caller can close the log file on shutdown.
type Result struct {
	Logger   zerolog.Logger
	FilePath string
	// UsingFile is true when log lines are being written to FilePath.
	UsingFile bool
	// FallbackUsed is true when the file could not be opened and logging
	// fell back to stderr.
	FallbackUsed   bool
	FallbackReason string

	file *os.File
}

// Close releases the log file handle, if any.
func (r *Result) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// New builds a logger from cfg. Unparseable levels default to info. When a
// file output cannot be opened, New falls back to stderr and records the
// reason in the Result rather than failing the command.
func New(cfg Config) Result {
	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer
	result := Result{}

	switch cfg.Output {
	case "file":
		f, openErr := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if openErr != nil {
			result.FallbackUsed = true
			result.FallbackReason = openErr.Error()
			out = consoleWriter(os.Stderr)
		} else {
			result.file = f
			result.FilePath = cfg.File
			result.UsingFile = true
			out = f
		}
	case "stdout":
		out = consoleWriter(os.Stdout)
	default:
		out = consoleWriter(os.Stderr)
	}

	if cfg.Format == "json" {
		// JSON output bypasses the console writer even on stderr.
		if !result.UsingFile {
			if cfg.Output == "stdout" {
				out = os.Stdout
			} else {
				out = os.Stderr
			}
		}
	}

	builder := zerolog.New(out).Level(lvl).With().Timestamp()
	if cfg.Caller {
		builder = builder.Caller()
	}
	result.Logger = builder.Logger()
	return result
}

func consoleWriter(f *os.File) io.Writer {
	return zerolog.ConsoleWriter{Out: f, TimeFormat: time.RFC3339}
}

// ComponentLogger returns a child logger tagged with a component field.
func ComponentLogger(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// WithContext attaches logger to ctx for later retrieval via FromContext.
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// FromContext returns the logger attached to ctx, or a disabled logger when
// none was attached. Library code can therefore log unconditionally without
// nil checks.
func FromContext(ctx context.Context) zerolog.Logger {
	return *zerolog.Ctx(ctx)
}

// PrintFallbackWarning writes a human-readable notice that file logging was
// unavailable and stderr is being used instead.
func PrintFallbackWarning(w io.Writer, reason string) {
	_, _ = fmt.Fprintf(w, "Warning: file logging unavailable (%s), using stderr\n", reason)
}
