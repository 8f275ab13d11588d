// Package logging configures the process-wide slog logger.
//
// The TUI owns the terminal, so records go to a log file that the log view
// tails. Headless commands may log to stderr instead.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Options select where and how records are written.
type Options struct {
	Path   string    // log file; empty writes to Writer
	Level  string    // debug, info, warn, error
	Format string    // text or json
	Writer io.Writer // used when Path is empty; nil discards
}

// Init builds a logger from opts and installs it as the slog default. The
// returned closer releases the log file, if one was opened.
func Init(opts Options) (*slog.Logger, io.Closer, error) {
	var (
		w      io.Writer = io.Discard
		closer io.Closer = nopCloser{}
	)
	switch {
	case opts.Path != "":
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w, closer = f, f
	case opts.Writer != nil:
		w = opts.Writer
	}

	logger := New(w, opts.Level, opts.Format)
	slog.SetDefault(logger)
	return logger, closer, nil
}

// New returns a logger writing to w without touching the default.
func New(w io.Writer, level, format string) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
