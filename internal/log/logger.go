package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// logFilePerm is the permission of a newly created log file.
const logFilePerm = 0o644

// nopCloser is returned when no log file is opened.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the application logger. Every record goes to the console
// through a charmbracelet/log handler and, when logFile is non-empty, is
// appended to that file as slog text. Both sinks sit behind a SecureHandler.
//
// The returned closer must be closed when logging is finished.
func New(console io.Writer, logFile string, verbose bool) (*slog.Logger, io.Closer, error) {
	if logFile == "" {
		return NewWithWriters(console, nil, verbose), nopCloser{}, nil
	}

	if dir := filepath.Dir(logFile); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePerm) //nolint:gosec // log path is user configured
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return NewWithWriters(console, f, verbose), f, nil
}

// NewWithWriters is New with the file sink given as a writer.
// A nil console or file writer disables that sink.
func NewWithWriters(console, file io.Writer, verbose bool) *slog.Logger {
	var handlers []slog.Handler
	if console != nil {
		handlers = append(handlers, newConsoleHandler(console, verbose))
	}
	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, &slog.HandlerOptions{
			Level: levelFor(verbose),
		}))
	}
	return slog.New(NewSecureHandler(NewTeeHandler(handlers...)))
}

// newConsoleHandler returns a human-friendly handler for terminals.
func newConsoleHandler(w io.Writer, verbose bool) slog.Handler {
	level := charmlog.InfoLevel
	if verbose {
		level = charmlog.DebugLevel
	}
	return charmlog.NewWithOptions(w, charmlog.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
}
