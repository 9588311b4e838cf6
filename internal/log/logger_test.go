package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewWithWriters_WritesToBothSinks tests that one record reaches the
// console and the file writer.
func TestNewWithWriters_WritesToBothSinks(t *testing.T) {
	t.Parallel()

	var console, file bytes.Buffer
	logger := NewWithWriters(&console, &file, false)

	logger.Info("page fetched", "page", 2, "links", 10)

	for name, buf := range map[string]*bytes.Buffer{"console": &console, "file": &file} {
		if !strings.Contains(buf.String(), "page fetched") {
			t.Errorf("expected message in %s output, got: %s", name, buf.String())
		}
	}
	if !strings.Contains(file.String(), "links=10") {
		t.Errorf("expected text attributes in file output, got: %s", file.String())
	}
}

// TestNewWithWriters_Levels tests that debug records only appear in verbose mode.
func TestNewWithWriters_Levels(t *testing.T) {
	t.Parallel()

	t.Run("debug hidden by default", func(t *testing.T) {
		t.Parallel()

		var console, file bytes.Buffer
		NewWithWriters(&console, &file, false).Debug("hidden_debug_message")

		if strings.Contains(console.String()+file.String(), "hidden_debug_message") {
			t.Error("expected debug message to be hidden")
		}
	})

	t.Run("debug shown when verbose", func(t *testing.T) {
		t.Parallel()

		var console, file bytes.Buffer
		NewWithWriters(&console, &file, true).Debug("shown_debug_message")

		if !strings.Contains(console.String(), "shown_debug_message") {
			t.Errorf("expected debug message on console, got: %s", console.String())
		}
		if !strings.Contains(file.String(), "shown_debug_message") {
			t.Errorf("expected debug message in file, got: %s", file.String())
		}
	})
}

// TestNewWithWriters_Sanitizes tests that both sinks receive sanitized values.
func TestNewWithWriters_Sanitizes(t *testing.T) {
	t.Parallel()

	var console, file bytes.Buffer
	logger := NewWithWriters(&console, &file, true)

	logger.Info("request", "cookie", "session=abc123")

	if strings.Contains(console.String(), "abc123") {
		t.Errorf("expected cookie to be masked on console, got: %s", console.String())
	}
	if strings.Contains(file.String(), "abc123") {
		t.Errorf("expected cookie to be masked in file, got: %s", file.String())
	}
}

// TestNew_AppendsToFile tests that New creates the log file and appends to it.
func TestNew_AppendsToFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "aaofetch.log")

	for _, msg := range []string{"first_run", "second_run"} {
		logger, closer, err := New(nil, path, false)
		if err != nil {
			t.Fatalf("failed to create logger: %v", err)
		}
		logger.Info(msg)
		if err := closer.Close(); err != nil {
			t.Fatalf("failed to close log file: %v", err)
		}
	}

	data, err := os.ReadFile(path) //nolint:gosec // test path
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "first_run") || !strings.Contains(string(data), "second_run") {
		t.Errorf("expected both runs in log file, got: %s", data)
	}
}

// TestNew_NoFile tests that an empty path disables the file sink.
func TestNew_NoFile(t *testing.T) {
	t.Parallel()

	var console bytes.Buffer
	logger, closer, err := New(&console, "", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = closer.Close() }()

	logger.Warn("console_only")
	if !strings.Contains(console.String(), "console_only") {
		t.Errorf("expected console output, got: %s", console.String())
	}
}

// failingHandler is a slog.Handler whose Handle always fails.
type failingHandler struct{}

func (failingHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("sink down") }
func (h failingHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h failingHandler) WithGroup(string) slog.Handler           { return h }

// TestTeeHandler tests fan-out behaviour.
func TestTeeHandler(t *testing.T) {
	t.Parallel()

	t.Run("failing sink does not block others", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		tee := NewTeeHandler(failingHandler{}, slog.NewTextHandler(&buf, nil))

		r := slog.NewRecord(time.Time{}, slog.LevelInfo, "still_delivered", 0)
		if err := tee.Handle(context.Background(), r); err == nil {
			t.Error("expected joined error from failing sink")
		}
		if !strings.Contains(buf.String(), "still_delivered") {
			t.Errorf("expected record in healthy sink, got: %s", buf.String())
		}
	})

	t.Run("enabled if any handler is", func(t *testing.T) {
		t.Parallel()

		quiet := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError})
		loud := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug})

		if !NewTeeHandler(quiet, loud).Enabled(context.Background(), slog.LevelDebug) {
			t.Error("expected tee to be enabled for debug")
		}
		if NewTeeHandler(quiet).Enabled(context.Background(), slog.LevelDebug) {
			t.Error("expected tee to be disabled for debug")
		}
	})

	t.Run("nil handlers are ignored", func(t *testing.T) {
		t.Parallel()

		tee := NewTeeHandler(nil, nil)
		if tee.Enabled(context.Background(), slog.LevelError) {
			t.Error("expected empty tee to be disabled")
		}
	})

	t.Run("attrs and groups propagate", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		logger := slog.New(NewTeeHandler(slog.NewTextHandler(&a, nil), slog.NewTextHandler(&b, nil)))
		logger.With("run", 7).WithGroup("doc").Info("saved", "file", "x.pdf")

		for _, out := range []string{a.String(), b.String()} {
			if !strings.Contains(out, "run=7") || !strings.Contains(out, "doc.file=x.pdf") {
				t.Errorf("expected attrs and group in output, got: %s", out)
			}
		}
	})
}
