package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/aaofetch/internal/model"
)

// Writer defines the interface for report output.
// Implementations write run results in various formats.
type Writer interface {
	// Write outputs the run result to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(result *model.RunResult) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because each destination may use a different
// format, so the result must be rendered once per Writer.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the result to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(result *model.RunResult) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(result)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// Format is a report output format.
type Format int

const (
	// FormatText is the plain text summary.
	FormatText Format = iota
	// FormatMarkdown is a Markdown document.
	FormatMarkdown
	// FormatJSON is a JSON document.
	FormatJSON
)

// FormatForPath picks the report format from a file name.
// Paths ending in .json produce JSON, .txt produces plain text,
// everything else produces Markdown.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".txt":
		return FormatText
	default:
		return FormatMarkdown
	}
}

// NewWriter creates the Writer for format.
func NewWriter(format Format, output io.Writer, version string) Writer {
	switch format {
	case FormatJSON:
		return NewFullJSONWriter(output, version, WithPrettyPrint())
	case FormatText:
		return NewSimpleWriter(output, WithVerbose(true))
	default:
		return NewMarkdownWriter(output, WithMarkdownVersion(version))
	}
}

// WriteFile writes the result to path in the format chosen by FormatForPath.
// Parent directories are created as needed.
func WriteFile(path string, result *model.RunResult, version string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}

	if _, err := NewWriter(FormatForPath(path), f, version).Write(result); err != nil {
		_ = f.Close() //nolint:errcheck // the write error is more useful
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}
	return nil
}

// statusText describes how the run ended.
func statusText(result *model.RunResult) string {
	switch result.State {
	case model.StateStoppedOk:
		return "Complete (" + reasonText(result.Reason) + ")"
	case model.StateStoppedError:
		msg := "Error (" + reasonText(result.Reason) + ")"
		if result.ErrorMessage != "" {
			msg += " - " + result.ErrorMessage
		}
		return msg
	default:
		return "Running"
	}
}

// reasonText returns a readable stop reason.
func reasonText(reason model.StopReason) string {
	switch reason {
	case model.ReasonMaxPages:
		return "page limit reached"
	case model.ReasonNoDocuments:
		return "no documents on recent pages"
	case model.ReasonNoNextPage:
		return "last listing page"
	case model.ReasonFetchFailed:
		return "listing page fetch failed"
	case model.ReasonStorage:
		return "download directory not writable"
	case model.ReasonInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
