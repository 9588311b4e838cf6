package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nao1215/aaofetch/internal/model"
)

// SimpleWriter outputs human-readable text summaries.
// This format is designed for terminal display at the end of a crawl.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because the summary is often redirected to a file.
type SimpleWriter struct {
	baseWriter

	// verbose lists every handled file in addition to the counters.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables the per-file listing.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run summary in human-readable format.
func (w *SimpleWriter) Write(result *model.RunResult) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, result)
	w.writeCounters(&sb, result)
	if w.verbose {
		w.writeFiles(&sb, result)
	}
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the run information block.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, result *model.RunResult) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          AAOFETCH SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Listing:   %s\n", result.ListingURL)
	fmt.Fprintf(sb, "Started:   %s\n", result.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:  %s\n", result.Duration().Round(time.Second))
	fmt.Fprintf(sb, "Status:    %s\n", statusText(result))
	sb.WriteString("\n")
}

// writeCounters writes the page and document counters.
func (w *SimpleWriter) writeCounters(sb *strings.Builder, result *model.RunResult) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")

	fmt.Fprintf(sb, "  Pages fetched:    %d\n", result.PagesFetched)
	fmt.Fprintf(sb, "  Links found:      %d\n", result.LinksFound)
	fmt.Fprintf(sb, "  Downloaded:       %d (%s)\n", result.Downloaded, humanize.Bytes(uint64(max(result.BytesWritten, 0))))
	fmt.Fprintf(sb, "  Already present:  %d\n", result.AlreadyPresent)
	fmt.Fprintf(sb, "  Failed:           %d\n", result.Failed)
	sb.WriteString("\n")
}

// writeFiles lists newly downloaded files.
func (w *SimpleWriter) writeFiles(sb *strings.Builder, result *model.RunResult) {
	var downloaded []model.DownloadedFile
	for _, f := range result.Files {
		if !f.AlreadyPresent {
			downloaded = append(downloaded, f)
		}
	}
	if len(downloaded) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("NEW FILES\n\n")
	for _, f := range downloaded {
		fmt.Fprintf(sb, "  [+] %s (%s)\n", f.Filename, humanize.Bytes(uint64(max(f.Size, 0))))
	}
	sb.WriteString("\n")
}
