package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/aaofetch/internal/model"
)

// MarkdownWriter outputs run reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter

	// version is printed in the footer when set.
	version string
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMarkdownVersion sets the version shown in the footer.
func WithMarkdownVersion(version string) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.version = version
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run report in Markdown format.
func (w *MarkdownWriter) Write(result *model.RunResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeSummary(md, result)
	w.writeFiles(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.RunResult) {
	md.H1("AAO Decision Download Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Listing", "`" + result.ListingURL + "`"},
			{"Started", result.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", result.Duration().Round(time.Second).String()},
			{"Pages Fetched", strconv.Itoa(result.PagesFetched)},
			{"Status", statusText(result)},
		},
	})
	md.PlainText("")
}

// writeSummary writes the document counters, chart and alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, result *model.RunResult) {
	md.H2("Documents")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"Links found", strconv.Itoa(result.LinksFound)},
			{"Downloaded", strconv.Itoa(result.Downloaded)},
			{"Already present", strconv.Itoa(result.AlreadyPresent)},
			{"Failed", strconv.Itoa(result.Failed)},
			{"**Bytes written**", "**" + humanize.Bytes(uint64(max(result.BytesWritten, 0))) + "**"},
		},
	})
	md.PlainText("")

	if result.Downloaded+result.AlreadyPresent+result.Failed > 0 {
		w.writePieChart(md, result)
	}

	w.writeAlert(md, result)
}

// writePieChart writes a mermaid pie chart of download outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, result *model.RunResult) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Download Outcomes"),
		piechart.WithShowData(true),
	)

	if result.Downloaded > 0 {
		chart.LabelAndIntValue("Downloaded", uint64(result.Downloaded))
	}
	if result.AlreadyPresent > 0 {
		chart.LabelAndIntValue("Already present", uint64(result.AlreadyPresent))
	}
	if result.Failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(result.Failed))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching how the run ended.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, result *model.RunResult) {
	switch {
	case result.State == model.StateStoppedError:
		md.Cautionf("The crawl stopped early: %s.", reasonText(result.Reason))
	case result.Failed > 0:
		md.Warningf("%d document(s) could not be downloaded and will be retried on the next run.", result.Failed)
	case result.Downloaded == 0:
		md.Note("No new documents were found.")
	default:
		md.Tip(fmt.Sprintf("%d new document(s) downloaded.", result.Downloaded))
	}
	md.PlainText("")
}

// writeFiles writes a table of newly downloaded files.
func (w *MarkdownWriter) writeFiles(md *markdown.Markdown, result *model.RunResult) {
	md.H2("New Files")
	md.PlainText("")

	rows := make([][]string, 0, len(result.Files))
	for _, f := range result.Files {
		if f.AlreadyPresent {
			continue
		}
		rows = append(rows, []string{
			"`" + f.Filename + "`",
			humanize.Bytes(uint64(max(f.Size, 0))),
			"`" + truncateString(f.SHA256, 16) + "`",
			truncateString(f.URL, 80),
		})
	}

	if len(rows) == 0 {
		md.PlainText("No new files.")
		md.PlainText("")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"File", "Size", "SHA-256", "Source"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	name := "aaofetch"
	if w.version != "" {
		name += " " + w.version
	}
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by %s*", name)
}
