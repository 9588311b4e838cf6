// Package report provides run summary generation and output functionality.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - MarkdownWriter: Markdown output for documentation and sharing
//   - JSONWriter: Structured JSON output for tool integration
//
// Design decision: We separate report writing from the run result
// (which is in the model package) so the crawler never depends on how
// its outcome is presented.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
