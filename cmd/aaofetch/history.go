package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/aaofetch/internal/database"
)

// defaultHistoryLimit is how many rows history prints by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently downloaded documents",
		Long: `History prints the most recent downloads recorded in the history database.

The database only records what was fetched; it is never used to decide
whether a document needs downloading. Deleting a file from the download
directory makes it eligible again on the next crawl.

Examples:
  # Show the last 20 downloads
  aaofetch history

  # Show the last 5 crawl runs instead
  aaofetch history --runs -n 5`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Number of entries to show")
	cmd.Flags().Bool("runs", false, "List crawl runs instead of downloads")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	if limit <= 0 {
		return fmt.Errorf("limit must be positive: %d", limit)
	}

	showRuns, err := cmd.Flags().GetBool("runs")
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	ledger, err := database.Open(cfg.DBDir, database.Options{CreateIfNotExists: false})
	if errors.Is(err, database.ErrNotFound) {
		fmt.Fprintln(out, "No download history yet.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer ledger.Close()

	if showRuns {
		return printRuns(cmd.Context(), ledger, limit, out)
	}
	return printDownloads(cmd.Context(), ledger, limit, out)
}

// printDownloads writes the most recent downloads as a Markdown table.
func printDownloads(ctx context.Context, ledger *database.Ledger, limit int, out io.Writer) error {
	records, err := ledger.RecentDownloads(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No downloads recorded.")
		return nil
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Filename,
			humanize.Bytes(uint64(max(r.Size, 0))),
			humanize.Time(r.FetchedAt),
			strconv.FormatInt(r.RunID, 10),
		})
	}

	return markdown.NewMarkdown(out).
		Table(markdown.TableSet{
			Header: []string{"File", "Size", "Fetched", "Run"},
			Rows:   rows,
		}).
		Build()
}

// printRuns writes the most recent runs as a Markdown table.
func printRuns(ctx context.Context, ledger *database.Ledger, limit int, out io.Writer) error {
	records, err := ledger.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		status := r.State
		if r.Reason != "" {
			status += " (" + r.Reason + ")"
		}
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			humanize.Time(r.StartedAt),
			status,
			strconv.Itoa(r.PagesFetched),
			strconv.Itoa(r.Downloaded),
			strconv.Itoa(r.AlreadyPresent),
			strconv.Itoa(r.Failed),
		})
	}

	return markdown.NewMarkdown(out).
		Table(markdown.TableSet{
			Header: []string{"Run", "Started", "Status", "Pages", "Downloaded", "Present", "Failed"},
			Rows:   rows,
		}).
		Build()
}
