package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/aaofetch/internal/database"
	"github.com/nao1215/aaofetch/internal/model"
)

// runHistory executes "aaofetch history" with args against the ledger in dbDir.
func runHistory(t *testing.T, dbDir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("AAOFETCH_DB_DIR", dbDir)

	var buf bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs(append([]string{"history"}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

// seedLedger records one finished run with two downloads.
func seedLedger(t *testing.T, dbDir string) {
	t.Helper()

	ledger, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer ledger.Close()

	ctx := context.Background()
	run := model.NewRunResult("https://example.gov/listing")
	run.ID, err = ledger.StartRun(ctx, run)
	if err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}

	for _, name := range []string{"FEB022026_01B5.pdf", "FEB022026_02B5.pdf"} {
		f := model.DownloadedFile{URL: "https://example.gov/files/" + name, Filename: name, Size: 4096}
		run.RecordFile(f)
		if err := ledger.RecordDownload(ctx, run.ID, &f); err != nil {
			t.Fatalf("RecordDownload() error = %v", err)
		}
	}
	run.PagesFetched = 1
	run.Stop(model.StateStoppedOk, model.ReasonNoNextPage, nil)
	if err := ledger.FinishRun(ctx, run); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}
}

func TestHistoryCmd(t *testing.T) {
	t.Run("no database yet", func(t *testing.T) {
		out, err := runHistory(t, filepath.Join(t.TempDir(), "missing"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "No download history yet.") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("lists downloads", func(t *testing.T) {
		dbDir := t.TempDir()
		seedLedger(t, dbDir)

		out, err := runHistory(t, dbDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"FEB022026_01B5.pdf", "FEB022026_02B5.pdf", "4.1 kB"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q\n%s", want, out)
			}
		}
	})

	t.Run("limit applies", func(t *testing.T) {
		dbDir := t.TempDir()
		seedLedger(t, dbDir)

		out, err := runHistory(t, dbDir, "-n", "1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Count(out, ".pdf") != 1 {
			t.Errorf("expected a single row\n%s", out)
		}
	})

	t.Run("lists runs", func(t *testing.T) {
		dbDir := t.TempDir()
		seedLedger(t, dbDir)

		out, err := runHistory(t, dbDir, "--runs")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "stopped-ok (no-next-page)") {
			t.Errorf("expected run status in output\n%s", out)
		}
	})

	t.Run("rejects non-positive limit", func(t *testing.T) {
		if _, err := runHistory(t, t.TempDir(), "-n", "0"); err == nil {
			t.Error("expected error for limit 0")
		}
	})
}
