package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/aaofetch/internal/model"
)

// setupTestDB creates a temporary ledger for testing.
func setupTestDB(t *testing.T) *Ledger {
	t.Helper()

	l, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = l.Close() //nolint:errcheck // test cleanup
	})
	return l
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates new database", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "nested")
		l, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer l.Close()

		if l.Path() != filepath.Join(dir, DBFileName) {
			t.Errorf("Path() = %q", l.Path())
		}
		if _, err := os.Stat(l.Path()); err != nil {
			t.Errorf("database file not created: %v", err)
		}
	})

	t.Run("fails if not exists and CreateIfNotExists is false", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Open() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("reopens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		l, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if err := l.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		l, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("reopen error = %v", err)
		}
		_ = l.Close() //nolint:errcheck // test cleanup
	})
}

func TestLedgerRunLifecycle(t *testing.T) {
	t.Parallel()

	l := setupTestDB(t)
	ctx := context.Background()

	run := model.NewRunResult("https://example.gov/listing")
	id, err := l.StartRun(ctx, run)
	if err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}
	if id == 0 {
		t.Fatal("StartRun() returned zero ID")
	}
	run.ID = id

	run.PagesFetched = 4
	run.LinksFound = 12
	run.RecordFile(model.DownloadedFile{Filename: "a.pdf", Size: 100})
	run.RecordFile(model.DownloadedFile{Filename: "b.pdf", AlreadyPresent: true})
	run.Failed = 1
	run.Stop(model.StateStoppedOk, model.ReasonNoNextPage, nil)

	if err := l.FinishRun(ctx, run); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	runs, err := l.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("RecentRuns() returned %d runs, want 1", len(runs))
	}

	got := runs[0]
	if got.ID != id {
		t.Errorf("ID = %d, want %d", got.ID, id)
	}
	if got.State != "stopped-ok" {
		t.Errorf("State = %q", got.State)
	}
	if got.Reason != string(model.ReasonNoNextPage) {
		t.Errorf("Reason = %q", got.Reason)
	}
	if got.PagesFetched != 4 || got.LinksFound != 12 || got.Downloaded != 1 ||
		got.AlreadyPresent != 1 || got.Failed != 1 || got.BytesWritten != 100 {
		t.Errorf("counters = %+v", got)
	}
	if got.StartedAt.IsZero() || got.FinishedAt.IsZero() {
		t.Errorf("timestamps not stored: started=%v finished=%v", got.StartedAt, got.FinishedAt)
	}
}

func TestLedgerFinishRunWithoutID(t *testing.T) {
	t.Parallel()

	l := setupTestDB(t)
	run := model.NewRunResult("https://example.gov/listing")
	run.Stop(model.StateStoppedError, model.ReasonFetchFailed, errors.New("boom"))

	if err := l.FinishRun(context.Background(), run); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}
	runs, err := l.RecentRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("RecentRuns() = %d runs, want 0", len(runs))
	}
}

func TestLedgerRecordDownload(t *testing.T) {
	t.Parallel()

	l := setupTestDB(t)
	ctx := context.Background()

	runID, err := l.StartRun(ctx, model.NewRunResult("https://example.gov/listing"))
	if err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}

	first := &model.DownloadedFile{
		URL:       "https://example.gov/files/a.pdf",
		Filename:  "a.pdf",
		Size:      10,
		SHA256:    "aaaa",
		FetchedAt: time.Now().Add(-time.Minute),
	}
	second := &model.DownloadedFile{
		URL:       "https://example.gov/files/b.pdf",
		Filename:  "b.pdf",
		Size:      20,
		SHA256:    "bbbb",
		FetchedAt: time.Now(),
	}

	for _, f := range []*model.DownloadedFile{first, second} {
		if err := l.RecordDownload(ctx, runID, f); err != nil {
			t.Fatalf("RecordDownload(%s) error = %v", f.Filename, err)
		}
	}

	t.Run("recent downloads are newest first", func(t *testing.T) {
		recs, err := l.RecentDownloads(ctx, 10)
		if err != nil {
			t.Fatalf("RecentDownloads() error = %v", err)
		}
		if len(recs) != 2 {
			t.Fatalf("RecentDownloads() = %d records, want 2", len(recs))
		}
		if recs[0].Filename != "b.pdf" || recs[1].Filename != "a.pdf" {
			t.Errorf("order = %s, %s", recs[0].Filename, recs[1].Filename)
		}
		if recs[0].RunID != runID {
			t.Errorf("RunID = %d, want %d", recs[0].RunID, runID)
		}
	})

	t.Run("limit is honoured", func(t *testing.T) {
		recs, err := l.RecentDownloads(ctx, 1)
		if err != nil {
			t.Fatalf("RecentDownloads() error = %v", err)
		}
		if len(recs) != 1 {
			t.Errorf("RecentDownloads(1) = %d records", len(recs))
		}
	})

	t.Run("same filename updates in place", func(t *testing.T) {
		again := *first
		again.Size = 11
		again.SHA256 = "cccc"
		if err := l.RecordDownload(ctx, runID, &again); err != nil {
			t.Fatalf("RecordDownload() error = %v", err)
		}

		rec, err := l.GetDownload(ctx, "a.pdf")
		if err != nil {
			t.Fatalf("GetDownload() error = %v", err)
		}
		if rec == nil {
			t.Fatal("GetDownload() = nil")
		}
		if rec.Size != 11 || rec.SHA256 != "cccc" {
			t.Errorf("record = %+v", rec)
		}
	})

	t.Run("unknown filename", func(t *testing.T) {
		rec, err := l.GetDownload(ctx, "missing.pdf")
		if err != nil {
			t.Fatalf("GetDownload() error = %v", err)
		}
		if rec != nil {
			t.Errorf("GetDownload() = %+v, want nil", rec)
		}
	})
}

func TestLedgerRecordDownloadWithoutRun(t *testing.T) {
	t.Parallel()

	l := setupTestDB(t)
	ctx := context.Background()

	err := l.RecordDownload(ctx, 0, &model.DownloadedFile{
		URL:      "https://example.gov/files/x.pdf",
		Filename: "x.pdf",
		Size:     1,
	})
	if err != nil {
		t.Fatalf("RecordDownload() error = %v", err)
	}

	rec, err := l.GetDownload(ctx, "x.pdf")
	if err != nil || rec == nil {
		t.Fatalf("GetDownload() = %v, %v", rec, err)
	}
	if rec.RunID != 0 {
		t.Errorf("RunID = %d, want 0", rec.RunID)
	}
	if rec.FetchedAt.IsZero() {
		t.Error("FetchedAt should default to now")
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		zero  bool
	}{
		{name: "RFC3339Nano", input: "2026-01-02T03:04:05.123456789Z"},
		{name: "RFC3339", input: "2026-01-02T03:04:05Z"},
		{name: "SQLite datetime", input: "2026-01-02 03:04:05"},
		{name: "empty", input: "", zero: true},
		{name: "garbage", input: "yesterday", zero: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := parseTimestamp(tt.input)
			if got.IsZero() != tt.zero {
				t.Errorf("parseTimestamp(%q) = %v, zero want %v", tt.input, got, tt.zero)
			}
		})
	}
}
