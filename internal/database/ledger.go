package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/aaofetch/internal/model"
)

// DBFileName is the ledger file created in the database directory.
const DBFileName = "aaofetch.db"

// Ledger provides SQLite-based storage for run and download history.
type Ledger struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures Ledger behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so readers do not block the crawl.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the Ledger in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*Ledger, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s: %w", dbPath, ErrNotFound)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw prevents creating a new file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	l := &Ledger{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := l.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return l, nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.dbPath
}

// createTables creates the database schema if it doesn't exist.
// Timestamps are stored as fixed-width RFC 3339 text in UTC.
func (l *Ledger) createTables() error {
	schema := `
	-- One row per crawl
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		listing_url TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		state TEXT NOT NULL,
		reason TEXT,
		error TEXT,
		pages_fetched INTEGER DEFAULT 0,
		links_found INTEGER DEFAULT 0,
		downloaded INTEGER DEFAULT 0,
		already_present INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		bytes_written INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- One row per stored document
	CREATE TABLE IF NOT EXISTS downloads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER REFERENCES runs(id),
		url TEXT NOT NULL,
		filename TEXT NOT NULL,
		size INTEGER NOT NULL,
		sha256 TEXT,
		fetched_at TEXT NOT NULL,
		UNIQUE(filename)
	);

	CREATE INDEX IF NOT EXISTS idx_downloads_fetched ON downloads(fetched_at);
	CREATE INDEX IF NOT EXISTS idx_downloads_run ON downloads(run_id);
	`

	_, err := l.db.ExecContext(context.Background(), schema)
	return err
}

// StartRun inserts a run in its current state and returns its ID.
func (l *Ledger) StartRun(ctx context.Context, run *model.RunResult) (int64, error) {
	query := `
	INSERT INTO runs (listing_url, started_at, state)
	VALUES (?, ?, ?)
	`

	result, err := l.db.ExecContext(ctx, query,
		run.ListingURL,
		formatTimestamp(run.StartedAt),
		run.State.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return result.LastInsertId()
}

// FinishRun stores the final state and counters of a run.
// A run without an ID was never started in this ledger and is ignored.
func (l *Ledger) FinishRun(ctx context.Context, run *model.RunResult) error {
	if run.ID == 0 {
		return nil
	}

	query := `
	UPDATE runs SET
		finished_at = ?,
		state = ?,
		reason = ?,
		error = ?,
		pages_fetched = ?,
		links_found = ?,
		downloaded = ?,
		already_present = ?,
		failed = ?,
		bytes_written = ?
	WHERE id = ?
	`

	finished := run.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	_, err := l.db.ExecContext(ctx, query,
		formatTimestamp(finished),
		run.State.String(),
		string(run.Reason),
		run.ErrorMessage,
		run.PagesFetched,
		run.LinksFound,
		run.Downloaded,
		run.AlreadyPresent,
		run.Failed,
		run.BytesWritten,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// RecordDownload stores a newly written document.
// A filename seen before is updated in place; this happens when a file was
// removed from the download directory and fetched again.
func (l *Ledger) RecordDownload(ctx context.Context, runID int64, f *model.DownloadedFile) error {
	query := `
	INSERT INTO downloads (run_id, url, filename, size, sha256, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(filename) DO UPDATE SET
		run_id = excluded.run_id,
		url = excluded.url,
		size = excluded.size,
		sha256 = excluded.sha256,
		fetched_at = excluded.fetched_at
	`

	var run sql.NullInt64
	if runID != 0 {
		run = sql.NullInt64{Int64: runID, Valid: true}
	}

	fetched := f.FetchedAt
	if fetched.IsZero() {
		fetched = time.Now()
	}

	_, err := l.db.ExecContext(ctx, query,
		run,
		f.URL,
		f.Filename,
		f.Size,
		f.SHA256,
		formatTimestamp(fetched),
	)
	if err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}
	return nil
}

// DownloadRecord represents a stored download.
type DownloadRecord struct {
	ID        int64
	RunID     int64
	URL       string
	Filename  string
	Size      int64
	SHA256    string
	FetchedAt time.Time
}

// GetDownload retrieves the download record for filename.
// It returns nil, nil when the filename was never recorded.
func (l *Ledger) GetDownload(ctx context.Context, filename string) (*DownloadRecord, error) {
	query := `
	SELECT id, run_id, url, filename, size, sha256, fetched_at
	FROM downloads
	WHERE filename = ?
	`

	rec, err := scanDownload(l.db.QueryRowContext(ctx, query, filename))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get download: %w", err)
	}
	return rec, nil
}

// RecentDownloads returns up to limit downloads, newest first.
func (l *Ledger) RecentDownloads(ctx context.Context, limit int) ([]DownloadRecord, error) {
	query := `
	SELECT id, run_id, url, filename, size, sha256, fetched_at
	FROM downloads
	ORDER BY fetched_at DESC, id DESC
	LIMIT ?
	`

	rows, err := l.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query downloads: %w", err)
	}
	defer rows.Close()

	records := make([]DownloadRecord, 0)
	for rows.Next() {
		rec, err := scanDownload(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan download: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// RunRecord represents a stored run.
type RunRecord struct {
	ID             int64
	ListingURL     string
	StartedAt      time.Time
	FinishedAt     time.Time
	State          string
	Reason         string
	Error          string
	PagesFetched   int
	LinksFound     int
	Downloaded     int
	AlreadyPresent int
	Failed         int
	BytesWritten   int64
}

// RecentRuns returns up to limit runs, newest first.
func (l *Ledger) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
	SELECT id, listing_url, started_at, finished_at, state, reason, error,
		pages_fetched, links_found, downloaded, already_present, failed, bytes_written
	FROM runs
	ORDER BY started_at DESC, id DESC
	LIMIT ?
	`

	rows, err := l.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	records := make([]RunRecord, 0)
	for rows.Next() {
		var rec RunRecord
		var started string
		var finished, reason, errMsg sql.NullString

		if err := rows.Scan(
			&rec.ID,
			&rec.ListingURL,
			&started,
			&finished,
			&rec.State,
			&reason,
			&errMsg,
			&rec.PagesFetched,
			&rec.LinksFound,
			&rec.Downloaded,
			&rec.AlreadyPresent,
			&rec.Failed,
			&rec.BytesWritten,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		rec.StartedAt = parseTimestamp(started)
		rec.FinishedAt = parseTimestamp(finished.String)
		rec.Reason = reason.String
		rec.Error = errMsg.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDownload reads one downloads row.
func scanDownload(row rowScanner) (*DownloadRecord, error) {
	var rec DownloadRecord
	var runID sql.NullInt64
	var sum sql.NullString
	var fetched string

	if err := row.Scan(&rec.ID, &runID, &rec.URL, &rec.Filename, &rec.Size, &sum, &fetched); err != nil {
		return nil, err
	}
	rec.RunID = runID.Int64
	rec.SHA256 = sum.String
	rec.FetchedAt = parseTimestamp(fetched)
	return &rec, nil
}

// timestampLayout is the fixed-width storage format. Unlike RFC3339Nano it
// keeps trailing zeros, so stored values sort chronologically as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTimestamp renders t for storage.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
