package model

import (
	"fmt"
	"time"
)

// RunState is the state of the crawl controller.
type RunState int

const (
	// StateRunning means the controller is still stepping through pages.
	StateRunning RunState = iota
	// StateStoppedOk means a clean termination heuristic fired.
	StateStoppedOk
	// StateStoppedError means a page fetch failed or a fatal error occurred.
	StateStoppedError
)

// String returns the string representation of the state.
func (s RunState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStoppedOk:
		return "stopped-ok"
	case StateStoppedError:
		return "stopped-error"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler for JSON output.
func (s RunState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so reports can be read back.
func (s *RunState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "running":
		*s = StateRunning
	case "stopped-ok":
		*s = StateStoppedOk
	case "stopped-error":
		*s = StateStoppedError
	default:
		return fmt.Errorf("unknown run state %q", string(b))
	}
	return nil
}

// IsTerminal reports whether the state is one of the stopped states.
func (s RunState) IsTerminal() bool {
	return s == StateStoppedOk || s == StateStoppedError
}

// StopReason explains why a crawl stopped.
type StopReason string

const (
	// ReasonNone is used while the crawl is still running.
	ReasonNone StopReason = ""
	// ReasonMaxPages means the page index reached the safety cap.
	ReasonMaxPages StopReason = "max-pages"
	// ReasonNoDocuments means several consecutive pages had no document links.
	ReasonNoDocuments StopReason = "no-documents"
	// ReasonNoNextPage means the page had no "next page" element.
	ReasonNoNextPage StopReason = "no-next-page"
	// ReasonFetchFailed means a listing page could not be fetched.
	ReasonFetchFailed StopReason = "fetch-failed"
	// ReasonStorage means the download directory could not be written.
	ReasonStorage StopReason = "storage-failed"
	// ReasonInterrupted means the process was asked to terminate.
	ReasonInterrupted StopReason = "interrupted"
)

// RunResult is the outcome of one crawl.
type RunResult struct {
	// ID is the ledger run identifier, zero when no ledger is used.
	ID int64 `json:"id,omitempty"`

	// ListingURL is the listing endpoint that was crawled.
	ListingURL string `json:"listing_url"`

	State  RunState   `json:"state"`
	Reason StopReason `json:"reason"`

	// Err is the error that caused StateStoppedError, if any.
	Err error `json:"-"`
	// ErrorMessage mirrors Err for serialization.
	ErrorMessage string `json:"error,omitempty"`

	PagesFetched   int `json:"pages_fetched"`
	LinksFound     int `json:"links_found"`
	Downloaded     int `json:"downloaded"`
	AlreadyPresent int `json:"already_present"`
	Failed         int `json:"failed"`

	// BytesWritten is the total size of newly downloaded files.
	BytesWritten int64 `json:"bytes_written"`

	// Files lists every document handled successfully during the run.
	Files []DownloadedFile `json:"files,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewRunResult creates a RunResult in the running state.
func NewRunResult(listingURL string) *RunResult {
	return &RunResult{
		ListingURL: listingURL,
		State:      StateRunning,
		StartedAt:  time.Now(),
		Files:      make([]DownloadedFile, 0),
	}
}

// Stop moves the result into a terminal state. Calling Stop on a result that
// is already terminal has no effect.
func (r *RunResult) Stop(state RunState, reason StopReason, err error) {
	if r.State.IsTerminal() {
		return
	}
	r.State = state
	r.Reason = reason
	r.Err = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
	r.FinishedAt = time.Now()
}

// RecordFile accounts for a successfully handled document.
func (r *RunResult) RecordFile(f DownloadedFile) {
	if f.AlreadyPresent {
		r.AlreadyPresent++
	} else {
		r.Downloaded++
		r.BytesWritten += f.Size
	}
	r.Files = append(r.Files, f)
}

// Duration returns how long the run took.
// For a run that has not finished, it returns the time elapsed so far.
func (r *RunResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
