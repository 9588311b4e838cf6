package model

import "time"

// DownloadedFile describes a document stored in the download directory.
//
// The file's presence on disk is the only "already downloaded" marker.
// Nothing else is consulted to decide whether a download is needed.
type DownloadedFile struct {
	// URL is the source document URL.
	URL string `json:"url"`

	// Filename is derived from the final path segment of URL.
	Filename string `json:"filename"`

	// Path is the absolute or directory-relative path of the stored file.
	Path string `json:"path"`

	// Size is the number of bytes written. Zero when AlreadyPresent is true.
	Size int64 `json:"size"`

	// SHA256 is the hex digest of the written content.
	// Empty when AlreadyPresent is true.
	SHA256 string `json:"sha256,omitempty"`

	// AlreadyPresent is true when the file existed and no request was made.
	AlreadyPresent bool `json:"already_present"`

	// FetchedAt is when the download completed (or was skipped).
	FetchedAt time.Time `json:"fetched_at"`
}
