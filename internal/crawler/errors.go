package crawler

import "errors"

// Crawler errors.
// ErrStorage is fatal for the whole crawl; every other error only affects
// the page or document it was returned for.
var (
	// ErrStorage is returned when the download directory cannot be created
	// or written. The crawl stops and the process exits with an error.
	ErrStorage = errors.New("storage failure")

	// ErrInvalidFilename is returned when no usable filename can be derived
	// from a document URL.
	ErrInvalidFilename = errors.New("cannot derive filename from URL")

	// ErrRobotsDisallowed is returned when robots.txt forbids the request.
	ErrRobotsDisallowed = errors.New("disallowed by robots.txt")
)
