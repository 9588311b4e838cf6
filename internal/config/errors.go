package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so that callers can use
// errors.Is() while still getting a readable message.
var (
	// ErrNoListingURL is returned when the listing endpoint is empty.
	ErrNoListingURL = errors.New("no listing URL configured")

	// ErrNoPageParam is returned when the page query parameter name is empty.
	ErrNoPageParam = errors.New("no page parameter configured")

	// ErrNoDownloadDir is returned when the download directory is empty.
	ErrNoDownloadDir = errors.New("no download directory configured")

	// ErrInvalidMaxPages is returned when the page cap is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidEmptyPageLimit is returned when the empty page limit is not positive.
	ErrInvalidEmptyPageLimit = errors.New("invalid empty page limit: must be positive")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDelay is returned when a delay range is negative or min exceeds max.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative with min <= max")

	// ErrInvalidMaxBodySize is returned when the listing body cap is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrInvalidChunkSize is returned when the download buffer size is not positive.
	ErrInvalidChunkSize = errors.New("invalid chunk size: must be positive")

	// ErrNoDBDir is returned when the ledger is enabled without a directory.
	ErrNoDBDir = errors.New("no database directory configured")
)
