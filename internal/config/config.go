package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These mirror the behaviour of the scraper the USCIS AAO listing was first
// harvested with, so existing download directories stay compatible.
const (
	// DefaultListingURL is the paginated AAO non-precedent decisions listing.
	DefaultListingURL = "https://www.uscis.gov/administrative-appeals/aao-decisions/aao-non-precedent-decisions"

	// DefaultPageParam is the query parameter carrying the 0-based page index.
	DefaultPageParam = "page"

	// DefaultContentRegion is the CSS selector of the main content area.
	// Links outside this region (navigation, footer) are ignored when it exists.
	DefaultContentRegion = "div.usa-layout-docs__main"

	// DefaultDocumentExtension is the suffix identifying decision documents.
	DefaultDocumentExtension = ".pdf"

	// DefaultDocumentContentType is the MIME type a document response must declare.
	DefaultDocumentContentType = "application/pdf"

	// DefaultListingContentType is the MIME type a listing response must declare.
	DefaultListingContentType = "text/html"

	// DefaultDownloadDir is where documents are stored, relative to the working directory.
	DefaultDownloadDir = "aao_decisions"

	// DefaultLogFile is the persistent log written next to the console output.
	DefaultLogFile = "aaofetch.log"

	// DefaultMaxPages is the hard safety cap on listing pages per run.
	DefaultMaxPages = 100

	// DefaultEmptyPageLimit is how many consecutive pages without documents
	// are taken as the end of the results.
	DefaultEmptyPageLimit = 3

	// DefaultTimeout applies to each HTTP request, including body transfer.
	DefaultTimeout = 30 * time.Second

	// DefaultPageDelayMin and DefaultPageDelayMax bound the random pause
	// taken before every listing page request.
	DefaultPageDelayMin = 3 * time.Second
	DefaultPageDelayMax = 7 * time.Second

	// DefaultDocumentDelayMin and DefaultDocumentDelayMax bound the random
	// pause taken before every document download.
	DefaultDocumentDelayMin = 2 * time.Second
	DefaultDocumentDelayMax = 5 * time.Second

	// DefaultMinRequestInterval is the floor between any two requests,
	// enforced independently of the random delays.
	DefaultMinRequestInterval = 1 * time.Second

	// DefaultUserAgent is a desktop browser User-Agent. The listing host
	// blocks obvious automated clients.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// DefaultMaxBodySize limits how much of a listing page is read.
	// Documents are streamed to disk and are not subject to this limit.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultChunkSize is the buffer size used when streaming documents to disk.
	DefaultChunkSize = 8192

	// AppName is the application name used for XDG directory paths.
	AppName = "aaofetch"
)

// DefaultListingParams returns the fixed query parameters of the listing:
// all months, all years and ten items per page.
func DefaultListingParams() map[string]string {
	return map[string]string{
		"uri_1":          "22",
		"m":              "All",
		"y":              "All",
		"items_per_page": "10",
	}
}

// DelayRange is a closed interval a random delay is drawn from.
type DelayRange struct {
	Min time.Duration `yaml:"min"`
	Max time.Duration `yaml:"max"`
}

// IsZero reports whether the range disables the delay entirely.
func (r DelayRange) IsZero() bool {
	return r.Min == 0 && r.Max == 0
}

// valid reports whether the range is non-negative and ordered.
func (r DelayRange) valid() bool {
	return r.Min >= 0 && r.Max >= 0 && r.Min <= r.Max
}

// Config holds all configuration options for aaofetch.
// It is populated once at startup and passed to the crawler at construction;
// nothing in the program reads process-wide settings.
type Config struct {
	// ListingURL is the endpoint of the paginated listing, without query parameters.
	ListingURL string

	// ListingParams are sent with every listing request in addition to PageParam.
	ListingParams map[string]string

	// PageParam names the query parameter carrying the page index.
	PageParam string

	// ContentRegion is the CSS selector of the region scanned for links.
	ContentRegion string

	// DocumentExtension is the file suffix of decision documents (case-insensitive).
	DocumentExtension string

	// DocumentContentType is the MIME type a document response must declare.
	DocumentContentType string

	// ListingContentType is the MIME type a listing response must declare.
	ListingContentType string

	// DownloadDir is where documents are written. Created on first use.
	DownloadDir string

	// LogFile is the path of the persistent log. Empty disables file logging.
	LogFile string

	// MaxPages is the hard cap on listing pages fetched in one run.
	MaxPages int

	// EmptyPageLimit is the number of consecutive link-less pages that ends a run.
	EmptyPageLimit int

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// PageDelay is the random pause before each listing request.
	PageDelay DelayRange

	// DocumentDelay is the random pause before each document request.
	DocumentDelay DelayRange

	// MinRequestInterval is the minimum spacing between any two requests.
	// Zero disables the floor.
	MinRequestInterval time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// MaxBodySize caps the bytes read from a listing response.
	MaxBodySize int64

	// ChunkSize is the buffer size used when streaming documents.
	ChunkSize int

	// RespectRobots enables the robots.txt gate. Off by default: the listing
	// host is crawled exactly as the listing prescribes.
	RespectRobots bool

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// SaveToDB enables the SQLite download ledger.
	SaveToDB bool

	// DBDir is the directory holding the ledger database.
	DBDir string

	// ReportFile is an optional path for a run summary.
	// A ".json" suffix selects JSON, anything else Markdown.
	ReportFile string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the configuration file explicitly requested by the user.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because most defaults are non-zero (delays, caps, endpoint).
func NewConfig() *Config {
	return &Config{
		ListingURL:          DefaultListingURL,
		ListingParams:       DefaultListingParams(),
		PageParam:           DefaultPageParam,
		ContentRegion:       DefaultContentRegion,
		DocumentExtension:   DefaultDocumentExtension,
		DocumentContentType: DefaultDocumentContentType,
		ListingContentType:  DefaultListingContentType,
		DownloadDir:         DefaultDownloadDir,
		LogFile:             DefaultLogFile,
		MaxPages:            DefaultMaxPages,
		EmptyPageLimit:      DefaultEmptyPageLimit,
		Timeout:             DefaultTimeout,
		PageDelay:           DelayRange{Min: DefaultPageDelayMin, Max: DefaultPageDelayMax},
		DocumentDelay:       DelayRange{Min: DefaultDocumentDelayMin, Max: DefaultDocumentDelayMax},
		MinRequestInterval:  DefaultMinRequestInterval,
		UserAgent:           DefaultUserAgent,
		MaxBodySize:         DefaultMaxBodySize,
		ChunkSize:           DefaultChunkSize,
		RespectRobots:       false,
		SaveToDB:            true,
		DBDir:               XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for aaofetch.
// On Linux: ~/.local/share/aaofetch
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for aaofetch.
// On Linux: ~/.config/aaofetch
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first sentinel error found.
func (c *Config) Validate() error {
	if c.ListingURL == "" {
		return ErrNoListingURL
	}
	if c.PageParam == "" {
		return ErrNoPageParam
	}
	if c.DownloadDir == "" {
		return ErrNoDownloadDir
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.EmptyPageLimit <= 0 {
		return ErrInvalidEmptyPageLimit
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if !c.PageDelay.valid() || !c.DocumentDelay.valid() || c.MinRequestInterval < 0 {
		return ErrInvalidDelay
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}
	if c.ChunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	if c.SaveToDB && c.DBDir == "" {
		return ErrNoDBDir
	}
	return nil
}
