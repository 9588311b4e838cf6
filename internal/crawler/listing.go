package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"

	"golang.org/x/net/html/charset"

	"github.com/nao1215/aaofetch/internal/config"
	"github.com/nao1215/aaofetch/internal/model"
	"github.com/nao1215/aaofetch/internal/transport"
)

// PageFetcher returns one listing page by its 0-based index.
type PageFetcher interface {
	FetchPage(ctx context.Context, index int) (*model.Page, error)
}

// Listing fetches pages of the paginated decision listing.
type Listing struct {
	client      *transport.Client
	listingURL  string
	params      map[string]string
	pageParam   string
	contentType string
	maxBodySize int64
	harvester   *Harvester
	robots      *RobotsPolicy
	logger      *slog.Logger
}

// ListingOption configures a Listing.
type ListingOption func(*Listing)

// WithListingParams sets the fixed query parameters sent with every page.
func WithListingParams(params map[string]string) ListingOption {
	return func(l *Listing) {
		l.params = params
	}
}

// WithPageParam sets the name of the page index query parameter.
func WithPageParam(name string) ListingOption {
	return func(l *Listing) {
		l.pageParam = name
	}
}

// WithListingContentType sets the media type a listing response must declare.
func WithListingContentType(contentType string) ListingOption {
	return func(l *Listing) {
		l.contentType = contentType
	}
}

// WithMaxBodySize caps the bytes read from a listing response.
func WithMaxBodySize(size int64) ListingOption {
	return func(l *Listing) {
		l.maxBodySize = size
	}
}

// WithHarvester sets the link harvester.
func WithHarvester(h *Harvester) ListingOption {
	return func(l *Listing) {
		l.harvester = h
	}
}

// WithListingRobots enables the robots.txt gate for listing pages.
func WithListingRobots(p *RobotsPolicy) ListingOption {
	return func(l *Listing) {
		l.robots = p
	}
}

// WithListingLogger sets the logger.
func WithListingLogger(logger *slog.Logger) ListingOption {
	return func(l *Listing) {
		l.logger = logger
	}
}

// NewListing creates a Listing for listingURL.
func NewListing(client *transport.Client, listingURL string, opts ...ListingOption) *Listing {
	l := &Listing{
		client:      client,
		listingURL:  listingURL,
		params:      config.DefaultListingParams(),
		pageParam:   config.DefaultPageParam,
		contentType: config.DefaultListingContentType,
		maxBodySize: config.DefaultMaxBodySize,
		harvester:   NewHarvester(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// PageURL returns the full URL of page index.
func (l *Listing) PageURL(index int) (string, error) {
	u, err := url.Parse(l.listingURL)
	if err != nil {
		return "", fmt.Errorf("invalid listing URL: %w", err)
	}
	u.RawQuery = l.query(u.Query(), index).Encode()
	return u.String(), nil
}

// query merges the fixed parameters and the page index into q.
func (l *Listing) query(q url.Values, index int) url.Values {
	for k, v := range l.params {
		q.Set(k, v)
	}
	q.Set(l.pageParam, strconv.Itoa(index))
	return q
}

// FetchPage requests page index, checks that it is HTML, decodes it to UTF-8
// and extracts its document links and next-page marker.
func (l *Listing) FetchPage(ctx context.Context, index int) (*model.Page, error) {
	pageURL, err := l.PageURL(index)
	if err != nil {
		return nil, err
	}

	if !l.robots.Allowed(ctx, pageURL) {
		return nil, fmt.Errorf("%w: %s", ErrRobotsDisallowed, pageURL)
	}

	l.logger.Debug("fetching listing page", "page", index, "url", pageURL)

	resp, err := l.client.Get(ctx, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page %d: %w", index, err)
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if err := transport.ExpectContentType(resp, l.contentType); err != nil {
		return nil, fmt.Errorf("page %d: %w", index, err)
	}

	reader, err := charset.NewReader(io.LimitReader(resp.Body, l.maxBodySize), contentType)
	if err != nil {
		return nil, fmt.Errorf("page %d: failed to decode body: %w", index, err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("page %d: failed to read body: %w", index, err)
	}

	page := &model.Page{
		Index:       index,
		URL:         pageURL,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        string(body),
		Links:       []string{},
	}

	doc, err := ParseHTML(page.Body)
	if err != nil {
		// Unparsable HTML is treated as a page without links.
		l.logger.Warn("failed to parse listing page", "page", index, "error", err)
		return page, nil
	}

	base := resp.Request.URL
	page.Links = l.harvester.Links(doc, base)
	page.HasNext = HasNextPage(doc)
	return page, nil
}
