package model

import "strings"

// Page represents one paginated listing page.
// The body is transient: it is fetched, scanned and discarded within a single
// step of the crawl loop and is never persisted.
type Page struct {
	// Index is the 0-based page index sent as the "page" query parameter.
	Index int `json:"index"`

	// URL is the full listing URL including query parameters.
	URL string `json:"url"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// ContentType is the declared MIME type of the response.
	ContentType string `json:"content_type"`

	// Body is the decoded HTML text of the page.
	Body string `json:"-"`

	// Links are the absolute document URLs extracted from the page,
	// in document order.
	Links []string `json:"links,omitempty"`

	// HasNext reports whether a "next page" navigational element was found.
	HasNext bool `json:"has_next"`
}

// IsHTML checks if the page declares an HTML content type.
func (p *Page) IsHTML() bool {
	return strings.Contains(strings.ToLower(p.ContentType), "text/html")
}

// HasLinks reports whether any document links were extracted.
func (p *Page) HasLinks() bool {
	return len(p.Links) > 0
}
