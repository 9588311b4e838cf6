package crawler

import (
	"net/url"
	"strings"

	"github.com/nao1215/aaofetch/internal/config"
)

// Harvester extracts document links from a listing page.
type Harvester struct {
	// region is the CSS selector of the main content area.
	// Links outside it are ignored when the region exists.
	region string

	// extension is the lower-case document suffix, e.g. ".pdf".
	extension string
}

// HarvesterOption configures a Harvester.
type HarvesterOption func(*Harvester)

// WithContentRegion sets the selector of the region scanned for links.
// An empty selector always scans the whole document.
func WithContentRegion(selector string) HarvesterOption {
	return func(h *Harvester) {
		h.region = selector
	}
}

// WithDocumentExtension sets the suffix that identifies document links.
func WithDocumentExtension(ext string) HarvesterOption {
	return func(h *Harvester) {
		h.extension = strings.ToLower(ext)
	}
}

// NewHarvester creates a Harvester for the AAO listing layout.
func NewHarvester(opts ...HarvesterOption) *Harvester {
	h := &Harvester{
		region:    config.DefaultContentRegion,
		extension: config.DefaultDocumentExtension,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Links returns the absolute URLs of all document anchors in doc, resolved
// against base, in document order. Duplicates are kept; downloading is
// idempotent per filename.
func (h *Harvester) Links(doc ParsedDocument, base *url.URL) []string {
	links := make([]string, 0)
	if doc == nil {
		return links
	}

	scope := doc
	if region, ok := doc.FindRegion(h.region); ok {
		scope = region
	}

	for _, a := range scope.FindAll("a", h.isDocumentAnchor) {
		ref, err := url.Parse(strings.TrimSpace(a.Attr("href")))
		if err != nil {
			continue
		}
		if base != nil {
			ref = base.ResolveReference(ref)
		}
		links = append(links, ref.String())
	}
	return links
}

// ExtractLinks parses body and returns its document links resolved against
// baseURL. It never fails: empty or unparsable input yields an empty slice.
func (h *Harvester) ExtractLinks(body, baseURL string) []string {
	if strings.TrimSpace(body) == "" {
		return []string{}
	}
	doc, err := ParseHTML(body)
	if err != nil {
		return []string{}
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}
	return h.Links(doc, base)
}

// isDocumentAnchor reports whether an anchor's href, as written, ends with
// the document extension (case-insensitive). A query string or fragment
// after the extension means the reference does not end with it.
func (h *Harvester) isDocumentAnchor(e Element) bool {
	href := strings.ToLower(strings.TrimSpace(e.Attr("href")))
	return href != "" && strings.HasSuffix(href, h.extension)
}

// ExtractLinks uses a default Harvester to return the document links of
// body resolved against baseURL.
func ExtractLinks(body, baseURL string) []string {
	return NewHarvester().ExtractLinks(body, baseURL)
}

// HasNextPage reports whether doc contains a "next page" element: an anchor
// whose rel contains "next", or whose text contains "next" in any case.
//
// The text match is loose and can fire on unrelated navigation such as
// "Next steps". It is kept because the listing exposes no stricter
// pagination metadata, and a false positive only costs one extra request
// before the empty-page limit stops the crawl.
func HasNextPage(doc ParsedDocument) bool {
	if doc == nil {
		return false
	}
	next := doc.FindAll("a", func(e Element) bool {
		for _, rel := range strings.Fields(strings.ToLower(e.Attr("rel"))) {
			if rel == "next" {
				return true
			}
		}
		return strings.Contains(strings.ToLower(e.Text), "next")
	})
	return len(next) > 0
}
