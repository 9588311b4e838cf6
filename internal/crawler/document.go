package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Element is a single HTML element as seen by the harvester.
type Element struct {
	// Tag is the lower-case element name, e.g. "a".
	Tag string

	// Attrs holds the element's attributes by name.
	Attrs map[string]string

	// Text is the element's text content with surrounding whitespace trimmed.
	Text string
}

// Attr returns the named attribute, or empty if absent.
func (e Element) Attr(name string) string {
	return e.Attrs[name]
}

// ParsedDocument is the minimal view of an HTML document the crawler needs.
//
// Design decision: Link extraction and pagination detection only need these
// two queries, so the parsing backend can be swapped without touching them.
type ParsedDocument interface {
	// FindRegion returns the first element matching selector as a document
	// of its own. ok is false when nothing matches.
	FindRegion(selector string) (ParsedDocument, bool)

	// FindAll returns every element named tag for which pred returns true,
	// in document order. A nil pred matches all.
	FindAll(tag string, pred func(Element) bool) []Element
}

// ParseHTML parses body into a ParsedDocument.
// The HTML parser recovers from malformed markup, so an error is only
// returned when the input cannot be read at all.
func ParseHTML(body string) (ParsedDocument, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	return &goqueryDocument{sel: doc.Selection}, nil
}

// goqueryDocument implements ParsedDocument on top of goquery.
type goqueryDocument struct {
	sel *goquery.Selection
}

// FindRegion implements ParsedDocument.
func (d *goqueryDocument) FindRegion(selector string) (ParsedDocument, bool) {
	if selector == "" {
		return nil, false
	}
	region := d.sel.Find(selector).First()
	if region.Length() == 0 {
		return nil, false
	}
	return &goqueryDocument{sel: region}, true
}

// FindAll implements ParsedDocument.
func (d *goqueryDocument) FindAll(tag string, pred func(Element) bool) []Element {
	elements := make([]Element, 0)
	d.sel.Find(tag).Each(func(_ int, s *goquery.Selection) {
		e := toElement(s)
		if pred == nil || pred(e) {
			elements = append(elements, e)
		}
	})
	return elements
}

// toElement copies the first node of s into an Element.
func toElement(s *goquery.Selection) Element {
	e := Element{
		Tag:   goquery.NodeName(s),
		Attrs: make(map[string]string),
		Text:  strings.TrimSpace(s.Text()),
	}
	if len(s.Nodes) > 0 {
		for _, a := range s.Nodes[0].Attr {
			e.Attrs[a.Key] = a.Val
		}
	}
	return e
}
