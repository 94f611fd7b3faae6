// Package static serves a saved HTML page through the read operations the
// transcript scraper needs, so transcripts can be scraped offline.
package static

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/PuerkitoBio/goquery"

	"github.com/xkilldash9x/courselens/internal/browser/dom"
)

// Page is a parsed, read-only document.
type Page struct {
	doc *goquery.Document
	url string
}

// Parse reads an HTML document. url is reported by URL and may be empty.
func Parse(r io.Reader, url string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return &Page{doc: doc, url: url}, nil
}

// Open parses the HTML file at path.
func Open(path string) (*Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer f.Close()
	return Parse(f, "file://"+path)
}

func (p *Page) URL() string { return p.url }

// InnerTexts returns the text content of each element matching selector.
func (p *Page) InnerTexts(_ context.Context, selector string) ([]string, error) {
	return p.doc.Find(selector).Map(func(_ int, s *goquery.Selection) string { return s.Text() }), nil
}

// Click cannot act on a saved page and always reports that nothing was clicked.
func (p *Page) Click(context.Context, ...dom.Locator) (bool, error) {
	return false, nil
}

// Close is a no-op; the document lives in memory.
func (p *Page) Close() error { return nil }
