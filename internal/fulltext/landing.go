// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fulltext

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/discovery-engine/internal/httputil"
	"github.com/pdiddy/discovery-engine/pkg/types"
)

// doiResolverBase is the DOI resolver. Declared as a var so tests can
// substitute an httptest server.
var doiResolverBase = "https://doi.org/"

// LandingPageAdapter follows the DOI to the publisher landing page and
// downloads the PDF advertised in its citation_pdf_url meta tag. It is the
// last resort of the waterfall.
type LandingPageAdapter struct {
	Client *httputil.Client
}

func (a *LandingPageAdapter) Name() string { return "landing_page" }
func (a *LandingPageAdapter) Close() error { return a.Client.Close() }

func (a *LandingPageAdapter) Fetch(ctx context.Context, pub types.Publication) (*Content, error) {
	if pub.DOI == "" {
		return nil, noFullText(a.Name(), "no DOI")
	}
	page, err := a.Client.Fetch(ctx, doiResolverBase+escapeDOI(pub.DOI), "text/html, application/pdf;q=0.9")
	if err != nil {
		return nil, lookupErr(err)
	}
	// Some resolvers redirect straight to the document.
	if ct, ok := sniff(page.Body); ok {
		return &Content{Body: page.Body, ContentType: ct, URL: page.URL}, nil
	}

	pdfURL, err := citationPDFURL(page.Body, page.URL)
	if err != nil {
		return nil, err
	}
	if pdfURL == "" {
		return nil, noFullText(a.Name(), "landing page has no citation_pdf_url")
	}
	return download(ctx, a.Client, pdfURL)
}

// citationPDFURL extracts the citation_pdf_url meta tag from an HTML page,
// resolved against the page URL.
func citationPDFURL(body []byte, pageURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parsing landing page: %w", err)
	}
	var raw string
	doc.Find(`meta[name="citation_pdf_url"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw = strings.TrimSpace(s.AttrOr("content", ""))
		return raw == ""
	})
	if raw == "" {
		return "", nil
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid citation_pdf_url %q: %w", raw, err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}
