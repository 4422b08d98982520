// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fulltext

import (
	"context"
	"fmt"
	"net/url"

	"github.com/pdiddy/discovery-engine/internal/httputil"
	"github.com/pdiddy/discovery-engine/pkg/types"
)

// Lookup endpoints of the open-access aggregators. Declared as vars so
// tests can substitute httptest servers.
var (
	unpaywallBase     = "https://api.unpaywall.org/v2/"
	openAlexWorksBase = "https://api.openalex.org/works/"
	semanticPaperBase = "https://api.semanticscholar.org/graph/v1/paper/"
	coreSearchBase    = "https://api.core.ac.uk/v3/search/works"
)

// downloadFirst tries each candidate URL in turn and returns the first
// valid document.
func downloadFirst(ctx context.Context, client *httputil.Client, adapter string, urls []string) (*Content, error) {
	seen := make(map[string]bool, len(urls))
	var lastErr error
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		c, err := download(ctx, client, u)
		if err == nil {
			return c, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, noFullText(adapter, "no open-access copy")
}

// --- Unpaywall ---

// UnpaywallAdapter resolves a DOI to its open-access locations. Unpaywall
// requires a contact email on every request.
type UnpaywallAdapter struct {
	Client *httputil.Client
	Email  string
}

func (a *UnpaywallAdapter) Name() string { return "unpaywall" }
func (a *UnpaywallAdapter) Close() error { return a.Client.Close() }

type unpaywallLocation struct {
	URLForPDF string `json:"url_for_pdf"`
	URL       string `json:"url"`
}

type unpaywallResponse struct {
	IsOA           bool                `json:"is_oa"`
	BestOALocation *unpaywallLocation  `json:"best_oa_location"`
	OALocations    []unpaywallLocation `json:"oa_locations"`
}

func (a *UnpaywallAdapter) Fetch(ctx context.Context, pub types.Publication) (*Content, error) {
	if pub.DOI == "" {
		return nil, noFullText(a.Name(), "no DOI")
	}
	apiURL := unpaywallBase + escapeDOI(pub.DOI) + "?" + url.Values{"email": {a.Email}}.Encode()

	var resp unpaywallResponse
	if err := a.Client.GetJSON(ctx, apiURL, &resp); err != nil {
		return nil, lookupErr(err)
	}
	if !resp.IsOA {
		return nil, noFullText(a.Name(), "not open access")
	}

	var urls []string
	if resp.BestOALocation != nil {
		urls = append(urls, resp.BestOALocation.URLForPDF)
	}
	for _, loc := range resp.OALocations {
		urls = append(urls, loc.URLForPDF)
	}
	return downloadFirst(ctx, a.Client, a.Name(), urls)
}

// --- OpenAlex ---

// OpenAlexAdapter looks a work up by DOI or PMID and downloads its best
// open-access PDF.
type OpenAlexAdapter struct {
	Client *httputil.Client
	Email  string
}

func (a *OpenAlexAdapter) Name() string { return "openalex" }
func (a *OpenAlexAdapter) Close() error { return a.Client.Close() }

type openAlexLocation struct {
	PDFURL     string `json:"pdf_url"`
	LandingURL string `json:"landing_page_url"`
}

type openAlexWork struct {
	BestOALocation *openAlexLocation  `json:"best_oa_location"`
	Locations      []openAlexLocation `json:"locations"`
}

func (a *OpenAlexAdapter) Fetch(ctx context.Context, pub types.Publication) (*Content, error) {
	var apiURL string
	switch {
	case pub.DOI != "":
		apiURL = openAlexWorksBase + "https://doi.org/" + escapeDOI(pub.DOI)
	case pub.PMID != "":
		apiURL = openAlexWorksBase + "pmid:" + pub.PMID
	default:
		return nil, noFullText(a.Name(), "no DOI or PMID")
	}
	if a.Email != "" {
		apiURL += "?" + url.Values{"mailto": {a.Email}}.Encode()
	}

	var work openAlexWork
	if err := a.Client.GetJSON(ctx, apiURL, &work); err != nil {
		return nil, lookupErr(err)
	}

	var urls []string
	if work.BestOALocation != nil {
		urls = append(urls, work.BestOALocation.PDFURL)
	}
	for _, loc := range work.Locations {
		urls = append(urls, loc.PDFURL)
	}
	return downloadFirst(ctx, a.Client, a.Name(), urls)
}

// --- Semantic Scholar ---

// SemanticScholarAdapter downloads the open-access PDF Semantic Scholar
// lists for a paper. The API key travels in the client headers.
type SemanticScholarAdapter struct {
	Client *httputil.Client
}

func (a *SemanticScholarAdapter) Name() string { return "semantic_scholar" }
func (a *SemanticScholarAdapter) Close() error { return a.Client.Close() }

type semanticOpenAccess struct {
	OpenAccessPDF *struct {
		URL    string `json:"url"`
		Status string `json:"status"`
	} `json:"openAccessPdf"`
}

func (a *SemanticScholarAdapter) Fetch(ctx context.Context, pub types.Publication) (*Content, error) {
	var id string
	switch {
	case pub.DOI != "":
		id = "DOI:" + escapeDOI(pub.DOI)
	case pub.PMID != "":
		id = "PMID:" + pub.PMID
	case pub.ArxivID != "":
		id = "ARXIV:" + pub.ArxivID
	default:
		return nil, noFullText(a.Name(), "no DOI, PMID, or arXiv id")
	}

	var resp semanticOpenAccess
	if err := a.Client.GetJSON(ctx, semanticPaperBase+id+"?fields=openAccessPdf", &resp); err != nil {
		return nil, lookupErr(err)
	}
	if resp.OpenAccessPDF == nil || resp.OpenAccessPDF.URL == "" {
		return nil, noFullText(a.Name(), "no open-access PDF")
	}
	return download(ctx, a.Client, resp.OpenAccessPDF.URL)
}

// --- CORE ---

// CoreAdapter searches the CORE aggregator by DOI. The bearer key travels
// in the client headers.
type CoreAdapter struct {
	Client *httputil.Client
}

func (a *CoreAdapter) Name() string { return "core" }
func (a *CoreAdapter) Close() error { return a.Client.Close() }

type coreSearchResponse struct {
	TotalHits int `json:"totalHits"`
	Results   []struct {
		DownloadURL string `json:"downloadUrl"`
	} `json:"results"`
}

func (a *CoreAdapter) Fetch(ctx context.Context, pub types.Publication) (*Content, error) {
	if pub.DOI == "" {
		return nil, noFullText(a.Name(), "no DOI")
	}
	params := url.Values{
		"q":     {fmt.Sprintf("doi:%q", pub.DOI)},
		"limit": {"5"},
	}

	var resp coreSearchResponse
	if err := a.Client.GetJSON(ctx, coreSearchBase+"?"+params.Encode(), &resp); err != nil {
		return nil, lookupErr(err)
	}
	urls := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		urls = append(urls, r.DownloadURL)
	}
	return downloadFirst(ctx, a.Client, a.Name(), urls)
}
