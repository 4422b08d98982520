// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/discovery-engine/internal/httputil"
	"github.com/pdiddy/discovery-engine/internal/source"
	"github.com/pdiddy/discovery-engine/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,abstract,authors,externalIds,year,publicationDate,citationCount,venue"

// SemanticScholarAdapter queries the Semantic Scholar Graph API. The API
// key, when configured, is carried by the client as an x-api-key header.
type SemanticScholarAdapter struct {
	Client *httputil.Client
	Limit  int
}

func (a *SemanticScholarAdapter) Name() string      { return "semantic_scholar" }
func (a *SemanticScholarAdapter) Kind() source.Kind { return source.KindCitation }
func (a *SemanticScholarAdapter) Close() error      { return a.Client.Close() }

// Search queries Semantic Scholar, filtering by year range.
func (a *SemanticScholarAdapter) Search(ctx context.Context, q Query) ([]types.Record, error) {
	params := url.Values{
		"query":  {strings.TrimSpace(q.Text)},
		"limit":  {strconv.Itoa(min(limitOr(a.Limit, 25), 100))},
		"fields": {semanticFields},
	}
	if yr := yearRange(q.Filters.DateFrom, q.Filters.DateTo); yr != "" {
		params.Set("year", yr)
	}

	var sr semanticResponse
	if err := a.Client.GetJSON(ctx, semanticAPIBase+"?"+params.Encode(), &sr); err != nil {
		return nil, err
	}

	var records []types.Record
	for _, paper := range sr.Data {
		if paper.Title == "" {
			continue
		}
		records = append(records, types.NewPublicationRecord(paper.toPublication()))
	}
	return records, nil
}

func (sp semanticPaper) toPublication() types.Publication {
	p := types.Publication{
		PMID:          sp.ExternalIDs.PubMed,
		DOI:           sp.ExternalIDs.DOI,
		ArxivID:       sp.ExternalIDs.ArXiv,
		Title:         cleanText(sp.Title),
		Abstract:      cleanText(sp.Abstract),
		Journal:       sp.Venue,
		Year:          sp.Year,
		PublishedAt:   parseDate(sp.PublicationDate, dateFmt),
		CitationCount: sp.CitationCount,
		SourceName:    "semantic_scholar",
	}
	if pmc := sp.ExternalIDs.PubMedCentral; pmc != "" {
		p.PMCID = "PMC" + strings.TrimPrefix(strings.ToUpper(pmc), "PMC")
	}
	if sp.PaperID != "" {
		p.URL = "https://www.semanticscholar.org/paper/" + sp.PaperID
	}
	for _, a := range sp.Authors {
		if a.Name != "" {
			p.Authors = append(p.Authors, a.Name)
		}
	}
	return p
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID         string              `json:"paperId"`
	Title           string              `json:"title"`
	Abstract        string              `json:"abstract"`
	Venue           string              `json:"venue"`
	Year            int                 `json:"year"`
	PublicationDate string              `json:"publicationDate"`
	CitationCount   int                 `json:"citationCount"`
	Authors         []semanticAuthor    `json:"authors"`
	ExternalIDs     semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

// semanticExternalIDs lists identifiers; CorpusId is numeric.
type semanticExternalIDs struct {
	DOI           string `json:"DOI"`
	ArXiv         string `json:"ArXiv"`
	PubMed        string `json:"PubMed"`
	PubMedCentral string `json:"PubMedCentral"`
	CorpusID      int    `json:"CorpusId"`
}
