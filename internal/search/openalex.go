// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/discovery-engine/internal/httputil"
	"github.com/pdiddy/discovery-engine/internal/source"
	"github.com/pdiddy/discovery-engine/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

// OpenAlexAdapter queries the OpenAlex works index.
type OpenAlexAdapter struct {
	Client *httputil.Client
	Limit  int

	// Email is sent as mailto parameter for polite pool access.
	Email string
}

func (a *OpenAlexAdapter) Name() string      { return "openalex" }
func (a *OpenAlexAdapter) Kind() source.Kind { return source.KindCitation }
func (a *OpenAlexAdapter) Close() error      { return a.Client.Close() }

// Search queries OpenAlex with publication-date filters.
func (a *OpenAlexAdapter) Search(ctx context.Context, q Query) ([]types.Record, error) {
	perPage := min(limitOr(a.Limit, 25), 200)
	params := url.Values{
		"search":   {strings.TrimSpace(q.Text)},
		"per_page": {strconv.Itoa(perPage)},
		"page":     {"1"},
	}

	var filters []string
	if !q.Filters.DateFrom.IsZero() {
		filters = append(filters, "from_publication_date:"+q.Filters.DateFrom.Format(dateFmt))
	}
	if !q.Filters.DateTo.IsZero() {
		filters = append(filters, "to_publication_date:"+q.Filters.DateTo.Format(dateFmt))
	}
	if len(filters) > 0 {
		params.Set("filter", strings.Join(filters, ","))
	}
	if a.Email != "" {
		params.Set("mailto", a.Email)
	}

	var oar openAlexResponse
	if err := a.Client.GetJSON(ctx, openAlexSearchBase+"?"+params.Encode(), &oar); err != nil {
		return nil, err
	}

	var records []types.Record
	for _, work := range oar.Results {
		if work.Title == "" {
			continue
		}
		records = append(records, types.NewPublicationRecord(work.toPublication()))
	}
	return records, nil
}

func (w openAlexWork) toPublication() types.Publication {
	p := types.Publication{
		DOI:           stripDOI(w.DOI),
		Title:         cleanText(w.Title),
		Abstract:      reconstructAbstract(w.AbstractInvertedIndex),
		Year:          w.PublicationYear,
		PublishedAt:   parseDate(w.PublicationDate, dateFmt),
		CitationCount: w.CitedByCount,
		SourceName:    "openalex",
		URL:           w.ID,
	}
	if w.IDs.PMID != "" {
		p.PMID = lastPathSegment(w.IDs.PMID)
	}
	if w.IDs.PMCID != "" {
		p.PMCID = strings.ToUpper(lastPathSegment(w.IDs.PMCID))
		if !strings.HasPrefix(p.PMCID, "PMC") {
			p.PMCID = "PMC" + p.PMCID
		}
	}
	if w.PrimaryLocation.Source != nil {
		p.Journal = w.PrimaryLocation.Source.DisplayName
	}
	for _, authorship := range w.Authorships {
		if authorship.Author.DisplayName != "" {
			p.Authors = append(p.Authors, authorship.Author.DisplayName)
		}
	}
	for _, c := range w.Keywords {
		if c.DisplayName != "" {
			p.Keywords = append(p.Keywords, c.DisplayName)
		}
	}
	return p
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to a list of positions
// where that word appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Meta    openAlexMeta   `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexMeta struct {
	Count   int `json:"count"`
	PerPage int `json:"per_page"`
	Page    int `json:"page"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationDate       string               `json:"publication_date"`
	PublicationYear       int                  `json:"publication_year"`
	CitedByCount          int                  `json:"cited_by_count"`
	IDs                   openAlexIDs          `json:"ids"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	PrimaryLocation       openAlexLocation     `json:"primary_location"`
	BestOALocation        *openAlexLocation    `json:"best_oa_location"`
	Keywords              []openAlexKeyword    `json:"keywords"`
}

type openAlexIDs struct {
	OpenAlex string `json:"openalex"`
	DOI      string `json:"doi"`
	PMID     string `json:"pmid"`
	PMCID    string `json:"pmcid"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type openAlexLocation struct {
	PDFURL     string `json:"pdf_url"`
	LandingURL string `json:"landing_page_url"`
	Source     *struct {
		DisplayName string `json:"display_name"`
	} `json:"source"`
}

type openAlexKeyword struct {
	DisplayName string `json:"display_name"`
}
