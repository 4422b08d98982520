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

// arrayExpressBase is the BioStudies ArrayExpress collection search
// endpoint. Declared as a var so tests can substitute an httptest server.
var arrayExpressBase = "https://www.ebi.ac.uk/biostudies/api/v1/arrayexpress/search"

// ArrayExpressAdapter searches ArrayExpress experiments in BioStudies.
type ArrayExpressAdapter struct {
	Client *httputil.Client
	Limit  int
}

func (a *ArrayExpressAdapter) Name() string      { return "arrayexpress" }
func (a *ArrayExpressAdapter) Kind() source.Kind { return source.KindDataset }
func (a *ArrayExpressAdapter) Close() error      { return a.Client.Close() }

// Search queries the collection. The organism filter is applied as a
// facet. The search hits carry no sample counts, so SampleCount stays zero
// and the minimum sample filter does not drop these records.
func (a *ArrayExpressAdapter) Search(ctx context.Context, q Query) ([]types.Record, error) {
	params := url.Values{
		"query":    {strings.TrimSpace(q.Text)},
		"pageSize": {strconv.Itoa(limitOr(a.Limit, 20))},
		"page":     {"1"},
	}
	if org := strings.TrimSpace(q.Filters.Organism); org != "" {
		params.Set("facet.organism", strings.ToLower(org))
	}

	var resp arrayExpressResponse
	if err := a.Client.GetJSON(ctx, arrayExpressBase+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	var records []types.Record
	for _, h := range resp.Hits {
		if h.Accession == "" {
			continue
		}
		d := types.Dataset{
			Accession:      strings.ToUpper(h.Accession),
			Title:          cleanText(h.Title),
			Summary:        cleanText(h.Content),
			SubmissionDate: parseDate(h.ReleaseDate, "2006-01-02"),
			SourceName:     "arrayexpress",
		}
		if q.Filters.Organism != "" {
			// The facet guarantees the organism of every hit.
			d.Organism = q.Filters.Organism
		}
		records = append(records, types.NewDatasetRecord(d))
	}
	return records, nil
}

type arrayExpressResponse struct {
	TotalHits int `json:"totalHits"`
	Hits      []struct {
		Accession   string `json:"accession"`
		Type        string `json:"type"`
		Title       string `json:"title"`
		Author      string `json:"author"`
		ReleaseDate string `json:"release_date"`
		Content     string `json:"content"`
	} `json:"hits"`
}
