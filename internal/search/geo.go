// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/discovery-engine/internal/httputil"
	"github.com/pdiddy/discovery-engine/internal/source"
	"github.com/pdiddy/discovery-engine/pkg/types"
)

// GEOAdapter searches NCBI GEO DataSets (db=gds) for series records.
type GEOAdapter struct {
	Client *httputil.Client
	Limit  int
	APIKey string
	Email  string
}

func (a *GEOAdapter) Name() string      { return "geo" }
func (a *GEOAdapter) Kind() source.Kind { return source.KindDataset }
func (a *GEOAdapter) Close() error      { return a.Client.Close() }

// Search runs an esearch restricted to GEO series, pushing the organism and
// date filters into the Entrez term, then resolves the hits with esummary.
func (a *GEOAdapter) Search(ctx context.Context, q Query) ([]types.Record, error) {
	e := eutils{client: a.Client, db: "gds", apiKey: a.APIKey, email: a.Email}

	uids, err := e.esearch(ctx, geoTerm(q), limitOr(a.Limit, 20), nil)
	if err != nil {
		return nil, err
	}
	docs, err := e.esummary(ctx, uids)
	if err != nil {
		return nil, err
	}

	var records []types.Record
	for _, raw := range docs {
		var s geoSummary
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("parsing GEO summary: %w", err)
		}
		if s.Accession == "" {
			continue
		}
		records = append(records, types.NewDatasetRecord(s.toDataset()))
	}
	return records, nil
}

// geoTerm builds the Entrez query, e.g.
// `breast cancer AND gse[ETYP] AND "Homo sapiens"[Organism]`.
func geoTerm(q Query) string {
	parts := []string{strings.TrimSpace(q.Text), "gse[ETYP]"}
	f := q.Filters
	if f.Organism != "" {
		parts = append(parts, fmt.Sprintf("%q[Organism]", f.Organism))
	}
	if !f.DateFrom.IsZero() || !f.DateTo.IsZero() {
		from, to := "1900/01/01", "3000/12/31"
		if !f.DateFrom.IsZero() {
			from = f.DateFrom.Format("2006/01/02")
		}
		if !f.DateTo.IsZero() {
			to = f.DateTo.Format("2006/01/02")
		}
		parts = append(parts, fmt.Sprintf("%s:%s[PDAT]", from, to))
	}
	return strings.Join(parts, " AND ")
}

type geoSummary struct {
	Accession string        `json:"accession"`
	Title     string        `json:"title"`
	Summary   string        `json:"summary"`
	Taxon     string        `json:"taxon"`
	NSamples  int           `json:"n_samples"`
	GPL       string        `json:"gpl"`
	PDat      string        `json:"pdat"`
	PubMedIDs []json.Number `json:"pubmedids"`
}

func (s geoSummary) toDataset() types.Dataset {
	d := types.Dataset{
		Accession:      strings.ToUpper(strings.TrimSpace(s.Accession)),
		Title:          strings.TrimSpace(s.Title),
		Summary:        cleanText(s.Summary),
		Organism:       s.Taxon,
		SampleCount:    s.NSamples,
		SubmissionDate: parseDate(s.PDat, "2006/01/02", "2006/01", "2006"),
		SourceName:     "geo",
	}
	for _, p := range strings.Split(s.GPL, ";") {
		if p = strings.TrimSpace(p); p != "" {
			d.PlatformIDs = append(d.PlatformIDs, "GPL"+p)
		}
	}
	for _, id := range s.PubMedIDs {
		d.LinkedPublicationIDs = append(d.LinkedPublicationIDs, id.String())
	}
	return d
}

func limitOr(n, def int) int {
	if n > 0 {
		return n
	}
	return def
}
