// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/pdiddy/discovery-engine/internal/httputil"
	"github.com/pdiddy/discovery-engine/internal/source"
	"github.com/pdiddy/discovery-engine/pkg/types"
)

// PubMedAdapter searches PubMed through E-utilities.
type PubMedAdapter struct {
	Client *httputil.Client
	Limit  int
	APIKey string
	Email  string
}

func (a *PubMedAdapter) Name() string      { return "pubmed" }
func (a *PubMedAdapter) Kind() source.Kind { return source.KindCitation }
func (a *PubMedAdapter) Close() error      { return a.Client.Close() }

// Search runs esearch with a publication-date window and resolves the hits
// with esummary. PubMed reports no citation counts.
func (a *PubMedAdapter) Search(ctx context.Context, q Query) ([]types.Record, error) {
	e := eutils{client: a.Client, db: "pubmed", apiKey: a.APIKey, email: a.Email}

	extra := url.Values{}
	f := q.Filters
	if !f.DateFrom.IsZero() || !f.DateTo.IsZero() {
		extra.Set("datetype", "pdat")
		extra.Set("mindate", "1800/01/01")
		extra.Set("maxdate", "3000/12/31")
		if !f.DateFrom.IsZero() {
			extra.Set("mindate", f.DateFrom.Format("2006/01/02"))
		}
		if !f.DateTo.IsZero() {
			extra.Set("maxdate", f.DateTo.Format("2006/01/02"))
		}
	}

	uids, err := e.esearch(ctx, strings.TrimSpace(q.Text), limitOr(a.Limit, 20), extra)
	if err != nil {
		return nil, err
	}
	docs, err := e.esummary(ctx, uids)
	if err != nil {
		return nil, err
	}

	var records []types.Record
	for _, raw := range docs {
		var s pubmedSummary
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("parsing PubMed summary: %w", err)
		}
		if s.UID == "" {
			continue
		}
		records = append(records, types.NewPublicationRecord(s.toPublication()))
	}
	return records, nil
}

type pubmedSummary struct {
	UID             string `json:"uid"`
	PubDate         string `json:"pubdate"`
	SortPubDate     string `json:"sortpubdate"`
	Title           string `json:"title"`
	FullJournalName string `json:"fulljournalname"`
	Authors         []struct {
		Name string `json:"name"`
	} `json:"authors"`
	ArticleIDs []struct {
		IDType string `json:"idtype"`
		Value  string `json:"value"`
	} `json:"articleids"`
}

func (s pubmedSummary) toPublication() types.Publication {
	p := types.Publication{
		PMID:       s.UID,
		Title:      strings.TrimSuffix(cleanText(s.Title), "."),
		Journal:    s.FullJournalName,
		SourceName: "pubmed",
		URL:        "https://pubmed.ncbi.nlm.nih.gov/" + s.UID + "/",
	}
	for _, a := range s.Authors {
		if a.Name != "" {
			p.Authors = append(p.Authors, a.Name)
		}
	}
	for _, id := range s.ArticleIDs {
		switch id.IDType {
		case "doi":
			p.DOI = id.Value
		case "pmc":
			p.PMCID = id.Value
		}
	}
	// sortpubdate is "2023/01/15 00:00"; pubdate may be only "2023" or
	// "2023 Jan".
	if t := parseDate(s.SortPubDate, "2006/01/02 15:04"); !t.IsZero() {
		p.Year = t.Year()
		if precise := parseDate(s.PubDate, "2006 Jan 2"); !precise.IsZero() {
			p.PublishedAt = precise
		}
	}
	if p.Year == 0 {
		if t := parseDate(firstField(s.PubDate), "2006"); !t.IsZero() {
			p.Year = t.Year()
		}
	}
	return p
}

func firstField(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}
