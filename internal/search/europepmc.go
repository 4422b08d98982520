// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/discovery-engine/internal/httputil"
	"github.com/pdiddy/discovery-engine/internal/source"
	"github.com/pdiddy/discovery-engine/pkg/types"
)

// europePMCSearchBase is the Europe PMC REST search endpoint. Declared as a
// var so tests can substitute an httptest server.
var europePMCSearchBase = "https://www.ebi.ac.uk/europepmc/webservices/rest/search"

// EuropePMCAdapter searches Europe PMC with the core result type, which
// includes abstracts, keywords, and citation counts.
type EuropePMCAdapter struct {
	Client *httputil.Client
	Limit  int
	Email  string
}

func (a *EuropePMCAdapter) Name() string      { return "europepmc" }
func (a *EuropePMCAdapter) Kind() source.Kind { return source.KindCitation }
func (a *EuropePMCAdapter) Close() error      { return a.Client.Close() }

func (a *EuropePMCAdapter) Search(ctx context.Context, q Query) ([]types.Record, error) {
	params := url.Values{
		"query":      {europePMCQuery(q)},
		"format":     {"json"},
		"resultType": {"core"},
		"pageSize":   {strconv.Itoa(limitOr(a.Limit, 25))},
	}
	if a.Email != "" {
		params.Set("email", a.Email)
	}

	var resp europePMCResponse
	if err := a.Client.GetJSON(ctx, europePMCSearchBase+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	var records []types.Record
	for _, r := range resp.ResultList.Result {
		if r.Title == "" {
			continue
		}
		records = append(records, types.NewPublicationRecord(r.toPublication()))
	}
	return records, nil
}

// europePMCQuery appends a FIRST_PDATE range to the text when a date
// filter is present.
func europePMCQuery(q Query) string {
	text := strings.TrimSpace(q.Text)
	f := q.Filters
	if f.DateFrom.IsZero() && f.DateTo.IsZero() {
		return text
	}
	from, to := "1800-01-01", "3000-12-31"
	if !f.DateFrom.IsZero() {
		from = f.DateFrom.Format(dateFmt)
	}
	if !f.DateTo.IsZero() {
		to = f.DateTo.Format(dateFmt)
	}
	return fmt.Sprintf("(%s) AND FIRST_PDATE:[%s TO %s]", text, from, to)
}

type europePMCResponse struct {
	HitCount   int `json:"hitCount"`
	ResultList struct {
		Result []europePMCResult `json:"result"`
	} `json:"resultList"`
}

type europePMCResult struct {
	ID                   string `json:"id"`
	Source               string `json:"source"`
	PMID                 string `json:"pmid"`
	PMCID                string `json:"pmcid"`
	DOI                  string `json:"doi"`
	Title                string `json:"title"`
	AuthorString         string `json:"authorString"`
	PubYear              string `json:"pubYear"`
	FirstPublicationDate string `json:"firstPublicationDate"`
	AbstractText         string `json:"abstractText"`
	CitedByCount         int    `json:"citedByCount"`
	AuthorList           struct {
		Author []struct {
			FullName string `json:"fullName"`
		} `json:"author"`
	} `json:"authorList"`
	JournalInfo struct {
		Journal struct {
			Title string `json:"title"`
		} `json:"journal"`
	} `json:"journalInfo"`
	KeywordList struct {
		Keyword []string `json:"keyword"`
	} `json:"keywordList"`
}

func (r europePMCResult) toPublication() types.Publication {
	p := types.Publication{
		PMID:          r.PMID,
		PMCID:         r.PMCID,
		DOI:           stripDOI(r.DOI),
		Title:         strings.TrimSuffix(cleanText(r.Title), "."),
		Abstract:      cleanText(r.AbstractText),
		Keywords:      r.KeywordList.Keyword,
		Journal:       r.JournalInfo.Journal.Title,
		CitationCount: r.CitedByCount,
		PublishedAt:   parseDate(r.FirstPublicationDate, dateFmt),
		SourceName:    "europepmc",
	}
	for _, a := range r.AuthorList.Author {
		if a.FullName != "" {
			p.Authors = append(p.Authors, a.FullName)
		}
	}
	if len(p.Authors) == 0 && r.AuthorString != "" {
		for _, a := range strings.Split(strings.TrimSuffix(r.AuthorString, "."), ",") {
			if a = strings.TrimSpace(a); a != "" {
				p.Authors = append(p.Authors, a)
			}
		}
	}
	if y, err := strconv.Atoi(r.PubYear); err == nil {
		p.Year = y
	} else if !p.PublishedAt.IsZero() {
		p.Year = p.PublishedAt.Year()
	}
	if r.Source != "" && r.ID != "" {
		p.URL = fmt.Sprintf("https://europepmc.org/article/%s/%s", r.Source, r.ID)
	}
	return p
}
