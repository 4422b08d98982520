// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/pdiddy/discovery-engine/internal/httputil"
	"github.com/pdiddy/discovery-engine/internal/source"
	"github.com/pdiddy/discovery-engine/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivAdapter queries the arXiv Atom API. arXiv has no citation counts or
// server-side date filter; dates are checked after the merge.
type ArxivAdapter struct {
	Client *httputil.Client
	Limit  int
}

func (a *ArxivAdapter) Name() string      { return "arxiv" }
func (a *ArxivAdapter) Kind() source.Kind { return source.KindCitation }
func (a *ArxivAdapter) Close() error      { return a.Client.Close() }

// Search queries arXiv and parses the Atom feed with gofeed.
func (a *ArxivAdapter) Search(ctx context.Context, q Query) ([]types.Record, error) {
	sq := buildArxivQuery(q.Text)
	if sq == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}
	params := url.Values{
		"search_query": {sq},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(limitOr(a.Limit, 25))},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	}

	resp, err := a.Client.Get(ctx, arxivAPIBase+"?"+params.Encode(), "application/atom+xml")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing arXiv feed: %w", err)
	}

	var records []types.Record
	for _, item := range feed.Items {
		arxivID := extractArxivID(item.GUID)
		if arxivID == "" {
			arxivID = extractArxivID(item.Link)
		}
		if arxivID == "" {
			continue
		}

		p := types.Publication{
			ArxivID:    arxivID,
			DOI:        arxivExtension(item, "doi"),
			Title:      strings.Join(strings.Fields(item.Title), " "),
			Abstract:   cleanText(item.Description),
			Journal:    arxivExtension(item, "journal_ref"),
			SourceName: "arxiv",
			URL:        "https://arxiv.org/abs/" + arxivID,
		}
		for _, au := range item.Authors {
			if au != nil && strings.TrimSpace(au.Name) != "" {
				p.Authors = append(p.Authors, strings.TrimSpace(au.Name))
			}
		}
		if item.PublishedParsed != nil {
			p.PublishedAt = item.PublishedParsed.UTC()
			p.Year = p.PublishedAt.Year()
		}
		records = append(records, types.NewPublicationRecord(p))
	}
	return records, nil
}

// buildArxivQuery ANDs every term across all fields:
// "breast cancer" becomes "all:breast AND all:cancer".
func buildArxivQuery(text string) string {
	terms := strings.Fields(text)
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		parts = append(parts, "all:"+t)
	}
	return strings.Join(parts, " AND ")
}

// arxivExtension returns the first value of an arxiv: namespaced element.
func arxivExtension(item *gofeed.Item, name string) string {
	ns, ok := item.Extensions["arxiv"]
	if !ok {
		return ""
	}
	if vals := ns[name]; len(vals) > 0 {
		return strings.TrimSpace(vals[0].Value)
	}
	return ""
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" -> "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
