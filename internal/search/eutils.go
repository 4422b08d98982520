// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/discovery-engine/internal/httputil"
)

// eutilsBase is the NCBI E-utilities root. Declared as a var so tests can
// substitute an httptest server.
var eutilsBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

const eutilsTool = "discovery-engine"

// eutils issues esearch/esummary pairs against one Entrez database.
type eutils struct {
	client *httputil.Client
	db     string
	apiKey string
	email  string
}

type esearchResponse struct {
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// esearch returns the uids matching term, most relevant first.
func (e eutils) esearch(ctx context.Context, term string, limit int, extra url.Values) ([]string, error) {
	params := e.params()
	params.Set("term", term)
	params.Set("retmax", strconv.Itoa(limit))
	params.Set("sort", "relevance")
	for k, vs := range extra {
		params[k] = vs
	}

	var resp esearchResponse
	if err := e.client.GetJSON(ctx, eutilsBase+"/esearch.fcgi?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("esearch %s: %w", e.db, err)
	}
	return resp.Result.IDList, nil
}

// esummary fetches document summaries for uids and returns them in uid
// order as raw JSON, one per uid present in the response.
func (e eutils) esummary(ctx context.Context, uids []string) ([]json.RawMessage, error) {
	if len(uids) == 0 {
		return nil, nil
	}
	params := e.params()
	params.Set("id", strings.Join(uids, ","))

	var resp struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := e.client.GetJSON(ctx, eutilsBase+"/esummary.fcgi?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("esummary %s: %w", e.db, err)
	}

	order := uids
	if raw, ok := resp.Result["uids"]; ok {
		var listed []string
		if err := json.Unmarshal(raw, &listed); err == nil {
			order = listed
		}
	}
	docs := make([]json.RawMessage, 0, len(order))
	for _, uid := range order {
		if raw, ok := resp.Result[uid]; ok {
			docs = append(docs, raw)
		}
	}
	return docs, nil
}

func (e eutils) params() url.Values {
	v := url.Values{
		"db":      {e.db},
		"retmode": {"json"},
		"tool":    {eutilsTool},
	}
	if e.apiKey != "" {
		v.Set("api_key", e.apiKey)
	}
	if e.email != "" {
		v.Set("email", e.email)
	}
	return v
}
