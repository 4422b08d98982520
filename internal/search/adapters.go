// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/pdiddy/discovery-engine/internal/httputil"
	"github.com/pdiddy/discovery-engine/pkg/types"
)

// AdapterNames lists every search adapter in fan-out order.
var AdapterNames = []string{"geo", "arrayexpress", "pubmed", "europepmc", "openalex", "semantic_scholar", "arxiv"}

// NewAdapters builds the enabled search adapters, each with its own HTTP
// client carrying the provider's credentials, rate limit, and breaker.
// Unknown names in the config are ignored.
func NewAdapters(cfg types.Config, logger *slog.Logger) []Adapter {
	sc := cfg.Search
	var adapters []Adapter
	for _, name := range AdapterNames {
		ac, ok := sc.Adapters[name]
		if !ok || !ac.Enabled {
			continue
		}
		opts := httputil.Options{
			HTTP:          sc.HTTPConfig,
			Retry:         cfg.Retry,
			Breaker:       cfg.Breaker,
			RatePerSecond: ac.RatePerSecond,
			Burst:         ac.Burst,
			Logger:        logger,
		}
		if name == "semantic_scholar" && ac.APIKey != "" {
			opts.Header = http.Header{"X-Api-Key": {ac.APIKey}}
		}
		client := httputil.NewClient(name, opts)
		limit := sc.PerAdapterResults

		switch name {
		case "geo":
			adapters = append(adapters, &GEOAdapter{Client: client, Limit: limit, APIKey: ac.APIKey, Email: ac.Email})
		case "arrayexpress":
			adapters = append(adapters, &ArrayExpressAdapter{Client: client, Limit: limit})
		case "pubmed":
			adapters = append(adapters, &PubMedAdapter{Client: client, Limit: limit, APIKey: ac.APIKey, Email: ac.Email})
		case "europepmc":
			adapters = append(adapters, &EuropePMCAdapter{Client: client, Limit: limit, Email: ac.Email})
		case "openalex":
			adapters = append(adapters, &OpenAlexAdapter{Client: client, Limit: limit, Email: ac.Email})
		case "semantic_scholar":
			adapters = append(adapters, &SemanticScholarAdapter{Client: client, Limit: limit})
		case "arxiv":
			adapters = append(adapters, &ArxivAdapter{Client: client, Limit: limit})
		}
	}
	return adapters
}

// FilterAdapters keeps only the named adapters. An empty list keeps all.
func FilterAdapters(adapters []Adapter, names []string) []Adapter {
	if len(names) == 0 {
		return adapters
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []Adapter
	for _, a := range adapters {
		if want[a.Name()] {
			out = append(out, a)
			continue
		}
		a.Close()
	}
	return out
}

// UnknownAdapters returns the names that match no search adapter, sorted.
func UnknownAdapters(names []string) []string {
	known := make(map[string]bool, len(AdapterNames))
	for _, n := range AdapterNames {
		known[n] = true
	}
	var out []string
	for _, n := range names {
		if !known[n] {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
