// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fulltext

import (
	"log/slog"
	"net/http"

	"github.com/pdiddy/discovery-engine/internal/httputil"
	"github.com/pdiddy/discovery-engine/internal/logging"
	"github.com/pdiddy/discovery-engine/pkg/types"
)

// AdapterNames lists every full-text adapter in default priority order:
// institutional access, open repositories, aggregators, then the landing
// page as last resort.
var AdapterNames = []string{"institutional", "pmc", "arxiv", "unpaywall", "openalex", "semantic_scholar", "core", "landing_page"}

// NewAdapters builds the enabled adapters in the configured order. Adapters
// that cannot work without credentials are skipped with a warning when the
// credentials are missing.
func NewAdapters(cfg types.Config, logger *slog.Logger) []Adapter {
	logger = logging.OrDefault(logger)
	fc := cfg.FullText
	order := fc.Order
	if len(order) == 0 {
		order = AdapterNames
	}

	var adapters []Adapter
	seen := make(map[string]bool)
	for _, name := range order {
		ac, ok := fc.Adapters[name]
		if !ok || !ac.Enabled || seen[name] {
			continue
		}
		seen[name] = true

		opts := httputil.Options{
			HTTP:          fc.HTTPConfig,
			Retry:         cfg.Retry,
			Breaker:       cfg.Breaker,
			RatePerSecond: ac.RatePerSecond,
			Burst:         ac.Burst,
			MaxBodyBytes:  fc.MaxDocumentBytes,
			Logger:        logger,
		}
		skip := func(why string) {
			logger.Warn("full-text adapter disabled", slog.String("adapter", name), slog.String("reason", why))
		}

		switch name {
		case "institutional":
			if ac.URLTemplate == "" {
				skip("no url_template")
				continue
			}
			if ac.APIKey != "" {
				opts.Header = http.Header{"Authorization": {"Bearer " + ac.APIKey}}
			}
			adapters = append(adapters, &InstitutionalAdapter{Client: httputil.NewClient(name, opts), URLTemplate: ac.URLTemplate})
		case "pmc":
			adapters = append(adapters, &PMCAdapter{Client: httputil.NewClient(name, opts)})
		case "arxiv":
			adapters = append(adapters, &ArxivAdapter{Client: httputil.NewClient(name, opts)})
		case "unpaywall":
			if ac.Email == "" {
				skip("no email")
				continue
			}
			adapters = append(adapters, &UnpaywallAdapter{Client: httputil.NewClient(name, opts), Email: ac.Email})
		case "openalex":
			adapters = append(adapters, &OpenAlexAdapter{Client: httputil.NewClient(name, opts), Email: ac.Email})
		case "semantic_scholar":
			if ac.APIKey != "" {
				opts.Header = http.Header{"X-Api-Key": {ac.APIKey}}
			}
			adapters = append(adapters, &SemanticScholarAdapter{Client: httputil.NewClient(name, opts)})
		case "core":
			if ac.APIKey == "" {
				skip("no api_key")
				continue
			}
			opts.Header = http.Header{"Authorization": {"Bearer " + ac.APIKey}}
			adapters = append(adapters, &CoreAdapter{Client: httputil.NewClient(name, opts)})
		case "landing_page":
			adapters = append(adapters, &LandingPageAdapter{Client: httputil.NewClient(name, opts)})
		}
	}
	return adapters
}
