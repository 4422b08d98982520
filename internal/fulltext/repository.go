// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fulltext

import (
	"context"
	"net/url"
	"strings"

	"github.com/pdiddy/discovery-engine/internal/httputil"
	"github.com/pdiddy/discovery-engine/pkg/types"
)

// Base URLs of the repositories that serve documents directly. Declared as
// vars so tests can substitute httptest servers.
var (
	europePMCRestBase = "https://www.ebi.ac.uk/europepmc/webservices/rest"
	arxivPDFBase      = "https://arxiv.org/pdf/"
)

// InstitutionalAdapter downloads through an institutional access proxy.
// URLTemplate contains "{doi}", replaced by the publication DOI; the
// client carries the proxy credentials.
type InstitutionalAdapter struct {
	Client      *httputil.Client
	URLTemplate string
}

func (a *InstitutionalAdapter) Name() string { return "institutional" }
func (a *InstitutionalAdapter) Close() error { return a.Client.Close() }

func (a *InstitutionalAdapter) Fetch(ctx context.Context, pub types.Publication) (*Content, error) {
	if pub.DOI == "" {
		return nil, noFullText(a.Name(), "no DOI")
	}
	if !strings.Contains(a.URLTemplate, "{doi}") {
		return nil, noFullText(a.Name(), "proxy not configured")
	}
	return download(ctx, a.Client, strings.ReplaceAll(a.URLTemplate, "{doi}", escapeDOI(pub.DOI)))
}

// PMCAdapter fetches JATS XML from Europe PMC for open-access articles in
// PubMed Central.
type PMCAdapter struct {
	Client *httputil.Client
}

func (a *PMCAdapter) Name() string { return "pmc" }
func (a *PMCAdapter) Close() error { return a.Client.Close() }

func (a *PMCAdapter) Fetch(ctx context.Context, pub types.Publication) (*Content, error) {
	if pub.PMCID == "" {
		return nil, noFullText(a.Name(), "no PMCID")
	}
	pmcid := strings.ToUpper(pub.PMCID)
	return download(ctx, a.Client, europePMCRestBase+"/"+url.PathEscape(pmcid)+"/fullTextXML")
}

// ArxivAdapter downloads the PDF of an arXiv preprint.
type ArxivAdapter struct {
	Client *httputil.Client
}

func (a *ArxivAdapter) Name() string { return "arxiv" }
func (a *ArxivAdapter) Close() error { return a.Client.Close() }

func (a *ArxivAdapter) Fetch(ctx context.Context, pub types.Publication) (*Content, error) {
	id := pub.ArxivID
	if id == "" {
		id, _ = arxivIDFromDOI(pub.DOI)
	}
	if id == "" {
		return nil, noFullText(a.Name(), "no arXiv id")
	}
	return download(ctx, a.Client, arxivPDFBase+id)
}
