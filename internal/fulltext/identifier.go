// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fulltext

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/pdiddy/discovery-engine/pkg/types"
)

// IdentifierType classifies a publication identifier given on the command
// line.
type IdentifierType int

const (
	TypeUnknown IdentifierType = iota
	TypePMID
	TypePMCID
	TypeDOI
	TypeArxiv
)

func (t IdentifierType) String() string {
	switch t {
	case TypePMID:
		return "pmid"
	case TypePMCID:
		return "pmcid"
	case TypeDOI:
		return "doi"
	case TypeArxiv:
		return "arxiv"
	default:
		return "unknown"
	}
}

var (
	// pmidPattern matches "12345678" and "PMID:12345678".
	pmidPattern = regexp.MustCompile(`^(?i:pmid:\s*)?(\d{1,9})$`)

	// pmcidPattern matches "PMC1234567", case-insensitive.
	pmcidPattern = regexp.MustCompile(`^(?i:pmc)(\d+)$`)

	// arxivPattern matches "2301.07041", "arXiv:2301.07041v2" and old-style
	// "hep-th/9901001".
	arxivPattern = regexp.MustCompile(`^(?i:arxiv:)?(\d{4}\.\d{4,5}|[a-z-]+(?:\.[A-Z]{2})?/\d{7})(?:v\d+)?$`)

	// doiPattern matches "10.1145/1234567.1234568".
	doiPattern = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)
)

// ClassifyIdentifier determines the identifier type and returns the
// normalized form: bare digits for PMIDs, upper-case PMCIDs, DOIs without
// resolver prefix, and arXiv ids without version.
func ClassifyIdentifier(identifier string) (IdentifierType, string) {
	s := strings.TrimSpace(identifier)

	if m := pmidPattern.FindStringSubmatch(s); m != nil {
		return TypePMID, m[1]
	}
	if m := pmcidPattern.FindStringSubmatch(s); m != nil {
		return TypePMCID, "PMC" + m[1]
	}
	if m := arxivPattern.FindStringSubmatch(s); m != nil {
		return TypeArxiv, m[1]
	}

	doi := s
	for _, p := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "doi:"} {
		if len(doi) >= len(p) && strings.EqualFold(doi[:len(p)], p) {
			doi = doi[len(p):]
			break
		}
	}
	if doiPattern.MatchString(doi) {
		return TypeDOI, doi
	}
	return TypeUnknown, s
}

// ParseIdentifier turns an identifier into a publication seed that the
// waterfall can work from.
func ParseIdentifier(identifier string) (types.Publication, error) {
	idType, norm := ClassifyIdentifier(identifier)
	p := types.Publication{SourceName: "cli"}
	switch idType {
	case TypePMID:
		p.PMID = norm
	case TypePMCID:
		p.PMCID = norm
	case TypeDOI:
		p.DOI = norm
		if id, ok := arxivIDFromDOI(norm); ok {
			p.ArxivID = id
		}
	case TypeArxiv:
		p.ArxivID = norm
		p.DOI = "10.48550/arXiv." + norm
	default:
		return p, fmt.Errorf("unrecognized identifier format: %q", identifier)
	}
	return p, nil
}

// arxivIDFromDOI extracts the arXiv id from an arXiv-minted DOI such as
// "10.48550/arXiv.2301.07041".
func arxivIDFromDOI(doi string) (string, bool) {
	const prefix = "10.48550/arxiv."
	if len(doi) > len(prefix) && strings.EqualFold(doi[:len(prefix)], prefix) {
		return doi[len(prefix):], true
	}
	return "", false
}

// Slug returns a filesystem-safe filename stem for a canonical publication
// id, e.g. "doi:10.1038/x" becomes "doi-10.1038-x".
func Slug(canonicalID string) string {
	return strings.NewReplacer("/", "-", ":", "-", "\\", "-", " ", "_").Replace(canonicalID)
}

// escapeDOI escapes a DOI for use as a URL path. Slashes separate the
// prefix and suffix and are kept; characters such as '?', '#' and '%' that
// appear in some suffixes are escaped.
func escapeDOI(doi string) string {
	parts := strings.Split(doi, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
