// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Completeness weights. The score only picks a dedup survivor and is never
// shown to users.
const (
	completenessPMID      = 100
	completenessPMCID     = 50
	completenessDOI       = 30
	completenessAbstract  = 20
	completenessKeywords  = 15
	completenessPerAuthor = 2
	completenessAuthorCap = 20
)

// Publication is a paper returned by a citation engine or referenced by a
// dataset.
type Publication struct {
	// PMID is the PubMed identifier (digits only).
	PMID string `json:"pmid,omitempty" yaml:"pmid,omitempty"`

	// PMCID is the PubMed Central identifier including the "PMC" prefix.
	PMCID string `json:"pmcid,omitempty" yaml:"pmcid,omitempty"`

	// DOI is the bare DOI without resolver prefix.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// ArxivID is set for preprints found on arXiv.
	ArxivID string `json:"arxiv_id,omitempty" yaml:"arxiv_id,omitempty"`

	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	Abstract string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Journal  string   `json:"journal,omitempty" yaml:"journal,omitempty"`

	// Year is the publication year; PublishedAt is set when the source
	// reports a full date.
	Year        int       `json:"year,omitempty" yaml:"year,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty" yaml:"published_at,omitempty"`

	CitationCount int `json:"citation_count" yaml:"citation_count"`

	// SourceName identifies the adapter that produced the record.
	SourceName string `json:"source" yaml:"source"`

	// Sources lists every adapter whose hit was merged into this record.
	Sources []string `json:"sources,omitempty" yaml:"sources,omitempty"`

	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// PrimaryID returns the identifier shown to users: PMID, then DOI, then
// PMCID, then a hash of the bibliographic fields.
func (p *Publication) PrimaryID() string {
	switch {
	case p.PMID != "":
		return p.PMID
	case p.DOI != "":
		return p.DOI
	case p.PMCID != "":
		return p.PMCID
	default:
		return p.hashID()
	}
}

// CompletenessScore measures metadata richness.
func (p *Publication) CompletenessScore() int {
	score := 0
	if p.PMID != "" {
		score += completenessPMID
	}
	if p.PMCID != "" {
		score += completenessPMCID
	}
	if p.DOI != "" {
		score += completenessDOI
	}
	if strings.TrimSpace(p.Abstract) != "" {
		score += completenessAbstract
	}
	if len(p.Keywords) > 0 {
		score += completenessKeywords
	}
	score += min(len(p.Authors)*completenessPerAuthor, completenessAuthorCap)
	return score
}

// PublicationDate returns PublishedAt when known, otherwise mid-year of Year.
// The second return value is false when neither is set.
func (p *Publication) PublicationDate() (time.Time, bool) {
	if !p.PublishedAt.IsZero() {
		return p.PublishedAt, true
	}
	if p.Year > 0 {
		return time.Date(p.Year, time.July, 1, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

func (p *Publication) hashID() string {
	first := ""
	if len(p.Authors) > 0 {
		first = p.Authors[0]
	}
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d",
		NormalizeText(p.Title), NormalizeText(first), p.Year)))
	return fmt.Sprintf("hash:%x", h[:8])
}

// Dataset is a genomic dataset record such as a GEO series or an
// ArrayExpress experiment.
type Dataset struct {
	// Accession is the repository accession (e.g. "GSE12345", "E-MTAB-1234").
	Accession   string `json:"accession" yaml:"accession"`
	Title       string `json:"title" yaml:"title"`
	Summary     string `json:"summary,omitempty" yaml:"summary,omitempty"`
	Organism    string `json:"organism,omitempty" yaml:"organism,omitempty"`
	SampleCount int    `json:"sample_count" yaml:"sample_count"`

	PlatformIDs          []string `json:"platform_ids,omitempty" yaml:"platform_ids,omitempty"`
	LinkedPublicationIDs []string `json:"linked_publication_ids,omitempty" yaml:"linked_publication_ids,omitempty"`

	SubmissionDate time.Time `json:"submission_date,omitempty" yaml:"submission_date,omitempty"`

	SourceName string   `json:"source" yaml:"source"`
	Sources    []string `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// NormalizeText lower-cases s, strips punctuation, and collapses whitespace.
func NormalizeText(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
