// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the discovery-engine
// pipeline: records returned by source adapters, ranked records produced per
// query, full-text acquisition outcomes, and configuration.
package types

import (
	"strings"
	"time"
)

// RecordKind distinguishes the variants of Record.
type RecordKind string

const (
	KindDataset     RecordKind = "dataset"
	KindPublication RecordKind = "publication"
)

// Record is the canonical union of a dataset or a publication. Exactly one
// of Dataset and Publication is non-nil and matches Kind.
type Record struct {
	Kind        RecordKind   `json:"kind" yaml:"kind"`
	Dataset     *Dataset     `json:"dataset,omitempty" yaml:"dataset,omitempty"`
	Publication *Publication `json:"publication,omitempty" yaml:"publication,omitempty"`
}

// NewDatasetRecord wraps d in a Record.
func NewDatasetRecord(d Dataset) Record {
	return Record{Kind: KindDataset, Dataset: &d}
}

// NewPublicationRecord wraps p in a Record.
func NewPublicationRecord(p Publication) Record {
	return Record{Kind: KindPublication, Publication: &p}
}

// CanonicalID returns the exact-match dedup key. Publications use the first
// present of PMID, PMCID, DOI, then the computed hash; datasets use the
// accession. The id type prefix keeps namespaces apart.
func (r Record) CanonicalID() string {
	switch {
	case r.Publication != nil:
		p := r.Publication
		switch {
		case p.PMID != "":
			return "pmid:" + p.PMID
		case p.PMCID != "":
			return "pmcid:" + strings.ToUpper(p.PMCID)
		case p.DOI != "":
			return "doi:" + strings.ToLower(p.DOI)
		default:
			return p.hashID()
		}
	case r.Dataset != nil:
		return "acc:" + strings.ToUpper(r.Dataset.Accession)
	default:
		return ""
	}
}

// Title returns the record title regardless of variant.
func (r Record) Title() string {
	switch {
	case r.Publication != nil:
		return r.Publication.Title
	case r.Dataset != nil:
		return r.Dataset.Title
	default:
		return ""
	}
}

// Source returns the adapter name that produced the record.
func (r Record) Source() string {
	switch {
	case r.Publication != nil:
		return r.Publication.SourceName
	case r.Dataset != nil:
		return r.Dataset.SourceName
	default:
		return ""
	}
}

// CompletenessScore returns the publication completeness score; datasets
// score zero because they only dedup on accession.
func (r Record) CompletenessScore() int {
	if r.Publication != nil {
		return r.Publication.CompletenessScore()
	}
	return 0
}

// Date returns the date used for recency and date-range filters.
func (r Record) Date() (time.Time, bool) {
	switch {
	case r.Publication != nil:
		return r.Publication.PublicationDate()
	case r.Dataset != nil:
		return r.Dataset.SubmissionDate, !r.Dataset.SubmissionDate.IsZero()
	default:
		return time.Time{}, false
	}
}

// RankedRecord pairs a record with the scores computed for one query. Scores
// are never persisted.
type RankedRecord struct {
	Record         Record  `json:"record" yaml:"record"`
	TitleScore     float64 `json:"title_score" yaml:"title_score"`
	CitationScore  float64 `json:"citation_score" yaml:"citation_score"`
	RecencyScore   float64 `json:"recency_score" yaml:"recency_score"`
	CompositeScore float64 `json:"composite_score" yaml:"composite_score"`
}

// Filters is the closed set of structured filters a query may carry.
type Filters struct {
	Organism       string    `json:"organism,omitempty" yaml:"organism,omitempty"`
	MinSampleCount int       `json:"min_sample_count,omitempty" yaml:"min_sample_count,omitempty"`
	DateFrom       time.Time `json:"date_from,omitempty" yaml:"date_from,omitempty"`
	DateTo         time.Time `json:"date_to,omitempty" yaml:"date_to,omitempty"`
}

// Match reports whether r satisfies the filters. Organism and sample count
// only constrain datasets. A zero SampleCount means the source did not
// report one and passes, as records without a date pass the date range.
func (f Filters) Match(r Record) bool {
	if d := r.Dataset; d != nil {
		if f.Organism != "" && !strings.EqualFold(strings.TrimSpace(d.Organism), strings.TrimSpace(f.Organism)) {
			return false
		}
		if f.MinSampleCount > 0 && d.SampleCount > 0 && d.SampleCount < f.MinSampleCount {
			return false
		}
	}
	if p := r.Publication; p != nil && p.PublishedAt.IsZero() && p.Year > 0 {
		// Year-only dates match any overlapping year.
		if !f.DateFrom.IsZero() && p.Year < f.DateFrom.Year() {
			return false
		}
		if !f.DateTo.IsZero() && p.Year > f.DateTo.Year() {
			return false
		}
		return true
	}
	date, ok := r.Date()
	if !ok {
		return true
	}
	if !f.DateFrom.IsZero() && date.Before(f.DateFrom) {
		return false
	}
	if !f.DateTo.IsZero() && date.After(f.DateTo) {
		return false
	}
	return true
}
