// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/discovery-engine/pkg/types"
)

// QueryFile is the on-disk snapshot of a search and its ranked results. A
// saved search can be reloaded later without querying any provider.
type QueryFile struct {
	Query   QueryParams          `yaml:"query"`
	Results []types.RankedRecord `yaml:"results"`
	Sources []SourceReport       `yaml:"sources,omitempty"`
	Summary QuerySummary         `yaml:"summary"`
}

// QueryParams stores the query parameters in a serializable form.
type QueryParams struct {
	Text           string `yaml:"text"`
	Organism       string `yaml:"organism,omitempty"`
	MinSampleCount int    `yaml:"min_sample_count,omitempty"`
	DateFrom       string `yaml:"date_from,omitempty"`
	DateTo         string `yaml:"date_to,omitempty"`
	Limit          int    `yaml:"limit,omitempty"`
}

// QuerySummary stores result statistics and a timestamp.
type QuerySummary struct {
	QueryID           string    `yaml:"query_id"`
	Total             int       `yaml:"total"`
	DuplicatesRemoved int       `yaml:"duplicates_removed"`
	CacheHits         int       `yaml:"cache_hits"`
	Fetched           int       `yaml:"fetched"`
	Timestamp         time.Time `yaml:"timestamp"`
}

const dateFmt = "2006-01-02"

// WriteQueryFile saves the query and its output to a YAML file.
func WriteQueryFile(path string, query Query, out Output) error {
	f := query.Filters
	qf := QueryFile{
		Query: QueryParams{
			Text:           query.Text,
			Organism:       f.Organism,
			MinSampleCount: f.MinSampleCount,
			Limit:          query.Limit,
		},
		Results: out.Results,
		Sources: out.Sources,
		Summary: QuerySummary{
			QueryID:           out.QueryID,
			Total:             len(out.Results),
			DuplicatesRemoved: out.DupsRemoved,
			CacheHits:         out.CacheHits,
			Fetched:           out.Fetched,
			Timestamp:         time.Now().UTC(),
		},
	}

	if !f.DateFrom.IsZero() {
		qf.Query.DateFrom = f.DateFrom.Format(dateFmt)
	}
	if !f.DateTo.IsZero() {
		qf.Query.DateTo = f.DateTo.Format(dateFmt)
	}

	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}

// ToQuery converts stored QueryParams back into a Query.
func (p QueryParams) ToQuery() (Query, error) {
	q := Query{
		Text:  p.Text,
		Limit: p.Limit,
		Filters: types.Filters{
			Organism:       p.Organism,
			MinSampleCount: p.MinSampleCount,
		},
	}
	if p.DateFrom != "" {
		t, err := time.Parse(dateFmt, p.DateFrom)
		if err != nil {
			return q, fmt.Errorf("invalid date_from %q: %w", p.DateFrom, err)
		}
		q.Filters.DateFrom = t
	}
	if p.DateTo != "" {
		t, err := time.Parse(dateFmt, p.DateTo)
		if err != nil {
			return q, fmt.Errorf("invalid date_to %q: %w", p.DateTo, err)
		}
		q.Filters.DateTo = t
	}
	return q, nil
}

// Output rebuilds the search output stored in the file.
func (qf *QueryFile) Output() Output {
	return Output{
		QueryID:     qf.Summary.QueryID,
		Results:     qf.Results,
		DupsRemoved: qf.Summary.DuplicatesRemoved,
		Sources:     qf.Sources,
		CacheHits:   qf.Summary.CacheHits,
		Fetched:     qf.Summary.Fetched,
	}
}
