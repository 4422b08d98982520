// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/discovery-engine/internal/metrics"
	"github.com/pdiddy/discovery-engine/internal/search"
	"github.com/pdiddy/discovery-engine/pkg/types"
)

func newSearchFlags(t *testing.T, flags map[string]string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.Flags().AddFlagSet(searchCmd.Flags())
	for k, v := range flags {
		require.NoError(t, cmd.Flags().Set(k, v))
	}
	t.Cleanup(func() {
		for k := range flags {
			f := cmd.Flags().Lookup(k)
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})
	return cmd
}

func TestBuildQuery(t *testing.T) {
	cmd := newSearchFlags(t, map[string]string{
		"organism":    "Homo sapiens",
		"min-samples": "12",
		"from":        "2020-01-01",
		"to":          "2024-12-31",
		"limit":       "5",
	})

	q, err := buildQuery(cmd, []string{"single-cell", "atlas"})
	require.NoError(t, err)
	assert.Equal(t, "single-cell atlas", q.Text)
	assert.Equal(t, 5, q.Limit)
	assert.Equal(t, types.Filters{
		Organism:       "Homo sapiens",
		MinSampleCount: 12,
		DateFrom:       time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		DateTo:         time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}, q.Filters)
}

func TestBuildQueryErrors(t *testing.T) {
	_, err := buildQuery(newSearchFlags(t, nil), nil)
	assert.Error(t, err, "empty query")

	_, err = buildQuery(newSearchFlags(t, map[string]string{"from": "2020/01/01"}), []string{"atlas"})
	assert.ErrorContains(t, err, "--from")

	_, err = buildQuery(newSearchFlags(t, map[string]string{"from": "2024-01-01", "to": "2020-01-01"}), []string{"atlas"})
	assert.ErrorContains(t, err, "before")
}

func TestAcquireTargets(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().AddFlagSet(acquireCmd.Flags())

	pubs, err := acquireTargets(cmd, []string{"35000001", "PMC7000001", "10.1038/s41586-020-2649-2", "2101.00001v2"})
	require.NoError(t, err)
	require.Len(t, pubs, 4)
	assert.Equal(t, "35000001", pubs[0].PMID)
	assert.Equal(t, "PMC7000001", pubs[1].PMCID)
	assert.Equal(t, "10.1038/s41586-020-2649-2", pubs[2].DOI)
	assert.Equal(t, "2101.00001", pubs[3].ArxivID)

	_, err = acquireTargets(cmd, []string{"35000001", "not an id"})
	assert.ErrorContains(t, err, "not an id")

	_, err = acquireTargets(cmd, nil)
	assert.Error(t, err)
}

func TestAcquireTargetsFromSearch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search.yaml")
	out := search.Output{
		QueryID: "q1",
		Results: []types.RankedRecord{
			{Record: types.NewPublicationRecord(types.Publication{PMID: "1", Title: "A"})},
			{Record: types.NewDatasetRecord(types.Dataset{Accession: "GSE1", Title: "B"})},
			{Record: types.NewPublicationRecord(types.Publication{DOI: "10.1/x", Title: "C"})},
		},
	}
	require.NoError(t, search.WriteQueryFile(path, search.Query{Text: "atlas"}, out))

	cmd := &cobra.Command{}
	cmd.Flags().AddFlagSet(acquireCmd.Flags())
	require.NoError(t, cmd.Flags().Set("from-search", path))
	t.Cleanup(func() { _ = cmd.Flags().Set("from-search", "") })

	pubs, err := acquireTargets(cmd, []string{"PMC5"})
	require.NoError(t, err)
	require.Len(t, pubs, 3, "datasets are skipped")
	assert.Equal(t, "1", pubs[0].PMID)
	assert.Equal(t, "10.1/x", pubs[1].DOI)
	assert.Equal(t, "PMC5", pubs[2].PMCID)
}

func TestPrintOutcomes(t *testing.T) {
	var buf bytes.Buffer
	printOutcomes(&buf, []types.FullTextOutcome{
		{PublicationID: "pmid:1", State: types.FullTextSucceeded, WinningSource: "pmc", ContentRef: "papers/raw/pmid-1.xml"},
		{PublicationID: "pmid:2", State: types.FullTextSucceeded, ContentRef: "papers/raw/pmid-2.pdf", Cached: true},
		{PublicationID: "doi:10.1/x", State: types.FullTextExhausted, FailureReason: "pmc: no PMCID"},
	})

	got := buf.String()
	assert.Contains(t, got, "acquired: pmid:1 from pmc -> papers/raw/pmid-1.xml")
	assert.Contains(t, got, "cached: pmid:2 -> papers/raw/pmid-2.pdf")
	assert.Contains(t, got, "failed: doi:10.1/x: pmc: no PMCID")
	assert.Contains(t, got, "Batch summary: 2 succeeded, 1 exhausted, 0 cancelled (1 from cache), 3 total")
}

func TestLoadConfigAppliesSecrets(t *testing.T) {
	prev := loadedSecrets
	loadedSecrets = map[string]string{"unpaywall-email": "oa@example.org"}
	t.Cleanup(func() { loadedSecrets = prev })

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "oa@example.org", cfg.FullText.Adapters["unpaywall"].Email)
	assert.Equal(t, types.DefaultCacheTTL(), cfg.Cache.TTL)
	assert.Equal(t, "sqlite", cfg.Cache.Backend, "cache persists between runs by default")
	assert.Equal(t, "cache/discovery.db", cfg.Cache.SQLitePath)
}

func TestWriteMetrics(t *testing.T) {
	metrics.RecordAdapterCall("search", "cli-test", "ok", 0.05)

	path := filepath.Join(t.TempDir(), "run.prom")
	var buf bytes.Buffer
	writeMetrics(path, &buf)
	assert.Equal(t, "metrics: "+path+"\n", buf.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `adapter="cli-test"`)

	buf.Reset()
	writeMetrics("", &buf)
	assert.Empty(t, buf.String())

	writeMetrics(filepath.Join(t.TempDir(), "missing", "run.prom"), &buf)
	assert.Contains(t, buf.String(), "writing metrics:")
}
