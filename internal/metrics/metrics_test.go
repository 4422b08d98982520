// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAdapterCall(t *testing.T) {
	c := AdapterCallsTotal.WithLabelValues("search", "metrics-test", "ok")
	before := testutil.ToFloat64(c)

	RecordAdapterCall("search", "metrics-test", "ok", 0.2)
	RecordAdapterCall("search", "metrics-test", "ok", 0.4)

	assert.Equal(t, before+2, testutil.ToFloat64(c))
	assert.Equal(t, 0.0, testutil.ToFloat64(AdapterCallsTotal.WithLabelValues("search", "metrics-test", "timeout")))
}

func TestRecordCacheCount(t *testing.T) {
	c := CacheOpsTotal.WithLabelValues("batch_get", "metrics-test")
	before := testutil.ToFloat64(c)

	RecordCacheCount("batch_get", "metrics-test", 3)
	RecordCacheCount("batch_get", "metrics-test", 0)
	RecordCache("batch_get", "metrics-test")

	assert.Equal(t, before+4, testutil.ToFloat64(c))
}

func TestRecordFullText(t *testing.T) {
	cached := FullTextOutcomesTotal.WithLabelValues("exhausted", "true")
	fresh := FullTextOutcomesTotal.WithLabelValues("exhausted", "false")
	beforeCached, beforeFresh := testutil.ToFloat64(cached), testutil.ToFloat64(fresh)

	RecordFullText("exhausted", true)

	assert.Equal(t, beforeCached+1, testutil.ToFloat64(cached))
	assert.Equal(t, beforeFresh, testutil.ToFloat64(fresh))
}

func TestWriteTextfile(t *testing.T) {
	RecordAdapterCall("search", "textfile-test", "ok", 0.1)
	RecordFullText("SUCCEEDED", true)

	path := filepath.Join(t.TempDir(), "discovery.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	got := string(data)
	assert.Contains(t, got, `discovery_adapter_calls_total{adapter="textfile-test",stage="search",status="ok"}`)
	assert.Contains(t, got, `discovery_adapter_duration_seconds_count{adapter="textfile-test",stage="search"}`)
	assert.Contains(t, got, `discovery_fulltext_outcomes_total{cached="true",state="SUCCEEDED"}`)
}
