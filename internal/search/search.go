// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search fans a query out to dataset repositories and citation
// engines, merges what comes back, and returns deduplicated, ranked records.
// Adapter results are cached per adapter and query.
package search

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/discovery-engine/internal/cache"
	"github.com/pdiddy/discovery-engine/internal/dedup"
	"github.com/pdiddy/discovery-engine/internal/logging"
	"github.com/pdiddy/discovery-engine/internal/metrics"
	"github.com/pdiddy/discovery-engine/internal/rank"
	"github.com/pdiddy/discovery-engine/internal/source"
	"github.com/pdiddy/discovery-engine/pkg/types"
)

// Adapter searches one external provider. Implementations own their HTTP
// client, credentials, and wire format and return canonical records.
type Adapter interface {
	Name() string
	Kind() source.Kind
	Search(ctx context.Context, q Query) ([]types.Record, error)
	Close() error
}

// Query is an already-expanded query string plus structured filters.
type Query struct {
	Text    string        `json:"text" yaml:"text"`
	Filters types.Filters `json:"filters" yaml:"filters"`

	// Limit caps the ranked output; zero uses the configured MaxResults.
	Limit int `json:"limit,omitempty" yaml:"limit,omitempty"`
}

// IsEmpty reports whether the query contains no searchable terms.
func (q Query) IsEmpty() bool {
	return len(rank.Terms(q.Text)) == 0
}

// Normalized returns the query text lower-cased with collapsed whitespace.
func (q Query) Normalized() string {
	return strings.Join(strings.Fields(strings.ToLower(q.Text)), " ")
}

// SourceReport is the per-adapter diagnostic of one search.
type SourceReport struct {
	Adapter  string        `json:"adapter"`
	Kind     source.Kind   `json:"kind"`
	Status   source.Status `json:"status"`
	Count    int           `json:"count"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Output is the result of one search.
type Output struct {
	QueryID     string               `json:"query_id"`
	Results     []types.RankedRecord `json:"results"`
	DupsRemoved int                  `json:"duplicates_removed"`
	Sources     []SourceReport       `json:"sources"`
	CacheHits   int                  `json:"cache_hits"`
	Fetched     int                  `json:"fetched"`
}

// Orchestrator runs searches across adapters.
type Orchestrator struct {
	Adapters []Adapter
	Store    cache.Store
	Config   types.SearchConfig
	TTL      types.CacheTTLConfig
	Dedup    *dedup.Deduplicator
	Ranker   *rank.Ranker
	Logger   *slog.Logger
}

// New builds an Orchestrator from the full configuration. store may be nil
// to disable caching.
func New(adapters []Adapter, store cache.Store, cfg types.Config, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		Adapters: adapters,
		Store:    store,
		Config:   cfg.Search,
		TTL:      cfg.Cache.TTL,
		Dedup:    dedup.New(cfg.Dedup),
		Ranker:   rank.New(cfg.Ranking),
		Logger:   logger,
	}
}

// CacheKey returns the cache key of an adapter's results for q:
// search:<kind>:<adapter>:<sha256 of normalized query and filters>.
func CacheKey(kind source.Kind, adapter string, q Query) string {
	f := q.Filters
	var b strings.Builder
	b.WriteString(q.Normalized())
	b.WriteString("|organism=" + strings.ToLower(strings.TrimSpace(f.Organism)))
	b.WriteString("|min_samples=" + strconv.Itoa(f.MinSampleCount))
	if !f.DateFrom.IsZero() {
		b.WriteString("|from=" + f.DateFrom.Format(dateFmt))
	}
	if !f.DateTo.IsZero() {
		b.WriteString("|to=" + f.DateTo.Format(dateFmt))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return cache.Key("search", fmt.Sprintf("%s:%s:%x", kind, adapter, sum))
}

type adapterResult struct {
	idx      int
	records  []types.Record
	err      error
	duration time.Duration
}

// Search runs q against every adapter. Cached adapter results are served
// from the store in one round trip; the rest are fetched concurrently, each
// under its own timeout, and joined under the query timeout. Adapter
// failures are logged and contribute nothing. When no adapter succeeded and
// nothing came from the cache, the populated output is returned together
// with source.ErrAllSourcesFailed.
func (o *Orchestrator) Search(ctx context.Context, q Query) (Output, error) {
	if q.IsEmpty() {
		return Output{}, fmt.Errorf("query is empty: provide a search string")
	}
	if len(o.Adapters) == 0 {
		return Output{}, fmt.Errorf("no search adapters configured")
	}

	out := Output{QueryID: uuid.NewString()}
	log := logging.OrDefault(o.Logger).With(slog.String("query_id", out.QueryID))

	keys := make([]string, len(o.Adapters))
	for i, a := range o.Adapters {
		keys[i] = CacheKey(a.Kind(), a.Name(), q)
	}
	cached := o.batchGet(ctx, keys, log)

	reports := make([]SourceReport, len(o.Adapters))
	// Indexed by adapter: records merge in configured order, never in
	// arrival order.
	perAdapter := make([][]types.Record, len(o.Adapters))
	var pending []int
	for i, a := range o.Adapters {
		reports[i] = SourceReport{Adapter: a.Name(), Kind: a.Kind()}
		if data, ok := cached[keys[i]]; ok {
			var recs []types.Record
			if err := cache.Unmarshal(data, &recs); err == nil {
				reports[i].Status = source.StatusCached
				reports[i].Count = len(recs)
				out.CacheHits++
				perAdapter[i] = recs
				continue
			}
			log.Warn("discarding undecodable cache entry", slog.String("key", keys[i]))
		}
		pending = append(pending, i)
	}

	fresh := o.fetch(ctx, q, pending, reports, log)

	byTTL := make(map[time.Duration]map[string][]byte)
	for _, r := range fresh {
		perAdapter[r.idx] = r.records
		out.Fetched++
		data, err := cache.Marshal(r.records)
		if err != nil {
			continue
		}
		ttl := o.ttlFor(o.Adapters[r.idx].Kind())
		if byTTL[ttl] == nil {
			byTTL[ttl] = make(map[string][]byte)
		}
		byTTL[ttl][keys[r.idx]] = data
	}
	o.batchSet(ctx, byTTL, log)

	filtered := []types.Record{}
	for _, recs := range perAdapter {
		for _, r := range recs {
			if q.Filters.Match(r) {
				filtered = append(filtered, r)
			}
		}
	}

	deduped := o.deduplicator().Dedupe(filtered)
	ranked := o.ranker().Rank(deduped.Records, rank.Terms(q.Text))

	limit := q.Limit
	if limit <= 0 {
		limit = o.Config.MaxResults
	}
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out.Results = ranked
	out.DupsRemoved = deduped.Removed
	out.Sources = reports
	metrics.SearchResults.Observe(float64(len(ranked)))

	if out.Fetched == 0 && out.CacheHits == 0 {
		return out, fmt.Errorf("search %q: %w", q.Text, source.ErrAllSourcesFailed)
	}
	return out, nil
}

// fetch runs the pending adapters concurrently and returns the results that
// arrived successfully before the query deadline. reports is updated in
// place for every pending adapter.
func (o *Orchestrator) fetch(ctx context.Context, q Query, pending []int, reports []SourceReport, log *slog.Logger) []adapterResult {
	if len(pending) == 0 {
		return nil
	}

	qctx, cancel := o.queryContext(ctx)
	defer cancel()

	// Buffered so stragglers finishing after the deadline never block.
	ch := make(chan adapterResult, len(pending))
	for _, idx := range pending {
		go func(idx int) {
			a := o.Adapters[idx]
			actx, acancel := context.WithTimeout(qctx, o.timeoutFor(a.Name()))
			defer acancel()

			start := time.Now()
			recs, err := a.Search(actx, q)
			ch <- adapterResult{
				idx:      idx,
				records:  recs,
				err:      source.Classify(qctx, a.Name(), "search", err),
				duration: time.Since(start),
			}
		}(idx)
	}

	done := make(map[int]bool, len(pending))
	var fresh []adapterResult
collect:
	for len(done) < len(pending) {
		select {
		case r := <-ch:
			done[r.idx] = true
			rep := &reports[r.idx]
			rep.Duration = r.duration
			rep.Status = source.StatusOf(r.err)
			metrics.RecordAdapterCall("search", rep.Adapter, string(rep.Status), r.duration.Seconds())
			if r.err != nil {
				rep.Error = r.err.Error()
				log.Warn("adapter failed",
					slog.String("adapter", rep.Adapter),
					slog.String("op", "search"),
					slog.String("status", string(rep.Status)),
					slog.Any("error", r.err))
				continue
			}
			rep.Count = len(r.records)
			fresh = append(fresh, r)
		case <-qctx.Done():
			break collect
		}
	}

	for _, idx := range pending {
		if done[idx] {
			continue
		}
		rep := &reports[idx]
		rep.Status = source.StatusCancelled
		rep.Error = "abandoned at query deadline"
		metrics.RecordAdapterCall("search", rep.Adapter, string(rep.Status), 0)
		log.Warn("adapter abandoned",
			slog.String("adapter", rep.Adapter),
			slog.String("op", "search"),
			slog.String("status", string(rep.Status)))
	}
	return fresh
}

func (o *Orchestrator) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.Config.QueryTimeout > 0 {
		return context.WithTimeout(ctx, o.Config.QueryTimeout)
	}
	return context.WithCancel(ctx)
}

func (o *Orchestrator) timeoutFor(name string) time.Duration {
	if d := o.Config.TimeoutFor(name); d > 0 {
		return d
	}
	return 8 * time.Second
}

func (o *Orchestrator) ttlFor(kind source.Kind) time.Duration {
	ttl := o.TTL
	def := types.DefaultCacheTTL()
	if kind == source.KindDataset {
		if ttl.DatasetSearch > 0 {
			return ttl.DatasetSearch
		}
		return def.DatasetSearch
	}
	if ttl.CitationSearch > 0 {
		return ttl.CitationSearch
	}
	return def.CitationSearch
}

// batchGet treats any cache failure as a full miss.
func (o *Orchestrator) batchGet(ctx context.Context, keys []string, log *slog.Logger) map[string][]byte {
	if o.Store == nil {
		return nil
	}
	got, err := o.Store.BatchGet(ctx, keys)
	if err != nil {
		metrics.RecordCache("batch_get", "error")
		log.Warn("cache unavailable, fetching directly", slog.Any("error", err))
		return nil
	}
	metrics.RecordCacheCount("batch_get", "hit", len(got))
	metrics.RecordCacheCount("batch_get", "miss", len(keys)-len(got))
	return got
}

func (o *Orchestrator) batchSet(ctx context.Context, byTTL map[time.Duration]map[string][]byte, log *slog.Logger) {
	if o.Store == nil {
		return
	}
	for ttl, entries := range byTTL {
		if err := o.Store.BatchSet(ctx, entries, ttl); err != nil {
			metrics.RecordCache("batch_set", "error")
			log.Warn("cache write failed", slog.Any("error", err))
			continue
		}
		metrics.RecordCache("batch_set", "ok")
	}
}

func (o *Orchestrator) deduplicator() *dedup.Deduplicator {
	if o.Dedup == nil {
		return dedup.New(types.DefaultDedupConfig())
	}
	return o.Dedup
}

func (o *Orchestrator) ranker() *rank.Ranker {
	if o.Ranker == nil {
		return rank.New(types.DefaultRankingConfig())
	}
	return o.Ranker
}

// Close releases every adapter.
func (o *Orchestrator) Close() error {
	var errs []error
	for _, a := range o.Adapters {
		if err := a.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", a.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// FormatTable writes results as a human-readable table to w.
func FormatTable(out Output, w io.Writer) {
	if len(out.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		formatSources(out, w)
		return
	}

	fmt.Fprintf(w, "%-4s  %-16s  %-56s  %-20s  %-4s  %-6s  %s\n",
		"Rank", "ID", "Title", "Authors", "Year", "Score", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 126))

	for i, r := range out.Results {
		rec := r.Record
		id, authors, year := "", "", ""
		switch {
		case rec.Publication != nil:
			id = rec.Publication.PrimaryID()
			authors = formatAuthors(rec.Publication.Authors)
		case rec.Dataset != nil:
			id = rec.Dataset.Accession
			authors = truncate(rec.Dataset.Organism, 20)
		}
		if d, ok := rec.Date(); ok {
			year = strconv.Itoa(d.Year())
		}
		fmt.Fprintf(w, "%-4d  %-16s  %-56s  %-20s  %-4s  %-6.2f  %s\n",
			i+1, truncate(id, 16), truncate(rec.Title(), 56), authors, year,
			r.CompositeScore, strings.Join(provenance(rec), ","))
	}

	fmt.Fprintf(w, "\n%d results", len(out.Results))
	if out.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", out.DupsRemoved)
	}
	fmt.Fprintln(w)
	formatSources(out, w)
}

func formatSources(out Output, w io.Writer) {
	for _, s := range out.Sources {
		if s.Status != source.StatusOK && s.Status != source.StatusCached {
			fmt.Fprintf(w, "warning: source %s %s: %s\n", s.Adapter, s.Status, s.Error)
		}
	}
}

// FormatJSON writes the output as indented JSON to w.
func FormatJSON(out Output, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func provenance(r types.Record) []string {
	switch {
	case r.Publication != nil && len(r.Publication.Sources) > 0:
		return r.Publication.Sources
	case r.Dataset != nil && len(r.Dataset.Sources) > 0:
		return r.Dataset.Sources
	default:
		return []string{r.Source()}
	}
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
