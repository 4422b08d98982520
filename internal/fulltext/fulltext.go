// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fulltext acquires the full text of publications by walking an
// ordered list of sources until one of them yields a document. Outcomes are
// cached per publication, so a paper that was found or given up on is not
// fetched again until its entry expires.
package fulltext

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pdiddy/discovery-engine/internal/cache"
	"github.com/pdiddy/discovery-engine/internal/logging"
	"github.com/pdiddy/discovery-engine/internal/metrics"
	"github.com/pdiddy/discovery-engine/internal/source"
	"github.com/pdiddy/discovery-engine/pkg/types"
)

const reasonCancelled = "cancelled"

// Adapter retrieves the full text of a publication from one source. An
// adapter with nothing to try for pub returns source.ErrNoFullText.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, pub types.Publication) (*Content, error)
	Close() error
}

// Manager runs the full-text waterfall.
type Manager struct {
	// Adapters are tried in slice order.
	Adapters []Adapter
	Store    cache.Store
	Content  ContentStore
	Config   types.FullTextConfig
	TTL      types.CacheTTLConfig
	Logger   *slog.Logger
	Now      func() time.Time
}

// New builds a Manager. store may be nil to disable caching.
func New(adapters []Adapter, store cache.Store, content ContentStore, cfg types.Config, logger *slog.Logger) *Manager {
	return &Manager{
		Adapters: adapters,
		Store:    store,
		Content:  content,
		Config:   cfg.FullText,
		TTL:      cfg.Cache.TTL,
		Logger:   logger,
		Now:      time.Now,
	}
}

// CacheKey returns the cache key of a publication's outcome.
func CacheKey(canonicalID string) string {
	return cache.Key("fulltext", canonicalID)
}

// Acquire returns the full-text outcome of pub. A cached terminal outcome
// is returned without network I/O. Otherwise the adapters are tried one at
// a time until one succeeds; the outcome is cached unless the walk was
// interrupted by ctx. Acquire never fails: problems are reported in the
// outcome's attempts and failure reason.
func (m *Manager) Acquire(ctx context.Context, pub types.Publication) types.FullTextOutcome {
	id := types.NewPublicationRecord(pub).CanonicalID()
	log := logging.OrDefault(m.Logger).With(slog.String("publication", id))

	if out, ok := m.cached(ctx, id, log); ok {
		metrics.RecordFullText(string(out.State), true)
		return out
	}

	out := types.FullTextOutcome{PublicationID: id, State: types.FullTextTrying}
	var reasons []string

	for _, a := range m.Adapters {
		if ctx.Err() != nil {
			return m.cancelled(out, log)
		}

		attempt, content := m.try(ctx, a, pub, log)
		if attempt.Status == types.AttemptSuccess {
			ref, err := m.save(id, pub, a.Name(), content)
			if err != nil {
				attempt.Status = types.AttemptError
				attempt.Detail = err.Error()
				log.Error("storing document failed", slog.String("adapter", a.Name()), slog.Any("error", err))
			} else {
				out.Attempts = append(out.Attempts, attempt)
				out.State = types.FullTextSucceeded
				out.WinningSource = a.Name()
				out.ContentRef = ref
				out.ContentType = content.ContentType
				out.CompletedAt = m.now()
				m.store(ctx, out, m.succeededTTL(), log)
				metrics.RecordFullText(string(out.State), false)
				log.Info("full text acquired", slog.String("adapter", a.Name()), slog.String("ref", ref))
				return out
			}
		}

		out.Attempts = append(out.Attempts, attempt)
		if ctx.Err() != nil {
			return m.cancelled(out, log)
		}
		reasons = append(reasons, fmt.Sprintf("%s: %s", attempt.Source, attempt.Detail))
	}

	out.State = types.FullTextExhausted
	out.CompletedAt = m.now()
	out.FailureReason = "no source had full text"
	if len(reasons) > 0 {
		out.FailureReason = strings.Join(reasons, "; ")
	}
	m.store(ctx, out, m.exhaustedTTL(), log)
	metrics.RecordFullText(string(out.State), false)
	log.Info("full text exhausted", slog.Int("attempts", len(out.Attempts)))
	return out
}

// try runs one adapter under its own timeout and classifies the result.
func (m *Manager) try(ctx context.Context, a Adapter, pub types.Publication, log *slog.Logger) (types.Attempt, *Content) {
	actx, cancel := context.WithTimeout(ctx, m.timeoutFor(a.Name()))
	defer cancel()

	start := time.Now()
	content, err := a.Fetch(actx, pub)
	if err == nil && (content == nil || len(content.Body) == 0) {
		err = fmt.Errorf("%s: empty document: %w", a.Name(), source.ErrNoFullText)
	}
	err = source.Classify(ctx, a.Name(), "fulltext", err)
	elapsed := time.Since(start)

	attempt := types.Attempt{Source: a.Name(), Duration: elapsed}
	status := source.StatusOf(err)
	switch status {
	case source.StatusOK:
		attempt.Status = types.AttemptSuccess
	case source.StatusMiss:
		attempt.Status = types.AttemptMiss
	case source.StatusTimeout:
		attempt.Status = types.AttemptTimeout
	default:
		attempt.Status = types.AttemptError
	}
	if err != nil {
		attempt.Detail = err.Error()
		log.Debug("full-text source failed",
			slog.String("adapter", a.Name()),
			slog.String("op", "fulltext"),
			slog.String("status", string(status)),
			slog.Any("error", err))
	}
	metrics.RecordAdapterCall(string(source.KindFullText), a.Name(), string(status), elapsed.Seconds())
	return attempt, content
}

func (m *Manager) save(id string, pub types.Publication, name string, c *Content) (string, error) {
	if m.Content == nil {
		return c.URL, nil
	}
	return m.Content.Save(id, pub, name, c)
}

// cancelled finishes an interrupted walk. The outcome is not cached so the
// next request starts over.
func (m *Manager) cancelled(out types.FullTextOutcome, log *slog.Logger) types.FullTextOutcome {
	out.State = types.FullTextExhausted
	out.FailureReason = reasonCancelled
	out.CompletedAt = m.now()
	metrics.RecordFullText(string(out.State), false)
	log.Warn("full-text acquisition cancelled", slog.Int("attempts", len(out.Attempts)))
	return out
}

func (m *Manager) cached(ctx context.Context, id string, log *slog.Logger) (types.FullTextOutcome, bool) {
	var out types.FullTextOutcome
	if m.Store == nil || ctx.Err() != nil {
		return out, false
	}
	data, found, err := m.Store.Get(ctx, CacheKey(id))
	if err != nil {
		metrics.RecordCache("get", "error")
		log.Warn("cache unavailable, acquiring directly", slog.Any("error", err))
		return out, false
	}
	if !found {
		metrics.RecordCache("get", "miss")
		return out, false
	}
	if err := cache.Unmarshal(data, &out); err != nil || !out.State.Terminal() {
		log.Warn("discarding unusable cached outcome", slog.String("key", CacheKey(id)))
		return types.FullTextOutcome{}, false
	}
	metrics.RecordCache("get", "hit")
	out.Cached = true
	return out, true
}

func (m *Manager) store(ctx context.Context, out types.FullTextOutcome, ttl time.Duration, log *slog.Logger) {
	if m.Store == nil {
		return
	}
	data, err := cache.Marshal(out)
	if err != nil {
		return
	}
	if err := m.Store.Set(ctx, CacheKey(out.PublicationID), data, ttl); err != nil {
		metrics.RecordCache("set", "error")
		log.Warn("cache write failed", slog.Any("error", err))
		return
	}
	metrics.RecordCache("set", "ok")
}

func (m *Manager) timeoutFor(name string) time.Duration {
	if d := m.Config.TimeoutFor(name); d > 0 {
		return d
	}
	return 60 * time.Second
}

func (m *Manager) succeededTTL() time.Duration {
	if m.TTL.FullTextSucceeded > 0 {
		return m.TTL.FullTextSucceeded
	}
	return types.DefaultCacheTTL().FullTextSucceeded
}

func (m *Manager) exhaustedTTL() time.Duration {
	if m.TTL.FullTextExhausted > 0 {
		return m.TTL.FullTextExhausted
	}
	return types.DefaultCacheTTL().FullTextExhausted
}

func (m *Manager) now() time.Time {
	if m.Now == nil {
		return time.Now().UTC()
	}
	return m.Now().UTC()
}

// AcquireBatch acquires every publication with at most maxConcurrent
// waterfalls in flight. Outcomes are returned in input order. A
// non-positive maxConcurrent uses the configured limit.
func (m *Manager) AcquireBatch(ctx context.Context, pubs []types.Publication, maxConcurrent int) []types.FullTextOutcome {
	if maxConcurrent <= 0 {
		maxConcurrent = m.Config.MaxConcurrent
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	outcomes := make([]types.FullTextOutcome, len(pubs))
	sem := semaphore.NewWeighted(int64(maxConcurrent))
	var wg sync.WaitGroup
	for i, pub := range pubs {
		if err := sem.Acquire(ctx, 1); err != nil {
			id := types.NewPublicationRecord(pub).CanonicalID()
			outcomes[i] = m.cancelled(types.FullTextOutcome{PublicationID: id}, logging.OrDefault(m.Logger))
			continue
		}
		wg.Add(1)
		go func(i int, pub types.Publication) {
			defer wg.Done()
			defer sem.Release(1)
			outcomes[i] = m.Acquire(ctx, pub)
		}(i, pub)
	}
	wg.Wait()
	return outcomes
}

// Close releases every adapter.
func (m *Manager) Close() error {
	var errs []error
	for _, a := range m.Adapters {
		if err := a.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", a.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// BatchSummary counts the outcomes of a batch.
type BatchSummary struct {
	Succeeded int
	Exhausted int
	Cancelled int
	Cached    int
}

// Total returns the number of publications processed.
func (s BatchSummary) Total() int {
	return s.Succeeded + s.Exhausted + s.Cancelled
}

// HasFailures reports whether any publication ended without full text.
func (s BatchSummary) HasFailures() bool {
	return s.Exhausted+s.Cancelled > 0
}

// Summarize counts outcomes by state. Cancelled walks are counted apart
// from exhausted ones.
func Summarize(outcomes []types.FullTextOutcome) BatchSummary {
	var s BatchSummary
	for _, o := range outcomes {
		switch {
		case o.Succeeded():
			s.Succeeded++
		case o.FailureReason == reasonCancelled:
			s.Cancelled++
		default:
			s.Exhausted++
		}
		if o.Cached {
			s.Cached++
		}
	}
	return s
}
