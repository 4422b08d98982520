// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/discovery-engine/pkg/types"
)

// fakeClock is advanced explicitly by tests.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time      { return c.t }
func (c *fakeClock) add(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

type backend struct {
	name string
	open func(t *testing.T) (Store, func(time.Duration))
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T) (Store, func(time.Duration)) {
			m, err := NewMemory(100)
			require.NoError(t, err)
			clk := newFakeClock()
			m.Now = clk.now
			return m, clk.add
		}},
		{"redis", func(t *testing.T) (Store, func(time.Duration)) {
			mr := miniredis.RunT(t)
			r := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
			return r, mr.FastForward
		}},
		{"sqlite", func(t *testing.T) (Store, func(time.Duration)) {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "cache", "test.db"))
			require.NoError(t, err)
			clk := newFakeClock()
			s.Now = clk.now
			return s, clk.add
		}},
	}
}

func TestStoreRoundTripAndExpiry(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s, advance := b.open(t)
			defer s.Close()
			ctx := context.Background()

			require.NoError(t, s.Set(ctx, "search:dataset:geo:abc", []byte(`[1]`), time.Hour))

			v, ok, err := s.Get(ctx, "search:dataset:geo:abc")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []byte(`[1]`), v)

			advance(59 * time.Minute)
			_, ok, err = s.Get(ctx, "search:dataset:geo:abc")
			require.NoError(t, err)
			assert.True(t, ok, "entry should survive before its TTL")

			advance(2 * time.Minute)
			_, ok, err = s.Get(ctx, "search:dataset:geo:abc")
			require.NoError(t, err)
			assert.False(t, ok, "entry should be gone after its TTL")
		})
	}
}

func TestStoreReplacesWholesale(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s, _ := b.open(t)
			defer s.Close()
			ctx := context.Background()

			require.NoError(t, s.Set(ctx, "k", []byte(`{"a":1,"b":2}`), time.Hour))
			require.NoError(t, s.Set(ctx, "k", []byte(`{"a":3}`), time.Hour))

			v, ok, err := s.Get(ctx, "k")
			require.NoError(t, err)
			require.True(t, ok)
			assert.JSONEq(t, `{"a":3}`, string(v))
		})
	}
}

func TestStoreBatch(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s, advance := b.open(t)
			defer s.Close()
			ctx := context.Background()

			require.NoError(t, s.BatchSet(ctx, map[string][]byte{
				"search:citation:pubmed:q1":    []byte("p"),
				"search:citation:europepmc:q1": []byte("e"),
			}, time.Hour))
			require.NoError(t, s.Set(ctx, "search:dataset:geo:q1", []byte("g"), 21*24*time.Hour))

			got, err := s.BatchGet(ctx, []string{
				"search:citation:pubmed:q1",
				"search:citation:europepmc:q1",
				"search:dataset:geo:q1",
				"search:dataset:arrayexpress:q1",
			})
			require.NoError(t, err)
			assert.Len(t, got, 3)
			assert.NotContains(t, got, "search:dataset:arrayexpress:q1")
			assert.Equal(t, []byte("e"), got["search:citation:europepmc:q1"])

			advance(2 * time.Hour)
			got, err = s.BatchGet(ctx, []string{"search:citation:pubmed:q1", "search:dataset:geo:q1"})
			require.NoError(t, err)
			assert.Equal(t, map[string][]byte{"search:dataset:geo:q1": []byte("g")}, got)

			empty, err := s.BatchGet(ctx, nil)
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestStoreInvalidate(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s, _ := b.open(t)
			defer s.Close()
			ctx := context.Background()

			require.NoError(t, s.BatchSet(ctx, map[string][]byte{
				"fulltext:doi:10.1038/nature12373": []byte("1"),
				"fulltext:pmid:123":                []byte("2"),
				"search:citation:pubmed:q":         []byte("3"),
			}, time.Hour))

			n, err := s.Invalidate(ctx, "fulltext:*")
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			_, ok, err := s.Get(ctx, "fulltext:doi:10.1038/nature12373")
			require.NoError(t, err)
			assert.False(t, ok)
			_, ok, err = s.Get(ctx, "search:citation:pubmed:q")
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, s.Delete(ctx, "search:citation:pubmed:q"))
			_, ok, err = s.Get(ctx, "search:citation:pubmed:q")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStoreInvalidateCharacterClasses(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s, _ := b.open(t)
			defer s.Close()
			ctx := context.Background()

			require.NoError(t, s.BatchSet(ctx, map[string][]byte{
				"fulltext:pmid:1":      []byte("1"),
				"fulltext:pmid:2":      []byte("2"),
				"fulltext:pmid:3":      []byte("3"),
				"fulltext:pmcid:PMC1":  []byte("4"),
				"search:dataset:geo:q": []byte("5"),
			}, time.Hour))

			n, err := s.Invalidate(ctx, "fulltext:pmid:[12]")
			require.NoError(t, err)
			assert.Equal(t, 2, n, "listed class")

			n, err = s.Invalidate(ctx, "fulltext:pm[^i]*")
			require.NoError(t, err)
			assert.Equal(t, 1, n, "negated class")

			n, err = s.Invalidate(ctx, "fulltext:pmid:[0-9]")
			require.NoError(t, err)
			assert.Equal(t, 1, n, "range")

			_, ok, err := s.Get(ctx, "search:dataset:geo:q")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestSQLitePurge(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "c.db"))
	require.NoError(t, err)
	defer s.Close()
	clk := newFakeClock()
	s.Now = clk.now
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "short", []byte("x"), time.Minute))
	require.NoError(t, s.Set(ctx, "long", []byte("y"), time.Hour))
	require.NoError(t, s.Set(ctx, "forever", []byte("z"), 0))
	clk.add(10 * time.Minute)

	n, err := s.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "fulltext:pmid:1", []byte(`{"state":"succeeded"}`), time.Hour))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	v, ok, err := s.Get(ctx, "fulltext:pmid:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"state":"succeeded"}`, string(v))
}

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	m, err := NewMemory(2)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, m.Set(ctx, "b", []byte("2"), 0))
	_, _, _ = m.Get(ctx, "a")
	require.NoError(t, m.Set(ctx, "c", []byte("3"), 0))

	_, ok, _ := m.Get(ctx, "b")
	assert.False(t, ok)
	_, ok, _ = m.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, 2, m.Len())
}

func TestMemoryCopiesValues(t *testing.T) {
	m, err := NewMemory(10)
	require.NoError(t, err)
	ctx := context.Background()

	buf := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", buf, 0))
	buf[0] = 'X'

	v, _, _ := m.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), v)
}

func TestRedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}))
	defer r.Close()
	mr.Close()

	_, _, err := r.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = r.BatchGet(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, types.CacheConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)
	s.Close()

	mr := miniredis.RunT(t)
	s, err = Open(ctx, types.CacheConfig{Backend: "redis", RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &Redis{}, s)
	s.Close()

	s, err = Open(ctx, types.CacheConfig{Backend: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	s.Close()

	_, err = Open(ctx, types.CacheConfig{Backend: "memcached"})
	assert.Error(t, err)
	_, err = Open(ctx, types.CacheConfig{Backend: "redis"})
	assert.Error(t, err)
}

func TestMarshalRoundTrip(t *testing.T) {
	out := types.FullTextOutcome{PublicationID: "pmid:1", State: types.FullTextSucceeded, WinningSource: "pmc"}
	data, err := Marshal(out)
	require.NoError(t, err)

	var got types.FullTextOutcome
	require.NoError(t, Unmarshal(data, &got))
	assert.Equal(t, out.WinningSource, got.WinningSource)
	assert.Equal(t, types.FullTextSucceeded, got.State)

	assert.Error(t, Unmarshal([]byte("{"), &got))
}

func TestEntry(t *testing.T) {
	e := Entry{Namespace: "fulltext", Key: Key("fulltext", "pmid:1"), ExpiresAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, "fulltext:pmid:1", e.Key)
	assert.True(t, e.Expired(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, e.Expired(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)))
	assert.False(t, Entry{}.Expired(time.Now()))
}

func TestGlobRegexp(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"fulltext:*", "fulltext:doi:10.1038/x", true},
		{"fulltext:pmid:?", "fulltext:pmid:12", false},
		{"fulltext:pmid:[a-c]", "fulltext:pmid:b", true},
		{"fulltext:pmid:[^a-c]", "fulltext:pmid:b", false},
		{"fulltext:[]x]", "fulltext:]", true},
		{"fulltext:[-]", "fulltext:-", true},
		{`fulltext:\*`, "fulltext:*", true},
		{`fulltext:\*`, "fulltext:x", false},
		{"fulltext:[", "fulltext:[", true},
		{"doi:10.1038/x.y", "doi:10.1038/xzy", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.key, func(t *testing.T) {
			re, err := globRegexp(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, re.MatchString(tt.key))
		})
	}
}
