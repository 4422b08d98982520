// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMemoryEntries = 10000

// Memory is a bounded in-process LRU with per-entry expiry. One mutex
// guards the LRU so batch operations are atomic.
type Memory struct {
	mu  sync.Mutex
	lru *lru.Cache[string, Entry]

	// Now is the clock used for expiry; tests replace it.
	Now func() time.Time
}

// NewMemory creates a memory store holding at most size entries.
func NewMemory(size int) (*Memory, error) {
	if size <= 0 {
		size = defaultMemoryEntries
	}
	c, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, fmt.Errorf("creating lru: %w", err)
	}
	return &Memory{lru: c, Now: time.Now}, nil
}

func (m *Memory) getLocked(key string) ([]byte, bool) {
	e, ok := m.lru.Get(key)
	if !ok {
		return nil, false
	}
	if e.Expired(m.Now()) {
		m.lru.Remove(key)
		return nil, false
	}
	return e.Value, true
}

func (m *Memory) setLocked(key string, value []byte, ttl time.Duration) {
	var exp time.Time
	if ttl > 0 {
		exp = m.Now().Add(ttl)
	}
	namespace, _, _ := strings.Cut(key, ":")
	// Copy so later mutation of the caller's slice cannot leak in.
	m.lru.Add(key, Entry{Namespace: namespace, Key: key, Value: append([]byte(nil), value...), ExpiresAt: exp})
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.getLocked(key)
	return v, ok, nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(key, value, ttl)
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Remove(key)
	return nil
}

func (m *Memory) BatchGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := m.getLocked(k); ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *Memory) BatchSet(ctx context.Context, entries map[string][]byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range entries {
		m.setLocked(k, v, ttl)
	}
	return nil
}

func (m *Memory) Invalidate(ctx context.Context, pattern string) (int, error) {
	re, err := globRegexp(pattern)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, k := range m.lru.Keys() {
		if re.MatchString(k) {
			m.lru.Remove(k)
			n++
		}
	}
	return n, nil
}

// Purge drops expired entries.
func (m *Memory) Purge(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.Now()
	n := 0
	for _, k := range m.lru.Keys() {
		if e, ok := m.lru.Peek(k); ok && e.Expired(now) {
			m.lru.Remove(k)
			n++
		}
	}
	return n, nil
}

// Len reports the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Purge()
	return nil
}

// globRegexp compiles a glob into an anchored regexp. It accepts the syntax
// shared by Redis SCAN MATCH and SQLite GLOB: * and ?, plus [abc], [a-z] and
// [^abc] classes. Unlike path.Match, * also crosses '/', which DOI keys
// contain. A backslash escapes the next character as in Redis; SQLite
// treats it literally, so escaped patterns are not portable.
func globRegexp(pattern string) (*regexp.Regexp, error) {
	rs := []rune(pattern)
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(rs); i++ {
		switch r := rs[i]; r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '\\':
			if i+1 < len(rs) {
				i++
			}
			b.WriteString(regexp.QuoteMeta(string(rs[i])))
		case '[':
			end := classEnd(rs, i)
			if end < 0 {
				b.WriteString(regexp.QuoteMeta("["))
				continue
			}
			writeClass(&b, rs[i+1:end])
			i = end
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}

// classEnd returns the index of the ']' closing the class opened at rs[open],
// or -1. A ']' directly after the opening bracket (or its negation) is a
// literal member.
func classEnd(rs []rune, open int) int {
	j := open + 1
	if j < len(rs) && rs[j] == '^' {
		j++
	}
	if j < len(rs) && rs[j] == ']' {
		j++
	}
	for ; j < len(rs); j++ {
		if rs[j] == ']' {
			return j
		}
	}
	return -1
}

func writeClass(b *strings.Builder, body []rune) {
	b.WriteString("[")
	if len(body) > 0 && body[0] == '^' {
		b.WriteString("^")
		body = body[1:]
	}
	for i, r := range body {
		switch {
		case r == '-' && i > 0 && i < len(body)-1:
			b.WriteRune(r)
		case r == '\\' || r == ']' || r == '[' || r == '^' || r == '-':
			b.WriteRune('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteString("]")
}
