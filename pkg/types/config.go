// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP client timeout, an upper bound on top of the
	// per-adapter context deadline.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "discovery-engine/0.1 (mailto:ops@example.org)").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// RetryConfig parameterizes the retry policy shared by every adapter call.
type RetryConfig struct {
	// MaxAttempts counts the first try; 1 disables retries.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	BaseDelay  time.Duration `json:"base_delay" yaml:"base_delay" mapstructure:"base_delay"`
	MaxDelay   time.Duration `json:"max_delay" yaml:"max_delay" mapstructure:"max_delay"`
	Multiplier float64       `json:"multiplier" yaml:"multiplier" mapstructure:"multiplier"`
}

// BreakerConfig configures the per-adapter circuit breaker.
type BreakerConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32 `json:"max_requests" yaml:"max_requests" mapstructure:"max_requests"`

	// Interval resets the closed-state counts; Timeout is how long the
	// breaker stays open.
	Interval time.Duration `json:"interval" yaml:"interval" mapstructure:"interval"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	MinRequests      uint32  `json:"min_requests" yaml:"min_requests" mapstructure:"min_requests"`
	ReadyToTripRatio float64 `json:"ready_to_trip_ratio" yaml:"ready_to_trip_ratio" mapstructure:"ready_to_trip_ratio"`
}

// AdapterConfig holds per-provider settings. Zero values inherit the stage
// defaults.
type AdapterConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Timeout overrides the stage AdapterTimeout for this provider.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" mapstructure:"timeout"`

	// RatePerSecond and Burst configure the provider rate limiter. Zero
	// disables limiting.
	RatePerSecond float64 `json:"rate_per_second,omitempty" yaml:"rate_per_second,omitempty" mapstructure:"rate_per_second"`
	Burst         int     `json:"burst,omitempty" yaml:"burst,omitempty" mapstructure:"burst"`

	// APIKey and Email are provider credentials; usually filled from secrets.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
	Email  string `json:"email,omitempty" yaml:"email,omitempty" mapstructure:"email"`

	// URLTemplate is used by the institutional proxy adapter; "{doi}" is
	// replaced by the publication DOI.
	URLTemplate string `json:"url_template,omitempty" yaml:"url_template,omitempty" mapstructure:"url_template"`
}

// SearchConfig holds settings for the search orchestrator.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxResults is the default result limit (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// AdapterTimeout bounds each adapter call (default 8s).
	AdapterTimeout time.Duration `json:"adapter_timeout" yaml:"adapter_timeout" mapstructure:"adapter_timeout"`

	// QueryTimeout bounds the whole fan-out; stragglers are cancelled
	// (default 25s).
	QueryTimeout time.Duration `json:"query_timeout" yaml:"query_timeout" mapstructure:"query_timeout"`

	// PerAdapterResults is the number of hits requested from each adapter.
	PerAdapterResults int `json:"per_adapter_results" yaml:"per_adapter_results" mapstructure:"per_adapter_results"`

	Adapters map[string]AdapterConfig `json:"adapters" yaml:"adapters" mapstructure:"adapters"`
}

// TimeoutFor returns the effective timeout of the named adapter.
func (c SearchConfig) TimeoutFor(name string) time.Duration {
	if a, ok := c.Adapters[name]; ok && a.Timeout > 0 {
		return a.Timeout
	}
	return c.AdapterTimeout
}

// FullTextConfig holds settings for the full-text acquisition manager.
type FullTextConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// AdapterTimeout bounds each source in the waterfall (default 60s).
	AdapterTimeout time.Duration `json:"adapter_timeout" yaml:"adapter_timeout" mapstructure:"adapter_timeout"`

	// MaxConcurrent bounds AcquireBatch parallelism (default 4).
	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent" mapstructure:"max_concurrent"`

	// Order is the waterfall priority; unknown names are ignored.
	Order []string `json:"order" yaml:"order" mapstructure:"order"`

	// ContentDir is the base directory for downloaded documents.
	ContentDir string `json:"content_dir" yaml:"content_dir" mapstructure:"content_dir"`

	// MaxDocumentBytes caps a single download (default 64 MiB).
	MaxDocumentBytes int64 `json:"max_document_bytes" yaml:"max_document_bytes" mapstructure:"max_document_bytes"`

	Adapters map[string]AdapterConfig `json:"adapters" yaml:"adapters" mapstructure:"adapters"`
}

// TimeoutFor returns the effective timeout of the named adapter.
func (c FullTextConfig) TimeoutFor(name string) time.Duration {
	if a, ok := c.Adapters[name]; ok && a.Timeout > 0 {
		return a.Timeout
	}
	return c.AdapterTimeout
}

// CacheTTLConfig is the TTL policy by namespace.
type CacheTTLConfig struct {
	DatasetSearch     time.Duration `json:"dataset_search" yaml:"dataset_search" mapstructure:"dataset_search"`
	CitationSearch    time.Duration `json:"citation_search" yaml:"citation_search" mapstructure:"citation_search"`
	FullTextSucceeded time.Duration `json:"fulltext_succeeded" yaml:"fulltext_succeeded" mapstructure:"fulltext_succeeded"`
	FullTextExhausted time.Duration `json:"fulltext_exhausted" yaml:"fulltext_exhausted" mapstructure:"fulltext_exhausted"`
}

// CacheConfig selects and configures the cache backend.
type CacheConfig struct {
	// Backend is one of "memory", "redis", "sqlite". The CLI defaults to sqlite so
	// results survive between runs.
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`

	RedisURL      string `json:"redis_url,omitempty" yaml:"redis_url,omitempty" mapstructure:"redis_url"`
	SQLitePath    string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty" mapstructure:"sqlite_path"`
	MemoryEntries int    `json:"memory_entries,omitempty" yaml:"memory_entries,omitempty" mapstructure:"memory_entries"`

	TTL CacheTTLConfig `json:"ttl" yaml:"ttl" mapstructure:"ttl"`
}

// DedupConfig holds the fuzzy-match thresholds (0-100 scale).
type DedupConfig struct {
	TitleThreshold  float64 `json:"title_threshold" yaml:"title_threshold" mapstructure:"title_threshold"`
	AuthorThreshold float64 `json:"author_threshold" yaml:"author_threshold" mapstructure:"author_threshold"`
	MaxYearGap      int     `json:"max_year_gap" yaml:"max_year_gap" mapstructure:"max_year_gap"`
}

// RankingConfig holds the empirically chosen ranking constants.
type RankingConfig struct {
	// FullMatchBoost multiplies the title score when every query term
	// appears in the title.
	FullMatchBoost float64 `json:"full_match_boost" yaml:"full_match_boost" mapstructure:"full_match_boost"`

	// Citation tiers: linear up to TierOneCap reaching TierOneScore, square
	// root up to TierTwoCap reaching TierTwoScore, then logarithmic adding at
	// most TailWeight over TailDecades orders of magnitude.
	TierOneCap   float64 `json:"tier_one_cap" yaml:"tier_one_cap" mapstructure:"tier_one_cap"`
	TierOneScore float64 `json:"tier_one_score" yaml:"tier_one_score" mapstructure:"tier_one_score"`
	TierTwoCap   float64 `json:"tier_two_cap" yaml:"tier_two_cap" mapstructure:"tier_two_cap"`
	TierTwoScore float64 `json:"tier_two_score" yaml:"tier_two_score" mapstructure:"tier_two_score"`
	TailWeight   float64 `json:"tail_weight" yaml:"tail_weight" mapstructure:"tail_weight"`
	TailDecades  float64 `json:"tail_decades" yaml:"tail_decades" mapstructure:"tail_decades"`

	// Recency: a bonus up to RecencyBonus inside RecencyWindowYears, then
	// exponential decay with DecayYears, never below RecencyFloor.
	RecencyWindowYears float64 `json:"recency_window_years" yaml:"recency_window_years" mapstructure:"recency_window_years"`
	RecencyBonus       float64 `json:"recency_bonus" yaml:"recency_bonus" mapstructure:"recency_bonus"`
	DecayYears         float64 `json:"decay_years" yaml:"decay_years" mapstructure:"decay_years"`
	RecencyFloor       float64 `json:"recency_floor" yaml:"recency_floor" mapstructure:"recency_floor"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "text" or "json".
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups all stage configurations for the pipeline.
type Config struct {
	Log      LogConfig      `json:"log" yaml:"log" mapstructure:"log"`
	Cache    CacheConfig    `json:"cache" yaml:"cache" mapstructure:"cache"`
	Search   SearchConfig   `json:"search" yaml:"search" mapstructure:"search"`
	FullText FullTextConfig `json:"fulltext" yaml:"fulltext" mapstructure:"fulltext"`
	Dedup    DedupConfig    `json:"dedup" yaml:"dedup" mapstructure:"dedup"`
	Ranking  RankingConfig  `json:"ranking" yaml:"ranking" mapstructure:"ranking"`
	Retry    RetryConfig    `json:"retry" yaml:"retry" mapstructure:"retry"`
	Breaker  BreakerConfig  `json:"breaker" yaml:"breaker" mapstructure:"breaker"`
}

const defaultUserAgent = "discovery-engine/0.1"

// DefaultDedupConfig returns the standard fuzzy-match thresholds.
func DefaultDedupConfig() DedupConfig {
	return DedupConfig{TitleThreshold: 85, AuthorThreshold: 80, MaxYearGap: 1}
}

// DefaultRankingConfig returns the standard ranking constants.
func DefaultRankingConfig() RankingConfig {
	return RankingConfig{
		FullMatchBoost:     1.5,
		TierOneCap:         100,
		TierOneScore:       0.60,
		TierTwoCap:         1000,
		TierTwoScore:       0.80,
		TailWeight:         0.20,
		TailDecades:        2.0,
		RecencyWindowYears: 2.0,
		RecencyBonus:       0.3,
		DecayYears:         5.0,
		RecencyFloor:       0.1,
	}
}

// DefaultRetryConfig returns the standard adapter retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Multiplier:  2.0,
	}
}

// DefaultCacheTTL returns the TTL policy by namespace.
func DefaultCacheTTL() CacheTTLConfig {
	return CacheTTLConfig{
		DatasetSearch:     21 * 24 * time.Hour,
		CitationSearch:    time.Hour,
		FullTextSucceeded: 90 * 24 * time.Hour,
		FullTextExhausted: 7 * 24 * time.Hour,
	}
}

// DefaultConfig returns a Config with every default filled in. Adapters
// that need no credentials are enabled.
func DefaultConfig() Config {
	enabled := AdapterConfig{Enabled: true}
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Cache: CacheConfig{
			Backend:       "sqlite",
			MemoryEntries: 10000,
			SQLitePath:    "cache/discovery.db",
			TTL:           DefaultCacheTTL(),
		},
		Search: SearchConfig{
			HTTPConfig:        HTTPConfig{Timeout: 30 * time.Second, UserAgent: defaultUserAgent},
			MaxResults:        20,
			AdapterTimeout:    8 * time.Second,
			QueryTimeout:      25 * time.Second,
			PerAdapterResults: 25,
			Adapters: map[string]AdapterConfig{
				"geo":              {Enabled: true, RatePerSecond: 3, Burst: 1},
				"arrayexpress":     enabled,
				"pubmed":           {Enabled: true, RatePerSecond: 3, Burst: 1},
				"europepmc":        enabled,
				"openalex":         enabled,
				"semantic_scholar": {Enabled: true, RatePerSecond: 1, Burst: 1},
				"arxiv":            {Enabled: true, RatePerSecond: 0.33, Burst: 1},
			},
		},
		FullText: FullTextConfig{
			HTTPConfig:       HTTPConfig{Timeout: 2 * time.Minute, UserAgent: defaultUserAgent},
			AdapterTimeout:   60 * time.Second,
			MaxConcurrent:    4,
			Order:            []string{"institutional", "pmc", "arxiv", "unpaywall", "openalex", "semantic_scholar", "core", "landing_page"},
			ContentDir:       "papers",
			MaxDocumentBytes: 64 << 20,
			Adapters: map[string]AdapterConfig{
				"pmc":              enabled,
				"arxiv":            {Enabled: true, RatePerSecond: 0.33, Burst: 1},
				"unpaywall":        enabled,
				"openalex":         enabled,
				"semantic_scholar": {Enabled: true, RatePerSecond: 1, Burst: 1},
				"landing_page":     {Enabled: true, RatePerSecond: 1, Burst: 2},
			},
		},
		Dedup:   DefaultDedupConfig(),
		Ranking: DefaultRankingConfig(),
		Retry:   DefaultRetryConfig(),
		Breaker: BreakerConfig{
			Enabled:          true,
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
			MinRequests:      5,
			ReadyToTripRatio: 0.6,
		},
	}
}
