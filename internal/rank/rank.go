// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank scores deduplicated records against a query. Scores are
// computed fresh for every query and never stored.
package rank

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/pdiddy/discovery-engine/pkg/types"
)

const daysPerYear = 365.25

// Ranker computes title, citation, and recency scores.
type Ranker struct {
	Config types.RankingConfig

	// Now is the reference time for record ages; tests pin it.
	Now func() time.Time
}

// New returns a Ranker using the wall clock. Fields that scale or divide a
// score take their default when unset; TailWeight, RecencyBonus and
// RecencyFloor may be zero only when the whole config is zero.
func New(cfg types.RankingConfig) *Ranker {
	def := types.DefaultRankingConfig()
	if cfg == (types.RankingConfig{}) {
		cfg = def
	}
	fill := func(v *float64, d float64) {
		if *v <= 0 || math.IsNaN(*v) {
			*v = d
		}
	}
	fill(&cfg.FullMatchBoost, def.FullMatchBoost)
	fill(&cfg.TierOneCap, def.TierOneCap)
	fill(&cfg.TierOneScore, def.TierOneScore)
	fill(&cfg.TierTwoCap, def.TierTwoCap)
	fill(&cfg.TierTwoScore, def.TierTwoScore)
	fill(&cfg.TailDecades, def.TailDecades)
	fill(&cfg.RecencyWindowYears, def.RecencyWindowYears)
	fill(&cfg.DecayYears, def.DecayYears)
	if cfg.TierTwoCap <= cfg.TierOneCap {
		cfg.TierTwoCap = cfg.TierOneCap * def.TierTwoCap / def.TierOneCap
	}
	return &Ranker{Config: cfg, Now: time.Now}
}

// Terms splits a query into lower-case terms. Hyphenated words such as
// "rna-seq" stay whole; repeats are dropped.
func Terms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	seen := make(map[string]bool, len(fields))
	var out []string
	for _, f := range fields {
		f = strings.Trim(f, "-")
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// TitleScore is the fraction of terms present in title, boosted when every
// term is present.
func (r *Ranker) TitleScore(title string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	tokens := make(map[string]bool)
	for _, t := range Terms(title) {
		tokens[t] = true
	}
	hits := 0
	for _, t := range terms {
		if tokens[t] {
			hits++
		}
	}
	score := float64(hits) / float64(len(terms))
	if hits == len(terms) {
		score *= r.Config.FullMatchBoost
	}
	return score
}

// CitationScore maps a citation count onto a compressed scale: linear up
// to the first tier, square root up to the second, logarithmic beyond.
func (r *Ranker) CitationScore(citations int) float64 {
	c := float64(max(citations, 0))
	cfg := r.Config
	switch {
	case c <= cfg.TierOneCap:
		return c / cfg.TierOneCap * cfg.TierOneScore
	case c <= cfg.TierTwoCap:
		frac := (c - cfg.TierOneCap) / (cfg.TierTwoCap - cfg.TierOneCap)
		return cfg.TierOneScore + math.Sqrt(frac)*(cfg.TierTwoScore-cfg.TierOneScore)
	default:
		decades := (math.Log10(c) - math.Log10(cfg.TierTwoCap)) / cfg.TailDecades
		return cfg.TierTwoScore + clamp(decades, 0, 1)*cfg.TailWeight
	}
}

// RecencyScore rewards records inside the recency window and decays
// exponentially afterwards, never dropping below the floor.
func (r *Ranker) RecencyScore(ageYears float64) float64 {
	cfg := r.Config
	age := math.Max(ageYears, 0)
	if age <= cfg.RecencyWindowYears {
		return 1 + cfg.RecencyBonus*(cfg.RecencyWindowYears-age)/cfg.RecencyWindowYears
	}
	return clamp(math.Exp(-age/cfg.DecayYears), cfg.RecencyFloor, 1)
}

// Age returns the age of rec in years. ok is false when the record carries
// no date.
func (r *Ranker) Age(rec types.Record) (years float64, ok bool) {
	date, ok := rec.Date()
	if !ok {
		return 0, false
	}
	return r.now().Sub(date).Hours() / 24 / daysPerYear, true
}

// Score computes every score of one record.
func (r *Ranker) Score(rec types.Record, terms []string) types.RankedRecord {
	rr := types.RankedRecord{
		Record:       rec,
		TitleScore:   r.TitleScore(rec.Title(), terms),
		RecencyScore: 1,
	}
	if age, ok := r.Age(rec); ok {
		rr.RecencyScore = r.RecencyScore(age)
	}
	if rec.Publication != nil {
		rr.CitationScore = r.CitationScore(rec.Publication.CitationCount)
		rr.CompositeScore = rr.TitleScore * (1 + rr.CitationScore) * rr.RecencyScore
	} else {
		rr.CompositeScore = rr.TitleScore * rr.RecencyScore
	}
	return rr
}

// Rank scores records and sorts them by descending composite score, ties
// broken by ascending canonical id.
func (r *Ranker) Rank(records []types.Record, terms []string) []types.RankedRecord {
	out := make([]types.RankedRecord, len(records))
	for i, rec := range records {
		out[i] = r.Score(rec, terms)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CompositeScore != out[j].CompositeScore {
			return out[i].CompositeScore > out[j].CompositeScore
		}
		return out[i].Record.CanonicalID() < out[j].Record.CanonicalID()
	})
	return out
}

func (r *Ranker) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func clamp(x, lo, hi float64) float64 {
	return math.Min(math.Max(x, lo), hi)
}
