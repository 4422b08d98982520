// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup merges records that describe the same dataset or
// publication. Exact duplicates share a canonical identifier; publications
// are additionally matched on title, authors, and year.
package dedup

import (
	"slices"

	"github.com/pdiddy/discovery-engine/pkg/types"
)

// Cluster describes one group of merged records.
type Cluster struct {
	// Survivor is the canonical id of the record that was kept.
	Survivor string `json:"survivor"`

	// Members lists the distinct canonical ids merged, survivor included,
	// in input order.
	Members []string `json:"members"`

	// Size counts the input records merged, exact repeats included.
	Size int `json:"size"`
}

// Result is the output of Dedupe.
type Result struct {
	Records  []types.Record
	Removed  int
	Clusters []Cluster
}

// Deduplicator holds the fuzzy-match thresholds.
type Deduplicator struct {
	Config types.DedupConfig
}

// New returns a Deduplicator; zero thresholds take the defaults.
func New(cfg types.DedupConfig) *Deduplicator {
	def := types.DefaultDedupConfig()
	if cfg.TitleThreshold <= 0 {
		cfg.TitleThreshold = def.TitleThreshold
	}
	if cfg.AuthorThreshold <= 0 {
		cfg.AuthorThreshold = def.AuthorThreshold
	}
	if cfg.MaxYearGap < 0 {
		cfg.MaxYearGap = def.MaxYearGap
	}
	return &Deduplicator{Config: cfg}
}

// Dedupe removes duplicates. Survivors keep the position of the first
// member of their cluster. Input records are never modified; merged
// survivors are copies carrying the combined provenance.
func (d *Deduplicator) Dedupe(records []types.Record) Result {
	exact := d.exactPass(records)

	ds := NewDisjointSet(len(exact))
	for i := 0; i < len(exact); i++ {
		for j := i + 1; j < len(exact); j++ {
			if d.Duplicate(exact[i].record, exact[j].record) {
				ds.Union(i, j)
			}
		}
	}

	res := Result{}
	for _, g := range ds.Groups() {
		members := make([]group, len(g))
		for k, idx := range g {
			members[k] = exact[idx]
		}
		merged := mergeGroups(members)
		res.Records = append(res.Records, merged.record)
		if merged.size > 1 {
			res.Clusters = append(res.Clusters, Cluster{
				Survivor: merged.record.CanonicalID(),
				Members:  merged.members,
				Size:     merged.size,
			})
		}
	}
	res.Removed = countValid(records) - len(res.Records)
	return res
}

// Duplicate reports whether two records are fuzzy duplicates. Only
// publications with a title, at least one author, and a year on both sides
// are compared.
func (d *Deduplicator) Duplicate(a, b types.Record) bool {
	pa, pb := a.Publication, b.Publication
	if pa == nil || pb == nil {
		return false
	}
	if pa.Title == "" || pb.Title == "" || len(pa.Authors) == 0 || len(pb.Authors) == 0 {
		return false
	}
	if pa.Year == 0 || pb.Year == 0 || abs(pa.Year-pb.Year) > d.Config.MaxYearGap {
		return false
	}
	if TitleSimilarity(pa.Title, pb.Title) < d.Config.TitleThreshold {
		return false
	}
	first, all := AuthorSimilarity(pa.Authors, pb.Authors)
	return first >= d.Config.AuthorThreshold && all >= d.Config.AuthorThreshold
}

// group is the survivor of a set of records plus the ids merged into it.
type group struct {
	record  types.Record
	pos     int
	size    int
	members []string
	sources []string
}

// exactPass groups by canonical id in first-seen order.
func (d *Deduplicator) exactPass(records []types.Record) []group {
	index := make(map[string]int)
	var buckets [][]group
	for i, r := range records {
		id := r.CanonicalID()
		if id == "" {
			continue
		}
		g := group{record: r, pos: i, size: 1, members: []string{id}, sources: sourcesOf(r)}
		if b, ok := index[id]; ok {
			buckets[b] = append(buckets[b], g)
			continue
		}
		index[id] = len(buckets)
		buckets = append(buckets, []group{g})
	}
	out := make([]group, len(buckets))
	for i, b := range buckets {
		out[i] = mergeGroups(b)
	}
	return out
}

// mergeGroups picks the most complete record, first position winning ties,
// and unions the provenance of every member.
func mergeGroups(gs []group) group {
	best := 0
	for i := 1; i < len(gs); i++ {
		si, sb := gs[i].record.CompletenessScore(), gs[best].record.CompletenessScore()
		if si > sb || (si == sb && gs[i].pos < gs[best].pos) {
			best = i
		}
	}
	if len(gs) == 1 {
		return gs[0]
	}

	out := group{record: gs[best].record, pos: gs[0].pos}
	for _, g := range gs {
		if g.pos < out.pos {
			out.pos = g.pos
		}
		out.size += g.size
		for _, m := range g.members {
			if !slices.Contains(out.members, m) {
				out.members = append(out.members, m)
			}
		}
		for _, s := range g.sources {
			if s != "" && !slices.Contains(out.sources, s) {
				out.sources = append(out.sources, s)
			}
		}
	}
	out.record = withSources(out.record, out.sources)
	return out
}

func sourcesOf(r types.Record) []string {
	switch {
	case r.Publication != nil && len(r.Publication.Sources) > 0:
		return slices.Clone(r.Publication.Sources)
	case r.Dataset != nil && len(r.Dataset.Sources) > 0:
		return slices.Clone(r.Dataset.Sources)
	default:
		return []string{r.Source()}
	}
}

// withSources returns a copy of r whose provenance is sources.
func withSources(r types.Record, sources []string) types.Record {
	switch {
	case r.Publication != nil:
		p := *r.Publication
		p.Sources = slices.Clone(sources)
		return types.NewPublicationRecord(p)
	case r.Dataset != nil:
		ds := *r.Dataset
		ds.Sources = slices.Clone(sources)
		return types.NewDatasetRecord(ds)
	}
	return r
}

func countValid(records []types.Record) int {
	n := 0
	for _, r := range records {
		if r.CanonicalID() != "" {
			n++
		}
	}
	return n
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
