// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/discovery-engine/pkg/types"
)

// CSLItem represents a bibliographic entry in CSL (Citation Style Language)
// format. The field names and structure follow the CSL-JSON/CSL-YAML schema
// so that output is consumable by Pandoc and reference managers.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	Abstract       string    `yaml:"abstract,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
	PMID           string    `yaml:"PMID,omitempty"`
	PMCID          string    `yaml:"PMCID,omitempty"`
	URL            string    `yaml:"URL,omitempty"`
}

// CSLName represents a person's name in CSL format.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate represents a date in CSL format using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// FormatCSL writes the publications of out as a CSL-YAML list to w.
// Datasets have no CSL form and are skipped.
func FormatCSL(out Output, w io.Writer) error {
	items := make([]CSLItem, 0, len(out.Results))
	for _, r := range out.Results {
		if r.Record.Publication != nil {
			items = append(items, toCSLItem(*r.Record.Publication))
		}
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

// toCSLItem converts a Publication to a CSLItem.
func toCSLItem(p types.Publication) CSLItem {
	item := CSLItem{
		ID:             p.PrimaryID(),
		Type:           "article-journal",
		Title:          p.Title,
		Abstract:       p.Abstract,
		ContainerTitle: p.Journal,
		DOI:            p.DOI,
		PMID:           p.PMID,
		PMCID:          p.PMCID,
		URL:            p.URL,
	}
	if p.ArxivID != "" && p.Journal == "" {
		item.Type = "article"
	}

	for _, a := range p.Authors {
		item.Author = append(item.Author, parseAuthorName(a))
	}

	switch {
	case !p.PublishedAt.IsZero():
		d := p.PublishedAt
		item.Issued = &CSLDate{DateParts: [][]int{{d.Year(), int(d.Month()), d.Day()}}}
	case p.Year > 0:
		item.Issued = &CSLDate{DateParts: [][]int{{p.Year}}}
	}

	return item
}

// parseAuthorName splits a name into CSL family/given parts. PubMed style
// "Smith JA" keeps the trailing initials as the given name; "Given Family"
// splits on the last space. Single-token names use the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	if family, given, ok := strings.Cut(name, ", "); ok {
		return CSLName{Family: family, Given: given}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	last := name[idx+1:]
	if isInitials(last) {
		return CSLName{Family: name[:idx], Given: last}
	}
	return CSLName{
		Given:  name[:idx],
		Family: last,
	}
}

// isInitials reports whether s is a run of upper-case initials such as "JA".
func isInitials(s string) bool {
	if s == "" || len(s) > 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
