// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fulltext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType IdentifierType
		wantNorm string
	}{
		{"pmid bare", "35000001", TypePMID, "35000001"},
		{"pmid prefixed", "PMID: 35000001", TypePMID, "35000001"},
		{"pmcid", "pmc9000001", TypePMCID, "PMC9000001"},
		{"arxiv bare", "2301.07041", TypeArxiv, "2301.07041"},
		{"arxiv prefixed versioned", "arXiv:2301.07041v2", TypeArxiv, "2301.07041"},
		{"arxiv old style", "hep-th/9901001", TypeArxiv, "hep-th/9901001"},
		{"doi", "10.1038/s41586-024-07487-w", TypeDOI, "10.1038/s41586-024-07487-w"},
		{"doi url", "https://doi.org/10.1145/1234567.1234568", TypeDOI, "10.1145/1234567.1234568"},
		{"doi prefixed", "doi:10.1145/1234567", TypeDOI, "10.1145/1234567"},
		{"unknown", "not-an-id", TypeUnknown, "not-an-id"},
		{"empty", "", TypeUnknown, ""},
		{"whitespace trimmed", "  2301.07041  ", TypeArxiv, "2301.07041"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotNorm := ClassifyIdentifier(tt.input)
			if gotType != tt.wantType {
				t.Errorf("ClassifyIdentifier(%q) type = %v, want %v", tt.input, gotType, tt.wantType)
			}
			if gotNorm != tt.wantNorm {
				t.Errorf("ClassifyIdentifier(%q) norm = %q, want %q", tt.input, gotNorm, tt.wantNorm)
			}
		})
	}
}

func TestParseIdentifier(t *testing.T) {
	p, err := ParseIdentifier("arXiv:2301.07041")
	require.NoError(t, err)
	assert.Equal(t, "2301.07041", p.ArxivID)
	assert.Equal(t, "10.48550/arXiv.2301.07041", p.DOI)

	p, err = ParseIdentifier("10.48550/arXiv.2301.07041")
	require.NoError(t, err)
	assert.Equal(t, "2301.07041", p.ArxivID)

	p, err = ParseIdentifier("PMC9000001")
	require.NoError(t, err)
	assert.Equal(t, "PMC9000001", p.PMCID)

	_, err = ParseIdentifier("bogus id")
	assert.Error(t, err)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "doi-10.1038-s41586", Slug("doi:10.1038/s41586"))
	assert.Equal(t, "pmid-123", Slug("pmid:123"))
	assert.Equal(t, "hash-ab12", Slug("hash:ab12"))
}

func TestEscapeDOI(t *testing.T) {
	assert.Equal(t, "10.1038/nature12373", escapeDOI("10.1038/nature12373"))
	assert.Equal(t, "10.1002/sim.1097-0258:1", escapeDOI("10.1002/sim.1097-0258:1"))
	assert.Equal(t, "10.1000/a%3Fb%23c%25d", escapeDOI("10.1000/a?b#c%d"))
	assert.Equal(t, "10.1000/x/y%20z", escapeDOI("10.1000/x/y z"))
}
