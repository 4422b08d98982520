// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Ratio returns the normalized edit similarity of a and b on a 0-100 scale:
// 100 * (1 - distance / longer length in runes). Two empty strings are
// identical.
func Ratio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 100
	}
	d := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(d)/float64(longest))
}

// TitleSimilarity compares two titles case-insensitively with collapsed
// whitespace.
func TitleSimilarity(a, b string) float64 {
	return Ratio(normalizeTitle(a), normalizeTitle(b))
}

func normalizeTitle(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// NormalizeName folds an author name for comparison: diacritics removed,
// lower-cased, punctuation dropped, whitespace collapsed. "Müller, J.-P."
// becomes "muller jp".
func NormalizeName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == ',':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// AuthorSimilarity returns the similarity of the first authors and of the
// full joined author lists. Either list being empty yields zeros.
func AuthorSimilarity(a, b []string) (first, all float64) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0
	}
	na, nb := normalizeNames(a), normalizeNames(b)
	first = Ratio(na[0], nb[0])
	all = Ratio(strings.Join(na, "; "), strings.Join(nb, "; "))
	return first, all
}

func normalizeNames(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = NormalizeName(n)
	}
	return out
}
