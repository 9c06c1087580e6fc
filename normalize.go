package geotrie

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// markStripper removes Unicode combining marks (category Mn/Mc/Me) left
// behind by NFKD decomposition, e.g. turning "é" into "e´" and then dropping
// the acute accent. This is the same transform.Transformer-based idiom
// golang.org/x/text documents for accent folding; geotrie composes it with
// norm.NFKD rather than hand-rolling a combining-mark table, since
// golang.org/x/text already ships one (spec.md §9(c): this is geotrie's
// documented NFKD source).
var markStripper = runes.Remove(runes.In(unicode.Mark))

// normalize implements the single canonical folding spec.md §4.4 requires
// for both query text and edge labels: NFKD decomposition, combining-mark
// removal, lowercasing, and keeping only Letters and Numbers. It is total
// (never errors), idempotent, and returns "" only when s has no letters or
// digits.
//
// Per spec.md §9(c), whether "ß" folds to "ss" or stays "straße" depends on
// the Unicode data golang.org/x/text/unicode/norm ships; geotrie does not
// mandate one outcome, only that the same folding is applied everywhere so
// matching stays internally consistent (tested via idempotence, not a
// literal target — see normalize_test.go).
func normalize(s string) string {
	decomposed, _, err := transform.String(norm.NFKD, s)
	if err != nil {
		// transform.String over norm.NFKD cannot fail for valid UTF-8 input;
		// fall back to the raw string rather than losing data.
		decomposed = s
	}
	stripped, _, err := transform.String(markStripper, decomposed)
	if err != nil {
		stripped = decomposed
	}
	lower := strings.ToLower(stripped)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
