// Package textkey canonicalizes administrative names so that spellings coming
// from different sources (tabular records, polygon attributes) compare equal.
package textkey

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes with NFKD and drops combining marks (Mn).
var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// Normalize returns the canonical key for s: compatibility-decomposed,
// diacritics removed, upper-cased, trimmed, inner whitespace collapsed.
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(s string) string {
	out := fold(s)
	// Upper-casing can introduce decomposable runes (and NFKD can expose
	// lower-case letters from ligatures); a second fold reaches the fixed point.
	if again := fold(out); again != out {
		out = again
	}
	return strings.Join(strings.Fields(out), " ")
}

func fold(s string) string {
	res, _, err := transform.String(stripMarks, s)
	if err != nil {
		res = s
	}
	return strings.ToUpper(res)
}

// NormalizeValue applies Normalize to strings and returns any other value
// unchanged.
func NormalizeValue(v any) any {
	if s, ok := v.(string); ok {
		return Normalize(s)
	}
	return v
}

// Equal reports whether a and b normalize to the same key.
func Equal(a, b string) bool { return Normalize(a) == Normalize(b) }
