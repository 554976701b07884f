// Package search implements accent-insensitive matching and relevance ranking of tasks.
package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize returns the comparison form of s: combining marks are stripped after
// canonical decomposition, the result is recomposed and lower-cased without a locale.
// Blank input yields an empty string.
func Normalize(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	// Transformers keep state between calls, so a fresh chain is built every time.
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
		cases.Lower(language.Und),
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}
