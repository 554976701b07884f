package search

import (
	"cmp"
	"math"
	"strings"
	"unicode/utf8"
)

// Key orders substring matches. Lower is better on every field.
type Key struct {
	StartsAt0  int // 0 when the candidate begins with the query
	FirstIndex int // rune offset of the first occurrence
	LengthGap  int // |len(candidate) - len(query)| in runes
}

// Score computes the relevance key of a normalized candidate against a normalized query.
// A candidate that does not contain the query gets math.MaxInt as its index.
func Score(candidate, query string) Key {
	k := Key{StartsAt0: 1, FirstIndex: math.MaxInt}
	if strings.HasPrefix(candidate, query) {
		k.StartsAt0 = 0
	}
	if i := strings.Index(candidate, query); i >= 0 {
		k.FirstIndex = utf8.RuneCountInString(candidate[:i])
	}

	gap := utf8.RuneCountInString(candidate) - utf8.RuneCountInString(query)
	if gap < 0 {
		gap = -gap
	}
	k.LengthGap = gap
	return k
}

// Compare orders keys lexicographically by StartsAt0, FirstIndex, LengthGap.
func (k Key) Compare(other Key) int {
	if c := cmp.Compare(k.StartsAt0, other.StartsAt0); c != 0 {
		return c
	}
	if c := cmp.Compare(k.FirstIndex, other.FirstIndex); c != 0 {
		return c
	}
	return cmp.Compare(k.LengthGap, other.LengthGap)
}
