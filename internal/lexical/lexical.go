// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package lexical tokenizes paper text and extracts the keyword features the
// relevance scorer consumes. Matching is case-insensitive and happens on
// token boundaries: "forecast" matches "Forecast:" but not "forecasting".
package lexical

import (
	"strings"
	"unicode"
)

// Tokenize lowercases s and splits it on every rune that is neither a letter
// nor a digit.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Normalize returns the canonical form of a keyword or phrase: its tokens
// joined by single spaces.
func Normalize(phrase string) string {
	return strings.Join(Tokenize(phrase), " ")
}

// Text is a tokenized field with an index from token to positions.
type Text struct {
	tokens []string
	index  map[string][]int
}

// NewText tokenizes s.
func NewText(s string) *Text {
	tokens := Tokenize(s)
	index := make(map[string][]int, len(tokens))
	for i, tok := range tokens {
		index[tok] = append(index[tok], i)
	}
	return &Text{tokens: tokens, index: index}
}

// Len returns the number of tokens.
func (t *Text) Len() int { return len(t.tokens) }

// Contains reports whether phrase occurs in t on token boundaries.
func (t *Text) Contains(phrase string) bool {
	return len(t.positions(Tokenize(phrase))) > 0
}

// Count returns the number of non-overlapping occurrences of phrase.
func (t *Text) Count(phrase string) int {
	words := Tokenize(phrase)
	n, next := 0, 0
	for _, p := range t.positions(words) {
		if p < next {
			continue
		}
		n++
		next = p + len(words)
	}
	return n
}

// Covered returns how many token positions are covered by at least one
// occurrence of any phrase.
func (t *Text) Covered(phrases []string) int {
	covered := make([]bool, len(t.tokens))
	for _, phrase := range phrases {
		words := Tokenize(phrase)
		for _, p := range t.positions(words) {
			for i := p; i < p+len(words); i++ {
				covered[i] = true
			}
		}
	}
	n := 0
	for _, c := range covered {
		if c {
			n++
		}
	}
	return n
}

// positions returns the start positions of words in t, in ascending order.
func (t *Text) positions(words []string) []int {
	if len(words) == 0 {
		return nil
	}
	var out []int
	for _, start := range t.index[words[0]] {
		if start+len(words) > len(t.tokens) {
			break
		}
		match := true
		for j := 1; j < len(words); j++ {
			if t.tokens[start+j] != words[j] {
				match = false
				break
			}
		}
		if match {
			out = append(out, start)
		}
	}
	return out
}

// Jaccard returns the token-set overlap of a and b in [0, 1].
func Jaccard(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for tok := range ta {
		if tb[tok] {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range Tokenize(s) {
		set[tok] = true
	}
	return set
}
