package keysearch

import "unicode"

// Weights tune the match score.
type Weights struct {
	// Base is the starting score for any match.
	Base int

	// Consecutive is added for each query character matched right after
	// the previous one.
	Consecutive int

	// WordBoundary is added for each match on a word boundary.
	WordBoundary int

	// Prefix is added when the first match is at position 0.
	Prefix int

	// ExactPrefix is added when the query is a prefix of the text.
	ExactPrefix int

	// Exact is added when the query equals the text.
	Exact int

	// Gap is subtracted for each unmatched character between matches.
	Gap int

	// Leading is subtracted for each character before the first match.
	Leading int

	// ShortText rewards texts shorter than this many characters.
	ShortText int
}

// DefaultWeights returns the default weights.
func DefaultWeights() Weights {
	return Weights{
		Base:         100,
		Consecutive:  20,
		WordBoundary: 15,
		Prefix:       25,
		ExactPrefix:  50,
		Exact:        100,
		Gap:          2,
		Leading:      1,
		ShortText:    20,
	}
}

// positions returns the indices in text of a greedy left-to-right match of
// query, or nil when some query rune is missing. Both are lower case.
func positions(query, text []rune) []int {
	out := make([]int, 0, len(query))
	qi := 0
	for i := 0; i < len(text) && qi < len(query); i++ {
		if text[i] == query[qi] {
			out = append(out, i)
			qi++
		}
	}
	if qi != len(query) {
		return nil
	}
	return out
}

// score rates a match. original keeps the case of the candidate text for
// boundary detection; lower is its lower-cased form.
func (w Weights) score(query, original, lower []rune, matches []int) int {
	if len(matches) == 0 {
		return 0
	}
	score := w.Base

	for i := 1; i < len(matches); i++ {
		if matches[i] == matches[i-1]+1 {
			score += w.Consecutive
		}
	}
	for _, idx := range matches {
		if isWordBoundary(original, idx) {
			score += w.WordBoundary
		}
	}

	first, last := matches[0], matches[len(matches)-1]
	if first == 0 {
		score += w.Prefix
	} else {
		score -= first * w.Leading
	}
	if gap := last - first - len(matches) + 1; gap > 0 {
		score -= gap * w.Gap
	}
	if n := len(lower); n < w.ShortText {
		score += w.ShortText - n
	}

	if hasPrefix(lower, query) {
		score += w.ExactPrefix
		if len(lower) == len(query) {
			score += w.Exact
		}
	}

	if score < 1 {
		score = 1
	}
	return score
}

func hasPrefix(text, prefix []rune) bool {
	if len(text) < len(prefix) {
		return false
	}
	for i, r := range prefix {
		if text[i] != r {
			return false
		}
	}
	return true
}

// isWordBoundary reports whether runes[idx] starts a word: the first rune,
// a rune after a separator, a camelCase hump or the first digit of a run.
func isWordBoundary(runes []rune, idx int) bool {
	if idx == 0 {
		return true
	}
	if idx >= len(runes) {
		return false
	}
	prev, cur := runes[idx-1], runes[idx]
	switch {
	case unicode.IsSpace(prev) || unicode.IsPunct(prev):
		return true
	case unicode.IsLower(prev) && unicode.IsUpper(cur):
		return true
	case unicode.IsLetter(prev) && unicode.IsDigit(cur):
		return true
	}
	return false
}
