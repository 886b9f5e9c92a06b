package keysearch

import (
	"sort"
	"strings"

	"github.com/dshills/keyforge/internal/input/key"
)

// DefaultCacheSize is the number of query results kept.
const DefaultCacheSize = 256

// Match is one search result.
type Match struct {
	// ID is the matched key.
	ID key.ID

	// Text is the spelling that matched: the canonical name or an alias.
	Text string

	// Score ranks the match. Higher is better.
	Score int

	// Positions holds the rune indices of the matched characters in Text.
	Positions []int
}

type candidate struct {
	id    key.ID
	text  string
	runes []rune
	lower []rune
	order int
}

// Searcher matches queries against the keys a normalizer knows.
type Searcher struct {
	candidates []candidate
	canonical  []key.ID
	weights    Weights
	cache      *cache
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithWeights sets the scoring weights.
func WithWeights(w Weights) Option {
	return func(s *Searcher) {
		s.weights = w
	}
}

// WithCacheSize sets the result cache size. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(s *Searcher) {
		if n <= 0 {
			s.cache = nil
			return
		}
		s.cache = newCache(n)
	}
}

// New creates a searcher over the canonical keys and the aliases of n.
// Aliases that resolve to keys outside the canonical table, such as layout
// specific ones, are included too.
func New(n *key.Normalizer, opts ...Option) *Searcher {
	s := &Searcher{
		canonical: key.Canonical(),
		weights:   DefaultWeights(),
		cache:     newCache(DefaultCacheSize),
	}
	for _, opt := range opts {
		opt(s)
	}

	order := make(map[key.ID]int, len(s.canonical))
	for i, id := range s.canonical {
		order[id] = i
		s.add(id, id.Name(), i)
	}

	aliases := n.Aliases()
	raws := make([]string, 0, len(aliases))
	for raw := range aliases {
		raws = append(raws, raw)
	}
	sort.Strings(raws)
	for _, raw := range raws {
		id := aliases[raw]
		if raw == id.Name() || raw == string(id) {
			continue
		}
		i, ok := order[id]
		if !ok {
			i = len(order)
			order[id] = i
		}
		s.add(id, raw, i)
	}
	return s
}

func (s *Searcher) add(id key.ID, text string, order int) {
	runes := []rune(text)
	s.candidates = append(s.candidates, candidate{
		id:    id,
		text:  text,
		runes: runes,
		lower: []rune(strings.ToLower(text)),
		order: order,
	})
}

// Search returns up to limit keys matching query, best first. An empty
// query lists the canonical keys in table order. limit <= 0 means no
// limit.
func (s *Searcher) Search(query string, limit int) []Match {
	query = strings.ToLower(strings.TrimSpace(query))
	query = strings.TrimPrefix(query, strings.ToLower(key.Prefix))

	if query == "" {
		out := make([]Match, 0, len(s.canonical))
		for _, id := range s.canonical {
			out = append(out, Match{ID: id, Text: id.Name()})
		}
		return truncate(out, limit)
	}

	if s.cache != nil {
		if cached, ok := s.cache.get(query); ok {
			return truncate(cached, limit)
		}
	}

	q := []rune(query)
	best := make(map[key.ID]int)
	var out []Match
	var orders []int
	for _, c := range s.candidates {
		pos := positions(q, c.lower)
		if pos == nil {
			continue
		}
		m := Match{ID: c.id, Text: c.text, Score: s.weights.score(q, c.runes, c.lower, pos), Positions: pos}
		if i, ok := best[c.id]; ok {
			if m.Score > out[i].Score {
				out[i] = m
			}
			continue
		}
		best[c.id] = len(out)
		out = append(out, m)
		orders = append(orders, c.order)
	}

	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ma, mb := out[idx[a]], out[idx[b]]
		if ma.Score != mb.Score {
			return ma.Score > mb.Score
		}
		return orders[idx[a]] < orders[idx[b]]
	})
	sorted := make([]Match, len(out))
	for i, j := range idx {
		sorted[i] = out[j]
	}

	if s.cache != nil {
		s.cache.set(query, sorted)
	}
	return truncate(sorted, limit)
}

func truncate(ms []Match, limit int) []Match {
	if limit > 0 && limit < len(ms) {
		return ms[:limit]
	}
	return ms
}
