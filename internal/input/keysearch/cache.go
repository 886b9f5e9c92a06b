package keysearch

import (
	"container/list"
	"sync"
)

// cache is an LRU of query results. It is safe for concurrent use.
type cache struct {
	mu    sync.Mutex
	size  int
	items map[string]*list.Element
	lru   *list.List
}

type cacheEntry struct {
	query   string
	matches []Match
}

func newCache(size int) *cache {
	return &cache{
		size:  size,
		items: make(map[string]*list.Element),
		lru:   list.New(),
	}
}

// get returns a copy of the cached matches for query.
func (c *cache) get(query string) ([]Match, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[query]
	if !ok {
		return nil, false
	}
	c.lru.MoveToFront(elem)
	return copyMatches(elem.Value.(*cacheEntry).matches), true //nolint:errcheck // list only holds *cacheEntry
}

func (c *cache) set(query string, matches []Match) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[query]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).matches = copyMatches(matches) //nolint:errcheck // list only holds *cacheEntry
		return
	}
	if c.lru.Len() >= c.size {
		if oldest := c.lru.Back(); oldest != nil {
			c.lru.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).query) //nolint:errcheck // list only holds *cacheEntry
		}
	}
	c.items[query] = c.lru.PushFront(&cacheEntry{query: query, matches: copyMatches(matches)})
}

func (c *cache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func copyMatches(in []Match) []Match {
	out := make([]Match, len(in))
	for i, m := range in {
		out[i] = m
		out[i].Positions = append([]int(nil), m.Positions...)
	}
	return out
}
