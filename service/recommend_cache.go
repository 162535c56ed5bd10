package service

import (
	"encoding/json"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ludo-technologies/simrec/internal/metrics"
)

// RecommendCache is an LRU of query responses. Keys include the corpus id,
// so a response can never be served for a corpus other than the one that
// produced it; the cache is also purged whenever a new corpus is swapped in.
// Cached responses are shared and must not be modified.
type RecommendCache struct {
	entries *lru.Cache[string, any]
}

// NewRecommendCache creates a cache holding up to size responses. A size
// <= 0 returns nil, which disables caching.
func NewRecommendCache(size int) (*RecommendCache, error) {
	if size <= 0 {
		return nil, nil
	}
	entries, err := lru.NewWithEvict[string, any](size, func(string, any) {
		metrics.RecordCacheEviction()
	})
	if err != nil {
		return nil, err
	}
	return &RecommendCache{entries: entries}, nil
}

// Attach purges the cache every time store swaps in a corpus.
func (c *RecommendCache) Attach(store *CorpusStore) {
	if c == nil {
		return
	}
	store.OnSwap(func(*LoadedCorpus) { c.Purge() })
}

// Key builds a cache key from the corpus id, the operation and the request.
func (c *RecommendCache) Key(corpusID, op string, req any) (string, bool) {
	if c == nil {
		return "", false
	}
	data, err := json.Marshal(req)
	if err != nil {
		return "", false
	}
	return corpusID + "|" + op + "|" + string(data), true
}

// Get returns the cached response for key.
func (c *RecommendCache) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.entries.Get(key)
	if ok {
		metrics.RecordCacheHit()
	} else {
		metrics.RecordCacheMiss()
	}
	return v, ok
}

// Add stores a response.
func (c *RecommendCache) Add(key string, v any) {
	if c == nil {
		return
	}
	c.entries.Add(key, v)
}

// Purge removes every entry.
func (c *RecommendCache) Purge() {
	if c == nil {
		return
	}
	c.entries.Purge()
}

// Len returns the number of cached responses.
func (c *RecommendCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
