package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/chessmate-ai/chessmate/internal/usage"
)

// QueryCacheConfig defines configuration for the search query cache.
type QueryCacheConfig struct {
	// Enabled controls whether query caching is active.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// MaxSize is the maximum number of cached responses.
	MaxSize int `yaml:"max-size" json:"max-size"`
	// TTL is how long responses are cached (e.g., "30s", "5m").
	TTL time.Duration `yaml:"ttl" json:"ttl"`
}

// DefaultQueryCacheConfig returns sensible defaults.
func DefaultQueryCacheConfig() QueryCacheConfig {
	return QueryCacheConfig{
		Enabled: true,
		MaxSize: 512,
		TTL:     time.Minute,
	}
}

// QueryCacheStats tracks cache performance.
type QueryCacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
}

type cachedSearch struct {
	resp    *SearchResponse
	addedAt time.Time
}

// QueryCache fronts a Client with a get-or-compute-with-TTL contract.
// Identical in-flight searches are collapsed through singleflight, the clock
// is injected so expiry is testable, and eviction walks the LRU order slice.
type QueryCache struct {
	mu      sync.Mutex
	inner   Client
	entries map[string]*cachedSearch
	order   []string // LRU order tracking
	config  QueryCacheConfig
	stats   QueryCacheStats
	group   singleflight.Group
	now     func() time.Time
}

// NewQueryCache wraps inner with caching. A nil clock uses time.Now.
func NewQueryCache(inner Client, cfg QueryCacheConfig, clock func() time.Time) *QueryCache {
	if clock == nil {
		clock = time.Now
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultQueryCacheConfig().MaxSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultQueryCacheConfig().TTL
	}
	return &QueryCache{
		inner:   inner,
		entries: make(map[string]*cachedSearch),
		order:   make([]string, 0, cfg.MaxSize),
		config:  cfg,
		now:     clock,
	}
}

// Search implements Client. On a fresh or expired key it computes through the
// wrapped client exactly once per flight and stores the result for the TTL.
func (c *QueryCache) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if !c.config.Enabled {
		return c.inner.Search(ctx, req)
	}
	key := searchKey(req)

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		if c.now().Sub(entry.addedAt) < c.config.TTL {
			c.stats.Hits++
			c.touch(key)
			resp := entry.resp
			c.mu.Unlock()
			usage.ObserveQueryCache(true)
			return resp, nil
		}
		c.remove(key)
	}
	c.stats.Misses++
	c.mu.Unlock()
	usage.ObserveQueryCache(false)

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		resp, err := c.inner.Search(ctx, req)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.store(key, resp)
		c.mu.Unlock()
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*SearchResponse), nil
}

// Stats returns a snapshot of the cache counters.
func (c *QueryCache) Stats() QueryCacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = len(c.entries)
	return s
}

// store and the helpers below require c.mu held.

func (c *QueryCache) store(key string, resp *SearchResponse) {
	for len(c.entries) >= c.config.MaxSize {
		oldest := c.order[0]
		c.remove(oldest)
		c.stats.Evictions++
		log.Debugf("query cache evicted %s", oldest[:8])
	}
	c.entries[key] = &cachedSearch{resp: resp, addedAt: c.now()}
	c.order = append(c.order, key)
}

func (c *QueryCache) remove(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *QueryCache) touch(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, key)
			break
		}
	}
}

// searchKey derives a stable cache key from the full request.
func searchKey(req SearchRequest) string {
	b, _ := json.Marshal(req)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
