package ledger

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is the in-memory stand-in for the Redis cache backend. It
// implements the identical push/trim/range/expire primitives over a plain
// map of slices. Running on it is a documented degraded mode, not a failure:
// a single-process deployment loses nothing but cross-process sharing.
type MemoryCache struct {
	mu        sync.Mutex
	lists     map[string][][]byte
	deadlines map[string]time.Time
	now       func() time.Time
}

// NewMemoryCache creates the stand-in. A nil clock uses time.Now.
func NewMemoryCache(clock func() time.Time) *MemoryCache {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryCache{
		lists:     make(map[string][][]byte),
		deadlines: make(map[string]time.Time),
		now:       clock,
	}
}

// expireLocked drops the key if its deadline passed. Requires c.mu held.
func (c *MemoryCache) expireLocked(key string) {
	if dl, ok := c.deadlines[key]; ok && c.now().After(dl) {
		delete(c.lists, key)
		delete(c.deadlines, key)
	}
}

// PushTail implements Cache.
func (c *MemoryCache) PushTail(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireLocked(key)
	buf := make([]byte, len(value))
	copy(buf, value)
	c.lists[key] = append(c.lists[key], buf)
	return nil
}

// PopHead implements Cache.
func (c *MemoryCache) PopHead(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireLocked(key)
	list := c.lists[key]
	if len(list) == 0 {
		return nil, ErrCacheMiss
	}
	head := list[0]
	if len(list) == 1 {
		delete(c.lists, key)
	} else {
		c.lists[key] = list[1:]
	}
	return head, nil
}

// Range implements Cache with Redis LRANGE index semantics.
func (c *MemoryCache) Range(_ context.Context, key string, start, stop int64) ([][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireLocked(key)
	list := c.lists[key]
	n := int64(len(list))
	if n == 0 {
		return nil, nil
	}
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop {
		return nil, nil
	}
	out := make([][]byte, 0, stop-start+1)
	for _, v := range list[start : stop+1] {
		buf := make([]byte, len(v))
		copy(buf, v)
		out = append(out, buf)
	}
	return out, nil
}

// Len implements Cache.
func (c *MemoryCache) Len(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireLocked(key)
	return int64(len(c.lists[key])), nil
}

// Expire implements Cache.
func (c *MemoryCache) Expire(_ context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.lists[key]; !ok {
		return nil
	}
	c.deadlines[key] = c.now().Add(ttl)
	return nil
}

// Del implements Cache.
func (c *MemoryCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lists, key)
	delete(c.deadlines, key)
	return nil
}
