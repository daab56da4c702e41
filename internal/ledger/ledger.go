package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Config defines ledger behavior.
type Config struct {
	// CacheCapacity bounds the per-session cache list; older entries are
	// trimmed from the head and remain retrievable from the durable log.
	CacheCapacity int `yaml:"cache-capacity" json:"cache-capacity"`
	// CacheTTL expires idle session lists from the cache.
	CacheTTL time.Duration `yaml:"cache-ttl" json:"cache-ttl"`
	// Lookback is how many recent messages LastResultSet scans.
	Lookback int `yaml:"lookback" json:"lookback"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		CacheCapacity: 50,
		CacheTTL:      24 * time.Hour,
		Lookback:      10,
	}
}

// Ledger is the session ledger facade: durable append-only log as the source
// of truth, bounded per-session cache in front of it. Appends for the same
// session are serialized because trim-on-overflow is a read-modify-write
// across the list and the session bookkeeping.
type Ledger struct {
	store  Store
	cache  Cache
	config Config

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New constructs a ledger over the given store and cache. Both are required;
// the degraded in-memory cache is still a Cache.
func New(store Store, cache Cache, cfg Config) *Ledger {
	if cfg.CacheCapacity <= 0 {
		cfg.CacheCapacity = DefaultConfig().CacheCapacity
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultConfig().CacheTTL
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = DefaultConfig().Lookback
	}
	return &Ledger{
		store:  store,
		cache:  cache,
		config: cfg,
		locks:  make(map[string]*sync.Mutex),
	}
}

// sessionLock returns the mutex serializing writers of one session.
func (l *Ledger) sessionLock(sessionID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[sessionID] = lock
	}
	return lock
}

func cacheKey(sessionID string) string {
	return "session:" + sessionID + ":messages"
}

// Append records the message durably, assigns its sequence number, then
// updates the cache tail and trims it to capacity. A commit failure leaves
// the cache untouched and surfaces as "message not recorded"; a cache
// failure after commit degrades to dropping the cached list so the next read
// rehydrates from the log.
func (l *Ledger) Append(ctx context.Context, sessionID string, msg Message) (Message, error) {
	if sessionID == "" {
		return Message{}, fmt.Errorf("session id required")
	}
	lock := l.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	written, err := l.store.AppendTx(ctx, sessionID, msg)
	if err != nil {
		return Message{}, err
	}

	if err := l.pushAndTrim(ctx, sessionID, written); err != nil {
		// The durable write stands; the stale cache list is dropped rather
		// than left partially updated.
		log.Warnf("session %s: cache update failed, dropping cached list: %v", sessionID, err)
		if derr := l.cache.Del(ctx, cacheKey(sessionID)); derr != nil {
			log.Warnf("session %s: dropping cached list also failed: %v", sessionID, derr)
		}
	}
	return written, nil
}

func (l *Ledger) pushAndTrim(ctx context.Context, sessionID string, msg Message) error {
	key := cacheKey(sessionID)
	encoded, err := encodeMessage(msg)
	if err != nil {
		return err
	}
	if err := l.cache.PushTail(ctx, key, encoded); err != nil {
		return err
	}
	n, err := l.cache.Len(ctx, key)
	if err != nil {
		return err
	}
	for ; n > int64(l.config.CacheCapacity); n-- {
		if _, err := l.cache.PopHead(ctx, key); err != nil {
			return err
		}
	}
	return l.cache.Expire(ctx, key, l.config.CacheTTL)
}

// History returns the session's messages in ascending sequence order, capped
// at limit (limit <= 0 means the cache capacity). The cache serves the hot
// path; a miss rehydrates it from the durable log first.
func (l *Ledger) History(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	if limit <= 0 || limit > l.config.CacheCapacity {
		limit = l.config.CacheCapacity
	}
	lock := l.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	key := cacheKey(sessionID)
	n, err := l.cache.Len(ctx, key)
	if err != nil {
		log.Warnf("session %s: cache length failed, reading the log: %v", sessionID, err)
		return l.store.Recent(ctx, sessionID, limit)
	}
	// A list shorter than the requested window may be a genuine short
	// session or a cache that expired and was repopulated by later appends
	// only. The durable count disambiguates.
	if n < int64(limit) {
		count, err := l.store.Count(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, nil
		}
		if count > n {
			if err := l.rehydrate(ctx, sessionID); err != nil {
				log.Warnf("session %s: cache rehydration failed, reading the log: %v", sessionID, err)
				return l.store.Recent(ctx, sessionID, limit)
			}
		}
	}

	raw, err := l.cache.Range(ctx, key, int64(-limit), -1)
	if err != nil {
		log.Warnf("session %s: cache range failed, reading the log: %v", sessionID, err)
		return l.store.Recent(ctx, sessionID, limit)
	}
	out := make([]Message, 0, len(raw))
	for _, b := range raw {
		m, err := decodeMessage(b)
		if err != nil {
			return nil, fmt.Errorf("corrupt cache entry for session %s: %w", sessionID, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// rehydrate rebuilds the cached list from the durable log's tail. Caller
// holds the session lock.
func (l *Ledger) rehydrate(ctx context.Context, sessionID string) error {
	msgs, err := l.store.Recent(ctx, sessionID, l.config.CacheCapacity)
	if err != nil {
		return err
	}
	key := cacheKey(sessionID)
	if err := l.cache.Del(ctx, key); err != nil {
		return err
	}
	for _, m := range msgs {
		encoded, err := encodeMessage(m)
		if err != nil {
			return err
		}
		if err := l.cache.PushTail(ctx, key, encoded); err != nil {
			return err
		}
	}
	log.Debugf("session %s: rehydrated %d messages into cache", sessionID, len(msgs))
	return l.cache.Expire(ctx, key, l.config.CacheTTL)
}

// LastResultSet scans the most recent lookback messages backward for the
// first one carrying an attached result set. It never scans the whole
// history; a bounded window keeps the latency flat regardless of session
// length.
func (l *Ledger) LastResultSet(ctx context.Context, sessionID string) (*ResultSetAttachment, bool, error) {
	msgs, err := l.History(ctx, sessionID, l.config.Lookback)
	if err != nil {
		return nil, false, err
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		if rs := msgs[i].ResultSet; rs != nil {
			return rs, true, nil
		}
	}
	return nil, false, nil
}

// Session returns session metadata from the durable log.
func (l *Ledger) Session(ctx context.Context, sessionID string) (*Session, error) {
	return l.store.Session(ctx, sessionID)
}

// UpdateSummary persists the rolling summary for the session.
func (l *Ledger) UpdateSummary(ctx context.Context, sessionID, summary string) error {
	return l.store.UpdateSummary(ctx, sessionID, summary)
}

// Clear removes the session from both the cache and the durable log. This is
// the only hard-delete path.
func (l *Ledger) Clear(ctx context.Context, sessionID string) error {
	lock := l.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()
	if err := l.cache.Del(ctx, cacheKey(sessionID)); err != nil {
		log.Warnf("session %s: cache clear failed: %v", sessionID, err)
	}
	return l.store.Clear(ctx, sessionID)
}

// Lookback exposes the configured result-set lookback window.
func (l *Ledger) Lookback() int {
	return l.config.Lookback
}
