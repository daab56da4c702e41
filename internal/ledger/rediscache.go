package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RedisCache is the real cache backend, mapping the Cache primitives onto
// Redis list commands keyed per session.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache connects to Redis and verifies the connection with a ping.
// Callers fall back to MemoryCache when this returns an error.
func NewRedisCache(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	log.Infof("session cache: connected to redis at %s", addr)
	return &RedisCache{rdb: rdb}, nil
}

// PushTail implements Cache via RPUSH.
func (c *RedisCache) PushTail(ctx context.Context, key string, value []byte) error {
	return c.rdb.RPush(ctx, key, value).Err()
}

// PopHead implements Cache via LPOP.
func (c *RedisCache) PopHead(ctx context.Context, key string) ([]byte, error) {
	b, err := c.rdb.LPop(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return b, err
}

// Range implements Cache via LRANGE.
func (c *RedisCache) Range(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	vals, err := c.rdb.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}

// Len implements Cache via LLEN.
func (c *RedisCache) Len(ctx context.Context, key string) (int64, error) {
	return c.rdb.LLen(ctx, key).Result()
}

// Expire implements Cache.
func (c *RedisCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.rdb.Expire(ctx, key, ttl).Err()
}

// Del implements Cache.
func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
