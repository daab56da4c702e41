package ledger

import (
	"context"
	"time"
)

// Cache is the per-session ordered-list primitive set the ledger needs. Both
// implementations, the Redis backend and the in-memory stand-in, satisfy the
// same contract; which one is used is decided once at construction, never by
// runtime probing.
type Cache interface {
	// PushTail appends a value to the end of the session's list.
	PushTail(ctx context.Context, key string, value []byte) error
	// PopHead removes and returns the oldest value. Returns ErrCacheMiss
	// when the list is empty or absent.
	PopHead(ctx context.Context, key string) ([]byte, error)
	// Range returns values from start to stop, inclusive, negative indices
	// counting from the tail as in Redis LRANGE.
	Range(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	// Len returns the list length, zero for an absent key.
	Len(ctx context.Context, key string) (int64, error)
	// Expire sets the key's time to live.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// Del removes the key outright.
	Del(ctx context.Context, key string) error
}

// ErrCacheMiss is returned by PopHead on an empty or absent list.
var ErrCacheMiss = cacheMissError{}

type cacheMissError struct{}

func (cacheMissError) Error() string { return "cache miss" }
