package cache

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Tiered layers a shared Redis tier behind the in-process Memory cache.
// Redis is strictly best-effort: when it is unreachable the cache degrades to
// memory-only and logs a single warning instead of failing requests.
type Tiered struct {
	memory *Memory
	rdb    *redis.Client
	logger *log.Logger

	warnOnce sync.Once
}

// NewTiered wires a Redis tier behind memory. redisURL uses the standard
// redis:// form; an unparseable URL disables the tier immediately.
func NewTiered(memory *Memory, redisURL string, logger *log.Logger) *Tiered {
	t := &Tiered{memory: memory, logger: logger}
	if redisURL == "" {
		return t
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Printf("[cache] invalid redis url, running memory-only: %v", err)
		return t
	}
	t.rdb = redis.NewClient(opts)
	return t
}

// Get implements Cache. Memory is consulted first; a Redis hit backfills
// memory with the key's remaining TTL.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool) {
	if v, ok := t.memory.Get(ctx, key); ok {
		return v, true
	}
	if t.rdb == nil {
		return nil, false
	}

	val, err := t.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			t.warnDegraded(err)
		}
		return nil, false
	}

	ttl := time.Duration(0)
	if d, err := t.rdb.PTTL(ctx, key).Result(); err == nil && d > 0 {
		ttl = d
	}
	t.memory.Set(ctx, key, val, ttl)
	return val, true
}

// Set implements Cache. Writes go to memory synchronously and to Redis
// best-effort.
func (t *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	t.memory.Set(ctx, key, value, ttl)
	if t.rdb == nil {
		return
	}
	if ttl <= 0 {
		ttl = t.memory.defaultTTL
	}
	if err := t.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		t.warnDegraded(err)
	}
}

// Delete implements Cache.
func (t *Tiered) Delete(ctx context.Context, key string) {
	t.memory.Delete(ctx, key)
	if t.rdb == nil {
		return
	}
	if err := t.rdb.Del(ctx, key).Err(); err != nil {
		t.warnDegraded(err)
	}
}

// Close releases the Redis connection if one was established.
func (t *Tiered) Close() error {
	if t.rdb == nil {
		return nil
	}
	return t.rdb.Close()
}

func (t *Tiered) warnDegraded(err error) {
	t.warnOnce.Do(func() {
		t.logger.Printf("[cache] redis unavailable, degraded to memory-only: %v", err)
	})
}

// Verify interface compliance at compile time.
var _ Cache = (*Tiered)(nil)
