package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Cache is a TTL key-value store for serialized API payloads.
// Implementations must be safe for concurrent use. Lookups never fail: a
// degraded backing tier reports a miss, not an error.
type Cache interface {
	// Get returns the stored value and true, or nil and false when the key
	// is absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value under key for ttl. A non-positive ttl means the
	// implementation's default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)

	// Delete removes key if present.
	Delete(ctx context.Context, key string)
}

// GetJSON fetches key and unmarshals it into dst. A miss or a stale payload
// that no longer unmarshals counts as a miss.
func GetJSON(ctx context.Context, c Cache, key string, dst any) bool {
	raw, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.Delete(ctx, key)
		return false
	}
	return true
}

// SetJSON marshals v and stores it under key. Marshal failures are dropped;
// the cache is an optimization, never a source of truth.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Set(ctx, key, raw, ttl)
}
