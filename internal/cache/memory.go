package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
	storedAt  time.Time
}

// Memory is an in-process TTL cache. Expired entries are dropped lazily on
// read; a soft cap bounds memory by evicting the oldest entries on write.
type Memory struct {
	mu         sync.RWMutex
	data       map[string]entry
	defaultTTL time.Duration
	maxEntries int
	now        func() time.Time
}

// MemoryOptions configures a Memory cache.
type MemoryOptions struct {
	DefaultTTL time.Duration
	MaxEntries int
	Now        func() time.Time // test hook, defaults to time.Now
}

// NewMemory creates an in-process cache. Zero options select a 5 minute TTL
// and a 10000 entry cap.
func NewMemory(opts MemoryOptions) *Memory {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 5 * time.Minute
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 10_000
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Memory{
		data:       make(map[string]entry),
		defaultTTL: opts.DefaultTTL,
		maxEntries: opts.MaxEntries,
		now:        opts.Now,
	}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.data[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if m.now().After(e.expiresAt) {
		m.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have renewed it.
		if cur, ok := m.data[key]; ok && m.now().After(cur.expiresAt) {
			delete(m.data, key)
		}
		m.mu.Unlock()
		return nil, false
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[key]; !exists && len(m.data) >= m.maxEntries {
		m.evictOldestLocked()
	}
	m.data[key] = entry{value: stored, expiresAt: now.Add(ttl), storedAt: now}
}

// Delete implements Cache.
func (m *Memory) Delete(_ context.Context, key string) {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
}

// Len returns the current number of entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// evictOldestLocked removes the entry with the earliest store time.
// Caller holds the write lock.
func (m *Memory) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for k, e := range m.data {
		if first || e.storedAt.Before(oldestAt) {
			oldestKey, oldestAt = k, e.storedAt
			first = false
		}
	}
	if !first {
		delete(m.data, oldestKey)
	}
}

// Verify interface compliance at compile time.
var _ Cache = (*Memory)(nil)
