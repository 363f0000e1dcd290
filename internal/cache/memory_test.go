package cache

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// clock is a manually advanced time source for TTL tests.
type clock struct {
	t time.Time
}

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock { return &clock{t: time.Unix(1_700_000_000, 0)} }

func testLogger(t *testing.T) *log.Logger {
	t.Helper()
	return log.New(io.Discard, "", 0)
}

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(MemoryOptions{})

	_, ok := m.Get(ctx, "missing")
	require.False(t, ok)

	m.Set(ctx, "k", []byte("v"), time.Minute)
	got, ok := m.Get(ctx, "k")
	require.True(t, ok)
	require.Equal(t, []byte("v"), got)
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	ck := newClock()
	m := NewMemory(MemoryOptions{Now: ck.now})

	m.Set(ctx, "k", []byte("v"), time.Minute)

	ck.advance(59 * time.Second)
	_, ok := m.Get(ctx, "k")
	require.True(t, ok, "entry must survive until its TTL")

	ck.advance(2 * time.Second)
	_, ok = m.Get(ctx, "k")
	require.False(t, ok, "entry must expire after its TTL")
	require.Equal(t, 0, m.Len(), "expired entry is dropped on read")
}

func TestMemoryDefaultTTL(t *testing.T) {
	ctx := context.Background()
	ck := newClock()
	m := NewMemory(MemoryOptions{DefaultTTL: 10 * time.Second, Now: ck.now})

	m.Set(ctx, "k", []byte("v"), 0)

	ck.advance(9 * time.Second)
	_, ok := m.Get(ctx, "k")
	require.True(t, ok)

	ck.advance(2 * time.Second)
	_, ok = m.Get(ctx, "k")
	require.False(t, ok)
}

func TestMemoryEvictsOldestAtCap(t *testing.T) {
	ctx := context.Background()
	ck := newClock()
	m := NewMemory(MemoryOptions{MaxEntries: 2, Now: ck.now})

	m.Set(ctx, "a", []byte("1"), time.Hour)
	ck.advance(time.Second)
	m.Set(ctx, "b", []byte("2"), time.Hour)
	ck.advance(time.Second)
	m.Set(ctx, "c", []byte("3"), time.Hour)

	require.Equal(t, 2, m.Len())
	_, ok := m.Get(ctx, "a")
	require.False(t, ok, "oldest entry is evicted first")
	_, ok = m.Get(ctx, "b")
	require.True(t, ok)
	_, ok = m.Get(ctx, "c")
	require.True(t, ok)
}

func TestMemoryOverwriteDoesNotEvict(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(MemoryOptions{MaxEntries: 2})

	m.Set(ctx, "a", []byte("1"), time.Hour)
	m.Set(ctx, "b", []byte("2"), time.Hour)
	m.Set(ctx, "a", []byte("1b"), time.Hour)

	require.Equal(t, 2, m.Len())
	got, ok := m.Get(ctx, "a")
	require.True(t, ok)
	require.Equal(t, []byte("1b"), got)
}

func TestMemoryCopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(MemoryOptions{})

	src := []byte("abc")
	m.Set(ctx, "k", src, time.Minute)
	src[0] = 'x'

	got, _ := m.Get(ctx, "k")
	require.Equal(t, []byte("abc"), got, "stored value must not alias caller memory")

	got[0] = 'y'
	again, _ := m.Get(ctx, "k")
	require.Equal(t, []byte("abc"), again, "returned value must not alias stored memory")
}

func TestGetJSONDropsCorruptEntry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(MemoryOptions{})

	m.Set(ctx, "k", []byte("{not json"), time.Minute)

	var out map[string]int
	require.False(t, GetJSON(ctx, m, "k", &out))
	_, ok := m.Get(ctx, "k")
	require.False(t, ok, "corrupt entry is purged")
}

func TestSetGetJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(MemoryOptions{})

	type payload struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	}
	SetJSON(ctx, m, "k", payload{Name: "usdc", Value: 12.5}, time.Minute)

	var out payload
	require.True(t, GetJSON(ctx, m, "k", &out))
	require.Equal(t, payload{Name: "usdc", Value: 12.5}, out)
}

func TestTieredMemoryOnlyWhenNoRedis(t *testing.T) {
	ctx := context.Background()
	ck := newClock()
	mem := NewMemory(MemoryOptions{Now: ck.now})
	tiered := NewTiered(mem, "", testLogger(t))

	tiered.Set(ctx, "k", []byte("v"), time.Minute)
	got, ok := tiered.Get(ctx, "k")
	require.True(t, ok)
	require.Equal(t, []byte("v"), got)

	tiered.Delete(ctx, "k")
	_, ok = tiered.Get(ctx, "k")
	require.False(t, ok)
	require.NoError(t, tiered.Close())
}

func TestTieredInvalidRedisURLDegrades(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory(MemoryOptions{})
	tiered := NewTiered(mem, "://not-a-url", testLogger(t))

	tiered.Set(ctx, "k", []byte("v"), time.Minute)
	_, ok := tiered.Get(ctx, "k")
	require.True(t, ok, "memory tier keeps working without redis")
}
