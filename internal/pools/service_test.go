package pools

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apyhub/internal/cache"
	"apyhub/internal/domain"
	"apyhub/internal/ranking"
	"apyhub/internal/storage"
	"apyhub/internal/storage/memory"
)

type stubFetcher struct {
	pools []domain.Pool
}

func (s *stubFetcher) FetchPools(context.Context) []domain.Pool {
	out := make([]domain.Pool, len(s.pools))
	copy(out, s.pools)
	return out
}

type recordingBroadcaster struct {
	messages []any
}

func (b *recordingBroadcaster) Broadcast(v any) {
	b.messages = append(b.messages, v)
}

func testPools() []domain.Pool {
	return []domain.Pool{
		{PoolID: "aave-usdc", Chain: "ethereum", Project: "aave-v3", Symbol: "USDC",
			TVLUsd: 5_000_000, APY: 3.8, Stablecoin: true, Risk: domain.RiskLow, DataSource: "DefiLlama"},
		{PoolID: "uni-weth-usdc", Chain: "arbitrum", Project: "uniswap-v3", Symbol: "WETH-USDC",
			TVLUsd: 800_000, APY: 24.5, ILExposure: true, Risk: domain.RiskMedium, DataSource: "DefiLlama"},
		{PoolID: "tiny-farm", Chain: "base", Project: "obscure-farm", Symbol: "FARM",
			TVLUsd: 40_000, APY: 400, Risk: domain.RiskVeryHigh, DataSource: "DefiLlama"},
	}
}

type testEnv struct {
	svc         *Service
	fetcher     *stubFetcher
	poolStore   storage.PoolStore
	history     storage.APYHistoryStore
	broadcaster *recordingBroadcaster
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		fetcher:     &stubFetcher{pools: testPools()},
		poolStore:   memory.NewPoolStore(),
		history:     memory.NewAPYHistoryStore(),
		broadcaster: &recordingBroadcaster{},
	}

	svc, err := NewService(Options{
		Fetcher:     env.fetcher,
		PoolStore:   env.poolStore,
		History:     env.history,
		Cache:       cache.NewMemory(cache.MemoryOptions{}),
		Broadcaster: env.broadcaster,
		Weights:     ranking.DefaultWeights(),
		MinTVL:      100_000,
		Logger:      log.New(io.Discard, "", 0),
		Now:         func() time.Time { return time.UnixMilli(1700000000000) },
	})
	require.NoError(t, err)
	env.svc = svc
	return env
}

func TestRefreshPersistsScoredCatalog(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	n, err := env.svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "pool below the tvl floor must be dropped")

	stored, err := env.poolStore.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, p := range stored {
		assert.Greater(t, p.Score, 0.0)
		assert.Equal(t, int64(1700000000000), p.UpdatedAt)
	}

	points, err := env.history.GetByPoolID(ctx, "aave-usdc", 0)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.InDelta(t, 3.8, points[0].APY, 0.0001)

	require.Len(t, env.broadcaster.messages, 1)
	msg, ok := env.broadcaster.messages[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "pools_updated", msg["type"])
	assert.Equal(t, 2, msg["count"])
}

func TestRefreshEmptyUniverse(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.pools = nil

	_, err := env.svc.Refresh(context.Background())
	assert.Error(t, err)
	assert.Empty(t, env.broadcaster.messages)
}

func TestListFiltersAndPaginates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Refresh(ctx)
	require.NoError(t, err)

	all, total, err := env.svc.List(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, all, 2)

	// A floor above every pool's APY matches nothing
	none, total, err := env.svc.List(ctx, ListQuery{Filters: ranking.Filters{MinAPY: 50}})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, none)

	stable := true
	stables, total, err := env.svc.List(ctx, ListQuery{Filters: ranking.Filters{Stablecoin: &stable}})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, stables, 1)
	assert.Equal(t, "aave-usdc", stables[0].PoolID)

	// Page past the end is empty but keeps the total
	page2, total, err := env.svc.List(ctx, ListQuery{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Empty(t, page2)
}

func TestListSortByAPY(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Refresh(ctx)
	require.NoError(t, err)

	byAPY, _, err := env.svc.List(ctx, ListQuery{SortBy: "apy"})
	require.NoError(t, err)
	require.Len(t, byAPY, 2)
	assert.Equal(t, "uni-weth-usdc", byAPY[0].PoolID)

	asc, _, err := env.svc.List(ctx, ListQuery{SortBy: "apy", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, "aave-usdc", asc[0].PoolID)

	_, _, err = env.svc.List(ctx, ListQuery{SortBy: "volume"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestTopOrdersByScore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Refresh(ctx)
	require.NoError(t, err)

	top, err := env.svc.Top(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)

	all, err := env.svc.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.GreaterOrEqual(t, all[0].Score, all[1].Score)
	assert.Equal(t, top[0].PoolID, all[0].PoolID)
}

func TestHistoryUnknownPool(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.History(context.Background(), "missing", 10)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStatsOverview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Refresh(ctx)
	require.NoError(t, err)

	ov, err := env.svc.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, ov.TotalPools)
	assert.InDelta(t, 5_800_000, ov.TotalTVLUsd, 0.01)
	assert.InDelta(t, (3.8+24.5)/2, ov.AvgAPY, 0.0001)
	assert.InDelta(t, 24.5, ov.MaxAPY, 0.0001)
	assert.Equal(t, 1, ov.ByRisk[string(domain.RiskLow)])
	assert.Equal(t, 1, ov.ByChain["ethereum"])
	assert.Equal(t, int64(1700000000000), ov.UpdatedAt)
}

func TestCatalogFallsBackToStore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Refresh(ctx)
	require.NoError(t, err)

	// A fresh service over the same store but a cold cache must still list.
	svc2, err := NewService(Options{
		Fetcher:   env.fetcher,
		PoolStore: env.poolStore,
		History:   env.history,
		Cache:     cache.NewMemory(cache.MemoryOptions{}),
		Weights:   ranking.DefaultWeights(),
		Logger:    log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)

	pools, total, err := svc2.List(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, pools, 2)
}
