package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apyhub/internal/aggregate"
	"apyhub/internal/bridge"
	"apyhub/internal/cache"
	"apyhub/internal/domain"
	"apyhub/internal/pools"
	"apyhub/internal/ranking"
	"apyhub/internal/sources"
	"apyhub/internal/storage/memory"
	"apyhub/internal/strategist"
)

const testAddress = "0xAbCdEf0123456789aBcDeF0123456789AbCdEf01"

type stubPositionSource struct {
	name      string
	positions []domain.Position
	calls     int
}

func (s *stubPositionSource) Name() string { return s.name }

func (s *stubPositionSource) FetchPositions(context.Context, string) ([]domain.Position, error) {
	s.calls++
	out := make([]domain.Position, len(s.positions))
	copy(out, s.positions)
	return out, nil
}

type stubPoolFetcher struct {
	pools []domain.Pool
}

func (s *stubPoolFetcher) FetchPools(context.Context) []domain.Pool {
	out := make([]domain.Pool, len(s.pools))
	copy(out, s.pools)
	return out
}

func walletPositions() []domain.Position {
	return []domain.Position{
		{ID: "p1", Protocol: "aave-v3", Chain: "ethereum", Type: domain.PositionLending,
			Assets: []string{"USDC"}, TotalValueUSD: 3333.33, APY: 10, DataSource: "Zapper"},
		{ID: "p2", Protocol: "uniswap-v3", Chain: "arbitrum", Type: domain.PositionLP,
			Assets: []string{"WETH", "USDC"}, TotalValueUSD: 3333.33, APY: 20, DataSource: "Zapper"},
		{ID: "p3", Protocol: "lido", Chain: "ethereum", Type: domain.PositionStaking,
			Assets: []string{"stETH"}, TotalValueUSD: 3333.34, APY: 30, DataSource: "Zapper"},
	}
}

func poolFixtures() []domain.Pool {
	return []domain.Pool{
		{PoolID: "aave-usdc", Chain: "ethereum", Project: "aave-v3", Symbol: "USDC",
			TVLUsd: 5_000_000, APY: 4, Stablecoin: true, Risk: domain.RiskLow, DataSource: "DefiLlama"},
		{PoolID: "uni-weth-usdc", Chain: "arbitrum", Project: "uniswap-v3", Symbol: "WETH-USDC",
			TVLUsd: 900_000, APY: 40, ILExposure: true, Risk: domain.RiskMedium, DataSource: "DefiLlama"},
	}
}

type testServer struct {
	handler http.Handler
	sourceA *stubPositionSource
	sourceB *stubPositionSource
	sourceC *stubPositionSource
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := log.New(io.Discard, "", 0)
	ts := &testServer{
		sourceA: &stubPositionSource{name: "A"},
		sourceB: &stubPositionSource{name: "B", positions: walletPositions()},
		sourceC: &stubPositionSource{name: "C", positions: walletPositions()},
	}

	orchestrator := aggregate.NewOrchestrator(aggregate.OrchestratorOptions{
		Chain:  []sources.PositionSource{ts.sourceA, ts.sourceB, ts.sourceC},
		Logger: logger,
	})

	poolSvc, err := pools.NewService(pools.Options{
		Fetcher:   &stubPoolFetcher{pools: poolFixtures()},
		PoolStore: memory.NewPoolStore(),
		History:   memory.NewAPYHistoryStore(),
		Cache:     cache.NewMemory(cache.MemoryOptions{}),
		Weights:   ranking.DefaultWeights(),
		Logger:    logger,
		Now:       func() time.Time { return time.UnixMilli(1700000000000) },
	})
	require.NoError(t, err)
	_, err = poolSvc.Refresh(context.Background())
	require.NoError(t, err)

	bridgeSvc, err := bridge.NewService(bridge.Options{
		Provider: bridge.NewStaticProvider(bridge.FeeModel{FeeBps: 5, FlatFeeUSD: 0.5}),
		Store:    memory.NewBridgeTransactionStore(),
		Logger:   logger,
	})
	require.NoError(t, err)

	strategistSvc, err := strategist.NewService(strategist.Options{
		Catalog: poolSvc,
		Logger:  logger,
	})
	require.NoError(t, err)

	handler, err := NewRouter(Options{
		Orchestrator: orchestrator,
		Pools:        poolSvc,
		Bridge:       bridgeSvc,
		Strategist:   strategistSvc,
		Cache:        cache.NewMemory(cache.MemoryOptions{}),
		PositionsTTL: time.Minute,
		Logger:       logger,
	})
	require.NoError(t, err)

	ts.handler = handler
	return ts
}

func (ts *testServer) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (ts *testServer) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	ts.handler.ServeHTTP(rec, req)
	return rec
}

type apiResponse struct {
	Success bool            `json:"success"`
	Count   int             `json:"count"`
	Total   int             `json:"total"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestDashboardFallbackScenario(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/api/dashboard/"+testAddress)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Positions []domain.Position     `json:"positions"`
		Stats     domain.PortfolioStats `json:"stats"`
		Meta      struct {
			DataSource string `json:"dataSource"`
		} `json:"meta"`
	}
	resp := decodeResponse(t, rec)
	require.True(t, resp.Success)
	require.NoError(t, json.Unmarshal(resp.Data, &payload))

	assert.Equal(t, "B", payload.Meta.DataSource, "first non-empty source wins")
	assert.Len(t, payload.Positions, 3)
	assert.Equal(t, 3, payload.Stats.TotalPositions)
	assert.InDelta(t, 10000, payload.Stats.TotalValueUSD, 0.01)
	assert.InDelta(t, 20, payload.Stats.WeightedAPY, 0.01)

	assert.Equal(t, 1, ts.sourceA.calls)
	assert.Equal(t, 1, ts.sourceB.calls)
	assert.Equal(t, 0, ts.sourceC.calls, "later sources must never be invoked")
}

func TestDashboardInvalidAddressRejectedBeforeUpstream(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/api/dashboard/not-an-address")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, ts.sourceA.calls)
	assert.Equal(t, 0, ts.sourceB.calls)
}

func TestDashboardSummary(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/api/dashboard/"+testAddress+"/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	var payload struct {
		Stats domain.PortfolioStats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &payload))
	assert.InDelta(t, 20, payload.Stats.WeightedAPY, 0.01)
	assert.NotContains(t, string(resp.Data), `"positions"`)
}

func TestDashboardCachedSecondCall(t *testing.T) {
	ts := newTestServer(t)

	require.Equal(t, http.StatusOK, ts.get(t, "/api/dashboard/"+testAddress).Code)
	require.Equal(t, http.StatusOK, ts.get(t, "/api/dashboard/"+testAddress).Code)

	assert.Equal(t, 1, ts.sourceB.calls, "second request must hit the cache")
}

func TestPositionsFromCatalog(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/api/positions")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, 2, resp.Count)

	rec = ts.get(t, "/api/positions?minAPY=10")
	resp = decodeResponse(t, rec)
	assert.Equal(t, 1, resp.Count)

	var positions []domain.Position
	require.NoError(t, json.Unmarshal(resp.Data, &positions))
	assert.Equal(t, "uniswap-v3", positions[0].Protocol)
	assert.Equal(t, domain.PositionLP, positions[0].Type)
}

func TestPositionsForWallet(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/api/positions?address="+testAddress+"&sortBy=apy")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	assert.Equal(t, 3, resp.Count)

	var positions []domain.Position
	require.NoError(t, json.Unmarshal(resp.Data, &positions))
	assert.InDelta(t, 30, positions[0].APY, 1e-9)

	rec = ts.get(t, "/api/positions?address=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPositionStats(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/api/positions/stats?address="+testAddress)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	var stats domain.PortfolioStats
	require.NoError(t, json.Unmarshal(resp.Data, &stats))
	assert.Equal(t, 3, stats.TotalPositions)
	assert.InDelta(t, 20, stats.WeightedAPY, 0.01)
}

func TestProtocolsAndChains(t *testing.T) {
	ts := newTestServer(t)

	resp := decodeResponse(t, ts.get(t, "/api/positions/protocols"))
	assert.Equal(t, 2, resp.Count)

	resp = decodeResponse(t, ts.get(t, "/api/positions/chains"))
	assert.Equal(t, 5, resp.Count)
}

func TestPoolListFilters(t *testing.T) {
	ts := newTestServer(t)

	resp := decodeResponse(t, ts.get(t, "/api/pools"))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, 2, resp.Total)

	// A floor above every pool's APY matches nothing
	resp = decodeResponse(t, ts.get(t, "/api/pools?minAPY=50"))
	assert.Equal(t, 0, resp.Count)
	assert.Equal(t, 0, resp.Total)

	resp = decodeResponse(t, ts.get(t, "/api/pools?stablecoin=true"))
	assert.Equal(t, 1, resp.Count)

	rec := ts.get(t, "/api/pools?minAPY=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.get(t, "/api/pools?sortBy=volume")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPoolByIDAndHistory(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/api/pools/aave-usdc")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	var pool domain.Pool
	require.NoError(t, json.Unmarshal(resp.Data, &pool))
	assert.Equal(t, "aave-usdc", pool.PoolID)
	assert.Greater(t, pool.Score, 0.0)

	assert.Equal(t, http.StatusNotFound, ts.get(t, "/api/pools/missing").Code)

	resp = decodeResponse(t, ts.get(t, "/api/pools/aave-usdc/history"))
	assert.Equal(t, 1, resp.Count)

	assert.Equal(t, http.StatusNotFound, ts.get(t, "/api/pools/missing/history").Code)
}

func TestPoolTopAndStats(t *testing.T) {
	ts := newTestServer(t)

	resp := decodeResponse(t, ts.get(t, "/api/pools/top/1"))
	assert.Equal(t, 1, resp.Count)

	assert.Equal(t, http.StatusBadRequest, ts.get(t, "/api/pools/top/zero").Code)

	rec := ts.get(t, "/api/pools/stats/overview")
	require.Equal(t, http.StatusOK, rec.Code)

	resp = decodeResponse(t, rec)
	var overview pools.Overview
	require.NoError(t, json.Unmarshal(resp.Data, &overview))
	assert.Equal(t, 2, overview.TotalPools)
}

func TestBridgeEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp := decodeResponse(t, ts.get(t, "/api/bridge/chains"))
	assert.Equal(t, 5, resp.Count)

	req := bridge.Request{
		FromChain: "ethereum",
		ToChain:   "arbitrum",
		Token:     "usdc",
		Amount:    "1000",
		Recipient: testAddress,
	}

	rec := ts.post(t, "/api/bridge/quote", req)
	require.Equal(t, http.StatusOK, rec.Code)

	var quote bridge.Quote
	resp = decodeResponse(t, rec)
	require.NoError(t, json.Unmarshal(resp.Data, &quote))
	assert.InDelta(t, 1.0, quote.FeeUSD, 1e-9)

	rec = ts.post(t, "/api/bridge/execute", req)
	require.Equal(t, http.StatusOK, rec.Code)

	var tx domain.BridgeTransaction
	resp = decodeResponse(t, rec)
	require.NoError(t, json.Unmarshal(resp.Data, &tx))
	assert.Equal(t, domain.BridgeCompleted, tx.Status)

	rec = ts.get(t, "/api/bridge/status/"+tx.ID)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusNotFound, ts.get(t, "/api/bridge/status/missing").Code)

	resp = decodeResponse(t, ts.get(t, "/api/bridge/history/"+testAddress))
	assert.Equal(t, 1, resp.Count)

	bad := req
	bad.ToChain = "solana"
	assert.Equal(t, http.StatusBadRequest, ts.post(t, "/api/bridge/quote", bad).Code)

	bad = req
	bad.Amount = "-1"
	assert.Equal(t, http.StatusBadRequest, ts.post(t, "/api/bridge/execute", bad).Code)
}

func TestStrategistEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/api/strategist/strategies?riskTolerance=MEDIUM")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Greater(t, resp.Count, 0)

	rec = ts.post(t, "/api/strategist/ask", strategist.Request{RiskTolerance: domain.RiskMedium})
	require.Equal(t, http.StatusOK, rec.Code)

	var advice strategist.Advice
	resp = decodeResponse(t, rec)
	require.NoError(t, json.Unmarshal(resp.Data, &advice))
	assert.NotEmpty(t, advice.Strategies)
	assert.Empty(t, advice.Summary)

	assert.Equal(t, http.StatusBadRequest,
		ts.get(t, "/api/strategist/strategies?riskTolerance=EXTREME").Code)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	assert.Equal(t, http.StatusOK, ts.get(t, "/healthz").Code)
}
