package pools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"apyhub/internal/cache"
	"apyhub/internal/domain"
	"apyhub/internal/observability"
	"apyhub/internal/ranking"
	"apyhub/internal/storage"
)

const (
	catalogCacheKey = "pools:catalog"

	defaultPageLimit = 50
	maxPageLimit     = 200

	defaultHistoryPoints = 100
	maxTopLimit          = 100
)

// ErrInvalidQuery is returned for malformed list parameters.
var ErrInvalidQuery = errors.New("invalid query")

// Fetcher produces the raw pool universe from the upstream aggregators.
type Fetcher interface {
	FetchPools(ctx context.Context) []domain.Pool
}

// Broadcaster pushes refresh notifications to connected clients.
type Broadcaster interface {
	Broadcast(v any)
}

// Service maintains the ranked pool catalog: periodic refresh from the
// upstream aggregators, persisted history, and filtered read access.
type Service struct {
	fetcher     Fetcher
	poolStore   storage.PoolStore
	history     storage.APYHistoryStore
	cache       cache.Cache
	broadcaster Broadcaster
	weights     ranking.Weights
	minTVL      float64
	cacheTTL    time.Duration
	logger      *log.Logger
	now         func() time.Time
}

// Options configures the pool service. Broadcaster is optional.
type Options struct {
	Fetcher     Fetcher
	PoolStore   storage.PoolStore
	History     storage.APYHistoryStore
	Cache       cache.Cache
	Broadcaster Broadcaster
	Weights     ranking.Weights
	MinTVL      float64
	CacheTTL    time.Duration
	Logger      *log.Logger
	Now         func() time.Time
}

// NewService creates a pool service.
func NewService(opts Options) (*Service, error) {
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("pools: fetcher is required")
	}
	if opts.PoolStore == nil {
		return nil, fmt.Errorf("pools: pool store is required")
	}
	if opts.History == nil {
		return nil, fmt.Errorf("pools: history store is required")
	}
	if opts.Cache == nil {
		return nil, fmt.Errorf("pools: cache is required")
	}
	if err := opts.Weights.Validate(); err != nil {
		return nil, fmt.Errorf("pools: %w", err)
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		fetcher:     opts.Fetcher,
		poolStore:   opts.PoolStore,
		history:     opts.History,
		cache:       opts.Cache,
		broadcaster: opts.Broadcaster,
		weights:     opts.Weights,
		minTVL:      opts.MinTVL,
		cacheTTL:    opts.CacheTTL,
		logger:      opts.Logger,
		now:         opts.Now,
	}, nil
}

// Refresh pulls the pool universe, scores it, persists catalog and history
// and notifies subscribers. Returns the number of pools kept.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	start := s.now()

	raw := s.fetcher.FetchPools(ctx)
	if len(raw) == 0 {
		observability.RecordRefresh("empty", 0, s.now().Sub(start).Seconds())
		return 0, fmt.Errorf("refresh: no pools from any source")
	}

	ranked := ranking.Rank(raw, s.weights, ranking.Filters{MinTVL: s.minTVL})

	nowMs := s.now().UnixMilli()
	points := make([]*domain.APYPoint, 0, len(ranked))
	for i := range ranked {
		ranked[i].UpdatedAt = nowMs
		points = append(points, &domain.APYPoint{
			PoolID:      ranked[i].PoolID,
			APY:         ranked[i].APY,
			TVLUsd:      ranked[i].TVLUsd,
			TimestampMs: nowMs,
		})
	}

	toStore := make([]*domain.Pool, len(ranked))
	for i := range ranked {
		toStore[i] = &ranked[i]
	}
	if err := s.poolStore.Upsert(ctx, toStore); err != nil {
		observability.RecordRefresh("error", 0, s.now().Sub(start).Seconds())
		return 0, fmt.Errorf("persist pool catalog: %w", err)
	}
	if err := s.history.InsertBulk(ctx, points); err != nil {
		// History is best-effort; the catalog is already current.
		s.logger.Printf("[pools] persist apy history failed: %v", err)
	}

	cache.SetJSON(ctx, s.cache, catalogCacheKey, ranked, s.cacheTTL)

	if s.broadcaster != nil {
		s.broadcaster.Broadcast(map[string]any{
			"type":      "pools_updated",
			"count":     len(ranked),
			"updatedAt": nowMs,
		})
	}

	observability.RecordRefresh("ok", len(ranked), s.now().Sub(start).Seconds())
	s.logger.Printf("[pools] refreshed catalog: %d pools (%d before tvl floor)", len(ranked), len(raw))
	return len(ranked), nil
}

// ListQuery selects, orders and pages the catalog.
type ListQuery struct {
	Filters   ranking.Filters
	SortBy    string // score (default), apy, tvl
	SortOrder string // desc (default), asc
	Page      int    // 1-based
	Limit     int
}

// List returns one page of the filtered catalog plus the total match count.
func (s *Service) List(ctx context.Context, q ListQuery) ([]domain.Pool, int, error) {
	if q.Page < 0 || q.Limit < 0 {
		return nil, 0, ErrInvalidQuery
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = defaultPageLimit
	}
	if q.Limit > maxPageLimit {
		q.Limit = maxPageLimit
	}

	pools, err := s.catalog(ctx)
	if err != nil {
		return nil, 0, err
	}

	filtered := q.Filters.Apply(pools)
	if err := sortPools(filtered, q.SortBy, q.SortOrder); err != nil {
		return nil, 0, err
	}

	total := len(filtered)
	offset := (q.Page - 1) * q.Limit
	if offset >= total {
		return []domain.Pool{}, total, nil
	}
	end := offset + q.Limit
	if end > total {
		end = total
	}
	return filtered[offset:end], total, nil
}

// GetByID returns one pool from the catalog.
func (s *Service) GetByID(ctx context.Context, poolID string) (*domain.Pool, error) {
	return s.poolStore.GetByID(ctx, poolID)
}

// Top returns the highest-scored pools. A non-positive limit defaults to 10.
func (s *Service) Top(ctx context.Context, limit int) ([]domain.Pool, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > maxTopLimit {
		limit = maxTopLimit
	}

	pools, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}

	sorted := make([]domain.Pool, len(pools))
	copy(sorted, pools)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	if limit > len(sorted) {
		limit = len(sorted)
	}
	return sorted[:limit], nil
}

// History returns the recorded APY points for a pool, oldest first. A
// non-positive limit defaults to the newest 100 points.
func (s *Service) History(ctx context.Context, poolID string, limit int) ([]*domain.APYPoint, error) {
	if _, err := s.poolStore.GetByID(ctx, poolID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryPoints
	}
	return s.history.GetByPoolID(ctx, poolID, limit)
}

// Overview summarizes the current catalog.
type Overview struct {
	TotalPools  int            `json:"totalPools"`
	TotalTVLUsd float64        `json:"totalTvlUsd"`
	AvgAPY      float64        `json:"avgApy"`
	MaxAPY      float64        `json:"maxApy"`
	ByRisk      map[string]int `json:"byRisk"`
	ByChain     map[string]int `json:"byChain"`
	UpdatedAt   int64          `json:"updatedAt"`
}

// Stats computes catalog-wide statistics in one pass.
func (s *Service) Stats(ctx context.Context) (*Overview, error) {
	pools, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}

	ov := &Overview{
		ByRisk:  make(map[string]int),
		ByChain: make(map[string]int),
	}

	var apySum float64
	for _, p := range pools {
		ov.TotalPools++
		ov.TotalTVLUsd += p.TVLUsd
		apySum += p.APY
		if p.APY > ov.MaxAPY {
			ov.MaxAPY = p.APY
		}
		ov.ByRisk[string(p.Risk)]++
		ov.ByChain[p.Chain]++
		if p.UpdatedAt > ov.UpdatedAt {
			ov.UpdatedAt = p.UpdatedAt
		}
	}
	if ov.TotalPools > 0 {
		ov.AvgAPY = apySum / float64(ov.TotalPools)
	}
	return ov, nil
}

// catalog loads the scored pool set, preferring the cache.
func (s *Service) catalog(ctx context.Context) ([]domain.Pool, error) {
	var cached []domain.Pool
	if cache.GetJSON(ctx, s.cache, catalogCacheKey, &cached) {
		observability.RecordCacheLookup("pools", true)
		return cached, nil
	}
	observability.RecordCacheLookup("pools", false)

	stored, err := s.poolStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pool catalog: %w", err)
	}

	pools := make([]domain.Pool, len(stored))
	for i, p := range stored {
		pools[i] = *p
	}
	cache.SetJSON(ctx, s.cache, catalogCacheKey, pools, s.cacheTTL)
	return pools, nil
}

// sortPools orders pools in place by the requested key.
func sortPools(pools []domain.Pool, sortBy, sortOrder string) error {
	var less func(a, b domain.Pool) bool
	switch strings.ToLower(sortBy) {
	case "", "score":
		less = func(a, b domain.Pool) bool { return a.Score < b.Score }
	case "apy":
		less = func(a, b domain.Pool) bool { return a.APY < b.APY }
	case "tvl":
		less = func(a, b domain.Pool) bool { return a.TVLUsd < b.TVLUsd }
	default:
		return fmt.Errorf("%w: unknown sort key %q", ErrInvalidQuery, sortBy)
	}

	switch strings.ToLower(sortOrder) {
	case "", "desc":
		sort.SliceStable(pools, func(i, j int) bool { return less(pools[j], pools[i]) })
	case "asc":
		sort.SliceStable(pools, func(i, j int) bool { return less(pools[i], pools[j]) })
	default:
		return fmt.Errorf("%w: unknown sort order %q", ErrInvalidQuery, sortOrder)
	}
	return nil
}
