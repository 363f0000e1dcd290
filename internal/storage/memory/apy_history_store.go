package memory

import (
	"context"
	"sort"
	"sync"

	"apyhub/internal/domain"
	"apyhub/internal/storage"
)

// APYHistoryStore is an in-memory implementation of storage.APYHistoryStore.
type APYHistoryStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.APYPoint // keyed by pool_id
}

// NewAPYHistoryStore creates a new in-memory APY history store.
func NewAPYHistoryStore() *APYHistoryStore {
	return &APYHistoryStore{
		data: make(map[string][]*domain.APYPoint),
	}
}

// InsertBulk appends observation points.
func (s *APYHistoryStore) InsertBulk(_ context.Context, points []*domain.APYPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		if p == nil || p.PoolID == "" {
			return storage.ErrInvalidInput
		}
		pointCopy := *p
		s.data[p.PoolID] = append(s.data[p.PoolID], &pointCopy)
	}
	return nil
}

// GetByPoolID retrieves the most recent points for a pool, ordered by
// timestamp ASC.
func (s *APYHistoryStore) GetByPoolID(_ context.Context, poolID string, limit int) ([]*domain.APYPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.data[poolID]
	result := make([]*domain.APYPoint, 0, len(points))
	for _, p := range points {
		pointCopy := *p
		result = append(result, &pointCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.APYHistoryStore = (*APYHistoryStore)(nil)
