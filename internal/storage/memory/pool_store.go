package memory

import (
	"context"
	"sync"

	"apyhub/internal/domain"
	"apyhub/internal/storage"
)

// PoolStore is an in-memory implementation of storage.PoolStore.
type PoolStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Pool // keyed by pool_id
}

// NewPoolStore creates a new in-memory pool store.
func NewPoolStore() *PoolStore {
	return &PoolStore{
		data: make(map[string]*domain.Pool),
	}
}

// Upsert inserts or replaces pools by pool_id.
func (s *PoolStore) Upsert(_ context.Context, pools []*domain.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range pools {
		if p == nil || p.PoolID == "" {
			return storage.ErrInvalidInput
		}
		poolCopy := *p
		s.data[p.PoolID] = &poolCopy
	}
	return nil
}

// GetByID retrieves a pool by id. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByID(_ context.Context, poolID string) (*domain.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[poolID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	poolCopy := *p
	return &poolCopy, nil
}

// GetAll retrieves the full catalog.
func (s *PoolStore) GetAll(_ context.Context) ([]*domain.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Pool, 0, len(s.data))
	for _, p := range s.data {
		poolCopy := *p
		result = append(result, &poolCopy)
	}
	return result, nil
}

// Count returns the catalog size.
func (s *PoolStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}

// Verify interface compliance at compile time.
var _ storage.PoolStore = (*PoolStore)(nil)
