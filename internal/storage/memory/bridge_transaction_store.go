package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"apyhub/internal/domain"
	"apyhub/internal/storage"
)

// BridgeTransactionStore is an in-memory implementation of
// storage.BridgeTransactionStore.
type BridgeTransactionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.BridgeTransaction // keyed by id
}

// NewBridgeTransactionStore creates a new in-memory bridge transaction store.
func NewBridgeTransactionStore() *BridgeTransactionStore {
	return &BridgeTransactionStore{
		data: make(map[string]*domain.BridgeTransaction),
	}
}

// Insert adds a new transaction. Returns ErrDuplicateKey if id exists.
func (s *BridgeTransactionStore) Insert(_ context.Context, tx *domain.BridgeTransaction) error {
	if tx == nil || tx.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[tx.ID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	txCopy := *tx
	s.data[tx.ID] = &txCopy
	return nil
}

// UpdateStatus transitions a transaction's status. Returns ErrNotFound if
// the id does not exist.
func (s *BridgeTransactionStore) UpdateStatus(_ context.Context, id string, status domain.BridgeStatus, txHash string, updatedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}
	tx.Status = status
	if txHash != "" {
		tx.TxHash = txHash
	}
	tx.UpdatedAt = updatedAt
	return nil
}

// GetByID retrieves a transaction by id. Returns ErrNotFound if not exists.
func (s *BridgeTransactionStore) GetByID(_ context.Context, id string) (*domain.BridgeTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	// Return a copy
	txCopy := *tx
	return &txCopy, nil
}

// GetByAddress retrieves transactions for a wallet, newest first.
func (s *BridgeTransactionStore) GetByAddress(_ context.Context, address string, limit int) ([]*domain.BridgeTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BridgeTransaction
	for _, tx := range s.data {
		if strings.EqualFold(tx.Address, address) {
			txCopy := *tx
			result = append(result, &txCopy)
		}
	}

	// Sort by created_at DESC
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt > result[j].CreatedAt
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.BridgeTransactionStore = (*BridgeTransactionStore)(nil)
