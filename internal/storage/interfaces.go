package storage

import (
	"context"

	"apyhub/internal/domain"
)

// BridgeTransactionStore provides access to bridge_transactions storage.
type BridgeTransactionStore interface {
	// Insert adds a new transaction. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, tx *domain.BridgeTransaction) error

	// UpdateStatus transitions a transaction's status and tx hash.
	// Returns ErrNotFound if the id does not exist.
	UpdateStatus(ctx context.Context, id string, status domain.BridgeStatus, txHash string, updatedAt int64) error

	// GetByID retrieves a transaction by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.BridgeTransaction, error)

	// GetByAddress retrieves transactions for a wallet, newest first.
	// limit <= 0 means no limit.
	GetByAddress(ctx context.Context, address string, limit int) ([]*domain.BridgeTransaction, error)
}

// PoolStore provides access to the refreshed pool catalog.
type PoolStore interface {
	// Upsert inserts or replaces pools by pool_id.
	Upsert(ctx context.Context, pools []*domain.Pool) error

	// GetByID retrieves a pool by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, poolID string) (*domain.Pool, error)

	// GetAll retrieves the full catalog in unspecified order.
	GetAll(ctx context.Context) ([]*domain.Pool, error)

	// Count returns the catalog size.
	Count(ctx context.Context) (int, error)
}

// APYHistoryStore provides access to pool APY time series.
type APYHistoryStore interface {
	// InsertBulk appends observation points.
	InsertBulk(ctx context.Context, points []*domain.APYPoint) error

	// GetByPoolID retrieves the most recent points for a pool, ordered by
	// timestamp ASC. limit <= 0 means no limit.
	GetByPoolID(ctx context.Context, poolID string, limit int) ([]*domain.APYPoint, error)
}
