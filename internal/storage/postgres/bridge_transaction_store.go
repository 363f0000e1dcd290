package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"apyhub/internal/domain"
	"apyhub/internal/storage"
)

// BridgeTransactionStore implements storage.BridgeTransactionStore using PostgreSQL.
type BridgeTransactionStore struct {
	pool *Pool
}

// NewBridgeTransactionStore creates a new BridgeTransactionStore.
func NewBridgeTransactionStore(pool *Pool) *BridgeTransactionStore {
	return &BridgeTransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BridgeTransactionStore = (*BridgeTransactionStore)(nil)

// Insert adds a new transaction. Returns ErrDuplicateKey if id exists.
func (s *BridgeTransactionStore) Insert(ctx context.Context, tx *domain.BridgeTransaction) error {
	if tx == nil || tx.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO bridge_transactions (
			id, intent_id, address, from_chain, to_chain,
			token, amount, fee_usd, status, tx_hash,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12
		)
	`

	_, err := s.pool.Exec(ctx, query,
		tx.ID, tx.IntentID, tx.Address, tx.FromChain, tx.ToChain,
		tx.Token, tx.Amount, tx.FeeUSD, string(tx.Status), tx.TxHash,
		tx.CreatedAt, tx.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert bridge transaction: %w", err)
	}
	return nil
}

// UpdateStatus transitions a transaction's status. Returns ErrNotFound if
// the id does not exist. An empty txHash leaves the stored hash unchanged.
func (s *BridgeTransactionStore) UpdateStatus(ctx context.Context, id string, status domain.BridgeStatus, txHash string, updatedAt int64) error {
	query := `
		UPDATE bridge_transactions
		SET status = $2,
		    tx_hash = CASE WHEN $3 = '' THEN tx_hash ELSE $3 END,
		    updated_at = $4
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, id, string(status), txHash, updatedAt)
	if err != nil {
		return fmt.Errorf("update bridge transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a transaction by id. Returns ErrNotFound if not exists.
func (s *BridgeTransactionStore) GetByID(ctx context.Context, id string) (*domain.BridgeTransaction, error) {
	query := `
		SELECT id, intent_id, address, from_chain, to_chain,
		       token, amount, fee_usd, status, tx_hash,
		       created_at, updated_at
		FROM bridge_transactions
		WHERE id = $1
	`

	row := s.pool.QueryRow(ctx, query, id)
	tx, err := scanBridgeTransaction(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get bridge transaction by id: %w", err)
	}
	return tx, nil
}

// GetByAddress retrieves transactions for a wallet, newest first.
func (s *BridgeTransactionStore) GetByAddress(ctx context.Context, address string, limit int) ([]*domain.BridgeTransaction, error) {
	query := `
		SELECT id, intent_id, address, from_chain, to_chain,
		       token, amount, fee_usd, status, tx_hash,
		       created_at, updated_at
		FROM bridge_transactions
		WHERE lower(address) = lower($1)
		ORDER BY created_at DESC, id DESC
	`
	args := []any{address}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get bridge transactions by address: %w", err)
	}
	defer rows.Close()

	var result []*domain.BridgeTransaction
	for rows.Next() {
		tx, err := scanBridgeTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bridge transaction row: %w", err)
		}
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bridge transaction rows: %w", err)
	}
	return result, nil
}

// scanBridgeTransaction scans a single row into a BridgeTransaction.
func scanBridgeTransaction(row pgx.Row) (*domain.BridgeTransaction, error) {
	var tx domain.BridgeTransaction
	var status string

	err := row.Scan(
		&tx.ID, &tx.IntentID, &tx.Address, &tx.FromChain, &tx.ToChain,
		&tx.Token, &tx.Amount, &tx.FeeUSD, &status, &tx.TxHash,
		&tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Status = domain.BridgeStatus(status)
	return &tx, nil
}
