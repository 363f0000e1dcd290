package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"apyhub/internal/domain"
	"apyhub/internal/storage"
)

// PoolStore implements storage.PoolStore using PostgreSQL.
type PoolStore struct {
	pool *Pool
}

// NewPoolStore creates a new PoolStore.
func NewPoolStore(pool *Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PoolStore = (*PoolStore)(nil)

const poolColumns = `
	pool_id, chain, project, symbol, tvl_usd,
	apy, apy_base, apy_reward, stablecoin, il_exposure,
	risk, score, data_source, updated_at
`

const upsertPoolQuery = `
	INSERT INTO pools (
		pool_id, chain, project, symbol, tvl_usd,
		apy, apy_base, apy_reward, stablecoin, il_exposure,
		risk, score, data_source, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10,
		$11, $12, $13, $14
	)
	ON CONFLICT (pool_id) DO UPDATE SET
		chain = EXCLUDED.chain,
		project = EXCLUDED.project,
		symbol = EXCLUDED.symbol,
		tvl_usd = EXCLUDED.tvl_usd,
		apy = EXCLUDED.apy,
		apy_base = EXCLUDED.apy_base,
		apy_reward = EXCLUDED.apy_reward,
		stablecoin = EXCLUDED.stablecoin,
		il_exposure = EXCLUDED.il_exposure,
		risk = EXCLUDED.risk,
		score = EXCLUDED.score,
		data_source = EXCLUDED.data_source,
		updated_at = EXCLUDED.updated_at
`

// Upsert inserts or replaces pools by pool_id in a single transaction.
func (s *PoolStore) Upsert(ctx context.Context, pools []*domain.Pool) error {
	for _, p := range pools {
		if p == nil || p.PoolID == "" {
			return storage.ErrInvalidInput
		}
	}
	if len(pools) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin pool upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range pools {
		_, err := tx.Exec(ctx, upsertPoolQuery,
			p.PoolID, p.Chain, p.Project, p.Symbol, p.TVLUsd,
			p.APY, p.APYBase, p.APYReward, p.Stablecoin, p.ILExposure,
			string(p.Risk), p.Score, p.DataSource, p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert pool %s: %w", p.PoolID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit pool upsert: %w", err)
	}
	return nil
}

// GetByID retrieves a pool by id. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByID(ctx context.Context, poolID string) (*domain.Pool, error) {
	query := `SELECT` + poolColumns + `FROM pools WHERE pool_id = $1`

	row := s.pool.QueryRow(ctx, query, poolID)
	p, err := scanPool(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool by id: %w", err)
	}
	return p, nil
}

// GetAll retrieves all pools ordered by score descending.
func (s *PoolStore) GetAll(ctx context.Context) ([]*domain.Pool, error) {
	query := `SELECT` + poolColumns + `FROM pools ORDER BY score DESC, pool_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all pools: %w", err)
	}
	defer rows.Close()

	var result []*domain.Pool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pool row: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pool rows: %w", err)
	}
	return result, nil
}

// Count returns the number of stored pools.
func (s *PoolStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM pools`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pools: %w", err)
	}
	return count, nil
}

// scanPool scans a single row into a Pool.
func scanPool(row pgx.Row) (*domain.Pool, error) {
	var p domain.Pool
	var risk string

	err := row.Scan(
		&p.PoolID, &p.Chain, &p.Project, &p.Symbol, &p.TVLUsd,
		&p.APY, &p.APYBase, &p.APYReward, &p.Stablecoin, &p.ILExposure,
		&risk, &p.Score, &p.DataSource, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Risk = domain.RiskLevel(risk)
	return &p, nil
}
