package clickhouse

import (
	"context"
	"fmt"

	"apyhub/internal/domain"
	"apyhub/internal/storage"
)

// APYHistoryStore implements storage.APYHistoryStore using ClickHouse.
type APYHistoryStore struct {
	conn *Conn
}

// NewAPYHistoryStore creates a new APYHistoryStore.
func NewAPYHistoryStore(conn *Conn) *APYHistoryStore {
	return &APYHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.APYHistoryStore = (*APYHistoryStore)(nil)

// InsertBulk appends APY observations. Points without a pool id fail the
// entire batch with ErrInvalidInput.
func (s *APYHistoryStore) InsertBulk(ctx context.Context, points []*domain.APYPoint) error {
	for _, p := range points {
		if p == nil || p.PoolID == "" {
			return storage.ErrInvalidInput
		}
	}
	if len(points) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO apy_history (
			pool_id, apy, tvl_usd, timestamp_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(p.PoolID, p.APY, p.TVLUsd, uint64(p.TimestampMs))
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByPoolID retrieves points for a pool ordered by timestamp ASC.
// A positive limit keeps only the newest points.
func (s *APYHistoryStore) GetByPoolID(ctx context.Context, poolID string, limit int) ([]*domain.APYPoint, error) {
	query := `
		SELECT pool_id, apy, tvl_usd, timestamp_ms
		FROM apy_history
		WHERE pool_id = ?
		ORDER BY timestamp_ms ASC
	`
	args := []any{poolID}

	if limit > 0 {
		// Keep the newest N rows but return them oldest first.
		query = `
			SELECT pool_id, apy, tvl_usd, timestamp_ms
			FROM (
				SELECT pool_id, apy, tvl_usd, timestamp_ms
				FROM apy_history
				WHERE pool_id = ?
				ORDER BY timestamp_ms DESC
				LIMIT ?
			)
			ORDER BY timestamp_ms ASC
		`
		args = append(args, limit)
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query apy history by pool id: %w", err)
	}
	defer rows.Close()

	return scanAPYPoints(rows)
}

// scanAPYPoints scans multiple rows.
func scanAPYPoints(rows chRows) ([]*domain.APYPoint, error) {
	var points []*domain.APYPoint

	for rows.Next() {
		var p domain.APYPoint
		var timestampMs uint64

		if err := rows.Scan(&p.PoolID, &p.APY, &p.TVLUsd, &timestampMs); err != nil {
			return nil, fmt.Errorf("scan apy history row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate apy history rows: %w", err)
	}

	return points, nil
}
