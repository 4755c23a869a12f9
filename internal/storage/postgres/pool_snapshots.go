package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"poolSnapshots/internal/model"
)

const poolSnapshotColumns = `id, pool_id, timestamp, total_shares, total_shares_num,
	share_price, fees24h, volume24h, total_liquidity, swaps_count, holders_count`

// FindPoolSnapshots returns pool snapshots from a timestamp on, ascending.
func (s *Store) FindPoolSnapshots(ctx context.Context, poolID string, fromTimestamp int64) ([]model.PoolSnapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+poolSnapshotColumns+`
		FROM pool_snapshots
		WHERE pool_id = $1 AND timestamp >= $2
		ORDER BY timestamp ASC
	`, poolID, fromTimestamp)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.PoolSnapshot, 0)
	for rows.Next() {
		snap, err := scanPoolSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// GetPoolSnapshot returns the snapshot of a pool at exactly timestamp.
func (s *Store) GetPoolSnapshot(ctx context.Context, poolID string, timestamp int64) (model.PoolSnapshot, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+poolSnapshotColumns+`
		FROM pool_snapshots
		WHERE pool_id = $1 AND timestamp = $2
	`, poolID, timestamp)
	return scanOptionalPoolSnapshot(row)
}

// UpsertPoolSnapshots inserts or updates daily pool snapshots.
func (s *Store) UpsertPoolSnapshots(ctx context.Context, snapshots []model.PoolSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		batch.Queue(`
			INSERT INTO pool_snapshots (
				id, pool_id, timestamp, total_shares, total_shares_num,
				share_price, fees24h, volume24h, total_liquidity, swaps_count, holders_count
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			ON CONFLICT (pool_id, timestamp)
			DO UPDATE SET
				total_shares = EXCLUDED.total_shares,
				total_shares_num = EXCLUDED.total_shares_num,
				share_price = EXCLUDED.share_price,
				fees24h = EXCLUDED.fees24h,
				volume24h = EXCLUDED.volume24h,
				total_liquidity = EXCLUDED.total_liquidity,
				swaps_count = EXCLUDED.swaps_count,
				holders_count = EXCLUDED.holders_count
		`,
			snap.ID,
			snap.PoolID,
			snap.Timestamp,
			snap.TotalShares,
			snap.TotalSharesNum,
			snap.SharePrice,
			snap.Fees24h,
			snap.Volume24h,
			snap.TotalLiquidity,
			snap.SwapsCount,
			snap.HoldersCount,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range snapshots {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func scanOptionalPoolSnapshot(row pgx.Row) (model.PoolSnapshot, bool, error) {
	snap, err := scanPoolSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PoolSnapshot{}, false, nil
		}
		return model.PoolSnapshot{}, false, err
	}
	return snap, true, nil
}

func scanPoolSnapshot(row pgx.Row) (model.PoolSnapshot, error) {
	var snap model.PoolSnapshot
	err := row.Scan(
		&snap.ID,
		&snap.PoolID,
		&snap.Timestamp,
		&snap.TotalShares,
		&snap.TotalSharesNum,
		&snap.SharePrice,
		&snap.Fees24h,
		&snap.Volume24h,
		&snap.TotalLiquidity,
		&snap.SwapsCount,
		&snap.HoldersCount,
	)
	return snap, err
}
