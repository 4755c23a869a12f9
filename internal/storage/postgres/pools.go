package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"poolSnapshots/internal/model"
)

const poolColumns = `id, address, name, staking_id, staking_type`

// GetPool returns a pool with its staking entity.
func (s *Store) GetPool(ctx context.Context, poolID string) (model.Pool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+poolColumns+` FROM pools WHERE id=$1`, poolID)
	pool, err := scanPool(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Pool{}, fmt.Errorf("pool %s: %w", poolID, model.ErrPoolNotFound)
		}
		return model.Pool{}, err
	}
	return pool, nil
}

// ListPools returns all registered pools ordered by id.
func (s *Store) ListPools(ctx context.Context) ([]model.Pool, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+poolColumns+` FROM pools ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pools := make([]model.Pool, 0)
	for rows.Next() {
		pool, err := scanPool(rows)
		if err != nil {
			return nil, err
		}
		pools = append(pools, pool)
	}
	return pools, rows.Err()
}

func scanPool(row pgx.Row) (model.Pool, error) {
	var pool model.Pool
	var stakingID, stakingType *string
	if err := row.Scan(&pool.ID, &pool.Address, &pool.Name, &stakingID, &stakingType); err != nil {
		return model.Pool{}, err
	}
	if stakingID != nil && *stakingID != "" {
		pool.Staking = &model.Staking{ID: *stakingID}
		if stakingType != nil {
			pool.Staking.Type = *stakingType
		}
	}
	return pool, nil
}
