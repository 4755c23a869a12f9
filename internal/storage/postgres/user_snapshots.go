package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"poolSnapshots/internal/model"
)

// FindUserPoolSnapshots returns stored snapshots of a user in a pool from a
// timestamp on, ascending.
func (s *Store) FindUserPoolSnapshots(ctx context.Context, userAddress, poolID string, fromTimestamp int64) ([]model.UserPoolSnapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, timestamp, user_address, pool_id, pool_token,
			wallet_balance, gauge_balance, farm_balance, total_balance,
			percent_share, total_value_usd, fees24h
		FROM user_pool_balance_snapshots
		WHERE user_address = $1 AND pool_id = $2 AND timestamp >= $3
		ORDER BY timestamp ASC
	`, userAddress, poolID, fromTimestamp)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.UserPoolSnapshot, 0)
	for rows.Next() {
		var (
			snap                            model.UserPoolSnapshot
			wallet, gauge, farm, total      string
			percentShare, valueUSD, fees24h string
		)
		if err := rows.Scan(
			&snap.ID, &snap.Timestamp, &snap.UserAddress, &snap.PoolID, &snap.PoolToken,
			&wallet, &gauge, &farm, &total,
			&percentShare, &valueUSD, &fees24h,
		); err != nil {
			return nil, err
		}
		if err := parseDecimals(
			decimalField{"wallet_balance", wallet, &snap.WalletBalance},
			decimalField{"gauge_balance", gauge, &snap.GaugeBalance},
			decimalField{"farm_balance", farm, &snap.FarmBalance},
			decimalField{"total_balance", total, &snap.TotalBalance},
			decimalField{"total_value_usd", valueUSD, &snap.TotalValueUSD},
			decimalField{"fees24h", fees24h, &snap.Fees24h},
		); err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", snap.ID, err)
		}
		snap.PercentShare, err = strconv.ParseFloat(percentShare, 64)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: percent_share: %w", snap.ID, err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// InsertUserPoolSnapshots inserts snapshots in one batch; rows whose id already
// exists are skipped. Returns the number of inserted rows.
func (s *Store) InsertUserPoolSnapshots(ctx context.Context, snapshots []model.UserPoolSnapshot) (int64, error) {
	if len(snapshots) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		batch.Queue(`
			INSERT INTO user_pool_balance_snapshots (
				id, timestamp, user_address, pool_id, pool_token,
				wallet_balance, gauge_balance, farm_balance, total_balance,
				percent_share, total_value_usd, fees24h
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			ON CONFLICT (id) DO NOTHING
		`,
			snap.ID,
			snap.Timestamp,
			snap.UserAddress,
			snap.PoolID,
			snap.PoolToken,
			snap.WalletBalance.String(),
			snap.GaugeBalance.String(),
			snap.FarmBalance.String(),
			snap.TotalBalance.String(),
			strconv.FormatFloat(snap.PercentShare, 'f', -1, 64),
			snap.TotalValueUSD.String(),
			snap.Fees24h.String(),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	var inserted int64
	for range snapshots {
		tag, err := br.Exec()
		if err != nil {
			return inserted, err
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// UpsertUser makes sure a user row exists.
func (s *Store) UpsertUser(ctx context.Context, address string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (address, created_at) VALUES ($1, now())
		ON CONFLICT (address) DO NOTHING
	`, address)
	return err
}

type decimalField struct {
	name  string
	value string
	dst   *decimal.Decimal
}

func parseDecimals(fields ...decimalField) error {
	for _, f := range fields {
		if f.value == "" {
			*f.dst = decimal.Zero
			continue
		}
		d, err := decimal.NewFromString(f.value)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = d
	}
	return nil
}
