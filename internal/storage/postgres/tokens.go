package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"poolSnapshots/internal/model"
)

// ListTokenDefinitions returns all known tokens with their price provider overrides.
func (s *Store) ListTokenDefinitions(ctx context.Context) ([]model.TokenDefinition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address, symbol, COALESCE(coingecko_platform_id, ''), COALESCE(coingecko_contract_address, '')
		FROM token_definitions
		ORDER BY address
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	defs := make([]model.TokenDefinition, 0)
	for rows.Next() {
		var def model.TokenDefinition
		if err := rows.Scan(&def.Address, &def.Symbol, &def.CoingeckoPlatformID, &def.CoingeckoContractAddress); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// UpsertTokenPrices stores prices keyed by address and timestamp.
func (s *Store) UpsertTokenPrices(ctx context.Context, prices []model.TokenPrice) error {
	if len(prices) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range prices {
		batch.Queue(`
			INSERT INTO token_prices (address, timestamp, price)
			VALUES ($1, $2, $3)
			ON CONFLICT (address, timestamp) DO UPDATE SET price = EXCLUDED.price
		`, p.Address, p.Timestamp, p.USD)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range prices {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
