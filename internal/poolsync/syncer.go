package poolsync

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"poolSnapshots/internal/model"
	"poolSnapshots/internal/price"
	"poolSnapshots/internal/snapshot"
	"poolSnapshots/internal/subgraph"
)

const statePrefix = "pool-sync:"

// Config controls pool snapshot syncing.
type Config struct {
	// PoolIDs limits the sync to these pools. Empty syncs every registered pool.
	PoolIDs []string
	// From is the first day synced for a pool without state.
	From      int64
	BatchSize int
	Now       func() time.Time
}

// SnapshotSource reads cumulative pool snapshots from the pool subgraph.
type SnapshotSource interface {
	GetPoolSnapshots(ctx context.Context, poolID string, fromTimestamp, toTimestamp int64) ([]subgraph.PoolSnapshot, error)
	// GetPoolSnapshotBefore returns the latest snapshot before the timestamp, nil if none.
	GetPoolSnapshotBefore(ctx context.Context, poolID string, before int64) (*subgraph.PoolSnapshot, error)
}

// Store reads pools and writes daily pool snapshots.
type Store interface {
	GetPool(ctx context.Context, poolID string) (model.Pool, error)
	ListPools(ctx context.Context) ([]model.Pool, error)
	GetPoolSnapshot(ctx context.Context, poolID string, timestamp int64) (model.PoolSnapshot, bool, error)
	UpsertPoolSnapshots(ctx context.Context, snapshots []model.PoolSnapshot) error
}

// SupplyReader reads the on-chain supply of a pool token.
type SupplyReader interface {
	TotalSupply(ctx context.Context, tokenAddr string) (decimal.Decimal, error)
}

// Syncer keeps the daily pool snapshot table complete up to today.
type Syncer struct {
	cfg    Config
	source SnapshotSource
	store  Store
	state  StateStore
	supply SupplyReader
	prices price.Source
	logger *zap.Logger
}

// NewSyncer builds a syncer. supply and prices are optional.
func NewSyncer(cfg Config, source SnapshotSource, store Store, state StateStore, supply SupplyReader, prices price.Source, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Syncer{
		cfg:    cfg,
		source: source,
		store:  store,
		state:  state,
		supply: supply,
		prices: prices,
		logger: logger,
	}
}

// Run syncs every configured pool.
func (s *Syncer) Run(ctx context.Context) error {
	if s.source == nil || s.store == nil {
		return fmt.Errorf("source and store are required")
	}
	pools, err := s.pools(ctx)
	if err != nil {
		return err
	}

	var total int
	for _, pool := range pools {
		n, err := s.SyncPool(ctx, pool)
		if err != nil {
			return fmt.Errorf("sync pool %s: %w", pool.ID, err)
		}
		total += n
	}

	s.logger.Info("pool sync complete", zap.Int("pools", len(pools)), zap.Int("rows", total))
	return nil
}

// SyncPool writes the pool's daily snapshots from its last completed day
// through today and returns the number of rows written. Today is rewritten on
// every run until the day is over.
func (s *Syncer) SyncPool(ctx context.Context, pool model.Pool) (int, error) {
	now := s.cfg.Now()
	today := snapshot.Today(now)
	name := statePrefix + pool.ID

	from := snapshot.StartOfDay(s.cfg.From)
	if s.state != nil {
		last, ok, err := s.state.Load(ctx, name)
		if err != nil {
			return 0, fmt.Errorf("load state: %w", err)
		}
		if ok {
			from = last + snapshot.OneDay
		}
	}
	if from > today {
		from = today
	}

	raw, err := s.source.GetPoolSnapshots(ctx, pool.ID, from, now.Unix())
	if err != nil {
		return 0, err
	}
	// Cumulative totals carry over quiet days, so the baseline is the last
	// entry before the window whatever its age.
	baseline, err := s.source.GetPoolSnapshotBefore(ctx, pool.ID, from)
	if err != nil {
		return 0, err
	}

	derived, err := DerivePoolSnapshots(pool.ID, raw, baseline)
	if err != nil {
		return 0, err
	}

	seed, hasSeed, err := s.store.GetPoolSnapshot(ctx, pool.ID, from-snapshot.OneDay)
	if err != nil {
		return 0, fmt.Errorf("load previous day: %w", err)
	}
	input := derived
	if hasSeed {
		input = append([]model.PoolSnapshot{seed}, derived...)
	}
	if len(input) == 0 {
		s.logger.Debug("no pool snapshots to sync", zap.String("pool_id", pool.ID), zap.Int64("from", from))
		return 0, nil
	}

	rows := snapshot.FillPoolSnapshots(input, today)
	if hasSeed {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return 0, nil
	}
	s.reconcile(ctx, pool, &rows[len(rows)-1])

	for start := 0; start < len(rows); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.store.UpsertPoolSnapshots(ctx, rows[start:end]); err != nil {
			return 0, fmt.Errorf("upsert pool snapshots: %w", err)
		}
	}

	if s.state != nil {
		if err := s.state.Save(ctx, name, today-snapshot.OneDay); err != nil {
			return 0, fmt.Errorf("save state: %w", err)
		}
	}

	s.logger.Info("pool snapshots synced",
		zap.String("pool_id", pool.ID),
		zap.Int64("from", from),
		zap.Int("fetched", len(raw)),
		zap.Int("rows", len(rows)),
	)
	return len(rows), nil
}

// reconcile overrides the latest day's share supply with the on-chain value and
// fills a missing share price from the price oracle.
func (s *Syncer) reconcile(ctx context.Context, pool model.Pool, row *model.PoolSnapshot) {
	if pool.Address == "" {
		return
	}

	if s.supply != nil {
		supply, err := s.supply.TotalSupply(ctx, pool.Address)
		if err != nil {
			s.logger.Warn("total supply read failed", zap.String("pool_id", pool.ID), zap.Error(err))
		} else {
			row.TotalShares = supply.String()
			row.TotalSharesNum = supply.InexactFloat64()
			if row.TotalLiquidity != nil && supply.IsPositive() {
				sharePrice := *row.TotalLiquidity / row.TotalSharesNum
				row.SharePrice = &sharePrice
			}
		}
	}

	if row.SharePrice != nil || s.prices == nil {
		return
	}
	prices, err := s.prices.GetPrices(ctx, []string{pool.Address})
	if err != nil {
		s.logger.Warn("share price lookup failed", zap.String("pool_id", pool.ID), zap.Error(err))
		return
	}
	p, ok := prices[price.ChecksumAddress(pool.Address)]
	if !ok {
		return
	}
	sharePrice := p.USD
	row.SharePrice = &sharePrice
	if row.TotalLiquidity == nil {
		tvl := sharePrice * row.TotalSharesNum
		row.TotalLiquidity = &tvl
	}
}

func (s *Syncer) pools(ctx context.Context) ([]model.Pool, error) {
	if len(s.cfg.PoolIDs) == 0 {
		pools, err := s.store.ListPools(ctx)
		if err != nil {
			return nil, fmt.Errorf("list pools: %w", err)
		}
		return pools, nil
	}
	pools := make([]model.Pool, 0, len(s.cfg.PoolIDs))
	for _, id := range s.cfg.PoolIDs {
		pool, err := s.store.GetPool(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get pool %s: %w", id, err)
		}
		pools = append(pools, pool)
	}
	return pools, nil
}
