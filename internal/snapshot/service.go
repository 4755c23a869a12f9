package snapshot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"poolSnapshots/internal/model"
)

const bootstrapTimeout = 5 * time.Minute

// Config controls user snapshot assembly.
type Config struct {
	// ProtocolFeePercent is the fraction of swap fees kept by the protocol.
	ProtocolFeePercent float64
	Now                func() time.Time
}

// Service builds daily user pool snapshot series.
type Service struct {
	cfg           Config
	pools         PoolRegistry
	events        BalanceEventSource
	poolSnapshots PoolSnapshotProvider
	repo          Repository
	logger        *zap.Logger
	bootstraps    singleflight.Group
}

func NewService(cfg Config, pools PoolRegistry, events BalanceEventSource, poolSnapshots PoolSnapshotProvider, repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		cfg:           cfg,
		pools:         pools,
		events:        events,
		poolSnapshots: poolSnapshots,
		repo:          repo,
		logger:        logger,
	}
}

// GetUserSnapshotsForPool returns one snapshot per day for the user position in
// the pool over the range, bootstrapping stored history on first use.
func (s *Service) GetUserSnapshotsForPool(ctx context.Context, userAddress, poolID string, r model.SnapshotRange) ([]model.UserPoolSnapshot, error) {
	user := normalizeAddress(userAddress)
	now := s.cfg.Now()

	cutoff, err := RangeCutoff(r, now)
	if err != nil {
		return nil, err
	}

	pool, err := s.pools.GetPool(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("get pool %s: %w", poolID, err)
	}

	stored, err := s.repo.FindUserPoolSnapshots(ctx, user, poolID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("find user snapshots: %w", err)
	}

	if len(stored) == 0 {
		if err := s.ensureHistory(ctx, pool, user); err != nil {
			return nil, err
		}
		stored, err = s.repo.FindUserPoolSnapshots(ctx, user, poolID, cutoff)
		if err != nil {
			return nil, fmt.Errorf("find user snapshots: %w", err)
		}
		if len(stored) == 0 {
			return []model.UserPoolSnapshot{}, nil
		}
	}

	poolSnapshots, err := s.poolSnapshots.GetSnapshotsForPool(ctx, poolID, r)
	if err != nil {
		return nil, fmt.Errorf("pool snapshots: %w", err)
	}

	series := FillUserSnapshots(stored, poolSnapshots, Today(now), s.cfg.ProtocolFeePercent)
	s.logger.Debug("user snapshots assembled",
		zap.String("user", user),
		zap.String("pool_id", poolID),
		zap.String("range", string(r)),
		zap.Int("stored", len(stored)),
		zap.Int("returned", len(series)),
	)
	return series, nil
}

// EnsureHistory loads and persists the user's history for the pool when none is stored yet.
func (s *Service) EnsureHistory(ctx context.Context, userAddress, poolID string) error {
	pool, err := s.pools.GetPool(ctx, poolID)
	if err != nil {
		return fmt.Errorf("get pool %s: %w", poolID, err)
	}
	return s.ensureHistory(ctx, pool, normalizeAddress(userAddress))
}

// ensureHistory shares one bootstrap between concurrent callers for the same
// user and pool. The bootstrap runs detached from the caller that started it;
// each caller still returns on its own cancellation.
func (s *Service) ensureHistory(ctx context.Context, pool model.Pool, user string) error {
	key := pool.ID + "|" + user
	ch := s.bootstraps.DoChan(key, func() (interface{}, error) {
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bootstrapTimeout)
		defer cancel()

		existing, err := s.repo.FindUserPoolSnapshots(bctx, user, pool.ID, 0)
		if err != nil {
			return nil, fmt.Errorf("find user snapshots: %w", err)
		}
		if len(existing) > 0 {
			return nil, nil
		}
		return nil, s.bootstrap(bctx, pool, user)
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (s *Service) bootstrap(ctx context.Context, pool model.Pool, user string) error {
	events, err := s.events.GetEventsForUser(ctx, user, 0, s.cfg.Now().Unix())
	if err != nil {
		return fmt.Errorf("fetch balance events: %w", err)
	}

	relevant := LatestPerDay(RelevantEvents(pool, events))
	if len(relevant) == 0 {
		s.logger.Debug("no balance events for pool", zap.String("user", user), zap.String("pool_id", pool.ID))
		return nil
	}

	rows, err := s.enrich(ctx, pool, user, relevant)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	if err := s.repo.UpsertUser(ctx, user); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	inserted, err := s.repo.InsertUserPoolSnapshots(ctx, rows)
	if err != nil {
		return fmt.Errorf("insert user snapshots: %w", err)
	}

	s.logger.Info("user snapshots bootstrapped",
		zap.String("user", user),
		zap.String("pool_id", pool.ID),
		zap.Int("events", len(relevant)),
		zap.Int("rows", len(rows)),
		zap.Int64("inserted", inserted),
	)
	return nil
}

func (s *Service) enrich(ctx context.Context, pool model.Pool, user string, events []model.BalanceEvent) ([]model.UserPoolSnapshot, error) {
	rows := make([]model.UserPoolSnapshot, 0, len(events))
	var skipped int
	for _, event := range events {
		poolSnapshot, ok, err := s.poolSnapshots.GetSnapshotForPool(ctx, pool.ID, event.Timestamp)
		if err != nil {
			return nil, err
		}
		if !ok {
			skipped++
			continue
		}

		row, err := NewUserPoolSnapshot(pool, user, event, poolSnapshot, s.cfg.ProtocolFeePercent)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", event.ID, err)
		}
		rows = append(rows, row)
	}
	if skipped > 0 {
		s.logger.Debug("balance events without pool snapshot",
			zap.String("user", user),
			zap.String("pool_id", pool.ID),
			zap.Int("skipped", skipped),
		)
	}
	return rows, nil
}
