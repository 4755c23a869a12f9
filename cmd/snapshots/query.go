package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolSnapshots/internal/config"
	"poolSnapshots/internal/model"
	"poolSnapshots/internal/snapshot"
	"poolSnapshots/internal/storage"
	"poolSnapshots/internal/subgraph"
)

func runQuery(cmd *cobra.Command, _ []string) error {
	return withUserSeries(cmd, func(_ config.QueryConfig, _ *zap.Logger, series []model.UserPoolSnapshot) error {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(series)
	})
}

func runExport(cmd *cobra.Command, _ []string) error {
	return withUserSeries(cmd, func(cfg config.QueryConfig, logger *zap.Logger, series []model.UserPoolSnapshot) error {
		var sink storage.Storage = storage.NewJsonlStorage(cfg.Out)
		if err := sink.PutSnapshotBatch(series); err != nil {
			return err
		}
		logger.Info("user snapshots exported",
			zap.String("user", cfg.User),
			zap.String("pool_id", cfg.PoolID),
			zap.Int("rows", len(series)),
			zap.String("out", cfg.Out),
		)
		return nil
	})
}

// withUserSeries loads the configured user's series and hands it to fn. The
// logger is synced on every return path.
func withUserSeries(cmd *cobra.Command, fn func(cfg config.QueryConfig, logger *zap.Logger, series []model.UserPoolSnapshot) error) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuery(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	series, err := loadUserSeries(ctx, cfg, logger)
	if err != nil {
		logger.Error("load user snapshots failed",
			zap.String("user", cfg.User),
			zap.String("pool_id", cfg.PoolID),
			zap.Error(err),
		)
		return err
	}
	return fn(cfg, logger, series)
}

func loadUserSeries(ctx context.Context, cfg config.QueryConfig, logger *zap.Logger) ([]model.UserPoolSnapshot, error) {
	store, err := connectStore(ctx, cfg.PGDSN)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	events := subgraph.NewClient(subgraph.Config{
		UserBalanceURL: cfg.UserSubgraphURL,
		MaxRetries:     cfg.MaxRetries,
		RetryBackoff:   cfg.RetryBackoff,
	}, logger)
	service := snapshot.NewService(
		snapshot.Config{ProtocolFeePercent: cfg.ProtocolFeePercent},
		store,
		events,
		snapshot.NewPoolSnapshotService(store, nil),
		store,
		logger,
	)

	return service.GetUserSnapshotsForPool(ctx, cfg.User, cfg.PoolID, cfg.Range)
}
