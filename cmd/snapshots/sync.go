package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolSnapshots/internal/config"
	"poolSnapshots/internal/poolsync"
	"poolSnapshots/internal/price"
	"poolSnapshots/internal/subgraph"
)

func runSyncPools(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSync(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PoolSubgraphURL == "" {
		return fmt.Errorf("pool subgraph url is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := connectStore(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	oracle, closeOracle, err := newOracle(ctx, cfg.Price, store, logger)
	if err != nil {
		return err
	}
	defer closeOracle()

	syncer, closeSyncer, err := newSyncer(ctx,
		poolsync.Config{PoolIDs: cfg.Pools, From: cfg.From, BatchSize: cfg.BatchSize},
		subgraph.Config{PoolURL: cfg.PoolSubgraphURL, MaxRetries: cfg.MaxRetries, RetryBackoff: cfg.RetryBackoff},
		cfg.RPCURL, cfg.StateFile, store, oracle, logger)
	if err != nil {
		return err
	}
	defer closeSyncer()

	logger.Info("pool sync start",
		zap.Strings("pools", cfg.Pools),
		zap.Int64("from", cfg.From),
		zap.Bool("on_chain_supply", cfg.RPCURL != ""),
		zap.String("state_file", cfg.StateFile),
	)
	return syncer.Run(ctx)
}

func runRefreshPrices(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
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

	store, err := connectStore(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	oracle, closeOracle, err := newOracle(ctx, cfg.Price, store, logger)
	if err != nil {
		return err
	}
	defer closeOracle()

	_, err = price.NewRefresher(oracle, store, oracle.BatchLimit(), logger).Refresh(ctx)
	return err
}
