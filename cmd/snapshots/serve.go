package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolSnapshots/internal/api"
	"poolSnapshots/internal/config"
	"poolSnapshots/internal/poolsync"
	"poolSnapshots/internal/price"
	"poolSnapshots/internal/scheduler"
	"poolSnapshots/internal/snapshot"
	"poolSnapshots/internal/subgraph"
)

func runServe(cmd *cobra.Command, _ []string) error {
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

	if cfg.UserSubgraphURL == "" {
		return fmt.Errorf("user subgraph url is required")
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

	subgraphCfg := subgraph.Config{
		UserBalanceURL: cfg.UserSubgraphURL,
		PoolURL:        cfg.PoolSubgraphURL,
		MaxRetries:     cfg.MaxRetries,
		RetryBackoff:   cfg.RetryBackoff,
	}
	poolSeries := snapshot.NewPoolSnapshotService(store, nil)
	service := snapshot.NewService(
		snapshot.Config{ProtocolFeePercent: cfg.ProtocolFeePercent},
		store,
		subgraph.NewClient(subgraphCfg, logger),
		poolSeries,
		store,
		logger,
	)

	var syncer scheduler.PoolSyncer
	if cfg.PoolSubgraphURL != "" {
		s, closeSyncer, err := newSyncer(ctx, poolsync.Config{PoolIDs: cfg.Pools, From: cfg.From}, subgraphCfg, cfg.RPCURL, cfg.StateFile, store, oracle, logger)
		if err != nil {
			return err
		}
		defer closeSyncer()
		syncer = s
	}

	sched := scheduler.NewScheduler(ctx, price.NewRefresher(oracle, store, oracle.BatchLimit(), logger), syncer, logger)
	if err := sched.RegisterAll(cfg.PriceCron, cfg.PoolSyncCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()
	if cfg.SyncOnStart {
		go sched.RunNow()
	}

	controller := api.NewController(service, poolSeries, store, oracle, store, logger)
	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           controller.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening",
			zap.String("listen", cfg.Listen),
			zap.Float64("protocol_fee_percent", cfg.ProtocolFeePercent),
			zap.Bool("pool_sync", syncer != nil),
			zap.Bool("redis_cache", cfg.Price.RedisAddr != ""),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	logger.Info("api stopped")
	return nil
}
