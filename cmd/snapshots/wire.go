package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"poolSnapshots/internal/chain"
	"poolSnapshots/internal/config"
	"poolSnapshots/internal/poolsync"
	"poolSnapshots/internal/price"
	"poolSnapshots/internal/storage/postgres"
	"poolSnapshots/internal/subgraph"
)

func newOracle(ctx context.Context, cfg config.PriceConfig, store *postgres.Store, logger *zap.Logger) (*price.Oracle, func(), error) {
	var (
		cache   price.Cache
		cleanup = func() {}
	)
	if cfg.RedisAddr != "" {
		redisCache, err := price.NewRedisCache(ctx, cfg.RedisAddr, cfg.TTL, logger)
		if err != nil {
			return nil, nil, err
		}
		cache = redisCache
		cleanup = func() { _ = redisCache.Close() }
	} else {
		cache = price.NewMemoryCache(cfg.TTL, nil)
	}

	oracle := price.NewOracle(price.Config{
		BaseURL:            cfg.CoingeckoURL,
		PlatformID:         cfg.Platform,
		NativeAssetID:      cfg.NativeAssetID,
		NativeAssetAddress: cfg.NativeAssetAddress,
	}, store, cache, logger)

	return oracle, func() {
		oracle.Close()
		cleanup()
	}, nil
}

func newSyncer(ctx context.Context, syncCfg poolsync.Config, subgraphCfg subgraph.Config, rpcURL, stateFile string, store *postgres.Store, prices price.Source, logger *zap.Logger) (*poolsync.Syncer, func(), error) {
	cleanup := func() {}

	var supply poolsync.SupplyReader
	if rpcURL != "" {
		chainClient, err := chain.NewClient(ctx, rpcURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect rpc: %w", err)
		}
		supply = chainClient
		cleanup = chainClient.Close
	}

	var stateStore poolsync.StateStore
	if stateFile != "" {
		stateStore = &poolsync.FileStateStore{Path: stateFile}
	} else {
		stateStore = &poolsync.DBStateStore{Store: store}
	}

	source := subgraph.NewClient(subgraphCfg, logger)
	return poolsync.NewSyncer(syncCfg, source, store, stateStore, supply, prices, logger), cleanup, nil
}

func connectStore(ctx context.Context, dsn string) (*postgres.Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return store, nil
}
