package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// SyncConfig holds configuration for the sync-pools command.
type SyncConfig struct {
	PGDSN           string
	PoolSubgraphURL string
	RPCURL          string
	Price           PriceConfig
	Pools           []string
	StateFile       string
	From            int64
	BatchSize       int
	MaxRetries      int
	RetryBackoff    time.Duration
	LogLevel        string
}

// LoadSync merges config file, environment variables, and flags into SyncConfig.
func LoadSync(cfgFile string, flags *pflag.FlagSet) (SyncConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("batch-size", 500)
	})
	if err != nil {
		return SyncConfig{}, err
	}

	from, err := ParseTimestamp(v.GetString("from"))
	if err != nil {
		return SyncConfig{}, fmt.Errorf("parse from: %w", err)
	}

	cfg := SyncConfig{
		PGDSN:           v.GetString("pg-dsn"),
		PoolSubgraphURL: v.GetString("pool-subgraph-url"),
		RPCURL:          v.GetString("rpc"),
		Price:           priceConfig(v),
		Pools:           getStringSlice(v, "pools"),
		StateFile:       v.GetString("state-file"),
		From:            from,
		BatchSize:       v.GetInt("batch-size"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		LogLevel:        v.GetString("log-level"),
	}

	return cfg, nil
}
