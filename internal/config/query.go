package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"poolSnapshots/internal/model"
)

// QueryConfig holds configuration for the query and export commands.
type QueryConfig struct {
	PGDSN              string
	UserSubgraphURL    string
	ProtocolFeePercent float64
	User               string
	PoolID             string
	Range              model.SnapshotRange
	Out                string
	MaxRetries         int
	RetryBackoff       time.Duration
	LogLevel           string
}

// LoadQuery merges config file, environment variables, and flags into QueryConfig.
func LoadQuery(cfgFile string, flags *pflag.FlagSet) (QueryConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("range", string(model.RangeThirtyDays))
		v.SetDefault("out", "./data/user_snapshots.jsonl")
	})
	if err != nil {
		return QueryConfig{}, err
	}

	rng, err := model.ParseSnapshotRange(v.GetString("range"))
	if err != nil {
		return QueryConfig{}, err
	}

	cfg := QueryConfig{
		PGDSN:              v.GetString("pg-dsn"),
		UserSubgraphURL:    v.GetString("user-subgraph-url"),
		ProtocolFeePercent: v.GetFloat64("protocol-fee-percent"),
		User:               v.GetString("user"),
		PoolID:             v.GetString("pool"),
		Range:              rng,
		Out:                v.GetString("out"),
		MaxRetries:         v.GetInt("max-retries"),
		RetryBackoff:       v.GetDuration("retry-backoff"),
		LogLevel:           v.GetString("log-level"),
	}
	if cfg.User == "" || cfg.PoolID == "" {
		return QueryConfig{}, fmt.Errorf("user and pool are required")
	}

	return cfg, validateFee(cfg.ProtocolFeePercent)
}
