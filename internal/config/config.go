package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "SNAPSHOTS"

// PriceConfig holds Coingecko and price cache settings.
type PriceConfig struct {
	CoingeckoURL       string
	Platform           string
	NativeAssetID      string
	NativeAssetAddress string
	RedisAddr          string
	TTL                time.Duration
}

// Config holds configuration for the serve command.
type Config struct {
	PGDSN              string
	UserSubgraphURL    string
	PoolSubgraphURL    string
	RPCURL             string
	ProtocolFeePercent float64
	Listen             string
	Price              PriceConfig
	PriceCron          string
	PoolSyncCron       string
	SyncOnStart        bool
	Pools              []string
	StateFile          string
	From               int64
	MaxRetries         int
	RetryBackoff       time.Duration
	LogLevel           string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("listen", ":8080")
		v.SetDefault("price-cron", "0 */15 * * * *")
		v.SetDefault("pool-sync-cron", "0 5 * * * *")
	})
	if err != nil {
		return Config{}, err
	}

	from, err := ParseTimestamp(v.GetString("from"))
	if err != nil {
		return Config{}, fmt.Errorf("parse from: %w", err)
	}

	cfg := Config{
		PGDSN:              v.GetString("pg-dsn"),
		UserSubgraphURL:    v.GetString("user-subgraph-url"),
		PoolSubgraphURL:    v.GetString("pool-subgraph-url"),
		RPCURL:             v.GetString("rpc"),
		ProtocolFeePercent: v.GetFloat64("protocol-fee-percent"),
		Listen:             v.GetString("listen"),
		Price:              priceConfig(v),
		PriceCron:          v.GetString("price-cron"),
		PoolSyncCron:       v.GetString("pool-sync-cron"),
		SyncOnStart:        v.GetBool("sync-on-start"),
		Pools:              getStringSlice(v, "pools"),
		StateFile:          v.GetString("state-file"),
		From:               from,
		MaxRetries:         v.GetInt("max-retries"),
		RetryBackoff:       v.GetDuration("retry-backoff"),
		LogLevel:           v.GetString("log-level"),
	}

	return cfg, validateFee(cfg.ProtocolFeePercent)
}

func validateFee(fee float64) error {
	if fee < 0 || fee > 1 {
		return fmt.Errorf("protocol-fee-percent must be within [0, 1], got %v", fee)
	}
	return nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults func(v *viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("protocol-fee-percent", 0.25)
	v.SetDefault("coingecko-url", "https://api.coingecko.com/api/v3")
	v.SetDefault("coingecko-platform", "fantom")
	v.SetDefault("native-asset-id", "fantom")
	v.SetDefault("native-asset-address", "0x0000000000000000000000000000000000000000")
	v.SetDefault("price-ttl", 10*time.Minute)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")
	if defaults != nil {
		defaults(v)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func priceConfig(v *viper.Viper) PriceConfig {
	return PriceConfig{
		CoingeckoURL:       v.GetString("coingecko-url"),
		Platform:           v.GetString("coingecko-platform"),
		NativeAssetID:      v.GetString("native-asset-id"),
		NativeAssetAddress: v.GetString("native-asset-address"),
		RedisAddr:          v.GetString("redis-addr"),
		TTL:                v.GetDuration("price-ttl"),
	}
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (int64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, nil
	}

	if isNumeric(input) {
		return strconv.ParseInt(input, 10, 64)
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return tm.Unix(), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
