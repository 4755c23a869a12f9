package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "snapshots",
		Short:        "Daily user and pool snapshot backend",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query API and run scheduled jobs",
		RunE:  runServe,
	}

	serveCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	serveCmd.Flags().String("user-subgraph-url", "", "user balance subgraph URL")
	serveCmd.Flags().String("pool-subgraph-url", "", "pool subgraph URL")
	serveCmd.Flags().String("rpc", "", "RPC URL for on-chain share supply (optional)")
	serveCmd.Flags().Float64("protocol-fee-percent", 0.25, "fraction of swap fees kept by the protocol")
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	addPriceFlags(serveCmd)
	serveCmd.Flags().String("price-cron", "0 */15 * * * *", "price refresh schedule (with seconds, empty disables)")
	serveCmd.Flags().String("pool-sync-cron", "0 5 * * * *", "pool sync schedule (with seconds, empty disables)")
	serveCmd.Flags().Bool("sync-on-start", false, "run pool sync and price refresh once at startup")
	serveCmd.Flags().StringSlice("pools", nil, "pool ids to sync (comma-separated, default all)")
	serveCmd.Flags().String("state-file", "", "optional local state file for pool sync progress")
	serveCmd.Flags().String("from", "", "first day to sync for new pools (unix seconds or RFC3339)")
	addCommonFlags(serveCmd)

	root.AddCommand(serveCmd)

	syncCmd := &cobra.Command{
		Use:   "sync-pools",
		Short: "Sync daily pool snapshots from the pool subgraph",
		RunE:  runSyncPools,
	}

	syncCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	syncCmd.Flags().String("pool-subgraph-url", "", "pool subgraph URL")
	syncCmd.Flags().String("rpc", "", "RPC URL for on-chain share supply (optional)")
	addPriceFlags(syncCmd)
	syncCmd.Flags().StringSlice("pools", nil, "pool ids to sync (comma-separated, default all)")
	syncCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	syncCmd.Flags().String("from", "", "first day to sync for new pools (unix seconds or RFC3339)")
	syncCmd.Flags().Int("batch-size", 500, "batch size for DB writes")
	addCommonFlags(syncCmd)

	root.AddCommand(syncCmd)

	pricesCmd := &cobra.Command{
		Use:   "refresh-prices",
		Short: "Store current prices of every defined token",
		RunE:  runRefreshPrices,
	}

	pricesCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	addPriceFlags(pricesCmd)
	addCommonFlags(pricesCmd)

	root.AddCommand(pricesCmd)

	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Print a user's daily snapshots for a pool",
		RunE:  runQuery,
	}
	addQueryFlags(queryCmd)
	root.AddCommand(queryCmd)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Append a user's daily snapshots for a pool to a JSONL file",
		RunE:  runExport,
	}
	addQueryFlags(exportCmd)
	exportCmd.Flags().String("out", "./data/user_snapshots.jsonl", "output JSONL path")
	root.AddCommand(exportCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addPriceFlags(cmd *cobra.Command) {
	cmd.Flags().String("coingecko-url", "https://api.coingecko.com/api/v3", "Coingecko API base URL")
	cmd.Flags().String("coingecko-platform", "fantom", "default Coingecko platform id")
	cmd.Flags().String("native-asset-id", "fantom", "Coingecko id of the native asset")
	cmd.Flags().String("native-asset-address", "0x0000000000000000000000000000000000000000", "address standing for the native asset")
	cmd.Flags().String("redis-addr", "", "redis address for the price cache (default in-memory)")
	cmd.Flags().Duration("price-ttl", 10*time.Minute, "price cache TTL")
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("user-subgraph-url", "", "user balance subgraph URL")
	cmd.Flags().Float64("protocol-fee-percent", 0.25, "fraction of swap fees kept by the protocol")
	cmd.Flags().String("user", "", "user address")
	cmd.Flags().String("pool", "", "pool id")
	cmd.Flags().String("range", "THIRTY_DAYS", "THIRTY_DAYS, NINETY_DAYS, ONE_HUNDRED_EIGHTY_DAYS, ONE_YEAR or ALL_TIME")
	addCommonFlags(cmd)
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

var buildLogger = newLogger

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
