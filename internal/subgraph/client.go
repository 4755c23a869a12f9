package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"poolSnapshots/internal/model"
)

const (
	defaultPageSize = 1000
	// defaultWindow keeps each timestamp window to roughly one year of daily entities.
	defaultWindow int64 = 366 * 86400
)

const userBalanceSnapshotsQuery = `
query UserBalanceSnapshots($user: String!, $cursor: Int!, $to: Int!, $first: Int!) {
  snapshots: userBalanceSnapshots(
    first: $first
    orderBy: timestamp
    orderDirection: asc
    where: { user: $user, timestamp_gt: $cursor, timestamp_lte: $to }
  ) {
    id
    timestamp
    user { id }
    walletTokens
    walletBalances
    gauges
    gaugeBalances
    farms
    farmBalances
  }
}`

const poolSnapshotsQuery = `
query PoolSnapshots($pool: String!, $cursor: Int!, $to: Int!, $first: Int!) {
  snapshots: poolSnapshots(
    first: $first
    orderBy: timestamp
    orderDirection: asc
    where: { pool: $pool, timestamp_gt: $cursor, timestamp_lte: $to }
  ) {
    id
    timestamp
    totalShares
    swapVolume
    swapFees
    liquidity
    swapsCount
    holdersCount
  }
}`

const poolSnapshotBeforeQuery = `
query PoolSnapshotBefore($pool: String!, $before: Int!) {
  snapshots: poolSnapshots(
    first: 1
    orderBy: timestamp
    orderDirection: desc
    where: { pool: $pool, timestamp_lt: $before }
  ) {
    id
    timestamp
    totalShares
    swapVolume
    swapFees
    liquidity
    swapsCount
    holdersCount
  }
}`

// Config holds subgraph endpoints and paging settings.
type Config struct {
	UserBalanceURL string
	PoolURL        string
	PageSize       int
	WindowSeconds  int64
	MaxRetries     int
	RetryBackoff   time.Duration
	HTTPClient     *http.Client
}

// Client reads user balance and pool snapshots from subgraphs.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.WindowSeconds <= 0 {
		cfg.WindowSeconds = defaultWindow
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger}
}

// GetEventsForUser returns the balance change events of a user between two
// timestamps (inclusive), ascending.
func (c *Client) GetEventsForUser(ctx context.Context, userAddress string, fromTimestamp, toTimestamp int64) ([]model.BalanceEvent, error) {
	if c.cfg.UserBalanceURL == "" {
		return nil, fmt.Errorf("user balance subgraph url is required")
	}
	user := strings.ToLower(userAddress)

	var snapshots []UserBalanceSnapshot
	err := c.paginate(ctx, fromTimestamp, toTimestamp, func(ctx context.Context, cursor, to int64) (int64, int, error) {
		var page struct {
			Snapshots []UserBalanceSnapshot `json:"snapshots"`
		}
		vars := map[string]interface{}{"user": user, "cursor": cursor, "to": to, "first": c.cfg.PageSize}
		if err := c.query(ctx, c.cfg.UserBalanceURL, userBalanceSnapshotsQuery, vars, &page); err != nil {
			return 0, 0, err
		}
		snapshots = append(snapshots, page.Snapshots...)
		return lastTimestamp(len(page.Snapshots), func(i int) int64 { return page.Snapshots[i].Timestamp }), len(page.Snapshots), nil
	})
	if err != nil {
		return nil, fmt.Errorf("user balance snapshots: %w", err)
	}

	events := make([]model.BalanceEvent, 0, len(snapshots))
	for _, snap := range snapshots {
		events = append(events, toBalanceEvent(snap))
	}
	c.logger.Debug("user balance snapshots fetched", zap.String("user", user), zap.Int("count", len(events)))
	return events, nil
}

// GetPoolSnapshots returns the pool subgraph snapshots of a pool after fromTimestamp, ascending.
func (c *Client) GetPoolSnapshots(ctx context.Context, poolID string, fromTimestamp, toTimestamp int64) ([]PoolSnapshot, error) {
	if c.cfg.PoolURL == "" {
		return nil, fmt.Errorf("pool subgraph url is required")
	}

	var snapshots []PoolSnapshot
	err := c.paginate(ctx, fromTimestamp, toTimestamp, func(ctx context.Context, cursor, to int64) (int64, int, error) {
		var page struct {
			Snapshots []PoolSnapshot `json:"snapshots"`
		}
		vars := map[string]interface{}{"pool": poolID, "cursor": cursor, "to": to, "first": c.cfg.PageSize}
		if err := c.query(ctx, c.cfg.PoolURL, poolSnapshotsQuery, vars, &page); err != nil {
			return 0, 0, err
		}
		snapshots = append(snapshots, page.Snapshots...)
		return lastTimestamp(len(page.Snapshots), func(i int) int64 { return page.Snapshots[i].Timestamp }), len(page.Snapshots), nil
	})
	if err != nil {
		return nil, fmt.Errorf("pool snapshots: %w", err)
	}
	return snapshots, nil
}

// GetPoolSnapshotBefore returns the latest pool subgraph snapshot strictly
// before the timestamp, or nil when the pool has none.
func (c *Client) GetPoolSnapshotBefore(ctx context.Context, poolID string, before int64) (*PoolSnapshot, error) {
	if c.cfg.PoolURL == "" {
		return nil, fmt.Errorf("pool subgraph url is required")
	}

	var page struct {
		Snapshots []PoolSnapshot `json:"snapshots"`
	}
	vars := map[string]interface{}{"pool": poolID, "before": before}
	if err := c.query(ctx, c.cfg.PoolURL, poolSnapshotBeforeQuery, vars, &page); err != nil {
		return nil, fmt.Errorf("pool snapshot before %d: %w", before, err)
	}
	if len(page.Snapshots) == 0 {
		return nil, nil
	}
	return &page.Snapshots[0], nil
}

// paginate walks [from, to] page by page using the last timestamp seen as an
// exclusive cursor. A range with a start is cut into windows first; an open
// start is a single cursor walk.
func (c *Client) paginate(ctx context.Context, from, to int64, fetch func(ctx context.Context, cursor, to int64) (int64, int, error)) error {
	windows := []TimeRange{{From: from, To: to}}
	if from > 0 {
		var err error
		windows, err = SplitRange(from, to, c.cfg.WindowSeconds)
		if err != nil {
			return err
		}
	}
	for _, window := range windows {
		cursor := window.From - 1
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			last, n, err := fetch(ctx, cursor, window.To)
			if err != nil {
				return err
			}
			if n < c.cfg.PageSize || last <= cursor {
				break
			}
			cursor = last
		}
	}
	return nil
}

func (c *Client) query(ctx context.Context, url, query string, vars map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("marshal query: %w", err)
	}

	return c.withRetry(ctx, url, func(ctx context.Context) error {
		return c.post(ctx, url, body, out)
	})
}

func (c *Client) post(ctx context.Context, url string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("subgraph status %d", resp.StatusCode)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphQLError  `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("subgraph error: %s", envelope.Errors[0].Message)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func toBalanceEvent(snap UserBalanceSnapshot) model.BalanceEvent {
	return model.BalanceEvent{
		ID:             snap.ID,
		Timestamp:      snap.Timestamp,
		UserAddress:    strings.ToLower(snap.User.ID),
		WalletBalances: zipBalances(snap.WalletTokens, snap.WalletBalances),
		GaugeBalances:  zipBalances(snap.Gauges, snap.GaugeBalances),
		FarmBalances:   zipBalances(snap.Farms, snap.FarmBalances),
	}
}

func zipBalances(keys, values []string) map[string]string {
	out := make(map[string]string, len(keys))
	for i, key := range keys {
		value := "0"
		if i < len(values) {
			value = values[i]
		}
		out[strings.ToLower(key)] = value
	}
	return out
}

func lastTimestamp(n int, at func(int) int64) int64 {
	if n == 0 {
		return 0
	}
	return at(n - 1)
}
