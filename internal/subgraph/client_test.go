package subgraph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func userSnapshotFixtures() []UserBalanceSnapshot {
	return []UserBalanceSnapshot{
		{
			ID:             "s1",
			Timestamp:      100,
			User:           Entity{ID: "0xUSER"},
			WalletTokens:   []string{"0xPOOL"},
			WalletBalances: []string{"1.5"},
		},
		{
			ID:            "s2",
			Timestamp:     200,
			User:          Entity{ID: "0xUSER"},
			Gauges:        []string{"Gauge-1"},
			GaugeBalances: []string{"2"},
			Farms:         []string{"farm-1", "farm-2"},
			FarmBalances:  []string{"3"},
		},
		{ID: "s3", Timestamp: 300, User: Entity{ID: "0xUSER"}},
	}
}

func newSubgraphServer(t *testing.T, fixtures []UserBalanceSnapshot, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "0xuser", req.Variables["user"])

		cursor := int64(req.Variables["cursor"].(float64))
		to := int64(req.Variables["to"].(float64))
		first := int(req.Variables["first"].(float64))

		page := make([]UserBalanceSnapshot, 0)
		for _, snap := range fixtures {
			if snap.Timestamp > cursor && snap.Timestamp <= to && len(page) < first {
				page = append(page, snap)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{"snapshots": page},
		})
	}))
}

func TestGetEventsForUserPages(t *testing.T) {
	var calls int32
	srv := newSubgraphServer(t, userSnapshotFixtures(), &calls)
	defer srv.Close()

	client := NewClient(Config{UserBalanceURL: srv.URL, PageSize: 2}, zaptest.NewLogger(t))
	events, err := client.GetEventsForUser(context.Background(), "0xUser", 0, 1000)
	require.NoError(t, err)

	require.Len(t, events, 3)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
	require.Equal(t, "s1", events[0].ID)
	require.Equal(t, "0xuser", events[0].UserAddress)
	require.Equal(t, map[string]string{"0xpool": "1.5"}, events[0].WalletBalances)
	require.Equal(t, map[string]string{"gauge-1": "2"}, events[1].GaugeBalances)
	require.Equal(t, map[string]string{"farm-1": "3", "farm-2": "0"}, events[1].FarmBalances)
	require.Empty(t, events[2].WalletBalances)
}

func TestGetEventsForUserWindows(t *testing.T) {
	var calls int32
	srv := newSubgraphServer(t, userSnapshotFixtures(), &calls)
	defer srv.Close()

	client := NewClient(Config{UserBalanceURL: srv.URL, PageSize: 10, WindowSeconds: 150}, zaptest.NewLogger(t))
	events, err := client.GetEventsForUser(context.Background(), "0xuser", 1, 299)
	require.NoError(t, err)

	require.Len(t, events, 2)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetEventsForUserFullHistoryIsOneCursorWalk(t *testing.T) {
	var calls int32
	srv := newSubgraphServer(t, nil, &calls)
	defer srv.Close()

	client := NewClient(Config{UserBalanceURL: srv.URL}, zaptest.NewLogger(t))
	events, err := client.GetEventsForUser(context.Background(), "0xuser", 0, time.Now().Unix())
	require.NoError(t, err)
	require.Empty(t, events)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls), "history from the epoch is not split into windows")
}

func TestGetPoolSnapshotBefore(t *testing.T) {
	rows := []PoolSnapshot{
		{ID: "p1", Timestamp: 100, SwapFees: "10"},
		{ID: "p2", Timestamp: 200, SwapFees: "12"},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Contains(t, req.Query, "timestamp_lt")
		require.Equal(t, "pool-1", req.Variables["pool"])
		before := int64(req.Variables["before"].(float64))

		page := make([]PoolSnapshot, 0, 1)
		for i := len(rows) - 1; i >= 0; i-- {
			if rows[i].Timestamp < before {
				page = append(page, rows[i])
				break
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{"snapshots": page},
		})
	}))
	defer srv.Close()

	client := NewClient(Config{PoolURL: srv.URL}, zaptest.NewLogger(t))
	ctx := context.Background()

	got, err := client.GetPoolSnapshotBefore(ctx, "pool-1", 1000)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "p2", got.ID)

	got, err = client.GetPoolSnapshotBefore(ctx, "pool-1", 200)
	require.NoError(t, err)
	require.Equal(t, "p1", got.ID)

	got, err = client.GetPoolSnapshotBefore(ctx, "pool-1", 100)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestQueryRetriesAndSurfacesErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]string{{"message": "indexing error"}},
		})
	}))
	defer srv.Close()

	client := NewClient(Config{PoolURL: srv.URL, MaxRetries: 1, RetryBackoff: time.Millisecond}, zaptest.NewLogger(t))
	_, err := client.GetPoolSnapshots(context.Background(), "pool-1", 0, 10)
	require.Error(t, err)
	require.Contains(t, err.Error(), "indexing error")
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestQueryLogsEachRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	client := NewClient(Config{PoolURL: srv.URL, MaxRetries: 2, RetryBackoff: time.Millisecond}, zap.New(core))
	_, err := client.GetPoolSnapshots(context.Background(), "pool-1", 0, 10)
	require.Error(t, err)

	retries := logs.FilterMessage("subgraph query retry").All()
	require.Len(t, retries, 2)
	require.Equal(t, int64(1), retries[0].ContextMap()["attempt"])
	require.Equal(t, int64(2), retries[1].ContextMap()["attempt"])
	failed := logs.FilterMessage("subgraph query failed").All()
	require.Len(t, failed, 1)
	require.Equal(t, int64(3), failed[0].ContextMap()["attempts"])
}

func TestRetryStopsOnCancel(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	client := NewClient(Config{PoolURL: srv.URL, MaxRetries: 10, RetryBackoff: time.Hour}, zaptest.NewLogger(t))
	_, err := client.GetPoolSnapshots(ctx, "pool-1", 0, 10)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMissingURL(t *testing.T) {
	client := NewClient(Config{}, nil)
	_, err := client.GetEventsForUser(context.Background(), "0xuser", 0, 10)
	require.Error(t, err)
}
