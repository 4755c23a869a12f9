package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"poolSnapshots/internal/model"
	"poolSnapshots/internal/price"
)

type stubUsers struct {
	gotUser  string
	gotPool  string
	gotRange model.SnapshotRange
	series   []model.UserPoolSnapshot
	err      error
	ensured  int
}

func (s *stubUsers) EnsureHistory(_ context.Context, user, poolID string) error {
	s.gotUser, s.gotPool = user, poolID
	s.ensured++
	return s.err
}

func (s *stubUsers) GetUserSnapshotsForPool(_ context.Context, user, poolID string, r model.SnapshotRange) ([]model.UserPoolSnapshot, error) {
	s.gotUser, s.gotPool, s.gotRange = user, poolID, r
	return s.series, s.err
}

type stubPoolSeries []model.PoolSnapshot

func (s stubPoolSeries) GetSnapshotsForPool(context.Context, string, model.SnapshotRange) ([]model.PoolSnapshot, error) {
	return s, nil
}

type stubPools map[string]model.Pool

func (s stubPools) GetPool(_ context.Context, poolID string) (model.Pool, error) {
	p, ok := s[poolID]
	if !ok {
		return model.Pool{}, fmt.Errorf("pool %s: %w", poolID, model.ErrPoolNotFound)
	}
	return p, nil
}

type stubPrices struct {
	got     []string
	err     error
	address string
	days    int
}

func (s *stubPrices) GetHistoricalPrices(_ context.Context, address string, days int) ([]price.HistoricalPrice, error) {
	s.address, s.days = address, days
	if s.err != nil {
		return nil, s.err
	}
	return []price.HistoricalPrice{{Timestamp: 1_700_006_400_000, Price: 1.25}}, nil
}

func (s *stubPrices) GetPrices(_ context.Context, addresses []string) (map[string]model.TokenPrice, error) {
	s.got = addresses
	if s.err != nil {
		return nil, s.err
	}
	out := map[string]model.TokenPrice{}
	for _, a := range addresses {
		out[a] = model.TokenPrice{Address: a, USD: 1}
	}
	return out, nil
}

type stubDB struct{ err error }

func (s stubDB) Ping(context.Context) error { return s.err }

func serve(t *testing.T, c *Controller, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	c.NewRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandleUserPoolSnapshots(t *testing.T) {
	users := &stubUsers{series: []model.UserPoolSnapshot{{
		ID:           "0xpool-0xuser-ev-1",
		Timestamp:    1_700_006_400,
		TotalBalance: decimal.RequireFromString("100"),
		PercentShare: 0.1,
	}}}
	c := NewController(users, nil, nil, nil, nil, zaptest.NewLogger(t))

	rec := serve(t, c, "/users/0xUSER/pools/pool-1/snapshots?range=ninety_days")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "0xUSER", users.gotUser)
	require.Equal(t, "pool-1", users.gotPool)
	require.Equal(t, model.RangeNinetyDays, users.gotRange)

	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	require.Equal(t, "0xpool-0xuser-ev-1", body[0]["id"])
}

func TestHandleUserPoolSnapshotsDefaultsRange(t *testing.T) {
	users := &stubUsers{series: []model.UserPoolSnapshot{}}
	c := NewController(users, nil, nil, nil, nil, nil)

	rec := serve(t, c, "/users/0xuser/pools/pool-1/snapshots")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, model.RangeThirtyDays, users.gotRange)
	require.JSONEq(t, "[]", rec.Body.String())
}

func TestHandleUserPoolSnapshotsErrors(t *testing.T) {
	users := &stubUsers{}
	c := NewController(users, nil, nil, nil, nil, zaptest.NewLogger(t))

	rec := serve(t, c, "/users/0xuser/pools/pool-1/snapshots?range=FOREVER")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, users.gotPool, "service is not called for a bad range")

	users.err = fmt.Errorf("get pool: %w", model.ErrPoolNotFound)
	rec = serve(t, c, "/users/0xuser/pools/missing/snapshots")
	require.Equal(t, http.StatusNotFound, rec.Code)

	users.err = errors.New("subgraph down")
	rec = serve(t, c, "/users/0xuser/pools/pool-1/snapshots")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "subgraph down")
}

func TestHandleEnsureHistory(t *testing.T) {
	users := &stubUsers{}
	c := NewController(users, nil, nil, nil, nil, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	c.NewRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users/0xuser/pools/pool-1/history", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, 1, users.ensured)
	require.Equal(t, "pool-1", users.gotPool)

	users.err = fmt.Errorf("get pool: %w", model.ErrPoolNotFound)
	rec = httptest.NewRecorder()
	c.NewRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users/0xuser/pools/missing/history", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, c, "/users/0xuser/pools/pool-1/history")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandlePoolSnapshots(t *testing.T) {
	series := stubPoolSeries{{ID: "pool-1-1700006400", PoolID: "pool-1", Timestamp: 1_700_006_400}}
	c := NewController(nil, series, stubPools{"pool-1": {ID: "pool-1"}}, nil, nil, zaptest.NewLogger(t))

	rec := serve(t, c, "/pools/pool-1/snapshots?range=ALL_TIME")
	require.Equal(t, http.StatusOK, rec.Code)
	var body []model.PoolSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, []model.PoolSnapshot(series), body)

	rec = serve(t, c, "/pools/pool-9/snapshots")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleTokenPrices(t *testing.T) {
	prices := &stubPrices{}
	c := NewController(nil, nil, nil, prices, nil, zaptest.NewLogger(t))

	rec := serve(t, c, "/tokens/prices?address=0xa,%200xb&address=0xc")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"0xa", "0xb", "0xc"}, prices.got)

	rec = serve(t, c, "/tokens/prices")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	prices.err = fmt.Errorf("fetch: %w", price.ErrRateBudgetExceeded)
	rec = serve(t, c, "/tokens/prices?address=0xa")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHandleTokenHistory(t *testing.T) {
	prices := &stubPrices{}
	c := NewController(nil, nil, nil, prices, nil, zaptest.NewLogger(t))

	rec := serve(t, c, "/tokens/0xabc/history?days=7")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "0xabc", prices.address)
	require.Equal(t, 7, prices.days)
	require.JSONEq(t, `[{"timestamp":1700006400000,"price":1.25}]`, rec.Body.String())

	rec = serve(t, c, "/tokens/0xabc/history")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 30, prices.days)

	for _, days := range []string{"0", "366", "week"} {
		rec = serve(t, c, "/tokens/0xabc/history?days="+days)
		require.Equal(t, http.StatusBadRequest, rec.Code, days)
	}

	prices.err = fmt.Errorf("fetch: %w", price.ErrRateBudgetExceeded)
	rec = serve(t, c, "/tokens/0xabc/history")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = serve(t, NewController(nil, nil, nil, nil, nil, nil), "/tokens/0xabc/history")
	require.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	rec := serve(t, NewController(nil, nil, nil, nil, stubDB{}, nil), "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, NewController(nil, nil, nil, nil, stubDB{err: errors.New("down")}, nil), "/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
