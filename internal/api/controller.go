package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"poolSnapshots/internal/model"
	"poolSnapshots/internal/price"
)

// UserSnapshots serves daily user pool snapshot series.
type UserSnapshots interface {
	GetUserSnapshotsForPool(ctx context.Context, userAddress, poolID string, r model.SnapshotRange) ([]model.UserPoolSnapshot, error)
	EnsureHistory(ctx context.Context, userAddress, poolID string) error
}

// PoolSnapshots serves daily pool snapshot series.
type PoolSnapshots interface {
	GetSnapshotsForPool(ctx context.Context, poolID string, r model.SnapshotRange) ([]model.PoolSnapshot, error)
}

// Pools resolves registered pools.
type Pools interface {
	GetPool(ctx context.Context, poolID string) (model.Pool, error)
}

// Prices resolves current and historical token prices.
type Prices interface {
	GetPrices(ctx context.Context, addresses []string) (map[string]model.TokenPrice, error)
	GetHistoricalPrices(ctx context.Context, address string, days int) ([]price.HistoricalPrice, error)
}

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Controller holds the dependencies of the query API handlers.
type Controller struct {
	Users      UserSnapshots
	PoolSeries PoolSnapshots
	Pools      Pools
	Prices     Prices
	DB         Pinger
	Logger     *zap.Logger
}

// NewController returns a controller; a nil logger is replaced by a no-op one.
func NewController(users UserSnapshots, poolSeries PoolSnapshots, pools Pools, prices Prices, db Pinger, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		Users:      users,
		PoolSeries: poolSeries,
		Pools:      pools,
		Prices:     prices,
		DB:         db,
		Logger:     logger,
	}
}

// NewRouter returns a router with every query route registered.
func (c *Controller) NewRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", c.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/users/{address}/pools/{poolId}/snapshots", c.HandleUserPoolSnapshots).Methods(http.MethodGet)
	r.HandleFunc("/users/{address}/pools/{poolId}/history", c.HandleEnsureHistory).Methods(http.MethodPost)
	r.HandleFunc("/pools/{poolId}/snapshots", c.HandlePoolSnapshots).Methods(http.MethodGet)
	r.HandleFunc("/tokens/prices", c.HandleTokenPrices).Methods(http.MethodGet)
	r.HandleFunc("/tokens/{address}/history", c.HandleTokenHistory).Methods(http.MethodGet)

	return r
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
