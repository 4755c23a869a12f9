package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"poolSnapshots/internal/model"
	"poolSnapshots/internal/price"
)

const (
	defaultRange       = model.RangeThirtyDays
	defaultHistoryDays = 30
	maxHistoryDays     = 365
)

// HandleHealth reports whether the database answers.
// GET /health
func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if c.DB != nil {
		if err := c.DB.Ping(r.Context()); err != nil {
			c.Logger.Warn("health check failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleUserPoolSnapshots returns one snapshot per day for a user in a pool.
// GET /users/{address}/pools/{poolId}/snapshots?range=THIRTY_DAYS
func (c *Controller) HandleUserPoolSnapshots(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rng, ok := parseRange(w, r)
	if !ok {
		return
	}

	series, err := c.Users.GetUserSnapshotsForPool(r.Context(), vars["address"], vars["poolId"], rng)
	if err != nil {
		c.fail(w, err, zap.String("user", vars["address"]), zap.String("pool_id", vars["poolId"]))
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// HandleEnsureHistory loads and stores a user's history for a pool if none is stored yet.
// POST /users/{address}/pools/{poolId}/history
func (c *Controller) HandleEnsureHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := c.Users.EnsureHistory(r.Context(), vars["address"], vars["poolId"]); err != nil {
		c.fail(w, err, zap.String("user", vars["address"]), zap.String("pool_id", vars["poolId"]))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePoolSnapshots returns the stored daily snapshots of a pool.
// GET /pools/{poolId}/snapshots?range=THIRTY_DAYS
func (c *Controller) HandlePoolSnapshots(w http.ResponseWriter, r *http.Request) {
	poolID := mux.Vars(r)["poolId"]
	rng, ok := parseRange(w, r)
	if !ok {
		return
	}

	if c.Pools != nil {
		if _, err := c.Pools.GetPool(r.Context(), poolID); err != nil {
			c.fail(w, err, zap.String("pool_id", poolID))
			return
		}
	}
	series, err := c.PoolSeries.GetSnapshotsForPool(r.Context(), poolID, rng)
	if err != nil {
		c.fail(w, err, zap.String("pool_id", poolID))
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// HandleTokenPrices returns USD prices keyed by checksum address.
// GET /tokens/prices?address=0x..,0x..
func (c *Controller) HandleTokenPrices(w http.ResponseWriter, r *http.Request) {
	if c.Prices == nil {
		writeError(w, http.StatusNotImplemented, "price oracle not configured")
		return
	}

	addresses := make([]string, 0)
	for _, value := range r.URL.Query()["address"] {
		for _, address := range strings.Split(value, ",") {
			if address = strings.TrimSpace(address); address != "" {
				addresses = append(addresses, address)
			}
		}
	}
	if len(addresses) == 0 {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}

	prices, err := c.Prices.GetPrices(r.Context(), addresses)
	if err != nil {
		c.fail(w, err, zap.Int("addresses", len(addresses)))
		return
	}
	writeJSON(w, http.StatusOK, prices)
}

// HandleTokenHistory returns hourly USD prices of a token over the last days.
// GET /tokens/{address}/history?days=30
func (c *Controller) HandleTokenHistory(w http.ResponseWriter, r *http.Request) {
	if c.Prices == nil {
		writeError(w, http.StatusNotImplemented, "price oracle not configured")
		return
	}
	address := mux.Vars(r)["address"]

	days := defaultHistoryDays
	if value := r.URL.Query().Get("days"); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > maxHistoryDays {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("days must be an integer within [1, %d]", maxHistoryDays))
			return
		}
		days = n
	}

	history, err := c.Prices.GetHistoricalPrices(r.Context(), address, days)
	if err != nil {
		c.fail(w, err, zap.String("address", address), zap.Int("days", days))
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func parseRange(w http.ResponseWriter, r *http.Request) (model.SnapshotRange, bool) {
	value := r.URL.Query().Get("range")
	if value == "" {
		return defaultRange, true
	}
	rng, err := model.ParseSnapshotRange(value)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return rng, true
}

func (c *Controller) fail(w http.ResponseWriter, err error, fields ...zap.Field) {
	switch {
	case errors.Is(err, model.ErrPoolNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, price.ErrRateBudgetExceeded):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		c.Logger.Error("request failed", append(fields, zap.Error(err))...)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
