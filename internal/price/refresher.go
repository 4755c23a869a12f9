package price

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"poolSnapshots/internal/model"
)

// PriceStore persists token prices.
type PriceStore interface {
	TokenDefinitions
	UpsertTokenPrices(ctx context.Context, prices []model.TokenPrice) error
}

// Source returns current prices for token addresses.
type Source interface {
	GetPrices(ctx context.Context, addresses []string) (map[string]model.TokenPrice, error)
}

// Refresher stores current prices of every defined token, anchored to the hour.
type Refresher struct {
	source    Source
	store     PriceStore
	batchSize int
	now       func() time.Time
	logger    *zap.Logger
}

func NewRefresher(source Source, store PriceStore, batchSize int, logger *zap.Logger) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = defaultAddressesPerRequest * defaultMaxRequests
	}
	return &Refresher{source: source, store: store, batchSize: batchSize, now: time.Now, logger: logger}
}

// Refresh fetches and stores prices, returning how many were written.
func (r *Refresher) Refresh(ctx context.Context) (int, error) {
	defs, err := r.store.ListTokenDefinitions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list token definitions: %w", err)
	}
	if len(defs) == 0 {
		return 0, nil
	}

	hour := r.now().Unix()
	hour -= hour % 3600

	var written int
	for start := 0; start < len(defs); start += r.batchSize {
		end := start + r.batchSize
		if end > len(defs) {
			end = len(defs)
		}
		addresses := make([]string, 0, end-start)
		for _, def := range defs[start:end] {
			addresses = append(addresses, def.Address)
		}

		prices, err := r.source.GetPrices(ctx, addresses)
		if err != nil {
			return written, fmt.Errorf("get prices: %w", err)
		}
		rows := make([]model.TokenPrice, 0, len(prices))
		for _, p := range prices {
			p.Timestamp = hour
			rows = append(rows, p)
		}
		if err := r.store.UpsertTokenPrices(ctx, rows); err != nil {
			return written, fmt.Errorf("store prices: %w", err)
		}
		written += len(rows)
	}

	r.logger.Info("token prices refreshed",
		zap.Int("tokens", len(defs)),
		zap.Int("priced", written),
		zap.Int64("timestamp", hour),
	)
	return written, nil
}
