package poolsync

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"poolSnapshots/internal/model"
	"poolSnapshots/internal/snapshot"
	"poolSnapshots/internal/subgraph"
)

type cumulative struct {
	fees   decimal.Decimal
	volume decimal.Decimal
}

// DerivePoolSnapshots turns cumulative subgraph snapshots into daily pool
// snapshots. Daily fees and volume are differences to the previous entry,
// starting from baseline when given and from zero otherwise.
func DerivePoolSnapshots(poolID string, raw []subgraph.PoolSnapshot, baseline *subgraph.PoolSnapshot) ([]model.PoolSnapshot, error) {
	var prev cumulative
	if baseline != nil {
		c, err := cumulativeOf(*baseline)
		if err != nil {
			return nil, fmt.Errorf("baseline %s: %w", baseline.ID, err)
		}
		prev = c
	}

	out := make([]model.PoolSnapshot, 0, len(raw))
	for _, entry := range raw {
		row, cur, err := derive(poolID, entry, prev)
		if err != nil {
			return nil, fmt.Errorf("pool snapshot %s: %w", entry.ID, err)
		}
		out = append(out, row)
		prev = cur
	}
	return out, nil
}

func derive(poolID string, entry subgraph.PoolSnapshot, prev cumulative) (model.PoolSnapshot, cumulative, error) {
	cur, err := cumulativeOf(entry)
	if err != nil {
		return model.PoolSnapshot{}, cumulative{}, err
	}
	shares, err := parseDecimal(entry.TotalShares)
	if err != nil {
		return model.PoolSnapshot{}, cumulative{}, fmt.Errorf("total shares: %w", err)
	}
	liquidity, err := parseDecimal(entry.Liquidity)
	if err != nil {
		return model.PoolSnapshot{}, cumulative{}, fmt.Errorf("liquidity: %w", err)
	}
	swaps, err := parseCount(entry.SwapsCount)
	if err != nil {
		return model.PoolSnapshot{}, cumulative{}, fmt.Errorf("swaps count: %w", err)
	}
	holders, err := parseCount(entry.HoldersCount)
	if err != nil {
		return model.PoolSnapshot{}, cumulative{}, fmt.Errorf("holders count: %w", err)
	}

	ts := snapshot.StartOfDay(entry.Timestamp)
	fees := nonNegative(cur.fees.Sub(prev.fees)).InexactFloat64()
	volume := nonNegative(cur.volume.Sub(prev.volume)).InexactFloat64()
	tvl := liquidity.InexactFloat64()

	row := model.PoolSnapshot{
		ID:             snapshot.PoolSnapshotID(poolID, ts),
		PoolID:         poolID,
		Timestamp:      ts,
		TotalShares:    shares.String(),
		TotalSharesNum: shares.InexactFloat64(),
		Fees24h:        &fees,
		Volume24h:      &volume,
		TotalLiquidity: &tvl,
		SwapsCount:     swaps,
		HoldersCount:   holders,
	}
	if shares.IsPositive() {
		price := liquidity.Div(shares).InexactFloat64()
		row.SharePrice = &price
	}
	return row, cur, nil
}

func cumulativeOf(entry subgraph.PoolSnapshot) (cumulative, error) {
	fees, err := parseDecimal(entry.SwapFees)
	if err != nil {
		return cumulative{}, fmt.Errorf("swap fees: %w", err)
	}
	volume, err := parseDecimal(entry.SwapVolume)
	if err != nil {
		return cumulative{}, fmt.Errorf("swap volume: %w", err)
	}
	return cumulative{fees: fees, volume: volume}, nil
}

func parseDecimal(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(value)
}

func parseCount(value string) (int64, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.ParseInt(value, 10, 64)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
