package snapshot

import "poolSnapshots/internal/model"

// FillUserSnapshots turns the stored, ascending rows of one user position into a
// daily series. Days between stored rows, and days after the last row up to
// today while the balance is positive, are synthesized by carrying the previous
// balances forward and revaluing them against that day's pool snapshot. Days
// without a pool snapshot are left out.
func FillUserSnapshots(stored []model.UserPoolSnapshot, poolSnapshots []model.PoolSnapshot, today int64, protocolFeePercent float64) []model.UserPoolSnapshot {
	if len(stored) == 0 {
		return []model.UserPoolSnapshot{}
	}

	byDay := indexPoolSnapshots(poolSnapshots)
	out := make([]model.UserPoolSnapshot, 0, len(stored))
	out = append(out, stored[0])

	// cursor moves one day per step whether or not a row is emitted for that day.
	cursor := stored[0].Timestamp
	for _, next := range stored[1:] {
		for cursor+OneDay < next.Timestamp {
			cursor += OneDay
			if pool, ok := byDay[cursor]; ok {
				out = append(out, carryForward(out[len(out)-1], cursor, pool, protocolFeePercent))
			}
		}

		if last := len(out) - 1; next.Timestamp <= out[last].Timestamp {
			out[last] = next
		} else {
			out = append(out, next)
		}
		cursor = next.Timestamp
	}

	for cursor < today && out[len(out)-1].TotalBalance.IsPositive() {
		cursor += OneDay
		if pool, ok := byDay[cursor]; ok {
			out = append(out, carryForward(out[len(out)-1], cursor, pool, protocolFeePercent))
		}
	}

	return out
}

func carryForward(prev model.UserPoolSnapshot, ts int64, pool model.PoolSnapshot, protocolFeePercent float64) model.UserPoolSnapshot {
	row := model.UserPoolSnapshot{
		Timestamp:     ts,
		UserAddress:   prev.UserAddress,
		PoolID:        prev.PoolID,
		PoolToken:     prev.PoolToken,
		WalletBalance: prev.WalletBalance,
		GaugeBalance:  prev.GaugeBalance,
		FarmBalance:   prev.FarmBalance,
		TotalBalance:  prev.TotalBalance,
	}
	applyValuation(&row, pool, protocolFeePercent)
	return row
}

func indexPoolSnapshots(snapshots []model.PoolSnapshot) map[int64]model.PoolSnapshot {
	byDay := make(map[int64]model.PoolSnapshot, len(snapshots))
	for _, s := range snapshots {
		byDay[s.Timestamp] = s
	}
	return byDay
}
