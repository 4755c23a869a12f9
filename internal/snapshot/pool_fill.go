package snapshot

import (
	"strconv"

	"poolSnapshots/internal/model"
)

// FillPoolSnapshots fills missing days between ascending pool snapshots and
// after the last one up to until. Share supply, price, liquidity and counters
// carry forward; daily fees and volume are zero on synthesized days.
func FillPoolSnapshots(rows []model.PoolSnapshot, until int64) []model.PoolSnapshot {
	if len(rows) == 0 {
		return []model.PoolSnapshot{}
	}

	zero := 0.0
	fill := func(prev model.PoolSnapshot, ts int64) model.PoolSnapshot {
		next := prev
		next.ID = PoolSnapshotID(prev.PoolID, ts)
		next.Timestamp = ts
		next.Fees24h = &zero
		next.Volume24h = &zero
		return next
	}

	out := make([]model.PoolSnapshot, 0, len(rows))
	out = append(out, rows[0])
	for _, next := range rows[1:] {
		for out[len(out)-1].Timestamp+OneDay < next.Timestamp {
			prev := out[len(out)-1]
			out = append(out, fill(prev, prev.Timestamp+OneDay))
		}
		if last := len(out) - 1; next.Timestamp <= out[last].Timestamp {
			out[last] = next
			continue
		}
		out = append(out, next)
	}
	for out[len(out)-1].Timestamp < until {
		prev := out[len(out)-1]
		out = append(out, fill(prev, prev.Timestamp+OneDay))
	}
	return out
}

// PoolSnapshotID is the id of a pool snapshot: pool id and day timestamp.
func PoolSnapshotID(poolID string, ts int64) string {
	return poolID + "-" + strconv.FormatInt(ts, 10)
}
