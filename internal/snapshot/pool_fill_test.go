package snapshot

import (
	"testing"

	"github.com/stretchr/testify/require"

	"poolSnapshots/internal/model"
)

func TestFillPoolSnapshots(t *testing.T) {
	rows := []model.PoolSnapshot{
		{ID: "pool-1-a", PoolID: "pool-1", Timestamp: day0, TotalSharesNum: 100, SharePrice: ptr(1.5), Fees24h: ptr(3), Volume24h: ptr(30), SwapsCount: 4},
		{ID: "pool-1-b", PoolID: "pool-1", Timestamp: day0 + 3*OneDay, TotalSharesNum: 120, SharePrice: ptr(1.6), Fees24h: ptr(5), Volume24h: ptr(50), SwapsCount: 9},
	}

	got := FillPoolSnapshots(rows, day0+5*OneDay)

	require.Len(t, got, 6)
	for i, row := range got {
		require.Equal(t, day0+int64(i)*OneDay, row.Timestamp)
	}
	require.Equal(t, 100.0, got[1].TotalSharesNum)
	require.Equal(t, 1.5, *got[2].SharePrice)
	require.Equal(t, 0.0, *got[2].Fees24h)
	require.Equal(t, 0.0, *got[2].Volume24h)
	require.Equal(t, int64(4), got[2].SwapsCount)
	require.Equal(t, "pool-1-1700179200", got[2].ID)
	require.Equal(t, rows[1], got[3])
	require.Equal(t, 120.0, got[5].TotalSharesNum)
	require.Equal(t, 0.0, *got[5].Fees24h)

	require.Equal(t, 3.0, *rows[0].Fees24h)
}

func TestFillPoolSnapshotsEmpty(t *testing.T) {
	require.Empty(t, FillPoolSnapshots(nil, day0))
}
