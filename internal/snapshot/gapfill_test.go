package snapshot

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"poolSnapshots/internal/model"
)

const day0 int64 = 1_700_006_400 // 2023-11-15 00:00 UTC

func ptr(v float64) *float64 { return &v }

func dailyPoolSnapshots(poolID string, from int64, days int) []model.PoolSnapshot {
	out := make([]model.PoolSnapshot, 0, days)
	for i := 0; i < days; i++ {
		out = append(out, model.PoolSnapshot{
			PoolID:         poolID,
			Timestamp:      from + int64(i)*OneDay,
			TotalShares:    "1000",
			TotalSharesNum: 1000,
			SharePrice:     ptr(2),
			Fees24h:        ptr(10),
		})
	}
	return out
}

func storedRow(ts int64, wallet, gauge, farm string) model.UserPoolSnapshot {
	w := decimal.RequireFromString(wallet)
	g := decimal.RequireFromString(gauge)
	f := decimal.RequireFromString(farm)
	return model.UserPoolSnapshot{
		ID:            "0xpool-0xuser-" + decimal.NewFromInt(ts).String(),
		Timestamp:     ts,
		UserAddress:   "0xuser",
		PoolID:        "pool-1",
		PoolToken:     "0xpool",
		WalletBalance: w,
		GaugeBalance:  g,
		FarmBalance:   f,
		TotalBalance:  w.Add(g).Add(f),
		PercentShare:  0.1,
		TotalValueUSD: decimal.NewFromInt(200),
		Fees24h:       decimal.RequireFromString("0.9"),
	}
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

func TestFillUserSnapshotsExtendsToToday(t *testing.T) {
	stored := []model.UserPoolSnapshot{storedRow(day0, "100", "0", "0")}
	pools := dailyPoolSnapshots("pool-1", day0, 4)

	got := FillUserSnapshots(stored, pools, day0+3*OneDay, 0.1)

	require.Len(t, got, 4)
	for i, row := range got {
		require.Equal(t, day0+int64(i)*OneDay, row.Timestamp)
		requireDecimal(t, "100", row.TotalBalance)
		require.InDelta(t, 0.1, row.PercentShare, 1e-12)
		requireDecimal(t, "200", row.TotalValueUSD)
		requireDecimal(t, "0.9", row.Fees24h)
	}
}

func TestFillUserSnapshotsSkipsDayWithoutPoolSnapshot(t *testing.T) {
	stored := []model.UserPoolSnapshot{storedRow(day0, "100", "0", "0")}
	pools := dailyPoolSnapshots("pool-1", day0, 4)
	pools = append(pools[:2], pools[3:]...)

	got := FillUserSnapshots(stored, pools, day0+3*OneDay, 0.1)

	require.Len(t, got, 3)
	require.Equal(t, day0, got[0].Timestamp)
	require.Equal(t, day0+OneDay, got[1].Timestamp)
	require.Equal(t, day0+3*OneDay, got[2].Timestamp)
}

func TestFillUserSnapshotsCarriesBalancesBetweenStoredRows(t *testing.T) {
	stored := []model.UserPoolSnapshot{
		storedRow(day0, "60", "30", "10"),
		storedRow(day0+4*OneDay, "50", "0", "0"),
	}
	pools := dailyPoolSnapshots("pool-1", day0, 6)

	got := FillUserSnapshots(stored, pools, day0+5*OneDay, 0)

	require.Len(t, got, 6)
	for i := 1; i < len(got); i++ {
		require.Equal(t, OneDay, got[i].Timestamp-got[i-1].Timestamp)
	}
	for i := 1; i <= 3; i++ {
		requireDecimal(t, "60", got[i].WalletBalance)
		requireDecimal(t, "30", got[i].GaugeBalance)
		requireDecimal(t, "10", got[i].FarmBalance)
		requireDecimal(t, "100", got[i].TotalBalance)
		require.Empty(t, got[i].ID)
	}
	require.Equal(t, stored[1], got[4])
	requireDecimal(t, "50", got[5].TotalBalance)
	require.InDelta(t, 0.05, got[5].PercentShare, 1e-12)
	requireDecimal(t, "100", got[5].TotalValueUSD)
	requireDecimal(t, "0.5", got[5].Fees24h)
}

func TestFillUserSnapshotsStopsAtZeroBalance(t *testing.T) {
	stored := []model.UserPoolSnapshot{
		storedRow(day0, "100", "0", "0"),
		storedRow(day0+2*OneDay, "0", "0", "0"),
	}
	pools := dailyPoolSnapshots("pool-1", day0, 10)

	got := FillUserSnapshots(stored, pools, day0+9*OneDay, 0.1)

	require.Len(t, got, 3)
	require.Equal(t, day0+2*OneDay, got[2].Timestamp)
	require.True(t, got[2].TotalBalance.IsZero())
}

func TestFillUserSnapshotsTerminatesWithoutPoolSnapshots(t *testing.T) {
	stored := []model.UserPoolSnapshot{
		storedRow(day0, "100", "0", "0"),
		storedRow(day0+5*OneDay, "100", "0", "0"),
	}

	got := FillUserSnapshots(stored, nil, day0+30*OneDay, 0.1)

	require.Len(t, got, 2)
	require.Equal(t, stored, got)
}

func TestFillUserSnapshotsCollapsesDuplicateDays(t *testing.T) {
	first := storedRow(day0, "100", "0", "0")
	second := storedRow(day0, "120", "0", "0")
	pools := dailyPoolSnapshots("pool-1", day0, 2)

	got := FillUserSnapshots([]model.UserPoolSnapshot{first, second}, pools, day0+OneDay, 0)

	require.Len(t, got, 2)
	requireDecimal(t, "120", got[0].TotalBalance)
	requireDecimal(t, "120", got[1].TotalBalance)
}

func TestFillUserSnapshotsEmpty(t *testing.T) {
	got := FillUserSnapshots(nil, dailyPoolSnapshots("pool-1", day0, 3), day0+2*OneDay, 0)
	require.NotNil(t, got)
	require.Empty(t, got)
}
