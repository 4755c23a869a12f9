package poolsync

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"poolSnapshots/internal/subgraph"
)

func TestDeriveUsesBaseline(t *testing.T) {
	baseline := rawSnapshot(day0-86400, "50", "100", "8", "800")
	raw := []subgraph.PoolSnapshot{rawSnapshot(day0+120, "100", "250", "10", "1000")}

	got, err := DerivePoolSnapshots("pool-1", raw, &baseline)
	require.NoError(t, err)
	require.Len(t, got, 1)

	row := got[0]
	require.Equal(t, day0, row.Timestamp, "timestamps align to the start of the day")
	require.Equal(t, "pool-1-1700006400", row.ID)
	require.Equal(t, 2.0, *row.Fees24h)
	require.Equal(t, 200.0, *row.Volume24h)
	require.Equal(t, 2.5, *row.SharePrice)
	require.Equal(t, 250.0, *row.TotalLiquidity)
	require.Equal(t, int64(5), row.SwapsCount)
	require.Equal(t, int64(3), row.HoldersCount)
}

func TestDeriveClampsNegativeDeltas(t *testing.T) {
	raw := []subgraph.PoolSnapshot{
		rawSnapshot(day0, "100", "200", "10", "1000"),
		rawSnapshot(day0+86400, "100", "200", "9", "900"),
	}
	got, err := DerivePoolSnapshots("pool-1", raw, nil)
	require.NoError(t, err)
	require.Equal(t, 0.0, *got[1].Fees24h)
	require.Equal(t, 0.0, *got[1].Volume24h)
}

func TestDeriveRejectsMalformedAmounts(t *testing.T) {
	_, err := DerivePoolSnapshots("pool-1", []subgraph.PoolSnapshot{rawSnapshot(day0, "abc", "1", "1", "1")}, nil)
	require.Error(t, err)

	bad := rawSnapshot(day0, "1", "1", "1", "1")
	bad.SwapsCount = "1.5"
	_, err = DerivePoolSnapshots("pool-1", []subgraph.PoolSnapshot{bad}, nil)
	require.Error(t, err)
}

func TestFileStateStoreKeepsNamesApart(t *testing.T) {
	store := &FileStateStore{Path: filepath.Join(t.TempDir(), "nested", "state.json")}
	ctx := context.Background()

	_, ok, err := store.Load(ctx, "pool-sync:a")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Save(ctx, "pool-sync:a", 10))
	require.NoError(t, store.Save(ctx, "pool-sync:b", 20))

	a, ok, err := store.Load(ctx, "pool-sync:a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(10), a)

	b, _, err := store.Load(ctx, "pool-sync:b")
	require.NoError(t, err)
	require.Equal(t, int64(20), b)
}

func TestNilStateStoresAreNoops(t *testing.T) {
	var file *FileStateStore
	_, ok, err := file.Load(context.Background(), "x")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, (&DBStateStore{}).Save(context.Background(), "x", 1))
}
