package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"poolSnapshots/internal/model"
)

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "snapshots.jsonl")
	sink := NewJsonlStorage(path)

	row := model.UserPoolSnapshot{
		Timestamp:    1700006400,
		UserAddress:  "0xuser",
		PoolID:       "pool-1",
		TotalBalance: decimal.RequireFromString("100.5"),
		PercentShare: 0.1,
	}
	require.NoError(t, sink.PutSnapshotBatch([]model.UserPoolSnapshot{row}))
	require.NoError(t, sink.PutSnapshotBatch([]model.UserPoolSnapshot{row, row}))
	require.NoError(t, sink.PutSnapshotBatch(nil))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var lines int
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines++
		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &decoded))
		require.Equal(t, "100.5", decoded["total_balance"])
	}
	require.NoError(t, scanner.Err())
	require.Equal(t, 3, lines)
}
