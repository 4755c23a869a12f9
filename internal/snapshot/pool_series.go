package snapshot

import (
	"context"
	"fmt"
	"time"

	"poolSnapshots/internal/model"
)

// PoolSnapshotService serves stored daily pool snapshots.
type PoolSnapshotService struct {
	store PoolSnapshotStore
	now   func() time.Time
}

func NewPoolSnapshotService(store PoolSnapshotStore, now func() time.Time) *PoolSnapshotService {
	if now == nil {
		now = time.Now
	}
	return &PoolSnapshotService{store: store, now: now}
}

// GetSnapshotsForPool returns the pool snapshots inside the range, ascending.
func (s *PoolSnapshotService) GetSnapshotsForPool(ctx context.Context, poolID string, r model.SnapshotRange) ([]model.PoolSnapshot, error) {
	cutoff, err := RangeCutoff(r, s.now())
	if err != nil {
		return nil, err
	}
	rows, err := s.store.FindPoolSnapshots(ctx, poolID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("find pool snapshots: %w", err)
	}
	return rows, nil
}

// GetSnapshotForPool returns the snapshot stored for exactly timestamp.
func (s *PoolSnapshotService) GetSnapshotForPool(ctx context.Context, poolID string, timestamp int64) (model.PoolSnapshot, bool, error) {
	row, ok, err := s.store.GetPoolSnapshot(ctx, poolID, timestamp)
	if err != nil {
		return model.PoolSnapshot{}, false, fmt.Errorf("get pool snapshot: %w", err)
	}
	return row, ok, nil
}
