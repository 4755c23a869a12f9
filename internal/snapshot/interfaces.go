package snapshot

import (
	"context"

	"poolSnapshots/internal/model"
)

// BalanceEventSource supplies raw balance change events for a user.
type BalanceEventSource interface {
	GetEventsForUser(ctx context.Context, userAddress string, fromTimestamp, toTimestamp int64) ([]model.BalanceEvent, error)
}

// PoolSnapshotProvider supplies daily pool snapshots.
type PoolSnapshotProvider interface {
	GetSnapshotsForPool(ctx context.Context, poolID string, r model.SnapshotRange) ([]model.PoolSnapshot, error)
	GetSnapshotForPool(ctx context.Context, poolID string, timestamp int64) (model.PoolSnapshot, bool, error)
}

// Repository persists user pool snapshots.
type Repository interface {
	FindUserPoolSnapshots(ctx context.Context, userAddress, poolID string, fromTimestamp int64) ([]model.UserPoolSnapshot, error)
	// InsertUserPoolSnapshots inserts rows and silently skips ids that already exist.
	InsertUserPoolSnapshots(ctx context.Context, rows []model.UserPoolSnapshot) (int64, error)
	UpsertUser(ctx context.Context, address string) error
}

// PoolRegistry resolves pools by id. Unknown ids yield model.ErrPoolNotFound.
type PoolRegistry interface {
	GetPool(ctx context.Context, poolID string) (model.Pool, error)
}

// PoolSnapshotStore reads stored pool snapshots.
type PoolSnapshotStore interface {
	FindPoolSnapshots(ctx context.Context, poolID string, fromTimestamp int64) ([]model.PoolSnapshot, error)
	GetPoolSnapshot(ctx context.Context, poolID string, timestamp int64) (model.PoolSnapshot, bool, error)
}
