package storage

import "poolSnapshots/internal/model"

// Storage defines a sink for assembled user pool snapshots.
type Storage interface {
	PutSnapshotBatch(snapshots []model.UserPoolSnapshot) error
}
