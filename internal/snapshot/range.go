package snapshot

import (
	"fmt"
	"time"

	"poolSnapshots/internal/model"
)

// RangeCutoff returns the oldest timestamp, aligned to the start of a day,
// that a series for the given range includes.
func RangeCutoff(r model.SnapshotRange, now time.Time) (int64, error) {
	today := Today(now)
	switch r {
	case model.RangeThirtyDays:
		return today - 30*OneDay, nil
	case model.RangeNinetyDays:
		return today - 90*OneDay, nil
	case model.RangeOneHundredEightyDays:
		return today - 180*OneDay, nil
	case model.RangeOneYear:
		return today - 365*OneDay, nil
	case model.RangeAllTime:
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: %q", model.ErrInvalidRange, string(r))
	}
}
