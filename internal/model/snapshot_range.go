package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRange is returned for an unknown snapshot range.
var ErrInvalidRange = errors.New("invalid snapshot range")

// SnapshotRange selects how far back a snapshot series reaches.
type SnapshotRange string

const (
	RangeThirtyDays           SnapshotRange = "THIRTY_DAYS"
	RangeNinetyDays           SnapshotRange = "NINETY_DAYS"
	RangeOneHundredEightyDays SnapshotRange = "ONE_HUNDRED_EIGHTY_DAYS"
	RangeOneYear              SnapshotRange = "ONE_YEAR"
	RangeAllTime              SnapshotRange = "ALL_TIME"
)

// SnapshotRanges lists every supported range.
var SnapshotRanges = []SnapshotRange{
	RangeThirtyDays,
	RangeNinetyDays,
	RangeOneHundredEightyDays,
	RangeOneYear,
	RangeAllTime,
}

// ParseSnapshotRange parses a range name, case-insensitively.
func ParseSnapshotRange(input string) (SnapshotRange, error) {
	value := SnapshotRange(strings.ToUpper(strings.TrimSpace(input)))
	for _, r := range SnapshotRanges {
		if r == value {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRange, input)
}
