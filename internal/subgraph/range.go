package subgraph

import "fmt"

// TimeRange is an inclusive range of unix timestamps.
type TimeRange struct {
	From int64
	To   int64
}

// SplitRange splits a timestamp range into windows of size seconds.
func SplitRange(from, to, size int64) ([]TimeRange, error) {
	if size <= 0 {
		return nil, fmt.Errorf("window size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to must be >= from")
	}

	ranges := make([]TimeRange, 0)
	start := from
	for start <= to {
		end := to
		if to-start+1 > size {
			end = start + size - 1
		}
		ranges = append(ranges, TimeRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}

	return ranges, nil
}
