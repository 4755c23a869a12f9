package snapshot

import "time"

// OneDay is the spacing between consecutive daily snapshots, in seconds.
const OneDay int64 = 86400

// StartOfDay aligns a unix timestamp to 00:00 UTC of its day.
func StartOfDay(ts int64) int64 {
	rem := ts % OneDay
	if rem < 0 {
		rem += OneDay
	}
	return ts - rem
}

// Today returns the start of the current UTC day.
func Today(now time.Time) int64 {
	return StartOfDay(now.UTC().Unix())
}
