// Package bucket splits wall-clock intervals into local calendar-hour
// segments. It is intentionally free of platform and storage dependencies
// so it can be unit-tested in isolation.
package bucket

import "time"

// DateFormat is the canonical date key used across buffers and storage.
const DateFormat = "2006-01-02"

// Segment is a slice of elapsed time lying wholly within one local clock
// hour.
type Segment struct {
	Date    string
	Hour    int
	Seconds float64
}

// SplitByLocalHour splits [start, end) into local-hour segments. The
// segments are contiguous, non-overlapping, each at most 3600 seconds,
// and their durations sum to end-start. If end is not after start the
// result is empty.
//
// If a computed hour boundary does not strictly advance the cursor
// (possible around local-time discontinuities), the cursor is forced
// forward by exactly one hour so the loop always terminates and no
// segment exceeds one hour.
func SplitByLocalHour(start, end time.Time) []Segment {
	if !end.After(start) {
		return nil
	}

	var segments []Segment
	cursor := start

	for cursor.Before(end) {
		local := cursor.Local()
		hourStart := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, local.Location())
		nextBoundary := hourStart.Add(time.Hour)

		if !nextBoundary.After(cursor) {
			nextBoundary = cursor.Add(time.Hour)
		}

		sliceEnd := nextBoundary
		if end.Before(sliceEnd) {
			sliceEnd = end
		}

		seconds := sliceEnd.Sub(cursor).Seconds()
		if seconds > 0 {
			segments = append(segments, Segment{
				Date:    local.Format(DateFormat),
				Hour:    local.Hour(),
				Seconds: seconds,
			})
		}

		cursor = sliceEnd
	}

	return segments
}
