// Package interval provides the pure time-interval arithmetic the
// availability engine is built on: merging busy blocks, subtracting them
// from a bounding window, and measuring overlap. Nothing here does I/O.
package interval

import (
	"sort"
	"time"
)

// Interval is a half-open span of time [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns the interval's length. Negative spans report zero.
func (iv Interval) Duration() time.Duration {
	if iv.End.Before(iv.Start) {
		return 0
	}
	return iv.End.Sub(iv.Start)
}

// IsZero reports whether the interval has no extent.
func (iv Interval) IsZero() bool {
	return !iv.End.After(iv.Start)
}

// Merge sorts intervals by start and coalesces overlapping or touching
// spans. Touching counts as overlapping: two busy blocks meeting at the
// same instant form continuous busy time, never a zero-length free gap.
// The input is not modified. Merge is idempotent.
func Merge(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.IsZero() {
			continue
		}
		sorted = append(sorted, iv)
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if iv.Start.After(last.End) {
			merged = append(merged, iv)
			continue
		}
		if iv.End.After(last.End) {
			last.End = iv.End
		}
	}
	return merged
}

// FreeWithin subtracts the busy intervals from bounds and returns the
// remaining free intervals, in order. Busy spans are merged first; spans
// fully outside bounds contribute nothing and partial overlap is clipped.
// The result is a partition of bounds minus busy: the free intervals never
// overlap each other and never extend outside bounds. Zero-length bounds
// yield no free interval.
func FreeWithin(bounds Interval, busy []Interval) []Interval {
	if bounds.IsZero() {
		return nil
	}

	clipped := make([]Interval, 0, len(busy))
	for _, b := range busy {
		s := maxTime(bounds.Start, b.Start)
		e := minTime(bounds.End, b.End)
		if e.After(s) {
			clipped = append(clipped, Interval{Start: s, End: e})
		}
	}

	var free []Interval
	cur := bounds.Start
	for _, b := range Merge(clipped) {
		if cur.Before(b.Start) {
			free = append(free, Interval{Start: cur, End: b.Start})
		}
		cur = maxTime(cur, b.End)
	}
	if cur.Before(bounds.End) {
		free = append(free, Interval{Start: cur, End: bounds.End})
	}
	return free
}

// OverlapSeconds returns the length of the overlap between [aStart, aEnd)
// and [bStart, bEnd) in seconds, zero when they do not intersect.
func OverlapSeconds(aStart, aEnd, bStart, bEnd time.Time) float64 {
	start := maxTime(aStart, bStart)
	end := minTime(aEnd, bEnd)
	if !end.After(start) {
		return 0
	}
	return end.Sub(start).Seconds()
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
