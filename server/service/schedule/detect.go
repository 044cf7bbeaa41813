package schedule

import (
	"sort"
	"time"

	"github.com/hrygo/cogniflow/plugin/ai/aitime"
	"github.com/hrygo/cogniflow/store"
)

// interval is an active event's [start, end) span on the wall clock.
type interval struct {
	id         int32
	start, end time.Time
}

// activeIntervals keeps the events that take part in conflict detection:
// not deleted, not archived, not completed, with both times set and an end
// that has not passed.
func activeIntervals(items []*store.Item, now time.Time) []interval {
	result := make([]interval, 0, len(items))
	for _, item := range items {
		if item.Type != store.ItemTypeEvent || item.IsDeleted() || item.IsArchived() {
			continue
		}
		if item.Status == store.ItemStatusCompleted || item.StartTime == nil || item.EndTime == nil {
			continue
		}
		start, ok := aitime.ParseLocal(*item.StartTime)
		if !ok {
			continue
		}
		end, ok := aitime.ParseLocal(*item.EndTime)
		if !ok || end.Before(now) {
			continue
		}
		result = append(result, interval{id: item.ID, start: start, end: end})
	}
	return result
}

// overlaps reports whether two half-open intervals share time. Intervals
// that only touch at a boundary do not overlap.
func overlaps(a, b interval) bool {
	return a.start.Before(b.end) && b.start.Before(a.end)
}

// detectConflicts compares every pair of intervals and returns the ids of
// all that overlap another, sorted ascending.
func detectConflicts(intervals []interval) []int32 {
	flagged := map[int32]bool{}
	for i := 0; i < len(intervals); i++ {
		for j := i + 1; j < len(intervals); j++ {
			if overlaps(intervals[i], intervals[j]) {
				flagged[intervals[i].id] = true
				flagged[intervals[j].id] = true
			}
		}
	}

	ids := make([]int32, 0, len(flagged))
	for id := range flagged {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
