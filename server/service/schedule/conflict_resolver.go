// Package schedule keeps the has_conflict flags of events current and
// suggests free time slots.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/hrygo/cogniflow/plugin/ai/aitime"
	"github.com/hrygo/cogniflow/store"
)

// ConflictResolver recomputes conflict flags and finds alternative slots.
type ConflictResolver struct {
	store    *store.Store
	location *time.Location
	now      func() time.Time
	locks    *keyedMutex
}

// NewConflictResolver creates a resolver. loc is the zone the wall clock is
// read in when deciding which events have already ended.
func NewConflictResolver(s *store.Store, loc *time.Location) *ConflictResolver {
	if loc == nil {
		loc = time.Local
	}
	return &ConflictResolver{
		store:    s,
		location: loc,
		now:      time.Now,
		locks:    newKeyedMutex(),
	}
}

// TimeSlot represents a time period that can be used for scheduling.
type TimeSlot struct {
	Start      string `json:"start"`
	End        string `json:"end"`
	Reason     string `json:"reason"`      // "15:04", "days_before:N" or "days_after:N"
	Score      int    `json:"score"`       // higher is a better recommendation
	IsAdjacent bool   `json:"is_adjacent"` // on a day other than the requested one
}

func (r *ConflictResolver) localNow() time.Time {
	return aitime.LocalNow(r.now(), r.location)
}

func (r *ConflictResolver) listEvents(ctx context.Context, userID int32) ([]*store.Item, error) {
	eventType := store.ItemTypeEvent
	return r.store.ListItems(ctx, &store.FindItem{
		UserID:          &userID,
		Type:            &eventType,
		ExcludeArchived: true,
	})
}

// Recompute flags every pair of overlapping active events of the user and
// clears the flag on all other events, in one transaction. Calls for the
// same user are serialized. It returns the flagged ids.
func (r *ConflictResolver) Recompute(ctx context.Context, userID int32) ([]int32, error) {
	unlock := r.locks.Lock(userID)
	defer unlock()

	events, err := r.listEvents(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	conflicting := detectConflicts(activeIntervals(events, r.localNow()))
	if err := r.store.ApplyConflictFlags(ctx, userID, conflicting); err != nil {
		return nil, fmt.Errorf("failed to apply conflict flags: %w", err)
	}

	if len(conflicting) > 0 {
		slog.Info("conflicts detected",
			"user_id", userID,
			"events", len(events),
			"conflict_count", len(conflicting),
		)
	}
	return conflicting, nil
}

// FindFreeSlots returns the free slots of the given length on date between
// WorkdayStartHour and WorkdayEndHour. date is any accepted local timestamp
// or a bare YYYY-MM-DD.
func (r *ConflictResolver) FindFreeSlots(ctx context.Context, userID int32, date string, duration time.Duration) ([]TimeSlot, error) {
	day, ok := aitime.ParseLocal(date)
	if !ok {
		return nil, fmt.Errorf("invalid date %q", date)
	}
	if duration <= 0 {
		duration = DefaultSlotDuration
	}

	busy, err := r.busyRanges(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	return slotsInDay(day, duration, busy), nil
}

// Alternatives suggests free slots for a conflicting event, preferring its
// own day and falling back to the surrounding days. The event itself is not
// counted as busy.
func (r *ConflictResolver) Alternatives(ctx context.Context, item *store.Item) ([]TimeSlot, error) {
	if item.StartTime == nil {
		return nil, fmt.Errorf("item %d has no start time", item.ID)
	}
	requested, ok := aitime.ParseLocal(*item.StartTime)
	if !ok {
		return nil, fmt.Errorf("item %d has an invalid start time", item.ID)
	}
	duration := DefaultSlotDuration
	if item.EndTime != nil {
		if end, ok := aitime.ParseLocal(*item.EndTime); ok && end.After(requested) {
			duration = end.Sub(requested)
		}
	}

	busy, err := r.busyRanges(ctx, item.UserID, item.ID)
	if err != nil {
		return nil, err
	}

	alternatives := slotsInDay(requested, duration, busy)

	if len(alternatives) < 3 {
		for offset := 1; offset <= AlternativeDayRange; offset++ {
			before := slotsInDay(requested.AddDate(0, 0, -offset), duration, busy)
			for i := range before {
				before[i].Reason = fmt.Sprintf("days_before:%d", offset)
				before[i].IsAdjacent = true
			}
			alternatives = append(alternatives, before...)

			after := slotsInDay(requested.AddDate(0, 0, offset), duration, busy)
			for i := range after {
				after[i].Reason = fmt.Sprintf("days_after:%d", offset)
				after[i].IsAdjacent = true
			}
			alternatives = append(alternatives, after...)

			if len(alternatives) >= MaxAlternatives {
				break
			}
		}
	}

	alternatives = scoreAlternatives(requested, alternatives)
	if len(alternatives) > MaxAlternatives {
		alternatives = alternatives[:MaxAlternatives]
	}
	return alternatives, nil
}

// busyRanges returns the spans of the user's active events sorted by start,
// leaving out skipID.
func (r *ConflictResolver) busyRanges(ctx context.Context, userID, skipID int32) ([]interval, error) {
	events, err := r.listEvents(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	busy := activeIntervals(events, time.Time{})
	kept := busy[:0]
	for _, b := range busy {
		if b.id != skipID {
			kept = append(kept, b)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].start.Before(kept[j].start) })
	return kept, nil
}

// slotsInDay walks the gaps between busy ranges on day and returns one slot
// at the start of every gap long enough for duration.
func slotsInDay(day time.Time, duration time.Duration, busy []interval) []TimeSlot {
	startOfDay := time.Date(day.Year(), day.Month(), day.Day(), WorkdayStartHour, 0, 0, 0, time.UTC)
	endOfDay := time.Date(day.Year(), day.Month(), day.Day(), WorkdayEndHour, 0, 0, 0, time.UTC)

	var free []TimeSlot
	current := startOfDay
	add := func(at time.Time) {
		free = append(free, TimeSlot{
			Start:  aitime.FormatLocal(at),
			End:    aitime.FormatLocal(at.Add(duration)),
			Reason: at.Format("15:04"),
		})
	}

	for _, b := range busy {
		if !b.end.After(current) || !b.start.Before(endOfDay) {
			continue
		}
		if b.start.After(current) && b.start.Sub(current) >= duration {
			add(current)
		}
		current = b.end
	}
	if endOfDay.Sub(current) >= duration {
		add(current)
	}
	return free
}

// scoreAlternatives assigns scores to each alternative and sorts them,
// best first.
func scoreAlternatives(requested time.Time, alternatives []TimeSlot) []TimeSlot {
	for i := range alternatives {
		alternatives[i].Score = calculateScore(requested, alternatives[i])
	}
	sort.SliceStable(alternatives, func(i, j int) bool {
		return alternatives[i].Score > alternatives[j].Score
	})
	return alternatives
}

// calculateScore rates a slot by how close it stays to the requested time.
func calculateScore(requested time.Time, alt TimeSlot) int {
	start, ok := aitime.ParseLocal(alt.Start)
	if !ok {
		return 0
	}
	score := 0

	// Same day is best.
	if start.YearDay() == requested.YearDay() && start.Year() == requested.Year() {
		score += 100
	}

	hourDiff := start.Hour() - requested.Hour()
	if hourDiff < 0 {
		hourDiff = -hourDiff
	}
	if hourDiff == 0 {
		score += 50
	} else {
		score += (24 - hourDiff) * 2
	}

	// Same half of the day.
	if (start.Hour() < 12) == (requested.Hour() < 12) {
		score += 20
	}

	if start.Weekday() == requested.Weekday() {
		score += 10
	}

	hour := start.Hour()
	switch {
	case hour >= 9 && hour <= 11, hour >= 14 && hour <= 16:
		score += 15
	case hour >= 12 && hour <= 13:
		score += 10
	}

	if alt.IsAdjacent {
		score -= 5
	}
	return score
}
