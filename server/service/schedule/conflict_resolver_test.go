package schedule

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/cogniflow/store"
	teststore "github.com/hrygo/cogniflow/store/test"
)

const testUserID = int32(1)

func newTestResolver(t *testing.T) (*ConflictResolver, *store.Store) {
	t.Helper()
	ts := teststore.NewTestingStore(context.Background(), t)
	r := NewConflictResolver(ts, time.UTC)
	r.now = func() time.Time { return time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC) }
	return r, ts
}

func createEvent(t *testing.T, ts *store.Store, title, start, end string) *store.Item {
	t.Helper()
	item, err := ts.CreateItem(context.Background(), &store.Item{
		UID:       fmt.Sprintf("%s-%d", title, time.Now().UnixNano()),
		UserID:    testUserID,
		Type:      store.ItemTypeEvent,
		Status:    store.ItemStatusPending,
		Title:     title,
		StartTime: &start,
		EndTime:   &end,
		Priority:  store.PriorityMedium,
	})
	require.NoError(t, err)
	return item
}

func conflictOf(t *testing.T, ts *store.Store, id int32) bool {
	t.Helper()
	item, err := ts.GetItem(context.Background(), &store.FindItem{ID: &id, IncludeDeleted: true})
	require.NoError(t, err)
	require.NotNil(t, item)
	return item.HasConflict
}

func TestRecomputeFlagsOverlappingPairs(t *testing.T) {
	ctx := context.Background()
	r, ts := newTestResolver(t)

	a := createEvent(t, ts, "A", "2025-06-10T10:00:00", "2025-06-10T11:00:00")
	b := createEvent(t, ts, "B", "2025-06-10T10:30:00", "2025-06-10T11:30:00")
	c := createEvent(t, ts, "C", "2025-06-10T12:00:00", "2025-06-10T13:00:00")
	d := createEvent(t, ts, "D", "2025-06-10T13:00:00", "2025-06-10T14:00:00")

	ids, err := r.Recompute(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, []int32{a.ID, b.ID}, ids)

	assert.True(t, conflictOf(t, ts, a.ID))
	assert.True(t, conflictOf(t, ts, b.ID))
	assert.False(t, conflictOf(t, ts, c.ID))
	assert.False(t, conflictOf(t, ts, d.ID), "touching intervals do not overlap")

	again, err := r.Recompute(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, ids, again)
	assert.True(t, conflictOf(t, ts, a.ID))
	assert.False(t, conflictOf(t, ts, c.ID))
}

func TestRecomputeIgnoresInactiveEvents(t *testing.T) {
	ctx := context.Background()
	r, ts := newTestResolver(t)

	base := createEvent(t, ts, "base", "2025-06-10T10:00:00", "2025-06-10T12:00:00")
	completed := createEvent(t, ts, "completed", "2025-06-10T10:00:00", "2025-06-10T11:00:00")
	archived := createEvent(t, ts, "archived", "2025-06-10T10:30:00", "2025-06-10T11:00:00")
	deleted := createEvent(t, ts, "deleted", "2025-06-10T11:00:00", "2025-06-10T11:30:00")
	past := createEvent(t, ts, "past", "2025-06-09T10:00:00", "2025-06-09T11:00:00")
	pastTwin := createEvent(t, ts, "past-twin", "2025-06-09T10:30:00", "2025-06-09T11:30:00")

	status := store.ItemStatusCompleted
	_, err := ts.UpdateItem(ctx, &store.UpdateItem{ID: completed.ID, Status: &status})
	require.NoError(t, err)
	archivedTs := int64(1749513600)
	_, err = ts.UpdateItem(ctx, &store.UpdateItem{ID: archived.ID, ArchivedTs: &archivedTs})
	require.NoError(t, err)
	_, err = ts.UpdateItem(ctx, &store.UpdateItem{ID: deleted.ID, DeletedTs: &archivedTs})
	require.NoError(t, err)

	// A stale flag is cleared by the reset.
	require.NoError(t, ts.ApplyConflictFlags(ctx, testUserID, []int32{base.ID, past.ID}))

	ids, err := r.Recompute(ctx, testUserID)
	require.NoError(t, err)
	assert.Empty(t, ids)
	for _, item := range []*store.Item{base, completed, past, pastTwin} {
		assert.False(t, conflictOf(t, ts, item.ID), item.Title)
	}
}

func TestRecomputeIsPerUser(t *testing.T) {
	ctx := context.Background()
	r, ts := newTestResolver(t)

	mine := createEvent(t, ts, "mine", "2025-06-10T10:00:00", "2025-06-10T11:00:00")
	start, end := "2025-06-10T10:00:00", "2025-06-10T11:00:00"
	_, err := ts.CreateItem(ctx, &store.Item{
		UID: "other-user", UserID: 2, Type: store.ItemTypeEvent, Status: store.ItemStatusPending,
		Title: "theirs", StartTime: &start, EndTime: &end, Priority: store.PriorityMedium,
	})
	require.NoError(t, err)

	ids, err := r.Recompute(ctx, testUserID)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.False(t, conflictOf(t, ts, mine.ID))
}

func TestRecomputeConcurrentCallsAgree(t *testing.T) {
	ctx := context.Background()
	r, ts := newTestResolver(t)
	createEvent(t, ts, "A", "2025-06-10T10:00:00", "2025-06-10T11:00:00")
	createEvent(t, ts, "B", "2025-06-10T10:30:00", "2025-06-10T11:30:00")

	results := make(chan []int32, 4)
	for i := 0; i < 4; i++ {
		go func() {
			ids, err := r.Recompute(ctx, testUserID)
			assert.NoError(t, err)
			results <- ids
		}()
	}
	for i := 0; i < 4; i++ {
		assert.Len(t, <-results, 2)
	}
}

func TestFindFreeSlots(t *testing.T) {
	ctx := context.Background()
	r, ts := newTestResolver(t)
	createEvent(t, ts, "A", "2025-06-10T10:00:00", "2025-06-10T11:00:00")
	createEvent(t, ts, "B", "2025-06-10T10:30:00", "2025-06-10T11:30:00")
	createEvent(t, ts, "C", "2025-06-10T12:00:00", "2025-06-10T13:00:00")

	slots, err := r.FindFreeSlots(ctx, testUserID, "2025-06-10", time.Hour)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "2025-06-10T08:00:00", slots[0].Start)
	assert.Equal(t, "2025-06-10T09:00:00", slots[0].End)
	assert.Equal(t, "2025-06-10T13:00:00", slots[1].Start)

	slots, err = r.FindFreeSlots(ctx, testUserID, "2025-06-11", 0)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "08:00", slots[0].Reason)

	_, err = r.FindFreeSlots(ctx, testUserID, "someday", time.Hour)
	assert.Error(t, err)
}

func TestAlternatives(t *testing.T) {
	ctx := context.Background()
	r, ts := newTestResolver(t)
	createEvent(t, ts, "busy", "2025-06-10T08:00:00", "2025-06-10T21:30:00")
	target := createEvent(t, ts, "target", "2025-06-10T10:00:00", "2025-06-10T11:00:00")

	slots, err := r.Alternatives(ctx, target)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	for _, s := range slots {
		assert.True(t, s.IsAdjacent, "the requested day is full")
	}
	for i := 1; i < len(slots); i++ {
		assert.GreaterOrEqual(t, slots[i-1].Score, slots[i].Score)
	}
	assert.LessOrEqual(t, len(slots), MaxAlternatives)
}

func TestOverlaps(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2025, 6, 10, h, m, 0, 0, time.UTC) }
	a := interval{id: 1, start: at(10, 0), end: at(11, 0)}

	assert.True(t, overlaps(a, interval{start: at(10, 30), end: at(11, 30)}))
	assert.True(t, overlaps(a, interval{start: at(9, 0), end: at(12, 0)}), "containment")
	assert.False(t, overlaps(a, interval{start: at(11, 0), end: at(12, 0)}))
	assert.False(t, overlaps(a, interval{start: at(9, 0), end: at(10, 0)}))
}
