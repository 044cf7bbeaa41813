package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/cogniflow/store"
)

func strPtr(s string) *string { return &s }

func createTestingItem(ctx context.Context, t *testing.T, ts *store.Store, create *store.Item) *store.Item {
	t.Helper()
	if create.Status == "" {
		create.Status = store.ItemStatusPending
	}
	if create.Priority == "" {
		create.Priority = store.PriorityMedium
	}
	if create.UserID == 0 {
		create.UserID = 1
	}
	item, err := ts.CreateItem(ctx, create)
	require.NoError(t, err)
	return item
}

func TestItemStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	item := createTestingItem(ctx, t, ts, &store.Item{
		UID:       "item-1",
		Type:      store.ItemTypeEvent,
		RawText:   "今天晚上十点开会",
		Title:     "开会",
		StartTime: strPtr("2025-06-10T22:00:00"),
		EndTime:   strPtr("2025-06-10T23:00:00"),
		Tags:      []string{"会议", "工作"},
		Entities:  map[string]any{"location": "会议室"},
	})
	require.Greater(t, item.ID, int32(0))

	got, err := ts.GetItem(ctx, &store.FindItem{ID: &item.ID})
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, store.ItemTypeEvent, got.Type)
	require.Equal(t, "2025-06-10T22:00:00", *got.StartTime)
	require.Equal(t, "2025-06-10T23:00:00", *got.EndTime)
	require.Nil(t, got.DueDate)
	require.Equal(t, []string{"会议", "工作"}, got.Tags)
	require.Equal(t, "会议室", got.Entities["location"])
	require.Empty(t, got.SubItems)

	// Clearing a time field stores NULL.
	title := "开会（改）"
	updated, err := ts.UpdateItem(ctx, &store.UpdateItem{
		ID:        item.ID,
		Title:     &title,
		EndTime:   strPtr(""),
		StartTime: strPtr("2025-06-11T09:00:00"),
	})
	require.NoError(t, err)
	require.Equal(t, title, updated.Title)
	require.Nil(t, updated.EndTime)
	require.Equal(t, "2025-06-11T09:00:00", *updated.StartTime)

	// Soft delete hides the item.
	deletedTs := int64(1749513600)
	_, err = ts.UpdateItem(ctx, &store.UpdateItem{ID: item.ID, DeletedTs: &deletedTs})
	require.NoError(t, err)
	got, err = ts.GetItem(ctx, &store.FindItem{ID: &item.ID})
	require.NoError(t, err)
	require.Nil(t, got)
	got, err = ts.GetItem(ctx, &store.FindItem{ID: &item.ID, IncludeDeleted: true})
	require.NoError(t, err)
	require.NotNil(t, got)
	require.True(t, got.IsDeleted())
}

func TestItemStoreArchive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	item := createTestingItem(ctx, t, ts, &store.Item{UID: "archive-1", Type: store.ItemTypeNote, Title: "笔记"})
	archivedTs := int64(1749513600)
	_, err := ts.UpdateItem(ctx, &store.UpdateItem{ID: item.ID, ArchivedTs: &archivedTs})
	require.NoError(t, err)

	userID := int32(1)
	active, err := ts.ListItems(ctx, &store.FindItem{UserID: &userID, ExcludeArchived: true})
	require.NoError(t, err)
	require.Empty(t, active)

	archived, err := ts.ListItems(ctx, &store.FindItem{UserID: &userID, OnlyArchived: true})
	require.NoError(t, err)
	require.Len(t, archived, 1)

	zero := int64(0)
	restored, err := ts.UpdateItem(ctx, &store.UpdateItem{ID: item.ID, ArchivedTs: &zero})
	require.NoError(t, err)
	require.False(t, restored.IsArchived())
}

func TestItemStoreKeywordSearch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	createTestingItem(ctx, t, ts, &store.Item{UID: "kw-1", Type: store.ItemTypeNote, Title: "机器学习入门"})
	createTestingItem(ctx, t, ts, &store.Item{UID: "kw-2", Type: store.ItemTypeNote, Title: "周末计划", Tags: []string{"学习"}})
	createTestingItem(ctx, t, ts, &store.Item{UID: "kw-3", Type: store.ItemTypeTask, Title: "买菜"})
	createTestingItem(ctx, t, ts, &store.Item{UID: "kw-4", UserID: 2, Type: store.ItemTypeTask, Title: "学习英语"})

	userID := int32(1)
	list, err := ts.ListItems(ctx, &store.FindItem{UserID: &userID, Keywords: []string{"学习"}})
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestApplyConflictFlags(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	a := createTestingItem(ctx, t, ts, &store.Item{UID: "c-a", Type: store.ItemTypeEvent, Title: "A"})
	b := createTestingItem(ctx, t, ts, &store.Item{UID: "c-b", Type: store.ItemTypeEvent, Title: "B"})
	c := createTestingItem(ctx, t, ts, &store.Item{UID: "c-c", Type: store.ItemTypeEvent, Title: "C"})

	require.NoError(t, ts.ApplyConflictFlags(ctx, 1, []int32{a.ID, b.ID}))
	require.NoError(t, ts.ApplyConflictFlags(ctx, 1, []int32{b.ID, c.ID}))

	for id, want := range map[int32]bool{a.ID: false, b.ID: true, c.ID: true} {
		item, err := ts.GetItem(ctx, &store.FindItem{ID: &id})
		require.NoError(t, err)
		require.Equal(t, want, item.HasConflict, "item %d", id)
	}
}

func TestUpdateItemExpectedSubItems(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	item := createTestingItem(ctx, t, ts, &store.Item{
		UID:      "cas-1",
		Type:     store.ItemTypeTask,
		Title:    "checklist",
		SubItems: []store.SubItem{{ID: "a", Text: "one", Status: store.SubItemPending}},
	})

	stale := []store.SubItem{}
	next := []store.SubItem{{ID: "x", Text: "lost", Status: store.SubItemPending}}
	_, err := ts.UpdateItem(ctx, &store.UpdateItem{ID: item.ID, SubItems: &next, ExpectedSubItems: &stale})
	require.ErrorIs(t, err, store.ErrSubItemsChanged)

	current := item.SubItems
	updated, err := ts.UpdateItem(ctx, &store.UpdateItem{ID: item.ID, SubItems: &next, ExpectedSubItems: &current})
	require.NoError(t, err)
	require.Len(t, updated.SubItems, 1)
	require.Equal(t, "x", updated.SubItems[0].ID)
}

func TestModifySubItemsKeepsConcurrentWrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	item := createTestingItem(ctx, t, ts, &store.Item{
		UID:      "cas-2",
		Type:     store.ItemTypeTask,
		Title:    "checklist",
		SubItems: []store.SubItem{{ID: "a", Text: "one", Status: store.SubItemPending}},
	})

	calls := 0
	updated, err := ts.ModifySubItems(ctx, item.ID, nil, func(current []store.SubItem) ([]store.SubItem, error) {
		calls++
		if calls == 1 {
			// Another writer toggles "a" between our read and our write.
			toggled := []store.SubItem{{ID: "a", Text: "one", Status: store.SubItemDone}}
			_, err := ts.UpdateItem(ctx, &store.UpdateItem{ID: item.ID, SubItems: &toggled})
			require.NoError(t, err)
		}
		return append(current, store.SubItem{ID: "b", Text: "appended", Status: store.SubItemPending}), nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Len(t, updated.SubItems, 2)
	require.Equal(t, store.SubItemDone, updated.SubItems[0].Status)
	require.Equal(t, "b", updated.SubItems[1].ID)

	missing, err := ts.ModifySubItems(ctx, 9999, nil, func(current []store.SubItem) ([]store.SubItem, error) {
		return current, nil
	})
	require.NoError(t, err)
	require.Nil(t, missing)
}
