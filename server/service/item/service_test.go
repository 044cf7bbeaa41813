package item

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/cogniflow/plugin/ai/intake"
	"github.com/hrygo/cogniflow/server/service/assist"
	"github.com/hrygo/cogniflow/server/service/schedule"
	"github.com/hrygo/cogniflow/store"
	teststore "github.com/hrygo/cogniflow/store/test"
)

const testUser = int32(1)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	ts := teststore.NewTestingStore(context.Background(), t)
	classifier := intake.NewClassifier(nil, nil, time.UTC)
	conflicts := schedule.NewConflictResolver(ts, time.UTC)
	assistService := assist.NewService(ts, assist.NewAssistant(nil, nil))
	return NewService(ts, classifier, conflicts, assistService), ts
}

func strPtr(s string) *string { return &s }

func createEvent(t *testing.T, svc *Service, title, start, end string) *store.Item {
	t.Helper()
	item, err := svc.Create(context.Background(), &store.Item{
		UserID:    testUser,
		Type:      store.ItemTypeEvent,
		Title:     title,
		StartTime: strPtr(start),
		EndTime:   strPtr(end),
	})
	require.NoError(t, err)
	return item
}

func assistTasks(t *testing.T, ts *store.Store, itemID int32) []*store.AssistTask {
	t.Helper()
	tasks, err := ts.ListAssistTasks(context.Background(), &store.FindAssistTask{ItemID: &itemID})
	require.NoError(t, err)
	return tasks
}

func TestCreateDefaults(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	item, err := svc.Create(ctx, &store.Item{UserID: testUser, Type: "bogus", Priority: "urgent", RawText: "  买牛奶 "})
	require.NoError(t, err)
	assert.NotEmpty(t, item.UID)
	assert.Equal(t, store.ItemTypeTask, item.Type)
	assert.Equal(t, store.PriorityMedium, item.Priority)
	assert.Equal(t, store.ItemStatusPending, item.Status)
	assert.Equal(t, "买牛奶", item.Title)
	assert.Equal(t, []string{}, item.Tags)

	_, err = svc.Create(ctx, &store.Item{UserID: testUser, Title: "x", DueDate: strPtr("next week")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, &store.Item{UserID: testUser})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateEventCompletesRangeAndFlagsConflicts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	a, err := svc.Create(ctx, &store.Item{
		UserID:    testUser,
		Type:      store.ItemTypeEvent,
		Title:     "A",
		StartTime: strPtr("2099-06-10T10:00:00Z"),
	})
	require.NoError(t, err)
	require.NotNil(t, a.EndTime)
	assert.Equal(t, "2099-06-10T10:00:00", *a.StartTime)
	assert.Equal(t, "2099-06-10T11:00:00", *a.EndTime)
	assert.False(t, a.HasConflict)

	b := createEvent(t, svc, "B", "2099-06-10T10:30:00", "2099-06-10T11:30:00")
	assert.True(t, b.HasConflict, "the returned item reflects the recompute")

	a, err = svc.Get(ctx, testUser, a.ID)
	require.NoError(t, err)
	assert.True(t, a.HasConflict)

	// Moving B away clears both flags before Update returns.
	b, err = svc.Update(ctx, testUser, &store.UpdateItem{
		ID:        b.ID,
		StartTime: strPtr("2099-06-10T12:00:00"),
		EndTime:   strPtr("2099-06-10T13:00:00"),
	})
	require.NoError(t, err)
	assert.False(t, b.HasConflict)
	a, err = svc.Get(ctx, testUser, a.ID)
	require.NoError(t, err)
	assert.False(t, a.HasConflict)
}

func TestRetiringEventsRecomputes(t *testing.T) {
	ctx := context.Background()
	svc, ts := newTestService(t)

	a := createEvent(t, svc, "A", "2099-06-10T10:00:00", "2099-06-10T11:00:00")
	b := createEvent(t, svc, "B", "2099-06-10T10:30:00", "2099-06-10T11:30:00")
	require.True(t, b.HasConflict)

	archived, err := svc.Archive(ctx, testUser, b.ID)
	require.NoError(t, err)
	assert.True(t, archived.IsArchived())
	a, err = svc.Get(ctx, testUser, a.ID)
	require.NoError(t, err)
	assert.False(t, a.HasConflict)

	restored, err := svc.Unarchive(ctx, testUser, b.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsArchived())
	assert.True(t, restored.HasConflict)

	completed, err := svc.Complete(ctx, testUser, b.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ItemStatusCompleted, completed.Status)
	assert.False(t, completed.HasConflict)

	c := createEvent(t, svc, "C", "2099-06-10T10:15:00", "2099-06-10T10:45:00")
	require.True(t, c.HasConflict)
	require.NoError(t, svc.Delete(ctx, testUser, c.ID))
	a, err = svc.Get(ctx, testUser, a.ID)
	require.NoError(t, err)
	assert.False(t, a.HasConflict)

	_, err = svc.Get(ctx, testUser, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	deleted, err := ts.GetItem(ctx, &store.FindItem{ID: &c.ID, IncludeDeleted: true})
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted())
}

func TestAssistLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, ts := newTestService(t)

	item, err := svc.Create(ctx, &store.Item{UserID: testUser, Title: "研究 Go 泛型", RawText: "研究 Go 泛型"})
	require.NoError(t, err)
	require.Len(t, assistTasks(t, ts, item.ID), 1)

	plain, err := svc.Create(ctx, &store.Item{UserID: testUser, Title: "买牛奶"})
	require.NoError(t, err)
	assert.Empty(t, assistTasks(t, ts, plain.ID))

	_, err = svc.Complete(ctx, testUser, item.ID)
	require.NoError(t, err)
	assert.Empty(t, assistTasks(t, ts, item.ID))

	other, err := svc.Create(ctx, &store.Item{UserID: testUser, Title: "分析竞品"})
	require.NoError(t, err)
	require.Len(t, assistTasks(t, ts, other.ID), 1)
	_, err = svc.Archive(ctx, testUser, other.ID)
	require.NoError(t, err)
	assert.Empty(t, assistTasks(t, ts, other.ID))
}

func TestOwnership(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	item, err := svc.Create(ctx, &store.Item{UserID: testUser, Title: "mine"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, 2, item.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Update(ctx, 2, &store.UpdateItem{ID: item.ID, Title: strPtr("theirs")})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, 2, item.ID), ErrNotFound)
}

func TestToggleSubItem(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	item, err := svc.Create(ctx, &store.Item{
		UserID: testUser,
		Title:  "checklist",
		SubItems: []store.SubItem{
			{ID: "a", Text: "one", Status: store.SubItemPending},
			{ID: "b", Text: "two", Status: store.SubItemPending},
		},
	})
	require.NoError(t, err)

	item, err = svc.ToggleSubItem(ctx, testUser, item.ID, "b")
	require.NoError(t, err)
	assert.Equal(t, store.SubItemPending, item.SubItems[0].Status)
	assert.Equal(t, store.SubItemDone, item.SubItems[1].Status)

	item, err = svc.ToggleSubItem(ctx, testUser, item.ID, "b")
	require.NoError(t, err)
	assert.Equal(t, store.SubItemPending, item.SubItems[1].Status)

	_, err = svc.ToggleSubItem(ctx, testUser, item.ID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateFromText(t *testing.T) {
	ctx := context.Background()
	svc, ts := newTestService(t)

	result, err := svc.CreateFromText(ctx, testUser, "明天研究一下 Go 泛型")
	require.NoError(t, err)
	assert.Equal(t, intake.OutcomeItem, result.Outcome.Kind)
	require.NotNil(t, result.Item)
	assert.Equal(t, store.ItemTypeTask, result.Item.Type)
	assert.Equal(t, "明天研究一下 Go 泛型", result.Item.RawText)
	assert.Len(t, assistTasks(t, ts, result.Item.ID), 1)

	result, err = svc.CreateFromText(ctx, testUser, "@help")
	require.NoError(t, err)
	assert.Equal(t, intake.OutcomeHelp, result.Outcome.Kind)
	assert.Nil(t, result.Item)

	result, err = svc.CreateFromText(ctx, testUser, "?泛型")
	require.NoError(t, err)
	assert.Equal(t, intake.OutcomeQuery, result.Outcome.Kind)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "明天研究一下 Go 泛型", result.Items[0].RawText)

	_, err = svc.CreateFromText(ctx, testUser, "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateFromTemplate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	item, err := svc.CreateFromTemplate(ctx, testUser, "约会", map[string]string{
		"title":    "看牙医",
		"start":    "2099-06-12 15:00",
		"location": "市一医院",
	})
	require.NoError(t, err)
	assert.Equal(t, store.ItemTypeEvent, item.Type)
	assert.Equal(t, "看牙医", item.Title)
	require.NotNil(t, item.EndTime)
	assert.Equal(t, "2099-06-12T16:00:00", *item.EndTime)

	_, err = svc.CreateFromTemplate(ctx, testUser, "约会", map[string]string{"title": "缺时间"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateFromTemplate(ctx, testUser, "nope", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFreeSlots(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	event := createEvent(t, svc, "A", "2099-06-10T10:00:00", "2099-06-10T11:00:00")
	slots, err := svc.FreeSlots(ctx, testUser, event.ID)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.True(t, strings.HasPrefix(slots[0].Start, "2099-06-10"))

	task, err := svc.Create(ctx, &store.Item{UserID: testUser, Title: "task"})
	require.NoError(t, err)
	_, err = svc.FreeSlots(ctx, testUser, task.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFeed(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Create(ctx, &store.Item{UserID: testUser, Title: "第一条", Description: "**粗体** 内容"})
	require.NoError(t, err)

	rss, err := svc.Feed(ctx, testUser, "https://cogniflow.example.com/")
	require.NoError(t, err)
	assert.Contains(t, rss, "<rss")
	assert.Contains(t, rss, "第一条")
	assert.Contains(t, rss, "https://cogniflow.example.com/api/v1/items/")
}
