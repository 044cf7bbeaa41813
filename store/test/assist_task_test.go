package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/cogniflow/store"
)

func TestAssistTaskInFlightUnique(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	item := createTestingItem(ctx, t, ts, &store.Item{UID: "assist-1", Type: store.ItemTypeTask, Title: "研究 Go 并发"})

	first, err := ts.CreateAssistTask(ctx, &store.AssistTask{ItemID: item.ID, UserID: 1, TaskText: "研究 Go 并发"})
	require.NoError(t, err)
	require.Equal(t, store.AssistTaskPending, first.Status)
	require.Equal(t, int32(store.DefaultAssistMaxAttempts), first.MaxAttempts)

	_, err = ts.CreateAssistTask(ctx, &store.AssistTask{ItemID: item.ID, UserID: 1, TaskText: "研究 Go 并发"})
	require.ErrorIs(t, err, store.ErrAssistTaskInFlight)

	list, err := ts.ListAssistTasks(ctx, &store.FindAssistTask{ItemID: &item.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)

	// A terminal task frees the slot.
	failed := store.AssistTaskFailed
	require.NoError(t, ts.UpdateAssistTask(ctx, &store.UpdateAssistTask{ID: first.ID, Status: &failed}))
	_, err = ts.CreateAssistTask(ctx, &store.AssistTask{ItemID: item.ID, UserID: 1, TaskText: "研究 Go 并发"})
	require.NoError(t, err)
}

func TestAssistTaskClaim(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	item := createTestingItem(ctx, t, ts, &store.Item{UID: "claim-1", Type: store.ItemTypeTask, Title: "分析报告"})

	task, err := ts.CreateAssistTask(ctx, &store.AssistTask{ItemID: item.ID, UserID: 1, TaskText: "分析报告", MaxAttempts: 1})
	require.NoError(t, err)

	claimed, err := ts.ClaimAssistTask(ctx, task.ID, 1749513600)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.Equal(t, store.AssistTaskProcessing, claimed.Status)
	require.Equal(t, int32(1), claimed.AttemptCount)
	require.NotNil(t, claimed.ProcessedTs)

	// Processing tasks cannot be claimed again.
	again, err := ts.ClaimAssistTask(ctx, task.ID, 1749513601)
	require.NoError(t, err)
	require.Nil(t, again)

	// A pending task without attempts left is not eligible.
	pending := store.AssistTaskPending
	require.NoError(t, ts.UpdateAssistTask(ctx, &store.UpdateAssistTask{ID: task.ID, Status: &pending}))
	eligible, err := ts.ListAssistTasks(ctx, &store.FindAssistTask{Eligible: true})
	require.NoError(t, err)
	require.Empty(t, eligible)
	again, err = ts.ClaimAssistTask(ctx, task.ID, 1749513602)
	require.NoError(t, err)
	require.Nil(t, again)
}

func TestAssistTaskResultAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	item := createTestingItem(ctx, t, ts, &store.Item{UID: "result-1", Type: store.ItemTypeTask, Title: "总结会议"})

	task, err := ts.CreateAssistTask(ctx, &store.AssistTask{ItemID: item.ID, UserID: 1, TaskText: "总结会议"})
	require.NoError(t, err)

	completed := store.AssistTaskCompleted
	completedTs := int64(1749513600)
	require.NoError(t, ts.UpdateAssistTask(ctx, &store.UpdateAssistTask{
		ID:          task.ID,
		Status:      &completed,
		CompletedTs: &completedTs,
		Result: &store.AssistResult{
			KnowledgePoints: []string{"要点一"},
			ReferenceText:   "参考",
			SourceLinks:     []store.SourceLink{{Title: "t", Link: "https://example.com"}},
			SubItemCount:    3,
		},
	}))

	latest, err := ts.GetLatestAssistTask(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, store.AssistTaskCompleted, latest.Status)
	require.Equal(t, 3, latest.Result.SubItemCount)
	require.Equal(t, completedTs, *latest.CompletedTs)

	require.NoError(t, ts.DeleteAssistTasks(ctx, &store.DeleteAssistTask{ItemID: item.ID}))
	latest, err = ts.GetLatestAssistTask(ctx, item.ID)
	require.NoError(t, err)
	require.Nil(t, latest)
}

func TestAssistTaskOldestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	var ids []int32
	for i, uid := range []string{"order-1", "order-2", "order-3"} {
		item := createTestingItem(ctx, t, ts, &store.Item{UID: uid, Type: store.ItemTypeTask, Title: uid})
		task, err := ts.CreateAssistTask(ctx, &store.AssistTask{ItemID: item.ID, UserID: 1, TaskText: uid, CreatedTs: int64(1749513600 + 10 - i)})
		require.NoError(t, err)
		ids = append(ids, task.ID)
	}

	limit := 2
	list, err := ts.ListAssistTasks(ctx, &store.FindAssistTask{Eligible: true, Limit: &limit})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, ids[2], list[0].ID)
	require.Equal(t, ids[1], list[1].ID)
}
