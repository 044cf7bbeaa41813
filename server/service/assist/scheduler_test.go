package assist

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/cogniflow/store"
)

func TestScheduler_StartStop(t *testing.T) {
	svc, _ := newTestService(t, &stubRunner{})
	scheduler := NewScheduler(svc, SchedulerConfig{Interval: 100 * time.Millisecond})

	ctx := context.Background()
	require.NoError(t, scheduler.Start(ctx))
	assert.True(t, scheduler.IsRunning())

	// Double start should be no-op
	require.NoError(t, scheduler.Start(ctx))

	scheduler.Stop()
	assert.False(t, scheduler.IsRunning())

	// Double stop should be no-op
	scheduler.Stop()

	// Restartable
	require.NoError(t, scheduler.Start(ctx))
	assert.True(t, scheduler.IsRunning())
	scheduler.Stop()
}

func TestScheduler_ProcessesPendingTasks(t *testing.T) {
	ctx := context.Background()
	runner := &stubRunner{outcome: outcomeWith(1)}
	svc, ts := newTestService(t, runner)

	var items []*store.Item
	for _, uid := range []string{"sched-a", "sched-b", "sched-c"} {
		item := createItem(t, ts, uid, nil)
		_, _, err := svc.CreateTask(ctx, item.ID, 1, uid, "")
		require.NoError(t, err)
		items = append(items, item)
	}

	scheduler := NewScheduler(svc, SchedulerConfig{Interval: 50 * time.Millisecond, BatchSize: 5, TaskDelay: time.Millisecond})
	processedChan := scheduler.EnableTestMode()

	runCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, scheduler.Start(runCtx))

	select {
	case processed := <-processedChan:
		assert.Equal(t, 3, processed)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for assist tasks to be processed")
	}
	scheduler.Stop()

	assert.Equal(t, []string{"sched-a", "sched-b", "sched-c"}, runner.calls())
	for _, item := range items {
		assert.Len(t, getItem(t, ts, item.ID).SubItems, 1)
	}
}

func TestScheduler_ProcessNowAndRunOnce(t *testing.T) {
	ctx := context.Background()
	svc, ts := newTestService(t, &stubRunner{outcome: outcomeWith(1)})
	for _, uid := range []string{"now-a", "now-b", "now-c"} {
		item := createItem(t, ts, uid, nil)
		_, _, err := svc.CreateTask(ctx, item.ID, 1, uid, "")
		require.NoError(t, err)
	}

	scheduler := NewScheduler(svc, SchedulerConfig{BatchSize: 1})

	processed, err := scheduler.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	processed, err = scheduler.ProcessNow(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)

	processed, err = scheduler.ProcessNow(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, processed)
}

func TestScheduler_SpacesTaskStarts(t *testing.T) {
	ctx := context.Background()
	runner := &stubRunner{outcome: outcomeWith(1)}
	svc, ts := newTestService(t, runner)
	for _, uid := range []string{"gap-a", "gap-b", "gap-c"} {
		item := createItem(t, ts, uid, nil)
		_, _, err := svc.CreateTask(ctx, item.ID, 1, uid, "")
		require.NoError(t, err)
	}

	const delay = 150 * time.Millisecond
	scheduler := NewScheduler(svc, SchedulerConfig{TaskDelay: delay})

	processed, err := scheduler.ProcessNow(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 3, processed)

	starts := runner.startTimes()
	require.Len(t, starts, 3)
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		assert.GreaterOrEqual(t, gap, delay-20*time.Millisecond, "gap before task %d", i+1)
	}
}

func TestScheduler_ProcessNowCapsLimit(t *testing.T) {
	ctx := context.Background()
	svc, ts := newTestService(t, &stubRunner{outcome: outcomeWith(1)})
	for _, uid := range []string{"cap-a", "cap-b", "cap-c"} {
		item := createItem(t, ts, uid, nil)
		_, _, err := svc.CreateTask(ctx, item.ID, 1, uid, "")
		require.NoError(t, err)
	}

	scheduler := NewScheduler(svc, SchedulerConfig{ManualBatchSize: 2})

	processed, err := scheduler.ProcessNow(ctx, 1000)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)
}
