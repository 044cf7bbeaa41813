// Package assist runs deferred AI assist work for items: a durable task
// queue, the assist procedure and the background scheduler that drains it.
package assist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hrygo/cogniflow/store"
)

// ErrTaskNotClaimable is returned when a task is missing, already claimed,
// terminal or out of attempts.
var ErrTaskNotClaimable = errors.New("assist task is not claimable")

// Service manages assist tasks.
type Service struct {
	store  *store.Store
	runner Runner
	now    func() time.Time
}

// NewService creates an assist service.
func NewService(s *store.Store, runner Runner) *Service {
	return &Service{
		store:  s,
		runner: runner,
		now:    time.Now,
	}
}

// CreateTask enqueues a pending task for an item. When the item already has
// a pending or processing task nothing is created and created is false.
func (s *Service) CreateTask(ctx context.Context, itemID, userID int32, text, keywords string) (task *store.AssistTask, created bool, err error) {
	create := &store.AssistTask{
		ItemID:   itemID,
		UserID:   userID,
		TaskText: text,
	}
	if keywords != "" {
		create.SearchKeywords = &keywords
	}

	task, err = s.store.CreateAssistTask(ctx, create)
	if errors.Is(err, store.ErrAssistTaskInFlight) {
		slog.Debug("assist task already in flight", "item_id", itemID)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to create assist task: %w", err)
	}

	slog.Info("assist task created", "task_id", task.ID, "item_id", itemID, "user_id", userID)
	return task, true, nil
}

// ProcessTask claims a task and runs it to a terminal state. Failures of the
// assist procedure are recorded on the task; the returned error only reports
// that the task could not be claimed or its state could not be saved.
func (s *Service) ProcessTask(ctx context.Context, taskID int32) (err error) {
	task, err := s.store.ClaimAssistTask(ctx, taskID, s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to claim assist task %d: %w", taskID, err)
	}
	if task == nil {
		return ErrTaskNotClaimable
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("assist task panicked", "task_id", task.ID, "panic", r)
			err = s.fail(ctx, task, fmt.Sprintf("panic: %v", r))
		}
	}()

	keywords := ""
	if task.SearchKeywords != nil {
		keywords = *task.SearchKeywords
	}
	outcome, err := s.runner.Run(ctx, Request{UserID: task.UserID, Text: task.TaskText, Keywords: keywords})
	if err != nil {
		return s.fail(ctx, task, err.Error())
	}
	if outcome == nil || len(outcome.SubItems) == 0 {
		return s.fail(ctx, task, "assist produced no sub-items")
	}

	item, err := s.store.ModifySubItems(ctx, task.ItemID, nil, func(current []store.SubItem) ([]store.SubItem, error) {
		return append(current, outcome.SubItems...), nil
	})
	if err != nil {
		return s.fail(ctx, task, fmt.Sprintf("update failed: %v", err))
	}
	if item == nil {
		return s.fail(ctx, task, "item not found")
	}

	completed := store.AssistTaskCompleted
	completedTs := s.now().Unix()
	if err := s.store.UpdateAssistTask(context.WithoutCancel(ctx), &store.UpdateAssistTask{
		ID:          task.ID,
		Status:      &completed,
		Result:      outcome.Result(),
		CompletedTs: &completedTs,
	}); err != nil {
		return fmt.Errorf("failed to complete assist task %d: %w", task.ID, err)
	}

	slog.Info("assist task completed",
		"task_id", task.ID,
		"item_id", item.ID,
		"sub_items", len(outcome.SubItems),
		"search_failed", outcome.SearchFailed,
	)
	return nil
}

// fail marks a claimed task failed. It only returns an error when the
// state cannot be saved.
func (s *Service) fail(ctx context.Context, task *store.AssistTask, reason string) error {
	slog.Warn("assist task failed", "task_id", task.ID, "item_id", task.ItemID, "reason", reason)
	failed := store.AssistTaskFailed
	if err := s.store.UpdateAssistTask(context.WithoutCancel(ctx), &store.UpdateAssistTask{
		ID:           task.ID,
		Status:       &failed,
		ErrorMessage: &reason,
	}); err != nil {
		return fmt.Errorf("failed to mark assist task %d failed: %w", task.ID, err)
	}
	return nil
}

// ProcessPending processes up to limit eligible tasks, oldest first, one
// after another. wait runs before every task, including the first, so a
// pacing limiter also spaces a batch from the one before it. It returns the
// number of tasks that reached a terminal state.
func (s *Service) ProcessPending(ctx context.Context, limit int, wait func(context.Context) error) (int, error) {
	tasks, err := s.store.ListAssistTasks(ctx, &store.FindAssistTask{Eligible: true, Limit: &limit})
	if err != nil {
		return 0, fmt.Errorf("failed to list pending assist tasks: %w", err)
	}

	processed := 0
	for _, task := range tasks {
		if wait != nil {
			if err := wait(ctx); err != nil {
				return processed, err
			}
		}
		if err := s.ProcessTask(ctx, task.ID); err != nil {
			if errors.Is(err, ErrTaskNotClaimable) {
				continue
			}
			slog.Error("failed to process assist task", "task_id", task.ID, "error", err)
			continue
		}
		processed++
	}
	return processed, nil
}

// CancelTasksForItem drops every task of an item, whatever its state.
func (s *Service) CancelTasksForItem(ctx context.Context, itemID int32) error {
	if err := s.store.DeleteAssistTasks(ctx, &store.DeleteAssistTask{ItemID: itemID}); err != nil {
		return fmt.Errorf("failed to cancel assist tasks for item %d: %w", itemID, err)
	}
	return nil
}

// Status is the assist state of an item as polled by clients.
type Status struct {
	HasAssist   bool    `json:"hasAssist"`
	Status      *string `json:"status"`
	CompletedAt *string `json:"completedAt"`
}

// GetStatus reports the latest assist task of an item.
func (s *Service) GetStatus(ctx context.Context, itemID int32) (*Status, error) {
	task, err := s.store.GetLatestAssistTask(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assist task: %w", err)
	}
	if task == nil {
		return &Status{}, nil
	}

	status := string(task.Status)
	result := &Status{HasAssist: true, Status: &status}
	if task.CompletedTs != nil {
		at := time.Unix(*task.CompletedTs, 0).UTC().Format(time.RFC3339)
		result.CompletedAt = &at
	}
	return result, nil
}
