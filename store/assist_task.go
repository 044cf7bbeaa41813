package store

import (
	"context"
	"errors"
)

// ErrAssistTaskInFlight is returned when an item already has a pending or
// processing assist task.
var ErrAssistTaskInFlight = errors.New("item already has an in-flight assist task")

// AssistTaskStatus is the state of an assist task.
type AssistTaskStatus string

const (
	AssistTaskPending    AssistTaskStatus = "pending"
	AssistTaskProcessing AssistTaskStatus = "processing"
	AssistTaskCompleted  AssistTaskStatus = "completed"
	AssistTaskFailed     AssistTaskStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s AssistTaskStatus) IsTerminal() bool {
	return s == AssistTaskCompleted || s == AssistTaskFailed
}

// DefaultAssistMaxAttempts is used when a task is created without a limit.
const DefaultAssistMaxAttempts = 3

// SourceLink is a web reference kept in an assist result.
type SourceLink struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// AssistResult is the snapshot stored on a completed task.
type AssistResult struct {
	KnowledgePoints []string     `json:"knowledge_points"`
	ReferenceText   string       `json:"reference_text"`
	SourceLinks     []SourceLink `json:"source_links"`
	SubItemCount    int          `json:"sub_item_count"`
}

// AssistTask is one durable unit of deferred AI work for an item.
type AssistTask struct {
	ID             int32
	ItemID         int32
	UserID         int32
	Status         AssistTaskStatus
	TaskText       string
	SearchKeywords *string
	Result         *AssistResult
	AttemptCount   int32
	MaxAttempts    int32
	ErrorMessage   *string

	CreatedTs   int64
	ProcessedTs *int64
	CompletedTs *int64
}

// FindAssistTask is the find condition for assist tasks.
type FindAssistTask struct {
	ID     *int32
	ItemID *int32
	UserID *int32
	Status *AssistTaskStatus

	// Eligible selects pending tasks that still have attempts left.
	Eligible bool

	// Results are ordered oldest first.
	Limit *int
}

// UpdateAssistTask is the update request for an assist task.
type UpdateAssistTask struct {
	ID           int32
	Status       *AssistTaskStatus
	Result       *AssistResult
	ErrorMessage *string
	CompletedTs  *int64
}

// DeleteAssistTask deletes every task of an item.
type DeleteAssistTask struct {
	ItemID int32
}

// CreateAssistTask inserts a pending task. It returns ErrAssistTaskInFlight
// when the item already has a pending or processing task.
func (s *Store) CreateAssistTask(ctx context.Context, create *AssistTask) (*AssistTask, error) {
	if create.MaxAttempts <= 0 {
		create.MaxAttempts = DefaultAssistMaxAttempts
	}
	create.Status = AssistTaskPending
	create.AttemptCount = 0
	return s.driver.CreateAssistTask(ctx, create)
}

// ListAssistTasks lists assist tasks with filter, oldest first.
func (s *Store) ListAssistTasks(ctx context.Context, find *FindAssistTask) ([]*AssistTask, error) {
	return s.driver.ListAssistTasks(ctx, find)
}

// GetAssistTask returns the first task matching find, or nil if none.
func (s *Store) GetAssistTask(ctx context.Context, find *FindAssistTask) (*AssistTask, error) {
	list, err := s.driver.ListAssistTasks(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// GetLatestAssistTask returns the most recently created task of an item.
func (s *Store) GetLatestAssistTask(ctx context.Context, itemID int32) (*AssistTask, error) {
	list, err := s.driver.ListAssistTasks(ctx, &FindAssistTask{ItemID: &itemID})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[len(list)-1], nil
}

// ClaimAssistTask moves an eligible pending task to processing, increments
// its attempt count and stamps processed_ts. It returns nil when the task is
// missing or not claimable.
func (s *Store) ClaimAssistTask(ctx context.Context, id int32, processedTs int64) (*AssistTask, error) {
	return s.driver.ClaimAssistTask(ctx, id, processedTs)
}

// UpdateAssistTask updates an assist task.
func (s *Store) UpdateAssistTask(ctx context.Context, update *UpdateAssistTask) error {
	return s.driver.UpdateAssistTask(ctx, update)
}

// DeleteAssistTasks deletes all tasks of an item regardless of status.
func (s *Store) DeleteAssistTasks(ctx context.Context, delete *DeleteAssistTask) error {
	return s.driver.DeleteAssistTasks(ctx, delete)
}
