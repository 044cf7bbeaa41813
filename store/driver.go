package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Item model related methods.
	CreateItem(ctx context.Context, create *Item) (*Item, error)
	ListItems(ctx context.Context, find *FindItem) ([]*Item, error)
	UpdateItem(ctx context.Context, update *UpdateItem) (*Item, error)
	ApplyConflictFlags(ctx context.Context, userID int32, conflicting []int32) error

	// AssistTask model related methods.
	CreateAssistTask(ctx context.Context, create *AssistTask) (*AssistTask, error)
	ListAssistTasks(ctx context.Context, find *FindAssistTask) ([]*AssistTask, error)
	ClaimAssistTask(ctx context.Context, id int32, processedTs int64) (*AssistTask, error)
	UpdateAssistTask(ctx context.Context, update *UpdateAssistTask) error
	DeleteAssistTasks(ctx context.Context, delete *DeleteAssistTask) error
}
