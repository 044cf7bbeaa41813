// Package item owns the item lifecycle: it persists classified items and
// keeps conflict flags and assist tasks consistent with every change.
package item

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/cogniflow/plugin/ai/aitime"
	"github.com/hrygo/cogniflow/plugin/ai/intake"
	"github.com/hrygo/cogniflow/server/service/assist"
	"github.com/hrygo/cogniflow/server/service/schedule"
	"github.com/hrygo/cogniflow/store"
)

var (
	// ErrNotFound is returned when an item does not exist or belongs to
	// another user.
	ErrNotFound = errors.New("item not found")
	// ErrInvalidInput is returned for malformed item fields.
	ErrInvalidInput = errors.New("invalid item input")
)

// Service manages items.
type Service struct {
	store      *store.Store
	classifier *intake.Classifier
	conflicts  *schedule.ConflictResolver
	assist     *assist.Service
	now        func() time.Time
}

// NewService creates an item service. assistService may be nil to disable
// assist enqueueing.
func NewService(s *store.Store, classifier *intake.Classifier, conflicts *schedule.ConflictResolver, assistService *assist.Service) *Service {
	return &Service{
		store:      s,
		classifier: classifier,
		conflicts:  conflicts,
		assist:     assistService,
		now:        time.Now,
	}
}

// Create persists a new item for its owner. Times are canonicalized, an
// event with only a start gets the default duration, and conflicts are
// recomputed before returning. When the raw text asks for research-style
// work an assist task is queued.
func (s *Service) Create(ctx context.Context, create *store.Item) (*store.Item, error) {
	if create.UserID == 0 {
		return nil, fmt.Errorf("%w: missing user", ErrInvalidInput)
	}
	create.UID = shortuuid.New()
	create.Type = store.NormalizeItemType(string(create.Type))
	create.Priority = store.NormalizePriority(string(create.Priority))
	if create.Status != store.ItemStatusCompleted {
		create.Status = store.ItemStatusPending
	}
	create.Title = strings.TrimSpace(create.Title)
	if create.Title == "" {
		create.Title = strings.TrimSpace(create.RawText)
	}
	if create.Title == "" {
		return nil, fmt.Errorf("%w: empty title", ErrInvalidInput)
	}
	if create.Tags == nil {
		create.Tags = []string{}
	}
	if create.Entities == nil {
		create.Entities = map[string]any{}
	}
	if create.SubItems == nil {
		create.SubItems = []store.SubItem{}
	}
	create.HasConflict = false

	for _, field := range []**string{&create.DueDate, &create.StartTime, &create.EndTime} {
		v, err := canonicalTime(*field)
		if err != nil {
			return nil, err
		}
		*field = v
	}
	if create.Type == store.ItemTypeEvent && create.StartTime != nil {
		end := ""
		if create.EndTime != nil {
			end = *create.EndTime
		}
		r := aitime.CompleteEventRange(*create.StartTime, end)
		create.StartTime, create.EndTime = &r.Start, &r.End
	}

	item, err := s.store.CreateItem(ctx, create)
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	slog.Info("item created", "item_id", item.ID, "user_id", item.UserID, "type", item.Type)

	if item.Type == store.ItemTypeEvent {
		if item, err = s.recomputeAndReload(ctx, item); err != nil {
			return nil, err
		}
	}

	s.maybeEnqueueAssist(ctx, item)
	return item, nil
}

func (s *Service) maybeEnqueueAssist(ctx context.Context, item *store.Item) {
	if s.assist == nil || item.Status == store.ItemStatusCompleted {
		return
	}
	text := item.RawText
	if strings.TrimSpace(text) == "" {
		text = item.Title
	}
	if !assist.ShouldTrigger(text) {
		return
	}
	if _, _, err := s.assist.CreateTask(ctx, item.ID, item.UserID, text, ""); err != nil {
		// The item is already saved; a missing assist task is not fatal.
		slog.Warn("failed to enqueue assist task", "item_id", item.ID, "error", err)
	}
}

// Get returns one of the user's items.
func (s *Service) Get(ctx context.Context, userID, id int32) (*store.Item, error) {
	item, err := s.store.GetItem(ctx, &store.FindItem{ID: &id, UserID: &userID})
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if item == nil {
		return nil, ErrNotFound
	}
	return item, nil
}

// ListOptions filters List.
type ListOptions struct {
	Type     *store.ItemType
	Status   *store.ItemStatus
	Archived bool // list archived items instead of active ones
	Limit    int
	Offset   int
}

// List returns the user's items, newest first.
func (s *Service) List(ctx context.Context, userID int32, opts ListOptions) ([]*store.Item, error) {
	find := &store.FindItem{
		UserID:          &userID,
		Type:            opts.Type,
		Status:          opts.Status,
		ExcludeArchived: !opts.Archived,
		OnlyArchived:    opts.Archived,
	}
	if opts.Limit > 0 {
		find.Limit = &opts.Limit
		if opts.Offset > 0 {
			find.Offset = &opts.Offset
		}
	}
	items, err := s.store.ListItems(ctx, find)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

// Update applies a partial update to one of the user's items. Scheduling
// changes on events recompute conflicts before returning, and completing an
// item cancels its assist work.
func (s *Service) Update(ctx context.Context, userID int32, update *store.UpdateItem) (*store.Item, error) {
	before, err := s.Get(ctx, userID, update.ID)
	if err != nil {
		return nil, err
	}

	for _, field := range []**string{&update.DueDate, &update.StartTime, &update.EndTime} {
		if *field == nil || **field == "" {
			continue
		}
		v, err := canonicalTime(*field)
		if err != nil {
			return nil, err
		}
		*field = v
	}
	if update.Type != nil {
		t := store.NormalizeItemType(string(*update.Type))
		update.Type = &t
	}
	if update.Priority != nil {
		p := store.NormalizePriority(string(*update.Priority))
		update.Priority = &p
	}
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		return nil, fmt.Errorf("%w: empty title", ErrInvalidInput)
	}
	now := s.now().Unix()
	update.UpdatedTs = &now

	after, err := s.store.UpdateItem(ctx, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}

	if after.Status == store.ItemStatusCompleted && before.Status != store.ItemStatusCompleted {
		s.cancelAssist(ctx, after.ID)
	}

	eventTouched := before.Type == store.ItemTypeEvent || after.Type == store.ItemTypeEvent
	if eventTouched && (update.TimeChanged() || update.Type != nil || update.Status != nil || update.ArchivedTs != nil || update.DeletedTs != nil) {
		return s.recomputeAndReload(ctx, after)
	}
	return after, nil
}

// Delete soft-deletes an item.
func (s *Service) Delete(ctx context.Context, userID, id int32) error {
	ts := s.now().Unix()
	if _, err := s.retire(ctx, userID, &store.UpdateItem{ID: id, DeletedTs: &ts}); err != nil {
		return err
	}
	return nil
}

// Archive archives an item.
func (s *Service) Archive(ctx context.Context, userID, id int32) (*store.Item, error) {
	ts := s.now().Unix()
	return s.retire(ctx, userID, &store.UpdateItem{ID: id, ArchivedTs: &ts})
}

// Unarchive restores an archived item.
func (s *Service) Unarchive(ctx context.Context, userID, id int32) (*store.Item, error) {
	var zero int64
	return s.Update(ctx, userID, &store.UpdateItem{ID: id, ArchivedTs: &zero})
}

// Complete marks an item completed.
func (s *Service) Complete(ctx context.Context, userID, id int32) (*store.Item, error) {
	status := store.ItemStatusCompleted
	return s.Update(ctx, userID, &store.UpdateItem{ID: id, Status: &status})
}

// retire applies a delete or archive update and drops the item's assist
// tasks.
func (s *Service) retire(ctx context.Context, userID int32, update *store.UpdateItem) (*store.Item, error) {
	item, err := s.Update(ctx, userID, update)
	if err != nil {
		return nil, err
	}
	s.cancelAssist(ctx, item.ID)
	return item, nil
}

func (s *Service) cancelAssist(ctx context.Context, itemID int32) {
	if s.assist == nil {
		return
	}
	if err := s.assist.CancelTasksForItem(ctx, itemID); err != nil {
		slog.Warn("failed to cancel assist tasks", "item_id", itemID, "error", err)
	}
}

// recomputeAndReload recomputes the owner's conflicts and returns the item
// with its fresh flag.
func (s *Service) recomputeAndReload(ctx context.Context, item *store.Item) (*store.Item, error) {
	if s.conflicts == nil {
		return item, nil
	}
	if _, err := s.conflicts.Recompute(ctx, item.UserID); err != nil {
		return nil, fmt.Errorf("failed to recompute conflicts: %w", err)
	}
	fresh, err := s.store.GetItem(ctx, &store.FindItem{ID: &item.ID, IncludeDeleted: true})
	if err != nil {
		return nil, fmt.Errorf("failed to reload item: %w", err)
	}
	if fresh == nil {
		return item, nil
	}
	return fresh, nil
}

// ToggleSubItem flips a sub-item between pending and done.
func (s *Service) ToggleSubItem(ctx context.Context, userID, id int32, subItemID string) (*store.Item, error) {
	item, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	now := s.now().Unix()
	updated, err := s.store.ModifySubItems(ctx, item.ID, &now, func(subItems []store.SubItem) ([]store.SubItem, error) {
		for i := range subItems {
			if subItems[i].ID != subItemID {
				continue
			}
			if subItems[i].Status == store.SubItemDone {
				subItems[i].Status = store.SubItemPending
			} else {
				subItems[i].Status = store.SubItemDone
			}
			return subItems, nil
		}
		return nil, ErrNotFound
	})
	if errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update sub-items: %w", err)
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	return updated, nil
}

// FreeSlots suggests alternative slots for one of the user's events.
func (s *Service) FreeSlots(ctx context.Context, userID, id int32) ([]schedule.TimeSlot, error) {
	item, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if item.Type != store.ItemTypeEvent {
		return nil, fmt.Errorf("%w: item %d is not an event", ErrInvalidInput, id)
	}
	return s.conflicts.Alternatives(ctx, item)
}

func canonicalTime(v *string) (*string, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil, nil
	}
	c, ok := aitime.CanonicalLocal(*v)
	if !ok {
		return nil, fmt.Errorf("%w: bad time %q", ErrInvalidInput, *v)
	}
	return &c, nil
}
