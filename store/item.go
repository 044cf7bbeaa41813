package store

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
)

// ErrSubItemsChanged is returned by a conditional sub-item update that lost
// a race with another writer.
var ErrSubItemsChanged = errors.New("item sub-items changed concurrently")

const modifySubItemsAttempts = 5

// ItemType is the classification of an item.
type ItemType string

const (
	ItemTypeTask       ItemType = "task"
	ItemTypeEvent      ItemType = "event"
	ItemTypeNote       ItemType = "note"
	ItemTypeData       ItemType = "data"
	ItemTypeURL        ItemType = "url"
	ItemTypeCollection ItemType = "collection"
)

// IsValid reports whether t is one of the known item types.
func (t ItemType) IsValid() bool {
	switch t {
	case ItemTypeTask, ItemTypeEvent, ItemTypeNote, ItemTypeData, ItemTypeURL, ItemTypeCollection:
		return true
	}
	return false
}

// NormalizeItemType maps an unknown or empty type to task.
func NormalizeItemType(t string) ItemType {
	if v := ItemType(t); v.IsValid() {
		return v
	}
	return ItemTypeTask
}

// ItemStatus is the completion status of an item.
type ItemStatus string

const (
	ItemStatusPending   ItemStatus = "pending"
	ItemStatusCompleted ItemStatus = "completed"
)

// Priority is the priority of an item.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// NormalizePriority maps an unknown or empty priority to medium.
func NormalizePriority(p string) Priority {
	switch Priority(p) {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return Priority(p)
	}
	return PriorityMedium
}

// SubItemStatus is the checklist state of a sub-item.
type SubItemStatus string

const (
	SubItemPending SubItemStatus = "pending"
	SubItemDone    SubItemStatus = "done"
)

// SubItem is a checklist entry attached to an item.
type SubItem struct {
	ID     string        `json:"id"`
	Text   string        `json:"text"`
	Status SubItemStatus `json:"status"`
}

// Item is the central user record.
//
// DueDate, StartTime and EndTime hold local wall-clock values formatted as
// 2006-01-02T15:04:05 with no zone. They are stored as text and never
// converted between zones.
type Item struct {
	ID     int32
	UID    string
	UserID int32

	Type        ItemType
	Status      ItemStatus
	RawText     string
	Title       string
	Description string

	DueDate   *string
	StartTime *string
	EndTime   *string

	HasConflict bool
	Priority    Priority
	Tags        []string
	Entities    map[string]any
	SubItems    []SubItem

	RecurrenceRule    *string
	RecurrenceEndDate *string
	MasterItemID      *int32
	IsMaster          bool

	ArchivedTs *int64
	DeletedTs  *int64
	CreatedTs  int64
	UpdatedTs  int64
}

// IsArchived reports whether the item is archived.
func (i *Item) IsArchived() bool {
	return i.ArchivedTs != nil
}

// IsDeleted reports whether the item is soft-deleted.
func (i *Item) IsDeleted() bool {
	return i.DeletedTs != nil
}

// FindItem is the find condition for items.
type FindItem struct {
	ID     *int32
	UID    *string
	UserID *int32
	Type   *ItemType
	Status *ItemStatus

	// ExcludeArchived filters out archived items.
	ExcludeArchived bool
	// OnlyArchived returns archived items only.
	OnlyArchived bool
	// IncludeDeleted returns soft-deleted items too.
	IncludeDeleted bool

	// Keywords matches items containing any keyword in title, description,
	// raw text or tags.
	Keywords []string

	Limit  *int
	Offset *int
}

// UpdateItem is the update request for an item.
//
// For DueDate, StartTime and EndTime an empty string clears the value.
type UpdateItem struct {
	ID        int32
	UpdatedTs *int64

	Type        *ItemType
	Status      *ItemStatus
	Title       *string
	Description *string
	DueDate     *string
	StartTime   *string
	EndTime     *string
	Priority    *Priority
	Tags        *[]string
	Entities    *map[string]any
	SubItems    *[]SubItem

	// ExpectedSubItems makes the update conditional: it only applies while
	// the stored sub-items still equal this value. Otherwise UpdateItem
	// returns ErrSubItemsChanged.
	ExpectedSubItems *[]SubItem

	// ArchivedTs sets the archive time; a value of zero clears it.
	ArchivedTs *int64
	DeletedTs  *int64
}

// TimeChanged reports whether the update touches any scheduling field.
func (u *UpdateItem) TimeChanged() bool {
	return u.DueDate != nil || u.StartTime != nil || u.EndTime != nil
}

// CreateItem creates a new item.
func (s *Store) CreateItem(ctx context.Context, create *Item) (*Item, error) {
	return s.driver.CreateItem(ctx, create)
}

// ListItems lists items with filter.
func (s *Store) ListItems(ctx context.Context, find *FindItem) ([]*Item, error) {
	return s.driver.ListItems(ctx, find)
}

// GetItem returns the first item matching find, or nil if none.
func (s *Store) GetItem(ctx context.Context, find *FindItem) (*Item, error) {
	list, err := s.driver.ListItems(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// UpdateItem updates an item and returns the stored row.
func (s *Store) UpdateItem(ctx context.Context, update *UpdateItem) (*Item, error) {
	return s.driver.UpdateItem(ctx, update)
}

// ModifySubItems rewrites an item's sub-items through fn. The write is a
// compare-and-swap on the sub-items read, retried when another writer got in
// between, so concurrent appends and toggles never drop each other's
// changes. It returns nil when the item does not exist. An error from fn is
// returned as is.
func (s *Store) ModifySubItems(ctx context.Context, id int32, updatedTs *int64, fn func([]SubItem) ([]SubItem, error)) (*Item, error) {
	for attempt := 0; attempt < modifySubItemsAttempts; attempt++ {
		item, err := s.GetItem(ctx, &FindItem{ID: &id})
		if err != nil || item == nil {
			return nil, err
		}
		current := slices.Clone(item.SubItems)
		next, err := fn(slices.Clone(current))
		if err != nil {
			return nil, err
		}
		updated, err := s.driver.UpdateItem(ctx, &UpdateItem{
			ID:               id,
			UpdatedTs:        updatedTs,
			SubItems:         &next,
			ExpectedSubItems: &current,
		})
		if errors.Is(err, ErrSubItemsChanged) {
			continue
		}
		return updated, err
	}
	return nil, ErrSubItemsChanged
}

// ApplyConflictFlags resets has_conflict on every non-deleted event of the
// user and sets it on the given ids, in one transaction.
func (s *Store) ApplyConflictFlags(ctx context.Context, userID int32, conflicting []int32) error {
	return s.driver.ApplyConflictFlags(ctx, userID, conflicting)
}

// MarshalJSONField encodes v for a JSON column, using fallback for nil values.
func MarshalJSONField(v any, fallback string) (string, error) {
	if v == nil {
		return fallback, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return fallback, nil
	}
	return string(b), nil
}

// UnmarshalItemJSON decodes the JSON columns of an item row.
func UnmarshalItemJSON(item *Item, tags, entities, subItems []byte) error {
	item.Tags = []string{}
	item.Entities = map[string]any{}
	item.SubItems = []SubItem{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &item.Tags); err != nil {
			return err
		}
	}
	if len(entities) > 0 {
		if err := json.Unmarshal(entities, &item.Entities); err != nil {
			return err
		}
	}
	if len(subItems) > 0 {
		if err := json.Unmarshal(subItems, &item.SubItems); err != nil {
			return err
		}
	}
	if item.Tags == nil {
		item.Tags = []string{}
	}
	if item.Entities == nil {
		item.Entities = map[string]any{}
	}
	if item.SubItems == nil {
		item.SubItems = []SubItem{}
	}
	return nil
}
