package v1

import (
	"github.com/hrygo/cogniflow/plugin/ai/intake"
	"github.com/hrygo/cogniflow/server/service/item"
	"github.com/hrygo/cogniflow/store"
)

// Item is the API representation of an item.
type Item struct {
	ID          int32            `json:"id"`
	UID         string           `json:"uid"`
	Type        store.ItemType   `json:"type"`
	Status      store.ItemStatus `json:"status"`
	RawText     string           `json:"raw_text"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	DueDate     *string          `json:"due_date"`
	StartTime   *string          `json:"start_time"`
	EndTime     *string          `json:"end_time"`
	HasConflict bool             `json:"has_conflict"`
	Priority    store.Priority   `json:"priority"`
	Tags        []string         `json:"tags"`
	Entities    map[string]any   `json:"entities"`
	SubItems    []store.SubItem  `json:"sub_items"`

	RecurrenceRule    *string `json:"recurrence_rule,omitempty"`
	RecurrenceEndDate *string `json:"recurrence_end_date,omitempty"`

	Archived  bool  `json:"archived"`
	CreatedTs int64 `json:"created_ts"`
	UpdatedTs int64 `json:"updated_ts"`
}

func convertItemFromStore(i *store.Item) *Item {
	if i == nil {
		return nil
	}
	result := &Item{
		ID:                i.ID,
		UID:               i.UID,
		Type:              i.Type,
		Status:            i.Status,
		RawText:           i.RawText,
		Title:             i.Title,
		Description:       i.Description,
		DueDate:           i.DueDate,
		StartTime:         i.StartTime,
		EndTime:           i.EndTime,
		HasConflict:       i.HasConflict,
		Priority:          i.Priority,
		Tags:              i.Tags,
		Entities:          i.Entities,
		SubItems:          i.SubItems,
		RecurrenceRule:    i.RecurrenceRule,
		RecurrenceEndDate: i.RecurrenceEndDate,
		Archived:          i.IsArchived(),
		CreatedTs:         i.CreatedTs,
		UpdatedTs:         i.UpdatedTs,
	}
	if result.Tags == nil {
		result.Tags = []string{}
	}
	if result.Entities == nil {
		result.Entities = map[string]any{}
	}
	if result.SubItems == nil {
		result.SubItems = []store.SubItem{}
	}
	return result
}

func convertItemsFromStore(items []*store.Item) []*Item {
	result := make([]*Item, 0, len(items))
	for _, i := range items {
		result = append(result, convertItemFromStore(i))
	}
	return result
}

// IntakeResponse is the response to free-text item creation.
type IntakeResponse struct {
	Outcome *intake.Outcome `json:"outcome"`
	Item    *Item           `json:"item,omitempty"`
	Items   []*Item         `json:"items,omitempty"`
}

func convertIntakeResult(r *item.IntakeResult) *IntakeResponse {
	resp := &IntakeResponse{
		Outcome: r.Outcome,
		Item:    convertItemFromStore(r.Item),
	}
	if r.Outcome != nil && r.Outcome.Kind == intake.OutcomeQuery {
		resp.Items = convertItemsFromStore(r.Items)
	}
	return resp
}

// SearchHit is one full-text search result.
type SearchHit struct {
	Item       *Item            `json:"item"`
	Snippet    string           `json:"snippet"`
	Highlights []item.Highlight `json:"highlights"`
	Matches    int              `json:"matches"`
}

func convertSearchHits(hits []*item.SearchHit) []*SearchHit {
	result := make([]*SearchHit, 0, len(hits))
	for _, h := range hits {
		highlights := h.Highlights
		if highlights == nil {
			highlights = []item.Highlight{}
		}
		result = append(result, &SearchHit{
			Item:       convertItemFromStore(h.Item),
			Snippet:    h.Snippet,
			Highlights: highlights,
			Matches:    h.Matches,
		})
	}
	return result
}
