package intake

import (
	"unicode/utf8"

	"github.com/hrygo/cogniflow/store"
)

// OutcomeKind tags the variant held by an Outcome.
type OutcomeKind string

const (
	OutcomeHelp     OutcomeKind = "help"
	OutcomeQuery    OutcomeKind = "query"
	OutcomeURL      OutcomeKind = "url"
	OutcomeTemplate OutcomeKind = "template"
	OutcomeItem     OutcomeKind = "item"
)

// Outcome is the result of classifying one piece of user text. Exactly one
// of the payload fields is set, selected by Kind.
type Outcome struct {
	Kind OutcomeKind `json:"kind"`

	Help  string       `json:"help,omitempty"`
	Query *QueryIntent `json:"query,omitempty"`
	// Template is nil for a bare "/", in which case Templates lists every
	// registered template.
	Template  *Template   `json:"template,omitempty"`
	Templates []*Template `json:"templates,omitempty"`
	Prefill   string      `json:"prefill,omitempty"`
	// Item is set for OutcomeItem and OutcomeURL.
	Item *Draft `json:"item,omitempty"`
}

// QueryIntent is a structured search over stored items.
type QueryIntent struct {
	Types           []store.ItemType   `json:"types,omitempty"`
	Statuses        []store.ItemStatus `json:"statuses,omitempty"`
	Tags            []string           `json:"tags,omitempty"`
	SearchText      string             `json:"search_text,omitempty"`
	IncludeArchived bool               `json:"include_archived,omitempty"`
}

// Draft is a classified item that has not been persisted yet.
type Draft struct {
	Type        store.ItemType `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	DueDate     *string        `json:"due_date"`
	StartTime   *string        `json:"start_time"`
	EndTime     *string        `json:"end_time"`
	Priority    store.Priority `json:"priority"`
	Tags        []string       `json:"tags"`
	Entities    map[string]any `json:"entities"`
	RawText     string         `json:"raw_text"`
	// Fallback is true when the model could not be used.
	Fallback bool `json:"fallback"`
}

// maxFallbackTitleRunes is the title length used when the model fails.
const maxFallbackTitleRunes = 30

// FallbackDraft is the deterministic classification used whenever the model
// call or its output fails.
func FallbackDraft(text string) *Draft {
	return &Draft{
		Type:        store.ItemTypeTask,
		Title:       truncateRunes(text, maxFallbackTitleRunes),
		Description: text,
		Priority:    store.PriorityMedium,
		Tags:        []string{},
		Entities:    map[string]any{},
		RawText:     text,
		Fallback:    true,
	}
}

// ToItem converts the draft into a store item owned by userID.
func (d *Draft) ToItem(userID int32) *store.Item {
	itemType := d.Type
	if !itemType.IsValid() {
		itemType = store.ItemTypeTask
	}
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	entities := d.Entities
	if entities == nil {
		entities = map[string]any{}
	}
	return &store.Item{
		UserID:      userID,
		Type:        itemType,
		Status:      store.ItemStatusPending,
		RawText:     d.RawText,
		Title:       d.Title,
		Description: d.Description,
		DueDate:     d.DueDate,
		StartTime:   d.StartTime,
		EndTime:     d.EndTime,
		Priority:    store.NormalizePriority(string(d.Priority)),
		Tags:        tags,
		Entities:    entities,
		SubItems:    []store.SubItem{},
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
