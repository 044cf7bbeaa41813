package item

import (
	"context"
	"fmt"

	"github.com/hrygo/cogniflow/plugin/ai/intake"
	"github.com/hrygo/cogniflow/store"
)

// IntakeResult is the response to a piece of free text. Item is set when an
// item was created and Items when the text was a query.
type IntakeResult struct {
	Outcome *intake.Outcome `json:"outcome"`
	Item    *store.Item     `json:"item,omitempty"`
	Items   []*store.Item   `json:"items,omitempty"`
}

// CreateFromText classifies free text and acts on the outcome: items are
// created, queries are executed, and help or template prompts are returned
// untouched.
func (s *Service) CreateFromText(ctx context.Context, userID int32, text string) (*IntakeResult, error) {
	outcome, err := s.classifier.Classify(ctx, userID, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	result := &IntakeResult{Outcome: outcome}
	switch outcome.Kind {
	case intake.OutcomeQuery:
		items, err := s.Query(ctx, userID, outcome.Query)
		if err != nil {
			return nil, err
		}
		result.Items = items
	case intake.OutcomeItem, intake.OutcomeURL:
		item, err := s.Create(ctx, outcome.Item.ToItem(userID))
		if err != nil {
			return nil, err
		}
		result.Item = item
	}
	return result, nil
}

// CreateFromTemplate renders a registered template with the given field
// values and creates the item.
func (s *Service) CreateFromTemplate(ctx context.Context, userID int32, trigger string, values map[string]string) (*store.Item, error) {
	t, ok := s.classifier.Templates().Lookup(trigger)
	if !ok {
		return nil, fmt.Errorf("%w: unknown template %q", ErrInvalidInput, trigger)
	}
	draft, err := t.Render(values)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.Create(ctx, draft.ToItem(userID))
}
