package item

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hrygo/cogniflow/plugin/markdown"
	"github.com/hrygo/cogniflow/store"
)

const maxSearchResults = 50

// SearchHit is an item matched by a free-text search.
type SearchHit struct {
	Item       *store.Item `json:"item"`
	Snippet    string      `json:"snippet"`
	Highlights []Highlight `json:"highlights"`
	Matches    int         `json:"matches"`
}

// Search finds the user's active items containing any word of q and
// returns them with a highlighted snippet, most matches first.
func (s *Service) Search(ctx context.Context, userID int32, q string) ([]*SearchHit, error) {
	terms := searchTerms(q)
	if len(terms) == 0 {
		return []*SearchHit{}, nil
	}

	limit := maxSearchResults
	items, err := s.store.ListItems(ctx, &store.FindItem{
		UserID:          &userID,
		Keywords:        terms,
		ExcludeArchived: true,
		Limit:           &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search items: %w", err)
	}

	hits := make([]*SearchHit, 0, len(items))
	for _, item := range items {
		content := searchableText(item)
		matches := findMatches(content, terms)
		snippet, highlights := extractSnippet(content, matches, defaultContextRunes)
		hits = append(hits, &SearchHit{
			Item:       item,
			Snippet:    snippet,
			Highlights: highlights,
			Matches:    len(matches),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Matches > hits[j].Matches })
	return hits, nil
}

// searchableText joins the fields a search looks at into plain text.
func searchableText(item *store.Item) string {
	parts := []string{item.Title}
	if d := markdown.PlainText(item.Description); d != "" {
		parts = append(parts, d)
	}
	if len(item.Tags) > 0 {
		parts = append(parts, "#"+strings.Join(item.Tags, " #"))
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
