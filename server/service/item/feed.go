package item

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/hrygo/cogniflow/plugin/markdown"
	"github.com/hrygo/cogniflow/store"
)

const maxFeedItems = 50

// Feed renders the user's most recent active items as an RSS document.
// baseURL is the public origin links are built from.
func (s *Service) Feed(ctx context.Context, userID int32, baseURL string) (string, error) {
	limit := maxFeedItems
	items, err := s.store.ListItems(ctx, &store.FindItem{
		UserID:          &userID,
		ExcludeArchived: true,
		Limit:           &limit,
	})
	if err != nil {
		return "", fmt.Errorf("failed to list items: %w", err)
	}

	baseURL = strings.TrimRight(baseURL, "/")
	feed := &feeds.Feed{
		Title:       "CogniFlow",
		Link:        &feeds.Link{Href: baseURL},
		Description: "Recent items",
		Created:     s.now(),
		Items:       make([]*feeds.Item, 0, len(items)),
	}
	for _, item := range items {
		link := fmt.Sprintf("%s/api/v1/items/%d", baseURL, item.ID)
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          item.UID,
			Title:       item.Title,
			Link:        &feeds.Link{Href: link},
			Description: markdown.Summary(item.Description, 280),
			Content:     item.Description,
			Created:     time.Unix(item.CreatedTs, 0),
			Updated:     time.Unix(item.UpdatedTs, 0),
		})
	}

	rss, err := feed.ToRss()
	if err != nil {
		return "", fmt.Errorf("failed to render feed: %w", err)
	}
	return rss, nil
}
