// Package related finds a user's existing items that relate to a topic and
// estimates how well the topic is already covered.
package related

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hrygo/cogniflow/plugin/ai"
	"github.com/hrygo/cogniflow/plugin/ai/cache"
	"github.com/hrygo/cogniflow/plugin/ai/tags"
	"github.com/hrygo/cogniflow/plugin/markdown"
	"github.com/hrygo/cogniflow/store"
)

// Scoring weights per matched keyword.
const (
	titleWeight       = 30
	descriptionWeight = 20
	rawTextWeight     = 15
	tagWeight         = 10
	researchBonus     = 15

	maxScore        = 100
	maxRelated      = 5
	maxSummaryRunes = 100
	candidateLimit  = 50
)

// researchTags mark items that were collected as study material.
var researchTags = map[string]bool{
	"研究": true, "学习": true, "调研": true, "资料": true, "笔记": true, "参考": true,
	"research": true, "study": true, "learning": true, "reference": true,
}

// RankedItem is an item scored against a topic.
type RankedItem struct {
	ID              int32          `json:"id"`
	UID             string         `json:"uid"`
	Type            store.ItemType `json:"type"`
	Title           string         `json:"title"`
	Summary         string         `json:"summary"`
	Score           int            `json:"score"`
	Relevance       string         `json:"relevance"`
	MatchedKeywords []string       `json:"matched_keywords"`
	UpdatedTs       int64          `json:"updated_ts"`
}

// Engine ranks related items and analyzes knowledge gaps.
type Engine struct {
	store    *store.Store
	llm      ai.LLMService
	outlines *cache.LRU[[]OutlineSection]
	now      func() time.Time
}

// NewEngine creates a relevance engine. llm may be nil, in which case gap
// outlines always use the built-in template.
func NewEngine(s *store.Store, llm ai.LLMService) *Engine {
	return &Engine{
		store:    s,
		llm:      llm,
		outlines: cache.New[[]OutlineSection](128, 6*time.Hour),
		now:      time.Now,
	}
}

// Janitor evicts expired outline cache entries until ctx is done.
func (e *Engine) Janitor(ctx context.Context, interval time.Duration) {
	e.outlines.Janitor(ctx, interval)
}

// GetRelatedItems returns up to five of the user's items that mention the
// topic's keywords, best match first.
func (e *Engine) GetRelatedItems(ctx context.Context, userID int32, topic string) ([]*RankedItem, error) {
	keywords := tags.ExtractTopicKeywords(topic)
	if len(keywords) == 0 {
		return []*RankedItem{}, nil
	}

	limit := candidateLimit
	candidates, err := e.store.ListItems(ctx, &store.FindItem{
		UserID:   &userID,
		Keywords: keywords,
		Limit:    &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search items: %w", err)
	}

	results := make([]*RankedItem, 0, len(candidates))
	for _, item := range candidates {
		score, matched := scoreItem(item, keywords)
		if score <= 0 {
			continue
		}
		results = append(results, &RankedItem{
			ID:              item.ID,
			UID:             item.UID,
			Type:            item.Type,
			Title:           item.Title,
			Summary:         summarize(item),
			Score:           score,
			Relevance:       fmt.Sprintf("%d%%", score),
			MatchedKeywords: matched,
			UpdatedTs:       item.UpdatedTs,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].UpdatedTs > results[j].UpdatedTs
	})
	if len(results) > maxRelated {
		results = results[:maxRelated]
	}
	return results, nil
}

// scoreItem sums the weights of every field each keyword appears in,
// clamped to [0, 100]. Items matching no keyword score zero.
func scoreItem(item *store.Item, keywords []string) (int, []string) {
	title := strings.ToLower(item.Title)
	description := strings.ToLower(item.Description)
	rawText := strings.ToLower(item.RawText)

	score := 0
	matched := []string{}
	for _, keyword := range keywords {
		kw := strings.ToLower(keyword)
		hit := false
		if strings.Contains(title, kw) {
			score += titleWeight
			hit = true
		}
		if strings.Contains(description, kw) {
			score += descriptionWeight
			hit = true
		}
		if strings.Contains(rawText, kw) {
			score += rawTextWeight
			hit = true
		}
		for _, tag := range item.Tags {
			if strings.Contains(strings.ToLower(tag), kw) {
				score += tagWeight
				hit = true
				break
			}
		}
		if hit {
			matched = append(matched, keyword)
		}
	}
	if len(matched) == 0 {
		return 0, matched
	}

	for _, tag := range item.Tags {
		if researchTags[strings.ToLower(tag)] {
			score += researchBonus
			break
		}
	}
	return max(0, min(maxScore, score)), matched
}

func summarize(item *store.Item) string {
	source := item.Description
	if strings.TrimSpace(source) == "" {
		source = item.RawText
	}
	return markdown.Summary(source, maxSummaryRunes)
}
