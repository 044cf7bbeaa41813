// Package intake turns free user text into a classification outcome: help,
// a query over stored items, a URL bookmark, a template form or a typed item.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/cogniflow/plugin/ai"
	"github.com/hrygo/cogniflow/plugin/ai/aitime"
	"github.com/hrygo/cogniflow/plugin/ai/search"
	"github.com/hrygo/cogniflow/plugin/ai/tags"
	"github.com/hrygo/cogniflow/plugin/ai/timeout"
	"github.com/hrygo/cogniflow/store"
)

// ErrEmptyInput is returned for blank text.
var ErrEmptyInput = errors.New("input text is empty")

// defaultURLTags are added to every URL item.
var defaultURLTags = []string{"网页", "收藏"}

// PageFetcher loads a web page for URL intake.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*search.Page, error)
}

// Classifier classifies free text. A nil LLM service makes every
// model-backed step use its deterministic fallback.
type Classifier struct {
	llm       ai.LLMService
	fetcher   PageFetcher
	templates *TemplateRegistry
	location  *time.Location
	now       func() time.Time
}

// NewClassifier creates a Classifier. loc is the zone "now" is read in.
func NewClassifier(llm ai.LLMService, fetcher PageFetcher, loc *time.Location) *Classifier {
	if loc == nil {
		loc = time.Local
	}
	return &Classifier{
		llm:       llm,
		fetcher:   fetcher,
		templates: DefaultTemplates(),
		location:  loc,
		now:       time.Now,
	}
}

// Templates returns the template registry.
func (c *Classifier) Templates() *TemplateRegistry {
	return c.templates
}

// parser returns a time parser anchored at the current local wall clock.
func (c *Classifier) parser() *aitime.Parser {
	return aitime.NewParserAt(aitime.LocalNow(c.now(), c.location))
}

// isReserved keeps type keywords and template triggers out of tag
// extraction so the later steps can see them.
func (c *Classifier) isReserved(token string) bool {
	if IsTypeKeyword(token) {
		return true
	}
	_, ok := c.templates.Lookup(token)
	return ok
}

// Classify decides what rawText is. It only fails on blank input; every
// model or network failure degrades to a fallback.
func (c *Classifier) Classify(ctx context.Context, userID int32, rawText string) (*Outcome, error) {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return nil, ErrEmptyInput
	}

	if strings.EqualFold(text, "@help") {
		return &Outcome{Kind: OutcomeHelp, Help: HelpText}, nil
	}

	if query, ok := DetectQuery(text); ok {
		return &Outcome{Kind: OutcomeQuery, Query: c.extractQuery(ctx, query)}, nil
	}

	extracted, rest := tags.ExtractTagPhrases(text, c.isReserved)
	if rest == "" {
		rest = text
	}

	if IsMainlyURL(rest) {
		link, _ := FindURL(rest)
		return &Outcome{Kind: OutcomeURL, Item: c.classifyURL(ctx, rest, link, extracted)}, nil
	}

	if itemType, body, ok := MatchTypePrefix(rest); ok {
		draft := c.classifyTyped(ctx, itemType, body, extracted)
		draft.RawText = text
		return &Outcome{Kind: OutcomeItem, Item: draft}, nil
	}

	if outcome := c.matchTemplate(rest); outcome != nil {
		return outcome, nil
	}

	draft := c.classifyContent(ctx, rest, "", extracted)
	draft.RawText = text
	slog.Debug("classified item",
		"user_id", userID,
		"type", draft.Type,
		"fallback", draft.Fallback)
	return &Outcome{Kind: OutcomeItem, Item: draft}, nil
}

func (c *Classifier) matchTemplate(text string) *Outcome {
	if text == "/" {
		return &Outcome{Kind: OutcomeTemplate, Templates: c.templates.All()}
	}
	if !strings.HasPrefix(text, "/") {
		return nil
	}
	trigger, prefill, _ := strings.Cut(text[1:], " ")
	t, ok := c.templates.Lookup(strings.TrimSpace(trigger))
	if !ok {
		return nil
	}
	return &Outcome{Kind: OutcomeTemplate, Template: t, Prefill: strings.TrimSpace(prefill)}
}

// chat runs one model call bounded by the classification timeout.
func (c *Classifier) chat(ctx context.Context, system, user string) (string, error) {
	if c.llm == nil {
		return "", errors.New("AI is not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout.ClassifyTimeout)
	defer cancel()
	return c.llm.Chat(ctx, ai.FormatMessages(system, user, nil))
}

type modelClassification struct {
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	DueDate     *string        `json:"due_date"`
	StartTime   *string        `json:"start_time"`
	EndTime     *string        `json:"end_time"`
	Priority    string         `json:"priority"`
	Tags        []string       `json:"tags"`
	Entities    map[string]any `json:"entities"`
}

// classifyContent runs the full model classification. forced, when set,
// overrides the model's type.
func (c *Classifier) classifyContent(ctx context.Context, text string, forced store.ItemType, extracted []string) *Draft {
	parser := c.parser()

	system := classifyPrompt(parser.Now())
	if forced != "" {
		system += fmt.Sprintf(classifyForcedTypeHint, forced, forced)
	}

	content, err := c.chat(ctx, system, text)
	var result modelClassification
	if err == nil {
		result, err = ai.ParseJSON[modelClassification](content)
	}
	if err != nil {
		slog.Warn("AI classification failed, using fallback",
			"error", err,
			"input", truncateRunes(text, 50))
		draft := FallbackDraft(text)
		if forced != "" {
			draft.Type = forced
		}
		return draft
	}

	draft := &Draft{
		Type:        store.NormalizeItemType(strings.ToLower(strings.TrimSpace(result.Type))),
		Title:       strings.TrimSpace(result.Title),
		Description: strings.TrimSpace(result.Description),
		Priority:    store.NormalizePriority(strings.ToLower(strings.TrimSpace(result.Priority))),
		Tags:        tags.Merge(extracted, result.Tags),
		Entities:    result.Entities,
		RawText:     text,
	}
	if forced != "" {
		draft.Type = forced
	}
	if draft.Title == "" {
		draft.Title = truncateRunes(text, maxFallbackTitleRunes)
	}
	if draft.Description == "" {
		draft.Description = text
	}
	if draft.Entities == nil {
		draft.Entities = map[string]any{}
	}

	res, found := parser.Resolve(text)
	applyTimes(draft, result, res, found)
	return draft
}

// applyTimes de-zones the model's timestamps and reconciles them with the
// locally resolved time expression, which wins for the parts it found.
func applyTimes(draft *Draft, result modelClassification, res aitime.Resolution, found bool) {
	due := canonical(result.DueDate)
	start := canonical(result.StartTime)
	end := canonical(result.EndTime)

	switch draft.Type {
	case store.ItemTypeEvent:
		if start == "" {
			start = due
		}
		modelStart := start
		start = reconcile(start, res, found)
		if start == "" {
			return
		}
		if start != modelStart {
			end = shiftEnd(modelStart, end, start)
		}
		r := aitime.CompleteEventRange(start, end)
		draft.StartTime, draft.EndTime = &r.Start, &r.End
	case store.ItemTypeTask, store.ItemTypeCollection:
		if due = reconcile(due, res, found); due != "" {
			draft.DueDate = &due
		}
	}
}

// shiftEnd keeps the model's event duration when the start was moved.
func shiftEnd(oldStart, end, newStart string) string {
	from, ok1 := aitime.ParseLocal(oldStart)
	to, ok2 := aitime.ParseLocal(end)
	moved, ok3 := aitime.ParseLocal(newStart)
	if !ok1 || !ok2 || !ok3 || !to.After(from) {
		return ""
	}
	return aitime.FormatLocal(moved.Add(to.Sub(from)))
}

func canonical(v *string) string {
	if v == nil {
		return ""
	}
	s, ok := aitime.CanonicalLocal(*v)
	if !ok {
		return ""
	}
	return s
}

// reconcile picks between a model timestamp and a local resolution. The
// local date is authoritative when the text named one; the local clock is
// authoritative when the text named one.
func reconcile(modelValue string, res aitime.Resolution, found bool) string {
	if !found {
		return modelValue
	}
	local := aitime.FormatLocal(res.Time)
	if modelValue == "" {
		return local
	}
	model, ok := aitime.ParseLocal(modelValue)
	if !ok {
		return local
	}

	year, month, day := model.Date()
	if res.HasDate {
		year, month, day = res.Time.Date()
	}
	hour, minute := model.Hour(), model.Minute()
	if res.HasTime {
		hour, minute = res.Time.Hour(), res.Time.Minute()
	}
	return aitime.FormatLocal(time.Date(year, month, day, hour, minute, 0, 0, time.UTC))
}

type modelTitle struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

// classifyTyped handles text whose type was given explicitly. Notes and data
// only get a generated title; other types run the full classification.
func (c *Classifier) classifyTyped(ctx context.Context, itemType store.ItemType, body string, extracted []string) *Draft {
	if itemType != store.ItemTypeNote && itemType != store.ItemTypeData {
		return c.classifyContent(ctx, body, itemType, extracted)
	}

	draft := &Draft{
		Type:        itemType,
		Title:       truncateRunes(body, maxFallbackTitleRunes),
		Description: body,
		Priority:    store.PriorityMedium,
		Tags:        tags.Merge(extracted),
		Entities:    map[string]any{},
		RawText:     body,
	}

	content, err := c.chat(ctx, titleSystemPrompt, body)
	var result modelTitle
	if err == nil {
		result, err = ai.ParseJSON[modelTitle](content)
	}
	if err != nil {
		slog.Warn("AI title generation failed", "error", err, "type", itemType)
		draft.Fallback = true
		return draft
	}
	if title := strings.TrimSpace(result.Title); title != "" {
		draft.Title = title
	}
	draft.Tags = tags.Merge(extracted, result.Tags)
	return draft
}

type modelSummary struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// classifyURL builds a url item. The summary is only requested from the
// model when page content was actually fetched.
func (c *Classifier) classifyURL(ctx context.Context, text, link string, extracted []string) *Draft {
	page := search.InferFromURL(link)
	if c.fetcher != nil {
		fetched, err := c.fetcher.Fetch(ctx, link)
		if err != nil {
			slog.Warn("page fetch failed, inferring from URL", "url", link, "error", err)
		} else {
			if fetched.Title == "" {
				fetched.Title = page.Title
			}
			page = fetched
		}
	}

	comment := strings.TrimSpace(strings.Replace(text, link, "", 1))
	description := page.Description
	if comment != "" {
		description = strings.TrimSpace(comment + "\n" + description)
	}

	draft := &Draft{
		Type:        store.ItemTypeURL,
		Title:       truncateRunes(page.Title, 80),
		Description: description,
		Priority:    store.PriorityMedium,
		Tags:        tags.Merge(extracted, defaultURLTags),
		Entities:    map[string]any{"url": link},
		RawText:     text,
		Fallback:    !page.Fetched,
	}

	if !page.Fetched || (page.Text == "" && page.Description == "") {
		return draft
	}

	content, err := c.chat(ctx, urlSystemPrompt, urlPrompt(link, page.Title, page.Description, page.Text))
	var result modelSummary
	if err == nil {
		result, err = ai.ParseJSON[modelSummary](content)
	}
	if err != nil {
		slog.Warn("AI page summary failed", "url", link, "error", err)
		return draft
	}
	if title := strings.TrimSpace(result.Title); title != "" {
		draft.Title = title
	}
	if summary := strings.TrimSpace(result.Summary); summary != "" {
		draft.Description = summary
		if comment != "" {
			draft.Description = comment + "\n" + summary
		}
	}
	return draft
}

type modelQuery struct {
	Types           []string `json:"types"`
	Statuses        []string `json:"statuses"`
	Tags            []string `json:"tags"`
	SearchText      string   `json:"search_text"`
	IncludeArchived bool     `json:"include_archived"`
}

// extractQuery turns a query sentence into a QueryIntent. Without the model
// the sentence's keywords become the search text.
func (c *Classifier) extractQuery(ctx context.Context, query string) *QueryIntent {
	fallback := &QueryIntent{SearchText: fallbackSearchText(query), Tags: tags.ExtractHashTags(query)}
	if query == "" {
		return fallback
	}

	content, err := c.chat(ctx, queryPrompt(c.parser().Now()), query)
	var result modelQuery
	if err == nil {
		result, err = ai.ParseJSON[modelQuery](content)
	}
	if err != nil {
		slog.Warn("AI query extraction failed, using text search", "error", err)
		return fallback
	}

	intent := &QueryIntent{
		Tags:            tags.Merge(result.Tags),
		SearchText:      strings.TrimSpace(result.SearchText),
		IncludeArchived: result.IncludeArchived,
	}
	for _, t := range result.Types {
		if it := store.ItemType(strings.ToLower(strings.TrimSpace(t))); it.IsValid() {
			intent.Types = append(intent.Types, it)
		}
	}
	for _, s := range result.Statuses {
		switch st := store.ItemStatus(strings.ToLower(strings.TrimSpace(s))); st {
		case store.ItemStatusPending, store.ItemStatusCompleted:
			intent.Statuses = append(intent.Statuses, st)
		}
	}
	if len(intent.Types) == 0 && len(intent.Statuses) == 0 && len(intent.Tags) == 0 && intent.SearchText == "" {
		intent.SearchText = fallbackSearchText(query)
	}
	return intent
}

// fallbackSearchText keeps the keywords of a query sentence. Search terms
// split on spaces, so an unsegmented Chinese sentence would otherwise be one
// term that matches nothing.
func fallbackSearchText(query string) string {
	keywords := tags.ExtractQueryKeywords(query)
	if len(keywords) == 0 {
		return query
	}
	return strings.Join(keywords, " ")
}
