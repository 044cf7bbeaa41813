package assist

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/hrygo/cogniflow/plugin/ai"
	"github.com/hrygo/cogniflow/plugin/ai/search"
	"github.com/hrygo/cogniflow/plugin/ai/tags"
	"github.com/hrygo/cogniflow/store"
)

// Sub-item markers. Clients group assist output by these prefixes.
const (
	MarkerKnowledge = "💡"
	MarkerReference = "📚"
	MarkerLink      = "🔗"
)

const (
	maxKnowledgePoints = 5
	maxSourceLinks     = 3
)

// Request is one assist run.
type Request struct {
	UserID   int32
	Text     string
	Keywords string
}

// Outcome is what an assist run produced.
type Outcome struct {
	Keywords        string
	KnowledgePoints []string
	ReferenceText   string
	SourceLinks     []store.SourceLink
	SubItems        []store.SubItem
	// SearchFailed is set when the web search errored and the run went on
	// without results.
	SearchFailed bool
}

// Result returns the snapshot kept on the completed task.
func (o *Outcome) Result() *store.AssistResult {
	return &store.AssistResult{
		KnowledgePoints: o.KnowledgePoints,
		ReferenceText:   o.ReferenceText,
		SourceLinks:     o.SourceLinks,
		SubItemCount:    len(o.SubItems),
	}
}

// Runner produces assist content for a task.
type Runner interface {
	Run(ctx context.Context, req Request) (*Outcome, error)
}

// Assistant searches the web for a task and asks the model to summarize
// what it found. Either collaborator may be nil.
type Assistant struct {
	llm      ai.LLMService
	searcher search.Searcher
	newID    func() string
}

// NewAssistant creates an assistant.
func NewAssistant(llm ai.LLMService, searcher search.Searcher) *Assistant {
	return &Assistant{
		llm:      llm,
		searcher: searcher,
		newID:    uuid.NewString,
	}
}

type modelAssist struct {
	KnowledgePoints []string `json:"knowledge_points"`
	Reference       string   `json:"reference"`
}

// Run executes the assist procedure. Search and model failures degrade the
// content instead of failing the run; blank text yields no sub-items.
func (a *Assistant) Run(ctx context.Context, req Request) (*Outcome, error) {
	text := strings.TrimSpace(req.Text)
	out := &Outcome{
		KnowledgePoints: []string{},
		SourceLinks:     []store.SourceLink{},
		SubItems:        []store.SubItem{},
	}
	if text == "" {
		return out, nil
	}

	out.Keywords = strings.TrimSpace(req.Keywords)
	if out.Keywords == "" {
		out.Keywords = tags.ExtractSearchKeywords(text)
	}

	results := a.search(ctx, req.UserID, out)

	points, reference, ok := a.summarize(ctx, text, results)
	if !ok {
		points, reference = fallbackContent(text, results, out.SearchFailed)
	}
	out.KnowledgePoints = points
	out.ReferenceText = reference

	for _, r := range results {
		if len(out.SourceLinks) >= maxSourceLinks {
			break
		}
		if strings.TrimSpace(r.Link) == "" {
			continue
		}
		title := strings.TrimSpace(r.Title)
		if title == "" {
			title = r.Link
		}
		out.SourceLinks = append(out.SourceLinks, store.SourceLink{Title: title, Link: r.Link})
	}

	out.SubItems = a.buildSubItems(out)
	return out, nil
}

func (a *Assistant) search(ctx context.Context, userID int32, out *Outcome) []search.Result {
	if a.searcher == nil {
		return nil
	}
	resp, err := a.searcher.Search(ctx, search.Request{
		Query:  out.Keywords,
		UserID: strconv.Itoa(int(userID)),
	})
	if err != nil {
		out.SearchFailed = true
		slog.Warn("assist search failed, continuing without results",
			"keywords", out.Keywords,
			"error", err,
		)
		return nil
	}
	if resp == nil {
		return nil
	}
	return resp.Results
}

func (a *Assistant) summarize(ctx context.Context, text string, results []search.Result) ([]string, string, bool) {
	if a.llm == nil {
		return nil, "", false
	}
	content, err := a.llm.Chat(ctx, ai.FormatMessages(assistSystemPrompt, buildAssistPrompt(text, results), nil))
	if err != nil {
		slog.Warn("assist summary failed", "error", err)
		return nil, "", false
	}
	parsed, err := ai.ParseJSON[modelAssist](content)
	if err != nil {
		slog.Warn("assist summary unparseable", "error", err)
		return nil, "", false
	}

	points := make([]string, 0, len(parsed.KnowledgePoints))
	for _, p := range parsed.KnowledgePoints {
		if p = strings.TrimSpace(p); p != "" {
			points = append(points, p)
		}
		if len(points) == maxKnowledgePoints {
			break
		}
	}
	reference := strings.TrimSpace(parsed.Reference)
	if len(points) == 0 && reference == "" {
		return nil, "", false
	}
	return points, reference, true
}

// fallbackContent builds knowledge points from search titles, or generic
// guidance when there are no results.
func fallbackContent(text string, results []search.Result, searchFailed bool) ([]string, string) {
	points := []string{}
	for _, r := range results {
		if title := strings.TrimSpace(r.Title); title != "" {
			points = append(points, title)
		}
		if len(points) == maxKnowledgePoints {
			break
		}
	}
	if len(points) > 0 {
		reference := ""
		if len(results) > 0 {
			reference = truncate(results[0].Content, 200)
		}
		return points, reference
	}

	points = []string{
		"明确「" + truncate(text, 30) + "」的目标和交付物",
		"拆分为可以在一天内完成的小步骤",
		"先收集两到三份权威资料再动手",
	}
	reference := "暂时没有找到相关资料，可以稍后补充搜索。"
	if searchFailed {
		reference = "搜索服务暂不可用，以上为通用建议。"
	}
	return points, reference
}

func (a *Assistant) buildSubItems(out *Outcome) []store.SubItem {
	subItems := []store.SubItem{}
	add := func(text string) {
		subItems = append(subItems, store.SubItem{
			ID:     a.newID(),
			Text:   text,
			Status: store.SubItemPending,
		})
	}
	for _, p := range out.KnowledgePoints {
		add(MarkerKnowledge + " " + p)
	}
	if out.ReferenceText != "" {
		add(MarkerReference + " " + out.ReferenceText)
	}
	for _, l := range out.SourceLinks {
		add(MarkerLink + " " + l.Title + " " + l.Link)
	}
	return subItems
}

var _ Runner = (*Assistant)(nil)
