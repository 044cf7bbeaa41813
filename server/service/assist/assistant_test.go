package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/cogniflow/plugin/ai"
	"github.com/hrygo/cogniflow/plugin/ai/search"
)

type stubSearcher struct {
	results []search.Result
	err     error
	queries []string
}

func (s *stubSearcher) Search(_ context.Context, req search.Request) (*search.Response, error) {
	s.queries = append(s.queries, req.Query)
	if s.err != nil {
		return nil, s.err
	}
	return &search.Response{Results: s.results}, nil
}

func sampleResults(n int) []search.Result {
	results := make([]search.Result, 0, n)
	for i := 1; i <= n; i++ {
		results = append(results, search.Result{
			Title:   fmt.Sprintf("结果 %d", i),
			Content: fmt.Sprintf("内容 %d", i),
			Link:    fmt.Sprintf("https://example.com/%d", i),
		})
	}
	return results
}

func newTestAssistant(llm ai.LLMService, searcher search.Searcher) *Assistant {
	a := NewAssistant(llm, searcher)
	n := 0
	a.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return a
}

func subItemTexts(out *Outcome) []string {
	texts := make([]string, 0, len(out.SubItems))
	for _, s := range out.SubItems {
		texts = append(texts, s.Text)
	}
	return texts
}

func TestAssistantRun(t *testing.T) {
	llm := &ai.MockLLMService{}
	llm.On("Chat", mock.Anything, mock.Anything).Return("```json\n{\"knowledge_points\": [\"goroutine 很轻量\", \"channel 用于通信\", \" \", \"select 多路复用\"], \"reference\": \"Go 的并发模型基于 CSP。\"}\n```", nil)
	searcher := &stubSearcher{results: sampleResults(4)}

	out, err := newTestAssistant(llm, searcher).Run(context.Background(), Request{UserID: 1, Text: "明天研究一下Go并发模型"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Go并发模型"}, searcher.queries)
	assert.Equal(t, []string{
		"💡 goroutine 很轻量",
		"💡 channel 用于通信",
		"💡 select 多路复用",
		"📚 Go 的并发模型基于 CSP。",
		"🔗 结果 1 https://example.com/1",
		"🔗 结果 2 https://example.com/2",
		"🔗 结果 3 https://example.com/3",
	}, subItemTexts(out))
	assert.Len(t, out.SourceLinks, 3)
	assert.Equal(t, "id-1", out.SubItems[0].ID)
	assert.Equal(t, 7, out.Result().SubItemCount)
	assert.False(t, out.SearchFailed)
	llm.AssertExpectations(t)
}

func TestAssistantUsesGivenKeywords(t *testing.T) {
	searcher := &stubSearcher{}
	_, err := newTestAssistant(nil, searcher).Run(context.Background(), Request{Text: "研究", Keywords: " CSP 模型 "})
	require.NoError(t, err)
	assert.Equal(t, []string{"CSP 模型"}, searcher.queries)
}

func TestAssistantSearchFailureContinues(t *testing.T) {
	llm := &ai.MockLLMService{}
	llm.On("Chat", mock.Anything, mock.Anything).Return(`{"knowledge_points": ["要点"], "reference": "摘要"}`, nil)
	searcher := &stubSearcher{err: &search.Error{StatusCode: 500, Body: "down"}}

	out, err := newTestAssistant(llm, searcher).Run(context.Background(), Request{Text: "分析竞品"})
	require.NoError(t, err)
	assert.True(t, out.SearchFailed)
	assert.Equal(t, []string{"💡 要点", "📚 摘要"}, subItemTexts(out))
	assert.Empty(t, out.SourceLinks)
}

func TestAssistantModelFailureUsesSearchTitles(t *testing.T) {
	llm := &ai.MockLLMService{}
	llm.On("Chat", mock.Anything, mock.Anything).Return("", errors.New("gateway unreachable"))
	searcher := &stubSearcher{results: sampleResults(2)}

	out, err := newTestAssistant(llm, searcher).Run(context.Background(), Request{Text: "学习 Rust"})
	require.NoError(t, err)
	assert.Equal(t, []string{"结果 1", "结果 2"}, out.KnowledgePoints)
	assert.Equal(t, "内容 1", out.ReferenceText)
	assert.Len(t, out.SourceLinks, 2)
}

func TestAssistantUnparseableModelOutput(t *testing.T) {
	llm := &ai.MockLLMService{}
	llm.On("Chat", mock.Anything, mock.Anything).Return("抱歉，我无法回答", nil)

	out, err := newTestAssistant(llm, &stubSearcher{results: sampleResults(1)}).Run(context.Background(), Request{Text: "总结会议"})
	require.NoError(t, err)
	assert.Equal(t, []string{"结果 1"}, out.KnowledgePoints)
}

func TestAssistantNothingAvailable(t *testing.T) {
	out, err := newTestAssistant(nil, &stubSearcher{err: errors.New("offline")}).Run(context.Background(), Request{Text: "设计新的首页"})
	require.NoError(t, err)
	require.NotEmpty(t, out.SubItems)
	assert.Len(t, out.KnowledgePoints, 3)
	for _, p := range out.KnowledgePoints {
		assert.NotEmpty(t, p)
	}
	last := out.SubItems[len(out.SubItems)-1].Text
	assert.True(t, strings.HasPrefix(last, MarkerReference), last)
	assert.Contains(t, last, "搜索服务暂不可用")
}

func TestAssistantBlankText(t *testing.T) {
	searcher := &stubSearcher{}
	out, err := newTestAssistant(nil, searcher).Run(context.Background(), Request{Text: "   "})
	require.NoError(t, err)
	assert.Empty(t, out.SubItems)
	assert.Empty(t, searcher.queries)
}
