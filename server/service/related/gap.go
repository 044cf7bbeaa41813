package related

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/cogniflow/plugin/ai"
	"github.com/hrygo/cogniflow/plugin/ai/timeout"
)

// staleAfter is the age of the newest related item beyond which the topic
// is considered stale.
const staleAfter = 30 * 24 * time.Hour

// OutlineSection is one heading of a learning outline.
type OutlineSection struct {
	Title  string   `json:"title"`
	Points []string `json:"points"`
}

// GapAnalysis describes how well a topic is covered by existing items.
type GapAnalysis struct {
	Topic        string           `json:"topic"`
	RelatedItems []*RankedItem    `json:"related_items"`
	Completeness int              `json:"completeness"`
	IsStale      bool             `json:"is_stale"`
	Gaps         []string         `json:"gaps"`
	Suggestions  []string         `json:"suggestions"`
	Outline      []OutlineSection `json:"outline"`
}

// AnalyzeKnowledgeGap scores coverage from the related items, adds canned
// gaps and suggestions, and asks the model for an outline of the topic.
func (e *Engine) AnalyzeKnowledgeGap(ctx context.Context, userID int32, topic string) (*GapAnalysis, error) {
	topic = strings.TrimSpace(topic)
	related, err := e.GetRelatedItems(ctx, userID, topic)
	if err != nil {
		return nil, err
	}

	analysis := &GapAnalysis{
		Topic:        topic,
		RelatedItems: related,
		Completeness: min(100, len(related)*20),
	}

	if len(related) > 0 {
		newest := related[0].UpdatedTs
		for _, r := range related[1:] {
			newest = max(newest, r.UpdatedTs)
		}
		analysis.IsStale = e.now().Sub(time.Unix(newest, 0)) > staleAfter
	}

	switch n := len(related); {
	case n == 0:
		analysis.Gaps = []string{
			fmt.Sprintf("还没有任何关于「%s」的记录", topic),
			"缺少基础概念和入门资料",
		}
		analysis.Suggestions = []string{
			"先收集一篇综述或入门文章",
			"记录你想通过这个主题解决的问题",
		}
	case n <= 2:
		analysis.Gaps = []string{
			"已有少量记录，覆盖面还不完整",
			"缺少实践案例或对比分析",
		}
		analysis.Suggestions = []string{
			"补充一个实际案例或动手练习",
			"整理已有记录中的关键结论",
		}
	default:
		analysis.Gaps = []string{
			"已有较多记录，可能缺少系统性的总结",
		}
		analysis.Suggestions = []string{
			"把相关记录整理成一份结构化笔记",
			"尝试输出一篇总结或分享",
		}
	}
	if analysis.IsStale {
		analysis.Suggestions = append(analysis.Suggestions, "相关记录已超过 30 天未更新，建议回顾并补充最新进展")
	}

	analysis.Outline = e.outline(ctx, topic)
	return analysis, nil
}

const outlineSystemPrompt = `你是一个学习规划助手。请为给定主题生成一份学习大纲。
只返回 JSON，不要任何解释：
{"outline": [{"title": "章节标题", "points": ["要点", "要点"]}]}

要求：3 到 6 个章节，每个章节 2 到 4 个要点，使用与主题相同的语言。`

type modelOutline struct {
	Outline []OutlineSection `json:"outline"`
}

// outline returns the model's outline for topic, cached per topic, or the
// built-in outline when the model is unavailable or its output unusable.
func (e *Engine) outline(ctx context.Context, topic string) []OutlineSection {
	key := "outline:" + strings.ToLower(topic)
	if cached, ok := e.outlines.Get(key); ok {
		return cached
	}
	if e.llm == nil || topic == "" {
		return defaultOutline(topic)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout.ClassifyTimeout)
	defer cancel()
	content, err := e.llm.Chat(ctx, ai.FormatMessages(outlineSystemPrompt, "主题："+topic, nil))
	if err != nil {
		slog.Warn("outline generation failed", "topic", topic, "error", err)
		return defaultOutline(topic)
	}
	parsed, err := ai.ParseJSON[modelOutline](content)
	if err != nil {
		slog.Warn("outline unparseable", "topic", topic, "error", err)
		return defaultOutline(topic)
	}

	sections := make([]OutlineSection, 0, len(parsed.Outline))
	for _, s := range parsed.Outline {
		if strings.TrimSpace(s.Title) == "" {
			continue
		}
		if s.Points == nil {
			s.Points = []string{}
		}
		sections = append(sections, s)
	}
	if len(sections) == 0 {
		return defaultOutline(topic)
	}

	e.outlines.Set(key, sections, 0)
	return sections
}

func defaultOutline(topic string) []OutlineSection {
	return []OutlineSection{
		{Title: "基础概念", Points: []string{fmt.Sprintf("「%s」是什么", topic), "核心术语"}},
		{Title: "核心原理", Points: []string{"关键机制", "与相近概念的区别"}},
		{Title: "实践应用", Points: []string{"典型场景", "动手案例"}},
		{Title: "常见问题", Points: []string{"易错点", "最佳实践"}},
		{Title: "延伸阅读", Points: []string{"推荐资料", "进阶方向"}},
	}
}
