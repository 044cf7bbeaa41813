package intake

import (
	"regexp"
	"strings"

	"github.com/hrygo/cogniflow/store"
)

// typePrefix maps an item type to the keywords that force it when they lead
// the text as "/kw", "@kw" or "kw:".
type typePrefix struct {
	Type     store.ItemType
	Keywords []string
	pattern  *regexp.Regexp
}

// typePrefixes is evaluated in order; the first match wins.
var typePrefixes = []*typePrefix{
	{Type: store.ItemTypeNote, Keywords: []string{"note", "memo", "笔记", "记录", "备忘"}},
	{Type: store.ItemTypeTask, Keywords: []string{"task", "todo", "任务", "待办"}},
	{Type: store.ItemTypeEvent, Keywords: []string{"event", "schedule", "事件", "日程", "活动"}},
	{Type: store.ItemTypeData, Keywords: []string{"data", "数据", "资料"}},
	{Type: store.ItemTypeCollection, Keywords: []string{"collection", "collect", "收藏", "合集"}},
}

var typeKeywords = map[string]store.ItemType{}

func init() {
	for _, p := range typePrefixes {
		quoted := make([]string, len(p.Keywords))
		for i, kw := range p.Keywords {
			quoted[i] = regexp.QuoteMeta(kw)
			typeKeywords[strings.ToLower(kw)] = p.Type
		}
		alt := strings.Join(quoted, "|")
		p.pattern = regexp.MustCompile(`(?i)^(?:[/@](?:` + alt + `)(?:[:：]\s*|\s+)|(?:` + alt + `)\s*[:：]\s*)`)
	}
}

// MatchTypePrefix strips a leading type keyword from text. ok is false when
// no keyword leads the text or nothing follows it.
func MatchTypePrefix(text string) (itemType store.ItemType, body string, ok bool) {
	for _, p := range typePrefixes {
		loc := p.pattern.FindStringIndex(text)
		if loc == nil {
			continue
		}
		body = strings.TrimSpace(text[loc[1]:])
		if body == "" {
			return "", "", false
		}
		return p.Type, body, true
	}
	return "", "", false
}

// IsTypeKeyword reports whether token names an item type.
func IsTypeKeyword(token string) bool {
	_, ok := typeKeywords[strings.ToLower(strings.TrimRight(token, ":："))]
	return ok
}
