package tags

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	// minSearchKeywordRunes is the shortest derived query kept before
	// falling back to the full text.
	minSearchKeywordRunes = 2
	// MaxTopicKeywords caps the keywords extracted from a topic.
	MaxTopicKeywords = 5
)

// temporalWords name a day or a part of one. Longer entries come first.
var temporalWords = []string{
	"大后天", "后天", "明天", "今天", "今晚", "明晚", "明早", "本周", "这周", "下周", "周末",
	"上午", "下午", "晚上", "中午", "早上", "凌晨",
}

// leadingPrefixes are temporal words and action verbs stripped from the
// front of a task before searching. Longer entries come first.
var leadingPrefixes = append(slices.Clone(temporalWords),
	"麻烦帮我", "帮我", "请帮我", "请", "我需要", "需要", "我要", "我想", "我得", "记得", "提醒我", "要", "去",
	"撰写", "编写", "写一篇", "写一份", "写", "研究一下", "研究", "学习一下", "学习", "分析一下", "分析",
	"总结一下", "总结", "整理一下", "整理", "准备", "完成", "调研", "了解一下", "了解", "查一下", "查找",
	"规划", "计划", "设计", "开发", "实现", "评估", "讨论", "关于",
	"please ", "remember to ", "need to ", "i need to ", "i want to ", "todo ", "to ",
	"write ", "research ", "study ", "analyze ", "summarize ", "plan ", "design ",
	"develop ", "implement ", "evaluate ", "discuss ", "learn ", "about ",
)

var (
	leadingClockPattern = regexp.MustCompile(`^(\d{1,2}[:：]\d{2}|[\d零一二两三四五六七八九十]{1,3}点(半|\d{1,2}分?)?|周[一二三四五六日天]|星期[一二三四五六日天])`)
	trimPunctuation     = "，。、,.;；:：!！?？ \t\n「」“”\"'()（）[]【】"
)

// ExtractSearchKeywords derives a web-search query from task text by
// stripping leading temporal words and action verbs. The full trimmed text
// is returned when too little remains.
func ExtractSearchKeywords(text string) string {
	full := strings.TrimSpace(text)
	rest := full
	for {
		before := rest
		rest = strings.Trim(rest, trimPunctuation)
		lower := strings.ToLower(rest)
		for _, prefix := range leadingPrefixes {
			if strings.HasPrefix(lower, prefix) {
				rest = rest[len(prefix):]
				break
			}
		}
		if loc := leadingClockPattern.FindStringIndex(rest); loc != nil {
			rest = rest[loc[1]:]
		}
		if rest == before {
			break
		}
	}
	rest = strings.TrimSpace(spacesPattern.ReplaceAllString(rest, " "))
	if utf8.RuneCountInString(rest) < minSearchKeywordRunes {
		return full
	}
	return rest
}

// stopWords are removed from topics before keyword extraction.
var stopWords = []string{
	"怎么样", "怎么", "如何", "什么", "为什么", "哪些", "关于", "一下", "一个", "一些", "这个", "那个",
	"进行", "以及", "还有", "可以", "需要", "我们", "你们", "他们", "自己",
	"的", "了", "和", "与", "及", "或", "是", "在", "有", "我", "你", "他", "她", "它", "吗", "呢", "吧", "啊", "把", "被", "对", "从", "到", "也", "都", "就", "还",
}

var englishStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "and": true, "or": true, "to": true,
	"for": true, "in": true, "on": true, "at": true, "is": true, "are": true, "how": true,
	"what": true, "why": true, "with": true, "about": true, "my": true, "me": true, "i": true,
}

// ExtractTopicKeywords returns up to MaxTopicKeywords distinct keyword
// candidates from topic. Chinese segments are kept when 2 to 4 characters
// long and longer runs are cut into 4-character chunks; English words of two
// or more letters are kept whole.
func ExtractTopicKeywords(topic string) []string {
	text := strings.ToLower(topic)
	for _, word := range stopWords {
		text = strings.ReplaceAll(text, word, " ")
	}

	var segments []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			segments = append(segments, current.String())
			current.Reset()
		}
	}
	var lastHan bool
	for _, r := range text {
		if !isWordRune(r) {
			flush()
			continue
		}
		han := isHan(string(r))
		if current.Len() > 0 && han != lastHan {
			flush()
		}
		lastHan = han
		current.WriteRune(r)
	}
	flush()

	result := []string{}
	seen := map[string]bool{}
	add := func(k string) bool {
		if seen[k] {
			return len(result) < MaxTopicKeywords
		}
		seen[k] = true
		result = append(result, k)
		return len(result) < MaxTopicKeywords
	}

	for _, seg := range segments {
		if !isHan(seg) {
			if len(seg) < 2 || englishStopWords[seg] {
				continue
			}
			if !add(seg) {
				return result
			}
			continue
		}
		runes := []rune(seg)
		if len(runes) < 2 {
			continue
		}
		for start := 0; start < len(runes); start += 4 {
			end := min(start+4, len(runes))
			if end-start < 2 {
				break
			}
			if !add(string(runes[start:end])) {
				return result
			}
		}
	}
	return result
}

// ExtractQueryKeywords returns the topic keywords of a search sentence
// without temporal words and without the names of its #tags, which a query
// carries separately.
func ExtractQueryKeywords(query string) []string {
	skip := map[string]bool{}
	for _, w := range temporalWords {
		skip[w] = true
	}
	for _, tag := range ExtractHashTags(query) {
		skip[strings.ToLower(tag)] = true
	}

	result := []string{}
	for _, k := range ExtractTopicKeywords(query) {
		if !skip[k] {
			result = append(result, k)
		}
	}
	return result
}
