package aitime

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Patterns for time parsing
var (
	clockPattern = regexp.MustCompile(`(\d{1,2})[:：](\d{2})`)
	// X点, X点半, X点一刻, X点15(分), 十点二十(分)
	hourPattern = regexp.MustCompile(`(\d{1,2}|[零〇一二两三四五六七八九十]{1,3})\s*点(?:钟)?\s*(半|一刻|三刻|\d{1,2}|[零〇一二三四五六七八九十]{1,3})?`)
	// 10am, 10:30 pm, 10 o'clock
	englishClockPattern = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(a\.?m\.?|p\.?m\.?|o'?clock)`)
	englishAtPattern    = regexp.MustCompile(`(?i)\bat\s+(\d{1,2})(?::(\d{2}))?\b`)

	relativePattern        = regexp.MustCompile(`(\d+)\s*(小时|分钟|天|周|个月)(?:后|以后|之后)`)
	englishRelativePattern = regexp.MustCompile(`(?i)\bin\s+(\d+)\s*(minutes?|hours?|days?|weeks?)\b`)

	weekdayPattern        = regexp.MustCompile(`(下下|下个?|这个?|本)?(?:周|星期|礼拜)([一二三四五六日天])`)
	englishWeekdayPattern = regexp.MustCompile(`(?i)\b(next\s+|this\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)

	fullDatePattern  = regexp.MustCompile(`(\d{4})\s*[-/年]\s*(\d{1,2})\s*[-/月]\s*(\d{1,2})`)
	monthDayPattern  = regexp.MustCompile(`(\d{1,2})\s*月\s*(\d{1,2})\s*[日号]`)
)

// relDateOffsets maps relative date keywords to day offsets, longest first.
var relDateOffsets = []struct {
	keyword string
	offset  int
}{
	{"大后天", 3},
	{"后天", 2},
	{"明天", 1},
	{"明早", 1},
	{"明晚", 1},
	{"今天", 0},
	{"今晚", 0},
	{"今早", 0},
	{"昨天", -1},
	{"前天", -2},
	{"day after tomorrow", 2},
	{"tomorrow", 1},
	{"tonight", 0},
	{"today", 0},
	{"yesterday", -1},
}

// periodHours maps vague time-of-day keywords to default hours. Order
// matters where one keyword contains another.
var periodHours = []struct {
	keyword string
	hour    int
}{
	{"凌晨", 1},
	{"今早", 9},
	{"明早", 9},
	{"早上", 9},
	{"早晨", 9},
	{"上午", 9},
	{"中午", 12},
	{"下午", 14},
	{"傍晚", 17},
	{"今晚", 19},
	{"明晚", 19},
	{"晚上", 19},
	{"夜里", 22},
	{"dawn", 1},
	{"morning", 9},
	{"afternoon", 14},
	{"noon", 12},
	{"evening", 19},
	{"tonight", 19},
}

var pmModifiers = []string{"下午", "傍晚", "晚上", "今晚", "明晚", "夜里", "afternoon", "evening", "tonight"}
// nightModifiers turn 12点 into the midnight that ends the day.
var nightModifiers = []string{"晚上", "今晚", "明晚", "夜里", "半夜", "深夜", "tonight"}
var amModifiers = []string{"凌晨", "早上", "早晨", "上午", "今早", "明早", "中午", "morning", "dawn"}

// weekdayIndex maps weekday names to an offset from Monday.
var weekdayIndex = map[string]int{
	"一": 0, "二": 1, "三": 2, "四": 3, "五": 4, "六": 5, "日": 6, "天": 6,
	"monday": 0, "tuesday": 1, "wednesday": 2, "thursday": 3, "friday": 4, "saturday": 5, "sunday": 6,
}

var chineseDigits = map[rune]int{
	'零': 0, '〇': 0, '一': 1, '二': 2, '两': 2, '三': 3, '四': 4,
	'五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
}

// Resolution is a point in time found in free text.
type Resolution struct {
	Time    time.Time
	HasDate bool
	HasTime bool
}

// Parser resolves relative time expressions embedded in free text against
// the current local time.
type Parser struct {
	timezone *time.Location
	now      func() time.Time
}

// NewParser creates a new time parser with the given timezone.
func NewParser(timezone *time.Location) *Parser {
	if timezone == nil {
		timezone = time.Local
	}
	return &Parser{
		timezone: timezone,
		now:      time.Now,
	}
}

// NewParserAt creates a parser whose "now" is fixed at reference.
func NewParserAt(reference time.Time) *Parser {
	return &Parser{
		timezone: reference.Location(),
		now:      func() time.Time { return reference },
	}
}

// Now returns the parser's current time in its timezone.
func (p *Parser) Now() time.Time {
	return p.now().In(p.timezone)
}

// Resolve finds a date and/or clock time in text. ok is false when the text
// carries no recognizable time expression.
func (p *Parser) Resolve(text string) (res Resolution, ok bool) {
	defer func() {
		if recover() != nil {
			res, ok = Resolution{}, false
		}
	}()

	text = strings.TrimSpace(text)
	if text == "" {
		return Resolution{}, false
	}
	lower := strings.ToLower(text)
	now := p.Now()

	if t, found := p.resolveRelative(text, lower, now); found {
		return Resolution{Time: t, HasDate: true, HasTime: true}, true
	}

	date, hasDate := p.resolveDate(text, lower, now)
	hour, minute, carry, hasTime := parseTimePart(text, lower)
	if !hasDate && !hasTime {
		return Resolution{}, false
	}
	if !hasDate {
		date = now
	}
	if !hasTime {
		hour, minute = 9, 0
	}
	t := time.Date(date.Year(), date.Month(), date.Day()+carry, hour, minute, 0, 0, p.timezone)
	return Resolution{Time: t, HasDate: hasDate, HasTime: hasTime}, true
}

// NormalizeTime returns the local wall-clock timestamp found in text, or an
// empty string.
func (p *Parser) NormalizeTime(text string) string {
	res, ok := p.Resolve(text)
	if !ok {
		return ""
	}
	return FormatLocal(res.Time)
}

// NormalizeTime resolves text against now. It never panics.
func NormalizeTime(text string, now time.Time) string {
	return NewParserAt(now).NormalizeTime(text)
}

func (p *Parser) resolveRelative(text, lower string, now time.Time) (time.Time, bool) {
	base := now.Truncate(time.Minute)
	if m := relativePattern.FindStringSubmatch(text); len(m) == 3 {
		n, err := strconv.Atoi(m[1])
		if err != nil || n > 10000 {
			return time.Time{}, false
		}
		switch m[2] {
		case "分钟":
			return base.Add(time.Duration(n) * time.Minute), true
		case "小时":
			return base.Add(time.Duration(n) * time.Hour), true
		case "天":
			return base.AddDate(0, 0, n), true
		case "周":
			return base.AddDate(0, 0, 7*n), true
		case "个月":
			return base.AddDate(0, n, 0), true
		}
	}
	if m := englishRelativePattern.FindStringSubmatch(lower); len(m) == 3 {
		n, err := strconv.Atoi(m[1])
		if err != nil || n > 10000 {
			return time.Time{}, false
		}
		switch strings.TrimSuffix(m[2], "s") {
		case "minute":
			return base.Add(time.Duration(n) * time.Minute), true
		case "hour":
			return base.Add(time.Duration(n) * time.Hour), true
		case "day":
			return base.AddDate(0, 0, n), true
		case "week":
			return base.AddDate(0, 0, 7*n), true
		}
	}
	return time.Time{}, false
}

func (p *Parser) resolveDate(text, lower string, now time.Time) (time.Time, bool) {
	for _, rel := range relDateOffsets {
		if strings.Contains(lower, rel.keyword) {
			return now.AddDate(0, 0, rel.offset), true
		}
	}

	if t, ok := resolveWeekday(text, lower, now); ok {
		return t, true
	}

	if m := fullDatePattern.FindStringSubmatch(text); len(m) == 4 {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if validDate(year, month, day) {
			return time.Date(year, time.Month(month), day, 0, 0, 0, 0, p.timezone), true
		}
	}

	if m := monthDayPattern.FindStringSubmatch(text); len(m) == 3 {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		if validDate(now.Year(), month, day) {
			t := time.Date(now.Year(), time.Month(month), day, 0, 0, 0, 0, p.timezone)
			today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, p.timezone)
			if t.Before(today) {
				t = t.AddDate(1, 0, 0)
			}
			return t, true
		}
	}
	return time.Time{}, false
}

// resolveWeekday resolves weekday references. A bare or "this" weekday is
// the next occurrence on or after today; "next" means the following week.
func resolveWeekday(text, lower string, now time.Time) (time.Time, bool) {
	current := int(now.Weekday()+6) % 7 // Monday = 0

	var prefix string
	var target int
	if m := weekdayPattern.FindStringSubmatch(text); len(m) == 3 {
		prefix, target = m[1], weekdayIndex[m[2]]
	} else if m := englishWeekdayPattern.FindStringSubmatch(lower); len(m) == 3 {
		prefix, target = strings.TrimSpace(m[1]), weekdayIndex[m[2]]
	} else {
		return time.Time{}, false
	}

	var diff int
	switch prefix {
	case "下", "下个", "next":
		diff = 7 - current + target
	case "下下":
		diff = 14 - current + target
	default:
		diff = (target - current + 7) % 7
	}
	return now.AddDate(0, 0, diff), true
}

// parseTimePart finds a clock time in text and applies AM/PM modifiers.
// carry is 1 when the time is the midnight that ends the resolved day
// (24:00, 晚上12点).
func parseTimePart(text, lower string) (hour, minute, carry int, found bool) {
	hour = -1

	if m := clockPattern.FindStringSubmatch(text); len(m) == 3 {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if h <= 24 && mm < 60 {
			hour, minute = h, mm
		}
	}

	if hour == -1 {
		if m := hourPattern.FindStringSubmatch(text); len(m) == 3 {
			if h, ok := parseNumber(m[1]); ok && h <= 24 {
				hour = h
				minute = parseMinute(m[2])
			}
		}
	}

	explicitMeridiem := ""
	if hour == -1 {
		if m := englishClockPattern.FindStringSubmatch(lower); len(m) == 4 {
			h, _ := strconv.Atoi(m[1])
			mm, _ := strconv.Atoi(m[2])
			if h <= 24 && mm < 60 {
				hour, minute = h, mm
				explicitMeridiem = strings.ReplaceAll(m[3], ".", "")
			}
		} else if m := englishAtPattern.FindStringSubmatch(lower); len(m) == 3 {
			h, _ := strconv.Atoi(m[1])
			mm, _ := strconv.Atoi(m[2])
			if h <= 24 && mm < 60 {
				hour, minute = h, mm
			}
		}
	}

	if hour == -1 {
		for _, period := range periodHours {
			if strings.Contains(lower, period.keyword) {
				return period.hour, 0, 0, true
			}
		}
		return 0, 0, 0, false
	}

	if hour == 24 {
		return 0, minute, 1, true
	}

	switch explicitMeridiem {
	case "pm":
		if hour < 12 {
			hour += 12
		}
		return hour % 24, minute, 0, true
	case "am":
		return hour % 12, minute, 0, true
	}

	if hour == 12 && containsAny(lower, nightModifiers) {
		return 0, minute, 1, true
	}

	if hour <= 12 {
		hasPM := containsAny(lower, pmModifiers)
		hasAM := containsAny(lower, amModifiers)
		switch {
		case hasPM:
			if hour < 12 {
				hour += 12
			}
		case strings.Contains(lower, "凌晨") && hour == 12:
			hour = 0
		case !hasAM && hour >= 1 && hour <= 6:
			// Ambiguous 1-6点 defaults to the afternoon.
			hour += 12
		}
	}
	return hour % 24, minute, 0, true
}

func parseMinute(s string) int {
	switch s {
	case "":
		return 0
	case "半":
		return 30
	case "一刻":
		return 15
	case "三刻":
		return 45
	}
	if n, ok := parseNumber(s); ok && n < 60 {
		return n
	}
	return 0
}

// parseNumber parses arabic digits or a Chinese numeral below 100.
func parseNumber(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	runes := []rune(s)
	if len(runes) == 0 {
		return 0, false
	}
	idx := -1
	for i, r := range runes {
		if r == '十' {
			idx = i
			break
		}
	}
	if idx == -1 {
		if len(runes) != 1 {
			return 0, false
		}
		n, ok := chineseDigits[runes[0]]
		return n, ok
	}

	tens, ones := 1, 0
	if idx > 0 {
		n, ok := chineseDigits[runes[idx-1]]
		if !ok || idx > 1 {
			return 0, false
		}
		tens = n
	}
	if idx < len(runes)-1 {
		n, ok := chineseDigits[runes[idx+1]]
		if !ok || idx+2 < len(runes) {
			return 0, false
		}
		ones = n
	}
	return tens*10 + ones, true
}

func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Day() == day
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
