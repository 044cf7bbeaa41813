package aitime

import (
	"regexp"
	"strings"
	"time"
)

// LocalLayout is the wall-clock format items are stored in. It carries no
// zone: a value means the same clock time wherever it is read.
const LocalLayout = "2006-01-02T15:04:05"

// DefaultEventDuration is applied to events that only have a start.
const DefaultEventDuration = time.Hour

var zoneSuffix = regexp.MustCompile(`(?i)(z|[+-]\d{2}:?\d{2}|[+-]\d{2})$`)

var localLayouts = []string{
	LocalLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006-01-02",
	"2006/01/02",
}

// FormatLocal formats t as a zone-less wall-clock timestamp.
func FormatLocal(t time.Time) string {
	return t.Format(LocalLayout)
}

// StripZone removes a trailing "Z" or numeric offset and any fractional
// seconds, keeping the clock reading unchanged.
func StripZone(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= len("2006-01-02") {
		return s
	}
	s = zoneSuffix.ReplaceAllString(s, "")
	if i := strings.LastIndexByte(s, '.'); i > len("2006-01-02") {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// ParseLocal parses a wall-clock timestamp, ignoring any zone marker. The
// result is expressed in UTC so values compare by clock reading alone.
func ParseLocal(s string) (time.Time, bool) {
	s = StripZone(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CanonicalLocal rewrites any accepted timestamp form into LocalLayout.
// ok is false when s cannot be parsed.
func CanonicalLocal(s string) (string, bool) {
	t, ok := ParseLocal(s)
	if !ok {
		return "", false
	}
	return FormatLocal(t), true
}

// LocalNow returns now in loc as a wall-clock value comparable with
// ParseLocal results.
func LocalNow(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t, _ := ParseLocal(FormatLocal(now.In(loc)))
	return t
}

// AddDuration shifts a wall-clock timestamp by d.
func AddDuration(s string, d time.Duration) (string, bool) {
	t, ok := ParseLocal(s)
	if !ok {
		return "", false
	}
	return FormatLocal(t.Add(d)), true
}
