package aitime

// TimeRange is a zone-less start/end pair in LocalLayout form.
type TimeRange struct {
	Start string
	End   string
}

// CompleteEventRange fills a missing or non-positive end with the default
// one-hour duration. Unparseable input yields the zero range.
func CompleteEventRange(start, end string) TimeRange {
	s, ok := ParseLocal(start)
	if !ok {
		return TimeRange{}
	}
	if e, ok := ParseLocal(end); ok && e.After(s) {
		return TimeRange{Start: FormatLocal(s), End: FormatLocal(e)}
	}
	return TimeRange{Start: FormatLocal(s), End: FormatLocal(s.Add(DefaultEventDuration))}
}

// EventRange resolves the start of an event from text and applies the
// default duration.
func (p *Parser) EventRange(text string) (TimeRange, bool) {
	res, ok := p.Resolve(text)
	if !ok {
		return TimeRange{}, false
	}
	start := FormatLocal(res.Time)
	return CompleteEventRange(start, ""), true
}
