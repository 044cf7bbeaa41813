package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when model output carries no decodable JSON value.
var ErrNoJSON = errors.New("no JSON found in model output")

var fencePattern = regexp.MustCompile("```(?:json|JSON)?\\s*([\\s\\S]*?)\\s*```")

// ExtractJSON returns the outermost JSON object or array embedded in content,
// after removing markdown code fences.
func ExtractJSON(content string) (string, bool) {
	content = strings.TrimSpace(content)
	if m := fencePattern.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}

	start := strings.IndexAny(content, "{[")
	if start < 0 {
		return "", false
	}
	closer := byte('}')
	if content[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(content, closer)
	if end <= start {
		return "", false
	}
	return content[start : end+1], true
}

// ParseJSON decodes the JSON payload of model output into T.
func ParseJSON[T any](content string) (T, error) {
	var result T
	raw, ok := ExtractJSON(content)
	if !ok {
		return result, ErrNoJSON
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return result, fmt.Errorf("%w: %v", ErrNoJSON, err)
	}
	return result, nil
}
