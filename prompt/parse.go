package prompt

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ParsedSegment is one entry of the JSON array the LLM is asked to return.
type ParsedSegment struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Prompt    string `json:"prompt"`
}

// ParseError reports that none of the parsing strategies could extract a
// segment array. The raw response is carried for user-facing debug output;
// segments are never silently dropped.
type ParseError struct {
	Reason      string
	RawResponse string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse prompt response: %s", e.Reason)
}

var (
	arrayPattern   = regexp.MustCompile(`(?s)\[\s*\{.*\}\s*\]`)
	salvagePattern = regexp.MustCompile(`"id"\s*:\s*"([^"]+)"\s*,\s*"timestamp"\s*:\s*"([^"]+)"\s*,\s*"prompt"\s*:\s*"([^"]+)"`)
)

// ParseSegments extracts a segment array from free-form LLM output. Three
// strategies are tried in order:
//  1. the first substring that looks like a JSON object array
//  2. the whole body as JSON, searching top-level keys for an array value
//  3. regex salvage of individual id/timestamp/prompt triples
func ParseSegments(raw string) ([]ParsedSegment, error) {
	if match := arrayPattern.FindString(raw); match != "" {
		var segments []ParsedSegment
		if err := json.Unmarshal([]byte(match), &segments); err == nil && len(segments) > 0 {
			return segments, nil
		}
	}

	if segments := parseWholeBody(raw); len(segments) > 0 {
		return segments, nil
	}

	if segments := salvage(raw); len(segments) > 0 {
		return segments, nil
	}

	return nil, &ParseError{Reason: "no JSON array found", RawResponse: raw}
}

// parseWholeBody attempts to parse the entire response as JSON. A top-level
// array is used directly; for an object, any array-valued key is tried.
func parseWholeBody(raw string) []ParsedSegment {
	trimmed := strings.TrimSpace(raw)

	var segments []ParsedSegment
	if err := json.Unmarshal([]byte(trimmed), &segments); err == nil && len(segments) > 0 {
		return segments
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil
	}
	for _, value := range obj {
		var candidate []ParsedSegment
		if err := json.Unmarshal(value, &candidate); err == nil && len(candidate) > 0 {
			return candidate
		}
	}
	return nil
}

func salvage(raw string) []ParsedSegment {
	matches := salvagePattern.FindAllStringSubmatch(raw, -1)
	segments := make([]ParsedSegment, 0, len(matches))
	for _, m := range matches {
		segments = append(segments, ParsedSegment{
			ID:        m[1],
			Timestamp: m[2],
			Prompt:    strings.ReplaceAll(m[3], `\"`, `"`),
		})
	}
	return segments
}
