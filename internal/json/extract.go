// Package json provides lenient JSON decoding for tool-call arguments.
//
// Providers that transport function arguments as strings occasionally wrap
// them in markdown fences or surround them with commentary. This package
// recovers the JSON object from such strings.
package json

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON finds and returns the JSON object portion of a string.
// It handles:
// 1. A pure JSON object - returns the full string
// 2. JSON wrapped in markdown code blocks (```json ... ```)
// 3. A JSON object embedded in text - first '{' to last '}'
//
// Only objects are recognised; brace matching is not string-aware.
func extractJSON(s string) (string, error) {
	s = stripMarkdownCodeBlocks(s)

	var test map[string]any
	if err := json.Unmarshal([]byte(s), &test); err == nil {
		return s, nil
	}

	start := strings.Index(s, "{")
	if start != -1 {
		end := strings.LastIndex(s, "}")
		if end != -1 && end > start {
			candidate := s[start : end+1]
			if err := json.Unmarshal([]byte(candidate), &test); err == nil {
				return candidate, nil
			}
		}
	}

	preview := s
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return "", fmt.Errorf("failed to extract valid JSON object from %q", preview)
}

// stripMarkdownCodeBlocks removes markdown code block markers.
// Handles ```json\n...\n``` and ```\n...\n```.
func stripMarkdownCodeBlocks(s string) string {
	trimmed := strings.TrimSpace(s)

	if strings.HasPrefix(trimmed, "```json") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```json"))
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	}

	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "```"))
	}

	return trimmed
}

// DecodeArguments decodes a function-call argument string into a map.
// An empty or whitespace-only string decodes to an empty map.
func DecodeArguments(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	obj, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(obj), &args); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
