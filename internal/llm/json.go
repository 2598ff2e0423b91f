package llm

import (
	"encoding/json"
	"strings"
)

// StripFences removes a surrounding markdown code fence, which models emit
// despite instructions not to.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	endIdx := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[1:endIdx], "\n"))
}

// ParseJSONArray strictly parses a model response as a JSON array of objects.
// Returns an error for anything else; callers must never build items from a
// response that failed to parse.
func ParseJSONArray(text string) ([]map[string]any, error) {
	cleaned := StripFences(text)
	var arr []map[string]any
	if err := json.Unmarshal([]byte(cleaned), &arr); err != nil {
		return nil, err
	}
	return arr, nil
}

// GetString reads a string field with a fallback.
func GetString(m map[string]any, key, fallback string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

// IntField reads a numeric field, reporting whether it was present and
// numeric; JSON numbers arrive as float64.
func IntField(m map[string]any, key string) (int, bool) {
	switch n := m[key].(type) {
	case float64:
		return int(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
	}
	return 0, false
}

// GetInt reads a numeric field with a fallback.
func GetInt(m map[string]any, key string, fallback int) int {
	if v, ok := IntField(m, key); ok {
		return v
	}
	return fallback
}
