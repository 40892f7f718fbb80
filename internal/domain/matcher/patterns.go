package matcher

import (
	"encoding/json"
	"strings"
)

// ParsePatterns reads stored party patterns. Both a JSON array of strings and
// newline separated text are accepted; blank entries are dropped.
func ParsePatterns(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var patterns []string
	if strings.HasPrefix(raw, "[") {
		var decoded []string
		if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
			for _, p := range decoded {
				if p = strings.TrimSpace(p); p != "" {
					patterns = append(patterns, p)
				}
			}
			return patterns
		}
	}

	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			patterns = append(patterns, line)
		}
	}
	return patterns
}

// FormatPatterns encodes patterns for storage as a JSON array
func FormatPatterns(patterns []string) string {
	if len(patterns) == 0 {
		return "[]"
	}
	data, err := json.Marshal(patterns)
	if err != nil {
		return "[]"
	}
	return string(data)
}
