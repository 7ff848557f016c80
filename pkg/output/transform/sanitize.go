package transform

import (
	"strings"

	"github.com/certtools/intelmq-elastic-output/pkg/output/model"
)

// SanitizeEvent applies ReplaceKeys to every field of the event.
func SanitizeEvent(event model.Event, keyChar string, replacement string) model.Event {
	return model.Event(ReplaceKeys(map[string]any(event), keyChar, replacement).(map[string]any))
}

// ReplaceKeys rewrites every mapping key in value, replacing all
// occurrences of keyChar with replacement. Mapping values and list
// elements are rewritten recursively, so mappings nested inside lists
// are covered too. Non-mapping, non-list values pass through unchanged.
func ReplaceKeys(value any, keyChar string, replacement string) any {
	switch v := value.(type) {
	case map[string]any:
		sanitized := make(map[string]any, len(v))
		for key, val := range v {
			sanitized[strings.ReplaceAll(key, keyChar, replacement)] = ReplaceKeys(val, keyChar, replacement)
		}
		return sanitized

	case []any:
		sanitized := make([]any, len(v))
		for i, val := range v {
			sanitized[i] = ReplaceKeys(val, keyChar, replacement)
		}
		return sanitized

	default:
		return value
	}
}
