package textutil

import "strings"

// CleanData copies a notification payload with trimmed keys. String values
// are trimmed too, and entries with a blank key, a nil value or a blank
// string are dropped. An empty result is nil so it is omitted from JSON.
func CleanData(values map[string]any) map[string]any {
	var out map[string]any
	for key, value := range values {
		key = strings.TrimSpace(key)
		if key == "" || value == nil {
			continue
		}
		if s, ok := value.(string); ok {
			if s = strings.TrimSpace(s); s == "" {
				continue
			}
			value = s
		}
		if out == nil {
			out = make(map[string]any, len(values))
		}
		out[key] = value
	}
	return out
}
