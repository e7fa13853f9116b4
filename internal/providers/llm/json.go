package llm

import "strings"

// normalizeJSONText strips code fences and, when the payload is buried in
// prose, extracts the first top-level JSON array or object.
func normalizeJSONText(s string) string {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "```") {
		t = strings.TrimPrefix(t, "```")
		// drop possible language hint, e.g., json
		if idx := strings.IndexByte(t, '\n'); idx != -1 {
			t = t[idx+1:]
		}
		if j := strings.LastIndex(t, "```"); j != -1 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}
	if strings.HasPrefix(t, "[") || strings.HasPrefix(t, "{") {
		return t
	}
	if arr := extractDelimited(t, '[', ']'); arr != "" {
		return arr
	}
	if obj := extractDelimited(t, '{', '}'); obj != "" {
		return obj
	}
	return t
}

// extractDelimited returns the first balanced opener..closer span in s.
func extractDelimited(s string, opener, closer byte) string {
	start := strings.IndexByte(s, opener)
	if start == -1 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
