package llm

import (
	"bytes"
	"encoding/json"
	"strings"

	"dreambot/internal/domain"
)

// ExtractJSONObject pulls a JSON object out of raw model text. Direct parse
// first; if the model wrapped the object in stray prose, the substring from
// the first '{' to the last '}' is tried as a salvage.
func ExtractJSONObject(text string) ([]byte, error) {
	trimmed := strings.TrimSpace(text)
	if isJSONObject([]byte(trimmed)) {
		return []byte(trimmed), nil
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		maybe := trimmed[start : end+1]
		if isJSONObject([]byte(maybe)) {
			return []byte(maybe), nil
		}
	}
	return nil, domain.ErrNoJSON
}

func isJSONObject(data []byte) bool {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return false
	}
	return json.Valid(data)
}
