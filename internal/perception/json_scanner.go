package perception

import (
	"encoding/json"
	"strings"
)

// FindJSONObject returns the first balanced top-level {...} in s, skipping
// braces inside string literals. ok is false when none closes.
//
// Byte iteration is safe for the ASCII delimiters ({, }, ", \) because UTF-8
// never uses ASCII bytes inside multi-byte sequences.
func FindJSONObject(s string) (string, bool) {
	var depth int
	start := -1
	var inString, escape bool

	for i := 0; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}
		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			// Quotes only open a string inside an object; prose quotes before
			// the first brace are ignored.
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// DecodeObject extracts the first JSON object in text and decodes it into a
// generic map. Surrounding prose and code fences are tolerated. When the
// first balanced candidate is not valid JSON, scanning resumes after it, so
// objects nested inside a malformed one are never decoded.
func DecodeObject(text string) (map[string]interface{}, error) {
	rest := stripCodeFence(text)
	for {
		candidate, ok := FindJSONObject(rest)
		if !ok {
			return nil, ErrNoJSONObject
		}
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(candidate), &obj); err == nil {
			return obj, nil
		}
		idx := strings.Index(rest, candidate)
		rest = rest[idx+len(candidate):]
	}
}
