package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Recover returns the first balanced {...} span in text. Braces inside
// JSON string literals are ignored. It reports false when no opening brace
// exists or the object is never closed.
func Recover(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}

// parseObject decodes text as a JSON object, falling back to the
// recovered span when the service wrapped it in prose
func parseObject(text string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	err := json.Unmarshal([]byte(text), &fields)
	if err == nil && fields != nil {
		return fields, nil
	}

	span, ok := Recover(text)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in %d bytes", ErrParseRecovery, len(text))
	}

	fields = nil
	if err := json.Unmarshal([]byte(span), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseRecovery, err)
	}
	return fields, nil
}
