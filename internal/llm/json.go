package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSON returns the first well-formed JSON object embedded in text.
// Models often wrap their answer in prose or code fences; everything around
// the object is ignored.
func ExtractJSON(text string) ([]byte, error) {
	for i := strings.IndexByte(text, '{'); i >= 0; {
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil && len(raw) > 0 && raw[0] == '{' {
			return raw, nil
		}
		next := strings.IndexByte(text[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return nil, ErrNoJSON
}
