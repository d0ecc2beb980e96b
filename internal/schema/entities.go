package schema

import (
	"strconv"
	"strings"
)

// Entities holds the structured fields extracted from an utterance.
type Entities map[string]any

// String returns the value under key as a trimmed string. Numbers are formatted;
// anything else yields "".
func (e Entities) String(key string) string {
	switch v := e[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// Bool reports whether key holds a truthy value.
func (e Entities) Bool(key string) bool {
	switch v := e[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// Int reads an integer from int, float64 (JSON numbers) or numeric strings.
func (e Entities) Int(key string) (int, bool) {
	switch v := e[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Has reports whether key is present with a non-empty value.
func (e Entities) Has(key string) bool {
	v, ok := e[key]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// SetIfAbsent stores value under key unless a non-empty value is already there.
func (e Entities) SetIfAbsent(key string, value any) bool {
	if e.Has(key) {
		return false
	}
	e[key] = value
	return true
}

// First returns the first non-empty string among keys.
func (e Entities) First(keys ...string) string {
	for _, k := range keys {
		if s := e.String(k); s != "" {
			return s
		}
	}
	return ""
}

// Clone returns a shallow copy; nil clones to an empty map.
func (e Entities) Clone() Entities {
	out := make(Entities, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}
