package llm

import "github.com/rahul/vcaa/internal/schema"

// Navigator payload bounds.
const (
	MaxPromptElements = 120
	MaxPromptText     = 140
)

// TrimDOMMap returns a copy of m holding at most maxElements elements whose
// free-text fields are cut to textLimit runes.
func TrimDOMMap(m schema.DOMMap, maxElements, textLimit int) schema.DOMMap {
	out := m
	n := len(m.Elements)
	if n > maxElements {
		n = maxElements
	}
	out.Elements = make([]schema.DOMElement, 0, n)
	for _, el := range m.Elements[:n] {
		el.Text = schema.Truncate(el.Text, textLimit)
		el.AriaLabel = schema.Truncate(el.AriaLabel, textLimit)
		el.Placeholder = schema.Truncate(el.Placeholder, textLimit)
		el.Value = schema.Truncate(el.Value, textLimit)
		out.Elements = append(out.Elements, el)
	}
	return out
}
