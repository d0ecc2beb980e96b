package schema

import "encoding/json"

// BoundingRect is an element's on-screen geometry in CSS pixels.
type BoundingRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DOMElement is one interactive element of a DOM snapshot.
// Missing booleans decode as visible and enabled.
type DOMElement struct {
	ElementID    string         `json:"element_id"`
	Tag          string         `json:"tag"`
	Type         string         `json:"type,omitempty"`
	Text         string         `json:"text,omitempty"`
	AriaLabel    string         `json:"aria_label,omitempty"`
	Placeholder  string         `json:"placeholder,omitempty"`
	Name         string         `json:"name,omitempty"`
	Value        string         `json:"value,omitempty"`
	Role         string         `json:"role,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
	Dataset      map[string]any `json:"dataset,omitempty"`
	CSSSelector  string         `json:"css_selector,omitempty"`
	BoundingRect *BoundingRect  `json:"bounding_rect,omitempty"`
	Visible      bool           `json:"visible"`
	Enabled      bool           `json:"enabled"`
	ScoreHint    float64        `json:"score_hint,omitempty"`
}

func (e *DOMElement) UnmarshalJSON(data []byte) error {
	type alias DOMElement
	raw := alias{Visible: true, Enabled: true}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = DOMElement(raw)
	return nil
}

// Attr returns a string attribute, or "" when absent.
func (e DOMElement) Attr(key string) string {
	if e.Attributes == nil {
		return ""
	}
	if v, ok := e.Attributes[key].(string); ok {
		return v
	}
	return ""
}

// DOMMap is a DOM snapshot of the active page.
type DOMMap struct {
	Version     string       `json:"schema_version"`
	ID          string       `json:"id,omitempty"`
	TraceID     string       `json:"trace_id,omitempty"`
	PageURL     string       `json:"page_url,omitempty"`
	GeneratedAt string       `json:"generated_at,omitempty"`
	Elements    []DOMElement `json:"elements"`
}

// AXElement is one node of an accessibility-tree snapshot. Capture only emits
// non-ignored nodes, so every AXElement counts as visible.
type AXElement struct {
	AXID          string `json:"ax_id"`
	BackendNodeID int64  `json:"backend_node_id"`
	Role          string `json:"role"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Value         string `json:"value,omitempty"`
	Focusable     bool   `json:"focusable,omitempty"`
	Focused       bool   `json:"focused,omitempty"`
	Disabled      bool   `json:"disabled,omitempty"`
	Expanded      *bool  `json:"expanded,omitempty"`
	Selected      *bool  `json:"selected,omitempty"`
	Checked       string `json:"checked,omitempty"`
}

// IsSelected reports whether the node carries selected=true.
func (e AXElement) IsSelected() bool {
	return e.Selected != nil && *e.Selected
}

// AXTree is an accessibility snapshot of the active page.
type AXTree struct {
	Version     string      `json:"schema_version"`
	ID          string      `json:"id,omitempty"`
	TraceID     string      `json:"trace_id,omitempty"`
	PageURL     string      `json:"page_url,omitempty"`
	GeneratedAt string      `json:"generated_at,omitempty"`
	Elements    []AXElement `json:"elements"`
}

// Find returns the element with the given ax id.
func (t AXTree) Find(axID string) (AXElement, bool) {
	for _, el := range t.Elements {
		if el.AXID == axID {
			return el, true
		}
	}
	return AXElement{}, false
}
