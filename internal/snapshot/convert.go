package snapshot

import (
	"encoding/json"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/cdproto/accessibility"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rahul/vcaa/internal/schema"
)

var sanitizer = bluemonday.StrictPolicy()

// Roles that only structure the page or carry raw text; nothing is planned
// against them.
var skipRoles = map[string]bool{
	"":              true,
	"none":          true,
	"generic":       true,
	"presentation":  true,
	"StaticText":    true,
	"InlineTextBox": true,
	"LineBreak":     true,
	"RootWebArea":   true,
	"WebArea":       true,
}

// node is the part of a CDP accessibility node the conversion reads.
type node struct {
	ID          string
	Ignored     bool
	Role        string
	Name        string
	Description string
	Value       string
	Backend     int64
	Props       map[string]any
}

// FromAXNodes converts a CDP full accessibility tree into an AXTree, keeping
// non-ignored nodes with a meaningful role.
func FromAXNodes(pageURL string, nodes []*accessibility.Node) schema.AXTree {
	converted := make([]node, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		converted = append(converted, fromCDP(n))
	}
	return buildTree(pageURL, converted)
}

func fromCDP(n *accessibility.Node) node {
	out := node{
		ID:          string(n.NodeID),
		Ignored:     n.Ignored,
		Role:        valueString(n.Role),
		Name:        valueString(n.Name),
		Description: valueString(n.Description),
		Value:       valueString(n.Value),
		Backend:     int64(n.BackendDOMNodeID),
		Props:       map[string]any{},
	}
	for _, p := range n.Properties {
		if p == nil || p.Value == nil {
			continue
		}
		out.Props[string(p.Name)] = decodeValue([]byte(p.Value.Value))
	}
	return out
}

func decodeValue(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

func valueString(v *accessibility.Value) string {
	if v == nil {
		return ""
	}
	return stringOf(decodeValue([]byte(v.Value)))
}

func stringOf(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func buildTree(pageURL string, nodes []node) schema.AXTree {
	tree := schema.AXTree{
		Version:     schema.VersionAXTree,
		ID:          schema.NewID(),
		PageURL:     pageURL,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Elements:    []schema.AXElement{},
	}
	for _, n := range nodes {
		if n.Ignored || skipRoles[n.Role] {
			continue
		}
		el := schema.AXElement{
			AXID:          n.ID,
			BackendNodeID: n.Backend,
			Role:          n.Role,
			Name:          cleanText(n.Name),
			Description:   cleanText(n.Description),
			Value:         cleanText(n.Value),
			Focusable:     flag(n.Props, "focusable"),
			Focused:       flag(n.Props, "focused"),
			Disabled:      flag(n.Props, "disabled"),
			Expanded:      optFlag(n.Props, "expanded"),
			Selected:      optFlag(n.Props, "selected"),
		}
		if c, ok := n.Props["checked"]; ok {
			el.Checked = stringOf(c)
		}
		tree.Elements = append(tree.Elements, el)
	}
	return tree
}

func flag(props map[string]any, name string) bool {
	b, _ := props[name].(bool)
	return b
}

func optFlag(props map[string]any, name string) *bool {
	b, ok := props[name].(bool)
	if !ok {
		return nil
	}
	return &b
}

// cleanText strips markup from page-supplied text and collapses whitespace.
func cleanText(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(html.UnescapeString(sanitizer.Sanitize(s))), " ")
}
