package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rahul/vcaa/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTree(t *testing.T) {
	nodes := []node{
		{ID: "1", Role: "RootWebArea", Name: "YouTube"},
		{ID: "2", Role: "generic"},
		{ID: "3", Role: "combobox", Name: "  Search\n videos ", Backend: 21,
			Props: map[string]any{"focusable": true, "focused": true, "expanded": false}},
		{ID: "4", Role: "button", Name: "<b>Flights</b> &amp; Hotels", Backend: 22,
			Props: map[string]any{"disabled": true}},
		{ID: "5", Role: "gridcell", Name: "5", Backend: 23, Props: map[string]any{"selected": true}},
		{ID: "6", Role: "checkbox", Name: "Direct only", Backend: 24, Props: map[string]any{"checked": "mixed"}},
		{ID: "7", Role: "link", Name: "Hidden", Ignored: true},
		{ID: "8", Role: "StaticText", Name: "Some text"},
	}
	tree := buildTree("https://www.youtube.com/", nodes)

	assert.Equal(t, schema.VersionAXTree, tree.Version)
	assert.Equal(t, "https://www.youtube.com/", tree.PageURL)
	require.Len(t, tree.Elements, 4)

	search := tree.Elements[0]
	assert.Equal(t, "3", search.AXID)
	assert.Equal(t, int64(21), search.BackendNodeID)
	assert.Equal(t, "Search videos", search.Name)
	assert.True(t, search.Focusable)
	assert.True(t, search.Focused)
	require.NotNil(t, search.Expanded)
	assert.False(t, *search.Expanded)
	assert.Nil(t, search.Selected)

	assert.Equal(t, "Flights & Hotels", tree.Elements[1].Name)
	assert.True(t, tree.Elements[1].Disabled)
	assert.True(t, tree.Elements[2].IsSelected())
	assert.Equal(t, "mixed", tree.Elements[3].Checked)
}

func TestFromAXNodes_Empty(t *testing.T) {
	tree := FromAXNodes("about:blank", nil)
	assert.NotNil(t, tree.Elements)
	assert.Empty(t, tree.Elements)
}

func TestDecodeValue(t *testing.T) {
	assert.Equal(t, "button", stringOf(decodeValue([]byte(`"button"`))))
	assert.Equal(t, "true", stringOf(decodeValue([]byte(`true`))))
	assert.Equal(t, "3", stringOf(decodeValue([]byte(`3`))))
	assert.Equal(t, "", stringOf(decodeValue(nil)))
	assert.Equal(t, "raw", stringOf(decodeValue([]byte(`raw`))))
}

func TestLoadAndSave(t *testing.T) {
	dir := t.TempDir()

	tree := schema.AXTree{PageURL: "https://example.com", Elements: []schema.AXElement{{AXID: "1", Role: "button", Name: "Go"}}}
	path := filepath.Join(dir, "nested", "tree.json")
	require.NoError(t, Save(path, tree))

	loaded, err := LoadAXTree(path)
	require.NoError(t, err)
	assert.Equal(t, schema.VersionAXTree, loaded.Version)
	assert.Equal(t, "Go", loaded.Elements[0].Name)

	bare := filepath.Join(dir, "bare.json")
	require.NoError(t, os.WriteFile(bare, []byte(`[{"element_id":"e1","tag":"input","placeholder":"Search"}]`), 0o644))
	m, err := LoadDOMMap(bare)
	require.NoError(t, err)
	assert.Equal(t, schema.VersionDOMMap, m.Version)
	require.Len(t, m.Elements, 1)
	assert.True(t, m.Elements[0].Visible, "visibility defaults to true")
	assert.True(t, m.Elements[0].Enabled)

	_, err = LoadAXTree(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"elements": [`), 0o644))
	_, err = LoadDOMMap(broken)
	assert.Error(t, err)
}
