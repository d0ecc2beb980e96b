package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rahul/vcaa/internal/schema"
)

// LoadAXTree reads an accessibility snapshot. A bare JSON array is taken as
// the element list.
func LoadAXTree(path string) (schema.AXTree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.AXTree{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var tree schema.AXTree
	if isArray(data) {
		err = json.Unmarshal(data, &tree.Elements)
	} else {
		err = json.Unmarshal(data, &tree)
	}
	if err != nil {
		return schema.AXTree{}, fmt.Errorf("failed to decode AX snapshot %s: %w", path, err)
	}
	if tree.Version == "" {
		tree.Version = schema.VersionAXTree
	}
	return tree, nil
}

// LoadDOMMap reads a DOM snapshot. A bare JSON array is taken as the element
// list.
func LoadDOMMap(path string) (schema.DOMMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.DOMMap{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var m schema.DOMMap
	if isArray(data) {
		err = json.Unmarshal(data, &m.Elements)
	} else {
		err = json.Unmarshal(data, &m)
	}
	if err != nil {
		return schema.DOMMap{}, fmt.Errorf("failed to decode DOM snapshot %s: %w", path, err)
	}
	if m.Version == "" {
		m.Version = schema.VersionDOMMap
	}
	return m, nil
}

func isArray(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(data), []byte("["))
}

// Save writes v as indented JSON, creating parent directories.
func Save(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}
