package llm

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptManager_Load(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"interpreter.md":          "Base Content",
		"interpreter_schema.md":   "Schema Content",
		"interpreter_examples.md": "Examples Content",
		"interpreter_extra.md":    "Extra Content",
		"navigator.md":            "Navigator Content",
		"notes.txt":               "Ignored Content",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	pm := NewPromptManager(dir, nil)
	prompt, err := pm.Load(RoleInterpreter)
	require.NoError(t, err)

	for _, part := range []string{"Base Content", "Schema Content", "Examples Content", "Extra Content"} {
		assert.Contains(t, prompt, part)
	}
	assert.NotContains(t, prompt, "Navigator Content")
	assert.NotContains(t, prompt, "Ignored Content")

	assert.Less(t, strings.Index(prompt, "Base Content"), strings.Index(prompt, "Schema Content"))
	assert.Less(t, strings.Index(prompt, "Schema Content"), strings.Index(prompt, "Examples Content"))
	assert.Less(t, strings.Index(prompt, "Examples Content"), strings.Index(prompt, "Extra Content"))

	nav, err := pm.Load(RoleNavigator)
	require.NoError(t, err)
	assert.Equal(t, "Navigator Content", nav)
}

func TestPromptManager_Fallback(t *testing.T) {
	pm := NewPromptManager(t.TempDir(), nil)
	_, err := pm.Load(RoleInterpreter)
	assert.Error(t, err)
	assert.Equal(t, defaultInterpreterPrompt, pm.Prompt(RoleInterpreter))
	assert.Equal(t, defaultNavigatorPrompt, pm.Prompt(RoleNavigator))

	var nilPM *PromptManager
	assert.Equal(t, defaultInterpreterPrompt, nilPM.Prompt(RoleInterpreter))
	assert.Equal(t, defaultNavigatorPrompt, NewPromptManager(filepath.Join(t.TempDir(), "missing"), nil).Prompt(RoleNavigator))
}
