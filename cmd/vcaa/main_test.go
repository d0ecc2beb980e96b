package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := "logging:\n  level: error\n  format: json\n  log_file: \"\"\n  llm_log_file: \"\"\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func run(t *testing.T, args ...string) map[string]any {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs(append([]string{"--config", writeConfig(t)}, args...))
	require.NoError(t, cmd.Execute())

	var msg map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &msg), out.String())
	return msg
}

func TestInterpretCommand(t *testing.T) {
	msg := run(t, "interpret", "scroll", "down")
	assert.Equal(t, "actionplan_v1", msg["schema_version"])
	assert.Equal(t, "scroll", msg["action"])
	assert.Equal(t, "down", msg["value"])
}

func TestPlanCommand_AXSnapshot(t *testing.T) {
	snap := filepath.Join(t.TempDir(), "ax.json")
	require.NoError(t, os.WriteFile(snap, []byte(`[{"ax_id":"1","backend_node_id":5,"role":"button","name":"Search"}]`), 0o644))

	msg := run(t, "plan", "scroll down", "--snapshot", snap)
	assert.Equal(t, "executionplan_v1", msg["schema_version"])
	steps, ok := msg["steps"].([]any)
	require.True(t, ok)
	require.Len(t, steps, 1)
}

func TestPlanCommand_MissingSnapshot(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", writeConfig(t), "plan", "scroll down", "--snapshot", filepath.Join(t.TempDir(), "nope.json")})
	assert.Error(t, cmd.Execute())
}
