package llm

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Prompt roles.
const (
	RoleInterpreter = "interpreter"
	RoleNavigator   = "navigator"
)

// PromptManager assembles system prompts from markdown files. For a role the
// base file <role>.md comes first, then <role>_schema.md, <role>_examples.md
// and any other <role>_*.md fragment in name order.
type PromptManager struct {
	Directory string
	logger    *zap.Logger
}

func NewPromptManager(dir string, logger *zap.Logger) *PromptManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromptManager{Directory: dir, logger: logger}
}

var fragmentOrder = map[string]int{
	"":         1,
	"schema":   2,
	"examples": 3,
}

// Load returns the assembled prompt for role.
func (pm *PromptManager) Load(role string) (string, error) {
	if pm == nil || pm.Directory == "" {
		return "", fmt.Errorf("no prompts directory configured")
	}
	entries, err := os.ReadDir(pm.Directory)
	if err != nil {
		return "", fmt.Errorf("failed to read prompts directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".md") {
			continue
		}
		if name == role+".md" || strings.HasPrefix(name, role+"_") {
			files = append(files, name)
		}
	}

	rank := func(name string) (int, string) {
		frag := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(name, role), "_"), ".md")
		if o, ok := fragmentOrder[frag]; ok {
			return o, frag
		}
		return len(fragmentOrder) + 1, frag
	}
	sort.Slice(files, func(i, j int) bool {
		oi, fi := rank(files[i])
		oj, fj := rank(files[j])
		if oi != oj {
			return oi < oj
		}
		return fi < fj
	})

	var contents []string
	for _, f := range files {
		path := filepath.Join(pm.Directory, f)
		data, err := os.ReadFile(path)
		if err != nil {
			pm.logger.Warn("Failed to read prompt file", zap.String("path", path), zap.Error(err))
			continue
		}
		contents = append(contents, strings.TrimSpace(string(data)))
	}
	if len(contents) == 0 {
		return "", fmt.Errorf("no %s prompt files found in %s", role, pm.Directory)
	}
	return strings.Join(contents, "\n\n---\n\n"), nil
}

// Prompt returns the prompt for role, falling back to the built-in one when
// no files are available.
func (pm *PromptManager) Prompt(role string) string {
	if p, err := pm.Load(role); err == nil {
		return p
	}
	if role == RoleNavigator {
		return defaultNavigatorPrompt
	}
	return defaultInterpreterPrompt
}
