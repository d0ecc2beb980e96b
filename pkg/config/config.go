package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App          AppConfig                 `yaml:"app"`
	Providers    map[string]ProviderConfig `yaml:"providers"`
	LLM          LLMConfig                 `yaml:"llm"`
	Orchestrator OrchestratorConfig        `yaml:"orchestrator"`
	Planner      PlannerConfig             `yaml:"planner"`
	Policy       PolicyConfig              `yaml:"policy"`
	Browser      BrowserConfig             `yaml:"browser"`
	Logging      LoggingConfig             `yaml:"logging"`
}

type AppConfig struct {
	Name string `yaml:"name"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
	Enabled bool   `yaml:"enabled"`
}

type LLMConfig struct {
	// Provider forces a provider by name; empty picks the first enabled one.
	Provider   string        `yaml:"provider"`
	Model      string        `yaml:"model"`
	PromptsDir string        `yaml:"prompts_dir"`
	Timeout    time.Duration `yaml:"timeout"`
}

type OrchestratorConfig struct {
	SessionTTL      time.Duration `yaml:"session_ttl"`
	JanitorInterval time.Duration `yaml:"janitor_interval"`
	Store           string        `yaml:"store"`
	StorePath       string        `yaml:"store_path"`
}

// PlannerConfig carries the empirically chosen selection thresholds.
type PlannerConfig struct {
	LatestThreshold   float64 `yaml:"latest_threshold"`
	PositionThreshold float64 `yaml:"position_threshold"`
	OptionThreshold   float64 `yaml:"option_threshold"`
}

type PolicyConfig struct {
	DenyActions     []string `yaml:"deny_actions"`
	DenyURLPatterns []string `yaml:"deny_url_patterns"`
}

type BrowserConfig struct {
	Headless    bool          `yaml:"headless"`
	Timeout     time.Duration `yaml:"timeout"`
	SettleDelay time.Duration `yaml:"settle_delay"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	LogFile     string `yaml:"log_file"`
	LLMLogFile  string `yaml:"llm_log_file"`
	MaxSize     int    `yaml:"max_size_mb"`
	MaxBackups  int    `yaml:"max_backups"`
	MaxAge      int    `yaml:"max_age_days"`
	Compress    bool   `yaml:"compress"`
	ServiceName string `yaml:"service_name"`
}

// ProviderOrder is the order GetDefaultProvider walks when no provider is forced.
var ProviderOrder = []string{"openai", "google", "anthropic", "xai", "asi", "openrouter"}

var providerDefaults = map[string]ProviderConfig{
	"openai":     {Model: "gpt-5-nano"},
	"google":     {Model: "gemini-2.5-flash-lite", BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai/"},
	"anthropic":  {Model: "claude-haiku-4-5"},
	"xai":        {Model: "grok-4-1-fast-non-reasoning", BaseURL: "https://api.x.ai/v1"},
	"asi":        {Model: "asi1-mini", BaseURL: "https://inference.asicloud.cudos.org/v1"},
	"openrouter": {Model: "openai/gpt-5-nano", BaseURL: "https://openrouter.ai/api/v1"},
}

var providerAliases = map[string]string{
	"gemini": "google",
	"grok":   "xai",
	"claude": "anthropic",
}

// Default returns a configuration that runs fully offline on heuristics.
func Default() *Config {
	return &Config{
		App:       AppConfig{Name: "vcaa"},
		Providers: map[string]ProviderConfig{},
		LLM: LLMConfig{
			PromptsDir: "./prompts",
			Timeout:    30 * time.Second,
		},
		Orchestrator: OrchestratorConfig{
			SessionTTL:      600 * time.Second,
			JanitorInterval: 60 * time.Second,
			Store:           "memory",
			StorePath:       "data/sessions.db",
		},
		Planner: PlannerConfig{
			LatestThreshold:   0.45,
			PositionThreshold: 0.5,
			OptionThreshold:   0.5,
		},
		Policy: PolicyConfig{
			DenyURLPatterns: []string{`(?i)^javascript:`, `(?i)^file:`},
		},
		Browser: BrowserConfig{
			Headless:    true,
			Timeout:     45 * time.Second,
			SettleDelay: 2 * time.Second,
		},
		Logging: LoggingConfig{
			Level:       "info",
			LLMLogFile:  "logs/llm.jsonl",
			MaxSize:     10,
			MaxBackups:  3,
			MaxAge:      28,
			ServiceName: "vcaa",
		},
	}
}

// LoadConfig reads a YAML file over the defaults. A missing file is not an
// error; the defaults are returned as they are.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables read through lookup (os.LookupEnv in
// production). Setting a provider's key enables that provider.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	get := func(names ...string) string {
		for _, n := range names {
			if v, ok := lookup(n); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}
	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}

	keys := map[string][]string{
		"openai":     {"OPENAI_API_KEY"},
		"google":     {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
		"anthropic":  {"ANTHROPIC_API_KEY"},
		"xai":        {"XAI_API_KEY"},
		"asi":        {"ASI_CLOUD_API_KEY"},
		"openrouter": {"OPENROUTER_API_KEY"},
	}
	models := map[string]string{
		"openai":     "OPENAI_MODEL",
		"google":     "GEMINI_MODEL",
		"anthropic":  "ANTHROPIC_MODEL",
		"xai":        "XAI_MODEL",
		"asi":        "ASI_CLOUD_MODEL",
		"openrouter": "OPENROUTER_MODEL",
	}
	for _, name := range ProviderOrder {
		p := c.Providers[name]
		touched := false
		if key := get(keys[name]...); key != "" {
			p.APIKey = key
			p.Enabled = true
			touched = true
		}
		if model := get(models[name]); model != "" {
			p.Model = model
			touched = true
		}
		if touched {
			c.Providers[name] = p
		}
	}
	if u := get("ASI_CLOUD_API_URL"); u != "" {
		p := c.Providers["asi"]
		p.BaseURL = u
		c.Providers["asi"] = p
	}

	if v := get("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := get("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := get("ORCHESTRATOR_SESSION_TTL_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.Orchestrator.SessionTTL = time.Duration(secs) * time.Second
		}
	}
	if v := get("VCAA_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Orchestrator.SessionTTL <= 0 {
		return errors.New("orchestrator.session_ttl must be positive")
	}
	switch c.Orchestrator.Store {
	case "", "memory", "sqlite":
	default:
		return fmt.Errorf("orchestrator.store %q is not one of memory, sqlite", c.Orchestrator.Store)
	}
	for name, v := range map[string]float64{
		"planner.latest_threshold":   c.Planner.LatestThreshold,
		"planner.position_threshold": c.Planner.PositionThreshold,
		"planner.option_threshold":   c.Planner.OptionThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0,1], got %v", name, v)
		}
	}
	return nil
}

// GetDefaultProvider returns the forced provider when llm.provider is set,
// otherwise the first enabled provider in ProviderOrder. Per-provider model
// and base URL defaults are filled in. The name is "" when none is usable.
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	if forced := NormalizeProvider(c.LLM.Provider); forced != "" {
		p := c.resolve(forced)
		if p.APIKey == "" {
			return "", ProviderConfig{}
		}
		return forced, p
	}
	for _, name := range ProviderOrder {
		p, ok := c.Providers[name]
		if ok && p.Enabled && p.APIKey != "" {
			return name, c.resolve(name)
		}
	}
	return "", ProviderConfig{}
}

func (c *Config) resolve(name string) ProviderConfig {
	p := c.Providers[name]
	d := providerDefaults[name]
	if p.Model == "" {
		p.Model = d.Model
	}
	if c.LLM.Model != "" {
		p.Model = c.LLM.Model
	}
	if p.BaseURL == "" {
		p.BaseURL = d.BaseURL
	}
	return p
}

// NormalizeProvider maps aliases such as "gemini" to provider names. Unknown
// names and "auto" yield "".
func NormalizeProvider(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if a, ok := providerAliases[n]; ok {
		n = a
	}
	if _, ok := providerDefaults[n]; ok {
		return n
	}
	return ""
}
