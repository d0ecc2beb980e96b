package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rahul/vcaa/internal/observability"
	"github.com/rahul/vcaa/internal/schema"
	"github.com/rahul/vcaa/pkg/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
	lcschema "github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"
)

// Client turns utterances and page snapshots into pipeline messages using a
// language model.
type Client interface {
	Configured() bool
	InterpretTranscript(ctx context.Context, msg schema.TranscriptMessage) (schema.Message, error)
	Navigate(ctx context.Context, req schema.NavigationRequest) (schema.Message, error)
}

const defaultTimeout = 20 * time.Second

// LangChainClient implements Client on top of a langchaingo model. A client
// with a nil model reports itself unconfigured and every call returns
// ErrNotConfigured.
type LangChainClient struct {
	Provider string
	Model    llms.Model
	Prompts  *PromptManager
	Timeout  time.Duration
	Events   *observability.EventLogger
	logger   *zap.Logger
}

func NewLangChainClient(provider string, model llms.Model, prompts *PromptManager, timeout time.Duration, events *observability.EventLogger, logger *zap.Logger) *LangChainClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &LangChainClient{
		Provider: provider,
		Model:    model,
		Prompts:  prompts,
		Timeout:  timeout,
		Events:   events,
		logger:   observability.OrNop(logger),
	}
}

// FromConfig builds a client for the configured default provider. When no
// provider is usable the client is returned unconfigured.
func FromConfig(cfg *config.Config, events *observability.EventLogger, logger *zap.Logger) (*LangChainClient, error) {
	logger = observability.OrNop(logger)
	prompts := NewPromptManager(cfg.LLM.PromptsDir, logger)
	name, p := cfg.GetDefaultProvider()
	if name == "" {
		logger.Info("No LLM provider configured, running on heuristics")
		return NewLangChainClient("", nil, prompts, cfg.LLM.Timeout, events, logger), nil
	}
	model, err := NewModel(name, p)
	if err != nil {
		return nil, err
	}
	logger.Info("LLM provider selected", zap.String("provider", name), zap.String("model", p.Model))
	return NewLangChainClient(name, model, prompts, cfg.LLM.Timeout, events, logger), nil
}

// NewModel builds the langchaingo model for a provider. Every provider except
// anthropic speaks the OpenAI chat completions protocol at its base URL.
func NewModel(name string, p config.ProviderConfig) (llms.Model, error) {
	switch name {
	case "openai", "google", "xai", "asi", "openrouter":
		opts := []openai.Option{
			openai.WithToken(p.APIKey),
			openai.WithModel(p.Model),
		}
		if p.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(p.BaseURL))
		}
		model, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s client: %w", name, err)
		}
		return model, nil
	case "anthropic":
		opts := []anthropic.Option{
			anthropic.WithToken(p.APIKey),
			anthropic.WithModel(p.Model),
		}
		if p.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(p.BaseURL))
		}
		model, err := anthropic.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic client: %w", err)
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", name)
	}
}

func (c *LangChainClient) Configured() bool {
	return c != nil && c.Model != nil
}

// InterpretTranscript asks the model for an ActionPlan or ClarificationRequest.
func (c *LangChainClient) InterpretTranscript(ctx context.Context, msg schema.TranscriptMessage) (schema.Message, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	metadata := msg.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	payload := map[string]any{"transcript": msg.Transcript, "metadata": metadata}
	return c.exchange(ctx, msg.TraceID, "interpret", c.Prompts.Prompt(RoleInterpreter), payload)
}

// Navigate asks the model for an ExecutionPlan over a trimmed DOM map.
func (c *LangChainClient) Navigate(ctx context.Context, req schema.NavigationRequest) (schema.Message, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	payload := map[string]any{
		"action_plan": req.ActionPlan,
		"dom_map":     TrimDOMMap(req.DOMMap, MaxPromptElements, MaxPromptText),
	}
	return c.exchange(ctx, req.TraceID, "navigate", c.Prompts.Prompt(RoleNavigator), payload)
}

func (c *LangChainClient) exchange(ctx context.Context, traceID, purpose, systemPrompt string, payload map[string]any) (schema.Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", purpose, err)
	}

	text, err := c.chat(ctx, purpose, systemPrompt, string(body))
	c.Events.LogLLM(traceID, c.Provider, purpose, payload, text, err)
	if err != nil {
		return nil, err
	}

	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	msg, err := schema.Decode(raw)
	if err != nil {
		return nil, err
	}
	stampTrace(msg, traceID)
	return msg, nil
}

func (c *LangChainClient) chat(ctx context.Context, purpose, systemPrompt, input string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	messages := []llms.MessageContent{
		{
			Role:  lcschema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
		{
			Role:  lcschema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(input)},
		},
	}

	start := time.Now()
	resp, err := c.Model.GenerateContent(ctx, messages, llms.WithTemperature(0))
	observability.ObserveLLM(c.Provider, purpose, start)
	if err != nil {
		c.logger.Warn("LLM call failed", zap.String("provider", c.Provider), zap.String("purpose", purpose), zap.Error(err))
		return "", fmt.Errorf("%s call to %s: %w", purpose, c.Provider, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Content, nil
}

func stampTrace(msg schema.Message, traceID string) {
	if traceID == "" {
		return
	}
	switch m := msg.(type) {
	case *schema.ActionPlan:
		if m.TraceID == "" {
			m.TraceID = traceID
		}
	case *schema.ClarificationRequest:
		if m.TraceID == "" {
			m.TraceID = traceID
		}
	case *schema.ExecutionPlan:
		if m.TraceID == "" {
			m.TraceID = traceID
		}
	case *schema.AXExecutionPlan:
		if m.TraceID == "" {
			m.TraceID = traceID
		}
	}
}
