package llm

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rahul/vcaa/internal/observability"
	"github.com/rahul/vcaa/internal/schema"
	"github.com/rahul/vcaa/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	lcschema "github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"
)

type stubModel struct {
	reply    string
	err      error
	block    bool
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (m *stubModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	for _, o := range options {
		o(&m.opts)
	}
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func textOf(t *testing.T, mc llms.MessageContent) string {
	t.Helper()
	require.Len(t, mc.Parts, 1)
	tp, ok := mc.Parts[0].(llms.TextContent)
	require.True(t, ok)
	return tp.Text
}

func TestInterpretTranscript_DecodesActionPlan(t *testing.T) {
	model := &stubModel{reply: "Sure!\n```json\n{\"schema_version\":\"actionplan_v1\",\"id\":\"p1\",\"action\":\"search_content\",\"entities\":{\"query\":\"cats\"},\"confidence\":0.9}\n```"}
	var exchanges bytes.Buffer
	events := observability.NewEventLoggerTo(zap.NewNop(), &exchanges)
	c := NewLangChainClient("openai", model, NewPromptManager("", nil), time.Second, events, nil)

	msg, err := c.InterpretTranscript(context.Background(), schema.TranscriptMessage{
		TraceID:    "trace-1",
		Transcript: "search for cats",
	})
	require.NoError(t, err)

	plan, ok := msg.(*schema.ActionPlan)
	require.True(t, ok)
	assert.Equal(t, "search_content", plan.Action)
	assert.Equal(t, "cats", plan.Entities.String("query"))
	assert.Equal(t, "trace-1", plan.TraceID)
	assert.NotNil(t, plan.RequiredFollowup)

	require.Len(t, model.messages, 2)
	assert.Equal(t, lcschema.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Contains(t, textOf(t, model.messages[0]), "Interpreter")
	assert.Equal(t, lcschema.ChatMessageTypeHuman, model.messages[1].Role)
	assert.JSONEq(t, `{"transcript":"search for cats","metadata":{}}`, textOf(t, model.messages[1]))
	assert.Equal(t, 0.0, model.opts.Temperature)

	events.Sync()
	assert.Contains(t, exchanges.String(), `"purpose":"interpret"`)
}

func TestInterpretTranscript_Clarification(t *testing.T) {
	model := &stubModel{reply: `{"schema_version":"clarification_v1","question":"Which site?","options":[{"label":"youtube"}],"reason":"missing_site"}`}
	c := NewLangChainClient("anthropic", model, nil, time.Second, nil, nil)

	msg, err := c.InterpretTranscript(context.Background(), schema.TranscriptMessage{Transcript: "open it"})
	require.NoError(t, err)
	cl, ok := msg.(*schema.ClarificationRequest)
	require.True(t, ok)
	assert.Equal(t, schema.ReasonMissingSite, cl.Reason)
	assert.NotEmpty(t, cl.ID)
	assert.Equal(t, []string{}, cl.Options[0].CandidateElementIDs)
}

func TestInterpretTranscript_Failures(t *testing.T) {
	tests := []struct {
		name    string
		model   *stubModel
		wantErr error
	}{
		{"provider error", &stubModel{err: errors.New("rate limited")}, nil},
		{"prose only", &stubModel{reply: "I cannot help with that."}, ErrNoJSON},
		{"unknown schema", &stubModel{reply: `{"schema_version":"weird_v9"}`}, schema.ErrUnknownSchema},
		{"bad confidence", &stubModel{reply: `{"schema_version":"actionplan_v1","action":"scroll","confidence":4}`}, schema.ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewLangChainClient("openai", tt.model, nil, time.Second, nil, nil)
			msg, err := c.InterpretTranscript(context.Background(), schema.TranscriptMessage{Transcript: "x"})
			require.Error(t, err)
			assert.Nil(t, msg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestInterpretTranscript_Timeout(t *testing.T) {
	c := NewLangChainClient("openai", &stubModel{block: true}, nil, 20*time.Millisecond, nil, nil)
	_, err := c.InterpretTranscript(context.Background(), schema.TranscriptMessage{Transcript: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUnconfiguredClient(t *testing.T) {
	c := NewLangChainClient("", nil, nil, 0, nil, nil)
	assert.False(t, c.Configured())
	assert.Equal(t, defaultTimeout, c.Timeout)

	_, err := c.InterpretTranscript(context.Background(), schema.TranscriptMessage{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = c.Navigate(context.Background(), schema.NavigationRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	var nilClient *LangChainClient
	assert.False(t, nilClient.Configured())
}

func TestNavigate_TrimsPayload(t *testing.T) {
	model := &stubModel{reply: `{"schema_version":"executionplan_v1","steps":[{"step_id":"s1","action_type":"click","element_id":"e1","timeout_ms":4000,"confidence":0.8}]}`}
	c := NewLangChainClient("openai", model, nil, time.Second, nil, nil)

	elements := make([]schema.DOMElement, 200)
	for i := range elements {
		elements[i] = schema.DOMElement{ElementID: "e", Text: strings.Repeat("x", 500)}
	}
	req := schema.NavigationRequest{
		TraceID:    "trace-n",
		ActionPlan: *schema.NewActionPlan("trace-n", "click_result", nil, 0.8),
		DOMMap:     schema.DOMMap{PageURL: "https://example.com", Elements: elements},
	}

	msg, err := c.Navigate(context.Background(), req)
	require.NoError(t, err)
	plan, ok := msg.(*schema.ExecutionPlan)
	require.True(t, ok)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "e1", plan.Steps[0].ElementID)
	assert.Equal(t, "trace-n", plan.TraceID)

	body := textOf(t, model.messages[1])
	assert.Equal(t, MaxPromptElements, strings.Count(body, `"element_id":"e"`))
	assert.NotContains(t, body, strings.Repeat("x", MaxPromptText+1))
	assert.Contains(t, textOf(t, model.messages[0]), "Navigator")
}

func TestNewModel(t *testing.T) {
	for _, name := range []string{"openai", "google", "xai", "asi", "openrouter", "anthropic"} {
		t.Run(name, func(t *testing.T) {
			m, err := NewModel(name, config.ProviderConfig{APIKey: "k", Model: "m", BaseURL: "https://llm.example.com/v1"})
			require.NoError(t, err)
			assert.NotNil(t, m)
		})
	}
	_, err := NewModel("mystery", config.ProviderConfig{APIKey: "k"})
	assert.Error(t, err)
}

func TestFromConfig_NoProvider(t *testing.T) {
	c, err := FromConfig(config.Default(), nil, nil)
	require.NoError(t, err)
	assert.False(t, c.Configured())
}
