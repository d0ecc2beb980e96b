package interpreter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rahul/vcaa/internal/entities"
	"github.com/rahul/vcaa/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC) }

type stubClient struct {
	out   schema.Message
	err   error
	calls int
	got   schema.TranscriptMessage
}

func (s *stubClient) Configured() bool { return true }

func (s *stubClient) InterpretTranscript(_ context.Context, msg schema.TranscriptMessage) (schema.Message, error) {
	s.calls++
	s.got = msg
	return s.out, s.err
}

func (s *stubClient) Navigate(context.Context, schema.NavigationRequest) (schema.Message, error) {
	return nil, errors.New("not used")
}

func newTestInterpreter(client *stubClient) *Interpreter {
	if client == nil {
		return New(nil, entities.Extractor{Now: fixedNow}, nil, nil)
	}
	return New(client, entities.Extractor{Now: fixedNow}, nil, nil)
}

func interpret(t *testing.T, it *Interpreter, transcript string, meta map[string]any) schema.Message {
	t.Helper()
	out := it.Interpret(context.Background(), schema.TranscriptMessage{TraceID: "trace-1", Transcript: transcript, Metadata: meta})
	require.NotNil(t, out)
	assert.Equal(t, "trace-1", out.Trace())
	return out
}

func requirePlan(t *testing.T, msg schema.Message) *schema.ActionPlan {
	t.Helper()
	p, ok := msg.(*schema.ActionPlan)
	require.True(t, ok, "expected ActionPlan, got %T", msg)
	return p
}

func requireClarification(t *testing.T, msg schema.Message) *schema.ClarificationRequest {
	t.Helper()
	c, ok := msg.(*schema.ClarificationRequest)
	require.True(t, ok, "expected ClarificationRequest, got %T", msg)
	return c
}

func TestInterpret_Heuristics(t *testing.T) {
	tests := []struct {
		transcript string
		action     string
		target     string
		value      string
		confidence float64
	}{
		{"scroll down", "scroll", "page", "down", 0.75},
		{"please scroll up", "scroll", "page", "up", 0.75},
		{"scroll", "scroll", "page", "down", 0.75},
		{"can you scroll down a bit more", "scroll", "page", "down", 0.7},
		{"go back", "history_back", "", "", 0.9},
		{"go to the previous page", "history_back", "", "", 0.9},
		{"open the second result", "click_result", "item", "2", 0.75},
		{"open youtube", "open_site", "youtube", "https://www.youtube.com", 0.8},
		{"go to https://example.com/path", "open_site", "example.com", "https://example.com/path", 0.8},
		{"search for cats on youtube", "search_content", "youtube", "cats", 0.75},
		{"find cheap headphones", "search_content", "page", "cheap headphones", 0.75},
		{"fly from Istanbul to London on March 5", "search_flights", "flight_search_form", "", 0.85},
		{"change my flight to depart on March 12", "update_flight_dates", "page_url", "", 0.8},
		{"hotels in Paris", "search_hotels", "hotel_search_form", "", 0.68},
		{"hotels in Paris on March 5", "search_hotels", "hotel_search_form", "", 0.78},
		{"trip to Rome on March 5", "search_travel", "travel_search_form", "", 0.7},
		{"youtube", "open_site", "youtube", "https://www.youtube.com", 0.62},
	}
	it := newTestInterpreter(nil)
	for _, tt := range tests {
		t.Run(tt.transcript, func(t *testing.T) {
			p := requirePlan(t, interpret(t, it, tt.transcript, nil))
			assert.Equal(t, tt.action, p.Action)
			assert.Equal(t, tt.target, p.Target)
			assert.Equal(t, tt.value, p.Value)
			assert.InDelta(t, tt.confidence, p.Confidence, 1e-9)
			assert.NotNil(t, p.Entities)
			assert.NotNil(t, p.RequiredFollowup)
		})
	}
}

func TestInterpret_FlightClarificationNamesMissingFields(t *testing.T) {
	tests := []struct {
		transcript string
		missing    []string
	}{
		{"fly from Istanbul to London", []string{"date"}},
		{"book a flight", []string{"origin", "destination", "date"}},
		{"flights to Tokyo", []string{"origin", "date"}},
		{"flying from Berlin on March 3", []string{"destination"}},
	}
	it := newTestInterpreter(nil)
	for _, tt := range tests {
		t.Run(tt.transcript, func(t *testing.T) {
			c := requireClarification(t, interpret(t, it, tt.transcript, nil))
			assert.Equal(t, schema.ReasonMissingEntities, c.Reason)
			assert.Equal(t, tt.missing, c.OptionLabels())
			for _, f := range tt.missing {
				assert.Contains(t, c.Question, f)
			}
		})
	}
}

func TestInterpret_Ambiguous(t *testing.T) {
	c := requireClarification(t, interpret(t, newTestInterpreter(nil), "hmm", nil))
	assert.Equal(t, schema.ReasonAmbiguousIntent, c.Reason)
	assert.Equal(t, "What should I do?", c.Question)
	assert.Equal(t, []string{"What should I do?"}, c.OptionLabels())
}

func TestInterpret_PageContext(t *testing.T) {
	it := newTestInterpreter(nil)
	meta := map[string]any{"page_url": "https://www.amazon.com/s?k=socks"}

	p := requirePlan(t, interpret(t, it, "search for wool socks", meta))
	assert.Equal(t, "search_content", p.Action)
	assert.Equal(t, "amazon.com", p.Target)
	assert.Equal(t, "https://www.amazon.com/s?k=socks", p.Entities.String("page_url"))

	// A site known only from the page never turns into navigation.
	c := requireClarification(t, interpret(t, it, "hmm", meta))
	assert.Equal(t, schema.ReasonAmbiguousIntent, c.Reason)

	// A site in the words wins over the page.
	p = requirePlan(t, interpret(t, it, "search for cats on youtube", meta))
	assert.Equal(t, "youtube", p.Target)
}

func TestInterpret_ClarificationAnswersMerge(t *testing.T) {
	it := newTestInterpreter(nil)

	p := requirePlan(t, interpret(t, it, "fly from Istanbul to London", map[string]any{
		"clarification_response": "on March 5",
	}))
	assert.Equal(t, "search_flights", p.Action)
	assert.Equal(t, "Istanbul", p.Entities.String("origin"))
	assert.True(t, p.Entities.Has("date"))

	p = requirePlan(t, interpret(t, it, "book a flight", map[string]any{
		"clarification_history": []any{
			map[string]any{"question": "Please confirm origin, destination, date", "answer": "from Oslo to Rome on March 9"},
		},
	}))
	assert.Equal(t, "search_flights", p.Action)
	assert.Equal(t, "Rome", p.Entities.String("destination"))
}

func TestInterpret_FastPathSkipsLLM(t *testing.T) {
	client := &stubClient{out: schema.NewActionPlan("trace-1", "open_site", nil, 0.9)}
	it := newTestInterpreter(client)

	p := requirePlan(t, interpret(t, it, "scroll down", nil))
	assert.Equal(t, "scroll", p.Action)
	assert.Zero(t, client.calls)
}

func TestInterpret_LLMPlanIsAugmented(t *testing.T) {
	remote := schema.NewActionPlan("", "search_content", schema.Entities{"site": "youtube", "query": "kittens"}, 0.9)
	client := &stubClient{out: remote}
	it := newTestInterpreter(client)

	p := requirePlan(t, interpret(t, it, "search for cats on youtube in the latest uploads", map[string]any{"page_url": "https://example.com"}))
	assert.Same(t, remote, p)
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, "kittens", p.Entities.String("query"), "local entities never overwrite")
	assert.True(t, p.Entities.Bool("latest"))
	assert.Equal(t, "https://www.youtube.com", p.Entities.String("url"))
	assert.Equal(t, "trace-1", client.got.TraceID)
	assert.Equal(t, "https://example.com", client.got.Metadata["page_url"])
}

func TestInterpret_LLMClarificationHeld(t *testing.T) {
	held := schema.NewClarification("trace-1", "Which video?", schema.ReasonAmbiguousIntent, "first", "second")
	client := &stubClient{out: held}
	it := newTestInterpreter(client)

	out := interpret(t, it, "hmm", nil)
	assert.Same(t, held, out)

	p := requirePlan(t, interpret(t, it, "open youtube", nil))
	assert.Equal(t, "open_site", p.Action)
}

func TestInterpret_LLMFailureFallsBack(t *testing.T) {
	client := &stubClient{err: errors.New("provider down")}
	it := newTestInterpreter(client)

	p := requirePlan(t, interpret(t, it, "open youtube", nil))
	assert.Equal(t, "open_site", p.Action)
	assert.Equal(t, 1, client.calls)
}

func TestClassifiers_Order(t *testing.T) {
	var names []string
	for _, c := range Classifiers() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{
		"scroll", "click_result", "open_site", "update_flight_dates", "search_flights",
		"flight_clarification", "search_hotels", "search_travel", "search_content",
		"open_site_mention", "ambiguous",
	}, names)

	c := Classifiers()
	c[0] = Classifier{Name: "mutated"}
	assert.Equal(t, "scroll", Classifiers()[0].Name)
}

func TestKnownSiteWithoutVerbOpensSite(t *testing.T) {
	it := newTestInterpreter(nil)
	for _, site := range []string{"youtube", "netflix", "skyscanner", "the guardian"} {
		p := requirePlan(t, interpret(t, it, site, nil))
		assert.Equal(t, "open_site", p.Action, site)
		assert.GreaterOrEqual(t, p.Confidence, 0.6)
		assert.LessOrEqual(t, p.Confidence, 0.65)
	}
}
