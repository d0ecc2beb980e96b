package interpreter

import (
	"context"
	"regexp"
	"strings"

	"github.com/rahul/vcaa/internal/entities"
	"github.com/rahul/vcaa/internal/llm"
	"github.com/rahul/vcaa/internal/observability"
	"github.com/rahul/vcaa/internal/schema"
	"go.uber.org/zap"
)

var (
	historyBackRe = regexp.MustCompile(`^(?:please\s+)?(?:go\s+back|back|navigate\s+back|previous\s+page|go\s+to\s+the\s+previous\s+page)(?:\s+please)?[.!]?$`)
	bareScrollRe  = regexp.MustCompile(`^(?:please\s+)?scroll(?:\s+the\s+page)?(?:\s+(up|down))?(?:\s+the\s+page)?(?:\s+please)?[.!]?$`)
)

// Interpreter turns an utterance into an ActionPlan or a ClarificationRequest.
type Interpreter struct {
	client    llm.Client
	extractor entities.Extractor
	events    *observability.EventLogger
	logger    *zap.Logger
}

// New builds an Interpreter. A nil or unconfigured client runs on heuristics
// alone.
func New(client llm.Client, extractor entities.Extractor, events *observability.EventLogger, logger *zap.Logger) *Interpreter {
	return &Interpreter{
		client:    client,
		extractor: extractor,
		events:    events,
		logger:    observability.OrNop(logger),
	}
}

// Interpret never returns nil. Provider failures degrade to the heuristic
// chain.
func (it *Interpreter) Interpret(ctx context.Context, msg schema.TranscriptMessage) schema.Message {
	traceID := msg.TraceID
	text := strings.TrimSpace(msg.Transcript)
	log := it.logger.With(zap.String("trace_id", traceID))

	if p := fastPath(traceID, text, it.extractor); p != nil {
		log.Info("Interpreter used fast path", zap.String("action", p.Action))
		return it.finish(traceID, "fast_path", p)
	}

	processing := withClarifications(text, msg.Metadata)
	ents := it.extractor.Extract(processing)
	named := ents.Has("site") || ents.Has("url")
	mergePageContext(ents, msg.Metadata, named)

	var held *schema.ClarificationRequest
	if it.client != nil && it.client.Configured() {
		remote, err := it.client.InterpretTranscript(ctx, schema.TranscriptMessage{
			Version:    schema.VersionTranscript,
			ID:         msg.ID,
			TraceID:    traceID,
			Transcript: processing,
			Metadata:   msg.Metadata,
		})
		switch m := remote.(type) {
		case *schema.ActionPlan:
			augment(m, ents)
			if m.TraceID == "" {
				m.TraceID = traceID
			}
			log.Info("Interpreter used LLM parse", zap.String("action", m.Action))
			return it.finish(traceID, "llm", m)
		case *schema.ClarificationRequest:
			held = m
		default:
			log.Info("Interpreter LLM unavailable, falling back to heuristics", zap.Error(err))
		}
	}

	u := Utterance{
		TraceID:   traceID,
		Text:      processing,
		Lower:     strings.ToLower(processing),
		Entities:  ents,
		NamedSite: named,
	}
	for _, c := range chain {
		if !c.Match(u) {
			continue
		}
		out := c.Build(u)
		if _, isPlan := out.(*schema.ActionPlan); !isPlan && held != nil {
			log.Info("Interpreter returned LLM clarification", zap.String("heuristic", c.Name))
			return it.finish(traceID, "llm", held)
		}
		log.Info("Interpreter used heuristics", zap.String("classifier", c.Name))
		return it.finish(traceID, "heuristic", out)
	}
	// Unreachable: the chain ends with a catch-all.
	return it.finish(traceID, "heuristic", buildAmbiguous(u))
}

func (it *Interpreter) finish(traceID, source string, out schema.Message) schema.Message {
	data := map[string]any{"source": source}
	switch m := out.(type) {
	case *schema.ActionPlan:
		observability.RecordInterpretation(source, "action_plan")
		data["action"] = m.Action
		data["confidence"] = m.Confidence
		it.events.Log(observability.Event{Type: observability.EventTypeInterpretation, TraceID: traceID, Data: data})
	case *schema.ClarificationRequest:
		observability.RecordInterpretation(source, "clarification")
		observability.RecordClarification("interpreter", string(m.Reason))
		data["reason"] = string(m.Reason)
		data["question"] = m.Question
		it.events.Log(observability.Event{Type: observability.EventTypeClarification, TraceID: traceID, Data: data})
	}
	return out
}

func fastPath(traceID, text string, x entities.Extractor) *schema.ActionPlan {
	lower := strings.ToLower(text)
	if historyBackRe.MatchString(lower) {
		return schema.NewActionPlan(traceID, "history_back", x.Extract(text), 0.9)
	}
	if m := bareScrollRe.FindStringSubmatch(lower); m != nil {
		dir := m[1]
		if dir == "" {
			dir = "down"
		}
		ents := x.Extract(text)
		ents["scroll_direction"] = dir
		p := schema.NewActionPlan(traceID, "scroll", ents, 0.75)
		p.Target = "page"
		p.Value = dir
		return p
	}
	return nil
}

// withClarifications appends earlier clarification answers so that a reply
// like "London" completes the original request.
func withClarifications(text string, meta map[string]any) string {
	parts := []string{text}
	if s, ok := meta["clarification_response"].(string); ok && strings.TrimSpace(s) != "" {
		parts = append(parts, strings.TrimSpace(s))
	}
	if history, ok := meta["clarification_history"].([]any); ok {
		for _, h := range history {
			entry, ok := h.(map[string]any)
			if !ok {
				continue
			}
			if a, ok := entry["answer"].(string); ok && strings.TrimSpace(a) != "" {
				parts = append(parts, strings.TrimSpace(a))
			}
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// mergePageContext records the page the user is on. Its host becomes the
// site only when the utterance named none.
func mergePageContext(ents schema.Entities, meta map[string]any, named bool) {
	pageURL, _ := meta["page_url"].(string)
	if pageURL != "" {
		ents.SetIfAbsent("page_url", pageURL)
	}
	if named {
		return
	}
	site := entities.HostSite(pageURL)
	for _, key := range []string{"page_host", "host", "site"} {
		if site != "" {
			break
		}
		if v, ok := meta[key].(string); ok {
			site = entities.HostSite(v)
		}
	}
	if site != "" {
		ents["site"] = site
	}
}

func augment(p *schema.ActionPlan, local schema.Entities) {
	if p.Entities == nil {
		p.Entities = schema.Entities{}
	}
	for k, v := range local {
		p.Entities.SetIfAbsent(k, v)
	}
	if p.Action == "search_content" && p.Entities.Has("site") && !p.Entities.Has("url") {
		if u := entities.SiteURL(p.Entities.String("site")); u != "" {
			p.Entities["url"] = u
		}
	}
}
