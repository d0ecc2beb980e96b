// Package navigator turns an ActionPlan and a page snapshot into ordered
// execution steps, or a clarification when no confident step exists.
package navigator

import (
	"strings"

	"github.com/rahul/vcaa/internal/llm"
	"github.com/rahul/vcaa/internal/observability"
	"github.com/rahul/vcaa/internal/schema"
	"github.com/rahul/vcaa/pkg/config"
	"go.uber.org/zap"
)

// Minimum score for a DOM field binding before the keyword fallback runs.
const fieldThreshold = 0.35

// Planner builds execution plans. The zero thresholds of an empty
// config.PlannerConfig are replaced by the defaults.
type Planner struct {
	client     llm.Client
	thresholds config.PlannerConfig
	events     *observability.EventLogger
	logger     *zap.Logger
}

// New builds a Planner. client is only consulted for DOM snapshots and may be
// nil.
func New(client llm.Client, thresholds config.PlannerConfig, events *observability.EventLogger, logger *zap.Logger) *Planner {
	def := config.Default().Planner
	if thresholds.LatestThreshold <= 0 {
		thresholds.LatestThreshold = def.LatestThreshold
	}
	if thresholds.PositionThreshold <= 0 {
		thresholds.PositionThreshold = def.PositionThreshold
	}
	if thresholds.OptionThreshold <= 0 {
		thresholds.OptionThreshold = def.OptionThreshold
	}
	return &Planner{
		client:     client,
		thresholds: thresholds,
		events:     events,
		logger:     observability.OrNop(logger),
	}
}

func normalizeAction(action string) string {
	return strings.ToLower(strings.TrimSpace(action))
}

func unsupported(traceID, action string) *schema.ClarificationRequest {
	return schema.NewClarification(traceID, "I don't know how to do \""+action+"\" on this page yet.", schema.ReasonUnsupportedAction)
}

func noCandidates(traceID string) *schema.ClarificationRequest {
	return schema.NewClarification(traceID, "I could not find elements to act on.", schema.ReasonNoCandidates)
}

// wantsDateRewrite reports whether a flight search should update the dates in
// the URL of the result page already open instead of refilling the form.
func wantsDateRewrite(plan schema.ActionPlan, pageURL string) bool {
	return (plan.Entities.Has("date_start") || plan.Entities.Has("date")) && HasDateSegments(pageURL)
}

func stepCount(msg schema.Message) int {
	switch m := msg.(type) {
	case *schema.AXExecutionPlan:
		return len(m.Steps)
	case *schema.ExecutionPlan:
		return len(m.Steps)
	}
	return 0
}

func (p *Planner) finish(snapshot, action string, msg schema.Message) schema.Message {
	log := p.logger.With(zap.String("trace_id", msg.Trace()))
	if c, ok := msg.(*schema.ClarificationRequest); ok {
		observability.RecordClarification("navigator", string(c.Reason))
		log.Info("Navigator needs clarification", zap.String("action", action), zap.String("reason", string(c.Reason)))
		p.events.Log(observability.Event{
			Type:    observability.EventTypeClarification,
			TraceID: c.TraceID,
			Data:    map[string]any{"stage": "navigator", "action": action, "reason": string(c.Reason)},
		})
		return msg
	}

	steps := stepCount(msg)
	observability.RecordPlan(snapshot, action)
	log.Info("Navigator built plan", zap.String("snapshot", snapshot), zap.String("action", action), zap.Int("steps", steps))
	p.events.Log(observability.Event{
		Type:    observability.EventTypePlan,
		TraceID: msg.Trace(),
		Data:    map[string]any{"snapshot": snapshot, "action": action, "steps": steps},
	})
	return msg
}
