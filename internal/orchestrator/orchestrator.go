// Package orchestrator threads one pipeline request through interpretation
// and planning, and hands the result back to whoever asked.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rahul/vcaa/internal/governance"
	"github.com/rahul/vcaa/internal/observability"
	"github.com/rahul/vcaa/internal/schema"
	"github.com/rahul/vcaa/internal/store"
	"go.uber.org/zap"
)

// Messenger delivers terminal results to the original sender.
type Messenger interface {
	Send(ctx context.Context, recipient string, msg schema.Message) error
}

// MessengerFunc adapts a function to Messenger.
type MessengerFunc func(ctx context.Context, recipient string, msg schema.Message) error

func (f MessengerFunc) Send(ctx context.Context, recipient string, msg schema.Message) error {
	return f(ctx, recipient, msg)
}

type Interpreter interface {
	Interpret(ctx context.Context, msg schema.TranscriptMessage) schema.Message
}

type Planner interface {
	PlanAX(ctx context.Context, req schema.AXNavigationRequest) schema.Message
}

// Options tunes an Orchestrator. Zero values take the defaults.
type Options struct {
	JanitorInterval time.Duration
	Policy          governance.PolicyEngine
	Events          *observability.EventLogger
	Logger          *zap.Logger
}

type Orchestrator struct {
	sessions    store.Store
	interpreter Interpreter
	planner     Planner
	messenger   Messenger
	policy      governance.PolicyEngine
	interval    time.Duration
	now         func() time.Time
	events      *observability.EventLogger
	logger      *zap.Logger
}

func New(sessions store.Store, interp Interpreter, planner Planner, messenger Messenger, opts Options) *Orchestrator {
	interval := opts.JanitorInterval
	if interval <= 0 {
		interval = time.Minute
	}
	return &Orchestrator{
		sessions:    sessions,
		interpreter: interp,
		planner:     planner,
		messenger:   messenger,
		policy:      opts.Policy,
		interval:    interval,
		now:         time.Now,
		events:      opts.Events,
		logger:      observability.OrNop(opts.Logger),
	}
}

// Deliver routes an arriving message by its type. Pipeline requests name
// their sender in metadata["sender"].
func (o *Orchestrator) Deliver(ctx context.Context, msg schema.Message) error {
	switch m := msg.(type) {
	case *schema.PipelineRequest:
		sender, _ := m.Metadata["sender"].(string)
		return o.HandlePipelineRequest(ctx, sender, m)
	case *schema.ActionPlan:
		return o.HandleActionPlan(ctx, m)
	case *schema.ExecutionPlan, *schema.AXExecutionPlan, *schema.ClarificationRequest:
		return o.HandleResult(ctx, msg)
	case nil:
		return errors.New("orchestrator: nil message")
	default:
		return fmt.Errorf("orchestrator: cannot route %s", msg.SchemaVersion())
	}
}

// HandlePipelineRequest opens a session for the request and runs the
// interpreter on its transcript. A missing trace id is generated.
func (o *Orchestrator) HandlePipelineRequest(ctx context.Context, sender string, req *schema.PipelineRequest) error {
	o.prune(ctx)
	traceID := req.TraceID
	if traceID == "" {
		traceID = schema.NewID()
		req.TraceID = traceID
	}
	log := o.logger.With(zap.String("trace_id", traceID))

	if err := o.sessions.Put(ctx, store.Session{
		TraceID:   traceID,
		Sender:    sender,
		Snapshot:  req.AXTree,
		CreatedAt: o.now(),
	}); err != nil {
		return fmt.Errorf("failed to open session %s: %w", traceID, err)
	}
	log.Info("Session opened", zap.String("sender", sender), zap.Int("elements", len(req.AXTree.Elements)))
	o.events.Log(observability.Event{
		Type:    observability.EventTypeSession,
		TraceID: traceID,
		Data:    map[string]any{"state": "opened", "sender": sender},
	})

	observability.SetStatus(observability.StageInterpreting, traceID)
	defer observability.SetStatus(observability.StageIdle, "")

	out := o.interpreter.Interpret(ctx, schema.TranscriptMessage{
		Version:    schema.VersionTranscript,
		ID:         schema.NewID(),
		TraceID:    traceID,
		Transcript: req.Transcript,
		Metadata:   transcriptMetadata(req),
	})
	return o.Deliver(ctx, out)
}

func transcriptMetadata(req *schema.PipelineRequest) map[string]any {
	meta := make(map[string]any, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		if k == "sender" {
			continue
		}
		meta[k] = v
	}
	if _, ok := meta["page_url"]; !ok && req.AXTree.PageURL != "" {
		meta["page_url"] = req.AXTree.PageURL
	}
	return meta
}

// HandleActionPlan pairs the plan with the snapshot stored for its trace and
// runs the planner. A plan without a live session is dropped.
func (o *Orchestrator) HandleActionPlan(ctx context.Context, plan *schema.ActionPlan) error {
	o.prune(ctx)
	log := o.logger.With(zap.String("trace_id", plan.TraceID))

	sess, ok, err := o.sessions.Get(ctx, plan.TraceID)
	if err != nil {
		log.Warn("Session lookup failed, dropping action plan", zap.Error(err))
		return nil
	}
	if !ok {
		observability.RecordOrphan("action_plan")
		log.Warn("No session for action plan, dropping", zap.String("action", plan.Action))
		return nil
	}

	observability.SetStatus(observability.StagePlanning, plan.TraceID)
	out := o.planner.PlanAX(ctx, schema.AXNavigationRequest{
		Version:    schema.VersionNavigator,
		ID:         schema.NewID(),
		TraceID:    plan.TraceID,
		ActionPlan: *plan,
		AXTree:     sess.Snapshot,
	})
	return o.Deliver(ctx, out)
}

// HandleResult closes the session of a terminal message and sends the result
// to the original sender. Execution plans pass the policy first; a denied
// plan reaches the sender as an unsupported_action clarification.
func (o *Orchestrator) HandleResult(ctx context.Context, msg schema.Message) error {
	o.prune(ctx)
	traceID := msg.Trace()
	log := o.logger.With(zap.String("trace_id", traceID))

	sess, ok, err := o.sessions.Take(ctx, traceID)
	if err != nil {
		log.Warn("Session lookup failed, dropping result", zap.Error(err))
		return nil
	}
	if !ok {
		observability.RecordOrphan("result")
		log.Warn("No session for result, dropping", zap.String("schema_version", msg.SchemaVersion()))
		return nil
	}

	msg = o.vet(ctx, msg)
	log.Info("Session closed", zap.String("sender", sess.Sender), zap.String("result", msg.SchemaVersion()))
	o.events.Log(observability.Event{
		Type:    observability.EventTypeSession,
		TraceID: traceID,
		Data:    map[string]any{"state": "closed", "result": msg.SchemaVersion()},
	})
	if o.messenger == nil {
		return nil
	}
	if err := o.messenger.Send(ctx, sess.Sender, msg); err != nil {
		return fmt.Errorf("failed to deliver result for %s: %w", traceID, err)
	}
	return nil
}

func (o *Orchestrator) vet(ctx context.Context, msg schema.Message) schema.Message {
	if o.policy == nil {
		return msg
	}
	res, err := governance.EvaluatePlan(ctx, o.policy, msg)
	if err != nil {
		o.logger.Warn("Policy evaluation failed", zap.String("trace_id", msg.Trace()), zap.Error(err))
		return msg
	}
	o.events.LogPolicy(msg.Trace(), string(res.Effect), res.Reason)
	if res.Effect != governance.EffectDeny {
		return msg
	}
	observability.RecordClarification("policy", string(schema.ReasonUnsupportedAction))
	return schema.NewClarification(msg.Trace(), "I'm not allowed to do that on this page.", schema.ReasonUnsupportedAction)
}

func (o *Orchestrator) prune(ctx context.Context) {
	n, err := o.sessions.Prune(ctx, o.now())
	if err != nil {
		o.logger.Warn("Session prune failed", zap.Error(err))
		return
	}
	if n > 0 {
		observability.RecordPruned(n)
		o.logger.Warn("Expired sessions pruned", zap.Int("count", n))
	}
}

// Sessions reports how many requests are in flight.
func (o *Orchestrator) Sessions(ctx context.Context) int {
	n, err := o.sessions.Len(ctx)
	if err != nil {
		return 0
	}
	return n
}

// Run prunes expired sessions on every tick until ctx is done.
func (o *Orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	o.logger.Info("Session janitor started", zap.Duration("interval", o.interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.prune(ctx)
		}
	}
}
