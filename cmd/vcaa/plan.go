package main

import (
	"context"
	"errors"
	"strings"

	"github.com/rahul/vcaa/internal/governance"
	"github.com/rahul/vcaa/internal/observability"
	"github.com/rahul/vcaa/internal/orchestrator"
	"github.com/rahul/vcaa/internal/schema"
	"github.com/rahul/vcaa/internal/snapshot"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newPlanCommand(a *app) *cobra.Command {
	var (
		snapshotPath string
		dom          bool
	)
	cmd := &cobra.Command{
		Use:   "plan <transcript>",
		Short: "Plan browser steps for an utterance against a page snapshot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transcript := strings.Join(args, " ")
			if dom {
				return a.planDOM(cmd.Context(), transcript, snapshotPath)
			}
			return a.planAX(cmd.Context(), transcript, snapshotPath)
		},
	}
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "snapshot JSON file (AX tree, or DOM map with --dom)")
	cmd.Flags().BoolVar(&dom, "dom", false, "treat the snapshot as a DOM map")
	_ = cmd.MarkFlagRequired("snapshot")
	return cmd
}

// planAX runs the full orchestrated pipeline; the result arrives through the
// messenger.
func (a *app) planAX(ctx context.Context, transcript, path string) error {
	tree, err := snapshot.LoadAXTree(path)
	if err != nil {
		return err
	}
	client, err := a.client()
	if err != nil {
		return err
	}
	policy, err := a.policy()
	if err != nil {
		return err
	}
	sessions, err := a.sessions()
	if err != nil {
		return err
	}
	defer sessions.Close()

	var delivered schema.Message
	messenger := orchestrator.MessengerFunc(func(_ context.Context, _ string, msg schema.Message) error {
		delivered = msg
		return a.printJSON(msg)
	})
	o := orchestrator.New(sessions, a.interpreter(client), a.planner(client), messenger, orchestrator.Options{
		JanitorInterval: a.cfg.Orchestrator.JanitorInterval,
		Policy:          policy,
		Events:          a.events,
		Logger:          a.logger.Named("orchestrator"),
	})
	err = o.HandlePipelineRequest(ctx, "cli", &schema.PipelineRequest{
		Version:    schema.VersionPipeline,
		ID:         schema.NewID(),
		Transcript: transcript,
		AXTree:     tree,
	})
	if err != nil {
		return err
	}
	if delivered == nil {
		return errors.New("pipeline produced no result")
	}
	return nil
}

// planDOM interprets the utterance and plans it over a DOM map.
func (a *app) planDOM(ctx context.Context, transcript, path string) error {
	m, err := snapshot.LoadDOMMap(path)
	if err != nil {
		return err
	}
	client, err := a.client()
	if err != nil {
		return err
	}
	policy, err := a.policy()
	if err != nil {
		return err
	}

	traceID := schema.NewID()
	meta := map[string]any{}
	if m.PageURL != "" {
		meta["page_url"] = m.PageURL
	}
	out := a.interpreter(client).Interpret(ctx, schema.TranscriptMessage{
		Version:    schema.VersionTranscript,
		ID:         schema.NewID(),
		TraceID:    traceID,
		Transcript: transcript,
		Metadata:   meta,
	})
	plan, ok := out.(*schema.ActionPlan)
	if !ok {
		return a.printJSON(out)
	}

	result := a.planner(client).PlanDOM(ctx, schema.NavigationRequest{
		Version:    schema.VersionNavigator,
		ID:         schema.NewID(),
		TraceID:    traceID,
		ActionPlan: *plan,
		DOMMap:     m,
	})
	verdict, err := governance.EvaluatePlan(ctx, policy, result)
	if err != nil {
		return err
	}
	a.events.LogPolicy(traceID, string(verdict.Effect), verdict.Reason)
	if verdict.Effect == governance.EffectDeny {
		a.logger.Warn("Plan denied by policy", zap.String("trace_id", traceID), zap.String("reason", verdict.Reason))
		observability.RecordClarification("policy", string(schema.ReasonUnsupportedAction))
		result = schema.NewClarification(traceID, "I'm not allowed to do that on this page.", schema.ReasonUnsupportedAction)
	}
	return a.printJSON(result)
}
