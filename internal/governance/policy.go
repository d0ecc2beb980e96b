// Package governance vets execution steps before they reach the browser.
package governance

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rahul/vcaa/internal/schema"
	"github.com/rahul/vcaa/pkg/config"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request is one execution step to be evaluated.
type Request struct {
	TraceID    string
	StepID     string
	ActionType string
	Value      string
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
	StepID string
}

// PolicyEngine evaluates execution steps against a set of rules.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// DefaultPolicyEngine denies listed step action types and navigations to
// URLs matching any denied pattern.
type DefaultPolicyEngine struct {
	DeniedActions map[string]bool
	DeniedURLs    []*regexp.Regexp
}

func NewDefaultPolicyEngine() *DefaultPolicyEngine {
	return &DefaultPolicyEngine{
		DeniedActions: make(map[string]bool),
		DeniedURLs:    make([]*regexp.Regexp, 0),
	}
}

// FromConfig builds an engine from the policy section of the configuration.
func FromConfig(cfg config.PolicyConfig) (*DefaultPolicyEngine, error) {
	e := NewDefaultPolicyEngine()
	for _, a := range cfg.DenyActions {
		e.DenyAction(a)
	}
	for _, p := range cfg.DenyURLPatterns {
		if err := e.DenyURL(p); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *DefaultPolicyEngine) DenyAction(actionType string) {
	e.DeniedActions[strings.ToLower(strings.TrimSpace(actionType))] = true
}

func (e *DefaultPolicyEngine) DenyURL(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid url pattern %q: %w", pattern, err)
	}
	e.DeniedURLs = append(e.DeniedURLs, re)
	return nil
}

func (e *DefaultPolicyEngine) Evaluate(_ context.Context, req Request) (Result, error) {
	if e.DeniedActions[strings.ToLower(req.ActionType)] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("Action '%s' is restricted by system policy", req.ActionType),
			StepID: req.StepID,
		}, nil
	}

	if req.ActionType == schema.StepNavigate {
		for _, re := range e.DeniedURLs {
			if re.MatchString(req.Value) {
				return Result{
					Effect: EffectDeny,
					Reason: fmt.Sprintf("Navigation target matches restricted pattern: %s", re.String()),
					StepID: req.StepID,
				}, nil
			}
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: "Approved by default policy",
		StepID: req.StepID,
	}, nil
}

// EvaluatePlan runs every step of an execution plan through the engine and
// returns the first denial. Messages that are not execution plans are
// allowed as they are.
func EvaluatePlan(ctx context.Context, engine PolicyEngine, msg schema.Message) (Result, error) {
	allow := Result{Effect: EffectAllow, Reason: "Approved by default policy"}
	if engine == nil {
		return allow, nil
	}
	var reqs []Request
	switch m := msg.(type) {
	case *schema.ExecutionPlan:
		for _, s := range m.Steps {
			reqs = append(reqs, Request{TraceID: m.TraceID, StepID: s.StepID, ActionType: s.ActionType, Value: s.Value})
		}
	case *schema.AXExecutionPlan:
		for _, s := range m.Steps {
			reqs = append(reqs, Request{TraceID: m.TraceID, StepID: s.StepID, ActionType: s.ActionType, Value: s.Value})
		}
	default:
		return allow, nil
	}
	for _, req := range reqs {
		res, err := engine.Evaluate(ctx, req)
		if err != nil {
			return Result{}, err
		}
		if res.Effect == EffectDeny {
			return res, nil
		}
	}
	return allow, nil
}
