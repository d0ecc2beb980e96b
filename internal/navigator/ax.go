package navigator

import (
	"context"
	"fmt"

	"github.com/rahul/vcaa/internal/matcher"
	"github.com/rahul/vcaa/internal/schema"
	"go.uber.org/zap"
)

// axRequest is what every AX builder sees.
type axRequest struct {
	plan   schema.ActionPlan
	tree   schema.AXTree
	intent matcher.Intent
}

// An axBuilder returns steps, a clarification, or neither when it found
// nothing to act on; neither sends the request down the fallback ladder.
type axBuilder func(p *Planner, r axRequest) ([]schema.AXExecutionStep, *schema.ClarificationRequest)

var axBuilders = map[string]axBuilder{}

func init() {
	register := func(b axBuilder, actions ...string) {
		for _, a := range actions {
			axBuilders[a] = b
		}
	}
	register(axScroll, "scroll", "scroll_page", "scroll_down", "scroll_up")
	register(axHistoryBack, "history_back", "back", "go_back")
	register(axNavigate, "open_site", "navigate")
	register(axSearchContent, "search_content", "search", "search_site")
	register(axClickResult, "click_result", "click_item", "click")
	register(axSelectDate, "select_date", "pick_date")
	register(axInput, "input", "type", "fill")
	register(axFormSearch, "search_hotels", "search_stays", "search_travel")
	register(axFlightSearch, "search_flights", "flight_search")
	register(axDateUpdate, "update_flight_dates", "update_dates")
}

var axInputRoles = matcher.NewSet("textbox", "combobox", "searchbox")

func axStep(kind, actionType string, el schema.AXElement, value string, confidence float64, notes string) schema.AXExecutionStep {
	return schema.AXExecutionStep{
		StepID:        schema.StepID(kind),
		ActionType:    actionType,
		BackendNodeID: el.BackendNodeID,
		Value:         value,
		TimeoutMS:     schema.DefaultTimeoutMS,
		Confidence:    confidence,
		Notes:         notes,
	}
}

func label(el schema.AXElement, n int, fallback string) string {
	if el.Name == "" {
		return fallback
	}
	return schema.Truncate(el.Name, n)
}

// PlanAX builds an AXExecutionPlan from an accessibility snapshot without
// consulting a model.
func (p *Planner) PlanAX(ctx context.Context, req schema.AXNavigationRequest) schema.Message {
	plan := req.ActionPlan
	if plan.Entities == nil {
		plan.Entities = schema.Entities{}
	}
	traceID := firstNonEmpty(req.TraceID, plan.TraceID)
	plan.TraceID = traceID
	action := normalizeAction(plan.Action)

	r := axRequest{plan: plan, tree: req.AXTree, intent: matcher.BuildIntent(plan)}
	p.logger.Debug("AX navigator processing",
		zap.String("trace_id", traceID),
		zap.String("action", action),
		zap.Any("intent", r.intent))

	build, ok := axBuilders[action]
	if !ok {
		return p.finish("ax", action, unsupported(traceID, plan.Action))
	}
	if ctx.Err() != nil {
		return p.finish("ax", action, noCandidates(traceID))
	}

	steps, clar := build(p, r)
	if clar != nil {
		return p.finish("ax", action, clar)
	}
	if len(steps) == 0 {
		steps = axFallback(r)
	}
	if len(steps) == 0 {
		return p.finish("ax", action, noCandidates(traceID))
	}
	return p.finish("ax", action, schema.NewAXExecutionPlan(traceID, steps))
}

// axFallback is the degradation ladder: the best scoring element at reduced
// confidence, then a crude guess at 0.3.
func axFallback(r axRequest) []schema.AXExecutionStep {
	if c, ok := matcher.Match(r.tree, r.intent); ok {
		return []schema.AXExecutionStep{guessStep("guess", c.Element, r.intent, c.Score*0.8, "Best guess")}
	}
	if el, ok := matcher.PickBestGuess(r.tree, r.intent); ok {
		return []schema.AXExecutionStep{guessStep("fallback", el, r.intent, 0.3, "Fallback")}
	}
	return nil
}

func guessStep(kind string, el schema.AXElement, in matcher.Intent, confidence float64, prefix string) schema.AXExecutionStep {
	actionType, value := schema.StepClick, ""
	if axInputRoles.Has(el.Role) {
		actionType, value = schema.StepInput, in.Value
	}
	return axStep(kind, actionType, el, value, confidence,
		fmt.Sprintf("%s: %s - %s", prefix, el.Role, label(el, 50, "unnamed")))
}

func axScroll(_ *Planner, r axRequest) ([]schema.AXExecutionStep, *schema.ClarificationRequest) {
	dir := firstNonEmpty(r.plan.Entities.String("scroll_direction"), r.plan.Value, "down")
	return []schema.AXExecutionStep{axStep("scroll", schema.StepScroll, schema.AXElement{}, dir, 1.0, "")}, nil
}

func axHistoryBack(_ *Planner, r axRequest) ([]schema.AXExecutionStep, *schema.ClarificationRequest) {
	return []schema.AXExecutionStep{axStep("back", schema.StepHistoryBack, schema.AXElement{}, "", 1.0, "")}, nil
}

func axNavigate(_ *Planner, r axRequest) ([]schema.AXExecutionStep, *schema.ClarificationRequest) {
	target := resolveURL(r.plan)
	if target == "" {
		return nil, schema.NewClarification(r.plan.TraceID, "Which site should I open?", schema.ReasonMissingSite)
	}
	return []schema.AXExecutionStep{axStep("navigate", schema.StepNavigate, schema.AXElement{}, target, 1.0, "")}, nil
}

func axDateUpdate(_ *Planner, r axRequest) ([]schema.AXExecutionStep, *schema.ClarificationRequest) {
	target, clar := flightDateURL(r.plan, r.tree.PageURL)
	if clar != nil {
		return nil, clar
	}
	step := axStep("update_flight_dates", schema.StepNavigate, schema.AXElement{}, target, 0.9,
		"Navigate directly with updated flight dates in URL")
	step.TimeoutMS = 6000
	return []schema.AXExecutionStep{step}, nil
}

// resultKeywords drops the placeholder targets the interpreter emits for
// result clicks.
func resultKeywords(values ...string) []string {
	var out []string
	for _, v := range values {
		switch v {
		case "", "item", "page", "result", "page_url":
			continue
		}
		out = append(out, v)
	}
	return out
}

// pickResult finds a listed result by recency when the user asked for the
// latest one, or by position when positional is set. threshold gates the
// positional pick; zero accepts any.
func (p *Planner) pickResult(r axRequest, keywords []string, positional bool, threshold float64) (schema.AXExecutionStep, bool) {
	if r.plan.Entities.Bool("latest") {
		if el, score, ok := matcher.PickLatestResult(r.tree, keywords); ok && score >= p.thresholds.LatestThreshold {
			return axStep("click_result", schema.StepClick, el, "", max(0.55, score), "Latest result: "+label(el, 50, "unnamed")), true
		}
	}
	if !positional {
		return schema.AXExecutionStep{}, false
	}
	pos := matcher.PositionFrom(r.plan)
	if el, score, ok := matcher.PickNthResult(r.tree, pos, keywords); ok && score >= threshold {
		return axStep("click_result", schema.StepClick, el, "", max(0.5, score),
			fmt.Sprintf("Result #%d: %s", pos, label(el, 50, "unnamed"))), true
	}
	return schema.AXExecutionStep{}, false
}

func axSearchContent(p *Planner, r axRequest) ([]schema.AXExecutionStep, *schema.ClarificationRequest) {
	query := firstNonEmpty(r.plan.Value, r.plan.Entities.String("query"))
	if query == "" {
		return nil, schema.NewClarification(r.plan.TraceID, "What should I search for?", schema.ReasonMissingQuery)
	}
	if offSite(r.plan, r.tree.PageURL) {
		target := resolveURL(r.plan)
		return []schema.AXExecutionStep{axStep("navigate", schema.StepNavigate, schema.AXElement{}, target, 0.9, "Open the site before searching")}, nil
	}
	if r.plan.Entities.Bool("latest") || r.plan.Entities.Has("position") {
		if click, ok := p.pickResult(r, resultKeywords(query, r.plan.Entities.String("site")), r.plan.Entities.Has("position"), p.thresholds.PositionThreshold); ok {
			return []schema.AXExecutionStep{
				axStep("scroll_result", schema.StepScroll, schema.AXElement{}, "down", 0.6, ""),
				click,
			}, nil
		}
	}

	var steps []schema.AXExecutionStep
	excl := matcher.NewSet()
	if input, ok := matcher.FindInputField(r.tree, matcher.FieldSearch, excl); ok {
		excl.Add(input.AXID)
		steps = append(steps, axStep("search_input", schema.StepInput, input, query, 0.8,
			"Search input: "+label(input, 30, "field")))
	}
	if btn, ok := matcher.FindActionButton(r.tree, []string{"search", "go", "find"}, excl); ok {
		steps = append(steps, axStep("search_btn", schema.StepClick, btn, "", 0.7,
			"Search button: "+label(btn, 30, "button")))
	}
	return steps, nil
}

func axClickResult(p *Planner, r axRequest) ([]schema.AXExecutionStep, *schema.ClarificationRequest) {
	keywords := resultKeywords(r.plan.Target, r.plan.Entities.String("query"))
	numbered := r.plan.Entities.Bool("latest") || r.plan.Entities.Has("position") || len(keywords) == 0
	if !numbered {
		if c, ok := matcher.Match(r.tree, r.intent); ok {
			return []schema.AXExecutionStep{axStep("click", schema.StepClick, c.Element, "", c.Score,
				fmt.Sprintf("Clicking %s: %s", c.Element.Role, label(c.Element, 50, "unnamed")))}, nil
		}
	}
	var steps []schema.AXExecutionStep
	if dir := r.plan.Entities.String("scroll_direction"); dir != "" {
		steps = append(steps, axStep("scroll_for_click", schema.StepScroll, schema.AXElement{}, dir, 0.6, ""))
	}
	if click, ok := p.pickResult(r, keywords, true, 0); ok {
		return append(steps, click), nil
	}
	return nil, nil
}

func axSelectDate(_ *Planner, r axRequest) ([]schema.AXExecutionStep, *schema.ClarificationRequest) {
	if r.intent.Date == "" {
		return nil, schema.NewClarification(r.plan.TraceID, "Which date should I pick?", schema.ReasonMissingDate)
	}
	if el, ok := matcher.FindDateCell(r.tree, r.intent.Date, nil); ok {
		return []schema.AXExecutionStep{axStep("date", schema.StepClick, el, "", 0.8, "Selecting date: "+el.Name)}, nil
	}
	return nil, nil
}

func axInput(_ *Planner, r axRequest) ([]schema.AXExecutionStep, *schema.ClarificationRequest) {
	if c, ok := matcher.Match(r.tree, r.intent); ok {
		return []schema.AXExecutionStep{axStep("input", schema.StepInput, c.Element, r.intent.Value, c.Score,
			fmt.Sprintf("Input into %s: %s", c.Element.Role, label(c.Element, 50, "unnamed")))}, nil
	}
	return nil, nil
}

// fieldKeywords are the keyword-only fallback for a form field that the
// description-first finder could not bind.
var fieldKeywords = map[string][]string{
	matcher.FieldOrigin:      {"origin", "from", "leaving", "departure"},
	matcher.FieldDestination: {"destination", "going to", "where to", "arrival", "to"},
}

var fieldRoles = matcher.NewSet("textbox", "combobox", "searchbox")

// bindField resolves one form field, never returning an element already bound
// to another field.
func bindField(tree schema.AXTree, field string, used matcher.Exclusion) (schema.AXElement, bool) {
	el, ok := matcher.FindInputField(tree, field, used)
	if ok && !used.Has(el.AXID) {
		return el, true
	}
	return matcher.FindByKeywords(tree, fieldRoles, fieldKeywords[field], used)
}

// fieldSteps types value into a form field. Comboboxes get input_select so
// the executor confirms the autocomplete suggestion; plain fields get an
// explicit option click when a matching suggestion is already listed.
func (p *Planner) fieldSteps(r axRequest, kind, title string, el schema.AXElement, value string, used matcher.Exclusion) []schema.AXExecutionStep {
	actionType := schema.StepInput
	if el.Role == "combobox" {
		actionType = schema.StepInputSelect
	}
	step := axStep(kind, actionType, el, value, 0.7, fmt.Sprintf("%s input+select: %s", title, label(el, 30, "field")))
	step.TimeoutMS = 5000
	steps := []schema.AXExecutionStep{step}

	if actionType == schema.StepInput {
		if opt, score, ok := matcher.FindAutocompleteOption(r.tree, value, used); ok && score >= p.thresholds.OptionThreshold {
			used.Add(opt.AXID)
			steps = append(steps, axStep(kind+"_option", schema.StepClick, opt, "", score,
				fmt.Sprintf("%s suggestion: %s", title, label(opt, 30, "option"))))
		}
	}
	return steps
}

// dateSteps picks the day in an open calendar, or clicks the control that
// opens it.
func dateSteps(r axRequest, end, iso string, used matcher.Exclusion) []schema.AXExecutionStep {
	kind := "date_start"
	title, opener := "Start date cell", "Open date picker"
	if end == matcher.DateEnd {
		kind = "date_end"
		title, opener = "End date cell", "Open return date picker"
	}
	if cell, ok := matcher.FindDateCell(r.tree, iso, used); ok {
		used.Add(cell.AXID)
		return []schema.AXExecutionStep{axStep(kind, schema.StepClick, cell, "", 0.85, title+": "+label(cell, 30, "cell"))}
	}
	if btn, ok := matcher.FindDateButton(r.tree, end, used); ok {
		used.Add(btn.AXID)
		return []schema.AXExecutionStep{axStep(kind+"_btn", schema.StepClick, btn, "", 0.75, opener+": "+label(btn, 30, "button"))}
	}
	return nil
}

// formSteps fills origin, destination and dates, then submits. Every bound
// element joins used so no two fields share a widget.
func (p *Planner) formSteps(r axRequest) []schema.AXExecutionStep {
	var steps []schema.AXExecutionStep
	used := matcher.NewSet()
	in := r.intent

	if in.Origin != "" {
		if el, ok := bindField(r.tree, matcher.FieldOrigin, used); ok {
			used.Add(el.AXID)
			steps = append(steps, p.fieldSteps(r, "origin", "Origin", el, in.Origin, used)...)
		}
	}
	if in.Location != "" {
		if el, ok := bindField(r.tree, matcher.FieldDestination, used); ok {
			used.Add(el.AXID)
			steps = append(steps, p.fieldSteps(r, "destination", "Destination", el, in.Location, used)...)
		}
	}
	if in.Date != "" {
		steps = append(steps, dateSteps(r, matcher.DateStart, in.Date, used)...)
	}
	if in.DateEnd != "" {
		steps = append(steps, dateSteps(r, matcher.DateEnd, in.DateEnd, used)...)
	}
	if btn, ok := matcher.FindActionButton(r.tree, []string{"search", "find", "go"}, used); ok {
		steps = append(steps, axStep("search", schema.StepClick, btn, "", 0.9, "Search: "+label(btn, 30, "button")))
	}
	return steps
}

func axFormSearch(p *Planner, r axRequest) ([]schema.AXExecutionStep, *schema.ClarificationRequest) {
	return p.formSteps(r), nil
}

func axFlightSearch(p *Planner, r axRequest) ([]schema.AXExecutionStep, *schema.ClarificationRequest) {
	if wantsDateRewrite(r.plan, r.tree.PageURL) {
		return axDateUpdate(p, r)
	}
	return p.formSteps(r), nil
}
