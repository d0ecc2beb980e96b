package navigator

import (
	"context"

	"github.com/rahul/vcaa/internal/matcher"
	"github.com/rahul/vcaa/internal/schema"
	"go.uber.org/zap"
)

type domRequest struct {
	plan schema.ActionPlan
	dom  schema.DOMMap
}

type domBuilder func(p *Planner, r domRequest) schema.Message

var domBuilders = map[string]domBuilder{}

func init() {
	register := func(b domBuilder, actions ...string) {
		for _, a := range actions {
			domBuilders[a] = b
		}
	}
	register(domNavigate, "open_site", "navigate")
	register(domHistoryBack, "history_back", "back", "go_back")
	register(domScroll, "scroll", "scroll_page", "scroll_down", "scroll_up")
	register(domSearchContent, "search_content", "search", "search_site")
	register(domClickResult, "click_result", "click_item", "click")
	register(domDestinationSearch, "search_hotels", "search_stays", "search_travel")
	register(domFlightSearch, "search_flights", "flight_search")
	register(domDateUpdate, "update_flight_dates", "update_dates")
}

func domStep(id, actionType, elementID, value string, timeoutMS int, confidence float64) schema.ExecutionStep {
	retries := 0
	if actionType == schema.StepInput {
		retries = 1
	}
	return schema.ExecutionStep{
		StepID:     id,
		ActionType: actionType,
		ElementID:  elementID,
		Value:      value,
		TimeoutMS:  timeoutMS,
		Retries:    retries,
		Confidence: confidence,
	}
}

func domPlan(traceID string, steps ...schema.ExecutionStep) *schema.ExecutionPlan {
	return schema.NewExecutionPlan(traceID, steps)
}

// PlanDOM builds an ExecutionPlan from a DOM snapshot. A configured model is
// asked first; a plan it returns is used only when every step addresses an
// element of the snapshot. Its clarification is kept back in case the
// heuristic builders find nothing either.
func (p *Planner) PlanDOM(ctx context.Context, req schema.NavigationRequest) schema.Message {
	plan := req.ActionPlan
	if plan.Entities == nil {
		plan.Entities = schema.Entities{}
	}
	traceID := firstNonEmpty(req.TraceID, plan.TraceID)
	plan.TraceID = traceID
	req.ActionPlan = plan
	req.TraceID = traceID
	action := normalizeAction(plan.Action)
	log := p.logger.With(zap.String("trace_id", traceID))

	var held *schema.ClarificationRequest
	if p.client != nil && p.client.Configured() {
		remote, err := p.client.Navigate(ctx, req)
		switch m := remote.(type) {
		case *schema.ExecutionPlan:
			if len(m.Steps) > 0 && addressesSnapshot(m, req.DOMMap) {
				m.TraceID = traceID
				log.Info("Navigator used LLM plan", zap.Int("steps", len(m.Steps)))
				return p.finish("dom", action, m)
			}
			log.Warn("Navigator discarded LLM plan with unknown elements")
		case *schema.ClarificationRequest:
			held = m
		default:
			log.Info("Navigator LLM unavailable, using heuristics", zap.Error(err))
		}
	}

	r := domRequest{plan: plan, dom: req.DOMMap}
	build, ok := domBuilders[action]
	if !ok {
		build = domGeneric
	}
	result := build(p, r)
	if _, isClar := result.(*schema.ClarificationRequest); isClar && held != nil {
		held.TraceID = traceID
		result = held
	}
	return p.finish("dom", action, result)
}

func addressesSnapshot(plan *schema.ExecutionPlan, dom schema.DOMMap) bool {
	ids := matcher.NewSet()
	for _, el := range dom.Elements {
		ids.Add(el.ElementID)
	}
	for _, s := range plan.Steps {
		if s.ElementID != "" && !ids.Has(s.ElementID) {
			return false
		}
	}
	return true
}

func domNavigate(_ *Planner, r domRequest) schema.Message {
	target := resolveURL(r.plan)
	if target == "" {
		return schema.NewClarification(r.plan.TraceID, "Which site should I open?", schema.ReasonMissingSite)
	}
	return domPlan(r.plan.TraceID, domStep("s_navigate", schema.StepNavigate, "", target, 6000, 0.9))
}

func domHistoryBack(_ *Planner, r domRequest) schema.Message {
	return domPlan(r.plan.TraceID, domStep("s_history_back", schema.StepHistoryBack, "", "back", 3000, 0.95))
}

func domScroll(_ *Planner, r domRequest) schema.Message {
	dir := firstNonEmpty(r.plan.Entities.String("scroll_direction"), r.plan.Value, "down")
	return domPlan(r.plan.TraceID, domStep("s_scroll", schema.StepScroll, "", dir, 3000, 0.7))
}

func domDateUpdate(_ *Planner, r domRequest) schema.Message {
	target, clar := flightDateURL(r.plan, r.dom.PageURL)
	if clar != nil {
		return clar
	}
	step := domStep("s_update_flight_dates", schema.StepNavigate, "", target, 6000, 0.9)
	step.Notes = "Navigate directly with updated flight dates in URL"
	return domPlan(r.plan.TraceID, step)
}

func domSearchContent(p *Planner, r domRequest) schema.Message {
	e := r.plan.Entities
	query := firstNonEmpty(r.plan.Value, e.String("query"))
	if query == "" {
		return schema.NewClarification(r.plan.TraceID, "What should I search for?", schema.ReasonMissingQuery)
	}
	if offSite(r.plan, r.dom.PageURL) {
		return domNavigate(p, r)
	}
	site := firstNonEmpty(e.String("site"), r.plan.Target)
	keywords := []string{query, site, r.plan.Target}

	if e.Bool("latest") {
		if c := matcher.PickLatestClickable(r.dom, keywords); c.Found() && c.Score >= p.thresholds.LatestThreshold {
			return domPlan(r.plan.TraceID,
				domStep("s_scroll_result", schema.StepScroll, "", "down", 3000, 0.6),
				domStep("s_click_result", schema.StepClick, c.Element.ElementID, "", 4000, max(0.55, c.Score)))
		}
	}
	if e.Has("position") {
		if c := matcher.PickNthClickable(r.dom, matcher.PositionFrom(r.plan), keywords); c.Found() && c.Score >= p.thresholds.PositionThreshold {
			return domPlan(r.plan.TraceID,
				domStep("s_scroll_result", schema.StepScroll, "", "down", 3000, 0.6),
				domStep("s_click_result", schema.StepClick, c.Element.ElementID, "", 4000, max(0.5, c.Score)))
		}
	}

	input, button := matcher.FindSearchElements(r.dom, site)
	if !input.Found() || input.Score < fieldThreshold {
		return schema.NewClarification(r.plan.TraceID, "Which search box should I use?", schema.ReasonMissingSearchBox)
	}
	steps := []schema.ExecutionStep{
		domStep("s_search_input", schema.StepInput, input.Element.ElementID, query, 5000, input.Score),
	}
	if button.Found() {
		steps = append(steps, domStep("s_search_submit", schema.StepClick, button.Element.ElementID, "", 4000, max(0.5, button.Score)))
	}
	return domPlan(r.plan.TraceID, steps...)
}

func domClickResult(_ *Planner, r domRequest) schema.Message {
	e := r.plan.Entities
	keywords := []string{r.plan.Target, e.String("query"), e.String("site")}
	c := matcher.PickNthClickable(r.dom, matcher.PositionFrom(r.plan), keywords)
	if !c.Found() {
		return schema.NewClarification(r.plan.TraceID, "Which item should I click?", schema.ReasonNoClickTarget)
	}
	var steps []schema.ExecutionStep
	if dir := e.String("scroll_direction"); dir != "" {
		steps = append(steps, domStep("s_scroll_for_click", schema.StepScroll, "", dir, 3000, 0.6))
	}
	steps = append(steps, domStep("s_click_target", schema.StepClick, c.Element.ElementID, "", 4000, max(0.5, c.Score)))
	return domPlan(r.plan.TraceID, steps...)
}

// keywordGroup is one logical form field: the words that label it and the
// tags and roles that can hold it.
type keywordGroup struct {
	keywords []string
	tags     matcher.Set
	roles    matcher.Set
}

func (g keywordGroup) pick(dom schema.DOMMap, used matcher.Exclusion) matcher.DOMCandidate {
	return matcher.PickBestElement(dom, g.keywords, g.tags, g.roles, used)
}

var (
	inputTags  = matcher.NewSet("input", "textarea", "select")
	inputRoles = matcher.NewSet("combobox", "textbox")

	destinationGroup = keywordGroup{
		keywords: []string{"destination", "to", "city", "location", "where", "stay", "otel", "konaklama", "varış"},
		tags:     inputTags,
		roles:    inputRoles,
	}
	stayDateGroup = keywordGroup{
		keywords: []string{"date", "check-in", "check out", "when", "tarih", "tarihi", "tarih seç", "giriş", "çıkış"},
		tags:     matcher.NewSet("input", "textarea", "select", "button", "div", "span"),
		roles:    matcher.NewSet("combobox", "textbox", "button"),
	}
	staySubmitGroup = keywordGroup{
		keywords: []string{"search", "find", "go", "ara", "bul", "devam", "apply", "submit", "check availability"},
		tags:     matcher.NewSet("button", "a"),
		roles:    matcher.NewSet("button"),
	}
	originGroup = keywordGroup{
		keywords: []string{"origin", "from", "from city", "from where", "departure", "nereden", "kalkış", "gidiş"},
		tags:     inputTags,
		roles:    inputRoles,
	}
	flightDestinationGroup = keywordGroup{
		keywords: []string{"destination", "to", "arrival", "to city", "nereye", "varış", "varış noktası", "rota"},
		tags:     inputTags,
		roles:    inputRoles,
	}
	flightSubmitGroup = keywordGroup{
		keywords: []string{"search", "find", "go", "ara", "bul", "devam"},
		tags:     matcher.NewSet("button", "a"),
		roles:    matcher.NewSet("button"),
	}
)

// rescue rebinds a weakly matched field to the first element in document
// order whose text names it, scoring it 0.6.
func rescue(dom schema.DOMMap, g keywordGroup, c matcher.DOMCandidate, excl matcher.Exclusion) matcher.DOMCandidate {
	if c.Found() && c.Score >= fieldThreshold {
		return c
	}
	if el, ok := matcher.FindTaggedElementByKeywords(dom, g.keywords, g.tags, excl); ok {
		return matcher.DOMCandidate{Element: el, Score: max(c.Score, 0.6)}
	}
	return c
}

func bound(c matcher.DOMCandidate) bool { return c.Found() && c.Score >= fieldThreshold }

func domDestinationSearch(p *Planner, r domRequest) schema.Message {
	e := r.plan.Entities
	used := matcher.NewSet()

	dest := destinationGroup.pick(r.dom, used)
	if dest.Found() {
		used.Add(dest.Element.ElementID)
	}
	date := stayDateGroup.pick(r.dom, used)
	if date.Found() {
		used.Add(date.Element.ElementID)
	}
	submit := staySubmitGroup.pick(r.dom, used)
	if submit.Found() {
		used.Add(submit.Element.ElementID)
	}

	dest = rescue(r.dom, destinationGroup, dest, nil)
	if !bound(dest) {
		return schema.NewClarification(r.plan.TraceID, "Which field should I use for the destination?", schema.ReasonLowConfidenceTarget)
	}

	destination := e.String("destination")
	option := matcher.FindOptionForValue(r.dom, destination, used)
	if option.Found() {
		used.Add(option.Element.ElementID)
	}
	dateISO := e.First("date", "date_start")
	cell := matcher.FindDOMDateCell(r.dom, dateISO, used)
	if cell.Found() {
		used.Add(cell.Element.ElementID)
	}

	steps := []schema.ExecutionStep{
		domStep("s_destination", schema.StepInput, dest.Element.ElementID, destination, 5000, dest.Score),
	}
	if option.Found() && option.Score >= p.thresholds.OptionThreshold {
		steps = append(steps, domStep("s_destination_option", schema.StepClick, option.Element.ElementID, "", 4000, option.Score))
	}
	switch {
	case cell.Found():
		if date.Found() {
			steps = append(steps, domStep("s_date_open", schema.StepClick, date.Element.ElementID, "", 4000, max(date.Score, 0.5)))
		}
		steps = append(steps, domStep("s_date_pick", schema.StepClick, cell.Element.ElementID, "", 4000, cell.Score))
	case date.Found():
		steps = append(steps, domStep("s_date_input", schema.StepInput, date.Element.ElementID, dateISO, 5000, date.Score))
	}
	if submit.Found() {
		steps = append(steps, domStep("s_search", schema.StepClick, submit.Element.ElementID, "", 4000, submit.Score))
	}
	return domPlan(r.plan.TraceID, steps...)
}

func optionLabel(c matcher.DOMCandidate, fallback string) string {
	return "Use " + firstNonEmpty(c.Element.Text, c.Element.AriaLabel, fallback)
}

func domFlightSearch(p *Planner, r domRequest) schema.Message {
	if wantsDateRewrite(r.plan, r.dom.PageURL) {
		return domDateUpdate(p, r)
	}
	e := r.plan.Entities
	used := matcher.NewSet()

	origin := originGroup.pick(r.dom, used)
	if origin.Found() {
		used.Add(origin.Element.ElementID)
	}
	dest := flightDestinationGroup.pick(r.dom, used)
	if dest.Found() {
		used.Add(dest.Element.ElementID)
	}
	submit := flightSubmitGroup.pick(r.dom, used)
	if submit.Found() {
		used.Add(submit.Element.ElementID)
	}

	if origin.Found() && dest.Found() && origin.Element.ElementID == dest.Element.ElementID {
		dest = matcher.DOMCandidate{}
	}
	origin = rescue(r.dom, originGroup, origin, nil)
	var notOrigin matcher.Exclusion
	if origin.Found() {
		notOrigin = matcher.NewSet(origin.Element.ElementID)
	}
	dest = rescue(r.dom, flightDestinationGroup, dest, notOrigin)

	if !bound(origin) || !bound(dest) {
		clar := schema.NewClarification(r.plan.TraceID, "Which fields should I use for origin and destination?", schema.ReasonLowConfidenceTarget)
		for _, f := range []struct {
			c     matcher.DOMCandidate
			field string
		}{{origin, "origin"}, {dest, "destination"}} {
			if f.c.Found() {
				clar.Options = append(clar.Options, schema.ClarificationOption{
					Label:               optionLabel(f.c, f.field),
					CandidateElementIDs: []string{f.c.Element.ElementID},
				})
			}
		}
		return clar
	}

	originValue, destValue := e.String("origin"), e.String("destination")
	originOption := matcher.FindOptionForValue(r.dom, originValue, used)
	if originOption.Found() {
		used.Add(originOption.Element.ElementID)
	}
	destOption := matcher.FindOptionForValue(r.dom, destValue, used)
	if destOption.Found() {
		used.Add(destOption.Element.ElementID)
	}

	steps := []schema.ExecutionStep{
		domStep("s_origin", schema.StepInput, origin.Element.ElementID, originValue, 5000, origin.Score),
	}
	if originOption.Found() && originOption.Score >= p.thresholds.OptionThreshold {
		steps = append(steps, domStep("s_origin_option", schema.StepClick, originOption.Element.ElementID, "", 4000, originOption.Score))
	}
	steps = append(steps, domStep("s_destination", schema.StepInput, dest.Element.ElementID, destValue, 5000, dest.Score))
	if destOption.Found() && destOption.Score >= p.thresholds.OptionThreshold {
		steps = append(steps, domStep("s_destination_option", schema.StepClick, destOption.Element.ElementID, "", 4000, destOption.Score))
	}
	if submit.Found() {
		steps = append(steps, domStep("s_search", schema.StepClick, submit.Element.ElementID, "", 4000, submit.Score))
	}
	return domPlan(r.plan.TraceID, steps...)
}

// domGeneric serves actions without a dedicated builder by acting on the
// element that best fits the plan's keywords among those the action can
// touch. Actions that touch no known element kind are unsupported.
func domGeneric(_ *Planner, r domRequest) schema.Message {
	filter := matcher.RequiredTagsForAction(r.plan.Action)
	if len(filter.Tags) == 0 && len(filter.Roles) == 0 {
		return unsupported(r.plan.TraceID, r.plan.Action)
	}
	c := matcher.PickBestElement(r.dom, matcher.IntentKeywords(r.plan), filter.Tags, filter.Roles, nil)
	if !bound(c) {
		return noCandidates(r.plan.TraceID)
	}
	if r.plan.Value != "" && (c.Element.Tag == "input" || c.Element.Tag == "textarea" || c.Element.Tag == "select") {
		return domPlan(r.plan.TraceID, domStep("s_generic", schema.StepInput, c.Element.ElementID, r.plan.Value, 5000, c.Score))
	}
	return domPlan(r.plan.TraceID, domStep("s_generic", schema.StepClick, c.Element.ElementID, "", 4000, c.Score))
}
