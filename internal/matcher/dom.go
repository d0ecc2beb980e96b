package matcher

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rahul/vcaa/internal/entities"
	"github.com/rahul/vcaa/internal/schema"
)

func cleanKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// KeywordScore is half a point per keyword found in text, capped at 1.
func KeywordScore(text string, keywords []string) float64 {
	if text == "" {
		return 0
	}
	lower := strings.ToLower(text)
	matches := 0
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			matches++
		}
	}
	return min(1.0, float64(matches)/2)
}

func datasetText(el schema.DOMElement) string {
	if len(el.Dataset) == 0 {
		return ""
	}
	keys := make([]string, 0, len(el.Dataset))
	for k := range el.Dataset {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := make([]string, 0, len(keys))
	for _, k := range keys {
		vals = append(vals, fmt.Sprint(el.Dataset[k]))
	}
	return strings.Join(vals, " ")
}

func attrsText(el schema.DOMElement) string {
	if len(el.Attributes) == 0 {
		return ""
	}
	keys := make([]string, 0, len(el.Attributes))
	for k := range el.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := make([]string, 0, len(keys))
	for _, k := range keys {
		vals = append(vals, fmt.Sprint(el.Attributes[k]))
	}
	return strings.Join(vals, " ")
}

func scoreFields(el schema.DOMElement) []string {
	return []string{
		el.Text, el.AriaLabel, el.Placeholder, el.Name, el.Value,
		el.Attr("id"), el.Attr("class"), datasetText(el),
	}
}

// ScoreDOMElement takes the best keyword score over the element's text
// fields and adds its score hint, capped at 1.
func ScoreDOMElement(el schema.DOMElement, keywords []string) float64 {
	base := 0.0
	for _, f := range scoreFields(el) {
		base = max(base, KeywordScore(f, keywords))
	}
	return min(1.0, base+el.ScoreHint)
}

// CombineElementText joins the searchable text of an element, lowercased.
func CombineElementText(el schema.DOMElement) string {
	parts := make([]string, 0, 8)
	for _, f := range scoreFields(el) {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

var (
	nowRe = regexp.MustCompile(`\b(just now|now)\b`)
	agoRe = regexp.MustCompile(`(\d+)\s+(second|minute|hour|day|week|month|year)s?\s+ago`)

	unitDays = map[string]float64{
		"second": 1.0 / 86400,
		"minute": 1.0 / 1440,
		"hour":   1.0 / 24,
		"day":    1,
		"week":   7,
		"month":  30,
		"year":   365,
	}
)

// RecencyScore reads phrases like "3 hours ago" as freshness in [0,1]:
// 1/(1+age in days). "now" scores 1, text without an age scores 0.
func RecencyScore(text string) float64 {
	lower := strings.ToLower(text)
	if lower == "" {
		return 0
	}
	if nowRe.MatchString(lower) {
		return 1
	}
	m := agoRe.FindStringSubmatch(lower)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	days := float64(n) * unitDays[m[2]]
	return max(0, min(1, 1/(1+days)))
}

// DOMCandidate is a DOM element with its score.
type DOMCandidate struct {
	Element schema.DOMElement
	Score   float64
}

// Found reports whether the candidate holds an element.
func (c DOMCandidate) Found() bool { return c.Element.ElementID != "" }

func allowed(el schema.DOMElement, tags, roles Set) bool {
	role := strings.ToLower(el.Role)
	tagOK := len(tags) == 0 || tags.Has(el.Tag)
	roleOK := len(roles) == 0 || roles.Has(role)
	if len(tags) > 0 && len(roles) > 0 {
		return tagOK || roleOK
	}
	return tagOK && roleOK
}

// PickBestElement returns the highest scoring element whose tag or role is
// allowed. An element is accepted when either set admits it; an empty set
// admits everything. Nothing scoring zero is returned.
func PickBestElement(dom schema.DOMMap, keywords []string, tags, roles Set, excl Exclusion) DOMCandidate {
	keywords = cleanKeywords(keywords)
	var best DOMCandidate
	for _, el := range dom.Elements {
		if excl.Has(el.ElementID) || !allowed(el, tags, roles) {
			continue
		}
		if score := ScoreDOMElement(el, keywords); score > best.Score {
			best = DOMCandidate{Element: el, Score: score}
		}
	}
	return best
}

// FindTaggedElementByKeywords returns the first element in document order
// with an allowed tag whose combined text contains any keyword.
func FindTaggedElementByKeywords(dom schema.DOMMap, keywords []string, tags Set, excl Exclusion) (schema.DOMElement, bool) {
	keywords = cleanKeywords(keywords)
	if len(keywords) == 0 {
		return schema.DOMElement{}, false
	}
	for _, el := range dom.Elements {
		if excl.Has(el.ElementID) {
			continue
		}
		if len(tags) > 0 && !tags.Has(el.Tag) {
			continue
		}
		if containsAnyOf(CombineElementText(el), keywords...) {
			return el, true
		}
	}
	return schema.DOMElement{}, false
}

var (
	optionTags  = NewSet("div", "span", "li", "button")
	optionARIA  = NewSet("option", "listitem", "menuitem")
	dateTags    = NewSet("button", "div", "span", "td")
	dateRoles   = NewSet("button", "gridcell", "option")
	searchTags  = NewSet("input", "textarea")
	searchRoles = NewSet("textbox", "search", "combobox")
	submitTags  = NewSet("button", "input")
	submitRoles = NewSet("button")
	listTags    = NewSet("a", "button", "div", "span", "li")
	listRoles   = NewSet("link", "button", "option", "listitem", "menuitem")

	SearchInputKeywords  = []string{"search", "find", "query", "ara", "bul"}
	SearchButtonKeywords = []string{"search", "go", "submit", "ara", "bul", "find"}
)

// FindOptionForValue finds the dropdown suggestion for value. Submit
// controls are never options.
func FindOptionForValue(dom schema.DOMMap, value string, excl Exclusion) DOMCandidate {
	if strings.TrimSpace(value) == "" {
		return DOMCandidate{}
	}
	c := PickBestElement(dom, []string{value}, optionTags, optionARIA, excl)
	if c.Found() && strings.EqualFold(c.Element.Type, "submit") {
		return DOMCandidate{}
	}
	return c
}

// FindDOMDateCell finds the calendar cell for an ISO date. The ISO string in
// the aria label, title, dataset or attributes scores 0.95, a human rendering
// 0.9; otherwise the best scoring date-like element.
func FindDOMDateCell(dom schema.DOMMap, iso string, excl Exclusion) DOMCandidate {
	if iso == "" {
		return DOMCandidate{}
	}
	keywords := entities.DateKeywords(iso)
	lowerISO := strings.ToLower(iso)
	for _, el := range dom.Elements {
		if excl.Has(el.ElementID) {
			continue
		}
		aria := strings.ToLower(el.AriaLabel)
		title := strings.ToLower(el.Attr("title"))
		data := strings.ToLower(datasetText(el))
		attrs := strings.ToLower(attrsText(el))
		if strings.Contains(aria, lowerISO) || strings.Contains(title, lowerISO) ||
			strings.Contains(data, lowerISO) || strings.Contains(attrs, lowerISO) {
			return DOMCandidate{Element: el, Score: 0.95}
		}
		combined := strings.Join([]string{aria, title, data, attrs, strings.ToLower(el.Text)}, " ")
		for _, kw := range keywords {
			if entities.IsDayOnly(kw) {
				continue
			}
			if containsBounded(combined, kw) {
				return DOMCandidate{Element: el, Score: 0.9}
			}
		}
	}
	return PickBestElement(dom, keywords, dateTags, dateRoles, excl)
}

// FindSearchElements finds a search input and, separately, its submit
// button. The site hint joins the input keywords.
func FindSearchElements(dom schema.DOMMap, siteHint string) (input, button DOMCandidate) {
	keywords := append([]string{}, SearchInputKeywords...)
	if siteHint != "" {
		keywords = append(keywords, siteHint)
	}
	input = PickBestElement(dom, keywords, searchTags, searchRoles, nil)
	var excl Exclusion
	if input.Found() {
		excl = NewSet(input.Element.ElementID)
	}
	button = PickBestElement(dom, SearchButtonKeywords, submitTags, submitRoles, excl)
	return input, button
}

func clickable(el schema.DOMElement) bool {
	if !el.Visible || !el.Enabled {
		return false
	}
	return listTags.Has(el.Tag) || listRoles.Has(strings.ToLower(el.Role))
}

func rectY(el schema.DOMElement) float64 {
	if el.BoundingRect == nil {
		return 0
	}
	return el.BoundingRect.Y
}

// PickNthClickable picks the position-th visible clickable element (1-based,
// zero or negative for the last). With keywords the candidates are ordered by
// relevance then vertical position; without them by position alone.
func PickNthClickable(dom schema.DOMMap, position int, keywords []string) DOMCandidate {
	keywords = cleanKeywords(keywords)
	var ranked []DOMCandidate
	for _, el := range dom.Elements {
		if !clickable(el) {
			continue
		}
		score := 0.5
		if len(keywords) > 0 {
			score = KeywordScore(CombineElementText(el), keywords)
		}
		ranked = append(ranked, DOMCandidate{Element: el, Score: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if len(keywords) > 0 && ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return rectY(ranked[i].Element) < rectY(ranked[j].Element)
	})
	idx, ok := nthIndex(position, len(ranked))
	if !ok {
		return DOMCandidate{}
	}
	return ranked[idx]
}

// PickLatestClickable picks the clickable element that reads freshest,
// scoring 0.7 recency plus 0.3 relevance.
func PickLatestClickable(dom schema.DOMMap, keywords []string) DOMCandidate {
	keywords = cleanKeywords(keywords)
	var best DOMCandidate
	for _, el := range dom.Elements {
		if !clickable(el) {
			continue
		}
		text := CombineElementText(el)
		relevance := 0.4
		if len(keywords) > 0 {
			relevance = KeywordScore(text, keywords)
		}
		if score := 0.7*RecencyScore(text) + 0.3*relevance; score > best.Score {
			best = DOMCandidate{Element: el, Score: score}
		}
	}
	return best
}

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

// IntentKeywords collects lowercase keywords from a plan: the action, target
// and value, every entity value, and their alphanumeric tokens. Boolean
// entities contribute their key when true.
func IntentKeywords(plan schema.ActionPlan) []string {
	seen := map[string]bool{}
	var out []string
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			return
		}
		for _, v := range append([]string{s}, tokenRe.FindAllString(s, -1)...) {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	add(plan.Action)
	add(plan.Target)
	add(plan.Value)

	keys := make([]string, 0, len(plan.Entities))
	for k := range plan.Entities {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := plan.Entities[k].(type) {
		case bool:
			if v {
				add(k)
			}
		case nil:
		default:
			add(plan.Entities.String(k))
		}
	}
	return out
}

// TagFilter is the tag and role allowlist for an action.
type TagFilter struct {
	Tags  Set
	Roles Set
}

var (
	clickFilter = TagFilter{
		Tags:  NewSet("a", "button", "div", "span", "li", "input"),
		Roles: NewSet("link", "button", "option", "listitem", "menuitem"),
	}
	formFilter = TagFilter{
		Tags:  NewSet("input", "textarea", "select", "button"),
		Roles: NewSet("textbox", "search", "combobox", "button", "option", "listbox"),
	}
	formActions = NewSet("fill_form", "input", "set_field", "update_flight_dates", "update_dates")
)

// RequiredTagsForAction returns the elements an action can act on. Filters
// combine both sets; unknown actions impose no restriction.
func RequiredTagsForAction(action string) TagFilter {
	action = strings.ToLower(action)
	switch {
	case strings.Contains(action, "filter"):
		return TagFilter{
			Tags:  clickFilter.Tags.Union(formFilter.Tags),
			Roles: clickFilter.Roles.Union(formFilter.Roles),
		}
	case strings.Contains(action, "click"):
		return clickFilter
	case strings.Contains(action, "search"):
		return TagFilter{Tags: formFilter.Tags, Roles: NewSet("textbox", "combobox", "button", "option", "search")}
	case formActions.Has(action):
		return formFilter
	}
	return TagFilter{}
}
