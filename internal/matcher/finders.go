package matcher

import (
	"sort"
	"strings"
	"time"

	"github.com/rahul/vcaa/internal/schema"
)

// Field types understood by FindInputField.
const (
	FieldDestination = "destination"
	FieldOrigin      = "origin"
	FieldDate        = "date"
	FieldSearch      = "search"
	FieldGuests      = "guests"
)

// Widgets often show the current value in the name ("Paris (Any)") while the
// description states the purpose, so description patterns are checked first.
var descriptionPatterns = map[string][]string{
	FieldDestination: {"destination", "going to", "where to", "to where", "flying to", "enter your destination", "where are you going", "arrival"},
	FieldOrigin:      {"flying from", "from where", "leaving from", "departure city", "enter the city you're flying from", "where from"},
	FieldDate:        {"check-in", "check-out", "depart", "return", "when", "select date", "pick date", "travel date"},
	FieldSearch:      {"search", "find", "query", "look up"},
	FieldGuests:      {"guest", "traveler", "adult", "child", "room", "passenger"},
}

var namePatterns = map[string][]string{
	FieldDestination: {"destination", "where", "to", "going to", "city", "hotel", "location"},
	FieldOrigin:      {"origin", "from", "leaving from", "departure"},
	FieldDate:        {"date", "when", "check-in", "check-out", "depart", "return"},
	FieldSearch:      {"search", "find", "query"},
	FieldGuests:      {"guest", "traveler", "adult", "child", "room"},
}

var (
	fieldRoles  = NewSet("textbox", "combobox", "searchbox", "spinbutton")
	buttonRoles = NewSet("button", "link")
	optionRoles = NewSet("option", "listitem", "menuitem")

	// DefaultActionKeywords label submit-like controls.
	DefaultActionKeywords = []string{"search", "submit", "apply", "done", "confirm", "go", "find"}

	startDatePhrases = []string{"depart", "departure", "check-in", "check in", "start date", "outbound", "from date"}
	endDatePhrases   = []string{"return", "check-out", "check out", "end date", "inbound", "to date"}
	genericDateWords = []string{"date", "when", "calendar"}
	dateButtonNoise  = []string{"traveler", "traveller", "guest", "room", "adult", "passenger", "cabin"}
)

// Date button ends.
const (
	DateStart = "start"
	DateEnd   = "end"
)

// FindInputField finds the input for a field type. A description pattern
// scores 1.0; otherwise the first name pattern found in the name scores 0.5
// or in the description 0.4. Unknown field types match their own name.
func FindInputField(tree schema.AXTree, fieldType string, excl Exclusion) (schema.AXElement, bool) {
	descPats, ok := descriptionPatterns[fieldType]
	if !ok {
		descPats = []string{fieldType}
	}
	namePats, ok := namePatterns[fieldType]
	if !ok {
		namePats = []string{fieldType}
	}

	var ranked []Candidate
	for _, el := range tree.Elements {
		if !fieldRoles.Has(el.Role) || el.Disabled || excl.Has(el.AXID) {
			continue
		}
		name := strings.ToLower(el.Name)
		desc := strings.ToLower(el.Description)

		score := 0.0
		if containsAnyOf(desc, descPats...) {
			score = 1.0
		} else {
			for _, p := range namePats {
				if strings.Contains(name, p) {
					score = 0.5
					break
				}
				if strings.Contains(desc, p) {
					score = 0.4
					break
				}
			}
		}
		if score > 0 {
			ranked = append(ranked, Candidate{Element: el, Score: score})
		}
	}
	return best(ranked)
}

func best(ranked []Candidate) (schema.AXElement, bool) {
	if len(ranked) == 0 {
		return schema.AXElement{}, false
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked[0].Element, true
}

// FindByKeywords returns the first enabled element, in tree order, whose name
// or description contains any keyword. A nil role set accepts every role.
func FindByKeywords(tree schema.AXTree, roles Set, keywords []string, excl Exclusion) (schema.AXElement, bool) {
	for _, el := range tree.Elements {
		if el.Disabled || excl.Has(el.AXID) {
			continue
		}
		if roles != nil && !roles.Has(el.Role) {
			continue
		}
		combined := strings.ToLower(el.Name + " " + el.Description)
		for _, kw := range keywords {
			if kw != "" && strings.Contains(combined, strings.ToLower(kw)) {
				return el, true
			}
		}
	}
	return schema.AXElement{}, false
}

// FindDateCell finds the calendar cell for an ISO date inside an open
// picker. Gridcells win over buttons.
func FindDateCell(tree schema.AXTree, iso string, excl Exclusion) (schema.AXElement, bool) {
	if iso == "" {
		return schema.AXElement{}, false
	}
	eligible := func(el schema.AXElement) bool { return !el.Disabled && !excl.Has(el.AXID) }

	for _, el := range tree.Elements {
		if el.Role == "gridcell" && eligible(el) && (DateMatches(iso, el.Name) || DateMatches(iso, el.Description)) {
			return el, true
		}
	}
	for _, el := range tree.Elements {
		if el.Role == "button" && eligible(el) && DateMatches(iso, el.Name) {
			return el, true
		}
	}
	return schema.AXElement{}, false
}

// FindDateButton finds the control that opens the calendar for one end of a
// date range. Traveller and room pickers are never taken for date buttons.
func FindDateButton(tree schema.AXTree, end string, excl Exclusion) (schema.AXElement, bool) {
	own, other := startDatePhrases, endDatePhrases
	if end == DateEnd {
		own, other = endDatePhrases, startDatePhrases
	}

	var ranked []Candidate
	for _, el := range tree.Elements {
		if el.Disabled || excl.Has(el.AXID) {
			continue
		}
		if el.Role != "button" && el.Role != "combobox" && el.Role != "textbox" {
			continue
		}
		text := strings.ToLower(el.Name + " " + el.Description)
		if containsAnyOf(text, dateButtonNoise...) {
			continue
		}
		score := 0.0
		switch {
		case containsAnyOf(text, own...):
			score = 1.0
		case containsAnyOf(text, other...):
			continue
		case containsAnyOf(text, genericDateWords...):
			score = 0.6
		}
		if mentionsMonth(text) {
			score += 0.3
		}
		if el.Role == "button" {
			score += 0.1
		}
		if score >= 0.4 {
			ranked = append(ranked, Candidate{Element: el, Score: score})
		}
	}
	return best(ranked)
}

func mentionsMonth(text string) bool {
	for m := time.January; m <= time.December; m++ {
		full := strings.ToLower(m.String())
		if containsWord(text, full) || containsWord(text, full[:3]) {
			return true
		}
	}
	return false
}

func containsWord(text, word string) bool {
	for from := 0; ; {
		i := strings.Index(text[from:], word)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(word)
		before := start == 0 || !isLetter(text[start-1])
		after := end == len(text) || !isLetter(text[end])
		if before && after {
			return true
		}
		from = start + 1
	}
}

func isLetter(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }

// FindAutocompleteOption finds the suggestion that best fits value. An exact
// or prefix match scores 1.0, a substring 0.8, otherwise the share of value
// tokens found in the option scaled to 0.7.
func FindAutocompleteOption(tree schema.AXTree, value string, excl Exclusion) (schema.AXElement, float64, bool) {
	want := strings.ToLower(strings.TrimSpace(value))
	if want == "" {
		return schema.AXElement{}, 0, false
	}
	tokens := strings.Fields(want)

	var ranked []Candidate
	for _, el := range tree.Elements {
		if !optionRoles.Has(el.Role) || el.Disabled || excl.Has(el.AXID) {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(el.Name))
		if name == "" {
			continue
		}
		var score float64
		switch {
		case name == want || strings.HasPrefix(name, want):
			score = 1.0
		case strings.Contains(name, want):
			score = 0.8
		default:
			hits := 0
			for _, t := range tokens {
				if strings.Contains(name, t) {
					hits++
				}
			}
			score = 0.7 * float64(hits) / float64(len(tokens))
		}
		if score > 0 {
			ranked = append(ranked, Candidate{Element: el, Score: score})
		}
	}
	if len(ranked) == 0 {
		return schema.AXElement{}, 0, false
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked[0].Element, ranked[0].Score, true
}

// FindActionButton finds a submit-like control. Names equal to a keyword beat
// names starting with one, which beat names merely containing one. Buttons
// are preferred over links and long promotional names are penalised.
func FindActionButton(tree schema.AXTree, keywords []string, excl Exclusion) (schema.AXElement, bool) {
	if len(keywords) == 0 {
		keywords = DefaultActionKeywords
	}
	var ranked []Candidate
	for _, el := range tree.Elements {
		if !buttonRoles.Has(el.Role) || el.Disabled || excl.Has(el.AXID) {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(el.Name))
		if name == "" {
			continue
		}

		score := 0.0
		matched := false
		for _, kw := range keywords {
			kw = strings.ToLower(kw)
			if name == kw {
				score += 1.5
				matched = true
				break
			}
			if strings.HasPrefix(name, kw) {
				if len(name) < 20 {
					score += 1.0
				} else {
					score += 0.5
				}
				matched = true
				break
			}
			if strings.Contains(name, kw) {
				score += 0.3
				matched = true
			}
		}
		if !matched {
			continue
		}

		if el.Role == "button" {
			score += 0.5
		}
		if len(name) > 50 {
			score *= 0.3
		} else if len(name) > 30 {
			score *= 0.6
		}
		if el.Role == "button" {
			score += 0.2
		}
		ranked = append(ranked, Candidate{Element: el, Score: score})
	}
	return best(ranked)
}

var resultRoles = NewSet("link", "button")

// PickLatestResult picks the link or button whose text reads freshest ("3
// hours ago"), blending recency 70/30 with keyword relevance.
func PickLatestResult(tree schema.AXTree, keywords []string) (schema.AXElement, float64, bool) {
	keywords = cleanKeywords(keywords)
	var found bool
	var bestEl schema.AXElement
	bestScore := 0.0
	for _, el := range tree.Elements {
		if !resultRoles.Has(el.Role) || el.Disabled {
			continue
		}
		text := strings.ToLower(el.Name + " " + el.Description)
		relevance := 0.4
		if len(keywords) > 0 {
			relevance = KeywordScore(text, keywords)
		}
		score := 0.7*RecencyScore(text) + 0.3*relevance
		if score > bestScore {
			bestEl, bestScore, found = el, score, true
		}
	}
	return bestEl, bestScore, found
}

// PickNthResult picks the position-th link or button (1-based, -1 for last).
// With keywords the candidates are ordered by relevance first; tree order
// stands in for vertical position.
func PickNthResult(tree schema.AXTree, position int, keywords []string) (schema.AXElement, float64, bool) {
	keywords = cleanKeywords(keywords)
	var ranked []Candidate
	for _, el := range tree.Elements {
		if !resultRoles.Has(el.Role) || el.Disabled {
			continue
		}
		score := 0.5
		if len(keywords) > 0 {
			score = KeywordScore(strings.ToLower(el.Name+" "+el.Description), keywords)
		}
		ranked = append(ranked, Candidate{Element: el, Score: score})
	}
	if len(keywords) > 0 {
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	}
	idx, ok := nthIndex(position, len(ranked))
	if !ok {
		return schema.AXElement{}, 0, false
	}
	return ranked[idx].Element, ranked[idx].Score, true
}

func nthIndex(position, n int) (int, bool) {
	idx := position - 1
	if position <= 0 {
		idx = n - 1
	}
	if idx < 0 || idx >= n {
		return 0, false
	}
	return idx, true
}
