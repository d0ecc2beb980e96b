package matcher

import (
	"sort"
	"strings"

	"github.com/rahul/vcaa/internal/entities"
	"github.com/rahul/vcaa/internal/schema"
)

var (
	inputRoles    = NewSet("textbox", "combobox", "searchbox")
	clickRoles    = NewSet("button", "link", "menuitem")
	searchNames   = []string{"search", "find", "go", "submit", "apply", "done", "confirm"}
	inputPatterns = []string{"where", "destination", "origin", "from", "to", "check-in", "check-out", "date"}
)

// Candidate is an element with its score.
type Candidate struct {
	Element schema.AXElement
	Score   float64
}

// DateMatches reports whether text renders the ISO date. Names of at most two
// characters must equal the day number; longer text must contain a
// non-numeric rendering not embedded in a longer number.
func DateMatches(iso, text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if iso == "" || text == "" {
		return false
	}
	keywords := entities.DateKeywords(iso)
	if len(text) <= 2 {
		for _, kw := range keywords {
			if entities.IsDayOnly(kw) && kw == text {
				return true
			}
		}
		return false
	}
	for _, kw := range keywords {
		if entities.IsDayOnly(kw) {
			continue
		}
		if containsBounded(text, kw) {
			return true
		}
	}
	return false
}

// containsBounded finds kw in text where the match is not glued to further
// digits, so "march 1" does not match "march 15".
func containsBounded(text, kw string) bool {
	for from := 0; from <= len(text)-len(kw); {
		i := strings.Index(text[from:], kw)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(kw)
		if !(start > 0 && isDigit(text[start-1]) && isDigit(kw[0])) &&
			!(end < len(text) && isDigit(text[end]) && isDigit(kw[len(kw)-1])) {
			return true
		}
		from = start + 1
	}
	return false
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// Score rates how well el fits the intent, in [0, 1].
func Score(el schema.AXElement, in Intent) float64 {
	score := 0.0
	name := strings.ToLower(el.Name)
	desc := strings.ToLower(el.Description)
	combined := name + " " + desc
	action := strings.ToLower(in.Action)

	if in.Date != "" {
		if DateMatches(in.Date, el.Name) {
			score += 0.9
		} else if DateMatches(in.Date, el.Description) {
			score += 0.7
		}
	}

	if loc := strings.ToLower(in.Location); loc != "" {
		if strings.Contains(name, loc) {
			score += 0.7
		} else if strings.Contains(desc, loc) {
			score += 0.5
		}
	}

	if origin := strings.ToLower(in.Origin); origin != "" {
		if strings.Contains(name, origin) {
			score += 0.6
		} else if strings.Contains(desc, origin) {
			score += 0.4
		}
	}

	if in.Target != "" {
		matches := 0
		for _, w := range strings.Fields(strings.ToLower(in.Target)) {
			if strings.Contains(combined, w) {
				matches++
			}
		}
		score += min(0.5, float64(matches)*0.15)
	}

	if in.Value != "" && el.Value != "" && strings.Contains(strings.ToLower(el.Value), strings.ToLower(in.Value)) {
		score += 0.3
	}

	if containsAnyOf(action, "input", "search", "type") && inputRoles.Has(el.Role) {
		score += 0.3
	}
	if strings.Contains(action, "click") && clickRoles.Has(el.Role) {
		score += 0.2
	}
	if strings.Contains(action, "date") || in.Date != "" {
		if el.Role == "gridcell" {
			score += 0.4
		} else if el.Role == "button" && isAllDigits(el.Name) {
			score += 0.3
		}
	}

	if containsAnyOf(name, searchNames...) && containsAnyOf(action, "search", "submit") {
		score += 0.4
	}

	if inputRoles.Has(el.Role) && containsAnyOf(name, inputPatterns...) {
		score += 0.2
	}

	if el.Disabled {
		score *= 0.1
	}
	return min(1.0, score)
}

func containsAnyOf(s string, words ...string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func allowsDisabled(action string) bool {
	a := strings.ToLower(action)
	return a == "read" || a == "check"
}

// RankCandidates scores every eligible element and returns those above zero,
// best first. Equal scores keep tree order.
func RankCandidates(tree schema.AXTree, in Intent) []Candidate {
	var out []Candidate
	for _, el := range tree.Elements {
		if el.Disabled && !allowsDisabled(in.Action) {
			continue
		}
		if s := Score(el, in); s > 0 {
			out = append(out, Candidate{Element: el, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Match returns the best scoring element. Disabled elements are skipped
// unless the action only reads state.
func Match(tree schema.AXTree, in Intent) (Candidate, bool) {
	ranked := RankCandidates(tree, in)
	if len(ranked) == 0 {
		return Candidate{}, false
	}
	return ranked[0], true
}

// MatchByRole lists enabled elements of the given roles. Each keyword found
// in the name or description adds 0.2 to the 0.5 base, up to 1.0.
func MatchByRole(tree schema.AXTree, roles Set, keywords []string) []Candidate {
	var out []Candidate
	for _, el := range tree.Elements {
		if !roles.Has(el.Role) || el.Disabled {
			continue
		}
		score := 0.5
		if len(keywords) > 0 {
			combined := strings.ToLower(el.Name + " " + el.Description)
			matches := 0
			for _, kw := range keywords {
				if kw != "" && strings.Contains(combined, strings.ToLower(kw)) {
					matches++
				}
			}
			score += min(0.5, float64(matches)*0.2)
		}
		out = append(out, Candidate{Element: el, Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// PickBestGuess is the last resort when nothing scores. It prefers a focused
// or selected element of the role set the action implies, then the first of
// that set, then the first enabled element.
func PickBestGuess(tree schema.AXTree, in Intent) (schema.AXElement, bool) {
	action := strings.ToLower(in.Action)

	if strings.Contains(action, "date") || in.Date != "" {
		if el, ok := firstOfRoles(tree, NewSet("gridcell"), func(el schema.AXElement) bool {
			return el.Focused || el.IsSelected()
		}); ok {
			return el, true
		}
	}
	if containsAnyOf(action, "input", "search", "type") {
		if el, ok := firstOfRoles(tree, inputRoles, func(el schema.AXElement) bool { return el.Focused }); ok {
			return el, true
		}
	}
	if strings.Contains(action, "click") {
		if el, ok := firstOfRoles(tree, NewSet("button", "link"), nil); ok {
			return el, true
		}
	}
	for _, el := range tree.Elements {
		if !el.Disabled {
			return el, true
		}
	}
	return schema.AXElement{}, false
}

func firstOfRoles(tree schema.AXTree, roles Set, preferred func(schema.AXElement) bool) (schema.AXElement, bool) {
	var first *schema.AXElement
	for i := range tree.Elements {
		el := tree.Elements[i]
		if !roles.Has(el.Role) || el.Disabled {
			continue
		}
		if preferred != nil && preferred(el) {
			return el, true
		}
		if first == nil {
			first = &tree.Elements[i]
		}
	}
	if first == nil {
		return schema.AXElement{}, false
	}
	return *first, true
}
