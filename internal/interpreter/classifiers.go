package interpreter

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rahul/vcaa/internal/entities"
	"github.com/rahul/vcaa/internal/schema"
)

// Utterance is what every classifier sees: the processing transcript (with
// clarification answers appended) and the entities extracted from it.
type Utterance struct {
	TraceID  string
	Text     string
	Lower    string
	Entities schema.Entities
	// NamedSite is true when the site or URL came from the words themselves
	// rather than the page the user is on.
	NamedSite bool
}

// Classifier is one predicate/builder pair of the heuristic chain.
type Classifier struct {
	Name  string
	Match func(u Utterance) bool
	Build func(u Utterance) schema.Message
}

var (
	flightWordRe = regexp.MustCompile(`\b(fly|flying|flight|flights)\b`)
	positionWord = []string{"click", "open"}
	openVerbs    = []string{"open", "go to", "navigate", "visit"}
	changeVerbs  = []string{"change", "update", "move", "reschedule"}
	hotelWords   = []string{"hotel", "stay", "booking", "bookings.com"}
	searchWords  = []string{"search", "find", "look up", "look for", "watch", "play"}
)

var chain = []Classifier{
	{Name: "scroll", Match: isScroll, Build: buildScroll},
	{Name: "click_result", Match: isClickResult, Build: buildClickResult},
	{Name: "open_site", Match: isExplicitOpen, Build: openSite(0.8)},
	{Name: "update_flight_dates", Match: isDateUpdate, Build: buildDateUpdate},
	{Name: "search_flights", Match: isFlightSearch, Build: buildFlightSearch},
	{Name: "flight_clarification", Match: isIncompleteFlight, Build: buildFlightClarification},
	{Name: "search_hotels", Match: isHotelSearch, Build: buildHotelSearch},
	{Name: "search_travel", Match: isTravelSearch, Build: buildTravelSearch},
	{Name: "search_content", Match: isContentSearch, Build: buildContentSearch},
	{Name: "open_site_mention", Match: func(u Utterance) bool { return u.NamedSite }, Build: openSite(0.62)},
	{Name: "ambiguous", Match: func(Utterance) bool { return true }, Build: buildAmbiguous},
}

// Classifiers returns the heuristic chain in evaluation order. The first
// matching classifier wins.
func Classifiers() []Classifier {
	out := make([]Classifier, len(chain))
	copy(out, chain)
	return out
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func hasDate(e schema.Entities) bool {
	return e.Has("date") || e.Has("date_start") || e.Has("date_end")
}

func plan(u Utterance, action, target, value string, confidence float64) *schema.ActionPlan {
	p := schema.NewActionPlan(u.TraceID, action, u.Entities, confidence)
	p.Target = target
	p.Value = value
	return p
}

func clarifying(u Utterance, question string, reason schema.Reason) *schema.ClarificationRequest {
	return schema.NewClarification(u.TraceID, question, reason, question)
}

func isScroll(u Utterance) bool { return strings.Contains(u.Lower, "scroll") }

func buildScroll(u Utterance) schema.Message {
	dir := u.Entities.String("scroll_direction")
	if dir == "" {
		dir = "down"
	}
	return plan(u, "scroll", "page", dir, 0.7)
}

func isClickResult(u Utterance) bool {
	_, ok := u.Entities.Int("position")
	return ok && containsAny(u.Lower, positionWord)
}

func buildClickResult(u Utterance) schema.Message {
	pos, _ := u.Entities.Int("position")
	return plan(u, "click_result", "item", strconv.Itoa(pos), 0.75)
}

func isExplicitOpen(u Utterance) bool {
	return u.NamedSite && containsAny(u.Lower, openVerbs)
}

func openSite(confidence float64) func(Utterance) schema.Message {
	return func(u Utterance) schema.Message {
		site := u.Entities.String("site")
		target := u.Entities.String("url")
		if target == "" {
			target = entities.SiteURL(site)
		}
		return plan(u, "open_site", site, target, confidence)
	}
}

func isDateUpdate(u Utterance) bool {
	return hasDate(u.Entities) && containsAny(u.Lower, changeVerbs)
}

func buildDateUpdate(u Utterance) schema.Message {
	return plan(u, "update_flight_dates", "page_url", "", 0.8)
}

func isFlightSearch(u Utterance) bool {
	return u.Entities.Has("origin") && u.Entities.Has("destination") && hasDate(u.Entities)
}

func buildFlightSearch(u Utterance) schema.Message {
	return plan(u, "search_flights", "flight_search_form", "", 0.85)
}

func missingFlightFields(e schema.Entities) []string {
	var missing []string
	if !e.Has("origin") {
		missing = append(missing, "origin")
	}
	if !e.Has("destination") {
		missing = append(missing, "destination")
	}
	if !hasDate(e) {
		missing = append(missing, "date")
	}
	return missing
}

func isIncompleteFlight(u Utterance) bool {
	return flightWordRe.MatchString(u.Lower) && len(missingFlightFields(u.Entities)) > 0
}

func buildFlightClarification(u Utterance) schema.Message {
	missing := missingFlightFields(u.Entities)
	return schema.NewClarification(u.TraceID, "Please confirm "+strings.Join(missing, ", "), schema.ReasonMissingEntities, missing...)
}

func isHotelSearch(u Utterance) bool {
	return u.Entities.Has("destination") && containsAny(u.Lower, hotelWords)
}

func buildHotelSearch(u Utterance) schema.Message {
	conf := 0.68
	if hasDate(u.Entities) {
		conf = 0.78
	}
	return plan(u, "search_hotels", "hotel_search_form", "", conf)
}

func isTravelSearch(u Utterance) bool {
	return u.Entities.Has("destination") && hasDate(u.Entities)
}

func buildTravelSearch(u Utterance) schema.Message {
	return plan(u, "search_travel", "travel_search_form", "", 0.7)
}

func isContentSearch(u Utterance) bool {
	return containsAny(u.Lower, searchWords) || u.Entities.Has("query")
}

func buildContentSearch(u Utterance) schema.Message {
	query := u.Entities.String("query")
	conf := 0.75
	if query == "" {
		query = strings.TrimSpace(u.Text)
		conf = 0.6
	}
	if query == "" {
		return clarifying(u, "What should I search for?", schema.ReasonMissingQuery)
	}
	target := u.Entities.String("site")
	if target == "" {
		target = "page"
	}
	return plan(u, "search_content", target, query, conf)
}

func buildAmbiguous(u Utterance) schema.Message {
	return clarifying(u, "What should I do?", schema.ReasonAmbiguousIntent)
}
