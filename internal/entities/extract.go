package entities

import (
	"regexp"
	"strings"
	"time"

	"github.com/rahul/vcaa/internal/schema"
)

var (
	urlRe       = regexp.MustCompile(`https?://[^\s]+`)
	domainRe    = regexp.MustCompile(`\b([a-z0-9.-]+\.(?:com|net|org|io|ai|co\.uk|app|travel|tv))\b`)
	rangeRe     = regexp.MustCompile(`(?i)from\s+([A-Za-z0-9 ,]+?)\s+to\s+([A-Za-z0-9 ,]+)`)
	onDateRe    = regexp.MustCompile(`(?i)\bon\s+((?:the\s+)?[^.,]+)`)
	departRe    = regexp.MustCompile(`(?i)depart(?:ing)?\s+on\s+([A-Za-z0-9 ,/]+)`)
	returnRe    = regexp.MustCompile(`(?i)return(?:ing)?\s+on\s+([A-Za-z0-9 ,/]+)`)
	routeRe     = regexp.MustCompile(`(?i)from\s+(.+?)\s+to\s+(.+?)(?:\s+on\b|,|$)`)
	toRe        = regexp.MustCompile(`(?i)\bto\s+([A-Za-z\s\-]+)(?:\s+on\b|,|$)`)
	fromRe      = regexp.MustCompile(`(?i)\bfrom\s+([A-Za-z\s\-]+)(?:\s+on\b|,|$)`)
	stayInRe    = regexp.MustCompile(`(?i)\b(?:hotels?|stays?|rooms?)\s+in\s+([A-Za-z\s\-]+?)(?:\s+(?:on|from|for|at)\b|,|$)`)
	searchRe    = regexp.MustCompile(`(?i)(?:search for|find|look up|look for|play|watch)\s+(.+)`)
	siteHintRe  = regexp.MustCompile(`(?i)\b(on|in)\s+([A-Za-z0-9.\-]+)$`)
	ordinalWord = map[string]*regexp.Regexp{}
)

type ordinal struct {
	word     string
	position int
}

// ordinals is scanned in table order; the first word present wins regardless
// of where it appears in the utterance.
var ordinals = []ordinal{
	{"first", 1}, {"1st", 1},
	{"second", 2}, {"2nd", 2},
	{"third", 3}, {"3rd", 3},
	{"fourth", 4}, {"4th", 4},
	{"fifth", 5}, {"5th", 5},
	{"sixth", 6}, {"6th", 6},
	{"seventh", 7}, {"7th", 7},
	{"eighth", 8}, {"8th", 8},
	{"ninth", 9}, {"9th", 9},
	{"tenth", 10}, {"10th", 10},
	{"last", -1},
	{"latest", 1},
}

func init() {
	for _, o := range ordinals {
		ordinalWord[o.word] = regexp.MustCompile(`\b` + regexp.QuoteMeta(o.word) + `\b`)
	}
}

// Extractor pulls structured entities out of free text. Now anchors relative
// date phrases; nil means time.Now.
type Extractor struct {
	Now func() time.Time
}

// Extract runs the default extractor.
func Extract(transcript string) schema.Entities {
	return Extractor{}.Extract(transcript)
}

// Extract never fails; an utterance with nothing recognisable yields an empty map.
func (x Extractor) Extract(transcript string) schema.Entities {
	now := time.Now()
	if x.Now != nil {
		now = x.Now()
	}
	out := schema.Entities{}
	lower := strings.ToLower(transcript)

	if m := urlRe.FindString(transcript); m != "" {
		out["url"] = strings.TrimRight(m, ".,")
	}

	if strings.Contains(lower, "latest") || strings.Contains(lower, "newest") || strings.Contains(lower, "recent") {
		out["latest"] = true
	}
	if strings.Contains(lower, "scroll down") {
		out["scroll_direction"] = "down"
	} else if strings.Contains(lower, "scroll up") {
		out["scroll_direction"] = "up"
	}

	for _, site := range KnownSites {
		if strings.Contains(lower, site) {
			out["site"] = site
			break
		}
	}
	if m := domainRe.FindStringSubmatch(lower); m != nil && !out.Has("site") {
		out["site"] = m[1]
		if u := SiteURL(m[1]); u != "" {
			out.SetIfAbsent("url", u)
		}
	}

	for _, o := range ordinals {
		if ordinalWord[o.word].MatchString(lower) {
			out["position"] = o.position
			break
		}
	}

	if m := rangeRe.FindStringSubmatch(transcript); m != nil {
		if d, ok := rangeSide(m[1], now); ok {
			out["date_start"] = d
		}
		if d, ok := rangeSide(m[2], now); ok {
			out["date_end"] = d
		}
	}

	if m := onDateRe.FindStringSubmatch(transcript); m != nil {
		if d, ok := NormalizeDate(m[1], now); ok {
			out["date"] = d
		}
	}
	if m := departRe.FindStringSubmatch(transcript); m != nil {
		if d, ok := NormalizeDate(m[1], now); ok {
			out["date_start"] = d
		}
	}
	if m := returnRe.FindStringSubmatch(transcript); m != nil {
		if d, ok := NormalizeDate(m[1], now); ok {
			out["date_end"] = d
		}
	}

	if m := routeRe.FindStringSubmatch(transcript); m != nil {
		out["origin"] = strings.Trim(m[1], " ,.")
		out["destination"] = strings.Trim(m[2], " ,.")
	} else {
		if m := toRe.FindStringSubmatch(transcript); m != nil {
			out["destination"] = strings.Trim(m[1], " ,.")
		}
		if m := fromRe.FindStringSubmatch(transcript); m != nil {
			out["origin"] = strings.Trim(m[1], " ,.")
		}
	}

	if m := stayInRe.FindStringSubmatch(transcript); m != nil && !out.Has("destination") {
		out["destination"] = strings.Trim(m[1], " ,.")
	}

	if m := searchRe.FindStringSubmatch(transcript); m != nil {
		query := m[1]
		if loc := siteHintRe.FindStringIndex(query); loc != nil {
			query = strings.TrimSpace(query[:loc[0]])
		}
		out["query"] = strings.Trim(query, " .")
	}

	return out
}

// rangeSide parses one side of "from X to Y" as a date. A side must open with
// a date token so that "from Istanbul to London on March 5" is a route, not a
// range ending on March 5.
func rangeSide(side string, now time.Time) (string, bool) {
	first := tokenRe.FindString(strings.ToLower(side))
	if first == "" || !isDateToken(first) {
		return "", false
	}
	return NormalizeDate(side, now)
}
