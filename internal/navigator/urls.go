package navigator

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/rahul/vcaa/internal/entities"
	"github.com/rahul/vcaa/internal/schema"
)

var (
	dateSegmentRe = regexp.MustCompile(`/\d{6}(?:/|$|\?)`)
	bareDateRe    = regexp.MustCompile(`\d{6}`)
)

// HasDateSegments reports whether raw carries a YYMMDD path segment, the
// shape flight search result URLs use.
func HasDateSegments(raw string) bool {
	return dateSegmentRe.MatchString(raw)
}

func isSixDigits(s string) bool {
	if len(s) != 6 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// RewriteFlightDatesInURL replaces the outbound and return YYMMDD path
// segments of a flight search URL. The first six-digit segment takes
// outbound and the second, when back is set, takes back. Without whole
// segments the first one or two six-digit runs anywhere in the path are
// replaced instead. It reports false when the URL has nothing to rewrite.
func RewriteFlightDatesInURL(raw, outbound, back string) (string, bool) {
	if raw == "" || outbound == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	replacements := []string{outbound}
	if back != "" {
		replacements = append(replacements, back)
	}

	segments := strings.Split(u.Path, "/")
	replaced := 0
	for i, seg := range segments {
		if replaced == len(replacements) {
			break
		}
		if isSixDigits(seg) {
			segments[i] = replacements[replaced]
			replaced++
		}
	}

	path := strings.Join(segments, "/")
	if replaced == 0 {
		n := 0
		path = replaceStandaloneRuns(u.Path, func() (string, bool) {
			if n == len(replacements) {
				return "", false
			}
			n++
			return replacements[n-1], true
		})
		if n == 0 {
			return "", false
		}
	}

	u.Path = path
	u.RawPath = ""
	return u.String(), true
}

// replaceStandaloneRuns rewrites six-digit runs that are not part of a longer
// number. next returns false once no further replacement is wanted.
func replaceStandaloneRuns(path string, next func() (string, bool)) string {
	var b strings.Builder
	last := 0
	for _, loc := range bareDateRe.FindAllStringIndex(path, -1) {
		start, end := loc[0], loc[1]
		if (start > 0 && isDigit(path[start-1])) || (end < len(path) && isDigit(path[end])) {
			continue
		}
		repl, ok := next()
		if !ok {
			break
		}
		b.WriteString(path[last:start])
		b.WriteString(repl)
		last = end
	}
	b.WriteString(path[last:])
	return b.String()
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// flightDateURL resolves the rewritten URL for a date update, or the
// clarification explaining what is missing. The current page URL is
// preferred over the plan's value and url entity.
func flightDateURL(plan schema.ActionPlan, pageURL string) (string, *schema.ClarificationRequest) {
	e := plan.Entities
	value := plan.Value
	if value == "page_url" {
		value = ""
	}
	base := firstNonEmpty(pageURL, value, e.String("url"))
	if base == "" {
		return "", schema.NewClarification(plan.TraceID, "Which page should I update with the new dates?", schema.ReasonMissingPageURL)
	}

	outbound, ok := entities.CompactDate(e.First("date_start", "date"))
	if !ok {
		return "", schema.NewClarification(plan.TraceID, "What is the departure date?", schema.ReasonMissingDate)
	}
	back := ""
	if iso := e.String("date_end"); iso != "" {
		back, _ = entities.CompactDate(iso)
	}

	rewritten, ok := RewriteFlightDatesInURL(base, outbound, back)
	if !ok {
		return "", schema.NewClarification(plan.TraceID, "I could not find date segments in the current URL to update.", schema.ReasonMissingDateInURL)
	}
	return rewritten, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolveURL finds where a navigation plan should go: the url entity, then
// the target, value or site through the site table.
func resolveURL(plan schema.ActionPlan) string {
	if u := plan.Entities.String("url"); u != "" {
		return u
	}
	for _, candidate := range []string{plan.Target, plan.Value, plan.Entities.String("site")} {
		if u := entities.SiteURL(candidate); u != "" {
			return u
		}
	}
	return ""
}

// offSite reports whether the plan names a site other than the current page.
func offSite(plan schema.ActionPlan, pageURL string) bool {
	target := plan.Entities.String("url")
	if target == "" || pageURL == "" {
		return false
	}
	want := entities.HostSite(target)
	host := entities.HostSite(pageURL)
	return want != "" && want != host && !strings.HasSuffix(host, "."+want)
}
