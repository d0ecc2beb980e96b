package entities

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const isoLayout = "2006-01-02"

var (
	ordinalSuffixRe = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	numericDateRe   = regexp.MustCompile(`\b(\d{4}-\d{1,2}-\d{1,2}|\d{1,2}[/.]\d{1,2}[/.]\d{2,4})\b`)
	tokenRe         = regexp.MustCompile(`[a-z]+|\d+`)
)

var monthTokens = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var weekdayTokens = map[string]time.Weekday{
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
	"sunday": time.Sunday, "sun": time.Sunday,
}

// NormalizeDate reads a free-text date phrase and returns it as YYYY-MM-DD.
// Parts the phrase leaves out (year, day) are taken from now. The second
// return is false when the phrase holds no date.
func NormalizeDate(text string, now time.Time) (string, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(text))
	if cleaned == "" {
		return "", false
	}
	cleaned = ordinalSuffixRe.ReplaceAllString(cleaned, "$1")

	if m := numericDateRe.FindString(cleaned); m != "" {
		if t, err := dateparse.ParseIn(m, time.UTC); err == nil && t.Year() >= 1900 {
			return t.Format(isoLayout), true
		}
	}

	return fuzzyDate(cleaned, now)
}

func fuzzyDate(text string, now time.Time) (string, bool) {
	var (
		month   time.Month
		day     int
		year    int
		weekday = time.Weekday(-1)
		relDays = -1
	)
	for _, tok := range tokenRe.FindAllString(text, -1) {
		if n, err := strconv.Atoi(tok); err == nil {
			switch {
			case len(tok) == 4 && year == 0:
				year = n
			case day == 0 && n >= 1 && n <= 31 && len(tok) <= 2:
				day = n
			}
			continue
		}
		if m, ok := monthTokens[tok]; ok && month == 0 {
			month = m
			continue
		}
		if wd, ok := weekdayTokens[tok]; ok && weekday < 0 {
			weekday = wd
			continue
		}
		switch tok {
		case "today":
			relDays = 0
		case "tomorrow":
			relDays = 1
		}
	}

	if month == 0 && day == 0 {
		switch {
		case weekday >= 0:
			offset := (int(weekday) - int(now.Weekday()) + 7) % 7
			return now.AddDate(0, 0, offset).Format(isoLayout), true
		case relDays >= 0:
			return now.AddDate(0, 0, relDays).Format(isoLayout), true
		default:
			return "", false
		}
	}
	if month == 0 {
		month = now.Month()
	}
	if day == 0 {
		day = now.Day()
	}
	if year == 0 {
		year = now.Year()
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return "", false
	}
	return t.Format(isoLayout), true
}

func isDateToken(tok string) bool {
	if _, err := strconv.Atoi(tok); err == nil {
		return true
	}
	if _, ok := monthTokens[tok]; ok {
		return true
	}
	if _, ok := weekdayTokens[tok]; ok {
		return true
	}
	switch tok {
	case "the", "today", "tomorrow", "next", "this":
		return true
	}
	return false
}

// CompactDate converts YYYY-MM-DD to the YYMMDD form used in flight URLs.
func CompactDate(iso string) (string, bool) {
	t, ok := parseISO(iso)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%02d%02d%02d", t.Year()%100, int(t.Month()), t.Day()), true
}

// DaySuffix returns the English ordinal suffix for a day of month.
func DaySuffix(day int) string {
	if (day >= 4 && day <= 20) || (day >= 24 && day <= 30) {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}

// DateKeywords lists the lower-cased renderings of a date that calendar
// widgets commonly use, sorted and free of duplicates. It returns nil when
// iso cannot be read as a date.
func DateKeywords(iso string) []string {
	t, ok := parseISO(iso)
	if !ok {
		return nil
	}
	day := t.Day()
	mon := int(t.Month())
	monthName := t.Month().String()
	monthAbbr := monthName[:3]
	year := t.Year()
	shortYear := year % 100
	suffix := DaySuffix(day)

	variants := []string{
		fmt.Sprintf("%d %s %d", day, monthName, year),
		fmt.Sprintf("%d %s %d", day, monthAbbr, year),
		fmt.Sprintf("%s %d %d", monthName, day, year),
		fmt.Sprintf("%s %d %d", monthAbbr, day, year),
		fmt.Sprintf("%s %d, %d", monthName, day, year),

		fmt.Sprintf("%s %d", monthName, day),
		fmt.Sprintf("%s %d", monthAbbr, day),
		fmt.Sprintf("%d %s", day, monthName),
		fmt.Sprintf("%d %s", day, monthAbbr),

		fmt.Sprintf("%d/%d/%d", day, mon, year),
		fmt.Sprintf("%d-%d-%d", day, mon, year),
		fmt.Sprintf("%d.%d.%d", day, mon, year),
		fmt.Sprintf("%d/%d/%d", mon, day, year),
		fmt.Sprintf("%d/%d/%d", mon, day, shortYear),
		fmt.Sprintf("%d/%d/%d", day, mon, shortYear),
		fmt.Sprintf("%d-%d-%d", mon, day, shortYear),
		fmt.Sprintf("%d-%d-%d", day, mon, shortYear),
		fmt.Sprintf("%d.%d.%d", mon, day, shortYear),
		fmt.Sprintf("%d.%d.%d", day, mon, shortYear),
		fmt.Sprintf("%02d/%02d/%02d", mon, day, shortYear),
		fmt.Sprintf("%02d/%02d/%02d", day, mon, shortYear),

		t.Format(isoLayout),

		strconv.Itoa(day),
		fmt.Sprintf("%02d", day),

		fmt.Sprintf("%d%s", day, suffix),
		fmt.Sprintf("%d%s %s", day, suffix, monthName),
		fmt.Sprintf("%d%s %s %d", day, suffix, monthName, year),
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		variants = append(variants,
			fmt.Sprintf("%s, %s %d, %d", wd, monthName, day, year),
			fmt.Sprintf("%s, %s %d, %d", wd, monthAbbr, day, year),
		)
	}

	seen := make(map[string]struct{}, len(variants))
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		v = strings.ToLower(v)
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// IsDayOnly reports whether a keyword is a bare day number such as "5" or "05".
func IsDayOnly(keyword string) bool {
	if keyword == "" || len(keyword) > 2 {
		return false
	}
	_, err := strconv.Atoi(keyword)
	return err == nil
}

func parseISO(iso string) (time.Time, bool) {
	iso = strings.TrimSpace(iso)
	if iso == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(isoLayout, iso); err == nil {
		return t, true
	}
	t, err := dateparse.ParseIn(iso, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
