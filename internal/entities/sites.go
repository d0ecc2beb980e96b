package entities

import (
	"net/url"
	"strings"
)

// KnownSites are site keywords recognised in utterances, checked in order.
var KnownSites = []string{
	"youtube",
	"dailymotion",
	"vimeo",
	"netflix",
	"prime video",
	"primevideo",
	"hulu",
	"disneyplus",
	"disney+",
	"twitch",
	"booking.com",
	"bookings.com",
	"skyscanner",
	"kayak",
	"expedia",
	"google",
	"hotels.com",
	"new york times",
	"nytimes",
	"nytimes.com",
	"the guardian",
	"guardian",
	"washington post",
	"washingtonpost",
	"amazon",
	"amazon.com",
}

var siteHomepages = map[string]string{
	"youtube":                "https://www.youtube.com",
	"www.youtube.com":        "https://www.youtube.com",
	"booking.com":            "https://www.booking.com",
	"bookings.com":           "https://www.booking.com",
	"www.booking.com":        "https://www.booking.com",
	"skyscanner":             "https://www.skyscanner.net",
	"www.skyscanner.com":     "https://www.skyscanner.net",
	"www.skyscanner.net":     "https://www.skyscanner.net",
	"kayak":                  "https://www.kayak.com",
	"www.kayak.com":          "https://www.kayak.com",
	"expedia":                "https://www.expedia.com",
	"www.expedia.com":        "https://www.expedia.com",
	"google":                 "https://www.google.com",
	"www.google.com":         "https://www.google.com",
	"hotels.com":             "https://www.hotels.com",
	"www.hotels.com":         "https://www.hotels.com",
	"new york times":         "https://www.nytimes.com",
	"nytimes":                "https://www.nytimes.com",
	"nytimes.com":            "https://www.nytimes.com",
	"www.nytimes.com":        "https://www.nytimes.com",
	"the guardian":           "https://www.theguardian.com",
	"guardian":               "https://www.theguardian.com",
	"theguardian.com":        "https://www.theguardian.com",
	"www.theguardian.com":    "https://www.theguardian.com",
	"washington post":        "https://www.washingtonpost.com",
	"washingtonpost":         "https://www.washingtonpost.com",
	"washingtonpost.com":     "https://www.washingtonpost.com",
	"www.washingtonpost.com": "https://www.washingtonpost.com",
	"amazon":                 "https://www.amazon.com",
	"www.amazon.com":         "https://www.amazon.com",
	"amazon.com":             "https://www.amazon.com",
}

// SiteURL resolves a site keyword or host to a homepage URL. Explicit URLs pass
// through and any other dotted host becomes https://<host>. Returns "" when
// nothing resolves.
func SiteURL(site string) string {
	normalized := strings.ToLower(strings.TrimSpace(site))
	if normalized == "" {
		return ""
	}
	if u, ok := siteHomepages[normalized]; ok {
		return u
	}
	if strings.HasPrefix(normalized, "http://") || strings.HasPrefix(normalized, "https://") {
		return normalized
	}
	if strings.Contains(normalized, ".") {
		return "https://" + normalized
	}
	return ""
}

// HostSite returns the lower-cased host of a URL or bare host without a
// leading "www.".
func HostSite(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
