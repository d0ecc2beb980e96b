package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Saturday.
var fixedNow = time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC)

func extract(t *testing.T, transcript string) map[string]any {
	t.Helper()
	x := Extractor{Now: func() time.Time { return fixedNow }}
	out := x.Extract(transcript)
	require.NotNil(t, out)
	return out
}

func TestExtract_SearchOnSite(t *testing.T) {
	e := extract(t, "search for cats on youtube")
	assert.Equal(t, "youtube", e["site"])
	assert.Equal(t, "cats", e["query"])
	assert.NotContains(t, e, "date")
	assert.NotContains(t, e, "destination")
}

func TestExtract_RouteWithoutDate(t *testing.T) {
	e := extract(t, "fly from Istanbul to London")
	assert.Equal(t, "Istanbul", e["origin"])
	assert.Equal(t, "London", e["destination"])
	assert.NotContains(t, e, "date")
	assert.NotContains(t, e, "date_start")
	assert.NotContains(t, e, "date_end")
}

func TestExtract_RouteWithDate(t *testing.T) {
	e := extract(t, "fly from Istanbul to London on March 5")
	assert.Equal(t, "Istanbul", e["origin"])
	assert.Equal(t, "London", e["destination"])
	assert.Equal(t, "2026-03-05", e["date"])
	assert.NotContains(t, e, "date_end", "a city is not the start of a date range")
}

func TestExtract_DateRange(t *testing.T) {
	e := extract(t, "hotels from March 2 to March 5")
	assert.Equal(t, "2026-03-02", e["date_start"])
	assert.Equal(t, "2026-03-05", e["date_end"])
}

func TestExtract_DepartAndReturn(t *testing.T) {
	e := extract(t, "depart on March 3 returning on March 9")
	assert.Equal(t, "2026-03-03", e["date_start"])
	assert.Equal(t, "2026-03-09", e["date_end"])
	assert.Equal(t, "2026-03-03", e["date"])
}

func TestExtract_Ordinals(t *testing.T) {
	tests := []struct {
		transcript string
		want       int
	}{
		{"click the second video", 2},
		{"open the 3rd link", 3},
		{"play the last one", -1},
		{"show me the latest episode", 1},
		// Table order decides, not position in the sentence.
		{"skip the third and open the first", 1},
		{"open the tenth, no the second", 2},
	}
	for _, tt := range tests {
		t.Run(tt.transcript, func(t *testing.T) {
			e := extract(t, tt.transcript)
			assert.Equal(t, tt.want, e["position"])
		})
	}
}

func TestExtract_Modifiers(t *testing.T) {
	e := extract(t, "scroll down to the newest posts")
	assert.Equal(t, "down", e["scroll_direction"])
	assert.Equal(t, true, e["latest"])

	e = extract(t, "please scroll up")
	assert.Equal(t, "up", e["scroll_direction"])
	assert.NotContains(t, e, "latest")
}

func TestExtract_DomainAndURL(t *testing.T) {
	e := extract(t, "go to example.org")
	assert.Equal(t, "example.org", e["site"])
	assert.Equal(t, "https://example.org", e["url"])

	e = extract(t, "open https://news.ycombinator.com/item?id=1.")
	assert.Equal(t, "https://news.ycombinator.com/item?id=1", e["url"], "an explicit URL is kept")
	assert.Equal(t, "news.ycombinator.com", e["site"])
}

func TestExtract_KnownSiteWinsOverDomain(t *testing.T) {
	e := extract(t, "open booking.com")
	assert.Equal(t, "booking.com", e["site"])
	assert.NotContains(t, e, "url")
}

func TestExtract_HotelDestination(t *testing.T) {
	e := extract(t, "find hotels in Paris")
	assert.Equal(t, "Paris", e["destination"])
	assert.Equal(t, "hotels", e["query"])
}

func TestExtract_EmptyTranscript(t *testing.T) {
	assert.Empty(t, extract(t, ""))
	assert.Empty(t, extract(t, "hmm"))
}

func TestExtract_PackageLevelUsesWallClock(t *testing.T) {
	e := Extract("search for jazz")
	assert.Equal(t, "jazz", e.String("query"))
}
