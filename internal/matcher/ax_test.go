package matcher

import (
	"testing"

	"github.com/rahul/vcaa/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tree(els ...schema.AXElement) schema.AXTree {
	return schema.AXTree{Version: schema.VersionAXTree, Elements: els}
}

func ax(id, role, name string) schema.AXElement {
	return schema.AXElement{AXID: id, Role: role, Name: name}
}

func TestDateMatches(t *testing.T) {
	tests := []struct {
		iso, text string
		want      bool
	}{
		{"2026-03-05", "5", true},
		{"2026-03-05", "05", true},
		{"2026-03-05", "15", false},
		{"2026-03-05", "March 5, 2026", true},
		{"2026-03-01", "March 15", false},
		{"2026-03-01", "Sunday, March 1, 2026", true},
		{"2026-03-05", "", false},
		{"", "March 5", false},
	}
	for _, tt := range tests {
		t.Run(tt.iso+"/"+tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, DateMatches(tt.iso, tt.text))
		})
	}
}

func TestScore(t *testing.T) {
	t.Run("date cell", func(t *testing.T) {
		in := Intent{Action: "select_date", Date: "2026-03-05"}
		assert.Equal(t, 1.0, Score(ax("1", "gridcell", "March 5, 2026"), in))
		assert.InDelta(t, 0.4, Score(ax("2", "gridcell", "March 15, 2026"), in), 1e-9)
	})

	t.Run("search form", func(t *testing.T) {
		in := Intent{Action: "search_hotels", Location: "Paris"}
		assert.InDelta(t, 0.5, Score(ax("1", "textbox", "Where to?"), in), 1e-9)
		assert.InDelta(t, 0.4, Score(ax("2", "button", "Search"), in), 1e-9)
	})

	t.Run("disabled penalty", func(t *testing.T) {
		el := ax("1", "button", "Paris")
		el.Disabled = true
		assert.InDelta(t, 0.09, Score(el, Intent{Action: "click", Location: "Paris"}), 1e-9)
	})

	t.Run("target words", func(t *testing.T) {
		score := Score(ax("1", "heading", "latest news about space"), Intent{Action: "read", Target: "latest space news"})
		assert.InDelta(t, 0.45, score, 1e-9)
	})
}

func TestMatch_SkipsDisabled(t *testing.T) {
	disabled := ax("1", "button", "Paris")
	disabled.Disabled = true
	tr := tree(disabled, ax("2", "link", "Paris hotels"))

	got, ok := Match(tr, Intent{Action: "click", Location: "Paris"})
	require.True(t, ok)
	assert.Equal(t, "2", got.Element.AXID)
	assert.InDelta(t, 0.9, got.Score, 1e-9)

	ranked := RankCandidates(tr, Intent{Action: "read", Location: "Paris"})
	assert.Len(t, ranked, 2)

	_, ok = Match(tree(ax("1", "generic", "footer")), Intent{Action: "click", Location: "Rome"})
	assert.False(t, ok)
}

func TestMatchByRole(t *testing.T) {
	tr := tree(ax("1", "link", "Home"), ax("2", "link", "Flights to Rome"), ax("3", "button", "Rome"))
	got := MatchByRole(tr, NewSet("link"), []string{"rome", "flights"})
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].Element.AXID)
	assert.InDelta(t, 0.9, got[0].Score, 1e-9)
	assert.InDelta(t, 0.5, got[1].Score, 1e-9)
}

func TestPickBestGuess(t *testing.T) {
	el, ok := PickBestGuess(tree(ax("1", "textbox", "Email"), ax("2", "button", "OK")), Intent{Action: "click"})
	require.True(t, ok)
	assert.Equal(t, "2", el.AXID)

	focused := ax("3", "textbox", "Query")
	focused.Focused = true
	el, ok = PickBestGuess(tree(ax("1", "textbox", "Email"), focused), Intent{Action: "input"})
	require.True(t, ok)
	assert.Equal(t, "3", el.AXID)

	disabled := ax("1", "button", "Off")
	disabled.Disabled = true
	el, ok = PickBestGuess(tree(disabled, ax("2", "link", "About")), Intent{Action: "wander"})
	require.True(t, ok)
	assert.Equal(t, "2", el.AXID)

	_, ok = PickBestGuess(tree(), Intent{Action: "click"})
	assert.False(t, ok)
}

func TestBuildIntent(t *testing.T) {
	plan := schema.ActionPlan{
		Action: "search_flights",
		Entities: schema.Entities{
			"from":        "Berlin",
			"city":        "Lisbon",
			"check_in":    "2026-03-05",
			"date_return": "2026-03-12",
			"position":    "last",
			"latest":      true,
		},
	}
	in := BuildIntent(plan)
	assert.Equal(t, "Berlin", in.Origin)
	assert.Equal(t, "Lisbon", in.Location)
	assert.Equal(t, "2026-03-05", in.Date)
	assert.Equal(t, "2026-03-12", in.DateEnd)
	assert.Equal(t, -1, in.Position)
	assert.True(t, in.Latest)
}

func TestPositionFrom(t *testing.T) {
	assert.Equal(t, 3, PositionFrom(schema.ActionPlan{Entities: schema.Entities{"position": float64(3)}}))
	assert.Equal(t, 2, PositionFrom(schema.ActionPlan{Entities: schema.Entities{"position": "second"}}))
	assert.Equal(t, 4, PositionFrom(schema.ActionPlan{Value: "4", Entities: schema.Entities{}}))
	assert.Equal(t, 1, PositionFrom(schema.ActionPlan{Value: "video", Entities: schema.Entities{}}))
}
