package matcher

import (
	"strconv"
	"strings"

	"github.com/rahul/vcaa/internal/schema"
)

// Intent is the matching view of an ActionPlan. Position is 1-based, -1
// means last and 0 means none was requested.
type Intent struct {
	Action   string
	Target   string
	Value    string
	Date     string
	DateEnd  string
	Location string
	Origin   string
	Position int
	Latest   bool
}

var positionWords = map[string]int{
	"first":  1,
	"second": 2,
	"third":  3,
	"fourth": 4,
	"fifth":  5,
	"last":   -1,
}

// BuildIntent normalises the entity aliases planners and LLMs produce.
func BuildIntent(p schema.ActionPlan) Intent {
	e := p.Entities
	in := Intent{
		Action:   p.Action,
		Target:   p.Target,
		Value:    p.Value,
		Date:     e.First("date", "date_start", "check_in"),
		DateEnd:  e.First("date_end", "date_return", "check_out"),
		Location: e.First("destination", "location", "city"),
		Origin:   e.First("origin", "from"),
		Latest:   e.Bool("latest"),
	}
	if pos, ok := e.Int("position"); ok {
		in.Position = pos
	} else if word := strings.ToLower(e.String("position")); word != "" {
		in.Position = positionWords[word]
	}
	return in
}

// PositionFrom reads a click position from the plan entities, then from its
// value. It returns 1 when neither holds a number.
func PositionFrom(p schema.ActionPlan) int {
	if pos, ok := p.Entities.Int("position"); ok && pos != 0 {
		return pos
	}
	if pos, ok := positionWords[strings.ToLower(p.Entities.String("position"))]; ok {
		return pos
	}
	if pos, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil && pos != 0 {
		return pos
	}
	return 1
}
