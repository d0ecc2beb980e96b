package matcher

// Set is a set of strings: element ids, tags or roles.
type Set map[string]struct{}

// Exclusion holds element ids already bound to a form field.
type Exclusion = Set

func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}

// Add inserts item. Adding to a nil set is a no-op.
func (s Set) Add(item string) {
	if s != nil {
		s[item] = struct{}{}
	}
}

func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for k := range s {
		out[k] = struct{}{}
	}
	for k := range other {
		out[k] = struct{}{}
	}
	return out
}
