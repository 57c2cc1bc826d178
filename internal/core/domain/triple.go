package domain

import "strings"

// Triple is a (subject, predicate, object) fact. Triples are values:
// two triples with equal fields are the same fact.
type Triple struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// String renders the triple in the extractor wire format.
func (t Triple) String() string {
	return "(" + t.Subject + ", " + t.Predicate + ", " + t.Object + ")"
}

// IsValid returns true if every field is non-empty.
func (t Triple) IsValid() bool {
	return t.Subject != "" && t.Predicate != "" && t.Object != ""
}

// FormatTriples renders triples as a comma separated list.
func FormatTriples(triples []Triple) string {
	parts := make([]string, len(triples))
	for i, t := range triples {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// ParseTriples parses "(s, p, o), (s, p, o)" text. Parenthesised text
// inside a field is kept, a trailing unclosed triple is accepted, and
// malformed or duplicate entries are dropped.
func ParseTriples(text string) []Triple {
	var (
		out   []Triple
		seen  = make(map[Triple]struct{})
		depth int
		start = -1
	)
	add := func(seg string) {
		t, ok := parseTriple(seg)
		if !ok {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for i, r := range text {
		switch r {
		case '(':
			if depth == 0 {
				start = i + 1
			}
			depth++
		case ')':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				add(text[start:i])
				start = -1
			}
		}
	}
	if depth > 0 && start >= 0 {
		add(text[start:])
	}
	return out
}

func parseTriple(seg string) (Triple, bool) {
	fields := strings.SplitN(seg, ",", 3)
	if len(fields) != 3 {
		return Triple{}, false
	}
	t := Triple{
		Subject:   cleanField(fields[0]),
		Predicate: cleanField(fields[1]),
		Object:    cleanField(fields[2]),
	}
	return t, t.IsValid()
}

func cleanField(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}

// TripleSet is an insertion-ordered set of triples. It only grows.
type TripleSet struct {
	order []Triple
	index map[Triple]struct{}
}

// NewTripleSet creates an empty set.
func NewTripleSet() *TripleSet {
	return &TripleSet{index: make(map[Triple]struct{})}
}

// Add inserts t and reports whether it was new.
func (s *TripleSet) Add(t Triple) bool {
	if !t.IsValid() {
		return false
	}
	if _, ok := s.index[t]; ok {
		return false
	}
	s.index[t] = struct{}{}
	s.order = append(s.order, t)
	return true
}

// Merge adds every triple and returns the ones that were new.
func (s *TripleSet) Merge(triples []Triple) []Triple {
	var added []Triple
	for _, t := range triples {
		if s.Add(t) {
			added = append(added, t)
		}
	}
	return added
}

// Contains reports membership.
func (s *TripleSet) Contains(t Triple) bool {
	_, ok := s.index[t]
	return ok
}

// Len returns the number of triples.
func (s *TripleSet) Len() int {
	return len(s.order)
}

// Items returns a copy of the triples in insertion order.
func (s *TripleSet) Items() []Triple {
	out := make([]Triple, len(s.order))
	copy(out, s.order)
	return out
}
