package services

import (
	"strings"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

// maxBridgeTerms bounds the entities appended to a follow-up query.
const maxBridgeTerms = 3

// composeQuery builds the next retrieval query. The first hop searches for
// the question itself; later hops append the objects of triples found in
// the previous hop that the question does not already mention, which
// carries bridge entities into the next retrieval.
func composeQuery(q domain.Question, s *domain.EvidenceState) string {
	base := q.SubQuestion()
	last, ok := s.LastHop()
	if !ok {
		return base
	}

	lowerQ := strings.ToLower(base)
	seen := make(map[string]struct{})
	var terms []string
	for _, t := range last.Triples {
		obj := strings.TrimSpace(t.Object)
		key := strings.ToLower(obj)
		if obj == "" || strings.Contains(lowerQ, key) {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		terms = append(terms, obj)
		if len(terms) == maxBridgeTerms {
			break
		}
	}
	if len(terms) == 0 {
		return base
	}
	return base + " " + strings.Join(terms, " ")
}
