package services

import "github.com/custodia-labs/ras-cli/internal/core/domain"

// FrozenPolicy is the fixed retrieve, extract, answer rhythm: each hop
// retrieves, then extracts up to extractPerHop of the hop's passages, until
// maxHops retrievals have been made. It keeps no state between calls.
type FrozenPolicy struct {
	maxHops       int
	extractPerHop int
}

func (f *FrozenPolicy) decide(q domain.Question, s *domain.EvidenceState) domain.Decision {
	failure, failed := s.LastFailure()

	if p, ok := nextPassage(s, f.extractPerHop); ok {
		return domain.Extract(p)
	}

	// After a failed retrieval the evidence gathered so far is answered
	// from; a failed first retrieval is retried once and the orchestrator
	// stops a second identical failure.
	if failed && failure.Kind == domain.DecisionRetrieve && s.HopCount() > 0 {
		return domain.AnswerNow()
	}
	if s.HopCount() < f.maxHops {
		return domain.Retrieve(composeQuery(q, s))
	}
	return domain.AnswerNow()
}

// nextPassage picks the highest ranked passage of the latest hop that has
// not been extracted, skipping passages whose extraction failed since the
// last successful step.
func nextPassage(s *domain.EvidenceState, perHop int) (domain.Passage, bool) {
	if s.ExtractedInLastHop() >= perHop {
		return domain.Passage{}, false
	}
	for _, p := range s.PendingPassages() {
		if s.FailedSinceProgress(domain.DecisionExtract, p.ID) {
			continue
		}
		return p, true
	}
	return domain.Passage{}, false
}
