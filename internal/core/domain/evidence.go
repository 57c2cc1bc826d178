package domain

import "strings"

// Hop records one successful retrieval and what it contributed.
type Hop struct {
	// Query is the retrieval query.
	Query string `json:"query"`

	// PassageIDs lists the passages returned, in rank order.
	PassageIDs []string `json:"passage_ids"`

	// Triples lists triples first seen while extracting this hop's passages.
	Triples []Triple `json:"triples,omitempty"`
}

// Failure marks a failed leaf call. It is visible to the planner on the
// next decision so it can choose a different action.
type Failure struct {
	Step   int          `json:"step"`
	Kind   DecisionKind `json:"kind"`
	Target string       `json:"target,omitempty"` // failed query or passage ID
	Error  string       `json:"error"`
}

// EvidenceState is the evidence accumulated by one reasoning loop. It is
// owned by a single loop and is not safe for concurrent use.
//
// The step counter never decreases, the triple set never shrinks, and
// passages keep retrieval order. A passage retrieved twice keeps its first
// position.
type EvidenceState struct {
	passages    []Passage
	passageIdx  map[string]int
	triples     *TripleSet
	steps       int
	hops        []Hop
	extracted   map[string]int // passage -> hop index at extraction
	failures    []Failure
	lastFailure *Failure
	failStreak  int
	failedFrom  int // index into failures of the first failure since the last success
}

// NewEvidenceState creates an empty state.
func NewEvidenceState() *EvidenceState {
	return &EvidenceState{
		passageIdx: make(map[string]int),
		triples:    NewTripleSet(),
		extracted:  make(map[string]int),
	}
}

// Steps returns the number of successful evidence steps.
func (s *EvidenceState) Steps() int {
	return s.steps
}

// PassageCount returns the number of distinct passages.
func (s *EvidenceState) PassageCount() int {
	return len(s.passages)
}

// TripleCount returns the number of distinct triples.
func (s *EvidenceState) TripleCount() int {
	return s.triples.Len()
}

// Passages returns a copy of the passages in retrieval order.
func (s *EvidenceState) Passages() []Passage {
	out := make([]Passage, len(s.passages))
	copy(out, s.passages)
	return out
}

// Triples returns a copy of the triples in extraction order.
func (s *EvidenceState) Triples() []Triple {
	return s.triples.Items()
}

// HopCount returns the number of successful retrievals.
func (s *EvidenceState) HopCount() int {
	return len(s.hops)
}

// Hops returns a copy of the hop records.
func (s *EvidenceState) Hops() []Hop {
	return copyHops(s.hops)
}

// LastHop returns the most recent hop.
func (s *EvidenceState) LastHop() (Hop, bool) {
	if len(s.hops) == 0 {
		return Hop{}, false
	}
	return copyHops(s.hops[len(s.hops)-1:])[0], true
}

// IsExtracted reports whether the passage has been through the extractor.
func (s *EvidenceState) IsExtracted(passageID string) bool {
	_, ok := s.extracted[passageID]
	return ok
}

// PendingPassages returns the latest hop's passages that have not been
// extracted yet, in rank order.
func (s *EvidenceState) PendingPassages() []Passage {
	if len(s.hops) == 0 {
		return nil
	}
	var out []Passage
	for _, id := range s.hops[len(s.hops)-1].PassageIDs {
		if s.IsExtracted(id) {
			continue
		}
		if i, ok := s.passageIdx[id]; ok {
			out = append(out, s.passages[i])
		}
	}
	return out
}

// ExtractedInLastHop counts extractions performed since the latest
// retrieval. Passages extracted in an earlier hop do not count.
func (s *EvidenceState) ExtractedInLastHop() int {
	if len(s.hops) == 0 {
		return 0
	}
	last := len(s.hops) - 1
	n := 0
	for _, hop := range s.extracted {
		if hop == last {
			n++
		}
	}
	return n
}

// AddRetrieval appends a retrieval result as a new hop, counts one step
// and returns the number of passages not seen before.
func (s *EvidenceState) AddRetrieval(query string, passages []Passage) int {
	hop := Hop{Query: query, PassageIDs: make([]string, 0, len(passages))}
	added := 0
	for _, p := range passages {
		hop.PassageIDs = append(hop.PassageIDs, p.ID)
		if _, ok := s.passageIdx[p.ID]; ok {
			continue
		}
		s.passageIdx[p.ID] = len(s.passages)
		s.passages = append(s.passages, p)
		added++
	}
	s.hops = append(s.hops, hop)
	s.succeed()
	return added
}

// AddExtraction merges triples extracted from a passage, counts one step
// and returns the triples that were new. New triples are attributed to
// the latest hop.
func (s *EvidenceState) AddExtraction(passageID string, triples []Triple) []Triple {
	s.extracted[passageID] = len(s.hops) - 1
	added := s.triples.Merge(triples)
	if len(s.hops) > 0 && len(added) > 0 {
		last := &s.hops[len(s.hops)-1]
		last.Triples = append(last.Triples, added...)
	}
	s.succeed()
	return added
}

func (s *EvidenceState) succeed() {
	s.steps++
	s.lastFailure = nil
	s.failStreak = 0
	s.failedFrom = len(s.failures)
}

// RecordFailure sets the failure marker and returns how many times in a
// row the same action has failed without evidence changing in between.
// Two failures are the same action when both kind and target match.
func (s *EvidenceState) RecordFailure(step int, d Decision, err error) int {
	kind := d.Kind
	f := Failure{Step: step, Kind: kind, Target: d.Query}
	if kind == DecisionExtract {
		f.Target = d.Passage.ID
	}
	if err != nil {
		f.Error = err.Error()
	}
	if s.lastFailure != nil && s.lastFailure.Kind == kind && s.lastFailure.Target == f.Target {
		s.failStreak++
	} else {
		s.failStreak = 1
	}
	s.failures = append(s.failures, f)
	s.lastFailure = &f
	return s.failStreak
}

// FailedSinceProgress reports whether the action failed after the most
// recent successful step.
func (s *EvidenceState) FailedSinceProgress(kind DecisionKind, target string) bool {
	for _, f := range s.failures[s.failedFrom:] {
		if f.Kind == kind && f.Target == target {
			return true
		}
	}
	return false
}

// LastFailure returns the failure marker, if the previous dispatch failed.
func (s *EvidenceState) LastFailure() (Failure, bool) {
	if s.lastFailure == nil {
		return Failure{}, false
	}
	return *s.lastFailure, true
}

// StalledRetrievals counts the most recent hops, newest first, that
// contributed no new triples.
func (s *EvidenceState) StalledRetrievals() int {
	n := 0
	for i := len(s.hops) - 1; i >= 0; i-- {
		if len(s.hops[i].Triples) > 0 {
			break
		}
		n++
	}
	return n
}

// Stats summarises the state for decision policies and stop rules.
func (s *EvidenceState) Stats(q Question) EvidenceStats {
	st := EvidenceStats{
		Steps:             s.steps,
		Hops:              len(s.hops),
		Passages:          len(s.passages),
		Triples:           s.triples.Len(),
		Pending:           len(s.PendingPassages()),
		ExtractedInHop:    s.ExtractedInLastHop(),
		StalledRetrievals: s.StalledRetrievals(),
		QuestionWords:     len(strings.Fields(q.Text)),
	}
	if len(s.hops) > 0 {
		st.LastHopTriples = len(s.hops[len(s.hops)-1].Triples)
	}
	if s.lastFailure != nil {
		st.FailedRetrieve = s.lastFailure.Kind == DecisionRetrieve
		st.FailedExtract = s.lastFailure.Kind == DecisionExtract
	}
	return st
}

// EvidenceStats is a read-only numeric view of an EvidenceState.
type EvidenceStats struct {
	Steps             int
	Hops              int
	Passages          int
	Triples           int
	Pending           int
	LastHopTriples    int
	ExtractedInHop    int
	StalledRetrievals int
	FailedRetrieve    bool
	FailedExtract     bool
	QuestionWords     int
}

// Snapshot returns an immutable copy for auditing.
func (s *EvidenceState) Snapshot() EvidenceSnapshot {
	failures := make([]Failure, len(s.failures))
	copy(failures, s.failures)
	return EvidenceSnapshot{
		Steps:    s.steps,
		Passages: s.Passages(),
		Triples:  s.Triples(),
		Hops:     s.Hops(),
		Failures: failures,
	}
}

// EvidenceSnapshot is a point-in-time copy of an EvidenceState.
type EvidenceSnapshot struct {
	Steps    int       `json:"steps"`
	Passages []Passage `json:"passages"`
	Triples  []Triple  `json:"triples"`
	Hops     []Hop     `json:"hops"`
	Failures []Failure `json:"failures,omitempty"`
}

func copyHops(hops []Hop) []Hop {
	out := make([]Hop, len(hops))
	for i, h := range hops {
		out[i] = Hop{
			Query:      h.Query,
			PassageIDs: append([]string(nil), h.PassageIDs...),
			Triples:    append([]Triple(nil), h.Triples...),
		}
	}
	return out
}
