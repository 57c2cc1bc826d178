package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

type fixedStopRule struct {
	stop bool
	seen []domain.EvidenceStats
}

func (r *fixedStopRule) Name() string { return "fixed" }

func (r *fixedStopRule) ShouldStop(st domain.EvidenceStats) bool {
	r.seen = append(r.seen, st)
	return r.stop
}

func TestPlanner_Decide_DoesNotMutateState(t *testing.T) {
	planner := NewPlanner(NewFrozenPolicy(2, 1), nil)
	q := question("q", "Who directed Jaws?")
	s := domain.NewEvidenceState()
	s.AddRetrieval("Who directed Jaws?", passagesOf("p1", "p2"))
	before := s.Snapshot()

	_ = planner.Decide(q, s)

	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, 1, s.Steps())
}

func TestPlanner_StopRuleConvertsRetrieve(t *testing.T) {
	q := question("q", "Who directed Jaws?")

	rule := &fixedStopRule{stop: true}
	planner := NewPlanner(NewFrozenPolicy(3, 1), rule)

	// The first retrieval is never stopped.
	empty := domain.NewEvidenceState()
	assert.Equal(t, domain.DecisionRetrieve, planner.Decide(q, empty).Kind)
	assert.Empty(t, rule.seen)

	s := domain.NewEvidenceState()
	s.AddRetrieval("Who directed Jaws?", passagesOf("p1"))
	s.AddExtraction("p1", nil)
	assert.Equal(t, domain.DecisionAnswer, planner.Decide(q, s).Kind)
	assert.Len(t, rule.seen, 1)
	assert.Equal(t, 1, rule.seen[0].Hops)
}

func TestPlanner_StopRuleIgnoresExtract(t *testing.T) {
	rule := &fixedStopRule{stop: true}
	planner := NewPlanner(NewFrozenPolicy(3, 1), rule)
	s := domain.NewEvidenceState()
	s.AddRetrieval("q", passagesOf("p1"))

	d := planner.Decide(question("q", "Who?"), s)

	assert.Equal(t, domain.DecisionExtract, d.Kind)
	assert.Empty(t, rule.seen)
}

func TestPlanner_ZeroPolicyAnswers(t *testing.T) {
	planner := NewPlanner(PlannerPolicy{}, nil)
	assert.Equal(t, domain.DecisionAnswer, planner.Decide(question("q", "Who?"), domain.NewEvidenceState()).Kind)
}

func TestStallStopRule(t *testing.T) {
	rule := StallStopRule{PassageThreshold: 20}

	assert.False(t, rule.ShouldStop(domain.EvidenceStats{Passages: 20, StalledRetrievals: 2}))
	assert.False(t, rule.ShouldStop(domain.EvidenceStats{Passages: 21, StalledRetrievals: 1}))
	assert.True(t, rule.ShouldStop(domain.EvidenceStats{Passages: 21, StalledRetrievals: 2}))
	assert.Equal(t, "stall(passages>20)", rule.Name())
}

func TestComposeQuery(t *testing.T) {
	q := question("q", "  Where was the director of Jaws born? ")

	s := domain.NewEvidenceState()
	assert.Equal(t, "Where was the director of Jaws born?", composeQuery(q, s))

	s.AddRetrieval("q", passagesOf("p1", "p2"))
	s.AddExtraction("p1", []domain.Triple{
		{Subject: "Jaws", Predicate: "directed by", Object: "Steven Spielberg"},
		{Subject: "Jaws", Predicate: "is a", Object: "jaws"},
		{Subject: "Jaws", Predicate: "released", Object: "1975"},
		{Subject: "Jaws", Predicate: "based on", Object: "Jaws (novel)"},
		{Subject: "Jaws", Predicate: "score by", Object: "John Williams"},
	})

	assert.Equal(t,
		"Where was the director of Jaws born? Steven Spielberg 1975 Jaws (novel)",
		composeQuery(q, s),
	)
}
