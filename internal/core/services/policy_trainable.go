package services

import (
	"math"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

// TrainablePolicy scores each decision kind with a linear model over
// evidence features loaded from a checkpoint. Its parameters are never
// written after construction.
type TrainablePolicy struct {
	model         string
	features      []string
	weights       map[domain.DecisionKind][]float64
	bias          map[domain.DecisionKind]float64
	extractPerHop int
}

func (t *TrainablePolicy) decide(q domain.Question, s *domain.EvidenceState) domain.Decision {
	stats := s.Stats(q)
	x := featureVector(t.features, stats)
	passage, canExtract := nextPassage(s, t.extractPerHop)

	best := domain.DecisionAnswer
	bestScore := math.Inf(-1)
	for _, kind := range domain.AllDecisionKinds() {
		if kind == domain.DecisionExtract && !canExtract {
			continue
		}
		score := t.score(kind, x)
		if score > bestScore {
			best, bestScore = kind, score
		}
	}

	switch best {
	case domain.DecisionExtract:
		return domain.Extract(passage)
	case domain.DecisionRetrieve:
		return domain.Retrieve(composeQuery(q, s))
	default:
		return domain.AnswerNow()
	}
}

func (t *TrainablePolicy) score(kind domain.DecisionKind, x []float64) float64 {
	w := t.weights[kind]
	sum := t.bias[kind]
	for i := range x {
		sum += w[i] * x[i]
	}
	return sum
}

// Scores returns the per-decision scores for a state, for inspection.
func (t *TrainablePolicy) Scores(q domain.Question, s *domain.EvidenceState) map[domain.DecisionKind]float64 {
	x := featureVector(t.features, s.Stats(q))
	out := make(map[domain.DecisionKind]float64, len(t.weights))
	for kind := range t.weights {
		out[kind] = t.score(kind, x)
	}
	return out
}

// featureVector evaluates the named features. Counts that grow without
// bound are log-scaled.
func featureVector(names []string, st domain.EvidenceStats) []float64 {
	x := make([]float64, len(names))
	for i, name := range names {
		x[i] = featureValue(name, st)
	}
	return x
}

func featureValue(name string, st domain.EvidenceStats) float64 {
	switch name {
	case domain.FeatureBias:
		return 1
	case domain.FeatureSteps:
		return float64(st.Steps)
	case domain.FeatureHops:
		return float64(st.Hops)
	case domain.FeaturePassages:
		return math.Log1p(float64(st.Passages))
	case domain.FeatureTriples:
		return math.Log1p(float64(st.Triples))
	case domain.FeaturePending:
		return indicator(st.Pending > 0)
	case domain.FeatureLastHopTriples:
		return math.Log1p(float64(st.LastHopTriples))
	case domain.FeatureExtractedInHop:
		return float64(st.ExtractedInHop)
	case domain.FeatureFailedRetrieve:
		return indicator(st.FailedRetrieve)
	case domain.FeatureFailedExtract:
		return indicator(st.FailedExtract)
	case domain.FeatureQuestionLength:
		return math.Log1p(float64(st.QuestionWords))
	case domain.FeatureStalledRetrieve:
		return float64(st.StalledRetrievals)
	default:
		return 0
	}
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
