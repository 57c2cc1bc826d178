package services

import (
	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ras-cli/internal/logger"
)

// Planner maps a question and its evidence to exactly one Decision using
// the active policy. A Planner holds no per-question state and is safe
// for concurrent use.
type Planner struct {
	policy PlannerPolicy
	stop   driven.StopRule
}

// NewPlanner creates a planner. stop may be nil to disable early stopping.
func NewPlanner(policy PlannerPolicy, stop driven.StopRule) *Planner {
	return &Planner{policy: policy, stop: stop}
}

// Policy returns the active policy.
func (p *Planner) Policy() PlannerPolicy {
	return p.policy
}

// Decide returns the next decision. It reads the state and never mutates
// it or the policy.
func (p *Planner) Decide(q domain.Question, s *domain.EvidenceState) domain.Decision {
	var d domain.Decision
	switch p.policy.kind {
	case PolicyFrozen:
		d = p.policy.frozen.decide(q, s)
	case PolicyTrainable:
		d = p.policy.trainable.decide(q, s)
	default:
		d = domain.AnswerNow()
	}

	if d.Kind == domain.DecisionRetrieve && p.stop != nil && s.HopCount() > 0 {
		if p.stop.ShouldStop(s.Stats(q)) {
			logger.Debug("stop rule fired", "rule", p.stop.Name(), "question", q.ID, "passages", s.PassageCount())
			return domain.AnswerNow()
		}
	}
	return d
}
