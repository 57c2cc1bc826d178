package domain

import "time"

// TerminationReason explains how a reasoning loop ended.
type TerminationReason string

// Available termination reasons.
const (
	// TerminationAnswered means the planner chose to answer.
	TerminationAnswered TerminationReason = "answered"

	// TerminationStepBudget means the step budget forced the answer.
	TerminationStepBudget TerminationReason = "step_budget_exhausted"

	// TerminationTimeBudget means the question timeout forced the answer.
	TerminationTimeBudget TerminationReason = "time_budget_exhausted"

	// TerminationRepeatedFailure means the same action failed twice in a row.
	TerminationRepeatedFailure TerminationReason = "repeated_step_failure"
)

// IsForced returns true if the loop did not end by the planner's choice.
func (r TerminationReason) IsForced() bool {
	return r != TerminationAnswered
}

// IsBudgetExhausted returns true for step and time budget terminations.
func (r TerminationReason) IsBudgetExhausted() bool {
	return r == TerminationStepBudget || r == TerminationTimeBudget
}

// String returns the string representation.
func (r TerminationReason) String() string {
	return string(r)
}

// StepRecord is the audit entry for one dispatched decision.
type StepRecord struct {
	// Index is the zero-based position of the decision in the loop.
	Index int `json:"index"`

	// Decision is the dispatched decision kind.
	Decision DecisionKind `json:"decision"`

	// Query is set for retrievals.
	Query string `json:"query,omitempty"`

	// PassageID is set for extractions.
	PassageID string `json:"passage_id,omitempty"`

	// Forced is set when the orchestrator overrode the planner.
	Forced bool `json:"forced,omitempty"`

	// StartedAt is when the leaf call was dispatched.
	StartedAt time.Time `json:"started_at"`

	// Latency is the wall time of the leaf call.
	Latency time.Duration `json:"latency_ns"`

	// Error is set when the leaf call failed.
	Error string `json:"error,omitempty"`
}

// Answer is the terminal output of one reasoning loop.
type Answer struct {
	// QuestionID identifies the answered question.
	QuestionID string `json:"question_id"`

	// Text is the answer, bounded by the question's max length.
	Text string `json:"text"`

	// Termination explains how the loop ended.
	Termination TerminationReason `json:"termination"`

	// Fallback is set when the text was synthesised from evidence
	// because the answer generator failed.
	Fallback bool `json:"fallback,omitempty"`

	// Evidence is the state that produced the answer.
	Evidence EvidenceSnapshot `json:"evidence"`

	// Steps is the ordered decision trace.
	Steps []StepRecord `json:"steps"`
}

// Decisions returns the kinds of all dispatched decisions in order.
func (a *Answer) Decisions() []DecisionKind {
	out := make([]DecisionKind, len(a.Steps))
	for i, s := range a.Steps {
		out[i] = s.Decision
	}
	return out
}
