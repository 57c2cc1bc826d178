package domain

import "time"

// QuestionResult is one row of batch output. Every question yields a row,
// including questions whose loop degraded. A question rejected before its
// loop started has Error set and no Termination.
type QuestionResult struct {
	ID          string            `json:"id"`
	Dataset     string            `json:"dataset"`
	Input       string            `json:"input"`
	Prediction  string            `json:"prediction"`
	Label       []string          `json:"label,omitempty"`
	Termination TerminationReason `json:"termination,omitempty"`
	Fallback    bool              `json:"fallback,omitempty"`
	Steps       []StepRecord      `json:"steps"`
	Triples     []Triple          `json:"triples,omitempty"`
	Latency     time.Duration     `json:"latency_ns"`
	Error       string            `json:"error,omitempty"`
}

// NewQuestionResult builds the output row of an answered question.
func NewQuestionResult(q Question, a *Answer, latency time.Duration) QuestionResult {
	return QuestionResult{
		ID:          q.ID,
		Dataset:     q.Dataset,
		Input:       q.Text,
		Prediction:  a.Text,
		Label:       q.Label,
		Termination: a.Termination,
		Fallback:    a.Fallback,
		Steps:       a.Steps,
		Triples:     a.Evidence.Triples,
		Latency:     latency,
	}
}

// RunSummary aggregates the outcome of one dataset run.
type RunSummary struct {
	RunID       string                    `json:"run_id"`
	Dataset     string                    `json:"dataset"`
	Questions   int                       `json:"questions"`
	Answered    int                       `json:"answered"`
	Forced      map[TerminationReason]int `json:"forced,omitempty"`
	Fallbacks   int                       `json:"fallbacks"`
	Errors      int                       `json:"errors"`
	StartedAt   time.Time                 `json:"started_at"`
	CompletedAt time.Time                 `json:"completed_at"`
	OutputPath  string                    `json:"output_path,omitempty"`
}

// Record folds one result into the summary.
func (s *RunSummary) Record(r QuestionResult) {
	s.Questions++
	if r.Error != "" {
		s.Errors++
		return
	}
	if r.Fallback {
		s.Fallbacks++
	}
	if r.Termination == TerminationAnswered {
		s.Answered++
		return
	}
	if s.Forced == nil {
		s.Forced = make(map[TerminationReason]int)
	}
	s.Forced[r.Termination]++
}
