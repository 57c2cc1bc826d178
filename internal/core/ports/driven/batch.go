package driven

import (
	"context"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

// DatasetLoader reads the questions of a dataset.
type DatasetLoader interface {
	// Load returns the dataset's questions with maxAnswerLength applied.
	// Returns domain.ErrNotFound if the dataset does not exist.
	Load(ctx context.Context, dataset string, maxAnswerLength int) ([]domain.Question, error)
}

// ResultWriter writes the result rows of one dataset run.
type ResultWriter interface {
	// Write stores results and returns where they were written.
	Write(ctx context.Context, dataset string, results []domain.QuestionResult) (string, error)
}

// ResultStore keeps the history of runs.
type ResultStore interface {
	// SaveRun stores a run summary and its result rows.
	SaveRun(ctx context.Context, summary domain.RunSummary, results []domain.QuestionResult) error

	// ListRuns returns the most recent run summaries, newest first.
	ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)

	// GetResults returns the result rows of a run.
	GetResults(ctx context.Context, runID string) ([]domain.QuestionResult, error)
}

// TraceRecorder exports the trace of a finished reasoning loop.
type TraceRecorder interface {
	RecordQuestion(ctx context.Context, trace QuestionTrace)
}

// QuestionTrace is the timing record of one reasoning loop.
type QuestionTrace struct {
	RunID    string
	Question domain.Question
	Answer   *domain.Answer
	Mode     domain.RetrievalMode
	Policy   string
}
