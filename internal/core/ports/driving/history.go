package driving

import (
	"context"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

// HistoryService reads past batch runs.
type HistoryService interface {
	// Recent returns up to limit run summaries, newest first.
	Recent(ctx context.Context, limit int) ([]domain.RunSummary, error)

	// Results returns the rows of one run.
	// Returns domain.ErrNotFound for an unknown run.
	Results(ctx context.Context, runID string) ([]domain.QuestionResult, error)
}
