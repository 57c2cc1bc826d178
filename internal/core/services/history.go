package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driving"
)

// Ensure HistoryService implements the interface.
var _ driving.HistoryService = (*HistoryService)(nil)

// DefaultHistoryLimit is used when Recent is called without a limit.
const DefaultHistoryLimit = 20

// HistoryService serves run history from a ResultStore.
type HistoryService struct {
	store driven.ResultStore
}

// NewHistoryService creates a history service.
func NewHistoryService(store driven.ResultStore) *HistoryService {
	return &HistoryService{store: store}
}

// Recent returns the latest run summaries.
func (h *HistoryService) Recent(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	runs, err := h.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Results returns the rows of one run.
func (h *HistoryService) Results(ctx context.Context, runID string) ([]domain.QuestionResult, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, fmt.Errorf("%w: run id is required", domain.ErrInvalidInput)
	}
	rows, err := h.store.GetResults(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return rows, nil
}
