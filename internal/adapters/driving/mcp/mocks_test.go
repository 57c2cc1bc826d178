package mcp

import (
	"context"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

// mockQuestionRunner is a mock implementation of driving.QuestionRunner.
type mockQuestionRunner struct {
	answer *domain.Answer
	err    error
	got    domain.Question
}

func (m *mockQuestionRunner) RunQuestion(_ context.Context, q domain.Question) (*domain.Answer, error) {
	m.got = q
	return m.answer, m.err
}

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	passages []domain.Passage
	err      error
	opts     domain.SearchOptions
}

func (m *mockSearchService) Search(_ context.Context, _ string, opts domain.SearchOptions) ([]domain.Passage, error) {
	m.opts = opts
	return m.passages, m.err
}

// mockHistoryService is a mock implementation of driving.HistoryService.
type mockHistoryService struct {
	runs []domain.RunSummary
	rows map[string][]domain.QuestionResult
	err  error
}

func (m *mockHistoryService) Recent(_ context.Context, _ int) ([]domain.RunSummary, error) {
	return m.runs, m.err
}

func (m *mockHistoryService) Results(_ context.Context, runID string) ([]domain.QuestionResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	rows, ok := m.rows[runID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rows, nil
}

func validPorts() *Ports {
	return &Ports{
		Questions: &mockQuestionRunner{},
		Search:    &mockSearchService{},
	}
}
