package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

type limitRecordingStore struct {
	fakeResultStore
	limit int
}

func (s *limitRecordingStore) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	s.limit = limit
	return s.fakeResultStore.ListRuns(ctx, limit)
}

func TestHistoryService_RecentDefaultsLimit(t *testing.T) {
	store := &limitRecordingStore{}
	h := NewHistoryService(store)

	_, err := h.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultHistoryLimit, store.limit)

	_, err = h.Recent(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, store.limit)
}

func TestHistoryService_ResultsRequiresRunID(t *testing.T) {
	h := NewHistoryService(&fakeResultStore{})

	_, err := h.Results(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
