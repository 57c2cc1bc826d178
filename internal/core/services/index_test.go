package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ras-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

func TestIndexService_Import(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKnowledgeStore()
	search := &mockSearchEngine{}
	vectors := &mockVectorIndex{}
	svc := NewIndexService("wiki", store, search, vectors, &mockEmbeddingService{embedding: []float32{0.5, 0.5}})

	n, err := svc.Import(ctx, []domain.Passage{
		{ID: "p1", Text: "first version"},
		{ID: " ", Text: "no id"},
		{ID: "p2", Text: "   "},
		{ID: "p3", Text: "third", Score: 9},
		{ID: "p1", Text: "second version"},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, n)

	p1, err := store.GetPassage(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "second version", p1.Text)
	assert.Equal(t, "wiki", p1.Source)

	p3, err := store.GetPassage(ctx, "p3")
	require.NoError(t, err)
	assert.Zero(t, p3.Score)

	assert.ElementsMatch(t, []string{"p1", "p3"}, search.indexed)
	assert.Equal(t, 2, vectors.Len())

	var embedded []string
	require.NoError(t, store.ListEmbeddings(ctx, func(id string, _ []float32) error {
		embedded = append(embedded, id)
		return nil
	}))
	assert.Equal(t, []string{"p1", "p3"}, embedded)
}

func TestIndexService_Import_ManyBatches(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKnowledgeStore()
	vectors := &mockVectorIndex{}
	svc := NewIndexService("wiki", store, nil, vectors, &mockEmbeddingService{embedding: []float32{1}})

	passages := make([]domain.Passage, embedBatchSize*3+5)
	for i := range passages {
		passages[i] = domain.Passage{ID: fmt.Sprintf("p%03d", i), Text: "text"}
	}

	n, err := svc.Import(ctx, passages)

	require.NoError(t, err)
	assert.Equal(t, len(passages), n)
	assert.Equal(t, len(passages), vectors.Len())
}

func TestIndexService_Import_WithoutEmbeddings(t *testing.T) {
	store := memory.NewKnowledgeStore()
	svc := NewIndexService("wiki", store, &mockSearchEngine{}, nil, nil)

	n, err := svc.Import(context.Background(), passagesOf("p1"))

	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIndexService_Import_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing usable", func(t *testing.T) {
		svc := NewIndexService("wiki", memory.NewKnowledgeStore(), nil, nil, nil)
		_, err := svc.Import(ctx, []domain.Passage{{ID: "p1"}})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("index failure", func(t *testing.T) {
		boom := errors.New("disk full")
		svc := NewIndexService("wiki", memory.NewKnowledgeStore(), &mockSearchEngine{indexErr: boom}, nil, nil)
		_, err := svc.Import(ctx, passagesOf("p1"))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("embedding failure", func(t *testing.T) {
		svc := NewIndexService("wiki", memory.NewKnowledgeStore(), nil, &mockVectorIndex{},
			&mockEmbeddingService{embedErr: domain.ErrEmbeddingUnavailable})
		_, err := svc.Import(ctx, passagesOf("p1"))
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})

	t.Run("short embedding batch", func(t *testing.T) {
		svc := NewIndexService("wiki", memory.NewKnowledgeStore(), nil, &mockVectorIndex{},
			&mockEmbeddingService{embedding: []float32{1}, short: true})
		_, err := svc.Import(ctx, passagesOf("p1", "p2"))
		assert.Error(t, err)
	})
}
