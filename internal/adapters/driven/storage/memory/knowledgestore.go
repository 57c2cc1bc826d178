package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
)

// Ensure KnowledgeStore implements the interface.
var _ driven.KnowledgeStore = (*KnowledgeStore)(nil)

// KnowledgeStore is an in-memory implementation of driven.KnowledgeStore.
type KnowledgeStore struct {
	mu         sync.RWMutex
	passages   map[string]domain.Passage
	order      []string
	embeddings map[string][]float32
}

// NewKnowledgeStore creates a new in-memory knowledge store.
func NewKnowledgeStore() *KnowledgeStore {
	return &KnowledgeStore{
		passages:   make(map[string]domain.Passage),
		embeddings: make(map[string][]float32),
	}
}

// SavePassages stores or replaces passages.
func (s *KnowledgeStore) SavePassages(_ context.Context, passages []domain.Passage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range passages {
		if _, ok := s.passages[p.ID]; !ok {
			s.order = append(s.order, p.ID)
		}
		s.passages[p.ID] = p
	}
	return nil
}

// GetPassage retrieves a passage by ID.
func (s *KnowledgeStore) GetPassage(_ context.Context, id string) (*domain.Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.passages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

// GetPassages retrieves passages in the order of ids, skipping unknown ones.
func (s *KnowledgeStore) GetPassages(_ context.Context, ids []string) ([]domain.Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Passage, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.passages[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// CountPassages returns the number of stored passages.
func (s *KnowledgeStore) CountPassages(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.passages), nil
}

// SaveEmbedding stores the embedding of a passage.
func (s *KnowledgeStore) SaveEmbedding(_ context.Context, passageID string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.passages[passageID]; !ok {
		return domain.ErrNotFound
	}
	s.embeddings[passageID] = slices.Clone(embedding)
	return nil
}

// ListEmbeddings calls fn for every stored embedding in insertion order.
func (s *KnowledgeStore) ListEmbeddings(ctx context.Context, fn func(string, []float32) error) error {
	s.mu.RLock()
	ids := slices.Clone(s.order)
	s.mu.RUnlock()

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.mu.RLock()
		vec, ok := s.embeddings[id]
		s.mu.RUnlock()
		if !ok {
			continue
		}
		if err := fn(id, vec); err != nil {
			return err
		}
	}
	return nil
}
