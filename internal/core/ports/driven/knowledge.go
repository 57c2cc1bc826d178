package driven

import (
	"context"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

// KnowledgeStore persists the passages of one knowledge source.
// Reads must be safe for concurrent use.
type KnowledgeStore interface {
	// SavePassages stores or replaces passages.
	SavePassages(ctx context.Context, passages []domain.Passage) error

	// GetPassage retrieves a passage by ID.
	// Returns domain.ErrNotFound if absent.
	GetPassage(ctx context.Context, id string) (*domain.Passage, error)

	// GetPassages retrieves passages by ID, preserving the order of ids and
	// skipping unknown ones.
	GetPassages(ctx context.Context, ids []string) ([]domain.Passage, error)

	// CountPassages returns the number of stored passages.
	CountPassages(ctx context.Context) (int, error)

	// SaveEmbedding stores the embedding of a passage.
	SaveEmbedding(ctx context.Context, passageID string, embedding []float32) error

	// ListEmbeddings calls fn for every stored embedding.
	ListEmbeddings(ctx context.Context, fn func(passageID string, embedding []float32) error) error
}
