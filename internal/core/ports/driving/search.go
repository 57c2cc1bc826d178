package driving

import (
	"context"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

// SearchService provides knowledge search to external actors.
type SearchService interface {
	// Search returns ranked passages for a query from a knowledge source.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.Passage, error)
}

// IndexService imports passages into a knowledge source.
type IndexService interface {
	// Import stores passages and, when an embedding service is configured,
	// their embeddings. It returns the number of passages imported.
	Import(ctx context.Context, passages []domain.Passage) (int, error)
}
