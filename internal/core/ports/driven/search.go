package driven

import (
	"context"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

// SearchEngine provides full-text search over passages.
type SearchEngine interface {
	// Index adds or updates a passage in the search index.
	Index(ctx context.Context, passage domain.Passage) error

	// Delete removes a passage from the search index.
	Delete(ctx context.Context, passageID string) error

	// Search performs a keyword search and returns matching passage IDs with scores.
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)

	// Close releases resources.
	Close() error
}

// SearchHit represents a search result from the engine.
type SearchHit struct {
	// PassageID is the matched passage.
	PassageID string

	// Score is the relevance score. Higher is better.
	Score float64
}
