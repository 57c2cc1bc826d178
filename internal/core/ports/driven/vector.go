package driven

import "context"

// VectorIndex is a cosine similarity index over passage embeddings.
// Search may run concurrently with itself; Add and Delete take a write lock.
type VectorIndex interface {
	// Add stores the vector of passageID, replacing an earlier one.
	Add(ctx context.Context, passageID string, embedding []float32) error
	Delete(ctx context.Context, passageID string) error

	// Search returns at most k hits, most similar first.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	Len() int
	Close() error
}

// VectorHit is one Search result.
type VectorHit struct {
	PassageID  string
	Similarity float64
}
