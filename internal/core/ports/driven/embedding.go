package driven

import "context"

// EmbeddingService turns passages and queries into vectors for the
// VectorIndex. It is optional: without one, dense_only retrieval is
// rejected and hybrid falls back to keyword search.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the vector length. Every vector in an index shares it.
	Dimensions() int

	ModelName() string

	// Ping checks the provider is reachable without embedding anything.
	Ping(ctx context.Context) error

	Close() error
}
