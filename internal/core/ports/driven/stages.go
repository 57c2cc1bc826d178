package driven

import (
	"context"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

// Retriever returns ranked passages from a knowledge source. The retrieval
// mode is resolved by the implementation; callers only choose the query.
type Retriever interface {
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.Passage, error)
}

// TripleExtractor converts one passage into triples.
type TripleExtractor interface {
	Extract(ctx context.Context, passage domain.Passage) ([]domain.Triple, error)
}

// AnswerGenerator produces the final answer from accumulated evidence.
// The result must not exceed maxLength in the configured length unit.
type AnswerGenerator interface {
	Answer(ctx context.Context, question domain.Question, evidence domain.EvidenceSnapshot, maxLength int) (string, error)
}

// LengthBounder measures and truncates text in one length unit.
type LengthBounder interface {
	// Unit returns the unit lengths are expressed in.
	Unit() domain.LengthUnit

	// Measure returns the length of text.
	Measure(text string) int

	// Bound truncates text to at most limit units.
	Bound(text string, limit int) string
}
