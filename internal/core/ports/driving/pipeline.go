package driving

import (
	"context"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
)

// QuestionRunner answers one question through the reasoning loop.
type QuestionRunner interface {
	// RunQuestion always returns an answer for a valid question unless ctx
	// is cancelled. Leaf failures degrade the answer instead of failing.
	RunQuestion(ctx context.Context, question domain.Question) (*domain.Answer, error)
}

// BatchRunner processes whole datasets.
type BatchRunner interface {
	// Run processes every question of each dataset and returns one summary
	// per dataset.
	Run(ctx context.Context, datasets []string) ([]domain.RunSummary, error)
}
