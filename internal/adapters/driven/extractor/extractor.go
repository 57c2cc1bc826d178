// Package extractor turns passages into triples with an LLM.
package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ras-cli/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.TripleExtractor = (*Extractor)(nil)

// DefaultMaxTokens bounds the extractor completion.
const DefaultMaxTokens = 512

var log = logger.New("extractor")

// Extractor prompts an LLM with one passage and parses the
// "(s, p, o), (s, p, o)" completion.
type Extractor struct {
	llm       driven.LLMService
	prompts   driven.PromptStore
	maxTokens int
}

// New creates an extractor. The prompt template must contain one %s
// placeholder for the passage.
func New(llm driven.LLMService, prompts driven.PromptStore) (*Extractor, error) {
	if llm == nil {
		return nil, fmt.Errorf("%w: extractor needs an LLM service", domain.ErrLLMUnavailable)
	}
	if prompts == nil {
		return nil, fmt.Errorf("%w: extractor needs a prompt store", domain.ErrInvalidInput)
	}
	return &Extractor{llm: llm, prompts: prompts, maxTokens: DefaultMaxTokens}, nil
}

// Extract returns the triples stated by passage. An unparseable completion
// yields no triples rather than an error.
func (e *Extractor) Extract(ctx context.Context, passage domain.Passage) ([]domain.Triple, error) {
	template, err := e.prompts.Load(driven.PromptTripleExtraction)
	if err != nil {
		return nil, fmt.Errorf("load extraction prompt: %w", err)
	}
	if strings.Count(template, "%s") != 1 {
		return nil, fmt.Errorf("%w: extraction prompt must contain exactly one %%s", domain.ErrInvalidInput)
	}

	out, err := e.llm.Complete(ctx, driven.Prompt{
		User:      fmt.Sprintf(template, passage.Content()),
		MaxTokens: e.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", passage.ID, err)
	}
	if out.Truncated {
		// The trailing triple is cut off and dropped by the parser.
		log.Debug("extraction truncated", "passage", passage.ID)
	}

	triples := domain.ParseTriples(out.Text)
	log.Debug("extracted", "passage", passage.ID, "triples", len(triples))
	return triples, nil
}
