// Package answerer produces the final answer of a reasoning loop with an LLM.
package answerer

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ras-cli/internal/logger"
)

// Ensure Answerer implements the interface.
var _ driven.AnswerGenerator = (*Answerer)(nil)

// charsPerToken converts a character budget into a completion limit.
const charsPerToken = 3

var log = logger.New("answerer")

// Answerer renders the evidence as one block per retrieval hop and asks an
// LLM for the answer:
//
//	<instruction>
//	[SUBQ] <hop query>
//	Retrieved Graph Information: (s, p, o), ...
//	Question: <question>
type Answerer struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	unit    domain.LengthUnit
}

// New creates an answerer. unit selects how maxLength converts into the
// completion token limit.
func New(llm driven.LLMService, prompts driven.PromptStore, unit domain.LengthUnit) (*Answerer, error) {
	if llm == nil {
		return nil, fmt.Errorf("%w: answerer needs an LLM service", domain.ErrLLMUnavailable)
	}
	if prompts == nil {
		return nil, fmt.Errorf("%w: answerer needs a prompt store", domain.ErrInvalidInput)
	}
	if !unit.IsValid() {
		return nil, domain.NewConfigurationError("length_unit", string(unit), "must be chars or tokens")
	}
	return &Answerer{llm: llm, prompts: prompts, unit: unit}, nil
}

// Answer generates the answer text. Bounding to maxLength is left to the
// caller, which knows the exact length unit; the completion limit here
// only keeps the model from running on.
func (a *Answerer) Answer(ctx context.Context, q domain.Question, evidence domain.EvidenceSnapshot, maxLength int) (string, error) {
	instruction, err := a.prompts.Load(driven.PromptAnswerer)
	if err != nil {
		return "", fmt.Errorf("load answerer prompt: %w", err)
	}

	prompt := BuildInput(instruction, q, evidence)
	log.Debug("answer prompt", "question", q.ID, "hops", len(evidence.Hops), "chars", len(prompt))

	out, err := a.llm.Complete(ctx, driven.Prompt{
		User:      prompt,
		MaxTokens: a.maxTokens(maxLength),
	})
	if err != nil {
		return "", fmt.Errorf("answer %s: %w", q.ID, err)
	}
	if out.Truncated {
		log.Warn("answer hit the completion limit", "question", q.ID, "max_tokens", a.maxTokens(maxLength))
	}
	text := strings.TrimSpace(out.Text)
	if text == "" {
		return "", fmt.Errorf("answer %s: %w", q.ID, domain.ErrEmptyAnswer)
	}
	return text, nil
}

func (a *Answerer) maxTokens(maxLength int) int {
	if a.unit == domain.LengthUnitTokens {
		return maxLength
	}
	return maxLength/charsPerToken + 1
}

// BuildInput renders the answerer input. Hops that produced no triples are
// left out; without any the input is the instruction and the question.
// Claim and multiple-choice datasets show the question itself in place of
// the hop query.
func BuildInput(instruction string, q domain.Question, evidence domain.EvidenceSnapshot) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(instruction))
	b.WriteString("\n")
	for _, hop := range evidence.Hops {
		if len(hop.Triples) == 0 {
			continue
		}
		b.WriteString("[SUBQ] ")
		b.WriteString(subQuery(q, hop))
		b.WriteString("\nRetrieved Graph Information: ")
		b.WriteString(domain.FormatTriples(hop.Triples))
		b.WriteString("\n")
	}
	b.WriteString(q.QuestionHeader())
	b.WriteString(q.AnswerPrompt())
	return b.String()
}

func subQuery(q domain.Question, hop domain.Hop) string {
	switch q.Dataset {
	case domain.DatasetPubHealth, domain.DatasetARCChallenge:
		return q.SubQuestion()
	}
	return strings.TrimSpace(hop.Query)
}
