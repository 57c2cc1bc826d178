package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
)

type stubLLM struct {
	driven.LLMService
	out    string
	err    error
	prompt string
	got    driven.Prompt
}

func (s *stubLLM) Complete(_ context.Context, p driven.Prompt) (driven.Completion, error) {
	s.prompt = p.User
	s.got = p
	return driven.Completion{Text: s.out}, s.err
}

type mapPrompts map[string]string

func (m mapPrompts) Load(name string) (string, error) {
	p, ok := m[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

func (m mapPrompts) Reload() {}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(nil, mapPrompts{})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)

	_, err = New(&stubLLM{}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExtract(t *testing.T) {
	llm := &stubLLM{out: `(Jaws, directed by, Steven Spielberg), (Jaws, released in, 1975), (broken`}
	ex, err := New(llm, mapPrompts{driven.PromptTripleExtraction: "Extract triples.\n%s\nTriples:"})
	require.NoError(t, err)

	triples, err := ex.Extract(context.Background(), domain.Passage{ID: "p1", Title: "Jaws", Text: "Jaws is a 1975 film."})

	require.NoError(t, err)
	assert.Equal(t, []domain.Triple{
		{Subject: "Jaws", Predicate: "directed by", Object: "Steven Spielberg"},
		{Subject: "Jaws", Predicate: "released in", Object: "1975"},
	}, triples)
	assert.Equal(t, "Extract triples.\nJaws\nJaws is a 1975 film.\nTriples:", llm.prompt)
	assert.Equal(t, DefaultMaxTokens, llm.got.MaxTokens)
}

func TestExtract_Errors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		llm     *stubLLM
		prompts mapPrompts
		target  error
	}{
		{name: "missing prompt", llm: &stubLLM{}, prompts: mapPrompts{}, target: domain.ErrNotFound},
		{name: "prompt without placeholder", llm: &stubLLM{}, prompts: mapPrompts{driven.PromptTripleExtraction: "no slot"}, target: domain.ErrInvalidInput},
		{name: "llm failure", llm: &stubLLM{err: boom}, prompts: mapPrompts{driven.PromptTripleExtraction: "%s"}, target: boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, err := New(tt.llm, tt.prompts)
			require.NoError(t, err)

			_, err = ex.Extract(context.Background(), domain.Passage{ID: "p1", Text: "x"})
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestExtract_UnparseableCompletionYieldsNothing(t *testing.T) {
	ex, err := New(&stubLLM{out: "I could not find any facts."}, mapPrompts{driven.PromptTripleExtraction: "%s"})
	require.NoError(t, err)

	triples, err := ex.Extract(context.Background(), domain.Passage{ID: "p1", Text: "x"})
	require.NoError(t, err)
	assert.Empty(t, triples)
}
