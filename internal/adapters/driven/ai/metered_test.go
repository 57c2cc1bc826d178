package ai

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
)

type scriptedLLM struct {
	driven.LLMService
	out driven.Completion
	err error
}

func (s *scriptedLLM) Complete(context.Context, driven.Prompt) (driven.Completion, error) {
	return s.out, s.err
}

func (s *scriptedLLM) ModelName() string { return "scripted" }

func TestMeteredLLM_CountsUsage(t *testing.T) {
	next := &scriptedLLM{out: driven.Completion{Text: "x", InputTokens: 10, OutputTokens: 3}}
	m := NewMeteredLLM(next, "extractor")

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Complete(context.Background(), driven.Prompt{User: "p"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, Usage{Calls: 8, InputTokens: 80, OutputTokens: 24}, m.Usage())
	assert.Equal(t, "extractor", m.Stage())
	assert.Equal(t, "scripted", m.ModelName())
}

func TestMeteredLLM_FailuresAndTruncation(t *testing.T) {
	next := &scriptedLLM{err: errors.New("boom")}
	m := NewMeteredLLM(next, "answerer")

	_, err := m.Complete(context.Background(), driven.Prompt{})
	require.Error(t, err)

	next.err = nil
	next.out = driven.Completion{Text: "Colu", Truncated: true, OutputTokens: 1}
	out, err := m.Complete(context.Background(), driven.Prompt{})
	require.NoError(t, err)
	assert.True(t, out.Truncated)

	assert.Equal(t, Usage{Calls: 2, Failures: 1, Truncated: 1, OutputTokens: 1}, m.Usage())
}
