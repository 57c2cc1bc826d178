package ai

import (
	"context"
	"sync/atomic"

	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
)

var _ driven.LLMService = (*MeteredLLM)(nil)

// Usage is a snapshot of the calls made through a MeteredLLM.
type Usage struct {
	Calls        int64
	Failures     int64
	Truncated    int64
	InputTokens  int64
	OutputTokens int64
}

// MeteredLLM counts calls and token usage of one pipeline stage.
// It is safe for concurrent use.
type MeteredLLM struct {
	next  driven.LLMService
	stage string

	calls, failures, truncated atomic.Int64
	input, output              atomic.Int64
}

// NewMeteredLLM wraps next, attributing its usage to stage.
func NewMeteredLLM(next driven.LLMService, stage string) *MeteredLLM {
	return &MeteredLLM{next: next, stage: stage}
}

// Complete delegates and records the outcome.
func (m *MeteredLLM) Complete(ctx context.Context, prompt driven.Prompt) (driven.Completion, error) {
	m.calls.Add(1)
	out, err := m.next.Complete(ctx, prompt)
	if err != nil {
		m.failures.Add(1)
		return out, err
	}
	if out.Truncated {
		m.truncated.Add(1)
	}
	m.input.Add(int64(out.InputTokens))
	m.output.Add(int64(out.OutputTokens))
	return out, nil
}

// Stage returns the stage name.
func (m *MeteredLLM) Stage() string { return m.stage }

// Usage returns the counters so far.
func (m *MeteredLLM) Usage() Usage {
	return Usage{
		Calls:        m.calls.Load(),
		Failures:     m.failures.Load(),
		Truncated:    m.truncated.Load(),
		InputTokens:  m.input.Load(),
		OutputTokens: m.output.Load(),
	}
}

// ModelName returns the wrapped model name.
func (m *MeteredLLM) ModelName() string { return m.next.ModelName() }

// Ping is not metered.
func (m *MeteredLLM) Ping(ctx context.Context) error { return m.next.Ping(ctx) }

// Close closes the wrapped service.
func (m *MeteredLLM) Close() error { return m.next.Close() }
