package tracing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
)

func sampleTrace() driven.QuestionTrace {
	t0 := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return driven.QuestionTrace{
		RunID:    "run-1",
		Question: domain.Question{ID: "q1", Dataset: "hotpotqa", Text: "Where?"},
		Mode:     domain.RetrievalHybrid,
		Policy:   "frozen",
		Answer: &domain.Answer{
			QuestionID:  "q1",
			Text:        "Cincinnati",
			Termination: domain.TerminationStepBudget,
			Steps: []domain.StepRecord{
				{Index: 0, Decision: domain.DecisionRetrieve, Query: "Where?", StartedAt: t0, Latency: 10 * time.Millisecond},
				{Index: 1, Decision: domain.DecisionExtract, PassageID: "p1", StartedAt: t0.Add(10 * time.Millisecond),
					Latency: 5 * time.Millisecond, Error: "llm down"},
				{Index: 2, Decision: domain.DecisionAnswer, Forced: true, StartedAt: t0.Add(15 * time.Millisecond),
					Latency: 20 * time.Millisecond},
			},
		},
	}
}

func TestRecorder_RecordQuestion(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	rec := NewWithExporter(exp)

	rec.RecordQuestion(context.Background(), sampleTrace())

	// The in-memory exporter drops its spans on shutdown, so read them first.
	spans := exp.GetSpans()
	require.NoError(t, rec.Shutdown(context.Background()))
	require.Len(t, spans, 4)

	byName := map[string]tracetest.SpanStub{}
	for _, s := range spans {
		byName[s.Name] = s
	}
	root, ok := byName["ras.question"]
	require.True(t, ok)
	assert.Equal(t, codes.Error, root.Status.Code)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), root.StartTime.UTC())
	assert.Equal(t, 35*time.Millisecond, root.EndTime.Sub(root.StartTime))

	attrs := map[string]string{}
	for _, kv := range root.Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "run-1", attrs["ras.run_id"])
	assert.Equal(t, "step_budget_exhausted", attrs["ras.termination"])
	assert.Equal(t, "hybrid", attrs["ras.retrieval_mode"])

	extract := byName["ras.step.extract"]
	assert.Equal(t, codes.Error, extract.Status.Code)
	assert.Equal(t, "llm down", extract.Status.Description)
	assert.Equal(t, root.SpanContext.SpanID(), extract.Parent.SpanID())
	assert.Equal(t, root.SpanContext.TraceID(), byName["ras.step.answer"].SpanContext.TraceID())
}

func TestRecorder_AnsweredIsOK(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	rec := NewWithExporter(exp)

	tr := sampleTrace()
	tr.Answer.Termination = domain.TerminationAnswered
	tr.Answer.Steps = nil
	rec.RecordQuestion(context.Background(), tr)

	spans := exp.GetSpans()
	require.NoError(t, rec.Shutdown(context.Background()))
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
}

func TestRecorder_NilAnswerIsIgnored(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	rec := NewWithExporter(exp)

	rec.RecordQuestion(context.Background(), driven.QuestionTrace{RunID: "r"})

	assert.Empty(t, exp.GetSpans())
}

func TestNew_RequiresEndpoint(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestNew_CreatesExporter(t *testing.T) {
	rec, err := New(context.Background(), Config{Endpoint: "localhost:4318", Insecure: true, Version: "test"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	// Nothing was recorded, so shutdown has nothing to send.
	assert.NoError(t, rec.Shutdown(ctx))
}
