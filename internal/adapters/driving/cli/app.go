package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ras-cli/internal/adapters/driven/ai"
	"github.com/custodia-labs/ras-cli/internal/adapters/driven/answerer"
	"github.com/custodia-labs/ras-cli/internal/adapters/driven/cache"
	"github.com/custodia-labs/ras-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ras-cli/internal/adapters/driven/dataset"
	"github.com/custodia-labs/ras-cli/internal/adapters/driven/extractor"
	"github.com/custodia-labs/ras-cli/internal/adapters/driven/length"
	"github.com/custodia-labs/ras-cli/internal/adapters/driven/results"
	"github.com/custodia-labs/ras-cli/internal/adapters/driven/stoprule"
	"github.com/custodia-labs/ras-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ras-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ras-cli/internal/adapters/driven/tracing"
	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driving"
	"github.com/custodia-labs/ras-cli/internal/core/services"
	"github.com/custodia-labs/ras-cli/internal/logger"
)

const (
	// retrievalCacheSize is the number of query results kept per run.
	retrievalCacheSize = 4096

	// tracingShutdownTimeout bounds the final span flush.
	tracingShutdownTimeout = 5 * time.Second

	historyFile = "history.db"
)

// Builders used by the commands. Tests replace them with fakes.
var (
	openPipeline = buildPipeline
	openSearch   = buildSearch
	openIndex    = buildIndex
	openHistory  = buildHistory
)

// batchRunner is a driving.BatchRunner that reports progress.
type batchRunner interface {
	driving.BatchRunner
	SetObserver(o services.ProgressObserver)
}

// Pipeline holds the services that answer questions. Close releases them
// in reverse order of creation.
type Pipeline struct {
	Questions driving.QuestionRunner
	Search    driving.SearchService
	History   driving.HistoryService
	Batch     batchRunner

	closers []func() error
}

func (p *Pipeline) onClose(fn func() error) {
	p.closers = append(p.closers, fn)
}

// Close releases every resource of the pipeline.
func (p *Pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			logger.Warn("close", "error", err)
		}
	}
	p.closers = nil
}

// buildPipeline wires the reasoning loop. The planner policy is loaded
// before any model is contacted so a bad checkpoint fails fast.
func buildPipeline(ctx context.Context, s *domain.RunSettings) (_ *Pipeline, err error) {
	p := &Pipeline{}
	defer func() {
		if err != nil {
			p.Close()
		}
	}()

	policy, err := services.LoadPolicy(s.Planner)
	if err != nil {
		return nil, err
	}
	stop, err := newStopRule(s.Planner)
	if err != nil {
		return nil, err
	}
	planner := services.NewPlanner(policy, stop)

	models, err := ai.NewServices(ctx, s)
	if err != nil {
		return nil, err
	}
	p.onClose(func() error { models.Close(); return nil })

	kb, err := openKnowledge(ctx, s.Knowledge, models.Embedding)
	if err != nil {
		return nil, err
	}
	p.onClose(kb.Close)

	retrieval, err := services.NewRetrievalService(
		services.RetrievalConfig{Source: s.Knowledge.Source, Mode: s.RetrievalMode, TopK: s.Knowledge.TopK},
		kb.store.KnowledgeStore(), kb.store.SearchEngine(), kb.vectorIndex(), models.Embedding,
	)
	if err != nil {
		return nil, err
	}
	p.Search = retrieval
	retriever, err := cache.NewRetriever(retrieval, retrievalCacheSize)
	if err != nil {
		return nil, err
	}

	prompts, err := file.NewPromptStore("")
	if err != nil {
		return nil, err
	}
	watchCtx, stopWatch := context.WithCancel(context.Background())
	p.onClose(func() error { stopWatch(); return nil })
	if _, err := prompts.Watch(watchCtx); err != nil {
		logger.Warn("prompt hot reload disabled", "error", err)
	}

	tripleExtractor, err := extractor.New(models.Extractor, prompts)
	if err != nil {
		return nil, err
	}
	answerGenerator, err := answerer.New(models.Answerer, prompts, s.LengthUnit)
	if err != nil {
		return nil, err
	}
	bounder, err := length.New(s.LengthUnit)
	if err != nil {
		return nil, err
	}

	orchestrator, err := services.NewOrchestrator(planner, retriever, tripleExtractor, answerGenerator, bounder,
		services.OrchestratorConfig{
			Source:          s.Knowledge.Source,
			Mode:            retrieval.Mode(),
			TopK:            s.Knowledge.TopK,
			StepBudget:      s.Limits.StepBudget,
			QuestionTimeout: s.Limits.QuestionTimeout,
			FinalizeTimeout: s.Limits.FinalizeTimeout,
			RunID:           uuid.NewString(),
		})
	if err != nil {
		return nil, err
	}
	if s.Tracing.Endpoint != "" {
		recorder, err := tracing.New(ctx, tracing.Config{
			Endpoint: s.Tracing.Endpoint,
			Insecure: s.Tracing.Insecure,
			Version:  version,
		})
		if err != nil {
			return nil, err
		}
		orchestrator.SetTraceRecorder(recorder)
		p.onClose(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
			defer cancel()
			return recorder.Shutdown(ctx)
		})
	}
	p.Questions = orchestrator

	history, err := openHistoryStore()
	if err != nil {
		return nil, err
	}
	p.onClose(history.Close)
	p.History = services.NewHistoryService(history.ResultStore())

	batch, err := services.NewBatchRunner(orchestrator, dataset.NewLoader(s.DataDir), results.NewWriter(s.OutputDir),
		services.BatchConfig{
			MaxAnswerLength: s.MaxAnswerLength,
			Concurrency:     s.Limits.Concurrency,
			NewID:           uuid.NewString,
		})
	if err != nil {
		return nil, err
	}
	batch.SetResultStore(history.ResultStore())
	p.Batch = batch
	return p, nil
}

func newStopRule(s domain.PlannerSettings) (driven.StopRule, error) {
	if s.StopRule != "" {
		return stoprule.NewCEL(s.StopRule)
	}
	return services.StallStopRule{PassageThreshold: s.StallPassageThreshold}, nil
}

// knowledgeBase is an opened knowledge source. Stored embeddings are
// loaded into an in-memory vector index when an embedding model is set.
type knowledgeBase struct {
	store   *sqlite.Store
	vectors *memory.VectorIndex
}

func (kb *knowledgeBase) vectorIndex() driven.VectorIndex {
	if kb.vectors == nil {
		return nil
	}
	return kb.vectors
}

func (kb *knowledgeBase) Close() error {
	if kb.vectors != nil {
		kb.vectors.Close()
	}
	return kb.store.Close()
}

func openKnowledge(ctx context.Context, k domain.KnowledgeSettings, embedding driven.EmbeddingService) (*knowledgeBase, error) {
	if k.Source == "" {
		return nil, domain.NewConfigurationError("knowledge_source", "", "is required")
	}
	store, err := sqlite.OpenKnowledgeSource(k.Path, k.Source)
	if err != nil {
		return nil, err
	}
	kb := &knowledgeBase{store: store}
	if embedding == nil {
		return kb, nil
	}

	kb.vectors = memory.NewVectorIndex(embedding.Dimensions())
	err = store.KnowledgeStore().ListEmbeddings(ctx, func(id string, vec []float32) error {
		return kb.vectors.Add(ctx, id, vec)
	})
	if err != nil {
		kb.Close()
		return nil, fmt.Errorf("load embeddings: %w", err)
	}
	logger.Info("vector index loaded", "source", k.Source, "vectors", kb.vectors.Len())
	return kb, nil
}

func openHistoryStore() (*sqlite.Store, error) {
	home, err := file.HomeDir()
	if err != nil {
		return nil, err
	}
	return sqlite.Open(filepath.Join(home, "data", historyFile))
}

// buildSearch opens a knowledge source for direct search. Only the
// embedding model is contacted.
func buildSearch(ctx context.Context, s *domain.RunSettings) (driving.SearchService, func(), error) {
	embedding, err := optionalEmbedding(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	kb, err := openKnowledge(ctx, s.Knowledge, embedding)
	if err != nil {
		closeEmbedding(embedding)
		return nil, nil, err
	}
	closeAll := func() {
		kb.Close()
		closeEmbedding(embedding)
	}
	retrieval, err := services.NewRetrievalService(
		services.RetrievalConfig{Source: s.Knowledge.Source, Mode: s.RetrievalMode, TopK: s.Knowledge.TopK},
		kb.store.KnowledgeStore(), kb.store.SearchEngine(), kb.vectorIndex(), embedding,
	)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return retrieval, closeAll, nil
}

// buildIndex opens or creates a knowledge source for import.
func buildIndex(ctx context.Context, s *domain.RunSettings) (driving.IndexService, func(), error) {
	if s.Knowledge.Source == "" {
		return nil, nil, domain.NewConfigurationError("knowledge_source", "", "is required")
	}
	embedding, err := optionalEmbedding(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	store, err := sqlite.OpenKnowledgeSource(s.Knowledge.Path, s.Knowledge.Source)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Info("creating knowledge source", "source", s.Knowledge.Source, "path", s.Knowledge.Path)
		store, err = sqlite.Open(sqlite.KnowledgeSourcePath(s.Knowledge.Path, s.Knowledge.Source))
	}
	if err != nil {
		closeEmbedding(embedding)
		return nil, nil, err
	}
	closeAll := func() {
		store.Close()
		closeEmbedding(embedding)
	}
	svc := services.NewIndexService(s.Knowledge.Source, store.KnowledgeStore(), store.SearchEngine(), nil, embedding)
	return svc, closeAll, nil
}

func buildHistory(_ context.Context) (driving.HistoryService, func(), error) {
	store, err := openHistoryStore()
	if err != nil {
		return nil, nil, err
	}
	return services.NewHistoryService(store.ResultStore()), func() { store.Close() }, nil
}

// optionalEmbedding connects to the embedding model when one is configured.
func optionalEmbedding(ctx context.Context, s *domain.RunSettings) (driven.EmbeddingService, error) {
	if !s.Embedding.IsConfigured() {
		return nil, nil
	}
	return ai.CreateAndValidateEmbeddingService(ctx, &s.Embedding)
}

func closeEmbedding(e driven.EmbeddingService) {
	if e != nil {
		e.Close()
	}
}
