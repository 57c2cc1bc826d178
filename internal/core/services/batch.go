package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driving"
	"github.com/custodia-labs/ras-cli/internal/logger"
)

// Ensure BatchRunner implements the interface.
var _ driving.BatchRunner = (*BatchRunner)(nil)

// BatchConfig configures dataset processing.
type BatchConfig struct {
	// MaxAnswerLength is applied to every loaded question.
	MaxAnswerLength int

	// Concurrency is the number of questions in flight. Zero uses GOMAXPROCS.
	Concurrency int

	// NewID generates run IDs.
	NewID func() string
}

// ProgressObserver receives batch progress. Calls for one dataset are
// serialised; QuestionDone may arrive in any question order.
type ProgressObserver interface {
	DatasetStarted(dataset string, total int)
	QuestionDone(result domain.QuestionResult)
	DatasetDone(summary domain.RunSummary)
}

// BatchRunner loads datasets and runs their questions concurrently through
// a QuestionRunner. Every question yields exactly one result row.
type BatchRunner struct {
	runner   driving.QuestionRunner
	loader   driven.DatasetLoader
	writer   driven.ResultWriter
	store    driven.ResultStore
	observer ProgressObserver
	cfg      BatchConfig
	log      *slog.Logger
}

// NewBatchRunner creates a batch runner.
func NewBatchRunner(
	runner driving.QuestionRunner,
	loader driven.DatasetLoader,
	writer driven.ResultWriter,
	cfg BatchConfig,
) (*BatchRunner, error) {
	switch {
	case runner == nil:
		return nil, fmt.Errorf("%w: question runner is required", domain.ErrInvalidInput)
	case loader == nil:
		return nil, fmt.Errorf("%w: dataset loader is required", domain.ErrInvalidInput)
	case writer == nil:
		return nil, fmt.Errorf("%w: result writer is required", domain.ErrInvalidInput)
	case cfg.NewID == nil:
		return nil, fmt.Errorf("%w: run ID generator is required", domain.ErrInvalidInput)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.GOMAXPROCS(0)
	}
	return &BatchRunner{
		runner: runner,
		loader: loader,
		writer: writer,
		cfg:    cfg,
		log:    logger.New("batch"),
	}, nil
}

// SetResultStore sets the optional run history store.
func (b *BatchRunner) SetResultStore(store driven.ResultStore) {
	b.store = store
}

// SetObserver sets the optional progress observer.
func (b *BatchRunner) SetObserver(o ProgressObserver) {
	b.observer = o
}

// Run processes each dataset in turn. It stops at the first dataset that
// cannot be loaded or written, or when ctx is cancelled; summaries of the
// datasets completed so far are returned with the error.
func (b *BatchRunner) Run(ctx context.Context, datasets []string) ([]domain.RunSummary, error) {
	if len(datasets) == 0 {
		return nil, domain.NewConfigurationError("dataset", "", "at least one dataset is required")
	}
	summaries := make([]domain.RunSummary, 0, len(datasets))
	for _, dataset := range datasets {
		summary, err := b.runDataset(ctx, dataset)
		if err != nil {
			return summaries, fmt.Errorf("dataset %s: %w", dataset, err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (b *BatchRunner) runDataset(ctx context.Context, dataset string) (domain.RunSummary, error) {
	summary := domain.RunSummary{
		RunID:     b.cfg.NewID(),
		Dataset:   dataset,
		StartedAt: time.Now(),
	}

	questions, err := b.loader.Load(ctx, dataset, b.cfg.MaxAnswerLength)
	if err != nil {
		return summary, fmt.Errorf("load: %w", err)
	}
	b.log.Info("dataset loaded", "dataset", dataset, "questions", len(questions), "run", summary.RunID)
	if b.observer != nil {
		b.observer.DatasetStarted(dataset, len(questions))
	}

	results, err := b.runQuestions(WithRunID(ctx, summary.RunID), questions)
	if err != nil {
		return summary, err
	}

	for _, r := range results {
		summary.Record(r)
	}
	summary.CompletedAt = time.Now()

	path, err := b.writer.Write(ctx, dataset, results)
	if err != nil {
		return summary, fmt.Errorf("write results: %w", err)
	}
	summary.OutputPath = path

	if b.store != nil {
		if err := b.store.SaveRun(ctx, summary, results); err != nil {
			b.log.Warn("run history not saved", "run", summary.RunID, "error", err)
		}
	}
	if b.observer != nil {
		b.observer.DatasetDone(summary)
	}
	b.log.Info("dataset finished",
		"dataset", dataset,
		"questions", summary.Questions,
		"answered", summary.Answered,
		"fallbacks", summary.Fallbacks,
		"errors", summary.Errors,
		"output", path,
	)
	return summary, nil
}

// runQuestions answers questions with bounded concurrency. Results keep
// input order. A question error that is not fatal becomes an error row.
func (b *BatchRunner) runQuestions(ctx context.Context, questions []domain.Question) ([]domain.QuestionResult, error) {
	results := make([]domain.QuestionResult, len(questions))
	done := make(chan domain.QuestionResult)
	observed := make(chan struct{})
	go func() {
		defer close(observed)
		for r := range done {
			if b.observer != nil {
				b.observer.QuestionDone(r)
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Concurrency)
	for i, q := range questions {
		g.Go(func() error {
			start := time.Now()
			answer, err := b.runner.RunQuestion(gctx, q)
			latency := time.Since(start)
			if err != nil {
				if IsFatal(err) || gctx.Err() != nil {
					return err
				}
				b.log.Warn("question failed", "question", q.ID, "error", err)
				results[i] = errorResult(q, err, latency)
			} else {
				results[i] = domain.NewQuestionResult(q, answer, latency)
			}
			done <- results[i]
			return nil
		})
	}
	err := g.Wait()
	close(done)
	<-observed

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return results, nil
}

func errorResult(q domain.Question, err error, latency time.Duration) domain.QuestionResult {
	return domain.QuestionResult{
		ID:      q.ID,
		Dataset: q.Dataset,
		Input:   q.Text,
		Label:   q.Label,
		Steps:   []domain.StepRecord{},
		Latency: latency,
		Error:   err.Error(),
	}
}
