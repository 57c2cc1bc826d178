package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driving"
	"github.com/custodia-labs/ras-cli/internal/logger"
)

// Ensure Orchestrator implements the interface.
var _ driving.QuestionRunner = (*Orchestrator)(nil)

// Defaults applied when OrchestratorConfig leaves a field zero.
const (
	DefaultStepBudget      = 10
	DefaultFinalizeTimeout = 30 * time.Second

	// failureLimit is the number of consecutive failures of one action
	// after which the loop is forced to answer.
	failureLimit = 2

	unknownAnswer = "unknown"
)

// OrchestratorConfig configures the reasoning loop.
type OrchestratorConfig struct {
	// Source is the knowledge source retrievals are served from.
	Source string

	// Mode is the retrieval mode passed to the retriever.
	Mode domain.RetrievalMode

	// TopK is the number of passages per retrieval.
	TopK int

	// StepBudget is the maximum number of decisions per question,
	// the final Answer included.
	StepBudget int

	// QuestionTimeout wraps one loop. Zero disables it.
	QuestionTimeout time.Duration

	// FinalizeTimeout bounds the forced answer after a timeout.
	FinalizeTimeout time.Duration

	// RunID tags exported traces when ctx carries none. See WithRunID.
	RunID string
}

// Orchestrator drives the per-question reasoning loop. It is safe for
// concurrent use: each RunQuestion owns its own evidence state.
type Orchestrator struct {
	planner   *Planner
	retriever driven.Retriever
	extractor driven.TripleExtractor
	answerer  driven.AnswerGenerator
	bounder   driven.LengthBounder
	tracer    driven.TraceRecorder
	cfg       OrchestratorConfig
	log       *slog.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(
	planner *Planner,
	retriever driven.Retriever,
	extractor driven.TripleExtractor,
	answerer driven.AnswerGenerator,
	bounder driven.LengthBounder,
	cfg OrchestratorConfig,
) (*Orchestrator, error) {
	switch {
	case planner == nil:
		return nil, fmt.Errorf("%w: planner is required", domain.ErrInvalidInput)
	case retriever == nil:
		return nil, fmt.Errorf("%w: retriever is required", domain.ErrInvalidInput)
	case extractor == nil:
		return nil, fmt.Errorf("%w: triple extractor is required", domain.ErrInvalidInput)
	case answerer == nil:
		return nil, fmt.Errorf("%w: answer generator is required", domain.ErrInvalidInput)
	case bounder == nil:
		return nil, fmt.Errorf("%w: length bounder is required", domain.ErrInvalidInput)
	}
	if cfg.StepBudget <= 0 {
		cfg.StepBudget = DefaultStepBudget
	}
	if cfg.FinalizeTimeout <= 0 {
		cfg.FinalizeTimeout = DefaultFinalizeTimeout
	}
	if cfg.TopK <= 0 {
		cfg.TopK = domain.DefaultTopK
	}
	return &Orchestrator{
		planner:   planner,
		retriever: retriever,
		extractor: extractor,
		answerer:  answerer,
		bounder:   bounder,
		cfg:       cfg,
		log:       logger.New("orchestrator"),
	}, nil
}

// SetTraceRecorder sets the recorder that receives every finished loop.
func (o *Orchestrator) SetTraceRecorder(r driven.TraceRecorder) {
	o.tracer = r
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() OrchestratorConfig {
	return o.cfg
}

// RunQuestion answers one question. It returns an error only for an
// invalid question or a cancelled ctx; leaf failures, the step budget and
// the question timeout all degrade to a forced answer.
func (o *Orchestrator) RunQuestion(ctx context.Context, q domain.Question) (*domain.Answer, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loopCtx, cancel := ctx, context.CancelFunc(func() {})
	if o.cfg.QuestionTimeout > 0 {
		loopCtx, cancel = context.WithTimeout(ctx, o.cfg.QuestionTimeout)
	}
	defer cancel()

	logger.Section("Question " + q.ID)
	o.log.Debug("question started", "question", q.ID, "dataset", q.Dataset, "policy", o.planner.Policy().String())

	run := &questionRun{question: q, state: domain.NewEvidenceState()}
	for index := 0; ; index++ {
		if loopCtx.Err() != nil {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			finalCtx, cancelFinal := context.WithTimeout(ctx, o.cfg.FinalizeTimeout)
			answer, err := o.answer(finalCtx, ctx, run, index, domain.TerminationTimeBudget)
			cancelFinal()
			return answer, err
		}

		d := o.planner.Decide(q, run.state)
		if d.Kind == domain.DecisionAnswer {
			return o.answer(loopCtx, ctx, run, index, domain.TerminationAnswered)
		}
		if index >= o.cfg.StepBudget-1 {
			o.log.Debug("step budget reached", "question", q.ID, "budget", o.cfg.StepBudget, "overridden", d.Kind)
			return o.answer(loopCtx, ctx, run, index, domain.TerminationStepBudget)
		}

		err := o.dispatch(loopCtx, run, index, d)
		if err == nil || loopCtx.Err() != nil {
			continue
		}
		if streak := run.state.RecordFailure(index, d, err); streak >= failureLimit {
			o.log.Warn("repeated step failure", "question", q.ID, "decision", d.Kind, "failures", streak)
			return o.answer(loopCtx, ctx, run, index+1, domain.TerminationRepeatedFailure)
		}
	}
}

// questionRun is the loop-local state of one RunQuestion call.
type questionRun struct {
	question domain.Question
	state    *domain.EvidenceState
	steps    []domain.StepRecord
}

// dispatch executes a Retrieve or Extract decision and updates evidence
// only on success.
func (o *Orchestrator) dispatch(ctx context.Context, run *questionRun, index int, d domain.Decision) error {
	rec := domain.StepRecord{Index: index, Decision: d.Kind, StartedAt: time.Now()}

	var err error
	switch d.Kind {
	case domain.DecisionRetrieve:
		rec.Query = d.Query
		var passages []domain.Passage
		passages, err = o.retriever.Search(ctx, d.Query, domain.SearchOptions{
			Source: o.cfg.Source,
			Mode:   o.cfg.Mode,
			Limit:  o.cfg.TopK,
		})
		if err == nil {
			added := run.state.AddRetrieval(d.Query, passages)
			o.log.Debug("retrieved", "question", run.question.ID, "query", d.Query, "passages", len(passages), "new", added)
		}
	case domain.DecisionExtract:
		rec.PassageID = d.Passage.ID
		var triples []domain.Triple
		triples, err = o.extractor.Extract(ctx, d.Passage)
		if err == nil {
			added := run.state.AddExtraction(d.Passage.ID, triples)
			o.log.Debug("extracted", "question", run.question.ID, "passage", d.Passage.ID, "triples", len(triples), "new", len(added))
		}
	default:
		err = fmt.Errorf("%w: cannot dispatch %q", domain.ErrInvalidInput, d.Kind)
	}
	rec.Latency = time.Since(rec.StartedAt)

	if err != nil {
		err = &domain.StepFailure{Step: index, Kind: d.Kind, Err: err}
		rec.Error = err.Error()
	}
	run.steps = append(run.steps, rec)
	o.logStep(run.question, rec)
	return err
}

// answer dispatches the final Answer. ctx bounds the generator call;
// parent detects shutdown. A failed or empty generation falls back to
// an answer built from evidence so every question yields text.
func (o *Orchestrator) answer(
	ctx, parent context.Context, run *questionRun, index int, reason domain.TerminationReason,
) (*domain.Answer, error) {
	q := run.question
	rec := domain.StepRecord{
		Index:     index,
		Decision:  domain.DecisionAnswer,
		Forced:    reason.IsForced(),
		StartedAt: time.Now(),
	}

	snapshot := run.state.Snapshot()
	text, err := o.answerer.Answer(ctx, q, snapshot, q.MaxAnswerLength)
	rec.Latency = time.Since(rec.StartedAt)
	text = o.bounder.Bound(strings.TrimSpace(text), q.MaxAnswerLength)
	if err == nil && text == "" {
		err = domain.ErrEmptyAnswer
	}

	fallback := false
	if err != nil {
		if perr := parent.Err(); perr != nil {
			return nil, perr
		}
		rec.Error = (&domain.StepFailure{Step: index, Kind: domain.DecisionAnswer, Err: err}).Error()
		text = o.bounder.Bound(fallbackAnswer(run.state), q.MaxAnswerLength)
		fallback = true
	}
	run.steps = append(run.steps, rec)
	o.logStep(q, rec)

	answer := &domain.Answer{
		QuestionID:  q.ID,
		Text:        text,
		Termination: reason,
		Fallback:    fallback,
		Evidence:    snapshot,
		Steps:       run.steps,
	}
	o.log.Info("question finished",
		"question", q.ID,
		"termination", reason,
		"steps", len(run.steps),
		"passages", len(snapshot.Passages),
		"triples", len(snapshot.Triples),
		"fallback", fallback,
	)
	if o.tracer != nil {
		o.tracer.RecordQuestion(parent, driven.QuestionTrace{
			RunID:    RunIDFromContext(parent, o.cfg.RunID),
			Question: q,
			Answer:   answer,
			Mode:     o.cfg.Mode,
			Policy:   string(o.planner.Policy().Kind()),
		})
	}
	return answer, nil
}

func (o *Orchestrator) logStep(q domain.Question, rec domain.StepRecord) {
	attrs := []any{
		"question", q.ID,
		"step", rec.Index,
		"decision", rec.Decision,
		"latency_ms", rec.Latency.Milliseconds(),
	}
	if rec.Forced {
		attrs = append(attrs, "forced", true)
	}
	if rec.Error != "" {
		o.log.Warn("step failed", append(attrs, "error", rec.Error)...)
		return
	}
	o.log.Info("step", attrs...)
}

// fallbackAnswer is the best-effort answer when generation fails: the
// object of the latest triple, else the lead sentence of the top passage.
func fallbackAnswer(s *domain.EvidenceState) string {
	if triples := s.Triples(); len(triples) > 0 {
		return triples[len(triples)-1].Object
	}
	if passages := s.Passages(); len(passages) > 0 {
		if lead := leadSentence(passages[0].Text); lead != "" {
			return lead
		}
	}
	return unknownAnswer
}

func leadSentence(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexAny(text, "\n"); i >= 0 {
		text = text[:i]
	}
	if i := strings.Index(text, ". "); i >= 0 {
		text = text[:i+1]
	}
	return strings.TrimSpace(text)
}

// IsFatal reports whether err must abort a whole run rather than one
// question.
func IsFatal(err error) bool {
	return errors.Is(err, domain.ErrConfiguration) ||
		errors.Is(err, domain.ErrPolicyLoad) ||
		errors.Is(err, context.Canceled)
}
