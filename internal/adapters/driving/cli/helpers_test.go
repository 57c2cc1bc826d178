package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ras-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ras-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ras-cli/internal/core/domain"
	"github.com/custodia-labs/ras-cli/internal/core/ports/driving"
	"github.com/custodia-labs/ras-cli/internal/core/services"
)

type fakeRunner struct {
	mu        sync.Mutex
	questions []domain.Question
	answer    *domain.Answer
	err       error
}

func (f *fakeRunner) RunQuestion(_ context.Context, q domain.Question) (*domain.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions = append(f.questions, q)
	if f.err != nil {
		return nil, f.err
	}
	a := *f.answer
	a.QuestionID = q.ID
	return &a, nil
}

type fakeBatch struct {
	datasets  []string
	summaries []domain.RunSummary
	err       error
	observer  services.ProgressObserver
}

func (f *fakeBatch) Run(_ context.Context, datasets []string) ([]domain.RunSummary, error) {
	f.datasets = datasets
	return f.summaries, f.err
}

func (f *fakeBatch) SetObserver(o services.ProgressObserver) {
	f.observer = o
}

type fakeSearch struct {
	query    string
	opts     domain.SearchOptions
	passages []domain.Passage
	err      error
}

func (f *fakeSearch) Search(_ context.Context, query string, opts domain.SearchOptions) ([]domain.Passage, error) {
	f.query = query
	f.opts = opts
	return f.passages, f.err
}

type fakeIndex struct {
	passages []domain.Passage
}

func (f *fakeIndex) Import(_ context.Context, passages []domain.Passage) (int, error) {
	f.passages = passages
	n := 0
	for _, p := range passages {
		if p.ID != "" && p.Text != "" {
			n++
		}
	}
	return n, nil
}

type fakeHistory struct {
	runs    []domain.RunSummary
	results map[string][]domain.QuestionResult
	limit   int
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]domain.RunSummary, error) {
	f.limit = limit
	return f.runs, nil
}

func (f *fakeHistory) Results(_ context.Context, runID string) ([]domain.QuestionResult, error) {
	rows, ok := f.results[runID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rows, nil
}

// testEnv holds the fakes installed by setupTestServices and the
// settings the last builder call received.
type testEnv struct {
	runner   *fakeRunner
	batch    *fakeBatch
	search   *fakeSearch
	index    *fakeIndex
	history  *fakeHistory
	settings *domain.RunSettings
	built    int
	closed   int
}

// setupTestServices installs an in-memory settings service and fake
// builders, and restores everything when the test ends.
func setupTestServices(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv(file.HomeEnv, t.TempDir())

	oldSettings := settingsService
	oldPipeline, oldSearch, oldIndex, oldHistory := openPipeline, openSearch, openIndex, openHistory

	env := &testEnv{
		runner: &fakeRunner{answer: &domain.Answer{
			Text:        "Paris",
			Termination: domain.TerminationAnswered,
			Steps: []domain.StepRecord{
				{Index: 0, Decision: domain.DecisionRetrieve, Query: "capital of France"},
				{Index: 1, Decision: domain.DecisionAnswer},
			},
		}},
		batch:   &fakeBatch{},
		search:  &fakeSearch{},
		index:   &fakeIndex{},
		history: &fakeHistory{results: map[string][]domain.QuestionResult{}},
	}

	settingsService = services.NewSettingsService(memory.NewConfigStore(), nil)
	openPipeline = func(_ context.Context, s *domain.RunSettings) (*Pipeline, error) {
		env.settings = s
		env.built++
		p := &Pipeline{Questions: env.runner, Search: env.search, History: env.history, Batch: env.batch}
		p.onClose(func() error { env.closed++; return nil })
		return p, nil
	}
	openSearch = func(_ context.Context, s *domain.RunSettings) (driving.SearchService, func(), error) {
		env.settings = s
		return env.search, func() { env.closed++ }, nil
	}
	openIndex = func(_ context.Context, s *domain.RunSettings) (driving.IndexService, func(), error) {
		env.settings = s
		return env.index, func() { env.closed++ }, nil
	}
	openHistory = func(_ context.Context) (driving.HistoryService, func(), error) {
		return env.history, func() { env.closed++ }, nil
	}

	t.Cleanup(func() {
		settingsService = oldSettings
		openPipeline, openSearch, openIndex, openHistory = oldPipeline, oldSearch, oldIndex, oldHistory
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	return env
}

// configureValid stores the minimum settings Validate accepts.
func configureValid(t *testing.T) {
	t.Helper()
	for key, value := range map[string]string{
		"knowledge.source":   "wiki",
		"retrieval.mode":     "keyword_only",
		"extractor.provider": "ollama",
		"extractor.model":    "llama3.1:8b",
		"answerer.provider":  "ollama",
		"answerer.model":     "llama3.1:8b",
	} {
		require.NoError(t, settingsService.Set(key, value))
	}
}

// execute runs the root command with args and returns its standard
// output. Logs go to a separate buffer.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag of cmd and its children to its default
// so state does not leak between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
